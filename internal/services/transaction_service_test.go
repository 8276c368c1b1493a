package services

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"aspirebot/internal/core"
	"aspirebot/internal/storage"
)

type fakePublisher struct {
	published []string
	users     []int64
	err       error
	closed    bool
}

func (f *fakePublisher) PublishTransactionSubmitted(_ context.Context, id string, userID int64) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, id)
	f.users = append(f.users, userID)
	return nil
}

func (f *fakePublisher) Close() error {
	f.closed = true
	return nil
}

func newRepo(t *testing.T) *storage.SQLiteRepository {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "outbox.db"))
	if err != nil {
		t.Fatalf("open outbox: %v", err)
	}
	return repo
}

func TestSubmitTransactionPublishes(t *testing.T) {
	repo := newRepo(t)
	pub := &fakePublisher{}
	svc := NewTransactionService(repo, pub)
	defer svc.Close()

	tx := core.Transaction{Date: "01/02/2024", Outflow: core.NewAmount(25000), Memo: "taxi"}
	ref, err := svc.SubmitTransaction(context.Background(), 9, tx)
	if err != nil {
		t.Fatalf("SubmitTransaction: %v", err)
	}
	id := strings.TrimPrefix(ref, "outbox:")
	if id == ref {
		t.Fatalf("unexpected ref %q", ref)
	}
	if len(pub.published) != 1 || pub.published[0] != id || pub.users[0] != 9 {
		t.Fatalf("unexpected publications: %+v", pub)
	}

	stored, err := repo.GetTransaction(context.Background(), id)
	if err != nil {
		t.Fatalf("GetTransaction: %v", err)
	}
	if stored.Transaction != tx || stored.Status != storage.StatusPending {
		t.Fatalf("unexpected record: %+v", stored)
	}
}

func TestSubmitTransactionSurvivesPublishFailure(t *testing.T) {
	repo := newRepo(t)
	svc := NewTransactionService(repo, &fakePublisher{err: errors.New("broker down")})
	defer svc.Close()

	if _, err := svc.SubmitTransaction(context.Background(), 1, core.Transaction{Date: "01/02/2024"}); err != nil {
		t.Fatalf("publish failures must not fail the submission: %v", err)
	}
	pending, _ := repo.PendingTransactions(context.Background(), 10)
	if len(pending) != 1 {
		t.Fatalf("record should wait for the sweep, got %d", len(pending))
	}
}

func TestSubmitTransactionWithoutPublisher(t *testing.T) {
	repo := newRepo(t)
	svc := NewTransactionService(repo, nil)
	defer svc.Close()

	if _, err := svc.SubmitTransaction(context.Background(), 1, core.Transaction{Date: "01/02/2024"}); err != nil {
		t.Fatalf("SubmitTransaction: %v", err)
	}
}

func TestSubmitTransactionWithoutStorage(t *testing.T) {
	svc := NewTransactionService(nil, nil)
	if _, err := svc.SubmitTransaction(context.Background(), 1, core.Transaction{}); err == nil {
		t.Fatal("expected error without outbox")
	}
}

func TestTransactionService_Close(t *testing.T) {
	t.Run("nil components", func(t *testing.T) {
		if err := (&TransactionService{}).Close(); err != nil {
			t.Fatalf("Close should not return error with nil components: %v", err)
		}
	})

	t.Run("closes publisher", func(t *testing.T) {
		pub := &fakePublisher{}
		svc := NewTransactionService(newRepo(t), pub)
		if err := svc.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
		if !pub.closed {
			t.Fatal("publisher should be closed")
		}
	})
}
