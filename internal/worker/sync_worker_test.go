package worker

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"aspirebot/internal/amqp"
	"aspirebot/internal/core"
	"aspirebot/internal/storage"
)

type fakeSheet struct {
	mu   sync.Mutex
	rows []core.Transaction
	err  error
}

func (f *fakeSheet) AppendTransaction(_ context.Context, tx core.Transaction) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.rows = append(f.rows, tx)
	return fmt.Sprintf("Transactions!A%d", len(f.rows)+1), nil
}

func (f *fakeSheet) appended() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

func newRepo(t *testing.T) *storage.SQLiteRepository {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "outbox.db"))
	if err != nil {
		t.Fatalf("open outbox: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func insert(t *testing.T, repo *storage.SQLiteRepository, memo string) string {
	t.Helper()
	id, err := repo.InsertPending(context.Background(), 7, core.Transaction{
		Date:    "10/03/2024",
		Outflow: core.NewAmount(12000),
		Memo:    memo,
	})
	if err != nil {
		t.Fatalf("InsertPending: %v", err)
	}
	return id
}

func TestHandleSubmittedSyncs(t *testing.T) {
	repo := newRepo(t)
	sheet := &fakeSheet{}
	w := NewSyncWorker(repo, sheet, 10)
	ctx := context.Background()
	id := insert(t, repo, "lunch")

	if err := w.HandleSubmitted(ctx, amqp.NewTransactionSubmittedMessage(id, 7)); err != nil {
		t.Fatalf("HandleSubmitted: %v", err)
	}
	rec, err := repo.GetTransaction(ctx, id)
	if err != nil {
		t.Fatalf("GetTransaction: %v", err)
	}
	if rec.Status != storage.StatusSynced || rec.SheetsRef == "" || rec.SyncedAt == nil {
		t.Fatalf("record not marked synced: %+v", rec)
	}

	// Redelivery must not append the row twice.
	if err := w.HandleSubmitted(ctx, amqp.NewTransactionSubmittedMessage(id, 7)); err != nil {
		t.Fatalf("HandleSubmitted redelivery: %v", err)
	}
	if sheet.appended() != 1 {
		t.Fatalf("expected one row, got %d", sheet.appended())
	}
}

func TestHandleSubmittedUnknownID(t *testing.T) {
	w := NewSyncWorker(newRepo(t), &fakeSheet{}, 10)
	if err := w.HandleSubmitted(context.Background(), amqp.NewTransactionSubmittedMessage("missing", 1)); err != nil {
		t.Fatalf("unknown IDs should be dropped, got %v", err)
	}
}

func TestHandleSubmittedSheetFailure(t *testing.T) {
	repo := newRepo(t)
	w := NewSyncWorker(repo, &fakeSheet{err: errors.New("quota exceeded")}, 10)
	ctx := context.Background()
	id := insert(t, repo, "fuel")

	if err := w.HandleSubmitted(ctx, amqp.NewTransactionSubmittedMessage(id, 7)); err != nil {
		t.Fatalf("sheet failures must not requeue, got %v", err)
	}
	rec, _ := repo.GetTransaction(ctx, id)
	if rec.Status != storage.StatusError || rec.Attempts != 1 || rec.LastError != "quota exceeded" {
		t.Fatalf("unexpected record after failure: %+v", rec)
	}
}

func TestProcessPending(t *testing.T) {
	repo := newRepo(t)
	sheet := &fakeSheet{}
	w := NewSyncWorker(repo, sheet, 2)
	ctx := context.Background()
	for _, memo := range []string{"a", "b", "c"} {
		insert(t, repo, memo)
	}

	n, err := w.ProcessPending(ctx)
	if err != nil || n != 2 {
		t.Fatalf("first batch: n=%d err=%v", n, err)
	}
	n, err = w.ProcessPending(ctx)
	if err != nil || n != 1 {
		t.Fatalf("second batch: n=%d err=%v", n, err)
	}
	n, _ = w.ProcessPending(ctx)
	if n != 0 {
		t.Fatalf("nothing should be left, synced %d", n)
	}
	if sheet.rows[0].Memo != "a" || sheet.rows[2].Memo != "c" {
		t.Fatalf("rows out of order: %+v", sheet.rows)
	}
}

func TestProcessPendingGivesUpAfterMaxAttempts(t *testing.T) {
	repo := newRepo(t)
	sheet := &fakeSheet{err: errors.New("unavailable")}
	w := NewSyncWorker(repo, sheet, 10)
	ctx := context.Background()
	insert(t, repo, "retry")

	for i := 0; i < storage.MaxAttempts; i++ {
		if _, err := w.ProcessPending(ctx); err != nil {
			t.Fatalf("sweep %d: %v", i, err)
		}
	}
	sheet.err = nil
	if n, _ := w.ProcessPending(ctx); n != 0 {
		t.Fatalf("exhausted records must not be retried, synced %d", n)
	}
}

func TestStartupSyncCheck(t *testing.T) {
	repo := newRepo(t)
	sheet := &fakeSheet{}
	w := NewSyncWorker(repo, sheet, 1)
	ctx := context.Background()

	if err := w.StartupSyncCheck(ctx); err != nil {
		t.Fatalf("empty outbox: %v", err)
	}
	for _, memo := range []string{"a", "b", "c"} {
		insert(t, repo, memo)
	}
	if err := w.StartupSyncCheck(ctx); err != nil {
		t.Fatalf("StartupSyncCheck: %v", err)
	}
	if sheet.appended() != 3 {
		t.Fatalf("startup batch should cover all three, got %d", sheet.appended())
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	repo := newRepo(t)
	sheet := &fakeSheet{}
	w := NewSyncWorker(repo, sheet, 10)
	insert(t, repo, "tick")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, 10*time.Millisecond) }()

	deadline := time.After(2 * time.Second)
	for sheet.appended() == 0 {
		select {
		case <-deadline:
			t.Fatal("sweep never ran")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestNewSyncWorkerDefaultsBatchSize(t *testing.T) {
	if w := NewSyncWorker(nil, nil, 0); w.batchSize != DefaultBatchSize {
		t.Fatalf("batchSize = %d", w.batchSize)
	}
}

// gatedSheet holds every append until release is closed.
type gatedSheet struct {
	fakeSheet
	entered chan struct{}
	release chan struct{}
}

func (g *gatedSheet) AppendTransaction(ctx context.Context, tx core.Transaction) (string, error) {
	g.entered <- struct{}{}
	<-g.release
	return g.fakeSheet.AppendTransaction(ctx, tx)
}

func TestConsumerAndSweepAppendOnce(t *testing.T) {
	repo := newRepo(t)
	sheet := &gatedSheet{entered: make(chan struct{}, 2), release: make(chan struct{})}
	w := NewSyncWorker(repo, sheet, 10)
	ctx := context.Background()
	id := insert(t, repo, "race")

	done := make(chan error, 1)
	go func() { done <- w.HandleSubmitted(ctx, amqp.NewTransactionSubmittedMessage(id, 7)) }()

	select {
	case <-sheet.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("consumer never reached the sheet")
	}

	// The consumer is mid-append; the sweep must leave the record alone.
	n, err := w.ProcessPending(ctx)
	if err != nil || n != 0 {
		t.Fatalf("sweep during sync: n=%d err=%v", n, err)
	}

	close(sheet.release)
	if err := <-done; err != nil {
		t.Fatalf("HandleSubmitted: %v", err)
	}
	if sheet.appended() != 1 {
		t.Fatalf("expected one row for one record, got %d", sheet.appended())
	}
	rec, err := repo.GetTransaction(ctx, id)
	if err != nil || rec.Status != storage.StatusSynced {
		t.Fatalf("record not synced: %+v, %v", rec, err)
	}
}

func TestConcurrentSyncersAppendOnce(t *testing.T) {
	repo := newRepo(t)
	sheet := &fakeSheet{}
	w := NewSyncWorker(repo, sheet, 10)
	ctx := context.Background()
	ids := []string{insert(t, repo, "a"), insert(t, repo, "b"), insert(t, repo, "c")}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(2)
		go func(id string) {
			defer wg.Done()
			w.HandleSubmitted(ctx, amqp.NewTransactionSubmittedMessage(id, 7))
		}(id)
		go func() {
			defer wg.Done()
			w.ProcessPending(ctx)
		}()
	}
	wg.Wait()

	if sheet.appended() != len(ids) {
		t.Fatalf("expected %d rows, got %d", len(ids), sheet.appended())
	}
	for _, id := range ids {
		rec, _ := repo.GetTransaction(ctx, id)
		if rec.Status != storage.StatusSynced {
			t.Fatalf("record %s not synced: %+v", id, rec)
		}
	}
}

func TestStartupReleasesStaleClaims(t *testing.T) {
	repo := newRepo(t)
	sheet := &fakeSheet{}
	w := NewSyncWorker(repo, sheet, 10)
	ctx := context.Background()
	id := insert(t, repo, "orphan")

	// A worker that died mid-sync leaves its claim behind.
	if ok, err := repo.Claim(ctx, id); err != nil || !ok {
		t.Fatalf("Claim: %v, %v", ok, err)
	}
	if n, _ := w.ProcessPending(ctx); n != 0 {
		t.Fatalf("claimed record should be skipped, synced %d", n)
	}
	if err := w.StartupSyncCheck(ctx); err != nil {
		t.Fatalf("StartupSyncCheck: %v", err)
	}
	if sheet.appended() != 1 {
		t.Fatalf("released record should sync at startup, got %d rows", sheet.appended())
	}
}
