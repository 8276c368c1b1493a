package backend

import (
	"context"

	"aspirebot/internal/sheets"
	gsheet "aspirebot/internal/sheets/google"
)

// Backend is everything the conversation needs from storage: the catalog
// and somewhere to put finished transactions.
type Backend interface {
	sheets.ConfigurationReader
	sheets.TransactionWriter
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the backend instance and optional cleanup function
type BackendResult struct {
	Backend Backend
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// Memory backend specific
	DataDirectory string

	// Google Sheets, also the catalog source of the queued backend
	Sheets gsheet.Config

	// Queued specific
	SQLiteDBPath string
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// BackendType represents the type of backend
type BackendType string

const (
	MemoryBackend BackendType = "memory"
	SheetsBackend BackendType = "sheets"
	QueuedBackend BackendType = "queued"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SheetsBackend, QueuedBackend:
		return true
	default:
		return false
	}
}
