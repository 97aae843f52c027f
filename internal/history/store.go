package history

import (
	"context"
	"errors"
	"fmt"

	"github.com/SteelMorgan/access-log-report/internal/domain"
)

// Supported history backends
const (
	BackendNone   = "none"
	BackendBolt   = "bolt"
	BackendSQLite = "sqlite"
)

// ErrNotFound is returned by Get when no run has the requested ID
var ErrNotFound = errors.New("report run not found")

// Store keeps finished report runs
// Implementations: BoltDB, SQLite, and a no-op store when history is disabled
type Store interface {
	// Save stores a run, replacing any run with the same ID
	Save(ctx context.Context, run *domain.ReportRun) error

	// Get retrieves a run by ID
	// Returns ErrNotFound if no such run is stored
	Get(ctx context.Context, runID string) (*domain.ReportRun, error)

	// List returns all stored runs, newest first
	List(ctx context.Context) ([]domain.ReportRun, error)

	// Close closes the store
	Close() error
}

// Open opens the store for backend at path
func Open(backend, path string) (Store, error) {
	switch backend {
	case "", BackendNone:
		return NopStore{}, nil
	case BackendBolt:
		return NewBoltStore(path)
	case BackendSQLite:
		return NewSQLiteStore(path)
	default:
		return nil, fmt.Errorf("unknown history backend: %s", backend)
	}
}

// NopStore discards runs
type NopStore struct{}

func (NopStore) Save(context.Context, *domain.ReportRun) error { return nil }

func (NopStore) Get(context.Context, string) (*domain.ReportRun, error) { return nil, ErrNotFound }

func (NopStore) List(context.Context) ([]domain.ReportRun, error) { return nil, nil }

func (NopStore) Close() error { return nil }
