package history

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
	"go.etcd.io/bbolt"

	"github.com/SteelMorgan/access-log-report/internal/domain"
)

const (
	bucketName = "runs"
)

// BoltStore implements Store using BoltDB
type BoltStore struct {
	db *bbolt.DB
}

// NewBoltStore creates a new BoltDB history store
func NewBoltStore(dbPath string) (*BoltStore, error) {
	if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
	}

	// Short timeout: a second report process holding the lock should fail fast
	db, err := bbolt.Open(dbPath, 0600, &bbolt.Options{
		Timeout: 1 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open boltdb (file may be locked by another process): %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}

	log.Debug().
		Str("db_path", dbPath).
		Msg("BoltDB history store initialized")

	return &BoltStore{db: db}, nil
}

// Save stores the run as JSON keyed by run ID
func (s *BoltStore) Save(ctx context.Context, run *domain.ReportRun) error {
	val, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("failed to encode run: %w", err)
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return fmt.Errorf("bucket not found")
		}
		return b.Put([]byte(run.RunID.String()), val)
	})
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	log.Debug().
		Str("run_id", run.RunID.String()).
		Int("rows", len(run.Rows)).
		Msg("Run saved to history")

	return nil
}

// Get retrieves a run by ID
func (s *BoltStore) Get(ctx context.Context, runID string) (*domain.ReportRun, error) {
	var run *domain.ReportRun

	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return fmt.Errorf("bucket not found")
		}

		val := b.Get([]byte(runID))
		if val == nil {
			return ErrNotFound
		}

		run = &domain.ReportRun{}
		return json.Unmarshal(val, run)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get run %s: %w", runID, err)
	}

	return run, nil
}

// List returns all runs, newest first
func (s *BoltStore) List(ctx context.Context) ([]domain.ReportRun, error) {
	var runs []domain.ReportRun

	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return fmt.Errorf("bucket not found")
		}

		return b.ForEach(func(k, v []byte) error {
			var run domain.ReportRun
			if err := json.Unmarshal(v, &run); err != nil {
				log.Warn().Err(err).Str("run_id", string(k)).Msg("Skipping corrupt history entry")
				return nil
			}
			runs = append(runs, run)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].CreatedAt.After(runs[j].CreatedAt)
	})

	return runs, nil
}

// Close closes the BoltDB database
func (s *BoltStore) Close() error {
	return s.db.Close()
}
