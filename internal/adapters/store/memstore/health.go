package memstore

import (
	"context"
	"fmt"

	"github.com/jsamuelsen11/taskboard/internal/ports"
)

var _ ports.HealthChecker = (*Store)(nil)

// Name identifies the store in readiness results.
func (s *Store) Name() string {
	return "store"
}

// HealthCheck verifies that a read transaction can be opened and that the
// most recent snapshot, if any, was written successfully.
func (s *Store) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	txn := s.db.Txn(false)
	_, err := txn.First(tableUsers, indexID)
	txn.Abort()
	if err != nil {
		return fmt.Errorf("store read: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastSnapshotErr != nil {
		return fmt.Errorf("last snapshot failed: %w", s.lastSnapshotErr)
	}
	return nil
}

func (s *Store) setSnapshotErr(err error) {
	s.mu.Lock()
	s.lastSnapshotErr = err
	s.mu.Unlock()
}
