package memstore

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/natefinch/atomic"
	"github.com/tailscale/hujson"

	"github.com/jsamuelsen11/taskboard/internal/domain/task"
	"github.com/jsamuelsen11/taskboard/internal/domain/user"
)

// Snapshot is the full persisted state of a Store.
type Snapshot struct {
	Users []UserRecord `json:"users"`
	Tasks []TaskRecord `json:"tasks"`
}

// UserRecord is the on-disk form of a user.
type UserRecord struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PendingTasks []string  `json:"pending_tasks"`
	CreatedAt    time.Time `json:"created_at"`
}

// TaskRecord is the on-disk form of a task.
type TaskRecord struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	Description      string     `json:"description,omitempty"`
	Deadline         *time.Time `json:"deadline,omitempty"`
	Completed        bool       `json:"completed"`
	AssignedUser     string     `json:"assigned_user,omitempty"`
	AssignedUserName string     `json:"assigned_user_name"`
	CreatedAt        time.Time  `json:"created_at"`
}

func userRecord(u *user.User) UserRecord {
	c := u.Clone()
	return UserRecord{ID: c.ID, Name: c.Name, Email: c.Email, PendingTasks: c.PendingTasks, CreatedAt: c.CreatedAt}
}

func (r UserRecord) user() user.User {
	u := user.User{ID: r.ID, Name: r.Name, Email: r.Email, PendingTasks: r.PendingTasks, CreatedAt: r.CreatedAt}
	return u.Clone()
}

func taskRecord(t *task.Task) TaskRecord {
	c := t.Clone()
	return TaskRecord{
		ID: c.ID, Name: c.Name, Description: c.Description, Deadline: c.Deadline,
		Completed: c.Completed, AssignedUser: c.AssignedUser, AssignedUserName: c.AssignedUserName,
		CreatedAt: c.CreatedAt,
	}
}

func (r TaskRecord) task() task.Task {
	t := task.Task{
		ID: r.ID, Name: r.Name, Description: r.Description, Deadline: r.Deadline,
		Completed: r.Completed, AssignedUser: r.AssignedUser, AssignedUserName: r.AssignedUserName,
		CreatedAt: r.CreatedAt,
	}
	return t.Clone()
}

// Verify checks the user/task reference invariant over the snapshot and
// returns every violation joined, or nil.
func (snap Snapshot) Verify() error {
	users := make(map[string]UserRecord, len(snap.Users))
	for _, u := range snap.Users {
		users[u.ID] = u
	}
	tasks := make(map[string]TaskRecord, len(snap.Tasks))
	for _, t := range snap.Tasks {
		tasks[t.ID] = t
	}

	var errs []error
	for _, t := range snap.Tasks {
		if t.AssignedUser == "" {
			continue
		}
		u, ok := users[t.AssignedUser]
		if !ok {
			errs = append(errs, fmt.Errorf("task %s assigned to missing user %s", t.ID, t.AssignedUser))
			continue
		}
		if n := count(u.PendingTasks, t.ID); n != 1 {
			errs = append(errs, fmt.Errorf("task %s appears %d times in pending tasks of user %s", t.ID, n, u.ID))
		}
	}
	for _, u := range snap.Users {
		for _, id := range u.PendingTasks {
			t, ok := tasks[id]
			if !ok {
				errs = append(errs, fmt.Errorf("user %s lists missing task %s", u.ID, id))
				continue
			}
			if t.AssignedUser != u.ID {
				errs = append(errs, fmt.Errorf("user %s lists task %s assigned to %q", u.ID, id, t.AssignedUser))
			}
		}
	}
	return errors.Join(errs...)
}

func count(ids []string, id string) int {
	n := 0
	for _, v := range ids {
		if v == id {
			n++
		}
	}
	return n
}

// Export returns a consistent copy of every record.
func (s *Store) Export(_ context.Context) Snapshot {
	txn := s.db.Txn(false)
	defer txn.Abort()

	snap := Snapshot{Users: []UserRecord{}, Tasks: []TaskRecord{}}
	if it, err := txn.Get(tableUsers, indexID); err == nil {
		for obj := it.Next(); obj != nil; obj = it.Next() {
			snap.Users = append(snap.Users, userRecord(obj.(*user.User)))
		}
	}
	if it, err := txn.Get(tableTasks, indexID); err == nil {
		for obj := it.Next(); obj != nil; obj = it.Next() {
			snap.Tasks = append(snap.Tasks, taskRecord(obj.(*task.Task)))
		}
	}
	return snap
}

// Import replaces the whole store content with the snapshot. The snapshot
// must satisfy the reference invariant and every record must validate.
func (s *Store) Import(ctx context.Context, snap Snapshot) error {
	if err := snap.Verify(); err != nil {
		return fmt.Errorf("inconsistent snapshot: %w", err)
	}

	sc, err := s.Begin(ctx)
	if err != nil {
		return err
	}
	defer sc.Abort()

	txn, _ := txnOf(sc)
	for _, table := range []string{tableUsers, tableTasks} {
		if _, err := txn.DeleteAll(table, indexID); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}
	for _, r := range snap.Users {
		u := r.user()
		if err := u.Validate(); err != nil {
			return fmt.Errorf("user %s: %w", r.ID, err)
		}
		if err := checkEmailFree(txn, u.Email, u.ID); err != nil {
			return fmt.Errorf("user %s: %w", r.ID, err)
		}
		if err := insert(txn, tableUsers, &u); err != nil {
			return err
		}
	}
	for _, r := range snap.Tasks {
		t := r.task()
		if err := t.Validate(); err != nil {
			return fmt.Errorf("task %s: %w", r.ID, err)
		}
		if err := insert(txn, tableTasks, &t); err != nil {
			return err
		}
	}
	return sc.Commit()
}

// SaveFile writes the current state to path. The file is replaced atomically
// so a crash mid-write never leaves a truncated snapshot.
func (s *Store) SaveFile(ctx context.Context, path string) error {
	snap := s.Export(ctx)
	slices.SortFunc(snap.Users, func(a, b UserRecord) int {
		return cmp.Or(a.CreatedAt.Compare(b.CreatedAt), strings.Compare(a.ID, b.ID))
	})
	slices.SortFunc(snap.Tasks, func(a, b TaskRecord) int {
		return cmp.Or(a.CreatedAt.Compare(b.CreatedAt), strings.Compare(a.ID, b.ID))
	})

	data, err := json.MarshalIndent(snap, "", "  ")
	if err == nil {
		err = atomic.WriteFile(path, bytes.NewReader(append(data, '\n')))
	}
	s.setSnapshotErr(err)
	if err != nil {
		return fmt.Errorf("saving snapshot to %s: %w", path, err)
	}
	return nil
}

// LoadFile replaces the state with the snapshot stored at path. A missing
// file leaves the store untouched. The file may contain comments and
// trailing commas.
func (s *Store) LoadFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading snapshot %s: %w", path, err)
	}

	std, err := hujson.Standardize(data)
	if err != nil {
		return fmt.Errorf("parsing snapshot %s: %w", path, err)
	}
	var snap Snapshot
	if err := json.Unmarshal(std, &snap); err != nil {
		return fmt.Errorf("decoding snapshot %s: %w", path, err)
	}
	if err := s.Import(ctx, snap); err != nil {
		return fmt.Errorf("loading snapshot %s: %w", path, err)
	}
	return nil
}

// RunSnapshots saves the state to path every interval until ctx is done.
// Failures are logged and reported by HealthCheck until the next success.
func (s *Store) RunSnapshots(ctx context.Context, path string, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.SaveFile(ctx, path); err != nil {
				logger.WarnContext(ctx, "snapshot failed", slog.String("path", path), slog.Any("error", err))
				continue
			}
			logger.DebugContext(ctx, "snapshot saved", slog.String("path", path))
		}
	}
}
