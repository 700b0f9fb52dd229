package memstore

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-memdb"

	"github.com/jsamuelsen11/taskboard/internal/domain"
	"github.com/jsamuelsen11/taskboard/internal/domain/task"
	"github.com/jsamuelsen11/taskboard/internal/ports"
)

// GetTask returns the task with the given id.
func (s *Store) GetTask(_ context.Context, sc ports.Scope, id string) (*task.Task, error) {
	id, err := domain.ParseID(domain.EntityTask, id)
	if err != nil {
		return nil, err
	}

	var out task.Task
	err = s.read(sc, func(txn *memdb.Txn) error {
		rec, err := firstTask(txn, id)
		if err != nil {
			return err
		}
		out = rec.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ListTasks returns tasks matching the filter, oldest first. The most
// selective index available is used; remaining criteria are applied while
// iterating.
func (s *Store) ListTasks(_ context.Context, sc ports.Scope, filter task.Filter) ([]task.Task, error) {
	var out []task.Task
	err := s.read(sc, func(txn *memdb.Txn) error {
		var (
			it  memdb.ResultIterator
			err error
		)
		switch {
		case filter.AssignedUser != "":
			it, err = txn.Get(tableTasks, indexAssignedUser, filter.AssignedUser)
		case filter.Completed != nil:
			it, err = txn.Get(tableTasks, indexCompleted, *filter.Completed)
		default:
			it, err = txn.Get(tableTasks, indexID)
		}
		if err != nil {
			return fmt.Errorf("listing tasks: %w", err)
		}
		for obj := it.Next(); obj != nil; obj = it.Next() {
			t := obj.(*task.Task)
			if filter.Completed != nil && t.Completed != *filter.Completed {
				continue
			}
			out = append(out, t.Clone())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	byCreation(out,
		func(t task.Task) time.Time { return t.CreatedAt },
		func(t task.Task) string { return t.ID })
	return page(nonNil(out), filter.Skip, filter.Limit), nil
}

// CreateTask stores a new task with a fresh ID and CreatedAt.
func (s *Store) CreateTask(_ context.Context, sc ports.Scope, t *task.Task) (*task.Task, error) {
	rec := t.Clone()
	rec.ID = domain.NewID()
	rec.CreatedAt = s.now()
	if err := rec.Validate(); err != nil {
		return nil, err
	}

	if err := s.write(sc, func(txn *memdb.Txn) error {
		return insert(txn, tableTasks, &rec)
	}); err != nil {
		return nil, err
	}

	out := rec.Clone()
	return &out, nil
}

// UpdateTask applies the patch to the stored task.
func (s *Store) UpdateTask(_ context.Context, sc ports.Scope, id string, patch task.Patch) (*task.Task, error) {
	id, err := domain.ParseID(domain.EntityTask, id)
	if err != nil {
		return nil, err
	}

	var out task.Task
	err = s.write(sc, func(txn *memdb.Txn) error {
		current, err := firstTask(txn, id)
		if err != nil {
			return err
		}

		next := current.Apply(patch)
		if err := next.Validate(); err != nil {
			return err
		}
		if err := insert(txn, tableTasks, &next); err != nil {
			return err
		}
		out = next.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteTask removes the task and returns its last state.
func (s *Store) DeleteTask(_ context.Context, sc ports.Scope, id string) (*task.Task, error) {
	id, err := domain.ParseID(domain.EntityTask, id)
	if err != nil {
		return nil, err
	}

	var out task.Task
	err = s.write(sc, func(txn *memdb.Txn) error {
		rec, err := firstTask(txn, id)
		if err != nil {
			return err
		}
		if err := txn.Delete(tableTasks, rec); err != nil {
			return fmt.Errorf("deleting task %s: %w", id, err)
		}
		out = rec.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func firstTask(txn *memdb.Txn, id string) (*task.Task, error) {
	obj, err := txn.First(tableTasks, indexID, id)
	if err != nil {
		return nil, fmt.Errorf("reading task %s: %w", id, err)
	}
	if obj == nil {
		return nil, domain.TaskNotFound(id)
	}
	return obj.(*task.Task), nil
}
