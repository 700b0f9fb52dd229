package memstore

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-memdb"

	"github.com/jsamuelsen11/taskboard/internal/domain"
	"github.com/jsamuelsen11/taskboard/internal/domain/user"
	"github.com/jsamuelsen11/taskboard/internal/ports"
)

// GetUser returns the user with the given id.
func (s *Store) GetUser(_ context.Context, sc ports.Scope, id string) (*user.User, error) {
	id, err := domain.ParseID(domain.EntityUser, id)
	if err != nil {
		return nil, err
	}

	var out user.User
	err = s.read(sc, func(txn *memdb.Txn) error {
		rec, err := firstUser(txn, id)
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

// ListUsers returns users matching the filter, oldest first.
func (s *Store) ListUsers(_ context.Context, sc ports.Scope, filter user.Filter) ([]user.User, error) {
	var out []user.User
	err := s.read(sc, func(txn *memdb.Txn) error {
		var (
			it  memdb.ResultIterator
			err error
		)
		if filter.Email != "" {
			it, err = txn.Get(tableUsers, indexEmail, filter.Email)
		} else {
			it, err = txn.Get(tableUsers, indexID)
		}
		if err != nil {
			return fmt.Errorf("listing users: %w", err)
		}
		for obj := it.Next(); obj != nil; obj = it.Next() {
			out = append(out, obj.(*user.User).Clone())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	byCreation(out,
		func(u user.User) time.Time { return u.CreatedAt },
		func(u user.User) string { return u.ID })
	return page(nonNil(out), filter.Skip, filter.Limit), nil
}

// CreateUser stores a new user with a fresh ID and CreatedAt.
func (s *Store) CreateUser(_ context.Context, sc ports.Scope, u *user.User) (*user.User, error) {
	rec := u.Clone()
	rec.ID = domain.NewID()
	rec.CreatedAt = s.now()
	if err := rec.Validate(); err != nil {
		return nil, err
	}

	err := s.write(sc, func(txn *memdb.Txn) error {
		if err := checkEmailFree(txn, rec.Email, rec.ID); err != nil {
			return err
		}
		return insert(txn, tableUsers, &rec)
	})
	if err != nil {
		return nil, err
	}

	out := rec.Clone()
	return &out, nil
}

// UpdateUser applies the patch to the stored user.
func (s *Store) UpdateUser(_ context.Context, sc ports.Scope, id string, patch user.Patch) (*user.User, error) {
	id, err := domain.ParseID(domain.EntityUser, id)
	if err != nil {
		return nil, err
	}

	var out user.User
	err = s.write(sc, func(txn *memdb.Txn) error {
		current, err := firstUser(txn, id)
		if err != nil {
			return err
		}

		next := current.Apply(patch)
		if err := next.Validate(); err != nil {
			return err
		}
		if next.Email != current.Email {
			if err := checkEmailFree(txn, next.Email, id); err != nil {
				return err
			}
		}
		if err := insert(txn, tableUsers, &next); err != nil {
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

// DeleteUser removes the user and returns its last state.
func (s *Store) DeleteUser(_ context.Context, sc ports.Scope, id string) (*user.User, error) {
	id, err := domain.ParseID(domain.EntityUser, id)
	if err != nil {
		return nil, err
	}

	var out user.User
	err = s.write(sc, func(txn *memdb.Txn) error {
		rec, err := firstUser(txn, id)
		if err != nil {
			return err
		}
		if err := txn.Delete(tableUsers, rec); err != nil {
			return fmt.Errorf("deleting user %s: %w", id, err)
		}
		out = rec.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func firstUser(txn *memdb.Txn, id string) (*user.User, error) {
	obj, err := txn.First(tableUsers, indexID, id)
	if err != nil {
		return nil, fmt.Errorf("reading user %s: %w", id, err)
	}
	if obj == nil {
		return nil, domain.UserNotFound(id)
	}
	return obj.(*user.User), nil
}

// checkEmailFree fails with a *domain.ConflictError when email belongs to a
// user other than selfID.
func checkEmailFree(txn *memdb.Txn, email, selfID string) error {
	obj, err := txn.First(tableUsers, indexEmail, email)
	if err != nil {
		return fmt.Errorf("checking email: %w", err)
	}
	if obj != nil && obj.(*user.User).ID != selfID {
		return &domain.ConflictError{Entity: domain.EntityUser, Field: "email", Value: email}
	}
	return nil
}

func insert(txn *memdb.Txn, table string, obj any) error {
	if err := txn.Insert(table, obj); err != nil {
		return fmt.Errorf("writing %s: %w", table, err)
	}
	return nil
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
