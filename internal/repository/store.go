// Package repository is the persistence gateway over the restaurant tables.
//
// A Store wraps a *gorm.DB that is either the pool or an open transaction;
// Transaction hands the callback a Store bound to the transaction so the same
// methods compose into all-or-nothing units of work. Errors leaving this
// package are classified with the apperr sentinels: missing rows wrap
// apperr.ErrNotFound, unique violations wrap apperr.ErrConflict (and still
// match gorm.ErrDuplicatedKey), everything else wraps apperr.ErrPersistence.
package repository

import (
	"context"
	"errors"
	"fmt"

	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"fz-restaurant/internal/apperr"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying handle for health checks.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Transaction runs fn inside a database transaction. Any error returned by fn,
// or a panic, rolls the whole unit back.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
	if err == nil || classified(err) {
		return err
	}
	return wrap(err, "transaction")
}

func (s *Store) conn(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

func forUpdate(db *gorm.DB) *gorm.DB {
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}

// IsDuplicate reports whether err came from a unique-constraint violation.
func IsDuplicate(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

func classified(err error) bool {
	return errors.Is(err, apperr.ErrValidation) ||
		errors.Is(err, apperr.ErrNotFound) ||
		errors.Is(err, apperr.ErrConflict) ||
		errors.Is(err, apperr.ErrUnauthorized) ||
		errors.Is(err, apperr.ErrPersistence)
}

func wrap(err error, op string) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%w: %s", apperr.ErrNotFound, op)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %w", apperr.ErrConflict, pkgerrors.Wrap(err, op))
	default:
		return fmt.Errorf("%w: %w", apperr.ErrPersistence, pkgerrors.Wrap(err, op))
	}
}
