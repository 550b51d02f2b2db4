package library

import (
	"errors"
	"fmt"

	pkgerrors "library-lms/errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Store is the persistence layer for every aggregate. It is bound either to
// the shared connection or to a transaction via WithTx.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// WithTx binds the store to a transaction.
func (s *Store) WithTx(tx *gorm.DB) *Store {
	if tx == nil {
		return s
	}
	return &Store{db: tx}
}

// storageError wraps driver failures so callers see DEPENDENCY_ERROR while the
// cause stays reachable through errors.Unwrap.
func storageError(err error, action string) error {
	if err == nil {
		return nil
	}
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, action)
}

// lookupError maps a missing row onto NOT_FOUND for the named entity.
func lookupError(err error, entity string, id any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Newf(pkgerrors.CodeNotFound, "%s %v not found", entity, id)
	}
	return storageError(err, fmt.Sprintf("load %s", entity))
}

func likePattern(value string) string {
	return "%" + value + "%"
}

func notFound(entity string, id uuid.UUID) error {
	return pkgerrors.Newf(pkgerrors.CodeNotFound, "%s %s not found", entity, id)
}
