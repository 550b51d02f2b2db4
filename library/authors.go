package library

import (
	"context"

	pkgerrors "library-lms/errors"
	"library-lms/logger"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AuthorService struct {
	db    *Database
	store *Store
	log   *logger.Logger
}

func NewAuthorService(db *Database, logg *logger.Logger) *AuthorService {
	if logg == nil {
		logg = logger.Nop()
	}
	return &AuthorService{db: db, store: NewStore(db.Conn()), log: logg}
}

func (s *AuthorService) Create(ctx context.Context, req AuthorRequest) (*Author, error) {
	req.normalize()
	if err := ValidateAuthor(req); err != nil {
		return nil, err
	}
	taken, err := s.store.AuthorNameTaken(ctx, req.FirstName, req.LastName, uuid.Nil)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, pkgerrors.Newf(pkgerrors.CodeConflict, "author %s %s already exists", req.FirstName, req.LastName)
	}

	author := &Author{FirstName: req.FirstName, LastName: req.LastName, Biography: req.Biography}
	if err := s.store.CreateAuthor(ctx, author); err != nil {
		return nil, err
	}
	s.log.Info(s.log.WithField(ctx, "author_id", author.ID.String()), "author created")
	return author, nil
}

func (s *AuthorService) Get(ctx context.Context, id uuid.UUID) (*Author, error) {
	return s.store.FindAuthor(ctx, id)
}

func (s *AuthorService) FindByName(ctx context.Context, first, last string) (*Author, error) {
	return s.store.FindAuthorByName(ctx, first, last)
}

func (s *AuthorService) Update(ctx context.Context, id uuid.UUID, req AuthorRequest) (*Author, error) {
	req.normalize()
	if err := ValidateAuthor(req); err != nil {
		return nil, err
	}
	author, err := s.store.FindAuthor(ctx, id)
	if err != nil {
		return nil, err
	}
	taken, err := s.store.AuthorNameTaken(ctx, req.FirstName, req.LastName, id)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, pkgerrors.Newf(pkgerrors.CodeConflict, "author %s %s already exists", req.FirstName, req.LastName)
	}

	author.FirstName, author.LastName, author.Biography = req.FirstName, req.LastName, req.Biography
	if err := s.store.SaveAuthor(ctx, author); err != nil {
		return nil, err
	}
	return s.store.FindAuthor(ctx, id)
}

// Delete removes an author that no longer owns any book.
func (s *AuthorService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.db.WithTx(ctx, func(tx *gorm.DB) error {
		st := s.store.WithTx(tx)
		author, err := st.FindAuthor(ctx, id)
		if err != nil {
			return err
		}
		n, err := st.CountBooksByAuthor(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return ruleViolation("author %s still has %d book(s) in the catalog", author.FullName(), n)
		}
		return st.DeleteAuthor(ctx, id)
	})
}

func (s *AuthorService) Search(ctx context.Context, name string, req PageRequest) (Page[Author], error) {
	return s.store.SearchAuthors(ctx, name, req)
}
