package library

import (
	"context"

	pkgerrors "library-lms/errors"
	"library-lms/logger"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BookService struct {
	db    *Database
	store *Store
	clock Clock
	log   *logger.Logger
}

func NewBookService(db *Database, clock Clock, logg *logger.Logger) *BookService {
	if logg == nil {
		logg = logger.Nop()
	}
	if clock == nil {
		clock = realClock{}
	}
	return &BookService{db: db, store: NewStore(db.Conn()), clock: clock, log: logg}
}

// Create catalogs a new book with every copy on the shelf.
func (s *BookService) Create(ctx context.Context, req CreateBookRequest) (*Book, error) {
	req.normalize()
	if err := ValidateCreateBook(req, s.clock.Now()); err != nil {
		return nil, err
	}
	if _, err := s.store.FindAuthor(ctx, req.AuthorID); err != nil {
		return nil, err
	}
	taken, err := s.store.ISBNTaken(ctx, req.ISBN, uuid.Nil)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, pkgerrors.Newf(pkgerrors.CodeConflict, "a book with ISBN %s already exists", req.ISBN)
	}

	book := &Book{
		Title:           req.Title,
		ISBN:            req.ISBN,
		PublicationYear: req.PublicationYear,
		Category:        req.Category,
		TotalCopies:     req.TotalCopies,
		AvailableCopies: InitialAvailable(req.TotalCopies),
		AuthorID:        req.AuthorID,
	}
	if err := s.store.CreateBook(ctx, book); err != nil {
		return nil, err
	}
	s.log.Info(s.log.WithFields(ctx, map[string]any{"book_id": book.ID.String(), "isbn": book.ISBN}), "book created")
	return s.store.FindBook(ctx, book.ID)
}

func (s *BookService) Get(ctx context.Context, id uuid.UUID) (*Book, error) {
	return s.store.FindBook(ctx, id)
}

func (s *BookService) GetByISBN(ctx context.Context, isbn string) (*Book, error) {
	return s.store.FindBookByISBN(ctx, isbn)
}

// Update rewrites a book. Copy counts follow the inventory rules so that
// copies out on loan are never lost from the count.
func (s *BookService) Update(ctx context.Context, id uuid.UUID, req UpdateBookRequest) (*Book, error) {
	req.normalize()
	if err := ValidateUpdateBook(req, s.clock.Now()); err != nil {
		return nil, err
	}

	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		st := s.store.WithTx(tx)
		book, err := st.LockBook(ctx, id)
		if err != nil {
			return err
		}
		if _, err := st.FindAuthor(ctx, req.AuthorID); err != nil {
			return err
		}
		if req.ISBN != book.ISBN {
			taken, err := st.ISBNTaken(ctx, req.ISBN, id)
			if err != nil {
				return err
			}
			if taken {
				return pkgerrors.Newf(pkgerrors.CodeConflict, "a book with ISBN %s already exists", req.ISBN)
			}
		}

		available, err := ResolveCopies(book.TotalCopies, book.AvailableCopies, req.TotalCopies, req.AvailableCopies)
		if err != nil {
			return err
		}

		book.Title = req.Title
		book.ISBN = req.ISBN
		book.PublicationYear = req.PublicationYear
		book.Category = req.Category
		book.TotalCopies = req.TotalCopies
		book.AvailableCopies = available
		book.AuthorID = req.AuthorID
		return st.SaveBook(ctx, book)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info(s.log.WithField(ctx, "book_id", id.String()), "book updated")
	return s.store.FindBook(ctx, id)
}

// Delete removes a book with no active borrowings. Its borrowing history
// goes with it.
func (s *BookService) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		st := s.store.WithTx(tx)
		book, err := st.LockBook(ctx, id)
		if err != nil {
			return err
		}
		n, err := st.CountActiveByBook(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return ruleViolation("cannot delete %q: %d copy(ies) are still borrowed", book.Title, n)
		}
		return st.DeleteBook(ctx, id)
	})
	if err != nil {
		return err
	}
	s.log.Info(s.log.WithField(ctx, "book_id", id.String()), "book deleted")
	return nil
}

func (s *BookService) Search(ctx context.Context, c BookCriteria, req PageRequest) (Page[Book], error) {
	return s.store.SearchBooks(ctx, c, req)
}
