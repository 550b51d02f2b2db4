package library

import (
	"context"
	"strings"

	pkgerrors "library-lms/errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BookCriteria filters book searches. Empty fields are ignored.
type BookCriteria struct {
	Title           string
	ISBN            string
	PublicationYear *int
	Category        BookCategory
	AuthorID        uuid.UUID
	AuthorName      string
	AvailableOnly   bool
}

var bookSorts = sortColumns{
	"title":            "title",
	"isbn":             "isbn",
	"publication_year": "publication_year",
	"publicationyear":  "publication_year",
	"category":         "category",
	"total_copies":     "total_copies",
	"available_copies": "available_copies",
	"created_at":       "created_at",
}

func (s *Store) CreateBook(ctx context.Context, book *Book) error {
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(book).Error; err != nil {
		if pkgerrors.IsUniqueViolation(err) {
			return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "a book with ISBN "+book.ISBN+" already exists")
		}
		return storageError(err, "create book")
	}
	return nil
}

func (s *Store) FindBook(ctx context.Context, id uuid.UUID) (*Book, error) {
	var book Book
	if err := s.db.WithContext(ctx).Preload("Author").First(&book, "id = ?", id).Error; err != nil {
		return nil, lookupError(err, "book", id)
	}
	return &book, nil
}

// LockBook loads the book row FOR UPDATE. SQLite ignores the lock clause and
// serializes writers at the database level instead.
func (s *Store) LockBook(ctx context.Context, id uuid.UUID) (*Book, error) {
	var book Book
	err := s.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&book, "id = ?", id).Error
	if err != nil {
		return nil, lookupError(err, "book", id)
	}
	return &book, nil
}

func (s *Store) FindBookByISBN(ctx context.Context, isbn string) (*Book, error) {
	var book Book
	if err := s.db.WithContext(ctx).Preload("Author").First(&book, "isbn = ?", NormalizeISBN(isbn)).Error; err != nil {
		return nil, lookupError(err, "book with ISBN", isbn)
	}
	return &book, nil
}

func (s *Store) ISBNTaken(ctx context.Context, isbn string, exceptID uuid.UUID) (bool, error) {
	var n int64
	q := s.db.WithContext(ctx).Model(&Book{}).Where("isbn = ?", isbn)
	if exceptID != uuid.Nil {
		q = q.Where("id <> ?", exceptID)
	}
	if err := q.Count(&n).Error; err != nil {
		return false, storageError(err, "check isbn")
	}
	return n > 0, nil
}

// SaveBook writes every editable column of book.
func (s *Store) SaveBook(ctx context.Context, book *Book) error {
	err := s.db.WithContext(ctx).Model(&Book{ID: book.ID}).Updates(map[string]any{
		"title":            book.Title,
		"isbn":             book.ISBN,
		"publication_year": book.PublicationYear,
		"category":         book.Category,
		"total_copies":     book.TotalCopies,
		"available_copies": book.AvailableCopies,
		"author_id":        book.AuthorID,
	}).Error
	if err != nil {
		if pkgerrors.IsUniqueViolation(err) {
			return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "a book with ISBN "+book.ISBN+" already exists")
		}
		return storageError(err, "update book")
	}
	return nil
}

func (s *Store) DeleteBook(ctx context.Context, id uuid.UUID) error {
	res := s.db.WithContext(ctx).Delete(&Book{}, "id = ?", id)
	if res.Error != nil {
		return storageError(res.Error, "delete book")
	}
	if res.RowsAffected == 0 {
		return notFound("book", id)
	}
	return nil
}

// DecrementAvailable takes one copy off the shelf. It reports false when no
// copy was available at write time.
func (s *Store) DecrementAvailable(ctx context.Context, bookID uuid.UUID) (bool, error) {
	res := s.db.WithContext(ctx).Model(&Book{}).
		Where("id = ? AND available_copies > 0", bookID).
		Update("available_copies", gorm.Expr("available_copies - 1"))
	if res.Error != nil {
		return false, storageError(res.Error, "decrement available copies")
	}
	return res.RowsAffected == 1, nil
}

// IncrementAvailable puts one copy back. It reports false when the shelf was
// already full, leaving the row untouched.
func (s *Store) IncrementAvailable(ctx context.Context, bookID uuid.UUID) (bool, error) {
	res := s.db.WithContext(ctx).Model(&Book{}).
		Where("id = ? AND available_copies < total_copies", bookID).
		Update("available_copies", gorm.Expr("available_copies + 1"))
	if res.Error != nil {
		return false, storageError(res.Error, "increment available copies")
	}
	return res.RowsAffected == 1, nil
}

func (s *Store) CountBooksByAuthor(ctx context.Context, authorID uuid.UUID) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&Book{}).Where("author_id = ?", authorID).Count(&n).Error; err != nil {
		return 0, storageError(err, "count books by author")
	}
	return n, nil
}

func (s *Store) SearchBooks(ctx context.Context, c BookCriteria, req PageRequest) (Page[Book], error) {
	q := s.db.Model(&Book{})
	if v := strings.TrimSpace(c.Title); v != "" {
		q = q.Where("LOWER(title) LIKE ?", likePattern(strings.ToLower(v)))
	}
	if v := NormalizeISBN(c.ISBN); v != "" {
		q = q.Where("isbn LIKE ?", likePattern(v))
	}
	if c.PublicationYear != nil {
		q = q.Where("publication_year = ?", *c.PublicationYear)
	}
	if c.Category != "" {
		q = q.Where("category = ?", c.Category)
	}
	if c.AuthorID != uuid.Nil {
		q = q.Where("author_id = ?", c.AuthorID)
	}
	if v := strings.TrimSpace(c.AuthorName); v != "" {
		q = q.Where("author_id IN (?)",
			s.db.Model(&Author{}).Select("id").
				Where("LOWER(first_name || ' ' || last_name) LIKE ?", likePattern(strings.ToLower(v))))
	}
	if c.AvailableOnly {
		q = q.Where("available_copies > 0")
	}
	return paginate[Book](ctx, q, req, bookSorts, "title ASC, id ASC", "Author")
}

// BookTotals sums the catalog for the summary report.
type BookTotals struct {
	Titles    int64 `json:"titles"`
	Copies    int64 `json:"copies"`
	Available int64 `json:"available"`
}

func (s *Store) BookTotals(ctx context.Context) (BookTotals, error) {
	var t BookTotals
	err := s.db.WithContext(ctx).Model(&Book{}).
		Select("COUNT(*) AS titles, COALESCE(SUM(total_copies), 0) AS copies, COALESCE(SUM(available_copies), 0) AS available").
		Scan(&t).Error
	if err != nil {
		return BookTotals{}, storageError(err, "sum books")
	}
	return t, nil
}
