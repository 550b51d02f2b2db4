package library

import (
	"context"
	"time"

	pkgerrors "library-lms/errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BorrowingCriteria filters borrowing listings. A Status of OVERDUE selects
// active borrowings whose due date is before Today.
type BorrowingCriteria struct {
	BookID       uuid.UUID
	MemberID     uuid.UUID
	Status       BorrowingStatus
	BorrowedFrom *time.Time
	BorrowedTo   *time.Time
	DueFrom      *time.Time
	DueTo        *time.Time
	Today        time.Time
}

var borrowingSorts = sortColumns{
	"borrow_date": "borrow_date",
	"due_date":    "due_date",
	"return_date": "return_date",
	"status":      "status",
	"created_at":  "created_at",
}

var borrowingPreloads = []string{"Book", "Book.Author", "Member"}

func (s *Store) CreateBorrowing(ctx context.Context, b *Borrowing) error {
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(b).Error; err != nil {
		if pkgerrors.IsUniqueViolation(err) {
			return pkgerrors.Wrap(pkgerrors.CodeRuleViolation, err, "member already has an active borrowing of this book")
		}
		return storageError(err, "create borrowing")
	}
	return nil
}

func (s *Store) FindBorrowing(ctx context.Context, id uuid.UUID) (*Borrowing, error) {
	var b Borrowing
	q := s.db.WithContext(ctx)
	for _, p := range borrowingPreloads {
		q = q.Preload(p)
	}
	if err := q.First(&b, "id = ?", id).Error; err != nil {
		return nil, lookupError(err, "borrowing", id)
	}
	return &b, nil
}

// LockBorrowing loads the borrowing row FOR UPDATE without associations.
func (s *Store) LockBorrowing(ctx context.Context, id uuid.UUID) (*Borrowing, error) {
	var b Borrowing
	err := s.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&b, "id = ?", id).Error
	if err != nil {
		return nil, lookupError(err, "borrowing", id)
	}
	return &b, nil
}

func (s *Store) HasActiveBorrowing(ctx context.Context, bookID, memberID uuid.UUID) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&Borrowing{}).
		Where("book_id = ? AND member_id = ? AND status = ?", bookID, memberID, StatusBorrowed).
		Count(&n).Error
	if err != nil {
		return false, storageError(err, "check active borrowing")
	}
	return n > 0, nil
}

func (s *Store) CountActiveByMember(ctx context.Context, memberID uuid.UUID) (int64, error) {
	return s.countBorrowings(ctx, "member_id = ? AND status = ?", memberID, StatusBorrowed)
}

func (s *Store) CountActiveByBook(ctx context.Context, bookID uuid.UUID) (int64, error) {
	return s.countBorrowings(ctx, "book_id = ? AND status = ?", bookID, StatusBorrowed)
}

func (s *Store) countBorrowings(ctx context.Context, where string, args ...any) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&Borrowing{}).Where(where, args...).Count(&n).Error; err != nil {
		return 0, storageError(err, "count borrowings")
	}
	return n, nil
}

// TransitionBorrowing moves an active borrowing to status. It reports false
// when the row was no longer active at write time.
func (s *Store) TransitionBorrowing(ctx context.Context, id uuid.UUID, status BorrowingStatus, returnDate *time.Time) (bool, error) {
	fields := map[string]any{"status": status}
	if returnDate != nil {
		fields["return_date"] = *returnDate
	}
	res := s.db.WithContext(ctx).Model(&Borrowing{}).
		Where("id = ? AND status = ?", id, StatusBorrowed).
		Updates(fields)
	if res.Error != nil {
		return false, storageError(res.Error, "update borrowing status")
	}
	return res.RowsAffected == 1, nil
}

func (s *Store) UpdateDueDate(ctx context.Context, id uuid.UUID, due time.Time) (bool, error) {
	res := s.db.WithContext(ctx).Model(&Borrowing{}).
		Where("id = ? AND status = ?", id, StatusBorrowed).
		Update("due_date", due)
	if res.Error != nil {
		return false, storageError(res.Error, "update due date")
	}
	return res.RowsAffected == 1, nil
}

func (s *Store) DeleteBorrowing(ctx context.Context, id uuid.UUID) error {
	res := s.db.WithContext(ctx).Delete(&Borrowing{}, "id = ?", id)
	if res.Error != nil {
		return storageError(res.Error, "delete borrowing")
	}
	if res.RowsAffected == 0 {
		return notFound("borrowing", id)
	}
	return nil
}

func (s *Store) borrowingQuery(c BorrowingCriteria) *gorm.DB {
	q := s.db.Model(&Borrowing{})
	if c.BookID != uuid.Nil {
		q = q.Where("book_id = ?", c.BookID)
	}
	if c.MemberID != uuid.Nil {
		q = q.Where("member_id = ?", c.MemberID)
	}
	switch c.Status {
	case "":
	case StatusOverdue:
		q = q.Where("status = ? AND due_date < ?", StatusBorrowed, dateOnly(c.Today))
	default:
		q = q.Where("status = ?", c.Status)
	}
	if c.BorrowedFrom != nil {
		q = q.Where("borrow_date >= ?", dateOnly(*c.BorrowedFrom))
	}
	if c.BorrowedTo != nil {
		q = q.Where("borrow_date <= ?", dateOnly(*c.BorrowedTo))
	}
	if c.DueFrom != nil {
		q = q.Where("due_date >= ?", dateOnly(*c.DueFrom))
	}
	if c.DueTo != nil {
		q = q.Where("due_date <= ?", dateOnly(*c.DueTo))
	}
	return q
}

func (s *Store) SearchBorrowings(ctx context.Context, c BorrowingCriteria, req PageRequest) (Page[Borrowing], error) {
	return paginate[Borrowing](ctx, s.borrowingQuery(c), req, borrowingSorts, OrderByRecentFirst, borrowingPreloads...)
}

// Orderings accepted by ListBorrowings.
const (
	OrderByDueDate     = "due_date ASC, id ASC"
	OrderByRecentFirst = "borrow_date DESC, id ASC"
)

// ListBorrowings returns every match without paging. order is one of the
// Order constants; empty means OrderByDueDate.
func (s *Store) ListBorrowings(ctx context.Context, c BorrowingCriteria, order string) ([]Borrowing, error) {
	if order != OrderByRecentFirst {
		order = OrderByDueDate
	}
	q := s.borrowingQuery(c).WithContext(ctx)
	for _, p := range borrowingPreloads {
		q = q.Preload(p)
	}
	var out []Borrowing
	if err := q.Order(order).Find(&out).Error; err != nil {
		return nil, storageError(err, "list borrowings")
	}
	return out, nil
}

func (s *Store) CountBorrowings(ctx context.Context, c BorrowingCriteria) (int64, error) {
	var n int64
	if err := s.borrowingQuery(c).WithContext(ctx).Count(&n).Error; err != nil {
		return 0, storageError(err, "count borrowings")
	}
	return n, nil
}

// ClearAll removes every row, children first.
func (s *Store) ClearAll(ctx context.Context) error {
	db := s.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true})
	for _, model := range []any{&Borrowing{}, &Book{}, &Member{}, &Author{}} {
		if err := db.Delete(model).Error; err != nil {
			return storageError(err, "clear data")
		}
	}
	return nil
}
