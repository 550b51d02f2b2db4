package library

import (
	"context"
	"strings"
	"time"

	"library-lms/config"
	pkgerrors "library-lms/errors"
	"library-lms/logger"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now()
}

const (
	opStartBorrowing = "start_borrowing"
	opBorrowBooks    = "borrow_books"
	opReturn         = "return_borrowing"
	opMarkLost       = "mark_lost"
	opDelete         = "delete_borrowing"
	opExtend         = "extend_due_date"
)

// LifecycleManager owns every state change of a borrowing and the matching
// copy-count update. Each public operation runs in exactly one transaction.
type LifecycleManager struct {
	db      *Database
	store   *Store
	clock   Clock
	cfg     config.BorrowingConfig
	log     *logger.Logger
	metrics *Metrics
}

func NewLifecycleManager(db *Database, cfg config.BorrowingConfig, logg *logger.Logger, metrics *Metrics, clock Clock) *LifecycleManager {
	if logg == nil {
		logg = logger.Nop()
	}
	if clock == nil {
		clock = realClock{}
	}
	return &LifecycleManager{
		db:      db,
		store:   NewStore(db.Conn()),
		clock:   clock,
		cfg:     cfg,
		log:     logg,
		metrics: metrics,
	}
}

func ruleViolation(format string, args ...any) error {
	return pkgerrors.Newf(pkgerrors.CodeRuleViolation, format, args...)
}

// StartBorrowing lends one copy of req.BookID to req.MemberID.
func (m *LifecycleManager) StartBorrowing(ctx context.Context, req BorrowRequest) (*Borrowing, error) {
	started := time.Now()
	ctx = m.log.WithFields(ctx, map[string]any{
		"operation": opStartBorrowing,
		"book_id":   req.BookID.String(),
		"member_id": req.MemberID.String(),
	})

	var created *Borrowing
	err := ValidateBorrow(req, m.cfg.MaxLoanDays)
	if err == nil {
		err = m.db.WithTx(ctx, func(tx *gorm.DB) error {
			b, err := m.startInTx(ctx, m.store.WithTx(tx), req)
			created = b
			return err
		})
	}
	m.observe(ctx, opStartBorrowing, started, err)
	if err != nil {
		return nil, err
	}

	m.log.Info(m.log.WithField(ctx, "borrowing_id", created.ID.String()), "borrowing started")
	return m.reload(ctx, created)
}

// BorrowBooks lends several books to one member. Either every book is lent
// or none is.
func (m *LifecycleManager) BorrowBooks(ctx context.Context, memberID uuid.UUID, bookIDs []uuid.UUID, borrowDate, dueDate time.Time) ([]Borrowing, error) {
	started := time.Now()
	ctx = m.log.WithFields(ctx, map[string]any{
		"operation": opBorrowBooks,
		"member_id": memberID.String(),
		"books":     len(bookIDs),
	})

	var errs FieldErrors
	if len(bookIDs) == 0 {
		errs.add("book_ids", "is required")
	}
	seen := make(map[uuid.UUID]bool, len(bookIDs))
	for _, id := range bookIDs {
		if seen[id] {
			errs.add("book_ids", "must not repeat "+id.String())
		}
		seen[id] = true
	}
	err := errs.err()

	reqs := make([]BorrowRequest, 0, len(bookIDs))
	if err == nil {
		for _, id := range bookIDs {
			req := BorrowRequest{BookID: id, MemberID: memberID, BorrowDate: borrowDate, DueDate: dueDate}
			if err = ValidateBorrow(req, m.cfg.MaxLoanDays); err != nil {
				break
			}
			reqs = append(reqs, req)
		}
	}

	var created []Borrowing
	if err == nil {
		err = m.db.WithTx(ctx, func(tx *gorm.DB) error {
			s := m.store.WithTx(tx)
			created = created[:0]
			for _, req := range reqs {
				b, err := m.startInTx(ctx, s, req)
				if err != nil {
					return err
				}
				created = append(created, *b)
			}
			return nil
		})
	}
	m.observe(ctx, opBorrowBooks, started, err)
	if err != nil {
		return nil, err
	}

	m.log.Info(ctx, "borrowings started")
	out := make([]Borrowing, 0, len(created))
	for i := range created {
		b, err := m.reload(ctx, &created[i])
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, nil
}

func (m *LifecycleManager) startInTx(ctx context.Context, s *Store, req BorrowRequest) (*Borrowing, error) {
	book, err := s.LockBook(ctx, req.BookID)
	if err != nil {
		return nil, err
	}
	if _, err := s.FindMember(ctx, req.MemberID); err != nil {
		return nil, err
	}
	if book.AvailableCopies <= 0 {
		return nil, ruleViolation("no copies of %q are available", book.Title)
	}

	active, err := s.HasActiveBorrowing(ctx, book.ID, req.MemberID)
	if err != nil {
		return nil, err
	}
	if active {
		return nil, ruleViolation("member already has %q borrowed", book.Title)
	}

	if limit := m.cfg.MaxActivePerMember; limit > 0 {
		n, err := s.CountActiveByMember(ctx, req.MemberID)
		if err != nil {
			return nil, err
		}
		if n >= int64(limit) {
			return nil, ruleViolation("member already has %d active borrowings (limit %d)", n, limit)
		}
	}

	ok, err := s.DecrementAvailable(ctx, book.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Another writer took the last copy after the row was read.
		return nil, ruleViolation("no copies of %q are available", book.Title)
	}

	b := &Borrowing{
		BookID:     book.ID,
		MemberID:   req.MemberID,
		BorrowDate: dateOnly(req.BorrowDate),
		DueDate:    dateOnly(req.DueDate),
		Status:     StatusBorrowed,
	}
	if err := s.CreateBorrowing(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// ReturnBorrowing closes an active borrowing and puts the copy back on the shelf.
func (m *LifecycleManager) ReturnBorrowing(ctx context.Context, id uuid.UUID) (*Borrowing, error) {
	started := time.Now()
	ctx = m.log.WithBorrowing(ctx, opReturn, id.String())

	var returned *Borrowing
	err := m.db.WithTx(ctx, func(tx *gorm.DB) error {
		s := m.store.WithTx(tx)
		b, err := m.lockActive(ctx, s, id, "returned")
		if err != nil {
			return err
		}

		today := dateOnly(m.clock.Now())
		ok, err := s.TransitionBorrowing(ctx, id, StatusReturned, &today)
		if err != nil {
			return err
		}
		if !ok {
			return ruleViolation("borrowing %s is no longer active", id)
		}

		restored, err := s.IncrementAvailable(ctx, b.BookID)
		if err != nil {
			return err
		}
		if !restored {
			m.log.Warn(m.log.WithField(ctx, "book_id", b.BookID.String()),
				"available copies already equal total copies; return left inventory unchanged")
		}
		returned = b
		return nil
	})
	m.observe(ctx, opReturn, started, err)
	if err != nil {
		return nil, err
	}

	m.log.Info(ctx, "borrowing returned")
	return m.reload(ctx, returned)
}

// MarkLost closes an active borrowing without returning the copy.
func (m *LifecycleManager) MarkLost(ctx context.Context, id uuid.UUID) (*Borrowing, error) {
	started := time.Now()
	ctx = m.log.WithBorrowing(ctx, opMarkLost, id.String())

	var lost *Borrowing
	err := m.db.WithTx(ctx, func(tx *gorm.DB) error {
		s := m.store.WithTx(tx)
		b, err := m.lockActive(ctx, s, id, "marked lost")
		if err != nil {
			return err
		}
		ok, err := s.TransitionBorrowing(ctx, id, StatusLost, nil)
		if err != nil {
			return err
		}
		if !ok {
			return ruleViolation("borrowing %s is no longer active", id)
		}
		lost = b
		return nil
	})
	m.observe(ctx, opMarkLost, started, err)
	if err != nil {
		return nil, err
	}

	m.log.Info(ctx, "borrowing marked lost")
	return m.reload(ctx, lost)
}

// DeleteBorrowing removes a borrowing record. An active borrowing either
// restores its copy first or is refused, depending on the configured policy.
func (m *LifecycleManager) DeleteBorrowing(ctx context.Context, id uuid.UUID) error {
	started := time.Now()
	ctx = m.log.WithBorrowing(ctx, opDelete, id.String())

	err := m.db.WithTx(ctx, func(tx *gorm.DB) error {
		s := m.store.WithTx(tx)
		b, err := s.LockBorrowing(ctx, id)
		if err != nil {
			return err
		}
		if b.IsActive() {
			if m.cfg.DeleteActivePolicy == config.DeleteActiveReject {
				return ruleViolation("borrowing %s is still active; return it or mark it lost first", id)
			}
			restored, err := s.IncrementAvailable(ctx, b.BookID)
			if err != nil {
				return err
			}
			if !restored {
				m.log.Warn(m.log.WithField(ctx, "book_id", b.BookID.String()),
					"available copies already equal total copies; delete left inventory unchanged")
			}
		}
		return s.DeleteBorrowing(ctx, id)
	})
	m.observe(ctx, opDelete, started, err)
	if err != nil {
		return err
	}

	m.log.Info(ctx, "borrowing deleted")
	return nil
}

// ExtendDueDate moves the due date of an active borrowing later.
func (m *LifecycleManager) ExtendDueDate(ctx context.Context, id uuid.UUID, newDue time.Time) (*Borrowing, error) {
	started := time.Now()
	ctx = m.log.WithBorrowing(ctx, opExtend, id.String())

	var extended *Borrowing
	var err error
	if newDue.IsZero() {
		err = FieldErrors{{Field: "due_date", Message: "is required"}}.err()
	} else {
		newDue = dateOnly(newDue)
		err = m.db.WithTx(ctx, func(tx *gorm.DB) error {
			s := m.store.WithTx(tx)
			b, err := m.lockActive(ctx, s, id, "extended")
			if err != nil {
				return err
			}
			if !newDue.After(dateOnly(b.DueDate)) {
				return ruleViolation("new due date %s must be after the current due date %s",
					newDue.Format(time.DateOnly), b.DueDate.Format(time.DateOnly))
			}
			if limit := m.cfg.MaxLoanDays; limit > 0 && newDue.Sub(dateOnly(b.BorrowDate)) > time.Duration(limit)*24*time.Hour {
				return ruleViolation("due date must be within %d days of the borrow date", limit)
			}
			ok, err := s.UpdateDueDate(ctx, id, newDue)
			if err != nil {
				return err
			}
			if !ok {
				return ruleViolation("borrowing %s is no longer active", id)
			}
			extended = b
			return nil
		})
	}
	m.observe(ctx, opExtend, started, err)
	if err != nil {
		return nil, err
	}

	m.log.Info(ctx, "due date extended")
	return m.reload(ctx, extended)
}

// GetBorrowing loads one borrowing with its book and member.
func (m *LifecycleManager) GetBorrowing(ctx context.Context, id uuid.UUID) (*Borrowing, error) {
	return m.store.FindBorrowing(ctx, id)
}

// ListBorrowings pages through borrowings matching c.
func (m *LifecycleManager) ListBorrowings(ctx context.Context, c BorrowingCriteria, req PageRequest) (Page[Borrowing], error) {
	if c.Status != "" && !c.Status.IsValid() {
		return Page[Borrowing]{}, FieldErrors{{Field: "status", Message: "must be a known status"}}.err()
	}
	if c.Today.IsZero() {
		c.Today = m.clock.Now()
	}
	return m.store.SearchBorrowings(ctx, c, req)
}

// MemberBorrowings lists every borrowing of an existing member.
func (m *LifecycleManager) MemberBorrowings(ctx context.Context, memberID uuid.UUID, req PageRequest) (Page[Borrowing], error) {
	if _, err := m.store.FindMember(ctx, memberID); err != nil {
		return Page[Borrowing]{}, err
	}
	return m.ListBorrowings(ctx, BorrowingCriteria{MemberID: memberID}, req)
}

// Today is the manager's notion of the current calendar day.
func (m *LifecycleManager) Today() time.Time {
	return dateOnly(m.clock.Now())
}

// DefaultDueDate is borrowDate plus the configured loan period.
func (m *LifecycleManager) DefaultDueDate(borrowDate time.Time) time.Time {
	return dateOnly(borrowDate).AddDate(0, 0, m.cfg.DefaultLoanDays)
}

func (m *LifecycleManager) lockActive(ctx context.Context, s *Store, id uuid.UUID, verb string) (*Borrowing, error) {
	b, err := s.LockBorrowing(ctx, id)
	if err != nil {
		return nil, err
	}
	if !b.IsActive() {
		return nil, ruleViolation("borrowing %s cannot be %s: it is already %s", id, verb, strings.ToLower(string(b.Status)))
	}
	return b, nil
}

func (m *LifecycleManager) reload(ctx context.Context, b *Borrowing) (*Borrowing, error) {
	fresh, err := m.store.FindBorrowing(ctx, b.ID)
	if err != nil {
		return nil, err
	}
	return fresh, nil
}

func (m *LifecycleManager) observe(ctx context.Context, op string, started time.Time, err error) {
	m.metrics.ObserveDuration(op, time.Since(started))
	if err == nil {
		m.metrics.IncSuccess(op)
		return
	}
	code := pkgerrors.CodeOf(err)
	m.metrics.IncFailure(op, string(code))
	switch code {
	case pkgerrors.CodeInternal, pkgerrors.CodeDependency:
		m.log.Error(ctx, "borrowing operation failed", err)
	default:
		m.log.Debug(m.log.WithField(ctx, "error", err.Error()), "borrowing operation rejected")
	}
}
