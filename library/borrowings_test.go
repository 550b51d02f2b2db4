package library

import (
	"context"
	"sync"
	"testing"
	"time"

	"library-lms/config"
	pkgerrors "library-lms/errors"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lifecycleFixture struct {
	lm     *LifecycleManager
	store  *Store
	clock  *fixedClock
	book   *Book
	member *Member
}

func newLifecycle(t *testing.T, mutate func(*config.BorrowingConfig)) *lifecycleFixture {
	t.Helper()
	cfg := config.Default().Borrowing
	if mutate != nil {
		mutate(&cfg)
	}
	db := tempDB(t)
	s := NewStore(db.Conn())
	clock := &fixedClock{now: testNow}
	author := seedAuthor(t, s, "George", "Orwell")
	return &lifecycleFixture{
		lm:     NewLifecycleManager(db, cfg, nil, nil, clock),
		store:  s,
		clock:  clock,
		book:   seedBook(t, s, author, "1984", "9780451524935", 1),
		member: seedMember(t, s, "Alice", "alice@example.com"),
	}
}

func (f *lifecycleFixture) request(bookID, memberID uuid.UUID) BorrowRequest {
	today := dateOnly(f.clock.Now())
	return BorrowRequest{BookID: bookID, MemberID: memberID, BorrowDate: today, DueDate: today.AddDate(0, 0, 14)}
}

func (f *lifecycleFixture) available(t *testing.T, bookID uuid.UUID) int {
	t.Helper()
	b, err := f.store.FindBook(context.Background(), bookID)
	require.NoError(t, err)
	return b.AvailableCopies
}

func TestBorrowReturnRestoresCopy(t *testing.T) {
	ctx := context.Background()
	f := newLifecycle(t, nil)
	other := seedMember(t, f.store, "Bob", "bob@example.com")

	b, err := f.lm.StartBorrowing(ctx, f.request(f.book.ID, f.member.ID))
	require.NoError(t, err)
	assert.Equal(t, StatusBorrowed, b.Status)
	assert.Nil(t, b.ReturnDate)
	require.NotNil(t, b.Book)
	assert.Equal(t, "1984", b.Book.Title)
	assert.Equal(t, 0, f.available(t, f.book.ID))

	_, err = f.lm.StartBorrowing(ctx, f.request(f.book.ID, other.ID))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeRuleViolation), "got %v", err)
	assert.Equal(t, 0, f.available(t, f.book.ID))

	f.clock.advance(3)
	returned, err := f.lm.ReturnBorrowing(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusReturned, returned.Status)
	require.NotNil(t, returned.ReturnDate)
	assert.Equal(t, dateOnly(f.clock.Now()), returned.ReturnDate.UTC())
	assert.Equal(t, 1, f.available(t, f.book.ID))

	_, err = f.lm.StartBorrowing(ctx, f.request(f.book.ID, other.ID))
	require.NoError(t, err)
}

func TestDuplicateActiveBorrowingRejected(t *testing.T) {
	ctx := context.Background()
	f := newLifecycle(t, nil)
	book := seedBook(t, f.store, seedAuthor(t, f.store, "Stephen", "King"), "It", "9780450411434", 3)

	_, err := f.lm.StartBorrowing(ctx, f.request(book.ID, f.member.ID))
	require.NoError(t, err)
	_, err = f.lm.StartBorrowing(ctx, f.request(book.ID, f.member.ID))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeRuleViolation))
	assert.Equal(t, 2, f.available(t, book.ID))
}

func TestStartBorrowingValidation(t *testing.T) {
	ctx := context.Background()
	f := newLifecycle(t, nil)

	req := f.request(f.book.ID, f.member.ID)
	req.DueDate = req.BorrowDate.AddDate(0, 0, -1)
	_, err := f.lm.StartBorrowing(ctx, req)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
	details, ok := pkgerrors.As(err).Details().(FieldErrors)
	require.True(t, ok)
	assert.Equal(t, "due_date", details[0].Field)

	_, err = f.lm.StartBorrowing(ctx, BorrowRequest{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.lm.StartBorrowing(ctx, f.request(uuid.New(), f.member.ID))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	_, err = f.lm.StartBorrowing(ctx, f.request(f.book.ID, uuid.New()))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	assert.Equal(t, 1, f.available(t, f.book.ID))
}

func TestMaxLoanDays(t *testing.T) {
	f := newLifecycle(t, func(c *config.BorrowingConfig) { c.MaxLoanDays = 10 })
	req := f.request(f.book.ID, f.member.ID)
	_, err := f.lm.StartBorrowing(context.Background(), req)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestMaxActivePerMember(t *testing.T) {
	ctx := context.Background()
	f := newLifecycle(t, func(c *config.BorrowingConfig) { c.MaxActivePerMember = 1 })
	second := seedBook(t, f.store, seedAuthor(t, f.store, "Stephen", "King"), "It", "9780450411434", 3)

	_, err := f.lm.StartBorrowing(ctx, f.request(f.book.ID, f.member.ID))
	require.NoError(t, err)
	_, err = f.lm.StartBorrowing(ctx, f.request(second.ID, f.member.ID))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeRuleViolation))
	assert.Equal(t, 3, f.available(t, second.ID))
}

func TestMarkLostKeepsInventory(t *testing.T) {
	ctx := context.Background()
	f := newLifecycle(t, nil)

	b, err := f.lm.StartBorrowing(ctx, f.request(f.book.ID, f.member.ID))
	require.NoError(t, err)
	lost, err := f.lm.MarkLost(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusLost, lost.Status)
	assert.Nil(t, lost.ReturnDate)
	assert.Equal(t, 0, f.available(t, f.book.ID))
}

func TestTerminalBorrowingsRejectTransitions(t *testing.T) {
	ctx := context.Background()
	f := newLifecycle(t, nil)

	b, err := f.lm.StartBorrowing(ctx, f.request(f.book.ID, f.member.ID))
	require.NoError(t, err)
	_, err = f.lm.ReturnBorrowing(ctx, b.ID)
	require.NoError(t, err)

	_, err = f.lm.ReturnBorrowing(ctx, b.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeRuleViolation))
	_, err = f.lm.MarkLost(ctx, b.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeRuleViolation))
	_, err = f.lm.ExtendDueDate(ctx, b.ID, dateOnly(testNow).AddDate(0, 0, 30))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeRuleViolation))
	assert.Equal(t, 1, f.available(t, f.book.ID), "second return must not add a copy")

	_, err = f.lm.ReturnBorrowing(ctx, uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestOverdueIsDerived(t *testing.T) {
	ctx := context.Background()
	f := newLifecycle(t, nil)

	b, err := f.lm.StartBorrowing(ctx, f.request(f.book.ID, f.member.ID))
	require.NoError(t, err)
	assert.Equal(t, StatusBorrowed, b.EffectiveStatus(f.clock.Now()))

	f.clock.advance(15)
	got, err := f.lm.GetBorrowing(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusBorrowed, got.Status, "stored status never becomes OVERDUE")
	assert.Equal(t, StatusOverdue, got.EffectiveStatus(f.clock.Now()))
	assert.Equal(t, 1, got.DaysOverdue(f.clock.Now()))

	page, err := f.lm.ListBorrowings(ctx, BorrowingCriteria{Status: StatusOverdue}, PageRequest{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.TotalElements)

	_, err = f.lm.ReturnBorrowing(ctx, b.ID)
	require.NoError(t, err)
	page, err = f.lm.ListBorrowings(ctx, BorrowingCriteria{Status: StatusOverdue}, PageRequest{})
	require.NoError(t, err)
	assert.Zero(t, page.TotalElements)
}

func TestDeleteBorrowingPolicies(t *testing.T) {
	ctx := context.Background()

	t.Run("restore", func(t *testing.T) {
		f := newLifecycle(t, nil)
		b, err := f.lm.StartBorrowing(ctx, f.request(f.book.ID, f.member.ID))
		require.NoError(t, err)
		require.NoError(t, f.lm.DeleteBorrowing(ctx, b.ID))
		assert.Equal(t, 1, f.available(t, f.book.ID))
		_, err = f.lm.GetBorrowing(ctx, b.ID)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	})

	t.Run("reject", func(t *testing.T) {
		f := newLifecycle(t, func(c *config.BorrowingConfig) { c.DeleteActivePolicy = config.DeleteActiveReject })
		b, err := f.lm.StartBorrowing(ctx, f.request(f.book.ID, f.member.ID))
		require.NoError(t, err)
		err = f.lm.DeleteBorrowing(ctx, b.ID)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeRuleViolation))
		assert.Equal(t, 0, f.available(t, f.book.ID))

		_, err = f.lm.ReturnBorrowing(ctx, b.ID)
		require.NoError(t, err)
		require.NoError(t, f.lm.DeleteBorrowing(ctx, b.ID))
		assert.Equal(t, 1, f.available(t, f.book.ID))
	})

	t.Run("lost borrowing keeps count", func(t *testing.T) {
		f := newLifecycle(t, nil)
		b, err := f.lm.StartBorrowing(ctx, f.request(f.book.ID, f.member.ID))
		require.NoError(t, err)
		_, err = f.lm.MarkLost(ctx, b.ID)
		require.NoError(t, err)
		require.NoError(t, f.lm.DeleteBorrowing(ctx, b.ID))
		assert.Equal(t, 0, f.available(t, f.book.ID))
	})
}

func TestExtendDueDate(t *testing.T) {
	ctx := context.Background()
	f := newLifecycle(t, func(c *config.BorrowingConfig) { c.MaxLoanDays = 30 })
	b, err := f.lm.StartBorrowing(ctx, f.request(f.book.ID, f.member.ID))
	require.NoError(t, err)

	_, err = f.lm.ExtendDueDate(ctx, b.ID, b.DueDate)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeRuleViolation), "same due date")
	_, err = f.lm.ExtendDueDate(ctx, b.ID, b.BorrowDate.AddDate(0, 0, 31))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeRuleViolation), "past the loan window")
	_, err = f.lm.ExtendDueDate(ctx, b.ID, time.Time{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	extended, err := f.lm.ExtendDueDate(ctx, b.ID, b.BorrowDate.AddDate(0, 0, 21))
	require.NoError(t, err)
	assert.Equal(t, dateOnly(testNow).AddDate(0, 0, 21), extended.DueDate.UTC())
	assert.Equal(t, StatusBorrowed, extended.Status)
}

func TestBorrowBooksIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	f := newLifecycle(t, nil)
	it := seedBook(t, f.store, seedAuthor(t, f.store, "Stephen", "King"), "It", "9780450411434", 2)
	other := seedMember(t, f.store, "Bob", "bob@example.com")

	_, err := f.lm.StartBorrowing(ctx, f.request(f.book.ID, other.ID))
	require.NoError(t, err)

	today := dateOnly(testNow)
	_, err = f.lm.BorrowBooks(ctx, f.member.ID, []uuid.UUID{it.ID, f.book.ID}, today, today.AddDate(0, 0, 7))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeRuleViolation), "got %v", err)
	assert.Equal(t, 2, f.available(t, it.ID), "failed batch must not hold any copy")

	_, err = f.lm.BorrowBooks(ctx, f.member.ID, []uuid.UUID{it.ID, it.ID}, today, today.AddDate(0, 0, 7))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	_, err = f.lm.BorrowBooks(ctx, f.member.ID, nil, today, today)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	third := seedBook(t, f.store, seedAuthor(t, f.store, "Agatha", "Christie"), "And Then There Were None", "9780062073488", 1)
	got, err := f.lm.BorrowBooks(ctx, f.member.ID, []uuid.UUID{it.ID, third.ID}, today, today.AddDate(0, 0, 7))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 1, f.available(t, it.ID))
	assert.Equal(t, 0, f.available(t, third.ID))
}

func TestConcurrentBorrowOfLastCopy(t *testing.T) {
	ctx := context.Background()
	f := newLifecycle(t, nil)

	const borrowers = 6
	members := make([]*Member, borrowers)
	for i := range members {
		members[i] = seedMember(t, f.store, "Reader", uuid.NewString()+"@example.com")
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		failures  []error
	)
	for _, m := range members {
		wg.Add(1)
		go func(m *Member) {
			defer wg.Done()
			_, err := f.lm.StartBorrowing(ctx, f.request(f.book.ID, m.ID))
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
				return
			}
			failures = append(failures, err)
		}(m)
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	require.Len(t, failures, borrowers-1)
	for _, err := range failures {
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeRuleViolation), "got %v", err)
	}
	assert.Equal(t, 0, f.available(t, f.book.ID))
	active, err := f.store.CountActiveByBook(ctx, f.book.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, active)
}

func TestLifecycleMetrics(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	f := newLifecycle(t, nil)
	f.lm.metrics = NewMetrics(reg)

	b, err := f.lm.StartBorrowing(ctx, f.request(f.book.ID, f.member.ID))
	require.NoError(t, err)
	_, err = f.lm.ReturnBorrowing(ctx, b.ID)
	require.NoError(t, err)
	_, err = f.lm.ReturnBorrowing(ctx, b.ID)
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.lm.metrics.transitions.WithLabelValues(opStartBorrowing)))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.lm.metrics.transitions.WithLabelValues(opReturn)))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.lm.metrics.failures.WithLabelValues(opReturn, string(pkgerrors.CodeRuleViolation))))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.IncSuccess(opReturn)
	m.IncFailure(opReturn, "")
	m.ObserveDuration(opReturn, time.Second)
	NewMetrics(nil).IncSuccess(opReturn)
}
