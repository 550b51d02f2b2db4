package library

import (
	"context"
	"testing"

	pkgerrors "library-lms/errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleManager(t *testing.T) (*LibraryManager, *fixedClock) {
	t.Helper()
	mgr, clock := newManager(t)
	res, err := mgr.GenerateSampleData(context.Background())
	require.NoError(t, err)
	require.NoError(t, res.Err())
	return mgr, clock
}

func TestOverdueReport(t *testing.T) {
	ctx := context.Background()
	mgr, clock := sampleManager(t)

	overdue, err := mgr.Reports().Overdue(ctx)
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, "Charlie", overdue[0].Borrowing.Member.FirstName)
	assert.Equal(t, 7, overdue[0].DaysOverdue)
	assert.True(t, decimal.RequireFromString("1.75").Equal(overdue[0].Fine))

	clock.advance(13)
	overdue, err = mgr.Reports().Overdue(ctx)
	require.NoError(t, err)
	require.Len(t, overdue, 3)
	assert.Equal(t, "1984", overdue[0].Borrowing.Book.Title, "oldest due date first")
	assert.Equal(t, 20, overdue[0].DaysOverdue)
	assert.Equal(t, 1, overdue[2].DaysOverdue)

	_, err = mgr.ReturnBook(ctx, overdue[0].Borrowing.ID)
	require.NoError(t, err)
	overdue, err = mgr.Reports().Overdue(ctx)
	require.NoError(t, err)
	assert.Len(t, overdue, 2)
}

func TestCurrentlyBorrowedIncludesOverdue(t *testing.T) {
	ctx := context.Background()
	mgr, _ := sampleManager(t)

	current, err := mgr.Reports().CurrentlyBorrowed(ctx)
	require.NoError(t, err)
	assert.Len(t, current, 5)
	for _, b := range current {
		assert.Equal(t, StatusBorrowed, b.Status)
	}
}

func TestBorrowedBetween(t *testing.T) {
	ctx := context.Background()
	mgr, _ := sampleManager(t)
	today := mgr.Today()

	got, err := mgr.Reports().BorrowedBetween(ctx, today.AddDate(0, 0, -5), today)
	require.NoError(t, err)
	assert.Len(t, got, 4, "range is inclusive at both ends")

	got, err = mgr.Reports().BorrowedBetween(ctx, today.AddDate(0, 0, -30), today.AddDate(0, 0, -30))
	require.NoError(t, err)
	require.Len(t, got, 1)

	_, err = mgr.Reports().BorrowedBetween(ctx, today, today.AddDate(0, 0, -1))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestHistoriesAndStats(t *testing.T) {
	ctx := context.Background()
	mgr, clock := sampleManager(t)
	alice, err := mgr.GetMemberByEmail(ctx, "alice.smith@example.com")
	require.NoError(t, err)

	history, err := mgr.Reports().MemberHistory(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "It", history[0].Book.Title, "most recent borrow first")

	_, err = mgr.ReturnBook(ctx, history[1].ID)
	require.NoError(t, err)
	clock.advance(20)

	stats, err := mgr.Reports().MemberStats(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, LoanStats{Total: 2, Active: 1, Overdue: 1, Returned: 1}, stats)

	it, err := mgr.GetBookByISBN(ctx, "9780450411434")
	require.NoError(t, err)
	bookHistory, err := mgr.Reports().BookHistory(ctx, it.ID)
	require.NoError(t, err)
	assert.Len(t, bookHistory, 1)
	bookStats, err := mgr.Reports().BookStats(ctx, it.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, bookStats.Active)

	_, err = mgr.Reports().MemberHistory(ctx, uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	_, err = mgr.Reports().BookStats(ctx, uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestSummaryFines(t *testing.T) {
	mgr, clock := sampleManager(t)
	clock.advance(1)

	sum, err := mgr.Reports().Summary(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 5, sum.Authors)
	assert.EqualValues(t, 1, sum.Overdue)
	assert.Equal(t, "2.00", sum.FinesOwed)
}

func TestFineFor(t *testing.T) {
	r := &ReportService{fine: decimal.RequireFromString("0.10")}
	assert.True(t, decimal.Zero.Equal(r.FineFor(0)))
	assert.True(t, decimal.Zero.Equal(r.FineFor(-3)))
	assert.Equal(t, "0.30", r.FineFor(3).StringFixed(2))
}
