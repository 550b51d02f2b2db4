package library

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OverdueEntry is one overdue borrowing as of the report day.
type OverdueEntry struct {
	Borrowing   Borrowing       `json:"borrowing"`
	DaysOverdue int             `json:"days_overdue"`
	Fine        decimal.Decimal `json:"fine"`
}

// LoanStats counts the borrowings of one book or one member.
type LoanStats struct {
	Total    int64 `json:"total"`
	Active   int64 `json:"active"`
	Overdue  int64 `json:"overdue"`
	Returned int64 `json:"returned"`
	Lost     int64 `json:"lost"`
}

type Summary struct {
	Date      time.Time  `json:"date"`
	Books     BookTotals `json:"books"`
	Authors   int64      `json:"authors"`
	Members   int64      `json:"members"`
	Active    int64      `json:"active_borrowings"`
	Overdue   int64      `json:"overdue_borrowings"`
	FinesOwed string     `json:"fines_owed"`
}

// ReportService answers read-only questions about loans. Nothing here
// writes.
type ReportService struct {
	store *Store
	clock Clock
	fine  decimal.Decimal
}

func NewReportService(db *Database, clock Clock, dailyFine decimal.Decimal) *ReportService {
	if clock == nil {
		clock = realClock{}
	}
	return &ReportService{store: NewStore(db.Conn()), clock: clock, fine: dailyFine}
}

func (r *ReportService) today() time.Time {
	return dateOnly(r.clock.Now())
}

// CurrentlyBorrowed lists every active borrowing, overdue ones included.
func (r *ReportService) CurrentlyBorrowed(ctx context.Context) ([]Borrowing, error) {
	return r.store.ListBorrowings(ctx, BorrowingCriteria{Status: StatusBorrowed}, OrderByDueDate)
}

// Overdue lists active borrowings whose due date is before today, with the
// fine accrued so far.
func (r *ReportService) Overdue(ctx context.Context) ([]OverdueEntry, error) {
	today := r.today()
	rows, err := r.store.ListBorrowings(ctx, BorrowingCriteria{Status: StatusOverdue, Today: today}, OrderByDueDate)
	if err != nil {
		return nil, err
	}
	out := make([]OverdueEntry, 0, len(rows))
	for _, b := range rows {
		days := b.DaysOverdue(today)
		out = append(out, OverdueEntry{
			Borrowing:   b,
			DaysOverdue: days,
			Fine:        r.FineFor(days),
		})
	}
	return out, nil
}

func (r *ReportService) FineFor(daysOverdue int) decimal.Decimal {
	if daysOverdue <= 0 {
		return decimal.Zero
	}
	return r.fine.Mul(decimal.NewFromInt(int64(daysOverdue)))
}

// BorrowedBetween lists borrowings whose borrow date falls in [start, end].
func (r *ReportService) BorrowedBetween(ctx context.Context, start, end time.Time) ([]Borrowing, error) {
	if err := ValidateDateRange(start, end); err != nil {
		return nil, err
	}
	from, to := dateOnly(start), dateOnly(end)
	return r.store.ListBorrowings(ctx, BorrowingCriteria{BorrowedFrom: &from, BorrowedTo: &to}, OrderByRecentFirst)
}

func (r *ReportService) MemberHistory(ctx context.Context, memberID uuid.UUID) ([]Borrowing, error) {
	if _, err := r.store.FindMember(ctx, memberID); err != nil {
		return nil, err
	}
	return r.store.ListBorrowings(ctx, BorrowingCriteria{MemberID: memberID}, OrderByRecentFirst)
}

func (r *ReportService) BookHistory(ctx context.Context, bookID uuid.UUID) ([]Borrowing, error) {
	if _, err := r.store.FindBook(ctx, bookID); err != nil {
		return nil, err
	}
	return r.store.ListBorrowings(ctx, BorrowingCriteria{BookID: bookID}, OrderByRecentFirst)
}

func (r *ReportService) BookStats(ctx context.Context, bookID uuid.UUID) (LoanStats, error) {
	if _, err := r.store.FindBook(ctx, bookID); err != nil {
		return LoanStats{}, err
	}
	return r.stats(ctx, BorrowingCriteria{BookID: bookID})
}

func (r *ReportService) MemberStats(ctx context.Context, memberID uuid.UUID) (LoanStats, error) {
	if _, err := r.store.FindMember(ctx, memberID); err != nil {
		return LoanStats{}, err
	}
	return r.stats(ctx, BorrowingCriteria{MemberID: memberID})
}

func (r *ReportService) stats(ctx context.Context, base BorrowingCriteria) (LoanStats, error) {
	base.Today = r.today()
	var st LoanStats
	counts := []struct {
		status BorrowingStatus
		dst    *int64
	}{
		{"", &st.Total},
		{StatusBorrowed, &st.Active},
		{StatusOverdue, &st.Overdue},
		{StatusReturned, &st.Returned},
		{StatusLost, &st.Lost},
	}
	for _, c := range counts {
		crit := base
		crit.Status = c.status
		n, err := r.store.CountBorrowings(ctx, crit)
		if err != nil {
			return LoanStats{}, err
		}
		*c.dst = n
	}
	return st, nil
}

// Summary is the dashboard view of the whole library.
func (r *ReportService) Summary(ctx context.Context) (Summary, error) {
	today := r.today()
	sum := Summary{Date: today}

	var err error
	if sum.Books, err = r.store.BookTotals(ctx); err != nil {
		return Summary{}, err
	}
	if sum.Authors, err = r.store.CountAuthors(ctx); err != nil {
		return Summary{}, err
	}
	if sum.Members, err = r.store.CountMembers(ctx); err != nil {
		return Summary{}, err
	}
	if sum.Active, err = r.store.CountBorrowings(ctx, BorrowingCriteria{Status: StatusBorrowed}); err != nil {
		return Summary{}, err
	}

	overdue, err := r.Overdue(ctx)
	if err != nil {
		return Summary{}, err
	}
	owed := decimal.Zero
	for _, e := range overdue {
		owed = owed.Add(e.Fine)
	}
	sum.Overdue = int64(len(overdue))
	sum.FinesOwed = owed.StringFixed(2)
	return sum, nil
}
