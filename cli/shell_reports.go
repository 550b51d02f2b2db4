package cli

import (
	"context"
	"fmt"

	"library-lms/library"
)

// writeReport prints one of the fixed reports offered by the report command.
func (s *Shell) writeReport(ctx context.Context, kind string) error {
	switch kind {
	case "overdue":
		return s.writeOverdue(ctx)
	case "borrowed":
		return s.writeCurrentlyBorrowed(ctx)
	case "summary":
		return s.writeSummary(ctx)
	}
	return fmt.Errorf("unknown report %q", kind)
}

func (s *Shell) reportCurrentlyBorrowed(ctx context.Context) {
	if err := s.writeCurrentlyBorrowed(ctx); err != nil {
		s.printErr(err)
	}
}

func (s *Shell) writeCurrentlyBorrowed(ctx context.Context) error {
	items, err := s.mgr.Reports().CurrentlyBorrowed(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Currently borrowed: %d\n", len(items))
	s.printBorrowings(items, s.mgr.Today())
	return nil
}

func (s *Shell) reportOverdue(ctx context.Context) {
	if err := s.writeOverdue(ctx); err != nil {
		s.printErr(err)
	}
}

func (s *Shell) writeOverdue(ctx context.Context) error {
	entries, err := s.mgr.Reports().Overdue(ctx)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(s.out, "No overdue borrowings.")
		return nil
	}
	fmt.Fprintf(s.out, "%-30s %-22s %-10s %5s %8s\n", "Book", "Member", "Due", "Days", "Fine")
	rule(s.out, 80)
	for _, e := range entries {
		title, member := "", ""
		if e.Borrowing.Book != nil {
			title = e.Borrowing.Book.Title
		}
		if e.Borrowing.Member != nil {
			member = e.Borrowing.Member.FullName()
		}
		fmt.Fprintf(s.out, "%-30s %-22s %-10s %5d %8s\n",
			truncate(title, 30), truncate(member, 22), e.Borrowing.DueDate.Format(library.DateLayout),
			e.DaysOverdue, e.Fine.StringFixed(2))
	}
	return nil
}

func (s *Shell) reportBorrowedBetween(ctx context.Context) {
	start, ok := s.readDate("From", s.mgr.Today().AddDate(0, -1, 0))
	if !ok {
		return
	}
	end, ok := s.readDate("To", s.mgr.Today())
	if !ok {
		return
	}
	items, err := s.mgr.Reports().BorrowedBetween(ctx, start, end)
	if err != nil {
		s.printErr(err)
		return
	}
	fmt.Fprintf(s.out, "Borrowed between %s and %s: %d\n",
		start.Format(library.DateLayout), end.Format(library.DateLayout), len(items))
	s.printBorrowings(items, s.mgr.Today())
}

func (s *Shell) reportMemberHistory(ctx context.Context) {
	id, ok := s.readUUID("Member ID")
	if !ok {
		return
	}
	items, err := s.mgr.Reports().MemberHistory(ctx, id)
	if err != nil {
		s.printErr(err)
		return
	}
	s.printBorrowings(items, s.mgr.Today())
}

func (s *Shell) reportBookHistory(ctx context.Context) {
	id, ok := s.readUUID("Book ID")
	if !ok {
		return
	}
	items, err := s.mgr.Reports().BookHistory(ctx, id)
	if err != nil {
		s.printErr(err)
		return
	}
	s.printBorrowings(items, s.mgr.Today())
}

func (s *Shell) reportBookStats(ctx context.Context) {
	id, ok := s.readUUID("Book ID")
	if !ok {
		return
	}
	st, err := s.mgr.Reports().BookStats(ctx, id)
	if err != nil {
		s.printErr(err)
		return
	}
	s.printStats(st)
}

func (s *Shell) reportMemberStats(ctx context.Context) {
	id, ok := s.readUUID("Member ID")
	if !ok {
		return
	}
	st, err := s.mgr.Reports().MemberStats(ctx, id)
	if err != nil {
		s.printErr(err)
		return
	}
	s.printStats(st)
}

func (s *Shell) printStats(st library.LoanStats) {
	fmt.Fprintf(s.out, "Total:     %d\n", st.Total)
	fmt.Fprintf(s.out, "Active:    %d (overdue %d)\n", st.Active, st.Overdue)
	fmt.Fprintf(s.out, "Returned:  %d\n", st.Returned)
	fmt.Fprintf(s.out, "Lost:      %d\n", st.Lost)
}

func (s *Shell) reportSummary(ctx context.Context) {
	if err := s.writeSummary(ctx); err != nil {
		s.printErr(err)
	}
}

func (s *Shell) writeSummary(ctx context.Context) error {
	sum, err := s.mgr.Reports().Summary(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Library summary for %s\n", sum.Date.Format(library.DateLayout))
	fmt.Fprintf(s.out, "Titles:       %d\n", sum.Books.Titles)
	fmt.Fprintf(s.out, "Copies:       %d (%d on the shelf)\n", sum.Books.Copies, sum.Books.Available)
	fmt.Fprintf(s.out, "Authors:      %d\n", sum.Authors)
	fmt.Fprintf(s.out, "Members:      %d\n", sum.Members)
	fmt.Fprintf(s.out, "Borrowed:     %d (%d overdue)\n", sum.Active, sum.Overdue)
	fmt.Fprintf(s.out, "Fines owed:   %s\n", sum.FinesOwed)
	return nil
}
