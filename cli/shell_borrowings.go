package cli

import (
	"context"
	"fmt"
	"strings"

	"library-lms/library"

	"github.com/google/uuid"
)

func (s *Shell) borrowBook(ctx context.Context) {
	bookID, ok := s.readUUID("Book ID")
	if !ok {
		return
	}
	member, ok := s.memberForLoan(ctx)
	if !ok {
		return
	}
	today := s.mgr.Today()
	borrowDate, ok := s.readDate("Borrow date", today)
	if !ok {
		return
	}
	due, ok := s.readDate("Due date", s.mgr.DefaultDueDate(borrowDate))
	if !ok {
		return
	}

	b, err := s.mgr.BorrowBook(ctx, library.BorrowRequest{
		BookID:     bookID,
		MemberID:   member.ID,
		BorrowDate: borrowDate,
		DueDate:    due,
	})
	if err != nil {
		s.printErr(err)
		return
	}
	fmt.Fprintf(s.out, "Book '%s' borrowed by %s, due %s (borrowing %s)\n",
		b.Book.Title, member.FullName(), b.DueDate.Format(library.DateLayout), b.ID)
}

func (s *Shell) borrowBooks(ctx context.Context) {
	member, ok := s.memberForLoan(ctx)
	if !ok {
		return
	}
	raw, ok := s.readString("Book IDs (comma separated)")
	if !ok {
		return
	}
	var ids []uuid.UUID
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := uuid.Parse(part)
		if err != nil {
			fmt.Fprintf(s.out, "Invalid book id: %s\n", part)
			return
		}
		ids = append(ids, id)
	}
	today := s.mgr.Today()
	due, ok := s.readDate("Due date", s.mgr.DefaultDueDate(today))
	if !ok {
		return
	}

	loans, err := s.mgr.BorrowBooks(ctx, member.ID, ids, today, due)
	if err != nil {
		s.printErr(err)
		return
	}
	fmt.Fprintf(s.out, "%d book(s) borrowed by %s, due %s\n", len(loans), member.FullName(), due.Format(library.DateLayout))
}

// memberForLoan reads a member id and checks the member's password.
func (s *Shell) memberForLoan(ctx context.Context) (*library.Member, bool) {
	id, ok := s.readUUID("Member ID")
	if !ok {
		return nil, false
	}
	m, err := s.mgr.GetMember(ctx, id)
	if err != nil {
		s.printErr(err)
		return nil, false
	}
	return m, s.authenticate(ctx, m)
}

// borrowingForMember loads a borrowing and authenticates its member.
func (s *Shell) borrowingForMember(ctx context.Context) (*library.Borrowing, bool) {
	id, ok := s.readUUID("Borrowing ID")
	if !ok {
		return nil, false
	}
	b, err := s.mgr.GetBorrowing(ctx, id)
	if err != nil {
		s.printErr(err)
		return nil, false
	}
	if b.Member != nil && !s.authenticate(ctx, b.Member) {
		return nil, false
	}
	return b, true
}

func (s *Shell) returnBook(ctx context.Context) {
	b, ok := s.borrowingForMember(ctx)
	if !ok {
		return
	}
	today := s.mgr.Today()
	overdue := b.DaysOverdue(today)

	returned, err := s.mgr.ReturnBook(ctx, b.ID)
	if err != nil {
		s.printErr(err)
		return
	}
	fmt.Fprintf(s.out, "Book '%s' returned on %s\n", returned.Book.Title, returned.ReturnDate.Format(library.DateLayout))
	if overdue > 0 {
		fine := s.mgr.Reports().FineFor(overdue)
		fmt.Fprintf(s.out, "Returned %d day(s) late; fine due: %s\n", overdue, fine.StringFixed(2))
	}
}

func (s *Shell) markLost(ctx context.Context) {
	b, ok := s.borrowingForMember(ctx)
	if !ok {
		return
	}
	if !s.readYesNo("Mark this copy as lost?") {
		fmt.Fprintln(s.out, "Cancelled.")
		return
	}
	lost, err := s.mgr.MarkLost(ctx, b.ID)
	if err != nil {
		s.printErr(err)
		return
	}
	fmt.Fprintf(s.out, "Borrowing %s marked as %s\n", lost.ID, lost.Status)
}

func (s *Shell) extendDueDate(ctx context.Context) {
	id, ok := s.readUUID("Borrowing ID")
	if !ok {
		return
	}
	b, err := s.mgr.GetBorrowing(ctx, id)
	if err != nil {
		s.printErr(err)
		return
	}
	due, ok := s.readDate("New due date", b.DueDate.AddDate(0, 0, 7))
	if !ok {
		return
	}
	extended, err := s.mgr.ExtendDueDate(ctx, id, due)
	if err != nil {
		s.printErr(err)
		return
	}
	fmt.Fprintf(s.out, "Due date moved to %s\n", extended.DueDate.Format(library.DateLayout))
}

func (s *Shell) deleteBorrowing(ctx context.Context) {
	id, ok := s.readUUID("Borrowing ID")
	if !ok {
		return
	}
	if !s.readYesNo("Delete this borrowing record?") {
		fmt.Fprintln(s.out, "Cancelled.")
		return
	}
	if err := s.mgr.DeleteBorrowing(ctx, id); err != nil {
		s.printErr(err)
		return
	}
	fmt.Fprintln(s.out, "Borrowing deleted.")
}

func (s *Shell) showBorrowing(ctx context.Context) {
	id, ok := s.readUUID("Borrowing ID")
	if !ok {
		return
	}
	b, err := s.mgr.GetBorrowing(ctx, id)
	if err != nil {
		s.printErr(err)
		return
	}
	today := s.mgr.Today()
	fmt.Fprintf(s.out, "ID:        %s\n", b.ID)
	if b.Book != nil {
		fmt.Fprintf(s.out, "Book:      %s (%s)\n", b.Book.Title, b.Book.ISBN)
	}
	if b.Member != nil {
		fmt.Fprintf(s.out, "Member:    %s <%s>\n", b.Member.FullName(), b.Member.Email)
	}
	fmt.Fprintf(s.out, "Borrowed:  %s\n", b.BorrowDate.Format(library.DateLayout))
	fmt.Fprintf(s.out, "Due:       %s\n", b.DueDate.Format(library.DateLayout))
	if b.ReturnDate != nil {
		fmt.Fprintf(s.out, "Returned:  %s\n", b.ReturnDate.Format(library.DateLayout))
	}
	fmt.Fprintf(s.out, "Status:    %s\n", b.EffectiveStatus(today))
	if days := b.DaysOverdue(today); days > 0 {
		fmt.Fprintf(s.out, "Overdue:   %d day(s), fine %s\n", days, s.mgr.Reports().FineFor(days).StringFixed(2))
	}
}

func (s *Shell) listBorrowings(ctx context.Context) {
	raw, ok := s.readString("Status (BORROWED, OVERDUE, RETURNED, LOST or empty for all)")
	if !ok {
		return
	}
	today := s.mgr.Today()
	c := library.BorrowingCriteria{Today: today}
	if raw != "" {
		status, err := library.ParseBorrowingStatus(raw)
		if err != nil {
			fmt.Fprintf(s.out, "Invalid status: %s\n", raw)
			return
		}
		c.Status = status
	}

	req := library.PageRequest{}
	for {
		page, err := s.mgr.ListBorrowings(ctx, c, req)
		if err != nil {
			s.printErr(err)
			return
		}
		s.printBorrowings(page.Items, today)
		if page.TotalElements > 0 {
			fmt.Fprintf(s.out, "Page %d of %d (%d borrowing(s))\n", page.CurrentPage+1, page.TotalPages, page.TotalElements)
		}
		if !page.HasNext() || !s.readYesNo("Next page?") {
			return
		}
		req.Page++
	}
}
