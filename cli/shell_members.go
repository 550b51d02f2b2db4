package cli

import (
	"context"
	"fmt"
	"time"

	"library-lms/library"
)

func (s *Shell) addMember(ctx context.Context) {
	var req library.MemberRequest
	var ok bool
	if req.FirstName, ok = s.readString("First name"); !ok {
		return
	}
	if req.LastName, ok = s.readString("Last name"); !ok {
		return
	}
	if req.Email, ok = s.readString("Email"); !ok {
		return
	}
	if req.PhoneNumber, ok = s.readString("Phone (optional)"); !ok {
		return
	}
	if req.Address, ok = s.readString("Address (optional)"); !ok {
		return
	}
	if req.RegistrationDate, ok = s.readDate("Registration date", s.mgr.Today()); !ok {
		return
	}

	m, err := s.mgr.AddMember(ctx, req)
	if err != nil {
		s.printErr(err)
		return
	}
	fmt.Fprintf(s.out, "Registered member '%s' with ID %s\n", m.FullName(), m.ID)
}

func (s *Shell) showMember(ctx context.Context) {
	id, ok := s.readUUID("Member ID")
	if !ok {
		return
	}
	m, err := s.mgr.GetMember(ctx, id)
	if err != nil {
		s.printErr(err)
		return
	}
	s.printMemberDetail(m)
}

func (s *Shell) showMemberByEmail(ctx context.Context) {
	email, ok := s.readString("Email")
	if !ok {
		return
	}
	m, err := s.mgr.GetMemberByEmail(ctx, email)
	if err != nil {
		s.printErr(err)
		return
	}
	s.printMemberDetail(m)
}

func (s *Shell) printMemberDetail(m *library.Member) {
	password := "No"
	if m.HasPassword() {
		password = "Yes"
	}
	fmt.Fprintf(s.out, "ID:          %s\n", m.ID)
	fmt.Fprintf(s.out, "Name:        %s\n", m.FullName())
	fmt.Fprintf(s.out, "Email:       %s\n", m.Email)
	fmt.Fprintf(s.out, "Phone:       %s\n", m.PhoneNumber)
	fmt.Fprintf(s.out, "Address:     %s\n", m.Address)
	fmt.Fprintf(s.out, "Registered:  %s\n", m.RegistrationDate.Format(library.DateLayout))
	fmt.Fprintf(s.out, "Password:    %s\n", password)
}

func (s *Shell) searchMembers(ctx context.Context) {
	var c library.MemberCriteria
	var ok bool
	if c.FirstName, ok = s.readString("First name contains (optional)"); !ok {
		return
	}
	if c.LastName, ok = s.readString("Last name contains (optional)"); !ok {
		return
	}
	if c.Email, ok = s.readString("Email contains (optional)"); !ok {
		return
	}

	page, err := s.mgr.SearchMembers(ctx, c, library.PageRequest{Size: library.MaxPageSize})
	if err != nil {
		s.printErr(err)
		return
	}
	if len(page.Items) == 0 {
		fmt.Fprintln(s.out, "No members found.")
		return
	}
	fmt.Fprintf(s.out, "%-36s %-25s %-30s %s\n", "ID", "Name", "Email", "Registered")
	rule(s.out, 105)
	for _, m := range page.Items {
		fmt.Fprintf(s.out, "%-36s %-25s %-30s %s\n",
			m.ID, truncate(m.FullName(), 25), truncate(m.Email, 30), m.RegistrationDate.Format(library.DateLayout))
	}
	if page.HasNext() {
		fmt.Fprintf(s.out, "Showing %d of %d; narrow the search to see the rest.\n", len(page.Items), page.TotalElements)
	}
}

func (s *Shell) updateMember(ctx context.Context) {
	id, ok := s.readUUID("Member ID")
	if !ok {
		return
	}
	m, err := s.mgr.GetMember(ctx, id)
	if err != nil {
		s.printErr(err)
		return
	}

	var req library.MemberRequest
	if req.FirstName, ok = s.readOptional("First name", m.FirstName); !ok {
		return
	}
	if req.LastName, ok = s.readOptional("Last name", m.LastName); !ok {
		return
	}
	if req.Email, ok = s.readOptional("Email", m.Email); !ok {
		return
	}
	if req.PhoneNumber, ok = s.readOptional("Phone", m.PhoneNumber); !ok {
		return
	}
	if req.Address, ok = s.readOptional("Address", m.Address); !ok {
		return
	}

	updated, err := s.mgr.UpdateMember(ctx, id, req)
	if err != nil {
		s.printErr(err)
		return
	}
	fmt.Fprintf(s.out, "Updated member '%s'\n", updated.FullName())
}

func (s *Shell) deleteMember(ctx context.Context) {
	id, ok := s.readUUID("Member ID")
	if !ok {
		return
	}
	if !s.readYesNo("Delete this member and their borrowing history?") {
		fmt.Fprintln(s.out, "Cancelled.")
		return
	}
	if err := s.mgr.DeleteMember(ctx, id); err != nil {
		s.printErr(err)
		return
	}
	fmt.Fprintln(s.out, "Member deleted.")
}

func (s *Shell) setPassword(ctx context.Context) {
	id, ok := s.readUUID("Member ID")
	if !ok {
		return
	}
	m, err := s.mgr.GetMember(ctx, id)
	if err != nil {
		s.printErr(err)
		return
	}
	if m.HasPassword() && !s.authenticate(ctx, m) {
		return
	}

	fmt.Fprintf(s.out, "New password for %s (empty to remove): ", m.FullName())
	pw, err := s.readPassword()
	if err != nil {
		fmt.Fprintf(s.out, "Error reading password: %v\n", err)
		return
	}
	if err := s.mgr.SetMemberPassword(ctx, id, pw); err != nil {
		s.printErr(err)
		return
	}
	if pw == "" {
		fmt.Fprintf(s.out, "Password removed for %s\n", m.FullName())
		return
	}
	fmt.Fprintf(s.out, "Password set for %s\n", m.FullName())
}

// authenticate asks for the member's password when one is set.
func (s *Shell) authenticate(ctx context.Context, m *library.Member) bool {
	if !m.HasPassword() {
		return true
	}
	fmt.Fprintf(s.out, "Password for %s: ", m.FullName())
	pw, err := s.readPassword()
	if err != nil {
		fmt.Fprintf(s.out, "Error reading password: %v\n", err)
		return false
	}
	if _, err := s.mgr.AuthenticateMember(ctx, m.ID, pw); err != nil {
		s.printErr(err)
		return false
	}
	return true
}

func (s *Shell) memberBorrowings(ctx context.Context) {
	id, ok := s.readUUID("Member ID")
	if !ok {
		return
	}
	page, err := s.mgr.MemberBorrowings(ctx, id, library.PageRequest{Size: library.MaxPageSize})
	if err != nil {
		s.printErr(err)
		return
	}
	s.printBorrowings(page.Items, s.mgr.Today())
}

func (s *Shell) printBorrowings(items []library.Borrowing, today time.Time) {
	if len(items) == 0 {
		fmt.Fprintln(s.out, "No borrowings.")
		return
	}
	fmt.Fprintf(s.out, "%-36s %-25s %-20s %-10s  %-10s  %s\n", "ID", "Book", "Member", "Borrowed", "Due", "Status")
	rule(s.out, 118)
	for i := range items {
		fmt.Fprintln(s.out, library.PrettyBorrowing(&items[i], today))
	}
}
