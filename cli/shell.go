package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"library-lms/library"
)

// Shell is the interactive numbered-menu console.
type Shell struct {
	mgr *library.LibraryManager
	sc  *bufio.Scanner
	out io.Writer
	eof bool

	// readPassword reads a secret without echo. It falls back to a plain
	// line when stdin is not a terminal.
	readPassword func() (string, error)
}

func NewShell(mgr *library.LibraryManager, in io.Reader, out io.Writer) *Shell {
	s := &Shell{mgr: mgr, sc: bufio.NewScanner(in), out: out}
	s.readPassword = func() (string, error) {
		v, ok := s.line("")
		if !ok {
			return "", io.ErrUnexpectedEOF
		}
		return v, nil
	}
	return s
}

type menuItem struct {
	label string
	run   func(ctx context.Context)
}

// Run shows the main menu until the user exits, input ends or ctx is
// cancelled.
func (s *Shell) Run(ctx context.Context) error {
	fmt.Fprintln(s.out, "Welcome to the Library Management System!")
	s.menu(ctx, "Main Menu", "Exit", []menuItem{
		{"Books", s.booksMenu},
		{"Members", s.membersMenu},
		{"Borrowings", s.borrowingsMenu},
		{"Reports", s.reportsMenu},
		{"Authors", s.authorsMenu},
		{"Generate sample data", s.generateSampleData},
		{"Clear all data", s.clearAllData},
	})
	fmt.Fprintln(s.out, "Goodbye!")
	return nil
}

func (s *Shell) menu(ctx context.Context, title, exitLabel string, items []menuItem) {
	for ctx.Err() == nil && !s.eof {
		fmt.Fprintf(s.out, "\n=== %s ===\n", title)
		for i, it := range items {
			fmt.Fprintf(s.out, "%d. %s\n", i+1, it.label)
		}
		fmt.Fprintf(s.out, "0. %s\n", exitLabel)

		choice, ok := s.line("> ")
		if !ok || choice == "0" {
			return
		}
		n := 0
		if _, err := fmt.Sscanf(choice, "%d", &n); err != nil || n < 1 || n > len(items) {
			fmt.Fprintln(s.out, "Unknown option. Choose one of the numbers listed above.")
			continue
		}
		items[n-1].run(ctx)
	}
}

func (s *Shell) booksMenu(ctx context.Context) {
	s.menu(ctx, "Books", "Back", []menuItem{
		{"Add book", s.addBook},
		{"Find book by ID", s.showBook},
		{"Find book by ISBN", s.showBookByISBN},
		{"Search books", s.searchBooks},
		{"Update book", s.updateBook},
		{"Delete book", s.deleteBook},
	})
}

func (s *Shell) membersMenu(ctx context.Context) {
	s.menu(ctx, "Members", "Back", []menuItem{
		{"Register member", s.addMember},
		{"Find member by ID", s.showMember},
		{"Find member by email", s.showMemberByEmail},
		{"Search members", s.searchMembers},
		{"Update member", s.updateMember},
		{"Delete member", s.deleteMember},
		{"Set password", s.setPassword},
		{"Borrowing history", s.memberBorrowings},
	})
}

func (s *Shell) borrowingsMenu(ctx context.Context) {
	s.menu(ctx, "Borrowings", "Back", []menuItem{
		{"Borrow book", s.borrowBook},
		{"Borrow several books", s.borrowBooks},
		{"Return book", s.returnBook},
		{"Mark as lost", s.markLost},
		{"Extend due date", s.extendDueDate},
		{"Delete borrowing", s.deleteBorrowing},
		{"Show borrowing", s.showBorrowing},
		{"List borrowings", s.listBorrowings},
	})
}

func (s *Shell) reportsMenu(ctx context.Context) {
	s.menu(ctx, "Reports", "Back", []menuItem{
		{"Currently borrowed", s.reportCurrentlyBorrowed},
		{"Overdue", s.reportOverdue},
		{"Borrowed between dates", s.reportBorrowedBetween},
		{"Member history", s.reportMemberHistory},
		{"Book history", s.reportBookHistory},
		{"Book statistics", s.reportBookStats},
		{"Member statistics", s.reportMemberStats},
		{"Summary", s.reportSummary},
	})
}

func (s *Shell) authorsMenu(ctx context.Context) {
	s.menu(ctx, "Authors", "Back", []menuItem{
		{"Add author", s.addAuthor},
		{"Find author by ID", s.showAuthor},
		{"Search authors", s.searchAuthors},
		{"Update author", s.updateAuthor},
		{"Delete author", s.deleteAuthor},
	})
}

func (s *Shell) generateSampleData(ctx context.Context) {
	if !s.readYesNo("This replaces all existing data. Continue?") {
		fmt.Fprintln(s.out, "Cancelled.")
		return
	}
	res, err := s.mgr.GenerateSampleData(ctx)
	if err != nil {
		s.printErr(err)
		return
	}
	printImportResult(s.out, res)
}

func (s *Shell) clearAllData(ctx context.Context) {
	if !s.readYesNo("Delete ALL books, authors, members and borrowings?") {
		fmt.Fprintln(s.out, "Cancelled.")
		return
	}
	if err := s.mgr.ClearAllData(ctx); err != nil {
		s.printErr(err)
		return
	}
	fmt.Fprintln(s.out, "All data cleared.")
}

func printImportResult(w io.Writer, res library.ImportResult) {
	fmt.Fprintf(w, "Imported %d author(s), %d book(s), %d member(s), %d borrowing(s).\n",
		res.Authors, res.Books, res.Members, res.Borrowings)
	for _, f := range res.Failures {
		fmt.Fprintf(w, "  failed %s %q: %v\n", f.Kind, f.Name, f.Err)
	}
}

// truncate shortens s to at most max runes, marking the cut with "...".
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}

func rule(w io.Writer, n int) {
	fmt.Fprintln(w, strings.Repeat("-", n))
}
