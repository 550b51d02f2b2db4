package cli

import (
	"context"
	"fmt"
	"strconv"

	"library-lms/library"

	"github.com/google/uuid"
)

func (s *Shell) addBook(ctx context.Context) {
	title, ok := s.readString("Title")
	if !ok {
		return
	}
	isbn, ok := s.readString("ISBN")
	if !ok {
		return
	}
	year, ok := s.readOptionalInt("Publication year")
	if !ok {
		return
	}
	category, ok := s.readCategory("")
	if !ok {
		return
	}
	copies, ok := s.readInt("Total copies", 1)
	if !ok {
		return
	}
	authorID, ok := s.readUUID("Author ID")
	if !ok {
		return
	}

	book, err := s.mgr.AddBook(ctx, library.CreateBookRequest{
		Title:           title,
		ISBN:            isbn,
		PublicationYear: year,
		Category:        category,
		TotalCopies:     copies,
		AuthorID:        authorID,
	})
	if err != nil {
		s.printErr(err)
		return
	}
	fmt.Fprintf(s.out, "Added book '%s' with ID %s\n", book.Title, book.ID)
}

func (s *Shell) showBook(ctx context.Context) {
	id, ok := s.readUUID("Book ID")
	if !ok {
		return
	}
	book, err := s.mgr.GetBook(ctx, id)
	if err != nil {
		s.printErr(err)
		return
	}
	s.printBookDetail(book)
}

func (s *Shell) showBookByISBN(ctx context.Context) {
	isbn, ok := s.readString("ISBN")
	if !ok {
		return
	}
	book, err := s.mgr.GetBookByISBN(ctx, isbn)
	if err != nil {
		s.printErr(err)
		return
	}
	s.printBookDetail(book)
}

func (s *Shell) printBookDetail(b *library.Book) {
	year := "-"
	if b.PublicationYear != nil {
		year = strconv.Itoa(*b.PublicationYear)
	}
	fmt.Fprintf(s.out, "ID:        %s\n", b.ID)
	fmt.Fprintf(s.out, "Title:     %s\n", b.Title)
	fmt.Fprintf(s.out, "Author:    %s\n", b.AuthorName())
	fmt.Fprintf(s.out, "ISBN:      %s\n", b.ISBN)
	fmt.Fprintf(s.out, "Year:      %s\n", year)
	fmt.Fprintf(s.out, "Category:  %s\n", b.Category.Label())
	fmt.Fprintf(s.out, "Copies:    %d available of %d\n", b.AvailableCopies, b.TotalCopies)
}

func (s *Shell) searchBooks(ctx context.Context) {
	var c library.BookCriteria
	var ok bool
	if c.Title, ok = s.readString("Title contains (optional)"); !ok {
		return
	}
	if c.AuthorName, ok = s.readString("Author name contains (optional)"); !ok {
		return
	}
	cat, ok := s.readString("Category (optional)")
	if !ok {
		return
	}
	if cat != "" {
		parsed, err := library.ParseBookCategory(cat)
		if err != nil {
			fmt.Fprintf(s.out, "Invalid category: %s\n", cat)
			return
		}
		c.Category = parsed
	}
	c.AvailableOnly = s.readYesNo("Only books with copies on the shelf?")

	s.pageBooks(ctx, c)
}

func (s *Shell) pageBooks(ctx context.Context, c library.BookCriteria) {
	req := library.PageRequest{Sort: []library.SortCriteria{{Field: "title", Direction: library.SortAsc}}}
	for {
		page, err := s.mgr.SearchBooks(ctx, c, req)
		if err != nil {
			s.printErr(err)
			return
		}
		if page.TotalElements == 0 {
			fmt.Fprintln(s.out, "No books found.")
			return
		}
		fmt.Fprintf(s.out, "%-36s %-30s %-22s %-13s %s\n", "ID", "Title", "Author", "ISBN", "Avail")
		rule(s.out, 112)
		for i := range page.Items {
			fmt.Fprintln(s.out, library.PrettyBook(&page.Items[i]))
		}
		fmt.Fprintf(s.out, "Page %d of %d (%d book(s))\n", page.CurrentPage+1, page.TotalPages, page.TotalElements)
		if !page.HasNext() || !s.readYesNo("Next page?") {
			return
		}
		req.Page++
	}
}

func (s *Shell) updateBook(ctx context.Context) {
	id, ok := s.readUUID("Book ID")
	if !ok {
		return
	}
	book, err := s.mgr.GetBook(ctx, id)
	if err != nil {
		s.printErr(err)
		return
	}

	req := library.UpdateBookRequest{
		PublicationYear: book.PublicationYear,
		AuthorID:        book.AuthorID,
	}
	if req.Title, ok = s.readOptional("Title", book.Title); !ok {
		return
	}
	if req.ISBN, ok = s.readOptional("ISBN", book.ISBN); !ok {
		return
	}
	if req.Category, ok = s.readCategory(book.Category); !ok {
		return
	}
	if req.TotalCopies, ok = s.readInt("Total copies", book.TotalCopies); !ok {
		return
	}
	avail, ok := s.readOptionalInt(fmt.Sprintf("Available copies [%d, empty to recompute]", book.AvailableCopies))
	if !ok {
		return
	}
	req.AvailableCopies = avail
	author, ok := s.readOptional("Author ID", book.AuthorID.String())
	if !ok {
		return
	}
	if author != book.AuthorID.String() {
		parsed, err := uuid.Parse(author)
		if err != nil {
			fmt.Fprintf(s.out, "Invalid author id: %s\n", author)
			return
		}
		req.AuthorID = parsed
	}

	updated, err := s.mgr.UpdateBook(ctx, id, req)
	if err != nil {
		s.printErr(err)
		return
	}
	fmt.Fprintf(s.out, "Updated book '%s' (%d/%d available)\n", updated.Title, updated.AvailableCopies, updated.TotalCopies)
}

func (s *Shell) deleteBook(ctx context.Context) {
	id, ok := s.readUUID("Book ID")
	if !ok {
		return
	}
	if !s.readYesNo("Delete this book and its borrowing history?") {
		fmt.Fprintln(s.out, "Cancelled.")
		return
	}
	if err := s.mgr.DeleteBook(ctx, id); err != nil {
		s.printErr(err)
		return
	}
	fmt.Fprintln(s.out, "Book deleted.")
}
