package cli

import (
	"context"
	"fmt"

	"library-lms/library"
)

func (s *Shell) addAuthor(ctx context.Context) {
	var req library.AuthorRequest
	var ok bool
	if req.FirstName, ok = s.readString("First name"); !ok {
		return
	}
	if req.LastName, ok = s.readString("Last name"); !ok {
		return
	}
	if req.Biography, ok = s.readString("Biography (optional)"); !ok {
		return
	}
	a, err := s.mgr.AddAuthor(ctx, req)
	if err != nil {
		s.printErr(err)
		return
	}
	fmt.Fprintf(s.out, "Added author '%s' with ID %s\n", a.FullName(), a.ID)
}

func (s *Shell) showAuthor(ctx context.Context) {
	id, ok := s.readUUID("Author ID")
	if !ok {
		return
	}
	a, err := s.mgr.GetAuthor(ctx, id)
	if err != nil {
		s.printErr(err)
		return
	}
	fmt.Fprintf(s.out, "ID:    %s\nName:  %s\n", a.ID, a.FullName())
	if a.Biography != "" {
		fmt.Fprintf(s.out, "Bio:   %s\n", a.Biography)
	}

	page, err := s.mgr.SearchBooks(ctx, library.BookCriteria{AuthorID: a.ID}, library.PageRequest{Size: library.MaxPageSize})
	if err != nil {
		s.printErr(err)
		return
	}
	fmt.Fprintf(s.out, "Books: %d\n", page.TotalElements)
	for _, b := range page.Items {
		fmt.Fprintf(s.out, "  - %s (%s)\n", b.Title, b.ISBN)
	}
}

func (s *Shell) searchAuthors(ctx context.Context) {
	name, ok := s.readString("Name contains (optional)")
	if !ok {
		return
	}
	page, err := s.mgr.SearchAuthors(ctx, name, library.PageRequest{Size: library.MaxPageSize})
	if err != nil {
		s.printErr(err)
		return
	}
	if len(page.Items) == 0 {
		fmt.Fprintln(s.out, "No authors found.")
		return
	}
	fmt.Fprintf(s.out, "%-36s %s\n", "ID", "Name")
	rule(s.out, 70)
	for _, a := range page.Items {
		fmt.Fprintf(s.out, "%-36s %s\n", a.ID, a.FullName())
	}
}

func (s *Shell) updateAuthor(ctx context.Context) {
	id, ok := s.readUUID("Author ID")
	if !ok {
		return
	}
	a, err := s.mgr.GetAuthor(ctx, id)
	if err != nil {
		s.printErr(err)
		return
	}
	var req library.AuthorRequest
	if req.FirstName, ok = s.readOptional("First name", a.FirstName); !ok {
		return
	}
	if req.LastName, ok = s.readOptional("Last name", a.LastName); !ok {
		return
	}
	if req.Biography, ok = s.readOptional("Biography", truncate(a.Biography, 40)); !ok {
		return
	}
	if req.Biography == truncate(a.Biography, 40) {
		req.Biography = a.Biography
	}
	updated, err := s.mgr.UpdateAuthor(ctx, id, req)
	if err != nil {
		s.printErr(err)
		return
	}
	fmt.Fprintf(s.out, "Updated author '%s'\n", updated.FullName())
}

func (s *Shell) deleteAuthor(ctx context.Context) {
	id, ok := s.readUUID("Author ID")
	if !ok {
		return
	}
	if !s.readYesNo("Delete this author?") {
		fmt.Fprintln(s.out, "Cancelled.")
		return
	}
	if err := s.mgr.DeleteAuthor(ctx, id); err != nil {
		s.printErr(err)
		return
	}
	fmt.Fprintln(s.out, "Author deleted.")
}
