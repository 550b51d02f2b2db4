package library

import (
	"context"
	"testing"

	pkgerrors "library-lms/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func addTestBook(t *testing.T, mgr *LibraryManager, isbn string, copies int) *Book {
	t.Helper()
	ctx := context.Background()
	author, err := mgr.AddAuthor(ctx, AuthorRequest{FirstName: "Frank", LastName: "Herbert"})
	if pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
		author, err = mgr.authors.FindByName(ctx, "Frank", "Herbert")
	}
	require.NoError(t, err)
	book, err := mgr.AddBook(ctx, CreateBookRequest{
		Title:           "Dune",
		ISBN:            isbn,
		PublicationYear: intPtr(1965),
		Category:        CategoryFiction,
		TotalCopies:     copies,
		AuthorID:        author.ID,
	})
	require.NoError(t, err)
	return book
}

func updateFrom(b *Book) UpdateBookRequest {
	return UpdateBookRequest{
		Title:           b.Title,
		ISBN:            b.ISBN,
		PublicationYear: b.PublicationYear,
		Category:        b.Category,
		TotalCopies:     b.TotalCopies,
		AuthorID:        b.AuthorID,
	}
}

func TestCreateBook(t *testing.T) {
	ctx := context.Background()
	mgr, _ := newManager(t)

	book := addTestBook(t, mgr, "978-0-441-17271-9", 3)
	assert.Equal(t, "9780441172719", book.ISBN)
	assert.Equal(t, 3, book.AvailableCopies)
	assert.Equal(t, "Frank Herbert", book.AuthorName())

	_, err := mgr.AddBook(ctx, CreateBookRequest{
		Title: "Dune again", ISBN: "9780441172719", Category: CategoryFiction, TotalCopies: 1, AuthorID: book.AuthorID,
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	_, err = mgr.AddBook(ctx, CreateBookRequest{
		Title: "Orphan", ISBN: "9780451526342", Category: CategoryFiction, TotalCopies: 1, AuthorID: uuid.New(),
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = mgr.AddBook(ctx, CreateBookRequest{
		Title: "", ISBN: "123", Category: "POTTERY", TotalCopies: 0, PublicationYear: intPtr(2999), AuthorID: book.AuthorID,
	})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	fields := map[string]bool{}
	for _, fe := range pkgerrors.As(err).Details().(FieldErrors) {
		fields[fe.Field] = true
	}
	assert.Equal(t, map[string]bool{
		"title": true, "isbn": true, "category": true, "total_copies": true, "publication_year": true,
	}, fields)
}

func TestUpdateBookInventory(t *testing.T) {
	ctx := context.Background()
	mgr, _ := newManager(t)
	book := addTestBook(t, mgr, "9780441172719", 3)
	m1, err := mgr.AddMember(ctx, MemberRequest{FirstName: "Paul", LastName: "Atreides", Email: "paul@example.com"})
	require.NoError(t, err)
	m2, err := mgr.AddMember(ctx, MemberRequest{FirstName: "Chani", LastName: "Kynes", Email: "chani@example.com"})
	require.NoError(t, err)
	for _, m := range []*Member{m1, m2} {
		_, err := mgr.BorrowBook(ctx, BorrowRequest{BookID: book.ID, MemberID: m.ID, BorrowDate: testNow, DueDate: testNow.AddDate(0, 0, 7)})
		require.NoError(t, err)
	}

	req := updateFrom(book)
	req.TotalCopies = 1
	_, err = mgr.UpdateBook(ctx, book.ID, req)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeRuleViolation))
	assert.Contains(t, err.Error(), "cannot be less than currently borrowed copies (2)")

	req.TotalCopies = 5
	updated, err := mgr.UpdateBook(ctx, book.ID, req)
	require.NoError(t, err)
	assert.Equal(t, 5, updated.TotalCopies)
	assert.Equal(t, 3, updated.AvailableCopies)

	req.AvailableCopies = intPtr(4)
	_, err = mgr.UpdateBook(ctx, book.ID, req)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeRuleViolation))

	req.AvailableCopies = intPtr(2)
	updated, err = mgr.UpdateBook(ctx, book.ID, req)
	require.NoError(t, err)
	assert.Equal(t, 2, updated.AvailableCopies)
}

func TestUpdateBookISBNConflict(t *testing.T) {
	ctx := context.Background()
	mgr, _ := newManager(t)
	first := addTestBook(t, mgr, "9780441172719", 1)
	second := addTestBook(t, mgr, "9780451526342", 1)

	req := updateFrom(second)
	req.ISBN = first.ISBN
	_, err := mgr.UpdateBook(ctx, second.ID, req)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	req = updateFrom(second)
	req.Title = "Dune Messiah"
	updated, err := mgr.UpdateBook(ctx, second.ID, req)
	require.NoError(t, err)
	assert.Equal(t, "Dune Messiah", updated.Title)
}

func TestDeleteBookGuardsActiveLoans(t *testing.T) {
	ctx := context.Background()
	mgr, _ := newManager(t)
	book := addTestBook(t, mgr, "9780441172719", 1)
	member, err := mgr.AddMember(ctx, MemberRequest{FirstName: "Paul", LastName: "Atreides", Email: "paul@example.com"})
	require.NoError(t, err)
	loan, err := mgr.BorrowBook(ctx, BorrowRequest{BookID: book.ID, MemberID: member.ID, BorrowDate: testNow, DueDate: testNow})
	require.NoError(t, err)

	err = mgr.DeleteBook(ctx, book.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeRuleViolation))

	_, err = mgr.ReturnBook(ctx, loan.ID)
	require.NoError(t, err)
	require.NoError(t, mgr.DeleteBook(ctx, book.ID))

	_, err = mgr.GetBorrowing(ctx, loan.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "history goes with the book")
	assert.True(t, pkgerrors.IsCode(mgr.DeleteBook(ctx, book.ID), pkgerrors.CodeNotFound))
}

func TestSearchBooks(t *testing.T) {
	ctx := context.Background()
	mgr, _ := newManager(t)
	_, err := mgr.GenerateSampleData(ctx)
	require.NoError(t, err)

	page, err := mgr.SearchBooks(ctx, BookCriteria{AuthorName: "king"}, PageRequest{
		Sort: []SortCriteria{{Field: "title", Direction: SortDesc}},
	})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "The Shining", page.Items[0].Title)
	assert.Equal(t, "It", page.Items[1].Title)

	page, err = mgr.SearchBooks(ctx, BookCriteria{Category: CategoryFiction}, PageRequest{Size: 1})
	require.NoError(t, err)
	assert.EqualValues(t, 2, page.TotalElements)
	assert.Equal(t, 2, page.TotalPages)
	assert.True(t, page.HasNext())
	assert.Equal(t, "1984", page.Items[0].Title)

	page, err = mgr.SearchBooks(ctx, BookCriteria{ISBN: "978-0-451-52693-5"}, PageRequest{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	require.NotNil(t, page.Items[0].Author)

	_, err = mgr.SearchBooks(ctx, BookCriteria{}, PageRequest{Sort: []SortCriteria{{Field: "password"}}})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
