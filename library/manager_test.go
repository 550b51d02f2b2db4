package library

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"library-lms/config"
	pkgerrors "library-lms/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newManager(t *testing.T) (*LibraryManager, *fixedClock) {
	t.Helper()
	cfg := config.Default()
	cfg.DB = testDBConfig(t)
	clock := &fixedClock{now: testNow}
	mgr, err := NewLibraryManager(context.Background(), cfg, Options{Clock: clock})
	require.NoError(t, err, "mgr")
	t.Cleanup(func() { mgr.Close() })
	return mgr, clock
}

func TestGenerateSampleData(t *testing.T) {
	ctx := context.Background()
	mgr, _ := newManager(t)

	res, err := mgr.GenerateSampleData(ctx)
	require.NoError(t, err)
	require.NoError(t, res.Err())
	assert.Equal(t, ImportResult{Authors: 5, Books: 7, Members: 4, Borrowings: 5}, res)

	sum, err := mgr.Reports().Summary(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 7, sum.Books.Titles)
	assert.EqualValues(t, 22, sum.Books.Copies)
	assert.EqualValues(t, 17, sum.Books.Available)
	assert.EqualValues(t, 5, sum.Active)
	assert.EqualValues(t, 1, sum.Overdue)

	// Running it again replaces rather than duplicates.
	res, err = mgr.GenerateSampleData(ctx)
	require.NoError(t, err)
	assert.Empty(t, res.Failures)
	sum, err = mgr.Reports().Summary(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 4, sum.Members)
	assert.EqualValues(t, 5, sum.Active)
}

func TestClearAllData(t *testing.T) {
	ctx := context.Background()
	mgr, _ := newManager(t)
	_, err := mgr.GenerateSampleData(ctx)
	require.NoError(t, err)

	require.NoError(t, mgr.ClearAllData(ctx))
	sum, err := mgr.Reports().Summary(ctx)
	require.NoError(t, err)
	assert.Zero(t, sum.Books.Titles)
	assert.Zero(t, sum.Authors)
	assert.Zero(t, sum.Members)
	assert.Zero(t, sum.Active)
}

const smallCatalog = `
authors:
  - first_name: Ursula
    last_name: Le Guin
books:
  - title: A Wizard of Earthsea
    isbn: 978-0-547-77374-2
    year: 1968
    category: fantasy
    copies: 2
    author: Ursula Le Guin
  - title: Unknown Author Book
    isbn: "9780451526342"
    category: FICTION
    author: Nobody Here
members:
  - first_name: Ged
    last_name: Sparrowhawk
    email: GED@example.com
    password: archmage
borrowings:
  - member: ged@example.com
    isbn: "9780547773742"
    borrowed: -3
`

func TestImportCatalogFromFile(t *testing.T) {
	ctx := context.Background()
	mgr, _ := newManager(t)

	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(smallCatalog), 0o644))
	cat, err := LoadCatalogFile(path)
	require.NoError(t, err)

	res := mgr.ImportCatalog(ctx, cat)
	assert.Equal(t, 1, res.Authors)
	assert.Equal(t, 1, res.Books)
	assert.Equal(t, 1, res.Members)
	assert.Equal(t, 1, res.Borrowings)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, "book", res.Failures[0].Kind)
	assert.True(t, pkgerrors.IsCode(res.Failures[0].Err, pkgerrors.CodeNotFound))
	assert.Contains(t, res.Err().Error(), "Unknown Author Book")

	book, err := mgr.GetBookByISBN(ctx, "978-0-547-77374-2")
	require.NoError(t, err)
	assert.Equal(t, CategoryFantasy, book.Category)
	assert.Equal(t, 1, book.AvailableCopies)

	member, err := mgr.GetMemberByEmail(ctx, "ged@example.com")
	require.NoError(t, err)
	assert.True(t, member.HasPassword())

	loans, err := mgr.Reports().MemberHistory(ctx, member.ID)
	require.NoError(t, err)
	require.Len(t, loans, 1)
	assert.Equal(t, dateOnly(testNow).AddDate(0, 0, 11), loans[0].DueDate.UTC(), "default loan period applies")

	// Importing the same authors again reuses them.
	res = mgr.ImportCatalog(ctx, &Catalog{Authors: cat.Authors})
	assert.Zero(t, res.Authors)
	assert.Empty(t, res.Failures)
}

func TestParseCatalogRejectsUnknownKeys(t *testing.T) {
	_, err := ParseCatalog(strings.NewReader("books:\n  - title: X\n    pages: 12\n"))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	cat, err := ParseCatalog(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, cat.Books)

	_, err = LoadCatalogFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestPrettyRows(t *testing.T) {
	b := &Borrowing{
		Book:       &Book{Title: "It"},
		Member:     &Member{FirstName: "Alice", LastName: "Smith"},
		BorrowDate: dateOnly(testNow).AddDate(0, 0, -20),
		DueDate:    dateOnly(testNow).AddDate(0, 0, -6),
		Status:     StatusBorrowed,
	}
	row := PrettyBorrowing(b, testNow)
	assert.Contains(t, row, "Alice Smith")
	assert.Contains(t, row, "2026-03-04")
	assert.True(t, strings.HasSuffix(row, "OVERDUE"))

	book := &Book{Title: "1984", ISBN: "9780451524935", TotalCopies: 2, AvailableCopies: 1, Author: &Author{FirstName: "George", LastName: "Orwell"}}
	assert.Contains(t, PrettyBook(book), "George Orwell")
	assert.True(t, strings.HasSuffix(PrettyBook(book), "1/2"))
}

func TestServicesWithoutLoggerOrClock(t *testing.T) {
	ctx := context.Background()
	db := tempDB(t)

	author, err := NewAuthorService(db, nil).Create(ctx, AuthorRequest{FirstName: "Ursula", LastName: "Le Guin"})
	require.NoError(t, err)
	book, err := NewBookService(db, nil, nil).Create(ctx, CreateBookRequest{
		Title:       "A Wizard of Earthsea",
		ISBN:        "9780547773742",
		Category:    CategoryFiction,
		TotalCopies: 1,
		AuthorID:    author.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, book.AvailableCopies)

	member, err := NewMemberService(db, nil, nil).Create(ctx, MemberRequest{FirstName: "Ged", LastName: "Hawk", Email: "ged@example.com"})
	require.NoError(t, err)
	assert.False(t, member.RegistrationDate.IsZero())

	_, err = NewReportService(db, nil, config.Default().Borrowing.DailyFine).Overdue(ctx)
	require.NoError(t, err)
}
