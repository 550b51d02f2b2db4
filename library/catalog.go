package library

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	pkgerrors "library-lms/errors"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

//go:embed catalog/sample.yaml
var sampleCatalog []byte

// Catalog is the YAML import format. Books name their author by full name,
// borrowings name the member by email and the book by ISBN.
type Catalog struct {
	Authors    []CatalogAuthor    `yaml:"authors"`
	Books      []CatalogBook      `yaml:"books"`
	Members    []CatalogMember    `yaml:"members"`
	Borrowings []CatalogBorrowing `yaml:"borrowings"`
}

type CatalogAuthor struct {
	FirstName string `yaml:"first_name"`
	LastName  string `yaml:"last_name"`
	Biography string `yaml:"biography,omitempty"`
}

type CatalogBook struct {
	Title    string `yaml:"title"`
	ISBN     string `yaml:"isbn"`
	Year     *int   `yaml:"year,omitempty"`
	Category string `yaml:"category"`
	Copies   int    `yaml:"copies"`
	Author   string `yaml:"author"`
}

type CatalogMember struct {
	FirstName string `yaml:"first_name"`
	LastName  string `yaml:"last_name"`
	Email     string `yaml:"email"`
	Phone     string `yaml:"phone,omitempty"`
	Address   string `yaml:"address,omitempty"`
	Password  string `yaml:"password,omitempty"`
}

// CatalogBorrowing dates are day offsets from today. A missing Due uses
// the default loan period.
type CatalogBorrowing struct {
	Member   string `yaml:"member"`
	ISBN     string `yaml:"isbn"`
	Borrowed int    `yaml:"borrowed"`
	Due      *int   `yaml:"due,omitempty"`
}

// ParseCatalog decodes a catalog, rejecting unknown keys.
func ParseCatalog(r io.Reader) (*Catalog, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var cat Catalog
	if err := dec.Decode(&cat); err != nil {
		if err == io.EOF {
			return &cat, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "parse catalog")
	}
	return &cat, nil
}

func LoadCatalogFile(path string) (*Catalog, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "open catalog "+path)
	}
	defer f.Close()
	return ParseCatalog(f)
}

// SampleCatalog is the demo data set shipped with the binary.
func SampleCatalog() (*Catalog, error) {
	return ParseCatalog(bytes.NewReader(sampleCatalog))
}

// ImportFailure is one catalog entry that could not be stored.
type ImportFailure struct {
	Kind string
	Name string
	Err  error
}

// ImportResult counts what an import created. Entries fail independently.
type ImportResult struct {
	Authors    int
	Books      int
	Members    int
	Borrowings int
	Failures   []ImportFailure
}

func (r *ImportResult) fail(kind, name string, err error) {
	r.Failures = append(r.Failures, ImportFailure{Kind: kind, Name: name, Err: err})
}

// Err combines every failure, or nil when the import was clean.
func (r ImportResult) Err() error {
	var err error
	for _, f := range r.Failures {
		err = multierr.Append(err, fmt.Errorf("%s %s: %w", f.Kind, f.Name, f.Err))
	}
	return err
}

// ImportCatalog stores every entry of cat. Authors that already exist are
// reused; other duplicates are reported as failures. Borrowings go through
// the lifecycle so copy counts stay consistent.
func (lm *LibraryManager) ImportCatalog(ctx context.Context, cat *Catalog) ImportResult {
	var res ImportResult
	authorIDs := make(map[string]*Author)

	for _, a := range cat.Authors {
		name := strings.TrimSpace(a.FirstName + " " + a.LastName)
		author, err := lm.authors.Create(ctx, AuthorRequest{FirstName: a.FirstName, LastName: a.LastName, Biography: a.Biography})
		if pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
			author, err = lm.authors.FindByName(ctx, a.FirstName, a.LastName)
		} else if err == nil {
			res.Authors++
		}
		if err != nil {
			res.fail("author", name, err)
			continue
		}
		authorIDs[strings.ToLower(author.FullName())] = author
	}

	for _, b := range cat.Books {
		if err := lm.importBook(ctx, b, authorIDs); err != nil {
			res.fail("book", b.Title, err)
			continue
		}
		res.Books++
	}

	for _, m := range cat.Members {
		if err := lm.importMember(ctx, m); err != nil {
			res.fail("member", m.Email, err)
			continue
		}
		res.Members++
	}

	today := lm.lifecycle.Today()
	for _, br := range cat.Borrowings {
		if err := lm.importBorrowing(ctx, br, today); err != nil {
			res.fail("borrowing", br.Member+"/"+br.ISBN, err)
			continue
		}
		res.Borrowings++
	}

	lm.log.Info(lm.log.WithFields(ctx, map[string]any{
		"authors":    res.Authors,
		"books":      res.Books,
		"members":    res.Members,
		"borrowings": res.Borrowings,
		"failures":   len(res.Failures),
	}), "catalog imported")
	return res
}

func (lm *LibraryManager) importBook(ctx context.Context, b CatalogBook, known map[string]*Author) error {
	author, ok := known[strings.ToLower(strings.TrimSpace(b.Author))]
	if !ok {
		first, last := splitName(b.Author)
		var err error
		if author, err = lm.authors.FindByName(ctx, first, last); err != nil {
			return err
		}
	}
	category, err := ParseBookCategory(b.Category)
	if err != nil {
		return FieldErrors{{Field: "category", Message: "must be a known category"}}.err()
	}
	copies := b.Copies
	if copies == 0 {
		copies = 1
	}
	_, err = lm.books.Create(ctx, CreateBookRequest{
		Title:           b.Title,
		ISBN:            b.ISBN,
		PublicationYear: b.Year,
		Category:        category,
		TotalCopies:     copies,
		AuthorID:        author.ID,
	})
	return err
}

func (lm *LibraryManager) importMember(ctx context.Context, m CatalogMember) error {
	member, err := lm.members.Create(ctx, MemberRequest{
		FirstName:   m.FirstName,
		LastName:    m.LastName,
		Email:       m.Email,
		PhoneNumber: m.Phone,
		Address:     m.Address,
	})
	if err != nil {
		return err
	}
	if m.Password == "" {
		return nil
	}
	return lm.members.SetPassword(ctx, member.ID, m.Password)
}

func (lm *LibraryManager) importBorrowing(ctx context.Context, br CatalogBorrowing, today time.Time) error {
	member, err := lm.members.GetByEmail(ctx, br.Member)
	if err != nil {
		return err
	}
	book, err := lm.books.GetByISBN(ctx, NormalizeISBN(br.ISBN))
	if err != nil {
		return err
	}
	borrowDate := today.AddDate(0, 0, br.Borrowed)
	dueDate := lm.lifecycle.DefaultDueDate(borrowDate)
	if br.Due != nil {
		dueDate = today.AddDate(0, 0, *br.Due)
	}
	_, err = lm.lifecycle.StartBorrowing(ctx, BorrowRequest{
		BookID:     book.ID,
		MemberID:   member.ID,
		BorrowDate: borrowDate,
		DueDate:    dueDate,
	})
	return err
}

// splitName treats the last word as the last name.
func splitName(full string) (string, string) {
	full = strings.TrimSpace(full)
	i := strings.LastIndex(full, " ")
	if i < 0 {
		return "", full
	}
	return strings.TrimSpace(full[:i]), full[i+1:]
}
