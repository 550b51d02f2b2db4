package library

import (
	"context"
	"fmt"
	"time"

	"library-lms/config"
	"library-lms/logger"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

// Options carries the optional collaborators of a LibraryManager.
type Options struct {
	Logger     *logger.Logger
	Registerer prometheus.Registerer
	Clock      Clock
}

// LibraryManager is a thin façade over the services, keeping CLI and HTTP
// code simple.
type LibraryManager struct {
	db        *Database
	store     *Store
	authors   *AuthorService
	books     *BookService
	members   *MemberService
	lifecycle *LifecycleManager
	reports   *ReportService
	log       *logger.Logger
}

// NewLibraryManager opens the configured database, migrating it when
// auto-migrate is on, and wires the services.
func NewLibraryManager(ctx context.Context, cfg *config.Config, opts Options) (*LibraryManager, error) {
	logg := opts.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	clock := opts.Clock
	if clock == nil {
		clock = realClock{}
	}
	db, err := NewDatabase(ctx, cfg.DB, logg)
	if err != nil {
		return nil, err
	}
	return &LibraryManager{
		db:        db,
		store:     NewStore(db.Conn()),
		authors:   NewAuthorService(db, logg),
		books:     NewBookService(db, clock, logg),
		members:   NewMemberService(db, clock, logg),
		lifecycle: NewLifecycleManager(db, cfg.Borrowing, logg, NewMetrics(opts.Registerer), clock),
		reports:   NewReportService(db, clock, cfg.Borrowing.DailyFine),
		log:       logg,
	}, nil
}

// Close closes the underlying database.
func (lm *LibraryManager) Close() error { return lm.db.Close() }

func (lm *LibraryManager) Ping(ctx context.Context) error { return lm.db.Ping(ctx) }

func (lm *LibraryManager) Migrate(ctx context.Context, command string, args ...string) error {
	return lm.db.Migrate(ctx, command, args...)
}

func (lm *LibraryManager) SchemaVersion(ctx context.Context) (int64, error) {
	return lm.db.SchemaVersion(ctx)
}

// Today is the current calendar day as the services see it.
func (lm *LibraryManager) Today() time.Time { return lm.lifecycle.Today() }

// ------------------ Author helpers ------------------

func (lm *LibraryManager) AddAuthor(ctx context.Context, req AuthorRequest) (*Author, error) {
	return lm.authors.Create(ctx, req)
}

func (lm *LibraryManager) GetAuthor(ctx context.Context, id uuid.UUID) (*Author, error) {
	return lm.authors.Get(ctx, id)
}

func (lm *LibraryManager) UpdateAuthor(ctx context.Context, id uuid.UUID, req AuthorRequest) (*Author, error) {
	return lm.authors.Update(ctx, id, req)
}

func (lm *LibraryManager) DeleteAuthor(ctx context.Context, id uuid.UUID) error {
	return lm.authors.Delete(ctx, id)
}

func (lm *LibraryManager) SearchAuthors(ctx context.Context, name string, req PageRequest) (Page[Author], error) {
	return lm.authors.Search(ctx, name, req)
}

// ------------------ Book helpers ------------------

func (lm *LibraryManager) AddBook(ctx context.Context, req CreateBookRequest) (*Book, error) {
	return lm.books.Create(ctx, req)
}

func (lm *LibraryManager) GetBook(ctx context.Context, id uuid.UUID) (*Book, error) {
	return lm.books.Get(ctx, id)
}

func (lm *LibraryManager) GetBookByISBN(ctx context.Context, isbn string) (*Book, error) {
	return lm.books.GetByISBN(ctx, isbn)
}

func (lm *LibraryManager) UpdateBook(ctx context.Context, id uuid.UUID, req UpdateBookRequest) (*Book, error) {
	return lm.books.Update(ctx, id, req)
}

func (lm *LibraryManager) DeleteBook(ctx context.Context, id uuid.UUID) error {
	return lm.books.Delete(ctx, id)
}

func (lm *LibraryManager) SearchBooks(ctx context.Context, c BookCriteria, req PageRequest) (Page[Book], error) {
	return lm.books.Search(ctx, c, req)
}

// ------------------ Member helpers ------------------

func (lm *LibraryManager) AddMember(ctx context.Context, req MemberRequest) (*Member, error) {
	return lm.members.Create(ctx, req)
}

func (lm *LibraryManager) GetMember(ctx context.Context, id uuid.UUID) (*Member, error) {
	return lm.members.Get(ctx, id)
}

func (lm *LibraryManager) GetMemberByEmail(ctx context.Context, email string) (*Member, error) {
	return lm.members.GetByEmail(ctx, email)
}

func (lm *LibraryManager) UpdateMember(ctx context.Context, id uuid.UUID, req MemberRequest) (*Member, error) {
	return lm.members.Update(ctx, id, req)
}

func (lm *LibraryManager) DeleteMember(ctx context.Context, id uuid.UUID) error {
	return lm.members.Delete(ctx, id)
}

func (lm *LibraryManager) SearchMembers(ctx context.Context, c MemberCriteria, req PageRequest) (Page[Member], error) {
	return lm.members.Search(ctx, c, req)
}

func (lm *LibraryManager) SetMemberPassword(ctx context.Context, id uuid.UUID, password string) error {
	return lm.members.SetPassword(ctx, id, password)
}

func (lm *LibraryManager) AuthenticateMember(ctx context.Context, id uuid.UUID, password string) (*Member, error) {
	return lm.members.Authenticate(ctx, id, password)
}

// ------------------ Circulation ------------------

func (lm *LibraryManager) BorrowBook(ctx context.Context, req BorrowRequest) (*Borrowing, error) {
	return lm.lifecycle.StartBorrowing(ctx, req)
}

// BorrowBooks lends several books to one member, all or nothing.
func (lm *LibraryManager) BorrowBooks(ctx context.Context, memberID uuid.UUID, bookIDs []uuid.UUID, borrowDate, dueDate time.Time) ([]Borrowing, error) {
	return lm.lifecycle.BorrowBooks(ctx, memberID, bookIDs, borrowDate, dueDate)
}

func (lm *LibraryManager) ReturnBook(ctx context.Context, borrowingID uuid.UUID) (*Borrowing, error) {
	return lm.lifecycle.ReturnBorrowing(ctx, borrowingID)
}

func (lm *LibraryManager) MarkLost(ctx context.Context, borrowingID uuid.UUID) (*Borrowing, error) {
	return lm.lifecycle.MarkLost(ctx, borrowingID)
}

func (lm *LibraryManager) DeleteBorrowing(ctx context.Context, borrowingID uuid.UUID) error {
	return lm.lifecycle.DeleteBorrowing(ctx, borrowingID)
}

func (lm *LibraryManager) ExtendDueDate(ctx context.Context, borrowingID uuid.UUID, due time.Time) (*Borrowing, error) {
	return lm.lifecycle.ExtendDueDate(ctx, borrowingID, due)
}

func (lm *LibraryManager) GetBorrowing(ctx context.Context, id uuid.UUID) (*Borrowing, error) {
	return lm.lifecycle.GetBorrowing(ctx, id)
}

func (lm *LibraryManager) ListBorrowings(ctx context.Context, c BorrowingCriteria, req PageRequest) (Page[Borrowing], error) {
	return lm.lifecycle.ListBorrowings(ctx, c, req)
}

func (lm *LibraryManager) MemberBorrowings(ctx context.Context, memberID uuid.UUID, req PageRequest) (Page[Borrowing], error) {
	return lm.lifecycle.MemberBorrowings(ctx, memberID, req)
}

func (lm *LibraryManager) DefaultDueDate(borrowDate time.Time) time.Time {
	return lm.lifecycle.DefaultDueDate(borrowDate)
}

// ------------------ Reports ------------------

func (lm *LibraryManager) Reports() *ReportService { return lm.reports }

// ------------------ Data ------------------

// ClearAllData removes every borrowing, book, member and author.
func (lm *LibraryManager) ClearAllData(ctx context.Context) error {
	err := lm.db.WithTx(ctx, func(tx *gorm.DB) error {
		return lm.store.WithTx(tx).ClearAll(ctx)
	})
	if err != nil {
		return err
	}
	lm.log.Warn(ctx, "all library data cleared")
	return nil
}

// GenerateSampleData replaces the library contents with the demo catalog.
func (lm *LibraryManager) GenerateSampleData(ctx context.Context) (ImportResult, error) {
	cat, err := SampleCatalog()
	if err != nil {
		return ImportResult{}, err
	}
	if err := lm.ClearAllData(ctx); err != nil {
		return ImportResult{}, err
	}
	return lm.ImportCatalog(ctx, cat), nil
}

// ------------------ Utilities ------------------

// PrettyBook formats a book for lists.
func PrettyBook(b *Book) string {
	return fmt.Sprintf("%-36s %-30.30s %-22.22s %-13s %d/%d",
		b.ID, b.Title, b.AuthorName(), b.ISBN, b.AvailableCopies, b.TotalCopies)
}

// PrettyBorrowing formats a borrowing for lists; the status is the one in
// effect on today.
func PrettyBorrowing(b *Borrowing, today time.Time) string {
	title, member := "", ""
	if b.Book != nil {
		title = b.Book.Title
	}
	if b.Member != nil {
		member = b.Member.FullName()
	}
	return fmt.Sprintf("%-36s %-25.25s %-20.20s %s  %s  %s",
		b.ID, title, member, b.BorrowDate.Format(DateLayout), b.DueDate.Format(DateLayout), b.EffectiveStatus(today))
}
