package library

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"
)

// Author writes books. First and last name together are unique, ignoring case.
type Author struct {
	ID        uuid.UUID `gorm:"type:text;primaryKey" json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Biography string    `json:"biography,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (a *Author) BeforeCreate(*gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

func (a Author) FullName() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

// Book is a catalog title with a number of physical copies. AvailableCopies
// counts the copies that are on the shelf right now.
type Book struct {
	ID              uuid.UUID    `gorm:"type:text;primaryKey" json:"id"`
	Title           string       `json:"title"`
	ISBN            string       `gorm:"column:isbn" json:"isbn"`
	PublicationYear *int         `json:"publication_year,omitempty"`
	Category        BookCategory `json:"category"`
	TotalCopies     int          `json:"total_copies"`
	AvailableCopies int          `json:"available_copies"`
	AuthorID        uuid.UUID    `gorm:"type:text" json:"author_id"`
	Author          *Author      `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

func (b *Book) BeforeCreate(*gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// OnLoan is the number of copies currently held by members or lost while borrowed.
func (b Book) OnLoan() int {
	return b.TotalCopies - b.AvailableCopies
}

func (b Book) AuthorName() string {
	if b.Author == nil {
		return ""
	}
	return b.Author.FullName()
}

// Member is a registered patron. Email is stored lower-cased and is unique.
type Member struct {
	ID               uuid.UUID `gorm:"type:text;primaryKey" json:"id"`
	FirstName        string    `json:"first_name"`
	LastName         string    `json:"last_name"`
	Email            string    `json:"email"`
	PhoneNumber      string    `json:"phone_number,omitempty"`
	Address          string    `json:"address,omitempty"`
	RegistrationDate time.Time `gorm:"type:date" json:"registration_date"`
	PasswordHash     string    `json:"-"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (m *Member) BeforeCreate(*gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

func (m Member) FullName() string {
	return strings.TrimSpace(m.FirstName + " " + m.LastName)
}

func (m Member) HasPassword() bool {
	return m.PasswordHash != ""
}

// Borrowing is one loan of one copy of a book to one member.
type Borrowing struct {
	ID         uuid.UUID       `gorm:"type:text;primaryKey" json:"id"`
	BookID     uuid.UUID       `gorm:"type:text" json:"book_id"`
	Book       *Book           `gorm:"foreignKey:BookID" json:"book,omitempty"`
	MemberID   uuid.UUID       `gorm:"type:text" json:"member_id"`
	Member     *Member         `gorm:"foreignKey:MemberID" json:"member,omitempty"`
	BorrowDate time.Time       `gorm:"type:date" json:"borrow_date"`
	DueDate    time.Time       `gorm:"type:date" json:"due_date"`
	ReturnDate *time.Time      `gorm:"type:date" json:"return_date,omitempty"`
	Status     BorrowingStatus `json:"status"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

func (b *Borrowing) BeforeCreate(*gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// IsActive reports whether the borrowing still holds a copy out of the shelf count.
func (b Borrowing) IsActive() bool {
	return b.Status == StatusBorrowed
}

func (b Borrowing) IsOverdue(today time.Time) bool {
	return b.Status == StatusBorrowed && b.DueDate.Before(dateOnly(today))
}

// EffectiveStatus folds the derived OVERDUE state into the stored status.
func (b Borrowing) EffectiveStatus(today time.Time) BorrowingStatus {
	if b.IsOverdue(today) {
		return StatusOverdue
	}
	return b.Status
}

// DaysOverdue is zero unless the borrowing is overdue on today.
func (b Borrowing) DaysOverdue(today time.Time) int {
	if !b.IsOverdue(today) {
		return 0
	}
	return int(dateOnly(today).Sub(dateOnly(b.DueDate)).Hours() / 24)
}

// BorrowingStatus is the lifecycle state. OVERDUE is never persisted.
type BorrowingStatus string

const (
	StatusBorrowed BorrowingStatus = "BORROWED"
	StatusReturned BorrowingStatus = "RETURNED"
	StatusOverdue  BorrowingStatus = "OVERDUE"
	StatusLost     BorrowingStatus = "LOST"
)

var validBorrowingStatuses = []BorrowingStatus{
	StatusBorrowed,
	StatusReturned,
	StatusOverdue,
	StatusLost,
}

func (s BorrowingStatus) String() string {
	return string(s)
}

func (s BorrowingStatus) IsValid() bool {
	for _, candidate := range validBorrowingStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is allowed from s.
func (s BorrowingStatus) IsTerminal() bool {
	return s == StatusReturned || s == StatusLost
}

func ParseBorrowingStatus(value string) (BorrowingStatus, error) {
	for _, candidate := range validBorrowingStatuses {
		if strings.EqualFold(string(candidate), strings.TrimSpace(value)) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid borrowing status %q", value)
}

// BookCategory is the closed set of shelf categories.
type BookCategory string

const (
	CategoryFiction    BookCategory = "FICTION"
	CategoryNonFiction BookCategory = "NON_FICTION"
	CategoryScience    BookCategory = "SCIENCE"
	CategoryHistory    BookCategory = "HISTORY"
	CategoryBiography  BookCategory = "BIOGRAPHY"
	CategoryTechnology BookCategory = "TECHNOLOGY"
	CategoryArt        BookCategory = "ART"
	CategoryCooking    BookCategory = "COOKING"
	CategoryTravel     BookCategory = "TRAVEL"
	CategoryChildren   BookCategory = "CHILDREN"
	CategoryFantasy    BookCategory = "FANTASY"
	CategoryMystery    BookCategory = "MYSTERY"
	CategoryThriller   BookCategory = "THRILLER"
	CategoryRomance    BookCategory = "ROMANCE"
	CategoryHorror     BookCategory = "HORROR"
	CategoryPoetry     BookCategory = "POETRY"
	CategoryDrama      BookCategory = "DRAMA"
	CategoryComic      BookCategory = "COMIC"
	CategoryReference  BookCategory = "REFERENCE"
	CategorySelfHelp   BookCategory = "SELF_HELP"
	CategoryBusiness   BookCategory = "BUSINESS"
	CategoryEducation  BookCategory = "EDUCATION"
	CategoryHealth     BookCategory = "HEALTH"
	CategorySports     BookCategory = "SPORTS"
	CategoryOther      BookCategory = "OTHER"
)

// BookCategories lists every category in menu order.
var BookCategories = []BookCategory{
	CategoryFiction, CategoryNonFiction, CategoryScience, CategoryHistory, CategoryBiography,
	CategoryTechnology, CategoryArt, CategoryCooking, CategoryTravel, CategoryChildren,
	CategoryFantasy, CategoryMystery, CategoryThriller, CategoryRomance, CategoryHorror,
	CategoryPoetry, CategoryDrama, CategoryComic, CategoryReference, CategorySelfHelp,
	CategoryBusiness, CategoryEducation, CategoryHealth, CategorySports, CategoryOther,
}

func (c BookCategory) String() string {
	return string(c)
}

func (c BookCategory) IsValid() bool {
	for _, candidate := range BookCategories {
		if candidate == c {
			return true
		}
	}
	return false
}

// Label renders the category for people, e.g. SELF_HELP becomes "Self Help".
func (c BookCategory) Label() string {
	return cases.Title(language.English).String(strings.ReplaceAll(strings.ToLower(string(c)), "_", " "))
}

// ParseBookCategory accepts the enum name or its label in any case.
func ParseBookCategory(value string) (BookCategory, error) {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	normalized = strings.NewReplacer(" ", "_", "-", "_").Replace(normalized)
	candidate := BookCategory(normalized)
	if candidate.IsValid() {
		return candidate, nil
	}
	return "", fmt.Errorf("invalid book category %q", value)
}

// DateLayout is the calendar date format used for input and display.
const DateLayout = "2006-01-02"

// ParseDate reads a YYYY-MM-DD calendar date.
func ParseDate(value string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", value)
	}
	return t, nil
}

// dateOnly truncates t to midnight UTC of its calendar day.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
