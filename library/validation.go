package library

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	pkgerrors "library-lms/errors"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var phonePattern = regexp.MustCompile(`^(\+\d{1,3}[- ]?)?\d{3}[- .]?\d{3}[- .]?\d{4}$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" || tag == "-" {
			return f.Name
		}
		return tag
	})
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("book_category", func(fl validator.FieldLevel) bool {
		return BookCategory(fl.Field().String()).IsValid()
	})
	return v
}

// FieldError names one rejected input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type FieldErrors []FieldError

func (fe FieldErrors) Error() string {
	parts := make([]string, 0, len(fe))
	for _, e := range fe {
		parts = append(parts, e.Field+" "+e.Message)
	}
	return strings.Join(parts, "; ")
}

func (fe *FieldErrors) add(field, message string) {
	*fe = append(*fe, FieldError{Field: field, Message: message})
}

// err turns a non-empty list into a validation failure.
func (fe FieldErrors) err() error {
	if len(fe) == 0 {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "validation failed: "+fe.Error()).WithDetails(fe)
}

// structErrors runs the tag rules on req and collects every failure.
func structErrors(req any) FieldErrors {
	var out FieldErrors
	err := validate.Struct(req)
	if err == nil {
		return out
	}
	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		out.add("request", err.Error())
		return out
	}
	for _, fieldErr := range errs {
		out.add(fieldErr.Field(), validationMessage(fieldErr))
	}
	return out
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "email":
		return "must be a valid email"
	case "isbn":
		return "must be a valid ISBN-10 or ISBN-13"
	case "phone":
		return "must be a valid phone number"
	case "book_category":
		return "must be a known category"
	}
	return "is invalid"
}

// NormalizeISBN strips the separators people type between ISBN groups.
func NormalizeISBN(isbn string) string {
	return strings.ToUpper(strings.NewReplacer("-", "", " ", "").Replace(strings.TrimSpace(isbn)))
}

// NormalizeEmail trims and lower-cases an address for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type AuthorRequest struct {
	FirstName string `json:"first_name" validate:"required,max=255"`
	LastName  string `json:"last_name" validate:"required,max=255"`
	Biography string `json:"biography" validate:"max=4000"`
}

func (r *AuthorRequest) normalize() {
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	r.Biography = strings.TrimSpace(r.Biography)
}

func ValidateAuthor(r AuthorRequest) error {
	return structErrors(r).err()
}

type CreateBookRequest struct {
	Title           string       `json:"title" validate:"required,max=255"`
	ISBN            string       `json:"isbn" validate:"required,isbn"`
	PublicationYear *int         `json:"publication_year" validate:"omitempty,min=1000"`
	Category        BookCategory `json:"category" validate:"required,book_category"`
	TotalCopies     int          `json:"total_copies" validate:"min=1"`
	AuthorID        uuid.UUID    `json:"author_id" validate:"required"`
}

func (r *CreateBookRequest) normalize() {
	r.Title = strings.TrimSpace(r.Title)
	r.ISBN = NormalizeISBN(r.ISBN)
}

// ValidateCreateBook checks tag rules plus the publication year against today.
func ValidateCreateBook(r CreateBookRequest, today time.Time) error {
	errs := structErrors(r)
	checkPublicationYear(&errs, r.PublicationYear, today)
	return errs.err()
}

// UpdateBookRequest carries the full editable state of a book. A nil
// AvailableCopies lets the inventory rules derive it.
type UpdateBookRequest struct {
	Title           string       `json:"title" validate:"required,max=255"`
	ISBN            string       `json:"isbn" validate:"required,isbn"`
	PublicationYear *int         `json:"publication_year" validate:"omitempty,min=1000"`
	Category        BookCategory `json:"category" validate:"required,book_category"`
	TotalCopies     int          `json:"total_copies" validate:"min=1"`
	AvailableCopies *int         `json:"available_copies" validate:"omitempty,min=0"`
	AuthorID        uuid.UUID    `json:"author_id" validate:"required"`
}

func (r *UpdateBookRequest) normalize() {
	r.Title = strings.TrimSpace(r.Title)
	r.ISBN = NormalizeISBN(r.ISBN)
}

func ValidateUpdateBook(r UpdateBookRequest, today time.Time) error {
	errs := structErrors(r)
	checkPublicationYear(&errs, r.PublicationYear, today)
	if r.AvailableCopies != nil && *r.AvailableCopies > r.TotalCopies {
		errs.add("available_copies", "cannot exceed total copies")
	}
	return errs.err()
}

func checkPublicationYear(errs *FieldErrors, year *int, today time.Time) {
	if year != nil && *year > today.Year() {
		errs.add("publication_year", "cannot be in the future")
	}
}

type MemberRequest struct {
	FirstName        string    `json:"first_name" validate:"required,max=255"`
	LastName         string    `json:"last_name" validate:"required,max=255"`
	Email            string    `json:"email" validate:"required,email,max=255"`
	PhoneNumber      string    `json:"phone_number" validate:"omitempty,phone"`
	Address          string    `json:"address" validate:"max=4000"`
	RegistrationDate time.Time `json:"registration_date"`
}

func (r *MemberRequest) normalize() {
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	r.Email = NormalizeEmail(r.Email)
	r.PhoneNumber = strings.TrimSpace(r.PhoneNumber)
	r.Address = strings.TrimSpace(r.Address)
}

func ValidateMember(r MemberRequest, today time.Time) error {
	errs := structErrors(r)
	if !r.RegistrationDate.IsZero() && dateOnly(r.RegistrationDate).After(dateOnly(today)) {
		errs.add("registration_date", "cannot be in the future")
	}
	return errs.err()
}

type BorrowRequest struct {
	BookID     uuid.UUID `json:"book_id" validate:"required"`
	MemberID   uuid.UUID `json:"member_id" validate:"required"`
	BorrowDate time.Time `json:"borrow_date" validate:"required"`
	DueDate    time.Time `json:"due_date" validate:"required"`
}

// ValidateBorrow rejects missing references and a due date before the
// borrow date. maxLoanDays of zero means no upper bound.
func ValidateBorrow(r BorrowRequest, maxLoanDays int) error {
	errs := structErrors(r)
	if !r.BorrowDate.IsZero() && !r.DueDate.IsZero() {
		borrow, due := dateOnly(r.BorrowDate), dateOnly(r.DueDate)
		if due.Before(borrow) {
			errs.add("due_date", "must not be before the borrow date")
		} else if maxLoanDays > 0 && due.Sub(borrow) > time.Duration(maxLoanDays)*24*time.Hour {
			errs.add("due_date", fmt.Sprintf("must be within %d days of the borrow date", maxLoanDays))
		}
	}
	return errs.err()
}

// ValidateDateRange requires start on or before end.
func ValidateDateRange(start, end time.Time) error {
	var errs FieldErrors
	if start.IsZero() {
		errs.add("start_date", "is required")
	}
	if end.IsZero() {
		errs.add("end_date", "is required")
	}
	if len(errs) == 0 && dateOnly(end).Before(dateOnly(start)) {
		errs.add("end_date", "must not be before the start date")
	}
	return errs.err()
}
