package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	pkgerrors "library-lms/errors"
	"library-lms/library"

	"github.com/google/uuid"
)

// line prompts and reads one trimmed line. It returns false once input is
// exhausted.
func (s *Shell) line(prompt string) (string, bool) {
	fmt.Fprint(s.out, prompt)
	if !s.sc.Scan() {
		s.eof = true
		return "", false
	}
	return strings.TrimSpace(s.sc.Text()), true
}

func (s *Shell) readString(label string) (string, bool) {
	return s.line(label + ": ")
}

// readOptional shows the current value; an empty answer keeps it.
func (s *Shell) readOptional(label, current string) (string, bool) {
	v, ok := s.line(fmt.Sprintf("%s [%s]: ", label, current))
	if !ok {
		return "", false
	}
	if v == "" {
		return current, true
	}
	return v, true
}

func (s *Shell) readInt(label string, def int) (int, bool) {
	v, ok := s.line(fmt.Sprintf("%s [%d]: ", label, def))
	if !ok {
		return 0, false
	}
	if v == "" {
		return def, true
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		fmt.Fprintf(s.out, "Invalid number: %s\n", v)
		return 0, false
	}
	return n, true
}

// readOptionalInt returns nil for an empty answer.
func (s *Shell) readOptionalInt(label string) (*int, bool) {
	v, ok := s.line(label + " (optional): ")
	if !ok || v == "" {
		return nil, ok
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		fmt.Fprintf(s.out, "Invalid number: %s\n", v)
		return nil, false
	}
	return &n, true
}

func (s *Shell) readUUID(label string) (uuid.UUID, bool) {
	v, ok := s.readString(label)
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(v)
	if err != nil {
		fmt.Fprintf(s.out, "Invalid %s: %s\n", strings.ToLower(label), v)
		return uuid.Nil, false
	}
	return id, true
}

func (s *Shell) readYesNo(label string) bool {
	v, ok := s.line(label + " (y/n): ")
	if !ok {
		return false
	}
	switch strings.ToLower(v) {
	case "y", "yes":
		return true
	}
	return false
}

// readDate accepts YYYY-MM-DD; an empty answer takes def.
func (s *Shell) readDate(label string, def time.Time) (time.Time, bool) {
	prompt := label + " (YYYY-MM-DD): "
	if !def.IsZero() {
		prompt = fmt.Sprintf("%s (YYYY-MM-DD) [%s]: ", label, def.Format(library.DateLayout))
	}
	v, ok := s.line(prompt)
	if !ok {
		return time.Time{}, false
	}
	if v == "" && !def.IsZero() {
		return def, true
	}
	d, err := library.ParseDate(v)
	if err != nil {
		fmt.Fprintf(s.out, "Invalid date: %s\n", v)
		return time.Time{}, false
	}
	return d, true
}

func (s *Shell) readCategory(current library.BookCategory) (library.BookCategory, bool) {
	labels := make([]string, 0, len(library.BookCategories))
	for _, c := range library.BookCategories {
		labels = append(labels, string(c))
	}
	fmt.Fprintf(s.out, "Categories: %s\n", strings.Join(labels, ", "))

	var (
		v  string
		ok bool
	)
	if current == "" {
		v, ok = s.readString("Category")
	} else {
		v, ok = s.readOptional("Category", string(current))
	}
	if !ok {
		return "", false
	}
	c, err := library.ParseBookCategory(v)
	if err != nil {
		fmt.Fprintf(s.out, "Invalid category: %s\n", v)
		return "", false
	}
	return c, true
}

// printErr renders a failed action without leaving the menu.
func (s *Shell) printErr(err error) {
	typed := pkgerrors.As(err)
	if typed == nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}
	switch typed.Code() {
	case pkgerrors.CodeNotFound:
		fmt.Fprintf(s.out, "Not found: %s\n", typed.Message())
	case pkgerrors.CodeRuleViolation, pkgerrors.CodeConflict:
		fmt.Fprintf(s.out, "Not allowed: %s\n", typed.Message())
	case pkgerrors.CodeUnauthorized:
		fmt.Fprintf(s.out, "Authentication failed: %s\n", typed.Message())
	case pkgerrors.CodeValidation:
		fields, ok := typed.Details().(library.FieldErrors)
		if !ok {
			fmt.Fprintf(s.out, "Invalid input: %s\n", typed.Message())
			return
		}
		fmt.Fprintln(s.out, "Invalid input:")
		for _, fe := range fields {
			fmt.Fprintf(s.out, "  - %s: %s\n", fe.Field, fe.Message)
		}
	default:
		fmt.Fprintf(s.out, "Error: %v\n", err)
	}
}
