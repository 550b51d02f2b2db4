package library

import (
	"context"
	"fmt"
	"strings"

	pkgerrors "library-lms/errors"

	"gorm.io/gorm"
)

const (
	// DefaultPageSize is used when a request does not name a size.
	DefaultPageSize = 10
	// MaxPageSize caps how many rows a single page may hold.
	MaxPageSize = 100
)

type SortDirection string

const (
	SortAsc  SortDirection = "ASC"
	SortDesc SortDirection = "DESC"
)

type SortCriteria struct {
	Field     string
	Direction SortDirection
}

// PageRequest selects a zero-based page and an optional ordering.
type PageRequest struct {
	Page int
	Size int
	Sort []SortCriteria
}

// Normalize clamps page and size into their valid ranges.
func (r PageRequest) Normalize() PageRequest {
	if r.Page < 0 {
		r.Page = 0
	}
	if r.Size <= 0 {
		r.Size = DefaultPageSize
	}
	if r.Size > MaxPageSize {
		r.Size = MaxPageSize
	}
	return r
}

// ParseSort reads "field,dir;field2" into sort criteria. Direction defaults
// to ascending.
func ParseSort(value string) ([]SortCriteria, error) {
	var out []SortCriteria
	for _, part := range strings.Split(value, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		field, dir, _ := strings.Cut(part, ",")
		sc := SortCriteria{Field: strings.TrimSpace(field), Direction: SortAsc}
		switch strings.ToUpper(strings.TrimSpace(dir)) {
		case "", "ASC":
		case "DESC":
			sc.Direction = SortDesc
		default:
			return nil, fmt.Errorf("invalid sort direction %q", dir)
		}
		out = append(out, sc)
	}
	return out, nil
}

// Page is one slice of a larger ordered result.
type Page[T any] struct {
	Items         []T   `json:"items"`
	TotalElements int64 `json:"total_elements"`
	TotalPages    int   `json:"total_pages"`
	CurrentPage   int   `json:"current_page"`
	PageSize      int   `json:"page_size"`
}

func NewPage[T any](items []T, total int64, req PageRequest) Page[T] {
	req = req.Normalize()
	pages := int((total + int64(req.Size) - 1) / int64(req.Size))
	if items == nil {
		items = []T{}
	}
	return Page[T]{
		Items:         items,
		TotalElements: total,
		TotalPages:    pages,
		CurrentPage:   req.Page,
		PageSize:      req.Size,
	}
}

func (p Page[T]) HasNext() bool {
	return p.CurrentPage+1 < p.TotalPages
}

func (p Page[T]) HasPrevious() bool {
	return p.CurrentPage > 0
}

// sortColumns maps public sort field names onto trusted column expressions.
type sortColumns map[string]string

func (s sortColumns) orderClause(criteria []SortCriteria, fallback string) (string, error) {
	if len(criteria) == 0 {
		return fallback, nil
	}
	parts := make([]string, 0, len(criteria)+1)
	for _, c := range criteria {
		col, ok := s[strings.ToLower(c.Field)]
		if !ok {
			return "", pkgerrors.New(pkgerrors.CodeValidation, "validation failed").
				WithDetails(FieldErrors{{Field: "sort", Message: fmt.Sprintf("cannot sort by %q", c.Field)}})
		}
		dir := SortAsc
		if c.Direction == SortDesc {
			dir = SortDesc
		}
		parts = append(parts, col+" "+string(dir))
	}
	// Stable ordering across pages.
	parts = append(parts, "id ASC")
	return strings.Join(parts, ", "), nil
}

// paginate counts q, then loads the requested page of it.
func paginate[T any](ctx context.Context, q *gorm.DB, req PageRequest, sorts sortColumns, fallback string, preloads ...string) (Page[T], error) {
	req = req.Normalize()
	order, err := sorts.orderClause(req.Sort, fallback)
	if err != nil {
		return Page[T]{}, err
	}

	base := q.WithContext(ctx).Session(&gorm.Session{})

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return Page[T]{}, storageError(err, "count rows")
	}

	find := base.Order(order).Offset(req.Page * req.Size).Limit(req.Size)
	for _, p := range preloads {
		find = find.Preload(p)
	}
	var items []T
	if err := find.Find(&items).Error; err != nil {
		return Page[T]{}, storageError(err, "load page")
	}
	return NewPage(items, total, req), nil
}
