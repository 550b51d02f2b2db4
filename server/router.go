package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	pkgerrors "library-lms/errors"
	"library-lms/library"
	"library-lms/logger"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Library is the read side of the manager the HTTP surface needs.
type Library interface {
	Ping(ctx context.Context) error
	Today() time.Time
	GetBorrowing(ctx context.Context, id uuid.UUID) (*library.Borrowing, error)
	ListBorrowings(ctx context.Context, c library.BorrowingCriteria, req library.PageRequest) (library.Page[library.Borrowing], error)
	Reports() *library.ReportService
}

// NewRouter wires the read-only API. A nil gatherer leaves /metrics unmounted.
func NewRouter(lib Library, gatherer prometheus.Gatherer, logg *logger.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(
		Recoverer(logg),
		RequestID(logg),
		Logging(logg),
	)

	h := &handlers{lib: lib, logg: logg}

	r.Get("/healthz", h.health)
	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/reports", func(r chi.Router) {
			r.Get("/overdue", h.overdue)
			r.Get("/borrowed", h.borrowed)
			r.Get("/summary", h.summary)
		})
		r.Route("/borrowings", func(r chi.Router) {
			r.Get("/", h.listBorrowings)
			r.Get("/{id}", h.getBorrowing)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "route not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "method not allowed"))
	})

	return r
}

type handlers struct {
	lib  Library
	logg *logger.Logger
}

type borrowingView struct {
	ID          uuid.UUID `json:"id"`
	BookID      uuid.UUID `json:"book_id"`
	BookTitle   string    `json:"book_title,omitempty"`
	ISBN        string    `json:"isbn,omitempty"`
	MemberID    uuid.UUID `json:"member_id"`
	MemberName  string    `json:"member_name,omitempty"`
	BorrowDate  string    `json:"borrow_date"`
	DueDate     string    `json:"due_date"`
	ReturnDate  string    `json:"return_date,omitempty"`
	Status      string    `json:"status"`
	DaysOverdue int       `json:"days_overdue,omitempty"`
	Fine        string    `json:"fine,omitempty"`
}

func (h *handlers) view(b library.Borrowing, today time.Time) borrowingView {
	v := borrowingView{
		ID:         b.ID,
		BookID:     b.BookID,
		MemberID:   b.MemberID,
		BorrowDate: b.BorrowDate.Format(library.DateLayout),
		DueDate:    b.DueDate.Format(library.DateLayout),
		Status:     string(b.EffectiveStatus(today)),
	}
	if b.Book != nil {
		v.BookTitle = b.Book.Title
		v.ISBN = b.Book.ISBN
	}
	if b.Member != nil {
		v.MemberName = b.Member.FullName()
	}
	if b.ReturnDate != nil {
		v.ReturnDate = b.ReturnDate.Format(library.DateLayout)
	}
	if days := b.DaysOverdue(today); days > 0 {
		v.DaysOverdue = days
		v.Fine = h.lib.Reports().FineFor(days).StringFixed(2)
	}
	return v
}

func (h *handlers) views(items []library.Borrowing) []borrowingView {
	today := h.lib.Today()
	out := make([]borrowingView, 0, len(items))
	for _, b := range items {
		out = append(out, h.view(b, today))
	}
	return out
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	if err := h.lib.Ping(r.Context()); err != nil {
		WriteError(r.Context(), h.logg, w, err)
		return
	}
	WriteSuccess(w, map[string]string{"status": "ok"})
}

func (h *handlers) overdue(w http.ResponseWriter, r *http.Request) {
	entries, err := h.lib.Reports().Overdue(r.Context())
	if err != nil {
		WriteError(r.Context(), h.logg, w, err)
		return
	}
	today := h.lib.Today()
	out := make([]borrowingView, 0, len(entries))
	for _, e := range entries {
		v := h.view(e.Borrowing, today)
		v.DaysOverdue = e.DaysOverdue
		v.Fine = e.Fine.StringFixed(2)
		out = append(out, v)
	}
	WriteSuccess(w, out)
}

func (h *handlers) borrowed(w http.ResponseWriter, r *http.Request) {
	items, err := h.lib.Reports().CurrentlyBorrowed(r.Context())
	if err != nil {
		WriteError(r.Context(), h.logg, w, err)
		return
	}
	WriteSuccess(w, h.views(items))
}

func (h *handlers) summary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.lib.Reports().Summary(r.Context())
	if err != nil {
		WriteError(r.Context(), h.logg, w, err)
		return
	}
	WriteSuccess(w, map[string]any{
		"date":               sum.Date.Format(library.DateLayout),
		"books":              sum.Books,
		"authors":            sum.Authors,
		"members":            sum.Members,
		"active_borrowings":  sum.Active,
		"overdue_borrowings": sum.Overdue,
		"fines_owed":         sum.FinesOwed,
	})
}

func (h *handlers) getBorrowing(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		WriteError(r.Context(), h.logg, w, pkgerrors.New(pkgerrors.CodeValidation, "borrowing id must be a UUID"))
		return
	}
	b, err := h.lib.GetBorrowing(r.Context(), id)
	if err != nil {
		WriteError(r.Context(), h.logg, w, err)
		return
	}
	WriteSuccess(w, h.view(*b, h.lib.Today()))
}

func (h *handlers) listBorrowings(w http.ResponseWriter, r *http.Request) {
	criteria, req, err := parseBorrowingQuery(r)
	if err != nil {
		WriteError(r.Context(), h.logg, w, err)
		return
	}
	criteria.Today = h.lib.Today()

	page, err := h.lib.ListBorrowings(r.Context(), criteria, req)
	if err != nil {
		WriteError(r.Context(), h.logg, w, err)
		return
	}
	WriteSuccess(w, library.Page[borrowingView]{
		Items:         h.views(page.Items),
		TotalElements: page.TotalElements,
		TotalPages:    page.TotalPages,
		CurrentPage:   page.CurrentPage,
		PageSize:      page.PageSize,
	})
}

func parseBorrowingQuery(r *http.Request) (library.BorrowingCriteria, library.PageRequest, error) {
	q := r.URL.Query()
	var (
		c   library.BorrowingCriteria
		req library.PageRequest
		err error
	)

	if v := q.Get("status"); v != "" {
		if c.Status, err = library.ParseBorrowingStatus(v); err != nil {
			return c, req, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status")
		}
	}
	if v := q.Get("member_id"); v != "" {
		if c.MemberID, err = uuid.Parse(v); err != nil {
			return c, req, pkgerrors.New(pkgerrors.CodeValidation, "member_id must be a UUID")
		}
	}
	if v := q.Get("book_id"); v != "" {
		if c.BookID, err = uuid.Parse(v); err != nil {
			return c, req, pkgerrors.New(pkgerrors.CodeValidation, "book_id must be a UUID")
		}
	}
	if v := q.Get("page"); v != "" {
		if req.Page, err = strconv.Atoi(v); err != nil {
			return c, req, pkgerrors.New(pkgerrors.CodeValidation, "page must be a number")
		}
	}
	if v := q.Get("size"); v != "" {
		if req.Size, err = strconv.Atoi(v); err != nil {
			return c, req, pkgerrors.New(pkgerrors.CodeValidation, "size must be a number")
		}
	}
	if v := q.Get("sort"); v != "" {
		if req.Sort, err = library.ParseSort(v); err != nil {
			return c, req, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid sort")
		}
	}
	return c, req, nil
}
