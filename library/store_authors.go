package library

import (
	"context"
	"strings"

	pkgerrors "library-lms/errors"

	"github.com/google/uuid"
)

var authorSorts = sortColumns{
	"first_name": "first_name",
	"last_name":  "last_name",
	"created_at": "created_at",
}

func (s *Store) CreateAuthor(ctx context.Context, author *Author) error {
	if err := s.db.WithContext(ctx).Create(author).Error; err != nil {
		if pkgerrors.IsUniqueViolation(err) {
			return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "author "+author.FullName()+" already exists")
		}
		return storageError(err, "create author")
	}
	return nil
}

func (s *Store) FindAuthor(ctx context.Context, id uuid.UUID) (*Author, error) {
	var author Author
	if err := s.db.WithContext(ctx).First(&author, "id = ?", id).Error; err != nil {
		return nil, lookupError(err, "author", id)
	}
	return &author, nil
}

// AuthorNameTaken compares names case-insensitively, skipping exceptID.
func (s *Store) AuthorNameTaken(ctx context.Context, first, last string, exceptID uuid.UUID) (bool, error) {
	var n int64
	q := s.db.WithContext(ctx).Model(&Author{}).
		Where("LOWER(first_name) = ? AND LOWER(last_name) = ?", strings.ToLower(first), strings.ToLower(last))
	if exceptID != uuid.Nil {
		q = q.Where("id <> ?", exceptID)
	}
	if err := q.Count(&n).Error; err != nil {
		return false, storageError(err, "check author name")
	}
	return n > 0, nil
}

// FindAuthorByName resolves "First Last" exactly, ignoring case.
func (s *Store) FindAuthorByName(ctx context.Context, first, last string) (*Author, error) {
	var author Author
	err := s.db.WithContext(ctx).
		Where("LOWER(first_name) = ? AND LOWER(last_name) = ?", strings.ToLower(first), strings.ToLower(last)).
		First(&author).Error
	if err != nil {
		return nil, lookupError(err, "author", strings.TrimSpace(first+" "+last))
	}
	return &author, nil
}

func (s *Store) SaveAuthor(ctx context.Context, author *Author) error {
	err := s.db.WithContext(ctx).Model(&Author{ID: author.ID}).Updates(map[string]any{
		"first_name": author.FirstName,
		"last_name":  author.LastName,
		"biography":  author.Biography,
	}).Error
	if err != nil {
		if pkgerrors.IsUniqueViolation(err) {
			return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "author "+author.FullName()+" already exists")
		}
		return storageError(err, "update author")
	}
	return nil
}

func (s *Store) DeleteAuthor(ctx context.Context, id uuid.UUID) error {
	res := s.db.WithContext(ctx).Delete(&Author{}, "id = ?", id)
	if res.Error != nil {
		return storageError(res.Error, "delete author")
	}
	if res.RowsAffected == 0 {
		return notFound("author", id)
	}
	return nil
}

// SearchAuthors matches name against first, last or full name.
func (s *Store) SearchAuthors(ctx context.Context, name string, req PageRequest) (Page[Author], error) {
	q := s.db.Model(&Author{})
	if v := strings.ToLower(strings.TrimSpace(name)); v != "" {
		p := likePattern(v)
		q = q.Where("LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR LOWER(first_name || ' ' || last_name) LIKE ?", p, p, p)
	}
	return paginate[Author](ctx, q, req, authorSorts, "last_name ASC, first_name ASC, id ASC")
}

func (s *Store) CountAuthors(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&Author{}).Count(&n).Error; err != nil {
		return 0, storageError(err, "count authors")
	}
	return n, nil
}
