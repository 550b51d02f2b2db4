package library

import (
	"context"
	"strings"

	pkgerrors "library-lms/errors"

	"github.com/google/uuid"
)

// MemberCriteria filters member searches. Empty fields are ignored.
type MemberCriteria struct {
	FirstName   string
	LastName    string
	Email       string
	PhoneNumber string
}

var memberSorts = sortColumns{
	"first_name":        "first_name",
	"last_name":         "last_name",
	"email":             "email",
	"registration_date": "registration_date",
	"created_at":        "created_at",
}

func (s *Store) CreateMember(ctx context.Context, member *Member) error {
	if err := s.db.WithContext(ctx).Create(member).Error; err != nil {
		if pkgerrors.IsUniqueViolation(err) {
			return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "a member with email "+member.Email+" already exists")
		}
		return storageError(err, "create member")
	}
	return nil
}

func (s *Store) FindMember(ctx context.Context, id uuid.UUID) (*Member, error) {
	var member Member
	if err := s.db.WithContext(ctx).First(&member, "id = ?", id).Error; err != nil {
		return nil, lookupError(err, "member", id)
	}
	return &member, nil
}

func (s *Store) FindMemberByEmail(ctx context.Context, email string) (*Member, error) {
	var member Member
	if err := s.db.WithContext(ctx).First(&member, "email = ?", NormalizeEmail(email)).Error; err != nil {
		return nil, lookupError(err, "member with email", email)
	}
	return &member, nil
}

func (s *Store) EmailTaken(ctx context.Context, email string, exceptID uuid.UUID) (bool, error) {
	var n int64
	q := s.db.WithContext(ctx).Model(&Member{}).Where("email = ?", NormalizeEmail(email))
	if exceptID != uuid.Nil {
		q = q.Where("id <> ?", exceptID)
	}
	if err := q.Count(&n).Error; err != nil {
		return false, storageError(err, "check email")
	}
	return n > 0, nil
}

func (s *Store) SaveMember(ctx context.Context, member *Member) error {
	err := s.db.WithContext(ctx).Model(&Member{ID: member.ID}).Updates(map[string]any{
		"first_name":        member.FirstName,
		"last_name":         member.LastName,
		"email":             member.Email,
		"phone_number":      member.PhoneNumber,
		"address":           member.Address,
		"registration_date": member.RegistrationDate,
	}).Error
	if err != nil {
		if pkgerrors.IsUniqueViolation(err) {
			return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "a member with email "+member.Email+" already exists")
		}
		return storageError(err, "update member")
	}
	return nil
}

func (s *Store) SetPasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	res := s.db.WithContext(ctx).Model(&Member{}).Where("id = ?", id).Update("password_hash", hash)
	if res.Error != nil {
		return storageError(res.Error, "store password")
	}
	if res.RowsAffected == 0 {
		return notFound("member", id)
	}
	return nil
}

func (s *Store) DeleteMember(ctx context.Context, id uuid.UUID) error {
	res := s.db.WithContext(ctx).Delete(&Member{}, "id = ?", id)
	if res.Error != nil {
		return storageError(res.Error, "delete member")
	}
	if res.RowsAffected == 0 {
		return notFound("member", id)
	}
	return nil
}

func (s *Store) SearchMembers(ctx context.Context, c MemberCriteria, req PageRequest) (Page[Member], error) {
	q := s.db.Model(&Member{})
	if v := strings.TrimSpace(c.FirstName); v != "" {
		q = q.Where("LOWER(first_name) LIKE ?", likePattern(strings.ToLower(v)))
	}
	if v := strings.TrimSpace(c.LastName); v != "" {
		q = q.Where("LOWER(last_name) LIKE ?", likePattern(strings.ToLower(v)))
	}
	if v := NormalizeEmail(c.Email); v != "" {
		q = q.Where("email LIKE ?", likePattern(v))
	}
	if v := strings.TrimSpace(c.PhoneNumber); v != "" {
		q = q.Where("phone_number LIKE ?", likePattern(v))
	}
	return paginate[Member](ctx, q, req, memberSorts, "last_name ASC, first_name ASC, id ASC")
}

func (s *Store) CountMembers(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&Member{}).Count(&n).Error; err != nil {
		return 0, storageError(err, "count members")
	}
	return n, nil
}
