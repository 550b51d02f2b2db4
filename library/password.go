package library

import (
	"context"
	"errors"

	pkgerrors "library-lms/errors"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	MinPasswordLength = 6
	// MaxPasswordLength is the most bcrypt will hash, in bytes.
	MaxPasswordLength = 72
)

func HashPassword(password string) (string, error) {
	if len(password) < MinPasswordLength {
		return "", (FieldErrors{{Field: "password", Message: "must be at least 6 characters"}}).err()
	}
	if len(password) > MaxPasswordLength {
		return "", (FieldErrors{{Field: "password", Message: "must be at most 72 bytes"}}).err()
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	return string(hash), nil
}

// SetPassword stores a new password for the member. An empty password
// removes it.
func (s *MemberService) SetPassword(ctx context.Context, id uuid.UUID, password string) error {
	hash := ""
	if password != "" {
		var err error
		if hash, err = HashPassword(password); err != nil {
			return err
		}
	}
	if err := s.store.SetPasswordHash(ctx, id, hash); err != nil {
		return err
	}
	s.log.Info(s.log.WithField(ctx, "member_id", id.String()), "member password changed")
	return nil
}

// Authenticate checks password against the member's stored hash. Members
// without a password always pass.
func (s *MemberService) Authenticate(ctx context.Context, id uuid.UUID, password string) (*Member, error) {
	member, err := s.store.FindMember(ctx, id)
	if err != nil {
		return nil, err
	}
	if !member.HasPassword() {
		return member, nil
	}
	err = bcrypt.CompareHashAndPassword([]byte(member.PasswordHash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		s.log.Warn(s.log.WithField(ctx, "member_id", id.String()), "member authentication failed")
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "incorrect password")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	return member, nil
}
