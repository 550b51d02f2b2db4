package library

import (
	"context"

	pkgerrors "library-lms/errors"
	"library-lms/logger"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MemberService struct {
	db    *Database
	store *Store
	clock Clock
	log   *logger.Logger
}

func NewMemberService(db *Database, clock Clock, logg *logger.Logger) *MemberService {
	if logg == nil {
		logg = logger.Nop()
	}
	if clock == nil {
		clock = realClock{}
	}
	return &MemberService{db: db, store: NewStore(db.Conn()), clock: clock, log: logg}
}

// Create registers a member. A zero registration date means today.
func (s *MemberService) Create(ctx context.Context, req MemberRequest) (*Member, error) {
	req.normalize()
	today := dateOnly(s.clock.Now())
	if req.RegistrationDate.IsZero() {
		req.RegistrationDate = today
	}
	if err := ValidateMember(req, today); err != nil {
		return nil, err
	}
	taken, err := s.store.EmailTaken(ctx, req.Email, uuid.Nil)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, pkgerrors.Newf(pkgerrors.CodeConflict, "a member with email %s already exists", req.Email)
	}

	member := &Member{
		FirstName:        req.FirstName,
		LastName:         req.LastName,
		Email:            req.Email,
		PhoneNumber:      req.PhoneNumber,
		Address:          req.Address,
		RegistrationDate: dateOnly(req.RegistrationDate),
	}
	if err := s.store.CreateMember(ctx, member); err != nil {
		return nil, err
	}
	s.log.Info(s.log.WithField(ctx, "member_id", member.ID.String()), "member registered")
	return member, nil
}

func (s *MemberService) Get(ctx context.Context, id uuid.UUID) (*Member, error) {
	return s.store.FindMember(ctx, id)
}

func (s *MemberService) GetByEmail(ctx context.Context, email string) (*Member, error) {
	return s.store.FindMemberByEmail(ctx, email)
}

// Update rewrites a member's details. A zero registration date keeps the
// stored one.
func (s *MemberService) Update(ctx context.Context, id uuid.UUID, req MemberRequest) (*Member, error) {
	req.normalize()
	member, err := s.store.FindMember(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.RegistrationDate.IsZero() {
		req.RegistrationDate = member.RegistrationDate
	}
	if err := ValidateMember(req, s.clock.Now()); err != nil {
		return nil, err
	}
	taken, err := s.store.EmailTaken(ctx, req.Email, id)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, pkgerrors.Newf(pkgerrors.CodeConflict, "a member with email %s already exists", req.Email)
	}

	member.FirstName = req.FirstName
	member.LastName = req.LastName
	member.Email = req.Email
	member.PhoneNumber = req.PhoneNumber
	member.Address = req.Address
	member.RegistrationDate = dateOnly(req.RegistrationDate)
	if err := s.store.SaveMember(ctx, member); err != nil {
		return nil, err
	}
	return s.store.FindMember(ctx, id)
}

// Delete removes a member who has nothing out on loan, along with their
// borrowing history.
func (s *MemberService) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		st := s.store.WithTx(tx)
		member, err := st.FindMember(ctx, id)
		if err != nil {
			return err
		}
		n, err := st.CountActiveByMember(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return ruleViolation("cannot delete %s: %d book(s) still borrowed", member.FullName(), n)
		}
		return st.DeleteMember(ctx, id)
	})
	if err != nil {
		return err
	}
	s.log.Info(s.log.WithField(ctx, "member_id", id.String()), "member deleted")
	return nil
}

func (s *MemberService) Search(ctx context.Context, c MemberCriteria, req PageRequest) (Page[Member], error) {
	return s.store.SearchMembers(ctx, c, req)
}
