package members

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dariomutua/fundraza-backend/pkg/db/models"
	pkgerrors "github.com/dariomutua/fundraza-backend/pkg/errors"
)

// Service resolves directory members for the dues ledger. Mobile numbers are
// the primary handle; an exact full-name match is the fallback and must be
// unambiguous.
type Service interface {
	Get(ctx context.Context, memberID uuid.UUID) (*models.Member, error)
	Resolve(ctx context.Context, mobile, fullName string) (*models.Member, error)
}

type service struct {
	repo Repository
}

// NewService constructs a member service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("member repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Get(ctx context.Context, memberID uuid.UUID) (*models.Member, error) {
	member, err := s.repo.FindByID(ctx, memberID)
	if err != nil {
		if pkgerrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "member not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "load member")
	}
	return member, nil
}

func (s *service) Resolve(ctx context.Context, mobile, fullName string) (*models.Member, error) {
	mobile = strings.TrimSpace(mobile)
	fullName = strings.TrimSpace(fullName)

	if mobile != "" {
		member, err := s.repo.FindByMobile(ctx, mobile)
		if err == nil {
			return member, nil
		}
		if !pkgerrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "resolve member by mobile")
		}
	}

	if fullName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeMemberNotResolved, "no member matches the given mobile").
			WithDetails(map[string]string{"mobile": mobile})
	}

	matches, err := s.repo.FindByName(ctx, fullName)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "resolve member by name")
	}
	switch len(matches) {
	case 0:
		return nil, pkgerrors.New(pkgerrors.CodeMemberNotResolved, "no member matches the given name").
			WithDetails(map[string]string{"full_name": fullName})
	case 1:
		return &matches[0], nil
	default:
		return nil, pkgerrors.New(pkgerrors.CodeMemberNotResolved,
			fmt.Sprintf("name matches %d members; use a mobile number", len(matches))).
			WithDetails(map[string]string{"full_name": fullName})
	}
}
