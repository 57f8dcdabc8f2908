package units

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dariomutua/fundraza-backend/pkg/db/models"
	"github.com/dariomutua/fundraza-backend/pkg/enums"
	"github.com/dariomutua/fundraza-backend/pkg/errors"
	"github.com/dariomutua/fundraza-backend/pkg/pagination"
)

// StatusCounts summarizes a campaign's book inventory by lifecycle state.
type StatusCounts struct {
	Available   int64 `json:"available"`
	Distributed int64 `json:"distributed"`
	Settled     int64 `json:"settled"`
	Returned    int64 `json:"returned"`
}

// Service exposes read access to ticket books. Status transitions happen
// inside assignment and payment transactions, not here.
type Service interface {
	Get(ctx context.Context, unitID uuid.UUID) (*models.Unit, error)
	List(ctx context.Context, campaignID uuid.UUID, status *enums.UnitStatus, params pagination.Params) ([]models.Unit, string, error)
	Counts(ctx context.Context, campaignID uuid.UUID) (*StatusCounts, error)
}

type service struct {
	repo Repository
}

// NewService constructs a unit service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("unit repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Get(ctx context.Context, unitID uuid.UUID) (*models.Unit, error) {
	unit, err := s.repo.FindByID(ctx, unitID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New(errors.CodeNotFound, "ticket book not found")
		}
		return nil, errors.Wrap(errors.CodeStorage, err, "failed to load ticket book")
	}
	return unit, nil
}

func (s *service) List(ctx context.Context, campaignID uuid.UUID, status *enums.UnitStatus, params pagination.Params) ([]models.Unit, string, error) {
	rows, err := s.repo.ListByCampaign(ctx, campaignID, status, params)
	if err != nil {
		return nil, "", errors.Wrap(errors.CodeStorage, err, "failed to list ticket books")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	next := ""
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		next = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return rows, next, nil
}

func (s *service) Counts(ctx context.Context, campaignID uuid.UUID) (*StatusCounts, error) {
	byStatus, err := s.repo.CountByStatus(ctx, campaignID)
	if err != nil {
		return nil, errors.Wrap(errors.CodeStorage, err, "failed to count ticket books")
	}
	return &StatusCounts{
		Available:   byStatus[enums.UnitStatusAvailable],
		Distributed: byStatus[enums.UnitStatusDistributed],
		Settled:     byStatus[enums.UnitStatusSettled],
		Returned:    byStatus[enums.UnitStatusReturned],
	}, nil
}
