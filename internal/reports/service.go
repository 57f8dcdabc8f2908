package reports

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/dariomutua/fundraza-backend/pkg/enums"
	pkgerrors "github.com/dariomutua/fundraza-backend/pkg/errors"
)

// CampaignSummary is the top-line reconciliation view for one campaign.
type CampaignSummary struct {
	CampaignID       uuid.UUID        `json:"campaign_id"`
	StatusCounts     []StatusCountRow `json:"status_counts"`
	ExpectedCents    int64            `json:"expected_cents"`
	CollectedCents   int64            `json:"collected_cents"`
	OutstandingCents int64            `json:"outstanding_cents"`
}

// Service exposes the read-only rollups.
type Service interface {
	CampaignSummary(ctx context.Context, campaignID uuid.UUID) (*CampaignSummary, error)
	CollectionsByEarner(ctx context.Context, campaignID uuid.UUID) ([]EarnerCollectionRow, error)
	CommissionPayouts(ctx context.Context, campaignID uuid.UUID) ([]CommissionPayoutRow, error)
	DuesSummary(ctx context.Context) ([]DuesPeriodRow, error)
}

type service struct {
	repo Repository
}

// NewService constructs a reporting service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("report repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) CampaignSummary(ctx context.Context, campaignID uuid.UUID) (*CampaignSummary, error) {
	counts, err := s.repo.UnitStatusCounts(ctx, campaignID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "count unit statuses")
	}
	totals, err := s.repo.MoneyTotals(ctx, campaignID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "total campaign ledger")
	}

	// Every lifecycle bucket shows up even when empty.
	present := make(map[enums.UnitStatus]bool, len(counts))
	for _, row := range counts {
		present[row.Status] = true
	}
	for _, status := range []enums.UnitStatus{
		enums.UnitStatusAvailable,
		enums.UnitStatusDistributed,
		enums.UnitStatusSettled,
		enums.UnitStatusReturned,
	} {
		if !present[status] {
			counts = append(counts, StatusCountRow{Status: status})
		}
	}

	return &CampaignSummary{
		CampaignID:       campaignID,
		StatusCounts:     counts,
		ExpectedCents:    totals.ExpectedCents,
		CollectedCents:   totals.CollectedCents,
		OutstandingCents: totals.ExpectedCents - totals.CollectedCents,
	}, nil
}

func (s *service) CollectionsByEarner(ctx context.Context, campaignID uuid.UUID) ([]EarnerCollectionRow, error) {
	rows, err := s.repo.CollectionsByEarner(ctx, campaignID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "roll up collections")
	}
	return rows, nil
}

func (s *service) CommissionPayouts(ctx context.Context, campaignID uuid.UUID) ([]CommissionPayoutRow, error) {
	rows, err := s.repo.CommissionPayouts(ctx, campaignID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "roll up commissions")
	}
	return rows, nil
}

func (s *service) DuesSummary(ctx context.Context) ([]DuesPeriodRow, error) {
	rows, err := s.repo.DuesByPeriod(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "roll up dues")
	}
	return rows, nil
}
