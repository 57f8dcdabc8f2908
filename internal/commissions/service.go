package commissions

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dariomutua/fundraza-backend/pkg/db/models"
	"github.com/dariomutua/fundraza-backend/pkg/enums"
	pkgerrors "github.com/dariomutua/fundraza-backend/pkg/errors"
)

// RuleInput configures one rule for a campaign. Upserting the same type
// replaces the previous configuration.
type RuleInput struct {
	CampaignID    uuid.UUID                `json:"campaign_id"`
	Type          enums.CommissionRuleType `json:"type"`
	Enabled       bool                     `json:"enabled"`
	Percent       decimal.Decimal          `json:"percent"`
	ThresholdDate *time.Time               `json:"threshold_date,omitempty"`
}

// Service manages rule configuration and earned-commission reads.
type Service interface {
	UpsertRule(ctx context.Context, input RuleInput) (*models.CommissionRule, error)
	ListRules(ctx context.Context, campaignID uuid.UUID) ([]models.CommissionRule, error)
	ListEarnedByAssignment(ctx context.Context, assignmentID uuid.UUID) ([]models.CommissionEarned, error)
}

type service struct {
	repo Repository
}

// NewService constructs a commission configuration service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("commission repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) UpsertRule(ctx context.Context, input RuleInput) (*models.CommissionRule, error) {
	if input.CampaignID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "campaign id required")
	}
	if !input.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown commission rule type")
	}
	if input.Percent.IsNegative() || input.Percent.GreaterThan(decimal.NewFromInt(100)) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "percent must be between 0 and 100")
	}
	if input.Type == enums.CommissionRuleEarly && input.Enabled && input.ThresholdDate == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "early rule requires a threshold date")
	}
	if input.Type == enums.CommissionRuleExtraUnits && input.ThresholdDate != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "extra_units rule does not take a threshold date")
	}

	rule := &models.CommissionRule{
		CampaignID:    input.CampaignID,
		Type:          input.Type,
		Enabled:       input.Enabled,
		Percent:       input.Percent,
		ThresholdDate: input.ThresholdDate,
	}
	if err := s.repo.UpsertRule(ctx, rule); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "upsert commission rule")
	}
	return rule, nil
}

func (s *service) ListRules(ctx context.Context, campaignID uuid.UUID) ([]models.CommissionRule, error) {
	rules, err := s.repo.ListRules(ctx, campaignID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "list commission rules")
	}
	return rules, nil
}

func (s *service) ListEarnedByAssignment(ctx context.Context, assignmentID uuid.UUID) ([]models.CommissionEarned, error) {
	rows, err := s.repo.ListEarnedByAssignment(ctx, assignmentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "list earned commissions")
	}
	return rows, nil
}
