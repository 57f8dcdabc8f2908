package commissions

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/dariomutua/fundraza-backend/pkg/db/models"
	"github.com/dariomutua/fundraza-backend/pkg/enums"
	pkgerrors "github.com/dariomutua/fundraza-backend/pkg/errors"
	"github.com/dariomutua/fundraza-backend/pkg/metrics"
)

var oneHundred = decimal.NewFromInt(100)

// Settlement is the single event the engine evaluates: an assignment whose
// ledger just reached its expected amount exactly.
type Settlement struct {
	CampaignID      uuid.UUID
	AssignmentID    uuid.UUID
	UnitID          uuid.UUID
	EarnerValueID   uuid.UUID
	BaseAmountCents int
	IsExtraUnit     bool
	PaidOn          time.Time
}

// Engine turns a settlement into zero or more earned-commission rows. Rules
// are independent predicates with one exception: early and standard are
// date-exclusive of each other, while extra_units stacks on top of either.
type Engine interface {
	// EvaluateTx runs inside the payment transaction so commission rows
	// commit atomically with the settling payment.
	EvaluateTx(ctx context.Context, tx *gorm.DB, settlement Settlement) ([]models.CommissionEarned, error)
}

type engine struct {
	repo  Repository
	stats *metrics.LedgerMetrics
}

// NewEngine builds the settlement-time rule engine.
func NewEngine(repo Repository, stats *metrics.LedgerMetrics) (Engine, error) {
	if repo == nil {
		return nil, fmt.Errorf("commission repository required")
	}
	return &engine{repo: repo, stats: stats}, nil
}

func (e *engine) EvaluateTx(ctx context.Context, tx *gorm.DB, settlement Settlement) ([]models.CommissionEarned, error) {
	repo := e.repo.WithTx(tx)

	enabled, err := repo.ListEnabledRules(ctx, settlement.CampaignID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "load commission rules")
	}
	indexed := rulesByType(enabled)

	var earned []models.CommissionEarned
	if settlement.IsExtraUnit {
		if rule, ok := indexed[enums.CommissionRuleExtraUnits]; ok {
			earned = append(earned, e.buildRow(rule, settlement))
		}
	}
	if row, ok := e.matchDateRule(indexed, settlement); ok {
		earned = append(earned, row)
	}

	if len(earned) == 0 {
		return nil, nil
	}
	if err := repo.CreateEarned(ctx, earned); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "record earned commissions")
	}
	for _, row := range earned {
		e.stats.IncCommission(string(row.RuleType))
	}
	return earned, nil
}

// matchDateRule applies the early-else-standard branch. Early never matches
// without a threshold date; standard with no threshold has no date bound.
func (e *engine) matchDateRule(indexed map[enums.CommissionRuleType]models.CommissionRule, settlement Settlement) (models.CommissionEarned, bool) {
	if rule, ok := indexed[enums.CommissionRuleEarly]; ok {
		if rule.ThresholdDate != nil && !settlement.PaidOn.After(*rule.ThresholdDate) {
			return e.buildRow(rule, settlement), true
		}
	}
	if rule, ok := indexed[enums.CommissionRuleStandard]; ok {
		if rule.ThresholdDate == nil || !settlement.PaidOn.After(*rule.ThresholdDate) {
			return e.buildRow(rule, settlement), true
		}
	}
	return models.CommissionEarned{}, false
}

func (e *engine) buildRow(rule models.CommissionRule, settlement Settlement) models.CommissionEarned {
	base := decimal.NewFromInt(int64(settlement.BaseAmountCents))
	commission := base.Mul(rule.Percent).Div(oneHundred).Round(0)

	return models.CommissionEarned{
		AssignmentID:    settlement.AssignmentID,
		UnitID:          settlement.UnitID,
		RuleType:        rule.Type,
		Percent:         rule.Percent,
		BaseAmountCents: settlement.BaseAmountCents,
		CommissionCents: int(commission.IntPart()),
		EarnerValueID:   settlement.EarnerValueID,
		PaidOn:          settlement.PaidOn,
	}
}
