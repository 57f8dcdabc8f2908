package commissions

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/dariomutua/fundraza-backend/pkg/db/models"
	"github.com/dariomutua/fundraza-backend/pkg/enums"
)

type stubCommissionRepo struct {
	rules  []models.CommissionRule
	earned []models.CommissionEarned
}

func (s *stubCommissionRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubCommissionRepo) UpsertRule(ctx context.Context, rule *models.CommissionRule) error {
	panic("not implemented")
}

func (s *stubCommissionRepo) ListRules(ctx context.Context, campaignID uuid.UUID) ([]models.CommissionRule, error) {
	return s.rules, nil
}

func (s *stubCommissionRepo) ListEnabledRules(ctx context.Context, campaignID uuid.UUID) ([]models.CommissionRule, error) {
	var enabled []models.CommissionRule
	for _, rule := range s.rules {
		if rule.Enabled {
			enabled = append(enabled, rule)
		}
	}
	return enabled, nil
}

func (s *stubCommissionRepo) CreateEarned(ctx context.Context, rows []models.CommissionEarned) error {
	s.earned = append(s.earned, rows...)
	return nil
}

func (s *stubCommissionRepo) ListEarnedByAssignment(ctx context.Context, assignmentID uuid.UUID) ([]models.CommissionEarned, error) {
	return s.earned, nil
}

func rule(t enums.CommissionRuleType, enabled bool, percent string, threshold *time.Time) models.CommissionRule {
	return models.CommissionRule{
		ID:            uuid.New(),
		CampaignID:    uuid.New(),
		Type:          t,
		Enabled:       enabled,
		Percent:       decimal.RequireFromString(percent),
		ThresholdDate: threshold,
	}
}

func testSettlement(isExtra bool, paidOn time.Time) Settlement {
	return Settlement{
		CampaignID:      uuid.New(),
		AssignmentID:    uuid.New(),
		UnitID:          uuid.New(),
		EarnerValueID:   uuid.New(),
		BaseAmountCents: 100000,
		IsExtraUnit:     isExtra,
		PaidOn:          paidOn,
	}
}

func TestEvaluateStacksExtraUnitsOnEarly(t *testing.T) {
	threshold := time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC)
	repo := &stubCommissionRepo{rules: []models.CommissionRule{
		rule(enums.CommissionRuleEarly, true, "10", &threshold),
		rule(enums.CommissionRuleExtraUnits, true, "5", nil),
	}}

	engine, err := NewEngine(repo, nil)
	if err != nil {
		t.Fatalf("engine constructor failed: %v", err)
	}

	earned, err := engine.EvaluateTx(context.Background(), nil, testSettlement(true, threshold.AddDate(0, 0, -1)))
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if len(earned) != 2 {
		t.Fatalf("expected 2 commission rows got %d", len(earned))
	}

	byType := make(map[enums.CommissionRuleType]models.CommissionEarned)
	for _, row := range earned {
		byType[row.RuleType] = row
	}
	if byType[enums.CommissionRuleExtraUnits].CommissionCents != 5000 {
		t.Fatalf("extra_units: expected 5000 got %d", byType[enums.CommissionRuleExtraUnits].CommissionCents)
	}
	if byType[enums.CommissionRuleEarly].CommissionCents != 10000 {
		t.Fatalf("early: expected 10000 got %d", byType[enums.CommissionRuleEarly].CommissionCents)
	}
}

func TestEvaluateEarlyExcludesStandard(t *testing.T) {
	earlyThreshold := time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC)
	standardThreshold := time.Date(2026, 9, 30, 0, 0, 0, 0, time.UTC)
	repo := &stubCommissionRepo{rules: []models.CommissionRule{
		rule(enums.CommissionRuleEarly, true, "10", &earlyThreshold),
		rule(enums.CommissionRuleStandard, true, "7", &standardThreshold),
	}}

	engine, _ := NewEngine(repo, nil)
	earned, err := engine.EvaluateTx(context.Background(), nil, testSettlement(false, earlyThreshold.AddDate(0, 0, -1)))
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if len(earned) != 1 || earned[0].RuleType != enums.CommissionRuleEarly {
		t.Fatalf("expected only early to match, got %+v", earned)
	}
}

func TestEvaluateFallsBackToStandardAfterEarlyWindow(t *testing.T) {
	earlyThreshold := time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC)
	standardThreshold := time.Date(2026, 9, 30, 0, 0, 0, 0, time.UTC)
	repo := &stubCommissionRepo{rules: []models.CommissionRule{
		rule(enums.CommissionRuleEarly, true, "10", &earlyThreshold),
		rule(enums.CommissionRuleStandard, true, "7", &standardThreshold),
	}}

	engine, _ := NewEngine(repo, nil)
	earned, err := engine.EvaluateTx(context.Background(), nil, testSettlement(false, earlyThreshold.AddDate(0, 0, 5)))
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if len(earned) != 1 || earned[0].RuleType != enums.CommissionRuleStandard {
		t.Fatalf("expected only standard to match, got %+v", earned)
	}
	if earned[0].CommissionCents != 7000 {
		t.Fatalf("expected 7000 got %d", earned[0].CommissionCents)
	}
}

func TestEvaluateNoRulesMatch(t *testing.T) {
	standardThreshold := time.Date(2026, 9, 30, 0, 0, 0, 0, time.UTC)
	repo := &stubCommissionRepo{rules: []models.CommissionRule{
		rule(enums.CommissionRuleStandard, true, "7", &standardThreshold),
		rule(enums.CommissionRuleExtraUnits, false, "5", nil),
	}}

	engine, _ := NewEngine(repo, nil)
	earned, err := engine.EvaluateTx(context.Background(), nil, testSettlement(true, standardThreshold.AddDate(0, 0, 1)))
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if len(earned) != 0 {
		t.Fatalf("expected no commission rows got %d", len(earned))
	}
	if len(repo.earned) != 0 {
		t.Fatal("nothing may be written when no rule matches")
	}
}

func TestEvaluateDisabledEarlyIsIgnored(t *testing.T) {
	earlyThreshold := time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC)
	repo := &stubCommissionRepo{rules: []models.CommissionRule{
		rule(enums.CommissionRuleEarly, false, "10", &earlyThreshold),
		rule(enums.CommissionRuleStandard, true, "7", nil),
	}}

	engine, _ := NewEngine(repo, nil)
	earned, err := engine.EvaluateTx(context.Background(), nil, testSettlement(false, earlyThreshold.AddDate(0, 0, -10)))
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if len(earned) != 1 || earned[0].RuleType != enums.CommissionRuleStandard {
		t.Fatalf("expected standard to match, got %+v", earned)
	}
}

func TestEvaluateRoundsFractionalPercent(t *testing.T) {
	repo := &stubCommissionRepo{rules: []models.CommissionRule{
		rule(enums.CommissionRuleStandard, true, "7.5", nil),
	}}

	engine, _ := NewEngine(repo, nil)
	settlement := testSettlement(false, time.Now())
	settlement.BaseAmountCents = 99999

	earned, err := engine.EvaluateTx(context.Background(), nil, settlement)
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	// 99999 * 7.5% = 7499.925, rounds to 7500.
	if earned[0].CommissionCents != 7500 {
		t.Fatalf("expected 7500 got %d", earned[0].CommissionCents)
	}
}
