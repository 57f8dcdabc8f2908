package commissions

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dariomutua/fundraza-backend/pkg/db/models"
	"github.com/dariomutua/fundraza-backend/pkg/enums"
)

// Repository manages commission rules and earned rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	UpsertRule(ctx context.Context, rule *models.CommissionRule) error
	ListRules(ctx context.Context, campaignID uuid.UUID) ([]models.CommissionRule, error)
	ListEnabledRules(ctx context.Context, campaignID uuid.UUID) ([]models.CommissionRule, error)
	CreateEarned(ctx context.Context, rows []models.CommissionEarned) error
	ListEarnedByAssignment(ctx context.Context, assignmentID uuid.UUID) ([]models.CommissionEarned, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a commission repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// UpsertRule inserts or replaces the single rule row per (campaign, type).
func (r *repository) UpsertRule(ctx context.Context, rule *models.CommissionRule) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "campaign_id"}, {Name: "type"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"enabled", "percent", "threshold_date", "updated_at",
			}),
		}).
		Create(rule).Error
}

func (r *repository) ListRules(ctx context.Context, campaignID uuid.UUID) ([]models.CommissionRule, error) {
	var rules []models.CommissionRule
	if err := r.db.WithContext(ctx).
		Where("campaign_id = ?", campaignID).
		Order("type ASC").
		Find(&rules).Error; err != nil {
		return nil, err
	}
	return rules, nil
}

func (r *repository) ListEnabledRules(ctx context.Context, campaignID uuid.UUID) ([]models.CommissionRule, error) {
	var rules []models.CommissionRule
	if err := r.db.WithContext(ctx).
		Where("campaign_id = ? AND enabled = ?", campaignID, true).
		Find(&rules).Error; err != nil {
		return nil, err
	}
	return rules, nil
}

func (r *repository) CreateEarned(ctx context.Context, rows []models.CommissionEarned) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&rows).Error
}

func (r *repository) ListEarnedByAssignment(ctx context.Context, assignmentID uuid.UUID) ([]models.CommissionEarned, error) {
	var rows []models.CommissionEarned
	if err := r.db.WithContext(ctx).
		Where("assignment_id = ?", assignmentID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// rulesByType indexes enabled rules for the engine's predicate pass.
func rulesByType(rules []models.CommissionRule) map[enums.CommissionRuleType]models.CommissionRule {
	indexed := make(map[enums.CommissionRuleType]models.CommissionRule, len(rules))
	for _, rule := range rules {
		indexed[rule.Type] = rule
	}
	return indexed
}
