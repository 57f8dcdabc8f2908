package reports

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dariomutua/fundraza-backend/pkg/enums"
)

// StatusCountRow is one lifecycle bucket of a campaign's books.
type StatusCountRow struct {
	Status enums.UnitStatus `json:"status"`
	Total  int64            `json:"total"`
}

// MoneyTotalsRow aggregates the campaign ledger against its derived target.
type MoneyTotalsRow struct {
	ExpectedCents  int64 `json:"expected_cents"`
	CollectedCents int64 `json:"collected_cents"`
}

// EarnerCollectionRow groups collected money by the top-level hierarchy value.
type EarnerCollectionRow struct {
	EarnerValueID  uuid.UUID `json:"earner_value_id"`
	EarnerName     string    `json:"earner_name"`
	BookCount      int64     `json:"book_count"`
	CollectedCents int64     `json:"collected_cents"`
}

// CommissionPayoutRow groups earned commissions by earner and rule.
type CommissionPayoutRow struct {
	EarnerValueID   uuid.UUID                `json:"earner_value_id"`
	EarnerName      string                   `json:"earner_name"`
	RuleType        enums.CommissionRuleType `json:"rule_type"`
	RowCount        int64                    `json:"row_count"`
	CommissionCents int64                    `json:"commission_cents"`
}

// DuesPeriodRow summarizes the dues ledger for one month.
type DuesPeriodRow struct {
	PeriodKey   string `json:"period_key"`
	MemberCount int64  `json:"member_count"`
	TotalCents  int64  `json:"total_cents"`
}

// Repository runs the read-only rollup queries. Everything here is pure
// aggregation over committed ledger state.
type Repository interface {
	UnitStatusCounts(ctx context.Context, campaignID uuid.UUID) ([]StatusCountRow, error)
	MoneyTotals(ctx context.Context, campaignID uuid.UUID) (*MoneyTotalsRow, error)
	CollectionsByEarner(ctx context.Context, campaignID uuid.UUID) ([]EarnerCollectionRow, error)
	CommissionPayouts(ctx context.Context, campaignID uuid.UUID) ([]CommissionPayoutRow, error)
	DuesByPeriod(ctx context.Context) ([]DuesPeriodRow, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a reporting repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) UnitStatusCounts(ctx context.Context, campaignID uuid.UUID) ([]StatusCountRow, error) {
	var rows []StatusCountRow
	err := r.db.WithContext(ctx).Raw(`
		SELECT status, COUNT(*) AS total
		FROM units
		WHERE campaign_id = ?
		GROUP BY status`, campaignID).Scan(&rows).Error
	return rows, err
}

// MoneyTotals derives the expected amount from active assignments instead of
// storing it: unsold books carry no target.
func (r *repository) MoneyTotals(ctx context.Context, campaignID uuid.UUID) (*MoneyTotalsRow, error) {
	var totals MoneyTotalsRow
	err := r.db.WithContext(ctx).Raw(`
		SELECT
			COALESCE(SUM((u.range_end - u.range_start + 1) * c.ticket_price_cents), 0) AS expected_cents,
			COALESCE((
				SELECT SUM(pe.amount_cents)
				FROM payment_events pe
				JOIN assignments a2 ON a2.id = pe.assignment_id
				JOIN units u2 ON u2.id = a2.unit_id
				WHERE u2.campaign_id = ? AND pe.kind IN ('partial', 'full')
			), 0) AS collected_cents
		FROM assignments a
		JOIN units u ON u.id = a.unit_id
		JOIN campaigns c ON c.id = u.campaign_id
		WHERE u.campaign_id = ? AND a.retired = FALSE`, campaignID, campaignID).
		Scan(&totals).Error
	if err != nil {
		return nil, err
	}
	return &totals, nil
}

func (r *repository) CollectionsByEarner(ctx context.Context, campaignID uuid.UUID) ([]EarnerCollectionRow, error) {
	var rows []EarnerCollectionRow
	err := r.db.WithContext(ctx).Raw(`
		SELECT
			a.top_value_id AS earner_value_id,
			dv.name AS earner_name,
			COUNT(DISTINCT a.id) AS book_count,
			COALESCE(SUM(CASE WHEN pe.kind IN ('partial', 'full') THEN pe.amount_cents ELSE 0 END), 0) AS collected_cents
		FROM assignments a
		JOIN units u ON u.id = a.unit_id
		JOIN distribution_values dv ON dv.id = a.top_value_id
		LEFT JOIN payment_events pe ON pe.assignment_id = a.id
		WHERE u.campaign_id = ? AND a.retired = FALSE
		GROUP BY a.top_value_id, dv.name
		ORDER BY collected_cents DESC`, campaignID).Scan(&rows).Error
	return rows, err
}

func (r *repository) CommissionPayouts(ctx context.Context, campaignID uuid.UUID) ([]CommissionPayoutRow, error) {
	var rows []CommissionPayoutRow
	err := r.db.WithContext(ctx).Raw(`
		SELECT
			ce.earner_value_id,
			dv.name AS earner_name,
			ce.rule_type,
			COUNT(*) AS row_count,
			COALESCE(SUM(ce.commission_cents), 0) AS commission_cents
		FROM commission_earned ce
		JOIN units u ON u.id = ce.unit_id
		JOIN distribution_values dv ON dv.id = ce.earner_value_id
		WHERE u.campaign_id = ?
		GROUP BY ce.earner_value_id, dv.name, ce.rule_type
		ORDER BY dv.name, ce.rule_type`, campaignID).Scan(&rows).Error
	return rows, err
}

func (r *repository) DuesByPeriod(ctx context.Context) ([]DuesPeriodRow, error) {
	var rows []DuesPeriodRow
	err := r.db.WithContext(ctx).Raw(`
		SELECT
			period_key,
			COUNT(DISTINCT member_id) AS member_count,
			COALESCE(SUM(amount_cents), 0) AS total_cents
		FROM payment_events
		WHERE kind = 'dues'
		GROUP BY period_key
		ORDER BY period_key DESC`).Scan(&rows).Error
	return rows, err
}
