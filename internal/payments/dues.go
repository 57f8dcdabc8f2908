package payments

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/dariomutua/fundraza-backend/internal/members"
	"github.com/dariomutua/fundraza-backend/pkg/db"
	"github.com/dariomutua/fundraza-backend/pkg/db/models"
	"github.com/dariomutua/fundraza-backend/pkg/enums"
	pkgerrors "github.com/dariomutua/fundraza-backend/pkg/errors"
	"github.com/dariomutua/fundraza-backend/pkg/metrics"
)

// duesPeriodConstraint is the partial unique index that makes the dues
// ledger idempotent per member and month. A violation means a concurrent
// writer recorded the same period first.
const duesPeriodConstraint = "uniq_dues_member_period"

const periodLayout = "2006-01"

// DuesInput records one member's dues for a single month.
type DuesInput struct {
	MemberID    uuid.UUID           `json:"member_id"`
	PeriodKey   string              `json:"period_key"`
	AmountCents int                 `json:"amount_cents"`
	Method      enums.PaymentMethod `json:"method"`
	PaidOn      time.Time           `json:"paid_on"`
	CollectedBy string              `json:"collected_by"`
}

// ImportRow is one raw line of a bulk dues file. Members resolve by mobile
// first, then by exact full name.
type ImportRow struct {
	Mobile      string `json:"mobile"`
	FullName    string `json:"full_name"`
	PeriodKey   string `json:"period_key"`
	AmountCents int    `json:"amount_cents"`
	Method      string `json:"method"`
}

// Row outcomes reported by the import phases.
const (
	ImportRowOK        = "ok"
	ImportRowDuplicate = "duplicate"
	ImportRowError     = "error"
	ImportRowInserted  = "inserted"
	ImportRowSkipped   = "skipped"
)

// PreviewRow is the per-line verdict of the validation phase.
type PreviewRow struct {
	Index      int        `json:"index"`
	MemberID   *uuid.UUID `json:"member_id,omitempty"`
	MemberName string     `json:"member_name,omitempty"`
	PeriodKey  string     `json:"period_key"`
	Status     string     `json:"status"`
	Reason     string     `json:"reason,omitempty"`
}

// PreviewReport summarizes a dry run. Nothing is written; the caller
// round-trips the same rows back to CommitImport.
type PreviewReport struct {
	Rows           []PreviewRow `json:"rows"`
	OKCount        int          `json:"ok_count"`
	DuplicateCount int          `json:"duplicate_count"`
	ErrorCount     int          `json:"error_count"`
}

// CommitInput is the second phase of the import protocol.
type CommitInput struct {
	Rows           []ImportRow `json:"rows"`
	SkipDuplicates bool        `json:"skip_duplicates"`
	CollectedBy    string      `json:"collected_by"`
	PaidOn         time.Time   `json:"paid_on"`
}

// CommitReport summarizes what the commit transaction wrote.
type CommitReport struct {
	InsertedCount int          `json:"inserted_count"`
	SkippedCount  int          `json:"skipped_count"`
	Rows          []PreviewRow `json:"rows"`
}

// DuesService owns the month-keyed recurring dues ledger.
type DuesService interface {
	Record(ctx context.Context, input DuesInput) (*models.PaymentEvent, error)
	PreviewImport(ctx context.Context, rows []ImportRow) (*PreviewReport, error)
	CommitImport(ctx context.Context, input CommitInput) (*CommitReport, error)
	MemberHistory(ctx context.Context, memberID uuid.UUID) ([]models.PaymentEvent, error)
}

type duesService struct {
	tx      txRunner
	repo    Repository
	members members.Service
	stats   *metrics.LedgerMetrics
	maxRows int
}

// NewDuesService builds the recurring dues service. maxRows bounds a single
// import call; larger files must be chunked by the caller.
func NewDuesService(tx txRunner, repo Repository, memberSvc members.Service, stats *metrics.LedgerMetrics, maxRows int) (DuesService, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("payment repository required")
	}
	if memberSvc == nil {
		return nil, fmt.Errorf("member service required")
	}
	if maxRows <= 0 {
		maxRows = 500
	}
	return &duesService{tx: tx, repo: repo, members: memberSvc, stats: stats, maxRows: maxRows}, nil
}

func (s *duesService) Record(ctx context.Context, input DuesInput) (*models.PaymentEvent, error) {
	if err := validateDuesInput(&input); err != nil {
		return nil, err
	}
	if _, err := s.members.Get(ctx, input.MemberID); err != nil {
		return nil, err
	}

	var event *models.PaymentEvent
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		created, err := s.recordDuesTx(ctx, tx, input)
		if err != nil {
			return err
		}
		event = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.stats.IncPayment(string(enums.PaymentKindDues))
	return event, nil
}

// recordDuesTx does the check-then-insert under the caller's transaction.
// The pre-check is an optimistic fast path; the partial unique index is the
// authoritative guard against a concurrent writer.
func (s *duesService) recordDuesTx(ctx context.Context, tx *gorm.DB, input DuesInput) (*models.PaymentEvent, error) {
	ledger := s.repo.WithTx(tx)

	exists, err := ledger.ExistsDues(ctx, input.MemberID, input.PeriodKey)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "check dues period")
	}
	if exists {
		return nil, duplicatePeriodError(input.MemberID, input.PeriodKey)
	}

	event := models.PaymentEvent{
		MemberID:    &input.MemberID,
		PeriodKey:   &input.PeriodKey,
		AmountCents: input.AmountCents,
		Method:      input.Method,
		Kind:        enums.PaymentKindDues,
		PaidOn:      input.PaidOn,
		CollectedBy: input.CollectedBy,
	}
	if err := ledger.Create(ctx, &event); err != nil {
		if db.IsUniqueViolation(err, duesPeriodConstraint) {
			return nil, duplicatePeriodError(input.MemberID, input.PeriodKey)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "append dues event")
	}
	return &event, nil
}

func (s *duesService) PreviewImport(ctx context.Context, rows []ImportRow) (*PreviewReport, error) {
	if err := s.checkRowCount(rows); err != nil {
		return nil, err
	}

	report := &PreviewReport{Rows: make([]PreviewRow, 0, len(rows))}
	for i, raw := range rows {
		verdict := s.previewRow(ctx, i, raw)
		switch verdict.Status {
		case ImportRowOK:
			report.OKCount++
		case ImportRowDuplicate:
			report.DuplicateCount++
		default:
			report.ErrorCount++
		}
		report.Rows = append(report.Rows, verdict)
	}
	return report, nil
}

func (s *duesService) previewRow(ctx context.Context, index int, raw ImportRow) PreviewRow {
	verdict := PreviewRow{Index: index, PeriodKey: strings.TrimSpace(raw.PeriodKey)}

	member, _, _, err := s.resolveRow(ctx, raw)
	if err != nil {
		verdict.Status = ImportRowError
		verdict.Reason = err.Error()
		return verdict
	}
	verdict.MemberID = &member.ID
	verdict.MemberName = member.FullName

	exists, err := s.repo.ExistsDues(ctx, member.ID, verdict.PeriodKey)
	if err != nil {
		verdict.Status = ImportRowError
		verdict.Reason = "storage unavailable"
		return verdict
	}
	if exists {
		verdict.Status = ImportRowDuplicate
		verdict.Reason = "dues already recorded for this period"
		return verdict
	}
	verdict.Status = ImportRowOK
	return verdict
}

// CommitImport re-validates and writes in one transaction. Validation
// failures abort the whole batch before any write; duplicates discovered at
// commit time are skipped only when the caller opted in.
func (s *duesService) CommitImport(ctx context.Context, input CommitInput) (*CommitReport, error) {
	if err := s.checkRowCount(input.Rows); err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.CollectedBy) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "collected_by required")
	}
	if input.PaidOn.IsZero() {
		input.PaidOn = time.Now().UTC()
	}

	type resolvedRow struct {
		index     int
		memberID  uuid.UUID
		name      string
		periodKey string
		amount    int
		method    enums.PaymentMethod
	}

	resolved := make([]resolvedRow, 0, len(input.Rows))
	var rowErrs error
	for i, raw := range input.Rows {
		member, amount, method, err := s.resolveRow(ctx, raw)
		if err != nil {
			rowErrs = multierr.Append(rowErrs, fmt.Errorf("row %d: %w", i, err))
			continue
		}
		resolved = append(resolved, resolvedRow{
			index:     i,
			memberID:  member.ID,
			name:      member.FullName,
			periodKey: strings.TrimSpace(raw.PeriodKey),
			amount:    amount,
			method:    method,
		})
	}
	if rowErrs != nil {
		reasons := make([]string, 0, len(multierr.Errors(rowErrs)))
		for _, e := range multierr.Errors(rowErrs) {
			reasons = append(reasons, e.Error())
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, rowErrs, "import rows failed validation").
			WithDetails(map[string]any{"rows": reasons})
	}

	report := &CommitReport{Rows: make([]PreviewRow, 0, len(resolved))}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		for _, row := range resolved {
			_, err := s.recordDuesTx(ctx, tx, DuesInput{
				MemberID:    row.memberID,
				PeriodKey:   row.periodKey,
				AmountCents: row.amount,
				Method:      row.method,
				PaidOn:      input.PaidOn,
				CollectedBy: strings.TrimSpace(input.CollectedBy),
			})
			if err != nil {
				if pkgerrors.HasCode(err, pkgerrors.CodeDuplicatePeriod) && input.SkipDuplicates {
					report.SkippedCount++
					report.Rows = append(report.Rows, PreviewRow{
						Index:      row.index,
						MemberID:   &row.memberID,
						MemberName: row.name,
						PeriodKey:  row.periodKey,
						Status:     ImportRowSkipped,
						Reason:     "dues already recorded for this period",
					})
					continue
				}
				return err
			}
			report.InsertedCount++
			report.Rows = append(report.Rows, PreviewRow{
				Index:      row.index,
				MemberID:   &row.memberID,
				MemberName: row.name,
				PeriodKey:  row.periodKey,
				Status:     ImportRowInserted,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for i := 0; i < report.InsertedCount; i++ {
		s.stats.IncImportRow(ImportRowInserted)
	}
	for i := 0; i < report.SkippedCount; i++ {
		s.stats.IncImportRow(ImportRowSkipped)
	}
	return report, nil
}

func (s *duesService) MemberHistory(ctx context.Context, memberID uuid.UUID) ([]models.PaymentEvent, error) {
	if _, err := s.members.Get(ctx, memberID); err != nil {
		return nil, err
	}
	events, err := s.repo.ListDuesByMember(ctx, memberID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "list dues history")
	}
	return events, nil
}

// resolveRow validates one import line and resolves its member.
func (s *duesService) resolveRow(ctx context.Context, raw ImportRow) (*models.Member, int, enums.PaymentMethod, error) {
	if err := validatePeriodKey(strings.TrimSpace(raw.PeriodKey)); err != nil {
		return nil, 0, "", err
	}
	if raw.AmountCents <= 0 {
		return nil, 0, "", pkgerrors.New(pkgerrors.CodeInvalidAmount, "amount must be positive")
	}

	method := enums.PaymentMethodCash
	if strings.TrimSpace(raw.Method) != "" {
		parsed, err := enums.ParsePaymentMethod(strings.TrimSpace(raw.Method))
		if err != nil {
			return nil, 0, "", pkgerrors.New(pkgerrors.CodeValidation, err.Error())
		}
		method = parsed
	}

	member, err := s.members.Resolve(ctx, raw.Mobile, raw.FullName)
	if err != nil {
		return nil, 0, "", err
	}
	return member, raw.AmountCents, method, nil
}

func (s *duesService) checkRowCount(rows []ImportRow) error {
	if len(rows) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "no rows to import")
	}
	if len(rows) > s.maxRows {
		return pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("import is limited to %d rows per call", s.maxRows))
	}
	return nil
}

func validateDuesInput(input *DuesInput) error {
	if input.MemberID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "member id required")
	}
	input.PeriodKey = strings.TrimSpace(input.PeriodKey)
	if err := validatePeriodKey(input.PeriodKey); err != nil {
		return err
	}
	if input.AmountCents <= 0 {
		return pkgerrors.New(pkgerrors.CodeInvalidAmount, "amount must be positive")
	}
	if !input.Method.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown payment method")
	}
	if strings.TrimSpace(input.CollectedBy) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "collected_by required")
	}
	input.CollectedBy = strings.TrimSpace(input.CollectedBy)
	if input.PaidOn.IsZero() {
		input.PaidOn = time.Now().UTC()
	}
	return nil
}

func validatePeriodKey(periodKey string) error {
	if _, err := time.Parse(periodLayout, periodKey); err != nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "period must be formatted YYYY-MM")
	}
	return nil
}

func duplicatePeriodError(memberID uuid.UUID, periodKey string) *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeDuplicatePeriod, "dues already recorded for this period").
		WithDetails(map[string]string{
			"member_id":  memberID.String(),
			"period_key": periodKey,
		})
}
