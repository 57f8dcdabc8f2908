package payments

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dariomutua/fundraza-backend/internal/activity"
	"github.com/dariomutua/fundraza-backend/internal/assignments"
	"github.com/dariomutua/fundraza-backend/internal/campaigns"
	"github.com/dariomutua/fundraza-backend/internal/commissions"
	"github.com/dariomutua/fundraza-backend/internal/units"
	"github.com/dariomutua/fundraza-backend/pkg/db/models"
	"github.com/dariomutua/fundraza-backend/pkg/enums"
	pkgerrors "github.com/dariomutua/fundraza-backend/pkg/errors"
	"github.com/dariomutua/fundraza-backend/pkg/metrics"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// RecordInput is one book payment against an assignment.
type RecordInput struct {
	AssignmentID uuid.UUID           `json:"assignment_id"`
	AmountCents  int                 `json:"amount_cents"`
	Method       enums.PaymentMethod `json:"method"`
	Kind         enums.PaymentKind   `json:"kind"`
	PaidOn       time.Time           `json:"paid_on"`
	CollectedBy  string              `json:"collected_by"`
	ReturnReason *string             `json:"return_reason,omitempty"`
}

// RecordResult reports the balance after a ledger write.
type RecordResult struct {
	TotalPaidCents   int  `json:"total_paid_cents"`
	OutstandingCents int  `json:"outstanding_cents"`
	Settled          bool `json:"settled"`
}

// LedgerView is the full reconciliation picture for one assignment.
type LedgerView struct {
	Assignment       models.Assignment         `json:"assignment"`
	Events           []models.PaymentEvent     `json:"events"`
	Commissions      []models.CommissionEarned `json:"commissions"`
	ExpectedCents    int                       `json:"expected_cents"`
	TotalPaidCents   int                       `json:"total_paid_cents"`
	OutstandingCents int                       `json:"outstanding_cents"`
}

// Service owns the book payment ledger. Every write runs in one transaction
// covering the balance check, the event insert, the unit transition and, at
// exact settlement, the commission evaluation.
type Service interface {
	Record(ctx context.Context, input RecordInput) (*RecordResult, error)
	Ledger(ctx context.Context, assignmentID uuid.UUID) (*LedgerView, error)
}

type service struct {
	tx           txRunner
	repo         Repository
	assignRepo   assignments.Repository
	unitRepo     units.Repository
	campaignRepo campaigns.Repository
	commRepo     commissions.Repository
	engine       commissions.Engine
	audit        activity.Recorder
	stats        *metrics.LedgerMetrics
}

// NewService builds the book payment service.
func NewService(
	tx txRunner,
	repo Repository,
	assignRepo assignments.Repository,
	unitRepo units.Repository,
	campaignRepo campaigns.Repository,
	commRepo commissions.Repository,
	engine commissions.Engine,
	audit activity.Recorder,
	stats *metrics.LedgerMetrics,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("payment repository required")
	}
	if assignRepo == nil {
		return nil, fmt.Errorf("assignment repository required")
	}
	if unitRepo == nil {
		return nil, fmt.Errorf("unit repository required")
	}
	if campaignRepo == nil {
		return nil, fmt.Errorf("campaign repository required")
	}
	if commRepo == nil {
		return nil, fmt.Errorf("commission repository required")
	}
	if engine == nil {
		return nil, fmt.Errorf("commission engine required")
	}
	if audit == nil {
		return nil, fmt.Errorf("activity recorder required")
	}
	return &service{
		tx:           tx,
		repo:         repo,
		assignRepo:   assignRepo,
		unitRepo:     unitRepo,
		campaignRepo: campaignRepo,
		commRepo:     commRepo,
		engine:       engine,
		audit:        audit,
		stats:        stats,
	}, nil
}

func (s *service) Record(ctx context.Context, input RecordInput) (*RecordResult, error) {
	if err := validateRecordInput(&input); err != nil {
		return nil, err
	}

	started := time.Now()
	var result *RecordResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		res, err := s.recordTx(ctx, tx, input)
		if err != nil {
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		return nil, err
	}

	if input.Kind == enums.PaymentKindReturn {
		s.stats.IncReturn()
	} else {
		s.stats.IncPayment(string(input.Kind))
	}
	if result.Settled {
		s.stats.IncSettlement()
	}
	s.stats.ObserveWrite("record_payment", time.Since(started))
	return result, nil
}

func (s *service) recordTx(ctx context.Context, tx *gorm.DB, input RecordInput) (*RecordResult, error) {
	assignment, err := s.assignRepo.WithTx(tx).FindByIDForUpdate(ctx, input.AssignmentID)
	if err != nil {
		if pkgerrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "assignment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "lock assignment")
	}
	if assignment.Retired {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "assignment is retired")
	}

	unit, err := s.unitRepo.WithTx(tx).FindByIDForUpdate(ctx, assignment.UnitID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "lock ticket book")
	}
	campaign, err := s.campaignRepo.WithTx(tx).FindByID(ctx, unit.CampaignID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "load campaign")
	}

	ledger := s.repo.WithTx(tx)
	expected := unit.ExpectedAmountCents(campaign.TicketPriceCents)
	totalPaid, err := ledger.SumCountable(ctx, assignment.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "sum ledger")
	}
	outstanding := expected - totalPaid

	if input.Kind == enums.PaymentKindReturn {
		return s.recordReturnTx(ctx, tx, assignment, unit, input)
	}

	// Settled is terminal: once the book leaves distributed no further
	// payment can touch the ledger or re-trigger the rule engine.
	if unit.Status != enums.UnitStatusDistributed {
		return nil, pkgerrors.New(pkgerrors.CodeConflict,
			"ticket book is no longer open for payments").
			WithDetails(map[string]string{"status": string(unit.Status)})
	}

	switch input.Kind {
	case enums.PaymentKindFull:
		if input.AmountCents != outstanding {
			return nil, pkgerrors.New(pkgerrors.CodeAmountMismatch,
				"full payment must equal the outstanding balance").
				WithDetails(map[string]int{
					"amount_cents":      input.AmountCents,
					"outstanding_cents": outstanding,
				})
		}
	case enums.PaymentKindPartial:
		if input.AmountCents <= 0 || input.AmountCents > outstanding {
			return nil, pkgerrors.New(pkgerrors.CodeInvalidAmount,
				"partial payment must be positive and within the outstanding balance").
				WithDetails(map[string]int{
					"amount_cents":      input.AmountCents,
					"outstanding_cents": outstanding,
				})
		}
	}

	event := models.PaymentEvent{
		AssignmentID: &assignment.ID,
		AmountCents:  input.AmountCents,
		Method:       input.Method,
		Kind:         input.Kind,
		PaidOn:       input.PaidOn,
		CollectedBy:  input.CollectedBy,
	}
	if err := ledger.Create(ctx, &event); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "append payment event")
	}

	newTotal := totalPaid + input.AmountCents
	settled := newTotal == expected
	if settled {
		if err := s.settleTx(ctx, tx, assignment, unit, expected, input.PaidOn); err != nil {
			return nil, err
		}
	}
	return &RecordResult{
		TotalPaidCents:   newTotal,
		OutstandingCents: expected - newTotal,
		Settled:          settled,
	}, nil
}

// settleTx closes the assignment: the book moves to settled and the rule
// engine runs before the transaction commits.
func (s *service) settleTx(ctx context.Context, tx *gorm.DB, assignment *models.Assignment, unit *models.Unit, expected int, paidOn time.Time) error {
	if err := s.unitRepo.WithTx(tx).UpdateStatus(ctx, unit.ID, enums.UnitStatusSettled); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "mark book settled")
	}

	_, err := s.engine.EvaluateTx(ctx, tx, commissions.Settlement{
		CampaignID:      unit.CampaignID,
		AssignmentID:    assignment.ID,
		UnitID:          unit.ID,
		EarnerValueID:   assignment.TopValueID,
		BaseAmountCents: expected,
		IsExtraUnit:     assignment.IsExtraUnit,
		PaidOn:          paidOn,
	})
	if err != nil {
		return err
	}

	entry := activity.Entry{
		CampaignID:   unit.CampaignID,
		AssignmentID: &assignment.ID,
		Kind:         enums.ActivitySettled,
		Message:      fmt.Sprintf("book %d settled", unit.BookNumber),
		ActorName:    assignment.AssignedBy,
	}
	if err := s.audit.Record(ctx, tx, entry); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "record settlement activity")
	}
	return nil
}

// recordReturnTx hands an untouched book back: the zero-amount return event
// is terminal for the assignment and frees the unit.
func (s *service) recordReturnTx(ctx context.Context, tx *gorm.DB, assignment *models.Assignment, unit *models.Unit, input RecordInput) (*RecordResult, error) {
	ledger := s.repo.WithTx(tx)

	count, err := ledger.CountByAssignment(ctx, assignment.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "count ledger events")
	}
	if count > 0 {
		return nil, pkgerrors.New(pkgerrors.CodePaymentsExist,
			"return only applies to assignments with no recorded payments")
	}

	event := models.PaymentEvent{
		AssignmentID: &assignment.ID,
		AmountCents:  0,
		Method:       input.Method,
		Kind:         enums.PaymentKindReturn,
		PaidOn:       input.PaidOn,
		CollectedBy:  input.CollectedBy,
		ReturnReason: input.ReturnReason,
	}
	if err := ledger.Create(ctx, &event); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "append return event")
	}

	if err := s.unitRepo.WithTx(tx).UpdateStatus(ctx, unit.ID, enums.UnitStatusAvailable); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "release ticket book")
	}
	if err := s.assignRepo.WithTx(tx).Retire(ctx, assignment.ID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "retire assignment")
	}

	entry := activity.Entry{
		CampaignID:   unit.CampaignID,
		AssignmentID: &assignment.ID,
		Kind:         enums.ActivityReturned,
		Message:      fmt.Sprintf("book %d returned", unit.BookNumber),
		ActorName:    input.CollectedBy,
	}
	if err := s.audit.Record(ctx, tx, entry); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "record return activity")
	}

	return &RecordResult{TotalPaidCents: 0, OutstandingCents: 0, Settled: false}, nil
}

func (s *service) Ledger(ctx context.Context, assignmentID uuid.UUID) (*LedgerView, error) {
	assignment, err := s.assignRepo.FindByID(ctx, assignmentID)
	if err != nil {
		if pkgerrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "assignment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "load assignment")
	}

	unit, err := s.unitRepo.FindByID(ctx, assignment.UnitID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "load ticket book")
	}
	campaign, err := s.campaignRepo.FindByID(ctx, unit.CampaignID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "load campaign")
	}

	events, err := s.repo.ListByAssignment(ctx, assignmentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "list ledger events")
	}
	earned, err := s.commRepo.ListEarnedByAssignment(ctx, assignmentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "list earned commissions")
	}

	expected := unit.ExpectedAmountCents(campaign.TicketPriceCents)
	totalPaid := 0
	for _, event := range events {
		if event.Kind.CountsTowardBalance() {
			totalPaid += event.AmountCents
		}
	}

	return &LedgerView{
		Assignment:       *assignment,
		Events:           events,
		Commissions:      earned,
		ExpectedCents:    expected,
		TotalPaidCents:   totalPaid,
		OutstandingCents: expected - totalPaid,
	}, nil
}

func validateRecordInput(input *RecordInput) error {
	if input.AssignmentID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "assignment id required")
	}
	switch input.Kind {
	case enums.PaymentKindPartial, enums.PaymentKindFull, enums.PaymentKindReturn:
	default:
		return pkgerrors.New(pkgerrors.CodeValidation, "kind must be partial, full or return")
	}
	if input.Kind == enums.PaymentKindReturn && input.AmountCents != 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "return events carry a zero amount")
	}
	if input.Kind != enums.PaymentKindReturn && input.AmountCents <= 0 {
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
