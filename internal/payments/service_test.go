package payments

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
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
	"github.com/dariomutua/fundraza-backend/pkg/pagination"
)

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubLedgerRepo struct {
	events []models.PaymentEvent
}

func (s *stubLedgerRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubLedgerRepo) Create(ctx context.Context, event *models.PaymentEvent) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	s.events = append(s.events, *event)
	return nil
}

func (s *stubLedgerRepo) CreateBatch(ctx context.Context, events []models.PaymentEvent) error {
	for i := range events {
		if err := s.Create(ctx, &events[i]); err != nil {
			return err
		}
	}
	return nil
}

func (s *stubLedgerRepo) ListByAssignment(ctx context.Context, assignmentID uuid.UUID) ([]models.PaymentEvent, error) {
	var out []models.PaymentEvent
	for _, event := range s.events {
		if event.AssignmentID != nil && *event.AssignmentID == assignmentID {
			out = append(out, event)
		}
	}
	return out, nil
}

func (s *stubLedgerRepo) SumCountable(ctx context.Context, assignmentID uuid.UUID) (int, error) {
	total := 0
	for _, event := range s.events {
		if event.AssignmentID != nil && *event.AssignmentID == assignmentID && event.Kind.CountsTowardBalance() {
			total += event.AmountCents
		}
	}
	return total, nil
}

func (s *stubLedgerRepo) CountByAssignment(ctx context.Context, assignmentID uuid.UUID) (int64, error) {
	var count int64
	for _, event := range s.events {
		if event.AssignmentID != nil && *event.AssignmentID == assignmentID {
			count++
		}
	}
	return count, nil
}

func (s *stubLedgerRepo) ExistsDues(ctx context.Context, memberID uuid.UUID, periodKey string) (bool, error) {
	for _, event := range s.events {
		if event.Kind != enums.PaymentKindDues {
			continue
		}
		if event.MemberID != nil && *event.MemberID == memberID &&
			event.PeriodKey != nil && *event.PeriodKey == periodKey {
			return true, nil
		}
	}
	return false, nil
}

func (s *stubLedgerRepo) ListDuesByMember(ctx context.Context, memberID uuid.UUID) ([]models.PaymentEvent, error) {
	var out []models.PaymentEvent
	for _, event := range s.events {
		if event.Kind == enums.PaymentKindDues && event.MemberID != nil && *event.MemberID == memberID {
			out = append(out, event)
		}
	}
	return out, nil
}

func (s *stubLedgerRepo) HasEventsTx(ctx context.Context, tx *gorm.DB, assignmentID uuid.UUID) (bool, error) {
	count, err := s.CountByAssignment(ctx, assignmentID)
	return count > 0, err
}

type stubAssignmentRepo struct {
	assignments map[uuid.UUID]*models.Assignment
}

func newStubAssignmentRepo(seed ...*models.Assignment) *stubAssignmentRepo {
	repo := &stubAssignmentRepo{assignments: make(map[uuid.UUID]*models.Assignment)}
	for _, a := range seed {
		repo.assignments[a.ID] = a
	}
	return repo
}

func (s *stubAssignmentRepo) WithTx(tx *gorm.DB) assignments.Repository { return s }

func (s *stubAssignmentRepo) Create(ctx context.Context, assignment *models.Assignment) error {
	panic("not implemented")
}

func (s *stubAssignmentRepo) FindByID(ctx context.Context, assignmentID uuid.UUID) (*models.Assignment, error) {
	if a, ok := s.assignments[assignmentID]; ok {
		return a, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubAssignmentRepo) FindByIDForUpdate(ctx context.Context, assignmentID uuid.UUID) (*models.Assignment, error) {
	return s.FindByID(ctx, assignmentID)
}

func (s *stubAssignmentRepo) FindActiveByUnitID(ctx context.Context, unitID uuid.UUID) (*models.Assignment, error) {
	panic("not implemented")
}

func (s *stubAssignmentRepo) Update(ctx context.Context, assignment *models.Assignment) error {
	panic("not implemented")
}

func (s *stubAssignmentRepo) Retire(ctx context.Context, assignmentID uuid.UUID) error {
	if a, ok := s.assignments[assignmentID]; ok {
		a.Retired = true
	}
	return nil
}

func (s *stubAssignmentRepo) ListByCampaign(ctx context.Context, campaignID uuid.UUID, params pagination.Params) ([]models.Assignment, error) {
	panic("not implemented")
}

type stubUnitRepo struct {
	units map[uuid.UUID]*models.Unit
}

func newStubUnitRepo(seed ...*models.Unit) *stubUnitRepo {
	repo := &stubUnitRepo{units: make(map[uuid.UUID]*models.Unit)}
	for _, u := range seed {
		repo.units[u.ID] = u
	}
	return repo
}

func (s *stubUnitRepo) WithTx(tx *gorm.DB) units.Repository { return s }

func (s *stubUnitRepo) CreateBatch(ctx context.Context, batch []models.Unit) error {
	panic("not implemented")
}

func (s *stubUnitRepo) FindByID(ctx context.Context, unitID uuid.UUID) (*models.Unit, error) {
	if u, ok := s.units[unitID]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubUnitRepo) FindByIDForUpdate(ctx context.Context, unitID uuid.UUID) (*models.Unit, error) {
	return s.FindByID(ctx, unitID)
}

func (s *stubUnitRepo) UpdateStatus(ctx context.Context, unitID uuid.UUID, status enums.UnitStatus) error {
	if u, ok := s.units[unitID]; ok {
		u.Status = status
	}
	return nil
}

func (s *stubUnitRepo) ListByCampaign(ctx context.Context, campaignID uuid.UUID, status *enums.UnitStatus, params pagination.Params) ([]models.Unit, error) {
	panic("not implemented")
}

func (s *stubUnitRepo) CountByStatus(ctx context.Context, campaignID uuid.UUID) (map[enums.UnitStatus]int64, error) {
	panic("not implemented")
}

type stubCampaignRepo struct {
	campaign *models.Campaign
}

func (s *stubCampaignRepo) WithTx(tx *gorm.DB) campaigns.Repository { return s }

func (s *stubCampaignRepo) Create(ctx context.Context, campaign *models.Campaign) error {
	panic("not implemented")
}

func (s *stubCampaignRepo) FindByID(ctx context.Context, campaignID uuid.UUID) (*models.Campaign, error) {
	if s.campaign != nil && s.campaign.ID == campaignID {
		return s.campaign, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubCampaignRepo) List(ctx context.Context) ([]models.Campaign, error) {
	panic("not implemented")
}

type stubCommissionRepo struct {
	earned []models.CommissionEarned
}

func (s *stubCommissionRepo) WithTx(tx *gorm.DB) commissions.Repository { return s }

func (s *stubCommissionRepo) UpsertRule(ctx context.Context, rule *models.CommissionRule) error {
	panic("not implemented")
}

func (s *stubCommissionRepo) ListRules(ctx context.Context, campaignID uuid.UUID) ([]models.CommissionRule, error) {
	panic("not implemented")
}

func (s *stubCommissionRepo) ListEnabledRules(ctx context.Context, campaignID uuid.UUID) ([]models.CommissionRule, error) {
	return nil, nil
}

func (s *stubCommissionRepo) CreateEarned(ctx context.Context, rows []models.CommissionEarned) error {
	s.earned = append(s.earned, rows...)
	return nil
}

func (s *stubCommissionRepo) ListEarnedByAssignment(ctx context.Context, assignmentID uuid.UUID) ([]models.CommissionEarned, error) {
	return s.earned, nil
}

type stubEngine struct {
	called      int
	settlements []commissions.Settlement
}

func (s *stubEngine) EvaluateTx(ctx context.Context, tx *gorm.DB, settlement commissions.Settlement) ([]models.CommissionEarned, error) {
	s.called++
	s.settlements = append(s.settlements, settlement)
	return nil, nil
}

type stubRecorder struct {
	entries []activity.Entry
}

func (s *stubRecorder) Record(ctx context.Context, tx *gorm.DB, entry activity.Entry) error {
	s.entries = append(s.entries, entry)
	return nil
}

func (s *stubRecorder) List(ctx context.Context, campaignID uuid.UUID, limit int) ([]models.ActivityLog, error) {
	return nil, nil
}

type paymentFixture struct {
	svc        Service
	ledger     *stubLedgerRepo
	assignment *models.Assignment
	unit       *models.Unit
	engine     *stubEngine
	recorder   *stubRecorder
}

// newPaymentFixture wires a 5-ticket book at 200 cents per ticket, so the
// expected amount is an even 1000.
func newPaymentFixture(t *testing.T) *paymentFixture {
	t.Helper()
	return newPaymentFixtureWithStats(t, nil)
}

func newPaymentFixtureWithStats(t *testing.T, stats *metrics.LedgerMetrics) *paymentFixture {
	t.Helper()

	campaign := &models.Campaign{
		ID:               uuid.New(),
		Name:             "Spring Raffle",
		TicketPriceCents: 200,
		TicketsPerBook:   5,
	}
	unit := &models.Unit{
		ID:         uuid.New(),
		CampaignID: campaign.ID,
		BookNumber: 1,
		RangeStart: 1,
		RangeEnd:   5,
		Status:     enums.UnitStatusDistributed,
	}
	assignment := &models.Assignment{
		ID:         uuid.New(),
		UnitID:     unit.ID,
		TopValueID: uuid.New(),
		AssignedBy: "clerk",
	}

	ledger := &stubLedgerRepo{}
	engine := &stubEngine{}
	recorder := &stubRecorder{}

	svc, err := NewService(
		stubTxRunner{},
		ledger,
		newStubAssignmentRepo(assignment),
		newStubUnitRepo(unit),
		&stubCampaignRepo{campaign: campaign},
		&stubCommissionRepo{},
		engine,
		recorder,
		stats,
	)
	if err != nil {
		t.Fatalf("service constructor failed: %v", err)
	}
	return &paymentFixture{
		svc:        svc,
		ledger:     ledger,
		assignment: assignment,
		unit:       unit,
		engine:     engine,
		recorder:   recorder,
	}
}

func TestRecordPartialThenFullSettles(t *testing.T) {
	fx := newPaymentFixture(t)

	first, err := fx.svc.Record(context.Background(), RecordInput{
		AssignmentID: fx.assignment.ID,
		AmountCents:  400,
		Method:       enums.PaymentMethodCash,
		Kind:         enums.PaymentKindPartial,
		CollectedBy:  "clerk",
	})
	if err != nil {
		t.Fatalf("partial payment failed: %v", err)
	}
	if first.TotalPaidCents != 400 || first.OutstandingCents != 600 || first.Settled {
		t.Fatalf("unexpected balance after partial: %+v", first)
	}
	if fx.unit.Status != enums.UnitStatusDistributed {
		t.Fatalf("book must stay distributed, got %s", fx.unit.Status)
	}

	second, err := fx.svc.Record(context.Background(), RecordInput{
		AssignmentID: fx.assignment.ID,
		AmountCents:  600,
		Method:       enums.PaymentMethodCash,
		Kind:         enums.PaymentKindFull,
		CollectedBy:  "clerk",
	})
	if err != nil {
		t.Fatalf("full payment failed: %v", err)
	}
	if second.TotalPaidCents != 1000 || second.OutstandingCents != 0 || !second.Settled {
		t.Fatalf("unexpected balance after full: %+v", second)
	}
	if fx.unit.Status != enums.UnitStatusSettled {
		t.Fatalf("book must settle, got %s", fx.unit.Status)
	}
	if fx.engine.called != 1 {
		t.Fatalf("rule engine must run exactly once, ran %d times", fx.engine.called)
	}
	settlement := fx.engine.settlements[0]
	if settlement.BaseAmountCents != 1000 || settlement.EarnerValueID != fx.assignment.TopValueID {
		t.Fatalf("unexpected settlement event: %+v", settlement)
	}
}

func TestRecordFullRejectsWrongAmount(t *testing.T) {
	fx := newPaymentFixture(t)

	_, err := fx.svc.Record(context.Background(), RecordInput{
		AssignmentID: fx.assignment.ID,
		AmountCents:  999,
		Method:       enums.PaymentMethodCash,
		Kind:         enums.PaymentKindFull,
		CollectedBy:  "clerk",
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeAmountMismatch) {
		t.Fatalf("expected AmountMismatch got %v", err)
	}
	if len(fx.ledger.events) != 0 {
		t.Fatal("no ledger rows may be written")
	}
	if fx.engine.called != 0 {
		t.Fatal("rule engine must not run")
	}
}

func TestRecordPartialRejectsOverpayment(t *testing.T) {
	fx := newPaymentFixture(t)

	_, err := fx.svc.Record(context.Background(), RecordInput{
		AssignmentID: fx.assignment.ID,
		AmountCents:  1001,
		Method:       enums.PaymentMethodCash,
		Kind:         enums.PaymentKindPartial,
		CollectedBy:  "clerk",
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeInvalidAmount) {
		t.Fatalf("expected InvalidAmount got %v", err)
	}
}

func TestRecordPartialRejectsZeroAmount(t *testing.T) {
	fx := newPaymentFixture(t)

	_, err := fx.svc.Record(context.Background(), RecordInput{
		AssignmentID: fx.assignment.ID,
		AmountCents:  0,
		Method:       enums.PaymentMethodCash,
		Kind:         enums.PaymentKindPartial,
		CollectedBy:  "clerk",
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeInvalidAmount) {
		t.Fatalf("expected InvalidAmount got %v", err)
	}
}

func TestRecordPartialClosingBalanceSettles(t *testing.T) {
	fx := newPaymentFixture(t)

	result, err := fx.svc.Record(context.Background(), RecordInput{
		AssignmentID: fx.assignment.ID,
		AmountCents:  1000,
		Method:       enums.PaymentMethodMobile,
		Kind:         enums.PaymentKindPartial,
		CollectedBy:  "clerk",
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if !result.Settled || fx.unit.Status != enums.UnitStatusSettled {
		t.Fatal("a partial that closes the balance exactly must settle the book")
	}
	if fx.engine.called != 1 {
		t.Fatal("rule engine must run at exact settlement")
	}
}

func TestReturnFreesUntouchedBook(t *testing.T) {
	fx := newPaymentFixture(t)

	reason := "holder moved away"
	result, err := fx.svc.Record(context.Background(), RecordInput{
		AssignmentID: fx.assignment.ID,
		AmountCents:  0,
		Method:       enums.PaymentMethodInternal,
		Kind:         enums.PaymentKindReturn,
		CollectedBy:  "clerk",
		ReturnReason: &reason,
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if result.Settled {
		t.Fatal("a return never settles")
	}
	if fx.unit.Status != enums.UnitStatusAvailable {
		t.Fatalf("book must go back to available, got %s", fx.unit.Status)
	}
	if !fx.assignment.Retired {
		t.Fatal("assignment must be retired")
	}
	if fx.engine.called != 0 {
		t.Fatal("rule engine must not run on return")
	}
}

func TestReturnRejectedAfterAnyPayment(t *testing.T) {
	fx := newPaymentFixture(t)

	if _, err := fx.svc.Record(context.Background(), RecordInput{
		AssignmentID: fx.assignment.ID,
		AmountCents:  1,
		Method:       enums.PaymentMethodCash,
		Kind:         enums.PaymentKindPartial,
		CollectedBy:  "clerk",
	}); err != nil {
		t.Fatalf("partial payment failed: %v", err)
	}

	_, err := fx.svc.Record(context.Background(), RecordInput{
		AssignmentID: fx.assignment.ID,
		AmountCents:  0,
		Method:       enums.PaymentMethodInternal,
		Kind:         enums.PaymentKindReturn,
		CollectedBy:  "clerk",
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodePaymentsExist) {
		t.Fatalf("expected PaymentsExist got %v", err)
	}
	if fx.assignment.Retired {
		t.Fatal("assignment must stay active")
	}
}

func TestRecordRejectedAfterSettlement(t *testing.T) {
	fx := newPaymentFixture(t)

	if _, err := fx.svc.Record(context.Background(), RecordInput{
		AssignmentID: fx.assignment.ID,
		AmountCents:  1000,
		Method:       enums.PaymentMethodCash,
		Kind:         enums.PaymentKindFull,
		CollectedBy:  "clerk",
	}); err != nil {
		t.Fatalf("full payment failed: %v", err)
	}
	if fx.unit.Status != enums.UnitStatusSettled {
		t.Fatalf("book must settle, got %s", fx.unit.Status)
	}

	// A zero-amount full would otherwise match the zero outstanding balance
	// and run settlement a second time.
	_, err := fx.svc.Record(context.Background(), RecordInput{
		AssignmentID: fx.assignment.ID,
		AmountCents:  0,
		Method:       enums.PaymentMethodCash,
		Kind:         enums.PaymentKindFull,
		CollectedBy:  "clerk",
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeInvalidAmount) {
		t.Fatalf("expected InvalidAmount got %v", err)
	}

	_, err = fx.svc.Record(context.Background(), RecordInput{
		AssignmentID: fx.assignment.ID,
		AmountCents:  100,
		Method:       enums.PaymentMethodCash,
		Kind:         enums.PaymentKindPartial,
		CollectedBy:  "clerk",
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected Conflict got %v", err)
	}

	_, err = fx.svc.Record(context.Background(), RecordInput{
		AssignmentID: fx.assignment.ID,
		AmountCents:  1000,
		Method:       enums.PaymentMethodCash,
		Kind:         enums.PaymentKindFull,
		CollectedBy:  "clerk",
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected Conflict got %v", err)
	}

	if len(fx.ledger.events) != 1 {
		t.Fatalf("settled ledger must stay at 1 event, got %d", len(fx.ledger.events))
	}
	if fx.engine.called != 1 {
		t.Fatalf("rule engine must run exactly once, ran %d times", fx.engine.called)
	}
}

func TestRecordRejectsRetiredAssignment(t *testing.T) {
	fx := newPaymentFixture(t)
	fx.assignment.Retired = true

	_, err := fx.svc.Record(context.Background(), RecordInput{
		AssignmentID: fx.assignment.ID,
		AmountCents:  100,
		Method:       enums.PaymentMethodCash,
		Kind:         enums.PaymentKindPartial,
		CollectedBy:  "clerk",
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected Conflict got %v", err)
	}
}

func TestRecordRejectsDuesKind(t *testing.T) {
	fx := newPaymentFixture(t)

	_, err := fx.svc.Record(context.Background(), RecordInput{
		AssignmentID: fx.assignment.ID,
		AmountCents:  100,
		Method:       enums.PaymentMethodCash,
		Kind:         enums.PaymentKindDues,
		CollectedBy:  "clerk",
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error got %v", err)
	}
}

func TestReturnNotCountedAsPayment(t *testing.T) {
	reg := prometheus.NewRegistry()
	fx := newPaymentFixtureWithStats(t, metrics.NewLedgerMetrics(reg))

	if _, err := fx.svc.Record(context.Background(), RecordInput{
		AssignmentID: fx.assignment.ID,
		AmountCents:  0,
		Method:       enums.PaymentMethodInternal,
		Kind:         enums.PaymentKindReturn,
		CollectedBy:  "clerk",
	}); err != nil {
		t.Fatalf("return failed: %v", err)
	}

	if got := counterTotal(t, reg, "ledger_payments_recorded_total"); got != 0 {
		t.Fatalf("returns must not count as recorded payments, got %v", got)
	}
	if got := counterTotal(t, reg, "ledger_returns_total"); got != 1 {
		t.Fatalf("ledger_returns_total = %v, want 1", got)
	}
}

func counterTotal(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	total := 0.0
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			total += m.GetCounter().GetValue()
		}
	}
	return total
}

func TestLedgerViewComputesBalance(t *testing.T) {
	fx := newPaymentFixture(t)

	if _, err := fx.svc.Record(context.Background(), RecordInput{
		AssignmentID: fx.assignment.ID,
		AmountCents:  400,
		Method:       enums.PaymentMethodCash,
		Kind:         enums.PaymentKindPartial,
		CollectedBy:  "clerk",
		PaidOn:       time.Now().UTC(),
	}); err != nil {
		t.Fatalf("partial payment failed: %v", err)
	}

	view, err := fx.svc.Ledger(context.Background(), fx.assignment.ID)
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if view.ExpectedCents != 1000 || view.TotalPaidCents != 400 || view.OutstandingCents != 600 {
		t.Fatalf("unexpected ledger view: %+v", view)
	}
	if len(view.Events) != 1 {
		t.Fatalf("expected 1 event got %d", len(view.Events))
	}
}
