package assignments

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dariomutua/fundraza-backend/internal/activity"
	"github.com/dariomutua/fundraza-backend/internal/catalog"
	"github.com/dariomutua/fundraza-backend/internal/units"
	"github.com/dariomutua/fundraza-backend/pkg/db"
	"github.com/dariomutua/fundraza-backend/pkg/db/models"
	"github.com/dariomutua/fundraza-backend/pkg/enums"
	pkgerrors "github.com/dariomutua/fundraza-backend/pkg/errors"
	"github.com/dariomutua/fundraza-backend/pkg/pagination"
)

// activeUnitConstraint is the partial unique index that guarantees at most
// one live assignment per unit. Violations are the authoritative signal that
// a concurrent writer won the race.
const activeUnitConstraint = "uniq_assignments_active_unit"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// pathResolver resolves raw per-level selections into a validated value
// chain, creating new nodes inside the caller's transaction when asked to.
type pathResolver interface {
	ResolvePathTx(ctx context.Context, tx *gorm.DB, campaignID uuid.UUID, selections []catalog.Selection) (*catalog.ResolvedPath, error)
}

// paymentChecker reports whether any ledger event references an assignment.
// Implemented by the payment ledger; consumed here for the payment lock.
type paymentChecker interface {
	HasEventsTx(ctx context.Context, tx *gorm.DB, assignmentID uuid.UUID) (bool, error)
}

// Contact is the optional holder metadata captured at assignment time.
type Contact struct {
	Mobile *string `json:"mobile,omitempty"`
	Notes  *string `json:"notes,omitempty"`
}

// AssignInput binds one available unit to a hierarchy path.
type AssignInput struct {
	UnitID      uuid.UUID           `json:"unit_id"`
	Selections  []catalog.Selection `json:"selections"`
	Contact     Contact             `json:"contact"`
	AssignedBy  string              `json:"assigned_by"`
	IsExtraUnit bool                `json:"is_extra_unit"`
}

// BulkAssignInput distributes several units to the same path at once.
type BulkAssignInput struct {
	UnitIDs    []uuid.UUID         `json:"unit_ids"`
	Selections []catalog.Selection `json:"selections"`
	Contact    Contact             `json:"contact"`
	AssignedBy string              `json:"assigned_by"`
}

// BulkResult reports the best-effort outcome of a bulk distribution.
type BulkResult struct {
	AssignedCount  int         `json:"assigned_count"`
	SkippedCount   int         `json:"skipped_count"`
	SkippedUnitIDs []uuid.UUID `json:"skipped_unit_ids,omitempty"`
}

// ReassignInput relocates an untouched assignment to a new path.
type ReassignInput struct {
	AssignmentID uuid.UUID           `json:"assignment_id"`
	Selections   []catalog.Selection `json:"selections"`
	Contact      Contact             `json:"contact"`
	AssignedBy   string              `json:"assigned_by"`
}

// Service owns the unit assignment lifecycle.
type Service interface {
	Assign(ctx context.Context, input AssignInput) (*models.Assignment, error)
	BulkAssign(ctx context.Context, input BulkAssignInput) (*BulkResult, error)
	Reassign(ctx context.Context, input ReassignInput) (*models.Assignment, error)
	Get(ctx context.Context, assignmentID uuid.UUID) (*models.Assignment, error)
	List(ctx context.Context, campaignID uuid.UUID, params pagination.Params) ([]models.Assignment, string, error)
}

type service struct {
	tx       txRunner
	repo     Repository
	units    units.Repository
	paths    pathResolver
	payments paymentChecker
	audit    activity.Recorder
}

// NewService builds an assignment service with the required dependencies.
func NewService(tx txRunner, repo Repository, unitRepo units.Repository, paths pathResolver, payments paymentChecker, audit activity.Recorder) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("assignment repository required")
	}
	if unitRepo == nil {
		return nil, fmt.Errorf("unit repository required")
	}
	if paths == nil {
		return nil, fmt.Errorf("path resolver required")
	}
	if payments == nil {
		return nil, fmt.Errorf("payment checker required")
	}
	if audit == nil {
		return nil, fmt.Errorf("activity recorder required")
	}
	return &service{tx: tx, repo: repo, units: unitRepo, paths: paths, payments: payments, audit: audit}, nil
}

func (s *service) Assign(ctx context.Context, input AssignInput) (*models.Assignment, error) {
	if input.UnitID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit id required")
	}
	if strings.TrimSpace(input.AssignedBy) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "assigned_by required")
	}

	var created *models.Assignment
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		assignment, err := s.assignTx(ctx, tx, input)
		if err != nil {
			return err
		}
		created = assignment
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// assignTx performs one assignment inside the caller's transaction. The unit
// row lock makes the status check authoritative; the partial unique index is
// the fallback if a competing transaction slipped past it.
func (s *service) assignTx(ctx context.Context, tx *gorm.DB, input AssignInput) (*models.Assignment, error) {
	unitRepo := s.units.WithTx(tx)

	unit, err := unitRepo.FindByIDForUpdate(ctx, input.UnitID)
	if err != nil {
		if pkgerrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "ticket book not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "lock ticket book")
	}
	if unit.Status != enums.UnitStatusAvailable {
		return nil, pkgerrors.New(pkgerrors.CodeUnitNotAvailable,
			fmt.Sprintf("book %d is %s", unit.BookNumber, unit.Status)).
			WithDetails(map[string]any{"unit_id": unit.ID, "status": unit.Status})
	}

	path, err := s.paths.ResolvePathTx(ctx, tx, unit.CampaignID, input.Selections)
	if err != nil {
		return nil, err
	}

	assignment := &models.Assignment{
		UnitID:        unit.ID,
		PathValueIDs:  path.ValueIDs,
		TopValueID:    path.TopValueID,
		ContactMobile: input.Contact.Mobile,
		Notes:         input.Contact.Notes,
		AssignedBy:    strings.TrimSpace(input.AssignedBy),
		AssignedAt:    time.Now().UTC(),
		IsExtraUnit:   input.IsExtraUnit,
	}
	if err := s.repo.WithTx(tx).Create(ctx, assignment); err != nil {
		if db.IsUniqueViolation(err, activeUnitConstraint) {
			return nil, pkgerrors.New(pkgerrors.CodeUnitNotAvailable, "book was assigned concurrently")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "create assignment")
	}

	if err := unitRepo.UpdateStatus(ctx, unit.ID, enums.UnitStatusDistributed); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "mark book distributed")
	}

	entry := activity.Entry{
		CampaignID:   unit.CampaignID,
		AssignmentID: &assignment.ID,
		Kind:         enums.ActivityAssigned,
		Message:      fmt.Sprintf("book %d assigned", unit.BookNumber),
		ActorName:    assignment.AssignedBy,
	}
	if err := s.audit.Record(ctx, tx, entry); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "record assignment activity")
	}
	return assignment, nil
}

// BulkAssign distributes units best-effort inside one transaction: books
// that are not available are skipped, never the whole batch.
func (s *service) BulkAssign(ctx context.Context, input BulkAssignInput) (*BulkResult, error) {
	if len(input.UnitIDs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one unit id required")
	}
	if strings.TrimSpace(input.AssignedBy) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "assigned_by required")
	}

	result := &BulkResult{}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		for _, unitID := range input.UnitIDs {
			_, err := s.assignTx(ctx, tx, AssignInput{
				UnitID:     unitID,
				Selections: input.Selections,
				Contact:    input.Contact,
				AssignedBy: input.AssignedBy,
			})
			if err != nil {
				if pkgerrors.HasCode(err, pkgerrors.CodeUnitNotAvailable) {
					result.SkippedCount++
					result.SkippedUnitIDs = append(result.SkippedUnitIDs, unitID)
					continue
				}
				return err
			}
			result.AssignedCount++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) Reassign(ctx context.Context, input ReassignInput) (*models.Assignment, error) {
	if input.AssignmentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "assignment id required")
	}
	if strings.TrimSpace(input.AssignedBy) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "assigned_by required")
	}

	var updated *models.Assignment
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		assignment, err := repo.FindByIDForUpdate(ctx, input.AssignmentID)
		if err != nil {
			if pkgerrors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "assignment not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "lock assignment")
		}
		if assignment.Retired {
			return pkgerrors.New(pkgerrors.CodeConflict, "assignment is retired")
		}

		hasEvents, err := s.payments.HasEventsTx(ctx, tx, assignment.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "check ledger for assignment")
		}
		if hasEvents {
			return pkgerrors.New(pkgerrors.CodePaymentLock,
				"assignment has recorded payments and cannot be relocated")
		}

		unit, err := s.units.WithTx(tx).FindByIDForUpdate(ctx, assignment.UnitID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "lock ticket book")
		}

		path, err := s.paths.ResolvePathTx(ctx, tx, unit.CampaignID, input.Selections)
		if err != nil {
			return err
		}

		// Same row, same identity: path and contact are replaced in place so
		// the audit trail stays attached to one assignment id.
		assignment.PathValueIDs = path.ValueIDs
		assignment.TopValueID = path.TopValueID
		assignment.ContactMobile = input.Contact.Mobile
		assignment.Notes = input.Contact.Notes
		assignment.AssignedBy = strings.TrimSpace(input.AssignedBy)
		assignment.AssignedAt = time.Now().UTC()
		if err := repo.Update(ctx, assignment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "update assignment")
		}

		entry := activity.Entry{
			CampaignID:   unit.CampaignID,
			AssignmentID: &assignment.ID,
			Kind:         enums.ActivityReassigned,
			Message:      fmt.Sprintf("book %d reassigned", unit.BookNumber),
			ActorName:    assignment.AssignedBy,
		}
		if err := s.audit.Record(ctx, tx, entry); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "record reassignment activity")
		}

		updated = assignment
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) Get(ctx context.Context, assignmentID uuid.UUID) (*models.Assignment, error) {
	assignment, err := s.repo.FindByID(ctx, assignmentID)
	if err != nil {
		if pkgerrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "assignment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "load assignment")
	}
	return assignment, nil
}

func (s *service) List(ctx context.Context, campaignID uuid.UUID, params pagination.Params) ([]models.Assignment, string, error) {
	rows, err := s.repo.ListByCampaign(ctx, campaignID, params)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeStorage, err, "list assignments")
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
