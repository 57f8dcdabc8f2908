package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dariomutua/fundraza-backend/pkg/db"
	"github.com/dariomutua/fundraza-backend/pkg/db/models"
	pkgerrors "github.com/dariomutua/fundraza-backend/pkg/errors"
)

// valueNameConstraint is the unique index on (level_id, LOWER(name)) that
// settles races between concurrent writers creating the same node.
const valueNameConstraint = "uniq_values_level_name"

// Selection is one raw per-level choice supplied by a caller. Either ValueID
// points at an existing node or NewName asks for one to be created under the
// selection above it.
type Selection struct {
	LevelID uuid.UUID  `json:"level_id"`
	ValueID *uuid.UUID `json:"value_id,omitempty"`
	NewName string     `json:"new_name,omitempty"`
}

// ResolvedPath is a validated top-to-bottom chain, one value per level.
type ResolvedPath struct {
	ValueIDs   []uuid.UUID `json:"value_ids"`
	TopValueID uuid.UUID   `json:"top_value_id"`
}

// ResolveValueInput names a node to look up or create at a level.
type ResolveValueInput struct {
	LevelID       uuid.UUID
	Name          string
	ParentValueID *uuid.UUID
}

// Service defines the hierarchy catalog operations. Chain validation lives
// here; callers only supply raw selections.
type Service interface {
	ResolveOrCreateValue(ctx context.Context, input ResolveValueInput) (*models.DistributionValue, error)
	ListChildren(ctx context.Context, levelID uuid.UUID, parentValueID *uuid.UUID) ([]models.DistributionValue, error)
	BuildPath(ctx context.Context, campaignID uuid.UUID, valueIDs []uuid.UUID) (*ResolvedPath, error)
	ResolvePathTx(ctx context.Context, tx *gorm.DB, campaignID uuid.UUID, selections []Selection) (*ResolvedPath, error)
	Levels(ctx context.Context, campaignID uuid.UUID) ([]models.DistributionLevel, error)
}

type service struct {
	repo Repository
}

// NewService wires a catalog service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Levels(ctx context.Context, campaignID uuid.UUID) ([]models.DistributionLevel, error) {
	levels, err := s.repo.ListLevels(ctx, campaignID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "list levels")
	}
	return levels, nil
}

func (s *service) ResolveOrCreateValue(ctx context.Context, input ResolveValueInput) (*models.DistributionValue, error) {
	return s.resolveOrCreate(ctx, s.repo, input)
}

func (s *service) ListChildren(ctx context.Context, levelID uuid.UUID, parentValueID *uuid.UUID) ([]models.DistributionValue, error) {
	if _, err := s.repo.FindLevel(ctx, levelID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "level not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "load level")
	}

	values, err := s.repo.ListValues(ctx, levelID, parentValueID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "list values")
	}
	return values, nil
}

// BuildPath validates that the ordered selections form an unbroken parent
// chain across the campaign's configured levels.
func (s *service) BuildPath(ctx context.Context, campaignID uuid.UUID, valueIDs []uuid.UUID) (*ResolvedPath, error) {
	levels, err := s.repo.ListLevels(ctx, campaignID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "list levels")
	}
	if len(levels) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "campaign has no configured levels")
	}
	if len(valueIDs) != len(levels) {
		return nil, pkgerrors.New(pkgerrors.CodeBrokenChain,
			fmt.Sprintf("expected %d selections, got %d", len(levels), len(valueIDs)))
	}

	var prev *models.DistributionValue
	for i, valueID := range valueIDs {
		value, err := s.repo.FindValue(ctx, valueID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeBrokenChain,
					fmt.Sprintf("selection %d does not exist", i+1))
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "load value")
		}
		if value.LevelID != levels[i].ID {
			return nil, pkgerrors.New(pkgerrors.CodeBrokenChain,
				fmt.Sprintf("selection %d belongs to the wrong level", i+1))
		}
		if err := checkLink(prev, value, i); err != nil {
			return nil, err
		}
		prev = value
	}

	return &ResolvedPath{ValueIDs: valueIDs, TopValueID: valueIDs[0]}, nil
}

// ResolvePathTx resolves raw selections into a validated path inside the
// caller's transaction, creating missing nodes on the way down. Assignment
// uses this so lazily added values commit or roll back with the assignment
// itself.
func (s *service) ResolvePathTx(ctx context.Context, tx *gorm.DB, campaignID uuid.UUID, selections []Selection) (*ResolvedPath, error) {
	repo := s.repo.WithTx(tx)

	levels, err := repo.ListLevels(ctx, campaignID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "list levels")
	}
	if len(levels) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "campaign has no configured levels")
	}
	if len(selections) != len(levels) {
		return nil, pkgerrors.New(pkgerrors.CodeBrokenChain,
			fmt.Sprintf("expected %d selections, got %d", len(levels), len(selections)))
	}

	valueIDs := make([]uuid.UUID, 0, len(selections))
	var prev *models.DistributionValue

	for i, sel := range selections {
		if sel.LevelID != levels[i].ID {
			return nil, pkgerrors.New(pkgerrors.CodeBrokenChain,
				fmt.Sprintf("selection %d targets the wrong level", i+1))
		}

		var value *models.DistributionValue
		switch {
		case sel.ValueID != nil:
			value, err = repo.FindValue(ctx, *sel.ValueID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return nil, pkgerrors.New(pkgerrors.CodeBrokenChain,
						fmt.Sprintf("selection %d does not exist", i+1))
				}
				return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "load value")
			}
			if value.LevelID != levels[i].ID {
				return nil, pkgerrors.New(pkgerrors.CodeBrokenChain,
					fmt.Sprintf("selection %d belongs to the wrong level", i+1))
			}
		case strings.TrimSpace(sel.NewName) != "":
			input := ResolveValueInput{LevelID: levels[i].ID, Name: strings.TrimSpace(sel.NewName)}
			if prev != nil {
				input.ParentValueID = &prev.ID
			}
			value, err = s.resolveOrCreate(ctx, repo, input)
			if err != nil {
				return nil, err
			}
		default:
			return nil, pkgerrors.New(pkgerrors.CodeBrokenChain,
				fmt.Sprintf("selection %d supplies neither a value nor a name", i+1))
		}

		if err := checkLink(prev, value, i); err != nil {
			return nil, err
		}
		valueIDs = append(valueIDs, value.ID)
		prev = value
	}

	return &ResolvedPath{ValueIDs: valueIDs, TopValueID: valueIDs[0]}, nil
}

func (s *service) resolveOrCreate(ctx context.Context, repo Repository, input ResolveValueInput) (*models.DistributionValue, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "value name is required")
	}

	level, err := repo.FindLevel(ctx, input.LevelID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "level not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "load level")
	}

	if input.ParentValueID != nil {
		parent, err := repo.FindValue(ctx, *input.ParentValueID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeInvalidParent, "parent value not found")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "load parent value")
		}
		parentLevel, err := repo.FindLevel(ctx, parent.LevelID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "load parent level")
		}
		if parentLevel.CampaignID != level.CampaignID || parentLevel.LevelNumber != level.LevelNumber-1 {
			return nil, pkgerrors.New(pkgerrors.CodeInvalidParent,
				"parent must belong to the immediately preceding level")
		}
	} else if level.LevelNumber > 1 {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidParent,
			fmt.Sprintf("values at level %d require a parent", level.LevelNumber))
	}

	existing, err := repo.FindValueByName(ctx, input.LevelID, name)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "lookup value")
	}

	value := &models.DistributionValue{
		LevelID:       input.LevelID,
		Name:          name,
		ParentValueID: input.ParentValueID,
	}
	if err := repo.CreateValue(ctx, value); err != nil {
		// A concurrent writer may have created the node between the lookup
		// and the insert; the unique index on (level_id, LOWER(name)) makes
		// its row the authoritative one.
		if db.IsUniqueViolation(err, valueNameConstraint) {
			winner, ferr := repo.FindValueByName(ctx, input.LevelID, name)
			if ferr == nil {
				return winner, nil
			}
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "create value")
	}
	return value, nil
}

// checkLink verifies one parent/child hop of the chain. The first level has
// no parent requirement.
func checkLink(prev, value *models.DistributionValue, idx int) error {
	if idx == 0 {
		return nil
	}
	if value.ParentValueID == nil || prev == nil || *value.ParentValueID != prev.ID {
		return pkgerrors.New(pkgerrors.CodeBrokenChain,
			fmt.Sprintf("selection %d is not a child of selection %d", idx+1, idx))
	}
	return nil
}
