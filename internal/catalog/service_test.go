package catalog

import (
	"context"
	"sort"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/dariomutua/fundraza-backend/pkg/db/models"
	pkgerrors "github.com/dariomutua/fundraza-backend/pkg/errors"
)

type stubCatalogRepo struct {
	levels map[uuid.UUID]*models.DistributionLevel
	values map[uuid.UUID]*models.DistributionValue
}

func newStubCatalogRepo() *stubCatalogRepo {
	return &stubCatalogRepo{
		levels: make(map[uuid.UUID]*models.DistributionLevel),
		values: make(map[uuid.UUID]*models.DistributionValue),
	}
}

func (s *stubCatalogRepo) addLevel(campaignID uuid.UUID, number int, name string) *models.DistributionLevel {
	level := &models.DistributionLevel{
		ID:          uuid.New(),
		CampaignID:  campaignID,
		LevelNumber: number,
		Name:        name,
	}
	s.levels[level.ID] = level
	return level
}

func (s *stubCatalogRepo) addValue(levelID uuid.UUID, name string, parent *uuid.UUID) *models.DistributionValue {
	value := &models.DistributionValue{
		ID:            uuid.New(),
		LevelID:       levelID,
		Name:          name,
		ParentValueID: parent,
	}
	s.values[value.ID] = value
	return value
}

func (s *stubCatalogRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubCatalogRepo) CreateLevels(ctx context.Context, levels []models.DistributionLevel) error {
	for i := range levels {
		level := levels[i]
		if level.ID == uuid.Nil {
			level.ID = uuid.New()
		}
		s.levels[level.ID] = &level
	}
	return nil
}

func (s *stubCatalogRepo) ListLevels(ctx context.Context, campaignID uuid.UUID) ([]models.DistributionLevel, error) {
	var out []models.DistributionLevel
	for _, level := range s.levels {
		if level.CampaignID == campaignID {
			out = append(out, *level)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LevelNumber < out[j].LevelNumber })
	return out, nil
}

func (s *stubCatalogRepo) FindLevel(ctx context.Context, levelID uuid.UUID) (*models.DistributionLevel, error) {
	if level, ok := s.levels[levelID]; ok {
		return level, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubCatalogRepo) FindValue(ctx context.Context, valueID uuid.UUID) (*models.DistributionValue, error) {
	if value, ok := s.values[valueID]; ok {
		return value, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubCatalogRepo) FindValueByName(ctx context.Context, levelID uuid.UUID, name string) (*models.DistributionValue, error) {
	for _, value := range s.values {
		if value.LevelID == levelID && strings.EqualFold(value.Name, name) {
			return value, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubCatalogRepo) CreateValue(ctx context.Context, value *models.DistributionValue) error {
	if value.ID == uuid.Nil {
		value.ID = uuid.New()
	}
	s.values[value.ID] = value
	return nil
}

func (s *stubCatalogRepo) ListValues(ctx context.Context, levelID uuid.UUID, parentValueID *uuid.UUID) ([]models.DistributionValue, error) {
	var out []models.DistributionValue
	for _, value := range s.values {
		if value.LevelID != levelID {
			continue
		}
		if parentValueID != nil {
			if value.ParentValueID == nil || *value.ParentValueID != *parentValueID {
				continue
			}
		}
		out = append(out, *value)
	}
	return out, nil
}

func TestResolveOrCreateValueReturnsExisting(t *testing.T) {
	repo := newStubCatalogRepo()
	campaignID := uuid.New()
	wing := repo.addLevel(campaignID, 1, "Wing")
	east := repo.addValue(wing.ID, "East Wing", nil)

	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("service constructor failed: %v", err)
	}

	got, err := svc.ResolveOrCreateValue(context.Background(), ResolveValueInput{
		LevelID: wing.ID,
		Name:    "east wing",
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if got.ID != east.ID {
		t.Fatalf("expected existing value %s got %s", east.ID, got.ID)
	}
	if len(repo.values) != 1 {
		t.Fatalf("expected no new rows, have %d", len(repo.values))
	}
}

// racingCatalogRepo makes every insert lose to a concurrent writer that
// landed the same node under a different casing.
type racingCatalogRepo struct {
	*stubCatalogRepo
	winner *models.DistributionValue
}

func (s *racingCatalogRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *racingCatalogRepo) CreateValue(ctx context.Context, value *models.DistributionValue) error {
	s.winner = s.addValue(value.LevelID, strings.ToLower(value.Name), value.ParentValueID)
	return &pgconn.PgError{Code: "23505", ConstraintName: valueNameConstraint}
}

func TestResolveOrCreateValueReturnsConcurrentWinner(t *testing.T) {
	repo := &racingCatalogRepo{stubCatalogRepo: newStubCatalogRepo()}
	campaignID := uuid.New()
	wing := repo.addLevel(campaignID, 1, "Wing")

	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("service constructor failed: %v", err)
	}

	got, err := svc.ResolveOrCreateValue(context.Background(), ResolveValueInput{
		LevelID: wing.ID,
		Name:    "Parish North",
	})
	if err != nil {
		t.Fatalf("expected the winner's row got %v", err)
	}
	if repo.winner == nil || got.ID != repo.winner.ID {
		t.Fatalf("expected winner %+v got %+v", repo.winner, got)
	}
	if len(repo.values) != 1 {
		t.Fatalf("expected a single row, have %d", len(repo.values))
	}
}

func TestResolveOrCreateValueCreatesUnderParent(t *testing.T) {
	repo := newStubCatalogRepo()
	campaignID := uuid.New()
	wing := repo.addLevel(campaignID, 1, "Wing")
	floor := repo.addLevel(campaignID, 2, "Floor")
	east := repo.addValue(wing.ID, "East Wing", nil)

	svc, _ := NewService(repo)
	got, err := svc.ResolveOrCreateValue(context.Background(), ResolveValueInput{
		LevelID:       floor.ID,
		Name:          "Third Floor",
		ParentValueID: &east.ID,
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if got.ParentValueID == nil || *got.ParentValueID != east.ID {
		t.Fatal("created value should parent to the level-1 node")
	}
}

func TestResolveOrCreateValueRejectsWrongParentLevel(t *testing.T) {
	repo := newStubCatalogRepo()
	campaignID := uuid.New()
	wing := repo.addLevel(campaignID, 1, "Wing")
	repo.addLevel(campaignID, 2, "Floor")
	unit := repo.addLevel(campaignID, 3, "Unit")
	east := repo.addValue(wing.ID, "East Wing", nil)

	svc, _ := NewService(repo)
	_, err := svc.ResolveOrCreateValue(context.Background(), ResolveValueInput{
		LevelID:       unit.ID,
		Name:          "U-12",
		ParentValueID: &east.ID,
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeInvalidParent) {
		t.Fatalf("expected InvalidParent got %v", err)
	}
}

func TestResolveOrCreateValueRequiresParentBelowTop(t *testing.T) {
	repo := newStubCatalogRepo()
	campaignID := uuid.New()
	repo.addLevel(campaignID, 1, "Wing")
	floor := repo.addLevel(campaignID, 2, "Floor")

	svc, _ := NewService(repo)
	_, err := svc.ResolveOrCreateValue(context.Background(), ResolveValueInput{
		LevelID: floor.ID,
		Name:    "Orphan Floor",
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeInvalidParent) {
		t.Fatalf("expected InvalidParent got %v", err)
	}
}

func TestBuildPathAcceptsUnbrokenChain(t *testing.T) {
	repo := newStubCatalogRepo()
	campaignID := uuid.New()
	wing := repo.addLevel(campaignID, 1, "Wing")
	floor := repo.addLevel(campaignID, 2, "Floor")
	east := repo.addValue(wing.ID, "East Wing", nil)
	third := repo.addValue(floor.ID, "Third Floor", &east.ID)

	svc, _ := NewService(repo)
	path, err := svc.BuildPath(context.Background(), campaignID, []uuid.UUID{east.ID, third.ID})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if path.TopValueID != east.ID {
		t.Fatalf("expected top value %s got %s", east.ID, path.TopValueID)
	}
	if len(path.ValueIDs) != 2 {
		t.Fatalf("expected 2 chain entries got %d", len(path.ValueIDs))
	}
}

func TestBuildPathRejectsWrongSelectionCount(t *testing.T) {
	repo := newStubCatalogRepo()
	campaignID := uuid.New()
	wing := repo.addLevel(campaignID, 1, "Wing")
	repo.addLevel(campaignID, 2, "Floor")
	east := repo.addValue(wing.ID, "East Wing", nil)

	svc, _ := NewService(repo)
	_, err := svc.BuildPath(context.Background(), campaignID, []uuid.UUID{east.ID})
	if !pkgerrors.HasCode(err, pkgerrors.CodeBrokenChain) {
		t.Fatalf("expected BrokenChain got %v", err)
	}
}

func TestBuildPathRejectsBrokenLink(t *testing.T) {
	repo := newStubCatalogRepo()
	campaignID := uuid.New()
	wing := repo.addLevel(campaignID, 1, "Wing")
	floor := repo.addLevel(campaignID, 2, "Floor")
	east := repo.addValue(wing.ID, "East Wing", nil)
	west := repo.addValue(wing.ID, "West Wing", nil)
	// Third Floor hangs off West Wing, not East.
	third := repo.addValue(floor.ID, "Third Floor", &west.ID)

	svc, _ := NewService(repo)
	_, err := svc.BuildPath(context.Background(), campaignID, []uuid.UUID{east.ID, third.ID})
	if !pkgerrors.HasCode(err, pkgerrors.CodeBrokenChain) {
		t.Fatalf("expected BrokenChain got %v", err)
	}
}

func TestResolvePathTxCreatesMissingNodes(t *testing.T) {
	repo := newStubCatalogRepo()
	campaignID := uuid.New()
	wing := repo.addLevel(campaignID, 1, "Wing")
	floor := repo.addLevel(campaignID, 2, "Floor")
	east := repo.addValue(wing.ID, "East Wing", nil)

	svc, _ := NewService(repo)
	path, err := svc.ResolvePathTx(context.Background(), nil, campaignID, []Selection{
		{LevelID: wing.ID, ValueID: &east.ID},
		{LevelID: floor.ID, NewName: "Fourth Floor"},
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if len(path.ValueIDs) != 2 {
		t.Fatalf("expected 2 chain entries got %d", len(path.ValueIDs))
	}

	created, err := repo.FindValue(context.Background(), path.ValueIDs[1])
	if err != nil {
		t.Fatalf("created node missing: %v", err)
	}
	if created.ParentValueID == nil || *created.ParentValueID != east.ID {
		t.Fatal("lazily created node should parent to the selection above it")
	}
}

func TestResolvePathTxRejectsEmptySelection(t *testing.T) {
	repo := newStubCatalogRepo()
	campaignID := uuid.New()
	wing := repo.addLevel(campaignID, 1, "Wing")

	svc, _ := NewService(repo)
	_, err := svc.ResolvePathTx(context.Background(), nil, campaignID, []Selection{
		{LevelID: wing.ID},
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeBrokenChain) {
		t.Fatalf("expected BrokenChain got %v", err)
	}
}
