package campaigns

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dariomutua/fundraza-backend/internal/catalog"
	"github.com/dariomutua/fundraza-backend/internal/units"
	"github.com/dariomutua/fundraza-backend/pkg/db/models"
	pkgerrors "github.com/dariomutua/fundraza-backend/pkg/errors"
)

const maxBookCount = 10000

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// CreateInput carries everything needed to bootstrap a campaign: pricing,
// book sizing, and the ordered hierarchy level names.
type CreateInput struct {
	Name             string   `json:"name" validate:"required"`
	TicketPriceCents int      `json:"ticket_price_cents" validate:"required,gt=0"`
	TicketsPerBook   int      `json:"tickets_per_book" validate:"required,gt=0"`
	BookCount        int      `json:"book_count" validate:"required,gt=0"`
	LevelNames       []string `json:"level_names" validate:"required,min=1,dive,required"`
}

// Detail is a campaign together with its ordered hierarchy levels.
type Detail struct {
	Campaign models.Campaign            `json:"campaign"`
	Levels   []models.DistributionLevel `json:"levels"`
}

// Service owns campaign bootstrap. Creating a campaign also creates its
// hierarchy levels and generates the full run of ticket books, all in one
// transaction.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*Detail, error)
	Get(ctx context.Context, campaignID uuid.UUID) (*Detail, error)
	List(ctx context.Context) ([]models.Campaign, error)
}

type service struct {
	tx          txRunner
	repo        Repository
	catalogRepo catalog.Repository
	unitRepo    units.Repository
}

// NewService constructs a campaign service.
func NewService(tx txRunner, repo Repository, catalogRepo catalog.Repository, unitRepo units.Repository) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("campaign repository required")
	}
	if catalogRepo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if unitRepo == nil {
		return nil, fmt.Errorf("unit repository required")
	}
	return &service{tx: tx, repo: repo, catalogRepo: catalogRepo, unitRepo: unitRepo}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*Detail, error) {
	if err := validateCreateInput(input); err != nil {
		return nil, err
	}

	campaign := models.Campaign{
		Name:             strings.TrimSpace(input.Name),
		TicketPriceCents: input.TicketPriceCents,
		TicketsPerBook:   input.TicketsPerBook,
	}
	var levels []models.DistributionLevel

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, &campaign); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "create campaign")
		}

		levels = make([]models.DistributionLevel, 0, len(input.LevelNames))
		for i, name := range input.LevelNames {
			levels = append(levels, models.DistributionLevel{
				CampaignID:  campaign.ID,
				LevelNumber: i + 1,
				Name:        strings.TrimSpace(name),
			})
		}
		if err := s.catalogRepo.WithTx(tx).CreateLevels(ctx, levels); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "create hierarchy levels")
		}

		books := generateBooks(campaign.ID, input.BookCount, input.TicketsPerBook)
		if err := s.unitRepo.WithTx(tx).CreateBatch(ctx, books); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "generate ticket books")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &Detail{Campaign: campaign, Levels: levels}, nil
}

func (s *service) Get(ctx context.Context, campaignID uuid.UUID) (*Detail, error) {
	campaign, err := s.repo.FindByID(ctx, campaignID)
	if err != nil {
		if pkgerrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "campaign not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "load campaign")
	}

	levels, err := s.catalogRepo.ListLevels(ctx, campaignID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "load hierarchy levels")
	}
	return &Detail{Campaign: *campaign, Levels: levels}, nil
}

func (s *service) List(ctx context.Context) ([]models.Campaign, error) {
	campaigns, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "list campaigns")
	}
	return campaigns, nil
}

func validateCreateInput(input CreateInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "campaign name is required")
	}
	if input.TicketPriceCents <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "ticket price must be positive")
	}
	if input.TicketsPerBook <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "tickets per book must be positive")
	}
	if input.BookCount <= 0 || input.BookCount > maxBookCount {
		return pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("book count must be between 1 and %d", maxBookCount))
	}
	if len(input.LevelNames) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "at least one hierarchy level is required")
	}
	seen := make(map[string]bool, len(input.LevelNames))
	for _, name := range input.LevelNames {
		trimmed := strings.ToLower(strings.TrimSpace(name))
		if trimmed == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "hierarchy level names cannot be blank")
		}
		if seen[trimmed] {
			return pkgerrors.New(pkgerrors.CodeValidation, "hierarchy level names must be unique")
		}
		seen[trimmed] = true
	}
	return nil
}

// generateBooks lays out contiguous, non-overlapping ticket ranges. Book n
// covers tickets ((n-1)*perBook + 1) through n*perBook.
func generateBooks(campaignID uuid.UUID, count, perBook int) []models.Unit {
	books := make([]models.Unit, 0, count)
	for n := 1; n <= count; n++ {
		books = append(books, models.Unit{
			CampaignID: campaignID,
			BookNumber: n,
			RangeStart: (n-1)*perBook + 1,
			RangeEnd:   n * perBook,
		})
	}
	return books
}
