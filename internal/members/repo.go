package members

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dariomutua/fundraza-backend/pkg/db/models"
)

// Repository reads the member directory. The reconciliation core never
// writes members; the directory is owned upstream.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, memberID uuid.UUID) (*models.Member, error)
	FindByMobile(ctx context.Context, mobile string) (*models.Member, error)
	FindByName(ctx context.Context, fullName string) ([]models.Member, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a member repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, memberID uuid.UUID) (*models.Member, error) {
	var member models.Member
	if err := r.db.WithContext(ctx).First(&member, "id = ?", memberID).Error; err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *repository) FindByMobile(ctx context.Context, mobile string) (*models.Member, error) {
	var member models.Member
	if err := r.db.WithContext(ctx).First(&member, "mobile = ?", strings.TrimSpace(mobile)).Error; err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *repository) FindByName(ctx context.Context, fullName string) ([]models.Member, error) {
	var rows []models.Member
	if err := r.db.WithContext(ctx).
		Where("LOWER(full_name) = LOWER(?)", strings.TrimSpace(fullName)).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
