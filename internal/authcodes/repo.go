package authcodes

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/spotixhq/spotix-backend/pkg/db/models"
)

// Repository persists single-use authorization codes.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, validation *models.AuthCodeValidation) error
	FindByCode(ctx context.Context, code string) (*models.AuthCodeValidation, error)
	ListByAgent(ctx context.Context, agentID string) ([]models.AuthCodeValidation, error)
	Consume(ctx context.Context, code string, validatedBy uuid.UUID, at time.Time) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an auth code repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, validation *models.AuthCodeValidation) error {
	return r.db.WithContext(ctx).Create(validation).Error
}

func (r *repository) FindByCode(ctx context.Context, code string) (*models.AuthCodeValidation, error) {
	var validation models.AuthCodeValidation
	if err := r.db.WithContext(ctx).First(&validation, "code = ?", code).Error; err != nil {
		return nil, err
	}
	return &validation, nil
}

func (r *repository) ListByAgent(ctx context.Context, agentID string) ([]models.AuthCodeValidation, error) {
	var validations []models.AuthCodeValidation
	if err := r.db.WithContext(ctx).
		Where("agent_id = ?", agentID).
		Order("created_at DESC").
		Find(&validations).Error; err != nil {
		return nil, err
	}
	return validations, nil
}

// Consume flips validated exactly once. The guard in the WHERE clause makes
// the first caller win; everyone after sees zero rows.
func (r *repository) Consume(ctx context.Context, code string, validatedBy uuid.UUID, at time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.AuthCodeValidation{}).
		Where("code = ? AND NOT validated", code).
		UpdateColumns(map[string]any{
			"validated":    true,
			"validated_by": validatedBy,
			"validated_at": at,
		})
	return result.RowsAffected, result.Error
}
