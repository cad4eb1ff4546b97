package verification

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/spotixhq/spotix-backend/pkg/db/models"
	"github.com/spotixhq/spotix-backend/pkg/enums"
)

// Repository persists verification records and the paired user stamps.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, record *models.VerificationRecord) error
	Save(ctx context.Context, record *models.VerificationRecord) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.VerificationRecord, error)
	FindByBookerID(ctx context.Context, bookerID uuid.UUID) (*models.VerificationRecord, error)
	ListByState(ctx context.Context, state enums.VerificationState) ([]models.VerificationRecord, error)
	MarkVerified(ctx context.Context, recordID, reviewerID uuid.UUID) (int64, error)
	StampUserVerified(ctx context.Context, userID uuid.UUID, bookerTag string) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a verification repository bound to the database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, record *models.VerificationRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *repository) Save(ctx context.Context, record *models.VerificationRecord) error {
	return r.db.WithContext(ctx).Save(record).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.VerificationRecord, error) {
	var record models.VerificationRecord
	if err := r.db.WithContext(ctx).First(&record, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *repository) FindByBookerID(ctx context.Context, bookerID uuid.UUID) (*models.VerificationRecord, error) {
	var record models.VerificationRecord
	if err := r.db.WithContext(ctx).
		Where("booker_id = ?", bookerID).
		First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *repository) ListByState(ctx context.Context, state enums.VerificationState) ([]models.VerificationRecord, error) {
	var records []models.VerificationRecord
	if err := r.db.WithContext(ctx).
		Where("state = ?", state).
		Order("updated_at ASC").
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// MarkVerified only moves Awaiting Verification records; the state guard in
// the WHERE clause is what makes Verified terminal.
func (r *repository) MarkVerified(ctx context.Context, recordID, reviewerID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.VerificationRecord{}).
		Where("id = ? AND state = ?", recordID, enums.VerificationStateAwaiting).
		UpdateColumns(map[string]any{
			"state":       enums.VerificationStateVerified,
			"reviewed_by": reviewerID,
			"reviewed_at": gorm.Expr("CURRENT_TIMESTAMP"),
		})
	return result.RowsAffected, result.Error
}

func (r *repository) StampUserVerified(ctx context.Context, userID uuid.UUID, bookerTag string) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ? AND is_booker", userID).
		UpdateColumns(map[string]any{
			"is_verified": true,
			"booker_tag":  bookerTag,
		})
	return result.RowsAffected, result.Error
}
