package wallet

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/spotixhq/spotix-backend/pkg/db/models"
	"github.com/spotixhq/spotix-backend/pkg/enums"
)

// Repository performs wallet balance persistence. Debit and Credit return
// the number of rows the guarded statement touched; zero means the
// precondition failed and nothing moved.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Exists(ctx context.Context, userID uuid.UUID) (bool, error)
	Balance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error)
	Debit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (int64, error)
	Credit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (int64, error)
	TopUpRecorded(ctx context.Context, reference string) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a wallet repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Exists(ctx context.Context, userID uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) Balance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	var user models.User
	if err := r.db.WithContext(ctx).
		Select("wallet").
		First(&user, "id = ?", userID).Error; err != nil {
		return decimal.Zero, err
	}
	return user.Wallet, nil
}

// Debit evaluates the balance guard inside the UPDATE itself so two racing
// debits can never both succeed past the balance.
func (r *repository) Debit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ? AND wallet >= ?", userID, amount).
		UpdateColumn("wallet", gorm.Expr("wallet - ?", amount))
	return result.RowsAffected, result.Error
}

func (r *repository) Credit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		UpdateColumn("wallet", gorm.Expr("wallet + ?", amount))
	return result.RowsAffected, result.Error
}

// TopUpRecorded reports whether a wallet credit with the given reference was
// already settled. Backs the exactly-once webhook contract.
func (r *repository) TopUpRecorded(ctx context.Context, reference string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.LedgerEvent{}).
		Where("type = ? AND reference = ?", enums.LedgerEventTypeWalletCredit, reference).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
