package agents

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/spotixhq/spotix-backend/pkg/db/models"
	"github.com/spotixhq/spotix-backend/pkg/enums"
)

// Repository moves agent balances with guarded single-statement updates and
// records the per-movement transaction rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindUser(ctx context.Context, userID uuid.UUID) (*models.User, error)
	MarkAgent(ctx context.Context, userID uuid.UUID, agentID string) (int64, error)
	FundWallet(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (int64, error)
	WithdrawEarnings(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (int64, error)
	CreateTransaction(ctx context.Context, transaction *models.AgentTransaction) error
	ListTransactions(ctx context.Context, userID uuid.UUID, kind *enums.AgentTransactionKind) ([]models.AgentTransaction, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an agents repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// MarkAgent flips the agent flag exactly once. Zero rows means the user is
// already an agent or does not exist.
func (r *repository) MarkAgent(ctx context.Context, userID uuid.UUID, agentID string) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ? AND NOT is_agent", userID).
		UpdateColumns(map[string]any{
			"is_agent": true,
			"agent_id": agentID,
		})
	return result.RowsAffected, result.Error
}

func (r *repository) FundWallet(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ? AND is_agent", userID).
		UpdateColumn("agent_wallet", gorm.Expr("agent_wallet + ?", amount))
	return result.RowsAffected, result.Error
}

// WithdrawEarnings carries the earnings guard in the UPDATE so two racing
// withdrawals can never both succeed past the balance.
func (r *repository) WithdrawEarnings(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ? AND is_agent AND agent_gain >= ?", userID, amount).
		UpdateColumn("agent_gain", gorm.Expr("agent_gain - ?", amount))
	return result.RowsAffected, result.Error
}

func (r *repository) CreateTransaction(ctx context.Context, transaction *models.AgentTransaction) error {
	return r.db.WithContext(ctx).Create(transaction).Error
}

func (r *repository) ListTransactions(ctx context.Context, userID uuid.UUID, kind *enums.AgentTransactionKind) ([]models.AgentTransaction, error) {
	query := r.db.WithContext(ctx).
		Where("agent_user_id = ?", userID).
		Order("created_at DESC")
	if kind != nil {
		query = query.Where("kind = ?", *kind)
	}

	var transactions []models.AgentTransaction
	if err := query.Find(&transactions).Error; err != nil {
		return nil, err
	}
	return transactions, nil
}
