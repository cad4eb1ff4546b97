package events

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/spotixhq/spotix-backend/pkg/db/models"
	"github.com/spotixhq/spotix-backend/pkg/enums"
)

// Repository handles event and ticket-tier persistence plus the guarded
// revenue-account statements.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, event *models.Event) error
	Update(ctx context.Context, event *models.Event) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Event, error)
	ListByBooker(ctx context.Context, bookerID uuid.UUID) ([]models.Event, error)
	ListPublished(ctx context.Context) ([]models.Event, error)
	CreateTicketType(ctx context.Context, tier *models.EventTicketType) error
	FindTicketType(ctx context.Context, eventID uuid.UUID, name string) (*models.EventTicketType, error)
	ListTicketTypes(ctx context.Context, eventID uuid.UUID) ([]models.EventTicketType, error)
	IncrementSold(ctx context.Context, ticketTypeID uuid.UUID) (int64, error)
	CreditRevenue(ctx context.Context, eventID uuid.UUID, price decimal.Decimal) (int64, error)
	DebitRevenue(ctx context.Context, eventID uuid.UUID, amount decimal.Decimal) (int64, error)
	SumCompletedPayouts(ctx context.Context, eventID uuid.UUID) (decimal.Decimal, error)
	SetRevenueCaches(ctx context.Context, eventID uuid.UUID, available, paidOut decimal.Decimal) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an events repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, event *models.Event) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *repository) Update(ctx context.Context, event *models.Event) error {
	return r.db.WithContext(ctx).Save(event).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	var event models.Event
	if err := r.db.WithContext(ctx).First(&event, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *repository) ListByBooker(ctx context.Context, bookerID uuid.UUID) ([]models.Event, error) {
	var events []models.Event
	if err := r.db.WithContext(ctx).
		Where("booker_id = ?", bookerID).
		Order("created_at DESC").
		Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

func (r *repository) ListPublished(ctx context.Context) ([]models.Event, error) {
	var events []models.Event
	if err := r.db.WithContext(ctx).
		Where("is_published = true").
		Order("starts_at ASC").
		Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

func (r *repository) CreateTicketType(ctx context.Context, tier *models.EventTicketType) error {
	return r.db.WithContext(ctx).Create(tier).Error
}

func (r *repository) FindTicketType(ctx context.Context, eventID uuid.UUID, name string) (*models.EventTicketType, error) {
	var tier models.EventTicketType
	if err := r.db.WithContext(ctx).
		Where("event_id = ? AND name = ?", eventID, name).
		First(&tier).Error; err != nil {
		return nil, err
	}
	return &tier, nil
}

func (r *repository) ListTicketTypes(ctx context.Context, eventID uuid.UUID) ([]models.EventTicketType, error) {
	var tiers []models.EventTicketType
	if err := r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("price ASC").
		Find(&tiers).Error; err != nil {
		return nil, err
	}
	return tiers, nil
}

// IncrementSold bumps the tier's sold counter. The quantity cap, when the
// tier has one, is enforced in the same statement.
func (r *repository) IncrementSold(ctx context.Context, ticketTypeID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.EventTicketType{}).
		Where("id = ? AND (quantity IS NULL OR sold < quantity)", ticketTypeID).
		UpdateColumn("sold", gorm.Expr("sold + 1"))
	return result.RowsAffected, result.Error
}

// CreditRevenue settles one ticket sale into the revenue account in a single
// statement: tickets_sold, total_revenue and available_revenue move together.
func (r *repository) CreditRevenue(ctx context.Context, eventID uuid.UUID, price decimal.Decimal) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Event{}).
		Where("id = ?", eventID).
		UpdateColumns(map[string]any{
			"tickets_sold":      gorm.Expr("tickets_sold + 1"),
			"total_revenue":     gorm.Expr("total_revenue + ?", price),
			"available_revenue": gorm.Expr("available_revenue + ?", price),
		})
	return result.RowsAffected, result.Error
}

// DebitRevenue moves a completed payout out of the account. The available
// balance guard is part of the UPDATE so racing payouts cannot overdraw.
func (r *repository) DebitRevenue(ctx context.Context, eventID uuid.UUID, amount decimal.Decimal) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Event{}).
		Where("id = ? AND available_revenue >= ?", eventID, amount).
		UpdateColumns(map[string]any{
			"available_revenue": gorm.Expr("available_revenue - ?", amount),
			"total_paid_out":    gorm.Expr("total_paid_out + ?", amount),
		})
	return result.RowsAffected, result.Error
}

func (r *repository) SumCompletedPayouts(ctx context.Context, eventID uuid.UUID) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	if err := r.db.WithContext(ctx).
		Model(&models.Payout{}).
		Where("event_id = ? AND status = ?", eventID, enums.PayoutStatusCompleted).
		Select("SUM(payout_amount)").
		Scan(&total).Error; err != nil {
		return decimal.Zero, err
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal, nil
}

func (r *repository) SetRevenueCaches(ctx context.Context, eventID uuid.UUID, available, paidOut decimal.Decimal) error {
	return r.db.WithContext(ctx).
		Model(&models.Event{}).
		Where("id = ?", eventID).
		UpdateColumns(map[string]any{
			"available_revenue": available,
			"total_paid_out":    paidOut,
		}).Error
}
