package tickets

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/spotixhq/spotix-backend/pkg/db/models"
)

// Repository persists issued tickets and the buyer-facing history stream.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateAttendee(ctx context.Context, attendee *models.Attendee) error
	CreateHistory(ctx context.Context, history *models.TicketHistory) error
	FindAttendeeByTicketID(ctx context.Context, ticketID string) (*models.Attendee, error)
	ListHistoryByUser(ctx context.Context, userID uuid.UUID) ([]models.TicketHistory, error)
	ListAttendeesByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Attendee, error)
	MarkCheckedIn(ctx context.Context, ticketID string) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a tickets repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateAttendee(ctx context.Context, attendee *models.Attendee) error {
	return r.db.WithContext(ctx).Create(attendee).Error
}

func (r *repository) CreateHistory(ctx context.Context, history *models.TicketHistory) error {
	return r.db.WithContext(ctx).Create(history).Error
}

func (r *repository) FindAttendeeByTicketID(ctx context.Context, ticketID string) (*models.Attendee, error) {
	var attendee models.Attendee
	if err := r.db.WithContext(ctx).
		Where("ticket_id = ?", ticketID).
		First(&attendee).Error; err != nil {
		return nil, err
	}
	return &attendee, nil
}

func (r *repository) ListHistoryByUser(ctx context.Context, userID uuid.UUID) ([]models.TicketHistory, error) {
	var history []models.TicketHistory
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&history).Error; err != nil {
		return nil, err
	}
	return history, nil
}

func (r *repository) ListAttendeesByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Attendee, error) {
	var attendees []models.Attendee
	if err := r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("created_at ASC").
		Find(&attendees).Error; err != nil {
		return nil, err
	}
	return attendees, nil
}

// MarkCheckedIn flips the flag once; zero rows means the ticket was already
// used or does not exist.
func (r *repository) MarkCheckedIn(ctx context.Context, ticketID string) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Attendee{}).
		Where("ticket_id = ? AND NOT checked_in", ticketID).
		UpdateColumns(map[string]any{
			"checked_in":    true,
			"checked_in_at": time.Now(),
		})
	return result.RowsAffected, result.Error
}
