package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event is a booker's listed event together with its revenue account.
// available_revenue is the only balance payouts may draw against and is
// decremented in the same statement that checks it.
type Event struct {
	ID               uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	BookerID         uuid.UUID       `gorm:"column:booker_id;type:uuid;not null;index"`
	Title            string          `gorm:"column:title;not null"`
	Description      string          `gorm:"column:description;type:text;not null;default:''"`
	EventType        string          `gorm:"column:event_type;not null;default:''"`
	Venue            string          `gorm:"column:venue;not null;default:''"`
	City             string          `gorm:"column:city;not null;default:''"`
	IsFree           bool            `gorm:"column:is_free;not null;default:false"`
	StartsAt         *time.Time      `gorm:"column:starts_at"`
	EndsAt           *time.Time      `gorm:"column:ends_at"`
	IsPublished      bool            `gorm:"column:is_published;not null;default:false"`
	TicketsSold      int             `gorm:"column:tickets_sold;not null;default:0"`
	TotalRevenue     decimal.Decimal `gorm:"column:total_revenue;type:numeric(14,2);not null;default:0"`
	AvailableRevenue decimal.Decimal `gorm:"column:available_revenue;type:numeric(14,2);not null;default:0"`
	TotalPaidOut     decimal.Decimal `gorm:"column:total_paid_out;type:numeric(14,2);not null;default:0"`
	CreatedAt        time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// EventTicketType is a priced ticket tier within an event.
type EventTicketType struct {
	ID        uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	EventID   uuid.UUID       `gorm:"column:event_id;type:uuid;not null;index"`
	Name      string          `gorm:"column:name;not null"`
	Price     decimal.Decimal `gorm:"column:price;type:numeric(14,2);not null"`
	Quantity  *int            `gorm:"column:quantity"`
	Sold      int             `gorm:"column:sold;not null;default:0"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
