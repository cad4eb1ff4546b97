package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// User represents the canonical identity entity. Wallet and agent balances
// live on the row so the settlement paths can debit them with guarded updates.
type User struct {
	ID               uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Email            string          `gorm:"type:text;not null;uniqueIndex"`
	PasswordHash     string          `gorm:"column:password_hash;not null"`
	FirstName        string          `gorm:"column:first_name;not null"`
	LastName         string          `gorm:"column:last_name;not null"`
	Phone            *string         `gorm:"column:phone"`
	IsActive         bool            `gorm:"column:is_active;not null;default:true"`
	LastLoginAt      *time.Time      `gorm:"column:last_login_at"`
	Wallet           decimal.Decimal `gorm:"column:wallet;type:numeric(14,2);not null;default:0"`
	IsBooker         bool            `gorm:"column:is_booker;not null;default:false"`
	IsVerified       bool            `gorm:"column:is_verified;not null;default:false"`
	BookerTag        *string         `gorm:"column:booker_tag;uniqueIndex"`
	IsAgent          bool            `gorm:"column:is_agent;not null;default:false"`
	AgentID          *string         `gorm:"column:agent_id;uniqueIndex"`
	AgentWallet      decimal.Decimal `gorm:"column:agent_wallet;type:numeric(14,2);not null;default:0"`
	AgentGain        decimal.Decimal `gorm:"column:agent_gain;type:numeric(14,2);not null;default:0"`
	IsAdmin          bool            `gorm:"column:is_admin;not null;default:false"`
	AdminPermissions pq.StringArray  `gorm:"type:text[];column:admin_permissions;not null;default:ARRAY[]::text[]"`
	BankName         *string         `gorm:"column:bank_name"`
	BankAccountName  *string         `gorm:"column:bank_account_name"`
	BankAccountNo    *string         `gorm:"column:bank_account_no"`
	CreatedAt        time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
