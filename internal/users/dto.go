package users

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/spotixhq/spotix-backend/pkg/db/models"
)

// UserDTO is the transport shape that omits sensitive credentials.
type UserDTO struct {
	ID               uuid.UUID       `json:"id"`
	Email            string          `json:"email"`
	FirstName        string          `json:"first_name"`
	LastName         string          `json:"last_name"`
	Phone            *string         `json:"phone,omitempty"`
	IsActive         bool            `json:"is_active"`
	LastLoginAt      *time.Time      `json:"last_login_at,omitempty"`
	Wallet           decimal.Decimal `json:"wallet"`
	IsBooker         bool            `json:"is_booker"`
	IsVerified       bool            `json:"is_verified"`
	BookerTag        *string         `json:"booker_tag,omitempty"`
	IsAgent          bool            `json:"is_agent"`
	AgentID          *string         `json:"agent_id,omitempty"`
	AgentWallet      decimal.Decimal `json:"agent_wallet"`
	AgentGain        decimal.Decimal `json:"agent_gain"`
	IsAdmin          bool            `json:"is_admin"`
	AdminPermissions []string        `json:"admin_permissions"`
	BankName         *string         `json:"bank_name,omitempty"`
	BankAccountName  *string         `json:"bank_account_name,omitempty"`
	BankAccountNo    *string         `json:"bank_account_no,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// CreateUserDTO holds the data required by the repo to persist a new user.
type CreateUserDTO struct {
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Phone        *string
	IsBooker     bool
	IsAdmin      bool
	IsActive     *bool
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}

	return &UserDTO{
		ID:               u.ID,
		Email:            u.Email,
		FirstName:        u.FirstName,
		LastName:         u.LastName,
		Phone:            u.Phone,
		IsActive:         u.IsActive,
		LastLoginAt:      u.LastLoginAt,
		Wallet:           u.Wallet,
		IsBooker:         u.IsBooker,
		IsVerified:       u.IsVerified,
		BookerTag:        u.BookerTag,
		IsAgent:          u.IsAgent,
		AgentID:          u.AgentID,
		AgentWallet:      u.AgentWallet,
		AgentGain:        u.AgentGain,
		IsAdmin:          u.IsAdmin,
		AdminPermissions: append([]string(nil), []string(u.AdminPermissions)...),
		BankName:         u.BankName,
		BankAccountName:  u.BankAccountName,
		BankAccountNo:    u.BankAccountNo,
		CreatedAt:        u.CreatedAt,
		UpdatedAt:        u.UpdatedAt,
	}
}

func (c CreateUserDTO) ToModel() *models.User {
	isActive := true
	if c.IsActive != nil {
		isActive = *c.IsActive
	}

	return &models.User{
		Email:            c.Email,
		PasswordHash:     c.PasswordHash,
		FirstName:        c.FirstName,
		LastName:         c.LastName,
		Phone:            c.Phone,
		IsActive:         isActive,
		IsBooker:         c.IsBooker,
		IsAdmin:          c.IsAdmin,
		AdminPermissions: []string{},
	}
}
