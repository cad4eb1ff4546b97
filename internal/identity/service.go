package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/spotixhq/spotix-backend/pkg/db/models"
	pkgerrors "github.com/spotixhq/spotix-backend/pkg/errors"
)

type userLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Identity is the role snapshot settlement paths consult before writing.
type Identity struct {
	UserID           uuid.UUID `json:"user_id"`
	Email            string    `json:"email"`
	FullName         string    `json:"full_name"`
	IsBooker         bool      `json:"is_booker"`
	IsAgent          bool      `json:"is_agent"`
	IsVerified       bool      `json:"is_verified"`
	IsAdmin          bool      `json:"is_admin"`
	AdminPermissions []string  `json:"admin_permissions"`
}

// Service resolves user ids to role flags.
type Service interface {
	Resolve(ctx context.Context, userID uuid.UUID) (*Identity, error)
}

type service struct {
	users userLoader
}

// NewService builds an identity resolver over the users repository.
func NewService(users userLoader) (Service, error) {
	if users == nil {
		return nil, fmt.Errorf("user loader required")
	}
	return &service{users: users}, nil
}

// Resolve reads the user row; flags always reflect the current row, never a
// token snapshot.
func (s *service) Resolve(ctx context.Context, userID uuid.UUID) (*Identity, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user id required")
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "account deactivated")
	}

	return &Identity{
		UserID:           user.ID,
		Email:            user.Email,
		FullName:         strings.TrimSpace(user.FirstName + " " + user.LastName),
		IsBooker:         user.IsBooker,
		IsAgent:          user.IsAgent,
		IsVerified:       user.IsVerified,
		IsAdmin:          user.IsAdmin,
		AdminPermissions: append([]string(nil), []string(user.AdminPermissions)...),
	}, nil
}
