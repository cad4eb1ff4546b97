package authcodes

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/spotixhq/spotix-backend/pkg/db/models"
)

func setupAuthCodesTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	validations := `
CREATE TABLE IF NOT EXISTS auth_code_validations (
  id TEXT PRIMARY KEY,
  code TEXT NOT NULL UNIQUE,
  customer_name TEXT NOT NULL,
  customer_email TEXT NOT NULL DEFAULT '',
  ticket_id TEXT NOT NULL,
  agent_id TEXT NOT NULL DEFAULT '',
  validated INTEGER NOT NULL DEFAULT 0,
  validated_by TEXT,
  validated_at DATETIME,
  issued_by TEXT NOT NULL,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(validations).Error)
	return db
}

func newIssuedCode(t *testing.T, db *gorm.DB, agentID string, created time.Time) *models.AuthCodeValidation {
	t.Helper()

	validation := &models.AuthCodeValidation{
		ID:            uuid.New(),
		Code:          uuid.NewString()[:12],
		CustomerName:  "Ngozi Ade",
		CustomerEmail: "ngozi@example.com",
		TicketID:      "TKT-" + uuid.NewString()[:8],
		AgentID:       agentID,
		IssuedBy:      uuid.New(),
		CreatedAt:     created,
	}
	require.NoError(t, db.Create(validation).Error)
	return validation
}

func TestRepositoryConsumeFirstCallerWins(t *testing.T) {
	db := setupAuthCodesTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	issued := newIssuedCode(t, db, "AGT-CODE1", time.Now().UTC())
	validator := uuid.New()

	rows, err := repo.Consume(ctx, issued.Code, validator, time.Now().UTC())
	require.NoError(t, err)
	require.EqualValues(t, 1, rows)

	stored, err := repo.FindByCode(ctx, issued.Code)
	require.NoError(t, err)
	assert.True(t, stored.Validated)
	require.NotNil(t, stored.ValidatedBy)
	assert.Equal(t, validator, *stored.ValidatedBy)
	assert.NotNil(t, stored.ValidatedAt)

	// Replays must lose: zero rows and the original validator stays.
	rows, err = repo.Consume(ctx, issued.Code, uuid.New(), time.Now().UTC())
	require.NoError(t, err)
	assert.EqualValues(t, 0, rows)

	stored, err = repo.FindByCode(ctx, issued.Code)
	require.NoError(t, err)
	assert.Equal(t, validator, *stored.ValidatedBy)
}

func TestRepositoryConsumeUnknownCode(t *testing.T) {
	db := setupAuthCodesTestDB(t)
	repo := NewRepository(db)

	rows, err := repo.Consume(context.Background(), "no-such-code", uuid.New(), time.Now().UTC())
	require.NoError(t, err)
	assert.EqualValues(t, 0, rows)
}

func TestRepositoryListByAgentNewestFirst(t *testing.T) {
	db := setupAuthCodesTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	agentID := "AGT-" + uuid.NewString()[:8]
	older := newIssuedCode(t, db, agentID, time.Now().UTC().Add(-time.Hour))
	newer := newIssuedCode(t, db, agentID, time.Now().UTC())
	newIssuedCode(t, db, "AGT-OTHER", time.Now().UTC())

	listed, err := repo.ListByAgent(ctx, agentID)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, newer.ID, listed[0].ID)
	assert.Equal(t, older.ID, listed[1].ID)
}
