package wallet

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/spotixhq/spotix-backend/pkg/db/models"
	"github.com/spotixhq/spotix-backend/pkg/enums"
)

func setupWalletTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	users := `
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  first_name TEXT NOT NULL,
  last_name TEXT NOT NULL,
  phone TEXT,
  is_active INTEGER NOT NULL DEFAULT 1,
  last_login_at DATETIME,
  wallet NUMERIC NOT NULL DEFAULT 0,
  is_booker INTEGER NOT NULL DEFAULT 0,
  is_verified INTEGER NOT NULL DEFAULT 0,
  booker_tag TEXT,
  is_agent INTEGER NOT NULL DEFAULT 0,
  agent_id TEXT,
  agent_wallet NUMERIC NOT NULL DEFAULT 0,
  agent_gain NUMERIC NOT NULL DEFAULT 0,
  is_admin INTEGER NOT NULL DEFAULT 0,
  admin_permissions TEXT,
  bank_name TEXT,
  bank_account_name TEXT,
  bank_account_no TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	ledgerEvents := `
CREATE TABLE IF NOT EXISTS ledger_events (
  id TEXT PRIMARY KEY,
  type TEXT NOT NULL,
  user_id TEXT NOT NULL,
  event_id TEXT,
  actor_user_id TEXT NOT NULL,
  amount NUMERIC NOT NULL,
  reference TEXT NOT NULL,
  metadata TEXT,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(users).Error)
	require.NoError(t, db.Exec(ledgerEvents).Error)
	return db
}

func newWalletUser(t *testing.T, db *gorm.DB, balance string) *models.User {
	t.Helper()

	user := &models.User{
		ID:           uuid.New(),
		Email:        uuid.NewString() + "@example.com",
		PasswordHash: "hash",
		FirstName:    "Ada",
		LastName:     "Obi",
		Wallet:       decimal.RequireFromString(balance),
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func TestRepositoryDebitGuardsBalance(t *testing.T) {
	db := setupWalletTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	user := newWalletUser(t, db, "100.00")

	rows, err := repo.Debit(ctx, user.ID, decimal.RequireFromString("60.00"))
	require.NoError(t, err)
	require.EqualValues(t, 1, rows)

	balance, err := repo.Balance(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.RequireFromString("40")), "balance after debit: %s", balance)

	// Second debit exceeds the remaining balance and must not touch the row.
	rows, err = repo.Debit(ctx, user.ID, decimal.RequireFromString("50.00"))
	require.NoError(t, err)
	assert.EqualValues(t, 0, rows)

	balance, err = repo.Balance(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.RequireFromString("40")), "balance after refused debit: %s", balance)
}

func TestRepositoryCreditUnknownUser(t *testing.T) {
	db := setupWalletTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	user := newWalletUser(t, db, "10.00")

	rows, err := repo.Credit(ctx, user.ID, decimal.RequireFromString("5.50"))
	require.NoError(t, err)
	assert.EqualValues(t, 1, rows)

	rows, err = repo.Credit(ctx, uuid.New(), decimal.RequireFromString("5.50"))
	require.NoError(t, err)
	assert.EqualValues(t, 0, rows)

	exists, err := repo.Exists(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.Exists(ctx, uuid.New())
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRepositoryTopUpRecorded(t *testing.T) {
	db := setupWalletTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	user := newWalletUser(t, db, "0")
	reference := "pi_" + uuid.NewString()

	recorded, err := repo.TopUpRecorded(ctx, reference)
	require.NoError(t, err)
	assert.False(t, recorded)

	credit := &models.LedgerEvent{
		ID:          uuid.New(),
		Type:        enums.LedgerEventTypeWalletCredit,
		UserID:      user.ID,
		ActorUserID: user.ID,
		Amount:      decimal.RequireFromString("25.00"),
		Reference:   reference,
	}
	require.NoError(t, db.Create(credit).Error)

	// A debit with the same reference must not satisfy the credit check.
	debit := &models.LedgerEvent{
		ID:          uuid.New(),
		Type:        enums.LedgerEventTypeWalletDebit,
		UserID:      user.ID,
		ActorUserID: user.ID,
		Amount:      decimal.RequireFromString("25.00"),
		Reference:   "pi_" + uuid.NewString(),
	}
	require.NoError(t, db.Create(debit).Error)

	recorded, err = repo.TopUpRecorded(ctx, reference)
	require.NoError(t, err)
	assert.True(t, recorded)

	recorded, err = repo.TopUpRecorded(ctx, debit.Reference)
	require.NoError(t, err)
	assert.False(t, recorded)
}
