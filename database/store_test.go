package database

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wisdomAdida/edmerge/models"
	"github.com/wisdomAdida/edmerge/storage"
	"gorm.io/gorm"
)

func TestTranslate(t *testing.T) {
	assert.NoError(t, translate(nil))
	assert.ErrorIs(t, translate(gorm.ErrRecordNotFound), storage.ErrNotFound)
	assert.ErrorIs(t, translate(gorm.ErrDuplicatedKey), storage.ErrDuplicate)

	other := errors.New("connection reset")
	assert.Equal(t, other, translate(other))
}

// openTestStore needs TEST_DATABASE_URL pointing at a disposable database.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	require.NoError(t, Migrate(dsn))
	db, err := Connect(dsn)
	require.NoError(t, err)
	return NewStore(db)
}

func TestEarnerLockRollsBackOnError(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	tutor := models.User{FullName: "Lock Test", Email: uuid.NewString() + "@example.com", Role: models.RoleTutor, IsActive: true}
	require.NoError(t, store.db.Create(&tutor).Error)

	boom := errors.New("boom")
	err := store.WithEarnerLock(ctx, tutor.ID, func(tx storage.Storage) error {
		w := models.Withdrawal{
			TutorID:                 tutor.ID,
			EarnerRole:              tutor.Role,
			Amount:                  decimal.NewFromInt(10),
			Status:                  models.WithdrawalStatusPending,
			Channel:                 models.WithdrawalChannelManual,
			TransactionID:           "WD-" + uuid.NewString(),
			RequestDate:             time.Now(),
			EstimatedCompletionDate: time.Now().Add(72 * time.Hour),
		}
		require.NoError(t, tx.CreateWithdrawal(ctx, &w))
		return boom
	})
	require.ErrorIs(t, err, boom)

	rows, err := store.ListWithdrawalsByEarner(ctx, tutor.ID)
	require.NoError(t, err)
	assert.Empty(t, rows)

	err = store.WithEarnerLock(ctx, uuid.New(), func(storage.Storage) error { return nil })
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
