package ledger_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskrupee/backend/internal/models"
	"github.com/taskrupee/backend/internal/services/ledger"
	"github.com/taskrupee/backend/internal/testutil"
)

func TestCreditIsIdempotent(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := ledger.NewService(db)
	user := testutil.CreateUser(t, db)

	first, err := svc.Credit(user.ID, models.LedgerKindTaskReward, "task-42", 1500)
	require.NoError(t, err)

	second, err := svc.Credit(user.ID, models.LedgerKindTaskReward, "task-42", 1500)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	balance, err := svc.Balance(user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1500), balance.Available)
}

func TestCreditConcurrentDuplicates(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := ledger.NewService(db)
	user := testutil.CreateUser(t, db)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Credit(user.ID, models.LedgerKindTaskReward, "task-7", 1500)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	var count int64
	require.NoError(t, db.Model(&models.LedgerEntry{}).Where("user_id = ?", user.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	balance, err := svc.Balance(user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1500), balance.Available)
}

func TestCreditRejectsInvalidInput(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := ledger.NewService(db)
	user := testutil.CreateUser(t, db)

	_, err := svc.Credit(user.ID, models.LedgerKindTaskReward, "task-1", 0)
	assert.ErrorIs(t, err, ledger.ErrInvalidAmount)

	_, err = svc.Credit(user.ID, models.LedgerKindTaskReward, "task-1", -100)
	assert.ErrorIs(t, err, ledger.ErrInvalidAmount)

	_, err = svc.Credit(user.ID, models.LedgerKindWithdrawalDebit, "task-1", 100)
	assert.ErrorIs(t, err, ledger.ErrInvalidKind)
}

func TestTaskRewardRejectedWhileSuspended(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := ledger.NewService(db)
	user := testutil.CreateUser(t, db, func(u *models.User) {
		u.AccountStatus = models.AccountStatusSuspended
	})

	_, err := svc.Credit(user.ID, models.LedgerKindTaskReward, "task-1", 1500)
	assert.ErrorIs(t, err, ledger.ErrAccountSuspended)

	// Referral bonuses are not gated on account status
	_, err = svc.Credit(user.ID, models.LedgerKindReferralBonus, "ref-1", 5000)
	require.NoError(t, err)

	balance, err := svc.Balance(user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5000), balance.Available)
}

func TestReserveReducesAvailable(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := ledger.NewService(db)
	user := testutil.CreateUser(t, db)

	_, err := svc.Credit(user.ID, models.LedgerKindTaskReward, "task-1", 50000)
	require.NoError(t, err)

	reservation, err := svc.Reserve(user.ID, 30000)
	require.NoError(t, err)
	assert.Equal(t, models.ReservationStatusActive, reservation.Status)

	balance, err := svc.Balance(user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(20000), balance.Available)
	assert.Equal(t, int64(30000), balance.Pending)

	// The remaining available balance cannot cover a second large hold
	_, err = svc.Reserve(user.ID, 30000)
	assert.ErrorIs(t, err, ledger.ErrInsufficientBalance)
}

func TestConsumeReservationIsIdempotent(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := ledger.NewService(db)
	user := testutil.CreateUser(t, db)

	_, err := svc.Credit(user.ID, models.LedgerKindTaskReward, "task-1", 50000)
	require.NoError(t, err)

	reservation, err := svc.Reserve(user.ID, 30000)
	require.NoError(t, err)

	first, err := svc.ConsumeReservation(reservation.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(-30000), first.Amount)

	second, err := svc.ConsumeReservation(reservation.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	balance, err := svc.Balance(user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(20000), balance.Available)
	assert.Equal(t, int64(0), balance.Pending)
}

func TestReleaseReservation(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := ledger.NewService(db)
	user := testutil.CreateUser(t, db)

	_, err := svc.Credit(user.ID, models.LedgerKindTaskReward, "task-1", 50000)
	require.NoError(t, err)

	reservation, err := svc.Reserve(user.ID, 30000)
	require.NoError(t, err)

	require.NoError(t, svc.ReleaseReservation(reservation.ID))
	// Releasing again is a no-op
	require.NoError(t, svc.ReleaseReservation(reservation.ID))

	balance, err := svc.Balance(user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(50000), balance.Available)

	// A released reservation can never be consumed
	_, err = svc.ConsumeReservation(reservation.ID)
	assert.ErrorIs(t, err, ledger.ErrInvalidReservationState)
}

func TestReleaseConsumedReservationFails(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := ledger.NewService(db)
	user := testutil.CreateUser(t, db)

	_, err := svc.Credit(user.ID, models.LedgerKindTaskReward, "task-1", 50000)
	require.NoError(t, err)

	reservation, err := svc.Reserve(user.ID, 30000)
	require.NoError(t, err)

	_, err = svc.ConsumeReservation(reservation.ID)
	require.NoError(t, err)

	assert.ErrorIs(t, svc.ReleaseReservation(reservation.ID), ledger.ErrInvalidReservationState)
}

func TestEntriesPagination(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := ledger.NewService(db)
	user := testutil.CreateUser(t, db)

	for i := 0; i < 5; i++ {
		_, err := svc.Credit(user.ID, models.LedgerKindTaskReward, "task-"+string(rune('a'+i)), 1500)
		require.NoError(t, err)
	}

	entries, total, err := svc.Entries(user.ID, 1, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	assert.Len(t, entries, 3)

	entries, _, err = svc.Entries(user.ID, 2, 3)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}
