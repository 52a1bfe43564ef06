package account_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/taskrupee/backend/internal/models"
	"github.com/taskrupee/backend/internal/services/account"
	"github.com/taskrupee/backend/internal/services/gateway/gatewaytest"
	"github.com/taskrupee/backend/internal/testutil"
)

func newService(t *testing.T, db *gorm.DB) (*account.Service, *gatewaytest.Fake) {
	t.Helper()
	cfg := testutil.TestConfig()
	fake := gatewaytest.New(cfg.Gateway.WebhookSecret)
	return account.NewService(db, fake, cfg), fake
}

func TestSuspendAndReactivate(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc, fake := newService(t, db)
	user := testutil.CreateUser(t, db)

	require.NoError(t, svc.Suspend(user.ID, "policy violation"))

	var stored models.User
	require.NoError(t, db.First(&stored, "id = ?", user.ID).Error)
	assert.Equal(t, models.AccountStatusSuspended, stored.AccountStatus)
	require.NotNil(t, stored.SuspensionReason)
	assert.Equal(t, "policy violation", *stored.SuspensionReason)

	// Suspending twice is an invalid transition
	assert.ErrorIs(t, svc.Suspend(user.ID, "again"), account.ErrInvalidState)

	order, err := svc.InitiateReactivation(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(4900), order.Amount)
	assert.Equal(t, models.PaymentPurposeReactivationFee, order.Purpose)

	require.NoError(t, db.First(&stored, "id = ?", user.ID).Error)
	assert.Equal(t, models.AccountStatusPendingReactivation, stored.AccountStatus)

	fake.MarkPaid(order.OrderID)
	require.NoError(t, svc.ConfirmReactivation(order.OrderID))

	require.NoError(t, db.First(&stored, "id = ?", user.ID).Error)
	assert.Equal(t, models.AccountStatusActive, stored.AccountStatus)
	assert.Nil(t, stored.SuspensionReason)
}

func TestConfirmReactivationIsIdempotent(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc, _ := newService(t, db)
	user := testutil.CreateUser(t, db, func(u *models.User) {
		u.AccountStatus = models.AccountStatusSuspended
	})

	order, err := svc.InitiateReactivation(context.Background(), user.ID)
	require.NoError(t, err)

	require.NoError(t, svc.ConfirmReactivation(order.OrderID))
	require.NoError(t, svc.ConfirmReactivation(order.OrderID))

	var stored models.User
	require.NoError(t, db.First(&stored, "id = ?", user.ID).Error)
	assert.Equal(t, models.AccountStatusActive, stored.AccountStatus)
}

func TestInitiateReactivationRequiresSuspension(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc, _ := newService(t, db)
	user := testutil.CreateUser(t, db)

	_, err := svc.InitiateReactivation(context.Background(), user.ID)
	assert.ErrorIs(t, err, account.ErrInvalidState)
}

func TestFailedReactivationPaymentReturnsToSuspended(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc, _ := newService(t, db)
	user := testutil.CreateUser(t, db, func(u *models.User) {
		u.AccountStatus = models.AccountStatusSuspended
	})

	order, err := svc.InitiateReactivation(context.Background(), user.ID)
	require.NoError(t, err)

	require.NoError(t, svc.FailPayment(order.OrderID))

	var stored models.User
	require.NoError(t, db.First(&stored, "id = ?", user.ID).Error)
	assert.Equal(t, models.AccountStatusSuspended, stored.AccountStatus)

	// The user can start over with a fresh order
	_, err = svc.InitiateReactivation(context.Background(), user.ID)
	require.NoError(t, err)
}

func TestReactivationGatewayFailureKeepsUserSuspended(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc, fake := newService(t, db)
	user := testutil.CreateUser(t, db, func(u *models.User) {
		u.AccountStatus = models.AccountStatusSuspended
	})

	fake.FailNext["create_order"] = 1
	_, err := svc.InitiateReactivation(context.Background(), user.ID)
	require.Error(t, err)

	var stored models.User
	require.NoError(t, db.First(&stored, "id = ?", user.ID).Error)
	assert.Equal(t, models.AccountStatusSuspended, stored.AccountStatus)
}
