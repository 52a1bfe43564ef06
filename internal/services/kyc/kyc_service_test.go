package kyc_test

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/taskrupee/backend/internal/models"
	"github.com/taskrupee/backend/internal/services/gateway/gatewaytest"
	"github.com/taskrupee/backend/internal/services/kyc"
	"github.com/taskrupee/backend/internal/testutil"
)

type recordingNotifier struct {
	mu    sync.Mutex
	calls []uuid.UUID
}

func (n *recordingNotifier) NotifyVerified(userID uuid.UUID) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, userID)
	return nil
}

func newService(t *testing.T, db *gorm.DB, policy kyc.VerdictPolicy) (*kyc.Service, *gatewaytest.Fake, *recordingNotifier) {
	t.Helper()
	cfg := testutil.TestConfig()
	fake := gatewaytest.New(cfg.Gateway.WebhookSecret)
	notifier := &recordingNotifier{}
	return kyc.NewService(db, fake, cfg, policy, notifier), fake, notifier
}

func TestVerificationHappyPath(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc, fake, notifier := newService(t, db, kyc.AutoVerifyPolicy{})
	user := testutil.CreateUser(t, db)

	submission, err := svc.SubmitDocuments(user.ID, []string{"doc://aadhaar-front", "doc://aadhaar-back"})
	require.NoError(t, err)
	assert.Equal(t, models.KYCVerdictPending, submission.Verdict)

	status, _, err := svc.Status(user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.KYCStatusDocumentsUploaded, status)

	order, err := svc.InitiatePayment(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(9900), order.Amount)
	assert.NotEmpty(t, order.PaymentSessionRef)

	status, _, err = svc.Status(user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.KYCStatusPaymentPending, status)

	fake.MarkPaid(order.OrderID)
	require.NoError(t, svc.ConfirmPayment(order.OrderID))

	status, submission2, err := svc.Status(user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.KYCStatusVerified, status)
	assert.Equal(t, models.KYCVerdictVerified, submission2.Verdict)

	require.Len(t, notifier.calls, 1)
	assert.Equal(t, user.ID, notifier.calls[0])
}

func TestConfirmPaymentIsIdempotent(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc, fake, notifier := newService(t, db, kyc.AutoVerifyPolicy{})
	user := testutil.CreateUser(t, db)

	_, err := svc.SubmitDocuments(user.ID, []string{"doc://pan"})
	require.NoError(t, err)
	order, err := svc.InitiatePayment(context.Background(), user.ID)
	require.NoError(t, err)

	fake.MarkPaid(order.OrderID)
	require.NoError(t, svc.ConfirmPayment(order.OrderID))
	require.NoError(t, svc.ConfirmPayment(order.OrderID))

	assert.Len(t, notifier.calls, 1)
}

func TestSubmitDocumentsInvalidStates(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc, _, _ := newService(t, db, kyc.AutoVerifyPolicy{})

	verified := testutil.CreateUser(t, db, func(u *models.User) {
		u.KYCStatus = models.KYCStatusVerified
	})
	_, err := svc.SubmitDocuments(verified.ID, []string{"doc://x"})
	assert.ErrorIs(t, err, kyc.ErrInvalidState)

	pending := testutil.CreateUser(t, db, func(u *models.User) {
		u.KYCStatus = models.KYCStatusPaymentPending
	})
	_, err = svc.SubmitDocuments(pending.ID, []string{"doc://x"})
	assert.ErrorIs(t, err, kyc.ErrInvalidState)

	fresh := testutil.CreateUser(t, db)
	_, err = svc.SubmitDocuments(fresh.ID, nil)
	assert.ErrorIs(t, err, kyc.ErrNoDocuments)
}

func TestInitiatePaymentRequiresDocuments(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc, _, _ := newService(t, db, kyc.AutoVerifyPolicy{})
	user := testutil.CreateUser(t, db)

	_, err := svc.InitiatePayment(context.Background(), user.ID)
	assert.ErrorIs(t, err, kyc.ErrInvalidState)
}

func TestInitiatePaymentGatewayFailureLeavesStateRetriable(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc, fake, _ := newService(t, db, kyc.AutoVerifyPolicy{})
	user := testutil.CreateUser(t, db)

	_, err := svc.SubmitDocuments(user.ID, []string{"doc://pan"})
	require.NoError(t, err)

	fake.FailNext["create_order"] = 1
	_, err = svc.InitiatePayment(context.Background(), user.ID)
	require.Error(t, err)

	status, _, err := svc.Status(user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.KYCStatusDocumentsUploaded, status)

	// Retry succeeds
	_, err = svc.InitiatePayment(context.Background(), user.ID)
	require.NoError(t, err)
}

func TestFailPaymentRollsBack(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc, _, _ := newService(t, db, kyc.AutoVerifyPolicy{})
	user := testutil.CreateUser(t, db)

	_, err := svc.SubmitDocuments(user.ID, []string{"doc://pan"})
	require.NoError(t, err)
	order, err := svc.InitiatePayment(context.Background(), user.ID)
	require.NoError(t, err)

	require.NoError(t, svc.FailPayment(order.OrderID))

	status, _, err := svc.Status(user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.KYCStatusDocumentsUploaded, status)

	var stored models.PaymentOrder
	require.NoError(t, db.First(&stored, "order_id = ?", order.OrderID).Error)
	assert.Equal(t, models.PaymentOrderStatusFailed, stored.Status)

	// A confirmation arriving after the failure settled must not flip state
	assert.NoError(t, svc.ConfirmPayment(order.OrderID))
	status, _, _ = svc.Status(user.ID)
	assert.Equal(t, models.KYCStatusDocumentsUploaded, status)
}

func TestManualReviewPolicy(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc, fake, notifier := newService(t, db, kyc.ManualReviewPolicy{})
	user := testutil.CreateUser(t, db)

	_, err := svc.SubmitDocuments(user.ID, []string{"doc://pan"})
	require.NoError(t, err)
	order, err := svc.InitiatePayment(context.Background(), user.ID)
	require.NoError(t, err)

	fake.MarkPaid(order.OrderID)
	require.NoError(t, svc.ConfirmPayment(order.OrderID))

	status, _, err := svc.Status(user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.KYCStatusPendingReview, status)
	assert.Empty(t, notifier.calls)

	pending, err := svc.PendingReview()
	require.NoError(t, err)
	require.Len(t, pending, 1)

	require.NoError(t, svc.AdminApprove(user.ID))

	status, _, err = svc.Status(user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.KYCStatusVerified, status)
	assert.Len(t, notifier.calls, 1)
}

func TestAdminRejectAllowsResubmission(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc, _, _ := newService(t, db, kyc.AutoVerifyPolicy{})
	user := testutil.CreateUser(t, db)

	_, err := svc.SubmitDocuments(user.ID, []string{"doc://blurry"})
	require.NoError(t, err)

	require.NoError(t, svc.AdminReject(user.ID, "document unreadable"))

	status, submission, err := svc.Status(user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.KYCStatusRejected, status)
	assert.Equal(t, models.KYCVerdictRejected, submission.Verdict)
	require.NotNil(t, submission.RejectionReason)
	assert.Equal(t, "document unreadable", *submission.RejectionReason)

	// Rejection opens a new submission cycle
	_, err = svc.SubmitDocuments(user.ID, []string{"doc://clear"})
	require.NoError(t, err)
}

func TestAdminRejectExpiresOpenOrder(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc, _, _ := newService(t, db, kyc.AutoVerifyPolicy{})
	user := testutil.CreateUser(t, db)

	_, err := svc.SubmitDocuments(user.ID, []string{"doc://pan"})
	require.NoError(t, err)
	order, err := svc.InitiatePayment(context.Background(), user.ID)
	require.NoError(t, err)

	require.NoError(t, svc.AdminReject(user.ID, "fraud suspected"))

	var stored models.PaymentOrder
	require.NoError(t, db.First(&stored, "order_id = ?", order.OrderID).Error)
	assert.Equal(t, models.PaymentOrderStatusExpired, stored.Status)
}
