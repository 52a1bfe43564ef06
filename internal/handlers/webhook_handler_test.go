package handlers_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/taskrupee/backend/internal/handlers"
	"github.com/taskrupee/backend/internal/models"
	"github.com/taskrupee/backend/internal/services/account"
	"github.com/taskrupee/backend/internal/services/gateway"
	"github.com/taskrupee/backend/internal/services/gateway/gatewaytest"
	"github.com/taskrupee/backend/internal/services/kyc"
	"github.com/taskrupee/backend/internal/services/payment"
	"github.com/taskrupee/backend/internal/testutil"
)

type webhookFixture struct {
	router *gin.Engine
	fake   *gatewaytest.Fake
	kyc    *kyc.Service
	db     *gorm.DB
}

func newWebhookFixture(t *testing.T) *webhookFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.NewTestDB(t)
	cfg := testutil.TestConfig()
	fake := gatewaytest.New(cfg.Gateway.WebhookSecret)
	kycSvc := kyc.NewService(db, fake, cfg, kyc.AutoVerifyPolicy{}, nil)
	accountSvc := account.NewService(db, fake, cfg)
	reconciler := payment.NewReconciler(db, fake, kycSvc, accountSvc, cfg)

	router := gin.New()
	router.POST("/webhook", handlers.NewWebhookHandler(fake, reconciler).HandlePayment)

	return &webhookFixture{router: router, fake: fake, kyc: kycSvc, db: db}
}

func (f *webhookFixture) post(payload []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(payload))
	req.Header.Set("x-webhook-signature", signature)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *webhookFixture) startKYCPayment(t *testing.T) (*models.User, *models.PaymentOrder) {
	t.Helper()
	user := testutil.CreateUser(t, f.db)
	_, err := f.kyc.SubmitDocuments(user.ID, []string{"doc://pan"})
	require.NoError(t, err)
	order, err := f.kyc.InitiatePayment(context.Background(), user.ID)
	require.NoError(t, err)
	return user, order
}

func TestWebhookSettlesOrder(t *testing.T) {
	f := newWebhookFixture(t)
	user, order := f.startKYCPayment(t)

	payload, signature := f.fake.SignedWebhook(order.OrderID, gateway.PaymentStatusPaid)
	rec := f.post(payload, signature)
	assert.Equal(t, http.StatusOK, rec.Code)

	var stored models.User
	require.NoError(t, f.db.First(&stored, "id = ?", user.ID).Error)
	assert.Equal(t, models.KYCStatusVerified, stored.KYCStatus)
}

func TestWebhookBadSignatureChangesNothing(t *testing.T) {
	f := newWebhookFixture(t)
	user, order := f.startKYCPayment(t)

	payload, _ := f.fake.SignedWebhook(order.OrderID, gateway.PaymentStatusPaid)
	rec := f.post(payload, "forged-signature")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	var stored models.User
	require.NoError(t, f.db.First(&stored, "id = ?", user.ID).Error)
	assert.Equal(t, models.KYCStatusPaymentPending, stored.KYCStatus)

	var storedOrder models.PaymentOrder
	require.NoError(t, f.db.First(&storedOrder, "order_id = ?", order.OrderID).Error)
	assert.Equal(t, models.PaymentOrderStatusCreated, storedOrder.Status)
}

func TestWebhookTamperedPayloadRejected(t *testing.T) {
	f := newWebhookFixture(t)
	_, order := f.startKYCPayment(t)

	payload, signature := f.fake.SignedWebhook(order.OrderID, gateway.PaymentStatusPaid)
	tampered := bytes.Replace(payload, []byte(order.OrderID), []byte("ORD-other"), 1)
	rec := f.post(tampered, signature)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestWebhookReplayIsIdempotent(t *testing.T) {
	f := newWebhookFixture(t)
	user, order := f.startKYCPayment(t)

	payload, signature := f.fake.SignedWebhook(order.OrderID, gateway.PaymentStatusPaid)
	assert.Equal(t, http.StatusOK, f.post(payload, signature).Code)
	assert.Equal(t, http.StatusOK, f.post(payload, signature).Code)
	assert.Equal(t, http.StatusOK, f.post(payload, signature).Code)

	var stored models.User
	require.NoError(t, f.db.First(&stored, "id = ?", user.ID).Error)
	assert.Equal(t, models.KYCStatusVerified, stored.KYCStatus)
}

func TestWebhookUnknownOrderAccepted(t *testing.T) {
	f := newWebhookFixture(t)

	payload, signature := f.fake.SignedWebhook("ORD-unknown", gateway.PaymentStatusPaid)
	rec := f.post(payload, signature)
	// Acknowledged so the gateway stops redelivering
	assert.Equal(t, http.StatusOK, rec.Code)
}
