package referral_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskrupee/backend/internal/models"
	"github.com/taskrupee/backend/internal/services/ledger"
	"github.com/taskrupee/backend/internal/services/referral"
	"github.com/taskrupee/backend/internal/testutil"
)

func TestAttributeAndCredit(t *testing.T) {
	db := testutil.NewTestDB(t)
	ledgerSvc := ledger.NewService(db)
	svc := referral.NewService(db, ledgerSvc, testutil.TestConfig())

	referrer := testutil.CreateUser(t, db)
	referred := testutil.CreateUser(t, db)

	require.NoError(t, svc.Attribute(referred.ID, referrer.ReferralCode))

	var stored models.User
	require.NoError(t, db.First(&stored, "id = ?", referred.ID).Error)
	require.NotNil(t, stored.ReferredBy)
	assert.Equal(t, referrer.ID, *stored.ReferredBy)

	require.NoError(t, svc.OnReferredVerified(referred.ID))

	balance, err := ledgerSvc.Balance(referrer.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5000), balance.Available)

	records, err := svc.Referrals(referrer.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, models.ReferralStatusCredited, records[0].Status)
	assert.NotNil(t, records[0].CreditedAt)
}

func TestDuplicateVerificationCreditsOnce(t *testing.T) {
	db := testutil.NewTestDB(t)
	ledgerSvc := ledger.NewService(db)
	svc := referral.NewService(db, ledgerSvc, testutil.TestConfig())

	referrer := testutil.CreateUser(t, db)
	referred := testutil.CreateUser(t, db)
	require.NoError(t, svc.Attribute(referred.ID, referrer.ReferralCode))

	require.NoError(t, svc.OnReferredVerified(referred.ID))
	require.NoError(t, svc.OnReferredVerified(referred.ID))
	require.NoError(t, svc.OnReferredVerified(referred.ID))

	balance, err := ledgerSvc.Balance(referrer.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5000), balance.Available)
}

func TestSelfReferralRejected(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := referral.NewService(db, ledger.NewService(db), testutil.TestConfig())
	user := testutil.CreateUser(t, db)

	assert.ErrorIs(t, svc.Attribute(user.ID, user.ReferralCode), referral.ErrSelfReferral)

	var count int64
	require.NoError(t, db.Model(&models.ReferralRecord{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestUnknownCodeIsIgnored(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := referral.NewService(db, ledger.NewService(db), testutil.TestConfig())
	user := testutil.CreateUser(t, db)

	require.NoError(t, svc.Attribute(user.ID, "no-such-code"))
	require.NoError(t, svc.Attribute(user.ID, ""))

	var count int64
	require.NoError(t, db.Model(&models.ReferralRecord{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestFirstAttributionWins(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := referral.NewService(db, ledger.NewService(db), testutil.TestConfig())

	first := testutil.CreateUser(t, db)
	second := testutil.CreateUser(t, db)
	referred := testutil.CreateUser(t, db)

	require.NoError(t, svc.Attribute(referred.ID, first.ReferralCode))
	require.NoError(t, svc.Attribute(referred.ID, second.ReferralCode))

	var record models.ReferralRecord
	require.NoError(t, db.First(&record, "referred_id = ?", referred.ID).Error)
	assert.Equal(t, first.ID, record.ReferrerID)
}

func TestVerificationWithoutReferralIsNoop(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := referral.NewService(db, ledger.NewService(db), testutil.TestConfig())
	user := testutil.CreateUser(t, db)

	require.NoError(t, svc.OnReferredVerified(user.ID))
}

func TestGenerateCode(t *testing.T) {
	code := referral.GenerateCode("Asha")
	assert.Contains(t, code, "asha-")

	other := referral.GenerateCode("Asha")
	assert.NotEqual(t, code, other)

	fallback := referral.GenerateCode("")
	assert.Contains(t, fallback, "user-")
}
