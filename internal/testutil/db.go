package testutil

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/taskrupee/backend/internal/config"
	"github.com/taskrupee/backend/internal/database"
	"github.com/taskrupee/backend/internal/models"
)

// NewTestDB opens an isolated in-memory database with the full schema.
// A single connection keeps concurrent test writes serialized the way the
// row locks do in production.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.AutoMigrateModels(db))
	return db
}

// TestConfig returns a config with the platform defaults used in production
func TestConfig() *config.Config {
	cfg := &config.Config{}
	cfg.JWT.Secret = "test-secret"
	cfg.JWT.ExpirationHours = 24
	cfg.Gateway = config.GatewayConfig{
		ClientID:      "test-client",
		ClientSecret:  "test-secret",
		WebhookSecret: "test-webhook-secret",
		ReturnURL:     "http://localhost/return",
		NotifyURL:     "http://localhost/notify",
	}
	cfg.Platform = config.PlatformConfig{
		Currency:          "INR",
		KYCFee:            9900,
		ReactivationFee:   4900,
		MinWithdrawal:     20000,
		ReferralBonus:     5000,
		TaskReward:        1500,
		OrderTimeoutHours: 24,
		KYCVerdictPolicy:  "auto_verify",
	}
	return cfg
}

// CreateUser inserts a user with sane defaults, applying any mutators
func CreateUser(t *testing.T, db *gorm.DB, mutators ...func(*models.User)) *models.User {
	t.Helper()

	user := &models.User{
		Email:         uniqueEmail(),
		FirstName:     "Asha",
		LastName:      "Verma",
		PasswordHash:  "x",
		AccountStatus: models.AccountStatusActive,
		KYCStatus:     models.KYCStatusNotSubmitted,
		ReferralCode:  uniqueCode(),
	}
	for _, m := range mutators {
		m(user)
	}
	require.NoError(t, db.Create(user).Error)
	return user
}
