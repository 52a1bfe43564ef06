package database

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"

	"github.com/taskrupee/backend/internal/models"
)

// AutoMigrateModels migrates the schema for every persisted entity.
// Used both by the initial gormigrate step and by test databases.
func AutoMigrateModels(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.LedgerEntry{},
		&models.Reservation{},
		&models.PaymentOrder{},
		&models.KYCSubmission{},
		&models.WithdrawalRequest{},
		&models.ReferralRecord{},
	)
}

// Migrate runs versioned database migrations
func Migrate(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID: "202508110001_withdrawal_user_status_index",
			Migrate: func(tx *gorm.DB) error {
				return tx.Exec("CREATE INDEX IF NOT EXISTS idx_withdrawals_user_status ON withdrawal_requests (user_id, status)").Error
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Exec("DROP INDEX IF EXISTS idx_withdrawals_user_status").Error
			},
		},
	})

	m.InitSchema(func(tx *gorm.DB) error {
		return AutoMigrateModels(tx)
	})

	return m.Migrate()
}
