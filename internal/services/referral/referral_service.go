package referral

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/taskrupee/backend/internal/config"
	"github.com/taskrupee/backend/internal/models"
	"github.com/taskrupee/backend/internal/services/ledger"
)

// ErrSelfReferral means a user tried to use their own referral code
var ErrSelfReferral = errors.New("users cannot refer themselves")

// Service attributes referrals at signup and credits the referrer once the
// referred user completes verification. The bonus is paid through the ledger,
// keyed on the referred user, so it can never be paid twice.
type Service struct {
	db       *gorm.DB
	ledger   *ledger.Service
	platform config.PlatformConfig
}

// NewService creates a new referral service
func NewService(db *gorm.DB, ledgerSvc *ledger.Service, cfg *config.Config) *Service {
	return &Service{db: db, ledger: ledgerSvc, platform: cfg.Platform}
}

// Attribute links a newly registered user to the owner of the referral code.
// An unknown code is ignored; attribution is best-effort and never blocks
// signup. A user already attributed stays attributed to their first referrer.
func (s *Service) Attribute(referredID uuid.UUID, referralCode string) error {
	code := strings.TrimSpace(referralCode)
	if code == "" {
		return nil
	}

	var referrer models.User
	if err := s.db.First(&referrer, "referral_code = ?", code).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Debug().Str("code", code).Msg("unknown referral code, skipping attribution")
			return nil
		}
		return fmt.Errorf("finding referrer: %w", err)
	}
	if referrer.ID == referredID {
		return ErrSelfReferral
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		var existing models.ReferralRecord
		err := tx.First(&existing, "referred_id = ?", referredID).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("finding existing attribution: %w", err)
		}

		record := models.ReferralRecord{
			ReferrerID: referrer.ID,
			ReferredID: referredID,
			Status:     models.ReferralStatusPending,
		}
		if err := tx.Create(&record).Error; err != nil {
			return fmt.Errorf("creating referral record: %w", err)
		}
		return tx.Model(&models.User{}).
			Where("id = ?", referredID).
			Update("referred_by", referrer.ID).Error
	})
}

// OnReferredVerified credits the referrer's bonus after the referred user
// passes verification. Idempotent: the ledger entry is keyed on the referred
// user, so replayed notifications credit nothing.
func (s *Service) OnReferredVerified(referredID uuid.UUID) error {
	var record models.ReferralRecord
	if err := s.db.First(&record, "referred_id = ?", referredID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil // user was not referred
		}
		return fmt.Errorf("finding referral record: %w", err)
	}

	switch record.Status {
	case models.ReferralStatusCredited, models.ReferralStatusVoid:
		return nil
	}

	if _, err := s.ledger.Credit(record.ReferrerID, models.LedgerKindReferralBonus, referredID.String(), s.platform.ReferralBonus); err != nil {
		// Suspended referrers still earn referral bonuses; only task rewards
		// are gated on account status, so this is a real failure
		return fmt.Errorf("crediting referral bonus: %w", err)
	}

	err := s.db.Model(&models.ReferralRecord{}).
		Where("id = ? AND status = ?", record.ID, models.ReferralStatusPending).
		Updates(map[string]interface{}{
			"status":      models.ReferralStatusCredited,
			"credited_at": gorm.Expr("CURRENT_TIMESTAMP"),
		}).Error
	if err != nil {
		return fmt.Errorf("marking referral credited: %w", err)
	}

	log.Info().
		Str("referrer_id", record.ReferrerID.String()).
		Str("referred_id", referredID.String()).
		Int64("bonus", s.platform.ReferralBonus).
		Msg("referral bonus credited")
	return nil
}

// Referrals returns the records where the user is the referrer, newest first
func (s *Service) Referrals(userID uuid.UUID) ([]models.ReferralRecord, error) {
	var records []models.ReferralRecord
	err := s.db.Where("referrer_id = ?", userID).Order("created_at DESC").Find(&records).Error
	return records, err
}

// GenerateCode builds a unique referral code from the user's first name plus
// a random suffix
func GenerateCode(firstName string) string {
	base := slug.Make(firstName)
	if base == "" {
		base = "user"
	}
	if len(base) > 12 {
		base = base[:12]
	}
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:6]
	return base + "-" + suffix
}
