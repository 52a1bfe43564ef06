package ledger

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/taskrupee/backend/internal/database"
	"github.com/taskrupee/backend/internal/models"
)

// Service owns the monetary record. All balance-affecting writes go through
// its atomic operations; no other component computes or caches a balance.
type Service struct {
	db *gorm.DB
}

// NewService creates a new ledger service
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Balance is the read-only projection of a user's money
type Balance struct {
	Available int64 `json:"available"`
	Pending   int64 `json:"pending"`
}

// Credit appends a credit entry, idempotent on (userID, kind, sourceID): if an
// entry already exists it is returned without error and nothing is written.
// Task rewards are rejected while the account is suspended.
func (s *Service) Credit(userID uuid.UUID, kind models.LedgerEntryKind, sourceID string, amount int64) (*models.LedgerEntry, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if kind == models.LedgerKindWithdrawalDebit {
		return nil, ErrInvalidKind
	}
	if sourceID == "" {
		return nil, fmt.Errorf("%w: empty source id", ErrInvalidKind)
	}

	var entry models.LedgerEntry
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := database.LockForUpdate(tx).First(&user, "id = ?", userID).Error; err != nil {
			return fmt.Errorf("finding user: %w", err)
		}

		if kind == models.LedgerKindTaskReward && user.AccountStatus != models.AccountStatusActive {
			return ErrAccountSuspended
		}

		err := tx.Where("user_id = ? AND kind = ? AND source_id = ?", userID, kind, sourceID).First(&entry).Error
		if err == nil {
			return nil // already credited, return the existing entry
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("finding existing entry: %w", err)
		}

		entry = models.LedgerEntry{
			UserID:   userID,
			Kind:     kind,
			SourceID: sourceID,
			Amount:   amount,
		}
		if err := tx.Create(&entry).Error; err != nil {
			// A concurrent writer may have won the unique index race
			if database.IsDuplicateKey(err) {
				return tx.Where("user_id = ? AND kind = ? AND source_id = ?", userID, kind, sourceID).First(&entry).Error
			}
			return fmt.Errorf("creating ledger entry: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// Reserve atomically checks available balance and places a hold on it.
// The hold reduces available balance until released or consumed.
func (s *Service) Reserve(userID uuid.UUID, amount int64) (*models.Reservation, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	var reservation models.Reservation
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := database.LockForUpdate(tx).First(&user, "id = ?", userID).Error; err != nil {
			return fmt.Errorf("finding user: %w", err)
		}

		available, _, err := project(tx, userID)
		if err != nil {
			return err
		}
		if available < amount {
			return ErrInsufficientBalance
		}

		reservation = models.Reservation{
			UserID: userID,
			Amount: amount,
			Status: models.ReservationStatusActive,
		}
		return tx.Create(&reservation).Error
	})
	if err != nil {
		return nil, err
	}
	return &reservation, nil
}

// ConsumeReservation converts a reservation into a withdrawal_debit entry.
// Idempotent: consuming the same reservation twice returns the same entry.
func (s *Service) ConsumeReservation(reservationID uuid.UUID) (*models.LedgerEntry, error) {
	var entry models.LedgerEntry
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var reservation models.Reservation
		if err := tx.First(&reservation, "id = ?", reservationID).Error; err != nil {
			return fmt.Errorf("finding reservation: %w", err)
		}

		var user models.User
		if err := database.LockForUpdate(tx).First(&user, "id = ?", reservation.UserID).Error; err != nil {
			return fmt.Errorf("finding user: %w", err)
		}
		// Re-read under the user lock so concurrent consumers serialize
		if err := tx.First(&reservation, "id = ?", reservationID).Error; err != nil {
			return fmt.Errorf("finding reservation: %w", err)
		}

		switch reservation.Status {
		case models.ReservationStatusConsumed:
			return tx.First(&entry, "id = ?", reservation.EntryID).Error
		case models.ReservationStatusReleased:
			return ErrInvalidReservationState
		}

		entry = models.LedgerEntry{
			UserID:   reservation.UserID,
			Kind:     models.LedgerKindWithdrawalDebit,
			SourceID: reservation.ID.String(),
			Amount:   -reservation.Amount,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return fmt.Errorf("creating debit entry: %w", err)
		}

		return tx.Model(&reservation).Updates(map[string]interface{}{
			"status":   models.ReservationStatusConsumed,
			"entry_id": entry.ID,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// ReleaseReservation returns reserved funds to the available balance.
// Releasing an already released reservation is a no-op.
func (s *Service) ReleaseReservation(reservationID uuid.UUID) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var reservation models.Reservation
		if err := tx.First(&reservation, "id = ?", reservationID).Error; err != nil {
			return fmt.Errorf("finding reservation: %w", err)
		}

		var user models.User
		if err := database.LockForUpdate(tx).First(&user, "id = ?", reservation.UserID).Error; err != nil {
			return fmt.Errorf("finding user: %w", err)
		}
		if err := tx.First(&reservation, "id = ?", reservationID).Error; err != nil {
			return fmt.Errorf("finding reservation: %w", err)
		}

		switch reservation.Status {
		case models.ReservationStatusReleased:
			return nil
		case models.ReservationStatusConsumed:
			return ErrInvalidReservationState
		}

		return tx.Model(&reservation).Update("status", models.ReservationStatusReleased).Error
	})
}

// Balance returns the available/pending projection for a user
func (s *Service) Balance(userID uuid.UUID) (Balance, error) {
	var balance Balance
	err := s.db.Transaction(func(tx *gorm.DB) error {
		available, pending, err := project(tx, userID)
		if err != nil {
			return err
		}
		balance = Balance{Available: available, Pending: pending}
		return nil
	})
	return balance, err
}

// Entries returns a page of a user's ledger entries, newest first
func (s *Service) Entries(userID uuid.UUID, page, pageSize int) ([]models.LedgerEntry, int64, error) {
	var entries []models.LedgerEntry
	var total int64

	if err := s.db.Model(&models.LedgerEntry{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("counting entries: %w", err)
	}

	offset := (page - 1) * pageSize
	if err := s.db.Where("user_id = ?", userID).Order("created_at DESC").Offset(offset).Limit(pageSize).Find(&entries).Error; err != nil {
		return nil, 0, fmt.Errorf("finding entries: %w", err)
	}
	return entries, total, nil
}

// project computes available = sum(entries) - sum(active reservations).
// Must run inside a transaction holding the user row lock for writes.
func project(tx *gorm.DB, userID uuid.UUID) (available, pending int64, err error) {
	var entrySum int64
	err = tx.Model(&models.LedgerEntry{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&entrySum).Error
	if err != nil {
		return 0, 0, fmt.Errorf("summing entries: %w", err)
	}

	var reservedSum int64
	err = tx.Model(&models.Reservation{}).
		Where("user_id = ? AND status = ?", userID, models.ReservationStatusActive).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&reservedSum).Error
	if err != nil {
		return 0, 0, fmt.Errorf("summing reservations: %w", err)
	}

	return entrySum - reservedSum, reservedSum, nil
}
