package wallet

import (
	"context"
	"errors"

	"vectorium-backend/internal/domain"
	"vectorium-backend/internal/infrastructure/database"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrVersionConflict     = errors.New("Balance was changed by another request")
	ErrInvalidBalance      = errors.New("Balance must be a non-negative number")
	ErrInsufficientBalance = errors.New("Insufficient balance")
)

type Service struct {
	DB *gorm.DB
	// StartingBalance is credited to a profile the first time it is seen.
	StartingBalance decimal.Decimal
}

// Get returns the profile of userID, creating it with the starting balance if missing.
func (s *Service) Get(ctx context.Context, userID uuid.UUID) (*domain.Profile, error) {
	var p domain.Profile
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		p, err = s.ensure(tx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// SetBalance overwrites the balance. When expectedVersion is set and no longer
// matches the stored version the write is rejected with ErrVersionConflict.
func (s *Service) SetBalance(ctx context.Context, userID uuid.UUID, balance decimal.Decimal, expectedVersion *int64) (*domain.Profile, error) {
	if balance.IsNegative() {
		return nil, ErrInvalidBalance
	}
	var p domain.Profile
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cur, err := s.ensure(tx, userID)
		if err != nil {
			return err
		}
		if expectedVersion != nil && *expectedVersion != cur.Version {
			return ErrVersionConflict
		}
		res := tx.Model(&domain.Profile{}).
			Where("id = ? AND version = ?", userID, cur.Version).
			Updates(map[string]interface{}{"balance": balance, "version": cur.Version + 1})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrVersionConflict
		}
		return tx.Where("id = ?", userID).First(&p).Error
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Adjust adds delta to the balance inside tx. A result below zero fails with
// ErrInsufficientBalance and nothing is written.
func (s *Service) Adjust(tx *gorm.DB, userID uuid.UUID, delta decimal.Decimal) (*domain.Profile, error) {
	cur, err := s.ensure(tx, userID)
	if err != nil {
		return nil, err
	}
	next := cur.Balance.Add(delta)
	if next.IsNegative() {
		return nil, ErrInsufficientBalance
	}
	res := tx.Model(&domain.Profile{}).
		Where("id = ? AND version = ?", userID, cur.Version).
		Updates(map[string]interface{}{"balance": next, "version": cur.Version + 1})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrVersionConflict
	}
	cur.Balance = next
	cur.Version++
	return &cur, nil
}

// ensure loads the profile row with a row lock, creating it on first use.
func (s *Service) ensure(tx *gorm.DB, userID uuid.UUID) (domain.Profile, error) {
	var p domain.Profile
	err := database.ForUpdate(tx).Where("id = ?", userID).First(&p).Error
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return p, err
	}
	p = domain.Profile{ID: userID, Balance: s.StartingBalance}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&p).Error; err != nil {
		return p, err
	}
	err = tx.Where("id = ?", userID).First(&p).Error
	return p, err
}

// EnsureProfile creates the profile of a new account and fills in its contact
// details. An existing balance is never reset.
func (s *Service) EnsureProfile(ctx context.Context, userID uuid.UUID, email, fullName string) (*domain.Profile, error) {
	var p domain.Profile
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cur, err := s.ensure(tx, userID)
		if err != nil {
			return err
		}
		updates := map[string]interface{}{}
		if email != "" && cur.Email != email {
			updates["email"] = email
		}
		if fullName != "" && cur.FullName != fullName {
			updates["full_name"] = fullName
		}
		if len(updates) > 0 {
			if err := tx.Model(&domain.Profile{}).Where("id = ?", userID).Updates(updates).Error; err != nil {
				return err
			}
		}
		return tx.Where("id = ?", userID).First(&p).Error
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}
