package holdings

import (
	"context"
	"time"

	"vectorium-backend/internal/domain"
	"vectorium-backend/internal/infrastructure/database"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Service encapsulates holdings operations.
type Service struct {
	DB *gorm.DB
}

// CreditSummary is the catalog metadata joined onto a holding.
type CreditSummary struct {
	Name              string          `json:"name"`
	Vintage           string          `json:"vintage"`
	CertificationBody string          `json:"certification_body"`
	CarbonReduction   decimal.Decimal `json:"carbon_reduction"`
	Category          domain.Category `json:"category"`
	TokenID           *string         `json:"token_id,omitempty"`
}

// UserCredit is one holding row with its catalog item.
type UserCredit struct {
	ID            uuid.UUID       `json:"id"`
	UserID        uuid.UUID       `json:"user_id"`
	CreditID      string          `json:"credit_id"`
	Quantity      int             `json:"quantity"`
	PurchasePrice decimal.Decimal `json:"purchase_price"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	CarbonCredits *CreditSummary  `json:"carbon_credits"`
}

// ListUserCredits returns the positive holdings of userID with catalog metadata.
func (s *Service) ListUserCredits(ctx context.Context, userID uuid.UUID) ([]UserCredit, error) {
	var rows []domain.Holding
	if err := s.DB.WithContext(ctx).
		Where("user_id = ? AND quantity > ?", userID, 0).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]UserCredit, 0, len(rows))
	if len(rows) == 0 {
		return out, nil
	}

	ids := make([]string, 0, len(rows))
	for _, h := range rows {
		ids = append(ids, h.CreditID)
	}
	var items []domain.CatalogItem
	if err := s.DB.WithContext(ctx).Where("id IN ?", ids).Find(&items).Error; err != nil {
		return nil, err
	}
	byID := make(map[string]domain.CatalogItem, len(items))
	for _, it := range items {
		byID[it.ID] = it
	}

	for _, h := range rows {
		uc := UserCredit{
			ID:            h.ID,
			UserID:        h.UserID,
			CreditID:      h.CreditID,
			Quantity:      h.Quantity,
			PurchasePrice: h.PurchasePrice,
			CreatedAt:     h.CreatedAt,
			UpdatedAt:     h.UpdatedAt,
		}
		if it, ok := byID[h.CreditID]; ok {
			uc.CarbonCredits = &CreditSummary{
				Name:              it.Name,
				Vintage:           it.Vintage,
				CertificationBody: it.CertificationBody,
				CarbonReduction:   it.CarbonReduction,
				Category:          it.Category,
				TokenID:           it.TokenID,
			}
		}
		out = append(out, uc)
	}
	return out, nil
}

// AccountHoldings converts the joined rows into the wallet view. The stored
// reduction is the item's per-unit figure multiplied by the held quantity.
func AccountHoldings(credits []UserCredit) []domain.AccountHolding {
	out := make([]domain.AccountHolding, 0, len(credits))
	for _, uc := range credits {
		h := domain.AccountHolding{ID: uc.CreditID, Quantity: uc.Quantity}
		if cs := uc.CarbonCredits; cs != nil {
			h.Name = cs.Name
			h.Vintage = cs.Vintage
			h.CertificationBody = cs.CertificationBody
			h.TokenID = cs.TokenID
			h.CarbonReduction = domain.LineTotal(uc.Quantity, cs.CarbonReduction)
		}
		out = append(out, h)
	}
	return out
}

// Credit adds quantity units of creditID to userID's holding inside tx,
// creating the row on first purchase. purchasePrice records the latest unit price.
func (s *Service) Credit(tx *gorm.DB, userID uuid.UUID, creditID string, quantity int, purchasePrice decimal.Decimal) (*domain.Holding, error) {
	var h domain.Holding
	err := database.ForUpdate(tx).Where("user_id = ? AND credit_id = ?", userID, creditID).First(&h).Error
	if err == gorm.ErrRecordNotFound {
		h = domain.Holding{UserID: userID, CreditID: creditID, Quantity: quantity, PurchasePrice: purchasePrice}
		if err := tx.Create(&h).Error; err != nil {
			return nil, err
		}
		return &h, nil
	}
	if err != nil {
		return nil, err
	}
	h.Quantity += quantity
	h.PurchasePrice = purchasePrice
	if err := tx.Save(&h).Error; err != nil {
		return nil, err
	}
	return &h, nil
}

// Debit removes quantity units inside tx. It returns ErrInsufficientHolding
// when the holding is missing or too small; a holding reaching zero is deleted.
func (s *Service) Debit(tx *gorm.DB, userID uuid.UUID, creditID string, quantity int) error {
	var h domain.Holding
	err := database.ForUpdate(tx).Where("user_id = ? AND credit_id = ?", userID, creditID).First(&h).Error
	if err == gorm.ErrRecordNotFound {
		return ErrInsufficientHolding
	}
	if err != nil {
		return err
	}
	if h.Quantity < quantity {
		return ErrInsufficientHolding
	}
	h.Quantity -= quantity
	if h.Quantity == 0 {
		return tx.Delete(&h).Error
	}
	return tx.Save(&h).Error
}
