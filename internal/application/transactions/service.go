package transactions

import (
	"context"
	"errors"

	"vectorium-backend/internal/application/credits"
	"vectorium-backend/internal/application/holdings"
	"vectorium-backend/internal/application/wallet"
	"vectorium-backend/internal/domain"
	"vectorium-backend/internal/pkg/validation"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var ErrInsufficientStock = errors.New("Not enough credits available")

type Service struct {
	DB       *gorm.DB
	Wallet   *wallet.Service
	Holdings *holdings.Service
}

// CreateInput is the body of POST /transactions.
type CreateInput struct {
	CreditID string           `json:"creditId"`
	Type     domain.Direction `json:"type"`
	Quantity int              `json:"quantity"`
	Price    *decimal.Decimal `json:"price"`
}

func (in CreateInput) Validate() error {
	fe := validation.FieldErrors{}.Required(map[string]string{"creditId": in.CreditID})
	if !in.Type.Valid() {
		fe["type"] = "must be buy or sell"
	}
	if in.Quantity <= 0 {
		fe["quantity"] = "must be a positive integer"
	}
	if in.Price == nil {
		fe["price"] = "is required"
	} else if !in.Price.IsPositive() {
		fe["price"] = "must be greater than 0"
	}
	return fe.Err()
}

// List returns the user's transactions newest first with the item name attached.
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]domain.TransactionRecord, error) {
	var txs []domain.Transaction
	if err := s.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&txs).Error; err != nil {
		return nil, err
	}
	out := make([]domain.TransactionRecord, 0, len(txs))
	if len(txs) == 0 {
		return out, nil
	}

	creditIDs := map[string]bool{}
	for _, tx := range txs {
		creditIDs[tx.CreditID] = true
	}
	ids := make([]string, 0, len(creditIDs))
	for id := range creditIDs {
		ids = append(ids, id)
	}
	var items []domain.CatalogItem
	if err := s.DB.WithContext(ctx).Where("id IN ?", ids).Select("id, name").Find(&items).Error; err != nil {
		return nil, err
	}
	names := make(map[string]string, len(items))
	for _, it := range items {
		names[it.ID] = it.Name
	}

	for _, tx := range txs {
		out = append(out, tx.Record(names[tx.CreditID]))
	}
	return out, nil
}

// Create records a buy or sell and applies its balance, holding and stock
// effects in one database transaction. Nothing is written when any step fails.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, in CreateInput) (domain.TransactionRecord, error) {
	if err := in.Validate(); err != nil {
		return domain.TransactionRecord{}, err
	}
	total := domain.LineTotal(in.Quantity, *in.Price)

	var (
		row  domain.Transaction
		name string
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var item domain.CatalogItem
		if err := tx.Where("id = ?", in.CreditID).First(&item).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return credits.ErrCreditNotFound
			}
			return err
		}
		name = item.Name

		switch in.Type {
		case domain.DirectionBuy:
			if _, err := s.Wallet.Adjust(tx, userID, total.Neg()); err != nil {
				return err
			}
			if _, err := s.Holdings.Credit(tx, userID, in.CreditID, in.Quantity, *in.Price); err != nil {
				return err
			}
			res := tx.Model(&domain.CatalogItem{}).
				Where("id = ? AND quantity >= ?", in.CreditID, in.Quantity).
				Update("quantity", gorm.Expr("quantity - ?", in.Quantity))
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return ErrInsufficientStock
			}
		case domain.DirectionSell:
			if err := s.Holdings.Debit(tx, userID, in.CreditID, in.Quantity); err != nil {
				return err
			}
			if _, err := s.Wallet.Adjust(tx, userID, total); err != nil {
				return err
			}
		}

		row = domain.Transaction{
			UserID:      userID,
			CreditID:    in.CreditID,
			Type:        in.Type,
			Quantity:    in.Quantity,
			Price:       *in.Price,
			TotalAmount: total,
			Status:      domain.TxCompleted,
		}
		return tx.Create(&row).Error
	})
	if err != nil {
		return domain.TransactionRecord{}, err
	}

	log.Info().
		Str("user_id", userID.String()).
		Str("credit_id", in.CreditID).
		Str("type", string(in.Type)).
		Int("quantity", in.Quantity).
		Str("total", total.String()).
		Msg("transaction recorded")
	return row.Record(name), nil
}
