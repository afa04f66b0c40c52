package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Direction is the side of a transaction.
type Direction string

const (
	DirectionBuy  Direction = "buy"
	DirectionSell Direction = "sell"
)

func (d Direction) Valid() bool {
	return d == DirectionBuy || d == DirectionSell
}

// TxStatus is the settlement status of a transaction.
type TxStatus string

const (
	TxCompleted TxStatus = "completed"
	TxPending   TxStatus = "pending"
	TxFailed    TxStatus = "failed"
)

func (s TxStatus) Valid() bool {
	return s == TxCompleted || s == TxPending || s == TxFailed
}

// CanTransition reports whether a record in status s may move to next.
// Only pending records change; completed and failed are terminal.
func (s TxStatus) CanTransition(next TxStatus) bool {
	if s == next {
		return true
	}
	return s == TxPending && (next == TxCompleted || next == TxFailed)
}

// Transaction is the persisted buy/sell record (transactions table).
type Transaction struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserID      uuid.UUID       `gorm:"column:user_id;type:uuid;not null;index" json:"user_id"`
	CreditID    string          `gorm:"column:credit_id;not null" json:"credit_id"`
	Type        Direction       `gorm:"column:type;type:varchar(10);not null" json:"type"`
	Quantity    int             `gorm:"column:quantity;not null" json:"quantity"`
	Price       decimal.Decimal `gorm:"column:price;type:decimal(18,2);not null" json:"price"`
	TotalAmount decimal.Decimal `gorm:"column:total_amount;type:decimal(18,2);not null" json:"total_amount"`
	Status      TxStatus        `gorm:"column:status;type:varchar(20);not null;default:'completed'" json:"status"`
	TxHash      *string         `gorm:"column:tx_hash" json:"tx_hash,omitempty"`
	CreatedAt   time.Time       `gorm:"column:created_at" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"column:updated_at" json:"updated_at"`
}

func (Transaction) TableName() string {
	return "transactions"
}

func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// Record converts the row into the wallet's transaction record, snapshotting the item name.
func (t Transaction) Record(creditName string) TransactionRecord {
	return TransactionRecord{
		ID:          t.ID.String(),
		Type:        t.Type,
		CreditID:    t.CreditID,
		CreditName:  creditName,
		Quantity:    t.Quantity,
		Price:       t.Price,
		TotalAmount: t.TotalAmount,
		Timestamp:   t.CreatedAt,
		Status:      t.Status,
		TxHash:      t.TxHash,
	}
}

// TransactionRecord is one immutable entry of the wallet's transaction log.
// TotalAmount is fixed at creation and never recomputed.
type TransactionRecord struct {
	ID          string          `json:"id"`
	Type        Direction       `json:"type"`
	CreditID    string          `json:"creditId"`
	CreditName  string          `json:"creditName"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	Timestamp   time.Time       `json:"timestamp"`
	Status      TxStatus        `json:"status"`
	TxHash      *string         `json:"txHash,omitempty"`
}
