package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Holding is the persisted owned quantity of one catalog item (user_carbon_credits table).
type Holding struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserID        uuid.UUID       `gorm:"column:user_id;type:uuid;not null;uniqueIndex:idx_user_credit" json:"user_id"`
	CreditID      string          `gorm:"column:credit_id;not null;uniqueIndex:idx_user_credit" json:"credit_id"`
	Quantity      int             `gorm:"column:quantity;not null;default:0" json:"quantity"`
	PurchasePrice decimal.Decimal `gorm:"column:purchase_price;type:decimal(18,2);not null;default:0" json:"purchase_price"`
	CreatedAt     time.Time       `gorm:"column:created_at" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"column:updated_at" json:"updated_at"`
}

func (Holding) TableName() string {
	return "user_carbon_credits"
}

// BeforeCreate: never insert zero UUID for primary key.
func (h *Holding) BeforeCreate(tx *gorm.DB) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return nil
}

// AccountHolding is the wallet view of a holding: quantity plus the catalog metadata
// captured when it was acquired. CarbonReduction is the total for the whole quantity.
type AccountHolding struct {
	ID                string          `json:"id"`
	Name              string          `json:"name"`
	Quantity          int             `json:"quantity"`
	TokenID           *string         `json:"tokenId,omitempty"`
	Vintage           string          `json:"vintage"`
	CertificationBody string          `json:"certificationBody"`
	CarbonReduction   decimal.Decimal `json:"carbonReduction"`
}
