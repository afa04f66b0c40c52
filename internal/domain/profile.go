package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Profile holds the cash balance of one authenticated account (profiles table).
// Version increases on every balance write and fences concurrent writers.
type Profile struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Email     string          `gorm:"column:email" json:"email"`
	FullName  string          `gorm:"column:full_name" json:"full_name"`
	Balance   decimal.Decimal `gorm:"column:balance;type:decimal(18,2);not null;default:0" json:"balance"`
	Version   int64           `gorm:"column:version;not null;default:0" json:"version"`
	CreatedAt time.Time       `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time       `gorm:"column:updated_at" json:"updated_at"`
}

func (Profile) TableName() string {
	return "profiles"
}
