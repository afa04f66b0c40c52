package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// InquiryKind names the public form a submission came from.
type InquiryKind string

const (
	InquiryCareers      InquiryKind = "careers_application"
	InquiryContactSales InquiryKind = "contact_sales"
	InquirySupport      InquiryKind = "support_query"
)

// Inquiry is one stored form submission (inquiries table).
type Inquiry struct {
	ID            uuid.UUID      `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Kind          InquiryKind    `gorm:"column:kind;type:varchar(32);not null;index" json:"kind"`
	Name          string         `gorm:"column:name;not null" json:"name"`
	Email         string         `gorm:"column:email;not null" json:"email"`
	Payload       datatypes.JSON `gorm:"column:payload;type:jsonb;not null" json:"payload"`
	AttachmentURL *string        `gorm:"column:attachment_url" json:"attachment_url,omitempty"`
	Delivered     bool           `gorm:"column:delivered;not null;default:false" json:"delivered"`
	CreatedAt     time.Time      `gorm:"column:created_at" json:"created_at"`
}

func (Inquiry) TableName() string {
	return "inquiries"
}

func (i *Inquiry) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
