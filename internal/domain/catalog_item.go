package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Category is the fixed set of project tags a catalog item may carry.
type Category string

const (
	CategoryRenewable   Category = "renewable"
	CategoryForestry    Category = "forestry"
	CategoryAgriculture Category = "agriculture"
	CategoryWaste       Category = "waste"
	CategoryOther       Category = "other"
)

var categories = []Category{CategoryRenewable, CategoryForestry, CategoryAgriculture, CategoryWaste, CategoryOther}

// Categories returns the enumeration in display order.
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

func (c Category) Valid() bool {
	for _, v := range categories {
		if c == v {
			return true
		}
	}
	return false
}

// ItemStatus is the lifecycle status of a catalog item.
type ItemStatus string

const (
	ItemAvailable ItemStatus = "available"
	ItemSold      ItemStatus = "sold"
	ItemPending   ItemStatus = "pending"
)

func (s ItemStatus) Valid() bool {
	return s == ItemAvailable || s == ItemSold || s == ItemPending
}

// CatalogItem is a purchasable carbon credit listing (carbon_credits table).
type CatalogItem struct {
	ID                string          `gorm:"column:id;primaryKey" json:"id"`
	Name              string          `gorm:"column:name;not null" json:"name"`
	Description       string          `gorm:"column:description" json:"description"`
	Price             decimal.Decimal `gorm:"column:price;type:decimal(18,2);not null" json:"price"`
	Quantity          int             `gorm:"column:quantity;not null;default:0" json:"quantity"`
	ProjectName       string          `gorm:"column:project_name" json:"projectName"`
	Location          string          `gorm:"column:location;index" json:"location"`
	CertificationBody string          `gorm:"column:certification_body" json:"certificationBody"`
	Vintage           string          `gorm:"column:vintage;type:varchar(10)" json:"vintage"`
	ImageURL          string          `gorm:"column:image_url" json:"imageUrl"`
	Seller            string          `gorm:"column:seller" json:"seller"`
	TokenID           *string         `gorm:"column:token_id" json:"tokenId,omitempty"`
	CarbonReduction   decimal.Decimal `gorm:"column:carbon_reduction;type:decimal(18,2);not null;default:0" json:"carbonReduction"`
	ExpiryDate        *time.Time      `gorm:"column:expiry_date" json:"expiryDate,omitempty"`
	Category          Category        `gorm:"column:category;type:varchar(20);not null;index" json:"category"`
	Status            ItemStatus      `gorm:"column:status;type:varchar(20);not null;default:'available'" json:"status"`
	CreatedAt         time.Time       `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt         time.Time       `gorm:"column:updated_at" json:"updatedAt"`
}

func (CatalogItem) TableName() string {
	return "carbon_credits"
}

// BeforeCreate assigns an id when the caller did not supply one.
func (c *CatalogItem) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.Status == "" {
		c.Status = ItemAvailable
	}
	return nil
}

// ItemPatch carries the fields of an in-place catalog item update. Nil means unchanged.
type ItemPatch struct {
	Name              *string          `json:"name"`
	Description       *string          `json:"description"`
	Price             *decimal.Decimal `json:"price"`
	Quantity          *int             `json:"quantity"`
	ProjectName       *string          `json:"projectName"`
	Location          *string          `json:"location"`
	CertificationBody *string          `json:"certificationBody"`
	Vintage           *string          `json:"vintage"`
	ImageURL          *string          `json:"imageUrl"`
	Seller            *string          `json:"seller"`
	CarbonReduction   *decimal.Decimal `json:"carbonReduction"`
	Category          *Category        `json:"category"`
	Status            *ItemStatus      `json:"status"`
}

// Apply returns a copy of item with the patch fields overlaid.
func (p ItemPatch) Apply(item CatalogItem) CatalogItem {
	if p.Name != nil {
		item.Name = *p.Name
	}
	if p.Description != nil {
		item.Description = *p.Description
	}
	if p.Price != nil {
		item.Price = *p.Price
	}
	if p.Quantity != nil {
		item.Quantity = *p.Quantity
	}
	if p.ProjectName != nil {
		item.ProjectName = *p.ProjectName
	}
	if p.Location != nil {
		item.Location = *p.Location
	}
	if p.CertificationBody != nil {
		item.CertificationBody = *p.CertificationBody
	}
	if p.Vintage != nil {
		item.Vintage = *p.Vintage
	}
	if p.ImageURL != nil {
		item.ImageURL = *p.ImageURL
	}
	if p.Seller != nil {
		item.Seller = *p.Seller
	}
	if p.CarbonReduction != nil {
		item.CarbonReduction = *p.CarbonReduction
	}
	if p.Category != nil {
		item.Category = *p.Category
	}
	if p.Status != nil {
		item.Status = *p.Status
	}
	return item
}
