package credits

import (
	"context"
	"errors"
	"strings"

	"vectorium-backend/internal/domain"
	"vectorium-backend/internal/pkg/validation"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var ErrCreditNotFound = errors.New("Carbon credit not found")

type Service struct {
	DB *gorm.DB
}

// ListItems returns available items with stock, newest first, narrowed by f.
func (s *Service) ListItems(ctx context.Context, f domain.FilterCriteria) ([]domain.CatalogItem, error) {
	q := s.DB.WithContext(ctx).
		Where("status = ?", domain.ItemAvailable).
		Where("quantity > ?", 0)
	if f.Category != nil && *f.Category != "" {
		q = q.Where("category = ?", *f.Category)
	}
	if f.MinPrice != nil {
		q = q.Where("price >= ?", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		q = q.Where("price <= ?", *f.MaxPrice)
	}
	if f.Location != nil && *f.Location != "" {
		q = q.Where("location = ?", *f.Location)
	}
	if f.Vintage != nil && *f.Vintage != "" {
		q = q.Where("vintage = ?", *f.Vintage)
	}

	var items []domain.CatalogItem
	if err := q.Order("created_at DESC").Find(&items).Error; err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.CatalogItem{}
	}
	return items, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.CatalogItem, error) {
	var item domain.CatalogItem
	if err := s.DB.WithContext(ctx).Where("id = ?", id).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCreditNotFound
		}
		return nil, err
	}
	return &item, nil
}

// CreateInput is the body of a new listing.
type CreateInput struct {
	Name              string           `json:"name"`
	Description       string           `json:"description"`
	Price             *decimal.Decimal `json:"price"`
	Quantity          *int             `json:"quantity"`
	ProjectName       string           `json:"projectName"`
	Location          string           `json:"location"`
	CertificationBody string           `json:"certificationBody"`
	Vintage           string           `json:"vintage"`
	ImageURL          string           `json:"imageUrl"`
	Seller            string           `json:"seller"`
	CarbonReduction   *decimal.Decimal `json:"carbonReduction"`
	Category          domain.Category  `json:"category"`
}

func (in CreateInput) Validate() error {
	fe := validation.FieldErrors{}.Required(map[string]string{
		"name":     in.Name,
		"location": in.Location,
		"vintage":  in.Vintage,
	})
	if !in.Category.Valid() {
		fe["category"] = "must be one of renewable, forestry, agriculture, waste, other"
	}
	if in.Price == nil {
		fe["price"] = "is required"
	} else if in.Price.IsNegative() {
		fe["price"] = "must not be negative"
	}
	if in.Quantity == nil {
		fe["quantity"] = "is required"
	} else if *in.Quantity < 0 {
		fe["quantity"] = "must not be negative"
	}
	if in.CarbonReduction != nil && in.CarbonReduction.IsNegative() {
		fe["carbonReduction"] = "must not be negative"
	}
	return fe.Err()
}

// Item builds an available listing from a validated input. The id is left to the caller.
func (in CreateInput) Item() domain.CatalogItem {
	item := domain.CatalogItem{
		Name:              strings.TrimSpace(in.Name),
		Description:       in.Description,
		Price:             *in.Price,
		Quantity:          *in.Quantity,
		ProjectName:       in.ProjectName,
		Location:          strings.TrimSpace(in.Location),
		CertificationBody: in.CertificationBody,
		Vintage:           strings.TrimSpace(in.Vintage),
		ImageURL:          in.ImageURL,
		Seller:            in.Seller,
		Category:          in.Category,
		Status:            domain.ItemAvailable,
	}
	if in.CarbonReduction != nil {
		item.CarbonReduction = *in.CarbonReduction
	}
	return item
}

// Create validates and stores a new available listing, returning it with its assigned id.
func (s *Service) Create(ctx context.Context, in CreateInput) (*domain.CatalogItem, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	item := in.Item()
	if err := s.DB.WithContext(ctx).Create(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// SeedIfEmpty inserts items when the carbon_credits table has no rows.
func (s *Service) SeedIfEmpty(ctx context.Context, items []domain.CatalogItem) error {
	var n int64
	if err := s.DB.WithContext(ctx).Model(&domain.CatalogItem{}).Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	if err := s.DB.WithContext(ctx).Create(&items).Error; err != nil {
		return err
	}
	log.Info().Int("count", len(items)).Msg("seeded carbon credit catalog")
	return nil
}
