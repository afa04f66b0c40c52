package credits

import (
	"errors"
	"strings"

	creditsvc "vectorium-backend/internal/application/credits"
	"vectorium-backend/internal/domain"
	"vectorium-backend/internal/pkg/response"
	"vectorium-backend/internal/pkg/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

type Handlers struct {
	Service *creditsvc.Service
	// OnCreated runs after a listing is stored, e.g. to show it on loaded desks.
	OnCreated func(item domain.CatalogItem)
}

// List GET /api/v1/carbon-credits?category&minPrice&maxPrice&location&vintage
func (h *Handlers) List(c *fiber.Ctx) error {
	f, fe := ParseFilter(c)
	if fe != nil {
		return response.Error(c, "Invalid filter", fiber.StatusBadRequest, fe)
	}
	items, err := h.Service.ListItems(c.UserContext(), f)
	if err != nil {
		log.Error().Err(err).Msg("list carbon credits failed")
		return response.Error(c, "Failed to fetch carbon credits", fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "Carbon credits fetched successfully", items, fiber.Map{"count": len(items)})
}

// Get GET /api/v1/carbon-credits/:id
func (h *Handlers) Get(c *fiber.Ctx) error {
	item, err := h.Service.Get(c.UserContext(), c.Params("id"))
	if errors.Is(err, creditsvc.ErrCreditNotFound) {
		return response.Error(c, err.Error(), fiber.StatusNotFound, nil)
	}
	if err != nil {
		log.Error().Err(err).Str("credit_id", c.Params("id")).Msg("get carbon credit failed")
		return response.Error(c, "Failed to fetch carbon credit", fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "Carbon credit fetched successfully", item, nil)
}

// Create POST /api/v1/carbon-credits
func (h *Handlers) Create(c *fiber.Ctx) error {
	var in creditsvc.CreateInput
	if err := c.BodyParser(&in); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	item, err := h.Service.Create(c.UserContext(), in)
	if err != nil {
		var fe validation.FieldErrors
		if errors.As(err, &fe) {
			return response.Error(c, "Validation failed", fiber.StatusBadRequest, fe)
		}
		log.Error().Err(err).Msg("create carbon credit failed")
		return response.Error(c, "Failed to create carbon credit", fiber.StatusInternalServerError, nil)
	}
	if h.OnCreated != nil {
		h.OnCreated(*item)
	}
	return response.SuccessCreated(c, "Carbon credit created successfully", item, nil)
}

// ParseFilter reads the filter query parameters. Blank values place no constraint.
func ParseFilter(c *fiber.Ctx) (domain.FilterCriteria, validation.FieldErrors) {
	var f domain.FilterCriteria
	fe := validation.FieldErrors{}
	if v := strings.TrimSpace(c.Query("category")); v != "" {
		cat := domain.Category(strings.ToLower(v))
		if !cat.Valid() {
			fe["category"] = "must be one of renewable, forestry, agriculture, waste, other"
		}
		f.Category = &cat
	}
	f.MinPrice = parsePrice(c.Query("minPrice"), "minPrice", fe)
	f.MaxPrice = parsePrice(c.Query("maxPrice"), "maxPrice", fe)
	if v := strings.TrimSpace(c.Query("location")); v != "" {
		f.Location = &v
	}
	if v := strings.TrimSpace(c.Query("vintage")); v != "" {
		f.Vintage = &v
	}
	if len(fe) > 0 {
		return f, fe
	}
	return f, nil
}

func parsePrice(raw, name string, fe validation.FieldErrors) *decimal.Decimal {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		fe[name] = "must be a number"
		return nil
	}
	return &d
}
