package forms

import (
	"errors"
	"io"

	"vectorium-backend/internal/application/notifications"
	"vectorium-backend/internal/pkg/response"
	"vectorium-backend/internal/pkg/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// Handlers serves the public careers, sales and support forms.
type Handlers struct {
	Service *notifications.Service
}

// CareersApply POST /api/v1/careers-apply (multipart: name, email, phone, position, cv)
func (h *Handlers) CareersApply(c *fiber.Ctx) error {
	in := notifications.CareersInput{
		Name:     c.FormValue("name"),
		Email:    c.FormValue("email"),
		Phone:    c.FormValue("phone"),
		Position: c.FormValue("position"),
	}
	if fh, err := c.FormFile("cv"); err == nil {
		f, err := fh.Open()
		if err != nil {
			return response.Error(c, "Could not read CV", fiber.StatusBadRequest, nil)
		}
		data, err := io.ReadAll(io.LimitReader(f, notifications.MaxCVBytes+1))
		_ = f.Close()
		if err != nil {
			return response.Error(c, "Could not read CV", fiber.StatusBadRequest, nil)
		}
		in.CV = &notifications.File{Name: fh.Filename, ContentType: fh.Header.Get("Content-Type"), Data: data}
	}
	inq, err := h.Service.SubmitCareers(c.UserContext(), in)
	if err != nil {
		return h.fail(c, err)
	}
	return response.Success(c, "Application submitted successfully", fiber.Map{"id": inq.ID}, nil)
}

// ContactSales POST /api/v1/contact-sales
func (h *Handlers) ContactSales(c *fiber.Ctx) error {
	var in notifications.ContactSalesInput
	if err := c.BodyParser(&in); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	inq, err := h.Service.SubmitContactSales(c.UserContext(), in)
	if err != nil {
		return h.fail(c, err)
	}
	return response.Success(c, "Message sent successfully", fiber.Map{"id": inq.ID}, nil)
}

// SupportQuery POST /api/v1/support-query
func (h *Handlers) SupportQuery(c *fiber.Ctx) error {
	var in notifications.SupportInput
	if err := c.BodyParser(&in); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	inq, err := h.Service.SubmitSupport(c.UserContext(), in)
	if err != nil {
		return h.fail(c, err)
	}
	return response.Success(c, "Support query sent successfully", fiber.Map{"id": inq.ID}, nil)
}

func (h *Handlers) fail(c *fiber.Ctx, err error) error {
	var fe validation.FieldErrors
	switch {
	case errors.As(err, &fe):
		return response.Error(c, "Validation failed", fiber.StatusBadRequest, fe)
	case errors.Is(err, notifications.ErrDeliveryFailed):
		return response.Error(c, err.Error(), fiber.StatusInternalServerError, nil)
	}
	log.Error().Err(err).Str("path", c.Path()).Msg("form submission failed")
	return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
}
