package payments

import (
	"errors"

	paymentsvc "vectorium-backend/internal/application/payments"
	"vectorium-backend/internal/middleware"
	"vectorium-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

type Handlers struct {
	Service *paymentsvc.Service
}

type topUpRequest struct {
	Amount *decimal.Decimal `json:"amount"`
}

// TopUp POST /api/v1/wallet/top-up: opens a Stripe PaymentIntent for the amount.
func (h *Handlers) TopUp(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	var req topUpRequest
	if err := c.BodyParser(&req); err != nil || req.Amount == nil {
		return response.Error(c, "Amount is required", fiber.StatusBadRequest, nil)
	}
	intent, err := h.Service.CreateTopUp(c.UserContext(), userID, *req.Amount)
	switch {
	case errors.Is(err, paymentsvc.ErrInvalidAmount), errors.Is(err, paymentsvc.ErrAmountTooLarge):
		return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
	case errors.Is(err, paymentsvc.ErrNotConfigured):
		return response.Error(c, err.Error(), fiber.StatusServiceUnavailable, nil)
	case err != nil:
		log.Error().Err(err).Str("user_id", userID.String()).Msg("create top-up intent failed")
		return response.Error(c, "Failed to create payment", fiber.StatusBadGateway, nil)
	}
	return response.SuccessCreated(c, "Payment intent created", intent, nil)
}

// Webhook POST /api/v1/stripe/webhook: raw body, signature verification, then process.
// Domain failures still answer 200 so Stripe does not retry them forever.
func (h *Handlers) Webhook(c *fiber.Ctx) error {
	raw := c.BodyRaw()
	if len(raw) == 0 {
		log.Warn().Msg("Stripe webhook received empty body")
		return c.Status(fiber.StatusBadRequest).SendString("Webhook Error: empty body")
	}
	payload := make([]byte, len(raw))
	copy(payload, raw)

	credited, err := h.Service.HandleWebhook(c.UserContext(), payload, c.Get("Stripe-Signature"))
	switch {
	case errors.Is(err, paymentsvc.ErrInvalidSignature), errors.Is(err, paymentsvc.ErrMalformedEvent):
		log.Warn().Err(err).Bool("has_sig", c.Get("Stripe-Signature") != "").Msg("Stripe webhook rejected")
		return c.Status(fiber.StatusBadRequest).SendString("Webhook Error: " + err.Error())
	case errors.Is(err, paymentsvc.ErrNotConfigured):
		return c.Status(fiber.StatusServiceUnavailable).SendString("Webhook Error: " + err.Error())
	case err != nil:
		log.Error().Err(err).Msg("Stripe webhook processing failed")
		return c.Status(fiber.StatusInternalServerError).SendString("Webhook Error: processing failed")
	}
	return c.JSON(fiber.Map{"received": true, "credited": credited})
}
