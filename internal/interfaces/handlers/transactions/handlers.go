package transactions

import (
	"errors"

	"vectorium-backend/internal/application/credits"
	"vectorium-backend/internal/application/holdings"
	txsvc "vectorium-backend/internal/application/transactions"
	"vectorium-backend/internal/application/wallet"
	"vectorium-backend/internal/middleware"
	"vectorium-backend/internal/pkg/response"
	"vectorium-backend/internal/pkg/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

type Handlers struct {
	Service *txsvc.Service
}

// GetTransactions GET /api/v1/transactions
func (h *Handlers) GetTransactions(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	data, err := h.Service.List(c.UserContext(), userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID.String()).Msg("list transactions failed")
		return response.Error(c, "Failed to fetch transactions", fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "Transactions fetched successfully", data, nil)
}

// CreateTransaction POST /api/v1/transactions
func (h *Handlers) CreateTransaction(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	var in txsvc.CreateInput
	if err := c.BodyParser(&in); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	rec, err := h.Service.Create(c.UserContext(), userID, in)
	if err != nil {
		var fe validation.FieldErrors
		switch {
		case errors.As(err, &fe):
			return response.Error(c, "Validation failed", fiber.StatusBadRequest, fe)
		case errors.Is(err, credits.ErrCreditNotFound):
			return response.Error(c, err.Error(), fiber.StatusNotFound, nil)
		case errors.Is(err, wallet.ErrInsufficientBalance):
			return response.Error(c, err.Error(), fiber.StatusPaymentRequired, nil)
		case errors.Is(err, holdings.ErrInsufficientHolding):
			return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
		case errors.Is(err, txsvc.ErrInsufficientStock), errors.Is(err, wallet.ErrVersionConflict):
			return response.Error(c, err.Error(), fiber.StatusConflict, nil)
		}
		log.Error().Err(err).Str("user_id", userID.String()).Msg("create transaction failed")
		return response.Error(c, "Failed to record transaction", fiber.StatusInternalServerError, nil)
	}
	return response.SuccessCreated(c, "Transaction recorded successfully", rec, nil)
}
