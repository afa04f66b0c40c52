package wallet

import (
	"errors"

	"vectorium-backend/internal/application/holdings"
	walletsvc "vectorium-backend/internal/application/wallet"
	"vectorium-backend/internal/middleware"
	"vectorium-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

type Handlers struct {
	Wallet   *walletsvc.Service
	Holdings *holdings.Service
}

// Balance is the wallet body. Version must be echoed back to overwrite.
type Balance struct {
	Balance decimal.Decimal `json:"balance"`
	Version int64           `json:"version"`
}

type setBalanceRequest struct {
	Balance *decimal.Decimal `json:"balance"`
	Version *int64           `json:"version"`
}

// GetWallet GET /api/v1/wallet
func (h *Handlers) GetWallet(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	p, err := h.Wallet.Get(c.UserContext(), userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID.String()).Msg("get wallet failed")
		return response.Error(c, "Failed to fetch wallet", fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "Wallet fetched successfully", Balance{Balance: p.Balance, Version: p.Version}, nil)
}

// SetWallet POST /api/v1/wallet: absolute overwrite, fenced by version when given.
func (h *Handlers) SetWallet(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	var req setBalanceRequest
	if err := c.BodyParser(&req); err != nil || req.Balance == nil {
		return response.Error(c, "Balance is required", fiber.StatusBadRequest, nil)
	}
	p, err := h.Wallet.SetBalance(c.UserContext(), userID, *req.Balance, req.Version)
	switch {
	case errors.Is(err, walletsvc.ErrInvalidBalance):
		return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
	case errors.Is(err, walletsvc.ErrVersionConflict):
		return response.Error(c, err.Error(), fiber.StatusConflict, nil)
	case err != nil:
		log.Error().Err(err).Str("user_id", userID.String()).Msg("set wallet failed")
		return response.Error(c, "Failed to update wallet", fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "Wallet updated successfully", Balance{Balance: p.Balance, Version: p.Version}, nil)
}

// UserCredits GET /api/v1/user-credits
func (h *Handlers) UserCredits(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	rows, err := h.Holdings.ListUserCredits(c.UserContext(), userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID.String()).Msg("list user credits failed")
		return response.Error(c, "Failed to fetch user credits", fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "User credits fetched successfully", rows, nil)
}
