package auth

import (
	"errors"

	authsvc "vectorium-backend/internal/application/auth"
	"vectorium-backend/internal/middleware"
	"vectorium-backend/internal/pkg/response"
	"vectorium-backend/internal/pkg/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// Handlers holds dependencies for auth endpoints.
type Handlers struct {
	Service *authsvc.Service
	// OnSignOut runs after a successful sign-out, e.g. to drop per-account state.
	OnSignOut func(userID string)
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type verifyRequest struct {
	Type      string `json:"type"`
	TokenHash string `json:"token_hash"`
}

// SignUp POST /api/v1/auth/signup
func (h *Handlers) SignUp(c *fiber.Ctx) error {
	var in authsvc.SignUpInput
	if err := c.BodyParser(&in); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	u, err := h.Service.SignUp(c.UserContext(), in)
	if err != nil {
		return fail(c, err)
	}
	return response.SuccessCreated(c, "Account created. Check your email to confirm it.", fiber.Map{
		"id":    u.ID,
		"email": u.Email,
	}, nil)
}

// SignIn POST /api/v1/auth/signin
func (h *Handlers) SignIn(c *fiber.Ctx) error {
	var in authsvc.SignInInput
	if err := c.BodyParser(&in); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	sess, err := h.Service.SignIn(c.UserContext(), in)
	if err != nil {
		return fail(c, err)
	}
	return response.Success(c, "Signed in successfully", sess, nil)
}

// ForgotPassword POST /api/v1/auth/forgot-password
func (h *Handlers) ForgotPassword(c *fiber.Ctx) error {
	var req forgotPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	if err := h.Service.ForgotPassword(c.UserContext(), req.Email); err != nil {
		return fail(c, err)
	}
	return response.Success(c, "If an account exists for this email, a reset link has been sent", nil, nil)
}

// Verify POST /api/v1/auth/verify (also accepts ?type=&token_hash= from email links)
func (h *Handlers) Verify(c *fiber.Ctx) error {
	req := verifyRequest{Type: c.Query("type"), TokenHash: c.Query("token_hash")}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
		}
	}
	sess, err := h.Service.Verify(c.UserContext(), req.Type, req.TokenHash)
	if err != nil {
		return fail(c, err)
	}
	return response.Success(c, "Email verified successfully", sess, nil)
}

// SignOut DELETE /api/v1/auth/signout
func (h *Handlers) SignOut(c *fiber.Ctx) error {
	token := middleware.BearerToken(c)
	if err := h.Service.SignOut(c.UserContext(), token); err != nil {
		return fail(c, err)
	}
	if id, ok := middleware.UserID(c); ok && h.OnSignOut != nil {
		h.OnSignOut(id.String())
	}
	return response.Success(c, "Signed out successfully", nil, nil)
}

// Me GET /api/v1/auth/me
func (h *Handlers) Me(c *fiber.Ctx) error {
	user := middleware.GetUser(c)
	if user == nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	return response.Success(c, "User fetched successfully", user, nil)
}

func fail(c *fiber.Ctx, err error) error {
	var fe validation.FieldErrors
	switch {
	case errors.As(err, &fe):
		return response.Error(c, "Validation failed", fiber.StatusBadRequest, fe)
	case errors.Is(err, authsvc.ErrInvalidCredentials), errors.Is(err, authsvc.ErrNotAuthenticated):
		return response.Error(c, err.Error(), fiber.StatusUnauthorized, nil)
	case errors.Is(err, authsvc.ErrEmailNotConfirmed):
		return response.Error(c, err.Error(), fiber.StatusForbidden, nil)
	case errors.Is(err, authsvc.ErrUserExists):
		return response.Error(c, err.Error(), fiber.StatusConflict, nil)
	case errors.Is(err, authsvc.ErrSignUpRejected), errors.Is(err, authsvc.ErrInvalidToken):
		return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
	case errors.Is(err, authsvc.ErrUnavailable):
		return response.Error(c, err.Error(), fiber.StatusServiceUnavailable, nil)
	}
	log.Error().Err(err).Str("path", c.Path()).Msg("auth request failed")
	return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
}
