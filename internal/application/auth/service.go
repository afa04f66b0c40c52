package auth

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"vectorium-backend/internal/application/emails"
	"vectorium-backend/internal/pkg/validation"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/blake2b"
)

var (
	ErrInvalidCredentials = errors.New("Invalid email or password")
	ErrEmailNotConfirmed  = errors.New("Email not confirmed")
	ErrUserExists         = errors.New("User already registered")
	ErrSignUpRejected     = errors.New("Sign up rejected")
	ErrInvalidToken       = errors.New("Verification link is invalid or has expired")
	ErrNotAuthenticated   = errors.New("Not authenticated")
	ErrUnavailable        = errors.New("Authentication service unavailable")
)

const tokenCachePrefix = "auth:token:"

// ProfileEnsurer creates the local profile of a freshly registered account.
type ProfileEnsurer interface {
	EnsureProfile(ctx context.Context, userID uuid.UUID, email, fullName string) error
}

// ProfileEnsurerFunc adapts a function to ProfileEnsurer.
type ProfileEnsurerFunc func(ctx context.Context, userID uuid.UUID, email, fullName string) error

func (f ProfileEnsurerFunc) EnsureProfile(ctx context.Context, userID uuid.UUID, email, fullName string) error {
	return f(ctx, userID, email, fullName)
}

// Service fronts Supabase Auth and caches token lookups in Redis.
type Service struct {
	Provider Provider
	Redis    *redis.Client // optional
	CacheTTL time.Duration
	Mailer   emails.Sender // optional welcome email
	Profiles ProfileEnsurer
	SiteURL  string
}

type SignUpInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"fullName"`
}

func (in SignUpInput) Validate() error {
	fe := validation.FieldErrors{}.Required(map[string]string{
		"email": in.Email, "password": in.Password, "fullName": in.FullName,
	}).Email("email", in.Email)
	if in.Password != "" && !validation.IsValidPassword(in.Password) {
		fe["password"] = "must be at least 8 characters with a letter, a digit and a symbol"
	}
	if in.FullName != "" && !validation.IsValidFullname(in.FullName) {
		fe["fullName"] = "may contain letters, spaces, hyphens and apostrophes only"
	}
	return fe.Err()
}

type SignInInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (in SignInInput) Validate() error {
	return validation.FieldErrors{}.Required(map[string]string{"email": in.Email, "password": in.Password}).Err()
}

// SignUp registers the account; Supabase emails the confirmation link.
func (s *Service) SignUp(ctx context.Context, in SignUpInput) (*User, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))
	u, err := s.Provider.SignUp(ctx, email, in.Password, strings.TrimSpace(in.FullName), s.redirect("/auth/verification"))
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status < 500 && !strings.Contains(strings.ToLower(apiErr.Message), "already") {
			return nil, fmt.Errorf("%w: %s", ErrSignUpRejected, apiErr.Message)
		}
		return nil, mapProviderError(err, ErrUserExists)
	}

	if s.Profiles != nil {
		if id, perr := uuid.Parse(u.ID); perr == nil {
			if err := s.Profiles.EnsureProfile(ctx, id, email, strings.TrimSpace(in.FullName)); err != nil {
				log.Error().Err(err).Str("user_id", u.ID).Msg("signup: failed to create profile")
			}
		}
	}
	if s.Mailer != nil {
		if err := s.Mailer.SendWelcome(ctx, email, firstName(in.FullName)); err != nil {
			log.Warn().Err(err).Str("user_id", u.ID).Msg("signup: welcome email failed")
		}
	}
	return u, nil
}

func (s *Service) SignIn(ctx context.Context, in SignInInput) (*Session, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	sess, err := s.Provider.SignIn(ctx, strings.ToLower(strings.TrimSpace(in.Email)), in.Password)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && strings.Contains(strings.ToLower(apiErr.Message), "not confirmed") {
			return nil, ErrEmailNotConfirmed
		}
		return nil, mapProviderError(err, ErrInvalidCredentials)
	}
	s.cache(ctx, sess.AccessToken, &sess.User, time.Duration(sess.ExpiresIn)*time.Second)
	return sess, nil
}

// ForgotPassword asks Supabase to send a reset link. Unknown addresses are not revealed.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	fe := validation.FieldErrors{}.Required(map[string]string{"email": email}).Email("email", email)
	if err := fe.Err(); err != nil {
		return err
	}
	err := s.Provider.Recover(ctx, strings.ToLower(strings.TrimSpace(email)), s.redirect("/auth/forgot-password"))
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status < 500 && apiErr.Status != http.StatusTooManyRequests {
		log.Info().Int("status", apiErr.Status).Msg("forgot-password: provider rejected address")
		return nil
	}
	if err != nil {
		return mapProviderError(err, ErrUnavailable)
	}
	return nil
}

// Verify exchanges an emailed token hash for a session.
func (s *Service) Verify(ctx context.Context, kind, tokenHash string) (*Session, error) {
	fe := validation.FieldErrors{}.Required(map[string]string{"type": kind, "token_hash": tokenHash})
	switch kind {
	case "", "signup", "recovery", "email", "invite", "magiclink", "email_change":
	default:
		fe["type"] = "is not a supported verification type"
	}
	if err := fe.Err(); err != nil {
		return nil, err
	}
	sess, err := s.Provider.Verify(ctx, kind, tokenHash)
	if err != nil {
		return nil, mapProviderError(err, ErrInvalidToken)
	}
	s.cache(ctx, sess.AccessToken, &sess.User, time.Duration(sess.ExpiresIn)*time.Second)
	return sess, nil
}

// Authenticate resolves a bearer token to its user, consulting the cache first.
func (s *Service) Authenticate(ctx context.Context, token string) (*User, error) {
	if token == "" {
		return nil, ErrNotAuthenticated
	}
	if s.Redis != nil {
		b, err := s.Redis.Get(ctx, cacheKey(token)).Bytes()
		if err == nil {
			var u User
			if json.Unmarshal(b, &u) == nil && u.ID != "" {
				return &u, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			log.Warn().Err(err).Msg("auth cache read failed")
		}
	}

	u, err := s.Provider.GetUser(ctx, token)
	if err != nil {
		return nil, mapProviderError(err, ErrNotAuthenticated)
	}
	s.cache(ctx, token, u, 0)
	return u, nil
}

// SignOut revokes the token upstream and forgets it locally.
func (s *Service) SignOut(ctx context.Context, token string) error {
	if token == "" {
		return ErrNotAuthenticated
	}
	if s.Redis != nil {
		_ = s.Redis.Del(ctx, cacheKey(token)).Err()
	}
	if err := s.Provider.Logout(ctx, token); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
			return nil
		}
		return mapProviderError(err, ErrUnavailable)
	}
	return nil
}

// cache stores u under the hashed token. ttl caps CacheTTL when the token expires sooner.
func (s *Service) cache(ctx context.Context, token string, u *User, ttl time.Duration) {
	if s.Redis == nil || token == "" || u == nil || u.ID == "" {
		return
	}
	if s.CacheTTL > 0 && (ttl <= 0 || ttl > s.CacheTTL) {
		ttl = s.CacheTTL
	}
	if ttl <= 0 {
		return
	}
	b, err := json.Marshal(u)
	if err != nil {
		return
	}
	if err := s.Redis.Set(ctx, cacheKey(token), b, ttl).Err(); err != nil {
		log.Warn().Err(err).Msg("auth cache write failed")
	}
}

func (s *Service) redirect(path string) string {
	if s.SiteURL == "" {
		return ""
	}
	return strings.TrimRight(s.SiteURL, "/") + path
}

// cacheKey never stores the raw token.
func cacheKey(token string) string {
	sum := blake2b.Sum256([]byte(token))
	return tokenCachePrefix + hex.EncodeToString(sum[:])
}

// mapProviderError turns 4xx answers into clientErr and everything else into ErrUnavailable.
func mapProviderError(err error, clientErr error) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500 && apiErr.Status != http.StatusTooManyRequests {
		return clientErr
	}
	log.Error().Err(err).Msg("supabase auth call failed")
	return ErrUnavailable
}

func firstName(full string) string {
	f := strings.Fields(full)
	if len(f) == 0 {
		return ""
	}
	return f[0]
}
