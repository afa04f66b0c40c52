package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"vectorium-backend/internal/application/wallet"
	"vectorium-backend/internal/domain"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/paymentintent"
	"github.com/stripe/stripe-go/v76/webhook"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const purposeTopUp = "wallet_top_up"

var (
	ErrInvalidAmount    = errors.New("Amount must be a positive number with at most two decimals")
	ErrAmountTooLarge   = errors.New("Amount exceeds the top-up limit")
	ErrNotConfigured    = errors.New("Stripe not configured")
	ErrInvalidSignature = errors.New("Invalid webhook signature")
	ErrMalformedEvent   = errors.New("Malformed webhook event")
	maxTopUp            = decimal.NewFromInt(100000)
)

// IntentCreator creates Stripe PaymentIntents.
type IntentCreator interface {
	Create(ctx context.Context, amountCents int64, currency string, metadata map[string]string) (*Intent, error)
}

// Intent is what the client needs to confirm a payment.
type Intent struct {
	ID           string `json:"paymentIntentId"`
	ClientSecret string `json:"clientSecret"`
	AmountCents  int64  `json:"amountCents"`
	Currency     string `json:"currency"`
}

// StripeCreator uses the Stripe Go SDK with a per-client key.
type StripeCreator struct {
	SecretKey string
}

func (s *StripeCreator) Create(ctx context.Context, amountCents int64, currency string, metadata map[string]string) (*Intent, error) {
	if s.SecretKey == "" {
		return nil, ErrNotConfigured
	}
	client := paymentintent.Client{B: stripe.GetBackend(stripe.APIBackend), Key: s.SecretKey}
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amountCents),
		Currency: stripe.String(currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}
	pi, err := client.New(params)
	if err != nil {
		return nil, err
	}
	return &Intent{ID: pi.ID, ClientSecret: pi.ClientSecret, AmountCents: pi.Amount, Currency: string(pi.Currency)}, nil
}

// Service tops up wallet balances through Stripe.
type Service struct {
	DB            *gorm.DB
	Wallet        *wallet.Service
	Creator       IntentCreator
	WebhookSecret string
	Currency      string
}

func (s *Service) currency() string {
	if s.Currency != "" {
		return strings.ToLower(s.Currency)
	}
	return "usd"
}

// CreateTopUp opens a PaymentIntent for amount. The balance moves only when
// Stripe confirms the payment through the webhook.
func (s *Service) CreateTopUp(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (*Intent, error) {
	if !amount.IsPositive() || !amount.Equal(amount.Round(2)) {
		return nil, ErrInvalidAmount
	}
	if amount.GreaterThan(maxTopUp) {
		return nil, ErrAmountTooLarge
	}
	if s.Creator == nil {
		return nil, ErrNotConfigured
	}
	cents := amount.Shift(2).IntPart()
	intent, err := s.Creator.Create(ctx, cents, s.currency(), map[string]string{
		"user_id": userID.String(),
		"purpose": purposeTopUp,
		"amount":  amount.StringFixed(2),
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("user_id", userID.String()).Str("payment_intent_id", intent.ID).Int64("amount_cents", cents).Msg("top-up intent created")
	return intent, nil
}

// HandleWebhook verifies the Stripe signature and credits the balance for a
// succeeded top-up. It reports whether this call credited the balance; a
// redelivered event returns false with no error.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, sigHeader string) (bool, error) {
	if s.WebhookSecret == "" {
		return false, ErrNotConfigured
	}
	event, err := webhook.ConstructEventWithOptions(payload, sigHeader, s.WebhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	if string(event.Type) != "payment_intent.succeeded" {
		return false, nil
	}
	if event.Data == nil {
		return false, ErrMalformedEvent
	}
	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return false, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if pi.Metadata["purpose"] != purposeTopUp {
		return false, nil
	}
	userID, err := uuid.Parse(pi.Metadata["user_id"])
	if err != nil || pi.AmountReceived <= 0 {
		log.Warn().Str("payment_intent_id", pi.ID).Msg("top-up webhook without usable user or amount, skipping")
		return false, nil
	}
	return s.credit(ctx, event.ID, &pi, userID, event.Data.Raw)
}

func (s *Service) credit(ctx context.Context, eventID string, pi *stripe.PaymentIntent, userID uuid.UUID, raw []byte) (bool, error) {
	credited := false
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing domain.Payment
		if err := tx.Where("stripe_payment_intent_id = ?", pi.ID).First(&existing).Error; err == nil {
			return nil
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		payment := domain.Payment{
			StripePaymentIntentID: pi.ID,
			StripeEventID:         eventID,
			UserID:                userID,
			AmountCents:           pi.AmountReceived,
			Currency:              string(pi.Currency),
			Status:                string(pi.Status),
			RawPaymentIntent:      datatypes.JSON(raw),
		}
		if err := tx.Create(&payment).Error; err != nil {
			return err
		}
		if _, err := s.Wallet.Adjust(tx, userID, decimal.New(pi.AmountReceived, -2)); err != nil {
			return err
		}
		credited = true
		return nil
	})
	if err != nil {
		return false, err
	}
	if credited {
		log.Info().Str("user_id", userID.String()).Str("payment_intent_id", pi.ID).Int64("amount_cents", pi.AmountReceived).Msg("top-up credited")
	}
	return credited, nil
}
