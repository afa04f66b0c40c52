package remotesync

import (
	"context"
	"fmt"

	"vectorium-backend/internal/account"
	"vectorium-backend/internal/domain"
	"vectorium-backend/internal/pkg/metrics"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// AccountSource loads balance, holdings and transactions for subject.
type AccountSource interface {
	LoadAccount(ctx context.Context, subject string) (account.State, error)
}

// TransactionWriter records a buy or sell remotely and returns the stored record.
type TransactionWriter interface {
	Create(ctx context.Context, subject string, req PurchaseRequest) (domain.TransactionRecord, error)
}

// PurchaseRequest is what the transaction write boundary accepts.
type PurchaseRequest struct {
	ItemID    string           `json:"creditId"`
	Type      domain.Direction `json:"type"`
	Quantity  int              `json:"quantity"`
	UnitPrice decimal.Decimal  `json:"price"`
}

// PurchaseOrder carries the request plus the catalog metadata the local holding keeps.
type PurchaseOrder struct {
	PurchaseRequest
	ItemName          string          `json:"creditName"`
	Vintage           string          `json:"vintage"`
	CertificationBody string          `json:"certificationBody"`
	UnitReduction     decimal.Decimal `json:"carbonReduction"`
}

func (o PurchaseOrder) buy() account.BuyOrder {
	return account.BuyOrder{
		ItemID:            o.ItemID,
		ItemName:          o.ItemName,
		Quantity:          o.Quantity,
		UnitPrice:         o.UnitPrice,
		Vintage:           o.Vintage,
		CertificationBody: o.CertificationBody,
		UnitReduction:     o.UnitReduction,
	}
}

func (o PurchaseOrder) sell() account.SellOrder {
	return account.SellOrder{ItemID: o.ItemID, ItemName: o.ItemName, Quantity: o.Quantity, UnitPrice: o.UnitPrice}
}

// AccountSync drives an account store from a remote source and writer.
type AccountSync struct {
	Store  *account.Store
	Source AccountSource
	Writer TransactionWriter
	seq    Sequencer
}

func NewAccountSync(store *account.Store, src AccountSource, w TransactionWriter) *AccountSync {
	return &AccountSync{Store: store, Source: src, Writer: w}
}

// Fetch replaces balance, holdings and transactions wholesale with the remote state.
func (a *AccountSync) Fetch(ctx context.Context, subject string) error {
	t := a.seq.Begin()
	a.Store.Pending()

	var (
		st  account.State
		err error
	)
	if subject == "" {
		err = ErrNotAuthenticated
	} else {
		st, err = a.Source.LoadAccount(ctx, subject)
	}
	if err != nil {
		if serr := a.seq.Settle(t, true, func(bool) { a.Store.Rejected(rejectMessage(err)) }); serr != nil {
			metrics.SyncOutcomes.WithLabelValues("account", "stale").Inc()
			return serr
		}
		metrics.SyncOutcomes.WithLabelValues("account", "rejected").Inc()
		log.Warn().Err(err).Uint64("ticket", t).Msg("account sync rejected")
		return err
	}

	serr := a.seq.Settle(t, false, func(latest bool) {
		a.Store.Fulfilled(st)
		if !latest {
			// a newer call is still in flight
			a.Store.Pending()
		}
	})
	if serr != nil {
		metrics.SyncOutcomes.WithLabelValues("account", "stale").Inc()
		return serr
	}
	metrics.SyncOutcomes.WithLabelValues("account", "fulfilled").Inc()
	return nil
}

// Purchase validates the order and the local precondition, writes it remotely,
// then applies the buy or sell to the store using the server's record. A record
// the store already holds (loaded by a concurrent Fetch) is not applied twice.
func (a *AccountSync) Purchase(ctx context.Context, subject string, o PurchaseOrder) (domain.TransactionRecord, error) {
	if err := a.precheck(o); err != nil {
		metrics.Orders.WithLabelValues(directionLabel(o.Type), "rejected").Inc()
		return domain.TransactionRecord{}, err
	}

	t := a.seq.Begin()
	a.Store.Pending()

	var (
		rec domain.TransactionRecord
		err error
	)
	if subject == "" {
		err = ErrNotAuthenticated
	} else {
		rec, err = a.Writer.Create(ctx, subject, o.PurchaseRequest)
	}
	if err != nil {
		if serr := a.seq.Settle(t, true, func(bool) { a.Store.Rejected(rejectMessage(err)) }); serr != nil {
			log.Debug().Uint64("ticket", t).Msg("purchase failure superseded")
		}
		metrics.Orders.WithLabelValues(directionLabel(o.Type), "failed").Inc()
		return domain.TransactionRecord{}, err
	}
	if rec.CreditName == "" {
		rec.CreditName = o.ItemName
	}

	var applyErr error
	a.seq.Commit(t, func(latest bool) {
		if !a.Store.HasTransaction(rec.ID) {
			if o.Type == domain.DirectionBuy {
				applyErr = a.Store.CommitBuy(o.buy(), rec)
			} else {
				applyErr = a.Store.CommitSell(o.sell(), rec)
			}
		}
		if !latest {
			return
		}
		if applyErr != nil {
			a.Store.Rejected(applyErr.Error())
			return
		}
		a.Store.Done()
	})
	if applyErr != nil {
		log.Error().Err(applyErr).Str("tx_id", rec.ID).Msg("remote purchase recorded but local account diverged")
		return rec, fmt.Errorf("apply purchase locally: %w", applyErr)
	}
	metrics.Orders.WithLabelValues(directionLabel(o.Type), "completed").Inc()
	return rec, nil
}

// directionLabel keeps client-sent directions out of metric label values.
func directionLabel(d domain.Direction) string {
	if !d.Valid() {
		return "invalid"
	}
	return string(d)
}

func (a *AccountSync) precheck(o PurchaseOrder) error {
	if !o.Type.Valid() || o.ItemID == "" || o.Quantity <= 0 || o.UnitPrice.IsNegative() {
		return account.ErrInvalidOrder
	}
	switch o.Type {
	case domain.DirectionBuy:
		if a.Store.Balance().LessThan(domain.LineTotal(o.Quantity, o.UnitPrice)) {
			return account.ErrInsufficientFunds
		}
	case domain.DirectionSell:
		h, ok := a.Store.Holding(o.ItemID)
		if !ok || h.Quantity < o.Quantity {
			return account.ErrInsufficientQuantity
		}
	}
	return nil
}

func (a *AccountSync) Phase() Phase {
	return a.seq.Phase()
}
