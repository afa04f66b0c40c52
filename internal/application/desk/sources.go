package desk

import (
	"context"

	"vectorium-backend/internal/account"
	"vectorium-backend/internal/application/credits"
	"vectorium-backend/internal/application/holdings"
	"vectorium-backend/internal/application/transactions"
	"vectorium-backend/internal/application/wallet"
	"vectorium-backend/internal/domain"
	"vectorium-backend/internal/remotesync"

	"github.com/google/uuid"
)

// Sources serves the sync adapters from the database services. The subject
// is the authenticated user id.
type Sources struct {
	Credits      *credits.Service
	Wallet       *wallet.Service
	Holdings     *holdings.Service
	Transactions *transactions.Service
}

var (
	_ remotesync.CatalogSource     = (*Sources)(nil)
	_ remotesync.AccountSource     = (*Sources)(nil)
	_ remotesync.TransactionWriter = (*Sources)(nil)
)

func (s *Sources) ListItems(ctx context.Context, criteria domain.FilterCriteria) ([]domain.CatalogItem, error) {
	return s.Credits.ListItems(ctx, criteria)
}

func (s *Sources) LoadAccount(ctx context.Context, subject string) (account.State, error) {
	userID, err := uuid.Parse(subject)
	if err != nil {
		return account.State{}, remotesync.ErrNotAuthenticated
	}
	p, err := s.Wallet.Get(ctx, userID)
	if err != nil {
		return account.State{}, err
	}
	held, err := s.Holdings.ListUserCredits(ctx, userID)
	if err != nil {
		return account.State{}, err
	}
	txs, err := s.Transactions.List(ctx, userID)
	if err != nil {
		return account.State{}, err
	}
	return account.State{
		Balance:      p.Balance,
		Holdings:     holdings.AccountHoldings(held),
		Transactions: txs,
	}, nil
}

func (s *Sources) Create(ctx context.Context, subject string, req remotesync.PurchaseRequest) (domain.TransactionRecord, error) {
	userID, err := uuid.Parse(subject)
	if err != nil {
		return domain.TransactionRecord{}, remotesync.ErrNotAuthenticated
	}
	price := req.UnitPrice
	return s.Transactions.Create(ctx, userID, transactions.CreateInput{
		CreditID: req.ItemID,
		Type:     req.Type,
		Quantity: req.Quantity,
		Price:    &price,
	})
}
