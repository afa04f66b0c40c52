package account

import (
	"time"

	"github.com/shopspring/decimal"

	"vectorium-backend/internal/domain"
)

// SeedState is the demo account a new desk starts with: a 10000 balance, two
// holdings and the two purchases that produced them.
func SeedState(now time.Time) State {
	return State{
		Balance: decimal.NewFromInt(10000),
		Holdings: []domain.AccountHolding{
			{ID: "1", Name: "Amazon Rainforest Conservation", Quantity: 10, Vintage: "2024", CertificationBody: "Verra", CarbonReduction: decimal.NewFromInt(10)},
			{ID: "2", Name: "Wind Farm Project", Quantity: 5, Vintage: "2023", CertificationBody: "Gold Standard", CarbonReduction: decimal.NewFromInt(5)},
		},
		Transactions: []domain.TransactionRecord{
			{
				ID: "tx1", Type: domain.DirectionBuy, CreditID: "1", CreditName: "Amazon Rainforest Conservation",
				Quantity: 10, Price: decimal.RequireFromString("15.50"), TotalAmount: decimal.RequireFromString("155.00"),
				Timestamp: now.Add(-24 * time.Hour), Status: domain.TxCompleted,
			},
			{
				ID: "tx2", Type: domain.DirectionBuy, CreditID: "2", CreditName: "Wind Farm Project",
				Quantity: 5, Price: decimal.RequireFromString("12.75"), TotalAmount: decimal.RequireFromString("63.75"),
				Timestamp: now.Add(-48 * time.Hour), Status: domain.TxCompleted,
			},
		},
	}
}

// NewSeeded returns a store holding SeedState.
func NewSeeded(opts ...Option) *Store {
	s := New(opts...)
	s.Fulfilled(SeedState(s.now()))
	return s
}
