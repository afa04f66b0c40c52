package holdings

import (
	"context"
	"testing"

	"vectorium-backend/internal/domain"
	"vectorium-backend/internal/pkg/testutil"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestCreditDebit(t *testing.T) {
	db := testutil.OpenDB(t)
	testutil.SeedCatalog(t, db)
	s := &Service{DB: db}
	user := uuid.New()

	run := func(fn func(tx *gorm.DB) error) error { return db.Transaction(fn) }

	require.NoError(t, run(func(tx *gorm.DB) error {
		_, err := s.Credit(tx, user, "1", 3, decimal.RequireFromString("15.50"))
		return err
	}))
	require.NoError(t, run(func(tx *gorm.DB) error {
		h, err := s.Credit(tx, user, "1", 2, decimal.RequireFromString("16"))
		if err == nil {
			assert.Equal(t, 5, h.Quantity)
			assert.Equal(t, "16", h.PurchasePrice.String())
		}
		return err
	}))

	err := run(func(tx *gorm.DB) error { return s.Debit(tx, user, "1", 6) })
	assert.ErrorIs(t, err, ErrInsufficientHolding)
	err = run(func(tx *gorm.DB) error { return s.Debit(tx, user, "2", 1) })
	assert.ErrorIs(t, err, ErrInsufficientHolding)

	require.NoError(t, run(func(tx *gorm.DB) error { return s.Debit(tx, user, "1", 2) }))

	list, err := s.ListUserCredits(context.Background(), user)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 3, list[0].Quantity)
	require.NotNil(t, list[0].CarbonCredits)
	assert.Equal(t, "Amazon Rainforest Conservation", list[0].CarbonCredits.Name)

	view := AccountHoldings(list)
	require.Len(t, view, 1)
	assert.Equal(t, "1", view[0].ID)
	assert.Equal(t, "3000", view[0].CarbonReduction.String())

	require.NoError(t, run(func(tx *gorm.DB) error { return s.Debit(tx, user, "1", 3) }))
	var n int64
	db.Model(&domain.Holding{}).Where("user_id = ?", user).Count(&n)
	assert.Zero(t, n)
}

func TestListUserCredits_Empty(t *testing.T) {
	s := &Service{DB: testutil.OpenDB(t)}
	list, err := s.ListUserCredits(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}
