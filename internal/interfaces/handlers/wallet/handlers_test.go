package wallet

import (
	"context"
	"testing"

	"vectorium-backend/internal/application/holdings"
	walletsvc "vectorium-backend/internal/application/wallet"
	"vectorium-backend/internal/domain"
	"vectorium-backend/internal/pkg/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupWalletApp(t *testing.T, user uuid.UUID) (*fiber.App, *gorm.DB) {
	db := testutil.OpenDB(t)
	testutil.SeedCatalog(t, db)
	h := &Handlers{
		Wallet:   &walletsvc.Service{DB: db, StartingBalance: decimal.NewFromInt(10000)},
		Holdings: &holdings.Service{DB: db},
	}
	app := fiber.New()
	app.Use(testutil.AsUser(user))
	app.Get("/wallet", h.GetWallet)
	app.Post("/wallet", h.SetWallet)
	app.Get("/user-credits", h.UserCredits)
	return app, db
}

func TestWallet_GetCreatesStartingBalance(t *testing.T) {
	app, _ := setupWalletApp(t, uuid.New())
	code, body := testutil.Do(t, app, testutil.JSONRequest("GET", "/wallet", nil))
	require.Equal(t, fiber.StatusOK, code)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, float64(10000), data["balance"])
	assert.Equal(t, float64(0), data["version"])
}

func TestWallet_SetIsVersionFenced(t *testing.T) {
	app, _ := setupWalletApp(t, uuid.New())

	code, body := testutil.Do(t, app, testutil.JSONRequest("POST", "/wallet", map[string]interface{}{"balance": 500, "version": 0}))
	require.Equal(t, fiber.StatusOK, code)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, float64(500), data["balance"])
	assert.Equal(t, float64(1), data["version"])

	code, _ = testutil.Do(t, app, testutil.JSONRequest("POST", "/wallet", map[string]interface{}{"balance": 600, "version": 0}))
	assert.Equal(t, fiber.StatusConflict, code)

	code, _ = testutil.Do(t, app, testutil.JSONRequest("POST", "/wallet", map[string]interface{}{"balance": -1}))
	assert.Equal(t, fiber.StatusBadRequest, code)

	code, _ = testutil.Do(t, app, testutil.JSONRequest("POST", "/wallet", map[string]interface{}{}))
	assert.Equal(t, fiber.StatusBadRequest, code)

	// without a version the write is unconditional
	code, body = testutil.Do(t, app, testutil.JSONRequest("POST", "/wallet", map[string]interface{}{"balance": 42.5}))
	require.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, 42.5, body["data"].(map[string]interface{})["balance"])
}

func TestUserCredits(t *testing.T) {
	user := uuid.New()
	app, db := setupWalletApp(t, user)

	code, body := testutil.Do(t, app, testutil.JSONRequest("GET", "/user-credits", nil))
	require.Equal(t, fiber.StatusOK, code)
	assert.Empty(t, body["data"])

	require.NoError(t, db.Create(&domain.Holding{UserID: user, CreditID: "2", Quantity: 5, PurchasePrice: decimal.RequireFromString("12.75")}).Error)
	require.NoError(t, db.Create(&domain.Holding{UserID: user, CreditID: "3", Quantity: 0}).Error)
	require.NoError(t, db.WithContext(context.Background()).Create(&domain.Holding{UserID: uuid.New(), CreditID: "1", Quantity: 9}).Error)

	code, body = testutil.Do(t, app, testutil.JSONRequest("GET", "/user-credits", nil))
	require.Equal(t, fiber.StatusOK, code)
	rows := body["data"].([]interface{})
	require.Len(t, rows, 1)
	row := rows[0].(map[string]interface{})
	assert.Equal(t, "2", row["credit_id"])
	assert.Equal(t, float64(5), row["quantity"])
	assert.Equal(t, "Wind Farm Project", row["carbon_credits"].(map[string]interface{})["name"])
}

func TestWallet_RequiresUser(t *testing.T) {
	h := &Handlers{}
	app := fiber.New()
	app.Get("/wallet", h.GetWallet)
	code, _ := testutil.Do(t, app, testutil.JSONRequest("GET", "/wallet", nil))
	assert.Equal(t, fiber.StatusUnauthorized, code)
}
