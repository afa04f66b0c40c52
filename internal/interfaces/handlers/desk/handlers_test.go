package desk

import (
	"context"
	"testing"
	"time"

	"vectorium-backend/internal/application/credits"
	desksvc "vectorium-backend/internal/application/desk"
	"vectorium-backend/internal/application/holdings"
	"vectorium-backend/internal/application/transactions"
	"vectorium-backend/internal/application/wallet"
	"vectorium-backend/internal/domain"
	"vectorium-backend/internal/pkg/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	app      *fiber.App
	db       *gorm.DB
	registry *desksvc.Registry
	user     uuid.UUID
}

func setupDeskApp(t *testing.T) fixture {
	db := testutil.OpenDB(t)
	testutil.SeedCatalog(t, db)
	w := &wallet.Service{DB: db, StartingBalance: decimal.NewFromInt(500)}
	hs := &holdings.Service{DB: db}
	src := &desksvc.Sources{
		Credits:      &credits.Service{DB: db},
		Wallet:       w,
		Holdings:     hs,
		Transactions: &transactions.Service{DB: db, Wallet: w, Holdings: hs},
	}
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	reg := desksvc.NewRegistry(src, rdb, time.Hour)

	user := uuid.New()
	h := &Handlers{Registry: reg}
	app := fiber.New()
	g := app.Group("/desk", testutil.AsUser(user))
	g.Get("/marketplace", h.Marketplace)
	g.Patch("/marketplace/filters", h.SetFilters)
	g.Delete("/marketplace/filters", h.ResetFilters)
	g.Put("/marketplace/selection", h.Select)
	g.Post("/marketplace/sync", h.SyncMarketplace)
	g.Post("/marketplace/items", h.AddItem)
	g.Patch("/marketplace/items/:id", h.UpdateItem)
	g.Delete("/marketplace/items/:id", h.RemoveItem)
	g.Get("/wallet", h.Wallet)
	g.Post("/wallet/buy", h.Buy)
	g.Post("/wallet/sell", h.Sell)
	g.Post("/wallet/sync", h.SyncWallet)
	g.Post("/wallet/purchase", h.Purchase)
	g.Post("/wallet/holdings", h.AddHolding)
	g.Delete("/wallet/holdings/:id", h.RemoveHolding)
	g.Post("/wallet/transactions", h.AddTransaction)
	g.Patch("/wallet/transactions/:id", h.UpdateTransaction)
	g.Put("/wallet/connection", h.SetConnection)
	return fixture{app: app, db: db, registry: reg, user: user}
}

func listingIDs(v interface{}) []string {
	out := []string{}
	for _, it := range v.([]interface{}) {
		out = append(out, it.(map[string]interface{})["id"].(string))
	}
	return out
}

func data(body map[string]interface{}) map[string]interface{} {
	return body["data"].(map[string]interface{})
}

func TestMarketplace_FilterSelectSearch(t *testing.T) {
	f := setupDeskApp(t)

	code, body := testutil.Do(t, f.app, testutil.JSONRequest("GET", "/desk/marketplace?q=wind", nil))
	require.Equal(t, fiber.StatusOK, code)
	assert.Len(t, data(body)["listings"], 6)
	assert.Equal(t, []string{"2"}, listingIDs(data(body)["searchResults"]))

	code, body = testutil.Do(t, f.app, testutil.JSONRequest("PATCH", "/desk/marketplace/filters", map[string]interface{}{"category": "forestry", "minPrice": 10}))
	require.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, []string{"1", "6"}, listingIDs(data(body)["filteredListings"]))

	// null clears one dimension, omitted ones stay
	code, body = testutil.Do(t, f.app, testutil.JSONRequest("PATCH", "/desk/marketplace/filters", map[string]interface{}{"category": nil}))
	require.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, []string{"1", "2", "3", "4", "5", "6"}, listingIDs(data(body)["filteredListings"]))
	assert.Equal(t, float64(10), data(body)["filters"].(map[string]interface{})["minPrice"])

	code, _ = testutil.Do(t, f.app, testutil.JSONRequest("PATCH", "/desk/marketplace/filters", map[string]interface{}{"category": "lunar"}))
	assert.Equal(t, fiber.StatusBadRequest, code)

	code, body = testutil.Do(t, f.app, testutil.JSONRequest("DELETE", "/desk/marketplace/filters", nil))
	require.Equal(t, fiber.StatusOK, code)
	assert.Nil(t, data(body)["filters"].(map[string]interface{})["minPrice"])

	code, body = testutil.Do(t, f.app, testutil.JSONRequest("PUT", "/desk/marketplace/selection", map[string]interface{}{"id": "3"}))
	require.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, "3", data(body)["selectedListing"].(map[string]interface{})["id"])

	code, _ = testutil.Do(t, f.app, testutil.JSONRequest("PUT", "/desk/marketplace/selection", map[string]interface{}{"id": "99"}))
	assert.Equal(t, fiber.StatusNotFound, code)

	code, body = testutil.Do(t, f.app, testutil.JSONRequest("PUT", "/desk/marketplace/selection", map[string]interface{}{"id": nil}))
	require.Equal(t, fiber.StatusOK, code)
	assert.Nil(t, data(body)["selectedListing"])
}

func TestMarketplace_SyncKeepsFilter(t *testing.T) {
	f := setupDeskApp(t)
	require.NoError(t, f.db.Model(&domain.CatalogItem{}).Where("id = ?", "4").Update("quantity", 0).Error)

	code, _ := testutil.Do(t, f.app, testutil.JSONRequest("PATCH", "/desk/marketplace/filters", map[string]interface{}{"vintage": "2023"}))
	require.Equal(t, fiber.StatusOK, code)

	code, body := testutil.Do(t, f.app, testutil.JSONRequest("POST", "/desk/marketplace/sync", nil))
	require.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, "fulfilled", data(body)["phase"])
	assert.ElementsMatch(t, []string{"2", "6"}, listingIDs(data(body)["filteredListings"]))
	assert.Equal(t, false, data(body)["loading"])
}

func TestWallet_LocalBuySell(t *testing.T) {
	f := setupDeskApp(t)

	code, body := testutil.Do(t, f.app, testutil.JSONRequest("POST", "/desk/wallet/buy", map[string]interface{}{"creditId": "1", "quantity": 5, "price": 15.5}))
	require.Equal(t, fiber.StatusCreated, code)
	tx := data(body)["transaction"].(map[string]interface{})
	assert.Equal(t, "Amazon Rainforest Conservation", tx["creditName"])
	assert.Equal(t, 77.5, tx["totalAmount"])
	assert.Equal(t, 9922.5, data(body)["wallet"].(map[string]interface{})["balance"])

	code, body = testutil.Do(t, f.app, testutil.JSONRequest("POST", "/desk/wallet/buy", map[string]interface{}{"creditId": "1", "quantity": 1000, "price": 15.5}))
	assert.Equal(t, fiber.StatusPaymentRequired, code)
	assert.Equal(t, "insufficient balance", testutil.ErrorMessage(body))

	code, body = testutil.Do(t, f.app, testutil.JSONRequest("POST", "/desk/wallet/sell", map[string]interface{}{"creditId": "2", "quantity": 5, "price": 12.75}))
	require.Equal(t, fiber.StatusCreated, code)
	w := data(body)["wallet"].(map[string]interface{})
	assert.Equal(t, 9986.25, w["balance"])
	for _, h := range w["carbonCredits"].([]interface{}) {
		assert.NotEqual(t, "2", h.(map[string]interface{})["id"])
	}

	code, _ = testutil.Do(t, f.app, testutil.JSONRequest("POST", "/desk/wallet/sell", map[string]interface{}{"creditId": "2", "quantity": 1, "price": 12.75}))
	assert.Equal(t, fiber.StatusBadRequest, code)

	code, _ = testutil.Do(t, f.app, testutil.JSONRequest("POST", "/desk/wallet/buy", map[string]interface{}{"creditId": "1", "quantity": 0, "price": 15.5}))
	assert.Equal(t, fiber.StatusBadRequest, code)
}

func TestWallet_TransactionStatusAndConnection(t *testing.T) {
	f := setupDeskApp(t)

	code, _ := testutil.Do(t, f.app, testutil.JSONRequest("PATCH", "/desk/wallet/transactions/tx1", map[string]interface{}{"status": "failed"}))
	assert.Equal(t, fiber.StatusConflict, code)

	code, _ = testutil.Do(t, f.app, testutil.JSONRequest("PATCH", "/desk/wallet/transactions/nope", map[string]interface{}{"txHash": "0xabc"}))
	assert.Equal(t, fiber.StatusNotFound, code)

	code, body := testutil.Do(t, f.app, testutil.JSONRequest("PATCH", "/desk/wallet/transactions/tx1", map[string]interface{}{"txHash": "0xabc"}))
	require.Equal(t, fiber.StatusOK, code)
	first := data(body)["transactions"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "0xabc", first["txHash"])

	code, body = testutil.Do(t, f.app, testutil.JSONRequest("PUT", "/desk/wallet/connection", map[string]interface{}{"connected": true, "address": "0x1234"}))
	require.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, true, data(body)["connected"])
	assert.Equal(t, "0x1234", data(body)["address"])
}

func TestWallet_SyncAndPurchase(t *testing.T) {
	f := setupDeskApp(t)

	code, body := testutil.Do(t, f.app, testutil.JSONRequest("POST", "/desk/wallet/sync", nil))
	require.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, float64(500), data(body)["balance"])
	assert.Empty(t, data(body)["carbonCredits"])

	code, body = testutil.Do(t, f.app, testutil.JSONRequest("POST", "/desk/wallet/purchase", map[string]interface{}{"creditId": "1", "type": "buy", "quantity": 5, "price": 15.5}))
	require.Equal(t, fiber.StatusCreated, code)
	w := data(body)["wallet"].(map[string]interface{})
	assert.Equal(t, 422.5, w["balance"])
	held := w["carbonCredits"].([]interface{})
	require.Len(t, held, 1)
	assert.Equal(t, "Amazon Rainforest Conservation", held[0].(map[string]interface{})["name"])

	var item domain.CatalogItem
	require.NoError(t, f.db.First(&item, "id = ?", "1").Error)
	assert.Equal(t, 995, item.Quantity)

	// the desk's listing shows the stock the purchase took
	listed, ok := f.registry.Get(context.Background(), f.user.String()).Catalog.Item("1")
	require.True(t, ok)
	assert.Equal(t, 995, listed.Quantity)

	// local precheck rejects before any remote write
	code, _ = testutil.Do(t, f.app, testutil.JSONRequest("POST", "/desk/wallet/purchase", map[string]interface{}{"creditId": "1", "type": "buy", "quantity": 100, "price": 15.5}))
	assert.Equal(t, fiber.StatusPaymentRequired, code)

	// the wallet survives losing the in-memory desk
	f.registry.Evict(f.user.String())
	code, body = testutil.Do(t, f.app, testutil.JSONRequest("GET", "/desk/wallet", nil))
	require.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, 422.5, data(body)["balance"])

	p, err := (&wallet.Service{DB: f.db}).Get(context.Background(), f.user)
	require.NoError(t, err)
	assert.Equal(t, "422.5", p.Balance.String())
}

func TestMarketplace_ItemReducers(t *testing.T) {
	f := setupDeskApp(t)

	code, body := testutil.Do(t, f.app, testutil.JSONRequest("POST", "/desk/marketplace/items", map[string]interface{}{
		"id": "7", "name": "Landfill Gas", "price": 9, "quantity": 10, "location": "Chile",
		"vintage": "2025", "category": "waste",
	}))
	require.Equal(t, fiber.StatusCreated, code)
	assert.Len(t, data(body)["listings"], 7)

	// same id replaces instead of duplicating
	code, body = testutil.Do(t, f.app, testutil.JSONRequest("POST", "/desk/marketplace/items", map[string]interface{}{
		"id": "7", "name": "Landfill Gas Flaring", "price": 9, "quantity": 10, "location": "Chile",
		"vintage": "2025", "category": "waste",
	}))
	require.Equal(t, fiber.StatusCreated, code)
	listings := data(body)["listings"].([]interface{})
	require.Len(t, listings, 7)
	assert.Equal(t, "Landfill Gas Flaring", listings[6].(map[string]interface{})["name"])

	code, body = testutil.Do(t, f.app, testutil.JSONRequest("POST", "/desk/marketplace/items", map[string]interface{}{"name": "No Location", "category": "space"}))
	assert.Equal(t, fiber.StatusBadRequest, code)
	assert.Contains(t, body["error"].(map[string]interface{})["details"], "category")

	code, body = testutil.Do(t, f.app, testutil.JSONRequest("PATCH", "/desk/marketplace/items/7", map[string]interface{}{"price": 11.5}))
	require.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, 11.5, data(body)["listings"].([]interface{})[6].(map[string]interface{})["price"])

	code, _ = testutil.Do(t, f.app, testutil.JSONRequest("PATCH", "/desk/marketplace/items/7", map[string]interface{}{"quantity": -1}))
	assert.Equal(t, fiber.StatusBadRequest, code)
	code, _ = testutil.Do(t, f.app, testutil.JSONRequest("PATCH", "/desk/marketplace/items/99", map[string]interface{}{"price": 1}))
	assert.Equal(t, fiber.StatusNotFound, code)

	code, body = testutil.Do(t, f.app, testutil.JSONRequest("DELETE", "/desk/marketplace/items/7", nil))
	require.Equal(t, fiber.StatusOK, code)
	assert.Len(t, data(body)["listings"], 6)
	code, _ = testutil.Do(t, f.app, testutil.JSONRequest("DELETE", "/desk/marketplace/items/7", nil))
	assert.Equal(t, fiber.StatusNotFound, code)
}

func holdingQty(w map[string]interface{}, id string) (float64, bool) {
	for _, h := range w["carbonCredits"].([]interface{}) {
		m := h.(map[string]interface{})
		if m["id"] == id {
			return m["quantity"].(float64), true
		}
	}
	return 0, false
}

func TestWallet_HoldingReducers(t *testing.T) {
	f := setupDeskApp(t)

	code, body := testutil.Do(t, f.app, testutil.JSONRequest("POST", "/desk/wallet/holdings", map[string]interface{}{"id": "3", "quantity": 4}))
	require.Equal(t, fiber.StatusCreated, code)
	q, ok := holdingQty(data(body), "3")
	require.True(t, ok)
	assert.Equal(t, float64(4), q)

	for _, qty := range []int{0, -3} {
		code, _ = testutil.Do(t, f.app, testutil.JSONRequest("POST", "/desk/wallet/holdings", map[string]interface{}{"id": "3", "quantity": qty}))
		assert.Equal(t, fiber.StatusBadRequest, code)
	}
	code, _ = testutil.Do(t, f.app, testutil.JSONRequest("DELETE", "/desk/wallet/holdings/3?quantity=-5", nil))
	assert.Equal(t, fiber.StatusBadRequest, code)

	code, body = testutil.Do(t, f.app, testutil.JSONRequest("DELETE", "/desk/wallet/holdings/3?quantity=1", nil))
	require.Equal(t, fiber.StatusOK, code)
	q, _ = holdingQty(data(body), "3")
	assert.Equal(t, float64(3), q)

	code, body = testutil.Do(t, f.app, testutil.JSONRequest("DELETE", "/desk/wallet/holdings/3?quantity=3", nil))
	require.Equal(t, fiber.StatusOK, code)
	_, ok = holdingQty(data(body), "3")
	assert.False(t, ok)
}

func TestWallet_AddTransaction(t *testing.T) {
	f := setupDeskApp(t)

	code, body := testutil.Do(t, f.app, testutil.JSONRequest("POST", "/desk/wallet/transactions", map[string]interface{}{
		"id": "ext-1", "type": "buy", "creditId": "5", "quantity": 2, "price": 14.5,
	}))
	require.Equal(t, fiber.StatusCreated, code)
	first := data(body)["transactions"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "ext-1", first["id"])
	assert.Equal(t, "pending", first["status"])
	assert.Equal(t, "Solar Power Plant", first["creditName"])
	assert.Equal(t, float64(29), first["totalAmount"])
	assert.Equal(t, float64(10000), data(body)["balance"])

	code, _ = testutil.Do(t, f.app, testutil.JSONRequest("POST", "/desk/wallet/transactions", map[string]interface{}{
		"id": "ext-1", "type": "buy", "creditId": "5", "quantity": 2, "price": 14.5,
	}))
	assert.Equal(t, fiber.StatusConflict, code)

	code, body = testutil.Do(t, f.app, testutil.JSONRequest("POST", "/desk/wallet/transactions", map[string]interface{}{"type": "swap", "quantity": 0}))
	assert.Equal(t, fiber.StatusBadRequest, code)
	details := body["error"].(map[string]interface{})["details"].(map[string]interface{})
	assert.Contains(t, details, "creditId")
	assert.Contains(t, details, "type")
	assert.Contains(t, details, "quantity")

	// a pending entry can then move along its lifecycle
	code, _ = testutil.Do(t, f.app, testutil.JSONRequest("PATCH", "/desk/wallet/transactions/ext-1", map[string]interface{}{"status": "completed"}))
	assert.Equal(t, fiber.StatusOK, code)
}

func TestWallet_BuyTakesPriceFromCatalog(t *testing.T) {
	f := setupDeskApp(t)

	code, body := testutil.Do(t, f.app, testutil.JSONRequest("POST", "/desk/wallet/buy", map[string]interface{}{"creditId": "1", "quantity": 2}))
	require.Equal(t, fiber.StatusCreated, code)
	tx := data(body)["transaction"].(map[string]interface{})
	assert.Equal(t, 15.5, tx["price"])
	assert.Equal(t, float64(31), tx["totalAmount"])
	assert.Equal(t, float64(9969), data(body)["wallet"].(map[string]interface{})["balance"])
}
