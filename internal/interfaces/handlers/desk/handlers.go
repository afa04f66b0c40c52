package desk

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"vectorium-backend/internal/account"
	"vectorium-backend/internal/application/credits"
	desksvc "vectorium-backend/internal/application/desk"
	"vectorium-backend/internal/application/holdings"
	txsvc "vectorium-backend/internal/application/transactions"
	"vectorium-backend/internal/application/wallet"
	"vectorium-backend/internal/catalog"
	"vectorium-backend/internal/domain"
	"vectorium-backend/internal/middleware"
	"vectorium-backend/internal/pkg/response"
	"vectorium-backend/internal/pkg/validation"
	"vectorium-backend/internal/remotesync"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// Handlers exposes the per-account marketplace and wallet stores.
type Handlers struct {
	Registry *desksvc.Registry
}

type marketplaceView struct {
	catalog.Snapshot
	Phase         remotesync.Phase     `json:"phase"`
	SearchResults []domain.CatalogItem `json:"searchResults,omitempty"`
}

type walletView struct {
	account.Snapshot
	Phase                remotesync.Phase `json:"phase"`
	TotalCarbonReduction decimal.Decimal  `json:"totalCarbonReduction"`
}

type selectionRequest struct {
	ID *string `json:"id"`
}

type itemRequest struct {
	ID string `json:"id"`
	credits.CreateInput
}

type connectionRequest struct {
	Connected bool    `json:"connected"`
	Address   *string `json:"address"`
}

func (h *Handlers) desk(c *fiber.Ctx) (*desksvc.Desk, string, bool) {
	id, ok := middleware.UserID(c)
	if !ok {
		return nil, "", false
	}
	subject := id.String()
	return h.Registry.Get(c.UserContext(), subject), subject, true
}

func marketplace(d *desksvc.Desk, q string) marketplaceView {
	v := marketplaceView{Snapshot: d.Catalog.Snapshot(), Phase: d.CatalogSync.Phase()}
	if q != "" {
		v.SearchResults = catalog.Search(v.FilteredListings, q)
	}
	return v
}

func walletOf(d *desksvc.Desk) walletView {
	return walletView{Snapshot: d.Account.Snapshot(), Phase: d.AccountSync.Phase(), TotalCarbonReduction: d.Account.TotalCarbonReduction()}
}

// Marketplace GET /api/v1/desk/marketplace[?q=]
func (h *Handlers) Marketplace(c *fiber.Ctx) error {
	d, _, ok := h.desk(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	return response.Success(c, "Marketplace fetched successfully", marketplace(d, c.Query("q")), nil)
}

// SetFilters PATCH /api/v1/desk/marketplace/filters: omitted fields stay, null clears.
func (h *Handlers) SetFilters(c *fiber.Ctx) error {
	d, _, ok := h.desk(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	var p domain.FilterPatch
	if err := json.Unmarshal(c.Body(), &p); err != nil {
		return response.Error(c, "Invalid filter", fiber.StatusBadRequest, nil)
	}
	if p.Category.Value != nil && *p.Category.Value != "" && !p.Category.Value.Valid() {
		return response.Error(c, "Validation failed", fiber.StatusBadRequest, validation.FieldErrors{
			"category": "must be one of renewable, forestry, agriculture, waste, other",
		})
	}
	d.Catalog.SetFilter(p)
	return response.Success(c, "Filters updated", marketplace(d, ""), nil)
}

// ResetFilters DELETE /api/v1/desk/marketplace/filters
func (h *Handlers) ResetFilters(c *fiber.Ctx) error {
	d, _, ok := h.desk(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	d.Catalog.ResetFilter()
	return response.Success(c, "Filters cleared", marketplace(d, ""), nil)
}

// Select PUT /api/v1/desk/marketplace/selection with {"id": "..."} or {"id": null}
func (h *Handlers) Select(c *fiber.Ctx) error {
	d, _, ok := h.desk(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	var req selectionRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	if req.ID == nil {
		d.Catalog.SelectItem(nil)
	} else if !d.Catalog.SelectByID(*req.ID) {
		return response.Error(c, credits.ErrCreditNotFound.Error(), fiber.StatusNotFound, nil)
	}
	return response.Success(c, "Selection updated", marketplace(d, ""), nil)
}

// SyncMarketplace POST /api/v1/desk/marketplace/sync
func (h *Handlers) SyncMarketplace(c *fiber.Ctx) error {
	d, _, ok := h.desk(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	if err := d.CatalogSync.Fetch(c.UserContext(), d.Catalog.Filters()); err != nil {
		return deskError(c, err)
	}
	return response.Success(c, "Marketplace synced", marketplace(d, ""), nil)
}

// AddItem POST /api/v1/desk/marketplace/items: local store only. A known id is replaced.
func (h *Handlers) AddItem(c *fiber.Ctx) error {
	d, _, ok := h.desk(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	var req itemRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	if err := req.Validate(); err != nil {
		return deskError(c, err)
	}
	item := req.Item()
	item.ID = strings.TrimSpace(req.ID)
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	d.Catalog.AddItem(item)
	return response.SuccessCreated(c, "Listing added", marketplace(d, ""), nil)
}

// UpdateItem PATCH /api/v1/desk/marketplace/items/:id: omitted fields stay.
func (h *Handlers) UpdateItem(c *fiber.Ctx) error {
	d, _, ok := h.desk(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	var p domain.ItemPatch
	if err := json.Unmarshal(c.Body(), &p); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	if fe := validatePatch(p); len(fe) > 0 {
		return response.Error(c, "Validation failed", fiber.StatusBadRequest, fe)
	}
	if !d.Catalog.UpdateItem(c.Params("id"), p) {
		return response.Error(c, credits.ErrCreditNotFound.Error(), fiber.StatusNotFound, nil)
	}
	return response.Success(c, "Listing updated", marketplace(d, ""), nil)
}

// RemoveItem DELETE /api/v1/desk/marketplace/items/:id
func (h *Handlers) RemoveItem(c *fiber.Ctx) error {
	d, _, ok := h.desk(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	if !d.Catalog.RemoveItem(c.Params("id")) {
		return response.Error(c, credits.ErrCreditNotFound.Error(), fiber.StatusNotFound, nil)
	}
	return response.Success(c, "Listing removed", marketplace(d, ""), nil)
}

func validatePatch(p domain.ItemPatch) validation.FieldErrors {
	fe := validation.FieldErrors{}
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		fe["name"] = "must not be empty"
	}
	if p.Price != nil && p.Price.IsNegative() {
		fe["price"] = "must not be negative"
	}
	if p.Quantity != nil && *p.Quantity < 0 {
		fe["quantity"] = "must not be negative"
	}
	if p.CarbonReduction != nil && p.CarbonReduction.IsNegative() {
		fe["carbonReduction"] = "must not be negative"
	}
	if p.Category != nil && !p.Category.Valid() {
		fe["category"] = "must be one of renewable, forestry, agriculture, waste, other"
	}
	if p.Status != nil && !p.Status.Valid() {
		fe["status"] = "must be available, sold or pending"
	}
	return fe
}

// Wallet GET /api/v1/desk/wallet
func (h *Handlers) Wallet(c *fiber.Ctx) error {
	d, _, ok := h.desk(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	return response.Success(c, "Wallet fetched successfully", walletOf(d), nil)
}

// Buy POST /api/v1/desk/wallet/buy: local store only.
func (h *Handlers) Buy(c *fiber.Ctx) error {
	d, subject, ok := h.desk(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	var o account.BuyOrder
	if err := c.BodyParser(&o); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	fillBuy(d, &o)
	rec, err := d.Account.Buy(o)
	if err != nil {
		return deskError(c, err)
	}
	h.persist(c, subject, d)
	return response.SuccessCreated(c, "Purchase recorded", fiber.Map{"transaction": rec, "wallet": walletOf(d)}, nil)
}

// Sell POST /api/v1/desk/wallet/sell: local store only.
func (h *Handlers) Sell(c *fiber.Ctx) error {
	d, subject, ok := h.desk(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	var o account.SellOrder
	if err := c.BodyParser(&o); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	if o.ItemName == "" {
		if held, ok := d.Account.Holding(o.ItemID); ok {
			o.ItemName = held.Name
		}
	}
	rec, err := d.Account.Sell(o)
	if err != nil {
		return deskError(c, err)
	}
	h.persist(c, subject, d)
	return response.SuccessCreated(c, "Sale recorded", fiber.Map{"transaction": rec, "wallet": walletOf(d)}, nil)
}

// AddHolding POST /api/v1/desk/wallet/holdings: local store only, merged by id.
// Missing metadata and a zero reduction total come from the desk's catalog.
func (h *Handlers) AddHolding(c *fiber.Ctx) error {
	d, subject, ok := h.desk(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	var hold domain.AccountHolding
	if err := c.BodyParser(&hold); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	if it, ok := d.Catalog.Item(hold.ID); ok && hold.Quantity > 0 {
		if hold.Name == "" {
			hold.Name = it.Name
		}
		if hold.Vintage == "" {
			hold.Vintage = it.Vintage
		}
		if hold.CertificationBody == "" {
			hold.CertificationBody = it.CertificationBody
		}
		if hold.CarbonReduction.IsZero() {
			hold.CarbonReduction = domain.LineTotal(hold.Quantity, it.CarbonReduction)
		}
	}
	if err := d.Account.AddHolding(hold); err != nil {
		return deskError(c, err)
	}
	h.persist(c, subject, d)
	return response.SuccessCreated(c, "Holding added", walletOf(d), nil)
}

// RemoveHolding DELETE /api/v1/desk/wallet/holdings/:id?quantity=N: unknown ids are ignored.
func (h *Handlers) RemoveHolding(c *fiber.Ctx) error {
	d, subject, ok := h.desk(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	if err := d.Account.RemoveHolding(c.Params("id"), c.QueryInt("quantity", 0)); err != nil {
		return deskError(c, err)
	}
	h.persist(c, subject, d)
	return response.Success(c, "Holding updated", walletOf(d), nil)
}

// AddTransaction POST /api/v1/desk/wallet/transactions: records an entry without
// touching balance or holdings. Id, timestamp, status and total are filled when absent.
func (h *Handlers) AddTransaction(c *fiber.Ctx) error {
	d, subject, ok := h.desk(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	var rec domain.TransactionRecord
	if err := c.BodyParser(&rec); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	if rec.Status == "" {
		rec.Status = domain.TxPending
	}
	if rec.TotalAmount.IsZero() {
		rec.TotalAmount = domain.LineTotal(rec.Quantity, rec.Price)
	}
	if rec.CreditName == "" {
		if it, ok := d.Catalog.Item(rec.CreditID); ok {
			rec.CreditName = it.Name
		}
	}
	fe := validation.FieldErrors{}.Required(map[string]string{"creditId": rec.CreditID})
	if !rec.Type.Valid() {
		fe["type"] = "must be buy or sell"
	}
	if rec.Quantity <= 0 {
		fe["quantity"] = "must be a positive integer"
	}
	if rec.Price.IsNegative() {
		fe["price"] = "must not be negative"
	}
	if !rec.Status.Valid() {
		fe["status"] = "must be pending, completed or failed"
	}
	if err := fe.Err(); err != nil {
		return deskError(c, err)
	}
	if d.Account.HasTransaction(rec.ID) {
		return response.Error(c, "Transaction already recorded", fiber.StatusConflict, nil)
	}
	d.Account.AddTransaction(rec)
	h.persist(c, subject, d)
	return response.SuccessCreated(c, "Transaction added", walletOf(d), nil)
}

// UpdateTransaction PATCH /api/v1/desk/wallet/transactions/:id
func (h *Handlers) UpdateTransaction(c *fiber.Ctx) error {
	d, subject, ok := h.desk(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	var u account.TransactionUpdate
	if err := c.BodyParser(&u); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	if err := d.Account.UpdateTransaction(c.Params("id"), u); err != nil {
		return deskError(c, err)
	}
	h.persist(c, subject, d)
	return response.Success(c, "Transaction updated", walletOf(d), nil)
}

// SetConnection PUT /api/v1/desk/wallet/connection
func (h *Handlers) SetConnection(c *fiber.Ctx) error {
	d, subject, ok := h.desk(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	var req connectionRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	d.Account.SetConnection(req.Connected, req.Address)
	h.persist(c, subject, d)
	return response.Success(c, "Connection updated", walletOf(d), nil)
}

// SyncWallet POST /api/v1/desk/wallet/sync
func (h *Handlers) SyncWallet(c *fiber.Ctx) error {
	d, subject, ok := h.desk(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	if err := d.AccountSync.Fetch(c.UserContext(), subject); err != nil {
		return deskError(c, err)
	}
	h.persist(c, subject, d)
	return response.Success(c, "Wallet synced", walletOf(d), nil)
}

// Purchase POST /api/v1/desk/wallet/purchase: records remotely, then applies locally.
func (h *Handlers) Purchase(c *fiber.Ctx) error {
	d, subject, ok := h.desk(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	var o remotesync.PurchaseOrder
	if err := c.BodyParser(&o); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	if o.ItemName == "" || o.UnitPrice.IsZero() || o.Type == domain.DirectionBuy {
		fillPurchase(d, &o)
	}
	rec, err := d.AccountSync.Purchase(c.UserContext(), subject, o)
	if err != nil {
		return deskError(c, err)
	}
	if rec.Type == domain.DirectionBuy {
		takeStock(d.Catalog, rec.CreditID, rec.Quantity)
	}
	h.persist(c, subject, d)
	return response.SuccessCreated(c, "Transaction recorded", fiber.Map{"transaction": rec, "wallet": walletOf(d)}, nil)
}

// takeStock lowers the listed quantity of id after units were bought remotely.
func takeStock(cat *catalog.Store, id string, n int) {
	it, ok := cat.Item(id)
	if !ok {
		return
	}
	left := it.Quantity - n
	if left < 0 {
		left = 0
	}
	cat.UpdateItem(id, domain.ItemPatch{Quantity: &left})
}

// fillBuy copies catalog metadata the client left out from the desk's catalog.
func fillBuy(d *desksvc.Desk, o *account.BuyOrder) {
	it, ok := d.Catalog.Item(o.ItemID)
	if !ok {
		return
	}
	if o.ItemName == "" {
		o.ItemName = it.Name
	}
	if o.Vintage == "" {
		o.Vintage = it.Vintage
	}
	if o.CertificationBody == "" {
		o.CertificationBody = it.CertificationBody
	}
	if o.UnitReduction.IsZero() {
		o.UnitReduction = it.CarbonReduction
	}
	if o.UnitPrice.IsZero() {
		o.UnitPrice = it.Price
	}
}

func fillPurchase(d *desksvc.Desk, o *remotesync.PurchaseOrder) {
	b := account.BuyOrder{
		ItemID:            o.ItemID,
		ItemName:          o.ItemName,
		UnitPrice:         o.UnitPrice,
		Vintage:           o.Vintage,
		CertificationBody: o.CertificationBody,
		UnitReduction:     o.UnitReduction,
	}
	fillBuy(d, &b)
	o.UnitPrice = b.UnitPrice
	o.ItemName = b.ItemName
	o.Vintage = b.Vintage
	o.CertificationBody = b.CertificationBody
	o.UnitReduction = b.UnitReduction
}

func (h *Handlers) persist(c *fiber.Ctx, subject string, d *desksvc.Desk) {
	if err := h.Registry.Persist(c.UserContext(), subject, d); err != nil {
		log.Warn().Err(err).Str("subject", subject).Msg("desk snapshot persist failed")
	}
}

func deskError(c *fiber.Ctx, err error) error {
	var fe validation.FieldErrors
	switch {
	case errors.As(err, &fe):
		return response.Error(c, "Validation failed", fiber.StatusBadRequest, fe)
	case errors.Is(err, account.ErrInsufficientFunds), errors.Is(err, wallet.ErrInsufficientBalance):
		return response.Error(c, err.Error(), fiber.StatusPaymentRequired, nil)
	case errors.Is(err, account.ErrInsufficientQuantity), errors.Is(err, holdings.ErrInsufficientHolding),
		errors.Is(err, account.ErrInvalidOrder):
		return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
	case errors.Is(err, account.ErrTransactionNotFound), errors.Is(err, credits.ErrCreditNotFound):
		return response.Error(c, err.Error(), fiber.StatusNotFound, nil)
	case errors.Is(err, remotesync.ErrStaleResponse), errors.Is(err, account.ErrInvalidTransition),
		errors.Is(err, txsvc.ErrInsufficientStock), errors.Is(err, wallet.ErrVersionConflict):
		return response.Error(c, err.Error(), fiber.StatusConflict, nil)
	case errors.Is(err, remotesync.ErrNotAuthenticated):
		return response.Unauthorized(c, err.Error())
	}
	log.Error().Err(err).Str("path", c.Path()).Msg("desk remote call failed")
	return response.Error(c, "Remote sync failed", fiber.StatusBadGateway, nil)
}
