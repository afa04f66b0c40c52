package account

import (
	"errors"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"vectorium-backend/internal/domain"
)

var (
	ErrInsufficientFunds    = errors.New("insufficient balance")
	ErrInsufficientQuantity = errors.New("insufficient holding quantity")
	ErrInvalidOrder         = errors.New("invalid order")
	ErrTransactionNotFound  = errors.New("transaction not found")
	ErrInvalidTransition    = errors.New("invalid transaction status transition")
)

// BuyOrder is a purchase against the local balance. UnitReduction is the
// declared reduction of one unit; the holding stores the multiplied total.
type BuyOrder struct {
	ItemID            string          `json:"creditId"`
	ItemName          string          `json:"creditName"`
	Quantity          int             `json:"quantity"`
	UnitPrice         decimal.Decimal `json:"price"`
	Vintage           string          `json:"vintage"`
	CertificationBody string          `json:"certificationBody"`
	UnitReduction     decimal.Decimal `json:"carbonReduction"`
}

func (o BuyOrder) Total() decimal.Decimal {
	return domain.LineTotal(o.Quantity, o.UnitPrice)
}

func (o BuyOrder) validate() error {
	if o.ItemID == "" || o.Quantity <= 0 || o.UnitPrice.IsNegative() || o.UnitReduction.IsNegative() {
		return ErrInvalidOrder
	}
	return nil
}

// SellOrder returns owned units for cash at UnitPrice.
type SellOrder struct {
	ItemID    string          `json:"creditId"`
	ItemName  string          `json:"creditName"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"price"`
}

func (o SellOrder) Total() decimal.Decimal {
	return domain.LineTotal(o.Quantity, o.UnitPrice)
}

func (o SellOrder) validate() error {
	if o.ItemID == "" || o.Quantity <= 0 || o.UnitPrice.IsNegative() {
		return ErrInvalidOrder
	}
	return nil
}

// TransactionUpdate changes the mutable parts of a record. Only status and the
// external hash may change after creation.
type TransactionUpdate struct {
	Status *domain.TxStatus `json:"status"`
	TxHash *string          `json:"txHash"`
}

// State is the remote-loadable part of an account.
type State struct {
	Balance      decimal.Decimal            `json:"balance"`
	Holdings     []domain.AccountHolding    `json:"carbonCredits"`
	Transactions []domain.TransactionRecord `json:"transactions"`
}

// Snapshot is a full copy of the store, used for rendering and persistence.
type Snapshot struct {
	Balance       decimal.Decimal            `json:"balance"`
	CarbonCredits []domain.AccountHolding    `json:"carbonCredits"`
	Transactions  []domain.TransactionRecord `json:"transactions"`
	Connected     bool                       `json:"connected"`
	Address       *string                    `json:"address"`
	Loading       bool                       `json:"loading"`
	Error         *string                    `json:"error"`
}

// Store tracks balance, holdings and the newest-first transaction log of one account.
type Store struct {
	mu           sync.RWMutex
	balance      decimal.Decimal
	holdings     []domain.AccountHolding
	transactions []domain.TransactionRecord
	connected    bool
	address      *string
	loading      bool
	err          string

	now   func() time.Time
	newID func() string
}

type Option func(*Store)

// WithClock sets the timestamp source for new transactions.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDs sets the id generator for new transactions.
func WithIDs(newID func() string) Option {
	return func(s *Store) { s.newID = newID }
}

// New returns an empty account with a zero balance.
func New(opts ...Option) *Store {
	s := &Store{
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Buy debits the balance and credits the holding. On any error the state is unchanged.
func (s *Store) Buy(o BuyOrder) (domain.TransactionRecord, error) {
	if err := o.validate(); err != nil {
		return domain.TransactionRecord{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.newRecord(domain.DirectionBuy, o.ItemID, o.ItemName, o.Quantity, o.UnitPrice)
	if err := s.applyBuy(o, rec); err != nil {
		return domain.TransactionRecord{}, err
	}
	return rec, nil
}

// Sell credits the balance and debits the holding. On any error the state is unchanged.
func (s *Store) Sell(o SellOrder) (domain.TransactionRecord, error) {
	if err := o.validate(); err != nil {
		return domain.TransactionRecord{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.newRecord(domain.DirectionSell, o.ItemID, o.ItemName, o.Quantity, o.UnitPrice)
	if err := s.applySell(o, rec); err != nil {
		return domain.TransactionRecord{}, err
	}
	return rec, nil
}

// CommitBuy applies a buy that a remote writer already recorded, keeping the
// server's id, timestamp and status on the prepended record.
func (s *Store) CommitBuy(o BuyOrder, rec domain.TransactionRecord) error {
	if err := o.validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applyBuy(o, rec)
}

// CommitSell is CommitBuy for the sell direction.
func (s *Store) CommitSell(o SellOrder, rec domain.TransactionRecord) error {
	if err := o.validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applySell(o, rec)
}

func (s *Store) applyBuy(o BuyOrder, rec domain.TransactionRecord) error {
	total := o.Total()
	if s.balance.LessThan(total) {
		return ErrInsufficientFunds
	}
	if !s.fits(o.ItemID, o.Quantity) {
		return ErrInvalidOrder
	}
	s.balance = s.balance.Sub(total)
	s.mergeHolding(domain.AccountHolding{
		ID:                o.ItemID,
		Name:              o.ItemName,
		Quantity:          o.Quantity,
		Vintage:           o.Vintage,
		CertificationBody: o.CertificationBody,
		CarbonReduction:   domain.LineTotal(o.Quantity, o.UnitReduction),
	})
	s.prepend(rec)
	return nil
}

func (s *Store) applySell(o SellOrder, rec domain.TransactionRecord) error {
	i := s.holdingIndex(o.ItemID)
	if i < 0 || s.holdings[i].Quantity < o.Quantity {
		return ErrInsufficientQuantity
	}
	s.balance = s.balance.Add(o.Total())
	s.decrementHolding(i, o.Quantity)
	s.prepend(rec)
	return nil
}

// SetBalance overwrites the balance.
func (s *Store) SetBalance(v decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balance = v
}

// AddHolding merges h into an existing holding of the same id or appends it.
// Only positive quantities are accepted.
func (s *Store) AddHolding(h domain.AccountHolding) error {
	if h.ID == "" || h.Quantity <= 0 || h.CarbonReduction.IsNegative() {
		return ErrInvalidOrder
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.fits(h.ID, h.Quantity) {
		return ErrInvalidOrder
	}
	s.mergeHolding(h)
	return nil
}

// RemoveHolding takes quantity units off holding id, dropping it at zero. Unknown ids are ignored.
func (s *Store) RemoveHolding(id string, quantity int) error {
	if quantity <= 0 {
		return ErrInvalidOrder
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.holdingIndex(id); i >= 0 {
		s.decrementHolding(i, quantity)
	}
	return nil
}

// AddTransaction prepends rec to the log.
func (s *Store) AddTransaction(rec domain.TransactionRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prepend(rec)
}

// UpdateTransaction moves a record along its status lifecycle.
func (s *Store) UpdateTransaction(id string, u TransactionUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.transactions {
		if s.transactions[i].ID != id {
			continue
		}
		tx := s.transactions[i]
		if u.Status != nil {
			if !u.Status.Valid() || !tx.Status.CanTransition(*u.Status) {
				return ErrInvalidTransition
			}
			tx.Status = *u.Status
		}
		if u.TxHash != nil {
			h := *u.TxHash
			tx.TxHash = &h
		}
		s.transactions[i] = tx
		return nil
	}
	return ErrTransactionNotFound
}

// SetConnection records whether an external wallet is linked and its address.
func (s *Store) SetConnection(connected bool, address *string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = connected
	if address == nil {
		s.address = nil
		return
	}
	a := *address
	s.address = &a
}

func (s *Store) Balance() decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.balance
}

func (s *Store) Holding(id string) (domain.AccountHolding, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.holdingIndex(id); i >= 0 {
		return cloneHolding(s.holdings[i]), true
	}
	return domain.AccountHolding{}, false
}

// HasTransaction reports whether the log already holds a record with id.
func (s *Store) HasTransaction(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.transactions {
		if s.transactions[i].ID == id {
			return true
		}
	}
	return false
}

// TotalCarbonReduction sums the reduction totals of all holdings.
func (s *Store) TotalCarbonReduction() decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sum := decimal.Zero
	for _, h := range s.holdings {
		sum = sum.Add(h.CarbonReduction)
	}
	return sum
}

// Pending marks a remote load in flight and clears the previous error.
func (s *Store) Pending() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = true
	s.err = ""
}

// Fulfilled replaces balance, holdings and transactions with st and ends loading.
func (s *Store) Fulfilled(st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balance = st.Balance
	s.holdings = positiveHoldings(st.Holdings)
	s.transactions = cloneRecords(st.Transactions)
	s.loading = false
}

// Rejected ends loading and records msg without touching the account.
func (s *Store) Rejected(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	s.err = msg
}

// Done ends loading without changing anything else.
func (s *Store) Done() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
}

func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{
		Balance:       s.balance,
		CarbonCredits: cloneHoldings(s.holdings),
		Transactions:  cloneRecords(s.transactions),
		Connected:     s.connected,
		Loading:       s.loading,
	}
	if s.address != nil {
		a := *s.address
		snap.Address = &a
	}
	if s.err != "" {
		e := s.err
		snap.Error = &e
	}
	return snap
}

// Restore replaces the whole store with snap.
func (s *Store) Restore(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balance = snap.Balance
	s.holdings = positiveHoldings(snap.CarbonCredits)
	s.transactions = cloneRecords(snap.Transactions)
	s.connected = snap.Connected
	s.address = nil
	if snap.Address != nil {
		a := *snap.Address
		s.address = &a
	}
	s.loading = snap.Loading
	s.err = ""
	if snap.Error != nil {
		s.err = *snap.Error
	}
}

func (s *Store) newRecord(dir domain.Direction, itemID, itemName string, qty int, price decimal.Decimal) domain.TransactionRecord {
	return domain.TransactionRecord{
		ID:          s.newID(),
		Type:        dir,
		CreditID:    itemID,
		CreditName:  itemName,
		Quantity:    qty,
		Price:       price,
		TotalAmount: domain.LineTotal(qty, price),
		Timestamp:   s.now(),
		Status:      domain.TxCompleted,
	}
}

// decrementHolding keeps the reduction total proportional to the remaining quantity.
func (s *Store) decrementHolding(i, quantity int) {
	h := s.holdings[i]
	remaining := h.Quantity - quantity
	if remaining <= 0 {
		s.holdings = append(s.holdings[:i:i], s.holdings[i+1:]...)
		return
	}
	if h.Quantity > 0 {
		h.CarbonReduction = h.CarbonReduction.Mul(decimal.NewFromInt(int64(remaining))).Div(decimal.NewFromInt(int64(h.Quantity)))
	}
	h.Quantity = remaining
	s.holdings[i] = h
}

// fits reports whether qty more units of id still fit in an int.
func (s *Store) fits(id string, qty int) bool {
	i := s.holdingIndex(id)
	return i < 0 || s.holdings[i].Quantity <= math.MaxInt-qty
}

// mergeHolding expects h.Quantity > 0 and a sum checked with fits.
func (s *Store) mergeHolding(h domain.AccountHolding) {
	if i := s.holdingIndex(h.ID); i >= 0 {
		s.holdings[i].Quantity += h.Quantity
		s.holdings[i].CarbonReduction = s.holdings[i].CarbonReduction.Add(h.CarbonReduction)
		return
	}
	s.holdings = append(s.holdings, cloneHolding(h))
}

func (s *Store) prepend(rec domain.TransactionRecord) {
	log := make([]domain.TransactionRecord, 0, len(s.transactions)+1)
	log = append(log, rec)
	s.transactions = append(log, s.transactions...)
}

func (s *Store) holdingIndex(id string) int {
	for i := range s.holdings {
		if s.holdings[i].ID == id {
			return i
		}
	}
	return -1
}

func cloneHoldings(in []domain.AccountHolding) []domain.AccountHolding {
	out := make([]domain.AccountHolding, len(in))
	for i := range in {
		out[i] = cloneHolding(in[i])
	}
	return out
}

func cloneHolding(h domain.AccountHolding) domain.AccountHolding {
	if h.TokenID != nil {
		v := *h.TokenID
		h.TokenID = &v
	}
	return h
}

// positiveHoldings copies in without entries of zero or negative quantity.
func positiveHoldings(in []domain.AccountHolding) []domain.AccountHolding {
	out := make([]domain.AccountHolding, 0, len(in))
	for _, h := range in {
		if h.Quantity > 0 {
			out = append(out, cloneHolding(h))
		}
	}
	return out
}

func cloneRecords(in []domain.TransactionRecord) []domain.TransactionRecord {
	out := make([]domain.TransactionRecord, len(in))
	for i, rec := range in {
		if rec.TxHash != nil {
			h := *rec.TxHash
			rec.TxHash = &h
		}
		out[i] = rec
	}
	return out
}
