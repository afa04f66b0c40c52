// Package desk keeps the marketplace and wallet state of each signed-in
// account in memory and persists the wallet between restarts.
package desk

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"vectorium-backend/internal/account"
	"vectorium-backend/internal/catalog"
	"vectorium-backend/internal/remotesync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const snapshotPrefix = "desk:wallet:"

// Desk is the pair of stores owned by one account together with their adapters.
type Desk struct {
	Catalog     *catalog.Store
	Account     *account.Store
	CatalogSync *remotesync.CatalogSync
	AccountSync *remotesync.AccountSync
}

// Registry hands out one Desk per subject, creating it on first use. Desks
// untouched for IdleTTL are dropped by the next Get once IdleTTL has passed
// since the previous sweep; zero keeps them until Evict.
type Registry struct {
	Sources *Sources
	Redis   *redis.Client // optional; nil disables persistence
	TTL     time.Duration
	IdleTTL time.Duration

	now func() time.Time

	mu        sync.Mutex
	desks     map[string]*entry
	lastSweep time.Time
}

type entry struct {
	desk     *Desk
	lastSeen time.Time
}

func NewRegistry(src *Sources, rdb *redis.Client, ttl time.Duration) *Registry {
	return &Registry{Sources: src, Redis: rdb, TTL: ttl, now: time.Now, desks: make(map[string]*entry)}
}

// Get returns the desk of subject. A new desk starts from the persisted wallet
// snapshot when one exists and from the demo seed otherwise. The snapshot is
// read without holding the registry lock.
func (r *Registry) Get(ctx context.Context, subject string) *Desk {
	if d := r.touch(subject); d != nil {
		return d
	}

	snap, restored := r.load(ctx, subject)

	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	if e, ok := r.desks[subject]; ok {
		// another request built it while we were loading
		e.lastSeen = now
		return e.desk
	}
	acct := account.NewSeeded()
	if restored {
		acct.Restore(snap)
	}
	cat := catalog.NewStore(catalog.SeedItems())
	d := &Desk{
		Catalog:     cat,
		Account:     acct,
		CatalogSync: remotesync.NewCatalogSync(cat, r.Sources),
		AccountSync: remotesync.NewAccountSync(acct, r.Sources, r.Sources),
	}
	r.desks[subject] = &entry{desk: d, lastSeen: now}
	return d
}

// touch returns the loaded desk of subject, stamping its last access, and
// sweeps idle desks when one is due.
func (r *Registry) touch(subject string) *Desk {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	if r.IdleTTL > 0 && now.Sub(r.lastSweep) >= r.IdleTTL {
		r.sweepLocked(now)
	}
	e, ok := r.desks[subject]
	if !ok {
		return nil
	}
	e.lastSeen = now
	return e.desk
}

// Sweep drops every desk idle for at least IdleTTL and returns how many went.
// Handlers persist after each wallet change, so nothing unsaved is lost.
func (r *Registry) Sweep() int {
	if r.IdleTTL <= 0 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sweepLocked(r.now())
}

func (r *Registry) sweepLocked(now time.Time) int {
	r.lastSweep = now
	n := 0
	for subject, e := range r.desks {
		if now.Sub(e.lastSeen) >= r.IdleTTL {
			delete(r.desks, subject)
			n++
		}
	}
	if n > 0 {
		log.Debug().Int("evicted", n).Int("remaining", len(r.desks)).Msg("idle desks swept")
	}
	return n
}

// Persist stores the wallet of d under subject. Loading and error are not carried over.
func (r *Registry) Persist(ctx context.Context, subject string, d *Desk) error {
	if r.Redis == nil || d == nil {
		return nil
	}
	snap := d.Account.Snapshot()
	snap.Loading = false
	snap.Error = nil
	b, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return r.Redis.Set(ctx, snapshotPrefix+subject, b, r.TTL).Err()
}

// Evict drops the in-memory desk of subject; the persisted snapshot stays.
func (r *Registry) Evict(subject string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.desks, subject)
}

// Loaded returns the in-memory desk of subject without creating one.
func (r *Registry) Loaded(subject string) (*Desk, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.desks[subject]
	if !ok {
		return nil, false
	}
	return e.desk, true
}

// Each calls fn for every loaded desk. fn runs without the registry lock held.
func (r *Registry) Each(fn func(subject string, d *Desk)) {
	r.mu.Lock()
	all := make(map[string]*Desk, len(r.desks))
	for subject, e := range r.desks {
		all[subject] = e.desk
	}
	r.mu.Unlock()
	for subject, d := range all {
		fn(subject, d)
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.desks)
}

func (r *Registry) load(ctx context.Context, subject string) (account.Snapshot, bool) {
	var snap account.Snapshot
	if r.Redis == nil {
		return snap, false
	}
	b, err := r.Redis.Get(ctx, snapshotPrefix+subject).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Warn().Err(err).Str("subject", subject).Msg("desk snapshot load failed")
		}
		return snap, false
	}
	if err := json.Unmarshal(b, &snap); err != nil {
		log.Warn().Err(err).Str("subject", subject).Msg("desk snapshot is corrupt, starting from seed")
		return snap, false
	}
	return snap, true
}
