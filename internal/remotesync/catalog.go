package remotesync

import (
	"context"
	"errors"

	"vectorium-backend/internal/catalog"
	"vectorium-backend/internal/domain"
	"vectorium-backend/internal/pkg/metrics"

	"github.com/rs/zerolog/log"
)

// CatalogSource loads the available catalog items matching criteria.
type CatalogSource interface {
	ListItems(ctx context.Context, criteria domain.FilterCriteria) ([]domain.CatalogItem, error)
}

// CatalogSync drives the catalog store through pending, fulfilled and rejected.
type CatalogSync struct {
	Store  *catalog.Store
	Source CatalogSource
	seq    Sequencer
}

func NewCatalogSync(store *catalog.Store, src CatalogSource) *CatalogSync {
	return &CatalogSync{Store: store, Source: src}
}

// Fetch replaces the store's base list with the remote result. A response
// overtaken by a newer Fetch is dropped with ErrStaleResponse.
func (c *CatalogSync) Fetch(ctx context.Context, criteria domain.FilterCriteria) error {
	t := c.seq.Begin()
	c.Store.Pending()

	items, err := c.Source.ListItems(ctx, criteria)
	if err != nil {
		serr := c.seq.Settle(t, true, func(bool) { c.Store.Rejected(rejectMessage(err)) })
		if serr != nil {
			metrics.SyncOutcomes.WithLabelValues("catalog", "stale").Inc()
			return serr
		}
		metrics.SyncOutcomes.WithLabelValues("catalog", "rejected").Inc()
		log.Warn().Err(err).Uint64("ticket", t).Msg("catalog sync rejected")
		return err
	}

	serr := c.seq.Settle(t, false, func(latest bool) {
		if latest {
			c.Store.Fulfilled(items)
			return
		}
		c.Store.SetItems(items)
	})
	if serr != nil {
		metrics.SyncOutcomes.WithLabelValues("catalog", "stale").Inc()
		log.Debug().Uint64("ticket", t).Msg("catalog sync response dropped")
		return serr
	}
	metrics.SyncOutcomes.WithLabelValues("catalog", "fulfilled").Inc()
	return nil
}

func (c *CatalogSync) Phase() Phase {
	return c.seq.Phase()
}

func rejectMessage(err error) string {
	if errors.Is(err, ErrNotAuthenticated) {
		return ErrNotAuthenticated.Error()
	}
	return err.Error()
}
