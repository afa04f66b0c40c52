package catalog

import (
	"sync"

	"vectorium-backend/internal/domain"
)

// Store holds the catalog base list, the active filter and the focused item.
// The filtered view is recomputed on every change to the list or the filter.
type Store struct {
	mu       sync.RWMutex
	items    []domain.CatalogItem
	filtered []domain.CatalogItem
	filters  domain.FilterCriteria
	selected *domain.CatalogItem
	loading  bool
	err      string
}

// Snapshot is a copy of the store state safe to hand to a renderer.
type Snapshot struct {
	Listings         []domain.CatalogItem  `json:"listings"`
	FilteredListings []domain.CatalogItem  `json:"filteredListings"`
	SelectedListing  *domain.CatalogItem   `json:"selectedListing"`
	Filters          domain.FilterCriteria `json:"filters"`
	Loading          bool                  `json:"loading"`
	Error            *string               `json:"error"`
}

// NewStore returns a store seeded with items and no filter.
func NewStore(items []domain.CatalogItem) *Store {
	s := &Store{items: cloneItems(items)}
	s.recompute()
	return s
}

// SetItems replaces the whole base list.
func (s *Store) SetItems(items []domain.CatalogItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = cloneItems(items)
	s.recompute()
}

// SetFilter merges p into the current filter; omitted fields keep their value.
func (s *Store) SetFilter(p domain.FilterPatch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filters = p.Merge(s.filters)
	s.recompute()
}

// ResetFilter removes every constraint; the filtered view equals the base list.
func (s *Store) ResetFilter() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filters = domain.FilterCriteria{}
	s.recompute()
}

// SelectItem records the item focused for detail display; nil clears it.
func (s *Store) SelectItem(item *domain.CatalogItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if item == nil {
		s.selected = nil
		return
	}
	it := cloneItem(*item)
	s.selected = &it
}

// SelectByID focuses the base-list item with the given id. It reports false when absent.
func (s *Store) SelectByID(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return false
	}
	it := cloneItem(s.items[i])
	s.selected = &it
	return true
}

// AddItem appends item, or replaces the item that already has its id so ids
// stay unique. A selection of the replaced item follows the new value.
func (s *Store) AddItem(item domain.CatalogItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item = cloneItem(item)
	if i := s.indexOf(item.ID); i >= 0 {
		s.items[i] = item
		if s.selected != nil && s.selected.ID == item.ID {
			it := cloneItem(item)
			s.selected = &it
		}
	} else {
		s.items = append(s.items, item)
	}
	s.recompute()
}

// UpdateItem overlays patch on the item with id. The selection is refreshed when it is the same item.
func (s *Store) UpdateItem(id string, patch domain.ItemPatch) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return false
	}
	s.items[i] = patch.Apply(s.items[i])
	s.recompute()
	if s.selected != nil && s.selected.ID == id {
		upd := patch.Apply(*s.selected)
		s.selected = &upd
	}
	return true
}

// RemoveItem drops the item with id and clears the selection if it pointed at it.
func (s *Store) RemoveItem(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return false
	}
	next := make([]domain.CatalogItem, 0, len(s.items)-1)
	next = append(next, s.items[:i]...)
	next = append(next, s.items[i+1:]...)
	s.items = next
	s.recompute()
	if s.selected != nil && s.selected.ID == id {
		s.selected = nil
	}
	return true
}

// Item returns the base-list item with id.
func (s *Store) Item(id string) (domain.CatalogItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.indexOf(id)
	if i < 0 {
		return domain.CatalogItem{}, false
	}
	return cloneItem(s.items[i]), true
}

func (s *Store) Items() []domain.CatalogItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneItems(s.items)
}

func (s *Store) Filtered() []domain.CatalogItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneItems(s.filtered)
}

func (s *Store) Filters() domain.FilterCriteria {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filters.Clone()
}

func (s *Store) Selected() *domain.CatalogItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.selected == nil {
		return nil
	}
	it := cloneItem(*s.selected)
	return &it
}

// Pending marks a fetch in flight and clears the previous error.
func (s *Store) Pending() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = true
	s.err = ""
}

// Fulfilled replaces the base list with a fetched payload and ends loading.
func (s *Store) Fulfilled(items []domain.CatalogItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = cloneItems(items)
	s.recompute()
	s.loading = false
}

// Rejected ends loading and records msg. The base list is left as it was.
func (s *Store) Rejected(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	s.err = msg
}

func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{
		Listings:         cloneItems(s.items),
		FilteredListings: cloneItems(s.filtered),
		Filters:          s.filters.Clone(),
		Loading:          s.loading,
	}
	if s.selected != nil {
		it := cloneItem(*s.selected)
		snap.SelectedListing = &it
	}
	if s.err != "" {
		e := s.err
		snap.Error = &e
	}
	return snap
}

// recompute must be called with mu held for writing.
func (s *Store) recompute() {
	s.filtered = Apply(s.items, s.filters)
}

func (s *Store) indexOf(id string) int {
	for i := range s.items {
		if s.items[i].ID == id {
			return i
		}
	}
	return -1
}

func cloneItems(items []domain.CatalogItem) []domain.CatalogItem {
	out := make([]domain.CatalogItem, len(items))
	for i := range items {
		out[i] = cloneItem(items[i])
	}
	return out
}

// cloneItem copies the pointer fields too, so callers never share them with the store.
func cloneItem(it domain.CatalogItem) domain.CatalogItem {
	if it.TokenID != nil {
		v := *it.TokenID
		it.TokenID = &v
	}
	if it.ExpiryDate != nil {
		v := *it.ExpiryDate
		it.ExpiryDate = &v
	}
	return it
}
