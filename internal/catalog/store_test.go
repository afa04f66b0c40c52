package catalog

import (
	"encoding/json"
	"testing"
	"time"

	"vectorium-backend/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(items []domain.CatalogItem) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.ID)
	}
	return out
}

func TestApply_ForestryWithMinPrice(t *testing.T) {
	f := domain.FilterCriteria{}
	cat := domain.CategoryForestry
	minPrice := decimal.NewFromInt(10)
	f.Category = &cat
	f.MinPrice = &minPrice

	got := Apply(SeedItems(), f)
	require.Len(t, got, 2)
	assert.Equal(t, []string{"1", "6"}, ids(got))
	assert.True(t, got[0].Price.Equal(decimal.RequireFromString("15.50")))
	assert.True(t, got[1].Price.Equal(decimal.RequireFromString("22.75")))
}

func TestApply_EmptyFilterIsIdentity(t *testing.T) {
	items := SeedItems()
	got := Apply(items, domain.FilterCriteria{})
	assert.Equal(t, items, got)
}

func TestApply_ResultIsOrderedSubsequence(t *testing.T) {
	items := SeedItems()
	maxPrice := decimal.RequireFromString("18.25")
	loc := "Germany"
	cases := []domain.FilterCriteria{
		{MaxPrice: &maxPrice},
		{Location: &loc},
		{MaxPrice: &maxPrice, Location: &loc},
	}
	for _, f := range cases {
		got := Apply(items, f)
		j := 0
		for _, it := range got {
			for j < len(items) && items[j].ID != it.ID {
				j++
			}
			require.Less(t, j, len(items), "item %s out of order", it.ID)
			assert.True(t, Matches(it, f))
			j++
		}
	}
}

func TestApply_PriceBoundsAreInclusive(t *testing.T) {
	lo := decimal.RequireFromString("12.75")
	hi := decimal.RequireFromString("14.50")
	got := Apply(SeedItems(), domain.FilterCriteria{MinPrice: &lo, MaxPrice: &hi})
	assert.Equal(t, []string{"2", "5"}, ids(got))
}

func TestApply_EmptyStringIsNoConstraint(t *testing.T) {
	empty := ""
	got := Apply(SeedItems(), domain.FilterCriteria{Location: &empty})
	assert.Len(t, got, 6)
}

func TestStore_SetFilterMergesPartial(t *testing.T) {
	s := NewStore(SeedItems())
	s.SetFilter(domain.FilterPatch{Category: domain.To(domain.CategoryForestry)})
	s.SetFilter(domain.FilterPatch{MinPrice: domain.To(decimal.NewFromInt(10))})

	f := s.Filters()
	require.NotNil(t, f.Category)
	assert.Equal(t, domain.CategoryForestry, *f.Category)
	assert.Equal(t, []string{"1", "6"}, ids(s.Filtered()))

	s.SetFilter(domain.FilterPatch{Category: domain.Clear[domain.Category]()})
	assert.Nil(t, s.Filters().Category)
	assert.Len(t, s.Filtered(), 6)
}

func TestStore_SetFilterFromJSON(t *testing.T) {
	s := NewStore(SeedItems())
	var p domain.FilterPatch
	require.NoError(t, json.Unmarshal([]byte(`{"category":"renewable","maxPrice":13}`), &p))
	s.SetFilter(p)
	assert.Equal(t, []string{"2"}, ids(s.Filtered()))

	var clear domain.FilterPatch
	require.NoError(t, json.Unmarshal([]byte(`{"maxPrice":null}`), &clear))
	s.SetFilter(clear)
	assert.Equal(t, []string{"2", "5"}, ids(s.Filtered()))
	require.NotNil(t, s.Filters().Category)
}

func TestStore_ResetFilter(t *testing.T) {
	s := NewStore(SeedItems())
	s.SetFilter(domain.FilterPatch{Vintage: domain.To("2023")})
	assert.Len(t, s.Filtered(), 3)

	s.ResetFilter()
	assert.True(t, s.Filters().IsEmpty())
	assert.Equal(t, ids(s.Items()), ids(s.Filtered()))
}

func TestStore_MutationsRecomputeFilteredView(t *testing.T) {
	s := NewStore(SeedItems())
	s.SetFilter(domain.FilterPatch{Category: domain.To(domain.CategoryWaste)})
	assert.Equal(t, []string{"4"}, ids(s.Filtered()))

	s.AddItem(domain.CatalogItem{ID: "7", Name: "Landfill Gas", Price: decimal.NewFromInt(9), Quantity: 10, Category: domain.CategoryWaste})
	assert.Equal(t, []string{"4", "7"}, ids(s.Filtered()))

	other := domain.CategoryOther
	require.True(t, s.UpdateItem("4", domain.ItemPatch{Category: &other}))
	assert.Equal(t, []string{"7"}, ids(s.Filtered()))

	require.True(t, s.RemoveItem("7"))
	assert.Empty(t, s.Filtered())
	assert.NotNil(t, s.Filtered())
}

func TestStore_SelectionFollowsUpdatesAndRemoval(t *testing.T) {
	s := NewStore(SeedItems())
	require.True(t, s.SelectByID("3"))

	price := decimal.RequireFromString("19.00")
	require.True(t, s.UpdateItem("3", domain.ItemPatch{Price: &price}))
	sel := s.Selected()
	require.NotNil(t, sel)
	assert.True(t, sel.Price.Equal(price))

	require.True(t, s.UpdateItem("1", domain.ItemPatch{Price: &price}))
	assert.Equal(t, "3", s.Selected().ID)

	require.True(t, s.RemoveItem("3"))
	assert.Nil(t, s.Selected())
}

func TestStore_AddItemReplacesSameID(t *testing.T) {
	s := NewStore(SeedItems())
	require.True(t, s.SelectByID("4"))

	s.AddItem(domain.CatalogItem{ID: "4", Name: "Methane Capture", Price: decimal.NewFromInt(11), Quantity: 3, Category: domain.CategoryWaste})

	items := s.Items()
	assert.Len(t, items, 6)
	n := 0
	for _, it := range items {
		if it.ID == "4" {
			n++
		}
	}
	assert.Equal(t, 1, n)

	require.True(t, s.RemoveItem("4"))
	_, ok := s.Item("4")
	assert.False(t, ok)
	assert.Nil(t, s.Selected())
}

func TestStore_AddItemRefreshesSelection(t *testing.T) {
	s := NewStore(SeedItems())
	require.True(t, s.SelectByID("4"))

	s.AddItem(domain.CatalogItem{ID: "4", Name: "Methane Capture", Category: domain.CategoryWaste})
	assert.Equal(t, "Methane Capture", s.Selected().Name)
}

func TestStore_CopiesDoNotShareTokenOrExpiry(t *testing.T) {
	token := "tok-1"
	expiry := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewStore([]domain.CatalogItem{{ID: "1", Name: "Amazon Rainforest Conservation", TokenID: &token, ExpiryDate: &expiry}})
	require.True(t, s.SelectByID("1"))

	snap := s.Snapshot()
	*snap.Listings[0].TokenID = "changed"
	*snap.FilteredListings[0].ExpiryDate = time.Time{}
	*snap.SelectedListing.TokenID = "changed"
	it, _ := s.Item("1")
	*it.TokenID = "changed"

	token = "changed"
	expiry = time.Time{}

	got, ok := s.Item("1")
	require.True(t, ok)
	assert.Equal(t, "tok-1", *got.TokenID)
	assert.True(t, got.ExpiryDate.Equal(time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "tok-1", *s.Selected().TokenID)
	assert.Equal(t, "tok-1", *s.Filtered()[0].TokenID)
}

func TestStore_UnknownIDIsNoop(t *testing.T) {
	s := NewStore(SeedItems())
	before := s.Snapshot()
	name := "x"
	assert.False(t, s.UpdateItem("missing", domain.ItemPatch{Name: &name}))
	assert.False(t, s.RemoveItem("missing"))
	assert.False(t, s.SelectByID("missing"))
	assert.Equal(t, before, s.Snapshot())
}

func TestStore_Phases(t *testing.T) {
	s := NewStore(SeedItems())
	s.Pending()
	snap := s.Snapshot()
	assert.True(t, snap.Loading)
	assert.Nil(t, snap.Error)

	s.Rejected("network down")
	snap = s.Snapshot()
	assert.False(t, snap.Loading)
	require.NotNil(t, snap.Error)
	assert.Equal(t, "network down", *snap.Error)
	assert.Len(t, snap.Listings, 6)

	s.Pending()
	assert.Nil(t, s.Snapshot().Error)
	s.Fulfilled(SeedItems()[:2])
	snap = s.Snapshot()
	assert.False(t, snap.Loading)
	assert.Equal(t, []string{"1", "2"}, ids(snap.Listings))
}

func TestStore_SnapshotIsACopy(t *testing.T) {
	s := NewStore(SeedItems())
	snap := s.Snapshot()
	snap.Listings[0].Name = "changed"
	it, ok := s.Item("1")
	require.True(t, ok)
	assert.Equal(t, "Amazon Rainforest Conservation", it.Name)
}

func TestSearch(t *testing.T) {
	items := SeedItems()
	assert.Equal(t, []string{"2"}, ids(Search(items, "wind")))
	assert.Equal(t, []string{"6"}, ids(Search(items, "  INDONESIA ")))
	assert.Len(t, Search(items, ""), 6)
	assert.Empty(t, Search(items, "nothing matches"))
}
