package domain

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// FilterCriteria narrows the catalog view. A nil field places no constraint on its dimension.
type FilterCriteria struct {
	Category *Category        `json:"category"`
	MinPrice *decimal.Decimal `json:"minPrice"`
	MaxPrice *decimal.Decimal `json:"maxPrice"`
	Location *string          `json:"location"`
	Vintage  *string          `json:"vintage"`
}

// IsEmpty reports whether no dimension is constrained.
func (f FilterCriteria) IsEmpty() bool {
	return f.Category == nil && f.MinPrice == nil && f.MaxPrice == nil && f.Location == nil && f.Vintage == nil
}

// Clone returns a copy that shares no pointers with f.
func (f FilterCriteria) Clone() FilterCriteria {
	var out FilterCriteria
	if f.Category != nil {
		c := *f.Category
		out.Category = &c
	}
	if f.MinPrice != nil {
		v := *f.MinPrice
		out.MinPrice = &v
	}
	if f.MaxPrice != nil {
		v := *f.MaxPrice
		out.MaxPrice = &v
	}
	if f.Location != nil {
		v := *f.Location
		out.Location = &v
	}
	if f.Vintage != nil {
		v := *f.Vintage
		out.Vintage = &v
	}
	return out
}

// Patch distinguishes an omitted JSON field (Set false) from an explicit null (Set true, Value nil).
type Patch[T any] struct {
	Set   bool
	Value *T
}

// Clear is a Patch that sets the field to "no constraint".
func Clear[T any]() Patch[T] {
	return Patch[T]{Set: true}
}

// To is a Patch that sets the field to v.
func To[T any](v T) Patch[T] {
	return Patch[T]{Set: true, Value: &v}
}

func (p *Patch[T]) UnmarshalJSON(b []byte) error {
	p.Set = true
	if string(b) == "null" {
		p.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	p.Value = &v
	return nil
}

// FilterPatch is a partial FilterCriteria: omitted fields are left as they are.
type FilterPatch struct {
	Category Patch[Category]        `json:"category"`
	MinPrice Patch[decimal.Decimal] `json:"minPrice"`
	MaxPrice Patch[decimal.Decimal] `json:"maxPrice"`
	Location Patch[string]          `json:"location"`
	Vintage  Patch[string]          `json:"vintage"`
}

// Merge returns f with every set field of p overlaid.
func (p FilterPatch) Merge(f FilterCriteria) FilterCriteria {
	out := f.Clone()
	if p.Category.Set {
		out.Category = p.Category.Value
	}
	if p.MinPrice.Set {
		out.MinPrice = p.MinPrice.Value
	}
	if p.MaxPrice.Set {
		out.MaxPrice = p.MaxPrice.Value
	}
	if p.Location.Set {
		out.Location = p.Location.Value
	}
	if p.Vintage.Set {
		out.Vintage = p.Vintage.Value
	}
	return out.Clone()
}
