package catalog

import (
	"strings"

	"vectorium-backend/internal/domain"
)

// Apply narrows items by every constrained dimension of f in one stable pass.
// The input is never modified; the result keeps the input order and is never nil.
func Apply(items []domain.CatalogItem, f domain.FilterCriteria) []domain.CatalogItem {
	out := make([]domain.CatalogItem, 0, len(items))
	for _, it := range items {
		if Matches(it, f) {
			out = append(out, it)
		}
	}
	return out
}

// Matches reports whether a single item passes f. An empty string constraint is treated as absent.
func Matches(it domain.CatalogItem, f domain.FilterCriteria) bool {
	if f.Category != nil && *f.Category != "" && it.Category != *f.Category {
		return false
	}
	if f.MinPrice != nil && it.Price.LessThan(*f.MinPrice) {
		return false
	}
	if f.MaxPrice != nil && it.Price.GreaterThan(*f.MaxPrice) {
		return false
	}
	if f.Location != nil && *f.Location != "" && it.Location != *f.Location {
		return false
	}
	if f.Vintage != nil && *f.Vintage != "" && it.Vintage != *f.Vintage {
		return false
	}
	return true
}

// Search is the free-text narrowing of the marketplace page: case-insensitive
// substring over name, description, project name and location.
func Search(items []domain.CatalogItem, term string) []domain.CatalogItem {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		out := make([]domain.CatalogItem, len(items))
		copy(out, items)
		return out
	}
	out := make([]domain.CatalogItem, 0, len(items))
	for _, it := range items {
		if strings.Contains(strings.ToLower(it.Name), term) ||
			strings.Contains(strings.ToLower(it.Description), term) ||
			strings.Contains(strings.ToLower(it.ProjectName), term) ||
			strings.Contains(strings.ToLower(it.Location), term) {
			out = append(out, it)
		}
	}
	return out
}
