package catalog

import (
	"github.com/shopspring/decimal"

	"vectorium-backend/internal/domain"
)

// SeedItems returns the demo listings a fresh marketplace starts with.
func SeedItems() []domain.CatalogItem {
	return []domain.CatalogItem{
		seed("1", "Amazon Rainforest Conservation", "Carbon credits from protecting the Amazon rainforest from deforestation.",
			"15.50", 1000, "Amazon Preservation Initiative", "Brazil", "Verra", "2024",
			"https://images.unsplash.com/photo-1516026672322-bc52d61a55d5?q=80&w=2072&auto=format&fit=crop",
			"0x1234...5678", domain.CategoryForestry),
		seed("2", "Wind Farm Project", "Credits generated from a wind farm project reducing fossil fuel dependency.",
			"12.75", 500, "Clean Wind Energy", "Germany", "Gold Standard", "2023",
			"https://images.unsplash.com/photo-1466611653911-95081537e5b7?q=80&w=2070&auto=format&fit=crop",
			"0x9876...4321", domain.CategoryRenewable),
		seed("3", "Sustainable Agriculture", "Carbon sequestration through sustainable farming practices.",
			"18.25", 750, "Green Farming Initiative", "India", "Climate Action Reserve", "2024",
			"https://images.unsplash.com/photo-1625246333195-78d9c38ad449?q=80&w=2070&auto=format&fit=crop",
			"0xabcd...efgh", domain.CategoryAgriculture),
		seed("4", "Methane Capture Project", "Capturing methane emissions from waste management facilities.",
			"20.00", 300, "Waste to Energy", "United States", "American Carbon Registry", "2023",
			"https://images.unsplash.com/photo-1532996122724-e3c354a0b15b?q=80&w=2070&auto=format&fit=crop",
			"0xijkl...mnop", domain.CategoryWaste),
		seed("5", "Solar Power Plant", "Credits from a large-scale solar power installation.",
			"14.50", 1200, "Solar Energy Solutions", "Australia", "Verra", "2024",
			"https://images.unsplash.com/photo-1508514177221-188b1cf16e9d?q=80&w=2072&auto=format&fit=crop",
			"0xqrst...uvwx", domain.CategoryRenewable),
		seed("6", "Mangrove Restoration", "Restoring mangrove ecosystems for carbon sequestration and coastal protection.",
			"22.75", 600, "Coastal Ecosystem Restoration", "Indonesia", "Plan Vivo", "2023",
			"https://images.unsplash.com/photo-1602491453631-e2a5ad90a131?q=80&w=2071&auto=format&fit=crop",
			"0xyzab...cdef", domain.CategoryForestry),
	}
}

func seed(id, name, desc, price string, qty int, project, location, body, vintage, image, seller string, cat domain.Category) domain.CatalogItem {
	return domain.CatalogItem{
		ID:                id,
		Name:              name,
		Description:       desc,
		Price:             decimal.RequireFromString(price),
		Quantity:          qty,
		ProjectName:       project,
		Location:          location,
		CertificationBody: body,
		Vintage:           vintage,
		ImageURL:          image,
		Seller:            seller,
		CarbonReduction:   decimal.NewFromInt(int64(qty)),
		Category:          cat,
		Status:            domain.ItemAvailable,
	}
}
