package stats

import (
	"svarak-backend/internal/catalog"
	"svarak-backend/internal/models"
)

// Summary aggregates sales figures across the merged order list. Staff
// orders never count toward revenue; auto cups are deposits, not sales, and
// are excluded everywhere except the separate extra-cup count.
type Summary struct {
	TotalRevenue    float64            `json:"total_revenue"`
	TotalOrders     int                `json:"total_orders"`
	TotalItemsSold  int                `json:"total_items_sold"`
	ItemsSold       map[string]int     `json:"items_sold"`
	FreeItemsSold   map[string]int     `json:"free_items_sold"`
	RevenuePerItem  map[string]float64 `json:"revenue_per_item"`
	ExtraCupsCount  int                `json:"extra_cups_count"`
	StaffOrderCount int                `json:"staff_order_count"`
	StaffItemsCount int                `json:"staff_items_count"`
}

// Calculate walks the orders once per concern, mirroring the stall's
// reporting rules.
func Calculate(orders []models.Order) Summary {
	s := Summary{
		ItemsSold:      map[string]int{},
		FreeItemsSold:  map[string]int{},
		RevenuePerItem: map[string]float64{},
	}
	for _, p := range catalog.Products() {
		s.ItemsSold[p.Name] = 0
		s.FreeItemsSold[p.Name] = 0
		s.RevenuePerItem[p.Name] = 0
	}

	for _, order := range orders {
		if order.IsStaffOrder {
			s.StaffOrderCount++
			for _, item := range order.Items {
				if item.ProductID != catalog.CupID {
					s.StaffItemsCount++
				}
				if _, tracked := s.FreeItemsSold[item.Name]; tracked {
					s.FreeItemsSold[item.Name]++
				}
			}
			continue
		}

		s.TotalOrders++
		for _, item := range order.Items {
			if item.ProductID != catalog.CupID {
				s.TotalRevenue += item.Price
			}
			if _, tracked := s.ItemsSold[item.Name]; tracked {
				s.ItemsSold[item.Name]++
				s.RevenuePerItem[item.Name] += item.Price
			}
			if item.ProductID == catalog.ExtraCupID {
				s.ExtraCupsCount++
			}
		}
	}

	for _, count := range s.ItemsSold {
		s.TotalItemsSold += count
	}
	return s
}
