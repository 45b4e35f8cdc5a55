package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"time"

	"svarak-backend/internal/models"
)

var csvHeader = []string{
	"order_id",
	"order_number",
	"item_name",
	"item_price",
	"is_staff_order",
	"timestamp",
	"created_at",
	"order_total",
	"order_note",
	"completed",
}

// CSVFilename returns a timestamped export filename, e.g.
// certovske-objednavky-2025-12-06-183000.csv.
func CSVFilename(now time.Time) string {
	return fmt.Sprintf("certovske-objednavky-%s.csv", now.Format("2006-01-02-150405"))
}

// FilterByDateRange keeps orders whose creation date falls inside the
// inclusive [from, to] range. Zero bounds are open. Calendar dates are
// compared, not instants: an order's day is taken in its own location, so a
// CET evening order still matches a bound parsed as UTC midnight.
func FilterByDateRange(orders []models.Order, from, to time.Time) []models.Order {
	if from.IsZero() && to.IsZero() {
		return orders
	}
	fromDay := from.Format("2006-01-02")
	toDay := to.Format("2006-01-02")
	var out []models.Order
	for _, o := range orders {
		day := o.CreatedAt.Format("2006-01-02")
		if !from.IsZero() && day < fromDay {
			continue
		}
		if !to.IsZero() && day > toDay {
			continue
		}
		out = append(out, o)
	}
	return out
}

// OrdersCSV renders one row per order item, prefixed with a UTF-8 BOM so
// spreadsheet tools pick up the Czech product names correctly.
func OrdersCSV(orders []models.Order) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("\uFEFF")

	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}

	for _, order := range orders {
		orderNumber := ""
		if order.OrderNumber != nil {
			orderNumber = fmt.Sprintf("%d", *order.OrderNumber)
		}
		for _, item := range order.Items {
			row := []string{
				fmt.Sprintf("%d", order.ID),
				orderNumber,
				item.Name,
				fmt.Sprintf("%g", item.Price),
				yesNo(order.IsStaffOrder),
				order.Timestamp,
				order.CreatedAt.Format(time.RFC3339),
				order.Total,
				order.Note,
				yesNo(order.Completed),
			}
			if err := w.Write(row); err != nil {
				return nil, err
			}
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
