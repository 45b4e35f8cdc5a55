package export

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"svarak-backend/internal/models"
)

// OrderSource supplies the merged order list for exporting.
type OrderSource interface {
	Orders() []models.Order
}

func dateRange(c *fiber.Ctx) (time.Time, time.Time, error) {
	var from, to time.Time
	if raw := c.Query("from"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return from, to, fiber.NewError(fiber.StatusBadRequest, "Invalid 'from' date, expected YYYY-MM-DD")
		}
		from = parsed
	}
	if raw := c.Query("to"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return from, to, fiber.NewError(fiber.StatusBadRequest, "Invalid 'to' date, expected YYYY-MM-DD")
		}
		to = parsed
	}
	return from, to, nil
}

// CSVHandler streams the order export as a CSV download, optionally filtered
// by ?from=YYYY-MM-DD&to=YYYY-MM-DD.
func CSVHandler(source OrderSource) fiber.Handler {
	return func(c *fiber.Ctx) error {
		from, to, err := dateRange(c)
		if err != nil {
			return err
		}

		data, err := OrdersCSV(FilterByDateRange(source.Orders(), from, to))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Failed to generate CSV")
		}

		c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
		c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+CSVFilename(time.Now())+`"`)
		return c.Send(data)
	}
}

// XLSXHandler streams the order export as a spreadsheet download.
func XLSXHandler(source OrderSource) fiber.Handler {
	return func(c *fiber.Ctx) error {
		from, to, err := dateRange(c)
		if err != nil {
			return err
		}

		data, err := OrdersXLSX(FilterByDateRange(source.Orders(), from, to))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Failed to generate spreadsheet")
		}

		c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+XLSXFilename(time.Now())+`"`)
		return c.Send(data)
	}
}
