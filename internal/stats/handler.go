package stats

import (
	"github.com/gofiber/fiber/v2"

	"svarak-backend/internal/models"
)

// OrderSource supplies the merged order list.
type OrderSource interface {
	Orders() []models.Order
}

// SummaryHandler returns the aggregated sales statistics.
func SummaryHandler(source OrderSource) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(Calculate(source.Orders()))
	}
}
