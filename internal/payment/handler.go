package payment

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	qrcode "github.com/skip2/go-qrcode"

	"svarak-backend/internal/models"
)

// OrderSource looks up a single order from the merged view.
type OrderSource interface {
	Orders() []models.Order
}

// QRHandler renders a scannable QR payment code for an order. Staff orders
// are free and have nothing to pay.
func QRHandler(cfg Config, source OrderSource) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := strconv.ParseInt(c.Params("id"), 10, 64)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid order id")
		}

		var order *models.Order
		for _, o := range source.Orders() {
			if o.ID == id {
				order = &o
				break
			}
		}
		if order == nil {
			return fiber.NewError(fiber.StatusNotFound, "Order not found")
		}
		if order.IsStaffOrder {
			return fiber.NewError(fiber.StatusBadRequest, "Staff orders have no payment")
		}

		amount, err := strconv.ParseFloat(order.Total, 64)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Order total is not numeric")
		}

		orderNumber := 0
		if order.OrderNumber != nil {
			orderNumber = *order.OrderNumber
		}

		png, err := qrcode.Encode(SPAYD(cfg, amount, orderNumber, ""), qrcode.Medium, 512)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Failed to render QR code")
		}

		c.Set(fiber.HeaderContentType, "image/png")
		return c.Send(png)
	}
}
