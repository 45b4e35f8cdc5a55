package catalog

import "github.com/gofiber/fiber/v2"

// ListProductsHandler returns the beverage catalog plus the cup deposit,
// which the terminal needs to render the standalone cup button.
func ListProductsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"products":    Products(),
			"cup_deposit": CupDeposit,
		})
	}
}
