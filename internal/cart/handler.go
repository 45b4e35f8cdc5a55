package cart

import (
	"github.com/gofiber/fiber/v2"

	"svarak-backend/internal/auth"
	"svarak-backend/internal/catalog"
)

func forSession(c *fiber.Ctx, sessions *Sessions) *Cart {
	terminal, _ := c.Locals(auth.CtxTerminalKey).(string)
	if terminal == "" {
		terminal = "terminal"
	}
	return sessions.Get(terminal)
}

func cartState(sc *Cart) fiber.Map {
	return fiber.Map{
		"lines":   sc.Lines(),
		"total":   sc.Total(),
		"clicked": sc.ClickedProduct(),
	}
}

// GetCartHandler returns the session cart.
func GetCartHandler(sessions *Sessions) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(cartState(forSession(c, sessions)))
	}
}

// AddProductHandler adds one unit of a catalog product (or the standalone
// cup) to the session cart.
func AddProductHandler(sessions *Sessions) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body struct {
			ProductID string `json:"product_id"`
		}
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		sc := forSession(c, sessions)
		if body.ProductID == catalog.CupID {
			sc.AddProduct(catalog.CupProduct())
			return c.JSON(cartState(sc))
		}
		product, ok := catalog.Find(body.ProductID)
		if !ok {
			return fiber.NewError(fiber.StatusBadRequest, "Unknown product")
		}
		sc.AddProduct(product)
		return c.JSON(cartState(sc))
	}
}

// AddReturnHandler adds one returned-cup refund line.
func AddReturnHandler(sessions *Sessions) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sc := forSession(c, sessions)
		sc.AddReturnLine()
		return c.JSON(cartState(sc))
	}
}

// UpdateQuantityHandler applies a delta to one cart line.
func UpdateQuantityHandler(sessions *Sessions) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body struct {
			CartKey string `json:"cart_key"`
			Delta   int    `json:"delta"`
		}
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		sc := forSession(c, sessions)
		sc.UpdateQuantity(body.CartKey, body.Delta)
		return c.JSON(cartState(sc))
	}
}

// ClearCartHandler empties the session cart.
func ClearCartHandler(sessions *Sessions) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sc := forSession(c, sessions)
		sc.Clear()
		return c.JSON(cartState(sc))
	}
}
