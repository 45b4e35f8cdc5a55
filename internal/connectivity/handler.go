package connectivity

import "github.com/gofiber/fiber/v2"

// StatusHandler reports the current reachability verdict.
func StatusHandler(m *Monitor) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"online": m.IsOnline()})
	}
}

// CheckHandler forces an immediate probe (the manual retry button).
func CheckHandler(m *Monitor) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"online": m.CheckConnection(c.Context())})
	}
}

// HintHandler lets the terminal UI forward the platform's network-interface
// events: "up" schedules a verification probe, "down" is taken at its word.
func HintHandler(m *Monitor) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body struct {
			Online bool `json:"online"`
		}
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		if body.Online {
			m.InterfaceUp()
		} else {
			m.InterfaceDown()
		}
		return c.JSON(fiber.Map{"online": m.IsOnline()})
	}
}
