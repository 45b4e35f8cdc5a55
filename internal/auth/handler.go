package auth

import (
	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"

	"svarak-backend/internal/config"
)

type LoginRequest struct {
	Password string `json:"password"`
	Terminal string `json:"terminal"`
}

// LoginHandler is the whole authentication story: one shared staff password
// compared against a configured bcrypt hash. On success the terminal gets a
// session token valid for 24 hours; logout is throwing the token away.
func LoginHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body LoginRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Neplatné tělo požadavku")
		}

		if err := bcrypt.CompareHashAndPassword([]byte(cfg.AppPasswordHash), []byte(body.Password)); err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Nesprávné heslo")
		}

		terminal := body.Terminal
		if terminal == "" {
			terminal = "terminal"
		}

		token, err := GenerateToken(cfg.JWTSecret, terminal)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Token se nepodařilo vytvořit")
		}

		return c.JSON(fiber.Map{
			"token":      token,
			"expires_in": int(SessionTimeout.Seconds()),
		})
	}
}
