package syncer

import (
	"context"

	"github.com/gofiber/fiber/v2"
)

// StatusHandler reports sync progress for the offline banner.
func StatusHandler(m *Manager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		status := fiber.Map{
			"is_syncing":    m.IsSyncing(),
			"pending_count": m.PendingCount(),
		}
		if err := m.SyncError(); err != nil {
			status["sync_error"] = err.Error()
		}
		return c.JSON(status)
	}
}

// TriggerHandler starts a drain manually. The single-flight guard makes a
// trigger during a running drain a no-op.
func TriggerHandler(m *Manager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		// The drain outlives the request; it must not ride the request context.
		go m.Sync(context.Background())
		return c.JSON(fiber.Map{"triggered": true})
	}
}
