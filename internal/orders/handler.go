package orders

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"svarak-backend/internal/auth"
	"svarak-backend/internal/cart"
)

type submitRequest struct {
	IsStaffOrder bool   `json:"is_staff_order"`
	Note         string `json:"note"`
}

type noteRequest struct {
	Note string `json:"note"`
}

func sessionCart(c *fiber.Ctx, sessions *cart.Sessions) *cart.Cart {
	terminal, _ := c.Locals(auth.CtxTerminalKey).(string)
	if terminal == "" {
		terminal = "terminal"
	}
	return sessions.Get(terminal)
}

func orderID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return 0, fiber.NewError(fiber.StatusBadRequest, "Invalid order id")
	}
	return id, nil
}

// ListOrdersHandler returns the merged order view plus the derived lists.
func ListOrdersHandler(repo *Repository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"orders":    repo.Orders(),
			"pending":   repo.Pending(),
			"completed": repo.Completed(),
		})
	}
}

// SubmitOrderHandler turns the session cart into a new order and clears the
// cart. An empty cart is rejected.
func SubmitOrderHandler(repo *Repository, sessions *cart.Sessions) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body submitRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		sc := sessionCart(c, sessions)
		if sc.Empty() {
			return fiber.NewError(fiber.StatusBadRequest, "Cart is empty")
		}

		order, err := repo.AddOrder(c.Context(), sc.Lines(), sc.Total(), body.IsStaffOrder, body.Note)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Failed to create order")
		}
		sc.Clear()

		return c.Status(fiber.StatusCreated).JSON(order)
	}
}

// UpdateOrderHandler resubmits the session cart as the new content of an
// existing order (edit-and-resubmit).
func UpdateOrderHandler(repo *Repository, sessions *cart.Sessions) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := orderID(c)
		if err != nil {
			return err
		}

		var body submitRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		sc := sessionCart(c, sessions)
		if sc.Empty() {
			return fiber.NewError(fiber.StatusBadRequest, "Cart is empty")
		}

		if err := repo.UpdateOrder(c.Context(), id, sc.Lines(), sc.Total(), body.IsStaffOrder, body.Note); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Failed to update order")
		}
		sc.Clear()

		return c.JSON(fiber.Map{"updated": true})
	}
}

// ToggleCompleteHandler flips an order between pending and completed.
func ToggleCompleteHandler(repo *Repository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := orderID(c)
		if err != nil {
			return err
		}
		if err := repo.ToggleComplete(c.Context(), id); err != nil {
			if errors.Is(err, ErrOrderNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "Order not found")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "Failed to toggle order")
		}
		return c.JSON(fiber.Map{"toggled": true})
	}
}

// UpdateNoteHandler replaces the free-text note on an order.
func UpdateNoteHandler(repo *Repository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := orderID(c)
		if err != nil {
			return err
		}
		var body noteRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		if err := repo.UpdateNote(c.Context(), id, body.Note); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Failed to update note")
		}
		return c.JSON(fiber.Map{"updated": true})
	}
}

// DeleteOrderHandler removes a single order.
func DeleteOrderHandler(repo *Repository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := orderID(c)
		if err != nil {
			return err
		}
		if err := repo.DeleteOrder(c.Context(), id); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Failed to delete order")
		}
		return c.JSON(fiber.Map{"deleted": true})
	}
}

// ToggleItemReadyHandler flips the ready flag of one item in an order.
func ToggleItemReadyHandler(repo *Repository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := orderID(c)
		if err != nil {
			return err
		}
		itemID := c.Params("itemId")
		if err := repo.ToggleItemReady(c.Context(), id, itemID); err != nil {
			if errors.Is(err, ErrOrderNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "Order not found")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "Failed to toggle item")
		}
		return c.JSON(fiber.Map{"toggled": true})
	}
}

// MarkAllReadyHandler marks every item of an order ready.
func MarkAllReadyHandler(repo *Repository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := orderID(c)
		if err != nil {
			return err
		}
		if err := repo.MarkAllItemsReady(c.Context(), id); err != nil {
			if errors.Is(err, ErrOrderNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "Order not found")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "Failed to mark items ready")
		}
		return c.JSON(fiber.Map{"updated": true})
	}
}

// LoadCartFromOrderHandler fills the session cart from an existing order so
// it can be edited and resubmitted.
func LoadCartFromOrderHandler(repo *Repository, sessions *cart.Sessions) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := orderID(c)
		if err != nil {
			return err
		}
		order, ok := repo.find(id)
		if !ok {
			return fiber.NewError(fiber.StatusNotFound, "Order not found")
		}
		sc := sessionCart(c, sessions)
		sc.LoadFromOrder(order)
		return c.JSON(fiber.Map{
			"lines": sc.Lines(),
			"total": sc.Total(),
		})
	}
}

// PurgeHandler runs the bulk purge and optional numbering reset, reporting a
// structured result so the UI can retry just the failed step.
func PurgeHandler(repo *Repository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		result := repo.PurgeAll(c.Context())
		if !result.Success {
			return c.Status(fiber.StatusInternalServerError).JSON(result)
		}
		if err := repo.ResetOrderNumber(c.Context()); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(PurgeResult{
				Success: false,
				Error:   "orders purged but numbering reset failed: " + err.Error(),
			})
		}
		return c.JSON(result)
	}
}

// ResetOrderNumberHandler retries just the numbering reset step.
func ResetOrderNumberHandler(repo *Repository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := repo.ResetOrderNumber(c.Context()); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "error": err.Error()})
		}
		return c.JSON(fiber.Map{"success": true})
	}
}
