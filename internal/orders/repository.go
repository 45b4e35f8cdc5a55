package orders

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"svarak-backend/internal/cart"
	"svarak-backend/internal/models"
	"svarak-backend/internal/offline"
)

// Remote is the slice of the remote store the repository needs.
type Remote interface {
	ListOrders(ctx context.Context) ([]models.Order, error)
	MaxOrderNumber(ctx context.Context) (int, error)
	InsertOrder(ctx context.Context, order *models.Order) error
	UpdateOrderFields(ctx context.Context, id int64, updates map[string]interface{}) error
	DeleteOrder(ctx context.Context, id int64) error
	DeleteAllOrders(ctx context.Context) error
	SetSetting(ctx context.Context, key, value string) error
}

// OnlineChecker reports the connectivity monitor's current verdict.
type OnlineChecker interface {
	IsOnline() bool
}

// Repository is the single source of truth for the order list visible to
// the UI: confirmed remote orders merged with locally staged ones. Writes
// go through to the remote store when online and fall back to staging plus
// a queued operation when not.
type Repository struct {
	remote  Remote
	staging *offline.Store
	online  OnlineChecker
	log     *zap.Logger

	mu         sync.Mutex
	orders     []models.Order
	loadSeq    uint64
	appliedSeq uint64
	lastID     int64

	now func() time.Time
}

func NewRepository(remote Remote, staging *offline.Store, online OnlineChecker, log *zap.Logger) *Repository {
	return &Repository{
		remote:  remote,
		staging: staging,
		online:  online,
		log:     log,
		now:     time.Now,
	}
}

// newOrderID hands out client-generated time-based ids, nudging forward on
// collision so two orders submitted within the same millisecond stay unique.
func (r *Repository) newOrderID() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.now().UnixMilli()
	if id <= r.lastID {
		id = r.lastID + 1
	}
	r.lastID = id
	return id
}

// LoadOrders refreshes the merged view: remote orders ascending by id, then
// staged offline orders in their own insertion order. A remote read failure
// degrades to the staged-only view and is not propagated. Reloads are gated
// by a sequence number so a slow reload never overwrites a fresher one.
func (r *Repository) LoadOrders(ctx context.Context) {
	r.mu.Lock()
	r.loadSeq++
	seq := r.loadSeq
	r.mu.Unlock()

	remoteOrders, err := r.remote.ListOrders(ctx)
	if err != nil {
		r.log.Warn("remote order load failed, showing staged orders only", zap.Error(err))
		remoteOrders = nil
	}
	merged := append(remoteOrders, r.staging.OfflineOrders()...)

	r.mu.Lock()
	defer r.mu.Unlock()
	if seq <= r.appliedSeq {
		return
	}
	r.appliedSeq = seq
	r.orders = merged
}

// Run consumes realtime change signals and reloads on each, giving eventual
// consistency across terminals.
func (r *Repository) Run(ctx context.Context, changes <-chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-changes:
			if !ok {
				return
			}
			r.LoadOrders(ctx)
		}
	}
}

// flatten turns cart lines into one single-quantity item per unit, skipping
// return lines. Each unit gets a fresh item id and starts not ready.
func flatten(lines []cart.Line) models.OrderItems {
	var items models.OrderItems
	for _, l := range lines {
		if l.IsReturn {
			continue
		}
		for i := 0; i < l.Quantity; i++ {
			items = append(items, models.OrderItem{
				ItemID:    uuid.NewString(),
				ProductID: l.ProductID,
				CartKey:   l.CartKey,
				Name:      l.Name,
				Price:     l.Price,
				Ready:     false,
				IsAutoCup: l.IsAutoCup,
			})
		}
	}
	return items
}

// AddOrder submits the cart as a new order. Online, the order number is
// assigned at write time from the current remote maximum; offline (or when
// the insert fails), the order is staged with a null number, a CREATE_ORDER
// operation is queued, and the order appears in the merged view immediately.
func (r *Repository) AddOrder(ctx context.Context, lines []cart.Line, total string, isStaffOrder bool, note string) (models.Order, error) {
	order := models.Order{
		ID:           r.newOrderID(),
		Items:        flatten(lines),
		Total:        total,
		Timestamp:    r.now().Format("15:04:05"),
		Completed:    false,
		IsStaffOrder: isStaffOrder,
		Note:         strings.TrimSpace(note),
	}

	if r.online.IsOnline() {
		err := r.insertRemote(ctx, &order)
		if err == nil {
			r.LoadOrders(ctx)
			return order, nil
		}
		r.log.Warn("remote insert failed, staging order locally", zap.Int64("order_id", order.ID), zap.Error(err))
	}

	return r.stageNewOrder(order)
}

func (r *Repository) insertRemote(ctx context.Context, order *models.Order) error {
	maxNum, err := r.remote.MaxOrderNumber(ctx)
	if err != nil {
		return err
	}
	num := maxNum + 1
	order.OrderNumber = &num
	if err := r.remote.InsertOrder(ctx, order); err != nil {
		order.OrderNumber = nil
		return err
	}
	if err := r.remote.SetSetting(ctx, models.SettingOrderNumber, strconv.Itoa(num+1)); err != nil {
		r.log.Warn("failed to persist next order number", zap.Error(err))
	}
	return nil
}

func (r *Repository) stageNewOrder(order models.Order) (models.Order, error) {
	order.OrderNumber = nil
	if err := r.staging.SaveOfflineOrder(order); err != nil {
		// Local storage refused the write; keep the order in memory only so
		// the current session can still serve it.
		r.log.Error("failed to stage offline order", zap.Int64("order_id", order.ID), zap.Error(err))
	} else if err := r.enqueue(models.OpCreateOrder, order); err != nil {
		r.log.Error("failed to queue order create", zap.Int64("order_id", order.ID), zap.Error(err))
	}

	r.mu.Lock()
	r.orders = append(r.orders, order)
	r.mu.Unlock()
	return order, nil
}

func (r *Repository) enqueue(opType models.OperationType, payload interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return r.staging.Enqueue(models.QueuedOperation{
		ID:        uuid.NewString(),
		Type:      opType,
		Payload:   raw,
		Timestamp: r.now().UnixMilli(),
		Retries:   0,
	})
}

// UpdateOrder replaces items, total, timestamp, staff flag and note of an
// existing order, leaving its completed flag untouched. Offline edits of an
// order that is itself still staged rewrite the staged copy and queue a
// merged CREATE_ORDER; edits of an already-remote order queue UPDATE_ORDER.
func (r *Repository) UpdateOrder(ctx context.Context, id int64, lines []cart.Line, total string, isStaffOrder bool, note string) error {
	items := flatten(lines)
	timestamp := r.now().Format("15:04:05")
	updates := map[string]interface{}{
		"items":          items,
		"total":          total,
		"timestamp":      timestamp,
		"is_staff_order": isStaffOrder,
		"note":           strings.TrimSpace(note),
	}

	if r.online.IsOnline() {
		if err := r.remote.UpdateOrderFields(ctx, id, updates); err != nil {
			return err
		}
		r.LoadOrders(ctx)
		return nil
	}

	if staged, ok := r.findStaged(id); ok {
		staged.Items = items
		staged.Total = total
		staged.Timestamp = timestamp
		staged.IsStaffOrder = isStaffOrder
		staged.Note = strings.TrimSpace(note)
		if err := r.staging.UpdateOfflineOrder(staged); err != nil {
			return err
		}
		if err := r.enqueue(models.OpCreateOrder, staged); err != nil {
			return err
		}
		r.patch(id, func(o *models.Order) { *o = staged })
		return nil
	}

	if err := r.enqueue(models.OpUpdateOrder, models.UpdatePayload{ID: id, Updates: updates}); err != nil {
		return err
	}
	r.patch(id, func(o *models.Order) {
		o.Items = items
		o.Total = total
		o.Timestamp = timestamp
		o.IsStaffOrder = isStaffOrder
		o.Note = strings.TrimSpace(note)
	})
	return nil
}

// ToggleComplete flips the completed flag of the order.
func (r *Repository) ToggleComplete(ctx context.Context, id int64) error {
	order, ok := r.find(id)
	if !ok {
		return ErrOrderNotFound
	}
	completed := !order.Completed

	if r.online.IsOnline() {
		if err := r.remote.UpdateOrderFields(ctx, id, map[string]interface{}{"completed": completed}); err != nil {
			return err
		}
		r.LoadOrders(ctx)
		return nil
	}

	if staged, stagedOK := r.findStaged(id); stagedOK {
		staged.Completed = completed
		if err := r.staging.UpdateOfflineOrder(staged); err != nil {
			return err
		}
		if err := r.enqueue(models.OpCreateOrder, staged); err != nil {
			return err
		}
	} else if err := r.enqueue(models.OpToggleComplete, models.UpdatePayload{ID: id, Completed: &completed}); err != nil {
		return err
	}
	r.patch(id, func(o *models.Order) { o.Completed = completed })
	return nil
}

// UpdateNote replaces the order's note.
func (r *Repository) UpdateNote(ctx context.Context, id int64, note string) error {
	note = strings.TrimSpace(note)

	if r.online.IsOnline() {
		if err := r.remote.UpdateOrderFields(ctx, id, map[string]interface{}{"note": note}); err != nil {
			return err
		}
		r.LoadOrders(ctx)
		return nil
	}

	if staged, ok := r.findStaged(id); ok {
		staged.Note = note
		if err := r.staging.UpdateOfflineOrder(staged); err != nil {
			return err
		}
		if err := r.enqueue(models.OpCreateOrder, staged); err != nil {
			return err
		}
	} else if err := r.enqueue(models.OpUpdateNote, models.UpdatePayload{ID: id, Note: &note}); err != nil {
		return err
	}
	r.patch(id, func(o *models.Order) { o.Note = note })
	return nil
}

// DeleteOrder removes the order. Offline, the staged copy (if any) is
// dropped and a DELETE_ORDER operation is queued; the queued create for a
// staged order replays before the delete, so the pair cancels out remotely.
func (r *Repository) DeleteOrder(ctx context.Context, id int64) error {
	if r.online.IsOnline() {
		if err := r.remote.DeleteOrder(ctx, id); err != nil {
			return err
		}
		r.LoadOrders(ctx)
		return nil
	}

	if _, ok := r.findStaged(id); ok {
		if err := r.staging.RemoveOfflineOrder(id); err != nil {
			return err
		}
	}
	if err := r.enqueue(models.OpDeleteOrder, models.DeletePayload{ID: id}); err != nil {
		return err
	}
	r.mu.Lock()
	kept := r.orders[:0]
	for _, o := range r.orders {
		if o.ID != id {
			kept = append(kept, o)
		}
	}
	r.orders = kept
	r.mu.Unlock()
	return nil
}

// ToggleItemReady flips the ready flag of a single item within an order.
func (r *Repository) ToggleItemReady(ctx context.Context, id int64, itemID string) error {
	return r.updateItems(ctx, id, func(items models.OrderItems) {
		for i := range items {
			if items[i].ItemID == itemID {
				items[i].Ready = !items[i].Ready
			}
		}
	})
}

// MarkAllItemsReady sets every item of the order ready.
func (r *Repository) MarkAllItemsReady(ctx context.Context, id int64) error {
	return r.updateItems(ctx, id, func(items models.OrderItems) {
		for i := range items {
			items[i].Ready = true
		}
	})
}

func (r *Repository) updateItems(ctx context.Context, id int64, mutate func(models.OrderItems)) error {
	order, ok := r.find(id)
	if !ok {
		return ErrOrderNotFound
	}
	items := make(models.OrderItems, len(order.Items))
	copy(items, order.Items)
	mutate(items)

	if r.online.IsOnline() {
		if err := r.remote.UpdateOrderFields(ctx, id, map[string]interface{}{"items": items}); err != nil {
			return err
		}
		r.LoadOrders(ctx)
		return nil
	}

	if staged, stagedOK := r.findStaged(id); stagedOK {
		staged.Items = items
		if err := r.staging.UpdateOfflineOrder(staged); err != nil {
			return err
		}
		if err := r.enqueue(models.OpCreateOrder, staged); err != nil {
			return err
		}
	} else if err := r.enqueue(models.OpUpdateOrder, models.UpdatePayload{ID: id, Updates: map[string]interface{}{"items": items}}); err != nil {
		return err
	}
	r.patch(id, func(o *models.Order) { o.Items = items })
	return nil
}

// PurgeResult reports the outcome of the bulk purge so a multi-step workflow
// (export, purge, reset numbering) can retry just the failed step.
type PurgeResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// PurgeAll deletes every remote order. It never panics or throws to the
// caller; failure comes back as a structured result.
func (r *Repository) PurgeAll(ctx context.Context) PurgeResult {
	if err := r.remote.DeleteAllOrders(ctx); err != nil {
		return PurgeResult{Success: false, Error: err.Error()}
	}
	r.LoadOrders(ctx)
	return PurgeResult{Success: true}
}

// ResetOrderNumber restarts numbering at 1. Kept separate from PurgeAll so
// a failed reset can be retried without re-purging.
func (r *Repository) ResetOrderNumber(ctx context.Context) error {
	return r.remote.SetSetting(ctx, models.SettingOrderNumber, "1")
}

// Orders returns a copy of the merged order list.
func (r *Repository) Orders() []models.Order {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Order, len(r.orders))
	copy(out, r.orders)
	return out
}

// Pending returns uncompleted orders in natural order.
func (r *Repository) Pending() []models.Order {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Order
	for _, o := range r.orders {
		if !o.Completed {
			out = append(out, o)
		}
	}
	return out
}

// Completed returns completed orders most recent first.
func (r *Repository) Completed() []models.Order {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Order
	for i := len(r.orders) - 1; i >= 0; i-- {
		if r.orders[i].Completed {
			out = append(out, r.orders[i])
		}
	}
	return out
}

func (r *Repository) find(id int64) (models.Order, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.orders {
		if o.ID == id {
			return o, true
		}
	}
	return models.Order{}, false
}

func (r *Repository) findStaged(id int64) (models.Order, bool) {
	for _, o := range r.staging.OfflineOrders() {
		if o.ID == id {
			return o, true
		}
	}
	return models.Order{}, false
}

func (r *Repository) patch(id int64, mutate func(*models.Order)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.orders {
		if r.orders[i].ID == id {
			mutate(&r.orders[i])
			return
		}
	}
}
