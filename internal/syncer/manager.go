package syncer

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"svarak-backend/internal/models"
	"svarak-backend/internal/offline"
)

// MaxRetries is the per-operation attempt cap; an operation that has already
// failed this many times is dropped from the queue instead of retried.
const MaxRetries = 5

const pendingPollInterval = 2 * time.Second

// Remote is the slice of the remote store the drain needs.
type Remote interface {
	MaxOrderNumber(ctx context.Context) (int, error)
	InsertOrder(ctx context.Context, order *models.Order) error
	UpdateOrderFields(ctx context.Context, id int64, updates map[string]interface{}) error
	DeleteOrder(ctx context.Context, id int64) error
	SetSetting(ctx context.Context, key, value string) error
}

// Manager drains the offline mutation queue against the remote store.
// A drain is single-flight: a trigger that arrives while one is running is
// ignored rather than overlapped.
type Manager struct {
	staging *offline.Store
	remote  Remote
	log     *zap.Logger

	syncing      atomic.Bool
	pendingCount atomic.Int64

	mu       sync.Mutex
	lastErr  error
	onDone   func()
	stop     chan struct{}
	stopOnce sync.Once
}

func NewManager(staging *offline.Store, remote Remote, log *zap.Logger) *Manager {
	m := &Manager{staging: staging, remote: remote, log: log, stop: make(chan struct{})}
	m.pendingCount.Store(int64(staging.PendingCount()))
	return m
}

// OnSyncComplete registers a callback invoked after every finished drain.
func (m *Manager) OnSyncComplete(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onDone = fn
}

// Start launches the pending-count poller (the queue file is shared with
// other processes, so the count is re-read rather than tracked) and the
// connectivity-transition consumer.
func (m *Manager) Start(ctx context.Context, transitions <-chan bool) {
	go func() {
		ticker := time.NewTicker(pendingPollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.pendingCount.Store(int64(m.staging.PendingCount()))
			case <-m.stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		for {
			select {
			case online, ok := <-transitions:
				if !ok {
					return
				}
				if online {
					m.Sync(ctx)
				}
			case <-m.stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop ends the background goroutines.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() { close(m.stop) })
}

// IsSyncing reports whether a drain is in progress.
func (m *Manager) IsSyncing() bool {
	return m.syncing.Load()
}

// PendingCount reports the queue length as of the last poll.
func (m *Manager) PendingCount() int {
	return int(m.pendingCount.Load())
}

// SyncError returns the error of the last drain pass, if the pass itself
// failed unexpectedly. Per-operation failures are not pass failures.
func (m *Manager) SyncError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// Sync runs one full drain: deduplicate, then attempt each operation in
// strict queue order. Failures are isolated per operation; local staging is
// wiped only when the queue ends the pass empty.
func (m *Manager) Sync(ctx context.Context) {
	if !m.syncing.CompareAndSwap(false, true) {
		m.log.Debug("sync already in progress, ignoring trigger")
		return
	}
	defer m.syncing.Store(false)

	m.mu.Lock()
	m.lastErr = nil
	m.mu.Unlock()

	queue := m.staging.DeduplicateQueue()
	if len(queue) == 0 {
		return
	}
	m.log.Info("starting sync", zap.Int("operations", len(queue)))

	for _, op := range queue {
		if op.Retries >= MaxRetries {
			m.log.Error("abandoning operation after max retries",
				zap.String("op_id", op.ID),
				zap.String("type", string(op.Type)),
				zap.Int("retries", op.Retries))
			if err := m.staging.Dequeue(op.ID); err != nil {
				m.log.Warn("failed to drop abandoned operation", zap.String("op_id", op.ID), zap.Error(err))
			}
			continue
		}

		if err := m.process(ctx, op); err != nil {
			m.log.Warn("operation failed, will retry on next sync",
				zap.String("op_id", op.ID),
				zap.String("type", string(op.Type)),
				zap.Error(err))
			if err := m.staging.BumpRetry(op.ID); err != nil {
				m.log.Warn("failed to bump retry count", zap.String("op_id", op.ID), zap.Error(err))
			}
			continue
		}
		if err := m.staging.Dequeue(op.ID); err != nil {
			m.log.Warn("failed to dequeue synced operation", zap.String("op_id", op.ID), zap.Error(err))
		}
	}

	remaining := m.staging.Queue()
	if len(remaining) == 0 {
		if err := m.staging.ClearAll(); err != nil {
			m.log.Warn("failed to clear offline staging", zap.Error(err))
		} else {
			m.log.Info("sync completed, all operations applied and staging cleared")
		}
	} else {
		m.log.Info("sync completed with operations still pending", zap.Int("pending", len(remaining)))
	}

	m.pendingCount.Store(int64(m.staging.PendingCount()))

	m.mu.Lock()
	done := m.onDone
	m.mu.Unlock()
	if done != nil {
		done()
	}
}

func (m *Manager) process(ctx context.Context, op models.QueuedOperation) error {
	switch op.Type {
	case models.OpCreateOrder:
		return m.processCreate(ctx, op)
	case models.OpUpdateOrder:
		var p models.UpdatePayload
		if err := json.Unmarshal(op.Payload, &p); err != nil {
			return err
		}
		return m.remote.UpdateOrderFields(ctx, p.ID, normalizeUpdates(p.Updates))
	case models.OpToggleComplete:
		var p models.UpdatePayload
		if err := json.Unmarshal(op.Payload, &p); err != nil {
			return err
		}
		completed := p.Completed != nil && *p.Completed
		return m.remote.UpdateOrderFields(ctx, p.ID, map[string]interface{}{"completed": completed})
	case models.OpUpdateNote:
		var p models.UpdatePayload
		if err := json.Unmarshal(op.Payload, &p); err != nil {
			return err
		}
		note := ""
		if p.Note != nil {
			note = *p.Note
		}
		return m.remote.UpdateOrderFields(ctx, p.ID, map[string]interface{}{"note": note})
	case models.OpDeleteOrder:
		var p models.DeletePayload
		if err := json.Unmarshal(op.Payload, &p); err != nil {
			return err
		}
		return m.remote.DeleteOrder(ctx, p.ID)
	default:
		m.log.Warn("unknown operation type, dropping", zap.String("type", string(op.Type)))
		return nil
	}
}

func (m *Manager) processCreate(ctx context.Context, op models.QueuedOperation) error {
	var order models.Order
	if err := json.Unmarshal(op.Payload, &order); err != nil {
		return err
	}

	if order.OrderNumber == nil {
		maxNum, err := m.remote.MaxOrderNumber(ctx)
		if err != nil {
			return err
		}
		num := maxNum + 1
		order.OrderNumber = &num
	}

	if err := m.remote.InsertOrder(ctx, &order); err != nil {
		return err
	}

	if err := m.remote.SetSetting(ctx, models.SettingOrderNumber, strconv.Itoa(*order.OrderNumber+1)); err != nil {
		m.log.Warn("failed to persist next order number", zap.Error(err))
	}
	if err := m.staging.RemoveOfflineOrder(order.ID); err != nil {
		m.log.Warn("failed to remove staged order after sync", zap.Int64("order_id", order.ID), zap.Error(err))
	}
	return nil
}

// normalizeUpdates restores typed values lost by the JSON round trip through
// the queue; in particular the items column must go back through the
// OrderItems valuer to land as jsonb.
func normalizeUpdates(updates map[string]interface{}) map[string]interface{} {
	if updates == nil {
		return map[string]interface{}{}
	}
	if raw, ok := updates["items"]; ok {
		b, err := json.Marshal(raw)
		if err == nil {
			var items models.OrderItems
			if err := json.Unmarshal(b, &items); err == nil {
				updates["items"] = items
			}
		}
	}
	return updates
}
