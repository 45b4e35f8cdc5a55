package offline

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"go.uber.org/zap"

	"svarak-backend/internal/models"
)

// Store is the terminal-local durable staging area: orders created while
// offline plus the FIFO mutation queue. Everything lives in one JSON file
// that is rewritten atomically (temp file + rename) after each mutation.
// Corrupt or missing data reads as empty; write errors propagate so callers
// can decide whether to keep data in memory only.
type Store struct {
	mu   sync.Mutex
	path string
	log  *zap.Logger
}

type snapshot struct {
	OfflineOrders []models.Order           `json:"pos_offline_orders"`
	SyncQueue     []models.QueuedOperation `json:"pos_sync_queue"`
}

func NewStore(path string, log *zap.Logger) *Store {
	return &Store{path: path, log: log}
}

func (s *Store) read() snapshot {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return snapshot{}
	}
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		s.log.Warn("offline snapshot unreadable, treating as empty", zap.Error(err))
		return snapshot{}
	}
	return snap
}

func (s *Store) write(snap snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

// OfflineOrders returns all staged orders in insertion order.
func (s *Store) OfflineOrders() []models.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read().OfflineOrders
}

// SaveOfflineOrder appends an order to the staged collection.
func (s *Store) SaveOfflineOrder(order models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.read()
	snap.OfflineOrders = append(snap.OfflineOrders, order)
	return s.write(snap)
}

// UpdateOfflineOrder replaces the staged order with the same id, if present.
func (s *Store) UpdateOfflineOrder(order models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.read()
	for i := range snap.OfflineOrders {
		if snap.OfflineOrders[i].ID == order.ID {
			snap.OfflineOrders[i] = order
			return s.write(snap)
		}
	}
	return nil
}

// RemoveOfflineOrder drops the staged order with the given id.
func (s *Store) RemoveOfflineOrder(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.read()
	kept := snap.OfflineOrders[:0]
	for _, o := range snap.OfflineOrders {
		if o.ID != id {
			kept = append(kept, o)
		}
	}
	snap.OfflineOrders = kept
	return s.write(snap)
}

// Queue returns the mutation queue in stored order.
func (s *Store) Queue() []models.QueuedOperation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read().SyncQueue
}

// Enqueue appends an operation to the queue.
func (s *Store) Enqueue(op models.QueuedOperation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.read()
	snap.SyncQueue = append(snap.SyncQueue, op)
	return s.write(snap)
}

// Dequeue removes the operation with the given id.
func (s *Store) Dequeue(opID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.read()
	kept := snap.SyncQueue[:0]
	for _, op := range snap.SyncQueue {
		if op.ID != opID {
			kept = append(kept, op)
		}
	}
	snap.SyncQueue = kept
	return s.write(snap)
}

// BumpRetry increments the retry counter of the operation in place.
func (s *Store) BumpRetry(opID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.read()
	for i := range snap.SyncQueue {
		if snap.SyncQueue[i].ID == opID {
			snap.SyncQueue[i].Retries++
			return s.write(snap)
		}
	}
	return nil
}

// PendingCount reports the queue length.
func (s *Store) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.read().SyncQueue)
}

// ClearAll wipes both staged collections. Called only after a drain pass
// leaves the queue empty.
func (s *Store) ClearAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(snapshot{})
}

// DeduplicateQueue collapses the queue by (type, target id). CREATE_ORDER
// operations for the same order merge payloads with later fields winning,
// so repeated local edits of an unsynced order become one create with the
// latest data. Other types keep only the latest-timestamped operation. The
// result is re-sorted by timestamp ascending and rewritten to disk; it must
// run immediately before every drain so stale intermediate states are never
// replayed.
func (s *Store) DeduplicateQueue() []models.QueuedOperation {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.read()
	latest := make(map[string]*models.QueuedOperation)
	order := make([]string, 0, len(snap.SyncQueue))

	for i := range snap.SyncQueue {
		op := snap.SyncQueue[i]
		key := string(op.Type) + "_" + op.TargetID()
		existing, ok := latest[key]
		if !ok {
			cp := op
			latest[key] = &cp
			order = append(order, key)
			continue
		}
		if op.Type == models.OpCreateOrder {
			existing.Payload = models.MergeJSON(existing.Payload, op.Payload)
			existing.Timestamp = op.Timestamp
		} else if op.Timestamp > existing.Timestamp {
			cp := op
			latest[key] = &cp
		}
	}

	deduped := make([]models.QueuedOperation, 0, len(latest))
	for _, key := range order {
		deduped = append(deduped, *latest[key])
	}
	sort.SliceStable(deduped, func(i, j int) bool {
		return deduped[i].Timestamp < deduped[j].Timestamp
	})

	snap.SyncQueue = deduped
	if err := s.write(snap); err != nil {
		s.log.Warn("failed to persist deduplicated queue", zap.Error(err))
	}
	return deduped
}
