package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"svarak-backend/internal/models"
	"svarak-backend/internal/offline"
)

type fakeRemote struct {
	maxNumber    int
	maxNumberErr error
	insertErr    error

	inserted []models.Order
	updates  []map[string]interface{}
	updateID []int64
	deleted  []int64
	settings map[string]string
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{settings: map[string]string{}}
}

func (f *fakeRemote) MaxOrderNumber(ctx context.Context) (int, error) {
	return f.maxNumber, f.maxNumberErr
}

func (f *fakeRemote) InsertOrder(ctx context.Context, order *models.Order) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.inserted = append(f.inserted, *order)
	return nil
}

func (f *fakeRemote) UpdateOrderFields(ctx context.Context, id int64, updates map[string]interface{}) error {
	f.updateID = append(f.updateID, id)
	f.updates = append(f.updates, updates)
	return nil
}

func (f *fakeRemote) DeleteOrder(ctx context.Context, id int64) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeRemote) SetSetting(ctx context.Context, key, value string) error {
	f.settings[key] = value
	return nil
}

func newTestStore(t *testing.T) *offline.Store {
	t.Helper()
	return offline.NewStore(filepath.Join(t.TempDir(), "offline.json"), zap.NewNop())
}

func enqueueCreate(t *testing.T, s *offline.Store, order models.Order, ts int64) {
	t.Helper()
	payload, err := json.Marshal(order)
	require.NoError(t, err)
	require.NoError(t, s.Enqueue(models.QueuedOperation{
		ID:        "create-" + order.Total,
		Type:      models.OpCreateOrder,
		Payload:   payload,
		Timestamp: ts,
	}))
}

func TestSyncAssignsNumberAndClearsStaging(t *testing.T) {
	staging := newTestStore(t)
	remote := newFakeRemote()
	remote.maxNumber = 7

	order := models.Order{ID: 1000, Total: "310", Items: models.OrderItems{{ItemID: "a", ProductID: "svarak"}}}
	require.NoError(t, staging.SaveOfflineOrder(order))
	enqueueCreate(t, staging, order, 1)

	m := NewManager(staging, remote, zap.NewNop())
	m.Sync(context.Background())

	require.Len(t, remote.inserted, 1)
	require.NotNil(t, remote.inserted[0].OrderNumber)
	assert.Equal(t, 8, *remote.inserted[0].OrderNumber)
	assert.Equal(t, "9", remote.settings[models.SettingOrderNumber])

	assert.Empty(t, staging.Queue())
	assert.Empty(t, staging.OfflineOrders())
	assert.Equal(t, 0, m.PendingCount())
}

func TestSyncKeepsPreassignedNumber(t *testing.T) {
	staging := newTestStore(t)
	remote := newFakeRemote()
	remote.maxNumber = 99

	num := 3
	enqueueCreate(t, staging, models.Order{ID: 1, OrderNumber: &num, Total: "40"}, 1)

	m := NewManager(staging, remote, zap.NewNop())
	m.Sync(context.Background())

	require.Len(t, remote.inserted, 1)
	assert.Equal(t, 3, *remote.inserted[0].OrderNumber)
}

func TestSyncFailureBumpsRetryAndKeepsStaging(t *testing.T) {
	staging := newTestStore(t)
	remote := newFakeRemote()
	remote.insertErr = errors.New("remote down again")

	order := models.Order{ID: 1, Total: "60"}
	require.NoError(t, staging.SaveOfflineOrder(order))
	enqueueCreate(t, staging, order, 1)

	m := NewManager(staging, remote, zap.NewNop())
	m.Sync(context.Background())

	q := staging.Queue()
	require.Len(t, q, 1)
	assert.Equal(t, 1, q[0].Retries)
	assert.Len(t, staging.OfflineOrders(), 1, "staged order must survive a failed drain")
}

func TestSyncDropsOperationAtMaxRetries(t *testing.T) {
	staging := newTestStore(t)
	remote := newFakeRemote()

	payload, _ := json.Marshal(models.Order{ID: 1, Total: "60"})
	require.NoError(t, staging.Enqueue(models.QueuedOperation{
		ID: "doomed", Type: models.OpCreateOrder, Payload: payload, Timestamp: 1, Retries: MaxRetries,
	}))

	m := NewManager(staging, remote, zap.NewNop())
	m.Sync(context.Background())

	assert.Empty(t, remote.inserted, "abandoned operation must not be attempted")
	assert.Empty(t, staging.Queue())
}

func TestSyncOneFailureDoesNotBlockOthers(t *testing.T) {
	staging := newTestStore(t)
	remote := newFakeRemote()
	remote.insertErr = errors.New("insert rejected")

	enqueueCreate(t, staging, models.Order{ID: 1, Total: "60"}, 1)
	delPayload, _ := json.Marshal(models.DeletePayload{ID: 42})
	require.NoError(t, staging.Enqueue(models.QueuedOperation{
		ID: "del", Type: models.OpDeleteOrder, Payload: delPayload, Timestamp: 2,
	}))

	m := NewManager(staging, remote, zap.NewNop())
	m.Sync(context.Background())

	assert.Equal(t, []int64{42}, remote.deleted)
	q := staging.Queue()
	require.Len(t, q, 1)
	assert.Equal(t, models.OpCreateOrder, q[0].Type)
}

func TestSyncProcessesTypedOperations(t *testing.T) {
	staging := newTestStore(t)
	remote := newFakeRemote()

	completed := true
	togglePayload, _ := json.Marshal(models.UpdatePayload{ID: 5, Completed: &completed})
	note := "extra skořice"
	notePayload, _ := json.Marshal(models.UpdatePayload{ID: 6, Note: &note})
	require.NoError(t, staging.Enqueue(models.QueuedOperation{ID: "t", Type: models.OpToggleComplete, Payload: togglePayload, Timestamp: 1}))
	require.NoError(t, staging.Enqueue(models.QueuedOperation{ID: "n", Type: models.OpUpdateNote, Payload: notePayload, Timestamp: 2}))

	m := NewManager(staging, remote, zap.NewNop())
	m.Sync(context.Background())

	require.Len(t, remote.updates, 2)
	assert.Equal(t, int64(5), remote.updateID[0])
	assert.Equal(t, map[string]interface{}{"completed": true}, remote.updates[0])
	assert.Equal(t, int64(6), remote.updateID[1])
	assert.Equal(t, map[string]interface{}{"note": "extra skořice"}, remote.updates[1])
	assert.Empty(t, staging.Queue())
}

func TestSyncNormalizesItemsInUpdate(t *testing.T) {
	staging := newTestStore(t)
	remote := newFakeRemote()

	payload, _ := json.Marshal(models.UpdatePayload{
		ID: 9,
		Updates: map[string]interface{}{
			"total": "120",
			"items": []map[string]interface{}{{"itemId": "x", "id": "svarak", "price": 60}},
		},
	})
	require.NoError(t, staging.Enqueue(models.QueuedOperation{ID: "u", Type: models.OpUpdateOrder, Payload: payload, Timestamp: 1}))

	m := NewManager(staging, remote, zap.NewNop())
	m.Sync(context.Background())

	require.Len(t, remote.updates, 1)
	items, ok := remote.updates[0]["items"].(models.OrderItems)
	require.True(t, ok, "items must be re-typed for the jsonb valuer")
	require.Len(t, items, 1)
	assert.Equal(t, "svarak", items[0].ProductID)
}

func TestSyncInvokesCompletionCallback(t *testing.T) {
	staging := newTestStore(t)
	remote := newFakeRemote()
	enqueueCreate(t, staging, models.Order{ID: 1, Total: "60"}, 1)

	m := NewManager(staging, remote, zap.NewNop())
	called := 0
	m.OnSyncComplete(func() { called++ })
	m.Sync(context.Background())

	assert.Equal(t, 1, called)
}

func TestSyncEmptyQueueIsFastNoop(t *testing.T) {
	staging := newTestStore(t)
	remote := newFakeRemote()

	m := NewManager(staging, remote, zap.NewNop())
	called := 0
	m.OnSyncComplete(func() { called++ })
	m.Sync(context.Background())

	assert.Empty(t, remote.inserted)
	assert.Equal(t, 0, called, "no callback without work")
}
