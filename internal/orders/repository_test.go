package orders

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"svarak-backend/internal/cart"
	"svarak-backend/internal/catalog"
	"svarak-backend/internal/models"
	"svarak-backend/internal/offline"
)

type fakeRemote struct {
	listOrders []models.Order
	listErr    error
	listFn     func() ([]models.Order, error)
	maxNumber  int
	insertErr  error

	inserted  []models.Order
	updates   []map[string]interface{}
	updateIDs []int64
	deleted   []int64
	purged    bool
	purgeErr  error
	settings  map[string]string
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{settings: map[string]string{}}
}

func (f *fakeRemote) ListOrders(ctx context.Context) ([]models.Order, error) {
	if f.listFn != nil {
		return f.listFn()
	}
	return f.listOrders, f.listErr
}

func (f *fakeRemote) MaxOrderNumber(ctx context.Context) (int, error) {
	return f.maxNumber, nil
}

func (f *fakeRemote) InsertOrder(ctx context.Context, order *models.Order) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.inserted = append(f.inserted, *order)
	f.listOrders = append(f.listOrders, *order)
	return nil
}

func (f *fakeRemote) UpdateOrderFields(ctx context.Context, id int64, updates map[string]interface{}) error {
	f.updateIDs = append(f.updateIDs, id)
	f.updates = append(f.updates, updates)
	return nil
}

func (f *fakeRemote) DeleteOrder(ctx context.Context, id int64) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeRemote) DeleteAllOrders(ctx context.Context) error {
	if f.purgeErr != nil {
		return f.purgeErr
	}
	f.purged = true
	f.listOrders = nil
	return nil
}

func (f *fakeRemote) SetSetting(ctx context.Context, key, value string) error {
	f.settings[key] = value
	return nil
}

type fakeOnline struct{ online bool }

func (f *fakeOnline) IsOnline() bool { return f.online }

func testLines(t *testing.T) []cart.Line {
	t.Helper()
	c := cart.New()
	p, ok := catalog.Find("svarak")
	require.True(t, ok)
	c.AddProduct(p)
	c.AddProduct(p)
	return c.Lines()
}

func newTestRepo(t *testing.T, remote *fakeRemote, online bool) (*Repository, *offline.Store, *fakeOnline) {
	t.Helper()
	staging := offline.NewStore(filepath.Join(t.TempDir(), "offline.json"), zap.NewNop())
	checker := &fakeOnline{online: online}
	return NewRepository(remote, staging, checker, zap.NewNop()), staging, checker
}

func TestAddOrderOnlineAssignsNumberFromRemoteMax(t *testing.T) {
	remote := newFakeRemote()
	remote.maxNumber = 7
	repo, staging, _ := newTestRepo(t, remote, true)

	order, err := repo.AddOrder(context.Background(), testLines(t), "220", false, "")
	require.NoError(t, err)

	require.NotNil(t, order.OrderNumber)
	assert.Equal(t, 8, *order.OrderNumber)
	assert.Equal(t, "9", remote.settings[models.SettingOrderNumber])
	require.Len(t, remote.inserted, 1)
	assert.Empty(t, staging.Queue(), "no staging while online")

	// Two svařák flatten into two beverage items plus two cup items
	assert.Len(t, order.Items, 4)
}

func TestAddOrderOfflineStagesWithNilNumber(t *testing.T) {
	remote := newFakeRemote()
	repo, staging, _ := newTestRepo(t, remote, false)

	order, err := repo.AddOrder(context.Background(), testLines(t), "220", false, " s sebou ")
	require.NoError(t, err)

	assert.Nil(t, order.OrderNumber)
	assert.Equal(t, "s sebou", order.Note)
	assert.Empty(t, remote.inserted)

	staged := staging.OfflineOrders()
	require.Len(t, staged, 1)
	assert.Equal(t, order.ID, staged[0].ID)

	q := staging.Queue()
	require.Len(t, q, 1)
	assert.Equal(t, models.OpCreateOrder, q[0].Type)

	// Optimistically visible
	orders := repo.Orders()
	require.Len(t, orders, 1)
	assert.Equal(t, order.ID, orders[0].ID)
}

func TestAddOrderFallsBackToStagingWhenInsertFails(t *testing.T) {
	remote := newFakeRemote()
	remote.insertErr = errors.New("connection reset")
	repo, staging, _ := newTestRepo(t, remote, true)

	order, err := repo.AddOrder(context.Background(), testLines(t), "220", false, "")
	require.NoError(t, err)

	assert.Nil(t, order.OrderNumber)
	assert.Len(t, staging.OfflineOrders(), 1)
	assert.Len(t, staging.Queue(), 1)
}

func TestLoadOrdersMergesRemoteAndStaged(t *testing.T) {
	remote := newFakeRemote()
	num := 1
	remote.listOrders = []models.Order{{ID: 10, OrderNumber: &num, Total: "60"}}
	repo, staging, _ := newTestRepo(t, remote, true)
	require.NoError(t, staging.SaveOfflineOrder(models.Order{ID: 20, Total: "40"}))

	repo.LoadOrders(context.Background())

	orders := repo.Orders()
	require.Len(t, orders, 2)
	assert.Equal(t, int64(10), orders[0].ID)
	assert.Equal(t, int64(20), orders[1].ID)
}

func TestLoadOrdersRemoteFailureDegradesToStagedOnly(t *testing.T) {
	remote := newFakeRemote()
	remote.listErr = errors.New("timeout")
	repo, staging, _ := newTestRepo(t, remote, true)
	require.NoError(t, staging.SaveOfflineOrder(models.Order{ID: 20, Total: "40"}))

	repo.LoadOrders(context.Background())

	orders := repo.Orders()
	require.Len(t, orders, 1)
	assert.Equal(t, int64(20), orders[0].ID)
}

func TestSlowReloadCannotOverwriteFresherOne(t *testing.T) {
	stale := []models.Order{{ID: 1, Total: "60"}}
	fresh := []models.Order{{ID: 2, Total: "40"}}

	started := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int64

	remote := newFakeRemote()
	remote.listFn = func() ([]models.Order, error) {
		if calls.Add(1) == 1 {
			close(started)
			<-release
			return stale, nil
		}
		return fresh, nil
	}
	repo, _, _ := newTestRepo(t, remote, true)

	done := make(chan struct{})
	go func() {
		repo.LoadOrders(context.Background())
		close(done)
	}()
	<-started

	// A newer reload finishes while the first is still blocked.
	repo.LoadOrders(context.Background())

	close(release)
	<-done

	orders := repo.Orders()
	require.Len(t, orders, 1)
	assert.Equal(t, int64(2), orders[0].ID, "slow reload must discard its stale result")
}

func TestToggleCompleteOnlineWritesThrough(t *testing.T) {
	remote := newFakeRemote()
	remote.listOrders = []models.Order{{ID: 10, Completed: false}}
	repo, _, _ := newTestRepo(t, remote, true)
	repo.LoadOrders(context.Background())

	require.NoError(t, repo.ToggleComplete(context.Background(), 10))

	require.Len(t, remote.updates, 1)
	assert.Equal(t, map[string]interface{}{"completed": true}, remote.updates[0])
}

func TestToggleCompleteOfflineQueuesAndPatches(t *testing.T) {
	remote := newFakeRemote()
	remote.listOrders = []models.Order{{ID: 10, Completed: false}}
	repo, staging, checker := newTestRepo(t, remote, true)
	repo.LoadOrders(context.Background())
	checker.online = false

	require.NoError(t, repo.ToggleComplete(context.Background(), 10))

	assert.Empty(t, remote.updates)
	q := staging.Queue()
	require.Len(t, q, 1)
	assert.Equal(t, models.OpToggleComplete, q[0].Type)
	assert.True(t, repo.Orders()[0].Completed)
}

func TestToggleCompleteUnknownOrder(t *testing.T) {
	repo, _, _ := newTestRepo(t, newFakeRemote(), true)
	assert.ErrorIs(t, repo.ToggleComplete(context.Background(), 999), ErrOrderNotFound)
}

func TestOfflineEditOfStagedOrderRewritesStagedCopy(t *testing.T) {
	remote := newFakeRemote()
	repo, staging, _ := newTestRepo(t, remote, false)

	order, err := repo.AddOrder(context.Background(), testLines(t), "220", false, "")
	require.NoError(t, err)

	require.NoError(t, repo.UpdateNote(context.Background(), order.ID, "bez cukru"))

	staged := staging.OfflineOrders()
	require.Len(t, staged, 1)
	assert.Equal(t, "bez cukru", staged[0].Note)

	// Second CREATE queued; dedup collapses them into one with the new note
	deduped := staging.DeduplicateQueue()
	require.Len(t, deduped, 1)
	assert.Equal(t, models.OpCreateOrder, deduped[0].Type)
	assert.Contains(t, string(deduped[0].Payload), "bez cukru")
}

func TestDeleteOrderOfflineDropsStagedAndQueuesDelete(t *testing.T) {
	remote := newFakeRemote()
	repo, staging, _ := newTestRepo(t, remote, false)

	order, err := repo.AddOrder(context.Background(), testLines(t), "220", false, "")
	require.NoError(t, err)

	require.NoError(t, repo.DeleteOrder(context.Background(), order.ID))

	assert.Empty(t, staging.OfflineOrders())
	assert.Empty(t, repo.Orders())
	q := staging.Queue()
	types := make([]models.OperationType, 0, len(q))
	for _, op := range q {
		types = append(types, op.Type)
	}
	assert.Contains(t, types, models.OpDeleteOrder)
}

func TestToggleItemReady(t *testing.T) {
	remote := newFakeRemote()
	remote.listOrders = []models.Order{{ID: 10, Items: models.OrderItems{
		{ItemID: "a", ProductID: "svarak"},
		{ItemID: "b", ProductID: "caj"},
	}}}
	repo, _, _ := newTestRepo(t, remote, true)
	repo.LoadOrders(context.Background())

	require.NoError(t, repo.ToggleItemReady(context.Background(), 10, "a"))

	require.Len(t, remote.updates, 1)
	items, ok := remote.updates[0]["items"].(models.OrderItems)
	require.True(t, ok)
	assert.True(t, items[0].Ready)
	assert.False(t, items[1].Ready)
}

func TestMarkAllItemsReady(t *testing.T) {
	remote := newFakeRemote()
	remote.listOrders = []models.Order{{ID: 10, Items: models.OrderItems{
		{ItemID: "a"}, {ItemID: "b"},
	}}}
	repo, _, _ := newTestRepo(t, remote, true)
	repo.LoadOrders(context.Background())

	require.NoError(t, repo.MarkAllItemsReady(context.Background(), 10))

	items := remote.updates[0]["items"].(models.OrderItems)
	assert.True(t, items[0].Ready)
	assert.True(t, items[1].Ready)
}

func TestPendingAndCompletedViews(t *testing.T) {
	remote := newFakeRemote()
	remote.listOrders = []models.Order{
		{ID: 1, Completed: true},
		{ID: 2, Completed: false},
		{ID: 3, Completed: true},
	}
	repo, _, _ := newTestRepo(t, remote, true)
	repo.LoadOrders(context.Background())

	pending := repo.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, int64(2), pending[0].ID)

	completed := repo.Completed()
	require.Len(t, completed, 2)
	assert.Equal(t, int64(3), completed[0].ID, "completed view is most recent first")
	assert.Equal(t, int64(1), completed[1].ID)
}

func TestPurgeAllReturnsStructuredResult(t *testing.T) {
	remote := newFakeRemote()
	remote.listOrders = []models.Order{{ID: 1}}
	repo, _, _ := newTestRepo(t, remote, true)
	repo.LoadOrders(context.Background())

	res := repo.PurgeAll(context.Background())

	assert.True(t, res.Success)
	assert.Empty(t, res.Error)
	assert.True(t, remote.purged)
	assert.Empty(t, repo.Orders())
}

func TestPurgeAllFailureDoesNotPanic(t *testing.T) {
	remote := newFakeRemote()
	remote.purgeErr = errors.New("permission denied")
	repo, _, _ := newTestRepo(t, remote, true)

	res := repo.PurgeAll(context.Background())

	assert.False(t, res.Success)
	assert.Equal(t, "permission denied", res.Error)
}

func TestResetOrderNumber(t *testing.T) {
	remote := newFakeRemote()
	repo, _, _ := newTestRepo(t, remote, true)

	require.NoError(t, repo.ResetOrderNumber(context.Background()))

	assert.Equal(t, "1", remote.settings[models.SettingOrderNumber])
}

func TestNewOrderIDsAreUnique(t *testing.T) {
	repo, _, _ := newTestRepo(t, newFakeRemote(), false)

	seen := map[int64]bool{}
	for i := 0; i < 100; i++ {
		id := repo.newOrderID()
		assert.False(t, seen[id])
		seen[id] = true
	}
}

func TestFlattenSkipsReturnLines(t *testing.T) {
	c := cart.New()
	p, ok := catalog.Find("svarak")
	require.True(t, ok)
	c.AddProduct(p)
	c.AddReturnLine()

	items := flatten(c.Lines())

	require.Len(t, items, 2)
	for _, item := range items {
		assert.NotEqual(t, catalog.ReturnID, item.ProductID)
		assert.NotEmpty(t, item.ItemID)
	}
}
