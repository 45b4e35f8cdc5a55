package remote

import (
	"context"
	"errors"
	"strconv"

	"gorm.io/gorm"

	"svarak-backend/internal/models"
)

// Client wraps the shared Postgres database behind the narrow order/settings
// surface the rest of the system consumes. It is constructed once in main
// and handed to each component; nothing reaches for a package-level handle.
type Client struct {
	db *gorm.DB
}

func NewClient(db *gorm.DB) *Client {
	return &Client{db: db}
}

// Ping is the connectivity probe: the cheapest possible read against the
// orders table, bounded by the caller's context.
func (c *Client) Ping(ctx context.Context) error {
	var ids []int64
	return c.db.WithContext(ctx).Model(&models.Order{}).Limit(1).Pluck("id", &ids).Error
}

// ListOrders returns every order sorted by id ascending.
func (c *Client) ListOrders(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	err := c.db.WithContext(ctx).Order("id asc").Find(&orders).Error
	return orders, err
}

// MaxOrderNumber returns the highest assigned order number, or 0 when no
// numbered order exists.
func (c *Client) MaxOrderNumber(ctx context.Context) (int, error) {
	var order models.Order
	err := c.db.WithContext(ctx).
		Where("order_number IS NOT NULL").
		Order("order_number desc").
		Limit(1).
		Find(&order).Error
	if err != nil {
		return 0, err
	}
	if order.OrderNumber == nil {
		return 0, nil
	}
	return *order.OrderNumber, nil
}

// InsertOrder creates the order remotely.
func (c *Client) InsertOrder(ctx context.Context, order *models.Order) error {
	return c.db.WithContext(ctx).Create(order).Error
}

// UpdateOrderFields applies a partial update keyed by order id.
func (c *Client) UpdateOrderFields(ctx context.Context, id int64, updates map[string]interface{}) error {
	res := c.db.WithContext(ctx).Model(&models.Order{}).Where("id = ?", id).Updates(updates)
	return res.Error
}

// DeleteOrder removes the order with the given id.
func (c *Client) DeleteOrder(ctx context.Context, id int64) error {
	return c.db.WithContext(ctx).Delete(&models.Order{}, id).Error
}

// DeleteAllOrders removes every order (the bulk purge).
func (c *Client) DeleteAllOrders(ctx context.Context) error {
	return c.db.WithContext(ctx).Where("1 = 1").Delete(&models.Order{}).Error
}

// GetSetting returns the value stored under key, or "" when absent.
func (c *Client) GetSetting(ctx context.Context, key string) (string, error) {
	var setting models.Setting
	err := c.db.WithContext(ctx).Where("key = ?", key).First(&setting).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return setting.Value, nil
}

// SetSetting upserts the value stored under key.
func (c *Client) SetSetting(ctx context.Context, key, value string) error {
	setting := models.Setting{Key: key, Value: value}
	return c.db.WithContext(ctx).Save(&setting).Error
}

// NextOrderNumberSetting reads the persisted "next order number", defaulting
// to 1 when unset or malformed.
func (c *Client) NextOrderNumberSetting(ctx context.Context) (int, error) {
	raw, err := c.GetSetting(ctx, models.SettingOrderNumber)
	if err != nil {
		return 0, err
	}
	if raw == "" {
		return 1, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 1, nil
	}
	return n, nil
}
