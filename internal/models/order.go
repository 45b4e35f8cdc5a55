package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// OrderItem is a single flattened unit inside an order. A cart line with
// quantity 3 becomes three items, each with its own ItemID and ready flag.
type OrderItem struct {
	ItemID    string  `json:"itemId"`
	ProductID string  `json:"id"`
	CartKey   string  `json:"cartKey"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Ready     bool    `json:"ready"`
	IsAutoCup bool    `json:"isAutoCup,omitempty"`
}

// OrderItems is stored as a single jsonb column on the orders table.
type OrderItems []OrderItem

func (i OrderItems) Value() (driver.Value, error) {
	if i == nil {
		return "[]", nil
	}
	b, err := json.Marshal(i)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (i *OrderItems) Scan(value interface{}) error {
	if value == nil {
		*i = nil
		return nil
	}
	var b []byte
	switch v := value.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return errors.New("unsupported type for OrderItems")
	}
	return json.Unmarshal(b, i)
}

type Order struct {
	// ID is assigned by the terminal (unix milliseconds), never by the
	// database, so offline-created orders keep a stable identity.
	ID           int64      `gorm:"primaryKey;autoIncrement:false" json:"id"`
	OrderNumber  *int       `gorm:"column:order_number" json:"order_number"`
	Items        OrderItems `gorm:"type:jsonb;not null" json:"items"`
	Total        string     `gorm:"size:20;not null" json:"total"`
	Timestamp    string     `gorm:"size:40;not null" json:"timestamp"`
	Completed    bool       `gorm:"not null;default:false" json:"completed"`
	IsStaffOrder bool       `gorm:"not null;default:false" json:"is_staff_order"`
	Note         string     `gorm:"size:500" json:"note"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}
