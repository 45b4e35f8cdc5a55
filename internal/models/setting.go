package models

import "time"

// Setting is a key/value row; the only key in active use is "orderNumber",
// holding the next order number to hand out.
type Setting struct {
	Key       string `gorm:"primaryKey;size:100"`
	Value     string `gorm:"size:255;not null"`
	UpdatedAt time.Time
}

const SettingOrderNumber = "orderNumber"
