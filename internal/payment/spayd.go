package payment

import (
	"fmt"
	"strings"
)

// Config carries the stall's bank details for QR platba.
type Config struct {
	IBAN          string
	Currency      string
	MessagePrefix string
}

// SPAYD builds a Czech QR-payment string (Short Payment Descriptor) for the
// given amount, using the order number as the variable symbol.
func SPAYD(cfg Config, amount float64, orderNumber int, message string) string {
	parts := []string{
		"SPD*1.0",
		"ACC:" + cfg.IBAN,
		fmt.Sprintf("AM:%.2f", amount),
		"CC:" + cfg.Currency,
	}

	if orderNumber > 0 {
		parts = append(parts, fmt.Sprintf("X-VS:%d", orderNumber))
	}

	if message == "" {
		message = fmt.Sprintf("%s #%d", cfg.MessagePrefix, orderNumber)
	}
	parts = append(parts, "MSG:"+sanitize(message))

	return strings.Join(parts, "*")
}

// sanitize strips the SPAYD field separator out of free-text values.
func sanitize(s string) string {
	return strings.ReplaceAll(s, "*", " ")
}
