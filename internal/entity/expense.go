package entity

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ExpenseRecord is one expense row that may point at an uploaded receipt.
// A zero Date means the source date was missing or unparseable.
type ExpenseRecord struct {
	ID             string          `json:"id"`
	UserID         string          `json:"user_id"`
	Date           time.Time       `json:"date"`
	Amount         decimal.Decimal `json:"amount"`
	Category       string          `json:"category"`
	Description    string          `json:"description"`
	ReceiptFileRef string          `json:"receipt_url"`
}

// HasReceipt reports whether the record points at a receipt file.
func (r *ExpenseRecord) HasReceipt() bool {
	return r != nil && strings.TrimSpace(r.ReceiptFileRef) != ""
}

// HasDate reports whether the record carries a usable calendar date.
func (r *ExpenseRecord) HasDate() bool {
	return r != nil && !r.Date.IsZero()
}
