package utils

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/receipt-directory/internal/entity"
)

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// ParseDate accepts a DATE or timestamp string and keeps only its calendar day.
// It returns the zero time for anything it cannot read.
func ParseDate(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		}
	}
	return time.Time{}
}

// ParseAmount reads a decimal amount, coercing missing or non-numeric input to zero.
func ParseAmount(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func ToExpenseRecord(row *entity.ExpenseRow) *entity.ExpenseRecord {
	return &entity.ExpenseRecord{
		ID:             strings.TrimSpace(row.ID.String()),
		UserID:         row.UserID,
		Date:           ParseDate(row.Date),
		Amount:         ParseAmount(row.Amount.String()),
		Category:       row.Category,
		Description:    row.Description,
		ReceiptFileRef: strings.TrimSpace(row.ReceiptURL),
	}
}

func ToExpenseRecords(rows []entity.ExpenseRow) []*entity.ExpenseRecord {
	out := make([]*entity.ExpenseRecord, 0, len(rows))
	for i := range rows {
		out = append(out, ToExpenseRecord(&rows[i]))
	}
	return out
}
