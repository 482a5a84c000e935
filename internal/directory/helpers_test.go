package directory

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/receipt-directory/internal/entity"
)

func rec(t *testing.T, id, date, amount, category, description, ref string) *entity.ExpenseRecord {
	t.Helper()
	r := &entity.ExpenseRecord{
		ID:             id,
		Category:       category,
		Description:    description,
		ReceiptFileRef: ref,
		Amount:         decimal.Zero,
	}
	if date != "" {
		d, err := time.Parse("2006-01-02", date)
		if err != nil {
			t.Fatalf("bad fixture date %q: %v", date, err)
		}
		r.Date = d
	}
	if amount != "" {
		r.Amount = decimal.RequireFromString(amount)
	}
	return r
}

func ids(records []*entity.ExpenseRecord) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.ID)
	}
	return out
}

func fixture(t *testing.T) []*entity.ExpenseRecord {
	t.Helper()
	const ref = "https://cdn.example.com/r.jpg"
	return []*entity.ExpenseRecord{
		rec(t, "a", "2024-03-05", "120.00", "Fuel", "Shell #4", ref),
		rec(t, "b", "2024-03-18", "45.50", "Tolls", "", ref),
		rec(t, "c", "2023-12-30", "300", "Maintenance", "Tire rotation", ref),
		rec(t, "d", "2024-01-02", "80", "Fuel", "Pilot diesel", ""),
		rec(t, "e", "2023-07-14", "12.25", "Meals", "Lunch at truck stop", ref),
		rec(t, "f", "", "10", "Office", "Printer paper", ref),
		rec(t, "g", "2022-11-01", "", "Permits", "IFTA decal", ref),
	}
}
