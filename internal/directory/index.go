package directory

import (
	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/receipt-directory/internal/entity"
)

// Index buckets records into a year -> month tree with running totals.
// Records without a usable date are left out.
func Index(records []*entity.ExpenseRecord) entity.Tree {
	tree := entity.Tree{}
	for _, r := range records {
		if !r.HasDate() {
			continue
		}
		year := r.Date.Year()
		monthIndex := int(r.Date.Month()) - 1

		y, ok := tree[year]
		if !ok {
			y = &entity.YearNode{Year: year, Months: map[int]*entity.MonthNode{}, TotalAmount: decimal.Zero}
			tree[year] = y
		}
		m, ok := y.Months[monthIndex]
		if !ok {
			m = &entity.MonthNode{MonthIndex: monthIndex, Name: entity.MonthName(monthIndex), TotalAmount: decimal.Zero}
			y.Months[monthIndex] = m
		}

		m.Records = append(m.Records, r)
		m.TotalAmount = m.TotalAmount.Add(r.Amount)
		y.TotalAmount = y.TotalAmount.Add(r.Amount)
	}
	return tree
}

// Build is Filter followed by Index.
func Build(records []*entity.ExpenseRecord, c Criteria) entity.Tree {
	return Index(Filter(records, c))
}
