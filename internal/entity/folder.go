package entity

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// MonthNode groups the records of one calendar month.
type MonthNode struct {
	MonthIndex  int              `json:"month_index"` // 0..11
	Name        string           `json:"name"`
	Records     []*ExpenseRecord `json:"records"`
	TotalAmount decimal.Decimal  `json:"total_amount"`
}

// Count is the number of records filed under the month.
func (m *MonthNode) Count() int {
	return len(m.Records)
}

// SortedRecords returns the month's records newest first, ties broken by ID.
func (m *MonthNode) SortedRecords() []*ExpenseRecord {
	out := make([]*ExpenseRecord, len(m.Records))
	copy(out, m.Records)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// YearNode groups month nodes of one calendar year.
type YearNode struct {
	Year        int                `json:"year"`
	Months      map[int]*MonthNode `json:"months"`
	TotalAmount decimal.Decimal    `json:"total_amount"`
}

// Count is the number of records filed under the year.
func (y *YearNode) Count() int {
	n := 0
	for _, m := range y.Months {
		n += m.Count()
	}
	return n
}

// SortedMonths returns the year's months, most recent first.
func (y *YearNode) SortedMonths() []*MonthNode {
	out := make([]*MonthNode, 0, len(y.Months))
	for _, m := range y.Months {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MonthIndex > out[j].MonthIndex })
	return out
}

// Records flattens the year in display order.
func (y *YearNode) Records() []*ExpenseRecord {
	var out []*ExpenseRecord
	for _, m := range y.SortedMonths() {
		out = append(out, m.SortedRecords()...)
	}
	return out
}

// Tree is the year -> month folder index.
type Tree map[int]*YearNode

// SortedYears returns the year nodes, most recent first.
func (t Tree) SortedYears() []*YearNode {
	out := make([]*YearNode, 0, len(t))
	for _, y := range t {
		out = append(out, y)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Year > out[j].Year })
	return out
}

// Month looks up a month node; monthIndex is 0-based.
func (t Tree) Month(year, monthIndex int) (*MonthNode, bool) {
	y, ok := t[year]
	if !ok {
		return nil, false
	}
	m, ok := y.Months[monthIndex]
	return m, ok
}

func (t Tree) Count() int {
	n := 0
	for _, y := range t {
		n += y.Count()
	}
	return n
}

func (t Tree) Total() decimal.Decimal {
	total := decimal.Zero
	for _, y := range t {
		total = total.Add(y.TotalAmount)
	}
	return total
}

// MonthName is the English long name for a 0-based month index.
func MonthName(monthIndex int) string {
	return time.Month(monthIndex + 1).String()
}
