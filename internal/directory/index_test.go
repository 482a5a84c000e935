package directory

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/receipt-directory/internal/entity"
)

func TestIndexConservesTotalsAndCounts(t *testing.T) {
	filtered := Filter(fixture(t), AllCriteria())

	var dated []*entity.ExpenseRecord
	inputTotal := decimal.Zero
	for _, r := range filtered {
		if r.HasDate() {
			dated = append(dated, r)
			inputTotal = inputTotal.Add(r.Amount)
		}
	}

	tree := Index(filtered)

	if got := tree.Count(); got != len(dated) {
		t.Errorf("tree count = %d, want %d", got, len(dated))
	}
	if !tree.Total().Equal(inputTotal) {
		t.Errorf("tree total = %s, want %s", tree.Total(), inputTotal)
	}

	seen := map[string]int{}
	for _, y := range tree {
		monthSum := decimal.Zero
		for _, m := range y.Months {
			recordSum := decimal.Zero
			for _, r := range m.Records {
				seen[r.ID]++
				recordSum = recordSum.Add(r.Amount)
			}
			if !m.TotalAmount.Equal(recordSum) {
				t.Errorf("%d/%s total = %s, want %s", y.Year, m.Name, m.TotalAmount, recordSum)
			}
			monthSum = monthSum.Add(m.TotalAmount)
		}
		if !y.TotalAmount.Equal(monthSum) {
			t.Errorf("%d total = %s, want sum of months %s", y.Year, y.TotalAmount, monthSum)
		}
	}
	for id, n := range seen {
		if n != 1 {
			t.Errorf("record %s filed %d times", id, n)
		}
	}
}

func TestIndexSkipsUndatedAndCoercesMissingAmount(t *testing.T) {
	const ref = "s3://receipts/x.png"
	records := []*entity.ExpenseRecord{
		rec(t, "undated", "", "99", "Fuel", "", ref),
		rec(t, "no-amount", "2022-11-01", "", "Permits", "", ref),
	}

	tree := Index(records)

	if _, ok := tree[1]; ok {
		t.Fatalf("undated record produced a year node")
	}
	m, ok := tree.Month(2022, 10)
	if !ok {
		t.Fatalf("missing 2022/November node")
	}
	if m.Name != "November" {
		t.Errorf("month name = %q, want November", m.Name)
	}
	if !m.TotalAmount.IsZero() {
		t.Errorf("total = %s, want 0", m.TotalAmount)
	}
	if tree.Count() != 1 {
		t.Errorf("count = %d, want 1", tree.Count())
	}
}

func TestEndToEndScenarioTree(t *testing.T) {
	const ref = "https://cdn.example.com/receipt"
	records := []*entity.ExpenseRecord{
		rec(t, "r1", "2024-03-05", "120.00", "Fuel", "Shell #4", ref),
		rec(t, "r2", "2024-03-18", "45.50", "Tolls", "", ref),
	}

	filtered := Filter(records, Criteria{SearchText: "", Year: "all", Category: "all"})
	if len(filtered) != 2 {
		t.Fatalf("filtered %d records, want 2", len(filtered))
	}

	tree := Index(filtered)
	if len(tree) != 1 {
		t.Fatalf("years = %d, want 1", len(tree))
	}
	y, ok := tree[2024]
	if !ok {
		t.Fatalf("missing 2024")
	}
	if len(y.Months) != 1 {
		t.Fatalf("months = %d, want 1", len(y.Months))
	}
	m := y.Months[2]
	if m == nil || m.Name != "March" {
		t.Fatalf("month node = %+v, want March", m)
	}
	if want := decimal.RequireFromString("165.50"); !m.TotalAmount.Equal(want) {
		t.Errorf("March total = %s, want %s", m.TotalAmount, want)
	}
	if m.Count() != 2 {
		t.Errorf("March count = %d, want 2", m.Count())
	}
	if !y.TotalAmount.Equal(m.TotalAmount) {
		t.Errorf("year total %s != month total %s", y.TotalAmount, m.TotalAmount)
	}
}

func TestEmptyState(t *testing.T) {
	const ref = "https://cdn.example.com/receipt"
	records := []*entity.ExpenseRecord{
		rec(t, "r1", "2024-03-05", "120.00", "Fuel", "Shell #4", ref),
	}

	tree := Build(records, Criteria{SearchText: "zzzz-no-match", Year: "all", Category: "all"})
	if len(tree) != 0 {
		t.Errorf("tree has %d years, want 0", len(tree))
	}
	if got := tree.SortedYears(); len(got) != 0 {
		t.Errorf("sorted years = %v, want empty", got)
	}
}

func TestDisplayOrder(t *testing.T) {
	tree := Build(fixture(t), AllCriteria())

	var years []int
	for _, y := range tree.SortedYears() {
		years = append(years, y.Year)
	}
	if diff := cmp.Diff([]int{2024, 2023, 2022}, years); diff != "" {
		t.Errorf("year order (-want +got):\n%s", diff)
	}

	var months []string
	for _, m := range tree[2023].SortedMonths() {
		months = append(months, m.Name)
	}
	if diff := cmp.Diff([]string{"December", "July"}, months); diff != "" {
		t.Errorf("month order (-want +got):\n%s", diff)
	}

	march, _ := tree.Month(2024, 2)
	if diff := cmp.Diff([]string{"b", "a"}, ids(march.SortedRecords())); diff != "" {
		t.Errorf("record order (-want +got):\n%s", diff)
	}
}
