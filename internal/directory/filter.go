package directory

import (
	"sort"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/receipt-directory/constants"
	"github.com/joseph-ayodele/receipt-directory/internal/entity"
)

// Criteria narrows the record set. Year and Category accept "all" (or "") as a wildcard.
type Criteria struct {
	SearchText string
	Year       string
	Category   string
}

// AllCriteria matches every record that has a receipt.
func AllCriteria() Criteria {
	return Criteria{Year: constants.AllFilter, Category: constants.AllFilter}
}

func isWildcard(v string) bool {
	v = strings.TrimSpace(v)
	return v == "" || strings.EqualFold(v, constants.AllFilter)
}

// Filter returns the records with a receipt that match every criterion, in input order.
// The input slice is left untouched.
func Filter(records []*entity.ExpenseRecord, c Criteria) []*entity.ExpenseRecord {
	out := make([]*entity.ExpenseRecord, 0, len(records))
	for _, r := range records {
		if !r.HasReceipt() {
			continue
		}
		if MatchesYear(r, c.Year) && MatchesCategory(r, c.Category) && MatchesSearch(r, c.SearchText) {
			out = append(out, r)
		}
	}
	return out
}

// MatchesYear compares the record's calendar year; a non-numeric year matches nothing.
func MatchesYear(r *entity.ExpenseRecord, year string) bool {
	if isWildcard(year) {
		return true
	}
	y, err := strconv.Atoi(strings.TrimSpace(year))
	if err != nil || !r.HasDate() {
		return false
	}
	return r.Date.Year() == y
}

func MatchesCategory(r *entity.ExpenseRecord, category string) bool {
	if isWildcard(category) {
		return true
	}
	return r.Category == category
}

// MatchesSearch is a case-insensitive substring test over description or category.
func MatchesSearch(r *entity.ExpenseRecord, search string) bool {
	if search == "" {
		return true
	}
	needle := strings.ToLower(search)
	return strings.Contains(strings.ToLower(r.Description), needle) ||
		strings.Contains(strings.ToLower(r.Category), needle)
}

// Years lists the distinct calendar years among records with a receipt, newest first.
// It feeds the year picker.
func Years(records []*entity.ExpenseRecord) []int {
	seen := map[int]struct{}{}
	var years []int
	for _, r := range records {
		if !r.HasReceipt() || !r.HasDate() {
			continue
		}
		y := r.Date.Year()
		if _, ok := seen[y]; ok {
			continue
		}
		seen[y] = struct{}{}
		years = append(years, y)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(years)))
	return years
}
