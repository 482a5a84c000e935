package constants

import (
	"strings"
)

type Category string

const (
	Fuel        Category = "Fuel"
	Maintenance Category = "Maintenance"
	Insurance   Category = "Insurance"
	Tolls       Category = "Tolls"
	Office      Category = "Office"
	Permits     Category = "Permits"
	Meals       Category = "Meals"
	Other       Category = "Other"
)

// AllFilter is the year/category filter value that matches everything.
const AllFilter = "all"

var allCategories = []Category{
	Fuel,
	Maintenance,
	Insurance,
	Tolls,
	Office,
	Permits,
	Meals,
	Other,
}

func AsStringSlice() []string {
	result := make([]string, len(allCategories))
	for i, cat := range allCategories {
		result[i] = string(cat)
	}
	return result
}

// Canonicalize maps free-form input (flags, query params) onto a known label.
// It reports false when the input is not recognised.
func Canonicalize(input string) (Category, bool) {
	if input == "" {
		return Other, false
	}

	normalized := strings.ToLower(strings.TrimSpace(input))

	synonyms := map[string]Category{
		"diesel":  Fuel,
		"gas":     Fuel,
		"repair":  Maintenance,
		"repairs": Maintenance,
		"toll":    Tolls,
		"permit":  Permits,
		"food":    Meals,
	}

	if cat, ok := synonyms[normalized]; ok {
		return cat, true
	}

	for _, cat := range allCategories {
		if normalized == strings.ToLower(string(cat)) {
			return cat, true
		}
	}

	return Other, false
}
