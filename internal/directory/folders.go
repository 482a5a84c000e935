package directory

import "fmt"

// FolderState tracks which year and month folders are expanded in a view.
// Expansion is independent of selection.
type FolderState struct {
	open map[string]struct{}
}

func NewFolderState() *FolderState {
	return &FolderState{open: map[string]struct{}{}}
}

func yearKey(year int) string { return fmt.Sprintf("%04d", year) }

func monthKey(year, monthIndex int) string { return fmt.Sprintf("%04d-%02d", year, monthIndex) }

func (f *FolderState) toggle(key string) bool {
	if _, ok := f.open[key]; ok {
		delete(f.open, key)
		return false
	}
	f.open[key] = struct{}{}
	return true
}

// ToggleYear flips a year folder and returns whether it is now expanded.
func (f *FolderState) ToggleYear(year int) bool {
	return f.toggle(yearKey(year))
}

// ToggleMonth flips a month folder and returns whether it is now expanded.
func (f *FolderState) ToggleMonth(year, monthIndex int) bool {
	return f.toggle(monthKey(year, monthIndex))
}

func (f *FolderState) YearExpanded(year int) bool {
	_, ok := f.open[yearKey(year)]
	return ok
}

func (f *FolderState) MonthExpanded(year, monthIndex int) bool {
	_, ok := f.open[monthKey(year, monthIndex)]
	return ok
}

// CollapseAll closes every folder.
func (f *FolderState) CollapseAll() {
	f.open = map[string]struct{}{}
}
