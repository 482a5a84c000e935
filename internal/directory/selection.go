package directory

import (
	"sort"

	"github.com/joseph-ayodele/receipt-directory/internal/entity"
)

// SelectionSet holds the record IDs picked for a batch download.
// It is owned by a single caller and is not safe for concurrent use.
type SelectionSet struct {
	ids map[string]struct{}
}

func NewSelectionSet() *SelectionSet {
	return &SelectionSet{ids: map[string]struct{}{}}
}

// Toggle flips membership of id.
func (s *SelectionSet) Toggle(id string) {
	if _, ok := s.ids[id]; ok {
		delete(s.ids, id)
		return
	}
	s.ids[id] = struct{}{}
}

// SelectAll adds every record of a folder; other selections are untouched.
func (s *SelectionSet) SelectAll(records []*entity.ExpenseRecord) {
	for _, r := range records {
		s.ids[r.ID] = struct{}{}
	}
}

// DeselectAll removes every record of a folder; other selections are untouched.
func (s *SelectionSet) DeselectAll(records []*entity.ExpenseRecord) {
	for _, r := range records {
		delete(s.ids, r.ID)
	}
}

func (s *SelectionSet) Clear() {
	s.ids = map[string]struct{}{}
}

func (s *SelectionSet) IsSelected(id string) bool {
	_, ok := s.ids[id]
	return ok
}

func (s *SelectionSet) Size() int {
	return len(s.ids)
}

// IDs returns the selected IDs in sorted order.
func (s *SelectionSet) IDs() []string {
	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// AllSelected reports whether every record of a folder is selected.
// An empty folder is never fully selected.
func (s *SelectionSet) AllSelected(records []*entity.ExpenseRecord) bool {
	if len(records) == 0 {
		return false
	}
	for _, r := range records {
		if !s.IsSelected(r.ID) {
			return false
		}
	}
	return true
}

// Visible intersects the selection with the records currently on screen, keeping their order.
// IDs filtered out of view stay selected but are not returned.
func (s *SelectionSet) Visible(records []*entity.ExpenseRecord) []*entity.ExpenseRecord {
	var out []*entity.ExpenseRecord
	for _, r := range records {
		if s.IsSelected(r.ID) {
			out = append(out, r)
		}
	}
	return out
}
