package utils

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/receipt-directory/internal/entity"
	"github.com/joseph-ayodele/receipt-directory/internal/export"
)

func buildTree() entity.Tree {
	mar := &entity.MonthNode{MonthIndex: 2, Name: "March", TotalAmount: decimal.RequireFromString("165.5")}
	mar.Records = []*entity.ExpenseRecord{
		{ID: "a", Date: time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), Amount: decimal.RequireFromString("120"), ReceiptFileRef: "r"},
		{ID: "b", Date: time.Date(2024, 3, 18, 0, 0, 0, 0, time.UTC), Amount: decimal.RequireFromString("45.5"), ReceiptFileRef: "r"},
	}
	jan := &entity.MonthNode{MonthIndex: 0, Name: "January", TotalAmount: decimal.RequireFromString("80")}
	jan.Records = []*entity.ExpenseRecord{
		{ID: "d", Date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Amount: decimal.RequireFromString("80"), ReceiptFileRef: "r"},
	}
	return entity.Tree{2024: {
		Year:        2024,
		TotalAmount: decimal.RequireFromString("245.5"),
		Months:      map[int]*entity.MonthNode{0: jan, 2: mar},
	}}
}

func TestToPBTree(t *testing.T) {
	out, err := ToPBTree(buildTree())
	if err != nil {
		t.Fatalf("ToPBTree: %v", err)
	}
	m := out.AsMap()
	if m["total"] != "245.50" || m["count"] != float64(3) {
		t.Errorf("root = %v/%v", m["total"], m["count"])
	}
	year := m["years"].([]any)[0].(map[string]any)
	var months []string
	for _, mo := range year["months"].([]any) {
		months = append(months, mo.(map[string]any)["name"].(string))
	}
	if diff := cmp.Diff([]string{"March", "January"}, months); diff != "" {
		t.Errorf("months (-want +got):\n%s", diff)
	}
	march := year["months"].([]any)[0].(map[string]any)
	var ids []string
	for _, r := range march["records"].([]any) {
		ids = append(ids, r.(map[string]any)["id"].(string))
	}
	if diff := cmp.Diff([]string{"b", "a"}, ids); diff != "" {
		t.Errorf("records (-want +got):\n%s", diff)
	}
	if march["total"] != "165.50" {
		t.Errorf("march total = %v", march["total"])
	}
}

func TestToPBArchive(t *testing.T) {
	res := &export.ArchiveResult{
		Filename: "receipts-2024.zip",
		Entries:  []string{"2024-03-05-Shell_4.jpg"},
		Skipped:  []export.SkippedRecord{{RecordID: "c", Err: errors.New("status 404")}},
		Size:     3,
		Saved:    true,
	}
	out, err := ToPBArchive(res, []byte("zip"))
	if err != nil {
		t.Fatalf("ToPBArchive: %v", err)
	}
	m := out.AsMap()
	want := map[string]any{
		"type":     "archive",
		"filename": "receipts-2024.zip",
		"saved":    true,
		"entries":  []any{"2024-03-05-Shell_4.jpg"},
		"skipped":  []any{map[string]any{"record_id": "c", "error": "status 404"}},
		"size":     float64(3),
		"content":  "emlw",
	}
	if diff := cmp.Diff(want, m); diff != "" {
		t.Errorf("archive (-want +got):\n%s", diff)
	}
}
