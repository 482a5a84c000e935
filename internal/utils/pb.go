package utils

import (
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/receipt-directory/internal/entity"
	"github.com/joseph-ayodele/receipt-directory/internal/export"
)

func recordMap(r *entity.ExpenseRecord) map[string]any {
	date := ""
	if r.HasDate() {
		date = r.Date.Format("2006-01-02")
	}
	return map[string]any{
		"id":          r.ID,
		"date":        date,
		"amount":      r.Amount.StringFixed(2),
		"category":    r.Category,
		"description": r.Description,
		"receipt_url": r.ReceiptFileRef,
	}
}

// ToPBTree renders the folder tree in display order: years and months newest first.
func ToPBTree(tree entity.Tree) (*structpb.Struct, error) {
	years := make([]any, 0, len(tree))
	for _, y := range tree.SortedYears() {
		months := make([]any, 0, len(y.Months))
		for _, m := range y.SortedMonths() {
			records := make([]any, 0, m.Count())
			for _, r := range m.SortedRecords() {
				records = append(records, recordMap(r))
			}
			months = append(months, map[string]any{
				"month_index": m.MonthIndex,
				"name":        m.Name,
				"total":       m.TotalAmount.StringFixed(2),
				"count":       m.Count(),
				"records":     records,
			})
		}
		years = append(years, map[string]any{
			"year":   y.Year,
			"total":  y.TotalAmount.StringFixed(2),
			"count":  y.Count(),
			"months": months,
		})
	}
	return structpb.NewStruct(map[string]any{
		"years": years,
		"count": tree.Count(),
		"total": tree.Total().StringFixed(2),
	})
}

func ToPBProgress(job entity.DownloadJob) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"type":    "progress",
		"job_id":  job.ID.String(),
		"current": job.Current,
		"total":   job.Total,
		"done":    job.Done(),
	})
}

// ToPBArchive carries the finished archive; content is base64 encoded by structpb.
func ToPBArchive(res *export.ArchiveResult, content []byte) (*structpb.Struct, error) {
	entries := make([]any, 0, len(res.Entries))
	for _, e := range res.Entries {
		entries = append(entries, e)
	}
	skipped := make([]any, 0, len(res.Skipped))
	for _, s := range res.Skipped {
		skipped = append(skipped, map[string]any{"record_id": s.RecordID, "error": s.Err.Error()})
	}
	m := map[string]any{
		"type":     "archive",
		"filename": res.Filename,
		"saved":    res.Saved,
		"entries":  entries,
		"skipped":  skipped,
		"size":     res.Size,
	}
	if content != nil {
		m["content"] = content
	}
	return structpb.NewStruct(m)
}

func ToPBReceiptFile(filename string, content []byte) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"filename": filename,
		"content":  content,
		"size":     len(content),
	})
}
