package entity

import (
	"github.com/google/uuid"

	"github.com/joseph-ayodele/receipt-directory/constants"
)

// DownloadJob tracks one archive build. It lives only for the duration of the build.
type DownloadJob struct {
	ID              uuid.UUID           `json:"id"`
	TargetRecordIDs []string            `json:"target_record_ids"`
	Current         int                 `json:"current"`
	Total           int                 `json:"total"`
	ArchiveName     string              `json:"archive_name"`
	Status          constants.JobStatus `json:"status"`
}

// NewDownloadJob starts a job over the given records at 0/len(records).
func NewDownloadJob(records []*ExpenseRecord, archiveName string) *DownloadJob {
	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.ID
	}
	return &DownloadJob{
		ID:              uuid.New(),
		TargetRecordIDs: ids,
		Total:           len(records),
		ArchiveName:     archiveName,
		Status:          constants.JobStatusRunning,
	}
}

// Done reports whether every target record has been visited.
func (j *DownloadJob) Done() bool {
	return j.Current >= j.Total
}
