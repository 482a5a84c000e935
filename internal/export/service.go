package export

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/klauspost/compress/zip"
	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/receipt-directory/constants"
	"github.com/joseph-ayodele/receipt-directory/internal/common"
	"github.com/joseph-ayodele/receipt-directory/internal/entity"
)

// ProgressFunc receives a snapshot of the job after each record is visited.
// Calls are serialized and Current never decreases.
type ProgressFunc func(job entity.DownloadJob)

// SkippedRecord is a record left out of an archive because its fetch failed.
type SkippedRecord struct {
	RecordID string
	Err      error
}

// ArchiveResult summarises a finished archive job.
type ArchiveResult struct {
	Job      *entity.DownloadJob // nil when the input was empty
	Filename string
	Entries  []string // archive entry names in caller order
	Skipped  []SkippedRecord
	Size     int
	Saved    bool
}

// Service turns expense records into saved receipt files and zip archives.
type Service struct {
	fetcher     Fetcher
	concurrency int
	manifest    bool
	serialize   func(entries []archiveEntry) ([]byte, error)
	logger      *slog.Logger
}

type Option func(*Service)

// WithFetchConcurrency bounds how many receipts an archive job fetches at once.
// Values below 2 keep the job strictly sequential.
func WithFetchConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithManifest adds a manifest.xlsx index to every archive.
func WithManifest(on bool) Option {
	return func(s *Service) {
		s.manifest = on
	}
}

func NewService(fetcher Fetcher, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		fetcher:     fetcher,
		concurrency: 1,
		serialize:   zipEntries,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DownloadOne fetches a single receipt and saves it under its derived filename.
// A failed fetch is logged and reported as common.ErrFetch; nothing is saved.
func (s *Service) DownloadOne(ctx context.Context, r *entity.ExpenseRecord, sink Sink) (string, error) {
	start := time.Now()
	if r == nil {
		return "", common.NewAppError("NO_RECEIPT", "record has no receipt", common.ErrNotFound)
	}
	if !r.HasReceipt() {
		return "", common.NewAppError("NO_RECEIPT", fmt.Sprintf("record %s has no receipt", r.ID), common.ErrNotFound)
	}

	res, err := s.fetcher.Fetch(ctx, r.ReceiptFileRef)
	if err != nil {
		s.logger.Warn("export.one.fetch_failed", "record_id", r.ID, "error", err)
		return "", fmt.Errorf("%w: record %s: %w", common.ErrFetch, r.ID, err)
	}

	filename := BuildFilename(r, res.ContentType)
	if err := sink.Save(ctx, filename, res.Data); err != nil {
		s.logger.Error("export.one.save_failed", "record_id", r.ID, "filename", filename, "error", err)
		return "", fmt.Errorf("save %s: %w", filename, err)
	}

	s.logger.Info("export.one.ok",
		"record_id", r.ID,
		"filename", filename,
		"bytes", len(res.Data),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return filename, nil
}

type fetchOutcome struct {
	res *FetchResult
	err error
}

type archiveEntry struct {
	Name     string
	Data     []byte
	Modified time.Time
}

// DownloadArchive fetches every record, packs the successes into one zip and saves it as
// {archiveName}.zip. Per-record failures are logged and skipped; progress still advances.
// If the archive cannot be serialized nothing is saved and common.ErrSerialization is returned.
// Empty input is a no-op.
func (s *Service) DownloadArchive(ctx context.Context, records []*entity.ExpenseRecord, archiveName string, sink Sink, progress ProgressFunc) (*ArchiveResult, error) {
	start := time.Now()
	result := &ArchiveResult{Filename: ArchiveFilename(archiveName)}
	if len(records) == 0 {
		s.logger.Debug("export.archive.empty", "archive", result.Filename, "reason", common.ErrEmptyInput)
		return result, nil
	}
	if progress == nil {
		progress = func(entity.DownloadJob) {}
	}

	job := entity.NewDownloadJob(records, archiveName)
	result.Job = job
	s.logger.Info("export.archive.start", "job_id", job.ID.String(), "archive", result.Filename, "total", job.Total)

	outcomes := make([]fetchOutcome, len(records))
	var mu sync.Mutex
	visit := func(ctx context.Context, i int) {
		r := records[i]
		res, err := s.fetcher.Fetch(ctx, r.ReceiptFileRef)
		outcomes[i] = fetchOutcome{res: res, err: err}
		if err != nil {
			s.logger.Warn("export.archive.fetch_failed", "job_id", job.ID.String(), "record_id", r.ID, "error", err)
		}

		mu.Lock()
		defer mu.Unlock()
		job.Current++
		s.logger.Debug("export.archive.progress", "job_id", job.ID.String(), "current", job.Current, "total", job.Total)
		progress(*job)
	}

	if s.concurrency <= 1 {
		for i := range records {
			if err := ctx.Err(); err != nil {
				break
			}
			visit(ctx, i)
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.concurrency)
		for i := range records {
			g.Go(func() error {
				visit(gctx, i)
				return nil
			})
		}
		_ = g.Wait()
	}

	if err := ctx.Err(); err != nil {
		job.Status = constants.JobStatusFailed
		s.logger.Error("export.archive.canceled", "job_id", job.ID.String(), "current", job.Current, "total", job.Total, "error", err)
		return result, err
	}

	job.Status = constants.JobStatusSaving
	names := newNameSet()
	entries := make([]archiveEntry, 0, len(records)+1)
	manifest := make([]manifestRow, 0, len(records))
	for i, o := range outcomes {
		r := records[i]
		row := manifestRow{RecordID: r.ID, Category: r.Category, Amount: r.Amount.StringFixed(2)}
		if r.HasDate() {
			row.Date = r.Date.Format("2006-01-02")
		}
		if o.err != nil {
			result.Skipped = append(result.Skipped, SkippedRecord{RecordID: r.ID, Err: o.err})
			row.Error = o.err.Error()
			manifest = append(manifest, row)
			continue
		}
		name := names.claim(BuildFilename(r, o.res.ContentType))
		entries = append(entries, archiveEntry{Name: name, Data: o.res.Data, Modified: r.Date})
		result.Entries = append(result.Entries, name)
		row.Filename = name
		manifest = append(manifest, row)
	}

	if s.manifest {
		data, err := buildManifest(manifest)
		if err != nil {
			return result, s.serializationFailed(job, err)
		}
		entries = append(entries, archiveEntry{Name: names.claim(ManifestFilename), Data: data, Modified: time.Now()})
	}

	blob, err := s.serialize(entries)
	if err != nil {
		return result, s.serializationFailed(job, err)
	}

	if err := sink.Save(ctx, result.Filename, blob); err != nil {
		job.Status = constants.JobStatusFailed
		s.logger.Error("export.archive.save_failed", "job_id", job.ID.String(), "archive", result.Filename, "error", err)
		return result, fmt.Errorf("save %s: %w", result.Filename, err)
	}

	job.Status = constants.JobStatusCompleted
	result.Size = len(blob)
	result.Saved = true
	s.logger.Info("export.archive.ok",
		"job_id", job.ID.String(),
		"archive", result.Filename,
		"entries", len(result.Entries),
		"skipped", len(result.Skipped),
		"bytes", result.Size,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return result, nil
}

func (s *Service) serializationFailed(job *entity.DownloadJob, cause error) error {
	job.Status = constants.JobStatusFailed
	s.logger.Error("export.archive.serialize_failed", "job_id", job.ID.String(), "error", cause)
	return common.NewAppError("SERIALIZATION_FAILED", "failed to create zip file", fmt.Errorf("%w: %w", common.ErrSerialization, cause))
}

func zipEntries(entries []archiveEntry) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		hdr := &zip.FileHeader{Name: e.Name, Method: zip.Deflate}
		if !e.Modified.IsZero() {
			hdr.Modified = e.Modified
		}
		w, err := zw.CreateHeader(hdr)
		if err != nil {
			return nil, fmt.Errorf("create entry %s: %w", e.Name, err)
		}
		if _, err := w.Write(e.Data); err != nil {
			return nil, fmt.Errorf("write entry %s: %w", e.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close archive: %w", err)
	}
	return buf.Bytes(), nil
}
