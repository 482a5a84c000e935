package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/klauspost/compress/zip"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/receipt-directory/constants"
	"github.com/joseph-ayodele/receipt-directory/internal/common"
	"github.com/joseph-ayodele/receipt-directory/internal/entity"
)

type servedFile struct {
	contentType string
	body        []byte
}

func newReceiptServer(t *testing.T, files map[string]servedFile) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f, ok := files[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", f.contentType)
		_, _ = w.Write(f.body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(opts ...Option) *Service {
	return NewService(NewDefaultRouter(RouterConfig{}, quietLogger()), quietLogger(), opts...)
}

func record(id, date, description, ref string) *entity.ExpenseRecord {
	d, _ := time.Parse("2006-01-02", date)
	return &entity.ExpenseRecord{ID: id, Date: d, Description: description, ReceiptFileRef: ref, Amount: decimal.NewFromInt(10)}
}

func zipNames(t *testing.T, data []byte) []string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("read zip: %v", err)
	}
	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	return names
}

type progressLog struct {
	mu   sync.Mutex
	jobs []entity.DownloadJob
}

func (p *progressLog) record(job entity.DownloadJob) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.jobs = append(p.jobs, job)
}

func TestDownloadOneEndToEnd(t *testing.T) {
	srv := newReceiptServer(t, map[string]servedFile{
		"/r1": {"image/png", []byte("png-bytes")},
		"/r2": {"image/jpeg", []byte("jpeg-bytes")},
	})
	svc := newTestService()
	sink := NewMemorySink()

	r2 := record("r2", "2024-03-18", "", srv.URL+"/r2")
	name, err := svc.DownloadOne(context.Background(), r2, sink)
	if err != nil {
		t.Fatalf("DownloadOne: %v", err)
	}
	if name != "2024-03-18-receipt.jpg" {
		t.Errorf("filename = %q, want 2024-03-18-receipt.jpg", name)
	}
	data, ok := sink.File(name)
	if !ok || string(data) != "jpeg-bytes" {
		t.Errorf("saved %q (ok=%v)", data, ok)
	}

	r1 := record("r1", "2024-03-05", "Shell #4", srv.URL+"/r1")
	name, err = svc.DownloadOne(context.Background(), r1, sink)
	if err != nil {
		t.Fatalf("DownloadOne: %v", err)
	}
	if name != "2024-03-05-Shell_4.png" {
		t.Errorf("filename = %q", name)
	}
}

func TestDownloadOneFetchFailureSavesNothing(t *testing.T) {
	srv := newReceiptServer(t, nil)
	svc := newTestService()
	sink := NewMemorySink()

	_, err := svc.DownloadOne(context.Background(), record("x", "2024-01-01", "", srv.URL+"/gone"), sink)
	if !errors.Is(err, common.ErrFetch) {
		t.Fatalf("err = %v, want ErrFetch", err)
	}
	if names := sink.Names(); len(names) != 0 {
		t.Errorf("sink has %v, want nothing", names)
	}

	_, err = svc.DownloadOne(context.Background(), record("y", "2024-01-01", "", ""), sink)
	if !errors.Is(err, common.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound for record without receipt", err)
	}
}

func TestDownloadOneNilRecord(t *testing.T) {
	sink := NewMemorySink()
	name, err := newTestService().DownloadOne(context.Background(), nil, sink)
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	var app *common.AppError
	if !errors.As(err, &app) || app.Code != "NO_RECEIPT" {
		t.Errorf("err = %v, want NO_RECEIPT app error", err)
	}
	if name != "" {
		t.Errorf("filename = %q, want empty", name)
	}
	if names := sink.Names(); len(names) != 0 {
		t.Errorf("sink has %v, want nothing", names)
	}
}

func TestDownloadArchivePartialFailure(t *testing.T) {
	srv := newReceiptServer(t, map[string]servedFile{
		"/a": {"image/png", []byte("a")},
		"/c": {"application/pdf", []byte("c")},
		"/e": {"image/jpeg", []byte("e")},
	})
	records := []*entity.ExpenseRecord{
		record("a", "2024-03-05", "fuel", srv.URL+"/a"),
		record("b", "2024-03-06", "missing", srv.URL+"/b"),
		record("c", "2024-03-07", "insurance", srv.URL+"/c"),
		record("d", "2024-03-08", "bad scheme", "ftp://nowhere/d"),
		record("e", "2024-03-09", "meal", srv.URL+"/e"),
	}

	svc := newTestService()
	sink := NewMemorySink()
	var progress progressLog

	res, err := svc.DownloadArchive(context.Background(), records, "receipts-2024-March", sink, progress.record)
	if err != nil {
		t.Fatalf("DownloadArchive: %v", err)
	}

	if len(progress.jobs) != len(records) {
		t.Fatalf("progress called %d times, want %d", len(progress.jobs), len(records))
	}
	for i, job := range progress.jobs {
		if job.Current != i+1 || job.Total != len(records) {
			t.Errorf("progress[%d] = %d/%d, want %d/%d", i, job.Current, job.Total, i+1, len(records))
		}
	}

	if !res.Saved || res.Filename != "receipts-2024-March.zip" {
		t.Fatalf("result = %+v", res)
	}
	if res.Job.Status != constants.JobStatusCompleted {
		t.Errorf("status = %s", res.Job.Status)
	}

	var skipped []string
	for _, s := range res.Skipped {
		skipped = append(skipped, s.RecordID)
	}
	if diff := cmp.Diff([]string{"b", "d"}, skipped); diff != "" {
		t.Errorf("skipped (-want +got):\n%s", diff)
	}

	data, ok := sink.File("receipts-2024-March.zip")
	if !ok {
		t.Fatalf("archive not saved; have %v", sink.Names())
	}
	want := []string{"2024-03-05-fuel.png", "2024-03-07-insurance.pdf", "2024-03-09-meal.jpg"}
	if diff := cmp.Diff(want, zipNames(t, data)); diff != "" {
		t.Errorf("archive entries (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want, res.Entries); diff != "" {
		t.Errorf("result entries (-want +got):\n%s", diff)
	}
}

func TestDownloadArchiveDisambiguatesCollisions(t *testing.T) {
	srv := newReceiptServer(t, map[string]servedFile{
		"/1": {"image/jpeg", []byte("one")},
		"/2": {"image/jpeg", []byte("two")},
		"/3": {"image/jpeg", []byte("three")},
	})
	records := []*entity.ExpenseRecord{
		record("1", "2024-03-18", "", srv.URL+"/1"),
		record("2", "2024-03-18", "", srv.URL+"/2"),
		record("3", "2024-03-18", "!!!", srv.URL+"/3"),
	}
	sink := NewMemorySink()

	res, err := newTestService().DownloadArchive(context.Background(), records, "dupes", sink, nil)
	if err != nil {
		t.Fatalf("DownloadArchive: %v", err)
	}
	want := []string{"2024-03-18-receipt.jpg", "2024-03-18-receipt-2.jpg", "2024-03-18-receipt-3.jpg"}
	if diff := cmp.Diff(want, res.Entries); diff != "" {
		t.Errorf("entries (-want +got):\n%s", diff)
	}

	data, _ := sink.File("dupes.zip")
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("read zip: %v", err)
	}
	contents := map[string]string{}
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open %s: %v", f.Name, err)
		}
		b, _ := io.ReadAll(rc)
		rc.Close()
		contents[f.Name] = string(b)
	}
	if contents["2024-03-18-receipt-2.jpg"] != "two" {
		t.Errorf("second entry holds %q", contents["2024-03-18-receipt-2.jpg"])
	}
}

func TestDownloadArchiveConcurrentProgressIsMonotonic(t *testing.T) {
	files := map[string]servedFile{}
	for i := 0; i < 24; i++ {
		if i%5 != 0 {
			path := fmt.Sprintf("/r%d", i)
			files[path] = servedFile{"image/png", []byte(path)}
		}
	}
	srv := newReceiptServer(t, files)
	var records []*entity.ExpenseRecord
	for i := 0; i < 24; i++ {
		records = append(records, record(fmt.Sprintf("r%d", i), "2024-02-10", "same", fmt.Sprintf("%s/r%d", srv.URL, i)))
	}

	sequential, err := newTestService().DownloadArchive(context.Background(), records, "seq", NewMemorySink(), nil)
	if err != nil {
		t.Fatalf("sequential: %v", err)
	}

	var progress progressLog
	sink := NewMemorySink()
	parallel, err := newTestService(WithFetchConcurrency(6)).DownloadArchive(context.Background(), records, "par", sink, progress.record)
	if err != nil {
		t.Fatalf("parallel: %v", err)
	}

	if len(progress.jobs) != len(records) {
		t.Fatalf("progress called %d times, want %d", len(progress.jobs), len(records))
	}
	for i, job := range progress.jobs {
		if job.Current != i+1 {
			t.Fatalf("progress[%d].Current = %d, want %d", i, job.Current, i+1)
		}
	}
	if got, want := len(parallel.Entries), 24-5; got != want {
		t.Errorf("entries = %d, want %d", got, want)
	}
	if diff := cmp.Diff(sequential.Entries, parallel.Entries); diff != "" {
		t.Errorf("parallel naming differs from sequential (-seq +par):\n%s", diff)
	}
	data, _ := sink.File("par.zip")
	names := zipNames(t, data)
	sort.Strings(names)
	want := append([]string(nil), sequential.Entries...)
	sort.Strings(want)
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("zip entries (-want +got):\n%s", diff)
	}
}

func TestDownloadArchiveSerializationFailureSavesNothing(t *testing.T) {
	srv := newReceiptServer(t, map[string]servedFile{"/a": {"image/png", []byte("a")}})
	svc := newTestService()
	svc.serialize = func([]archiveEntry) ([]byte, error) {
		return nil, errors.New("disk full")
	}
	sink := NewMemorySink()

	res, err := svc.DownloadArchive(context.Background(), []*entity.ExpenseRecord{record("a", "2024-01-01", "", srv.URL + "/a")}, "broken", sink, nil)
	if !errors.Is(err, common.ErrSerialization) {
		t.Fatalf("err = %v, want ErrSerialization", err)
	}
	var appErr *common.AppError
	if !errors.As(err, &appErr) || appErr.Code != "SERIALIZATION_FAILED" {
		t.Errorf("err = %#v, want SERIALIZATION_FAILED AppError", err)
	}
	if res.Saved || res.Job.Status != constants.JobStatusFailed {
		t.Errorf("result = %+v", res)
	}
	if names := sink.Names(); len(names) != 0 {
		t.Errorf("sink has %v, want nothing", names)
	}
}

func TestDownloadArchiveEmptyInputIsNoop(t *testing.T) {
	called := false
	sink := NewMemorySink()
	res, err := newTestService().DownloadArchive(context.Background(), nil, "empty", sink, func(entity.DownloadJob) { called = true })
	if err != nil {
		t.Fatalf("err = %v", err)
	}
	if res.Saved || res.Job != nil || called {
		t.Errorf("empty input did work: %+v called=%v", res, called)
	}
	if len(sink.Names()) != 0 {
		t.Errorf("sink has %v", sink.Names())
	}
}

func TestDownloadArchiveAllFailedStillSavesEmptyArchive(t *testing.T) {
	srv := newReceiptServer(t, nil)
	sink := NewMemorySink()
	res, err := newTestService().DownloadArchive(context.Background(), []*entity.ExpenseRecord{
		record("a", "2024-01-01", "", srv.URL+"/a"),
	}, "nothing", sink, nil)
	if err != nil {
		t.Fatalf("err = %v", err)
	}
	if !res.Saved || len(res.Entries) != 0 || len(res.Skipped) != 1 {
		t.Errorf("result = %+v", res)
	}
	data, _ := sink.File("nothing.zip")
	if names := zipNames(t, data); len(names) != 0 {
		t.Errorf("entries = %v", names)
	}
}

func TestDownloadArchiveCanceled(t *testing.T) {
	srv := newReceiptServer(t, map[string]servedFile{"/a": {"image/png", []byte("a")}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sink := NewMemorySink()

	_, err := newTestService().DownloadArchive(ctx, []*entity.ExpenseRecord{record("a", "2024-01-01", "", srv.URL + "/a")}, "late", sink, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if len(sink.Names()) != 0 {
		t.Errorf("sink has %v", sink.Names())
	}
}

func TestDownloadArchiveManifest(t *testing.T) {
	srv := newReceiptServer(t, map[string]servedFile{"/a": {"image/png", []byte("a")}})
	sink := NewMemorySink()
	records := []*entity.ExpenseRecord{
		record("a", "2024-01-01", "tolls", srv.URL+"/a"),
		record("b", "2024-01-02", "lost", srv.URL+"/b"),
	}

	res, err := newTestService(WithManifest(true)).DownloadArchive(context.Background(), records, "with-manifest", sink, nil)
	if err != nil {
		t.Fatalf("DownloadArchive: %v", err)
	}
	if len(res.Entries) != 1 {
		t.Errorf("receipt entries = %v", res.Entries)
	}

	data, _ := sink.File("with-manifest.zip")
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("read zip: %v", err)
	}
	var manifest *zip.File
	for _, f := range zr.File {
		if f.Name == ManifestFilename {
			manifest = f
		}
	}
	if manifest == nil {
		t.Fatalf("manifest missing from %v", zipNames(t, data))
	}
	rc, err := manifest.Open()
	if err != nil {
		t.Fatalf("open manifest: %v", err)
	}
	defer rc.Close()

	wb, err := excelize.OpenReader(rc)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	rows, err := wb.GetRows("Manifest")
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want header + 2", len(rows))
	}
	if rows[1][0] != "a" || rows[1][4] != "2024-01-01-tolls.png" {
		t.Errorf("row 1 = %v", rows[1])
	}
	if rows[2][0] != "b" || len(rows[2]) < 6 || rows[2][5] == "" {
		t.Errorf("row 2 = %v, want skip reason", rows[2])
	}
}
