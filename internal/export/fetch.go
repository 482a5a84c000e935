package export

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/receipt-directory/internal/common"
)

// DefaultMaxReceiptBytes caps a single receipt download.
const DefaultMaxReceiptBytes int64 = 25 << 20

// FetchResult is the payload of one receipt reference.
type FetchResult struct {
	Data        []byte
	ContentType string
}

// Fetcher resolves a receipt reference to its bytes.
type Fetcher interface {
	Fetch(ctx context.Context, ref string) (*FetchResult, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, ref string) (*FetchResult, error)

func (f FetcherFunc) Fetch(ctx context.Context, ref string) (*FetchResult, error) {
	return f(ctx, ref)
}

// HTTPFetcher downloads http(s) references, including public storage URLs.
type HTTPFetcher struct {
	client   *http.Client
	maxBytes int64
	logger   *slog.Logger
}

func NewHTTPFetcher(client *http.Client, maxBytes int64, logger *slog.Logger) *HTTPFetcher {
	if logger == nil {
		logger = slog.Default()
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxReceiptBytes
	}
	return &HTTPFetcher{client: client, maxBytes: maxBytes, logger: logger}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, ref string) (*FetchResult, error) {
	reqID := uuid.New().String()
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		f.logger.Debug("export.http.send_error", "req_id", reqID, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return nil, err
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			f.logger.Warn("export.http.response_body_close_error", "req_id", reqID, "error", err)
		}
	}(resp.Body)

	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("non-2xx status: %d", resp.StatusCode)
	}

	data, err := readCapped(resp.Body, f.maxBytes)
	if err != nil {
		return nil, err
	}

	f.logger.Debug("export.http.response",
		"req_id", reqID,
		"status", resp.StatusCode,
		"bytes", len(data),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return &FetchResult{Data: data, ContentType: resp.Header.Get("Content-Type")}, nil
}

// FileFetcher serves file:// references from local disk.
type FileFetcher struct {
	maxBytes int64
}

func NewFileFetcher(maxBytes int64) *FileFetcher {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxReceiptBytes
	}
	return &FileFetcher{maxBytes: maxBytes}
}

func (f *FileFetcher) Fetch(_ context.Context, ref string) (*FetchResult, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return nil, fmt.Errorf("parse ref: %w", err)
	}
	path := filepath.FromSlash(u.Host + u.Path)
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()

	data, err := readCapped(fh, f.maxBytes)
	if err != nil {
		return nil, err
	}
	return &FetchResult{Data: data, ContentType: contentTypeFromExt(path, data)}, nil
}

// Router dispatches a reference to the fetcher registered for its URL scheme.
type Router struct {
	fetchers map[string]Fetcher
}

func NewRouter() *Router {
	return &Router{fetchers: map[string]Fetcher{}}
}

// Handle registers f for one or more schemes.
func (r *Router) Handle(f Fetcher, schemes ...string) *Router {
	for _, s := range schemes {
		r.fetchers[strings.ToLower(s)] = f
	}
	return r
}

func (r *Router) Fetch(ctx context.Context, ref string) (*FetchResult, error) {
	u, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return nil, common.NewAppError("UNSUPPORTED_REF", "unparseable receipt reference", common.ErrUnsupportedRef)
	}
	f, ok := r.fetchers[strings.ToLower(u.Scheme)]
	if !ok {
		return nil, common.NewAppError("UNSUPPORTED_REF", fmt.Sprintf("no fetcher for scheme %q", u.Scheme), common.ErrUnsupportedRef)
	}
	return f.Fetch(ctx, ref)
}

func readCapped(r io.Reader, maxBytes int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("receipt exceeds %d bytes", maxBytes)
	}
	return data, nil
}

func contentTypeFromExt(path string, data []byte) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "image/png"
	case ".pdf":
		return "application/pdf"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	}
	return http.DetectContentType(data)
}
