package export

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/supabase-community/supabase-go"
)

// splitBucketRef turns "scheme://bucket/some/key" into ("bucket", "some/key").
func splitBucketRef(ref string) (string, string, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return "", "", fmt.Errorf("parse ref: %w", err)
	}
	key := strings.TrimPrefix(u.Path, "/")
	if u.Host == "" || key == "" {
		return "", "", fmt.Errorf("ref %q must be scheme://bucket/key", ref)
	}
	return u.Host, key, nil
}

// SupabaseStorageFetcher downloads supabase://bucket/path references from Supabase Storage.
type SupabaseStorageFetcher struct {
	download func(bucket, path string) ([]byte, error)
	maxBytes int64
	logger   *slog.Logger
}

func NewSupabaseStorageFetcher(client *supabase.Client, maxBytes int64, logger *slog.Logger) *SupabaseStorageFetcher {
	return newSupabaseStorageFetcher(func(bucket, path string) ([]byte, error) {
		return client.Storage.DownloadFile(bucket, path)
	}, maxBytes, logger)
}

func newSupabaseStorageFetcher(download func(bucket, path string) ([]byte, error), maxBytes int64, logger *slog.Logger) *SupabaseStorageFetcher {
	if logger == nil {
		logger = slog.Default()
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxReceiptBytes
	}
	return &SupabaseStorageFetcher{download: download, maxBytes: maxBytes, logger: logger}
}

func (f *SupabaseStorageFetcher) Fetch(ctx context.Context, ref string) (*FetchResult, error) {
	bucket, path, err := splitBucketRef(ref)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := f.download(bucket, path)
	if err != nil {
		return nil, fmt.Errorf("storage download %s/%s: %w", bucket, path, err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, fmt.Errorf("receipt exceeds %d bytes", f.maxBytes)
	}
	f.logger.Debug("export.storage.download", "bucket", bucket, "path", path, "bytes", len(data))
	return &FetchResult{Data: data, ContentType: http.DetectContentType(data)}, nil
}

// S3API is the subset of the S3 client used for receipt downloads.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Fetcher downloads s3://bucket/key references.
type S3Fetcher struct {
	client   S3API
	maxBytes int64
	logger   *slog.Logger
}

func NewS3Fetcher(client S3API, maxBytes int64, logger *slog.Logger) *S3Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxReceiptBytes
	}
	return &S3Fetcher{client: client, maxBytes: maxBytes, logger: logger}
}

func (f *S3Fetcher) Fetch(ctx context.Context, ref string) (*FetchResult, error) {
	bucket, key, err := splitBucketRef(ref)
	if err != nil {
		return nil, err
	}
	out, err := f.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("s3 get %s/%s: %w", bucket, key, err)
	}
	defer out.Body.Close()

	data, err := readCapped(out.Body, f.maxBytes)
	if err != nil {
		return nil, err
	}
	contentType := aws.ToString(out.ContentType)
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	f.logger.Debug("export.s3.download", "bucket", bucket, "key", key, "bytes", len(data))
	return &FetchResult{Data: data, ContentType: contentType}, nil
}

// NewS3Client loads the default AWS credential chain for region.
func NewS3Client(ctx context.Context, region string) (*s3.Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return s3.NewFromConfig(awsCfg), nil
}

// RouterConfig lists the optional backends a default router can reach.
type RouterConfig struct {
	HTTPClient *http.Client
	MaxBytes   int64
	Supabase   *supabase.Client
	S3         S3API
}

// NewDefaultRouter wires http(s) and file references, plus supabase:// and s3:// when their
// clients are configured.
func NewDefaultRouter(cfg RouterConfig, logger *slog.Logger) *Router {
	r := NewRouter().
		Handle(NewHTTPFetcher(cfg.HTTPClient, cfg.MaxBytes, logger), "http", "https").
		Handle(NewFileFetcher(cfg.MaxBytes), "file")
	if cfg.Supabase != nil {
		r.Handle(NewSupabaseStorageFetcher(cfg.Supabase, cfg.MaxBytes, logger), "supabase")
	}
	if cfg.S3 != nil {
		r.Handle(NewS3Fetcher(cfg.S3, cfg.MaxBytes, logger), "s3")
	}
	return r
}
