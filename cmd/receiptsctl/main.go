package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/receipt-directory/constants"
	"github.com/joseph-ayodele/receipt-directory/internal/common"
	"github.com/joseph-ayodele/receipt-directory/internal/directory"
	"github.com/joseph-ayodele/receipt-directory/internal/export"
	"github.com/joseph-ayodele/receipt-directory/internal/receipts"
	repo "github.com/joseph-ayodele/receipt-directory/internal/repository"
)

type rootOptions struct {
	configPath string
	userID     string
	search     string
	year       string
	category   string
	outDir     string
	verbose    bool
}

// app is everything a subcommand needs once flags are parsed.
type app struct {
	cfg    *common.Config
	store  *repo.Store
	svc    *receipts.Service
	logger *slog.Logger
	userID string
}

func (o *rootOptions) criteria() directory.Criteria {
	c := directory.Criteria{SearchText: o.search, Year: o.year, Category: o.category}
	if c.Category != "" && !strings.EqualFold(c.Category, constants.AllFilter) {
		if cat, ok := constants.Canonicalize(c.Category); ok {
			c.Category = string(cat)
		} else {
			pterm.Warning.Printfln("unknown category %q, known: %s", c.Category, strings.Join(constants.AsStringSlice(), ", "))
		}
	}
	return c
}

func (o *rootOptions) open(ctx context.Context) (*app, error) {
	level := slog.LevelWarn
	if o.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if o.configPath != "" {
		if err := cfg.LoadConfigFile(o.configPath); err != nil {
			return nil, err
		}
	}
	if o.outDir != "" {
		cfg.Export.OutputDir = o.outDir
	}
	if o.userID == "" {
		o.userID = cfg.Store.UserID
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	store, err := repo.OpenStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	routerCfg := export.RouterConfig{
		HTTPClient: &http.Client{Timeout: cfg.Export.FetchTimeout},
		MaxBytes:   cfg.Export.MaxReceiptBytes,
		Supabase:   store.Supabase,
	}
	if cfg.Storage.S3Region != "" {
		s3c, err := export.NewS3Client(ctx, cfg.Storage.S3Region)
		if err != nil {
			store.Close()
			return nil, err
		}
		routerCfg.S3 = s3c
	}
	exporter := export.NewService(
		export.NewDefaultRouter(routerCfg, logger),
		logger,
		export.WithFetchConcurrency(cfg.Export.FetchConcurrency),
		export.WithManifest(cfg.Export.IncludeManifest),
	)

	return &app{
		cfg:    cfg,
		store:  store,
		svc:    receipts.NewService(store.Expenses, exporter, logger),
		logger: logger,
		userID: o.userID,
	}, nil
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "receiptsctl",
		Short:         "Browse expense receipts by year and month and download them",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	f := cmd.PersistentFlags()
	f.StringVar(&opts.configPath, "config", "", "TOML, YAML or JSON config file")
	f.StringVarP(&opts.userID, "user", "u", "", "owner of the expense records (default $RECEIPTS_USER_ID)")
	f.StringVarP(&opts.search, "search", "s", "", "case-insensitive text to match in description or category")
	f.StringVarP(&opts.year, "year", "y", constants.AllFilter, "year filter, or 'all'")
	f.StringVarP(&opts.category, "category", "c", constants.AllFilter, "category filter, or 'all'")
	f.StringVarP(&opts.outDir, "dir", "d", "", "directory downloads are written to (default $EXPORT_DIR)")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")

	cmd.AddCommand(
		newTreeCmd(opts),
		newYearsCmd(opts),
		newDownloadCmd(opts),
		newArchiveCmd(opts),
	)
	return cmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		pterm.Error.Println(err)
		stop()
		os.Exit(exitCode(err))
	}
}

// exitCode is 2 for bad flags or configuration and 1 for everything else.
func exitCode(err error) int {
	if errors.Is(err, common.ErrValidation) || errors.Is(err, common.ErrInvalidInput) {
		return 2
	}
	return 1
}
