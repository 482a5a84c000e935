package main

import (
	"context"
	"flag"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/joseph-ayodele/receipt-directory/internal/common"
	"github.com/joseph-ayodele/receipt-directory/internal/export"
	"github.com/joseph-ayodele/receipt-directory/internal/receipts"
	repo "github.com/joseph-ayodele/receipt-directory/internal/repository"
	svc "github.com/joseph-ayodele/receipt-directory/internal/server"
)

func main() {
	configPath := flag.String("config", "", "optional TOML, YAML or JSON config file")
	reflect := flag.Bool("reflection", true, "register the gRPC reflection service")
	flag.Parse()

	// structured logger without time/level noise, like the rest of the tools
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey || a.Key == slog.LevelKey {
				return slog.Attr{}
			}
			return a
		},
	}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if *configPath != "" {
		if err := cfg.LoadConfigFile(*configPath); err != nil {
			logger.Error("failed to load config file", "path", *configPath, "error", err)
			os.Exit(2)
		}
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := repo.OpenStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open record store", "backend", cfg.Store.Backend, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	if store.DB != nil {
		if err := repo.HealthCheck(ctx, store.DB, cfg.Database.DialTimeout, logger); err != nil {
			logger.Error("failed to ping database", "error", err)
			os.Exit(1)
		}
	}

	routerCfg := export.RouterConfig{
		HTTPClient: &http.Client{Timeout: cfg.Export.FetchTimeout},
		MaxBytes:   cfg.Export.MaxReceiptBytes,
		Supabase:   store.Supabase,
	}
	if cfg.Storage.S3Region != "" {
		s3c, err := export.NewS3Client(ctx, cfg.Storage.S3Region)
		if err != nil {
			logger.Error("failed to configure s3 client", "region", cfg.Storage.S3Region, "error", err)
			os.Exit(1)
		}
		routerCfg.S3 = s3c
	}

	exporter := export.NewService(
		export.NewDefaultRouter(routerCfg, logger),
		logger,
		export.WithFetchConcurrency(cfg.Export.FetchConcurrency),
		export.WithManifest(cfg.Export.IncludeManifest),
	)
	directorySvc := receipts.NewService(store.Expenses, exporter, logger)

	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		logger.Error("failed to listen on address", "addr", cfg.Server.GRPCAddr, "error", err)
		os.Exit(1)
	}
	grpcServer := grpc.NewServer()
	svc.RegisterDirectoryServer(grpcServer, svc.NewDirectoryService(directorySvc, logger))

	hs := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, hs)
	hs.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	hs.SetServingStatus(svc.DirectoryServiceName, grpc_health_v1.HealthCheckResponse_SERVING)
	if *reflect {
		reflection.Register(grpcServer)
	}

	go func() {
		logger.Info("grpc listening", "addr", cfg.Server.GRPCAddr, "backend", cfg.Store.Backend)
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("grpc serve failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	hs.Shutdown()
	grpcServer.GracefulStop()
	logger.Info("stopped")
}
