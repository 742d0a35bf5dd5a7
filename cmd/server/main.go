package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/rl1809/brick-inventory/internal/adapter/handler"
	"github.com/rl1809/brick-inventory/internal/adapter/storage"
	"github.com/rl1809/brick-inventory/internal/config"
	"github.com/rl1809/brick-inventory/internal/core/domain"
	"github.com/rl1809/brick-inventory/internal/core/service"
	"github.com/rl1809/brick-inventory/internal/port"
)

const healthInterval = 10 * time.Second

type options struct {
	configPath string
	seedPath   string
}

// catalogStore is what the server needs from whichever store backs the catalog.
type catalogStore interface {
	port.CatalogRepository
	port.HoldingsRepository
	port.ViewRepository
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:           "bricks-server",
		Short:         "Serve inventory completion and valuation queries",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.configPath, "config", "", "path to a YAML config file")
	cmd.Flags().StringVar(&opts.seedPath, "seed", "", "serve catalog and holdings from a JSON fixture instead of MySQL")
	return cmd
}

func run(ctx context.Context, opts *options) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer logger.Sync()

	pingers := map[string]handler.Pinger{}

	// Catalog and holdings
	var store catalogStore
	if opts.seedPath != "" {
		mem, err := loadSeed(opts.seedPath)
		if err != nil {
			return err
		}
		store = mem
		logger.Info("serving catalog from fixture", zap.String("path", opts.seedPath))
	} else {
		db, err := sql.Open("mysql", cfg.MySQL.DSN)
		if err != nil {
			return fmt.Errorf("open mysql: %w", err)
		}
		defer db.Close()
		db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)

		if err := db.PingContext(ctx); err != nil {
			return fmt.Errorf("ping mysql: %w", err)
		}
		logger.Info("connected to mysql")

		mysqlAdapter := storage.NewMySQLAdapter(db)
		if err := mysqlAdapter.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
		store = mysqlAdapter
		pingers["mysql"] = mysqlAdapter.Ping
	}

	// Initialize Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	logger.Info("connected to redis", zap.String("addr", cfg.Redis.Addr))
	redisAdapter := storage.NewRedisAdapter(rdb)
	pingers["redis"] = redisAdapter.Ping

	colors, err := store.ListColors(ctx)
	if err != nil {
		return fmt.Errorf("load colors: %w", err)
	}
	colorIndex := domain.NewColorIndex(colors)
	logger.Info("loaded colors", zap.Int("count", colorIndex.Len()))

	inventoryService := service.NewInventoryService(store, store, logger.Named("engine"), service.Options{
		FetchConcurrency: cfg.Engine.FetchConcurrency,
		FullScanLimit:    cfg.Engine.FullScanLimit,
	})
	viewService := service.NewViewService(redisAdapter, store, logger.Named("views"), cfg.Views.QueueSize, cfg.Views.DedupeTTL)

	// Start worker pool
	var wg sync.WaitGroup
	for i := 0; i < cfg.Views.Workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			viewService.ProcessViews(id, store)
		}(i)
	}
	logger.Info("started view workers", zap.Int("count", cfg.Views.Workers))

	// gRPC health
	grpcServer := grpc.NewServer()
	grpcHealth := handler.NewGRPCHealth(pingers, logger.Named("health"))
	grpcHealth.Register(grpcServer)

	healthCtx, stopHealth := context.WithCancel(ctx)
	defer stopHealth()
	go grpcHealth.Watch(healthCtx, healthInterval)

	lis, err := net.Listen("tcp", cfg.GRPC.Addr)
	if err != nil {
		return fmt.Errorf("listen grpc: %w", err)
	}
	go func() {
		logger.Info("gRPC server listening", zap.String("addr", cfg.GRPC.Addr))
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("gRPC server error", zap.Error(err))
		}
	}()

	// HTTP
	httpHandler := handler.NewHTTPHandler(inventoryService, viewService, colorIndex, logger.Named("http"))
	httpServer := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           httpHandler.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("HTTP server listening", zap.String("addr", cfg.HTTP.Addr))
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown incomplete", zap.Error(err))
	}
	logger.Info("HTTP server stopped")

	stopHealth()
	grpcHealth.Shutdown()
	grpcServer.GracefulStop()
	logger.Info("gRPC server stopped")

	// Close view queue and wait for workers
	viewService.Close()
	wg.Wait()
	logger.Info("view workers stopped")
	return nil
}

func loadSeed(path string) (*storage.MemoryAdapter, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open seed: %w", err)
	}
	defer f.Close()

	mem, err := storage.LoadMemoryAdapter(f)
	if err != nil {
		return nil, fmt.Errorf("load seed %s: %w", path, err)
	}
	return mem, nil
}
