package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/rl1809/plate-catalog/internal/adapter/clock"
	"github.com/rl1809/plate-catalog/internal/adapter/handler"
	"github.com/rl1809/plate-catalog/internal/adapter/messaging"
	"github.com/rl1809/plate-catalog/internal/adapter/storage"
	"github.com/rl1809/plate-catalog/internal/config"
	"github.com/rl1809/plate-catalog/internal/core/service"
	"github.com/rl1809/plate-catalog/internal/observability"
	"github.com/rl1809/plate-catalog/internal/port"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(config.ServiceName, cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTracing(ctx, config.ServiceName, config.ServiceVersion, cfg.OtelEndpoint)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer shutdownTracing(context.Background())

	repo, closeRepo, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeRepo()

	cache, closeCache, err := openCache(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeCache()

	var events port.SaleEventPublisher
	if len(cfg.KafkaBrokers) > 0 {
		publisher := messaging.NewKafkaPublisher(messaging.NewKafkaWriter(cfg.KafkaBrokers, cfg.KafkaSalesTopic))
		defer publisher.Close()
		events = publisher
		logger.Info("publishing sale events", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("topic", cfg.KafkaSalesTopic))
	}

	catalog := service.NewCatalogService(repo, cache, clock.System{}, events, logger)

	var consumer *messaging.IntakeConsumer
	if cfg.AMQPURL != "" {
		conn, ch, err := messaging.Dial(cfg.AMQPURL)
		if err != nil {
			return err
		}
		defer conn.Close()
		consumer = messaging.NewIntakeConsumer(ch, cfg.AMQPIntakeQueue, catalog, logger)
	}

	// gRPC server
	grpcServer := grpc.NewServer()
	handler.RegisterCatalogServer(grpcServer, handler.NewGRPCHandler(catalog, logger))

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	// HTTP server
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), observability.TracingMiddleware(), observability.MetricsMiddleware)
	router.GET("/metrics", observability.MetricsHandler())
	handler.NewHTTPHandler(catalog, logger).Register(router)

	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: router,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("gRPC server listening", zap.String("addr", cfg.GRPCAddr))
		return grpcServer.Serve(lis)
	})

	g.Go(func() error {
		logger.Info("HTTP server listening", zap.String("addr", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if consumer != nil {
		g.Go(func() error {
			return consumer.Run(gctx)
		})
	}

	// Graceful shutdown
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP shutdown failed", zap.Error(err))
		}
		logger.Info("HTTP server stopped")

		grpcServer.GracefulStop()
		logger.Info("gRPC server stopped")
		return nil
	})

	return g.Wait()
}

func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (port.PlateRepository, func(), error) {
	if cfg.StoreDriver == config.StoreMemory {
		logger.Info("using in-memory plate store")
		return storage.NewMemoryAdapter(), func() {}, nil
	}

	dsn := cfg.DatabaseDSN
	if cfg.StoreDriver == config.StoreMySQL {
		// DATETIME columns are scanned into time.Time
		mc, err := mysql.ParseDSN(dsn)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid mysql dsn: %w", err)
		}
		mc.ParseTime = true
		dsn = mc.FormatDSN()
	}

	db, err := sql.Open(cfg.StoreDriver, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s: %w", cfg.StoreDriver, err)
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to ping %s: %w", cfg.StoreDriver, err)
	}

	dialect := storage.Dialect(cfg.StoreDriver)
	if err := storage.EnsureSchema(ctx, db, dialect); err != nil {
		db.Close()
		return nil, nil, err
	}
	logger.Info("connected to database", zap.String("driver", cfg.StoreDriver))

	return storage.NewSQLAdapter(db, dialect), func() { db.Close() }, nil
}

func openCache(ctx context.Context, cfg *config.Config, logger *zap.Logger) (port.CacheStore, func(), error) {
	if cfg.RedisAddr == "" {
		logger.Info("using in-memory result cache")
		return storage.NewMemoryCache(), func() {}, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		PoolSize: 100,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, nil, fmt.Errorf("failed to connect redis: %w", err)
	}
	logger.Info("connected to redis", zap.String("addr", cfg.RedisAddr))

	return storage.NewRedisAdapter(rdb), func() { rdb.Close() }, nil
}
