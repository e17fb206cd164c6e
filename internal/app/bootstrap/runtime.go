package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	cacheadapter "github.com/viralforge/mesh/services/financial-rails/M47-bundle-access-service/internal/adapters/cache"
	httpadapter "github.com/viralforge/mesh/services/financial-rails/M47-bundle-access-service/internal/adapters/http"
	"github.com/viralforge/mesh/services/financial-rails/M47-bundle-access-service/internal/adapters/payment"
	"github.com/viralforge/mesh/services/financial-rails/M47-bundle-access-service/internal/adapters/postgres"
	"github.com/viralforge/mesh/services/financial-rails/M47-bundle-access-service/internal/adapters/security"
	"github.com/viralforge/mesh/services/financial-rails/M47-bundle-access-service/internal/adapters/storage"
	"github.com/viralforge/mesh/services/financial-rails/M47-bundle-access-service/internal/application"
	"github.com/viralforge/mesh/services/financial-rails/M47-bundle-access-service/internal/domain"
	"github.com/viralforge/mesh/services/financial-rails/M47-bundle-access-service/internal/ports"
)

type Runtime struct {
	cfg        Config
	logger     *slog.Logger
	httpServer *http.Server
	grpcServer *grpc.Server
	grpcLis    net.Listener
	cleanupFn  func(context.Context)
}

func NewRuntime(ctx context.Context, configPath string) (*Runtime, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)
	logger.Info("bootstrapping m47 bundle access service", "http_port", cfg.HTTPPort, "grpc_port", cfg.GRPCPort)

	catalog, err := domain.NewCatalog(cfg.Bundles, cfg.Coupons)
	if err != nil {
		return nil, fmt.Errorf("build catalog: %w", err)
	}

	cleanups := make([]func(), 0, 2)

	// Persistence degrades instead of blocking startup: selling must not stop
	// because a store is down.
	var loyalty ports.LoyaltyRepository
	pool, err := postgres.Connect(ctx, cfg.DatabaseURL, cfg.MaxDBConns)
	if err != nil {
		logger.Warn("postgres unavailable, loyalty discounts disabled", "error", err.Error())
		loyalty = postgres.NewDisabledLoyaltyRepository()
	} else {
		if err := postgres.RunMigrations(ctx, pool); err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		loyalty = postgres.NewLoyaltyRepository(pool)
		if sqlDB, dbErr := pool.DB(); dbErr == nil {
			cleanups = append(cleanups, func() { _ = sqlDB.Close() })
		}
	}

	var entitlements ports.EntitlementStore
	redisClient, err := cacheadapter.Connect(ctx, cfg.RedisURL)
	if err == nil {
		err = redisClient.Ping(ctx).Err()
	}
	if err != nil {
		logger.Warn("redis unavailable, entitlement reuse disabled", "error", err.Error())
		entitlements = cacheadapter.NewDisabledEntitlementStore()
	} else {
		entitlements = cacheadapter.NewRedisEntitlementStore(redisClient)
		cleanups = append(cleanups, func() { _ = redisClient.Close() })
	}

	issuer, err := security.NewCapabilitySigner(cfg.TokenSecret)
	if err != nil {
		if !cfg.AllowEphemeralTokenSecret {
			return nil, fmt.Errorf("init capability signer: %w", err)
		}
		logger.Warn("using ephemeral capability token secret for local/dev runtime")
		issuer, err = security.NewEphemeralCapabilitySigner()
		if err != nil {
			return nil, fmt.Errorf("init ephemeral capability signer: %w", err)
		}
	}

	gateway, err := payment.NewRazorpayGateway(payment.RazorpayConfig{
		KeyID:      cfg.RazorpayKeyID,
		Secret:     cfg.RazorpaySecret,
		HTTPClient: &http.Client{Timeout: cfg.PaymentHTTPTimeout},
	})
	if err != nil {
		return nil, fmt.Errorf("init payment gateway: %w", err)
	}

	var fileStorage ports.FileStorage
	fileStorage, err = storage.NewDriveStorage(storage.DriveConfig{
		KeyFile:     cfg.DriveKeyFile,
		HTTPTimeout: cfg.StorageHTTPTimeout,
	})
	if err != nil {
		logger.Warn("drive credential unavailable, downloads disabled", "error", err.Error())
		fileStorage = storage.NewDisabledFileStorage()
	}

	svc := application.NewService(application.Dependencies{
		Config: application.Config{
			TokenTTL:           cfg.TokenTTL,
			EntitlementTTL:     cfg.EntitlementTTL,
			Currency:           cfg.Currency,
			LoyaltyGrantSecret: cfg.LoyaltyGrantSecret,
		},
		Catalog:      catalog,
		Loyalty:      loyalty,
		Entitlements: entitlements,
		Issuer:       issuer,
		Gateway:      gateway,
		Storage:      fileStorage,
	})

	handler := httpadapter.NewHandler(svc)
	router := httpadapter.NewRouter(handler)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcServer := grpc.NewServer()
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthSrv)
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.GRPCPort))
	if err != nil {
		return nil, fmt.Errorf("listen gRPC: %w", err)
	}

	return &Runtime{
		cfg:        cfg,
		logger:     logger,
		httpServer: httpServer,
		grpcServer: grpcServer,
		grpcLis:    lis,
		cleanupFn: func(context.Context) {
			for _, cleanup := range cleanups {
				cleanup()
			}
		},
	}, nil
}

func (r *Runtime) RunAPI(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 2)
	go func() {
		r.logger.Info("http server started", "addr", r.httpServer.Addr)
		if err := r.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	go func() {
		r.logger.Info("grpc server started", "addr", r.grpcLis.Addr().String())
		if err := r.grpcServer.Serve(r.grpcLis); err != nil {
			errCh <- fmt.Errorf("grpc server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		r.logger.Info("shutdown signal received")
	case err := <-errCh:
		r.logger.Error("server failure", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = r.httpServer.Shutdown(shutdownCtx)
	r.grpcServer.GracefulStop()
	r.cleanupFn(shutdownCtx)
	return nil
}
