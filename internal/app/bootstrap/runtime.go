package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	cacheadapter "github.com/deptrai/longthanhland-sub000/internal/adapters/cache"
	"github.com/deptrai/longthanhland-sub000/internal/adapters/chain"
	contractadapter "github.com/deptrai/longthanhland-sub000/internal/adapters/contract"
	emailadapter "github.com/deptrai/longthanhland-sub000/internal/adapters/email"
	httpadapter "github.com/deptrai/longthanhland-sub000/internal/adapters/http"
	"github.com/deptrai/longthanhland-sub000/internal/adapters/postgres"
	"github.com/deptrai/longthanhland-sub000/internal/adapters/storage"
	"github.com/deptrai/longthanhland-sub000/internal/application"
)

// Runtime owns the wired service and its lifecycle.
type Runtime struct {
	cfg        Config
	logger     *slog.Logger
	httpServer *http.Server
	cleanupFn  func(context.Context)
}

// NewRuntime loads configuration, connects every backing dependency and
// assembles the HTTP surface. It fails fast: a service that cannot reach
// its ledger or cache must not accept webhooks.
func NewRuntime(ctx context.Context, configPath string) (*Runtime, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)
	logger.Info("bootstrapping settlement service",
		"http_port", cfg.HTTPPort,
		"env", cfg.Env,
		"network", cfg.ChainNetwork,
	)

	pool, err := postgres.Connect(ctx, cfg.DatabaseURL, cfg.MaxDBConns)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	sqlDB, err := pool.DB()
	if err != nil {
		return nil, fmt.Errorf("gorm sql db: %w", err)
	}

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	redisClient, err := cacheadapter.Connect(ctx, cfg.RedisURL)
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	if err := redisClient.Ping(ctx).Err(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	var chainReader *chain.EthereumReader
	if cfg.ChainRPCURL != "" {
		chainReader, err = chain.Dial(ctx, cfg.ChainRPCURL, cfg.ChainNetwork)
		if err != nil {
			_ = sqlDB.Close()
			_ = redisClient.Close()
			return nil, fmt.Errorf("dial chain rpc: %w", err)
		}
	} else {
		logger.Warn("USDT_RPC_URL not set, blockchain verification unavailable")
	}

	var objectStore *storage.S3Store
	if cfg.S3Bucket != "" {
		objectStore, err = storage.NewS3Store(ctx, cfg.S3Bucket, cfg.AWSRegion)
		if err != nil {
			_ = sqlDB.Close()
			_ = redisClient.Close()
			return nil, fmt.Errorf("init s3 store: %w", err)
		}
	} else {
		logger.Warn("AWS_S3_BUCKET_NAME not set, contract artifacts cannot be stored")
	}

	emailSender := emailadapter.NewSMTPSender(emailadapter.SMTPConfig{
		Host:     cfg.EmailHost,
		Port:     cfg.EmailPort,
		Username: cfg.EmailUser,
		Password: cfg.EmailPass,
		From:     cfg.EmailFrom,
		Timeout:  cfg.EmailTimeout,
	})
	if !emailSender.Enabled() {
		logger.Warn("email delivery disabled, contracts will be stored without sending")
	}

	repos := postgres.NewRepositories(pool)
	deps := application.Dependencies{
		Config: application.Config{
			Env:             cfg.Env,
			WorkspaceID:     cfg.WorkspaceID,
			ReceivingWallet: cfg.ReceivingWallet,
			TokenAddress:    cfg.TokenAddress,
			Network:         cfg.ChainNetwork,
			VNDPerUSDT:      cfg.VNDPerUSDT,
			ChainRPCTimeout: cfg.ChainRPCTimeout,
		},
		Orders:    repos.Orders,
		TreeCodes: repos.TreeCodes,
		Contracts: repos.Contracts,
		Email:     emailSender,
		Renderer:  contractadapter.NewPDFRenderer(cfg.ServiceID),
		Lock:      cacheadapter.NewRedisSettlementLock(redisClient),
	}
	if chainReader != nil {
		deps.Chain = chainReader
	}
	if objectStore != nil {
		deps.Store = objectStore
	}
	svc := application.NewService(deps)

	ready := func(ctx context.Context) error {
		if err := sqlDB.PingContext(ctx); err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		return nil
	}

	handler := httpadapter.NewHandler(svc, ready)
	router := httpadapter.NewRouter(handler, httpadapter.RouterConfig{
		IPGuard: httpadapter.IPGuardConfig{
			Enabled:    cfg.IPWhitelistEnabled,
			AllowedIPs: cfg.BankingAllowedIPs,
			DevMode:    !cfg.IsProduction(),
		},
		BankingSignature: httpadapter.SignatureGuardConfig{
			Secret:  cfg.BankingSecret,
			Channel: "banking",
		},
		BlockchainSignature: httpadapter.SignatureGuardConfig{
			Secret:  cfg.BlockchainSecret,
			Channel: "blockchain",
		},
		RateLimiter:       cacheadapter.NewRedisRateLimiter(redisClient),
		WebhookRateLimit:  cfg.WebhookRateLimit,
		WebhookRateWindow: cfg.WebhookRateWindow,
	})

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return &Runtime{
		cfg:        cfg,
		logger:     logger,
		httpServer: httpServer,
		cleanupFn: func(ctx context.Context) {
			if chainReader != nil {
				chainReader.Close()
			}
			_ = redisClient.Close()
			_ = sqlDB.Close()
		},
	}, nil
}

// RunAPI serves HTTP until a shutdown signal or server failure, then drains
// in-flight requests and releases connections.
func (r *Runtime) RunAPI(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		r.logger.Info("http server started", "addr", r.httpServer.Addr)
		if err := r.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
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
	r.cleanupFn(shutdownCtx)
	return nil
}
