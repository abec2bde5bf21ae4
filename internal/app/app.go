// Package app はコンフィグ読み込みから依存関係のワイヤリング、サブコマンドの実行までを担う。
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/time/rate"

	"github.com/y1ran/backend/internal/auth"
	"github.com/y1ran/backend/internal/config"
	"github.com/y1ran/backend/internal/database"
	"github.com/y1ran/backend/internal/handler"
	"github.com/y1ran/backend/internal/identity"
	"github.com/y1ran/backend/internal/logger"
	"github.com/y1ran/backend/internal/metrics"
	"github.com/y1ran/backend/internal/profile"
	"github.com/y1ran/backend/internal/repository"
	"github.com/y1ran/backend/internal/security"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, slog.LevelInfo)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. 設定されたレベルでログを再初期化する
	logger.SetupDefault(w, logger.ParseLevel(cfg.LogLevel))

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = os.Getenv("PORT")
		}
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("auth_mode", cfg.AuthMode),
		slog.String("config", cfg.String()),
	)

	switch cmd {
	case CommandMigrate:
		opts, err := ParseMigrateArgs(args[1:])
		if err != nil {
			return err
		}
		return runMigrate(cfg, opts)
	default:
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return runServe(ctx, cfg)
	}
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// ctxがキャンセルされるとグレースフルシャットダウンを行う。
func runServe(ctx context.Context, cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL, cfg.DBMaxOpenConns)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. メトリクスの初期化
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// 3. 依存関係のワイヤリング
	deps, err := buildRouterDeps(cfg, db, reg)
	if err != nil {
		return err
	}
	router := handler.NewRouter(deps)

	// 4. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server listen error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down API server...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// buildRouterDeps はリポジトリ・サービス・本人解決器を組み立ててRouterDepsを返す。
// TokenVerifierはAUTH_MODEに応じて起動時に1つだけ選ばれる。
func buildRouterDeps(cfg *config.Config, db *sql.DB, reg *prometheus.Registry) (*handler.RouterDeps, error) {
	collector := metrics.NewCollector(reg)

	// リポジトリの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	identityRepo := repository.NewPostgresIdentityRepo(db)
	profileRepo := repository.NewPostgresProfileRepo(db)

	// ローカル認証
	tokens := auth.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
	authService := auth.NewService(userRepo, auth.NewBcryptHasher(cfg.BcryptCost), tokens, collector)

	verifier, err := newTokenVerifier(cfg, tokens, collector)
	if err != nil {
		return nil, err
	}

	return &handler.RouterDeps{
		Logger:             slog.Default(),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		Metrics:            collector,
		MetricsHandler:     metrics.Handler(reg),

		Verifier: verifier,
		AuthMode: cfg.AuthMode,

		AuthService:     authService,
		ProfileService:  profile.NewService(profileRepo, security.NewProfileSanitizer(), collector),
		IdentityService: identity.NewService(identityRepo, collector),
		HealthChecker:   repository.NewPostgresHealthRepo(db),
	}, nil
}

// newTokenVerifier はAUTH_MODEに対応するTokenVerifierを生成する。
func newTokenVerifier(cfg *config.Config, tokens *auth.TokenService, collector metrics.MetricsCollector) (auth.TokenVerifier, error) {
	switch cfg.AuthMode {
	case config.AuthModeLocal:
		return auth.NewLocalVerifier(tokens), nil
	case config.AuthModeDelegated:
		if err := security.ValidateOutboundURL(cfg.IdPURL, cfg.IdPRestrictPublic); err != nil {
			return nil, fmt.Errorf("invalid IDP_URL: %w", err)
		}
		slog.Info("delegating token verification to identity provider",
			slog.String("idp_host", hostOf(cfg.IdPURL)),
			slog.Bool("restrict_public", cfg.IdPRestrictPublic),
		)
		return auth.NewProviderVerifier(auth.ProviderVerifierConfig{
			BaseURL: cfg.IdPURL,
			APIKey:  cfg.IdPAPIKey,
			Client:  security.NewOutboundClient(cfg.IdPTimeout, cfg.IdPRestrictPublic),
			Limiter: rate.NewLimiter(rate.Limit(cfg.IdPRateLimit), cfg.IdPBurst),
			Metrics: collector,
		}), nil
	default:
		return nil, fmt.Errorf("unsupported auth mode %q", cfg.AuthMode)
	}
}

// runMigrate はデータベースマイグレーションを実行する。
func runMigrate(cfg *config.Config, opts MigrateOptions) error {
	slog.Info("running database migrations",
		slog.String("action", string(opts.Action)),
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	switch opts.Action {
	case MigrateDown:
		if err := database.RollbackMigrations(cfg.DatabaseURL, opts.Steps); err != nil {
			return fmt.Errorf("migration rollback failed: %w", err)
		}
	case MigrateVersion:
		version, dirty, err := database.SchemaVersion(cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to read schema version: %w", err)
		}
		slog.Info("schema version",
			slog.Uint64("version", uint64(version)),
			slog.Bool("dirty", dirty),
		)
		return nil
	default:
		if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLのパスワードをマスクする。
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "***"
	}
	return u.Redacted()
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Host
}
