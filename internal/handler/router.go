package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/y1ran/backend/internal/auth"
	"github.com/y1ran/backend/internal/metrics"
	"github.com/y1ran/backend/internal/middleware"
	"github.com/y1ran/backend/internal/repository"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger             *slog.Logger
	CORSAllowedOrigins []string
	Metrics            metrics.MetricsCollector
	MetricsHandler     http.Handler // nilなら/metricsを公開しない

	// 本人解決
	Verifier auth.TokenVerifier
	AuthMode string

	// サービス
	AuthService     AuthServiceInterface
	ProfileService  ProfileServiceInterface
	IdentityService IdentityServiceInterface
	HealthChecker   repository.HealthChecker
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → RequestID → SecurityHeaders → CORS → Logging → Metrics → (Identity)
//
// Identityミドルウェアはベアラートークンが必要なルートのグループにのみ適用する。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware(deps.Metrics))
	r.Use(chimw.RequestID)
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigins))
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewMetricsMiddleware(deps.Metrics))

	authHandler := NewAuthHandler(deps.AuthService)
	profileHandler := NewProfileHandler(deps.ProfileService)
	identityHandler := NewIdentityHandler(deps.IdentityService)
	healthHandler := NewHealthHandler(deps.HealthChecker)

	// --- 認証不要のルート ---
	r.Get("/", healthHandler.Root)
	r.Get("/health", healthHandler.Health)
	r.Get("/db-check", healthHandler.DBCheck)
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
	})

	r.Get("/api/auth/oauth-linked", identityHandler.CheckLink)

	// --- ベアラートークンが必要なルート ---
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewIdentityMiddleware(deps.Verifier, deps.AuthMode, deps.Metrics))

		r.Get("/me", authHandler.Me)

		r.Route("/api/profile", func(r chi.Router) {
			r.Get("/", profileHandler.GetProfile)
			r.Put("/", profileHandler.UpdateProfile)
		})

		r.Post("/api/auth/oauth-link", identityHandler.CreateLink)
	})

	return r
}
