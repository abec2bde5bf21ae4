// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/y1ran/backend/internal/auth"
	"github.com/y1ran/backend/internal/metrics"
	"github.com/y1ran/backend/internal/model"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// principalContextKey はリクエストコンテキストに解決済みの本人情報を格納するキー。
var principalContextKey = contextKey("principal")

// NewIdentityMiddleware はAuthorizationヘッダーのBearerトークンを検証し、
// 解決した本人情報をリクエストコンテキストに注入するミドルウェアを返す。
// modeはメトリクスのラベルにのみ使う。
//
//   - トークンなし・形式不正: 401 MISSING_TOKEN（後続ハンドラーは呼ばない）
//   - 不正・期限切れ: 401 INVALID_TOKEN
//   - 署名鍵未設定: 500 TOKEN_CONFIG_ERROR
//   - IdP障害等: 500 INTERNAL_ERROR
func NewIdentityMiddleware(verifier auth.TokenVerifier, mode string, collector metrics.MetricsCollector) func(next http.Handler) http.Handler {
	collector = metrics.OrNop(collector)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := BearerToken(r)
			if !ok {
				collector.RecordTokenVerification(mode, metrics.ResultMissing)
				WriteAPIError(w, model.NewMissingTokenError())
				return
			}

			principal, err := verifier.Verify(r.Context(), token)
			if err != nil {
				switch {
				case auth.IsInvalidToken(err):
					collector.RecordTokenVerification(mode, metrics.ResultInvalid)
					WriteAPIError(w, model.NewInvalidTokenError())
				case errors.Is(err, auth.ErrSigningKeyMissing):
					collector.RecordTokenVerification(mode, metrics.ResultError)
					slog.ErrorContext(r.Context(), "token signing key is not configured")
					WriteAPIError(w, model.NewTokenConfigError())
				default:
					collector.RecordTokenVerification(mode, metrics.ResultError)
					slog.ErrorContext(r.Context(), "failed to verify token",
						slog.String("mode", mode),
						slog.String("error", err.Error()),
					)
					WriteInternalServerError(w)
				}
				return
			}

			collector.RecordTokenVerification(mode, metrics.ResultSuccess)
			setLoggedUserID(r.Context(), principal.ID)
			next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), principal)))
		})
	}
}

// BearerToken はAuthorizationヘッダーから"Bearer <token>"のトークン部分を取り出す。
// スキーム名の大文字小文字は区別しない。
func BearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}
	return token, true
}

// IdentityFromContext はリクエストコンテキストから本人情報を取得する。
// 認証ミドルウェアを通過したリクエストでのみ有効。
func IdentityFromContext(ctx context.Context) (*model.Principal, bool) {
	p, ok := ctx.Value(principalContextKey).(*model.Principal)
	if !ok || p == nil || p.ID == "" {
		return nil, false
	}
	return p, true
}

// ContextWithPrincipal はコンテキストに本人情報を注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithPrincipal(ctx context.Context, p *model.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, p)
}
