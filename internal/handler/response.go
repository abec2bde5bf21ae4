// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/y1ran/backend/internal/middleware"
	"github.com/y1ran/backend/internal/model"
)

// maxRequestBodyBytes はJSONリクエストボディの上限サイズ。
const maxRequestBodyBytes = 1 << 20

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// decodeJSONBody はリクエストボディをdstにデコードする。
// 空ボディはゼロ値のまま受け付け、必須項目の検証はサービス層に任せる。
func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return model.NewValidationError("invalid JSON body")
	}
	return nil
}

// handleServiceError はサービス層から返されたエラーをHTTPレスポンスに変換する。
// APIError以外は詳細をログにのみ残し、汎用の内部エラーを返す。
func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		middleware.WriteAPIError(w, apiErr)
		return
	}

	slog.ErrorContext(r.Context(), "internal server error",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)
	middleware.WriteInternalServerError(w)
}

// requirePrincipal は認証済みの本人情報を取り出す。
// 認証ミドルウェアを経由していない場合は401を書き込みfalseを返す。
func requirePrincipal(w http.ResponseWriter, r *http.Request) (*model.Principal, bool) {
	principal, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		middleware.WriteAPIError(w, model.NewMissingTokenError())
		return nil, false
	}
	return principal, true
}
