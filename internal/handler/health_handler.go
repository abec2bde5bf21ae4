package handler

import (
	"log/slog"
	"net/http"

	"github.com/y1ran/backend/internal/repository"
)

// HealthHandler は死活監視用のHTTPハンドラー。
type HealthHandler struct {
	db repository.HealthChecker
}

// NewHealthHandler はHealthHandlerを生成する。
func NewHealthHandler(db repository.HealthChecker) *HealthHandler {
	return &HealthHandler{db: db}
}

type statusMessageResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type dbCheckResponse struct {
	Status string `json:"status"`
	DB     string `json:"db"`
	Now    string `json:"now,omitempty"`
}

// Root はルートへの疎通確認に応答する。
// GET /
func (h *HealthHandler) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statusMessageResponse{Status: "ok", Message: "backend root"})
}

// Health はプロセスの死活状態を返す。DBには問い合わせない。
// GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statusMessageResponse{Status: "ok", Message: "backend alive"})
}

// DBCheck はデータベースに問い合わせて疎通を確認する。
// GET /db-check
func (h *HealthHandler) DBCheck(w http.ResponseWriter, r *http.Request) {
	now, err := h.db.Now(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "database check failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, dbCheckResponse{Status: "error", DB: "failed"})
		return
	}

	writeJSON(w, http.StatusOK, dbCheckResponse{Status: "ok", DB: "connected", Now: now})
}
