package handler

import (
	"context"
	"net/http"

	"github.com/y1ran/backend/internal/identity"
)

// IdentityServiceInterface は外部アカウント連携ハンドラーが必要とするサービスインターフェース。
type IdentityServiceInterface interface {
	CheckLink(ctx context.Context, provider, providerUserID string) (*identity.LinkStatus, error)
	CreateLink(ctx context.Context, userID, provider, providerUserID string) error
}

// IdentityHandler は外部アカウント連携のHTTPハンドラー。
type IdentityHandler struct {
	service IdentityServiceInterface
}

// NewIdentityHandler はIdentityHandlerを生成する。
func NewIdentityHandler(service IdentityServiceInterface) *IdentityHandler {
	return &IdentityHandler{service: service}
}

type linkRequest struct {
	Provider       string `json:"provider"`
	ProviderUserID string `json:"provider_user_id"`
}

// linkStatusResponse は連携状態のAPIレスポンス。未連携時のuser_idはnull。
type linkStatusResponse struct {
	Linked bool    `json:"linked"`
	UserID *string `json:"user_id"`
}

type linkCreatedResponse struct {
	OK bool `json:"ok"`
}

// CheckLink は外部アカウントが連携済みかを返す。認証不要。
// GET /api/auth/oauth-linked?provider=xxx&provider_user_id=yyy
func (h *IdentityHandler) CheckLink(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	status, err := h.service.CheckLink(r.Context(), q.Get("provider"), q.Get("provider_user_id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, linkStatusResponse{
		Linked: status.Linked,
		UserID: status.UserID,
	})
}

// CreateLink は外部アカウントを呼び出し元のユーザーに紐付ける。
// POST /api/auth/oauth-link
func (h *IdentityHandler) CreateLink(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	var req linkRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}

	if err := h.service.CreateLink(r.Context(), principal.ID, req.Provider, req.ProviderUserID); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, linkCreatedResponse{OK: true})
}
