package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/y1ran/backend/internal/model"
	"github.com/y1ran/backend/internal/profile"
)

// ProfileServiceInterface はプロフィールハンドラーが必要とするサービスインターフェース。
type ProfileServiceInterface interface {
	Get(ctx context.Context, principal *model.Principal) (*model.Profile, error)
	Update(ctx context.Context, principal *model.Principal, in profile.UpdateInput) (*model.Profile, error)
}

// ProfileHandler はプロフィールのHTTPハンドラー。
type ProfileHandler struct {
	service ProfileServiceInterface
}

// NewProfileHandler はProfileHandlerを生成する。
func NewProfileHandler(service ProfileServiceInterface) *ProfileHandler {
	return &ProfileHandler{service: service}
}

// updateProfileRequest はプロフィール更新リクエストのボディ。
// 省略されたフィールドは変更しない。
type updateProfileRequest struct {
	DisplayName *string `json:"display_name"`
	AvatarURL   *string `json:"avatar_url"`
}

// profileResponse はプロフィールのAPIレスポンス。
type profileResponse struct {
	UserID      string    `json:"user_id"`
	Email       string    `json:"email"`
	Provider    string    `json:"provider"`
	DisplayName string    `json:"display_name"`
	AvatarURL   string    `json:"avatar_url"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toProfileResponse(p *model.Profile) profileResponse {
	return profileResponse{
		UserID:      p.UserID,
		Email:       p.Email,
		Provider:    p.Provider,
		DisplayName: p.DisplayName,
		AvatarURL:   p.AvatarURL,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

// GetProfile は呼び出し元のプロフィールを返す。未作成なら作成する。
// GET /api/profile
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	p, err := h.service.Get(r.Context(), principal)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toProfileResponse(p))
}

// UpdateProfile は呼び出し元のdisplay_nameとavatar_urlを更新する。
// PUT /api/profile
func (h *ProfileHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	var req updateProfileRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}

	p, err := h.service.Update(r.Context(), principal, profile.UpdateInput{
		DisplayName: req.DisplayName,
		AvatarURL:   req.AvatarURL,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toProfileResponse(p))
}
