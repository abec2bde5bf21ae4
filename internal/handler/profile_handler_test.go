package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/y1ran/backend/internal/model"
	"github.com/y1ran/backend/internal/profile"
)

func TestGetProfile_ReturnsProvisionedProfile(t *testing.T) {
	deps := newTestDeps()
	var got *model.Principal
	deps.ProfileService = &mockProfileService{
		getFn: func(ctx context.Context, principal *model.Principal) (*model.Profile, error) {
			got = principal
			return &model.Profile{UserID: principal.ID, Email: principal.Email, Provider: principal.Provider}, nil
		},
	}

	w := doRequest(t, NewRouter(deps), http.MethodGet, "/api/profile", "", "valid-token")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", w.Code, w.Body.String())
	}
	if got == nil || got.ID != testPrincipal.ID {
		t.Errorf("principal = %+v, want %+v", got, testPrincipal)
	}
	body := decodeBody(t, w)
	if body["user_id"] != "user-123" || body["display_name"] != "" || body["avatar_url"] != "" || body["provider"] != "local" {
		t.Errorf("body = %v", body)
	}
}

func TestGetProfile_WithoutToken_Returns401(t *testing.T) {
	w := doRequest(t, NewRouter(newTestDeps()), http.MethodGet, "/api/profile", "", "")
	assertErrorCode(t, w, http.StatusUnauthorized, model.ErrCodeMissingToken)
}

func TestUpdateProfile_PassesOnlyProvidedFields(t *testing.T) {
	deps := newTestDeps()
	var got profile.UpdateInput
	deps.ProfileService = &mockProfileService{
		updateFn: func(ctx context.Context, principal *model.Principal, in profile.UpdateInput) (*model.Profile, error) {
			got = in
			return &model.Profile{UserID: principal.ID, DisplayName: *in.DisplayName}, nil
		},
	}

	w := doRequest(t, NewRouter(deps), http.MethodPut, "/api/profile", `{"display_name":"Alice"}`, "valid-token")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", w.Code, w.Body.String())
	}
	if got.DisplayName == nil || *got.DisplayName != "Alice" {
		t.Errorf("DisplayName = %v, want Alice", got.DisplayName)
	}
	if got.AvatarURL != nil {
		t.Errorf("AvatarURL = %v, want nil for omitted field", *got.AvatarURL)
	}
	if body := decodeBody(t, w); body["display_name"] != "Alice" {
		t.Errorf("body = %v", body)
	}
}

// 余分なフィールド（user_id等）は無視され、呼び出し元のIDのみが使われることを検証
func TestUpdateProfile_IgnoresForeignUserID(t *testing.T) {
	deps := newTestDeps()
	deps.ProfileService = &mockProfileService{
		updateFn: func(ctx context.Context, principal *model.Principal, in profile.UpdateInput) (*model.Profile, error) {
			if principal.ID != testPrincipal.ID {
				t.Errorf("principal.ID = %q, want %q", principal.ID, testPrincipal.ID)
			}
			return &model.Profile{UserID: principal.ID}, nil
		},
	}

	w := doRequest(t, NewRouter(deps), http.MethodPut, "/api/profile", `{"user_id":"someone-else","avatar_url":""}`, "valid-token")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}

func TestUpdateProfile_ValidationError_Returns400(t *testing.T) {
	deps := newTestDeps()
	deps.ProfileService = &mockProfileService{
		updateFn: func(ctx context.Context, principal *model.Principal, in profile.UpdateInput) (*model.Profile, error) {
			return nil, model.NewValidationError("avatar_url must be an http(s) URL")
		},
	}

	w := doRequest(t, NewRouter(deps), http.MethodPut, "/api/profile", `{"avatar_url":"javascript:alert(1)"}`, "valid-token")
	assertErrorCode(t, w, http.StatusBadRequest, model.ErrCodeValidation)
}

func TestUpdateProfile_InvalidJSON_Returns400(t *testing.T) {
	w := doRequest(t, NewRouter(newTestDeps()), http.MethodPut, "/api/profile", `not json`, "valid-token")
	assertErrorCode(t, w, http.StatusBadRequest, model.ErrCodeValidation)
}
