package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/y1ran/backend/internal/auth"
	"github.com/y1ran/backend/internal/identity"
	"github.com/y1ran/backend/internal/model"
	"github.com/y1ran/backend/internal/profile"
)

// --- モック定義 ---

type mockAuthService struct {
	registerFn func(ctx context.Context, email, password string) (*auth.AuthResult, error)
	loginFn    func(ctx context.Context, email, password string) (*auth.AuthResult, error)
	meFn       func(ctx context.Context, userID string) (*model.User, error)
}

func (m *mockAuthService) Register(ctx context.Context, email, password string) (*auth.AuthResult, error) {
	if m.registerFn != nil {
		return m.registerFn(ctx, email, password)
	}
	return nil, errors.New("not implemented")
}

func (m *mockAuthService) Login(ctx context.Context, email, password string) (*auth.AuthResult, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, email, password)
	}
	return nil, errors.New("not implemented")
}

func (m *mockAuthService) Me(ctx context.Context, userID string) (*model.User, error) {
	if m.meFn != nil {
		return m.meFn(ctx, userID)
	}
	return nil, errors.New("not implemented")
}

type mockProfileService struct {
	getFn    func(ctx context.Context, principal *model.Principal) (*model.Profile, error)
	updateFn func(ctx context.Context, principal *model.Principal, in profile.UpdateInput) (*model.Profile, error)
}

func (m *mockProfileService) Get(ctx context.Context, principal *model.Principal) (*model.Profile, error) {
	if m.getFn != nil {
		return m.getFn(ctx, principal)
	}
	return nil, errors.New("not implemented")
}

func (m *mockProfileService) Update(ctx context.Context, principal *model.Principal, in profile.UpdateInput) (*model.Profile, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, principal, in)
	}
	return nil, errors.New("not implemented")
}

type mockIdentityService struct {
	checkLinkFn  func(ctx context.Context, provider, providerUserID string) (*identity.LinkStatus, error)
	createLinkFn func(ctx context.Context, userID, provider, providerUserID string) error
}

func (m *mockIdentityService) CheckLink(ctx context.Context, provider, providerUserID string) (*identity.LinkStatus, error) {
	if m.checkLinkFn != nil {
		return m.checkLinkFn(ctx, provider, providerUserID)
	}
	return nil, errors.New("not implemented")
}

func (m *mockIdentityService) CreateLink(ctx context.Context, userID, provider, providerUserID string) error {
	if m.createLinkFn != nil {
		return m.createLinkFn(ctx, userID, provider, providerUserID)
	}
	return errors.New("not implemented")
}

type mockHealthChecker struct {
	nowFn func(ctx context.Context) (string, error)
}

func (m *mockHealthChecker) Now(ctx context.Context) (string, error) {
	if m.nowFn != nil {
		return m.nowFn(ctx)
	}
	return "2026-01-01T00:00:00Z", nil
}

// mockVerifier は"valid-token"のみを受け付けるTokenVerifier。
type mockVerifier struct {
	principal *model.Principal
	err       error
	calls     int
}

func (m *mockVerifier) Verify(ctx context.Context, token string) (*model.Principal, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if token != "valid-token" {
		return nil, auth.ErrInvalidToken
	}
	return m.principal, nil
}

// --- テストヘルパー ---

var testPrincipal = &model.Principal{ID: "user-123", Email: "alice@example.com", Provider: model.ProviderLocal}

// newTestDeps は全サービスをモックにしたRouterDepsを返す。
func newTestDeps() *RouterDeps {
	return &RouterDeps{
		CORSAllowedOrigins: []string{"*"},
		Verifier:           &mockVerifier{principal: testPrincipal},
		AuthMode:           "local",
		AuthService:        &mockAuthService{},
		ProfileService:     &mockProfileService{},
		IdentityService:    &mockIdentityService{},
		HealthChecker:      &mockHealthChecker{},
	}
}

// doRequest はルーターにリクエストを送り、レスポンスを返す。
// tokenが空でなければBearerトークンを付与する。
func doRequest(t *testing.T, h http.Handler, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

// decodeBody はレスポンスボディをmapにデコードする。
func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v (raw: %s)", err, w.Body.String())
	}
	return body
}

// assertErrorCode はエラーレスポンスのステータスとコードを検証する。
func assertErrorCode(t *testing.T, w *httptest.ResponseRecorder, wantStatus int, wantCode string) {
	t.Helper()
	if w.Code != wantStatus {
		t.Fatalf("status = %d, want %d (body: %s)", w.Code, wantStatus, w.Body.String())
	}
	body := decodeBody(t, w)
	if body["status"] != "error" {
		t.Errorf("status field = %v, want error", body["status"])
	}
	if body["code"] != wantCode {
		t.Errorf("code = %v, want %s", body["code"], wantCode)
	}
}
