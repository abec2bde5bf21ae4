package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/y1ran/backend/internal/model"
	"golang.org/x/time/rate"
)

func TestLocalVerifier_ResolvesClaims(t *testing.T) {
	tokens := NewTokenService("test-secret", 0)
	token, _ := tokens.Issue(testUser)

	p, err := NewLocalVerifier(tokens).Verify(context.Background(), token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	want := model.Principal{ID: testUser.ID, Email: testUser.Email, Provider: model.ProviderLocal}
	if *p != want {
		t.Errorf("Verify() = %+v, want %+v", *p, want)
	}
}

func TestLocalVerifier_PropagatesErrors(t *testing.T) {
	if _, err := NewLocalVerifier(NewTokenService("test-secret", 0)).Verify(context.Background(), "bad"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("error = %v, want ErrInvalidToken", err)
	}
	if _, err := NewLocalVerifier(NewTokenService("", 0)).Verify(context.Background(), "bad"); !errors.Is(err, ErrSigningKeyMissing) {
		t.Errorf("error = %v, want ErrSigningKeyMissing", err)
	}
}

// newIdPServer はユーザー照会APIを模したテストサーバーを起動する。
func newIdPServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return ts
}

func TestProviderVerifier_Success(t *testing.T) {
	ts := newIdPServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/v1/user" {
			t.Errorf("path = %q, want /auth/v1/user", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer provider-token" {
			t.Errorf("Authorization = %q", got)
		}
		if got := r.Header.Get("apikey"); got != "anon-key" {
			t.Errorf("apikey = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"idp-user-1","email":"bob@example.com","app_metadata":{"provider":"github"}}`))
	})

	v := NewProviderVerifier(ProviderVerifierConfig{BaseURL: ts.URL + "/", APIKey: "anon-key", Client: ts.Client()})
	p, err := v.Verify(context.Background(), "provider-token")
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	want := model.Principal{ID: "idp-user-1", Email: "bob@example.com", Provider: "github"}
	if *p != want {
		t.Errorf("Verify() = %+v, want %+v", *p, want)
	}
}

func TestProviderVerifier_DefaultsProviderLabel(t *testing.T) {
	ts := newIdPServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"idp-user-2","email":"c@example.com"}`))
	})

	p, err := NewProviderVerifier(ProviderVerifierConfig{BaseURL: ts.URL, Client: ts.Client()}).Verify(context.Background(), "t")
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if p.Provider != ProviderExternal {
		t.Errorf("Provider = %q, want %q", p.Provider, ProviderExternal)
	}
}

// IdPが拒否した場合は不正トークン、IdP障害・通信失敗は依存エラーとして区別されることを検証
func TestProviderVerifier_ErrorClassification(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantInvalid bool
	}{
		{"unauthorized", http.StatusUnauthorized, `{"msg":"invalid JWT"}`, true},
		{"forbidden", http.StatusForbidden, `{}`, true},
		{"missing id", http.StatusOK, `{"email":"x@example.com"}`, true},
		{"server error", http.StatusInternalServerError, `oops`, false},
		{"malformed json", http.StatusOK, `{`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newIdPServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			_, err := NewProviderVerifier(ProviderVerifierConfig{BaseURL: ts.URL, Client: ts.Client()}).Verify(context.Background(), "t")
			if err == nil {
				t.Fatal("expected error")
			}
			if IsInvalidToken(err) != tt.wantInvalid {
				t.Errorf("IsInvalidToken(%v) = %v, want %v", err, IsInvalidToken(err), tt.wantInvalid)
			}
		})
	}
}

func TestProviderVerifier_TransportFailure(t *testing.T) {
	ts := newIdPServer(t, func(w http.ResponseWriter, r *http.Request) {})
	url := ts.URL
	ts.Close()

	_, err := NewProviderVerifier(ProviderVerifierConfig{BaseURL: url}).Verify(context.Background(), "t")
	if err == nil {
		t.Fatal("expected transport error")
	}
	if IsInvalidToken(err) {
		t.Error("transport failure must not be reported as invalid token")
	}
}

// レートリミッタがIdPへの照会を抑制し、キャンセル時は待たずに返ることを検証
func TestProviderVerifier_RateLimited(t *testing.T) {
	var calls atomic.Int32
	ts := newIdPServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"id":"u"}`))
	})

	v := NewProviderVerifier(ProviderVerifierConfig{
		BaseURL: ts.URL,
		Client:  ts.Client(),
		Limiter: rate.NewLimiter(rate.Every(time.Hour), 1),
	})

	if _, err := v.Verify(context.Background(), "t"); err != nil {
		t.Fatalf("first Verify() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := v.Verify(ctx, "t")
	if err == nil {
		t.Fatal("expected rate wait error")
	}
	if IsInvalidToken(err) {
		t.Error("rate wait failure must not be reported as invalid token")
	}
	if calls.Load() != 1 {
		t.Errorf("IdP calls = %d, want 1", calls.Load())
	}
}
