package security

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// タイムアウト設定が反映されることをテストする。
func TestNewOutboundClient_Timeout(t *testing.T) {
	for _, restrict := range []bool{true, false} {
		client := NewOutboundClient(3*time.Second, restrict)
		if client == nil {
			t.Fatalf("NewOutboundClient(restrict=%v) returned nil", restrict)
		}
		if client.Timeout != 3*time.Second {
			t.Errorf("restrict=%v: expected timeout 3s, got %v", restrict, client.Timeout)
		}
	}
}

// 公開ネットワーク限定のクライアントにはsafeurlのTransportが設定されることをテストする。
func TestNewOutboundClient_RestrictedHasCustomTransport(t *testing.T) {
	client := NewOutboundClient(5*time.Second, true)

	if client.Transport == nil {
		t.Fatal("expected custom Transport to be set, got nil")
	}
	if client.Transport == http.DefaultTransport {
		t.Fatal("expected custom Transport, got http.DefaultTransport")
	}
}

// httptestサーバーは127.0.0.1で起動されるため、限定クライアントはブロックし、
// 非限定クライアントは到達できることをテストする。
func TestNewOutboundClient_LoopbackHandling(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	restricted := NewOutboundClient(5*time.Second, true)
	if resp, err := restricted.Get(ts.URL); err == nil {
		resp.Body.Close()
		t.Error("expected restricted client to block loopback request")
	}

	open := NewOutboundClient(5*time.Second, false)
	resp, err := open.Get(ts.URL)
	if err != nil {
		t.Fatalf("unrestricted client failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
}

func TestValidateOutboundURL(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		restrict bool
		wantErr  bool
	}{
		{"public https", "https://project.idp.example.com", true, false},
		{"public http", "http://idp.example.com:8080", true, false},
		{"empty", "", true, true},
		{"ftp scheme", "ftp://idp.example.com", true, true},
		{"no host", "https://", true, true},
		{"private IP restricted", "http://10.0.0.5", true, true},
		{"metadata IP restricted", "http://169.254.169.254", true, true},
		{"ipv6 loopback restricted", "http://[::1]:9999", true, true},
		{"localhost restricted", "http://localhost:54321", true, true},
		{"localhost unrestricted", "http://localhost:54321", false, false},
		{"private IP unrestricted", "http://192.168.1.10", false, false},
		{"bad scheme unrestricted", "file:///etc/passwd", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateOutboundURL(tt.url, tt.restrict)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateOutboundURL(%q, %v) error = %v, wantErr %v", tt.url, tt.restrict, err, tt.wantErr)
			}
		})
	}
}
