// Package security はIdP呼び出し用の安全なHTTPクライアントと、
// プロフィール入力の無害化・検証を提供する。
package security

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/doyensec/safeurl"
)

// allowedSchemes は外部呼び出しとアバターURLで許可するスキーム。
var allowedSchemes = []string{"http", "https"}

// blockedNetworks は公開ネットワーク限定時に拒否するアドレス範囲。
var blockedNetworks []net.IPNet

func init() {
	cidrs := []string{
		"10.0.0.0/8",
		"172.16.0.0/12",
		"192.168.0.0/16",
		"127.0.0.0/8",
		// クラウドメタデータIP (169.254.169.254) を含む
		"169.254.0.0/16",
		"0.0.0.0/8",
		"::1/128",
		"fe80::/10",
		"fc00::/7",
	}
	for _, cidr := range cidrs {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			panic(fmt.Sprintf("invalid CIDR in blockedNetworks: %s: %v", cidr, err))
		}
		blockedNetworks = append(blockedNetworks, *network)
	}
}

// NewOutboundClient はIdPのトークン照会に使うHTTPクライアントを生成する。
// restrictPublicがtrueの場合はsafeurlでラップし、DNS解決後のアドレスも含めて
// プライベート・ループバック・リンクローカル宛ての接続を拒否する。
// falseの場合は同一ネットワーク内のIdP（開発用のローカルスタック等）向けに
// タイムアウトのみを設定した通常のクライアントを返す。
func NewOutboundClient(timeout time.Duration, restrictPublic bool) *http.Client {
	if !restrictPublic {
		return &http.Client{Timeout: timeout}
	}

	config := safeurl.GetConfigBuilder().
		SetTimeout(timeout).
		SetAllowedSchemes(allowedSchemes...).
		SetAllowedPorts(80, 443).
		Build()

	return safeurl.Client(config).Client
}

// ValidateOutboundURL はIdPのベースURLを起動時に静的検証する。
// restrictPublicがtrueの場合はIPリテラルとlocalhostも拒否する。
func ValidateOutboundURL(rawURL string, restrictPublic bool) error {
	if rawURL == "" {
		return fmt.Errorf("empty URL")
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	if !isAllowedScheme(parsed.Scheme) {
		return fmt.Errorf("disallowed scheme: %q (allowed: %v)", parsed.Scheme, allowedSchemes)
	}

	host := parsed.Hostname()
	if host == "" {
		return fmt.Errorf("empty host in URL")
	}
	if !restrictPublic {
		return nil
	}

	if ip := net.ParseIP(host); ip != nil {
		if isBlockedIP(ip) {
			return fmt.Errorf("blocked IP address: %s", ip.String())
		}
		return nil
	}
	if strings.EqualFold(host, "localhost") {
		return fmt.Errorf("blocked host: %s", host)
	}

	return nil
}

func isAllowedScheme(scheme string) bool {
	for _, allowed := range allowedSchemes {
		if strings.EqualFold(scheme, allowed) {
			return true
		}
	}
	return false
}

func isBlockedIP(ip net.IP) bool {
	for _, network := range blockedNetworks {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}
