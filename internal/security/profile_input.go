package security

import (
	"errors"
	"html"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"github.com/y1ran/backend/internal/model"
)

var (
	// ErrAvatarURLTooLong はアバターURLが上限文字数を超えていることを表す。
	ErrAvatarURLTooLong = errors.New("avatar_url must be at most 500 characters")
	// ErrAvatarURLInvalid はアバターURLがhttp(s)の絶対URLでないことを表す。
	ErrAvatarURLInvalid = errors.New("avatar_url must be an absolute http(s) URL")
)

// ProfileSanitizer はプロフィールの可変フィールドを保存前に整形・検証する。
// bluemondayのポリシーは並行利用可能なため、1インスタンスを共有してよい。
type ProfileSanitizer struct {
	policy *bluemonday.Policy
}

// NewProfileSanitizer はタグをすべて除去するStrictPolicyでProfileSanitizerを生成する。
func NewProfileSanitizer() *ProfileSanitizer {
	return &ProfileSanitizer{policy: bluemonday.StrictPolicy()}
}

// DisplayName はマークアップを除去し、前後の空白を落としたうえで
// 先頭MaxDisplayNameLength文字（rune単位）に切り詰める。
func (s *ProfileSanitizer) DisplayName(raw string) string {
	// StrictPolicyは&等をエスケープするため、保存値はプレーンテキストに戻す
	text := html.UnescapeString(s.policy.Sanitize(raw))
	text = strings.TrimSpace(text)
	return truncateRunes(text, model.MaxDisplayNameLength)
}

// AvatarURL はアバターURLを検証する。空文字列はアバターの削除として許可する。
func (s *ProfileSanitizer) AvatarURL(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", nil
	}
	if utf8.RuneCountInString(trimmed) > model.MaxAvatarURLLength {
		return "", ErrAvatarURLTooLong
	}

	parsed, err := url.Parse(trimmed)
	if err != nil || !isAllowedScheme(parsed.Scheme) || parsed.Host == "" {
		return "", ErrAvatarURLInvalid
	}
	return trimmed, nil
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}
