// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// Categoryによってレスポンスのステータスコードが決まる。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: validation, conflict, auth, not_found, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// エラーカテゴリ
const (
	CategoryValidation = "validation"
	CategoryConflict   = "conflict"
	CategoryAuth       = "auth"
	CategoryNotFound   = "not_found"
	CategorySystem     = "system"
)

// 定義済みエラーコード
const (
	ErrCodeValidation         = "VALIDATION_ERROR"
	ErrCodeEmailTaken         = "EMAIL_TAKEN"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeMissingToken       = "MISSING_TOKEN"
	ErrCodeInvalidToken       = "INVALID_TOKEN"
	ErrCodeUserNotFound       = "USER_NOT_FOUND"
	ErrCodeTokenConfig        = "TOKEN_CONFIG_ERROR"
	ErrCodeInternal           = "INTERNAL_ERROR"
)

// NewValidationError は入力不備エラーを生成する。
func NewValidationError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  message,
		Category: CategoryValidation,
		Action:   "Check the request parameters and try again.",
	}
}

// NewEmailTakenError はメールアドレス重複エラーを生成する。
func NewEmailTakenError() *APIError {
	return &APIError{
		Code:     ErrCodeEmailTaken,
		Message:  "Email already registered",
		Category: CategoryConflict,
		Action:   "Log in with the existing account or use another email address.",
	}
}

// NewInvalidCredentialsError は認証情報不一致エラーを生成する。
// ユーザー未登録とパスワード不一致の両方で同一の内容を返すこと。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "Invalid email or password",
		Category: CategoryAuth,
		Action:   "Check your email and password.",
	}
}

// NewMissingTokenError はBearerトークン未指定エラーを生成する。
func NewMissingTokenError() *APIError {
	return &APIError{
		Code:     ErrCodeMissingToken,
		Message:  "Missing token",
		Category: CategoryAuth,
		Action:   "Send an Authorization: Bearer <token> header.",
	}
}

// NewInvalidTokenError は無効・期限切れトークンエラーを生成する。
func NewInvalidTokenError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidToken,
		Message:  "Invalid token",
		Category: CategoryAuth,
		Action:   "Log in again to obtain a new token.",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "User not found",
		Category: CategoryNotFound,
		Action:   "Log in again.",
	}
}

// NewTokenConfigError は署名鍵未設定など、トークン基盤の設定不備エラーを生成する。
// 不正トークン（401）とは区別して500として扱う。
func NewTokenConfigError() *APIError {
	return &APIError{
		Code:     ErrCodeTokenConfig,
		Message:  "Token service is not configured",
		Category: CategorySystem,
		Action:   "Contact the administrator.",
	}
}

// NewInternalError は内部エラーの汎用レスポンスを生成する。
// 詳細はログのみに記録する。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "Internal error",
		Category: CategorySystem,
		Action:   "Please try again later.",
	}
}
