// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, network, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeNotSignedIn       = "NOT_SIGNED_IN"
	ErrCodeLoginTimeout      = "LOGIN_TIMEOUT"
	ErrCodeLoginInProgress   = "LOGIN_IN_PROGRESS"
	ErrCodePopupBlocked      = "POPUP_BLOCKED"
	ErrCodeInvalidProvider   = "INVALID_PROVIDER"
	ErrCodeInvalidPreference = "INVALID_PREFERENCE"
	ErrCodePreferenceSave    = "PREFERENCE_SAVE_FAILED"
	ErrCodeRankingFetch      = "RANKING_FETCH_FAILED"
	ErrCodeUnsafeLink        = "UNSAFE_LINK"
	ErrCodeSOPGeneration     = "SOP_GENERATION_FAILED"
	ErrCodeBookmarkPersist   = "BOOKMARK_PERSIST_FAILED"
)

// NewNotSignedInError はユーザーを特定できない場合のエラーを生成する。
func NewNotSignedInError() *APIError {
	return &APIError{
		Code:     ErrCodeNotSignedIn,
		Message:  "サインインしていないため操作を完了できません。",
		Category: "auth",
		Action:   "サインインし直してから再度お試しください。",
	}
}

// NewLoginTimeoutError はログイン完了待ちがタイムアウトした場合のエラーを生成する。
func NewLoginTimeoutError() *APIError {
	return &APIError{
		Code:     ErrCodeLoginTimeout,
		Message:  "ログインの完了を確認できませんでした。",
		Category: "auth",
		Action:   "ネットワーク接続を確認し、再度サインインしてください。",
	}
}

// NewLoginInProgressError はログインフローの多重開始を拒否するエラーを生成する。
func NewLoginInProgressError() *APIError {
	return &APIError{
		Code:     ErrCodeLoginInProgress,
		Message:  "別のログイン処理が進行中です。",
		Category: "auth",
		Action:   "進行中のログインが完了するまでお待ちください。",
	}
}

// NewPopupBlockedError はポップアップがブロックされた場合のエラーを生成する。
// サイレントに回復できない唯一の意図的なユーザー向けエラー。
func NewPopupBlockedError() *APIError {
	return &APIError{
		Code:     ErrCodePopupBlocked,
		Message:  "ログイン用のポップアップがブロックされました。",
		Category: "auth",
		Action:   "ブラウザのポップアップブロックを解除して再度お試しください。",
	}
}

// NewInvalidProviderError は未対応のOAuthプロバイダー指定エラーを生成する。
func NewInvalidProviderError(provider string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidProvider,
		Message:  fmt.Sprintf("未対応のログインプロバイダーです: %s", provider),
		Category: "validation",
		Action:   "github、discord、googleのいずれかを指定してください。",
	}
}

// NewInvalidPreferenceError は志望条件の検証エラーを生成する。
func NewInvalidPreferenceError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidPreference,
		Message:  fmt.Sprintf("志望条件が不正です: %s", reason),
		Category: "validation",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewPreferenceSaveError は志望条件の保存失敗エラーを生成する。
func NewPreferenceSaveError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodePreferenceSave,
		Message:  fmt.Sprintf("志望条件の保存に失敗しました: %s", reason),
		Category: "network",
		Action:   "通信環境を確認し、再度保存してください。",
	}
}

// NewRankingFetchError は推薦校リストの取得失敗エラーを生成する。
func NewRankingFetchError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeRankingFetch,
		Message:  fmt.Sprintf("推薦校リストの取得に失敗しました: %s", reason),
		Category: "network",
		Action:   "しばらく待ってからダッシュボードを再読み込みしてください。",
	}
}

// NewUnsafeLinkError は安全でないリンクを開こうとした場合のエラーを生成する。
func NewUnsafeLinkError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeUnsafeLink,
		Message:  fmt.Sprintf("このリンクは開けません: %s", reason),
		Category: "validation",
		Action:   "学校の公式サイトのURLか確認してください。",
	}
}

// NewSOPGenerationError はSOP生成失敗エラーを生成する。
func NewSOPGenerationError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeSOPGeneration,
		Message:  fmt.Sprintf("SOPの生成に失敗しました: %s", reason),
		Category: "system",
		Action:   "PDFファイルを確認し、しばらく待ってから再度お試しください。",
	}
}

// NewBookmarkPersistError はブックマーク永続化失敗エラーを生成する。
// 永続化はfire-and-forgetにせず、失敗を再試行可能なエラーとして返す。
func NewBookmarkPersistError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeBookmarkPersist,
		Message:  fmt.Sprintf("保存リストの書き込みに失敗しました: %s", reason),
		Category: "system",
		Action:   "端末の空き容量を確認して再度お試しください。",
	}
}
