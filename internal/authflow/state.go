// Package authflow はOAuthログインフローの制御を提供する。
// プラットフォーム別トランスポート、完了検知ポーリング、状態遷移を含む。
package authflow

// State はログインフローの状態を表す。
type State int

const (
	// StateIdle はフローが進行していない状態。セッションは不明または未認証。
	StateIdle State = iota
	// StateProviderChosen はユーザーがプロバイダーを選択した直後の状態。
	StateProviderChosen
	// StateAwaitingRedirect は認可用サーフェスが開かれ、
	// サードパーティのログインページが表示されている状態。
	StateAwaitingRedirect
	// StateFinalizing はfinalize URLへの到達を検知し、
	// セッションの確立を確認している状態。
	StateFinalizing
	// StateAuthenticated はセッションストアが認証済みを報告した状態。
	StateAuthenticated
	// StateFailed はネットワークエラーまたはタイムアウトで失敗した状態。
	// エラーをUIに提示した上でIdleと同様に再試行可能。
	StateFailed
)

// String は状態名を返す。
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateProviderChosen:
		return "provider_chosen"
	case StateAwaitingRedirect:
		return "awaiting_redirect"
	case StateFinalizing:
		return "finalizing"
	case StateAuthenticated:
		return "authenticated"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// inProgress はフローが進行中（多重開始を拒否すべき状態）かどうかを返す。
func (s State) inProgress() bool {
	switch s {
	case StateProviderChosen, StateAwaitingRedirect, StateFinalizing:
		return true
	default:
		return false
	}
}
