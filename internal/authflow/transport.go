package authflow

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// TransportKind はログイントランスポートの種別を表す。
type TransportKind string

const (
	// TransportEmbedded はアプリ内の埋め込みブラウザサーフェス（ネイティブ）。
	TransportEmbedded TransportKind = "embedded"
	// TransportPopup は切り離されたウィンドウ（Webプラットフォーム）。
	TransportPopup TransportKind = "popup"
	// TransportRedirect は同一ブラウジングコンテキストでの直接遷移。
	TransportRedirect TransportKind = "redirect"
)

// ErrSurfaceBlocked は認可用サーフェスを開けなかったことを示す。
// Webのポップアップブロックが典型例で、サイレントに回復できない。
var ErrSurfaceBlocked = errors.New("authorization surface was blocked")

// Opener は外部のブラウジングコンテキストでURLを開く関数。
// ポップアップがブロックされた場合などはエラーを返す。
type Opener func(url string) error

// Transport はプラットフォーム別のOAuth認可サーフェスの抽象。
// ログイン試行ごとに新しいインスタンスを生成する（前回試行のプロバイダー
// Cookieが新しい試行に漏れないようにするため）。
type Transport interface {
	// Kind はトランスポート種別を返す。
	Kind() TransportKind

	// Open は認可URLでサーフェスを開く。
	// サーフェスを開けない場合（ポップアップブロック等）はErrSurfaceBlockedを返す。
	Open(authorizeURL string) error

	// NeedsPolling は完了検知にセッションチェックのポーリングが必要かどうかを返す。
	// リダイレクトが別のブラウジングコンテキストで起こり、
	// ナビゲーションを直接観測できないトランスポートはtrueを返す。
	NeedsPolling() bool

	// Teardown はサーフェスを破棄する。複数回呼び出しても安全。
	Teardown()
}

// EmbeddedTransport はネイティブの埋め込みWebビューに対応するトランスポート。
// ナビゲーションイベントはUI側からControllerのNotifyNavigationに転送される。
type EmbeddedTransport struct {
	mu        sync.Mutex
	surfaceID string
	openURL   string
	closed    bool
}

// NewEmbeddedTransport は試行ごとに一意のサーフェスIDを持つトランスポートを生成する。
func NewEmbeddedTransport() *EmbeddedTransport {
	return &EmbeddedTransport{surfaceID: uuid.New().String()}
}

// Kind はTransportEmbeddedを返す。
func (t *EmbeddedTransport) Kind() TransportKind { return TransportEmbedded }

// Open は埋め込みサーフェスの表示URLを記録する。
// 実際の描画はUI側が行うため、ここでは失敗しない。
func (t *EmbeddedTransport) Open(authorizeURL string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return fmt.Errorf("surface already torn down")
	}
	t.openURL = authorizeURL
	return nil
}

// NeedsPolling は埋め込みサーフェスではナビゲーションを直接観測できるためfalse。
func (t *EmbeddedTransport) NeedsPolling() bool { return false }

// SurfaceID はこの試行のサーフェス識別子を返す。
func (t *EmbeddedTransport) SurfaceID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.surfaceID
}

// OpenURL は表示中の認可URLを返す。閉じられている場合は空文字列。
func (t *EmbeddedTransport) OpenURL() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ""
	}
	return t.openURL
}

// Teardown はサーフェスを閉じる。
func (t *EmbeddedTransport) Teardown() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	t.openURL = ""
}

// PopupTransport はWebプラットフォームの切り離しウィンドウに対応するトランスポート。
// 完了検知はセッションチェックのポーリングで行う。
type PopupTransport struct {
	opener Opener

	mu     sync.Mutex
	closed bool
}

// NewPopupTransport はPopupTransportを生成する。
func NewPopupTransport(opener Opener) *PopupTransport {
	return &PopupTransport{opener: opener}
}

// Kind はTransportPopupを返す。
func (t *PopupTransport) Kind() TransportKind { return TransportPopup }

// Open はopenerでポップアップを開く。失敗はErrSurfaceBlockedとして返す。
func (t *PopupTransport) Open(authorizeURL string) error {
	if t.opener == nil {
		return fmt.Errorf("%w: no opener configured", ErrSurfaceBlocked)
	}
	if err := t.opener(authorizeURL); err != nil {
		return fmt.Errorf("%w: %s", ErrSurfaceBlocked, err.Error())
	}
	return nil
}

// NeedsPolling はポップアップのリダイレクトを観測できないためtrue。
func (t *PopupTransport) NeedsPolling() bool { return true }

// Teardown はポップアップを閉じたものとして扱う。
func (t *PopupTransport) Teardown() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
}

// RedirectTransport は同一コンテキストでの直接遷移に対応するトランスポート。
// ページ遷移後のアプリ再初期化側でセッションを確認するため、こちらもポーリングする。
type RedirectTransport struct {
	opener Opener
}

// NewRedirectTransport はRedirectTransportを生成する。
func NewRedirectTransport(opener Opener) *RedirectTransport {
	return &RedirectTransport{opener: opener}
}

// Kind はTransportRedirectを返す。
func (t *RedirectTransport) Kind() TransportKind { return TransportRedirect }

// Open はopenerで直接遷移する。
func (t *RedirectTransport) Open(authorizeURL string) error {
	if t.opener == nil {
		return fmt.Errorf("no opener configured")
	}
	return t.opener(authorizeURL)
}

// NeedsPolling は遷移後のセッション確立をポーリングで確認するためtrue。
func (t *RedirectTransport) NeedsPolling() bool { return true }

// Teardown は直接遷移では破棄すべきサーフェスがないため何もしない。
func (t *RedirectTransport) Teardown() {}

// compile-time interface checks
var (
	_ Transport = (*EmbeddedTransport)(nil)
	_ Transport = (*PopupTransport)(nil)
	_ Transport = (*RedirectTransport)(nil)
)
