// Package endpoint は論理操作名からバックエンドURLへの静的マッピングを提供する。
package endpoint

import (
	"fmt"
	"net/url"
	"strings"
)

// Provider はOAuthログインプロバイダーを表す。
type Provider string

const (
	ProviderGitHub  Provider = "github"
	ProviderDiscord Provider = "discord"
	ProviderGoogle  Provider = "google"
)

// ParseProvider はプロバイダー名文字列を検証して返す。
func ParseProvider(s string) (Provider, error) {
	switch Provider(strings.ToLower(s)) {
	case ProviderGitHub:
		return ProviderGitHub, nil
	case ProviderDiscord:
		return ProviderDiscord, nil
	case ProviderGoogle:
		return ProviderGoogle, nil
	default:
		return "", fmt.Errorf("unknown provider: %q", s)
	}
}

// Registry はバックエンドのエンドポイントURLを組み立てる。
// ベースURLは末尾スラッシュを正規化した状態で保持する。
type Registry struct {
	base         *url.URL
	finalizePath string
}

// New はRegistryを生成する。finalizePathが空の場合は /oauth2/final を使用する。
func New(baseURL, finalizePath string) (*Registry, error) {
	parsed, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("base URL must be absolute: %q", baseURL)
	}
	if finalizePath == "" {
		finalizePath = "/oauth2/final"
	}
	return &Registry{
		base:         parsed,
		finalizePath: normalizePath(finalizePath),
	}, nil
}

// BaseURL は正規化済みのベースURL文字列を返す。
func (r *Registry) BaseURL() string {
	return r.base.String()
}

// Me はセッションチェックエンドポイントのURLを返す。
func (r *Registry) Me() string {
	return r.base.String() + "/api/me"
}

// Logout はログアウトエンドポイントのURLを返す。
func (r *Registry) Logout() string {
	return r.base.String() + "/api/logout"
}

// Authorize はプロバイダー別のOAuth開始URLを返す。
func (r *Registry) Authorize(p Provider) string {
	return r.base.String() + "/oauth2/authorization/" + string(p)
}

// Finalize はOAuthコールバックの着地ページURLを返す。
// クライアントはこのURLプレフィックスへのナビゲーションを監視する。
func (r *Registry) Finalize() string {
	return r.base.String() + r.finalizePath
}

// MobileGithubCallback はネイティブフローの認可コード交換URLを返す。
func (r *Registry) MobileGithubCallback() string {
	return r.base.String() + "/api/mobile/github/callback"
}

// Preferences は志望条件保存エンドポイントのURLを返す。
// paramはuserId / user_idのクエリパラメータ規約の揺れを吸収するために指定可能。
func (r *Registry) Preferences(param, userID string) string {
	if param == "" {
		param = "userId"
	}
	q := url.Values{param: {userID}}
	return r.base.String() + "/api/preferences?" + q.Encode()
}

// TopSchools は推薦校上位リスト取得エンドポイントのURLを返す。
func (r *Registry) TopSchools(userID string) string {
	q := url.Values{"userId": {userID}}
	return r.base.String() + "/api/schools/top5?" + q.Encode()
}

// Reminders はリマインダー一覧取得エンドポイントのURLを返す。
func (r *Registry) Reminders(userID string) string {
	q := url.Values{"userId": {userID}}
	return r.base.String() + "/api/reminders?" + q.Encode()
}

// Reminder はリマインダー個別操作（削除）のURLを返す。
func (r *Registry) Reminder(id, userID string) string {
	q := url.Values{"userId": {userID}}
	return r.base.String() + "/api/reminders/" + url.PathEscape(id) + "?" + q.Encode()
}

// ReminderComplete はリマインダー完了操作のURLを返す。
func (r *Registry) ReminderComplete(id, userID string) string {
	q := url.Values{"userId": {userID}}
	return r.base.String() + "/api/reminders/" + url.PathEscape(id) + "/complete?" + q.Encode()
}

// SOPParams はSOP生成エンドポイントのクエリパラメータ。
type SOPParams struct {
	TargetProgram    string
	TargetUniversity string
	ExtraNotes       string
}

// SOPGenerate はSOP生成エンドポイントのURLを返す。
func (r *Registry) SOPGenerate(p SOPParams) string {
	q := url.Values{
		"targetProgram":    {p.TargetProgram},
		"targetUniversity": {p.TargetUniversity},
		"extraNotes":       {p.ExtraNotes},
	}
	return r.base.String() + "/api/sop/generate?" + q.Encode()
}

// MatchesFinalize はURLがfinalize着地ページへのナビゲーションかどうかを判定する。
// 判定規則: スキームとホストがベースURLと一致し、かつパスが
// finalizeパスをプレフィックスとして持つこと。末尾スラッシュは正規化する。
func (r *Registry) MatchesFinalize(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	if parsed.Scheme != r.base.Scheme || parsed.Host != r.base.Host {
		return false
	}
	path := normalizePath(parsed.Path)
	if path == r.finalizePath {
		return true
	}
	return strings.HasPrefix(path, r.finalizePath+"/")
}

// normalizePath は末尾スラッシュを取り除いたパスを返す。ルートは "/" のまま。
func normalizePath(p string) string {
	if p == "" {
		return "/"
	}
	trimmed := strings.TrimRight(p, "/")
	if trimmed == "" {
		return "/"
	}
	return trimmed
}
