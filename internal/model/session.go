// Package model はドメインモデルを定義する。
package model

// Session はバックエンドの /api/me が返す現在ユーザーの状態を表す。
// アプリ起動時は「未認証・不明」として生成され、セッションチェック成功のたびに
// 丸ごと置き換えられる。部分的な書き換えは行わない。
type Session struct {
	// Authenticated はバックエンドが明示した認証状態。
	// フィールド自体が省略されるレスポンスもあるためポインタで保持する。
	Authenticated *bool `json:"authenticated,omitempty"`

	UserID string `json:"userId,omitempty"`
	ID     string `json:"id,omitempty"`

	Name     string `json:"name,omitempty"`
	Login    string `json:"login,omitempty"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`

	// アバターURLはプロバイダーによってキーが異なる。
	AvatarURL    string `json:"avatarUrl,omitempty"`
	AvatarURLAlt string `json:"avatar_url,omitempty"`
	Picture      string `json:"picture,omitempty"`
	Avatar       string `json:"avatar,omitempty"`
}

// UnauthenticatedSession は未認証状態のSessionを生成する。
// ネットワーク障害やパース失敗時のフォールバック値として使用する。
func UnauthenticatedSession() *Session {
	f := false
	return &Session{Authenticated: &f}
}

// IsAuthenticated はセッションが認証済みかどうかを判定する。
// 判定規則（正準述語）:
//  1. authenticatedフィールドが明示されていればその値に従う
//  2. 明示されていない場合、いずれかの識別フィールド
//     （name, login, email, username）が存在すれば認証済みとみなす
func (s *Session) IsAuthenticated() bool {
	if s == nil {
		return false
	}
	if s.Authenticated != nil {
		return *s.Authenticated
	}
	return s.Name != "" || s.Login != "" || s.Email != "" || s.Username != ""
}

// EffectiveUserID はユーザー識別子を返す。userIdが無い場合はidにフォールバックする。
func (s *Session) EffectiveUserID() string {
	if s == nil {
		return ""
	}
	if s.UserID != "" {
		return s.UserID
	}
	return s.ID
}

// EffectiveAvatarURL は最初に見つかったアバターURLを返す。
func (s *Session) EffectiveAvatarURL() string {
	if s == nil {
		return ""
	}
	for _, u := range []string{s.AvatarURL, s.AvatarURLAlt, s.Picture, s.Avatar} {
		if u != "" {
			return u
		}
	}
	return ""
}

// DisplayName は表示用の名前を返す。name, login, username, emailの順で探す。
func (s *Session) DisplayName() string {
	if s == nil {
		return ""
	}
	for _, n := range []string{s.Name, s.Login, s.Username, s.Email} {
		if n != "" {
			return n
		}
	}
	return ""
}
