package handler

import (
	"context"
	"net/http"

	"github.com/gradquest/appcore/internal/model"
)

// SessionStoreInterface はセッションハンドラーが必要とするストアインターフェース。
type SessionStoreInterface interface {
	Current() *model.Session
	Refresh(ctx context.Context) *model.Session
}

// sessionView はUIに返すセッション表現。
type sessionView struct {
	Authenticated bool   `json:"authenticated"`
	UserID        string `json:"userId,omitempty"`
	Name          string `json:"name,omitempty"`
	AvatarURL     string `json:"avatarUrl,omitempty"`
}

func newSessionView(s *model.Session) sessionView {
	return sessionView{
		Authenticated: s.IsAuthenticated(),
		UserID:        s.EffectiveUserID(),
		Name:          s.DisplayName(),
		AvatarURL:     s.EffectiveAvatarURL(),
	}
}

// SessionHandler はセッション状態のHTTPハンドラー。
type SessionHandler struct {
	sessions SessionStoreInterface
}

// NewSessionHandler はSessionHandlerを生成する。
func NewSessionHandler(sessions SessionStoreInterface) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// Get は現在のセッション値を返す。バックエンドへの問い合わせは行わない。
// GET /api/session
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, newSessionView(h.sessions.Current()))
}

// Refresh はセッションチェックを実行し、結果を返す。
// ネットワーク障害は未認証への縮退として扱い、エラーにはしない。
// POST /api/session/refresh
func (h *SessionHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, newSessionView(h.sessions.Refresh(r.Context())))
}
