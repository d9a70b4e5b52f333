package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gradquest/appcore/internal/authflow"
	"github.com/gradquest/appcore/internal/endpoint"
	"github.com/gradquest/appcore/internal/middleware"
	"github.com/gradquest/appcore/internal/model"
)

// LoginFlowInterface はログインハンドラーが必要とするフローインターフェース。
type LoginFlowInterface interface {
	StartLogin(ctx context.Context, provider endpoint.Provider) (string, error)
	NotifyNavigation(ctx context.Context, rawURL string)
	CompleteWithCode(ctx context.Context, code, redirectURI string) error
	Dismiss()
	Logout(ctx context.Context)
	State() (authflow.State, *model.APIError)
	Provider() endpoint.Provider
	Transport() authflow.Transport
}

// LoginHandler はログインフローのHTTPハンドラー。
type LoginHandler struct {
	flow LoginFlowInterface

	// githubClientID はネイティブの認可リクエストをUI側で組み立てるための
	// OAuthクライアントID。ログイン開始レスポンスに含めて返す。
	githubClientID string
}

// NewLoginHandler はLoginHandlerを生成する。
func NewLoginHandler(flow LoginFlowInterface, githubClientID string) *LoginHandler {
	return &LoginHandler{flow: flow, githubClientID: githubClientID}
}

// startLoginResponse はログイン開始レスポンス。
type startLoginResponse struct {
	AuthorizeURL string `json:"authorizeUrl"`
	State        string `json:"state"`
	ClientID     string `json:"clientId,omitempty"`
}

// Start はプロバイダーを指定してログインフローを開始する。
// POST /api/login/{provider}
func (h *LoginHandler) Start(w http.ResponseWriter, r *http.Request) {
	provider, err := endpoint.ParseProvider(chi.URLParam(r, "provider"))
	if err != nil {
		writeError(w, model.NewInvalidProviderError(chi.URLParam(r, "provider")))
		return
	}

	authorizeURL, err := h.flow.StartLogin(r.Context(), provider)
	if err != nil {
		writeError(w, err)
		return
	}

	state, _ := h.flow.State()
	resp := startLoginResponse{
		AuthorizeURL: authorizeURL,
		State:        state.String(),
	}
	if provider == endpoint.ProviderGitHub {
		resp.ClientID = h.githubClientID
	}
	writeJSON(w, http.StatusOK, resp)
}

// navigationRequest は埋め込みサーフェスのナビゲーション通知。
type navigationRequest struct {
	URL string `json:"url"`
}

// Navigation は埋め込みサーフェスのナビゲーションイベントを受け取る。
// POST /api/login/nav
func (h *LoginHandler) Navigation(w http.ResponseWriter, r *http.Request) {
	var req navigationRequest
	if err := decodeJSON(r, &req); err != nil || req.URL == "" {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "urlフィールドが必要です。",
			Category: "validation",
			Action:   "リクエストボディを確認してください。",
		})
		return
	}

	h.flow.NotifyNavigation(r.Context(), req.URL)
	state, _ := h.flow.State()
	writeJSON(w, http.StatusOK, map[string]string{"state": state.String()})
}

// exchangeRequest はネイティブフローの認可コード交換リクエスト。
type exchangeRequest struct {
	Code        string `json:"code"`
	RedirectURI string `json:"redirectUri"`
}

// Exchange は認可コードをバックエンドに渡してセッションを確立する。
// POST /api/login/exchange
func (h *LoginHandler) Exchange(w http.ResponseWriter, r *http.Request) {
	var req exchangeRequest
	if err := decodeJSON(r, &req); err != nil || req.Code == "" {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "codeフィールドが必要です。",
			Category: "validation",
			Action:   "リクエストボディを確認してください。",
		})
		return
	}

	if err := h.flow.CompleteWithCode(r.Context(), req.Code, req.RedirectURI); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"state": authflow.StateAuthenticated.String()})
}

// loginStateResponse はログインフローの状態レスポンス。
type loginStateResponse struct {
	State     string             `json:"state"`
	Provider  string             `json:"provider,omitempty"`
	SurfaceID string             `json:"surfaceId,omitempty"`
	OpenURL   string             `json:"openUrl,omitempty"`
	Error     *errorStatePayload `json:"error,omitempty"`
}

// errorStatePayload はUI表示用のエラー情報。
type errorStatePayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Action  string `json:"action"`
}

// State は現在のログインフロー状態を返す。
// 埋め込みサーフェスが開いている場合はその表示URLも返す。
// GET /api/login/state
func (h *LoginHandler) State(w http.ResponseWriter, r *http.Request) {
	state, apiErr := h.flow.State()

	resp := loginStateResponse{
		State:    state.String(),
		Provider: string(h.flow.Provider()),
	}
	if apiErr != nil {
		resp.Error = &errorStatePayload{
			Code:    apiErr.Code,
			Message: apiErr.Message,
			Action:  apiErr.Action,
		}
	}
	if t, ok := h.flow.Transport().(*authflow.EmbeddedTransport); ok && t != nil {
		resp.SurfaceID = t.SurfaceID()
		resp.OpenURL = t.OpenURL()
	}

	writeJSON(w, http.StatusOK, resp)
}

// Dismiss は進行中のログインフローを中断する。
// POST /api/login/dismiss
func (h *LoginHandler) Dismiss(w http.ResponseWriter, r *http.Request) {
	h.flow.Dismiss()
	writeJSON(w, http.StatusOK, map[string]string{"state": authflow.StateIdle.String()})
}

// Logout はログアウトする。バックエンド失敗時もローカル状態はクリアされる。
// POST /api/logout
func (h *LoginHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.flow.Logout(r.Context())
	writeJSON(w, http.StatusOK, map[string]bool{"authenticated": false})
}
