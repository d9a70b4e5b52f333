package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gradquest/appcore/internal/authflow"
	"github.com/gradquest/appcore/internal/endpoint"
	"github.com/gradquest/appcore/internal/model"
)

// --- モック定義 ---

type mockLoginFlow struct {
	startLoginFn       func(ctx context.Context, provider endpoint.Provider) (string, error)
	notifyNavigationFn func(ctx context.Context, rawURL string)
	completeFn         func(ctx context.Context, code, redirectURI string) error
	logoutFn           func(ctx context.Context)
	state              authflow.State
	stateErr           *model.APIError
	provider           endpoint.Provider
	transport          authflow.Transport
	dismissed          bool
}

func (m *mockLoginFlow) StartLogin(ctx context.Context, provider endpoint.Provider) (string, error) {
	if m.startLoginFn != nil {
		return m.startLoginFn(ctx, provider)
	}
	return "", nil
}

func (m *mockLoginFlow) NotifyNavigation(ctx context.Context, rawURL string) {
	if m.notifyNavigationFn != nil {
		m.notifyNavigationFn(ctx, rawURL)
	}
}

func (m *mockLoginFlow) CompleteWithCode(ctx context.Context, code, redirectURI string) error {
	if m.completeFn != nil {
		return m.completeFn(ctx, code, redirectURI)
	}
	return nil
}

func (m *mockLoginFlow) Dismiss() { m.dismissed = true }

func (m *mockLoginFlow) Logout(ctx context.Context) {
	if m.logoutFn != nil {
		m.logoutFn(ctx)
	}
}

func (m *mockLoginFlow) State() (authflow.State, *model.APIError) {
	return m.state, m.stateErr
}

func (m *mockLoginFlow) Provider() endpoint.Provider { return m.provider }

func (m *mockLoginFlow) Transport() authflow.Transport { return m.transport }

// --- テスト ---

func TestLoginHandler_Start_InvalidProvider(t *testing.T) {
	h := NewLoginHandler(&mockLoginFlow{}, "")

	req := httptest.NewRequest(http.MethodPost, "/api/login/twitter", nil)
	req = withChiParam(req, "provider", "twitter")
	w := httptest.NewRecorder()

	h.Start(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}

	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode error = %v", err)
	}
	if body["code"] != model.ErrCodeInvalidProvider {
		t.Errorf("code = %q, want %s", body["code"], model.ErrCodeInvalidProvider)
	}
}

func TestLoginHandler_Start_Success(t *testing.T) {
	flow := &mockLoginFlow{
		startLoginFn: func(ctx context.Context, provider endpoint.Provider) (string, error) {
			return "http://localhost:8080/oauth2/authorization/" + string(provider), nil
		},
		state: authflow.StateAwaitingRedirect,
	}
	h := NewLoginHandler(flow, "")

	req := httptest.NewRequest(http.MethodPost, "/api/login/github", nil)
	req = withChiParam(req, "provider", "github")
	w := httptest.NewRecorder()

	h.Start(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var body startLoginResponse
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode error = %v", err)
	}
	if !strings.HasSuffix(body.AuthorizeURL, "/github") {
		t.Errorf("authorizeUrl = %q", body.AuthorizeURL)
	}
	if body.State != "awaiting_redirect" {
		t.Errorf("state = %q, want awaiting_redirect", body.State)
	}
}

func TestLoginHandler_Start_IncludesGithubClientID(t *testing.T) {
	flow := &mockLoginFlow{
		startLoginFn: func(ctx context.Context, provider endpoint.Provider) (string, error) {
			return "http://localhost:8080/oauth2/authorization/github", nil
		},
		state: authflow.StateAwaitingRedirect,
	}
	h := NewLoginHandler(flow, "Iv1.example-client-id")

	req := httptest.NewRequest(http.MethodPost, "/api/login/github", nil)
	req = withChiParam(req, "provider", "github")
	w := httptest.NewRecorder()

	h.Start(w, req)

	var body startLoginResponse
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode error = %v", err)
	}
	// UIはネイティブ認可リクエストの組み立てにクライアントIDを使う
	if body.ClientID != "Iv1.example-client-id" {
		t.Errorf("clientId = %q, want Iv1.example-client-id", body.ClientID)
	}
}

func TestLoginHandler_Start_InProgressConflict(t *testing.T) {
	flow := &mockLoginFlow{
		startLoginFn: func(ctx context.Context, provider endpoint.Provider) (string, error) {
			return "", model.NewLoginInProgressError()
		},
	}
	h := NewLoginHandler(flow, "")

	req := httptest.NewRequest(http.MethodPost, "/api/login/github", nil)
	req = withChiParam(req, "provider", "github")
	w := httptest.NewRecorder()

	h.Start(w, req)

	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want %d", w.Code, http.StatusConflict)
	}
}

func TestLoginHandler_Navigation_RequiresURL(t *testing.T) {
	h := NewLoginHandler(&mockLoginFlow{}, "")

	req := httptest.NewRequest(http.MethodPost, "/api/login/nav", strings.NewReader(`{}`))
	w := httptest.NewRecorder()

	h.Navigation(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestLoginHandler_Navigation_ForwardsURL(t *testing.T) {
	var gotURL string
	flow := &mockLoginFlow{
		notifyNavigationFn: func(ctx context.Context, rawURL string) {
			gotURL = rawURL
		},
		state: authflow.StateFinalizing,
	}
	h := NewLoginHandler(flow, "")

	req := httptest.NewRequest(http.MethodPost, "/api/login/nav",
		strings.NewReader(`{"url":"http://localhost:8080/oauth2/final?code=x"}`))
	w := httptest.NewRecorder()

	h.Navigation(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if gotURL != "http://localhost:8080/oauth2/final?code=x" {
		t.Errorf("forwarded URL = %q", gotURL)
	}
}

func TestLoginHandler_State_IncludesErrorAndSurface(t *testing.T) {
	transport := authflow.NewEmbeddedTransport()
	if err := transport.Open("http://localhost:8080/oauth2/authorization/github"); err != nil {
		t.Fatalf("Open error = %v", err)
	}

	flow := &mockLoginFlow{
		state:     authflow.StateFailed,
		stateErr:  model.NewLoginTimeoutError(),
		provider:  endpoint.ProviderGitHub,
		transport: transport,
	}
	h := NewLoginHandler(flow, "")

	req := httptest.NewRequest(http.MethodGet, "/api/login/state", nil)
	w := httptest.NewRecorder()

	h.State(w, req)

	var body loginStateResponse
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode error = %v", err)
	}
	if body.State != "failed" {
		t.Errorf("state = %q, want failed", body.State)
	}
	if body.Provider != "github" {
		t.Errorf("provider = %q, want github", body.Provider)
	}
	if body.Error == nil || body.Error.Code != model.ErrCodeLoginTimeout {
		t.Errorf("error = %+v, want %s", body.Error, model.ErrCodeLoginTimeout)
	}
	if body.SurfaceID == "" || body.OpenURL == "" {
		t.Errorf("surface = (%q, %q), want embedded surface info", body.SurfaceID, body.OpenURL)
	}
}

func TestLoginHandler_Exchange_RequiresCode(t *testing.T) {
	h := NewLoginHandler(&mockLoginFlow{}, "")

	req := httptest.NewRequest(http.MethodPost, "/api/login/exchange", strings.NewReader(`{"redirectUri":"x"}`))
	w := httptest.NewRecorder()

	h.Exchange(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestLoginHandler_Logout(t *testing.T) {
	logoutCalled := false
	flow := &mockLoginFlow{
		logoutFn: func(ctx context.Context) { logoutCalled = true },
	}
	h := NewLoginHandler(flow, "")

	req := httptest.NewRequest(http.MethodPost, "/api/logout", nil)
	w := httptest.NewRecorder()

	h.Logout(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	if !logoutCalled {
		t.Error("flow.Logout should be called")
	}
}
