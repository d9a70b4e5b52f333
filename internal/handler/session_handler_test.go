package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gradquest/appcore/internal/model"
)

// --- モック定義 ---

type mockSessionStore struct {
	current   *model.Session
	refreshFn func(ctx context.Context) *model.Session
}

func (m *mockSessionStore) Current() *model.Session {
	if m.current != nil {
		return m.current
	}
	return model.UnauthenticatedSession()
}

func (m *mockSessionStore) Refresh(ctx context.Context) *model.Session {
	if m.refreshFn != nil {
		return m.refreshFn(ctx)
	}
	return model.UnauthenticatedSession()
}

// --- テスト ---

func TestSessionHandler_Get_Unauthenticated(t *testing.T) {
	h := NewSessionHandler(&mockSessionStore{})

	w := httptest.NewRecorder()
	h.Get(w, httptest.NewRequest(http.MethodGet, "/api/session", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var view sessionView
	if err := json.NewDecoder(w.Body).Decode(&view); err != nil {
		t.Fatalf("decode error = %v", err)
	}
	if view.Authenticated {
		t.Error("authenticated = true, want false")
	}
	if view.UserID != "" {
		t.Errorf("userId = %q, want empty", view.UserID)
	}
}

func TestSessionHandler_Get_DoesNotHitBackend(t *testing.T) {
	refreshed := false
	store := &mockSessionStore{
		current: &model.Session{UserID: "u1", Name: "太郎"},
		refreshFn: func(ctx context.Context) *model.Session {
			refreshed = true
			return model.UnauthenticatedSession()
		},
	}
	h := NewSessionHandler(store)

	w := httptest.NewRecorder()
	h.Get(w, httptest.NewRequest(http.MethodGet, "/api/session", nil))

	if refreshed {
		t.Error("Get should not trigger a session check")
	}

	var view sessionView
	if err := json.NewDecoder(w.Body).Decode(&view); err != nil {
		t.Fatalf("decode error = %v", err)
	}
	if !view.Authenticated || view.UserID != "u1" || view.Name != "太郎" {
		t.Errorf("view = %+v", view)
	}
}

func TestSessionHandler_Refresh_ReturnsFetchedSession(t *testing.T) {
	store := &mockSessionStore{
		refreshFn: func(ctx context.Context) *model.Session {
			return &model.Session{Login: "taro", AvatarURL: "https://example.com/a.png"}
		},
	}
	h := NewSessionHandler(store)

	w := httptest.NewRecorder()
	h.Refresh(w, httptest.NewRequest(http.MethodPost, "/api/session/refresh", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var view sessionView
	if err := json.NewDecoder(w.Body).Decode(&view); err != nil {
		t.Fatalf("decode error = %v", err)
	}
	if !view.Authenticated {
		t.Error("authenticated = false, want true")
	}
	if view.Name != "taro" {
		t.Errorf("name = %q, want taro (loginへのフォールバック)", view.Name)
	}
	if view.AvatarURL != "https://example.com/a.png" {
		t.Errorf("avatarUrl = %q", view.AvatarURL)
	}
}
