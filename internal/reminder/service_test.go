package reminder

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/gradquest/appcore/internal/model"
)

// --- モック定義 ---

type mockBackend struct {
	listRemindersFn    func(ctx context.Context, userID string) ([]*model.Reminder, error)
	deleteReminderFn   func(ctx context.Context, id, userID string) error
	completeReminderFn func(ctx context.Context, id, userID string) error
}

func (m *mockBackend) ListReminders(ctx context.Context, userID string) ([]*model.Reminder, error) {
	if m.listRemindersFn != nil {
		return m.listRemindersFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockBackend) DeleteReminder(ctx context.Context, id, userID string) error {
	if m.deleteReminderFn != nil {
		return m.deleteReminderFn(ctx, id, userID)
	}
	return nil
}

func (m *mockBackend) CompleteReminder(ctx context.Context, id, userID string) error {
	if m.completeReminderFn != nil {
		return m.completeReminderFn(ctx, id, userID)
	}
	return nil
}

type mockSessions struct {
	current *model.Session
}

func (m *mockSessions) Current() *model.Session {
	if m.current != nil {
		return m.current
	}
	return model.UnauthenticatedSession()
}

func (m *mockSessions) Refresh(ctx context.Context) *model.Session {
	return m.Current()
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func newTestService(backend *mockBackend, now time.Time) *Service {
	s := NewService(backend, &mockSessions{current: &model.Session{UserID: "u1", Name: "Taro"}}, testLogger())
	s.now = func() time.Time { return now }
	return s
}

// --- テスト ---

func TestService_List_RecomputesUrgency(t *testing.T) {
	// 基準日: 2026-03-01
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.Local)

	backend := &mockBackend{
		listRemindersFn: func(ctx context.Context, userID string) ([]*model.Reminder, error) {
			return []*model.Reminder{
				// 13日後: 緊急
				{ID: "r1", Title: "Deadline A", DueDate: "2026-03-14"},
				// ちょうど14日後: 緊急
				{ID: "r2", Title: "Deadline B", DueDate: "2026-03-15"},
				// 15日後: 緊急ではない
				{ID: "r3", Title: "Deadline C", DueDate: "2026-03-16"},
				// 当日: 緊急ではない（diff > 0 が条件）
				{ID: "r4", Title: "Deadline D", DueDate: "2026-03-01"},
				// 過去: 緊急ではない
				{ID: "r5", Title: "Deadline E", DueDate: "2026-02-20"},
				// 期限内でも完了済みは緊急ではない
				{ID: "r6", Title: "Deadline F", DueDate: "2026-03-10", Completed: true},
				// サーバーが立てた緊急フラグは再計算で上書きされる
				{ID: "r7", Title: "Deadline G", DueDate: "2026-06-01", Urgent: true},
				// 日付不正は緊急ではない
				{ID: "r8", Title: "Deadline H", DueDate: "03/10/2026"},
			}, nil
		},
	}
	s := newTestService(backend, now)

	reminders, err := s.List(context.Background())
	if err != nil {
		t.Fatalf("List error = %v", err)
	}

	want := map[string]bool{
		"r1": true,
		"r2": true,
		"r3": false,
		"r4": false,
		"r5": false,
		"r6": false,
		"r7": false,
		"r8": false,
	}
	for _, r := range reminders {
		if r.Urgent != want[r.ID] {
			t.Errorf("%s: Urgent = %v, want %v (due %s)", r.ID, r.Urgent, want[r.ID], r.DueDate)
		}
	}
}

func TestService_List_NotSignedIn(t *testing.T) {
	s := NewService(&mockBackend{}, &mockSessions{}, testLogger())

	_, err := s.List(context.Background())

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeNotSignedIn {
		t.Errorf("List error = %v, want %s", err, model.ErrCodeNotSignedIn)
	}
}

func TestService_List_BackendError(t *testing.T) {
	backend := &mockBackend{
		listRemindersFn: func(ctx context.Context, userID string) ([]*model.Reminder, error) {
			return nil, errors.New("backend down")
		},
	}
	s := newTestService(backend, time.Now())

	if _, err := s.List(context.Background()); err == nil {
		t.Error("List should propagate backend errors")
	}
}

func TestService_DeleteAndComplete_PassUserID(t *testing.T) {
	var deletedID, deletedUser, completedID string
	backend := &mockBackend{
		deleteReminderFn: func(ctx context.Context, id, userID string) error {
			deletedID, deletedUser = id, userID
			return nil
		},
		completeReminderFn: func(ctx context.Context, id, userID string) error {
			completedID = id
			return nil
		},
	}
	s := newTestService(backend, time.Now())
	ctx := context.Background()

	if err := s.Delete(ctx, "r1"); err != nil {
		t.Fatalf("Delete error = %v", err)
	}
	if err := s.Complete(ctx, "r2"); err != nil {
		t.Fatalf("Complete error = %v", err)
	}

	if deletedID != "r1" || deletedUser != "u1" {
		t.Errorf("Delete passed (%q, %q), want (r1, u1)", deletedID, deletedUser)
	}
	if completedID != "r2" {
		t.Errorf("Complete passed %q, want r2", completedID)
	}
}
