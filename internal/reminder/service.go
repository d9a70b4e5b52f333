// Package reminder は出願締め切りリマインダーの取得と操作を提供する。
package reminder

import (
	"context"
	"log/slog"
	"time"

	"github.com/gradquest/appcore/internal/model"
)

// urgentWindow は締め切りを「緊急」として扱う残日数のしきい値。
const urgentWindow = 14 * 24 * time.Hour

// Backend はサービスが必要とするバックエンド呼び出しのインターフェース。
type Backend interface {
	ListReminders(ctx context.Context, userID string) ([]*model.Reminder, error)
	DeleteReminder(ctx context.Context, id, userID string) error
	CompleteReminder(ctx context.Context, id, userID string) error
}

// SessionSource はユーザーIDの解決に使うセッションストアのインターフェース。
type SessionSource interface {
	Current() *model.Session
	Refresh(ctx context.Context) *model.Session
}

// Service はリマインダーの一覧取得・削除・完了を提供する。
// 緊急フラグはサーバーの値に関わらずクライアント側で計算する。
type Service struct {
	backend  Backend
	sessions SessionSource
	logger   *slog.Logger
	now      func() time.Time
}

// NewService はServiceを生成する。
func NewService(backend Backend, sessions SessionSource, logger *slog.Logger) *Service {
	return &Service{
		backend:  backend,
		sessions: sessions,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *Service) resolveUserID(ctx context.Context) (string, error) {
	if id := s.sessions.Current().EffectiveUserID(); id != "" {
		return id, nil
	}
	if id := s.sessions.Refresh(ctx).EffectiveUserID(); id != "" {
		return id, nil
	}
	return "", model.NewNotSignedInError()
}

// List はリマインダー一覧を取得し、各項目の緊急フラグを再計算して返す。
func (s *Service) List(ctx context.Context) ([]*model.Reminder, error) {
	userID, err := s.resolveUserID(ctx)
	if err != nil {
		return nil, err
	}

	reminders, err := s.backend.ListReminders(ctx, userID)
	if err != nil {
		s.logger.Warn("failed to list reminders",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	for _, r := range reminders {
		r.Urgent = s.isUrgent(r)
	}
	return reminders, nil
}

// isUrgent は締め切りが今日より後かつ14日以内の未完了リマインダーをtrueとする。
// 日付がパースできない場合はfalse。
func (s *Service) isUrgent(r *model.Reminder) bool {
	if r.Completed || r.DueDate == "" {
		return false
	}
	due, err := time.ParseInLocation("2006-01-02", r.DueDate, time.Local)
	if err != nil {
		return false
	}

	now := s.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local)
	diff := due.Sub(today)
	return diff > 0 && diff <= urgentWindow
}

// Delete は指定IDのリマインダーを削除する。
func (s *Service) Delete(ctx context.Context, id string) error {
	userID, err := s.resolveUserID(ctx)
	if err != nil {
		return err
	}
	return s.backend.DeleteReminder(ctx, id, userID)
}

// Complete は指定IDのリマインダーを完了扱いにする。
func (s *Service) Complete(ctx context.Context, id string) error {
	userID, err := s.resolveUserID(ctx)
	if err != nil {
		return err
	}
	return s.backend.CompleteReminder(ctx, id, userID)
}
