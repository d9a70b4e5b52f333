// Package bookmark は保存済み出願（ブックマーク）のストアと永続化を提供する。
package bookmark

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gradquest/appcore/internal/model"
)

// Repository はブックマークリストとチュートリアルフラグの永続化インターフェース。
type Repository interface {
	// LoadBookmarks は永続化済みのブックマークリストを読み込む。
	// 保存データが存在しない場合は空リストを返す。
	LoadBookmarks(ctx context.Context) ([]*model.SavedApplication, error)

	// SaveBookmarks はブックマークリスト全体を永続化する。
	SaveBookmarks(ctx context.Context, apps []*model.SavedApplication) error

	// TutorialDone はチュートリアル完了フラグを読み込む。
	TutorialDone(ctx context.Context) (bool, error)

	// SetTutorialDone はチュートリアル完了フラグを書き込む。
	SetTutorialDone(ctx context.Context, done bool) error
}

// DeriveID はブックマークのキーとなる識別子を導出する。
// id → schoolId → name の順にフォールバックする。
func DeriveID(id, schoolID, name string) string {
	if id != "" {
		return id
	}
	if schoolID != "" {
		return schoolID
	}
	return name
}

// Store はブックマークのインメモリストア。
// 全ての変更操作はメモリと永続化表現を一致させてから戻る（write-through）。
// 永続化に失敗した場合、メモリ上のリストは変更されず、エラーが返される。
type Store struct {
	repo   Repository
	logger *slog.Logger

	mu    sync.Mutex
	items []*model.SavedApplication
}

// NewStore はStoreを生成する。Loadを呼ぶまでリストは空。
func NewStore(repo Repository, logger *slog.Logger) *Store {
	return &Store{
		repo:   repo,
		logger: logger,
	}
}

// Load は永続化済みリストを読み込む。起動時に1回呼び出す。
// 読み込み失敗は飲み込み、空リストとして扱う。
func (s *Store) Load(ctx context.Context) {
	items, err := s.repo.LoadBookmarks(ctx)
	if err != nil {
		s.logger.Warn("failed to load saved applications, starting empty",
			slog.String("error", err.Error()),
		)
		items = nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = items
}

// Add はブックマークを追加する。同じIDが既に存在する場合は何もしない。
// 新しいものがリストの先頭になる。永続化完了後に戻る。
func (s *Store) Add(ctx context.Context, item *model.SavedApplication) error {
	if item == nil {
		return fmt.Errorf("saved application is required")
	}
	if item.ID == "" {
		item.ID = DeriveID(item.ID, "", item.Name)
	}
	if item.ID == "" {
		return fmt.Errorf("saved application ID could not be derived")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.items {
		if existing.ID == item.ID {
			return nil
		}
	}

	saved := *item
	if saved.SavedAt.IsZero() {
		saved.SavedAt = time.Now()
	}

	next := make([]*model.SavedApplication, 0, len(s.items)+1)
	next = append(next, &saved)
	next = append(next, s.items...)

	if err := s.repo.SaveBookmarks(ctx, next); err != nil {
		return model.NewBookmarkPersistError(err.Error())
	}
	s.items = next
	return nil
}

// Remove は指定IDのブックマークを削除する。存在しないIDの場合は何もしない。
// 永続化完了後に戻る。
func (s *Store) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]*model.SavedApplication, 0, len(s.items))
	found := false
	for _, item := range s.items {
		if item.ID == id {
			found = true
			continue
		}
		next = append(next, item)
	}
	if !found {
		return nil
	}

	if err := s.repo.SaveBookmarks(ctx, next); err != nil {
		return model.NewBookmarkPersistError(err.Error())
	}
	s.items = next
	return nil
}

// List は現在のブックマークリストのコピーを返す（新しいものが先頭）。
func (s *Store) List() []*model.SavedApplication {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*model.SavedApplication, len(s.items))
	copy(out, s.items)
	return out
}

// TutorialDone はチュートリアル完了フラグを返す。読み込み失敗は未完了として扱う。
func (s *Store) TutorialDone(ctx context.Context) bool {
	done, err := s.repo.TutorialDone(ctx)
	if err != nil {
		s.logger.Warn("failed to load tutorial flag",
			slog.String("error", err.Error()),
		)
		return false
	}
	return done
}

// MarkTutorialDone はチュートリアル完了フラグを立てる。
func (s *Store) MarkTutorialDone(ctx context.Context) error {
	return s.repo.SetTutorialDone(ctx, true)
}

// ResetTutorial はチュートリアル完了フラグを取り消す。
// ログイン直後にダッシュボードのチュートリアルを再表示するために使用する。
func (s *Store) ResetTutorial(ctx context.Context) error {
	return s.repo.SetTutorialDone(ctx, false)
}
