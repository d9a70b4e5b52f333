// Package session は「現在のユーザーは誰か」のプロセス全体で唯一の情報源を提供する。
package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/gradquest/appcore/internal/model"
)

// MeFetcher はセッションチェックエンドポイントの呼び出しインターフェース。
type MeFetcher interface {
	FetchMe(ctx context.Context) (*model.Session, error)
}

// Store は現在のセッション値を1つだけ保持するストア。
// 値は常に丸ごと置き換えられ、部分的な書き換えは行わない。
//
// Refreshは複数の画面から同時に呼ばれても安全である。各Refreshには
// シーケンス番号が振られ、より新しいRefreshの結果が既に反映されている場合、
// 遅れて届いた古い結果は破棄される（last-response-wins競合の明示的な解消）。
type Store struct {
	fetcher MeFetcher
	logger  *slog.Logger

	mu      sync.Mutex
	current *model.Session
	nextSeq uint64 // 次に発行するシーケンス番号
	applied uint64 // ストアに反映済みのシーケンス番号
}

// NewStore はStoreを生成する。初期状態は未認証。
func NewStore(fetcher MeFetcher, logger *slog.Logger) *Store {
	return &Store{
		fetcher: fetcher,
		logger:  logger,
		current: model.UnauthenticatedSession(),
	}
}

// Refresh はセッションチェックエンドポイントを呼び出し、結果でストアを置き換える。
// ネットワーク障害・パース失敗は未認証セッションに縮退させ、エラーは呼び出し元に
// 伝播しない。いずれの場合も結果のセッション値を返す。
func (s *Store) Refresh(ctx context.Context) *model.Session {
	s.mu.Lock()
	s.nextSeq++
	seq := s.nextSeq
	s.mu.Unlock()

	result, err := s.fetcher.FetchMe(ctx)
	if err != nil {
		s.logger.Warn("session refresh failed, treating as unauthenticated",
			slog.String("error", err.Error()),
		)
		result = model.UnauthenticatedSession()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// より新しいRefreshの結果が反映済みなら、この結果は破棄する
	if seq > s.applied {
		s.applied = seq
		s.current = result
	}

	return result
}

// Set はセッション値を直接上書きする。ログインフローがセッション確定後に使用する。
func (s *Store) Set(session *model.Session) {
	if session == nil {
		session = model.UnauthenticatedSession()
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	// 直接上書きは常に最新とみなし、進行中のRefreshより優先する
	s.nextSeq++
	s.applied = s.nextSeq
	s.current = session
}

// Current は現在のセッション値を返す。
func (s *Store) Current() *model.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Authenticated は現在のセッションが認証済みかどうかを返す。
func (s *Store) Authenticated() bool {
	return s.Current().IsAuthenticated()
}

// UserID は現在のユーザー識別子を返す。未認証の場合は空文字列。
func (s *Store) UserID() string {
	return s.Current().EffectiveUserID()
}
