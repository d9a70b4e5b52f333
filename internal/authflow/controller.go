package authflow

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"sync"

	"github.com/google/uuid"
	"github.com/gradquest/appcore/internal/endpoint"
	"github.com/gradquest/appcore/internal/model"
)

// SessionStore はコントローラーが操作するセッションストアのインターフェース。
type SessionStore interface {
	Refresh(ctx context.Context) *model.Session
	Set(session *model.Session)
	Current() *model.Session
}

// BackendAPI はコントローラーが必要とするバックエンド呼び出しのインターフェース。
type BackendAPI interface {
	Logout(ctx context.Context) error
	ExchangeGithubCode(ctx context.Context, code, redirectURI string) error
}

// MetricsRecorder はログインフローのメトリクス記録インターフェース。
type MetricsRecorder interface {
	RecordLoginAttempt(provider string)
	RecordLoginResult(provider, result string)
	RecordPollTick()
}

// Config はログインフローの動作設定。
type Config struct {
	PollInterval    time.Duration // セッションチェックのポーリング間隔
	PollMaxAttempts int           // ポーリング回数上限
	HardTimeout     time.Duration // 試行全体の強制タイムアウト
}

// Controller はOAuthログインフローの状態機械を駆動する。
//
// 遷移:
//
//	Idle → ProviderChosen → AwaitingRedirect → Finalizing → Authenticated
//	                                        ↘ Failed（タイムアウト・エラー）
//
// トランスポートは試行ごとに新しく生成され、完了または画面破棄の際に
// 必ずTeardownされる。ポーリングタイマーはcontextキャンセルで停止する。
type Controller struct {
	sessions     SessionStore
	client       BackendAPI
	registry     *endpoint.Registry
	newTransport func() Transport
	cfg          Config
	metrics      MetricsRecorder
	logger       *slog.Logger

	mu        sync.Mutex
	state     State
	lastErr   *model.APIError
	provider  endpoint.Provider
	attemptID string
	transport Transport
	finalized bool
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewController はControllerを生成する。
// newTransportは試行ごとに新しいTransportを返すファクトリ。
func NewController(
	sessions SessionStore,
	client BackendAPI,
	registry *endpoint.Registry,
	newTransport func() Transport,
	cfg Config,
	metrics MetricsRecorder,
	logger *slog.Logger,
) *Controller {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.PollMaxAttempts <= 0 {
		cfg.PollMaxAttempts = 15
	}
	if cfg.HardTimeout <= 0 {
		cfg.HardTimeout = 5 * time.Minute
	}
	return &Controller{
		sessions:     sessions,
		client:       client,
		registry:     registry,
		newTransport: newTransport,
		cfg:          cfg,
		metrics:      metrics,
		logger:       logger,
		state:        StateIdle,
	}
}

// State は現在の状態と直近のユーザー向けエラーを返す。
func (c *Controller) State() (State, *model.APIError) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state, c.lastErr
}

// Provider は進行中（または直近）の試行のプロバイダーを返す。
func (c *Controller) Provider() endpoint.Provider {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.provider
}

// Transport は進行中の試行のトランスポートを返す。進行中でない場合はnil。
func (c *Controller) Transport() Transport {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transport
}

// Done は進行中の試行の完了チャネルを返す。進行中でない場合はnil。
func (c *Controller) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}

// StartLogin はプロバイダーを選択してログインフローを開始する。
// 事前にサーバーセッションをベストエフォートで破棄し（クリーンな
// ハンドシェイクの保証）、認可URLでトランスポートを開く。
// 戻り値はUIが表示・遷移に使用する認可URL。
func (c *Controller) StartLogin(ctx context.Context, provider endpoint.Provider) (string, error) {
	c.mu.Lock()
	if c.state.inProgress() {
		c.mu.Unlock()
		return "", model.NewLoginInProgressError()
	}
	attemptID := uuid.New().String()
	c.state = StateProviderChosen
	c.provider = provider
	c.attemptID = attemptID
	c.lastErr = nil
	c.finalized = false
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.RecordLoginAttempt(string(provider))
	}

	// 前回のサーバーセッションを破棄してからハンドシェイクを始める。
	// 失敗してもログインは続行する（ベストエフォート）。
	if err := c.client.Logout(ctx); err != nil {
		c.logger.Warn("pre-login logout failed (ignored)",
			slog.String("provider", string(provider)),
			slog.String("error", err.Error()),
		)
	}
	c.sessions.Set(model.UnauthenticatedSession())

	transport := c.newTransport()
	authorizeURL := c.registry.Authorize(provider)

	if err := transport.Open(authorizeURL); err != nil {
		var apiErr *model.APIError
		if errors.Is(err, ErrSurfaceBlocked) {
			apiErr = model.NewPopupBlockedError()
		} else {
			apiErr = model.NewLoginTimeoutError()
		}
		c.logger.Warn("failed to open authorization surface",
			slog.String("provider", string(provider)),
			slog.String("error", err.Error()),
		)
		c.failAttempt(attemptID, apiErr)
		return "", apiErr
	}

	// 試行はこれを開始したHTTPリクエストより長生きするため、
	// 強制タイムアウト付きの独立したcontextで駆動する。
	attemptCtx, cancel := context.WithTimeout(context.Background(), c.cfg.HardTimeout)
	done := make(chan struct{})

	c.mu.Lock()
	c.state = StateAwaitingRedirect
	c.transport = transport
	c.cancel = cancel
	c.done = done
	c.mu.Unlock()

	c.logger.Info("login flow started",
		slog.String("provider", string(provider)),
		slog.String("attempt_id", attemptID),
		slog.String("transport", string(transport.Kind())),
	)

	go c.runAttempt(attemptCtx, attemptID, transport, done)

	return authorizeURL, nil
}

// runAttempt は完了検知を駆動する。ポーリング型トランスポートでは
// セッションチェックを固定間隔で叩き、埋め込み型ではナビゲーション
// 通知（NotifyNavigation）か強制タイムアウトを待つ。
func (c *Controller) runAttempt(ctx context.Context, attemptID string, transport Transport, done chan struct{}) {
	defer close(done)

	if transport.NeedsPolling() {
		poller := NewPoller(c.cfg.PollInterval, c.cfg.PollMaxAttempts)
		err := poller.Run(ctx, func(ctx context.Context) bool {
			if c.metrics != nil {
				c.metrics.RecordPollTick()
			}
			// ネットワーク障害は「まだ認証されていない」として扱う
			return c.sessions.Refresh(ctx).IsAuthenticated()
		})
		switch {
		case err == nil:
			c.finalize(ctx, attemptID)
		case errors.Is(err, ErrPollExhausted), errors.Is(err, context.DeadlineExceeded):
			c.failAttempt(attemptID, model.NewLoginTimeoutError())
		default:
			// キャンセル: 画面破棄またはログアウト。状態は呼び出し側が設定済み。
		}
		return
	}

	<-ctx.Done()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		c.failAttempt(attemptID, model.NewLoginTimeoutError())
	}
}

// NotifyNavigation は埋め込みサーフェスのナビゲーションイベントを受け取る。
// finalize URLプレフィックスへの到達を検知するとFinalizingへ遷移する。
func (c *Controller) NotifyNavigation(ctx context.Context, rawURL string) {
	if !c.registry.MatchesFinalize(rawURL) {
		return
	}

	c.mu.Lock()
	attemptID := c.attemptID
	ok := c.state == StateAwaitingRedirect
	c.mu.Unlock()
	if !ok {
		return
	}

	c.finalize(ctx, attemptID)
}

// finalize はセッションチェックで認証の確立を確認し、Authenticatedへ遷移する。
// 1試行につき最大1回しか実行されない。サーフェスは認証済み状態を報告する前に
// 必ず破棄される。
func (c *Controller) finalize(ctx context.Context, attemptID string) {
	c.mu.Lock()
	if c.attemptID != attemptID || c.finalized || c.state != StateAwaitingRedirect {
		c.mu.Unlock()
		return
	}
	c.finalized = true
	c.state = StateFinalizing
	transport := c.transport
	provider := c.provider
	c.mu.Unlock()

	me := c.sessions.Refresh(ctx)
	if !me.IsAuthenticated() {
		// finalizeページ到達後もセッションが見えない場合は少しだけ追いかける
		poller := NewPoller(c.cfg.PollInterval, c.cfg.PollMaxAttempts)
		err := poller.Run(ctx, func(ctx context.Context) bool {
			return c.sessions.Refresh(ctx).IsAuthenticated()
		})
		if err != nil {
			if transport != nil {
				transport.Teardown()
			}
			c.failAttempt(attemptID, model.NewLoginTimeoutError())
			return
		}
	}

	// サインイン済み表示に切り替える前にサーフェスを破棄する
	if transport != nil {
		transport.Teardown()
	}

	c.mu.Lock()
	c.state = StateAuthenticated
	c.transport = nil
	cancel := c.cancel
	c.cancel = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if c.metrics != nil {
		c.metrics.RecordLoginResult(string(provider), "success")
	}
	c.logger.Info("login completed",
		slog.String("provider", string(provider)),
		slog.String("attempt_id", attemptID),
	)
}

// CompleteWithCode はネイティブの認可コード交換フローを完了させる。
// expo-auth-session型のフローで、トランスポートを経由せずに呼ばれる。
func (c *Controller) CompleteWithCode(ctx context.Context, code, redirectURI string) error {
	if err := c.client.ExchangeGithubCode(ctx, code, redirectURI); err != nil {
		c.logger.Warn("authorization code exchange failed",
			slog.String("error", err.Error()),
		)
		return model.NewLoginTimeoutError()
	}

	me := c.sessions.Refresh(ctx)
	if !me.IsAuthenticated() {
		return model.NewLoginTimeoutError()
	}

	c.mu.Lock()
	c.state = StateAuthenticated
	c.lastErr = nil
	c.mu.Unlock()
	return nil
}

// Dismiss は進行中のログインフローを中断する（画面破棄時）。
// ポーリングタイマーを停止し、サーフェスを破棄してIdleへ戻る。
func (c *Controller) Dismiss() {
	c.mu.Lock()
	cancel := c.cancel
	transport := c.transport
	c.cancel = nil
	c.transport = nil
	c.state = StateIdle
	c.lastErr = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if transport != nil {
		transport.Teardown()
	}
}

// Logout は明示的なログアウトを行う。バックエンド呼び出しはベストエフォートで、
// 失敗してもセッションストアは必ずクリアされる（ネットワーク断でUIが
// サインイン済み表示のまま固まることを防ぐ）。
func (c *Controller) Logout(ctx context.Context) {
	c.Dismiss()

	if err := c.client.Logout(ctx); err != nil {
		c.logger.Warn("logout request failed (session cleared anyway)",
			slog.String("error", err.Error()),
		)
	}
	c.sessions.Set(model.UnauthenticatedSession())
}

// failAttempt は試行を失敗状態にする。進行中の試行と一致しない場合は無視する。
func (c *Controller) failAttempt(attemptID string, apiErr *model.APIError) {
	c.mu.Lock()
	if c.attemptID != attemptID || c.state == StateAuthenticated || c.state == StateFailed {
		c.mu.Unlock()
		return
	}
	provider := c.provider
	transport := c.transport
	cancel := c.cancel
	c.transport = nil
	c.cancel = nil
	c.state = StateFailed
	c.lastErr = apiErr
	c.mu.Unlock()

	if transport != nil {
		transport.Teardown()
	}
	if cancel != nil {
		cancel()
	}
	if c.metrics != nil {
		c.metrics.RecordLoginResult(string(provider), "failure")
	}
	c.logger.Warn("login attempt failed",
		slog.String("provider", string(provider)),
		slog.String("attempt_id", attemptID),
		slog.String("code", apiErr.Code),
	)
}
