// Package app はアプリケーションの起動とワイヤリングを提供する。
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/gradquest/appcore/internal/authflow"
	"github.com/gradquest/appcore/internal/backend"
	"github.com/gradquest/appcore/internal/bookmark"
	"github.com/gradquest/appcore/internal/config"
	"github.com/gradquest/appcore/internal/endpoint"
	"github.com/gradquest/appcore/internal/handler"
	"github.com/gradquest/appcore/internal/logger"
	"github.com/gradquest/appcore/internal/metrics"
	"github.com/gradquest/appcore/internal/preference"
	"github.com/gradquest/appcore/internal/reminder"
	"github.com/gradquest/appcore/internal/security"
	"github.com/gradquest/appcore/internal/session"
	"github.com/gradquest/appcore/internal/sop"
)

// Init はアプリケーションの初期化を行う。
// .envファイルを読み込み（存在しない場合は無視）、JSON構造化ログを
// セットアップし、環境変数からConfigを読み込む。
func Init(w io.Writer) (*config.Config, error) {
	// .envは開発用。存在しなければ環境変数のみを使う
	_ = godotenv.Load()

	logger.SetupDefault(w)

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("BRIDGE_PORT")
		if port == "" {
			port = "8787"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("platform", string(cfg.Platform)),
		slog.String("backend_base_url", cfg.BackendBaseURL),
		slog.String("bridge_port", cfg.BridgePort),
	)

	return runServe(cfg)
}

// runServe はUIブリッジサーバーモードで起動する。
// 全依存関係をワイヤリングし、起動時セッションチェックとブックマークの
// 読み込みを行った上でHTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. エンドポイントレジストリ
	registry, err := endpoint.New(cfg.BackendBaseURL, cfg.FinalizePath)
	if err != nil {
		return fmt.Errorf("failed to build endpoint registry: %w", err)
	}

	// 2. メトリクス
	promReg := prometheus.NewRegistry()
	collector := metrics.NewCollector(promReg)

	// 3. バックエンドクライアント（セッションCookie維持のためcookie jar付き）
	jar, err := cookiejar.New(nil)
	if err != nil {
		return fmt.Errorf("failed to create cookie jar: %w", err)
	}
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
		Jar:     jar,
	}
	client := backend.NewClient(httpClient, registry, slog.Default(), collector)

	// 4. セッションストア
	sessions := session.NewStore(client, slog.Default())

	// 5. ブックマークストア
	repo, err := bookmark.NewFileRepository(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("failed to open local storage: %w", err)
	}
	bookmarks := bookmark.NewStore(repo, slog.Default())

	// 6. リンクガード
	linkGuard := security.NewLinkGuard()

	// 7. ログインフローコントローラー
	newTransport := transportFactory(cfg.LoginTransport)
	controller := authflow.NewController(
		sessions, client, registry, newTransport,
		authflow.Config{
			PollInterval:    cfg.PollInterval,
			PollMaxAttempts: cfg.PollMaxAttempts,
			HardTimeout:     cfg.LoginHardTimeout,
		},
		collector, slog.Default(),
	)

	// 8. ドメインサービス
	prefFlow := preference.NewFlow(client, sessions, slog.Default())
	reminderService := reminder.NewService(client, sessions, slog.Default())
	sopGenerator := sop.NewGenerator(client, sessions, slog.Default())

	// 9. 起動時処理: 保存データの読み込みとセッションチェック
	startupCtx, startupCancel := context.WithTimeout(context.Background(), cfg.HTTPTimeout)
	bookmarks.Load(startupCtx)
	me := sessions.Refresh(startupCtx)
	startupCancel()

	slog.Info("startup state restored",
		slog.Bool("authenticated", me.IsAuthenticated()),
		slog.Int("bookmarks", len(bookmarks.List())),
	)

	// 10. ルーターの構築
	deps := &handler.RouterDeps{
		Logger:            slog.Default(),
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		GithubClientID:    cfg.GithubClientID,
		Gatherer:          promReg,

		Sessions:    sessions,
		LoginFlow:   controller,
		Bookmarks:   bookmarks,
		LinkGuard:   linkGuard,
		Preferences: prefFlow,
		Reminders:   reminderService,
		SOP:         sopGenerator,

		BookmarkMetrics: collector,
	}

	router := handler.NewRouter(deps)

	// 11. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.BridgePort,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("bridge server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down bridge server...")

	// 進行中のログインフローを止めてからHTTPサーバーを閉じる
	controller.Dismiss()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("bridge server stopped gracefully")
	return nil
}

// transportFactory は設定されたトランスポート種別のファクトリを返す。
// popup / redirect のサーフェスはUI側が開くため、openerは認可URLの
// 記録のみを行う（UIはログイン開始レスポンスのauthorizeUrlを使用する）。
func transportFactory(kind string) func() authflow.Transport {
	opener := func(url string) error {
		slog.Info("authorization surface requested", slog.String("url", url))
		return nil
	}

	switch kind {
	case "popup":
		return func() authflow.Transport { return authflow.NewPopupTransport(opener) }
	case "redirect":
		return func() authflow.Transport { return authflow.NewRedirectTransport(opener) }
	default:
		return func() authflow.Transport { return authflow.NewEmbeddedTransport() }
	}
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}
