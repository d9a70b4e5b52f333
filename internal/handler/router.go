package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gradquest/appcore/internal/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	Logger            *slog.Logger
	CORSAllowedOrigin string
	GithubClientID    string
	Gatherer          prometheus.Gatherer

	Sessions    SessionStoreInterface
	LoginFlow   LoginFlowInterface
	Bookmarks   BookmarkStoreInterface
	LinkGuard   LinkValidator
	Preferences PreferenceFlowInterface
	Reminders   ReminderServiceInterface
	SOP         SOPGeneratorInterface

	BookmarkMetrics BookmarkMetrics
}

// NewRouter は全ブリッジエンドポイントのルーティングとミドルウェアチェーンを
// 構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RecoveryMiddleware → LoggingMiddleware → CORSMiddleware
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	sessionHandler := NewSessionHandler(deps.Sessions)
	loginHandler := NewLoginHandler(deps.LoginFlow, deps.GithubClientID)
	bookmarkHandler := NewBookmarkHandler(deps.Bookmarks, deps.LinkGuard, deps.BookmarkMetrics)
	preferenceHandler := NewPreferenceHandler(deps.Preferences)
	reminderHandler := NewReminderHandler(deps.Reminders)
	sopHandler := NewSOPHandler(deps.SOP)

	// 稼働確認
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Prometheusスクレイプ
	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	// セッション
	r.Route("/api/session", func(r chi.Router) {
		r.Get("/", sessionHandler.Get)
		r.Post("/refresh", sessionHandler.Refresh)
	})

	// ログインフロー
	r.Route("/api/login", func(r chi.Router) {
		r.Get("/state", loginHandler.State)
		r.Post("/nav", loginHandler.Navigation)
		r.Post("/exchange", loginHandler.Exchange)
		r.Post("/dismiss", loginHandler.Dismiss)
		r.Post("/{provider}", loginHandler.Start)
	})
	r.Post("/api/logout", loginHandler.Logout)

	// ブックマーク
	r.Route("/api/bookmarks", func(r chi.Router) {
		r.Get("/", bookmarkHandler.List)
		r.Post("/", bookmarkHandler.Add)
		r.Delete("/{id}", bookmarkHandler.Remove)
	})

	// チュートリアルフラグ
	r.Route("/api/tutorial", func(r chi.Router) {
		r.Get("/", bookmarkHandler.TutorialState)
		r.Post("/complete", bookmarkHandler.CompleteTutorial)
		r.Delete("/", bookmarkHandler.ResetTutorial)
	})

	// 志望条件インテーク
	r.Route("/api/preferences", func(r chi.Router) {
		r.Get("/", preferenceHandler.Get)
		r.Post("/", preferenceHandler.Submit)
	})

	// リマインダー
	r.Route("/api/reminders", func(r chi.Router) {
		r.Get("/", reminderHandler.List)
		r.Delete("/{id}", reminderHandler.Delete)
		r.Patch("/{id}/complete", reminderHandler.Complete)
	})

	// SOP生成
	r.Post("/api/sop/generate", sopHandler.Generate)

	return r
}
