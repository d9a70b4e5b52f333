package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gradquest/appcore/internal/bookmark"
	"github.com/gradquest/appcore/internal/middleware"
	"github.com/gradquest/appcore/internal/model"
)

// BookmarkStoreInterface はブックマークハンドラーが必要とするストアインターフェース。
type BookmarkStoreInterface interface {
	Add(ctx context.Context, item *model.SavedApplication) error
	Remove(ctx context.Context, id string) error
	List() []*model.SavedApplication
	TutorialDone(ctx context.Context) bool
	MarkTutorialDone(ctx context.Context) error
	ResetTutorial(ctx context.Context) error
}

// LinkValidator は外部リンクの安全性検証インターフェース。
type LinkValidator interface {
	CheckLink(ctx context.Context, rawURL string) error
}

// BookmarkMetrics はブックマーク数のメトリクス記録インターフェース。
type BookmarkMetrics interface {
	RecordBookmarkCount(count int)
}

// BookmarkHandler はブックマーク関連のHTTPハンドラー。
type BookmarkHandler struct {
	store     BookmarkStoreInterface
	linkGuard LinkValidator
	metrics   BookmarkMetrics
}

// NewBookmarkHandler はBookmarkHandlerを生成する。metricsはnilでもよい。
func NewBookmarkHandler(store BookmarkStoreInterface, linkGuard LinkValidator, metrics BookmarkMetrics) *BookmarkHandler {
	return &BookmarkHandler{
		store:     store,
		linkGuard: linkGuard,
		metrics:   metrics,
	}
}

// List は保存済みのブックマーク一覧を返す（新しいものが先頭）。
// GET /api/bookmarks
func (h *BookmarkHandler) List(w http.ResponseWriter, r *http.Request) {
	items := h.store.List()
	if h.metrics != nil {
		h.metrics.RecordBookmarkCount(len(items))
	}
	writeJSON(w, http.StatusOK, items)
}

// addBookmarkRequest はブックマーク追加リクエスト。
type addBookmarkRequest struct {
	ID       string `json:"id"`
	SchoolID string `json:"schoolId"`
	Name     string `json:"name"`
	Program  string `json:"program"`
	Urgent   bool   `json:"urgent"`
	Link     string `json:"link"`
}

// Add はブックマークを追加する。同一IDが既に存在する場合は何もしない。
// 外部リンクが付いている場合は安全性を事前検証する。
// POST /api/bookmarks
func (h *BookmarkHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req addBookmarkRequest
	if err := decodeJSON(r, &req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "リクエストボディを解析できませんでした。",
			Category: "validation",
			Action:   "リクエストボディを確認してください。",
		})
		return
	}

	if req.Link != "" && h.linkGuard != nil {
		if err := h.linkGuard.CheckLink(r.Context(), req.Link); err != nil {
			writeError(w, model.NewUnsafeLinkError(err.Error()))
			return
		}
	}

	item := &model.SavedApplication{
		ID:      req.ID,
		Name:    req.Name,
		Program: req.Program,
		Urgent:  req.Urgent,
		Link:    req.Link,
	}
	if item.ID == "" {
		item.ID = bookmark.DeriveID(req.ID, req.SchoolID, req.Name)
	}

	if err := h.store.Add(r.Context(), item); err != nil {
		writeError(w, err)
		return
	}

	items := h.store.List()
	if h.metrics != nil {
		h.metrics.RecordBookmarkCount(len(items))
	}
	writeJSON(w, http.StatusCreated, items)
}

// Remove は指定IDのブックマークを削除する。存在しないIDでも成功として扱う。
// DELETE /api/bookmarks/{id}
func (h *BookmarkHandler) Remove(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.store.Remove(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	items := h.store.List()
	if h.metrics != nil {
		h.metrics.RecordBookmarkCount(len(items))
	}
	writeJSON(w, http.StatusOK, items)
}

// TutorialState はチュートリアル完了フラグを返す。
// GET /api/tutorial
func (h *BookmarkHandler) TutorialState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"completed": h.store.TutorialDone(r.Context())})
}

// CompleteTutorial はチュートリアル完了フラグを立てる。
// POST /api/tutorial/complete
func (h *BookmarkHandler) CompleteTutorial(w http.ResponseWriter, r *http.Request) {
	if err := h.store.MarkTutorialDone(r.Context()); err != nil {
		writeError(w, model.NewBookmarkPersistError(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"completed": true})
}

// ResetTutorial はチュートリアル完了フラグを取り消す。
// DELETE /api/tutorial
func (h *BookmarkHandler) ResetTutorial(w http.ResponseWriter, r *http.Request) {
	if err := h.store.ResetTutorial(r.Context()); err != nil {
		writeError(w, model.NewBookmarkPersistError(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"completed": false})
}
