package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gradquest/appcore/internal/middleware"
	"github.com/gradquest/appcore/internal/model"
	"github.com/gradquest/appcore/internal/preference"
)

// PreferenceFlowInterface は志望条件ハンドラーが必要とするフローインターフェース。
type PreferenceFlowInterface interface {
	LoadExisting(ctx context.Context) (*model.PreferenceProfile, error)
	Submit(ctx context.Context, input *preference.Input) (*preference.Result, error)
}

// PreferenceHandler は志望条件インテークのHTTPハンドラー。
type PreferenceHandler struct {
	flow PreferenceFlowInterface
}

// NewPreferenceHandler はPreferenceHandlerを生成する。
func NewPreferenceHandler(flow PreferenceFlowInterface) *PreferenceHandler {
	return &PreferenceHandler{flow: flow}
}

// Get は保存済みの志望条件プロファイルを返す。未保存の場合は204。
// GET /api/preferences
func (h *PreferenceHandler) Get(w http.ResponseWriter, r *http.Request) {
	profile, err := h.flow.LoadExisting(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if profile == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// submitResponse はインテーク送信レスポンス。保存失敗時はエラー情報も併記する。
type submitResponse struct {
	*preference.Result
	Error *errorStatePayload `json:"error,omitempty"`
}

// Submit は志望条件を保存し、推薦校の上位リストを返す。
// 保存に失敗しても推薦取得に成功した場合は200で返し、
// saved=falseとerrorフィールドで失敗を可視化する。
// POST /api/preferences
func (h *PreferenceHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var input preference.Input
	if err := decodeJSON(r, &input); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "リクエストボディを解析できませんでした。",
			Category: "validation",
			Action:   "リクエストボディを確認してください。",
		})
		return
	}

	result, err := h.flow.Submit(r.Context(), &input)
	if err != nil {
		var apiErr *model.APIError
		if result != nil && errors.As(err, &apiErr) && apiErr.Code == model.ErrCodePreferenceSave {
			writeJSON(w, http.StatusOK, submitResponse{
				Result: result,
				Error: &errorStatePayload{
					Code:    apiErr.Code,
					Message: apiErr.Message,
					Action:  apiErr.Action,
				},
			})
			return
		}
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, submitResponse{Result: result})
}
