package handler

import (
	"context"
	"net/http"

	"github.com/gradquest/appcore/internal/middleware"
	"github.com/gradquest/appcore/internal/model"
	"github.com/gradquest/appcore/internal/sop"
)

// maxResumeSize はレジュメアップロードの上限（10MB）。
const maxResumeSize = 10 << 20

// SOPGeneratorInterface はSOPハンドラーが必要とするジェネレーターインターフェース。
type SOPGeneratorInterface interface {
	Generate(ctx context.Context, req *sop.Request) (string, error)
}

// SOPHandler はSOP生成のHTTPハンドラー。
type SOPHandler struct {
	generator SOPGeneratorInterface
}

// NewSOPHandler はSOPHandlerを生成する。
func NewSOPHandler(generator SOPGeneratorInterface) *SOPHandler {
	return &SOPHandler{generator: generator}
}

// Generate はmultipartでアップロードされたレジュメからSOPドラフトを生成する。
// POST /api/sop/generate
func (h *SOPHandler) Generate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxResumeSize)
	if err := r.ParseMultipartForm(maxResumeSize); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "multipartリクエストを解析できませんでした。",
			Category: "validation",
			Action:   "レジュメファイルのサイズと形式を確認してください。",
		})
		return
	}

	file, header, err := r.FormFile("resume")
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "resumeフィールドが必要です。",
			Category: "validation",
			Action:   "レジュメのPDFファイルを添付してください。",
		})
		return
	}
	defer file.Close()

	draft, err := h.generator.Generate(r.Context(), &sop.Request{
		Resume:           file,
		Filename:         header.Filename,
		TargetProgram:    r.FormValue("targetProgram"),
		TargetUniversity: r.FormValue("targetUniversity"),
		ExtraNotes:       r.FormValue("extraNotes"),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"sopDraft": draft})
}
