// Package sop はレジュメからのSOPドラフト生成を提供する。
package sop

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/gradquest/appcore/internal/endpoint"
	"github.com/gradquest/appcore/internal/model"
	"github.com/microcosm-cc/bluemonday"
)

// Backend はジェネレーターが必要とするバックエンド呼び出しのインターフェース。
type Backend interface {
	GenerateSOP(ctx context.Context, resume io.Reader, filename string, params endpoint.SOPParams) (string, error)
}

// SessionSource はサインイン状態の確認に使うセッションストアのインターフェース。
type SessionSource interface {
	Current() *model.Session
	Refresh(ctx context.Context) *model.Session
}

// Request はSOP生成リクエスト。Resumeはレジュメ（PDF）のストリーム。
type Request struct {
	Resume           io.Reader
	Filename         string
	TargetProgram    string
	TargetUniversity string
	ExtraNotes       string
}

// Generator はレジュメのアップロードとSOPドラフトの取得を行う。
// 取得したドラフトはHTMLタグを除去したプレーンテキストとして返す。
type Generator struct {
	backend   Backend
	sessions  SessionSource
	sanitizer *bluemonday.Policy
	logger    *slog.Logger
}

// NewGenerator はGeneratorを生成する。
func NewGenerator(backend Backend, sessions SessionSource, logger *slog.Logger) *Generator {
	return &Generator{
		backend:   backend,
		sessions:  sessions,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger,
	}
}

// Generate はレジュメをアップロードし、生成されたSOPドラフトを返す。
func (g *Generator) Generate(ctx context.Context, req *Request) (string, error) {
	session := g.sessions.Current()
	if !session.IsAuthenticated() {
		session = g.sessions.Refresh(ctx)
	}
	if !session.IsAuthenticated() {
		return "", model.NewNotSignedInError()
	}

	if req.Resume == nil {
		return "", model.NewSOPGenerationError("レジュメファイルが指定されていません")
	}

	draft, err := g.backend.GenerateSOP(ctx, req.Resume, req.Filename, endpoint.SOPParams{
		TargetProgram:    req.TargetProgram,
		TargetUniversity: req.TargetUniversity,
		ExtraNotes:       req.ExtraNotes,
	})
	if err != nil {
		g.logger.Warn("sop generation failed",
			slog.String("error", err.Error()),
		)
		return "", model.NewSOPGenerationError("バックエンドへのリクエストが失敗しました")
	}

	// バックエンドが返すドラフトにマークアップが混ざっても
	// プレーンテキストとして安全に表示できるようにする
	draft = strings.TrimSpace(g.sanitizer.Sanitize(draft))
	if draft == "" {
		return "", model.NewSOPGenerationError("生成結果が空でした")
	}
	return draft, nil
}
