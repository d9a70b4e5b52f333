package authflow

import (
	"context"
	"errors"
	"time"

	"golang.org/x/time/rate"
)

// ErrPollExhausted は試行回数の上限に達してもチェックが成立しなかったことを示す。
var ErrPollExhausted = errors.New("poll attempts exhausted")

// Poller は固定間隔・回数上限付きのキャンセル可能なポーリング抽象。
// タイマーハンドルを可変参照に持ち回る代わりに、contextのキャンセルで
// 確実に停止できるようにする。
type Poller struct {
	interval    time.Duration
	maxAttempts int
}

// NewPoller はPollerを生成する。
// intervalが0以下の場合は2秒、maxAttemptsが0以下の場合は15を使用する。
func NewPoller(interval time.Duration, maxAttempts int) *Poller {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if maxAttempts <= 0 {
		maxAttempts = 15
	}
	return &Poller{
		interval:    interval,
		maxAttempts: maxAttempts,
	}
}

// Run はcheckがtrueを返すまで固定間隔でポーリングする。
// checkが成立したらnil、回数上限に達したらErrPollExhausted、
// contextがキャンセルされたらctx.Err()を返す。
// 最初のチェックも1インターバル待ってから行う。
func (p *Poller) Run(ctx context.Context, check func(ctx context.Context) bool) error {
	limiter := rate.NewLimiter(rate.Every(p.interval), 1)
	// 初期トークンを消費し、最初のチェックまで1インターバル空ける
	limiter.Allow()

	for attempt := 0; attempt < p.maxAttempts; attempt++ {
		if err := limiter.Wait(ctx); err != nil {
			return ctx.Err()
		}
		if check(ctx) {
			return nil
		}
	}
	return ErrPollExhausted
}
