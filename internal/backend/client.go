// Package backend はグラッドスクール出願バックエンドのRESTクライアントを提供する。
// セッションCookieの継続のためcookie jar付きHTTPクライアントを使用する。
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/gradquest/appcore/internal/endpoint"
	"github.com/gradquest/appcore/internal/model"
)

// maxResponseSize はレスポンスボディ読み取りの上限（1MB）。
const maxResponseSize = 1 << 20

// MetricsRecorder はバックエンド呼び出しのメトリクス記録インターフェース。
type MetricsRecorder interface {
	RecordHTTPStatus(statusCode int)
	RecordBackendLatency(duration time.Duration)
}

// Client はバックエンドAPIのクライアント。
// 全メソッドはネットワーク失敗・非2xx・JSON不正をエラーとして返し、
// 「飲み込んで劣化させる」判断は呼び出し側のストア／フローが行う。
type Client struct {
	httpClient *http.Client
	registry   *endpoint.Registry
	logger     *slog.Logger
	metrics    MetricsRecorder
}

// NewClient はClientの新しいインスタンスを生成する。
// httpClientがnilの場合はcookie jar付きのクライアントを生成する。
// metricsはnilでもよい（記録をスキップする）。
func NewClient(httpClient *http.Client, registry *endpoint.Registry, logger *slog.Logger, metrics MetricsRecorder) *Client {
	if httpClient == nil {
		jar, _ := cookiejar.New(nil)
		httpClient = &http.Client{
			Timeout: 10 * time.Second,
			Jar:     jar,
		}
	}
	return &Client{
		httpClient: httpClient,
		registry:   registry,
		logger:     logger,
		metrics:    metrics,
	}
}

// Registry はクライアントが使用するエンドポイントレジストリを返す。
func (c *Client) Registry() *endpoint.Registry {
	return c.registry
}

// FetchMe はセッションチェックエンドポイントを呼び出し、現在のセッションを返す。
func (c *Client) FetchMe(ctx context.Context) (*model.Session, error) {
	body, err := c.do(ctx, http.MethodGet, c.registry.Me(), nil, "")
	if err != nil {
		return nil, err
	}

	var session model.Session
	if err := json.Unmarshal(body, &session); err != nil {
		return nil, fmt.Errorf("failed to parse session response: %w", err)
	}
	return &session, nil
}

// Logout はサーバーセッションを破棄する。
func (c *Client) Logout(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodPost, c.registry.Logout(), nil, "")
	return err
}

// githubCallbackRequest はネイティブフローの認可コード交換リクエストボディ。
type githubCallbackRequest struct {
	Code        string `json:"code"`
	RedirectURI string `json:"redirectUri"`
}

// ExchangeGithubCode はネイティブフローの認可コードをバックエンドに送信し、
// サーバーセッションを確立させる。
func (c *Client) ExchangeGithubCode(ctx context.Context, code, redirectURI string) error {
	payload, err := json.Marshal(githubCallbackRequest{Code: code, RedirectURI: redirectURI})
	if err != nil {
		return fmt.Errorf("failed to encode callback request: %w", err)
	}
	_, err = c.do(ctx, http.MethodPost, c.registry.MobileGithubCallback(), bytes.NewReader(payload), "application/json")
	return err
}

// SavePreferences は志望条件プロファイルをバックエンドに保存する。
// paramはuserId / user_idのクエリパラメータ規約を指定する。
func (c *Client) SavePreferences(ctx context.Context, param, userID string, profile *model.PreferenceProfile) error {
	payload, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("failed to encode preference profile: %w", err)
	}
	_, err = c.do(ctx, http.MethodPost, c.registry.Preferences(param, userID), bytes.NewReader(payload), "application/json")
	return err
}

// FetchPreferences は保存済みの志望条件プロファイルを取得する。
func (c *Client) FetchPreferences(ctx context.Context, param, userID string) (*model.PreferenceProfile, error) {
	body, err := c.do(ctx, http.MethodGet, c.registry.Preferences(param, userID), nil, "")
	if err != nil {
		return nil, err
	}

	var profile model.PreferenceProfile
	if err := json.Unmarshal(body, &profile); err != nil {
		return nil, fmt.Errorf("failed to parse preference response: %w", err)
	}
	return &profile, nil
}

// TopSchools はユーザーの推薦校上位リストを取得する。
func (c *Client) TopSchools(ctx context.Context, userID string) ([]*model.RankedSchool, error) {
	body, err := c.do(ctx, http.MethodGet, c.registry.TopSchools(userID), nil, "")
	if err != nil {
		return nil, err
	}

	var schools []*model.RankedSchool
	if err := json.Unmarshal(body, &schools); err != nil {
		return nil, fmt.Errorf("failed to parse ranking response: %w", err)
	}
	return schools, nil
}

// ListReminders はユーザーのリマインダー一覧を取得する。
func (c *Client) ListReminders(ctx context.Context, userID string) ([]*model.Reminder, error) {
	body, err := c.do(ctx, http.MethodGet, c.registry.Reminders(userID), nil, "")
	if err != nil {
		return nil, err
	}

	var reminders []*model.Reminder
	if err := json.Unmarshal(body, &reminders); err != nil {
		return nil, fmt.Errorf("failed to parse reminders response: %w", err)
	}
	return reminders, nil
}

// DeleteReminder は指定IDのリマインダーを削除する。
func (c *Client) DeleteReminder(ctx context.Context, id, userID string) error {
	_, err := c.do(ctx, http.MethodDelete, c.registry.Reminder(id, userID), nil, "")
	return err
}

// CompleteReminder は指定IDのリマインダーを完了扱いにする。
func (c *Client) CompleteReminder(ctx context.Context, id, userID string) error {
	_, err := c.do(ctx, http.MethodPatch, c.registry.ReminderComplete(id, userID), nil, "")
	return err
}

// sopResponse はSOP生成エンドポイントのJSONレスポンス。
type sopResponse struct {
	SOPDraft string `json:"sopDraft"`
	Error    string `json:"error"`
}

// GenerateSOP はレジュメPDFをmultipartでアップロードし、生成されたSOP本文を返す。
// レスポンスがJSONでない場合は本文テキストをそのまま返す。
func (c *Client) GenerateSOP(ctx context.Context, resume io.Reader, filename string, params endpoint.SOPParams) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	part, err := mw.CreateFormFile("resume", filename)
	if err != nil {
		return "", fmt.Errorf("failed to create multipart field: %w", err)
	}
	if _, err := io.Copy(part, resume); err != nil {
		return "", fmt.Errorf("failed to copy resume data: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.registry.SOPGenerate(params), &buf)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("sop request failed: %w", err)
	}
	defer resp.Body.Close()

	if c.metrics != nil {
		c.metrics.RecordHTTPStatus(resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", fmt.Errorf("failed to read sop response: %w", err)
	}

	isJSON := strings.Contains(resp.Header.Get("Content-Type"), "application/json")

	if ClassifyHTTPStatus(resp.StatusCode) != CallResultOK {
		if isJSON {
			var r sopResponse
			if json.Unmarshal(body, &r) == nil && r.Error != "" {
				return "", fmt.Errorf("sop generation failed: %s", r.Error)
			}
		}
		return "", fmt.Errorf("sop generation failed with status %d", resp.StatusCode)
	}

	if isJSON {
		var r sopResponse
		if err := json.Unmarshal(body, &r); err != nil {
			return "", fmt.Errorf("failed to parse sop response: %w", err)
		}
		if r.SOPDraft == "" {
			return "", fmt.Errorf("sop response contained no draft")
		}
		return r.SOPDraft, nil
	}

	// 非JSONレスポンスは本文テキストをそのまま使用する
	return string(body), nil
}

// do はHTTPリクエストを実行し、2xxの場合にレスポンスボディを返す。
func (c *Client) do(ctx context.Context, method, rawURL string, body io.Reader, contentType string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if c.metrics != nil {
		c.metrics.RecordBackendLatency(time.Since(start))
	}
	if err != nil {
		c.logger.Warn("backend request failed",
			slog.String("method", method),
			slog.String("url", rawURL),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("backend request failed: %w", err)
	}
	defer resp.Body.Close()

	if c.metrics != nil {
		c.metrics.RecordHTTPStatus(resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if ClassifyHTTPStatus(resp.StatusCode) != CallResultOK {
		c.logger.Warn("backend returned error status",
			slog.String("method", method),
			slog.String("url", rawURL),
			slog.Int("http_status", resp.StatusCode),
		)
		return nil, fmt.Errorf("backend returned status %d", resp.StatusCode)
	}

	return data, nil
}
