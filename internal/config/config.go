package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Platform はアプリが動作するプラットフォーム種別を表す。
// バックエンドURLのデフォルトとログイントランスポートの選択に影響する。
type Platform string

const (
	PlatformIOS     Platform = "ios"
	PlatformAndroid Platform = "android"
	PlatformWeb     Platform = "web"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Backend
	BackendBaseURL string
	FinalizePath   string
	HTTPTimeout    time.Duration

	// OAuth
	GithubClientID string

	// Login flow
	Platform         Platform
	LoginTransport   string // embedded / popup / redirect
	PollInterval     time.Duration
	PollMaxAttempts  int
	LoginHardTimeout time.Duration

	// Local storage
	DataDir string

	// UI bridge server
	BridgePort        string
	CORSAllowedOrigin string
}

// Androidエミュレータはホストのlocalhostを10.0.2.2で参照する。
const (
	defaultBaseURL        = "http://localhost:8080"
	defaultBaseURLAndroid = "http://10.0.2.2:8080"
)

// Load は環境変数からConfigを読み込む。
// バックエンドURLが未指定の場合はプラットフォームに応じたデフォルトを使用する。
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.Platform = Platform(getEnvString("PLATFORM", string(PlatformIOS)))
	switch cfg.Platform {
	case PlatformIOS, PlatformAndroid, PlatformWeb:
	default:
		return nil, fmt.Errorf("unsupported PLATFORM: %q", cfg.Platform)
	}

	base := os.Getenv("BACKEND_BASE_URL")
	if base == "" {
		if cfg.Platform == PlatformAndroid {
			base = defaultBaseURLAndroid
		} else {
			base = defaultBaseURL
		}
	}
	parsed, err := url.Parse(base)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid BACKEND_BASE_URL: %q", base)
	}
	cfg.BackendBaseURL = strings.TrimRight(base, "/")

	cfg.FinalizePath = getEnvString("FINALIZE_PATH", "/oauth2/final")
	if !strings.HasPrefix(cfg.FinalizePath, "/") {
		cfg.FinalizePath = "/" + cfg.FinalizePath
	}

	cfg.GithubClientID = os.Getenv("GITHUB_CLIENT_ID")

	defaultTransport := "embedded"
	if cfg.Platform == PlatformWeb {
		defaultTransport = "popup"
	}
	cfg.LoginTransport = getEnvString("LOGIN_TRANSPORT", defaultTransport)
	switch cfg.LoginTransport {
	case "embedded", "popup", "redirect":
	default:
		return nil, fmt.Errorf("unsupported LOGIN_TRANSPORT: %q", cfg.LoginTransport)
	}

	cfg.HTTPTimeout = getEnvDuration("HTTP_TIMEOUT", 10*time.Second)
	cfg.PollInterval = getEnvDuration("POLL_INTERVAL", 2*time.Second)
	cfg.PollMaxAttempts = getEnvInt("POLL_MAX_ATTEMPTS", 15)
	cfg.LoginHardTimeout = getEnvDuration("LOGIN_HARD_TIMEOUT", 5*time.Minute)

	cfg.DataDir = getEnvString("DATA_DIR", defaultDataDir())
	cfg.BridgePort = getEnvString("BRIDGE_PORT", "8787")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:8081")

	return cfg, nil
}

// defaultDataDir はローカルデータの保存先ディレクトリのデフォルトを返す。
// ユーザー設定ディレクトリが取得できない場合はカレントディレクトリ配下を使用する。
func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "gradquest")
	}
	return ".gradquest"
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
