package backend

// CallResult はHTTPステータスコードに基づくバックエンド呼び出し結果の分類。
type CallResult int

const (
	// CallResultOK は成功（2xx）。
	CallResultOK CallResult = iota
	// CallResultUnauthenticated は未認証扱いのステータス（401/403）。
	CallResultUnauthenticated
	// CallResultNotFound はリソース不在（404/410）。
	CallResultNotFound
	// CallResultRetryable は再試行の余地があるステータス（408/429/5xx）。
	CallResultRetryable
	// CallResultUnknown は上記以外。
	CallResultUnknown
)

// ClassifyHTTPStatus はHTTPステータスコードを呼び出し結果に分類する。
// 呼び出し側はこの分類に基づいて「未認証として扱う」「データなしとして扱う」を選ぶ。
func ClassifyHTTPStatus(statusCode int) CallResult {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return CallResultOK
	case statusCode == 401 || statusCode == 403:
		return CallResultUnauthenticated
	case statusCode == 404 || statusCode == 410:
		return CallResultNotFound
	case statusCode == 408 || statusCode == 429:
		return CallResultRetryable
	case statusCode >= 500:
		return CallResultRetryable
	default:
		return CallResultUnknown
	}
}
