package httpclient

import (
	"encoding/json"
	"fmt"
)

// StatusError は上流サービスが2xx以外のステータスを返したことを表す。
type StatusError struct {
	// StatusCode は上流サービスのHTTPステータスコード。
	StatusCode int
	// Body は上流サービスのレスポンスボディ（JSON値）。
	Body json.RawMessage
	// Message はエラーの説明。
	Message string
}

// Error はerrorインターフェースを実装する。
func (e *StatusError) Error() string {
	return e.Message
}

// TransportError は上流サービスに到達できなかったことを表す。
// 接続拒否、DNS解決失敗、タイムアウトなどが該当し、ステータスコードは存在しない。
type TransportError struct {
	// Method はHTTPメソッド。
	Method string
	// URL はリクエスト先のURL。
	URL string
	// Timeout はタイムアウトによる失敗かどうか。
	Timeout bool
	// Err は元のエラー。
	Err error
}

// Error はerrorインターフェースを実装する。
func (e *TransportError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("上流サービスがタイムアウトしました: %s %s", e.Method, e.URL)
	}
	return fmt.Sprintf("上流サービスとの通信に失敗: %s %s: %v", e.Method, e.URL, e.Err)
}

// Unwrap は元のエラーを返す。
func (e *TransportError) Unwrap() error {
	return e.Err
}
