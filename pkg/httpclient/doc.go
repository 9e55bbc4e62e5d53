// Package httpclient は上流のREST APIを呼び出すHTTPクライアントを提供する。
//
// 1回のリクエストを送信し、成功時はレスポンスボディを加工せずに返す。
// 上流のエラーレスポンスはStatusError、到達不能やタイムアウトはTransportErrorとして
// 呼び出し元に返す。リトライは行わない。
package httpclient
