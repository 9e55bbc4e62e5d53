// Package middleware はGinベースのHTTP APIで使用する共通ミドルウェアを提供する。
//
// 共有シークレットによる認可、リクエストIDの付与、構造化リクエストログ、
// パニックリカバリ、CORS設定、ボディサイズ制限を含む。
package middleware
