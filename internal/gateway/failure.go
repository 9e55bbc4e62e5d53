package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/nao1215/evogate/pkg/httpclient"
)

// Kind は失敗の種類。
type Kind string

const (
	// KindUnauthorized は共有シークレットの検証に失敗したことを表す。
	KindUnauthorized Kind = "Unauthorized"
	// KindRouteNotFound はどのルートにも一致しなかったことを表す。
	KindRouteNotFound Kind = "RouteNotFound"
	// KindMalformedRequest はリクエストが構造的な要件を満たさないことを表す。
	KindMalformedRequest Kind = "MalformedRequest"
	// KindRequestTooLarge はリクエストボディが上限を超えたことを表す。
	KindRequestTooLarge Kind = "RequestTooLarge"
	// KindUpstreamRejected は上流が2xx以外のステータスを返したことを表す。
	KindUpstreamRejected Kind = "UpstreamRejected"
	// KindUpstreamTransportFailure は上流に到達できなかったことを表す。
	KindUpstreamTransportFailure Kind = "UpstreamTransportFailure"
	// KindInternal はゲートウェイ内部の想定外の失敗を表す。
	KindInternal Kind = "Internal"
)

// エンベロープのerrorに入る固定メッセージ。
const (
	msgUnauthorized     = "Unauthorized"
	msgInvalidSecret    = "Invalid API secret"
	msgNotFound         = "Endpoint not found"
	msgTimeout          = "Upstream request timed out"
	msgTransportFailure = "Upstream request failed"
	msgTooLarge         = "Request body too large"
	msgInternal         = "Internal server error"
)

// Failure はゲートウェイが返す失敗。どの段階で発生した失敗もこの型に正規化してから
// エンベロープに変換する。
type Failure struct {
	// Kind は失敗の種類。
	Kind Kind
	// UpstreamStatus は上流のステータスコード。上流の応答がない場合は0。
	UpstreamStatus int
	// Message はエンベロープのerrorに入るメッセージ。
	Message string
	// Details はエンベロープのdetailsに入るJSON値。nilの場合はnull。
	Details json.RawMessage
	// Err は元のエラー。
	Err error
}

// Error はerrorインターフェースを実装する。
func (f *Failure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("%s: %s: %v", f.Kind, f.Message, f.Err)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

// Unwrap は元のエラーを返す。
func (f *Failure) Unwrap() error {
	return f.Err
}

// HTTPStatus は失敗の種類に対応するHTTPステータスコードを返す。
// UpstreamRejectedは上流のステータスをそのまま使う。エラーとして返せない値の場合は500。
func (f *Failure) HTTPStatus() int {
	switch f.Kind {
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindRouteNotFound:
		return http.StatusNotFound
	case KindMalformedRequest:
		return http.StatusBadRequest
	case KindRequestTooLarge:
		return http.StatusRequestEntityTooLarge
	case KindUpstreamRejected:
		if f.UpstreamStatus >= 400 && f.UpstreamStatus <= 599 {
			return f.UpstreamStatus
		}
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// forwarded は上流への呼び出しが行われた失敗かどうかを返す。
func (f *Failure) forwarded() bool {
	return f.Kind == KindUpstreamRejected || f.Kind == KindUpstreamTransportFailure
}

// unauthorized は認可失敗を生成する。
func unauthorized() *Failure {
	return &Failure{
		Kind:    KindUnauthorized,
		Message: msgUnauthorized,
		Details: mustJSON(map[string]string{"message": msgInvalidSecret}),
	}
}

// routeNotFound はルート未一致の失敗を生成する。detailsには有効なルート群のプレフィックスを列挙する。
func routeNotFound(prefixes []string) *Failure {
	return &Failure{
		Kind:    KindRouteNotFound,
		Message: msgNotFound,
		Details: mustJSON(map[string][]string{"availableEndpoints": prefixes}),
	}
}

// malformed は不正なリクエストの失敗を生成する。
func malformed(message string, details any, err error) *Failure {
	f := &Failure{Kind: KindMalformedRequest, Message: message, Err: err}
	if details != nil {
		f.Details = mustJSON(details)
	}
	return f
}

// internal は内部エラーの失敗を生成する。
func internal(err error) *Failure {
	return &Failure{Kind: KindInternal, Message: msgInternal, Err: err}
}

// classify は任意のエラーをちょうど1つの失敗の種類に分類する。
func classify(err error) *Failure {
	var f *Failure
	if errors.As(err, &f) {
		return f
	}

	var statusErr *httpclient.StatusError
	if errors.As(err, &statusErr) {
		return &Failure{
			Kind:           KindUpstreamRejected,
			UpstreamStatus: statusErr.StatusCode,
			Message:        statusErr.Message,
			Details:        statusErr.Body,
			Err:            err,
		}
	}

	var transportErr *httpclient.TransportError
	if errors.As(err, &transportErr) {
		msg := msgTransportFailure
		if transportErr.Timeout {
			msg = msgTimeout
		}
		return &Failure{Kind: KindUpstreamTransportFailure, Message: msg, Err: err}
	}

	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return &Failure{
			Kind:    KindRequestTooLarge,
			Message: msgTooLarge,
			Details: mustJSON(map[string]int64{"limit": maxBytesErr.Limit}),
			Err:     err,
		}
	}

	return internal(err)
}

// mustJSON は必ず成功する値をJSONにシリアライズする。
func mustJSON(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("JSONシリアライズに失敗: %v", err))
	}
	return b
}
