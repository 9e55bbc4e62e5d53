package event

import (
	"encoding/json"
	"time"
)

// Type はイベントの種類を表す。
type Type string

const (
	// TypeUpstreamCallSucceeded は上流サービスの呼び出しが成功したことを表す。
	TypeUpstreamCallSucceeded Type = "UpstreamCallSucceeded"
	// TypeUpstreamCallFailed は上流サービスの呼び出しが失敗したことを表す。
	TypeUpstreamCallFailed Type = "UpstreamCallFailed"
)

// Event はゲートウェイが上流サービスを呼び出した結果を表す不変のレコード。
// レスポンスの返却後に発行され、レスポンスの内容には影響しない。
type Event struct {
	// ID はイベントの一意識別子（UUID）。
	ID string `json:"id"`
	// EventType はイベントの種類。
	EventType Type `json:"event_type"`
	// Operation は呼び出した上流操作の名前。
	Operation string `json:"operation"`
	// Instance は対象インスタンス名。インスタンスに紐付かない操作では空。
	Instance string `json:"instance,omitempty"`
	// RequestID はゲートウェイが割り当てたリクエストID。
	RequestID string `json:"request_id,omitempty"`
	// Data はイベント固有のデータ（JSON形式）。
	Data json.RawMessage `json:"data"`
	// CreatedAt はイベントが作成された日時。
	CreatedAt time.Time `json:"created_at"`
}

// UpstreamCallSucceededData はUpstreamCallSucceededイベントのデータ。
type UpstreamCallSucceededData struct {
	// Method はゲートウェイが受けたリクエストのHTTPメソッド。
	Method string `json:"method"`
	// Route はマッチしたルートパターン。
	Route string `json:"route"`
	// DurationMS は上流呼び出しにかかった時間（ミリ秒）。
	DurationMS int64 `json:"duration_ms"`
}

// UpstreamCallFailedData はUpstreamCallFailedイベントのデータ。
type UpstreamCallFailedData struct {
	// Method はゲートウェイが受けたリクエストのHTTPメソッド。
	Method string `json:"method"`
	// Route はマッチしたルートパターン。
	Route string `json:"route"`
	// Kind は失敗の種類。
	Kind string `json:"kind"`
	// UpstreamStatus は上流のステータスコード。到達できなかった場合は0。
	UpstreamStatus int `json:"upstream_status,omitempty"`
	// Message は失敗の説明。
	Message string `json:"message"`
	// DurationMS は上流呼び出しにかかった時間（ミリ秒）。
	DurationMS int64 `json:"duration_ms"`
}
