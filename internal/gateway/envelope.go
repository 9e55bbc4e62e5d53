package gateway

import (
	"bytes"
	"encoding/json"
	"time"
)

// timestampLayout はエラーエンベロープのtimestampの形式（UTC、ミリ秒精度）。
const timestampLayout = "2006-01-02T15:04:05.000Z"

// SuccessEnvelope は成功時のレスポンスボディ。
// dataには上流のレスポンスボディを加工せずに入れる。
type SuccessEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
}

// ErrorEnvelope は失敗時のレスポンスボディ。
type ErrorEnvelope struct {
	Success   bool            `json:"success"`
	Error     string          `json:"error"`
	Details   json.RawMessage `json:"details"`
	Timestamp string          `json:"timestamp"`
}

// encodeSuccess は成功エンベロープをシリアライズする。
// dataのバイト列は再エンコードせずにそのまま埋め込む。
func encodeSuccess(data json.RawMessage) []byte {
	if len(data) == 0 {
		data = json.RawMessage("null")
	}
	var buf bytes.Buffer
	buf.Grow(len(data) + 26)
	buf.WriteString(`{"success":true,"data":`)
	buf.Write(data)
	buf.WriteByte('}')
	return buf.Bytes()
}

// encodeError は失敗エンベロープをシリアライズする。
// detailsのバイト列は再エンコードせずにそのまま埋め込む。
func encodeError(f *Failure, now time.Time) []byte {
	details := f.Details
	if len(details) == 0 {
		details = json.RawMessage("null")
	}
	msg, _ := json.Marshal(f.Message)
	ts, _ := json.Marshal(now.UTC().Format(timestampLayout))

	var buf bytes.Buffer
	buf.WriteString(`{"success":false,"error":`)
	buf.Write(msg)
	buf.WriteString(`,"details":`)
	buf.Write(details)
	buf.WriteString(`,"timestamp":`)
	buf.Write(ts)
	buf.WriteByte('}')
	return buf.Bytes()
}
