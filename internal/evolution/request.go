package evolution

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// CreateInstanceRequest はインスタンス作成ボディのうちゲートウェイが参照するフィールド。
// ボディそのものはこの型を経由せずに上流へ送る。
type CreateInstanceRequest struct {
	// InstanceName は作成するインスタンス名。
	InstanceName string `json:"instanceName" binding:"required"`
	// QRCode はQRコードを生成するかどうか。省略時はtrue。
	QRCode *bool `json:"qrcode"`
}

// ParticipantAction は参加者に対する操作の種類。
type ParticipantAction string

const (
	// ParticipantAdd は参加者の追加。
	ParticipantAdd ParticipantAction = "add"
	// ParticipantRemove は参加者の削除。
	ParticipantRemove ParticipantAction = "remove"
	// ParticipantPromote は管理者への昇格。
	ParticipantPromote ParticipantAction = "promote"
	// ParticipantDemote は管理者からの降格。
	ParticipantDemote ParticipantAction = "demote"
)

// FindMessagesQuery はメッセージ一覧取得の条件。
type FindMessagesQuery struct {
	// Number は対象の電話番号またはJID。
	Number string
	// Limit は1ページあたりの件数。0の場合はDefaultMessageLimit。
	Limit int
	// Page はページ番号。0の場合はDefaultMessagePage。
	Page int
}

const (
	// DefaultMessageLimit はメッセージ一覧取得のデフォルト件数。
	DefaultMessageLimit = 20
	// DefaultMessagePage はメッセージ一覧取得のデフォルトページ。
	DefaultMessagePage = 1
)

// ErrNotObject はボディがJSONオブジェクトでない場合のエラー。
var ErrNotObject = errors.New("リクエストボディがJSONオブジェクトではありません")

// setField はJSONオブジェクトのボディにフィールドを1つ加える。
// keyが既に存在する場合、overrideがfalseなら元のボディを返し、trueなら値を置き換える。
// 追加の場合は元のバイト列の末尾に書き足すため、他のフィールドは一切変わらない。
func setField(body json.RawMessage, key string, value any, override bool) (json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotObject, err)
	}
	if fields == nil {
		return nil, ErrNotObject
	}

	encoded, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("フィールド%qのシリアライズに失敗: %w", key, err)
	}

	if _, ok := fields[key]; ok {
		if !override {
			return body, nil
		}
		fields[key] = encoded
		return json.Marshal(fields)
	}

	trimmed := bytes.TrimSpace(body)
	head := trimmed[:len(trimmed)-1]
	encodedKey, _ := json.Marshal(key)

	var buf bytes.Buffer
	buf.Grow(len(head) + len(encodedKey) + len(encoded) + 3)
	buf.Write(head)
	if len(bytes.TrimSpace(head[1:])) > 0 {
		buf.WriteByte(',')
	}
	buf.Write(encodedKey)
	buf.WriteByte(':')
	buf.Write(encoded)
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
