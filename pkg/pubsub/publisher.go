package pubsub

import (
	"context"
	"errors"

	"github.com/nao1215/evogate/pkg/event"
)

// ErrQueueFull は送信キューが満杯でイベントを受け付けられなかったことを表す。
var ErrQueueFull = errors.New("イベント送信キューが満杯です")

// ErrClosed はクローズ済みのパブリッシャーに発行しようとしたことを表す。
var ErrClosed = errors.New("パブリッシャーはクローズ済みです")

// Publisher はイベントを発行するインターフェース。
type Publisher interface {
	// Publish はイベントを発行する。ブロックしてはならない。
	Publish(ctx context.Context, ev *event.Event) error
	// Close は未送信のイベントを送り切ってから接続を閉じる。
	Close() error
}

// Discard はイベントを破棄するパブリッシャー。ブローカー未設定時に使用する。
type Discard struct{}

// Publish は何もしない。
func (Discard) Publish(context.Context, *event.Event) error { return nil }

// Close は何もしない。
func (Discard) Close() error { return nil }
