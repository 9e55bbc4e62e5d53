package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/goleak"

	"github.com/nao1215/evogate/pkg/event"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// published はフェイクチャネルが受け取った送信内容。
type published struct {
	// Exchange は送信先のexchange名。
	Exchange string
	// Key はルーティングキー。
	Key string
	// Msg は送信されたメッセージ。
	Msg amqp.Publishing
}

// fakeChannel は送信内容を記録するテスト用チャネル。
type fakeChannel struct {
	mu     sync.Mutex
	msgs   []published
	err    error
	closed bool
	// block が閉じられるまで送信をブロックする。nilならブロックしない。
	block chan struct{}
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, published{Exchange: exchange, Key: key, Msg: msg})
	return f.err
}

func (f *fakeChannel) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeChannel) snapshot() ([]published, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]published(nil), f.msgs...), f.closed
}

func newTestEvent(t *testing.T) *event.Event {
	t.Helper()

	ev, err := event.New(event.TypeUpstreamCallSucceeded, "SendText", "sales-bot", "req-1", event.UpstreamCallSucceededData{Method: "POST"})
	if err != nil {
		t.Fatalf("イベント生成に失敗: %v", err)
	}
	return ev
}

// TestAMQPPublisher はAMQPPublisherの送信とクローズを検証する。
func TestAMQPPublisher(t *testing.T) {
	t.Parallel()

	t.Run("Closeまでにキューのイベントがすべて送信されること", func(t *testing.T) {
		t.Parallel()

		ch := &fakeChannel{}
		p := newAMQPPublisher(ch, "evogate.events", slog.New(slog.DiscardHandler), 8)

		ev := newTestEvent(t)
		if err := p.Publish(context.Background(), ev); err != nil {
			t.Fatalf("Publish()でエラーが発生: %v", err)
		}
		if err := p.Close(); err != nil {
			t.Fatalf("Close()でエラーが発生: %v", err)
		}

		msgs, closed := ch.snapshot()
		if !closed {
			t.Error("チャネルが閉じられていない")
		}
		if len(msgs) != 1 {
			t.Fatalf("送信数 = %d, want 1", len(msgs))
		}

		got := msgs[0]
		if got.Exchange != "evogate.events" {
			t.Errorf("Exchange = %q", got.Exchange)
		}
		if got.Key != "gateway.UpstreamCallSucceeded.SendText" {
			t.Errorf("Key = %q", got.Key)
		}
		if got.Msg.MessageId != ev.ID {
			t.Errorf("MessageId = %q, want %q", got.Msg.MessageId, ev.ID)
		}
		if got.Msg.CorrelationId != "req-1" {
			t.Errorf("CorrelationId = %q, want %q", got.Msg.CorrelationId, "req-1")
		}
		if got.Msg.ContentType != "application/json" {
			t.Errorf("ContentType = %q", got.Msg.ContentType)
		}

		var decoded event.Event
		if err := json.Unmarshal(got.Msg.Body, &decoded); err != nil {
			t.Fatalf("ボディのデシリアライズに失敗: %v", err)
		}
		if decoded.ID != ev.ID || decoded.Operation != "SendText" {
			t.Errorf("decoded = %+v", decoded)
		}
	})

	t.Run("キューが満杯ならErrQueueFullを返しブロックしないこと", func(t *testing.T) {
		t.Parallel()

		ch := &fakeChannel{block: make(chan struct{})}
		p := newAMQPPublisher(ch, "evogate.events", slog.New(slog.DiscardHandler), 1)

		// 1件目は送信goroutineがブロック中に保持し、2件目でキューが埋まる
		var full bool
		for range 3 {
			if err := p.Publish(context.Background(), newTestEvent(t)); errors.Is(err, ErrQueueFull) {
				full = true
			}
		}
		if !full {
			t.Error("ErrQueueFullが返るべき")
		}

		close(ch.block)
		if err := p.Close(); err != nil {
			t.Fatalf("Close()でエラーが発生: %v", err)
		}
	})

	t.Run("送信に失敗しても処理が継続すること", func(t *testing.T) {
		t.Parallel()

		ch := &fakeChannel{err: errors.New("channel closed")}
		p := newAMQPPublisher(ch, "evogate.events", slog.New(slog.DiscardHandler), 8)

		for range 2 {
			if err := p.Publish(context.Background(), newTestEvent(t)); err != nil {
				t.Fatalf("Publish()でエラーが発生: %v", err)
			}
		}
		if err := p.Close(); err != nil {
			t.Fatalf("Close()でエラーが発生: %v", err)
		}

		msgs, _ := ch.snapshot()
		if len(msgs) != 2 {
			t.Errorf("送信試行数 = %d, want 2", len(msgs))
		}
	})

	t.Run("クローズ後のPublishはErrClosedを返すこと", func(t *testing.T) {
		t.Parallel()

		p := newAMQPPublisher(&fakeChannel{}, "evogate.events", slog.New(slog.DiscardHandler), 1)
		if err := p.Close(); err != nil {
			t.Fatalf("Close()でエラーが発生: %v", err)
		}
		if err := p.Close(); err != nil {
			t.Fatalf("2回目のClose()でエラーが発生: %v", err)
		}
		if err := p.Publish(context.Background(), newTestEvent(t)); !errors.Is(err, ErrClosed) {
			t.Errorf("Publish() = %v, want ErrClosed", err)
		}
	})
}

// TestDiscard はDiscardが常に成功することを検証する。
func TestDiscard(t *testing.T) {
	t.Parallel()

	var p Publisher = Discard{}
	if err := p.Publish(context.Background(), nil); err != nil {
		t.Errorf("Publish() = %v", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("Close() = %v", err)
	}
}
