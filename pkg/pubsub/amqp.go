package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/nao1215/evogate/pkg/event"
)

const (
	// defaultQueueSize は送信キューのデフォルト容量。
	defaultQueueSize = 1024
	// publishTimeout は1イベントあたりの送信タイムアウト。
	publishTimeout = 5 * time.Second
)

// channel はAMQPチャネルのうちパブリッシャーが使用する操作。
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPPublisher はRabbitMQのtopic exchangeにイベントを発行する。
// Publishはキューに積むだけで、送信は専用のgoroutineが行う。
type AMQPPublisher struct {
	// conn はRabbitMQへの接続。テストではnil。
	conn *amqp.Connection
	// ch はイベント送信に使うチャネル。送信goroutineだけが使用する。
	ch channel
	// exchange は送信先のexchange名。
	exchange string
	// logger はログ出力先。
	logger *slog.Logger
	// queue は送信待ちのイベント。
	queue chan *event.Event

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// NewAMQP はRabbitMQに接続し、topic exchangeを宣言したパブリッシャーを生成する。
func NewAMQP(url, exchange string, logger *slog.Logger) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("RabbitMQへの接続に失敗: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("チャネルの作成に失敗: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("exchangeの宣言に失敗: %w", err)
	}

	p := newAMQPPublisher(ch, exchange, logger, defaultQueueSize)
	p.conn = conn
	return p, nil
}

// newAMQPPublisher はチャネルから送信goroutineを起動したパブリッシャーを生成する。
func newAMQPPublisher(ch channel, exchange string, logger *slog.Logger, queueSize int) *AMQPPublisher {
	p := &AMQPPublisher{
		ch:       ch,
		exchange: exchange,
		logger:   logger,
		queue:    make(chan *event.Event, queueSize),
		done:     make(chan struct{}),
	}
	go p.run()
	return p
}

// Publish はイベントを送信キューに積む。キューが満杯の場合はErrQueueFullを返す。
func (p *AMQPPublisher) Publish(_ context.Context, ev *event.Event) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}

	select {
	case p.queue <- ev:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close は送信キューを閉じ、残りのイベントを送信してから接続を閉じる。
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	<-p.done

	if err := p.ch.Close(); err != nil {
		return fmt.Errorf("チャネルのクローズに失敗: %w", err)
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil {
			return fmt.Errorf("接続のクローズに失敗: %w", err)
		}
	}
	return nil
}

// run は送信キューが閉じられるまでイベントを送信し続ける。
func (p *AMQPPublisher) run() {
	defer close(p.done)
	for ev := range p.queue {
		if err := p.send(ev); err != nil {
			p.logger.Warn("イベントの発行に失敗",
				slog.String("event_id", ev.ID),
				slog.String("event_type", string(ev.EventType)),
				slog.Any("error", err),
			)
		}
	}
}

// send は1つのイベントをexchangeに送信する。
func (p *AMQPPublisher) send(ev *event.Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("イベントのシリアライズに失敗: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	return p.ch.PublishWithContext(ctx, p.exchange, ev.RoutingKey(), false, false, amqp.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp.Persistent,
		MessageId:     ev.ID,
		CorrelationId: ev.RequestID,
		Type:          string(ev.EventType),
		Timestamp:     ev.CreatedAt,
		AppId:         "evogate",
		Body:          body,
	})
}
