package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/d60-Lab/travel-relation/pkg/logger"
)

// EventType 关系链事件类型
type EventType string

const (
	EventRequestSent      EventType = "request_sent"
	EventRequestAccepted  EventType = "request_accepted"
	EventRequestRejected  EventType = "request_rejected"
	EventRequestCancelled EventType = "request_cancelled"
	EventFriendRemoved    EventType = "friend_removed"
)

// RelationshipEvent 推送服务消费的事件负载
type RelationshipEvent struct {
	Type      EventType `json:"type"`
	RequestID string    `json:"request_id"`
	FromUID   string    `json:"from_uid"`
	ToUID     string    `json:"to_uid"`
	At        time.Time `json:"at"`
}

// EventPublisher 事件出口
type EventPublisher interface {
	Publish(ctx context.Context, ev RelationshipEvent) error
}

// RedisEventPublisher 以 JSON 发布到 redis 频道
type RedisEventPublisher struct {
	client  *redis.Client
	channel string
}

func NewRedisEventPublisher(client *redis.Client, channel string) *RedisEventPublisher {
	return &RedisEventPublisher{client: client, channel: channel}
}

func (p *RedisEventPublisher) Publish(ctx context.Context, ev RelationshipEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return p.client.Publish(ctx, p.channel, payload).Err()
}

// EventDispatcher 本地异步投递器：生命周期操作只入队，不等待推送
type EventDispatcher struct {
	pub       EventPublisher
	ch        chan RelationshipEvent
	metricsCh chan time.Duration
}

func NewEventDispatcher(pub EventPublisher, queueSize int) *EventDispatcher {
	if queueSize <= 0 {
		queueSize = 10000
	}
	return &EventDispatcher{pub: pub, ch: make(chan RelationshipEvent, queueSize), metricsCh: make(chan time.Duration, 65536)}
}

// Start 启动 workers 个投递协程；返回的停止函数会先排空队列再返回
func (d *EventDispatcher) Start(workers int) func(context.Context) error {
	if workers <= 0 {
		workers = 4
	}
	stopCh := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case ev := <-d.ch:
					d.deliver(ev)
				case <-stopCh:
					for {
						select {
						case ev := <-d.ch:
							d.deliver(ev)
						default:
							return
						}
					}
				}
			}
		}()
	}

	var once sync.Once
	return func(ctx context.Context) error {
		once.Do(func() { close(stopCh) })
		done := make(chan struct{})
		go func() { wg.Wait(); close(done) }()
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (d *EventDispatcher) deliver(ev RelationshipEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.pub.Publish(ctx, ev); err != nil {
		logger.Warn("publish relationship event failed",
			zap.String("type", string(ev.Type)), zap.String("from", ev.FromUID), zap.String("to", ev.ToUID), zap.Error(err))
		return
	}
	if !ev.At.IsZero() {
		select {
		case d.metricsCh <- time.Since(ev.At):
		default:
		}
	}
}

// Enqueue 非阻塞入队，队列满时丢弃并告警
func (d *EventDispatcher) Enqueue(ev RelationshipEvent) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	select {
	case d.ch <- ev:
	default:
		logger.Warn("event queue full, drop", zap.String("type", string(ev.Type)), zap.String("from", ev.FromUID), zap.String("to", ev.ToUID))
	}
}

// Metrics 返回投递耗时的只读通道（每成功投递一条发送一次 duration）。
func (d *EventDispatcher) Metrics() <-chan time.Duration { return d.metricsCh }

// QueueLen 返回当前队列长度（采样值）。
func (d *EventDispatcher) QueueLen() int { return len(d.ch) }
