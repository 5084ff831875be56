package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisBroker 基于 Redis Pub/Sub 的事件广播，多实例部署时使用
//
// 频道名: <prefix>:<table>:<kind>
type RedisBroker struct {
	client *redis.Client
	prefix string
	logger *zap.SugaredLogger
}

// NewRedisBroker 创建 Redis broker
func NewRedisBroker(client *redis.Client, prefix string, logger *zap.SugaredLogger) *RedisBroker {
	return &RedisBroker{
		client: client,
		prefix: prefix,
		logger: logger.Named("redis_broker"),
	}
}

// Channel 返回表对应的 Redis 频道名
func (b *RedisBroker) Channel(table string, kind Kind) string {
	return b.prefix + ":" + topic(table, kind)
}

// Publish 发布事件
func (b *RedisBroker) Publish(ctx context.Context, e Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("编码事件失败: %w", err)
	}
	return b.client.Publish(ctx, b.Channel(e.Table, e.Kind), payload).Err()
}

// Subscribe 订阅频道，确认订阅成功后才返回
func (b *RedisBroker) Subscribe(ctx context.Context, table string, kind Kind) (Subscription, error) {
	channel := b.Channel(table, kind)
	ps := b.client.Subscribe(ctx, channel)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("订阅 %s 失败: %w", channel, err)
	}

	s := &redisSub{
		ps:     ps,
		ch:     make(chan Event, subscriberBuffer),
		stop:   make(chan struct{}),
		logger: b.logger,
	}
	s.wg.Add(1)
	go s.pump(ctx, channel)
	return s, nil
}

// Close client 由调用方管理，这里不做处理
func (b *RedisBroker) Close() error {
	return nil
}

type redisSub struct {
	ps     *redis.PubSub
	ch     chan Event
	stop   chan struct{}
	once   sync.Once
	wg     sync.WaitGroup
	logger *zap.SugaredLogger
}

func (s *redisSub) Events() <-chan Event {
	return s.ch
}

func (s *redisSub) pump(ctx context.Context, channel string) {
	defer s.wg.Done()
	defer close(s.ch)

	msgs := s.ps.Channel()
	for {
		select {
		case <-ctx.Done():
			_ = s.ps.Close()
			return
		case <-s.stop:
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			var e Event
			if err := json.Unmarshal([]byte(msg.Payload), &e); err != nil {
				s.logger.Warnf("无法解析事件 %s: %v", channel, err)
				continue
			}
			select {
			case s.ch <- e:
			default:
				s.logger.Warnf("订阅者处理过慢，丢弃事件: %s", channel)
			}
		}
	}
}

func (s *redisSub) Close() error {
	var err error
	s.once.Do(func() {
		close(s.stop)
		if cerr := s.ps.Close(); cerr != nil && !errors.Is(cerr, redis.ErrClosed) {
			err = cerr
		}
		s.wg.Wait()
	})
	return err
}
