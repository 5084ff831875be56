package events

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// MemoryBroker 进程内的事件广播，单实例部署时使用
type MemoryBroker struct {
	mu     sync.RWMutex
	subs   map[string]map[*memorySub]struct{}
	closed bool
	logger *zap.SugaredLogger
}

// NewMemoryBroker 创建进程内 broker
func NewMemoryBroker(logger *zap.SugaredLogger) *MemoryBroker {
	return &MemoryBroker{
		subs:   make(map[string]map[*memorySub]struct{}),
		logger: logger.Named("memory_broker"),
	}
}

// Subscribe 订阅指定表的变更
func (b *MemoryBroker) Subscribe(ctx context.Context, table string, kind Kind) (Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrClosed
	}

	s := &memorySub{
		broker: b,
		topic:  topic(table, kind),
		ch:     make(chan Event, subscriberBuffer),
		done:   make(chan struct{}),
	}
	if b.subs[s.topic] == nil {
		b.subs[s.topic] = make(map[*memorySub]struct{})
	}
	b.subs[s.topic][s] = struct{}{}

	if ctx.Done() != nil {
		go func() {
			select {
			case <-ctx.Done():
				_ = s.Close()
			case <-s.done:
			}
		}()
	}
	return s, nil
}

// Publish 广播事件，订阅者缓冲区满时丢弃
func (b *MemoryBroker) Publish(_ context.Context, e Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrClosed
	}

	for s := range b.subs[topic(e.Table, e.Kind)] {
		select {
		case s.ch <- e:
		default:
			b.logger.Warnf("订阅者处理过慢，丢弃事件: %s", s.topic)
		}
	}
	return nil
}

// Close 关闭所有订阅
func (b *MemoryBroker) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	var all []*memorySub
	for _, set := range b.subs {
		for s := range set {
			all = append(all, s)
		}
	}
	b.mu.Unlock()

	for _, s := range all {
		_ = s.Close()
	}
	return nil
}

// subscriberCount 当前订阅数
func (b *MemoryBroker) subscriberCount(table string, kind Kind) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topic(table, kind)])
}

type memorySub struct {
	broker *MemoryBroker
	topic  string
	ch     chan Event

	once sync.Once
	done chan struct{}
}

func (s *memorySub) Events() <-chan Event {
	return s.ch
}

func (s *memorySub) Close() error {
	s.once.Do(func() {
		// 先从 broker 中摘除，再关闭通道，保证 Publish 不会写入已关闭的通道
		s.broker.mu.Lock()
		if set := s.broker.subs[s.topic]; set != nil {
			delete(set, s)
			if len(set) == 0 {
				delete(s.broker.subs, s.topic)
			}
		}
		s.broker.mu.Unlock()

		close(s.done)
		close(s.ch)
	})
	return nil
}
