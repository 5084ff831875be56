package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type row struct {
	ID       uint   `json:"id"`
	Platform string `json:"platform"`
}

func newBroker(t *testing.T) *MemoryBroker {
	t.Helper()
	b := NewMemoryBroker(zap.NewNop().Sugar())
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func TestMemoryBrokerDelivers(t *testing.T) {
	b := newBroker(t)
	ctx := context.Background()

	sub, err := b.Subscribe(ctx, TableClickLogs, KindInsert)
	require.NoError(t, err)
	defer sub.Close()

	e, err := NewEvent(TableClickLogs, KindInsert, row{ID: 7, Platform: "shopee"})
	require.NoError(t, err)
	require.NoError(t, b.Publish(ctx, e))

	select {
	case got := <-sub.Events():
		var r row
		require.NoError(t, got.Decode(&r))
		assert.Equal(t, uint(7), r.ID)
		assert.Equal(t, "shopee", r.Platform)
	case <-time.After(time.Second):
		t.Fatal("没有收到事件")
	}
}

func TestMemoryBrokerFiltersByTable(t *testing.T) {
	b := newBroker(t)
	ctx := context.Background()

	sub, err := b.Subscribe(ctx, TableConversions, KindInsert)
	require.NoError(t, err)
	defer sub.Close()

	e, _ := NewEvent(TableClickLogs, KindInsert, row{ID: 1})
	require.NoError(t, b.Publish(ctx, e))

	select {
	case got := <-sub.Events():
		t.Fatalf("不应收到其他表的事件: %+v", got)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMemoryBrokerSlowSubscriberDoesNotBlock(t *testing.T) {
	b := newBroker(t)
	ctx := context.Background()

	sub, err := b.Subscribe(ctx, TableClickLogs, KindInsert)
	require.NoError(t, err)
	defer sub.Close()

	e, _ := NewEvent(TableClickLogs, KindInsert, row{ID: 1})
	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer*3; i++ {
			_ = b.Publish(ctx, e)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish 被慢订阅者阻塞")
	}
	assert.Len(t, sub.Events(), subscriberBuffer)
}

func TestSubscriptionCloseIsIdempotent(t *testing.T) {
	b := newBroker(t)

	sub, err := b.Subscribe(context.Background(), TableClickLogs, KindInsert)
	require.NoError(t, err)
	assert.Equal(t, 1, b.subscriberCount(TableClickLogs, KindInsert))

	require.NoError(t, sub.Close())
	require.NoError(t, sub.Close())
	assert.Equal(t, 0, b.subscriberCount(TableClickLogs, KindInsert))

	_, ok := <-sub.Events()
	assert.False(t, ok)

	// 关闭后发布不应 panic
	e, _ := NewEvent(TableClickLogs, KindInsert, row{ID: 1})
	assert.NoError(t, b.Publish(context.Background(), e))
}

func TestSubscriptionClosedWithContext(t *testing.T) {
	b := newBroker(t)
	ctx, cancel := context.WithCancel(context.Background())

	sub, err := b.Subscribe(ctx, TableConversions, KindInsert)
	require.NoError(t, err)
	cancel()

	select {
	case _, ok := <-sub.Events():
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("context 取消后订阅没有关闭")
	}
	assert.Equal(t, 0, b.subscriberCount(TableConversions, KindInsert))
}

func TestBrokerClose(t *testing.T) {
	b := NewMemoryBroker(zap.NewNop().Sugar())

	sub, err := b.Subscribe(context.Background(), TableClickLogs, KindInsert)
	require.NoError(t, err)

	require.NoError(t, b.Close())
	_, ok := <-sub.Events()
	assert.False(t, ok)

	_, err = b.Subscribe(context.Background(), TableClickLogs, KindInsert)
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, b.Publish(context.Background(), Event{}), ErrClosed)
}
