//go:build integration

package events

import (
	"context"
	"testing"
	"time"

	"affiliate-link/internal/config"
	redispkg "affiliate-link/pkg/redis"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
)

// 需要 Docker: go test -tags integration ./internal/events/...
func setupRedis(t *testing.T) *redis.Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("无法启动 Redis 容器: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("关闭容器失败: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379/tcp")
	require.NoError(t, err)

	client, err := redispkg.NewClient(config.Cache{Host: host, Port: port.Int(), Prefix: "afflink-test"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func receive(t *testing.T, sub Subscription) row {
	t.Helper()
	select {
	case e, ok := <-sub.Events():
		require.True(t, ok, "订阅已关闭")
		var r row
		require.NoError(t, e.Decode(&r))
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("没有收到事件")
	}
	return row{}
}

func waitClosed(t *testing.T, sub Subscription) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case _, ok := <-sub.Events():
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("订阅通道没有关闭")
		}
	}
}

func TestRedisBroker(t *testing.T) {
	client := setupRedis(t)
	b := NewRedisBroker(client, "afflink-test", zap.NewNop().Sugar())
	ctx := context.Background()

	first, err := b.Subscribe(ctx, TableClickLogs, KindInsert)
	require.NoError(t, err)
	second, err := b.Subscribe(ctx, TableClickLogs, KindInsert)
	require.NoError(t, err)
	other, err := b.Subscribe(ctx, TableConversions, KindInsert)
	require.NoError(t, err)
	defer other.Close()

	// 无法解析的消息被丢弃，不影响后续事件
	require.NoError(t, client.Publish(ctx, b.Channel(TableClickLogs, KindInsert), "not-json").Err())

	e, err := NewEvent(TableClickLogs, KindInsert, row{ID: 7, Platform: "shopee"})
	require.NoError(t, err)
	require.NoError(t, b.Publish(ctx, e))

	assert.Equal(t, uint(7), receive(t, first).ID)
	assert.Equal(t, uint(7), receive(t, second).ID)

	select {
	case got := <-other.Events():
		t.Fatalf("不应收到其他表的事件: %+v", got)
	case <-time.After(200 * time.Millisecond):
	}

	require.NoError(t, first.Close())
	require.NoError(t, first.Close())
	waitClosed(t, first)

	// 其余订阅不受影响
	e, _ = NewEvent(TableClickLogs, KindInsert, row{ID: 8, Platform: "lazada"})
	require.NoError(t, b.Publish(ctx, e))
	assert.Equal(t, uint(8), receive(t, second).ID)
	require.NoError(t, second.Close())
}

func TestRedisSubscriptionClosedWithContext(t *testing.T) {
	client := setupRedis(t)
	b := NewRedisBroker(client, "afflink-test", zap.NewNop().Sugar())

	ctx, cancel := context.WithCancel(context.Background())
	sub, err := b.Subscribe(ctx, TableConversions, KindInsert)
	require.NoError(t, err)

	cancel()
	waitClosed(t, sub)
	assert.NoError(t, sub.Close())
}
