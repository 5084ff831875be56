package events

import (
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestRedisBrokerChannel(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	defer client.Close()

	b := NewRedisBroker(client, "afflink", zap.NewNop().Sugar())
	assert.Equal(t, "afflink:click_logs:INSERT", b.Channel(TableClickLogs, KindInsert))
	assert.NoError(t, b.Close())
}
