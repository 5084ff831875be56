package events

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// Kind 变更类型，目前只有插入
type Kind string

const (
	KindInsert Kind = "INSERT"
)

// 订阅使用的表名
const (
	TableClickLogs   = "click_logs"
	TableConversions = "conversions"
)

// subscriberBuffer 每个订阅的缓冲区大小，满了以后新事件被丢弃
const subscriberBuffer = 64

// ErrClosed broker 已关闭
var ErrClosed = errors.New("events: broker closed")

// Event 一行新插入的数据
type Event struct {
	Table string          `json:"table"`
	Kind  Kind            `json:"kind"`
	Data  json.RawMessage `json:"data"`
	At    time.Time       `json:"at"`
}

// NewEvent 将行数据编码为事件
func NewEvent(table string, kind Kind, row any) (Event, error) {
	data, err := json.Marshal(row)
	if err != nil {
		return Event{}, err
	}
	return Event{Table: table, Kind: kind, Data: data, At: time.Now()}, nil
}

// Decode 将事件数据解码到 v
func (e Event) Decode(v any) error {
	return json.Unmarshal(e.Data, v)
}

// Subscription 一个可取消的事件流
type Subscription interface {
	// Events 返回事件通道，Close 之后通道被关闭
	Events() <-chan Event
	// Close 释放订阅，可重复调用
	Close() error
}

// Source 按表和变更类型订阅事件
type Source interface {
	Subscribe(ctx context.Context, table string, kind Kind) (Subscription, error)
}

// Publisher 发布事件，慢订阅者不会阻塞发布方
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Broker 同时具备发布和订阅能力
type Broker interface {
	Source
	Publisher
	Close() error
}

func topic(table string, kind Kind) string {
	return table + ":" + string(kind)
}
