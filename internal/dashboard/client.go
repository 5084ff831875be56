package dashboard

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024
)

// 推送给浏览器的消息类型
const (
	MessageTypeSnapshot = "snapshot"
	MessageTypeUpdate   = "update"
)

// Message WebSocket 消息
type Message struct {
	Type string   `json:"type"`
	Data Snapshot `json:"data"`
}

// Client 一个面板 WebSocket 连接，持有自己的 Feed
type Client struct {
	conn   *websocket.Conn
	feed   *Feed
	logger *zap.SugaredLogger
}

// NewClient 创建连接客户端，feed 需已激活
func NewClient(conn *websocket.Conn, feed *Feed, logger *zap.SugaredLogger) *Client {
	return &Client{conn: conn, feed: feed, logger: logger.Named("ws_client")}
}

// Run 推送首个快照和后续更新，连接断开或 ctx 结束时返回
func (c *Client) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go c.readPump(cancel)
	c.writePump(ctx)
}

// readPump 只处理 pong 和关闭帧，浏览器发来的数据被忽略
func (c *Client) readPump(cancel context.CancelFunc) {
	defer cancel()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warnf("WebSocket 异常关闭: %v", err)
			}
			return
		}
	}
}

func (c *Client) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	if err := c.write(Message{Type: MessageTypeSnapshot, Data: c.feed.Snapshot()}); err != nil {
		return
	}

	updates := c.feed.Updates()
	for {
		select {
		case <-ctx.Done():
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case snap, ok := <-updates:
			if !ok {
				_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.write(Message{Type: MessageTypeUpdate, Data: snap}); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) write(msg Message) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	if err := c.conn.WriteJSON(msg); err != nil {
		c.logger.Debugf("写入 WebSocket 失败: %v", err)
		return err
	}
	return nil
}
