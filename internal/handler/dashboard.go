package handler

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"affiliate-link/internal/apperr"
	"affiliate-link/internal/dashboard"
	"affiliate-link/internal/events"
	"affiliate-link/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// DashboardHandler 实时面板，每个连接持有独立的 Feed
type DashboardHandler struct {
	reader   store.Reader
	source   events.Source
	limit    int
	upgrader websocket.Upgrader
	logger   *zap.SugaredLogger
}

// NewDashboardHandler 创建处理器实例，allowedOrigins 为空或包含 * 时不校验来源
func NewDashboardHandler(reader store.Reader, source events.Source, limit int, allowedOrigins []string) *DashboardHandler {
	h := &DashboardHandler{
		reader: reader,
		source: source,
		limit:  limit,
		logger: zap.S().Named("dashboard"),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

// Snapshot godoc
// @Summary 面板快照
// @Description 返回最近的点击、转化和累计汇总
// @Tags Dashboard
// @Security ApiKeyAuth
// @Produce  json
// @Param   limit  query  int  false  "条数，最大 100"
// @Success 200 {object} dashboard.Snapshot "成功响应"
// @Failure 500 {object} ErrorResponse "存储错误"
// @Router /api/dashboard [get]
func (h *DashboardHandler) Snapshot(c *gin.Context) {
	feed := dashboard.NewFeed(h.reader, h.source, h.queryLimit(c), h.logger)
	defer feed.Close()

	if err := feed.Activate(c.Request.Context()); err != nil {
		apperr.Abort(c, apperr.Storage(err))
		return
	}
	c.JSON(http.StatusOK, feed.Snapshot())
}

// Stream godoc
// @Summary 面板实时推送
// @Description WebSocket 连接，先推送 snapshot 消息，之后每次变化推送 update 消息
// @Tags Dashboard
// @Security ApiKeyAuth
// @Param   limit  query  int  false  "条数，最大 100"
// @Success 101 "切换到 WebSocket"
// @Router /api/dashboard/ws [get]
func (h *DashboardHandler) Stream(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade 已写出错误响应
		h.logger.Debugf("WebSocket 升级失败: %v", err)
		return
	}

	ctx := c.Request.Context()
	feed := dashboard.NewFeed(h.reader, h.source, h.queryLimit(c), h.logger)
	defer feed.Close()

	if err := feed.Activate(ctx); err != nil {
		h.logger.Errorf("激活面板失败: %v", err)
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "internal_error"))
		_ = conn.Close()
		return
	}

	dashboard.NewClient(conn, feed, h.logger).Run(ctx)
}

func (h *DashboardHandler) queryLimit(c *gin.Context) int {
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			return n
		}
	}
	return h.limit
}

func originChecker(allowed []string) func(*http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		if o != "" {
			set[strings.ToLower(o)] = struct{}{}
		}
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		// 同源总是允许
		if strings.EqualFold(u.Host, r.Host) {
			return true
		}
		_, ok := set[strings.ToLower(u.Scheme+"://"+u.Host)]
		return ok
	}
}
