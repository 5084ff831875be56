package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// ErrorResponse 错误响应
type ErrorResponse struct {
	Error string `json:"error" example:"missing platform"`
}

// Pinger 健康检查依赖
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler 首页和健康检查
type HealthHandler struct {
	db      Pinger
	appName string
}

// NewHealthHandler 创建处理器实例
func NewHealthHandler(db Pinger, appName string) *HealthHandler {
	return &HealthHandler{db: db, appName: appName}
}

// IndexPage 创建短链接的表单页面
func (h *HealthHandler) IndexPage(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", gin.H{"title": h.appName})
}

// HealthCheck godoc
// @Summary 健康检查
// @Tags System
// @Produce  json
// @Success 200 {object} map[string]interface{} "服务正常"
// @Failure 503 {object} map[string]interface{} "数据库不可用"
// @Router /health [get]
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error(), "timestamp": time.Now()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "timestamp": time.Now()})
}
