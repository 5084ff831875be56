package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"affiliate-link/internal/apperr"
	"affiliate-link/internal/store"
	auth "affiliate-link/pkg/jwt"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AuthHandler 面板账号登录
type AuthHandler struct {
	users      *store.Users
	jwtManager *auth.TokenManager
}

// NewAuthHandler 创建一个新的 AuthHandler
func NewAuthHandler(users *store.Users, jwtManager *auth.TokenManager) *AuthHandler {
	return &AuthHandler{users: users, jwtManager: jwtManager}
}

// LoginRequest 登录请求
type LoginRequest struct {
	Username string `json:"username" binding:"required" example:"admin"`
	Password string `json:"password" binding:"required" example:"admin"`
}

// AuthResponse 认证成功后的响应
type AuthResponse struct {
	Token     string `json:"token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
	ExpiresIn int64  `json:"expires_in" example:"86400"`
}

// Login godoc
// @Summary 面板登录
// @Description 使用用户名和密码获取 JWT 令牌
// @Tags Auth
// @Accept  json
// @Produce  json
// @Param   account  body   LoginRequest  true  "登录凭据"
// @Success 200 {object} AuthResponse "成功响应"
// @Failure 400 {object} ErrorResponse "请求无效"
// @Failure 401 {object} ErrorResponse "认证失败"
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.Abort(c, apperr.InvalidInput("invalid request body", err))
		return
	}

	user, err := h.users.FindByUsername(c.Request.Context(), req.Username)
	if errors.Is(err, store.ErrNotFound) {
		apperr.Abort(c, apperr.Unauthorized("用户名或密码错误"))
		return
	}
	if err != nil {
		apperr.Abort(c, apperr.Storage(err))
		return
	}
	if !user.CheckPassword(req.Password) || !user.IsActive {
		apperr.Abort(c, apperr.Unauthorized("用户名或密码错误"))
		return
	}

	token, err := h.jwtManager.GenerateToken(user.ID, user.Username, user.Role)
	if err != nil {
		apperr.Abort(c, apperr.Unexpected(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := h.users.TouchLastLogin(ctx, user.ID, time.Now()); err != nil {
		zap.S().Warnf("更新最后登录时间失败: %v", err)
	}

	c.JSON(http.StatusOK, AuthResponse{Token: token, ExpiresIn: int64(h.jwtManager.ExpiresIn().Seconds())})
}

// GetCurrentUser godoc
// @Summary 获取当前账号
// @Tags Auth
// @Security ApiKeyAuth
// @Produce  json
// @Success 200 {object} model.User "成功响应"
// @Failure 401 {object} ErrorResponse "未认证"
// @Failure 404 {object} ErrorResponse "账号不存在"
// @Router /api/me [get]
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	userID := c.GetUint("user_id")
	if userID == 0 {
		apperr.Abort(c, apperr.Unauthorized("未认证"))
		return
	}

	user, err := h.users.FindByID(c.Request.Context(), userID)
	if errors.Is(err, store.ErrNotFound) {
		apperr.Abort(c, apperr.NotFound("账号不存在"))
		return
	}
	if err != nil {
		apperr.Abort(c, apperr.Storage(err))
		return
	}
	c.JSON(http.StatusOK, user)
}
