package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"affiliate-link/internal/affiliate"
	"affiliate-link/internal/apperr"
	"affiliate-link/internal/config"
	"affiliate-link/internal/metrics"
	"affiliate-link/internal/model"
	"affiliate-link/internal/shortcode"
	"affiliate-link/internal/store"
	redispkg "affiliate-link/pkg/redis"
	"affiliate-link/pkg/useragent"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const linkCacheTTL = 24 * time.Hour

// LinkHandler 创建短链接和跳转
type LinkHandler struct {
	store     store.Store
	redis     *redis.Client
	rewriter  *affiliate.Rewriter
	generator *shortcode.Generator
	uaParser  *useragent.Parser
	cfg       *config.Config
	logger    *zap.SugaredLogger
}

// NewLinkHandler 创建处理器实例，redisClient 可以为 nil
func NewLinkHandler(st store.Store, redisClient *redis.Client, rewriter *affiliate.Rewriter, generator *shortcode.Generator, uaParser *useragent.Parser, cfg *config.Config) *LinkHandler {
	return &LinkHandler{
		store:     st,
		redis:     redisClient,
		rewriter:  rewriter,
		generator: generator,
		uaParser:  uaParser,
		cfg:       cfg,
		logger:    zap.S().Named("link"),
	}
}

// CreateLinkRequest 创建短链接请求
type CreateLinkRequest struct {
	Platform    string `json:"platform" example:"shopee"`
	OriginalURL string `json:"original_url" example:"https://shopee.co.th/product-abc"`
	ProductName string `json:"product_name,omitempty" example:"Sunscreen SPF50"`
}

// CreateLinkResponse 创建短链接响应
type CreateLinkResponse struct {
	ID           string `json:"id" example:"aZ3k9Q"`
	ShortURL     string `json:"short_url" example:"https://go.example.com/go/aZ3k9Q"`
	AffiliateURL string `json:"affiliate_url" example:"https://shopee.co.th/product-abc?affiliate=abc789&sub_id=product-abc"`
	SubID        string `json:"subid" example:"product-abc"`
}

// Create godoc
// @Summary 创建联盟短链接
// @Description 为商品链接追加联盟参数并生成短链接
// @Tags Link
// @Accept  json
// @Produce  json
// @Param   link  body   CreateLinkRequest  true  "平台和商品链接"
// @Success 200 {object} CreateLinkResponse "成功响应"
// @Failure 400 {object} ErrorResponse "请求无效"
// @Failure 405 {object} ErrorResponse "方法不允许"
// @Failure 500 {object} ErrorResponse "存储错误"
// @Router /create [post]
func (h *LinkHandler) Create(c *gin.Context) {
	var req CreateLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.Abort(c, apperr.InvalidInput("invalid request body", err))
		return
	}

	req.Platform = strings.TrimSpace(req.Platform)
	req.OriginalURL = strings.TrimSpace(req.OriginalURL)
	if req.Platform == "" || req.OriginalURL == "" {
		apperr.Abort(c, apperr.ClientInput("missing platform/original_url"))
		return
	}

	platform, err := affiliate.ParsePlatform(req.Platform)
	if err != nil {
		apperr.Abort(c, apperr.ClientInput(err.Error()))
		return
	}
	if _, err := affiliate.ValidateURL(req.OriginalURL); err != nil {
		apperr.Abort(c, apperr.ClientInput(affiliate.ErrInvalidURL.Error()))
		return
	}

	subID := affiliate.DeriveSubID(req.ProductName, req.OriginalURL)
	affiliateURL, err := h.rewriter.AffiliateURL(platform, req.OriginalURL, subID)
	if err != nil {
		apperr.Abort(c, apperr.Unexpected(err))
		return
	}

	id, err := h.generator.NewCode()
	if err != nil {
		apperr.Abort(c, apperr.Unexpected(err))
		return
	}

	link := &model.Link{
		ID:           id,
		Platform:     platform,
		OriginalURL:  req.OriginalURL,
		AffiliateURL: affiliateURL,
	}
	var offer *model.Offer
	if name := strings.TrimSpace(req.ProductName); name != "" {
		offer = &model.Offer{ProductName: name, SubID: subID}
	}

	if err := h.store.CreateLink(c.Request.Context(), link, offer); err != nil {
		apperr.Abort(c, apperr.Storage(err))
		return
	}

	h.cacheLink(link)
	metrics.LinksCreated.WithLabelValues(metrics.PlatformLabel(platform)).Inc()
	h.logger.Infow("短链接已创建", "id", id, "platform", platform, "subid", subID)

	c.JSON(http.StatusOK, CreateLinkResponse{
		ID:           id,
		ShortURL:     h.shortURL(c, id),
		AffiliateURL: affiliateURL,
		SubID:        subID,
	})
}

// Redirect godoc
// @Summary 短链接跳转
// @Description 记录点击，写入点击 Cookie 并 302 跳转到联盟链接
// @Tags Link
// @Param   id  path  string  true  "短码"
// @Success 302 "跳转到联盟链接"
// @Failure 400 {object} ErrorResponse "缺少短码"
// @Failure 404 {object} ErrorResponse "链接不存在"
// @Failure 500 {object} ErrorResponse "存储错误"
// @Router /go/{id} [get]
func (h *LinkHandler) Redirect(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		apperr.Abort(c, apperr.ClientInput("missing id"))
		return
	}

	link, err := h.getLink(c.Request.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		apperr.Abort(c, apperr.NotFound("link not found"))
		return
	}
	if err != nil {
		apperr.Abort(c, apperr.Storage(err))
		return
	}

	token, err := h.generator.NewClickToken(time.Now())
	if err != nil {
		apperr.Abort(c, apperr.Unexpected(err))
		return
	}
	location, err := affiliate.SetQueryParam(link.AffiliateURL, h.cfg.Cookie.Param, token)
	if err != nil {
		apperr.Abort(c, apperr.Unexpected(err))
		return
	}

	h.logClick(c, link, token)

	http.SetCookie(c.Writer, &http.Cookie{
		Name:     h.cfg.Cookie.Name,
		Value:    token,
		MaxAge:   h.cfg.Cookie.MaxAgeSeconds(),
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
	metrics.Clicks.WithLabelValues(metrics.PlatformLabel(link.Platform)).Inc()
	c.Redirect(http.StatusFound, location)
}

// logClick 写入点击日志，失败只记录不影响跳转
func (h *LinkHandler) logClick(c *gin.Context, link *model.Link, token string) {
	userAgent := c.Request.UserAgent()
	device := h.uaParser.Parse(userAgent)
	linkID := link.ID

	click := &model.ClickLog{
		LinkID:     &linkID,
		Platform:   link.Platform,
		TargetURL:  link.AffiliateURL,
		IP:         clientIP(c.Request),
		Referrer:   c.Request.Referer(),
		UserAgent:  userAgent,
		DeviceType: device.DeviceType,
		Browser:    clip(device.Browser, 64),
		OS:         clip(device.OS, 64),
		ClickID:    token,
	}
	if err := h.store.CreateClickLog(c.Request.Context(), click); err != nil {
		metrics.ClickLogFailures.Inc()
		h.logger.Warnw("写入点击日志失败", "id", link.ID, "error", err)
	}
}

// getLink 先查 Redis 缓存，未命中再查数据库并回填
func (h *LinkHandler) getLink(ctx context.Context, id string) (*model.Link, error) {
	key := redispkg.Key(h.cfg.Cache.Prefix, "link", id)
	if h.redis != nil {
		cctx, cancel := context.WithTimeout(ctx, time.Second)
		val, err := h.redis.Get(cctx, key).Bytes()
		cancel()
		if err == nil {
			var link model.Link
			if json.Unmarshal(val, &link) == nil && link.ID == id {
				metrics.LinkCacheHits.Inc()
				return &link, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			h.logger.Warnf("读取链接缓存失败: %v", err)
		}
		metrics.LinkCacheMisses.Inc()
	}

	link, err := h.store.GetLink(ctx, id)
	if err != nil {
		return nil, err
	}
	h.cacheLink(link)
	return link, nil
}

func (h *LinkHandler) cacheLink(link *model.Link) {
	if h.redis == nil {
		return
	}
	data, err := json.Marshal(link)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := h.redis.Set(ctx, redispkg.Key(h.cfg.Cache.Prefix, "link", link.ID), data, linkCacheTTL).Err(); err != nil {
		h.logger.Warnf("写入链接缓存失败: %v", err)
	}
}

// shortURL 优先使用配置的 base_url，否则根据转发头推断
func (h *LinkHandler) shortURL(c *gin.Context, id string) string {
	if h.cfg.App.BaseURL != "" {
		return h.cfg.App.BaseURL + "/go/" + id
	}
	proto := firstHeaderValue(c.GetHeader("X-Forwarded-Proto"))
	if proto == "" {
		proto = "https"
	}
	host := firstHeaderValue(c.GetHeader("X-Forwarded-Host"))
	if host == "" {
		host = c.Request.Host
	}
	return proto + "://" + host + "/go/" + id
}

// clientIP X-Forwarded-For 的第一个合法地址，否则取连接地址
func clientIP(r *http.Request) string {
	if ip := net.ParseIP(firstHeaderValue(r.Header.Get("X-Forwarded-For"))); ip != nil {
		return ip.String()
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return clip(host, 45)
}

func firstHeaderValue(v string) string {
	first, _, _ := strings.Cut(v, ",")
	return strings.TrimSpace(first)
}
