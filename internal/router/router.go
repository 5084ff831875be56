package router

import (
	"strings"
	"time"

	_ "affiliate-link/docs"
	"affiliate-link/internal/affiliate"
	"affiliate-link/internal/apperr"
	"affiliate-link/internal/config"
	"affiliate-link/internal/events"
	"affiliate-link/internal/handler"
	"affiliate-link/internal/middleware"
	"affiliate-link/internal/shortcode"
	"affiliate-link/internal/store"
	auth "affiliate-link/pkg/jwt"
	"affiliate-link/pkg/useragent"
	"affiliate-link/web"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// Deps 路由依赖
type Deps struct {
	Config *config.Config
	Logger *zap.Logger
	Store  store.Store
	Users  *store.Users
	Source events.Source
	// Redis 可以为 nil
	Redis    *redis.Client
	UAParser *useragent.Parser
}

// Setup 创建 gin 引擎并注册全部路由
func Setup(deps Deps) (*gin.Engine, error) {
	cfg := deps.Config
	if cfg.App.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(middleware.RequestID())
	r.Use(middleware.GinZapLogger(deps.Logger))
	r.Use(middleware.GinZapRecovery(deps.Logger, true))
	r.Use(corsMiddleware(cfg.CORS))
	r.Use(middleware.RateLimit(deps.Redis, cfg.RateLimit, cfg.Cache.Prefix))
	r.Use(middleware.Metrics())

	tmpl, err := web.Templates()
	if err != nil {
		return nil, err
	}
	r.SetHTMLTemplate(tmpl)

	r.NoMethod(func(c *gin.Context) {
		apperr.Abort(c, apperr.MethodNotAllowed())
	})
	r.NoRoute(func(c *gin.Context) {
		apperr.Abort(c, apperr.NotFound("not found"))
	})

	uaParser := deps.UAParser
	if uaParser == nil {
		uaParser = useragent.NewParser()
	}

	healthHandler := handler.NewHealthHandler(deps.Store, cfg.App.Name)
	linkHandler := handler.NewLinkHandler(
		deps.Store,
		deps.Redis,
		affiliate.NewRewriter(cfg.Affiliate),
		shortcode.NewGenerator(cfg.ShortID.Length),
		uaParser,
		cfg,
	)
	postbackHandler := handler.NewPostbackHandler(deps.Store, cfg.Postback.Token)
	dashboardHandler := handler.NewDashboardHandler(deps.Store, deps.Source, cfg.Dashboard.Limit, cfg.CORS.AllowedOrigins)

	r.GET("/", healthHandler.IndexPage)
	r.GET("/health", healthHandler.HealthCheck)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	r.POST("/create", linkHandler.Create)
	r.GET("/go/:id", linkHandler.Redirect)
	r.GET("/postback", postbackHandler.Receive)
	r.POST("/postback", postbackHandler.Receive)

	api := r.Group("/api")
	if cfg.Auth.Enabled {
		jwtManager := auth.NewManager(cfg.Auth.Secret, cfg.Auth.Issuer, cfg.Auth.ExpirationHours)
		authHandler := handler.NewAuthHandler(deps.Users, jwtManager)

		r.POST("/auth/login", authHandler.Login)
		api.Use(middleware.AuthMiddleware(jwtManager))
		api.GET("/me", authHandler.GetCurrentUser)
	}
	api.GET("/dashboard", dashboardHandler.Snapshot)
	api.GET("/dashboard/ws", dashboardHandler.Stream)

	return r, nil
}

func corsMiddleware(cfg config.CORS) gin.HandlerFunc {
	corsConfig := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader, "X-Postback-Token"},
		ExposeHeaders: []string{middleware.RequestIDHeader},
		MaxAge:        time.Duration(cfg.MaxAgeSeconds) * time.Second,
	}

	var origins []string
	for _, o := range cfg.AllowedOrigins {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "*" {
			corsConfig.AllowAllOrigins = true
			origins = nil
			break
		}
		if o != "" {
			origins = append(origins, o)
		}
	}
	if !corsConfig.AllowAllOrigins {
		if len(origins) == 0 {
			corsConfig.AllowAllOrigins = true
		} else {
			corsConfig.AllowOrigins = origins
		}
	}
	return cors.New(corsConfig)
}
