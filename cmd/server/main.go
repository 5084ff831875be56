package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"affiliate-link/internal/config"
	"affiliate-link/internal/events"
	"affiliate-link/internal/router"
	"affiliate-link/internal/store"
	"affiliate-link/pkg/database"
	"affiliate-link/pkg/logger"
	redispkg "affiliate-link/pkg/redis"
	"affiliate-link/pkg/useragent"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// @title           Affiliate Link API
// @version         1.0
// @description     联盟短链接、点击跟踪、转化回传和实时面板
// @BasePath        /
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization
func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "配置加载失败:", err)
		os.Exit(1)
	}

	logger.InitLogger(logger.Options{
		Mode:       cfg.App.Mode,
		Filename:   cfg.Log.Filename,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		Compress:   cfg.Log.Compress,
	})
	defer func() {
		if err := logger.Logger.Sync(); err != nil {
			fmt.Println("日志同步失败:", err)
		}
	}()
	sugaredLogger := zap.S()

	db, err := database.Open(cfg.Database)
	if err != nil {
		sugaredLogger.Fatalf("数据库初始化失败: %v", err)
	}
	defer func() {
		if err := database.Close(db); err != nil {
			sugaredLogger.Errorf("关闭数据库连接失败: %v", err)
		}
	}()
	sugaredLogger.Infow("✅ 数据库连接成功", "driver", cfg.Database.Driver)

	var rdb *redis.Client
	if cfg.Cache.Enabled() {
		rdb, err = redispkg.NewClient(cfg.Cache)
		if err != nil {
			sugaredLogger.Warnf("缓存连接失败，使用进程内事件: %v", err)
			rdb = nil
		} else {
			defer func() {
				if err := rdb.Close(); err != nil {
					sugaredLogger.Errorf("关闭 Redis 连接失败: %v", err)
				}
			}()
			sugaredLogger.Info("✅ 缓存连接成功")
		}
	}

	var broker events.Broker
	if rdb != nil {
		broker = events.NewRedisBroker(rdb, cfg.Cache.Prefix, sugaredLogger)
	} else {
		broker = events.NewMemoryBroker(sugaredLogger)
	}
	defer func() {
		if err := broker.Close(); err != nil {
			sugaredLogger.Errorf("关闭事件总线失败: %v", err)
		}
	}()

	st := store.New(db, broker, sugaredLogger)
	users := store.NewUsers(db)

	if cfg.Auth.Enabled {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		created, err := users.EnsureAdmin(ctx, cfg.Auth.AdminUsername, cfg.Auth.AdminPassword)
		cancel()
		if err != nil {
			sugaredLogger.Errorf("创建管理员失败: %v", err)
		} else if created {
			sugaredLogger.Infow("✅ 默认管理员创建成功", "username", cfg.Auth.AdminUsername)
		}
	}

	uaParser := useragent.NewParser()
	if cfg.App.UARegexes != "" {
		if p, err := useragent.NewParserFromFile(cfg.App.UARegexes); err != nil {
			sugaredLogger.Warnf("使用内置 User-Agent 规则: %v", err)
		} else {
			uaParser = p
		}
	}

	engine, err := router.Setup(router.Deps{
		Config:   cfg,
		Logger:   logger.Logger,
		Store:    st,
		Users:    users,
		Source:   broker,
		Redis:    rdb,
		UAParser: uaParser,
	})
	if err != nil {
		sugaredLogger.Fatalf("路由初始化失败: %v", err)
	}

	server := &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:     engine,
		ReadTimeout: time.Duration(cfg.Server.ReadTimeout) * time.Second,
		// WebSocket 长连接不能设置 WriteTimeout
	}

	go func() {
		sugaredLogger.Infof("🚀 服务启动成功, 访问 http://localhost:%d", cfg.Server.Port)
		sugaredLogger.Infof("📚 Swagger 文档地址: http://localhost:%d/swagger/index.html", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugaredLogger.Fatalf("服务启动失败: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	sugaredLogger.Info("正在关闭服务...")

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.WriteTimeout+5)*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		sugaredLogger.Errorf("服务关闭失败: %v", err)
	}
	sugaredLogger.Info("服务已退出")
}
