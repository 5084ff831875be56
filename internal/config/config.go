package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// 主配置结构，启动时构建一次后只读
type Config struct {
	App       App       `yaml:"app"`
	Server    Server    `yaml:"server"`
	Log       Log       `yaml:"log"`
	Database  DB        `yaml:"database"`
	Cache     Cache     `yaml:"cache"`
	Auth      Auth      `yaml:"auth"`
	RateLimit Limit     `yaml:"rate_limit"`
	CORS      CORS      `yaml:"cors"`
	Affiliate Affiliate `yaml:"affiliate"`
	ShortID   ShortID   `yaml:"short_id"`
	Cookie    Cookie    `yaml:"cookie"`
	Postback  Postback  `yaml:"postback"`
	Dashboard Dashboard `yaml:"dashboard"`
}

// 应用配置
type App struct {
	Name    string `yaml:"name" env:"APP_NAME"`
	Mode    string `yaml:"mode" env:"APP_MODE"`
	Version string `yaml:"version"`
	// BaseURL 对外短链接前缀，为空时根据请求头推断
	BaseURL string `yaml:"base_url" env:"APP_BASE_URL"`
	// UARegexes uap-core regexes.yaml 路径，为空时使用内置规则
	UARegexes string `yaml:"ua_regexes" env:"UA_REGEXES_FILE"`
}

// 服务器配置
type Server struct {
	Port         int `yaml:"port" env:"SERVER_PORT"`
	ReadTimeout  int `yaml:"read_timeout"`
	WriteTimeout int `yaml:"write_timeout"`
}

// 日志配置
type Log struct {
	Filename   string `yaml:"filename" env:"LOG_FILENAME"`
	MaxSize    int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// 数据库配置
type DB struct {
	Driver   string `yaml:"driver" env:"DATABASE_DRIVER"` // mysql / postgres / sqlite
	Host     string `yaml:"host" env:"DATABASE_HOST"`
	Port     int    `yaml:"port" env:"DATABASE_PORT"`
	User     string `yaml:"user" env:"DATABASE_USER"`
	Password string `yaml:"password" env:"DATABASE_PASSWORD"`
	Name     string `yaml:"name" env:"DATABASE_NAME"`
	Charset  string `yaml:"charset"`
	SSLMode  string `yaml:"ssl_mode" env:"DATABASE_SSL_MODE"`
	// DSN 不为空时直接使用，sqlite 下为文件路径
	DSN          string `yaml:"dsn" env:"DATABASE_DSN"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

// 缓存配置（Redis）
type Cache struct {
	Host     string `yaml:"host" env:"REDIS_HOST"`
	Port     int    `yaml:"port" env:"REDIS_PORT"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB"`
	Prefix   string `yaml:"prefix"`
}

// Enabled 是否配置了 Redis
func (c Cache) Enabled() bool {
	return strings.TrimSpace(c.Host) != ""
}

// 认证配置
type Auth struct {
	Enabled         bool   `yaml:"enabled" env:"AUTH_ENABLED"`
	Secret          string `yaml:"secret" env:"AUTH_SECRET"`
	Issuer          string `yaml:"issuer"`
	ExpirationHours int    `yaml:"expiration_hours"`
	AdminUsername   string `yaml:"admin_username" env:"ADMIN_USERNAME"`
	AdminPassword   string `yaml:"admin_password" env:"ADMIN_PASSWORD"`
}

// 限流配置
type Limit struct {
	Enabled   bool     `yaml:"enabled" env:"RATE_LIMIT_ENABLED"`
	Requests  int64    `yaml:"requests_per_minute"`
	Burst     int64    `yaml:"burst"`
	SkipPaths []string `yaml:"skip_paths"`
}

// 跨域配置
type CORS struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	MaxAgeSeconds  int      `yaml:"max_age"`
}

// 单个平台的联盟参数
type Platform struct {
	AffiliateID    string `yaml:"affiliate_id" env:"AFFILIATE_ID"`
	AffiliateParam string `yaml:"affiliate_param" env:"AFFILIATE_PARAM"`
	SubIDParam     string `yaml:"subid_param" env:"SUBID_PARAM"`
}

// 联盟平台配置
type Affiliate struct {
	Lazada Platform `yaml:"lazada" env-prefix:"LAZADA_"`
	Shopee Platform `yaml:"shopee" env-prefix:"SHOPEE_"`
}

// MaxShortIDLength 短码最大长度，与 links.id 列宽一致
const MaxShortIDLength = 16

// 短码配置
type ShortID struct {
	Length int `yaml:"length" env:"SHORT_ID_LENGTH"`
}

// 点击 Cookie 配置
type Cookie struct {
	Name       string `yaml:"name"`
	Param      string `yaml:"param"` // 追加到跳转地址上的点击参数名
	MaxAgeDays int    `yaml:"max_age_days" env:"COOKIE_MAX_AGE_DAYS"`
}

// MaxAgeSeconds Cookie 有效期（秒）
func (c Cookie) MaxAgeSeconds() int {
	return c.MaxAgeDays * 24 * 3600
}

// 回传配置
type Postback struct {
	// Token 不为空时要求回传携带相同的 token
	Token string `yaml:"token" env:"POSTBACK_TOKEN"`
}

// 实时面板配置
type Dashboard struct {
	Limit int `yaml:"limit" env:"DASHBOARD_LIMIT"`
}

// Default 返回内置默认配置
func Default() Config {
	return Config{
		App:    App{Name: "affiliate-link", Mode: "debug", Version: "1.0.0"},
		Server: Server{Port: 8080, ReadTimeout: 10, WriteTimeout: 10},
		Log: Log{
			Filename:   "./logs/app.log",
			MaxSize:    10,
			MaxBackups: 5,
			MaxAge:     30,
		},
		Database: DB{
			Driver:       "mysql",
			Host:         "127.0.0.1",
			Port:         3306,
			Charset:      "utf8mb4",
			SSLMode:      "disable",
			MaxOpenConns: 20,
			MaxIdleConns: 5,
		},
		Cache: Cache{Port: 6379, Prefix: "afflink"},
		Auth: Auth{
			Issuer:          "affiliate-link",
			ExpirationHours: 24,
			AdminUsername:   "admin",
		},
		RateLimit: Limit{Enabled: false, Requests: 120, Burst: 30, SkipPaths: []string{"/health", "/metrics", "/swagger"}},
		CORS:      CORS{AllowedOrigins: []string{"*"}, MaxAgeSeconds: 600},
		Affiliate: Affiliate{
			Lazada: Platform{AffiliateID: "123456", AffiliateParam: "aff_id", SubIDParam: "subid"},
			Shopee: Platform{AffiliateID: "abc789", AffiliateParam: "affiliate", SubIDParam: "sub_id"},
		},
		ShortID:   ShortID{Length: 6},
		Cookie:    Cookie{Name: "my_aff_click", Param: "my_click", MaxAgeDays: 30},
		Dashboard: Dashboard{Limit: 10},
	}
}

// 兼容旧部署使用的环境变量名
var legacyEnv = map[string]func(*Config, string){
	"DEFAULT_LAZADA_AFF_ID": func(c *Config, v string) { c.Affiliate.Lazada.AffiliateID = v },
	"DEFAULT_SHOPEE_AFF_ID": func(c *Config, v string) { c.Affiliate.Shopee.AffiliateID = v },
	"SUBID_PARAM_LAZADA":    func(c *Config, v string) { c.Affiliate.Lazada.SubIDParam = v },
	"SUBID_PARAM_SHOPEE":    func(c *Config, v string) { c.Affiliate.Shopee.SubIDParam = v },
}

// Load 加载配置: 默认值 -> yaml 文件 -> .env -> 环境变量
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("解析配置文件失败: %w", err)
			}
		case errors.Is(err, os.ErrNotExist):
			// 没有配置文件时只使用默认值和环境变量
		default:
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	// .env 仅用于本地开发，不存在时忽略
	_ = godotenv.Load()

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("读取环境变量失败: %w", err)
	}
	for key, apply := range legacyEnv {
		if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
			apply(&cfg, strings.TrimSpace(v))
		}
	}

	cfg.normalize()
	return &cfg, nil
}

// normalize 修正非法取值，保证下游拿到的配置可直接使用
func (c *Config) normalize() {
	def := Default()
	fillPlatform(&c.Affiliate.Lazada, def.Affiliate.Lazada)
	fillPlatform(&c.Affiliate.Shopee, def.Affiliate.Shopee)
	if c.ShortID.Length <= 0 {
		c.ShortID.Length = def.ShortID.Length
	}
	if c.ShortID.Length > MaxShortIDLength {
		c.ShortID.Length = MaxShortIDLength
	}
	if c.Cookie.MaxAgeDays <= 0 {
		c.Cookie.MaxAgeDays = def.Cookie.MaxAgeDays
	}
	if c.Cookie.Name == "" {
		c.Cookie.Name = def.Cookie.Name
	}
	if c.Cookie.Param == "" {
		c.Cookie.Param = def.Cookie.Param
	}
	if c.Dashboard.Limit <= 0 {
		c.Dashboard.Limit = def.Dashboard.Limit
	}
	if c.Dashboard.Limit > 100 {
		c.Dashboard.Limit = 100
	}
	if c.Cache.Prefix == "" {
		c.Cache.Prefix = def.Cache.Prefix
	}
	c.App.BaseURL = strings.TrimRight(strings.TrimSpace(c.App.BaseURL), "/")
}

func fillPlatform(p *Platform, def Platform) {
	if strings.TrimSpace(p.AffiliateID) == "" {
		p.AffiliateID = def.AffiliateID
	}
	if strings.TrimSpace(p.AffiliateParam) == "" {
		p.AffiliateParam = def.AffiliateParam
	}
	if strings.TrimSpace(p.SubIDParam) == "" {
		p.SubIDParam = def.SubIDParam
	}
}
