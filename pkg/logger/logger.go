package logger

import (
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	Logger *zap.Logger
	Sugar  *zap.SugaredLogger
)

// Options 日志输出配置
type Options struct {
	Mode       string // debug 模式只输出到控制台
	Filename   string
	MaxSize    int // MB
	MaxBackups int
	MaxAge     int // 天
	Compress   bool
}

// DefaultOptions 返回默认日志配置
func DefaultOptions() Options {
	return Options{
		Mode:       "debug",
		Filename:   "./logs/app.log",
		MaxSize:    10,
		MaxBackups: 5,
		MaxAge:     30,
	}
}

// InitLogger 初始化 zap 日志记录器
func InitLogger(opts Options) *zap.Logger {
	Logger = New(opts)
	Sugar = Logger.Sugar()

	// 将全局的 zap logger 替换为我们配置好的 logger
	zap.ReplaceGlobals(Logger)
	return Logger
}

// New 按配置创建 logger，不修改全局实例
func New(opts Options) *zap.Logger {
	level := zapcore.InfoLevel
	if isDebug(opts.Mode) {
		level = zapcore.DebugLevel
	}
	core := zapcore.NewCore(getEncoder(), getLogWriter(opts), level)
	return zap.New(core, zap.AddCaller())
}

// getEncoder 设置日志编码格式
func getEncoder() zapcore.Encoder {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewConsoleEncoder(encoderConfig)
}

// getLogWriter 指定日志写入位置 (文件和控制台)
func getLogWriter(opts Options) zapcore.WriteSyncer {
	stdout := zapcore.AddSync(os.Stdout)
	if isDebug(opts.Mode) || strings.TrimSpace(opts.Filename) == "" {
		return stdout
	}

	if err := os.MkdirAll(filepath.Dir(opts.Filename), 0o755); err != nil {
		return stdout
	}

	return zapcore.NewMultiWriteSyncer(stdout, zapcore.AddSync(newRotator(opts)))
}

// newRotator 使用 lumberjack 实现日志切割和归档，未设置的项取默认值
func newRotator(opts Options) *lumberjack.Logger {
	def := DefaultOptions()
	return &lumberjack.Logger{
		Filename:   opts.Filename,
		MaxSize:    positiveOr(opts.MaxSize, def.MaxSize),
		MaxBackups: positiveOr(opts.MaxBackups, def.MaxBackups),
		MaxAge:     positiveOr(opts.MaxAge, def.MaxAge),
		Compress:   opts.Compress,
	}
}

func isDebug(mode string) bool {
	return strings.EqualFold(strings.TrimSpace(mode), "debug")
}

func positiveOr(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}
