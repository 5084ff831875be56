package shortcode

import (
	"crypto/rand"
	"math/big"
	"strconv"
	"time"
)

const (
	// Charset 包含用于生成短码的所有字符
	Charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	// DefaultLength 默认短码长度
	DefaultLength = 6

	tokenCharset = "0123456789abcdefghijklmnopqrstuvwxyz"
	tokenSuffix  = 6
)

// Generator 生成短码和点击 token
//
// 不检查冲突，重复的主键会在写库时作为存储错误返回
type Generator struct {
	length int
}

// NewGenerator 创建短码生成器，length <= 0 时使用默认长度
func NewGenerator(length int) *Generator {
	if length <= 0 {
		length = DefaultLength
	}
	return &Generator{length: length}
}

// NewCode 生成一个新的短码
func (g *Generator) NewCode() (string, error) {
	return randomString(Charset, g.length)
}

// NewClickToken 生成点击关联 token: <毫秒时间戳>-<6 位 base36 随机串>
func (g *Generator) NewClickToken(now time.Time) (string, error) {
	suffix, err := randomString(tokenCharset, tokenSuffix)
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(now.UnixMilli(), 10) + "-" + suffix, nil
}

// randomString 使用加密安全的随机数生成器生成一个给定长度的字符串
func randomString(charset string, length int) (string, error) {
	b := make([]byte, length)
	n := big.NewInt(int64(len(charset)))
	for i := range b {
		num, err := rand.Int(rand.Reader, n)
		if err != nil {
			return "", err
		}
		b[i] = charset[num.Int64()]
	}
	return string(b), nil
}
