package affiliate

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"affiliate-link/internal/config"
	"affiliate-link/internal/model"
)

var (
	// ErrUnsupportedPlatform 平台不在 lazada / shopee 之内
	ErrUnsupportedPlatform = errors.New("unsupported platform")
	// ErrInvalidURL 不是带 host 的 http(s) 绝对地址
	ErrInvalidURL = errors.New("invalid original_url")
)

// ParsePlatform 校验并归一化平台名
func ParsePlatform(s string) (string, error) {
	switch p := strings.ToLower(strings.TrimSpace(s)); p {
	case model.PlatformLazada, model.PlatformShopee:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedPlatform, s)
	}
}

// ValidateURL 校验原始商品链接
func ValidateURL(s string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, ErrInvalidURL
	}
	return u, nil
}

// Rewriter 根据平台配置为商品链接追加联盟参数
type Rewriter struct {
	platforms map[string]config.Platform
}

// NewRewriter 创建 Rewriter
func NewRewriter(cfg config.Affiliate) *Rewriter {
	return &Rewriter{
		platforms: map[string]config.Platform{
			model.PlatformLazada: cfg.Lazada,
			model.PlatformShopee: cfg.Shopee,
		},
	}
}

// AffiliateURL 追加账号参数和 subid 参数，已存在的参数保持原值
func (r *Rewriter) AffiliateURL(platform, originalURL, subID string) (string, error) {
	p, ok := r.platforms[platform]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedPlatform, platform)
	}
	u, err := ValidateURL(originalURL)
	if err != nil {
		return "", err
	}

	u.RawQuery = addQueryParam(u.RawQuery, p.AffiliateParam, p.AffiliateID)
	u.RawQuery = addQueryParam(u.RawQuery, p.SubIDParam, subID)
	return u.String(), nil
}

// SetQueryParam 设置查询参数，已存在时原位替换，否则追加到末尾
func SetQueryParam(rawURL, key, value string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}

	pair := url.QueryEscape(key) + "=" + url.QueryEscape(value)
	if u.RawQuery == "" {
		u.RawQuery = pair
		return u.String(), nil
	}

	parts := strings.Split(u.RawQuery, "&")
	replaced := false
	out := parts[:0]
	for _, part := range parts {
		if queryKey(part) != key {
			out = append(out, part)
			continue
		}
		if !replaced {
			out = append(out, pair)
			replaced = true
		}
	}
	if !replaced {
		out = append(out, pair)
	}
	u.RawQuery = strings.Join(out, "&")
	return u.String(), nil
}

// addQueryParam 仅在参数不存在时追加，保留原有查询串的顺序和编码
func addQueryParam(rawQuery, key, value string) string {
	if hasQueryKey(rawQuery, key) {
		return rawQuery
	}
	pair := url.QueryEscape(key) + "=" + url.QueryEscape(value)
	if rawQuery == "" {
		return pair
	}
	return rawQuery + "&" + pair
}

func hasQueryKey(rawQuery, key string) bool {
	if rawQuery == "" {
		return false
	}
	for _, part := range strings.Split(rawQuery, "&") {
		if queryKey(part) == key {
			return true
		}
	}
	return false
}

func queryKey(part string) string {
	k, _, _ := strings.Cut(part, "=")
	if decoded, err := url.QueryUnescape(k); err == nil {
		return decoded
	}
	return k
}
