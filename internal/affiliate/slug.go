package affiliate

import (
	"net/url"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

const (
	// MaxSlugLength subid 最大长度
	MaxSlugLength = 40
	// DefaultSubID 商品名和 URL 都取不到 slug 时使用
	DefaultSubID = "offer"
)

// Slugify 将任意文本转换为 URL 安全的 subid
//
// 小写 -> NFKD 分解 -> 只保留 [a-z0-9_]、空白和连字符 -> 空白转连字符
// -> 合并连续连字符 -> 截断到 MaxSlugLength
func Slugify(s string) string {
	decomposed := norm.NFKD.String(strings.ToLower(s))

	var b strings.Builder
	b.Grow(len(decomposed))
	pendingSpace := false
	lastHyphen := false
	for _, r := range decomposed {
		switch {
		case unicode.IsSpace(r):
			pendingSpace = true
			continue
		case isWordRune(r) || r == '-':
		default:
			// 变音符号等在这里被丢弃
			continue
		}

		if pendingSpace {
			if !lastHyphen {
				b.WriteByte('-')
			}
			lastHyphen = true
			pendingSpace = false
		}
		if r == '-' {
			if lastHyphen {
				continue
			}
			lastHyphen = true
		} else {
			lastHyphen = false
		}
		b.WriteRune(r)
	}
	if pendingSpace && !lastHyphen {
		b.WriteByte('-')
	}

	out := b.String()
	if len(out) > MaxSlugLength {
		out = out[:MaxSlugLength]
	}
	return out
}

func isWordRune(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

// DeriveSubID 优先用商品名，其次用 URL 最后一段路径，都为空时用占位值
func DeriveSubID(productName, originalURL string) string {
	if slug := Slugify(strings.TrimSpace(productName)); slug != "" {
		return slug
	}
	if seg := lastPathSegment(originalURL); seg != "" {
		if slug := Slugify(seg); slug != "" {
			return slug
		}
	}
	return DefaultSubID
}

func lastPathSegment(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	parts := strings.Split(u.Path, "/")
	for i := len(parts) - 1; i >= 0; i-- {
		if parts[i] != "" {
			return parts[i]
		}
	}
	return ""
}
