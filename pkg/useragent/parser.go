package useragent

import (
	"fmt"
	"strings"

	"github.com/ua-parser/uap-go/uaparser"
)

// 设备类型
const (
	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"
	DeviceDesktop = "desktop"
	DeviceBot     = "bot"
	Unknown       = "unknown"
)

var (
	botIndicators = []string{
		"googlebot", "bingbot", "slurp", "duckduckbot", "baiduspider",
		"yandexbot", "facebookexternalhit", "twitterbot", "linkedinbot",
		"whatsapp", "telegram", "line/", "bot", "crawler", "spider",
	}
	tabletDevices = []string{"ipad", "tablet", "kindle", "surface"}
	mobileDevices = []string{"iphone", "android", "blackberry", "windows phone", "mobile", "phone"}
	mobileOS      = []string{"ios", "android", "windows phone", "blackberry os", "harmonyos"}
	desktopOS     = []string{"windows", "mac os x", "macos", "linux", "ubuntu", "chrome os", "freebsd"}
)

// DeviceInfo 从 User-Agent 解析出的设备信息
type DeviceInfo struct {
	DeviceType string
	Browser    string
	OS         string
}

// Parser 包装 uap-go 解析器
type Parser struct {
	parser *uaparser.Parser
}

// NewParser 使用内置规则创建解析器
func NewParser() *Parser {
	return &Parser{parser: uaparser.NewFromSaved()}
}

// NewParserFromFile 使用外部 regexes.yaml 创建解析器
func NewParserFromFile(path string) (*Parser, error) {
	p, err := uaparser.New(path)
	if err != nil {
		return nil, fmt.Errorf("加载 User-Agent 规则失败: %w", err)
	}
	return &Parser{parser: p}, nil
}

// Parse 解析 User-Agent
func (p *Parser) Parse(userAgent string) DeviceInfo {
	if strings.TrimSpace(userAgent) == "" {
		return DeviceInfo{DeviceType: Unknown, Browser: Unknown, OS: Unknown}
	}

	client := p.parser.Parse(userAgent)
	return DeviceInfo{
		DeviceType: deviceType(client, userAgent),
		Browser:    family(client.UserAgent.Family),
		OS:         family(client.Os.Family),
	}
}

func deviceType(client *uaparser.Client, userAgent string) string {
	ua := strings.ToLower(userAgent)
	if containsAny(strings.ToLower(client.UserAgent.Family), botIndicators) || containsAny(ua, botIndicators) {
		return DeviceBot
	}

	device := strings.ToLower(client.Device.Family)
	if device != "" && device != "other" {
		if containsAny(device, tabletDevices) {
			return DeviceTablet
		}
		if containsAny(device, mobileDevices) {
			return DeviceMobile
		}
	}

	osFamily := strings.ToLower(client.Os.Family)
	if containsAny(osFamily, mobileOS) {
		switch {
		case strings.Contains(osFamily, "ios") && strings.Contains(ua, "ipad"):
			return DeviceTablet
		case strings.Contains(osFamily, "android") && !strings.Contains(ua, "mobile"):
			// Android 平板的 UA 通常不带 Mobile
			return DeviceTablet
		}
		return DeviceMobile
	}
	if containsAny(osFamily, desktopOS) {
		return DeviceDesktop
	}
	return Unknown
}

func containsAny(s string, subs []string) bool {
	if s == "" {
		return false
	}
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func family(s string) string {
	if s == "" || s == "Other" {
		return Unknown
	}
	return s
}
