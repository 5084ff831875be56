package useragent

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	p := NewParser()

	cases := []struct {
		name   string
		ua     string
		device string
	}{
		{"iphone", "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1", DeviceMobile},
		{"ipad", "Mozilla/5.0 (iPad; CPU OS 16_6 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.6 Mobile/15E148 Safari/604.1", DeviceTablet},
		{"windows chrome", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36", DeviceDesktop},
		{"googlebot", "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)", DeviceBot},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.device, p.Parse(tc.ua).DeviceType)
		})
	}

	info := p.Parse(cases[2].ua)
	assert.Equal(t, "Chrome", info.Browser)
	assert.Equal(t, "Windows", info.OS)
}

func TestParseEmpty(t *testing.T) {
	info := NewParser().Parse("  ")
	assert.Equal(t, DeviceInfo{DeviceType: Unknown, Browser: Unknown, OS: Unknown}, info)
}

const customRegexes = `user_agent_parsers:
  - regex: '(AffTestBrowser)/(\d+)'
os_parsers:
  - regex: '(AffTestOS)'
device_parsers:
  - regex: '(AffTestPhone)'
`

func TestNewParserFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "regexes.yaml")
	require.NoError(t, os.WriteFile(path, []byte(customRegexes), 0o600))

	p, err := NewParserFromFile(path)
	require.NoError(t, err)
	info := p.Parse("AffTestBrowser/3 (AffTestOS; AffTestPhone)")
	assert.Equal(t, "AffTestBrowser", info.Browser)
	assert.Equal(t, "AffTestOS", info.OS)

	_, err = NewParserFromFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
