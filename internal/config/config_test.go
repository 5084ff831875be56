package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
app:
  mode: release
  base_url: "https://go.example.com/"
database:
  driver: sqlite
  dsn: ./data/test.db
affiliate:
  shopee:
    affiliate_id: shop-1
cookie:
  max_age_days: 7
dashboard:
  limit: 500
short_id:
  length: 40
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "123456", cfg.Affiliate.Lazada.AffiliateID)
	assert.Equal(t, "aff_id", cfg.Affiliate.Lazada.AffiliateParam)
	assert.Equal(t, "subid", cfg.Affiliate.Lazada.SubIDParam)
	assert.Equal(t, "abc789", cfg.Affiliate.Shopee.AffiliateID)
	assert.Equal(t, "affiliate", cfg.Affiliate.Shopee.AffiliateParam)
	assert.Equal(t, "sub_id", cfg.Affiliate.Shopee.SubIDParam)
	assert.Equal(t, 30, cfg.Cookie.MaxAgeDays)
	assert.Equal(t, 30*86400, cfg.Cookie.MaxAgeSeconds())
	assert.Equal(t, 6, cfg.ShortID.Length)
	assert.False(t, cfg.Cache.Enabled())
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "release", cfg.App.Mode)
	assert.Equal(t, "https://go.example.com", cfg.App.BaseURL, "末尾斜杠应被去除")
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "shop-1", cfg.Affiliate.Shopee.AffiliateID)
	assert.Equal(t, "sub_id", cfg.Affiliate.Shopee.SubIDParam, "未配置的字段保留默认值")
	assert.Equal(t, 7, cfg.Cookie.MaxAgeDays)
	assert.Equal(t, 100, cfg.Dashboard.Limit, "面板条数上限为 100")
	assert.Equal(t, MaxShortIDLength, cfg.ShortID.Length, "短码长度不超过 links.id 列宽")
}

func TestLoadEnvOverridesFile(t *testing.T) {
	t.Setenv("COOKIE_MAX_AGE_DAYS", "14")
	t.Setenv("DEFAULT_LAZADA_AFF_ID", "lz-env")
	t.Setenv("SUBID_PARAM_SHOPEE", "s1")
	t.Setenv("SHOPEE_AFFILIATE_PARAM", "affiliate_id")
	t.Setenv("REDIS_HOST", "redis.local")

	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, 14, cfg.Cookie.MaxAgeDays)
	assert.Equal(t, "lz-env", cfg.Affiliate.Lazada.AffiliateID)
	assert.Equal(t, "s1", cfg.Affiliate.Shopee.SubIDParam)
	assert.Equal(t, "affiliate_id", cfg.Affiliate.Shopee.AffiliateParam)
	assert.Equal(t, "shop-1", cfg.Affiliate.Shopee.AffiliateID)
	assert.True(t, cfg.Cache.Enabled())
}

func TestLoadInvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "app: [unterminated"))
	assert.Error(t, err)
}
