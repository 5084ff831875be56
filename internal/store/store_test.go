package store

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"affiliate-link/internal/events"
	"affiliate-link/internal/model"
	"affiliate-link/pkg/database"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupStore 每个测试使用独立的内存数据库
func setupStore(t *testing.T) (*GormStore, *gorm.DB, *events.MemoryBroker) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err, "无法连接到内存数据库")
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))

	broker := events.NewMemoryBroker(zap.NewNop().Sugar())
	t.Cleanup(func() {
		_ = broker.Close()
		_ = sqlDB.Close()
	})

	return New(db, broker, zap.NewNop().Sugar()), db, broker
}

func strPtr(s string) *string { return &s }

func TestCreateAndGetLink(t *testing.T) {
	s, db, _ := setupStore(t)
	ctx := context.Background()

	link := &model.Link{ID: "abc123", Platform: "shopee", OriginalURL: "https://shopee.co.th/x", AffiliateURL: "https://shopee.co.th/x?affiliate=abc789&sub_id=x"}
	offer := &model.Offer{ProductName: "X", SubID: "x"}
	require.NoError(t, s.CreateLink(ctx, link, offer))

	got, err := s.GetLink(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, link.AffiliateURL, got.AffiliateURL)
	assert.Equal(t, "shopee", got.Platform)

	var stored model.Offer
	require.NoError(t, db.First(&stored).Error)
	assert.Equal(t, "abc123", stored.LinkID)
	assert.Equal(t, "x", stored.SubID)
}

func TestCreateLinkWithoutOffer(t *testing.T) {
	s, db, _ := setupStore(t)

	require.NoError(t, s.CreateLink(context.Background(), &model.Link{ID: "nooffr", Platform: "lazada", OriginalURL: "u", AffiliateURL: "a"}, nil))

	var count int64
	db.Model(&model.Offer{}).Count(&count)
	assert.Zero(t, count)
}

func TestCreateLinkRollsBackWhenOfferFails(t *testing.T) {
	s, db, _ := setupStore(t)
	require.NoError(t, db.Migrator().DropTable(&model.Offer{}))

	err := s.CreateLink(context.Background(), &model.Link{ID: "rollbk", Platform: "lazada", OriginalURL: "u", AffiliateURL: "a"}, &model.Offer{ProductName: "p", SubID: "p"})
	require.Error(t, err)

	_, err = s.GetLink(context.Background(), "rollbk")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateLinkDuplicateID(t *testing.T) {
	s, _, _ := setupStore(t)
	ctx := context.Background()

	link := model.Link{ID: "dup001", Platform: "lazada", OriginalURL: "u", AffiliateURL: "a"}
	first := link
	second := link
	require.NoError(t, s.CreateLink(ctx, &first, nil))
	assert.Error(t, s.CreateLink(ctx, &second, nil))
}

func TestGetLinkNotFound(t *testing.T) {
	s, _, _ := setupStore(t)

	_, err := s.GetLink(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateClickLogPublishes(t *testing.T) {
	s, _, broker := setupStore(t)
	ctx := context.Background()

	sub, err := broker.Subscribe(ctx, events.TableClickLogs, events.KindInsert)
	require.NoError(t, err)
	defer sub.Close()

	click := &model.ClickLog{LinkID: strPtr("abc123"), Platform: "shopee", TargetURL: "https://t", IP: "1.2.3.4"}
	require.NoError(t, s.CreateClickLog(ctx, click))
	require.NotZero(t, click.ID)

	select {
	case e := <-sub.Events():
		var got model.ClickLog
		require.NoError(t, e.Decode(&got))
		assert.Equal(t, click.ID, got.ID)
		assert.Equal(t, "shopee", got.Platform)
	case <-time.After(time.Second):
		t.Fatal("没有收到点击事件")
	}
}

func TestCreateClickLogFailureDoesNotPublish(t *testing.T) {
	s, db, broker := setupStore(t)
	ctx := context.Background()
	require.NoError(t, db.Migrator().DropTable(&model.ClickLog{}))

	sub, err := broker.Subscribe(ctx, events.TableClickLogs, events.KindInsert)
	require.NoError(t, err)
	defer sub.Close()

	assert.Error(t, s.CreateClickLog(ctx, &model.ClickLog{Platform: "shopee", TargetURL: "x"}))
	assert.Len(t, sub.Events(), 0)
}

func TestRecentAndStats(t *testing.T) {
	s, _, _ := setupStore(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	platforms := []string{"lazada", "shopee", "shopee", "lazada", "shopee"}
	for i, p := range platforms {
		require.NoError(t, s.CreateClickLog(ctx, &model.ClickLog{Platform: p, TargetURL: fmt.Sprintf("https://t/%d", i), CreatedAt: base.Add(time.Duration(i) * time.Minute)}))
	}

	recent, err := s.RecentClickLogs(ctx, 3)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, "https://t/4", recent[0].TargetURL)
	assert.Equal(t, "https://t/2", recent[2].TargetURL)

	stats, err := s.ClickStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5), stats.Total)
	assert.Equal(t, int64(2), stats.ByPlatform["lazada"])
	assert.Equal(t, int64(3), stats.ByPlatform["shopee"])
}

func TestConversionsAndCommission(t *testing.T) {
	s, _, _ := setupStore(t)
	ctx := context.Background()

	total, err := s.CommissionTotal(ctx)
	require.NoError(t, err)
	assert.True(t, total.IsZero())

	for i, amount := range []string{"12.5", "7.25"} {
		conv := &model.Conversion{
			Platform:   "lazada",
			OrderID:    fmt.Sprintf("o-%d", i),
			Qty:        1,
			Commission: model.NewMoney(decimal.RequireFromString(amount)),
			Currency:   model.DefaultCurrency,
			Status:     model.StatusPaid,
			Raw:        map[string]interface{}{"order_id": fmt.Sprintf("o-%d", i)},
		}
		require.NoError(t, s.CreateConversion(ctx, conv))
	}

	total, err = s.CommissionTotal(ctx)
	require.NoError(t, err)
	assert.Equal(t, "19.75", total.String())

	recent, err := s.RecentConversions(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "o-1", recent[0].OrderID)
	assert.Equal(t, "12.50", recent[1].Commission.String())
	assert.Equal(t, "o-0", recent[1].Raw["order_id"])
}

func TestPing(t *testing.T) {
	s, db, _ := setupStore(t)
	assert.NoError(t, s.Ping(context.Background()))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())
	assert.Error(t, s.Ping(context.Background()))
}
