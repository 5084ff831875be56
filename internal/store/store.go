package store

import (
	"context"
	"errors"
	"fmt"

	"affiliate-link/internal/events"
	"affiliate-link/internal/metrics"
	"affiliate-link/internal/model"
	"affiliate-link/pkg/database"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrNotFound 记录不存在
var ErrNotFound = errors.New("record not found")

// ClickStats 点击汇总
type ClickStats struct {
	Total      int64            `json:"total"`
	ByPlatform map[string]int64 `json:"by_platform"`
}

// Reader 实时面板使用的只读接口
type Reader interface {
	RecentClickLogs(ctx context.Context, limit int) ([]model.ClickLog, error)
	RecentConversions(ctx context.Context, limit int) ([]model.Conversion, error)
	ClickStats(ctx context.Context) (ClickStats, error)
	CommissionTotal(ctx context.Context) (model.Money, error)
}

// Store 持久化接口
type Store interface {
	Reader
	CreateLink(ctx context.Context, link *model.Link, offer *model.Offer) error
	GetLink(ctx context.Context, id string) (*model.Link, error)
	CreateClickLog(ctx context.Context, click *model.ClickLog) error
	CreateConversion(ctx context.Context, conv *model.Conversion) error
	Ping(ctx context.Context) error
}

// GormStore 基于 gorm 的实现，支持 MySQL / PostgreSQL / SQLite
type GormStore struct {
	db        *gorm.DB
	publisher events.Publisher
	logger    *zap.SugaredLogger
}

// New 创建 GormStore，publisher 为 nil 时不发布变更事件
func New(db *gorm.DB, publisher events.Publisher, logger *zap.SugaredLogger) *GormStore {
	return &GormStore{
		db:        db,
		publisher: publisher,
		logger:    logger.Named("store"),
	}
}

// CreateLink 在同一事务中写入链接和可选的商品信息
func (s *GormStore) CreateLink(ctx context.Context, link *model.Link, offer *model.Offer) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(link).Error; err != nil {
			return err
		}
		if offer == nil {
			return nil
		}
		offer.LinkID = link.ID
		return tx.Create(offer).Error
	})
}

// GetLink 按短码查询链接
func (s *GormStore) GetLink(ctx context.Context, id string) (*model.Link, error) {
	var link model.Link
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&link).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &link, nil
}

// CreateClickLog 写入点击日志并发布事件
func (s *GormStore) CreateClickLog(ctx context.Context, click *model.ClickLog) error {
	if err := s.db.WithContext(ctx).Create(click).Error; err != nil {
		return err
	}
	s.publish(ctx, events.TableClickLogs, click)
	return nil
}

// CreateConversion 写入转化记录并发布事件
func (s *GormStore) CreateConversion(ctx context.Context, conv *model.Conversion) error {
	if err := s.db.WithContext(ctx).Create(conv).Error; err != nil {
		return err
	}
	s.publish(ctx, events.TableConversions, conv)
	return nil
}

// RecentClickLogs 最新的点击日志，按时间倒序
func (s *GormStore) RecentClickLogs(ctx context.Context, limit int) ([]model.ClickLog, error) {
	var rows []model.ClickLog
	err := s.db.WithContext(ctx).
		Order("created_at DESC").Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// RecentConversions 最新的转化记录，按时间倒序
func (s *GormStore) RecentConversions(ctx context.Context, limit int) ([]model.Conversion, error) {
	var rows []model.Conversion
	err := s.db.WithContext(ctx).
		Order("created_at DESC").Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// ClickStats 点击总数和各平台点击数
func (s *GormStore) ClickStats(ctx context.Context) (ClickStats, error) {
	var rows []struct {
		Platform string
		Count    int64
	}
	err := s.db.WithContext(ctx).
		Model(&model.ClickLog{}).
		Select("platform, COUNT(*) AS count").
		Group("platform").
		Scan(&rows).Error
	if err != nil {
		return ClickStats{}, err
	}

	stats := ClickStats{ByPlatform: make(map[string]int64, len(rows))}
	for _, r := range rows {
		stats.ByPlatform[r.Platform] = r.Count
		stats.Total += r.Count
	}
	return stats, nil
}

// CommissionTotal 所有转化的佣金合计
func (s *GormStore) CommissionTotal(ctx context.Context) (model.Money, error) {
	var total model.Money
	err := s.db.WithContext(ctx).
		Model(&model.Conversion{}).
		Select("COALESCE(SUM(commission), 0)").
		Row().
		Scan(&total)
	if err != nil {
		return model.Money{}, err
	}
	return total, nil
}

// Ping 检查数据库连接
func (s *GormStore) Ping(ctx context.Context) error {
	return database.Ping(ctx, s.db)
}

// publish 发布插入事件，失败只记录日志
func (s *GormStore) publish(ctx context.Context, table string, row any) {
	if s.publisher == nil {
		return
	}
	e, err := events.NewEvent(table, events.KindInsert, row)
	if err == nil {
		err = s.publisher.Publish(ctx, e)
	}
	if err != nil {
		metrics.EventPublishFailures.WithLabelValues(table).Inc()
		s.logger.Warnw("发布变更事件失败", "table", table, "error", fmt.Sprint(err))
	}
}
