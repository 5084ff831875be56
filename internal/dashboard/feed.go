package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"affiliate-link/internal/events"
	"affiliate-link/internal/metrics"
	"affiliate-link/internal/model"
	"affiliate-link/internal/store"

	"go.uber.org/zap"
)

// MaxLimit 展示条数上限
const MaxLimit = 100

// ErrAlreadyActive Activate 只能调用一次
var ErrAlreadyActive = errors.New("dashboard: feed already activated")

// Totals 累计汇总
type Totals struct {
	Clicks     int64            `json:"clicks"`
	ByPlatform map[string]int64 `json:"by_platform"`
	Commission model.Money      `json:"commission"`
}

// Snapshot 面板在某一时刻的状态
type Snapshot struct {
	Clicks      []ClickRow      `json:"clicks"`
	Conversions []ConversionRow `json:"conversions"`
	Totals      Totals          `json:"totals"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Feed 实时面板数据源
//
// 激活时先订阅再加载。已在列表中的行被忽略；ID 不大于已加载最大 ID 但不在列表中的行
// 可能是乱序提交的，此时重新加载一次
type Feed struct {
	reader store.Reader
	source events.Source
	limit  int
	logger *zap.SugaredLogger

	mu          sync.RWMutex
	clicks      []ClickRow
	conversions []ConversionRow
	totals      Totals
	updatedAt   time.Time
	maxClickID  uint
	maxConvID   uint

	updates chan Snapshot

	lifecycle sync.Mutex
	active    bool
	closed    bool
	cancel    context.CancelFunc
	subs      []events.Subscription
	done      chan struct{}
}

// NewFeed 创建面板数据源，limit 会被限制在 1..MaxLimit
func NewFeed(reader store.Reader, source events.Source, limit int, logger *zap.SugaredLogger) *Feed {
	if limit <= 0 {
		limit = 10
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return &Feed{
		reader:  reader,
		source:  source,
		limit:   limit,
		logger:  logger.Named("dashboard"),
		totals:  Totals{ByPlatform: map[string]int64{}},
		updates: make(chan Snapshot, 1),
		done:    make(chan struct{}),
	}
}

// Activate 订阅点击和转化事件，加载初始数据并开始消费事件
func (f *Feed) Activate(ctx context.Context) error {
	f.lifecycle.Lock()
	defer f.lifecycle.Unlock()
	if f.active || f.closed {
		return ErrAlreadyActive
	}

	runCtx, cancel := context.WithCancel(ctx)
	clickSub, err := f.source.Subscribe(runCtx, events.TableClickLogs, events.KindInsert)
	if err != nil {
		cancel()
		return fmt.Errorf("订阅点击事件失败: %w", err)
	}
	convSub, err := f.source.Subscribe(runCtx, events.TableConversions, events.KindInsert)
	if err != nil {
		_ = clickSub.Close()
		cancel()
		return fmt.Errorf("订阅转化事件失败: %w", err)
	}

	if err := f.load(ctx); err != nil {
		_ = clickSub.Close()
		_ = convSub.Close()
		cancel()
		return err
	}

	f.active = true
	f.cancel = cancel
	f.subs = []events.Subscription{clickSub, convSub}
	metrics.DashboardSubscribers.Inc()

	go f.consume(runCtx, clickSub.Events(), convSub.Events())
	return nil
}

func (f *Feed) load(ctx context.Context) error {
	stats, err := f.reader.ClickStats(ctx)
	if err != nil {
		return fmt.Errorf("加载点击汇总失败: %w", err)
	}
	commission, err := f.reader.CommissionTotal(ctx)
	if err != nil {
		return fmt.Errorf("加载佣金合计失败: %w", err)
	}
	clicks, err := f.reader.RecentClickLogs(ctx, f.limit)
	if err != nil {
		return fmt.Errorf("加载最近点击失败: %w", err)
	}
	conversions, err := f.reader.RecentConversions(ctx, f.limit)
	if err != nil {
		return fmt.Errorf("加载最近转化失败: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.clicks = clickRows(clicks)
	f.conversions = conversionRows(conversions)
	byPlatform := make(map[string]int64, len(stats.ByPlatform))
	for k, v := range stats.ByPlatform {
		byPlatform[k] = v
	}
	f.totals = Totals{
		Clicks:     stats.Total,
		ByPlatform: byPlatform,
		Commission: commission,
	}
	f.maxClickID, f.maxConvID = 0, 0
	for _, c := range clicks {
		if c.ID > f.maxClickID {
			f.maxClickID = c.ID
		}
	}
	for _, c := range conversions {
		if c.ID > f.maxConvID {
			f.maxConvID = c.ID
		}
	}
	f.updatedAt = time.Now()
	return nil
}

func (f *Feed) consume(ctx context.Context, clicks, conversions <-chan events.Event) {
	defer close(f.done)

	for clicks != nil || conversions != nil {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-clicks:
			if !ok {
				clicks = nil
				continue
			}
			var row model.ClickLog
			if err := e.Decode(&row); err != nil {
				f.logger.Warnf("无法解析点击事件: %v", err)
				continue
			}
			f.handle(ctx, f.applyClick(row))
		case e, ok := <-conversions:
			if !ok {
				conversions = nil
				continue
			}
			var row model.Conversion
			if err := e.Decode(&row); err != nil {
				f.logger.Warnf("无法解析转化事件: %v", err)
				continue
			}
			f.handle(ctx, f.applyConversion(row))
		}
	}
}

type outcome int

const (
	skipped outcome = iota
	applied
	needsReload
)

func (f *Feed) handle(ctx context.Context, o outcome) {
	switch o {
	case applied:
		f.publish()
	case needsReload:
		if err := f.load(ctx); err != nil {
			if ctx.Err() == nil {
				f.logger.Warnf("重新加载面板失败: %v", err)
			}
			return
		}
		f.publish()
	}
}

func (f *Feed) applyClick(row model.ClickLog) outcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	if row.ID != 0 && row.ID <= f.maxClickID {
		for _, c := range f.clicks {
			if c.ID == row.ID {
				return skipped
			}
		}
		return needsReload
	}
	if row.ID > f.maxClickID {
		f.maxClickID = row.ID
	}

	f.clicks = prepend(f.clicks, clickRow(row), f.limit)
	f.totals.Clicks++
	f.totals.ByPlatform[row.Platform]++
	f.updatedAt = time.Now()
	return applied
}

func (f *Feed) applyConversion(row model.Conversion) outcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	if row.ID != 0 && row.ID <= f.maxConvID {
		for _, c := range f.conversions {
			if c.ID == row.ID {
				return skipped
			}
		}
		return needsReload
	}
	if row.ID > f.maxConvID {
		f.maxConvID = row.ID
	}

	f.conversions = prepend(f.conversions, conversionRow(row), f.limit)
	f.totals.Commission = model.NewMoney(f.totals.Commission.Add(row.Commission.Decimal))
	f.updatedAt = time.Now()
	return applied
}

// publish 只保留最新的快照，消费方慢时丢弃旧的
func (f *Feed) publish() {
	snap := f.Snapshot()
	for {
		select {
		case f.updates <- snap:
			return
		default:
		}
		select {
		case <-f.updates:
		default:
		}
	}
}

// Snapshot 返回当前状态的副本
func (f *Feed) Snapshot() Snapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()

	byPlatform := make(map[string]int64, len(f.totals.ByPlatform))
	for k, v := range f.totals.ByPlatform {
		byPlatform[k] = v
	}
	clicks := make([]ClickRow, len(f.clicks))
	copy(clicks, f.clicks)
	conversions := make([]ConversionRow, len(f.conversions))
	copy(conversions, f.conversions)
	return Snapshot{
		Clicks:      clicks,
		Conversions: conversions,
		Totals: Totals{
			Clicks:     f.totals.Clicks,
			ByPlatform: byPlatform,
			Commission: f.totals.Commission,
		},
		UpdatedAt: f.updatedAt,
	}
}

// Updates 每次状态变化后推送最新快照，Close 之后通道被关闭
func (f *Feed) Updates() <-chan Snapshot {
	return f.updates
}

// Close 取消订阅并停止消费，可重复调用
func (f *Feed) Close() error {
	f.lifecycle.Lock()
	defer f.lifecycle.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true

	if !f.active {
		close(f.updates)
		return nil
	}

	f.cancel()
	var errs []error
	for _, s := range f.subs {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	<-f.done
	close(f.updates)
	metrics.DashboardSubscribers.Dec()
	return errors.Join(errs...)
}

func prepend[T any](list []T, row T, limit int) []T {
	out := make([]T, 0, limit)
	out = append(out, row)
	for _, item := range list {
		if len(out) >= limit {
			break
		}
		out = append(out, item)
	}
	return out
}
