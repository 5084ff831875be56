package dashboard

import (
	"time"

	"affiliate-link/internal/model"
)

// ClickRow 面板展示的点击，不含 IP、Referrer 和 User-Agent
type ClickRow struct {
	ID         uint      `json:"id"`
	LinkID     *string   `json:"link_id"`
	Platform   string    `json:"platform"`
	TargetURL  string    `json:"target_url"`
	DeviceType string    `json:"device_type"`
	CreatedAt  time.Time `json:"created_at"`
}

// ConversionRow 面板展示的转化，不含原始回传内容
type ConversionRow struct {
	ID         uint                   `json:"id"`
	Platform   string                 `json:"platform"`
	OrderID    string                 `json:"order_id"`
	ItemName   string                 `json:"item_name"`
	Qty        int                    `json:"qty"`
	Commission model.Money            `json:"commission"`
	Currency   string                 `json:"currency"`
	Status     model.ConversionStatus `json:"status"`
	SubID      string                 `json:"subid"`
	CreatedAt  time.Time              `json:"created_at"`
}

func clickRow(c model.ClickLog) ClickRow {
	return ClickRow{
		ID:         c.ID,
		LinkID:     c.LinkID,
		Platform:   c.Platform,
		TargetURL:  c.TargetURL,
		DeviceType: c.DeviceType,
		CreatedAt:  c.CreatedAt,
	}
}

func conversionRow(c model.Conversion) ConversionRow {
	return ConversionRow{
		ID:         c.ID,
		Platform:   c.Platform,
		OrderID:    c.OrderID,
		ItemName:   c.ItemName,
		Qty:        c.Qty,
		Commission: c.Commission,
		Currency:   c.Currency,
		Status:     c.Status,
		SubID:      c.SubID,
		CreatedAt:  c.CreatedAt,
	}
}

func clickRows(in []model.ClickLog) []ClickRow {
	out := make([]ClickRow, 0, len(in))
	for _, c := range in {
		out = append(out, clickRow(c))
	}
	return out
}

func conversionRows(in []model.Conversion) []ConversionRow {
	out := make([]ConversionRow, 0, len(in))
	for _, c := range in {
		out = append(out, conversionRow(c))
	}
	return out
}
