package model

import (
	"time"

	"gorm.io/datatypes"
)

// ConversionStatus 归一化后的转化状态
type ConversionStatus string

const (
	StatusClick ConversionStatus = "click"
	StatusCart  ConversionStatus = "cart"
	StatusPaid  ConversionStatus = "paid"
)

// DefaultCurrency 回传未提供币种时使用
const DefaultCurrency = "THB"

// Conversion 联盟网络回传的转化记录，只追加
type Conversion struct {
	ID         uint              `gorm:"primarykey" json:"id"`
	Platform   string            `gorm:"size:16;not null;index" json:"platform"`
	OrderID    string            `gorm:"size:128;index" json:"order_id"`
	ItemName   string            `gorm:"type:text" json:"item_name"`
	ItemID     string            `gorm:"size:128" json:"item_id"`
	Qty        int               `gorm:"not null" json:"qty"`
	Commission Money             `gorm:"type:decimal(20,2);not null;default:0" json:"commission"`
	Currency   string            `gorm:"size:8;not null;default:'THB'" json:"currency"`
	Status     ConversionStatus  `gorm:"size:8;not null;index" json:"status"`
	SubID      string            `gorm:"size:64;index" json:"subid"`
	LinkID     *string           `gorm:"size:64;index" json:"link_id"`
	ClickID    *string           `gorm:"size:64;index" json:"click_id"`
	Raw        datatypes.JSONMap `json:"raw"`
	CreatedAt  time.Time         `gorm:"index" json:"created_at"`
}

// TableName 指定表名
func (Conversion) TableName() string {
	return "conversions"
}
