package model

import (
	"time"
)

// 支持的联盟平台
const (
	PlatformLazada = "lazada"
	PlatformShopee = "shopee"
)

// Link 短链接模型，创建后不可修改
type Link struct {
	ID           string    `gorm:"primaryKey;size:16" json:"id"`
	Platform     string    `gorm:"size:16;not null;index" json:"platform"`
	OriginalURL  string    `gorm:"type:text;not null" json:"original_url"`
	AffiliateURL string    `gorm:"type:text;not null" json:"affiliate_url"`
	CreatedAt    time.Time `json:"created_at"`
}

// TableName 指定表名
func (Link) TableName() string {
	return "links"
}

// Offer 商品信息，仅在提交了商品名时随链接一起创建
type Offer struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	LinkID      string    `gorm:"size:16;not null;index" json:"link_id"`
	ProductName string    `gorm:"type:text" json:"product_name"`
	SubID       string    `gorm:"size:64" json:"subid"`
	CreatedAt   time.Time `json:"created_at"`

	Link *Link `gorm:"foreignKey:LinkID" json:"-"`
}

// TableName 指定表名
func (Offer) TableName() string {
	return "offers"
}
