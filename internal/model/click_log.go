package model

import (
	"time"
)

// ClickLog 点击日志，每次跳转写入一条，只追加不修改
type ClickLog struct {
	ID         uint      `gorm:"primarykey" json:"id"`
	LinkID     *string   `gorm:"size:16;index" json:"link_id"`
	Platform   string    `gorm:"size:16;not null;index" json:"platform"`
	TargetURL  string    `gorm:"type:text;not null" json:"target_url"`
	IP         string    `gorm:"size:45" json:"ip"`
	Referrer   string    `gorm:"type:text" json:"referrer"`
	UserAgent  string    `gorm:"type:text" json:"user_agent"`
	DeviceType string    `gorm:"size:16" json:"device_type"`
	Browser    string    `gorm:"size:64" json:"browser"`
	OS         string    `gorm:"size:64" json:"os"`
	ClickID    string    `gorm:"size:32;index" json:"click_id"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`

	Link *Link `gorm:"foreignKey:LinkID" json:"-"`
}

func (ClickLog) TableName() string {
	return "click_logs"
}
