package model

import "time"

// ContentItem хранит запись контент-менеджера в исходном виде; Type выбирает декодер.
type ContentItem struct {
	ID      uint64 `gorm:"primaryKey" json:"id"`
	Type    string `gorm:"type:varchar(32);index;not null" json:"type"`
	Payload string `gorm:"type:text;not null" json:"payload"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ContentItem) TableName() string {
	return "content_items"
}
