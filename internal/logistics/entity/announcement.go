package entity

import "time"

// Announcement 站内公告
type Announcement struct {
	ID        string    `gorm:"primaryKey;size:32" json:"id"`
	Title     string    `gorm:"size:128" json:"title"`
	Content   string    `gorm:"size:2048" json:"content"`
	CreatedBy string    `gorm:"size:64" json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

func (Announcement) TableName() string {
	return "announcements"
}
