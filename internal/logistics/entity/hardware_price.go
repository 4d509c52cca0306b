package entity

import "time"

// HardwarePrice 型号单价表，批量定价时按型号取最新一条
type HardwarePrice struct {
	ID        string     `gorm:"primaryKey;size:32" json:"id"`
	PriceDate *time.Time `gorm:"type:date;index" json:"price_date"`
	ItemName  string     `gorm:"size:128;index" json:"item_name"`
	Category  string     `gorm:"size:32" json:"category"`
	Price     *float64   `json:"price"`
	Remark    string     `gorm:"size:512" json:"remark"`
	CreatedBy string     `gorm:"size:64" json:"created_by"`
	Deleted   bool       `gorm:"index" json:"-"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (HardwarePrice) TableName() string {
	return "hardware_prices"
}
