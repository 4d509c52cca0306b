package entity

import "time"

// 结算状态机：PENDING -> CONFIRMED
const (
	SettlementStatusPending   = "PENDING"
	SettlementStatusConfirmed = "CONFIRMED"
)

// SettlementRecord 结算记录。OrderID 是弱引用，仅用于回查订单，
// 不做外键约束；运单号才是三方对账的关联键。
type SettlementRecord struct {
	ID             string     `gorm:"primaryKey;size:32" json:"id"`
	OrderID        *string    `gorm:"size:32;index" json:"order_id"`
	TrackingNumber string     `gorm:"size:64;index" json:"tracking_number"`
	Model          string     `gorm:"size:128" json:"model"`
	Amount         *float64   `json:"amount"`
	Currency       string     `gorm:"size:8" json:"currency"`
	ManualInput    bool       `json:"manual_input"`
	Status         string     `gorm:"size:20;index" json:"status"`
	Warning        bool       `json:"warning"`
	SettleBatch    string     `gorm:"size:32;index" json:"settle_batch"`
	PayableAt      *time.Time `gorm:"type:date" json:"payable_at"`
	Remark         string     `gorm:"size:512" json:"remark"`
	OwnerUsername  string     `gorm:"size:64" json:"owner_username"`
	OrderTime      *time.Time `json:"order_time"`
	ConfirmedBy    string     `gorm:"size:64" json:"confirmed_by"`
	ConfirmedAt    *time.Time `json:"confirmed_at"`
	Deleted        bool       `gorm:"index" json:"-"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`

	// 展示字段，查询时从订单侧回填，不落库
	OrderStatus string   `gorm:"-" json:"order_status,omitempty"`
	OrderAmount *float64 `gorm:"-" json:"order_amount,omitempty"`
	OrderSN     string   `gorm:"-" json:"order_sn,omitempty"`
}

func (SettlementRecord) TableName() string {
	return "settlement_records"
}
