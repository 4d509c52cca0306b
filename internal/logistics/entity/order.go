package entity

import "time"

// 订单状态
const (
	OrderStatusUnpaid      = "UNPAID"
	OrderStatusPaid        = "PAID"
	OrderStatusNotReceived = "NOT_RECEIVED"
)

// OrderRecord 订单记录，运单号是与结算/提报对账的业务主键
type OrderRecord struct {
	ID             string     `gorm:"primaryKey;size:32" json:"id"`
	OrderDate      *time.Time `gorm:"type:date" json:"order_date"`
	OrderTime      *time.Time `json:"order_time"`
	TrackingNumber string     `gorm:"size:64;index" json:"tracking_number"`
	Model          string     `gorm:"size:128" json:"model"`
	SN             string     `gorm:"column:sn;size:64;index" json:"sn"`
	Category       string     `gorm:"size:32" json:"category"`
	Status         string     `gorm:"size:20;index" json:"status"`
	Amount         *float64   `json:"amount"`
	Currency       string     `gorm:"size:8" json:"currency"`
	Weight         *float64   `json:"weight"`
	CustomerName   string     `gorm:"size:64" json:"customer_name"`
	Remark         string     `gorm:"size:512" json:"remark"`
	Imported       bool       `json:"imported"`
	Deleted        bool       `gorm:"index" json:"-"`
	CreatedBy      string     `gorm:"size:64" json:"created_by"`
	UpdatedBy      string     `gorm:"size:64" json:"updated_by"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`

	// 展示字段，查询时回填，不落库
	OwnerUsername       string `gorm:"-" json:"owner_username,omitempty"`
	InCurrentSettlement bool   `gorm:"-" json:"in_current_settlement"`
}

func (OrderRecord) TableName() string {
	return "order_records"
}
