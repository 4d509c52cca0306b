package entity

import "time"

// 用户提报状态
const (
	SubmissionStatusPending   = "PENDING"
	SubmissionStatusCompleted = "COMPLETED"
)

// UserSubmission 用户提报的运单认领。同一运单号只允许存在一条
// 有效提报；全部关联结算确认后自动流转为 COMPLETED。
type UserSubmission struct {
	ID             string     `gorm:"primaryKey;size:32" json:"id"`
	Username       string     `gorm:"size:64;index" json:"username"`
	TrackingNumber string     `gorm:"size:64;index" json:"tracking_number"`
	Status         string     `gorm:"size:20;index" json:"status"`
	Amount         *float64   `json:"amount"`
	SubmissionDate *time.Time `gorm:"type:date" json:"submission_date"`
	Remark         string     `gorm:"size:512" json:"remark"`
	Deleted        bool       `gorm:"index" json:"-"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`

	// 展示字段，查询时按运单号回查订单快照，不落库
	Order *OrderRecord `gorm:"-" json:"order,omitempty"`
}

func (UserSubmission) TableName() string {
	return "user_submissions"
}

// SubmissionLog 提报操作流水，只增不改
type SubmissionLog struct {
	ID             string    `gorm:"primaryKey;size:32" json:"id"`
	Username       string    `gorm:"size:64;index" json:"username"`
	TrackingNumber string    `gorm:"size:64;index" json:"tracking_number"`
	Action         string    `gorm:"size:32" json:"action"`
	Detail         string    `gorm:"size:512" json:"detail"`
	CreatedAt      time.Time `json:"created_at"`
}

func (SubmissionLog) TableName() string {
	return "submission_logs"
}
