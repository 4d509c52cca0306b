package entity

import "time"

// 用户角色
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// SysUser 系统用户，密码存 bcrypt 摘要
type SysUser struct {
	ID          string    `gorm:"primaryKey;size:32" json:"id"`
	Username    string    `gorm:"size:64;uniqueIndex" json:"username"`
	Password    string    `gorm:"size:128" json:"-"`
	DisplayName string    `gorm:"size:64" json:"display_name"`
	Role        string    `gorm:"size:20" json:"role"`
	Disabled    bool      `json:"disabled"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (SysUser) TableName() string {
	return "sys_users"
}
