package repository

import (
	"errors"

	"gorm.io/gorm"
)

// ErrNotFound 记录不存在
var ErrNotFound = errors.New("记录不存在")

// Active 软删过滤统一在查询构造处收口，业务代码不重复拼接 deleted 条件
func Active(db *gorm.DB) *gorm.DB {
	return db.Where("deleted = ?", false)
}

func wrapNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
