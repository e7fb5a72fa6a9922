package model

import "time"

// User 用户资料（关系链只关心 ID 与用户名）
type User struct {
	ID        string    `gorm:"primaryKey;type:varchar(128)"`
	Username  string    `gorm:"type:varchar(64);index"`
	Email     string    `gorm:"type:varchar(255)"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (User) TableName() string { return "users" }

// UserProfile 组装后的资料视图：基础信息 + 两份可见性名单
type UserProfile struct {
	UID             string   `json:"uid"`
	Username        string   `json:"username"`
	HiddenFriendIDs []string `json:"hiddenFriendIds"`
	HidePinsFrom    []string `json:"hidePinsFrom"`
}
