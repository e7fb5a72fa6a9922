package model

import "time"

// OverlayKind 可见性名单类型
type OverlayKind string

const (
	// OverlayHiddenFriend 我不想看到 target 的内容（hiddenFriendIds）
	OverlayHiddenFriend OverlayKind = "hidden_friend"
	// OverlayHidePinsFrom 不让 target 看到我的内容（hidePinsFrom）
	OverlayHidePinsFrom OverlayKind = "hide_pins_from"
)

// ProfileOverlay 资料上的集合字段按行存储，(owner, kind, target) 唯一
type ProfileOverlay struct {
	ID        uint        `gorm:"primaryKey;autoIncrement"`
	OwnerID   string      `gorm:"type:varchar(128);not null;index:idx_overlay_entry,unique"`
	Kind      OverlayKind `gorm:"type:varchar(32);not null;index:idx_overlay_entry,unique"`
	TargetID  string      `gorm:"type:varchar(128);not null;index:idx_overlay_entry,unique;index:idx_overlay_target"`
	CreatedAt time.Time
}

func (ProfileOverlay) TableName() string { return "profile_overlays" }
