package model

import (
	"time"

	"github.com/google/uuid"
)

// RelationshipStatus 好友请求状态；拒绝与解除都直接删除记录，不落 rejected
type RelationshipStatus string

const (
	StatusPending  RelationshipStatus = "pending"
	StatusAccepted RelationshipStatus = "accepted"
)

// pairNamespace 用于从无序对 {A,B} 派生确定性的记录 ID
var pairNamespace = uuid.MustParse("6f1c1d8e-4b8a-4f0e-9a57-3f3c9d2b7e10")

// RelationshipRequest 好友请求/好友关系（每个无序对至多一条）
type RelationshipRequest struct {
	ID           string             `gorm:"primaryKey;type:varchar(36)"`
	FromUID      string             `gorm:"column:from_uid;type:varchar(128);not null;index:idx_fr_from_status"`
	ToUID        string             `gorm:"column:to_uid;type:varchar(128);not null;index:idx_fr_to_status"`
	FromUsername string             `gorm:"type:varchar(64)"`
	Status       RelationshipStatus `gorm:"type:varchar(16);not null;index:idx_fr_from_status;index:idx_fr_to_status"`
	// Participants 冗余的 [from, to]，low/high 为排序后的同一对，用于"包含"查询
	Participants    []string `gorm:"serializer:json;type:text"`
	ParticipantLow  string   `gorm:"type:varchar(128);not null;index:idx_fr_low"`
	ParticipantHigh string   `gorm:"type:varchar(128);not null;index:idx_fr_high"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (RelationshipRequest) TableName() string { return "friend_requests" }

// NewRelationshipRequest 构造一条 pending 记录，ID 由排序后的无序对决定
func NewRelationshipRequest(fromUID, fromUsername, toUID string) *RelationshipRequest {
	low, high := SortedPair(fromUID, toUID)
	return &RelationshipRequest{
		ID:              PairID(fromUID, toUID),
		FromUID:         fromUID,
		ToUID:           toUID,
		FromUsername:    fromUsername,
		Status:          StatusPending,
		Participants:    []string{fromUID, toUID},
		ParticipantLow:  low,
		ParticipantHigh: high,
	}
}

// SortedPair 返回 (min, max)
func SortedPair(a, b string) (string, string) {
	if a > b {
		return b, a
	}
	return a, b
}

// PairID 无序对 {a,b} 的确定性 ID，PairID(a,b) == PairID(b,a)
func PairID(a, b string) string {
	low, high := SortedPair(a, b)
	return uuid.NewSHA1(pairNamespace, []byte(low+"|"+high)).String()
}

// Other 返回关系中 uid 的另一方；uid 不在其中时返回空串
func (r *RelationshipRequest) Other(uid string) string {
	switch uid {
	case r.FromUID:
		return r.ToUID
	case r.ToUID:
		return r.FromUID
	}
	return ""
}
