package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/travel-relation/internal/model"
)

// OverlayRepository 资料上两份可见性集合的增删查
type OverlayRepository interface {
	// Add 集合加入，重复加入不报错
	Add(ctx context.Context, ownerID string, kind model.OverlayKind, targetID string) error
	// Remove 集合移除，不存在不报错
	Remove(ctx context.Context, ownerID string, kind model.OverlayKind, targetID string) error
	List(ctx context.Context, ownerID string, kind model.OverlayKind) ([]string, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*model.ProfileOverlay, error)
	// OwnersTargeting 在 owners 中找出 kind 集合里包含 targetID 的那些
	OwnersTargeting(ctx context.Context, kind model.OverlayKind, targetID string, owners []string) ([]string, error)
	// RemoveBetween 删除 a、b 互相引用的所有条目
	RemoveBetween(ctx context.Context, a, b string) (int64, error)
}

type overlayRepository struct{ db *gorm.DB }

func NewOverlayRepository(db *gorm.DB) OverlayRepository { return &overlayRepository{db: db} }

func (r *overlayRepository) Add(ctx context.Context, ownerID string, kind model.OverlayKind, targetID string) error {
	e := &model.ProfileOverlay{OwnerID: ownerID, Kind: kind, TargetID: targetID}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(e).Error
}

func (r *overlayRepository) Remove(ctx context.Context, ownerID string, kind model.OverlayKind, targetID string) error {
	return r.db.WithContext(ctx).
		Where("owner_id = ? AND kind = ? AND target_id = ?", ownerID, kind, targetID).
		Delete(&model.ProfileOverlay{}).Error
}

func (r *overlayRepository) List(ctx context.Context, ownerID string, kind model.OverlayKind) ([]string, error) {
	ids := []string{}
	err := r.db.WithContext(ctx).
		Model(&model.ProfileOverlay{}).
		Where("owner_id = ? AND kind = ?", ownerID, kind).
		Order("created_at, id").
		Pluck("target_id", &ids).Error
	return ids, err
}

func (r *overlayRepository) ListByOwner(ctx context.Context, ownerID string) ([]*model.ProfileOverlay, error) {
	var res []*model.ProfileOverlay
	err := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).Order("created_at, id").Find(&res).Error
	return res, err
}

func (r *overlayRepository) OwnersTargeting(ctx context.Context, kind model.OverlayKind, targetID string, owners []string) ([]string, error) {
	ids := []string{}
	if len(owners) == 0 {
		return ids, nil
	}
	err := r.db.WithContext(ctx).
		Model(&model.ProfileOverlay{}).
		Where("kind = ? AND target_id = ? AND owner_id IN ?", kind, targetID, owners).
		Pluck("owner_id", &ids).Error
	return ids, err
}

func (r *overlayRepository) RemoveBetween(ctx context.Context, a, b string) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("(owner_id = ? AND target_id = ?) OR (owner_id = ? AND target_id = ?)", a, b, b, a).
		Delete(&model.ProfileOverlay{})
	return res.RowsAffected, res.Error
}
