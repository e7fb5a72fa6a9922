package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/travel-relation/internal/model"
)

// RelationshipRepository friend_requests 集合上的查询与变更
type RelationshipRepository interface {
	// Create 仅当该无序对没有记录时插入；已存在返回 created=false
	Create(ctx context.Context, req *model.RelationshipRequest) (created bool, err error)
	GetByID(ctx context.Context, id string) (*model.RelationshipRequest, error)
	// FindDirected 按 from→to 精确查找，不带状态过滤
	FindDirected(ctx context.Context, fromUID, toUID string) (*model.RelationshipRequest, error)
	// FindByParticipants 在 participants 上做包含查询，忽略方向
	FindByParticipants(ctx context.Context, a, b string) (*model.RelationshipRequest, error)
	ListByFrom(ctx context.Context, fromUID string, status model.RelationshipStatus) ([]*model.RelationshipRequest, error)
	ListByTo(ctx context.Context, toUID string, status model.RelationshipStatus) ([]*model.RelationshipRequest, error)
	// UpdateStatus 仅当当前状态为 from 时改为 to
	UpdateStatus(ctx context.Context, id string, from, to model.RelationshipStatus) (bool, error)
	// DeleteWithStatus 仅删除处于 status 的记录
	DeleteWithStatus(ctx context.Context, id string, status model.RelationshipStatus) (bool, error)
}

type relationshipRepository struct {
	db *gorm.DB
}

func NewRelationshipRepository(db *gorm.DB) RelationshipRepository {
	return &relationshipRepository{db: db}
}

func (r *relationshipRepository) Create(ctx context.Context, req *model.RelationshipRequest) (bool, error) {
	// 主键由无序对决定，冲突即说明已有记录
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(req)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *relationshipRepository) GetByID(ctx context.Context, id string) (*model.RelationshipRequest, error) {
	var req model.RelationshipRequest
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&req).Error; err != nil {
		return nil, translate(err)
	}
	return &req, nil
}

func (r *relationshipRepository) FindDirected(ctx context.Context, fromUID, toUID string) (*model.RelationshipRequest, error) {
	var req model.RelationshipRequest
	err := r.db.WithContext(ctx).
		Where("from_uid = ? AND to_uid = ?", fromUID, toUID).
		First(&req).Error
	if err != nil {
		return nil, translate(err)
	}
	return &req, nil
}

func (r *relationshipRepository) FindByParticipants(ctx context.Context, a, b string) (*model.RelationshipRequest, error) {
	low, high := model.SortedPair(a, b)
	var req model.RelationshipRequest
	err := r.db.WithContext(ctx).
		Where("participant_low = ? AND participant_high = ?", low, high).
		First(&req).Error
	if err != nil {
		return nil, translate(err)
	}
	return &req, nil
}

func (r *relationshipRepository) ListByFrom(ctx context.Context, fromUID string, status model.RelationshipStatus) ([]*model.RelationshipRequest, error) {
	var res []*model.RelationshipRequest
	err := r.db.WithContext(ctx).Where("from_uid = ? AND status = ?", fromUID, status).Find(&res).Error
	return res, err
}

func (r *relationshipRepository) ListByTo(ctx context.Context, toUID string, status model.RelationshipStatus) ([]*model.RelationshipRequest, error) {
	var res []*model.RelationshipRequest
	err := r.db.WithContext(ctx).Where("to_uid = ? AND status = ?", toUID, status).Find(&res).Error
	return res, err
}

func (r *relationshipRepository) UpdateStatus(ctx context.Context, id string, from, to model.RelationshipStatus) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.RelationshipRequest{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *relationshipRepository) DeleteWithStatus(ctx context.Context, id string, status model.RelationshipStatus) (bool, error) {
	res := r.db.WithContext(ctx).Where("id = ? AND status = ?", id, status).Delete(&model.RelationshipRequest{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
