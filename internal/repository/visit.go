package repository

import (
	"context"

	"randomblog/internal/models"

	"gorm.io/gorm"
)

// VisitRepository persists the append-only post visit log.
type VisitRepository interface {
	Create(ctx context.Context, visit *models.PostVisit) error
	ListByUser(ctx context.Context, userID uint) ([]models.PostVisit, error)
	CountDistinctPosts(ctx context.Context, userID uint) (int64, error)
}

type visitRepository struct {
	db *gorm.DB
}

// NewVisitRepository returns a new VisitRepository implementation.
func NewVisitRepository(db *gorm.DB) VisitRepository {
	return &visitRepository{db: db}
}

func (r *visitRepository) Create(ctx context.Context, visit *models.PostVisit) error {
	if err := r.db.WithContext(ctx).Create(visit).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// ListByUser returns the user's visits, most recent first, with each post loaded.
func (r *visitRepository) ListByUser(ctx context.Context, userID uint) ([]models.PostVisit, error) {
	visits := []models.PostVisit{}
	err := r.db.WithContext(ctx).
		Preload("Post").
		Where("user_id = ?", userID).
		Order("visited_at DESC").
		Order("id DESC").
		Find(&visits).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return visits, nil
}

func (r *visitRepository) CountDistinctPosts(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.PostVisit{}).
		Where("user_id = ?", userID).
		Distinct("post_id").
		Count(&count).Error
	if err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}
