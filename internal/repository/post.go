package repository

import (
	"context"
	"errors"
	"time"

	"randomblog/internal/cache"
	"randomblog/internal/models"

	"gorm.io/gorm"
)

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	GetBySlug(ctx context.Context, slug string, publishedOnly bool) (*models.Post, error)
	List(ctx context.Context, publishedOnly bool) ([]models.Post, error)
	Update(ctx context.Context, post *models.Post, previousSlug string) error
	Delete(ctx context.Context, post *models.Post) error
	SlugExists(ctx context.Context, slug string, excludeID uint) (bool, error)
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("A post with this slug already exists", err)
		}
		return models.NewInternalError(err)
	}
	cache.InvalidatePost(ctx, post.Slug)
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Post", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &post, nil
}

func (r *postRepository) GetBySlug(ctx context.Context, slug string, publishedOnly bool) (*models.Post, error) {
	var post models.Post
	fetch := func() error {
		q := r.db.WithContext(ctx).Where("slug = ?", slug)
		if publishedOnly {
			q = q.Where("published = ?", true)
		}
		if err := q.First(&post).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("Post", slug)
			}
			return models.NewInternalError(err)
		}
		return nil
	}

	var err error
	if publishedOnly {
		err = cache.Aside(ctx, cache.PostSlugKey(slug), &post, cache.PostSlugTTL, fetch)
	} else {
		err = fetch()
	}
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *postRepository) List(ctx context.Context, publishedOnly bool) ([]models.Post, error) {
	posts := []models.Post{}
	fetch := func() error {
		q := r.db.WithContext(ctx).Order("created_at DESC").Order("id DESC")
		if publishedOnly {
			q = q.Where("published = ?", true)
		}
		if err := q.Find(&posts).Error; err != nil {
			return models.NewInternalError(err)
		}
		return nil
	}

	var err error
	if publishedOnly {
		err = cache.Aside(ctx, cache.PublishedListKey, &posts, cache.PublishedListTTL, fetch)
	} else {
		err = fetch()
	}
	if err != nil {
		return nil, err
	}
	return posts, nil
}

func (r *postRepository) Update(ctx context.Context, post *models.Post, previousSlug string) error {
	post.UpdatedAt = time.Now()
	err := r.db.WithContext(ctx).
		Model(post).
		Select("title", "slug", "image_url", "body", "published", "updated_at").
		Updates(post).Error
	if err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("A post with this slug already exists", err)
		}
		return models.NewInternalError(err)
	}
	cache.InvalidatePost(ctx, previousSlug, post.Slug)
	return nil
}

// Delete removes the post and every visit recorded for it.
func (r *postRepository) Delete(ctx context.Context, post *models.Post) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", post.ID).Delete(&models.PostVisit{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Post{}, post.ID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("Post", post.ID)
		}
		return nil
	})
	if err != nil {
		if models.IsCode(err, models.CodeNotFound) {
			return err
		}
		return models.NewInternalError(err)
	}
	cache.InvalidatePost(ctx, post.Slug)
	return nil
}

// SlugExists reports whether a post other than excludeID already uses slug.
// Pass excludeID 0 for a post that has not been saved yet.
func (r *postRepository) SlugExists(ctx context.Context, slug string, excludeID uint) (bool, error) {
	var count int64
	q := r.db.WithContext(ctx).Model(&models.Post{}).Where("slug = ?", slug)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}
