// Package service holds the blog's business rules on top of the repositories.
package service

import (
	"context"
	"log/slog"
	"strings"

	"randomblog/internal/middleware"
	"randomblog/internal/models"
	"randomblog/internal/observability"
	"randomblog/internal/repository"
	"randomblog/internal/slug"
	"randomblog/internal/validation"

	"go.opentelemetry.io/otel/attribute"
)

// maxSlugAttempts bounds how often a generated slug is re-resolved after
// losing an insert race on the unique index.
const maxSlugAttempts = 3

type PostService struct {
	postRepo repository.PostRepository
}

// PostInput carries the fields of the manage post form.
type PostInput struct {
	Title     string
	Slug      string
	ImageURL  string
	Body      string
	Published bool
}

func NewPostService(postRepo repository.PostRepository) *PostService {
	return &PostService{postRepo: postRepo}
}

func (s *PostService) ListPublished(ctx context.Context) ([]models.Post, error) {
	return s.postRepo.List(ctx, true)
}

func (s *PostService) ListAll(ctx context.Context) ([]models.Post, error) {
	return s.postRepo.List(ctx, false)
}

// GetPublishedBySlug returns a NOT_FOUND error for drafts as well as missing slugs.
func (s *PostService) GetPublishedBySlug(ctx context.Context, postSlug string) (*models.Post, error) {
	return s.postRepo.GetBySlug(ctx, postSlug, true)
}

func (s *PostService) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	return s.postRepo.GetByID(ctx, id)
}

func (s *PostService) CreatePost(ctx context.Context, in PostInput) (post *models.Post, err error) {
	ctx, span := observability.StartSpan(ctx, "PostService", "CreatePost")
	defer func() { observability.EndSpan(span, err) }()

	if err := validation.ValidatePost(in.Title, in.Body, in.Slug); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	post = &models.Post{
		Title:     strings.TrimSpace(in.Title),
		ImageURL:  strings.TrimSpace(in.ImageURL),
		Body:      in.Body,
		Published: in.Published,
	}
	if err := s.saveWithSlug(ctx, post, strings.TrimSpace(in.Slug), func() error {
		return s.postRepo.Create(ctx, post)
	}); err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.String("post.slug", post.Slug))
	middleware.Logger.InfoContext(ctx, "post created",
		slog.Uint64("post_id", uint64(post.ID)),
		slog.String("slug", post.Slug),
	)
	return post, nil
}

// UpdatePost applies the form to an existing post. A blank slug is
// regenerated from the title; any other slug is kept as submitted.
func (s *PostService) UpdatePost(ctx context.Context, id uint, in PostInput) (post *models.Post, err error) {
	ctx, span := observability.StartSpan(ctx, "PostService", "UpdatePost",
		attribute.Int64("post.id", int64(id)),
	)
	defer func() { observability.EndSpan(span, err) }()

	if err := validation.ValidatePost(in.Title, in.Body, in.Slug); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	post, err = s.postRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	previousSlug := post.Slug

	post.Title = strings.TrimSpace(in.Title)
	post.ImageURL = strings.TrimSpace(in.ImageURL)
	post.Body = in.Body
	post.Published = in.Published

	if err := s.saveWithSlug(ctx, post, strings.TrimSpace(in.Slug), func() error {
		return s.postRepo.Update(ctx, post, previousSlug)
	}); err != nil {
		return nil, err
	}

	if post.Slug != previousSlug {
		middleware.Logger.InfoContext(ctx, "post slug changed",
			slog.Uint64("post_id", uint64(post.ID)),
			slog.String("from", previousSlug),
			slog.String("to", post.Slug),
		)
	}
	return post, nil
}

func (s *PostService) DeletePost(ctx context.Context, id uint) error {
	post, err := s.postRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.postRepo.Delete(ctx, post); err != nil {
		return err
	}
	middleware.Logger.InfoContext(ctx, "post deleted",
		slog.Uint64("post_id", uint64(id)),
		slog.String("slug", post.Slug),
	)
	return nil
}

// saveWithSlug assigns post.Slug and runs save. Explicit slugs are written
// once and a conflict is returned to the caller; generated slugs are
// re-resolved when another writer takes the candidate first.
func (s *PostService) saveWithSlug(ctx context.Context, post *models.Post, explicit string, save func() error) error {
	exists := s.slugTaken(post.ID)

	var err error
	for attempt := 0; attempt < maxSlugAttempts; attempt++ {
		post.Slug, err = slug.Resolve(ctx, explicit, post.Title, exists)
		if err != nil {
			return err
		}

		err = save()
		if err == nil {
			return nil
		}
		if explicit != "" || !models.IsCode(err, models.CodeConflict) {
			return err
		}
		middleware.Logger.WarnContext(ctx, "generated slug lost insert race, retrying",
			slog.String("slug", post.Slug),
			slog.Int("attempt", attempt+1),
		)
	}
	return err
}

func (s *PostService) slugTaken(excludeID uint) slug.ExistsFunc {
	return func(ctx context.Context, candidate string) (bool, error) {
		taken, err := s.postRepo.SlugExists(ctx, candidate, excludeID)
		if taken {
			middleware.SlugCollisions.Inc()
		}
		return taken, err
	}
}
