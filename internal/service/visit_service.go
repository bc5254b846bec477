package service

import (
	"context"

	"randomblog/internal/middleware"
	"randomblog/internal/models"
	"randomblog/internal/repository"
)

type VisitService struct {
	visitRepo repository.VisitRepository
}

// Dashboard is what a signed-in reader sees on their profile page.
type Dashboard struct {
	Visits     []models.PostVisit `json:"visits"`
	TotalPosts int64              `json:"total_posts"`
}

func NewVisitService(visitRepo repository.VisitRepository) *VisitService {
	return &VisitService{visitRepo: visitRepo}
}

// RecordVisit appends one visit row. Repeat views are recorded again.
func (s *VisitService) RecordVisit(ctx context.Context, userID, postID uint) error {
	if err := s.visitRepo.Create(ctx, &models.PostVisit{UserID: userID, PostID: postID}); err != nil {
		return err
	}
	middleware.PostVisitsRecorded.Inc()
	return nil
}

func (s *VisitService) Dashboard(ctx context.Context, userID uint) (*Dashboard, error) {
	visits, err := s.visitRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	total, err := s.visitRepo.CountDistinctPosts(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &Dashboard{Visits: visits, TotalPosts: total}, nil
}
