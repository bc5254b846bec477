// Package seed provides database seeding utilities for development and testing.
package seed

import (
	"context"
	"fmt"
	"log/slog"

	"randomblog/internal/middleware"
	"randomblog/internal/models"
	"randomblog/internal/repository"
	"randomblog/internal/service"

	"gorm.io/gorm"
)

// Options configuration for the seeder
type Options struct {
	FixturePath  string
	SkipFixtures bool
	NumPosts     int
	NumDrafts    int
	NumReaders   int
	// VisitsPerReader is the number of post views recorded for each reader.
	VisitsPerReader int
	ShouldClean     bool
	RandomSeed      int64
}

// Result counts what a run inserted.
type Result struct {
	Posts   int
	Skipped int
	Readers int
	Visits  int
}

type Seeder struct {
	db     *gorm.DB
	posts  *service.PostService
	visits *service.VisitService
}

func NewSeeder(db *gorm.DB) *Seeder {
	return &Seeder{
		db:     db,
		posts:  service.NewPostService(repository.NewPostRepository(db)),
		visits: service.NewVisitService(repository.NewVisitRepository(db)),
	}
}

// Run inserts fixture posts, generated posts, readers and their visits.
// Posts go through PostService so slugs follow the normal rules.
func (s *Seeder) Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.ShouldClean {
		if err := s.Clean(ctx); err != nil {
			return nil, err
		}
	}

	res := &Result{}
	var published []*models.Post

	if !opts.SkipFixtures {
		fx, err := LoadFixtures(opts.FixturePath)
		if err != nil {
			return nil, err
		}
		for _, entry := range fx.Posts {
			post, err := s.posts.CreatePost(ctx, entry.Input())
			if models.IsCode(err, models.CodeConflict) {
				// Fixtures with an explicit slug are applied once.
				res.Skipped++
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("seed fixture %q: %w", entry.Title, err)
			}
			res.Posts++
			if post.Published {
				published = append(published, post)
			}
		}
	}

	factory := NewFactory(s.db, opts.RandomSeed)
	for i := 0; i < opts.NumPosts+opts.NumDrafts; i++ {
		post, err := s.posts.CreatePost(ctx, factory.BuildPost(i < opts.NumPosts))
		if err != nil {
			return nil, fmt.Errorf("seed generated post: %w", err)
		}
		res.Posts++
		if post.Published {
			published = append(published, post)
		}
	}

	for i := 0; i < opts.NumReaders; i++ {
		reader, err := factory.CreateReader(ctx)
		if err != nil {
			return nil, err
		}
		res.Readers++
		if len(published) == 0 {
			continue
		}
		for v := 0; v < opts.VisitsPerReader; v++ {
			post := published[factory.Pick(len(published))]
			if err := s.visits.RecordVisit(ctx, reader.ID, post.ID); err != nil {
				return nil, fmt.Errorf("seed visit: %w", err)
			}
			res.Visits++
		}
	}

	middleware.Logger.InfoContext(ctx, "seed completed",
		slog.Int("posts", res.Posts),
		slog.Int("skipped", res.Skipped),
		slog.Int("readers", res.Readers),
		slog.Int("visits", res.Visits),
	)
	return res, nil
}

// Clean removes every visit and post. Users are kept so staff accounts
// survive a reseed.
func (s *Seeder) Clean(ctx context.Context) error {
	tx := s.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true})
	if err := tx.Delete(&models.PostVisit{}).Error; err != nil {
		return fmt.Errorf("clean visits: %w", err)
	}
	if err := tx.Delete(&models.Post{}).Error; err != nil {
		return fmt.Errorf("clean posts: %w", err)
	}
	middleware.Logger.InfoContext(ctx, "seed data cleaned")
	return nil
}
