package service

import (
	"context"
	"testing"

	"randomblog/internal/models"
	"randomblog/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVisitService_RecordAndDashboard(t *testing.T) {
	db := newTestDB(t)
	posts := NewPostService(repository.NewPostRepository(db))
	visits := NewVisitService(repository.NewVisitRepository(db))
	ctx := context.Background()

	reader := &models.User{Username: "reader", Password: "x"}
	require.NoError(t, db.Create(reader).Error)

	a, err := posts.CreatePost(ctx, PostInput{Title: "A", Body: "a", Published: true})
	require.NoError(t, err)
	b, err := posts.CreatePost(ctx, PostInput{Title: "B", Body: "b", Published: true})
	require.NoError(t, err)

	require.NoError(t, visits.RecordVisit(ctx, reader.ID, a.ID))
	require.NoError(t, visits.RecordVisit(ctx, reader.ID, a.ID))
	require.NoError(t, visits.RecordVisit(ctx, reader.ID, b.ID))

	dash, err := visits.Dashboard(ctx, reader.ID)
	require.NoError(t, err)
	assert.Len(t, dash.Visits, 3, "repeat views are kept")
	assert.Equal(t, int64(2), dash.TotalPosts)

	empty, err := visits.Dashboard(ctx, reader.ID+100)
	require.NoError(t, err)
	assert.Empty(t, empty.Visits)
	assert.Zero(t, empty.TotalPosts)
}
