package repository

import (
	"context"
	"regexp"
	"testing"

	"randomblog/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func createPost(t *testing.T, db *gorm.DB, title, slug string, published bool) *models.Post {
	t.Helper()
	p := &models.Post{Title: title, Slug: slug, Body: "body of " + title, Published: published}
	require.NoError(t, db.Create(p).Error)
	return p
}

func TestPostRepository_GetByID_Postgres(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)

	t.Run("Success", func(t *testing.T) {
		rows := sqlmock.NewRows([]string{"id", "title", "slug", "body", "published"}).
			AddRow(1, "Hello", "hello", "text", true)
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "posts" WHERE "posts"."id" = $1 ORDER BY "posts"."id" LIMIT $2`)).
			WithArgs(1, 1).
			WillReturnRows(rows)

		post, err := repo.GetByID(context.Background(), 1)
		require.NoError(t, err)
		assert.Equal(t, "hello", post.Slug)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Not Found", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "posts" WHERE "posts"."id" = $1 ORDER BY "posts"."id" LIMIT $2`)).
			WithArgs(99, 1).
			WillReturnError(gorm.ErrRecordNotFound)

		_, err := repo.GetByID(context.Background(), 99)
		assert.True(t, models.IsCode(err, models.CodeNotFound))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostRepository_Create_PostgresUniqueViolation(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "posts"`).
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"})
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &models.Post{Title: "Hello", Slug: "hello", Body: "x"})
	assert.True(t, models.IsCode(err, models.CodeConflict))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_CreateConflictOnSQLite(t *testing.T) {
	db := newTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &models.Post{Title: "A", Slug: "same", Body: "x", Published: true}))
	err := repo.Create(ctx, &models.Post{Title: "B", Slug: "same", Body: "y", Published: true})
	assert.True(t, models.IsCode(err, models.CodeConflict))
}

func TestPostRepository_GetBySlug(t *testing.T) {
	db := newTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	createPost(t, db, "Live", "live", true)
	createPost(t, db, "Draft", "draft", false)

	post, err := repo.GetBySlug(ctx, "live", true)
	require.NoError(t, err)
	assert.Equal(t, "Live", post.Title)

	_, err = repo.GetBySlug(ctx, "draft", true)
	assert.True(t, models.IsCode(err, models.CodeNotFound))

	post, err = repo.GetBySlug(ctx, "draft", false)
	require.NoError(t, err)
	assert.False(t, post.Published)

	_, err = repo.GetBySlug(ctx, "missing", false)
	assert.True(t, models.IsCode(err, models.CodeNotFound))
}

func TestPostRepository_List(t *testing.T) {
	db := newTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	createPost(t, db, "First", "first", true)
	createPost(t, db, "Hidden", "hidden", false)
	createPost(t, db, "Second", "second", true)

	published, err := repo.List(ctx, true)
	require.NoError(t, err)
	require.Len(t, published, 2)
	assert.Equal(t, "second", published[0].Slug)
	assert.Equal(t, "first", published[1].Slug)

	all, err := repo.List(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestPostRepository_SlugExists(t *testing.T) {
	db := newTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	p := createPost(t, db, "Foo", "foo", true)

	exists, err := repo.SlugExists(ctx, "foo", 0)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.SlugExists(ctx, "foo", p.ID)
	require.NoError(t, err)
	assert.False(t, exists, "a post never collides with itself")

	exists, err = repo.SlugExists(ctx, "bar", 0)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestPostRepository_UpdateAndDelete(t *testing.T) {
	db := newTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	p := createPost(t, db, "Foo", "foo", true)
	other := createPost(t, db, "Bar", "bar", true)

	p.Title = "Foo v2"
	p.Published = false
	require.NoError(t, repo.Update(ctx, p, "foo"))

	reloaded, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Foo v2", reloaded.Title)
	assert.False(t, reloaded.Published)

	p.Slug = "bar"
	err = repo.Update(ctx, p, "foo")
	assert.True(t, models.IsCode(err, models.CodeConflict))

	user := &models.User{Username: "reader", Password: "x"}
	require.NoError(t, db.Create(user).Error)
	require.NoError(t, db.Create(&models.PostVisit{UserID: user.ID, PostID: other.ID}).Error)

	require.NoError(t, repo.Delete(ctx, other))
	var visits int64
	require.NoError(t, db.Model(&models.PostVisit{}).Where("post_id = ?", other.ID).Count(&visits).Error)
	assert.Zero(t, visits)

	err = repo.Delete(ctx, other)
	assert.True(t, models.IsCode(err, models.CodeNotFound))
}
