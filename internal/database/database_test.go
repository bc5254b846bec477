package database

import (
	"context"
	"testing"

	"randomblog/internal/config"
	"randomblog/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func sqliteConfig() *config.Config {
	return &config.Config{
		Env:                      "test",
		DBDriver:                 "sqlite",
		DBPath:                   "file::memory:",
		DBMaxOpenConns:           10,
		DBMaxIdleConns:           5,
		DBConnMaxLifetimeMinutes: 15,
	}
}

func TestDialector(t *testing.T) {
	d, err := Dialector(&config.Config{DBDriver: "postgres", DBHost: "db", DBPort: "5432"})
	require.NoError(t, err)
	assert.Equal(t, "postgres", d.Name())
	pg, ok := d.(*postgres.Dialector)
	require.True(t, ok)
	assert.Contains(t, pg.Config.DSN, "sslmode=disable")

	d, err = Dialector(sqliteConfig())
	require.NoError(t, err)
	assert.Equal(t, "sqlite", d.Name())

	_, err = Dialector(&config.Config{DBDriver: "mysql"})
	assert.Error(t, err)
}

func TestSqliteDSN(t *testing.T) {
	assert.Equal(t, "blog.db?_foreign_keys=on", sqliteDSN("blog.db"))
	assert.Equal(t, "file::memory:?cache=shared&_foreign_keys=on", sqliteDSN("file::memory:?cache=shared"))
}

func TestConnect_SqliteMigratesAndPools(t *testing.T) {
	db, err := Connect(sqliteConfig())
	require.NoError(t, err)
	defer func() { _ = Close(db) }()

	require.NoError(t, Ping(context.Background(), db))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Equal(t, 1, sqlDB.Stats().MaxOpenConnections)

	for _, m := range PersistentModels() {
		assert.True(t, db.Migrator().HasTable(m))
	}
}

func TestConnect_DuplicateKeyIsTranslated(t *testing.T) {
	db, err := Connect(sqliteConfig())
	require.NoError(t, err)
	defer func() { _ = Close(db) }()

	require.NoError(t, db.Create(&models.Post{Title: "A", Slug: "a", Body: "x"}).Error)
	err = db.Create(&models.Post{Title: "B", Slug: "a", Body: "y"}).Error
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}

func TestMissingTables(t *testing.T) {
	cfg := sqliteConfig()
	cfg.Env = "production"
	db, err := Connect(cfg)
	require.NoError(t, err)
	defer func() { _ = Close(db) }()

	missing, err := MissingTables(db)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"users", "posts", "post_visits"}, missing)

	require.NoError(t, Migrate(db))
	missing, err = MissingTables(db)
	require.NoError(t, err)
	assert.Empty(t, missing)
}
