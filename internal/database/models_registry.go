package database

import (
	"fmt"

	"randomblog/internal/models"

	"gorm.io/gorm"
)

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Post{},
		&models.PostVisit{},
	}
}

// MissingTables lists the tables of PersistentModels that do not exist yet.
func MissingTables(db *gorm.DB) ([]string, error) {
	var missing []string
	for _, m := range PersistentModels() {
		if db.Migrator().HasTable(m) {
			continue
		}
		stmt := &gorm.Statement{DB: db}
		if err := stmt.Parse(m); err != nil {
			return nil, fmt.Errorf("parse model %T: %w", m, err)
		}
		missing = append(missing, stmt.Schema.Table)
	}
	return missing, nil
}
