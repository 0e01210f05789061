package database

import "blogcms/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
// Order follows foreign key dependencies.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.Account{},
		&models.Post{},
		&models.Media{},
		&models.Comment{},
		&models.FeedItem{},
		&models.FeedSyncRun{},
	}
}
