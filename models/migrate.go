package models

import "gorm.io/gorm"

func AutoMigrateAll(db *gorm.DB) error {
	err := db.AutoMigrate(
		&User{},
		&Customer{},
		&Chat{},
		&Message{},
		&NotificationConfig{},
		&Task{},
	)
	if err != nil {
		return err
	}
	return nil
}
