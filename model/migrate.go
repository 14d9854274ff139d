package model

import "gorm.io/gorm"

// allModels lists every model to be auto-migrated.
var allModels = []interface{}{
	&Account{},
	&Quest{},
	&ActiveQuest{},
	&CompletedQuest{},
	&Item{},
	&HunterItem{},
	&Skill{},
	&HunterSkill{},
	&Title{},
	&HunterTitle{},
	&Shadow{},
	&VerificationSubmission{},
	&Notification{},
	&AuditLog{},
}

// AutoMigrate creates or updates all tables in the given database.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(allModels...)
}
