package models

import "time"

// Draft stores one resource's editing state: serialized JSON for the
// committed baseline and the working copy.
type Draft struct {
	ResourceID string    `gorm:"primaryKey;type:varchar(255)"`
	Baseline   string    `gorm:"type:jsonb"`
	Working    string    `gorm:"type:jsonb"`
	Status     string    `gorm:"type:varchar(32);default:active"`
	CDate      time.Time `gorm:"autoCreateTime"`
	MDate      time.Time `gorm:"autoUpdateTime"`
}

// Permission grants a user edit access to a resource.
type Permission struct {
	ID         int64  `gorm:"primaryKey;autoIncrement"`
	ResourceID string `gorm:"type:varchar(255);index:idx_resource_user,unique"`
	UserID     string `gorm:"type:varchar(255);index:idx_resource_user,unique"`
}
