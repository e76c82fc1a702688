package rdb

import "time"

// StateRecord is the RDB persistence model for model.ResourceState.
// Table name: resource_states
type StateRecord struct {
	Stack      string    `gorm:"primaryKey;type:text;not null"`
	ID         string    `gorm:"primaryKey;type:text;not null"`
	Kind       string    `gorm:"type:text;not null"`
	Digest     string    `gorm:"type:text;not null"`
	Order      int       `gorm:"column:apply_order;not null"`
	Attributes string    `gorm:"type:text"` // JSON encoded map[string]string
	UpdatedAt  time.Time `gorm:"not null"`
}

func (StateRecord) TableName() string { return "resource_states" }

// RunRecord persistence model
type RunRecord struct {
	ID         string    `gorm:"primaryKey;type:text;not null"`
	Stack      string    `gorm:"type:text;not null;index"`
	Operation  string    `gorm:"type:text;not null"`
	Backend    string    `gorm:"type:text"`
	Status     string    `gorm:"type:text;not null"`
	Changes    int       `gorm:"not null"`
	Error      string    `gorm:"type:text"`
	StartedAt  time.Time `gorm:"not null"`
	FinishedAt time.Time
}

func (RunRecord) TableName() string { return "runs" }
