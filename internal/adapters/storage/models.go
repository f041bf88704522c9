package storage

import "time"

// RecordModel is the GORM model for the versioned object store: one JSON
// blob per key.
type RecordModel struct {
	Key       string `gorm:"primaryKey;column:key"`
	Value     []byte `gorm:"column:value"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName overrides the GORM table name
func (RecordModel) TableName() string {
	return "records"
}
