package model

import "time"

// Track is the stable identity of a logical audio item. Audio itself lives
// in Versions; deleting a track cascades to all of them.
type Track struct {
	ID            int64      `json:"id" gorm:"primaryKey"`
	ProjectID     int64      `json:"projectId" gorm:"index;not null"`
	Name          string     `json:"name" gorm:"size:255;not null"`
	VersionCount  int        `json:"versionCount" gorm:"default:0"`
	LastVersionAt *time.Time `json:"lastVersionAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// TableName specifies the table name.
func (Track) TableName() string {
	return "tracks"
}
