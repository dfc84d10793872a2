package model

import "time"

// Version is one immutable uploaded rendition of a Track. Numbers start at 1
// and increase by one per track; at most one version per track is the master.
// Notes are the only mutable field.
type Version struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	TrackID   int64     `json:"trackId" gorm:"uniqueIndex:idx_track_number;not null"`
	Number    int       `json:"number" gorm:"column:version_number;uniqueIndex:idx_track_number;not null"`
	ObjectKey string    `json:"-" gorm:"size:512;not null"`
	Notes     string    `json:"notes" gorm:"type:text"`
	IsMaster  bool      `json:"isMaster" gorm:"default:false"`
	CreatedAt time.Time `json:"createdAt"`

	// AudioURL is a presigned GET URL filled in by the API layer; it is
	// never persisted.
	AudioURL string `json:"audioUrl,omitempty" gorm:"-"`
}

// TableName specifies the table name.
func (Version) TableName() string {
	return "versions"
}
