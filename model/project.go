package model

import "time"

// Project groups tracks and scopes object keys in storage.
type Project struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"size:255;not null"`
	OwnerID   int64     `json:"ownerId" gorm:"index;not null"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName specifies the table name.
func (Project) TableName() string {
	return "projects"
}

// Invitation invites an email address to collaborate on a project.
type Invitation struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	ProjectID int64     `json:"projectId" gorm:"index;not null"`
	Email     string    `json:"email" gorm:"size:255;not null"`
	Token     string    `json:"token" gorm:"size:36;uniqueIndex;not null"`
	Accepted  bool      `json:"accepted" gorm:"default:false"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName specifies the table name.
func (Invitation) TableName() string {
	return "invitations"
}
