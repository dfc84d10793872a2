package model

import "time"

// User is an account that owns projects and authors comments.
type User struct {
	ID           int64     `json:"id" gorm:"primaryKey"`
	Username     string    `json:"username" gorm:"size:64;uniqueIndex;not null"`
	Email        string    `json:"email" gorm:"size:255;uniqueIndex;not null"`
	PasswordHash string    `json:"-" gorm:"size:255;not null"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// TableName maps User onto the table created by db.InitDB.
func (User) TableName() string {
	return "users"
}

// DeletedUserName is rendered in place of an author whose account no
// longer exists. Comments survive author deletion.
const DeletedUserName = "Deleted User"
