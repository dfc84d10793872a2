package model

import "time"

// Comment annotates a Version, either anchored to a point in the audio
// (Timestamp set, in seconds) or as a general note (Timestamp nil).
// Threading is one level deep: replies carry the top-level comment's ID in
// ParentID and never have replies of their own. Only top-level, timestamped
// comments can be resolved.
type Comment struct {
	ID         int64      `json:"id" gorm:"primaryKey"`
	VersionID  int64      `json:"versionId" gorm:"index;not null"`
	AuthorID   *int64     `json:"authorId,omitempty" gorm:"index"`
	Content    string     `json:"content" gorm:"type:text;not null"`
	Timestamp  *float64   `json:"timestamp,omitempty"`
	ParentID   *int64     `json:"parentId,omitempty" gorm:"index"`
	ResolvedAt *time.Time `json:"resolvedAt,omitempty"`
	ResolvedBy *int64     `json:"resolvedBy,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`

	// AuthorName is resolved from the users table at read time. A deleted
	// author renders as DeletedUserName instead of failing the comment.
	AuthorName string `json:"authorName" gorm:"-"`

	// Replies holds the one level of children when the comment was loaded
	// as part of a thread.
	Replies []*Comment `json:"replies,omitempty" gorm:"-"`
}

// TableName specifies the table name.
func (Comment) TableName() string {
	return "comments"
}

// Resolved reports whether the comment is currently resolved.
func (c *Comment) Resolved() bool {
	return c.ResolvedAt != nil
}

// Resolvable reports whether resolve/unresolve applies to this comment at
// all: it must be top-level and carry a timestamp.
func (c *Comment) Resolvable() bool {
	return c.ParentID == nil && c.Timestamp != nil
}
