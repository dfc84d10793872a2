package repository

import (
	"context"
	"errors"
	"time"

	"fader/model"

	"gorm.io/gorm"
)

var (
	// ErrCommentNotFound is returned when a comment does not exist.
	ErrCommentNotFound = errors.New("comment not found")
	// ErrParentNotFound is returned when a reply references a missing parent.
	ErrParentNotFound = errors.New("parent comment not found")
	// ErrParentVersionMismatch is returned when a reply's parent belongs to a
	// different version.
	ErrParentVersionMismatch = errors.New("parent comment belongs to a different version")
	// ErrNotResolvable is returned when resolve/unresolve is attempted on a
	// reply or on a comment without a timestamp.
	ErrNotResolvable = errors.New("only top-level timestamped comments can be resolved")
	// ErrAlreadyResolved is returned when resolving a resolved comment, so
	// stale double-clicks surface instead of being silently swallowed.
	ErrAlreadyResolved = errors.New("comment is already resolved")
	// ErrNotResolved is returned when unresolving a comment that is not
	// resolved.
	ErrNotResolved = errors.New("comment is not resolved")
)

// CommentRepository is the data access interface for comments.
type CommentRepository interface {
	// Create stores a comment. A reply whose parent is itself a reply is
	// re-anchored to the top-level ancestor, keeping threads one level deep.
	Create(ctx context.Context, comment *model.Comment) error
	GetByID(ctx context.Context, id int64) (*model.Comment, error)
	// ListThread returns the version's top-level comments with their replies
	// attached, author names resolved, oldest first. Resolved top-level
	// comments are omitted unless includeResolved is set.
	ListThread(ctx context.Context, versionID int64, includeResolved bool) ([]*model.Comment, error)
	// Delete removes a comment; deleting a top-level comment cascades to its
	// replies.
	Delete(ctx context.Context, id int64) error
	Resolve(ctx context.Context, id, userID int64) error
	Unresolve(ctx context.Context, id int64) error
}

// gormCommentRepository is the GORM implementation.
type gormCommentRepository struct {
	db *gorm.DB
}

// NewGormCommentRepository creates a GORM comment repository.
func NewGormCommentRepository(db *gorm.DB) CommentRepository {
	return &gormCommentRepository{db: db}
}

// Create stores the comment, flattening reply chains to one level.
func (r *gormCommentRepository) Create(ctx context.Context, comment *model.Comment) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if comment.ParentID != nil {
			var parent model.Comment
			if err := tx.First(&parent, *comment.ParentID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrParentNotFound
				}
				return err
			}
			if parent.VersionID != comment.VersionID {
				return ErrParentVersionMismatch
			}
			// Replying to a reply anchors to the top-level comment instead.
			if parent.ParentID != nil {
				comment.ParentID = parent.ParentID
			}
		}
		return tx.Create(comment).Error
	})
}

// GetByID returns a comment, or nil when it does not exist.
func (r *gormCommentRepository) GetByID(ctx context.Context, id int64) (*model.Comment, error) {
	var comment model.Comment
	err := r.db.WithContext(ctx).First(&comment, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &comment, nil
}

// ListThread loads the version's comment tree, one level deep.
func (r *gormCommentRepository) ListThread(ctx context.Context, versionID int64, includeResolved bool) ([]*model.Comment, error) {
	tx := r.db.WithContext(ctx)

	var all []*model.Comment
	if err := tx.Where("version_id = ?", versionID).
		Order("created_at ASC").
		Find(&all).Error; err != nil {
		return nil, err
	}

	if err := r.fillAuthorNames(tx, all); err != nil {
		return nil, err
	}

	byID := make(map[int64]*model.Comment, len(all))
	topLevel := make([]*model.Comment, 0, len(all))
	for _, c := range all {
		if c.ParentID == nil {
			if !includeResolved && c.Resolved() {
				continue
			}
			byID[c.ID] = c
			topLevel = append(topLevel, c)
		}
	}
	for _, c := range all {
		if c.ParentID == nil {
			continue
		}
		if parent, ok := byID[*c.ParentID]; ok {
			parent.Replies = append(parent.Replies, c)
		}
	}
	return topLevel, nil
}

// fillAuthorNames resolves author display names in one query. Missing or
// deleted authors render as DeletedUserName rather than failing the read.
func (r *gormCommentRepository) fillAuthorNames(tx *gorm.DB, comments []*model.Comment) error {
	idSet := make(map[int64]struct{})
	for _, c := range comments {
		if c.AuthorID != nil {
			idSet[*c.AuthorID] = struct{}{}
		}
	}

	names := make(map[int64]string, len(idSet))
	if len(idSet) > 0 {
		ids := make([]int64, 0, len(idSet))
		for id := range idSet {
			ids = append(ids, id)
		}
		var users []model.User
		if err := tx.Where("id IN ?", ids).Find(&users).Error; err != nil {
			return err
		}
		for _, u := range users {
			names[u.ID] = u.Username
		}
	}

	for _, c := range comments {
		if c.AuthorID != nil {
			if name, ok := names[*c.AuthorID]; ok {
				c.AuthorName = name
				continue
			}
		}
		c.AuthorName = model.DeletedUserName
	}
	return nil
}

// Delete removes the comment and, for top-level comments, all of its replies.
func (r *gormCommentRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var comment model.Comment
		if err := tx.First(&comment, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCommentNotFound
			}
			return err
		}

		if comment.ParentID == nil {
			if err := tx.Where("parent_id = ?", id).Delete(&model.Comment{}).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&model.Comment{}, id).Error
	})
}

// Resolve marks a top-level timestamped comment as resolved. Resolving an
// already-resolved comment is an error, not a no-op.
func (r *gormCommentRepository) Resolve(ctx context.Context, id, userID int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var comment model.Comment
		if err := lockForUpdate(tx).First(&comment, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCommentNotFound
			}
			return err
		}
		if !comment.Resolvable() {
			return ErrNotResolvable
		}
		if comment.Resolved() {
			return ErrAlreadyResolved
		}

		now := time.Now()
		return tx.Model(&model.Comment{}).
			Where("id = ?", id).
			Updates(map[string]interface{}{
				"resolved_at": now,
				"resolved_by": userID,
			}).Error
	})
}

// Unresolve clears a resolved comment. Unresolving a comment that is not
// resolved is an error.
func (r *gormCommentRepository) Unresolve(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var comment model.Comment
		if err := lockForUpdate(tx).First(&comment, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCommentNotFound
			}
			return err
		}
		if !comment.Resolvable() {
			return ErrNotResolvable
		}
		if !comment.Resolved() {
			return ErrNotResolved
		}

		return tx.Model(&model.Comment{}).
			Where("id = ?", id).
			Updates(map[string]interface{}{
				"resolved_at": nil,
				"resolved_by": nil,
			}).Error
	})
}
