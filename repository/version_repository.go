package repository

import (
	"context"
	"errors"
	"time"

	"fader/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrVersionNotFound is returned when a version does not exist.
	ErrVersionNotFound = errors.New("version not found")
	// ErrVersionTrackMismatch is returned when a version does not belong to
	// the track it was addressed through.
	ErrVersionTrackMismatch = errors.New("version does not belong to track")
)

// VersionRepository is the data access interface for versions.
type VersionRepository interface {
	// Create assigns the next version number for the track (1, 2, 3, ... with
	// no gaps) and updates the track's version counters, all in one
	// transaction.
	Create(ctx context.Context, version *model.Version) error
	GetByID(ctx context.Context, id int64) (*model.Version, error)
	ListByTrack(ctx context.Context, trackID int64) ([]*model.Version, error)
	UpdateNotes(ctx context.Context, id int64, notes string) error
	// SetMaster flips the master flag to the given version, atomically
	// unsetting the previous master of the same track.
	SetMaster(ctx context.Context, trackID, versionID int64) error
	// Delete removes the version row and returns its object key for
	// best-effort storage cleanup by the caller.
	Delete(ctx context.Context, id int64) (string, error)
}

// gormVersionRepository is the GORM implementation.
type gormVersionRepository struct {
	db *gorm.DB
}

// NewGormVersionRepository creates a GORM version repository.
func NewGormVersionRepository(db *gorm.DB) VersionRepository {
	return &gormVersionRepository{db: db}
}

// lockForUpdate adds a row lock on dialects that support it. The sqlite
// test dialect serializes writers anyway.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "mysql" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

// Create inserts the version with number max(existing)+1 for its track.
func (r *gormVersionRepository) Create(ctx context.Context, version *model.Version) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var track model.Track
		if err := lockForUpdate(tx).First(&track, version.TrackID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTrackNotFound
			}
			return err
		}

		var maxNumber int
		if err := tx.Model(&model.Version{}).
			Where("track_id = ?", version.TrackID).
			Select("COALESCE(MAX(version_number), 0)").
			Scan(&maxNumber).Error; err != nil {
			return err
		}
		version.Number = maxNumber + 1

		if err := tx.Create(version).Error; err != nil {
			return err
		}

		now := time.Now()
		return tx.Model(&model.Track{}).
			Where("id = ?", version.TrackID).
			Updates(map[string]interface{}{
				"version_count":   gorm.Expr("version_count + 1"),
				"last_version_at": now,
			}).Error
	})
}

// GetByID returns a version, or nil when it does not exist.
func (r *gormVersionRepository) GetByID(ctx context.Context, id int64) (*model.Version, error) {
	var version model.Version
	err := r.db.WithContext(ctx).First(&version, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &version, nil
}

// ListByTrack returns a track's versions in ascending version number order.
func (r *gormVersionRepository) ListByTrack(ctx context.Context, trackID int64) ([]*model.Version, error) {
	var versions []*model.Version
	err := r.db.WithContext(ctx).
		Where("track_id = ?", trackID).
		Order("version_number ASC").
		Find(&versions).Error
	return versions, err
}

// UpdateNotes replaces the version's notes, the only mutable field.
func (r *gormVersionRepository) UpdateNotes(ctx context.Context, id int64, notes string) error {
	res := r.db.WithContext(ctx).Model(&model.Version{}).
		Where("id = ?", id).
		Update("notes", notes)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrVersionNotFound
	}
	return nil
}

// SetMaster makes versionID the master of trackID. The previous master is
// unset in the same transaction so exactly one master exists afterwards.
func (r *gormVersionRepository) SetMaster(ctx context.Context, trackID, versionID int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var version model.Version
		if err := lockForUpdate(tx).First(&version, versionID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrVersionNotFound
			}
			return err
		}
		if version.TrackID != trackID {
			return ErrVersionTrackMismatch
		}

		if err := tx.Model(&model.Version{}).
			Where("track_id = ? AND is_master = ?", trackID, true).
			Update("is_master", false).Error; err != nil {
			return err
		}
		return tx.Model(&model.Version{}).
			Where("id = ?", versionID).
			Update("is_master", true).Error
	})
}

// Delete removes the version row and its comments. The backing object is
// removed by the caller afterwards; storage failures do not block this.
func (r *gormVersionRepository) Delete(ctx context.Context, id int64) (string, error) {
	var objectKey string

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var version model.Version
		if err := tx.First(&version, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrVersionNotFound
			}
			return err
		}
		objectKey = version.ObjectKey

		if err := tx.Where("version_id = ?", id).Delete(&model.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&model.Version{}, id).Error; err != nil {
			return err
		}

		return tx.Model(&model.Track{}).
			Where("id = ?", version.TrackID).
			Update("version_count", gorm.Expr("version_count - 1")).Error
	})
	if err != nil {
		return "", err
	}
	return objectKey, nil
}
