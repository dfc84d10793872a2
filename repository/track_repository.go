package repository

import (
	"context"
	"errors"

	"fader/model"

	"gorm.io/gorm"
)

// ErrTrackNotFound is returned when a track does not exist.
var ErrTrackNotFound = errors.New("track not found")

// TrackRepository is the data access interface for tracks.
type TrackRepository interface {
	Create(ctx context.Context, track *model.Track) error
	GetByID(ctx context.Context, id int64) (*model.Track, error)
	ListByProject(ctx context.Context, projectID int64) ([]*model.Track, error)
	Rename(ctx context.Context, id int64, name string) error
	// Delete removes the track and all of its versions in one transaction and
	// returns the object keys of the deleted versions so the caller can clean
	// up storage best-effort.
	Delete(ctx context.Context, id int64) ([]string, error)
}

// gormTrackRepository is the GORM implementation.
type gormTrackRepository struct {
	db *gorm.DB
}

// NewGormTrackRepository creates a GORM track repository.
func NewGormTrackRepository(db *gorm.DB) TrackRepository {
	return &gormTrackRepository{db: db}
}

// Create stores a new track.
func (r *gormTrackRepository) Create(ctx context.Context, track *model.Track) error {
	return r.db.WithContext(ctx).Create(track).Error
}

// GetByID returns a track, or nil when it does not exist.
func (r *gormTrackRepository) GetByID(ctx context.Context, id int64) (*model.Track, error) {
	var track model.Track
	err := r.db.WithContext(ctx).First(&track, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &track, nil
}

// ListByProject returns all tracks in a project, most recently updated first.
func (r *gormTrackRepository) ListByProject(ctx context.Context, projectID int64) ([]*model.Track, error) {
	var tracks []*model.Track
	err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("updated_at DESC").
		Find(&tracks).Error
	return tracks, err
}

// Rename updates the track's display name.
func (r *gormTrackRepository) Rename(ctx context.Context, id int64, name string) error {
	res := r.db.WithContext(ctx).Model(&model.Track{}).
		Where("id = ?", id).
		Update("name", name)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrTrackNotFound
	}
	return nil
}

// Delete removes the track row and every version row. The version rows are
// the source of truth; backing objects are swept by the caller afterwards
// and a failure there never undoes the database deletion.
func (r *gormTrackRepository) Delete(ctx context.Context, id int64) ([]string, error) {
	var objectKeys []string

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var track model.Track
		if err := tx.First(&track, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTrackNotFound
			}
			return err
		}

		var versions []*model.Version
		if err := tx.Where("track_id = ?", id).Find(&versions).Error; err != nil {
			return err
		}
		for _, v := range versions {
			objectKeys = append(objectKeys, v.ObjectKey)
		}

		if err := tx.Where("version_id IN (SELECT id FROM versions WHERE track_id = ?)", id).
			Delete(&model.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("track_id = ?", id).Delete(&model.Version{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Track{}, id).Error
	})
	if err != nil {
		return nil, err
	}
	return objectKeys, nil
}
