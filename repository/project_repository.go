package repository

import (
	"context"
	"errors"

	"fader/model"

	"gorm.io/gorm"
)

// ErrInvitationNotFound is returned when an invitation token does not exist.
var ErrInvitationNotFound = errors.New("invitation not found")

// ProjectRepository is the data access interface for projects and invitations.
type ProjectRepository interface {
	Create(ctx context.Context, project *model.Project) error
	GetByID(ctx context.Context, id int64) (*model.Project, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]*model.Project, error)

	CreateInvitation(ctx context.Context, inv *model.Invitation) error
	ListInvitations(ctx context.Context, projectID int64) ([]*model.Invitation, error)
	AcceptInvitation(ctx context.Context, token string) (*model.Invitation, error)
}

// gormProjectRepository is the GORM implementation.
type gormProjectRepository struct {
	db *gorm.DB
}

// NewGormProjectRepository creates a GORM project repository.
func NewGormProjectRepository(db *gorm.DB) ProjectRepository {
	return &gormProjectRepository{db: db}
}

// Create stores a new project.
func (r *gormProjectRepository) Create(ctx context.Context, project *model.Project) error {
	return r.db.WithContext(ctx).Create(project).Error
}

// GetByID returns a project, or nil when it does not exist.
func (r *gormProjectRepository) GetByID(ctx context.Context, id int64) (*model.Project, error) {
	var project model.Project
	err := r.db.WithContext(ctx).First(&project, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &project, nil
}

// ListByOwner returns all projects owned by a user, newest first.
func (r *gormProjectRepository) ListByOwner(ctx context.Context, ownerID int64) ([]*model.Project, error) {
	var projects []*model.Project
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&projects).Error
	return projects, err
}

// CreateInvitation stores a new invitation.
func (r *gormProjectRepository) CreateInvitation(ctx context.Context, inv *model.Invitation) error {
	return r.db.WithContext(ctx).Create(inv).Error
}

// ListInvitations returns all invitations for a project.
func (r *gormProjectRepository) ListInvitations(ctx context.Context, projectID int64) ([]*model.Invitation, error) {
	var invs []*model.Invitation
	err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at DESC").
		Find(&invs).Error
	return invs, err
}

// AcceptInvitation marks the invitation with the given token as accepted.
// Accepting twice is harmless.
func (r *gormProjectRepository) AcceptInvitation(ctx context.Context, token string) (*model.Invitation, error) {
	var inv model.Invitation
	err := r.db.WithContext(ctx).Where("token = ?", token).First(&inv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvitationNotFound
		}
		return nil, err
	}

	if !inv.Accepted {
		inv.Accepted = true
		if err := r.db.WithContext(ctx).Save(&inv).Error; err != nil {
			return nil, err
		}
	}
	return &inv, nil
}
