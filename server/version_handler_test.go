package server

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/gorilla/mux"
	"gorm.io/gorm"
	glogger "gorm.io/gorm/logger"
	"gotest.tools/assert"

	"fader/config"
	"fader/core/events"
	"fader/model"
	"fader/repository"
)

func newTestHandler(t *testing.T) (*APIHandler, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: glogger.Default.LogMode(glogger.Silent),
	})
	assert.NilError(t, err)

	sqlDB, err := db.DB()
	assert.NilError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	assert.NilError(t, db.AutoMigrate(
		&model.Project{},
		&model.Track{},
		&model.Version{},
		&model.Comment{},
	))

	h := NewAPIHandler(
		nil,
		repository.NewGormProjectRepository(db),
		repository.NewGormTrackRepository(db),
		repository.NewGormVersionRepository(db),
		repository.NewGormCommentRepository(db),
		nil,
		events.NewProjectHub(),
		&config.Config{},
	)
	return h, db
}

func TestSetMasterSurvivesConcurrentTrackDeletion(t *testing.T) {
	h, db := newTestHandler(t)

	project := &model.Project{Name: "demo", OwnerID: 1}
	assert.NilError(t, db.Create(project).Error)
	track := &model.Track{ProjectID: project.ID, Name: "song"}
	assert.NilError(t, db.Create(track).Error)
	version := &model.Version{TrackID: track.ID, Number: 1, ObjectKey: "projects/1/1-song.wav"}
	assert.NilError(t, db.Create(version).Error)

	// The track row disappears between loading the version and publishing the
	// change event.
	assert.NilError(t, db.Delete(&model.Track{}, track.ID).Error)

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/versions/%d/master", version.ID), nil)
	req = mux.SetURLVars(req, map[string]string{"id": fmt.Sprintf("%d", version.ID)})
	rec := httptest.NewRecorder()

	h.SetMasterHandler(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	var reloaded model.Version
	assert.NilError(t, db.First(&reloaded, version.ID).Error)
	assert.Assert(t, reloaded.IsMaster)
}
