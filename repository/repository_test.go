package repository

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	glogger "gorm.io/gorm/logger"
	"gotest.tools/assert"

	"fader/model"
)

// newTestDB opens an isolated in-memory database per test. One connection
// only, so the whole test sees the same memory store.
func newTestDB(t *testing.T) *gorm.DB {
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
		&model.User{},
		&model.Project{},
		&model.Invitation{},
		&model.Track{},
		&model.Version{},
		&model.Comment{},
	))
	return db
}

func seedTrack(t *testing.T, db *gorm.DB) *model.Track {
	t.Helper()
	project := &model.Project{Name: "demo", OwnerID: 1}
	assert.NilError(t, db.Create(project).Error)
	track := &model.Track{ProjectID: project.ID, Name: "song"}
	assert.NilError(t, db.Create(track).Error)
	return track
}

func seedVersion(t *testing.T, db *gorm.DB, repo VersionRepository, trackID int64) *model.Version {
	t.Helper()
	v := &model.Version{TrackID: trackID, ObjectKey: "projects/1/1-song.wav"}
	assert.NilError(t, repo.Create(context.Background(), v))
	return v
}

func TestVersionNumbersAreSequential(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormVersionRepository(db)
	track := seedTrack(t, db)
	other := seedTrack(t, db)

	// Creates on two tracks interleaved; numbering is per track.
	v1 := seedVersion(t, db, repo, track.ID)
	o1 := seedVersion(t, db, repo, other.ID)
	v2 := seedVersion(t, db, repo, track.ID)
	o2 := seedVersion(t, db, repo, other.ID)
	v3 := seedVersion(t, db, repo, track.ID)

	assert.Equal(t, 1, v1.Number)
	assert.Equal(t, 2, v2.Number)
	assert.Equal(t, 3, v3.Number)
	assert.Equal(t, 1, o1.Number)
	assert.Equal(t, 2, o2.Number)

	var reloaded model.Track
	assert.NilError(t, db.First(&reloaded, track.ID).Error)
	assert.Equal(t, 3, reloaded.VersionCount)
	assert.Assert(t, reloaded.LastVersionAt != nil)
}

func TestVersionNumbersDoNotReuseAfterDelete(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormVersionRepository(db)
	track := seedTrack(t, db)

	seedVersion(t, db, repo, track.ID)
	v2 := seedVersion(t, db, repo, track.ID)

	_, err := repo.Delete(context.Background(), v2.ID)
	assert.NilError(t, err)

	v3 := seedVersion(t, db, repo, track.ID)
	// Max+1 over remaining versions: the freed number is reused only when
	// the deleted version was the latest.
	assert.Equal(t, 2, v3.Number)
}

func TestSetMasterIsExclusive(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormVersionRepository(db)
	track := seedTrack(t, db)

	v1 := seedVersion(t, db, repo, track.ID)
	v2 := seedVersion(t, db, repo, track.ID)

	ctx := context.Background()
	assert.NilError(t, repo.SetMaster(ctx, track.ID, v1.ID))
	assert.NilError(t, repo.SetMaster(ctx, track.ID, v2.ID))

	var masters []model.Version
	assert.NilError(t, db.Where("track_id = ? AND is_master = ?", track.ID, true).Find(&masters).Error)
	assert.Equal(t, 1, len(masters))
	assert.Equal(t, v2.ID, masters[0].ID)
}

func TestSetMasterRejectsForeignVersion(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormVersionRepository(db)
	track := seedTrack(t, db)
	other := seedTrack(t, db)
	v := seedVersion(t, db, repo, other.ID)

	err := repo.SetMaster(context.Background(), track.ID, v.ID)
	assert.Assert(t, err == ErrVersionTrackMismatch)
}

func TestVersionDeleteReturnsObjectKeyAndDropsComments(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormVersionRepository(db)
	track := seedTrack(t, db)
	v := seedVersion(t, db, repo, track.ID)

	assert.NilError(t, db.Create(&model.Comment{VersionID: v.ID, Content: "too much reverb"}).Error)

	key, err := repo.Delete(context.Background(), v.ID)
	assert.NilError(t, err)
	assert.Equal(t, "projects/1/1-song.wav", key)

	var count int64
	assert.NilError(t, db.Model(&model.Comment{}).Where("version_id = ?", v.ID).Count(&count).Error)
	assert.Equal(t, int64(0), count)

	_, err = repo.Delete(context.Background(), v.ID)
	assert.Assert(t, err == ErrVersionNotFound)
}

func TestTrackDeleteCascadesAndReturnsKeys(t *testing.T) {
	db := newTestDB(t)
	versionRepo := NewGormVersionRepository(db)
	trackRepo := NewGormTrackRepository(db)
	track := seedTrack(t, db)

	v1 := seedVersion(t, db, versionRepo, track.ID)
	v2 := seedVersion(t, db, versionRepo, track.ID)
	assert.NilError(t, db.Create(&model.Comment{VersionID: v1.ID, Content: "a"}).Error)
	assert.NilError(t, db.Create(&model.Comment{VersionID: v2.ID, Content: "b"}).Error)

	keys, err := trackRepo.Delete(context.Background(), track.ID)
	assert.NilError(t, err)
	assert.Equal(t, 2, len(keys))

	var versions, comments int64
	assert.NilError(t, db.Model(&model.Version{}).Where("track_id = ?", track.ID).Count(&versions).Error)
	assert.NilError(t, db.Model(&model.Comment{}).Count(&comments).Error)
	assert.Equal(t, int64(0), versions)
	assert.Equal(t, int64(0), comments)

	_, err = trackRepo.Delete(context.Background(), track.ID)
	assert.Assert(t, err == ErrTrackNotFound)
}

func commentFixture(t *testing.T) (*gorm.DB, CommentRepository, *model.Version) {
	t.Helper()
	db := newTestDB(t)
	versionRepo := NewGormVersionRepository(db)
	track := seedTrack(t, db)
	v := seedVersion(t, db, versionRepo, track.ID)
	return db, NewGormCommentRepository(db), v
}

func f64(v float64) *float64 { return &v }

func TestReplyToReplyIsReanchored(t *testing.T) {
	_, repo, v := commentFixture(t)
	ctx := context.Background()

	top := &model.Comment{VersionID: v.ID, Content: "verse is weak", Timestamp: f64(30)}
	assert.NilError(t, repo.Create(ctx, top))

	reply := &model.Comment{VersionID: v.ID, Content: "agreed", ParentID: &top.ID}
	assert.NilError(t, repo.Create(ctx, reply))

	nested := &model.Comment{VersionID: v.ID, Content: "same", ParentID: &reply.ID}
	assert.NilError(t, repo.Create(ctx, nested))
	assert.Equal(t, top.ID, *nested.ParentID, "reply to a reply lands on the top-level comment")
}

func TestReplyValidation(t *testing.T) {
	_, repo, v := commentFixture(t)
	ctx := context.Background()

	missing := int64(9999)
	err := repo.Create(ctx, &model.Comment{VersionID: v.ID, Content: "x", ParentID: &missing})
	assert.Assert(t, err == ErrParentNotFound)

	top := &model.Comment{VersionID: v.ID, Content: "top"}
	assert.NilError(t, repo.Create(ctx, top))

	err = repo.Create(ctx, &model.Comment{VersionID: v.ID + 1, Content: "x", ParentID: &top.ID})
	assert.Assert(t, err == ErrParentVersionMismatch)
}

func TestResolveGuards(t *testing.T) {
	_, repo, v := commentFixture(t)
	ctx := context.Background()

	timestamped := &model.Comment{VersionID: v.ID, Content: "snare too loud", Timestamp: f64(12)}
	assert.NilError(t, repo.Create(ctx, timestamped))

	general := &model.Comment{VersionID: v.ID, Content: "nice take"}
	assert.NilError(t, repo.Create(ctx, general))

	reply := &model.Comment{VersionID: v.ID, Content: "fixed", ParentID: &timestamped.ID}
	assert.NilError(t, repo.Create(ctx, reply))

	// Only top-level timestamped comments resolve.
	assert.Assert(t, repo.Resolve(ctx, general.ID, 1) == ErrNotResolvable)
	assert.Assert(t, repo.Resolve(ctx, reply.ID, 1) == ErrNotResolvable)

	assert.NilError(t, repo.Resolve(ctx, timestamped.ID, 1))
	assert.Assert(t, repo.Resolve(ctx, timestamped.ID, 1) == ErrAlreadyResolved)

	assert.NilError(t, repo.Unresolve(ctx, timestamped.ID))
	assert.Assert(t, repo.Unresolve(ctx, timestamped.ID) == ErrNotResolved)
}

func TestListThreadFiltersAndFillsAuthors(t *testing.T) {
	db, repo, v := commentFixture(t)
	ctx := context.Background()

	author := &model.User{Username: "ida", Email: "ida@example.com", PasswordHash: "x"}
	assert.NilError(t, db.Create(author).Error)

	open := &model.Comment{VersionID: v.ID, AuthorID: &author.ID, Content: "open", Timestamp: f64(5)}
	assert.NilError(t, repo.Create(ctx, open))

	resolved := &model.Comment{VersionID: v.ID, Content: "done", Timestamp: f64(9)}
	assert.NilError(t, repo.Create(ctx, resolved))
	assert.NilError(t, repo.Resolve(ctx, resolved.ID, author.ID))

	reply := &model.Comment{VersionID: v.ID, Content: "re", ParentID: &open.ID}
	assert.NilError(t, repo.Create(ctx, reply))

	thread, err := repo.ListThread(ctx, v.ID, false)
	assert.NilError(t, err)
	assert.Equal(t, 1, len(thread), "resolved top-level comments are hidden by default")
	assert.Equal(t, open.ID, thread[0].ID)
	assert.Equal(t, "ida", thread[0].AuthorName)
	assert.Equal(t, 1, len(thread[0].Replies))
	assert.Equal(t, model.DeletedUserName, thread[0].Replies[0].AuthorName, "missing author renders as deleted user")

	all, err := repo.ListThread(ctx, v.ID, true)
	assert.NilError(t, err)
	assert.Equal(t, 2, len(all))
}

func TestDeleteTopLevelCascadesReplies(t *testing.T) {
	db, repo, v := commentFixture(t)
	ctx := context.Background()

	top := &model.Comment{VersionID: v.ID, Content: "top", Timestamp: f64(1)}
	assert.NilError(t, repo.Create(ctx, top))
	reply := &model.Comment{VersionID: v.ID, Content: "re", ParentID: &top.ID}
	assert.NilError(t, repo.Create(ctx, reply))

	assert.NilError(t, repo.Delete(ctx, top.ID))

	var count int64
	assert.NilError(t, db.Model(&model.Comment{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)

	assert.Assert(t, repo.Delete(ctx, top.ID) == ErrCommentNotFound)
}

func TestInvitationLifecycle(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormProjectRepository(db)
	ctx := context.Background()

	project := &model.Project{Name: "demo", OwnerID: 1}
	assert.NilError(t, repo.Create(ctx, project))

	inv := &model.Invitation{ProjectID: project.ID, Email: "a@b.c", Token: "tok-1"}
	assert.NilError(t, repo.CreateInvitation(ctx, inv))

	accepted, err := repo.AcceptInvitation(ctx, "tok-1")
	assert.NilError(t, err)
	assert.Assert(t, accepted.Accepted)

	_, err = repo.AcceptInvitation(ctx, "missing")
	assert.Assert(t, err == ErrInvitationNotFound)
}
