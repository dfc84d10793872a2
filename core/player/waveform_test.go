package player

import (
	"testing"

	"gotest.tools/assert"

	"fader/model"
)

func mountTestWaveform(t *testing.T, store *Store, rec *deckRecorder, versionID int64, onTime func(float64)) (*WaveformView, *stubDeck) {
	t.Helper()
	v, err := MountWaveform(store, testTrack(1), testVersion(versionID), nil, onTime, nil)
	assert.NilError(t, err)
	t.Cleanup(v.Unmount)
	local := rec.last()
	assert.Assert(t, local.Muted(), "shadow deck must be muted")
	return v, local
}

func TestWaveformMirrorsActiveDeck(t *testing.T) {
	rec := &deckRecorder{}
	store := NewStore(rec.factory)

	store.LoadVersion(testTrack(1), testVersion(1), false)
	global := rec.last()
	global.makeReady(100)

	view, local := mountTestWaveform(t, store, rec, 1, nil)
	local.makeReady(100)
	assert.Assert(t, view.Active())

	global.Play()
	assert.Assert(t, local.Playing(), "local shadow follows global play")

	global.tick(25)
	log := local.seekLog()
	assert.Assert(t, len(log) > 0)
	assert.Equal(t, 25.0, log[len(log)-1])

	global.Pause()
	assert.Assert(t, !local.Playing())
}

func TestWaveformInactiveNeverTouchesAudio(t *testing.T) {
	rec := &deckRecorder{}
	store := NewStore(rec.factory)

	store.LoadVersion(testTrack(1), testVersion(1), false)
	global := rec.last()
	global.makeReady(100)

	_, local := mountTestWaveform(t, store, rec, 2, nil)
	local.makeReady(80)

	// Global activity on another version must not reach this view's shadow.
	global.Play()
	global.tick(10)
	assert.Assert(t, !local.Playing())
	assert.Equal(t, 0, len(local.seekLog()))
}

func TestWaveformClickSeeksWhenActive(t *testing.T) {
	rec := &deckRecorder{}
	store := NewStore(rec.factory)

	store.LoadVersion(testTrack(1), testVersion(1), false)
	global := rec.last()
	global.makeReady(100)

	view, local := mountTestWaveform(t, store, rec, 1, nil)
	local.makeReady(100)

	view.ClickAt(0.5)
	log := global.seekLog()
	assert.Equal(t, 1, len(log))
	assert.Equal(t, 50.0, log[0])
}

func TestWaveformClickReportsTimeWhenInactive(t *testing.T) {
	rec := &deckRecorder{}
	store := NewStore(rec.factory)

	store.LoadVersion(testTrack(1), testVersion(1), false)
	global := rec.last()
	global.makeReady(100)

	var reported []float64
	view, local := mountTestWaveform(t, store, rec, 2, func(s float64) {
		reported = append(reported, s)
	})
	local.makeReady(80)

	view.ClickAt(0.25)
	assert.DeepEqual(t, []float64{20.0}, reported)
	assert.Equal(t, 0, len(global.seekLog()), "inactive view never seeks the audible deck")
}

func TestWaveformClickIgnoredWhileLoading(t *testing.T) {
	rec := &deckRecorder{}
	store := NewStore(rec.factory)

	var reported []float64
	view, _ := mountTestWaveform(t, store, rec, 1, func(s float64) {
		reported = append(reported, s)
	})
	// Shadow deck never became ready; duration-dependent math is undefined.
	view.ClickAt(0.5)
	assert.Equal(t, 0, len(reported))
}

func TestWaveformTogglePlaySwitchesVersion(t *testing.T) {
	rec := &deckRecorder{}
	store := NewStore(rec.factory)

	store.LoadVersion(testTrack(1), testVersion(1), false)
	rec.last().makeReady(100)

	view, local := mountTestWaveform(t, store, rec, 2, nil)
	local.makeReady(80)
	assert.Assert(t, !view.Active())

	view.TogglePlay()

	snap := store.Snapshot()
	assert.Equal(t, int64(2), snap.Version.ID)
	assert.Assert(t, snap.ShouldAutoPlay || snap.IsPlaying)
	assert.Assert(t, view.Active())

	decks := rec.all()
	// version 1 deck, shadow, version 2 deck
	assert.Equal(t, 3, len(decks))
	assert.Assert(t, decks[0].Destroyed(), "switching versions destroys the previous audible deck")
}

func TestWaveformMarkers(t *testing.T) {
	rec := &deckRecorder{}
	store := NewStore(rec.factory)

	comments := []*model.Comment{
		{ID: 1, Timestamp: ptrF(20)},
		{ID: 2},
	}
	view, err := MountWaveform(store, testTrack(1), testVersion(1), comments, nil, nil)
	assert.NilError(t, err)
	defer view.Unmount()
	local := rec.last()

	assert.Assert(t, view.Markers() == nil, "no markers while the shadow transport is loading")

	local.makeReady(80)
	markers := view.Markers()
	assert.Equal(t, 1, len(markers))
	assert.Equal(t, int64(1), markers[0].CommentID)
	assert.Equal(t, 0.25, markers[0].Position)
}

func TestWaveformRemirrorsAfterReload(t *testing.T) {
	rec := &deckRecorder{}
	store := NewStore(rec.factory)

	store.LoadVersion(testTrack(1), testVersion(1), false)
	first := rec.last()
	first.makeReady(100)

	_, local := mountTestWaveform(t, store, rec, 1, nil)
	local.makeReady(100)

	// Same version reloaded: new global deck, old one destroyed. The view
	// must re-attach to the replacement.
	store.LoadVersion(testTrack(1), testVersion(1), false)
	second := rec.last()
	second.makeReady(100)

	second.tick(33)
	log := local.seekLog()
	assert.Assert(t, len(log) > 0, "shadow must follow the replacement deck")
	assert.Equal(t, 33.0, log[len(log)-1])
}

func TestWaveformUnmountStopsMirroring(t *testing.T) {
	rec := &deckRecorder{}
	store := NewStore(rec.factory)

	store.LoadVersion(testTrack(1), testVersion(1), false)
	global := rec.last()
	global.makeReady(100)

	view, err := MountWaveform(store, testTrack(1), testVersion(1), nil, nil, nil)
	assert.NilError(t, err)
	local := rec.last()
	local.makeReady(100)

	view.Unmount()
	assert.Assert(t, local.Destroyed())

	before := len(local.seekLog())
	global.tick(40)
	assert.Equal(t, before, len(local.seekLog()), "unmounted view must not mirror")
}
