package player

import (
	"testing"

	"gotest.tools/assert"

	"fader/model"
)

func testTrack(id int64) *model.Track {
	return &model.Track{ID: id, Name: "demo"}
}

func testVersion(id int64) *model.Version {
	return &model.Version{ID: id, TrackID: 1, Number: int(id), AudioURL: "mem://v"}
}

func TestLoadVersionReplacesDeck(t *testing.T) {
	rec := &deckRecorder{}
	store := NewStore(rec.factory)

	store.LoadVersion(testTrack(1), testVersion(1), false)
	first := rec.last()
	first.makeReady(120)
	first.Play()

	store.LoadVersion(testTrack(1), testVersion(2), false)

	decks := rec.all()
	assert.Equal(t, 2, len(decks))
	assert.Assert(t, decks[0].Destroyed(), "old deck must be destroyed")
	assert.Assert(t, !decks[0].Playing(), "old deck must be paused before destruction")
	assert.Assert(t, !decks[1].Destroyed())
	assert.Equal(t, decks[1], store.ActiveDeck().(*stubDeck))
}

func TestLoadVersionResetsState(t *testing.T) {
	rec := &deckRecorder{}
	store := NewStore(rec.factory)

	store.LoadVersion(testTrack(1), testVersion(1), false)
	rec.last().makeReady(60)
	rec.last().tick(42)

	store.LoadVersion(testTrack(1), testVersion(2), false)
	snap := store.Snapshot()
	assert.Equal(t, int64(2), snap.Version.ID)
	assert.Equal(t, 0.0, snap.CurrentTime)
	assert.Equal(t, 0.0, snap.Duration)
	assert.Assert(t, snap.IsLoading, "loading until the new deck reports ready")
	assert.Assert(t, !snap.IsPlaying)
	assert.Assert(t, snap.HasEverPlayed)
}

func TestAutoPlayConsumedOnReady(t *testing.T) {
	rec := &deckRecorder{}
	store := NewStore(rec.factory)

	store.LoadVersion(testTrack(1), testVersion(1), true)
	assert.Assert(t, store.Snapshot().ShouldAutoPlay)

	deck := rec.last()
	deck.makeReady(60)

	snap := store.Snapshot()
	assert.Assert(t, !snap.IsLoading)
	assert.Equal(t, 60.0, snap.Duration)
	assert.Assert(t, !snap.ShouldAutoPlay, "auto-play fires once")
	assert.Assert(t, deck.Playing())
	assert.Assert(t, snap.IsPlaying)
}

func TestDeckEventsFlowIntoState(t *testing.T) {
	rec := &deckRecorder{}
	store := NewStore(rec.factory)

	store.LoadVersion(testTrack(1), testVersion(1), false)
	deck := rec.last()
	deck.makeReady(90)

	deck.Play()
	assert.Assert(t, store.Snapshot().IsPlaying)

	deck.tick(12.5)
	assert.Equal(t, 12.5, store.Snapshot().CurrentTime)

	deck.Pause()
	assert.Assert(t, !store.Snapshot().IsPlaying)

	deck.Play()
	deck.finish()
	assert.Assert(t, !store.Snapshot().IsPlaying)
}

func TestClearPlayer(t *testing.T) {
	rec := &deckRecorder{}
	store := NewStore(rec.factory)

	store.LoadVersion(testTrack(1), testVersion(1), true)
	deck := rec.last()
	deck.makeReady(60)
	deck.tick(10)

	store.ClearPlayer()

	assert.Assert(t, deck.Destroyed())
	snap := store.Snapshot()
	assert.Assert(t, snap.Track == nil)
	assert.Assert(t, snap.Version == nil)
	assert.Equal(t, 0.0, snap.CurrentTime)
	assert.Assert(t, !snap.HasEverPlayed)
	assert.Assert(t, store.ActiveDeck() == nil)
}

func TestStaleDeckEventsIgnoredAfterReload(t *testing.T) {
	rec := &deckRecorder{}
	store := NewStore(rec.factory)

	store.LoadVersion(testTrack(1), testVersion(1), false)
	old := rec.last()
	old.makeReady(60)

	store.LoadVersion(testTrack(1), testVersion(2), false)

	// The old deck is destroyed and its store subscriptions disposed; a
	// straggler event must not leak into the new version's state.
	old.tick(55)
	assert.Equal(t, 0.0, store.Snapshot().CurrentTime)
}

func TestSubscribeAndDispose(t *testing.T) {
	rec := &deckRecorder{}
	store := NewStore(rec.factory)

	var got []Snapshot
	cancel := store.Subscribe(func(s Snapshot) {
		got = append(got, s)
	})

	store.SetCurrentTime(3)
	assert.Equal(t, 1, len(got))
	assert.Equal(t, 3.0, got[0].CurrentTime)

	cancel()
	store.SetCurrentTime(4)
	assert.Equal(t, 1, len(got), "disposed watcher must not fire")
}

func TestPeakCacheFirstWriterWins(t *testing.T) {
	cache := NewPeakCache()

	assert.Assert(t, cache.Put(7, []float32{0.1, 0.9}))
	assert.Assert(t, !cache.Put(7, []float32{0.5}), "second write for the same version is discarded")

	peaks, ok := cache.Get(7)
	assert.Assert(t, ok)
	assert.DeepEqual(t, []float32{0.1, 0.9}, peaks)

	_, ok = cache.Get(8)
	assert.Assert(t, !ok)
	assert.Equal(t, 1, cache.Len())
}
