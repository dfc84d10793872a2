package player

import (
	"context"
	"sync"

	"fader/logger"
	"fader/model"
)

// Snapshot is a consistent read of the player state.
type Snapshot struct {
	Track          *model.Track
	Version        *model.Version
	Duration       float64
	CurrentTime    float64
	IsPlaying      bool
	IsLoading      bool
	ShouldAutoPlay bool
	HasEverPlayed  bool
}

// Store is the single authoritative record of what is currently audible.
// Every mounted view reads it and mutates it only through the operations
// below; LoadVersion and ClearPlayer are the only operations that touch more
// than one field. At most one deck is alive at any time.
type Store struct {
	mu sync.Mutex

	factory DeckFactory

	track   *model.Track
	version *model.Version
	deck    Deck
	// disposers for the store's own subscriptions on the active deck
	deckSubs []func()
	// loadGen invalidates deck construction that lost a race with a newer
	// LoadVersion or ClearPlayer.
	loadGen int

	duration       float64
	currentTime    float64
	isPlaying      bool
	isLoading      bool
	shouldAutoPlay bool
	hasEverPlayed  bool

	peaks *PeakCache

	watchers    map[int]func(Snapshot)
	nextWatcher int

	seekMu     sync.Mutex
	seekCancel func()
	seekCtx    context.Context
}

// NewStore creates an empty player state store.
func NewStore(factory DeckFactory) *Store {
	return &Store{
		factory:  factory,
		peaks:    NewPeakCache(),
		watchers: make(map[int]func(Snapshot)),
	}
}

// LoadVersion switches the audible version. An existing deck is paused and
// destroyed before the replacement is constructed, so overlapping audio is
// impossible. This operation cannot fail from the caller's perspective;
// a deck that never becomes ready surfaces as loading never clearing, which
// callers bound with AwaitReady.
func (s *Store) LoadVersion(track *model.Track, version *model.Version, autoPlay bool) {
	s.mu.Lock()
	oldDeck := s.deck
	oldSubs := s.deckSubs
	s.deck = nil
	s.deckSubs = nil
	s.loadGen++
	gen := s.loadGen

	s.track = track
	s.version = version
	s.duration = 0
	s.currentTime = 0
	s.isPlaying = false
	s.isLoading = true
	s.shouldAutoPlay = autoPlay
	s.hasEverPlayed = true
	s.mu.Unlock()

	// Tear down outside the lock: deck teardown synchronizes with event
	// delivery, which may be blocked on a store setter.
	for _, dispose := range oldSubs {
		dispose()
	}
	if oldDeck != nil {
		if oldDeck.Playing() {
			oldDeck.Pause()
		}
		oldDeck.Destroy()
	}

	deck, err := s.factory(version.AudioURL, false)
	if err != nil {
		logger.Error("failed to construct deck",
			logger.Int64("versionId", version.ID),
			logger.ErrorField(err))
		s.notify()
		return
	}

	s.mu.Lock()
	if s.loadGen != gen {
		// A newer load or clear won the race; this deck must not survive.
		s.mu.Unlock()
		deck.Destroy()
		return
	}
	s.deck = deck
	s.mu.Unlock()

	s.attachDeck(deck, gen)
	s.notify()
}

// attachDeck wires the active deck's events into the store fields.
func (s *Store) attachDeck(deck Deck, gen int) {
	dispose := deck.Subscribe(func(ev Event) {
		s.mu.Lock()
		if s.loadGen != gen {
			s.mu.Unlock()
			return
		}
		var autoPlay bool
		switch ev.Type {
		case EventReady:
			s.duration = ev.Duration
			s.isLoading = false
			autoPlay = s.shouldAutoPlay
			s.shouldAutoPlay = false
		case EventPlay:
			s.isPlaying = true
		case EventPause, EventFinish:
			s.isPlaying = false
		case EventTimeUpdate:
			s.currentTime = ev.Time
		}
		s.mu.Unlock()

		if autoPlay {
			deck.Play()
		}
		s.notify()
	})

	s.mu.Lock()
	if s.loadGen != gen {
		s.mu.Unlock()
		dispose()
		return
	}
	s.deckSubs = append(s.deckSubs, dispose)
	s.mu.Unlock()
}

// ClearPlayer pauses and destroys the deck if present, then resets every
// field to its initial value.
func (s *Store) ClearPlayer() {
	s.mu.Lock()
	oldDeck := s.deck
	oldSubs := s.deckSubs
	s.deck = nil
	s.deckSubs = nil
	s.loadGen++

	s.track = nil
	s.version = nil
	s.duration = 0
	s.currentTime = 0
	s.isPlaying = false
	s.isLoading = false
	s.shouldAutoPlay = false
	s.hasEverPlayed = false
	s.mu.Unlock()

	for _, dispose := range oldSubs {
		dispose()
	}
	if oldDeck != nil {
		if oldDeck.Playing() {
			oldDeck.Pause()
		}
		oldDeck.Destroy()
	}
	s.notify()
}

// SetDuration replaces the duration field.
func (s *Store) SetDuration(seconds float64) {
	s.mu.Lock()
	s.duration = seconds
	s.mu.Unlock()
	s.notify()
}

// SetCurrentTime replaces the playback position field.
func (s *Store) SetCurrentTime(seconds float64) {
	s.mu.Lock()
	s.currentTime = seconds
	s.mu.Unlock()
	s.notify()
}

// SetPlaying replaces the play/pause flag.
func (s *Store) SetPlaying(playing bool) {
	s.mu.Lock()
	s.isPlaying = playing
	s.mu.Unlock()
	s.notify()
}

// SetLoading replaces the loading flag.
func (s *Store) SetLoading(loading bool) {
	s.mu.Lock()
	s.isLoading = loading
	s.mu.Unlock()
	s.notify()
}

// SetShouldAutoPlay replaces the one-shot auto-play flag.
func (s *Store) SetShouldAutoPlay(autoPlay bool) {
	s.mu.Lock()
	s.shouldAutoPlay = autoPlay
	s.mu.Unlock()
	s.notify()
}

// SetPeaks caches decoded waveform peaks for a version. The first write for
// a version wins; later duplicates are discarded.
func (s *Store) SetPeaks(versionID int64, peaks []float32) {
	s.peaks.Put(versionID, peaks)
}

// Peaks returns cached waveform peaks for a version, if present.
func (s *Store) Peaks(versionID int64) ([]float32, bool) {
	return s.peaks.Get(versionID)
}

// Snapshot returns a consistent copy of the state fields.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Track:          s.track,
		Version:        s.version,
		Duration:       s.duration,
		CurrentTime:    s.currentTime,
		IsPlaying:      s.isPlaying,
		IsLoading:      s.isLoading,
		ShouldAutoPlay: s.shouldAutoPlay,
		HasEverPlayed:  s.hasEverPlayed,
	}
}

// ActiveDeck returns the live deck, or nil while nothing is loaded.
func (s *Store) ActiveDeck() Deck {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deck
}

// ActiveVersionID returns the loaded version's ID, or 0.
func (s *Store) ActiveVersionID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.version == nil {
		return 0
	}
	return s.version.ID
}

// Subscribe registers a watcher notified after every state mutation and
// returns its disposer.
func (s *Store) Subscribe(fn func(Snapshot)) (cancel func()) {
	s.mu.Lock()
	id := s.nextWatcher
	s.nextWatcher++
	s.watchers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.watchers, id)
		s.mu.Unlock()
	}
}

// newShadowDeck constructs a muted deck for a waveform view.
func (s *Store) newShadowDeck(audioURL string) (Deck, error) {
	return s.factory(audioURL, true)
}

// notify delivers the current snapshot to all watchers, outside the lock.
func (s *Store) notify() {
	snap := s.Snapshot()

	s.mu.Lock()
	fns := make([]func(Snapshot), 0, len(s.watchers))
	for _, fn := range s.watchers {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}
