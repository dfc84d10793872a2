package player

import (
	"fmt"
	"sync"

	"fader/model"
)

// WaveformView renders one version's waveform with comment markers. When its
// version is the globally active one it mirrors the audible deck through a
// muted local shadow; otherwise clicks only report times upward and never
// touch audio.
type WaveformView struct {
	store   *Store
	track   *model.Track
	version *model.Version

	onTimeClick    func(seconds float64)
	onCommentClick func(commentID int64)

	mu       sync.Mutex
	comments []*model.Comment
	local    Deck
	// deckSubs are the view's subscriptions on the global deck while
	// mirroring; released on every resync and on unmount.
	deckSubs []func()
	storeSub func()
	// mirrored is the global deck currently being mirrored, nil when the
	// view is inactive.
	mirrored Deck
	mounted  bool
}

// MountWaveform constructs a view with its own muted shadow deck, subscribes
// it to the store, and performs the initial sync.
func MountWaveform(
	store *Store,
	track *model.Track,
	version *model.Version,
	comments []*model.Comment,
	onTimeClick func(seconds float64),
	onCommentClick func(commentID int64),
) (*WaveformView, error) {
	local, err := store.newShadowDeck(version.AudioURL)
	if err != nil {
		return nil, fmt.Errorf("failed to construct shadow deck: %w", err)
	}

	v := &WaveformView{
		store:          store,
		track:          track,
		version:        version,
		comments:       comments,
		local:          local,
		onTimeClick:    onTimeClick,
		onCommentClick: onCommentClick,
		mounted:        true,
	}

	v.storeSub = store.Subscribe(func(Snapshot) {
		v.resync()
	})
	v.resync()
	return v, nil
}

// Active reports whether this view's version is the globally audible one.
func (v *WaveformView) Active() bool {
	return v.store.ActiveVersionID() == v.version.ID
}

// resync attaches or detaches the mirror subscriptions according to whether
// this view's version is the active one.
func (v *WaveformView) resync() {
	global := v.store.ActiveDeck()
	if !v.Active() {
		global = nil
	}

	v.mu.Lock()
	if !v.mounted {
		v.mu.Unlock()
		return
	}
	if global == v.mirrored {
		v.mu.Unlock()
		return
	}

	old := v.deckSubs
	v.deckSubs = nil
	v.mirrored = global
	local := v.local
	v.mu.Unlock()

	for _, dispose := range old {
		dispose()
	}

	if global == nil {
		if local != nil {
			local.Pause()
		}
		return
	}

	// Mirror the audible deck onto the muted local one so the waveform
	// cursor tracks playback without producing sound.
	dispose := global.Subscribe(func(ev Event) {
		switch ev.Type {
		case EventTimeUpdate:
			local.Seek(ev.Time)
		case EventPlay:
			local.Seek(ev.Time)
			local.Play()
		case EventPause, EventFinish:
			local.Pause()
		}
	})

	v.mu.Lock()
	if !v.mounted || v.mirrored != global {
		v.mu.Unlock()
		dispose()
		return
	}
	v.deckSubs = append(v.deckSubs, dispose)
	v.mu.Unlock()
}

// ClickAt handles a click at relative position r (0..1) on the waveform. For
// the active version the click seeks the audible deck; otherwise the absolute
// time is only reported upward, e.g. to prefill a new comment's timestamp.
func (v *WaveformView) ClickAt(r float64) {
	duration := v.local.Duration()
	if !v.local.Ready() || duration <= 0 {
		return
	}
	t := PositionToTime(r, duration)

	if v.Active() {
		if deck := v.store.ActiveDeck(); deck != nil {
			deck.Seek(t)
			return
		}
	}
	if v.onTimeClick != nil {
		v.onTimeClick(t)
	}
}

// TogglePlay plays or pauses this version. If another version is active the
// store is switched first; a second audible deck is never constructed.
func (v *WaveformView) TogglePlay() {
	if !v.Active() {
		v.store.LoadVersion(v.track, v.version, true)
		return
	}

	deck := v.store.ActiveDeck()
	if deck == nil {
		v.store.LoadVersion(v.track, v.version, true)
		return
	}
	if deck.Playing() {
		deck.Pause()
	} else {
		deck.Play()
	}
}

// SetComments replaces the comment set shown on the waveform.
func (v *WaveformView) SetComments(comments []*model.Comment) {
	v.mu.Lock()
	v.comments = comments
	v.mu.Unlock()
}

// Markers projects the current comment set onto the waveform. While the
// local transport is still loading nothing is returned: duration-dependent
// layout is undefined until the deck is ready.
func (v *WaveformView) Markers() []Marker {
	if !v.local.Ready() {
		return nil
	}
	v.mu.Lock()
	comments := v.comments
	v.mu.Unlock()
	return ProjectMarkers(comments, v.local.Duration())
}

// ClickMarker reports a marker click upward for deep-linking without
// touching playback.
func (v *WaveformView) ClickMarker(commentID int64) {
	if v.onCommentClick != nil {
		v.onCommentClick(commentID)
	}
}

// Unmount releases every subscription the view attached and destroys its
// shadow deck. A view left mounted would keep mutating the shadow transport
// after leaving the screen.
func (v *WaveformView) Unmount() {
	v.mu.Lock()
	if !v.mounted {
		v.mu.Unlock()
		return
	}
	v.mounted = false
	v.mirrored = nil
	subs := v.deckSubs
	v.deckSubs = nil
	storeSub := v.storeSub
	v.storeSub = nil
	local := v.local
	v.mu.Unlock()

	if storeSub != nil {
		storeSub()
	}
	for _, dispose := range subs {
		dispose()
	}
	if local != nil {
		local.Destroy()
	}
}
