package player

// EventType identifies a transport event.
type EventType int

const (
	// EventReady fires once the deck has loaded its source and knows its
	// duration. Play requests before this point are ignored.
	EventReady EventType = iota
	EventPlay
	EventPause
	EventTimeUpdate
	EventFinish
)

// Event is a transport notification delivered to subscribers.
type Event struct {
	Type     EventType
	Time     float64 // current position in seconds
	Duration float64 // total duration in seconds, 0 until ready
}

// Deck is a live audio decode-and-playback handle bound to one version's
// audio URL. Exactly one unmuted deck may exist per Store; additional decks
// are muted shadows that mirror the audible one.
type Deck interface {
	Play()
	Pause()
	Seek(seconds float64)

	CurrentTime() float64
	Duration() float64
	Playing() bool
	Ready() bool

	SetMuted(muted bool)
	Muted() bool

	// Subscribe registers an event listener and returns its disposer. Every
	// subscriber must call the disposer when done; a dangling listener keeps
	// mutating state after its owner is gone.
	Subscribe(fn func(Event)) (cancel func())

	// Destroy stops playback and releases the decode handle. Idempotent.
	Destroy()
}

// DeckFactory constructs a deck for an audio URL. The store uses it for the
// audible deck and waveform views use it for muted shadows, so tests can
// substitute stub transports.
type DeckFactory func(audioURL string, muted bool) (Deck, error)
