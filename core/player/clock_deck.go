package player

import (
	"context"
	"sync"
	"time"

	"fader/logger"
)

// MetadataFunc resolves the playable duration of an audio URL. The deck
// becomes ready once it returns; a failure leaves the deck permanently
// not-ready, which callers observe as loading never clearing.
type MetadataFunc func(ctx context.Context, audioURL string) (float64, error)

// tickInterval matches the granularity of media-element timeupdate events.
const tickInterval = 250 * time.Millisecond

// clockDeck is a Deck driven by the wall clock: position advances in real
// time between Play and Pause. It decodes nothing itself; rendering audio is
// the embedding client's concern, this deck is the transport state machine
// the rest of the core synchronizes against.
type clockDeck struct {
	mu sync.Mutex

	url      string
	muted    bool
	ready    bool
	playing  bool
	duration float64

	pos       float64   // position at the last play/seek transition
	startedAt time.Time // wall time of the last play transition

	subs    map[int]func(Event)
	nextSub int

	done      chan struct{}
	destroyed bool
}

// NewClockDeckFactory returns a DeckFactory producing clock-driven decks
// whose readiness is gated on meta resolving the source's duration.
func NewClockDeckFactory(meta MetadataFunc) DeckFactory {
	return func(audioURL string, muted bool) (Deck, error) {
		d := &clockDeck{
			url:   audioURL,
			muted: muted,
			subs:  make(map[int]func(Event)),
			done:  make(chan struct{}),
		}
		go d.load(meta)
		go d.run()
		return d, nil
	}
}

// load resolves the source duration and flips the deck to ready.
func (d *clockDeck) load(meta MetadataFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	duration, err := meta(ctx, d.url)
	if err != nil {
		logger.Warn("deck failed to load source",
			logger.String("url", d.url),
			logger.ErrorField(err))
		return
	}

	d.mu.Lock()
	if d.destroyed {
		d.mu.Unlock()
		return
	}
	d.duration = duration
	d.ready = true
	d.mu.Unlock()

	d.emit(Event{Type: EventReady, Time: 0, Duration: duration})
}

// run emits periodic time updates while playing and stops at the end of the
// source.
func (d *clockDeck) run() {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.done:
			return
		case <-ticker.C:
			d.mu.Lock()
			if !d.playing {
				d.mu.Unlock()
				continue
			}
			now := d.currentTimeLocked()
			finished := now >= d.duration
			if finished {
				d.pos = d.duration
				d.playing = false
			}
			duration := d.duration
			d.mu.Unlock()

			d.emit(Event{Type: EventTimeUpdate, Time: now, Duration: duration})
			if finished {
				d.emit(Event{Type: EventFinish, Time: duration, Duration: duration})
			}
		}
	}
}

// currentTimeLocked computes the position; callers hold d.mu.
func (d *clockDeck) currentTimeLocked() float64 {
	pos := d.pos
	if d.playing {
		pos += time.Since(d.startedAt).Seconds()
	}
	if d.ready && pos > d.duration {
		pos = d.duration
	}
	return pos
}

func (d *clockDeck) Play() {
	d.mu.Lock()
	if d.destroyed || !d.ready || d.playing {
		d.mu.Unlock()
		return
	}
	d.playing = true
	d.startedAt = time.Now()
	now, duration := d.currentTimeLocked(), d.duration
	d.mu.Unlock()

	d.emit(Event{Type: EventPlay, Time: now, Duration: duration})
}

func (d *clockDeck) Pause() {
	d.mu.Lock()
	if d.destroyed || !d.playing {
		d.mu.Unlock()
		return
	}
	d.pos = d.currentTimeLocked()
	d.playing = false
	now, duration := d.pos, d.duration
	d.mu.Unlock()

	d.emit(Event{Type: EventPause, Time: now, Duration: duration})
}

func (d *clockDeck) Seek(seconds float64) {
	d.mu.Lock()
	if d.destroyed {
		d.mu.Unlock()
		return
	}
	if seconds < 0 {
		seconds = 0
	}
	if d.ready && seconds > d.duration {
		seconds = d.duration
	}
	d.pos = seconds
	d.startedAt = time.Now()
	duration := d.duration
	d.mu.Unlock()

	d.emit(Event{Type: EventTimeUpdate, Time: seconds, Duration: duration})
}

func (d *clockDeck) CurrentTime() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.currentTimeLocked()
}

func (d *clockDeck) Duration() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.duration
}

func (d *clockDeck) Playing() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.playing
}

func (d *clockDeck) Ready() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ready
}

func (d *clockDeck) SetMuted(muted bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.muted = muted
}

func (d *clockDeck) Muted() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.muted
}

func (d *clockDeck) Subscribe(fn func(Event)) func() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.destroyed {
		return func() {}
	}
	id := d.nextSub
	d.nextSub++
	d.subs[id] = fn
	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		delete(d.subs, id)
	}
}

func (d *clockDeck) Destroy() {
	d.mu.Lock()
	if d.destroyed {
		d.mu.Unlock()
		return
	}
	d.destroyed = true
	d.playing = false
	d.subs = make(map[int]func(Event))
	d.mu.Unlock()

	close(d.done)
}

// emit delivers an event to a snapshot of subscribers, outside the lock so
// handlers may call back into the deck.
func (d *clockDeck) emit(ev Event) {
	d.mu.Lock()
	fns := make([]func(Event), 0, len(d.subs))
	for _, fn := range d.subs {
		fns = append(fns, fn)
	}
	d.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}
