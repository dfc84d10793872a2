package player

import (
	"sync"
)

// stubDeck is a hand-driven Deck for tests: readiness and events fire only
// when the test says so.
type stubDeck struct {
	mu        sync.Mutex
	url       string
	muted     bool
	ready     bool
	playing   bool
	duration  float64
	pos       float64
	destroyed bool

	seeks []float64

	subs    map[int]func(Event)
	nextSub int
}

func newStubDeck(url string, muted bool) *stubDeck {
	return &stubDeck{
		url:   url,
		muted: muted,
		subs:  make(map[int]func(Event)),
	}
}

// makeReady flips the deck ready and emits EventReady.
func (d *stubDeck) makeReady(duration float64) {
	d.mu.Lock()
	d.ready = true
	d.duration = duration
	d.mu.Unlock()
	d.emit(Event{Type: EventReady, Duration: duration})
}

// tick emits a time update as the transport clock would.
func (d *stubDeck) tick(seconds float64) {
	d.mu.Lock()
	d.pos = seconds
	duration := d.duration
	d.mu.Unlock()
	d.emit(Event{Type: EventTimeUpdate, Time: seconds, Duration: duration})
}

func (d *stubDeck) finish() {
	d.mu.Lock()
	d.playing = false
	d.pos = d.duration
	duration := d.duration
	d.mu.Unlock()
	d.emit(Event{Type: EventFinish, Time: duration, Duration: duration})
}

func (d *stubDeck) Play() {
	d.mu.Lock()
	if d.destroyed || !d.ready || d.playing {
		d.mu.Unlock()
		return
	}
	d.playing = true
	pos, duration := d.pos, d.duration
	d.mu.Unlock()
	d.emit(Event{Type: EventPlay, Time: pos, Duration: duration})
}

func (d *stubDeck) Pause() {
	d.mu.Lock()
	if d.destroyed || !d.playing {
		d.mu.Unlock()
		return
	}
	d.playing = false
	pos, duration := d.pos, d.duration
	d.mu.Unlock()
	d.emit(Event{Type: EventPause, Time: pos, Duration: duration})
}

func (d *stubDeck) Seek(seconds float64) {
	d.mu.Lock()
	d.pos = seconds
	d.seeks = append(d.seeks, seconds)
	d.mu.Unlock()
}

func (d *stubDeck) seekLog() []float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]float64, len(d.seeks))
	copy(out, d.seeks)
	return out
}

func (d *stubDeck) CurrentTime() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pos
}

func (d *stubDeck) Duration() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.duration
}

func (d *stubDeck) Playing() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.playing
}

func (d *stubDeck) Ready() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ready
}

func (d *stubDeck) Destroyed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.destroyed
}

func (d *stubDeck) SetMuted(muted bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.muted = muted
}

func (d *stubDeck) Muted() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.muted
}

func (d *stubDeck) Subscribe(fn func(Event)) func() {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := d.nextSub
	d.nextSub++
	d.subs[id] = fn
	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		delete(d.subs, id)
	}
}

func (d *stubDeck) Destroy() {
	d.mu.Lock()
	d.destroyed = true
	d.playing = false
	d.subs = make(map[int]func(Event))
	d.mu.Unlock()
}

func (d *stubDeck) emit(ev Event) {
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

// deckRecorder is a DeckFactory that remembers every deck it built, in order.
type deckRecorder struct {
	mu    sync.Mutex
	decks []*stubDeck
}

func (r *deckRecorder) factory(audioURL string, muted bool) (Deck, error) {
	d := newStubDeck(audioURL, muted)
	r.mu.Lock()
	r.decks = append(r.decks, d)
	r.mu.Unlock()
	return d, nil
}

func (r *deckRecorder) all() []*stubDeck {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*stubDeck, len(r.decks))
	copy(out, r.decks)
	return out
}

func (r *deckRecorder) last() *stubDeck {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.decks) == 0 {
		return nil
	}
	return r.decks[len(r.decks)-1]
}
