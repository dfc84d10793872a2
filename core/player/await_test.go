package player

import (
	"context"
	"errors"
	"testing"
	"time"

	"gotest.tools/assert"
)

func TestAwaitReadyReturnsOnceDeckIsReady(t *testing.T) {
	rec := &deckRecorder{}
	store := NewStore(rec.factory)

	store.LoadVersion(testTrack(1), testVersion(1), false)
	deck := rec.last()

	go func() {
		time.Sleep(150 * time.Millisecond)
		deck.makeReady(60)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	assert.NilError(t, store.AwaitReady(ctx))
}

func TestAwaitReadyCancel(t *testing.T) {
	rec := &deckRecorder{}
	store := NewStore(rec.factory)
	store.LoadVersion(testTrack(1), testVersion(1), false)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(120 * time.Millisecond)
		cancel()
	}()

	err := store.AwaitReady(ctx)
	assert.Assert(t, errors.Is(err, context.Canceled))
}

func TestSeekWhenReadySeeksAfterReadiness(t *testing.T) {
	rec := &deckRecorder{}
	store := NewStore(rec.factory)

	store.LoadVersion(testTrack(1), testVersion(1), false)
	deck := rec.last()

	go func() {
		time.Sleep(150 * time.Millisecond)
		deck.makeReady(60)
	}()

	assert.NilError(t, store.SeekWhenReady(context.Background(), 42))
	assert.DeepEqual(t, []float64{42.0}, deck.seekLog())
}

func TestSeekWhenReadySupersedes(t *testing.T) {
	rec := &deckRecorder{}
	store := NewStore(rec.factory)

	store.LoadVersion(testTrack(1), testVersion(1), false)
	deck := rec.last()

	firstErr := make(chan error, 1)
	go func() {
		firstErr <- store.SeekWhenReady(context.Background(), 10)
	}()

	// Let the first wait install itself before the second one lands.
	time.Sleep(150 * time.Millisecond)

	done := make(chan error, 1)
	go func() {
		done <- store.SeekWhenReady(context.Background(), 20)
	}()

	time.Sleep(150 * time.Millisecond)
	deck.makeReady(60)

	assert.Assert(t, errors.Is(<-firstErr, context.Canceled), "superseded seek is cancelled")
	assert.NilError(t, <-done)
	assert.DeepEqual(t, []float64{20.0}, deck.seekLog())
}
