package player

import (
	"context"
	"errors"
	"time"
)

const (
	// readyPollInterval is how often AwaitReady re-checks the transport.
	readyPollInterval = 100 * time.Millisecond
	// readyTimeout bounds the wait so a failed deck construction cannot
	// stall callers forever.
	readyTimeout = 5 * time.Second
)

// ErrNotReady is returned when the transport did not become ready within the
// timeout.
var ErrNotReady = errors.New("transport did not become ready in time")

// AwaitReady blocks until a ready, non-loading deck is observed, polling at
// a fixed interval. It gives up after the timeout or when ctx is cancelled.
func (s *Store) AwaitReady(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, readyTimeout)
	defer cancel()

	ticker := time.NewTicker(readyPollInterval)
	defer ticker.Stop()

	for {
		deck := s.ActiveDeck()
		if deck != nil && deck.Ready() && !s.Snapshot().IsLoading {
			return nil
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return ErrNotReady
			}
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// SeekWhenReady waits for transport readiness and then seeks to the given
// time. A newer call supersedes an in-flight wait instead of racing it: the
// superseded call returns context.Canceled.
func (s *Store) SeekWhenReady(ctx context.Context, seconds float64) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.seekMu.Lock()
	if s.seekCancel != nil {
		s.seekCancel()
	}
	s.seekCancel = cancel
	s.seekCtx = ctx
	s.seekMu.Unlock()

	defer func() {
		s.seekMu.Lock()
		// Only clear the slot if no newer seek has replaced it.
		if s.seekCtx == ctx {
			s.seekCancel = nil
			s.seekCtx = nil
		}
		s.seekMu.Unlock()
	}()

	if err := s.AwaitReady(ctx); err != nil {
		return err
	}

	deck := s.ActiveDeck()
	if deck == nil {
		return ErrNotReady
	}
	deck.Seek(seconds)
	return nil
}
