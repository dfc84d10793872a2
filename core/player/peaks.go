package player

import "sync"

// PeakCache memoizes decoded waveform peaks per version so repeated renders
// of the same version skip redundant decoding. First successful writer for a
// key wins; duplicates are wasted work, never corruption, since decoding is
// deterministic. There is no eviction: the cache is bounded by the number of
// distinct versions a session visits.
type PeakCache struct {
	mu    sync.RWMutex
	peaks map[int64][]float32
}

// NewPeakCache creates an empty cache.
func NewPeakCache() *PeakCache {
	return &PeakCache{peaks: make(map[int64][]float32)}
}

// Get returns the cached peaks for a version, if present.
func (c *PeakCache) Get(versionID int64) ([]float32, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.peaks[versionID]
	return p, ok
}

// Put stores peaks for a version only if absent. It reports whether the
// write took effect.
func (c *PeakCache) Put(versionID int64, peaks []float32) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.peaks[versionID]; exists {
		return false
	}
	c.peaks[versionID] = peaks
	return true
}

// Len returns the number of cached versions.
func (c *PeakCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.peaks)
}
