package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Versions are immutable, so cached peaks never go stale; the TTL only
// bounds storage for versions nobody opens anymore.
const peaksTTL = 7 * 24 * time.Hour

// peaksKey builds the Redis key for a version's waveform peaks.
func peaksKey(versionID int64) string {
	return fmt.Sprintf("peaks:version:%d", versionID)
}

// GetPeaks returns the cached waveform peaks for a version, or (nil, false)
// on a miss.
func GetPeaks(ctx context.Context, versionID int64) ([]float32, bool, error) {
	if RedisClient == nil {
		return nil, false, fmt.Errorf("Redis client not initialized")
	}

	data, err := RedisClient.Get(ctx, peaksKey(versionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get peaks for version %d: %w", versionID, err)
	}

	var peaks []float32
	if err := json.Unmarshal(data, &peaks); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal peaks for version %d: %w", versionID, err)
	}
	return peaks, true, nil
}

// SetPeaks stores the waveform peaks for a version. SetNX keeps the first
// successful write; duplicate extractions for the same version are discarded.
func SetPeaks(ctx context.Context, versionID int64, peaks []float32) error {
	if RedisClient == nil {
		return fmt.Errorf("Redis client not initialized")
	}

	data, err := json.Marshal(peaks)
	if err != nil {
		return fmt.Errorf("failed to marshal peaks for version %d: %w", versionID, err)
	}

	if err := RedisClient.SetNX(ctx, peaksKey(versionID), data, peaksTTL).Err(); err != nil {
		return fmt.Errorf("failed to cache peaks for version %d: %w", versionID, err)
	}
	return nil
}

// DeletePeaks drops the cached peaks for a version, used when the version is
// deleted.
func DeletePeaks(ctx context.Context, versionID int64) error {
	if RedisClient == nil {
		return fmt.Errorf("Redis client not initialized")
	}
	return RedisClient.Del(ctx, peaksKey(versionID)).Err()
}
