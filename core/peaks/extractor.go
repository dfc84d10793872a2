package peaks

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"path"
	"strings"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/flac"
	"github.com/gopxl/beep/mp3"
	"github.com/gopxl/beep/wav"
)

// DefaultBuckets is the waveform resolution handed to clients.
const DefaultBuckets = 512

// Extract decodes an audio file held in memory and reduces it to a fixed
// number of amplitude buckets, each the maximum absolute sample value in its
// span of the file. The format is chosen by file extension.
func Extract(data []byte, fileName string, buckets int) ([]float32, error) {
	if buckets <= 0 {
		buckets = DefaultBuckets
	}

	streamer, scale, err := decode(data, fileName)
	if err != nil {
		return nil, err
	}
	defer streamer.Close()

	total := streamer.Len()
	if total <= 0 {
		return nil, fmt.Errorf("audio file %q has no samples", fileName)
	}

	out := make([]float32, buckets)
	buf := make([][2]float64, 512)
	idx := 0

	for {
		n, ok := streamer.Stream(buf)
		for i := 0; i < n; i++ {
			amp := math.Max(math.Abs(buf[i][0]), math.Abs(buf[i][1])) * scale
			if amp > 1 {
				amp = 1
			}
			b := idx * buckets / total
			if b >= buckets {
				b = buckets - 1
			}
			if float32(amp) > out[b] {
				out[b] = float32(amp)
			}
			idx++
		}
		if !ok {
			break
		}
	}

	if err := streamer.Err(); err != nil {
		return nil, fmt.Errorf("failed to decode %q: %w", fileName, err)
	}
	return out, nil
}

// decode also returns the gain correcting the decoder's sample scale to true
// full scale. The wav decoder normalizes integer PCM over the full unsigned
// range, so a full-scale 16-bit sample streams as roughly 0.5; mp3 and flac
// already stream at ±1.
func decode(data []byte, fileName string) (beep.StreamSeekCloser, float64, error) {
	r := &byteReadCloser{bytes.NewReader(data)}

	var (
		streamer beep.StreamSeekCloser
		scale    = 1.0
		err      error
	)
	switch strings.ToLower(path.Ext(fileName)) {
	case ".mp3":
		streamer, _, err = mp3.Decode(r)
	case ".wav":
		streamer, _, err = wav.Decode(r)
		scale = 2.0
	case ".flac":
		streamer, _, err = flac.Decode(r)
	default:
		return nil, 0, fmt.Errorf("unsupported audio format %q", path.Ext(fileName))
	}
	if err != nil {
		return nil, 0, fmt.Errorf("failed to decode %q: %w", fileName, err)
	}
	return streamer, scale, nil
}

// byteReadCloser adapts a bytes.Reader to the ReadCloser + Seeker combination
// the decoders want.
type byteReadCloser struct {
	*bytes.Reader
}

func (*byteReadCloser) Close() error { return nil }

var _ io.ReadSeekCloser = (*byteReadCloser)(nil)
