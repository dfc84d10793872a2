package peaks

import (
	"bytes"
	"encoding/binary"
	"testing"

	"gotest.tools/assert"
)

// makeWAV builds a minimal 16-bit PCM mono WAV file in memory.
func makeWAV(samples []int16, rate int) []byte {
	var buf bytes.Buffer
	dataLen := len(samples) * 2

	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+dataLen))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // mono
	binary.Write(&buf, binary.LittleEndian, uint32(rate))
	binary.Write(&buf, binary.LittleEndian, uint32(rate*2))
	binary.Write(&buf, binary.LittleEndian, uint16(2))
	binary.Write(&buf, binary.LittleEndian, uint16(16))

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(dataLen))
	binary.Write(&buf, binary.LittleEndian, samples)

	return buf.Bytes()
}

func TestExtractBucketsAmplitude(t *testing.T) {
	// Half a second of silence followed by half a second of loud signal.
	samples := make([]int16, 8000)
	for i := 4000; i < 8000; i++ {
		samples[i] = 30000
	}
	data := makeWAV(samples, 8000)

	peaks, err := Extract(data, "clip.wav", 4)
	assert.NilError(t, err)
	assert.Equal(t, 4, len(peaks))

	assert.Equal(t, float32(0), peaks[0])
	assert.Equal(t, float32(0), peaks[1])
	// 30000 of 32768 is ~0.92 at true full scale; the wav decoder streams it
	// at half that, which the extractor corrects.
	assert.Assert(t, peaks[2] > 0.9, "loud half must register near full scale, got %f", peaks[2])
	assert.Assert(t, peaks[2] <= 1)
	assert.Assert(t, peaks[3] > 0.9)
}

func TestExtractDefaultsBucketCount(t *testing.T) {
	samples := make([]int16, 2048)
	for i := range samples {
		samples[i] = 1000
	}
	peaks, err := Extract(makeWAV(samples, 8000), "clip.wav", 0)
	assert.NilError(t, err)
	assert.Equal(t, DefaultBuckets, len(peaks))
}

func TestExtractRejectsUnknownFormat(t *testing.T) {
	_, err := Extract([]byte("not audio"), "clip.ogg", 16)
	assert.ErrorContains(t, err, "unsupported audio format")
}

func TestExtractRejectsGarbage(t *testing.T) {
	_, err := Extract([]byte("definitely not a wav"), "clip.wav", 16)
	assert.Assert(t, err != nil)
}
