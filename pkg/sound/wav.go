package sound

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"
)

const (
	wavHeaderSize  = 44
	bitsPerSample  = 16
	bytesPerSample = bitsPerSample / 8
	formatPCM      = 1
)

// ErrInvalidWAV is returned when the input isn't a PCM16 RIFF/WAVE stream.
var ErrInvalidWAV = errors.New("sound: invalid wav")

// WAV is a decoded PCM16 WAV stream.
type WAV struct {
	SampleRate    int
	Channels      int
	BitsPerSample int
	ByteRate      int
	BlockAlign    int
	// RIFFSize is the size declared in the RIFF header.
	RIFFSize int
	// DataSize is the size declared by the data chunk.
	DataSize int
	// Samples are interleaved by channel.
	Samples []int16
}

// Frames returns the number of samples per channel.
func (w *WAV) Frames() int {
	if w.Channels == 0 {
		return 0
	}
	return len(w.Samples) / w.Channels
}

// Duration returns the playing time of the stream.
func (w *WAV) Duration() time.Duration {
	if w.SampleRate == 0 {
		return 0
	}
	return time.Duration(float64(w.Frames()) / float64(w.SampleRate) * float64(time.Second))
}

// EncodeWAV writes interleaved samples into a canonical 44 byte header
// RIFF/WAVE PCM16 stream.
func EncodeWAV(samples []int16, sampleRate, channels int) []byte {
	dataSize := len(samples) * bytesPerSample
	b := make([]byte, wavHeaderSize+dataSize)

	le := binary.LittleEndian
	copy(b[0:4], "RIFF")
	le.PutUint32(b[4:8], uint32(36+dataSize))
	copy(b[8:12], "WAVE")

	copy(b[12:16], "fmt ")
	le.PutUint32(b[16:20], 16)
	le.PutUint16(b[20:22], formatPCM)
	le.PutUint16(b[22:24], uint16(channels))
	le.PutUint32(b[24:28], uint32(sampleRate))
	le.PutUint32(b[28:32], uint32(sampleRate*channels*bytesPerSample))
	le.PutUint16(b[32:34], uint16(channels*bytesPerSample))
	le.PutUint16(b[34:36], bitsPerSample)

	copy(b[36:40], "data")
	le.PutUint32(b[40:44], uint32(dataSize))

	for i, s := range samples {
		le.PutUint16(b[wavHeaderSize+i*bytesPerSample:], uint16(s))
	}
	return b
}

// DecodeWAV parses a PCM16 WAV stream. Unknown chunks are skipped.
func DecodeWAV(b []byte) (*WAV, error) {
	if len(b) < 12 || string(b[0:4]) != "RIFF" || string(b[8:12]) != "WAVE" {
		return nil, fmt.Errorf("%w: missing RIFF/WAVE header", ErrInvalidWAV)
	}
	le := binary.LittleEndian
	w := &WAV{RIFFSize: int(le.Uint32(b[4:8]))}

	var hasFmt, hasData bool
	pos := 12
	for pos+8 <= len(b) {
		id := string(b[pos : pos+4])
		size := int(le.Uint32(b[pos+4 : pos+8]))
		body := pos + 8
		if size < 0 || body+size > len(b) {
			return nil, fmt.Errorf("%w: chunk %q overflows stream", ErrInvalidWAV, id)
		}
		chunk := b[body : body+size]

		switch id {
		case "fmt ":
			if size < 16 {
				return nil, fmt.Errorf("%w: short fmt chunk", ErrInvalidWAV)
			}
			if f := le.Uint16(chunk[0:2]); f != formatPCM {
				return nil, fmt.Errorf("%w: unsupported format %d", ErrInvalidWAV, f)
			}
			w.Channels = int(le.Uint16(chunk[2:4]))
			w.SampleRate = int(le.Uint32(chunk[4:8]))
			w.ByteRate = int(le.Uint32(chunk[8:12]))
			w.BlockAlign = int(le.Uint16(chunk[12:14]))
			w.BitsPerSample = int(le.Uint16(chunk[14:16]))
			if w.BitsPerSample != bitsPerSample {
				return nil, fmt.Errorf("%w: unsupported bit depth %d", ErrInvalidWAV, w.BitsPerSample)
			}
			if w.Channels == 0 || w.SampleRate == 0 {
				return nil, fmt.Errorf("%w: empty format", ErrInvalidWAV)
			}
			hasFmt = true
		case "data":
			if !hasFmt {
				return nil, fmt.Errorf("%w: data before fmt", ErrInvalidWAV)
			}
			w.DataSize = size
			w.Samples = make([]int16, size/bytesPerSample)
			for i := range w.Samples {
				w.Samples[i] = int16(le.Uint16(chunk[i*bytesPerSample:]))
			}
			hasData = true
		}

		// Chunks are word aligned
		pos = body + size + size%2
	}
	if !hasFmt || !hasData {
		return nil, fmt.Errorf("%w: missing fmt or data chunk", ErrInvalidWAV)
	}
	return w, nil
}
