// A small WAVE file writer, extended from a single fixed stereo/16-bit
// layout to whatever channel count (1 or 2) and bit depth a sink needs.
// See http://soundfile.sapp.org/doc/WaveFormat/ for format documentation.
package wav

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

const pcmFormat = 1

// Writer streams normalized [-1,1] float samples into a PCM WAVE file,
// patching the RIFF/data chunk sizes on Finish once the total length is
// known.
type Writer struct {
	ws         io.WriteSeeker
	channels   int
	bitDepth   int
	bytesPerSample int
	maxInt     float64
}

// NewWriter opens ws for a WAVE stream at sampleRate, with the given
// channel count (1 or 2) and bit depth (8, 16, 24, or 32), writing the
// RIFF/fmt headers with placeholder sizes to be patched by Finish.
func NewWriter(ws io.WriteSeeker, sampleRate, channels, bitDepth int) (*Writer, error) {
	if channels != 1 && channels != 2 {
		return nil, fmt.Errorf("wav: unsupported channel count %d", channels)
	}
	switch bitDepth {
	case 8, 16, 24, 32:
	default:
		return nil, fmt.Errorf("wav: unsupported bit depth %d", bitDepth)
	}

	w := &Writer{
		ws: ws, channels: channels, bitDepth: bitDepth,
		bytesPerSample: bitDepth / 8,
		maxInt:         float64(int64(1)<<(bitDepth-1) - 1),
	}

	if _, err := ws.Write([]byte("RIFF")); err != nil {
		return nil, err
	}
	if err := binary.Write(ws, binary.LittleEndian, int32(0)); err != nil {
		return nil, err
	}
	if _, err := ws.Write([]byte("WAVE")); err != nil {
		return nil, err
	}

	if _, err := ws.Write([]byte("fmt ")); err != nil {
		return nil, err
	}
	if err := binary.Write(ws, binary.LittleEndian, int32(16)); err != nil {
		return nil, err
	}
	blockAlign := w.channels * w.bytesPerSample
	format := struct {
		AudioFormat   uint16
		Channels      uint16
		SampleRate    uint32
		ByteRate      uint32
		BlockAlign    uint16
		BitsPerSample uint16
	}{
		AudioFormat: pcmFormat, Channels: uint16(w.channels), SampleRate: uint32(sampleRate),
		ByteRate: uint32(sampleRate * blockAlign), BlockAlign: uint16(blockAlign),
		BitsPerSample: uint16(w.bitDepth),
	}
	if err := binary.Write(ws, binary.LittleEndian, format); err != nil {
		return nil, err
	}

	if _, err := ws.Write([]byte("data")); err != nil {
		return nil, err
	}
	if err := binary.Write(ws, binary.LittleEndian, int32(0)); err != nil {
		return nil, err
	}

	return w, nil
}

// WriteFrame writes one interleaved frame per sample index in samples,
// where samples is organized [channel][sampleNum] and every value is a
// normalized float in [-1,1].
func (w *Writer) WriteFrame(samples [][]float64) error {
	if len(samples) != w.channels {
		return fmt.Errorf("wav: WriteFrame got %d channels, writer has %d", len(samples), w.channels)
	}
	n := len(samples[0])
	for i := 0; i < n; i++ {
		for c := 0; c < w.channels; c++ {
			if err := w.writeSample(samples[c][i]); err != nil {
				return err
			}
		}
	}
	return nil
}

func (w *Writer) writeSample(v float64) error {
	if v > 1 {
		v = 1
	} else if v < -1 {
		v = -1
	}

	switch w.bitDepth {
	case 8:
		// 8-bit PCM is unsigned, biased by maxInt (2^7-1 = 127), not by the
		// nominal midpoint 128.
		b := byte(math.Round(v*w.maxInt)) + byte(w.maxInt)
		_, err := w.ws.Write([]byte{b})
		return err
	case 16:
		return binary.Write(w.ws, binary.LittleEndian, int16(math.Round(v*w.maxInt)))
	case 24:
		i := int32(math.Round(v * w.maxInt))
		buf := []byte{byte(i), byte(i >> 8), byte(i >> 16)}
		_, err := w.ws.Write(buf)
		return err
	case 32:
		return binary.Write(w.ws, binary.LittleEndian, int32(math.Round(v*w.maxInt)))
	default:
		return fmt.Errorf("wav: unsupported bit depth %d", w.bitDepth)
	}
}

// Finish patches the RIFF and data chunk sizes now that the total sample
// count is known, and returns the final file length.
func (w *Writer) Finish() (int64, error) {
	wlen, err := w.ws.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, err
	}

	offset, err := w.ws.Seek(4, io.SeekStart)
	if offset != 4 || err != nil {
		return 0, err
	}
	if err := binary.Write(w.ws, binary.LittleEndian, int32(wlen-8)); err != nil {
		return 0, err
	}

	offset, err = w.ws.Seek(40, io.SeekStart)
	if offset != 40 || err != nil {
		return 0, err
	}
	if err := binary.Write(w.ws, binary.LittleEndian, int32(wlen-44)); err != nil {
		return 0, err
	}

	return wlen, nil
}
