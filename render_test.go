package synthcorona

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingSink collects every frame written to it, one sample per channel
// per call, mirroring how wav.Writer is driven by a Renderer.
type recordingSink struct {
	channels int
	frames   [][]float64 // frames[i][c]
	finished bool
}

func (s *recordingSink) WriteFrame(samples [][]float64) error {
	if len(samples) != s.channels {
		return fmt.Errorf("recordingSink: got %d channel(s), want %d", len(samples), s.channels)
	}
	n := len(samples[0])
	for i := 0; i < n; i++ {
		frame := make([]float64, s.channels)
		for c := 0; c < s.channels; c++ {
			frame[c] = samples[c][i]
		}
		s.frames = append(s.frames, frame)
	}
	return nil
}

func (s *recordingSink) Finish() (int64, error) {
	s.finished = true
	return int64(len(s.frames)), nil
}

// twoSampleSong builds a tiny Song whose single step plays +1 then -1 (in
// signal domain) before finishing, so a Renderer over it produces a known,
// short sample sequence.
func twoSampleSong() *Song {
	step := NewSeqBlock(NewPattern([]Module{NewVal(1), NewVal(-1)}), NewVal(0))
	return NewSong([]SongStep{step})
}

func TestRenderStreamingMonoProducesExpectedSamples(t *testing.T) {
	sink := &recordingSink{channels: 1}
	r := NewRenderer(twoSampleSong(), false, 8000, false)

	require.NoError(t, r.Render(sink, nil))

	require.GreaterOrEqual(t, len(sink.frames), 2)
	assert.InDelta(t, AsDecimal(Limit(1)), sink.frames[0][0], 1e-9)
	assert.InDelta(t, AsDecimal(Limit(-1)), sink.frames[1][0], 1e-9)
}

func TestRenderAppendsDecayTail(t *testing.T) {
	sink := &recordingSink{channels: 1}
	r := NewRenderer(twoSampleSong(), false, 8000, false)
	require.NoError(t, r.Render(sink, nil))

	// Two song samples, then one sample while the finished step sits in the
	// Song's tails list before it is dropped, then the decay tail.
	decaySamples := int(decayMs * 8000 / 1000)
	require.Equal(t, 3+decaySamples, len(sink.frames))

	last := sink.frames[len(sink.frames)-1]
	assert.InDelta(t, 0, last[0], 1e-6, "the decay tail must fade all the way to (near) zero")
}

func TestRenderStereoWritesBothChannels(t *testing.T) {
	sink := &recordingSink{channels: 2}
	r := NewRenderer(twoSampleSong(), true, 8000, false)
	require.NoError(t, r.Render(sink, nil))

	assert.Equal(t, sink.frames[0][0], sink.frames[0][1], "centered pan keeps L and R equal")
}

func TestRenderNormalizeRescalesToPeak(t *testing.T) {
	sinkA := &recordingSink{channels: 1}
	rA := NewRenderer(twoSampleSong(), false, 8000, true)
	require.NoError(t, rA.Render(sinkA, nil))

	// The loudest sample in twoSampleSong is already at the signal-domain
	// peak (1 out of a nominal 9), so normalizing rescales it up to just
	// under full scale rather than leaving it at 1/9.
	assert.Greater(t, abs64(sinkA.frames[0][0]), AsDecimal(Limit(1)))
	assert.InDelta(t, 0.9999, abs64(sinkA.frames[0][0]), 1e-6)
}

func TestRenderProgressReportsStartedFirst(t *testing.T) {
	sink := &recordingSink{channels: 1}
	r := NewRenderer(twoSampleSong(), false, 8000, false)

	var events []ProgressEvent
	require.NoError(t, r.Render(sink, func(ev ProgressEvent) {
		events = append(events, ev)
	}))

	require.NotEmpty(t, events)
	assert.Equal(t, ProgressStarted, events[0].Kind)
	assert.Greater(t, events[0].SongSampleLength, int64(0))
}

func abs64(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
