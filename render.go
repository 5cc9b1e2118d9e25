package synthcorona

import (
	"math"
	"time"
)

// ProgressKind distinguishes the one-time pre-render announcement from the
// recurring percent-complete ticks.
type ProgressKind uint8

const (
	// ProgressStarted fires exactly once, before the render loop begins,
	// carrying the song's duration and sample length.
	ProgressStarted ProgressKind = iota
	// ProgressTick fires roughly every progressChunk samples while
	// rendering.
	ProgressTick
)

// ProgressEvent is delivered to a Renderer's optional progress callback.
type ProgressEvent struct {
	Kind           ProgressKind
	Percent        float64 // 0-100, meaningful for ProgressTick
	SamplesPerSec  float64 // meaningful for ProgressTick
	SongDuration   float64 // seconds, meaningful for ProgressStarted
	SongSampleLength int64 // meaningful for ProgressStarted
}

// progressChunk is how often, in rendered samples, a ProgressTick fires -
// matching the original tool's ~512-sample reporting cadence.
const progressChunk = 512

// decayMs is the length of the linear fade-to-zero tail appended after the
// song reports Done, so the render doesn't end on an audible click.
const decayMs = 1.0

// Sink is the narrow destination a Renderer writes normalized audio into.
// Samples are per-channel, in the decimal [-1,1] domain, post-limit.
type Sink interface {
	WriteFrame(samples [][]float64) error
	Finish() (int64, error)
}

// Renderer drives a parsed Song to completion against a Sink, one sample at
// a time, per spec.md's renderer algorithm.
type Renderer struct {
	song       *Song
	stereo     bool
	sampleRate int
	normalize  bool
}

// NewRenderer constructs a Renderer for song, producing stereo or mono
// output at sampleRate, optionally normalizing the whole render to peak
// amplitude before writing.
func NewRenderer(song *Song, stereo bool, sampleRate int, normalize bool) *Renderer {
	return &Renderer{song: song, stereo: stereo, sampleRate: sampleRate, normalize: normalize}
}

func (r *Renderer) channels() int {
	if r.stereo {
		return 2
	}
	return 1
}

// Render drives the song to completion, writing every produced sample to
// sink. progress, if non-nil, is invoked once with ProgressStarted before
// the loop begins and then roughly every progressChunk samples with
// ProgressTick.
func (r *Renderer) Render(sink Sink, progress func(ProgressEvent)) error {
	if progress != nil {
		totalSamples := int64(r.song.Length())
		progress(ProgressEvent{
			Kind:             ProgressStarted,
			SongDuration:     float64(totalSamples) / float64(r.sampleRate),
			SongSampleLength: totalSamples,
		})
	}

	if r.normalize {
		return r.renderNormalized(sink, progress)
	}
	return r.renderStreaming(sink, progress)
}

func (r *Renderer) renderStreaming(sink Sink, progress func(ProgressEvent)) error {
	channels := r.channels()
	frame := make([][]float64, channels)
	for c := range frame {
		frame[c] = make([]float64, 1)
	}

	var lastL, lastR float64
	var n int64
	start := time.Now()

	for !r.song.Done() {
		s := r.song.Read(r.stereo, true)
		l := AsDecimal(Limit(s.L))
		rr := l
		if r.stereo {
			rr = AsDecimal(Limit(s.R))
		}

		frame[0][0] = l
		if channels == 2 {
			frame[1][0] = rr
		}
		if err := sink.WriteFrame(frame); err != nil {
			return err
		}
		lastL, lastR = l, rr

		r.song.Step(1, DeltaTick())
		n++
		if progress != nil && n%progressChunk == 0 {
			reportTick(progress, n, int64(r.song.Length()), start)
		}
	}

	return writeDecayTail(sink, channels, lastL, lastR, r.sampleRate)
}

func (r *Renderer) renderNormalized(sink Sink, progress func(ProgressEvent)) error {
	channels := r.channels()
	var bufL, bufR []float64
	var peak float64
	var n int64
	start := time.Now()

	for !r.song.Done() {
		s := r.song.Read(r.stereo, true)
		bufL = append(bufL, s.L)
		if a := math.Abs(s.L); a > peak {
			peak = a
		}
		if channels == 2 {
			bufR = append(bufR, s.R)
			if a := math.Abs(s.R); a > peak {
				peak = a
			}
		}

		r.song.Step(1, DeltaTick())
		n++
		if progress != nil && n%progressChunk == 0 {
			reportTick(progress, n, int64(r.song.Length()), start)
		}
	}

	scale := 0.0
	if peak > 0 {
		scale = (MaxVal * 0.9999) / peak
	}

	frame := make([][]float64, channels)
	for c := range frame {
		frame[c] = make([]float64, 1)
	}

	var lastL, lastR float64
	for i := range bufL {
		l := AsDecimal(Limit(bufL[i] * scale))
		frame[0][0] = l
		lastL = l
		if channels == 2 {
			rr := AsDecimal(Limit(bufR[i] * scale))
			frame[1][0] = rr
			lastR = rr
		} else {
			lastR = l
		}
		if err := sink.WriteFrame(frame); err != nil {
			return err
		}
	}

	return writeDecayTail(sink, channels, lastL, lastR, r.sampleRate)
}

// writeDecayTail appends a short linear fade from the last emitted sample to
// zero, so the render doesn't end on a discontinuity.
func writeDecayTail(sink Sink, channels int, lastL, lastR float64, sampleRate int) error {
	decaySamples := int(decayMs * float64(sampleRate) / 1000)
	if decaySamples < 1 {
		return nil
	}

	frame := make([][]float64, channels)
	for c := range frame {
		frame[c] = make([]float64, 1)
	}

	for i := 0; i < decaySamples; i++ {
		frac := 1 - float64(i)/float64(decaySamples)
		frame[0][0] = lastL * frac
		if channels == 2 {
			frame[1][0] = lastR * frac
		}
		if err := sink.WriteFrame(frame); err != nil {
			return err
		}
	}
	return nil
}

func reportTick(progress func(ProgressEvent), n, total int64, start time.Time) {
	var rate float64
	if elapsed := time.Since(start).Seconds(); elapsed > 0 {
		rate = float64(n) / elapsed
	}
	var pct float64
	if total > 0 {
		pct = math.Min(100, 100*float64(n)/float64(total))
	}
	progress(ProgressEvent{Kind: ProgressTick, Percent: pct, SamplesPerSec: rate})
}
