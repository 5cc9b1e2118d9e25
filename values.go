package synthcorona

import (
	"math"

	clone "github.com/huandu/go-clone/generic"
)

// AsDecimal converts a signal-domain value (nominally [-9,+9]) to a
// decimal gain/position in [-1,+1].
func AsDecimal(val float64) float64 { return val / MaxVal }

// Limit clamps val to just inside +/-MaxVal so that downstream decimal
// conversions never reach exactly +/-1.
func Limit(val float64) float64 {
	switch {
	case val >= MaxVal:
		return MaxVal * 0.9999
	case val <= -MaxVal:
		return -MaxVal * 0.9999
	default:
		return val
	}
}

// CalcFreq converts a cents-from-A4 displacement into a frequency in Hz.
func CalcFreq(cents float64) float64 {
	return 440.0 * math.Pow(math.Pow(2, 1.0/1200.0), cents)
}

// Pan applies linear cross-bleed panning to a stereo sample. p ranges over
// [-9,+9]; magnitudes beyond 9 are clipped to full pan in that direction.
func Pan(s Sample, p float64) Sample {
	p /= 9
	if math.Abs(p) > 1 {
		if p < 0 {
			p = -1
		} else {
			p = 1
		}
	}
	switch {
	case p == 0:
		return s
	case p < 0:
		lpan := -p
		rtol := s.R * lpan
		return Sample{s.L + rtol, s.R - rtol}
	default:
		ltor := s.L * p
		return Sample{s.L - ltor, s.R + ltor}
	}
}

// tones maps note names as written in SC source ("C4", "a2", "D#6", "F 3")
// to their pitch in cents, relative to C0 = 0.
var tones = buildTones()

// freqs is a pre-baked table of Hz values for every cent in the 10 octaves
// the tone table spans, indexed by cents from C0 (the same scale as tones),
// so index i holds CalcFreq(i - tones["A4"]).
var freqs = buildFreqs()

func buildTones() map[string]float64 {
	slts := []string{"C", "d", "D", "e", "E", "F", "g", "G", "a", "A", "b", "B"}
	dlts := []string{
		"C ", "C#", "Db", "D ", "D#", "Eb", "E ", "F ", "F#", "Gb",
		"G ", "G#", "Ab", "A ", "A#", "Bb", "B ",
	}
	dvals := []int{0, 1, 1, 2, 3, 4, 4, 5, 6, 6, 7, 8, 9, 9, 10, 11, 11}

	ky := make(map[string]float64, 10*(len(slts)+len(dlts)))
	for oct := 0; oct < 10; oct++ {
		for step, nm := range slts {
			ky[nm+itoa(oct)] = float64(12*oct+step) * 100
		}
		for i, nm := range dlts {
			ky[nm+itoa(oct)] = float64(12*oct+dvals[i]) * 100
		}
	}
	return ky
}

func buildFreqs() []float64 {
	a4 := tones["A4"]
	out := make([]float64, 12000)
	for i := range out {
		out[i] = CalcFreq(float64(i) - a4)
	}
	return out
}

// itoa renders a single-digit octave (0-9), the only range the 10-octave
// tone table spans.
func itoa(n int) string {
	return string(rune('0' + n))
}

// Val is a constant scalar leaf. It holds a fixed unit length of 1 and a
// cursor that free-runs forward under any tick, so callers see the same
// held value whether or not the leaf has completed its unit.
type Val struct {
	val float64
	cur float64
}

// NewVal constructs a constant scalar leaf holding val.
func NewVal(val float64) *Val { return &Val{val: val} }

func (v *Val) Step(delta float64, tick Tick)      { v.cur += delta }
func (v *Val) StepTails(delta float64, tick Tick) { v.Step(delta, tick) }
func (v *Val) Read(tails, stereo, signal bool) Sample {
	return Sample{v.val, v.val}
}
func (v *Val) Reset() { v.cur = 0 }
func (v *Val) Clear() { v.cur = 0 }
func (v *Val) Done() bool { return v.cur+epsilon >= 1 }
func (v *Val) GetExtra() float64 {
	if v.Done() {
		return v.cur - 1
	}
	return 0
}
func (v *Val) Length() float64    { return 1 }
func (v *Val) SetFreq(hz float64) {}
func (v *Val) Clone() Module      { return clone.Clone(v) }
func (v *Val) NoTails() bool      { return true }

// StereoVal is a constant stereo pair leaf, used for panned constants and
// as the fade target of an instrument's last sample on release. Like Val,
// it carries a unit length of 1.
type StereoVal struct {
	l, r float64
	cur  float64
}

// NewStereoVal constructs a constant stereo leaf.
func NewStereoVal(l, r float64) *StereoVal { return &StereoVal{l: l, r: r} }

func (v *StereoVal) Step(delta float64, tick Tick)      { v.cur += delta }
func (v *StereoVal) StepTails(delta float64, tick Tick) { v.Step(delta, tick) }
func (v *StereoVal) Read(tails, stereo, signal bool) Sample {
	return Sample{v.l, v.r}
}
func (v *StereoVal) Reset() { v.cur = 0 }
func (v *StereoVal) Clear() { v.cur = 0 }
func (v *StereoVal) Done() bool { return v.cur+epsilon >= 1 }
func (v *StereoVal) GetExtra() float64 {
	if v.Done() {
		return v.cur - 1
	}
	return 0
}
func (v *StereoVal) Length() float64    { return 1 }
func (v *StereoVal) SetFreq(hz float64) {}
func (v *StereoVal) Clone() Module      { return clone.Clone(v) }
func (v *StereoVal) NoTails() bool      { return true }
