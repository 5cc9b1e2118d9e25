package synthcorona

// Inst wraps a module graph with pitch tracking, stereo panning, and a
// stop/release lifecycle: while playing it loops (or plays once) at a rate
// derived from the assigned frequency; once stopped it swaps in a release
// subgraph so the sound fades out rather than cutting off abruptly.
type Inst struct {
	mdl     Module
	period  float64
	loop    bool
	sus     bool
	pan     Module
	rate    float64
	freq    float64
	stopped bool
	release Module
	last    Sample

	sampleRate float64
	relTime    float64 // release fade time, in samples
}

// NewInst constructs an Inst playing mdl. period is the pitch-to-rate
// reference length in mdl's own time units (one oscillator cycle); if
// period < 1, mdl.Length() is used. sus
// marks a sustain instrument (implies loop=false; on stop, the live model
// itself becomes the release subgraph rather than a synthesized fade).
// relTimeSamples is the release fade duration, in samples, for non-sustain
// instruments.
func NewInst(mdl Module, period float64, loop, sus bool, pan Module, sampleRate, relTimeSamples float64) *Inst {
	if sus {
		loop = false
	}
	if pan == nil {
		pan = NewVal(0)
	}
	if period < 1 {
		period = mdl.Length()
	}
	return &Inst{
		mdl: mdl, period: period, loop: loop, sus: sus, pan: pan,
		freq: 1, sampleRate: sampleRate, relTime: relTimeSamples,
	}
}

// SetFreq assigns the instrument's pitch in Hz, recomputing its internal
// playback rate (model time units per sample, freq*period/sampleRate) and
// propagating the pitch
// to the model in case it reads frequency directly (e.g. an FM operator).
func (m *Inst) SetFreq(hz float64) {
	m.freq = hz
	m.rate = m.freq * m.period / m.sampleRate
	m.mdl.SetFreq(hz)
}

// Freq returns the instrument's last-assigned pitch in Hz.
func (m *Inst) Freq() float64 { return m.freq }

// Unwrap returns the module this instrument wraps, letting a MODULE=/MDL=
// meta reference pull out the bare signal graph instead of the instrument
// shell around it.
func (m *Inst) Unwrap() Module { return m.mdl }

func (m *Inst) Step(delta float64, tick Tick) {
	switch tick.Kind {
	case TickAdjust:
		if m.stopped {
			m.release.Step(delta, tick)
		} else {
			m.mdl.Step(delta, tick)
		}
		return
	case TickStop:
		if m.sus {
			m.release = m.mdl
		} else if !m.mdl.Done() {
			m.release = NewMultiply(
				m.mdl.Clone(),
				NewConst(NewLinInterp(NewVal(1), NewVal(0), m.relTime), 1, 1, true),
				false,
			)
		} else {
			m.release = NewConst(
				NewLinInterp(NewStereoVal(m.last.L, m.last.R), NewVal(0), m.relTime), 1, 1, true,
			)
		}
		m.stopped = true
		return
	case TickRelease:
		if m.stopped {
			m.release.Step(0, tick)
		} else {
			m.mdl.Step(0, tick)
		}
		return
	}

	c := tick.Resolve(delta)
	m.pan.Step(c*m.rate, ConstTick(c))
	if m.stopped {
		m.release.Step(c*m.rate, ConstTick(c))
		return
	}
	m.mdl.Step(c*m.rate, ConstTick(c))
	if m.Done() {
		if m.loop {
			extra := m.GetExtra()
			m.Reset()
			m.Step(extra, AdjustTick())
		} else {
			m.Stop()
		}
	}
}

// Stop triggers the release lifecycle immediately.
func (m *Inst) Stop() { m.Step(0, StopTick()) }

func (m *Inst) StepTails(delta float64, tick Tick) { m.Step(delta, tick) }

func (m *Inst) Read(tails, stereo, signal bool) Sample {
	if stereo {
		if m.pan.Done() {
			reboundary(m.pan)
		}
		if m.stopped {
			m.last = Pan(m.release.Read(tails, stereo, signal), m.pan.Read(false, false, false).L)
			return m.last
		}
		if m.loop || !m.Done() {
			m.last = Pan(m.mdl.Read(tails, stereo, signal), m.pan.Read(false, false, false).L)
			return m.last
		}
		return Sample{}
	}
	if m.stopped {
		v := m.release.Read(tails, stereo, signal)
		m.last = v
		return v
	}
	if m.loop || !m.Done() {
		v := m.mdl.Read(tails, stereo, signal)
		m.last = v
		return v
	}
	return Sample{}
}

func (m *Inst) Reset() { m.mdl.Reset(); m.pan.Reset() }

func (m *Inst) Clear() {
	m.release = nil
	m.stopped = false
	m.mdl.Clear()
	m.pan.Clear()
}

func (m *Inst) Done() bool {
	if m.stopped {
		return m.release.Done()
	}
	return m.mdl.Done()
}

func (m *Inst) GetExtra() float64 {
	if m.stopped {
		return m.release.GetExtra()
	}
	return m.mdl.GetExtra()
}

func (m *Inst) Length() float64 {
	if m.stopped {
		return m.release.Length()
	}
	return m.mdl.Length()
}

func (m *Inst) Clone() Module {
	cp := &Inst{
		mdl: m.mdl.Clone(), period: m.period, loop: m.loop, sus: m.sus,
		pan: m.pan.Clone(), stopped: m.stopped, rate: m.rate, freq: m.freq,
		last: m.last, sampleRate: m.sampleRate, relTime: m.relTime,
	}
	if m.release != nil {
		cp.release = m.release.Clone()
	}
	return cp
}
