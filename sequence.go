package synthcorona

import "math"

// Timing carries the song-level timing constants a SeqLine and Inst need
// to translate pitch/time between song steps and samples.
type Timing struct {
	SampleRate    float64
	FramesPerStep float64
	FrameSlice    float64
	RelTime       float64 // instrument release fade, in samples
}

// CellKind distinguishes what a sequence-line grid cell holds.
type CellKind uint8

const (
	CellSilence CellKind = iota // " " - nothing sounding this step
	CellTie                     // "-" - continue the previous cell's instrument
	CellInst                    // a named instrument reference
)

// Cell is one grid position in a SeqLine's pattern row.
type Cell struct {
	Kind CellKind
	Inst *Inst
}

// SeqLine is one monophonic row of a Sequence: a grid of instrument cells
// advanced one song-step at a time, with its own pitch and pan automation
// running continuously underneath.
type SeqLine struct {
	t       Timing
	pitch   Module
	pan     Module
	pat     []Cell
	cur     float64
	curInx  int
	curInst *Inst
	seq     *Sequence
}

// NewSeqLine constructs a SeqLine over pat, automated by pitch and pan (pan
// may be nil for center).
func NewSeqLine(t Timing, pitch Module, pat []Cell, pan Module) *SeqLine {
	if pan == nil {
		pan = NewVal(0)
	}
	l := &SeqLine{t: t, pitch: pitch, pan: pan, pat: pat}
	if len(pat) > 0 && pat[0].Kind != CellTie {
		l.curInst = pat[0].Inst
	}
	return l
}

func (l *SeqLine) Step(delta float64, tick Tick) {
	l.cur += delta
	if tick.Kind == TickAdjust {
		return
	}
	l.pitch.Step(l.t.FrameSlice, ConstTick(1))
	l.pan.Step(l.t.FrameSlice, ConstTick(1))
	if l.curInst != nil {
		l.curInst.Step(delta, tick)
		nextIsTie := l.curInx < len(l.pat)-1 && l.pat[l.curInx+1].Kind == CellTie
		if l.cur >= l.t.FramesPerStep-l.t.RelTime && !nextIsTie {
			l.curInst.Stop()
			l.seq.tails = append(l.seq.tails, l.curInst.Clone())
			l.curInst = nil
		} else if l.curInst != nil && l.curInst.stopped {
			l.seq.tails = append(l.seq.tails, l.curInst.Clone())
			l.curInst = nil
		}
	}
	if l.cur >= l.t.FramesPerStep {
		l.cur = math.Mod(l.cur, l.t.FramesPerStep)
		l.curInx++
		if !l.Done() && l.pat[l.curInx].Kind != CellTie {
			l.curInst = l.pat[l.curInx].Inst
		}
	}
}

func (l *SeqLine) Read(tails, stereo, signal bool) Sample {
	if stereo {
		if l.pitch.Done() {
			reboundary(l.pitch)
		}
		if l.pan.Done() {
			reboundary(l.pan)
		}
		if l.curInst != nil {
			freq := freqs[int(l.pitch.Read(false, false, false).L)]
			if l.curInst.Freq() != freq {
				l.curInst.SetFreq(freq)
			}
			return Pan(l.curInst.Read(false, true, true), l.pan.Read(false, false, false).L)
		}
		return Sample{}
	}
	if l.pitch.Done() {
		reboundary(l.pitch)
	}
	if l.curInst != nil {
		freq := freqs[int(l.pitch.Read(false, false, false).L)]
		if l.curInst.Freq() != freq {
			l.curInst.SetFreq(freq)
		}
		return l.curInst.Read(false, false, false)
	}
	return Sample{}
}

func (l *SeqLine) Reset() {
	l.curInx = 0
	l.cur = 0
	for _, c := range l.pat {
		if c.Inst != nil {
			c.Inst.Clear()
		}
	}
	if len(l.pat) > 0 && l.pat[0].Kind != CellTie {
		l.curInst = l.pat[0].Inst
	}
}

func (l *SeqLine) Clear() {
	l.curInx = 0
	l.cur = 0
	l.pitch.Clear()
	l.pan.Clear()
	for _, c := range l.pat {
		if c.Inst != nil {
			c.Inst.Clear()
		}
	}
	if len(l.pat) > 0 && l.pat[0].Kind != CellTie {
		l.curInst = l.pat[0].Inst
	}
}

func (l *SeqLine) Done() bool       { return l.curInx >= len(l.pat) }
func (l *SeqLine) GetExtra() float64 {
	if l.Done() {
		return l.cur
	}
	return 0
}
func (l *SeqLine) Length() float64 { return float64(len(l.pat)) * l.t.FramesPerStep }

func (l *SeqLine) Clone() *SeqLine {
	pat := make([]Cell, len(l.pat))
	curInx := -1
	for i, c := range l.pat {
		pat[i] = c
		if c.Inst != nil {
			pat[i].Inst = c.Inst.Clone().(*Inst)
		}
		if c.Inst == l.curInst && l.curInst != nil {
			curInx = i
		}
	}
	cl := &SeqLine{
		t: l.t, pitch: l.pitch.Clone(), pan: l.pan.Clone(), pat: pat,
		cur: l.cur, curInx: l.curInx,
	}
	if curInx >= 0 {
		cl.curInst = pat[curInx].Inst
	}
	return cl
}

// Sequence is a parallel set of SeqLines sharing a pan automation and a
// pool of released instrument tails still ringing out after their owning
// line moved on.
type Sequence struct {
	lines   []*SeqLine
	pan     Module
	stopped bool
	len     float64
	tails   []Module
}

// NewSequence constructs a Sequence over lines, attaching each line back to
// this Sequence so it can register release tails.
func NewSequence(lines []*SeqLine, pan Module) *Sequence {
	if pan == nil {
		pan = NewVal(0)
	}
	s := &Sequence{lines: lines, pan: pan}
	for _, l := range lines {
		l.seq = s
		if l.Length() > s.len {
			s.len = l.Length()
		}
	}
	return s
}

func (s *Sequence) Step(delta float64, tick Tick) {
	if tick.Kind == TickStop {
		s.stopped = true
		return
	}
	if s.stopped {
		return
	}
	// Const is always 1 here so a Sequence can be sped up elsewhere in the
	// graph without retuning the instruments inside it - but that means it
	// must be stepped once per sample no matter what.
	s.pan.Step(delta, ConstTick(1))
	for _, ln := range s.lines {
		if !ln.Done() {
			ln.Step(delta, ConstTick(1))
		}
	}
}

func (s *Sequence) StepTails(delta float64, tick Tick) {
	kept := s.tails[:0]
	for _, t := range s.tails {
		t.Step(delta, ConstTick(1))
		if !t.Done() {
			kept = append(kept, t)
		}
	}
	s.tails = kept
}

func (s *Sequence) Read(tails, stereo, signal bool) Sample {
	if tails {
		var sum Sample
		for _, t := range s.tails {
			sum = sum.Add(t.Read(false, stereo, signal))
		}
		return Pan(sum, s.pan.Read(false, false, false).L)
	}
	if stereo {
		if s.pan.Done() {
			reboundary(s.pan)
		}
		var sum Sample
		if !s.stopped {
			for _, ln := range s.lines {
				if !ln.Done() {
					sum = sum.Add(ln.Read(tails, stereo, signal))
				}
			}
		}
		return Pan(sum, s.pan.Read(false, false, false).L)
	}
	var sum Sample
	if !s.stopped {
		for _, ln := range s.lines {
			if !ln.Done() {
				sum = sum.Add(ln.Read(tails, stereo, signal))
			}
		}
	}
	return sum
}

func (s *Sequence) Reset() {
	s.pan.Reset()
	for _, ln := range s.lines {
		ln.Reset()
	}
	s.stopped = false
}

func (s *Sequence) Clear() {
	s.pan.Clear()
	for _, ln := range s.lines {
		ln.Clear()
	}
	s.stopped = false
}

func (s *Sequence) Done() bool {
	if !s.stopped {
		for _, ln := range s.lines {
			if !ln.Done() {
				return false
			}
		}
		return true
	}
	return len(s.tails) == 0
}

func (s *Sequence) GetExtra() float64 { return s.lines[0].GetExtra() }

// SetFreq is a no-op: a Sequence's lines each drive their own instruments'
// pitch from their pitch automation, not from an externally imposed Hz.
func (s *Sequence) SetFreq(hz float64) {}

// Length returns the nominal step length while playing, or - once stopped
// - the longest remaining tail's own length, so the renderer knows how
// much longer to keep driving step_tails after the last line finished.
func (s *Sequence) Length() float64 {
	if !s.stopped {
		return s.len
	}
	var max float64
	for _, t := range s.tails {
		if l := t.Length(); l > max {
			max = l
		}
	}
	return max
}

func (s *Sequence) Clone() Module {
	lines := make([]*SeqLine, len(s.lines))
	for i, l := range s.lines {
		lines[i] = l.Clone()
	}
	return NewSequence(lines, s.pan.Clone())
}

// SeqBlock wraps a plain module as a song step, panned as a whole, for
// song lines that reference a generic module expression instead of a
// named Sequence.
type SeqBlock struct {
	module Module
	pan    Module
}

// NewSeqBlock constructs a SeqBlock wrapping module, panned by pan (nil
// for center).
func NewSeqBlock(module, pan Module) *SeqBlock {
	if pan == nil {
		pan = NewVal(0)
	}
	return &SeqBlock{module: module, pan: pan}
}

func (b *SeqBlock) Step(delta float64, tick Tick) {
	b.pan.Step(delta, tick)
	b.module.Step(delta, tick)
}
func (b *SeqBlock) StepTails(delta float64, tick Tick) { b.module.StepTails(delta, tick) }
func (b *SeqBlock) Read(tails, stereo, signal bool) Sample {
	if stereo {
		if b.pan.Done() {
			reboundary(b.pan)
		}
		return Pan(b.module.Read(tails, stereo, signal), b.pan.Read(false, false, false).L)
	}
	return b.module.Read(tails, stereo, signal)
}
func (b *SeqBlock) Reset()            { b.pan.Reset(); b.module.Reset() }
func (b *SeqBlock) Clear()            { b.pan.Clear(); b.module.Clear() }
func (b *SeqBlock) Done() bool        { return b.module.Done() }
func (b *SeqBlock) GetExtra() float64 { return b.module.GetExtra() }
func (b *SeqBlock) Length() float64   { return b.module.Length() }
func (b *SeqBlock) SetFreq(hz float64) { b.module.SetFreq(hz) }
func (b *SeqBlock) Clone() Module {
	return &SeqBlock{module: b.module.Clone(), pan: b.pan.Clone()}
}
