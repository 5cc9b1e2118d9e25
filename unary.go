package synthcorona

// Invert negates its child's output sample-by-sample and otherwise
// delegates every operation straight through.
type Invert struct {
	mdl Module
}

// NewInvert constructs an Invert wrapping mdl.
func NewInvert(mdl Module) *Invert { return &Invert{mdl: mdl} }

func (m *Invert) Step(delta float64, tick Tick)      { m.mdl.Step(delta, tick) }
func (m *Invert) StepTails(delta float64, tick Tick) { m.mdl.StepTails(delta, tick) }
func (m *Invert) Read(tails, stereo, signal bool) Sample {
	v := m.mdl.Read(tails, stereo, signal)
	return Sample{-v.L, -v.R}
}
func (m *Invert) Reset()            { m.mdl.Reset() }
func (m *Invert) Clear()            { m.mdl.Clear() }
func (m *Invert) Done() bool        { return m.mdl.Done() }
func (m *Invert) GetExtra() float64 { return m.mdl.GetExtra() }
func (m *Invert) Length() float64   { return m.mdl.Length() }
func (m *Invert) SetFreq(hz float64) { m.mdl.SetFreq(hz) }
func (m *Invert) Clone() Module     { return &Invert{mdl: m.mdl.Clone()} }

// Repeat replays its child module up to a count read from a second
// module, b, at construction boundaries; a negative reading from b means
// repeat forever.
type Repeat struct {
	a      Module
	b      Module
	resets float64
}

// NewRepeat constructs a Repeat of a, bounded by the count read from b.
func NewRepeat(a, b Module) *Repeat { return &Repeat{a: a, b: b, resets: 1} }

func (m *Repeat) reps() float64 { return m.b.Read(false, false, false).L }

func (m *Repeat) Step(delta float64, tick Tick) {
	m.a.Step(delta, tick)
	reps := m.reps()
	if m.a.Done() && (reps < 0 || m.resets < reps) {
		extra := m.a.GetExtra()
		m.a.Reset()
		m.a.Step(extra, AdjustTick())
		m.resets++
	}
}

func (m *Repeat) StepTails(delta float64, tick Tick) { m.a.StepTails(delta, tick) }
func (m *Repeat) Read(tails, stereo, signal bool) Sample {
	return m.a.Read(tails, stereo, signal)
}
func (m *Repeat) Reset() { m.a.Reset(); m.resets = 1 }
func (m *Repeat) Clear() { m.a.Clear(); m.resets = 1 }
func (m *Repeat) Done() bool        { return m.a.Done() }
func (m *Repeat) GetExtra() float64 { return m.a.GetExtra() }
func (m *Repeat) Length() float64 {
	if m.reps() < 0 {
		return 9999999999999
	}
	return m.a.Length() * m.reps()
}
func (m *Repeat) SetFreq(hz float64) { m.a.SetFreq(hz); m.b.SetFreq(hz) }
func (m *Repeat) Clone() Module {
	return &Repeat{a: m.a.Clone(), b: m.b.Clone(), resets: m.resets}
}

// binaryOperand is implemented by nodes that expose two named children,
// the shape Cross requires its wrapped operator to have.
type binaryOperand interface {
	Operands() (a, b Module)
}

// Operands implements binaryOperand for binOp-based nodes.
func (o *binOp) Operands() (a, b Module) { return o.a, o.b }

// Cross re-steps a binary operator's B child on a schedule derived from A's
// length, so B advances by one unit of its own time for every full cycle of
// A - all of A is played for each step of B, and the whole Cross lasts
// length(A)*length(B) - instead of letting the two free-run independently.
type Cross struct {
	op    Module
	a, b  Module
	bstep float64
	cur   float64
	len   float64
}

// NewCross wraps a binary operator module (one exposing Operands) so its B
// child is re-scaled to track A's period.
func NewCross(op Module) *Cross {
	a, b := op.(binaryOperand).Operands()
	return &Cross{op: op, a: a, b: b, bstep: -1}
}

func (m *Cross) ensureRate() {
	if m.bstep < 0 {
		m.bstep = 1 / m.a.Length()
		m.len = m.a.Length() * m.b.Length()
	}
}

func (m *Cross) Step(delta float64, tick Tick) {
	m.ensureRate()
	m.a.Step(delta, tick)
	m.b.Step(delta*m.bstep, tick)
	m.cur += delta
	if m.a.Done() && !m.Done() {
		extra := m.a.GetExtra()
		m.a.Reset()
		m.a.Step(extra, AdjustTick())
		m.bstep = 1 / m.a.Length()
		m.len = m.a.Length() * m.b.Length()
	}
}

func (m *Cross) StepTails(delta float64, tick Tick) {
	m.a.StepTails(delta, tick)
	m.b.StepTails(delta*m.bstep, tick)
}
func (m *Cross) Read(tails, stereo, signal bool) Sample {
	return m.op.Read(tails, stereo, signal)
}
func (m *Cross) Reset() {
	m.op.Reset()
	m.cur = 0
	m.bstep = 1 / m.a.Length()
	m.len = m.a.Length() * m.b.Length()
}
func (m *Cross) Clear() {
	m.op.Clear()
	m.cur = 0
	m.bstep = 1 / m.a.Length()
	m.len = m.a.Length() * m.b.Length()
}
func (m *Cross) Done() bool        { return m.cur+epsilon >= m.len }
func (m *Cross) GetExtra() float64 {
	if m.Done() {
		return m.cur - m.len
	}
	return 0
}
func (m *Cross) Length() float64    { return m.a.Length() * m.b.Length() }
func (m *Cross) SetFreq(hz float64) { m.op.SetFreq(hz) }
func (m *Cross) Clone() Module {
	opc := m.op.Clone()
	a, b := opc.(binaryOperand).Operands()
	return &Cross{op: opc, a: a, b: b, bstep: m.bstep, cur: m.cur, len: m.len}
}
