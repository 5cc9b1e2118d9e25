package synthcorona

// LinInterp cross-fades linearly from A to B over width time units; it
// never reports tails of its own (no_tails in the original source) since
// it is a pure blend, not something with accumulated decay.
type LinInterp struct {
	a, b  Module
	width float64
	cur   float64
}

// NewLinInterp constructs a linear interpolation from a to b over width
// time units (default 1 when width <= 0).
func NewLinInterp(a, b Module, width float64) *LinInterp {
	if width <= 0 {
		width = 1
	}
	return &LinInterp{a: a, b: b, width: width}
}

func (m *LinInterp) Step(delta float64, tick Tick) {
	m.cur += delta
	m.a.Step(delta, tick)
	if m.a.Done() && !m.Done() {
		reboundary(m.a)
	}
	m.b.Step(delta, tick)
	if m.b.Done() && !m.Done() {
		reboundary(m.b)
	}
}

func (m *LinInterp) Read(tails, stereo, signal bool) Sample {
	pct := m.cur / m.width
	va := m.a.Read(tails, stereo, signal)
	vb := m.b.Read(tails, stereo, signal)
	return Sample{
		va.L*(1-pct) + vb.L*pct,
		va.R*(1-pct) + vb.R*pct,
	}
}

func (m *LinInterp) StepTails(delta float64, tick Tick) {
	m.a.StepTails(delta, tick)
	m.b.StepTails(delta, tick)
}
func (m *LinInterp) Reset() { m.cur = 0; m.a.Reset(); m.b.Reset() }
func (m *LinInterp) Clear() { m.cur = 0; m.a.Clear(); m.b.Clear() }
func (m *LinInterp) Done() bool { return m.cur+epsilon >= m.width }
func (m *LinInterp) GetExtra() float64 {
	if m.Done() {
		return m.cur - m.width
	}
	return 0
}
func (m *LinInterp) Length() float64    { return m.width }
func (m *LinInterp) SetFreq(hz float64) { m.a.SetFreq(hz); m.b.SetFreq(hz) }
func (m *LinInterp) Clone() Module {
	return &LinInterp{a: m.a.Clone(), b: m.b.Clone(), width: m.width, cur: m.cur}
}
func (m *LinInterp) NoTails() bool { return true }

// Speed scales a child's time axis by a rate read from another module,
// rate. aLead selects whether the scaled child or the rate module governs
// Done/Length.
type Speed struct {
	mdl   Module
	rate  Module
	aLead bool
}

// NewSpeed constructs a Speed wrapping mdl, scaled by rate.
func NewSpeed(mdl, rate Module, aLead bool) *Speed {
	return &Speed{mdl: mdl, rate: rate, aLead: aLead}
}

func (m *Speed) rateVal() float64 { return m.rate.Read(false, false, false).L }

func (m *Speed) Step(delta float64, tick Tick) {
	r := m.rateVal()
	switch tick.Kind {
	case TickStop:
		m.mdl.Step(delta*r, tick)
	case TickAdjust:
		m.mdl.Step(delta, tick)
	default:
		c := tick.Resolve(delta)
		m.mdl.Step(delta*r, ConstTick(c*r))
	}
	m.rate.Step(delta, tick)
	if m.aLead {
		if m.rate.Done() {
			reboundary(m.rate)
		}
	} else {
		if m.mdl.Done() {
			reboundary(m.mdl)
		}
	}
}

func (m *Speed) Read(tails, stereo, signal bool) Sample {
	return m.mdl.Read(tails, stereo, signal)
}

func (m *Speed) StepTails(delta float64, tick Tick) {
	r := m.rateVal()
	c := tick.Resolve(delta)
	m.mdl.StepTails(delta*r, ConstTick(c*r))
}
func (m *Speed) Reset() { m.mdl.Reset(); m.rate.Reset() }
func (m *Speed) Clear() { m.mdl.Clear(); m.rate.Clear() }
func (m *Speed) Done() bool {
	if m.aLead {
		return m.mdl.Done()
	}
	return m.rate.Done()
}
func (m *Speed) GetExtra() float64 {
	if m.aLead {
		return m.mdl.GetExtra()
	}
	return m.rate.GetExtra()
}
func (m *Speed) Length() float64 {
	if m.aLead {
		return m.mdl.Length() / m.rateVal()
	}
	return m.rate.Length()
}
func (m *Speed) SetFreq(hz float64) { m.mdl.SetFreq(hz); m.rate.SetFreq(hz) }
func (m *Speed) Clone() Module {
	return &Speed{mdl: m.mdl.Clone(), rate: m.rate.Clone(), aLead: m.aLead}
}

// Envelope multiplies a model by a gain envelope read in signal domain. On
// TickStop or TickRelease both children are stepped by zero time under
// TickRelease, so any envelope nested within either child begins its own
// release without this envelope's own cursor (governed by b) being
// disturbed; it keeps completing on its own schedule.
type Envelope struct {
	a, b Module
	rate float64
	loop bool
}

// NewEnvelope constructs an Envelope gating mdl by env. Each step advances
// env by rate times the step's constant-time value (song-step time, not the
// model's own delta), while mdl advances by delta.
func NewEnvelope(mdl, env Module, rate float64, loop bool) *Envelope {
	if rate == 0 {
		rate = 1
	}
	return &Envelope{a: mdl, b: env, rate: rate, loop: loop}
}

func (m *Envelope) Step(delta float64, tick Tick) {
	switch tick.Kind {
	case TickStop, TickRelease:
		m.a.Step(0, ReleaseTick())
		m.b.Step(0, ReleaseTick())
	case TickAdjust:
		m.b.Step(delta, tick)
	default:
		c := tick.Resolve(delta)
		m.a.Step(delta, ConstTick(c))
		m.b.Step(c*m.rate, ConstTick(c))
		if m.a.Done() {
			reboundary(m.a)
		}
		if m.loop && m.b.Done() {
			reboundary(m.b)
		}
	}
}

func (m *Envelope) Read(tails, stereo, signal bool) Sample {
	va := m.a.Read(tails, stereo, signal)
	vb := m.b.Read(tails, stereo, true)
	return Sample{va.L * AsDecimal(vb.L), va.R * AsDecimal(vb.R)}
}

func (m *Envelope) StepTails(delta float64, tick Tick) {
	c := tick.Resolve(delta)
	m.a.StepTails(delta, tick)
	m.b.StepTails(c*m.rate, ConstTick(c))
}
func (m *Envelope) Reset() {
	if m.loop {
		m.a.Reset()
		m.b.Reset()
	}
}
func (m *Envelope) Clear()            { m.a.Clear(); m.b.Clear() }
func (m *Envelope) Done() bool        { return m.b.Done() }
func (m *Envelope) GetExtra() float64 { return m.b.GetExtra() }
func (m *Envelope) Length() float64   { return m.b.Length() / m.rate }
func (m *Envelope) SetFreq(hz float64) { m.a.SetFreq(hz); m.b.SetFreq(hz) }
func (m *Envelope) Clone() Module {
	return &Envelope{a: m.a.Clone(), b: m.b.Clone(), rate: m.rate, loop: m.loop}
}

// Length overrides a's reported length with a value read dynamically from
// b, rather than a's own fixed Length(). Its cursor is tracked
// independently of either child's, and both children are kept alive by
// reset-and-ADJUST when they finish ahead of the cursor, since b's reading
// may itself vary over time.
type Length struct {
	a, b Module
	cur  float64
}

// NewLength constructs a Length that plays a but reports its length (and
// governs Done) from b's current reading instead of a.Length().
func NewLength(a, b Module) *Length { return &Length{a: a, b: b} }

func (m *Length) bVal() float64 { return m.b.Read(false, false, false).L }

func (m *Length) Step(delta float64, tick Tick) {
	m.cur += delta
	m.a.Step(delta, tick)
	if m.a.Done() && !m.Done() {
		reboundary(m.a)
	}
	m.b.Step(delta, tick)
	if m.b.Done() && !m.Done() {
		reboundary(m.b)
	}
}

func (m *Length) Read(tails, stereo, signal bool) Sample {
	return m.a.Read(tails, stereo, signal)
}

func (m *Length) StepTails(delta float64, tick Tick) {
	m.a.StepTails(delta, tick)
	m.b.StepTails(delta, tick)
}
func (m *Length) Reset() { m.cur = 0; m.a.Reset(); m.b.Reset() }
func (m *Length) Clear() { m.cur = 0; m.a.Clear(); m.b.Clear() }
func (m *Length) Done() bool { return m.cur+epsilon >= m.bVal() }
func (m *Length) GetExtra() float64 {
	if m.Done() {
		return m.cur - m.bVal()
	}
	return 0
}
func (m *Length) Length() float64    { return m.bVal() }
func (m *Length) SetFreq(hz float64) { m.a.SetFreq(hz); m.b.SetFreq(hz) }
func (m *Length) Clone() Module {
	return &Length{a: m.a.Clone(), b: m.b.Clone(), cur: m.cur}
}

// Const bridges a child's local time axis to the driving step rate, via
// frameslice (the fraction of one song step that one sample occupies).
// rate*frameslice converts "one driving-step worth of delta" into however
// much of the child's own length that represents.
type Const struct {
	mdl        Module
	rate       float64
	frameslice float64
	loop       bool
}

// NewConst constructs a Const bridging mdl at rate steps per frameslice.
func NewConst(mdl Module, frameslice, rate float64, loop bool) *Const {
	return &Const{mdl: mdl, rate: rate * frameslice, frameslice: frameslice, loop: loop}
}

func (m *Const) Step(delta float64, tick Tick) {
	switch tick.Kind {
	case TickStop:
		m.mdl.Step(delta, tick)
	case TickAdjust:
		m.mdl.Step(delta, tick)
	case TickRelease:
		m.mdl.Step(delta, tick)
	default:
		c := tick.Resolve(delta)
		m.mdl.Step(c*m.rate, ConstTick(c))
	}
}

func (m *Const) Read(tails, stereo, signal bool) Sample {
	return m.mdl.Read(tails, stereo, signal)
}

func (m *Const) StepTails(delta float64, tick Tick) {
	c := tick.Resolve(delta)
	m.mdl.StepTails(c*m.rate, ConstTick(c))
}
func (m *Const) Reset() {
	if m.loop {
		m.mdl.Reset()
	}
}
func (m *Const) Clear()            { m.mdl.Clear() }
func (m *Const) Done() bool        { return m.mdl.Done() }
func (m *Const) GetExtra() float64 { return m.mdl.GetExtra() }
func (m *Const) Length() float64   { return m.mdl.Length() / m.rate }
func (m *Const) SetFreq(hz float64) { m.mdl.SetFreq(hz) }
func (m *Const) Clone() Module {
	return &Const{mdl: m.mdl.Clone(), rate: m.rate, frameslice: 1, loop: m.loop}
}
