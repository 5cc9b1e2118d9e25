package synthcorona

import "math/rand"

// sumTails sums tail output from every module in mods except skip, the
// still-active member, whose output the container's non-tails Read already
// returns; members flagged NoTails are skipped too, so constants and
// interpolators don't get double-counted into a decaying mix.
func sumTails(mods []Module, skip Module, tails, stereo, signal bool) Sample {
	var sum Sample
	for _, mdl := range mods {
		if mdl != skip && !hasNoTails(mdl) {
			sum = sum.Add(mdl.Read(tails, stereo, signal))
		}
	}
	return sum
}

// Pattern plays its children in sequence, one after another, advancing to
// the next once the current one is Done.
type Pattern struct {
	pat   []Module
	curInx int
	extra float64
}

// NewPattern constructs a Pattern over the given children, played in order.
func NewPattern(pat []Module) *Pattern { return &Pattern{pat: pat} }

func (m *Pattern) Step(delta float64, tick Tick) {
	if m.Done() {
		return
	}
	m.pat[m.curInx].Step(delta, tick)
	// A child stepped by the overshoot of the previous one (under
	// AdjustTick, below) can itself complete immediately - e.g. under a
	// fast Speed multiplier a single delta can span several children in
	// one Step call - so keep advancing until the current child is not
	// done or the Pattern itself is done.
	for !m.Done() && m.pat[m.curInx].Done() {
		m.extra = m.pat[m.curInx].GetExtra()
		m.pat[m.curInx].Reset()
		m.curInx++
		if !m.Done() {
			m.pat[m.curInx].Step(m.extra, AdjustTick())
		}
	}
}

func (m *Pattern) Read(tails, stereo, signal bool) Sample {
	if tails {
		var cur Module
		if m.curInx < len(m.pat) {
			cur = m.pat[m.curInx]
		}
		return sumTails(m.pat, cur, tails, stereo, signal)
	}
	if !m.Done() {
		return m.pat[m.curInx].Read(tails, stereo, signal)
	}
	return Sample{}
}

func (m *Pattern) StepTails(delta float64, tick Tick) {
	for _, mdl := range m.pat {
		mdl.StepTails(delta, tick)
	}
}

func (m *Pattern) Reset() {
	if !m.Done() {
		m.pat[m.curInx].Reset()
	}
	m.curInx = 0
}

func (m *Pattern) Clear() {
	m.curInx = 0
	for _, p := range m.pat {
		p.Clear()
	}
}

func (m *Pattern) Done() bool { return m.curInx >= len(m.pat) }
func (m *Pattern) GetExtra() float64 {
	if m.Done() {
		return m.extra
	}
	return 0
}
func (m *Pattern) Length() float64 {
	var sum float64
	for _, p := range m.pat {
		sum += p.Length()
	}
	return sum
}
func (m *Pattern) SetFreq(hz float64) {
	for _, p := range m.pat {
		p.SetFreq(hz)
	}
}
func (m *Pattern) Clone() Module {
	pt := make([]Module, len(m.pat))
	for i, p := range m.pat {
		pt[i] = p.Clone()
	}
	return &Pattern{pat: pt, curInx: m.curInx, extra: m.extra}
}

// Set picks one child at random each cycle and evaluates only that one as
// "current"; every member still contributes to a tails mix (decaying
// members not picked this cycle keep ringing out).
type Set struct {
	set    []Module
	curMod Module
}

// NewSet constructs a Set over the given members, drawing an initial pick.
func NewSet(set []Module) *Set {
	return &Set{set: set, curMod: set[rand.Intn(len(set))]}
}

func (m *Set) Step(delta float64, tick Tick) { m.curMod.Step(delta, tick) }

func (m *Set) Read(tails, stereo, signal bool) Sample {
	if tails {
		return sumTails(m.set, m.curMod, tails, stereo, signal)
	}
	return m.curMod.Read(tails, stereo, signal)
}

func (m *Set) StepTails(delta float64, tick Tick) {
	for _, mdl := range m.set {
		mdl.StepTails(delta, tick)
	}
}

func (m *Set) Reset() {
	m.curMod.Reset()
	m.curMod = m.set[rand.Intn(len(m.set))]
}

func (m *Set) Clear() {
	for _, mdl := range m.set {
		mdl.Clear()
	}
	m.curMod = m.set[rand.Intn(len(m.set))]
}

func (m *Set) Done() bool         { return m.curMod.Done() }
func (m *Set) GetExtra() float64  { return m.curMod.GetExtra() }
func (m *Set) Length() float64    { return m.curMod.Length() }
func (m *Set) SetFreq(hz float64) {
	for _, mdl := range m.set {
		mdl.SetFreq(hz)
	}
}
func (m *Set) Clone() Module {
	st := make([]Module, len(m.set))
	for i, s := range m.set {
		st[i] = s.Clone()
	}
	return &Set{set: st, curMod: st[rand.Intn(len(st))]}
}

// Series advances to the next child every time its owner Resets it
// (rather than when the current child finishes, as Pattern does), cycling
// back to the first member after the last. The member being left is reset
// as it is left, so across successive owner cycles a Series of three
// one-shot sounds plays A,B,C,A,B,C,... with each starting from the top.
type Series struct {
	srs    []Module
	curInx int
}

// NewSeries constructs a Series over the given children.
func NewSeries(srs []Module) *Series { return &Series{srs: srs} }

func (m *Series) Step(delta float64, tick Tick) { m.srs[m.curInx].Step(delta, tick) }

func (m *Series) Read(tails, stereo, signal bool) Sample {
	if tails {
		cur := m.srs[m.curInx]
		return sumTails(m.srs, cur, tails, stereo, signal)
	}
	if m.srs[m.curInx].Done() {
		extra := m.srs[m.curInx].GetExtra()
		m.srs[m.curInx].Reset()
		m.srs[m.curInx].Step(extra, AdjustTick())
	}
	return m.srs[m.curInx].Read(tails, stereo, signal)
}

func (m *Series) StepTails(delta float64, tick Tick) {
	for _, mdl := range m.srs {
		mdl.StepTails(delta, tick)
	}
}

func (m *Series) Reset() {
	m.srs[m.curInx].Reset()
	m.curInx++
	if m.curInx >= len(m.srs) {
		m.curInx = 0
	}
}

func (m *Series) Clear() {
	m.curInx = 0
	for _, mdl := range m.srs {
		mdl.Clear()
	}
}

func (m *Series) Done() bool        { return m.srs[m.curInx].Done() }
func (m *Series) GetExtra() float64 { return m.srs[m.curInx].GetExtra() }
func (m *Series) Length() float64   { return m.srs[m.curInx].Length() }
func (m *Series) SetFreq(hz float64) {
	for _, mdl := range m.srs {
		mdl.SetFreq(hz)
	}
}
func (m *Series) Clone() Module {
	sr := make([]Module, len(m.srs))
	for i, s := range m.srs {
		sr[i] = s.Clone()
	}
	return &Series{srs: sr, curInx: m.curInx}
}
