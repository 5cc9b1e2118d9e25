package synthcorona

import "math"

// gcd returns the greatest common divisor of a and b under float modulo,
// mirroring the Euclidean algorithm used for module lengths, which are
// frame counts but carried as float64.
func gcd(a, b float64) float64 {
	for b > 0 {
		a, b = b, math.Mod(a, b)
	}
	return a
}

// lcm returns the least common multiple of a and b.
func lcm(a, b float64) float64 {
	return a * b / gcd(a, b)
}

// binOp is the shared continuity/leadership bookkeeping for the binary
// arithmetic and gating nodes (Add, Subtract, Multiply, Divide, Level):
// both children step together, and whichever child is NOT the designated
// leader gets rebounded (reset + stepped by its own overshoot) whenever it
// finishes ahead of the leader, so the shorter side loops under the
// longer one without losing its place in the cycle.
type binOp struct {
	a, b  Module
	aLead bool
}

func (o *binOp) Step(delta float64, tick Tick) {
	o.a.Step(delta, tick)
	o.b.Step(delta, tick)
	if o.aLead {
		if o.b.Done() && !o.a.Done() {
			reboundary(o.b)
		}
	} else {
		if o.a.Done() && !o.b.Done() {
			reboundary(o.a)
		}
	}
}

func (o *binOp) StepTails(delta float64, tick Tick) {
	o.a.StepTails(delta, tick)
	o.b.StepTails(delta, tick)
}

func (o *binOp) Reset() { o.a.Reset(); o.b.Reset() }
func (o *binOp) Clear() { o.a.Clear(); o.b.Clear() }

func (o *binOp) Done() bool {
	if o.aLead {
		return o.a.Done()
	}
	return o.b.Done()
}

func (o *binOp) GetExtra() float64 {
	if o.aLead {
		return o.a.GetExtra()
	}
	return o.b.GetExtra()
}

func (o *binOp) Length() float64 {
	if o.aLead {
		return o.a.Length()
	}
	return o.b.Length()
}

func (o *binOp) SetFreq(hz float64) {
	o.a.SetFreq(hz)
	o.b.SetFreq(hz)
}

// Add sums two modules sample-by-sample.
type Add struct{ binOp }

// NewAdd constructs an Add node. aLead selects which child's Done/Length
// governs the combined node (the other child loops underneath it).
func NewAdd(a, b Module, aLead bool) *Add { return &Add{binOp{a, b, aLead}} }

func (m *Add) Read(tails, stereo, signal bool) Sample {
	va := m.a.Read(tails, stereo, signal)
	vb := m.b.Read(tails, stereo, signal)
	return va.Add(vb)
}
func (m *Add) Clone() Module {
	return &Add{binOp{m.a.Clone(), m.b.Clone(), m.aLead}}
}

// Subtract subtracts B from A sample-by-sample.
type Subtract struct{ binOp }

func NewSubtract(a, b Module, aLead bool) *Subtract { return &Subtract{binOp{a, b, aLead}} }

func (m *Subtract) Read(tails, stereo, signal bool) Sample {
	va := m.a.Read(tails, stereo, signal)
	vb := m.b.Read(tails, stereo, signal)
	return Sample{va.L - vb.L, va.R - vb.R}
}
func (m *Subtract) Clone() Module {
	return &Subtract{binOp{m.a.Clone(), m.b.Clone(), m.aLead}}
}

// Multiply multiplies A by B sample-by-sample; B is read out of signal
// domain (its raw DSL range), so Multiply doubles as a hard gate.
type Multiply struct{ binOp }

func NewMultiply(a, b Module, aLead bool) *Multiply { return &Multiply{binOp{a, b, aLead}} }

func (m *Multiply) Read(tails, stereo, signal bool) Sample {
	va := m.a.Read(tails, stereo, signal)
	vb := m.b.Read(tails, stereo, false)
	return Sample{va.L * vb.L, va.R * vb.R}
}
func (m *Multiply) Clone() Module {
	return &Multiply{binOp{m.a.Clone(), m.b.Clone(), m.aLead}}
}

// Divide divides A by B sample-by-sample; B is read out of signal domain.
// Division by zero is not guarded - callers composing a Divide are
// responsible for ensuring B never crosses zero.
type Divide struct{ binOp }

func NewDivide(a, b Module, aLead bool) *Divide { return &Divide{binOp{a, b, aLead}} }

func (m *Divide) Read(tails, stereo, signal bool) Sample {
	va := m.a.Read(tails, stereo, signal)
	vb := m.b.Read(tails, stereo, false)
	return Sample{va.L / vb.L, va.R / vb.R}
}
func (m *Divide) Clone() Module {
	return &Divide{binOp{m.a.Clone(), m.b.Clone(), m.aLead}}
}

// Length for Divide is always the LCM of both children's lengths,
// regardless of which side leads, so the combined cycle completes a whole
// number of repeats of both A and B.
func (m *Divide) Length() float64 {
	return lcm(m.a.Length(), m.b.Length())
}

// Level scales A by B interpreted as a decimal gain in signal domain -
// functionally a Multiply whose B is always read as signal.
type Level struct{ binOp }

func NewLevel(a, b Module, aLead bool) *Level { return &Level{binOp{a, b, aLead}} }

func (m *Level) Read(tails, stereo, signal bool) Sample {
	va := m.a.Read(tails, stereo, signal)
	vb := m.b.Read(tails, stereo, true)
	return Sample{va.L * AsDecimal(vb.L), va.R * AsDecimal(vb.R)}
}
func (m *Level) Clone() Module {
	return &Level{binOp{m.a.Clone(), m.b.Clone(), m.aLead}}
}
