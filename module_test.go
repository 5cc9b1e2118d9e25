package synthcorona

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stepN(t *testing.T, m Module, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		m.Step(1, DeltaTick())
	}
}

func TestValHoldsConstant(t *testing.T) {
	v := NewVal(3)
	assert.Equal(t, Sample{3, 3}, v.Read(false, false, false))
	assert.False(t, v.Done())
	stepN(t, v, 1)
	assert.True(t, v.Done())
	assert.Equal(t, Sample{3, 3}, v.Read(false, false, false), "a Val keeps reporting its value once done")
}

func TestValCloneIsIndependent(t *testing.T) {
	v := NewVal(5)
	stepN(t, v, 1)
	cl := v.Clone().(*Val)
	cl.val = 9
	assert.Equal(t, 5.0, v.Read(false, false, false).L, "mutating a clone must not affect the original")
	assert.Equal(t, 9.0, cl.Read(false, false, false).L)
}

func TestAddSumsSamples(t *testing.T) {
	a := NewAdd(NewVal(2), NewVal(5), true)
	s := a.Read(false, false, false)
	assert.Equal(t, Sample{7, 7}, s)
}

func TestMultiplyReadsBOutOfSignalDomain(t *testing.T) {
	m := NewMultiply(NewVal(2), NewVal(3), true)
	assert.Equal(t, Sample{6, 6}, m.Read(false, false, false))
}

func TestDivideLengthIsLCM(t *testing.T) {
	d := NewDivide(NewPattern([]Module{NewVal(1), NewVal(1)}), NewVal(1), true)
	require.Equal(t, lcm(2, 1), d.Length())
}

func TestLevelScalesByDecimalGain(t *testing.T) {
	// b=9 (MaxVal) reads as a decimal gain of 1.0
	l := NewLevel(NewVal(4), NewVal(MaxVal), true)
	assert.Equal(t, Sample{4, 4}, l.Read(false, false, false))
}

func TestInvertNegates(t *testing.T) {
	inv := NewInvert(NewVal(4))
	assert.Equal(t, Sample{-4, -4}, inv.Read(false, false, false))
}

func TestLinInterpMidpoint(t *testing.T) {
	li := NewLinInterp(NewVal(0), NewVal(10), 2)
	stepN(t, li, 1)
	assert.InDelta(t, 5.0, li.Read(false, false, false).L, 1e-9)
}

func TestPatternAdvancesOnChildDone(t *testing.T) {
	p := NewPattern([]Module{NewVal(1), NewVal(2)})
	assert.Equal(t, 1.0, p.Read(false, false, false).L)
	stepN(t, p, 1)
	require.False(t, p.Done())
	assert.Equal(t, 2.0, p.Read(false, false, false).L)
}

func TestPatternCascadesThroughMultipleChildrenInOneStep(t *testing.T) {
	// Each child has Length 1; a single Step of delta=3 must overshoot
	// through all three children in one call (e.g. under a fast Speed
	// multiplier), not leave the Pattern stalled mid-cascade until the
	// next external Step.
	p := NewPattern([]Module{NewVal(1), NewVal(2), NewVal(3)})
	p.Step(3, DeltaTick())
	assert.True(t, p.Done(), "overshoot must cascade all the way through in a single Step call")
	assert.Equal(t, 0.0, p.GetExtra())
}

func TestSeriesCyclesBackToFirst(t *testing.T) {
	s := NewSeries([]Module{NewVal(1), NewVal(2)})
	assert.Equal(t, 1.0, s.Read(false, false, false).L)
	s.Reset()
	assert.Equal(t, 2.0, s.Read(false, false, false).L)
	s.Reset()
	assert.Equal(t, 1.0, s.Read(false, false, false).L, "Series wraps back to its first member")
}

func TestSetAlwaysPicksAMember(t *testing.T) {
	members := []Module{NewVal(1), NewVal(2), NewVal(3)}
	s := NewSet(members)
	v := s.Read(false, false, false).L
	assert.Contains(t, []float64{1, 2, 3}, v)
}

func TestCrossTracksASPeriod(t *testing.T) {
	a := NewAdd(NewVal(1), NewVal(1), true)
	cr := NewCross(a)
	assert.Equal(t, a.Length()*NewVal(1).Length(), cr.Length())
}

func TestCrossRejectsNonBinaryOperand(t *testing.T) {
	_, ok := Module(NewLinInterp(NewVal(1), NewVal(2), 1)).(binaryOperand)
	assert.False(t, ok, "LinInterp does not expose Operands(), so wrapping it in Cross must be rejected by the parser")
}

func TestRepeatLoopsUnderCount(t *testing.T) {
	r := NewRepeat(NewVal(1), NewVal(3))
	assert.Equal(t, NewVal(1).Length()*3, r.Length())
}

func TestReboundaryStepsByOvershoot(t *testing.T) {
	v := NewVal(1)
	v.Step(1.5, DeltaTick()) // half a step past Length=1
	extra := reboundary(v)
	assert.InDelta(t, 0.5, extra, 1e-9)
	assert.False(t, v.Done(), "reboundary must re-step by the overshoot, leaving the module mid-cycle again")
}

func TestTickResolve(t *testing.T) {
	assert.Equal(t, 4.0, DeltaTick().Resolve(4))
	assert.Equal(t, 7.0, ConstTick(7).Resolve(4))
}

func TestLengthOverridesReportedLength(t *testing.T) {
	a := NewVal(5)
	b := NewVal(3)
	ln := NewLength(a, b)

	assert.Equal(t, 3.0, ln.Length(), "Length reports b's dynamic reading, not a's own fixed length")
	stepN(t, ln, 2)
	assert.False(t, ln.Done())
	stepN(t, ln, 1)
	assert.True(t, ln.Done())
	assert.Equal(t, Sample{5, 5}, ln.Read(false, false, false), "Read passes through a, unaffected by the length override")
}

func TestPanCenterIsUnchanged(t *testing.T) {
	s := Pan(Sample{1, 1}, 0)
	assert.Equal(t, Sample{1, 1}, s)
}

func TestPanFullLeftCollapsesToMono(t *testing.T) {
	s := Pan(Sample{1, 1}, -MaxVal)
	assert.InDelta(t, 2.0, s.L, 1e-9)
	assert.InDelta(t, 0.0, s.R, 1e-9)
}

func TestLimitClampsJustInsideMaxVal(t *testing.T) {
	assert.Equal(t, MaxVal*0.9999, Limit(100))
	assert.Equal(t, -MaxVal*0.9999, Limit(-100))
	assert.Equal(t, 2.0, Limit(2))
}
