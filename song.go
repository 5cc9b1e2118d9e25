package synthcorona

// SongStep is a single step of a Song's timeline: a Sequence or a SeqBlock.
type SongStep interface {
	Step(delta float64, tick Tick)
	StepTails(delta float64, tick Tick)
	Read(tails, stereo, signal bool) Sample
	Clear()
	Done() bool
	Length() float64
}

// Song drives a timeline of steps one at a time, advancing to the next
// once the current step is Done, while keeping previously-finished steps
// alive via step_tails until their own release tails drain out.
type Song struct {
	pat    []SongStep
	curInx int
	tails  []SongStep
}

// NewSong constructs a Song over the given timeline of steps.
func NewSong(pat []SongStep) *Song { return &Song{pat: pat} }

func (s *Song) Step(delta float64, tick Tick) {
	kept := s.tails[:0]
	for _, t := range s.tails {
		t.StepTails(delta, tick)
		if !t.Done() {
			kept = append(kept, t)
		}
	}
	s.tails = kept

	if s.curInx < len(s.pat) {
		cur := s.pat[s.curInx]
		cur.Step(delta, ConstTick(delta))
		cur.StepTails(delta, ConstTick(delta))
		if cur.Done() {
			cur.Step(0, StopTick())
			if !hasNoTails(cur) {
				s.tails = append(s.tails, cur)
			}
			s.curInx++
		}
	}
}

func (s *Song) Read(stereo, signal bool) Sample {
	var sum Sample
	if s.curInx < len(s.pat) {
		cur := s.pat[s.curInx]
		sum = sum.Add(cur.Read(false, stereo, signal))
		if !hasNoTails(cur) {
			sum = sum.Add(cur.Read(true, stereo, signal))
		}
	}
	for _, t := range s.tails {
		sum = sum.Add(t.Read(true, stereo, signal))
	}
	return sum
}

func (s *Song) Reset() { s.Clear() }

func (s *Song) Clear() {
	s.curInx = 0
	for _, p := range s.pat {
		p.Clear()
	}
}

func (s *Song) Done() bool { return len(s.tails) == 0 && s.curInx >= len(s.pat) }

func (s *Song) GetExtra() float64 { return float64(s.curInx - len(s.pat)) }

func (s *Song) Length() float64 {
	var sum float64
	for _, p := range s.pat {
		sum += p.Length()
	}
	return sum
}
