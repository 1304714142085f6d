package runner

import (
	"math"
	"sort"
	"time"
)

// schedule is a piecewise-linear iteration rate compiled from rate patterns.
// Iteration k of the run is due when the integral of the rate reaches k, so
// a ramp from 0 to 10/s over 2s plans exactly 10 iterations.
type schedule struct {
	stages  []stage
	length  time.Duration
	planned float64
}

type stage struct {
	start  time.Duration
	length time.Duration
	from   float64 // iterations per second at start
	to     float64 // iterations per second at start+length
	before float64 // iterations planned by earlier stages
}

func compileSchedule(patterns []RatePattern) *schedule {
	s := &schedule{}
	for _, p := range patterns {
		switch p.Type {
		case RatePatternTypeRamp:
			s.add(p.Duration, float64(p.From), float64(p.To))
		case RatePatternTypeStep:
			for _, step := range p.Steps {
				s.add(step.Duration, float64(step.Rate), float64(step.Rate))
			}
		case RatePatternTypeSpike:
			s.add(p.Duration, float64(p.Rate), float64(p.Rate))
		}
	}
	if len(s.stages) == 0 {
		return nil
	}
	return s
}

func (s *schedule) add(length time.Duration, from, to float64) {
	if length <= 0 {
		return
	}
	st := stage{start: s.length, length: length, from: math.Max(from, 0), to: math.Max(to, 0), before: s.planned}
	s.stages = append(s.stages, st)
	s.length += length
	s.planned += st.iterations()
}

func (st stage) iterations() float64 {
	return (st.from + st.to) / 2 * st.length.Seconds()
}

// rateAt returns the planned iteration rate at elapsed, or false once the
// schedule is over.
func (s *schedule) rateAt(elapsed time.Duration) (float64, bool) {
	if elapsed < 0 {
		elapsed = 0
	}
	idx := sort.Search(len(s.stages), func(i int) bool {
		return s.stages[i].start+s.stages[i].length > elapsed
	})
	if idx == len(s.stages) {
		return 0, false
	}
	st := s.stages[idx]
	progress := float64(elapsed-st.start) / float64(st.length)
	return st.from + (st.to-st.from)*progress, true
}

// due returns the offset from the run start at which iteration k (counting
// from zero) should begin, or false when the schedule plans fewer than k+1
// iterations.
func (s *schedule) due(k int64) (time.Duration, bool) {
	target := float64(k)
	if target > s.planned-1e-9 {
		return 0, false
	}
	idx := sort.Search(len(s.stages), func(i int) bool {
		st := s.stages[i]
		return st.before+st.iterations() > target
	})
	if idx == len(s.stages) {
		return 0, false
	}
	st := s.stages[idx]

	// Solve from*t + (to-from)/(2*length)*t^2 = remaining for t in the stage.
	remaining := target - st.before
	accel := (st.to - st.from) / (2 * st.length.Seconds())
	denom := st.from + math.Sqrt(math.Max(0, st.from*st.from+4*accel*remaining))
	if denom <= 0 {
		return st.start, true
	}
	offset := time.Duration(2 * remaining / denom * float64(time.Second))
	if offset > st.length {
		offset = st.length
	}
	return st.start + offset, true
}

// iterations is the number of iterations the whole schedule plans.
func (s *schedule) iterations() int64 {
	return int64(math.Ceil(s.planned - 1e-9))
}
