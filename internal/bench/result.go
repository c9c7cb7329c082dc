package bench

import (
	"math"
	"time"
)

// TrialResult holds the outcome of every trial run against one agent
// artifact. Durations and Failed always have the same length; a duration is
// recorded for failed trials too.
type TrialResult struct {
	Version   string
	Artifact  string
	TargetJar string
	Durations []time.Duration
	Failed    []bool
}

// Add records one trial.
func (r *TrialResult) Add(d time.Duration, failed bool) {
	r.Durations = append(r.Durations, d)
	r.Failed = append(r.Failed, failed)
}

// Failures returns the number of failed trials.
func (r *TrialResult) Failures() int {
	n := 0
	for _, f := range r.Failed {
		if f {
			n++
		}
	}
	return n
}

// Successful returns the durations of the trials that did not fail.
func (r *TrialResult) Successful() []time.Duration {
	ok := make([]time.Duration, 0, len(r.Durations))
	for i, d := range r.Durations {
		if !r.Failed[i] {
			ok = append(ok, d)
		}
	}
	return ok
}

// Summary is the statistical view of a TrialResult expressed in a time unit.
// Failed trials are excluded; when no trial succeeded every statistic is NaN.
type Summary struct {
	Failures int
	Mean     float64
	StdDev   float64
	Min      float64
	Max      float64
}

// Summary computes the mean, population standard deviation, min and max of
// the successful trials, converted to unit without truncation.
func (r *TrialResult) Summary(unit time.Duration) Summary {
	if unit <= 0 {
		unit = time.Millisecond
	}
	s := Summary{Failures: r.Failures()}

	ok := r.Successful()
	if len(ok) == 0 {
		nan := math.NaN()
		s.Mean, s.StdDev, s.Min, s.Max = nan, nan, nan, nan
		return s
	}

	values := make([]float64, len(ok))
	for i, d := range ok {
		values[i] = float64(d) / float64(unit)
	}

	var sum float64
	s.Min, s.Max = values[0], values[0]
	for _, v := range values {
		sum += v
		s.Min = math.Min(s.Min, v)
		s.Max = math.Max(s.Max, v)
	}
	n := float64(len(values))
	s.Mean = sum / n

	var sq float64
	for _, v := range values {
		sq += (v - s.Mean) * (v - s.Mean)
	}
	s.StdDev = math.Sqrt(sq / n)

	return s
}
