package processor

import (
	"errors"
	"math"
	"strconv"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

var ErrIndeterminateRatio = errors.New("indeterminate ratio")

// Indicator is the full/empty hysteresis counter, saturating at [-limit, limit].
// Negative values mean the pipe trends empty.
type Indicator struct {
	value int
	limit int
}

func NewIndicator(limit int) *Indicator {
	return &Indicator{limit: limit}
}

func (ind *Indicator) Value() int { return ind.value }

func (ind *Indicator) Limit() int { return ind.limit }

func (ind *Indicator) Increment() {
	if ind.value < ind.limit {
		ind.value++
	}
}

func (ind *Indicator) Decrement() {
	if ind.value > -ind.limit {
		ind.value--
	}
}

// Empty reports whether the pipe is currently classified as empty.
func (ind *Indicator) Empty() bool { return ind.value < 0 }

// Ratio is a classifier statistic that may be indeterminate.
type Ratio struct {
	Value float64
	Valid bool
}

func validRatio(v float64) Ratio { return Ratio{Value: v, Valid: true} }

func (r Ratio) String() string {
	if !r.Valid {
		return "indeterminate"
	}
	return strconv.FormatFloat(r.Value, 'f', 6, 64)
}

func (r Ratio) MarshalJSON() ([]byte, error) {
	if !r.Valid {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(r.Value, 'g', -1, 64)), nil
}

// Classifier votes on the indicator using two statistics of the envelope tail.
type Classifier struct {
	slopeThreshold    float64
	flatnessThreshold float64
	buf               []float64
}

func NewClassifier(slopeThreshold, flatnessThreshold float64) *Classifier {
	return &Classifier{
		slopeThreshold:    slopeThreshold,
		flatnessThreshold: flatnessThreshold,
	}
}

// Classify computes both statistics and lets each vote on ind.
// An indeterminate statistic does not vote.
func (c *Classifier) Classify(samples []uint16, ind *Indicator) (slope, flatness Ratio) {
	slope = c.Slope(samples, ind)
	flatness = c.Flatness(samples, ind)
	return slope, flatness
}

// Slope compares the mean of the third quarter with the mean of the fourth
// quarter. A decaying tail (ratio >= threshold) votes full, otherwise empty.
func (c *Classifier) Slope(samples []uint16, ind *Indicator) Ratio {
	r, err := c.slopeRatio(samples)
	if err != nil {
		return Ratio{}
	}
	if r.Value < c.slopeThreshold {
		ind.Decrement()
	} else {
		ind.Increment()
	}
	return r
}

// Flatness is the mean absolute deviation of the second half normalized by
// its mean. A flat tail (ratio < threshold) votes full, otherwise empty.
func (c *Classifier) Flatness(samples []uint16, ind *Indicator) Ratio {
	r, err := c.flatnessRatio(samples)
	if err != nil {
		return Ratio{}
	}
	if r.Value < c.flatnessThreshold {
		ind.Increment()
	} else {
		ind.Decrement()
	}
	return r
}

func (c *Classifier) slopeRatio(samples []uint16) (Ratio, error) {
	q := len(samples) / 4
	if q == 0 {
		return Ratio{}, ErrIndeterminateRatio
	}
	third := floats.Sum(c.toFloats(samples[2*q:3*q])) / float64(q)
	fourth := floats.Sum(c.toFloats(samples[3*q:4*q])) / float64(q)
	return safeRatio(third, fourth)
}

func (c *Classifier) flatnessRatio(samples []uint16) (Ratio, error) {
	half := samples[len(samples)/2:]
	if len(half) == 0 {
		return Ratio{}, ErrIndeterminateRatio
	}
	x := c.toFloats(half)
	mean := stat.Mean(x, nil)
	for i := range x {
		x[i] = math.Abs(x[i] - mean)
	}
	return safeRatio(stat.Mean(x, nil), mean)
}

// toFloats converts into the reused scratch buffer.
func (c *Classifier) toFloats(s []uint16) []float64 {
	if cap(c.buf) < len(s) {
		c.buf = make([]float64, len(s))
	}
	x := c.buf[:len(s)]
	for i, v := range s {
		x[i] = float64(v)
	}
	return x
}

func safeRatio(num, denom float64) (Ratio, error) {
	if denom == 0 {
		return Ratio{}, ErrIndeterminateRatio
	}
	v := num / denom
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Ratio{}, ErrIndeterminateRatio
	}
	return validRatio(v), nil
}
