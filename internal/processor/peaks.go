package processor

import (
	"errors"
	"fmt"
	"math"

	"github.com/mpapenbr/pipeflow/internal/envelope"
)

// PeakCapacity is the maximum number of peaks kept per iteration.
const PeakCapacity = 100

var ErrPeakCapacity = fmt.Errorf("more than %d peaks", PeakCapacity)

// Peak is a local maximum of the envelope.
type Peak struct {
	DistanceMM int    `json:"distance"`
	Intensity  uint16 `json:"intensity"`
	Index      int    `json:"index"`
}

// PeakBuffer is a fixed capacity, insertion ordered peak list.
// The backing array is allocated once and reused after Reset.
type PeakBuffer struct {
	peaks     [PeakCapacity]Peak
	n         int
	overflows int
}

// Add appends p. Once the buffer is full further peaks are dropped and
// ErrPeakCapacity is returned; the kept peaks are the first ones added.
func (b *PeakBuffer) Add(p Peak) error {
	if b.n == PeakCapacity {
		b.overflows++
		return ErrPeakCapacity
	}
	b.peaks[b.n] = p
	b.n++
	return nil
}

func (b *PeakBuffer) Reset() {
	b.n = 0
	b.overflows = 0
}

func (b *PeakBuffer) Len() int { return b.n }

// Dropped returns the number of peaks rejected since the last Reset.
func (b *PeakBuffer) Dropped() int { return b.overflows }

func (b *PeakBuffer) At(i int) Peak { return b.peaks[i] }

// Peaks returns a view on the stored peaks. It is only valid until the next Reset.
func (b *PeakBuffer) Peaks() []Peak {
	return b.peaks[:b.n]
}

// PeakDetector scans an envelope for local maxima.
type PeakDetector struct {
	offsetMM float64
}

func NewPeakDetector(offsetMM float64) *PeakDetector {
	return &PeakDetector{offsetMM: offsetMM}
}

// DistanceMM converts a sample index into the distance reported for a peak.
func (d *PeakDetector) DistanceMM(md envelope.Metadata, index int) int {
	return int(math.Round((md.StartM+float64(index)*md.StepLengthM)*1000 - d.offsetMM))
}

// Detect appends all peaks of samples to out.
//
// A sample is a peak if it is a strict local maximum, or if it equals the
// largest intensity of the current rising run and the next sample descends
// (flat topped peaks are reported at their last sample).
// The returned error wraps ErrPeakCapacity if out ran full; the scan still
// completes and out keeps the first PeakCapacity peaks.
func (d *PeakDetector) Detect(samples []uint16, md envelope.Metadata, out *PeakBuffer) error {
	var err error
	n := len(samples)
	previousLargest := uint16(0)
	for i := 0; i < n; i++ {
		intensity := samples[i]
		if i > 0 && i < n-1 {
			isPeak := (intensity > samples[i-1] && intensity > samples[i+1]) ||
				(intensity == previousLargest && intensity > samples[i+1])
			if isPeak {
				addErr := out.Add(Peak{
					DistanceMM: d.DistanceMM(md, i),
					Intensity:  intensity,
					Index:      i,
				})
				if addErr != nil && err == nil {
					err = fmt.Errorf("peak at index %d dropped: %w", i, addErr)
				}
			}
		}
		// no predecessor at index 0: leave the run tracking untouched
		if i == 0 {
			continue
		}
		if intensity > previousLargest && intensity > samples[i-1] {
			previousLargest = intensity
		} else if intensity < samples[i-1] {
			previousLargest = 0
		}
	}
	return err
}

// IsCapacityError reports whether err was caused by a full peak buffer.
func IsCapacityError(err error) bool {
	return errors.Is(err, ErrPeakCapacity)
}
