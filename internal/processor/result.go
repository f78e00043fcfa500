package processor

import (
	"time"
)

// Result is the outcome of one processed envelope.
type Result struct {
	Iteration         int           `json:"iteration"`
	Timestamp         float64       `json:"timestamp"`
	DistanceMM        float64       `json:"distanceToSurface"`
	WaterLevelMM      float64       `json:"waterLevel"`
	FlowRate          float64       `json:"flowRate"` // m³/s
	FlowRateAvailable bool          `json:"flowRateAvailable"`
	SlopeRatio        Ratio         `json:"slopeRatio"`
	FlatnessRatio     Ratio         `json:"flatnessRatio"`
	Indicator         int           `json:"fullOrEmptyIndicator"`
	PeakCount         int           `json:"peakCount"`
	FilteredCount     int           `json:"filteredPeakCount"`
	FilteredPeaks     []Peak        `json:"filteredPeaks"`
	PeakOverflow      bool          `json:"peakOverflow,omitempty"`
	SurfaceBranch     SurfaceBranch `json:"surfaceBranch"`
	Geometry          FlowResult    `json:"geometry"`
	Envelope          []uint16      `json:"-"` // smoothed samples
}

// FlowRateLitersPerSecond is the display unit of the sensor console.
func (r *Result) FlowRateLitersPerSecond() float64 {
	return r.FlowRate * 1000
}

func (r *Result) Time() time.Time {
	sec := int64(r.Timestamp)
	return time.Unix(sec, int64((r.Timestamp-float64(sec))*1e9))
}
