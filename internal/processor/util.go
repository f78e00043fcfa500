package processor

import (
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
	"golang.org/x/exp/constraints"
)

// gate limits v to [low, high]
func gate[T constraints.Integer | constraints.Float](v, low, high T) T {
	if v < low {
		return low
	}
	if v > high {
		return high
	}
	return v
}

// returns time as unix seconds and microseconds as decimal part
func float64Timestamp(t time.Time) float64 {
	return float64(t.Unix()) + (float64(t.UnixMicro()%1e6))/float64(1e6)
}

// FormatPeaks renders peaks as "distance,intensity,index" triples separated by ';'.
func FormatPeaks(peaks []Peak) string {
	return strings.Join(lo.Map(peaks, func(p Peak, _ int) string {
		return fmt.Sprintf("%d,%d,%d", p.DistanceMM, p.Intensity, p.Index)
	}), ";")
}
