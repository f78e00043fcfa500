package processor

// PeakFilter keeps peaks that are strong enough and not behind the far pipe wall.
type PeakFilter struct {
	threshold uint16
	maxDistMM float64
}

func NewPeakFilter(threshold int, farWallMM float64) *PeakFilter {
	return &PeakFilter{threshold: uint16(gate(threshold, 0, 0xffff)), maxDistMM: farWallMM}
}

func (f *PeakFilter) Keep(p Peak) bool {
	return p.Intensity > f.threshold && float64(p.DistanceMM) < f.maxDistMM
}

// Filter appends the kept peaks of in to out, preserving their order.
func (f *PeakFilter) Filter(in []Peak, out *PeakBuffer) error {
	for _, p := range in {
		if !f.Keep(p) {
			continue
		}
		if err := out.Add(p); err != nil {
			return err
		}
	}
	return nil
}
