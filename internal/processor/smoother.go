package processor

// Smoother is a moving average filter. The scratch buffer is kept between calls.
type Smoother struct {
	window  int
	scratch []uint16
}

func NewSmoother(window int) *Smoother {
	return &Smoother{window: window}
}

// Smooth replaces each sample by the truncated mean of the samples in
// [i-window/2, i+window/2]. Samples near the borders use fewer neighbors.
func (s *Smoother) Smooth(data []uint16) {
	if cap(s.scratch) < len(data) {
		s.scratch = make([]uint16, len(data))
	}
	out := s.scratch[:len(data)]
	movingAverage(out, data, s.window)
	copy(data, out)
}

func movingAverage(dst, src []uint16, window int) {
	half := window / 2
	n := len(src)
	for i := range src {
		from := max(i-half, 0)
		to := min(i+half, n-1)
		sum := 0
		for j := from; j <= to; j++ {
			sum += int(src[j])
		}
		dst[i] = uint16(sum / (to - from + 1))
	}
}
