package processor

import (
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestSmoother_Smooth(t *testing.T) {
	type args struct {
		data   []uint16
		window int
	}
	tests := []struct {
		name string
		args args
		want []uint16
	}{
		{"window 0 is identity", args{[]uint16{0, 1, 5, 9, 5, 1, 0, 0}, 0}, []uint16{0, 1, 5, 9, 5, 1, 0, 0}},
		{"window 1 is identity", args{[]uint16{0, 1, 5, 9, 5, 1, 0, 0}, 1}, []uint16{0, 1, 5, 9, 5, 1, 0, 0}},
		{"window 3", args{[]uint16{0, 1, 5, 9, 5, 1, 0, 0}, 3}, []uint16{0, 2, 5, 6, 5, 2, 0, 0}},
		{"window 5 borders", args{[]uint16{10, 20, 30}, 5}, []uint16{20, 20, 20}},
		{"no overflow", args{[]uint16{65535, 65535, 65535}, 3}, []uint16{65535, 65535, 65535}},
		{"empty", args{[]uint16{}, 5}, []uint16{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSmoother(tt.args.window)
			s.Smooth(tt.args.data)
			if diff := cmp.Diff(tt.want, tt.args.data); diff != "" {
				t.Errorf("Smooth() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSmoother_WindowBounds(t *testing.T) {
	rnd := rand.New(rand.NewSource(42))
	s := NewSmoother(5)
	for run := 0; run < 50; run++ {
		in := make([]uint16, 1+rnd.Intn(300))
		for i := range in {
			in[i] = uint16(rnd.Intn(4000))
		}
		data := append([]uint16{}, in...)
		s.Smooth(data)
		assert.Len(t, data, len(in))
		for i, v := range data {
			from := max(i-2, 0)
			to := min(i+2, len(in)-1)
			lowest, highest := in[from], in[from]
			for _, w := range in[from : to+1] {
				lowest = min(lowest, w)
				highest = max(highest, w)
			}
			assert.GreaterOrEqual(t, v, lowest)
			assert.LessOrEqual(t, v, highest)
		}
	}
}

func TestSmoother_ReusesScratch(t *testing.T) {
	s := NewSmoother(3)
	data := make([]uint16, 128)
	s.Smooth(data)
	allocs := testing.AllocsPerRun(10, func() { s.Smooth(data) })
	assert.Zero(t, allocs)
}
