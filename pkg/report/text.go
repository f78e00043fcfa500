package report

import (
	"bufio"
	"fmt"
	"io"
	"strconv"

	"github.com/mpapenbr/pipeflow/internal/processor"
)

// samples per row of an envelope block
const rowLength = 8

// TextWriter prints results the way the sensor board does on its console.
// The output can be read back by the sensor stream parser.
type TextWriter struct {
	w        *bufio.Writer
	envelope bool
}

// NewTextWriter writes to w. If envelope is set results carrying the smoothed
// samples are preceded by an "Envelope data:" block.
func NewTextWriter(w io.Writer, envelope bool) *TextWriter {
	return &TextWriter{w: bufio.NewWriter(w), envelope: envelope}
}

func (t *TextWriter) Report(r *processor.Result) error {
	if t.envelope && r.Envelope != nil {
		WriteEnvelope(t.w, r.Envelope)
	}
	flow := "nan"
	if r.FlowRateAvailable {
		flow = formatFloat(r.FlowRateLitersPerSecond())
	}
	fmt.Fprintf(t.w, "Distance to water surface: %s\n", formatFloat(r.DistanceMM))
	fmt.Fprintf(t.w, "Water level: %s\n", formatFloat(r.WaterLevelMM))
	fmt.Fprintf(t.w, "Flow rate: %s\n", flow)
	fmt.Fprintf(t.w, "Slope of the second half of the envelope: %s\n", formatRatio(r.SlopeRatio))
	fmt.Fprintf(t.w, "Full or empty indicator: %d\n", r.Indicator)
	fmt.Fprintf(t.w, "Number of peaks: %d\n", r.PeakCount)
	fmt.Fprintf(t.w, "Flatness of the second half of the envelope: %s\n", formatRatio(r.FlatnessRatio))
	fmt.Fprintf(t.w, "Number of filtered peaks: %d\n", r.FilteredCount)
	fmt.Fprintf(t.w, "Filtered peaks: %s\n", processor.FormatPeaks(r.FilteredPeaks))
	return t.w.Flush()
}

func (t *TextWriter) Close() error {
	return t.w.Flush()
}

// WriteEnvelope writes an "Envelope data:" block with eight right aligned values per row.
func WriteEnvelope(w io.Writer, samples []uint16) {
	fmt.Fprintln(w, "Envelope data:")
	for i, v := range samples {
		if i > 0 && i%rowLength == 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%6d", v)
	}
	fmt.Fprintln(w)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

func formatRatio(r processor.Ratio) string {
	if !r.Valid {
		return "nan"
	}
	return formatFloat(r.Value)
}
