package report

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/mpapenbr/pipeflow/internal/processor"
)

var csvHeader = []string{"Time", "Water level", "Flow rate"}

// CSVWriter logs one row per result: seconds since the first result,
// water level (mm) and flow rate (l/s).
type CSVWriter struct {
	w      *csv.Writer
	c      io.Closer
	start  float64
	header bool
}

// NewCSVWriter writes to w. If w is an io.Closer it is closed by Close.
func NewCSVWriter(w io.Writer) *CSVWriter {
	ret := &CSVWriter{w: csv.NewWriter(w), start: -1}
	if c, ok := w.(io.Closer); ok {
		ret.c = c
	}
	return ret
}

func (c *CSVWriter) Report(r *processor.Result) error {
	if !c.header {
		if err := c.w.Write(csvHeader); err != nil {
			return err
		}
		c.header = true
	}
	if c.start < 0 {
		c.start = r.Timestamp
	}
	flow := ""
	if r.FlowRateAvailable {
		flow = strconv.FormatFloat(r.FlowRateLitersPerSecond(), 'f', -1, 64)
	}
	if err := c.w.Write([]string{
		strconv.FormatFloat(r.Timestamp-c.start, 'f', 3, 64),
		strconv.FormatFloat(r.WaterLevelMM, 'f', -1, 64),
		flow,
	}); err != nil {
		return err
	}
	c.w.Flush()
	return c.w.Error()
}

func (c *CSVWriter) Close() error {
	c.w.Flush()
	if err := c.w.Error(); err != nil {
		return err
	}
	if c.c != nil {
		return c.c.Close()
	}
	return nil
}
