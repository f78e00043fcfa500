package report

import (
	"github.com/mpapenbr/pipeflow/internal/processor"
	"github.com/mpapenbr/pipeflow/log"
)

type LogSink struct {
	log *log.Logger
}

func NewLogSink(l *log.Logger) *LogSink {
	return &LogSink{log: l}
}

func (s *LogSink) Report(r *processor.Result) error {
	fields := []log.Field{
		log.Int("iteration", r.Iteration),
		log.Float64("distance", r.DistanceMM),
		log.Float64("waterLevel", r.WaterLevelMM),
		log.Float64("flow", r.FlowRateLitersPerSecond()),
		log.Int("indicator", r.Indicator),
		log.Int("peaks", r.PeakCount),
		log.Int("filtered", r.FilteredCount),
		log.String("branch", string(r.SurfaceBranch)),
	}
	if !r.FlowRateAvailable {
		s.log.Warn("Flow rate not available", fields...)
		return nil
	}
	s.log.Info("Measurement", fields...)
	return nil
}

func (s *LogSink) Close() error {
	return nil
}
