package processor

import (
	"errors"
	"fmt"
	"time"

	"github.com/mpapenbr/pipeflow/internal/envelope"
	"github.com/mpapenbr/pipeflow/log"
	"github.com/mpapenbr/pipeflow/pkg/config"
)

type Options struct {
	Params       config.Params
	Logger       *log.Logger
	KeepEnvelope bool // attach the smoothed samples to each result
	Now          func() time.Time
}

func defaultOptions() *Options {
	return &Options{
		Params: *config.DefaultParams(),
		Now:    time.Now,
	}
}

// functional options pattern for Options
type OptionsFunc func(*Options)

func WithParams(p *config.Params) OptionsFunc {
	return func(o *Options) {
		o.Params = *p
	}
}

func WithLogger(l *log.Logger) OptionsFunc {
	return func(o *Options) {
		o.Logger = l
	}
}

func WithKeepEnvelope(b bool) OptionsFunc {
	return func(o *Options) {
		o.KeepEnvelope = b
	}
}

func WithClock(now func() time.Time) OptionsFunc {
	return func(o *Options) {
		o.Now = now
	}
}

// Session is the state carried from one iteration to the next.
type Session struct {
	Indicator          *Indicator
	PreviousDistanceMM float64
	Iteration          int
}

// Processor runs the envelope pipeline:
// smoothing, peak detection, classification, peak filtering,
// surface estimation and flow calculation.
type Processor struct {
	options    *Options
	params     config.Params
	smoother   *Smoother
	detector   *PeakDetector
	classifier *Classifier
	filter     *PeakFilter
	surface    *SurfaceEstimator
	hydraulics Hydraulics
	peaks      PeakBuffer
	filtered   PeakBuffer
	log        *log.Logger
}

func NewProcessor(options ...OptionsFunc) (*Processor, error) {
	opts := defaultOptions()
	for _, o := range options {
		o(opts)
	}
	if err := opts.Params.Validate(); err != nil {
		return nil, err
	}
	if opts.Logger == nil {
		opts.Logger = log.Default().Named("proc")
	}
	p := opts.Params
	ret := &Processor{
		options:    opts,
		params:     p,
		smoother:   NewSmoother(p.MovingAverageWindow),
		detector:   NewPeakDetector(p.MeasurementOffsetMM),
		classifier: NewClassifier(p.SlopeThreshold, p.FlatnessThreshold),
		filter:     NewPeakFilter(p.PeakThreshold, p.FarWallMM()),
		surface:    NewSurfaceEstimator(p.FarWallMM(), p.PipeDiameterMM(), p.OutlierRejection),
		hydraulics: Hydraulics{
			DiameterM: p.PipeDiameterM,
			Roughness: p.ManningsRoughness,
			Slope:     p.PipeSlope,
		},
		log: opts.Logger,
	}
	ret.surface.log = opts.Logger.Named("surface")
	return ret, nil
}

// NewSession returns the state used before the first iteration.
func (p *Processor) NewSession() *Session {
	return &Session{
		Indicator:          NewIndicator(p.params.FullOrEmptyThreshold),
		PreviousDistanceMM: p.params.PipeCenterMM(),
	}
}

func (p *Processor) Params() config.Params {
	return p.params
}

func (p *Processor) Hydraulics() Hydraulics {
	return p.hydraulics
}

// Process runs one iteration on frame. The frame samples are smoothed in place.
// The returned result is always usable. A non-nil error reports problems of
// this iteration only (peak capacity exceeded, flow rate unavailable).
//
//nolint:funlen // keep the pipeline together
func (p *Processor) Process(s *Session, frame *envelope.Frame) (*Result, error) {
	var errs []error
	s.Iteration++
	samples := frame.Samples

	p.smoother.Smooth(samples)

	p.peaks.Reset()
	if err := p.detector.Detect(samples, frame.Metadata, &p.peaks); err != nil {
		errs = append(errs, err)
	}

	slope, flatness := p.classifier.Classify(samples, s.Indicator)

	p.filtered.Reset()
	if err := p.filter.Filter(p.peaks.Peaks(), &p.filtered); err != nil {
		errs = append(errs, fmt.Errorf("filtered peaks: %w", err))
	}
	filtered := p.filtered.Peaks()

	distance, branch := p.surface.Estimate(filtered, s.Indicator.Value(), s.PreviousDistanceMM)
	s.PreviousDistanceMM = distance

	level := gate(p.params.FarWallMM()-distance, 0, p.params.PipeDiameterMM())

	ret := &Result{
		Iteration:     s.Iteration,
		Timestamp:     float64Timestamp(p.options.Now()),
		DistanceMM:    distance,
		WaterLevelMM:  level,
		SlopeRatio:    slope,
		FlatnessRatio: flatness,
		Indicator:     s.Indicator.Value(),
		PeakCount:     p.peaks.Len(),
		FilteredCount: len(filtered),
		FilteredPeaks: append(make([]Peak, 0, len(filtered)), filtered...),
		PeakOverflow:  p.peaks.Dropped() > 0 || p.filtered.Dropped() > 0,
		SurfaceBranch: branch,
	}
	if p.options.KeepEnvelope {
		ret.Envelope = append(make([]uint16, 0, len(samples)), samples...)
	}

	geo, err := p.hydraulics.Flow(level)
	ret.Geometry = geo
	if err != nil {
		errs = append(errs, err)
	} else {
		ret.FlowRate = geo.Rate
		ret.FlowRateAvailable = true
	}

	if !slope.Valid || !flatness.Valid {
		p.log.Debug("classifier statistic indeterminate",
			log.Int("samples", len(samples)),
			log.Bool("slopeValid", slope.Valid),
			log.Bool("flatnessValid", flatness.Valid))
	}
	p.log.Debug("Processed envelope",
		log.Int("iteration", ret.Iteration),
		log.Int("peaks", ret.PeakCount),
		log.Int("filtered", ret.FilteredCount),
		log.String("branch", string(branch)),
		log.Int("indicator", ret.Indicator),
		log.Float64("distance", ret.DistanceMM))

	return ret, errors.Join(errs...)
}
