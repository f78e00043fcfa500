// Package flowmeter runs the acquisition loop of a measurement.
package flowmeter

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/mpapenbr/pipeflow/internal/envelope"
	"github.com/mpapenbr/pipeflow/internal/processor"
	"github.com/mpapenbr/pipeflow/log"
	"github.com/mpapenbr/pipeflow/pkg/framelog"
	"github.com/mpapenbr/pipeflow/pkg/report"
	"github.com/mpapenbr/pipeflow/version"
)

type (
	Config struct {
		ctx        context.Context
		warmup     int
		iterations int
		recorder   *framelog.FrameLog
		firmware   string
		sinks      []report.Sink
		runID      string
		// pause after an acquisition error before trying again
		errorBackoff time.Duration
	}
	ConfigFunc func(cfg *Config)
)

// Stats summarizes a run.
type Stats struct {
	RunID         string
	Acquired      int // frames delivered by the provider
	Discarded     int // frames dropped during warm-up
	Processed     int
	AcquireErrors int
	Overflows     int // iterations with more peaks than could be kept
	Unavailable   int // iterations without flow rate
}

func defaultConfig() *Config {
	return &Config{
		ctx:          context.Background(),
		warmup:       2,
		errorBackoff: 100 * time.Millisecond,
	}
}

func WithContext(ctx context.Context) ConfigFunc {
	return func(cfg *Config) { cfg.ctx = ctx }
}

// WithWarmup sets the number of acquisition attempts after start whose
// frames are discarded. Failed attempts count as well.
func WithWarmup(n int) ConfigFunc {
	return func(cfg *Config) { cfg.warmup = max(n, 0) }
}

// WithIterations stops the run after n processed frames. 0 means unlimited.
func WithIterations(n int) ConfigFunc {
	return func(cfg *Config) { cfg.iterations = max(n, 0) }
}

// WithRecorder writes every acquired raw frame (warm-up included) to fl.
func WithRecorder(fl *framelog.FrameLog) ConfigFunc {
	return func(cfg *Config) { cfg.recorder = fl }
}

func WithFirmware(version string) ConfigFunc {
	return func(cfg *Config) { cfg.firmware = version }
}

func WithSinks(sinks ...report.Sink) ConfigFunc {
	return func(cfg *Config) { cfg.sinks = append(cfg.sinks, sinks...) }
}

func WithRunID(id string) ConfigFunc {
	return func(cfg *Config) { cfg.runID = id }
}

func WithErrorBackoff(d time.Duration) ConfigFunc {
	return func(cfg *Config) { cfg.errorBackoff = d }
}

// Flowmeter pulls frames from a provider, processes them and reports the results.
type Flowmeter struct {
	config   *Config
	provider envelope.Provider
	proc     *processor.Processor
	sink     report.Multi
	stats    Stats
	log      *log.Logger
}

func NewFlowmeter(
	provider envelope.Provider,
	proc *processor.Processor,
	cfg ...ConfigFunc,
) *Flowmeter {
	c := defaultConfig()
	for _, fn := range cfg {
		fn(c)
	}
	if c.runID == "" {
		c.runID = uuid.New().String()
	}
	return &Flowmeter{
		config:   c,
		provider: provider,
		proc:     proc,
		sink:     report.Multi(c.sinks),
		stats:    Stats{RunID: c.runID},
		log:      log.FromContextOrDefault(c.ctx).Named("flow").With(log.String("run", c.runID)),
	}
}

// Run acquires until the iteration limit is reached, the provider is
// exhausted or ctx is done. Acquisition errors are logged and the loop
// continues with the next acquisition.
//
//nolint:funlen,cyclop // keep the loop together
func (f *Flowmeter) Run() (Stats, error) {
	ctx := f.config.ctx
	start := time.Now()
	if f.config.recorder != nil {
		if err := f.config.recorder.LogRun(&framelog.RunInfo{
			ID:       f.config.runID,
			Program:  version.UserAgent(),
			Started:  start,
			Firmware: f.config.firmware,
			Params:   f.proc.Params(),
		}); err != nil {
			return f.stats, err
		}
	}
	session := f.proc.NewSession()
	f.log.Info("Starting measurement",
		log.Int("warmup", f.config.warmup),
		log.Int("iterations", f.config.iterations))

	// warm-up counts acquisition attempts, failed ones included
	attempts := 0
	for f.config.iterations == 0 || f.stats.Processed < f.config.iterations {
		frame, err := f.provider.Next(ctx)
		warmup := attempts < f.config.warmup
		if err != nil {
			if errors.Is(err, io.EOF) {
				f.log.Info("No more frames")
				break
			}
			if ctx.Err() != nil {
				break
			}
			attempts++
			f.stats.AcquireErrors++
			f.log.Warn("Could not acquire envelope", log.ErrorField(err))
			if !f.sleep(ctx) {
				break
			}
			continue
		}
		attempts++
		f.stats.Acquired++
		if f.config.recorder != nil {
			if err := f.config.recorder.LogFrame(frame); err != nil {
				f.log.Warn("Could not record frame", log.ErrorField(err))
			}
		}
		if warmup {
			f.stats.Discarded++
			f.log.Debug("Discarding warm-up frame", log.Int("discarded", f.stats.Discarded))
			continue
		}

		res, err := f.proc.Process(session, frame.Clone())
		f.stats.Processed++
		if err != nil {
			f.log.Warn("Iteration incomplete", log.Int("iteration", res.Iteration), log.ErrorField(err))
		}
		if res.PeakOverflow {
			f.stats.Overflows++
		}
		if !res.FlowRateAvailable {
			f.stats.Unavailable++
		}
		if err := f.sink.Report(res); err != nil {
			f.log.Warn("Could not report result", log.ErrorField(err))
		}
	}

	f.log.Info("Measurement finished",
		log.Int("acquired", f.stats.Acquired),
		log.Int("processed", f.stats.Processed),
		log.Int("acquireErrors", f.stats.AcquireErrors),
		log.Elapsed(start))
	if err := ctx.Err(); err != nil && !errors.Is(err, context.Canceled) {
		return f.stats, err
	}
	return f.stats, nil
}

func (f *Flowmeter) Stats() Stats {
	return f.stats
}

func (f *Flowmeter) sleep(ctx context.Context) bool {
	if f.config.errorBackoff <= 0 {
		return true
	}
	t := time.NewTimer(f.config.errorBackoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
