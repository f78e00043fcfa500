package sensor

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/mpapenbr/pipeflow/internal/envelope"
	"github.com/mpapenbr/pipeflow/log"
	"github.com/mpapenbr/pipeflow/pkg/util"
)

// Info is what the sensor board reports once after startup.
type Info struct {
	Firmware       string            `json:"firmware"`
	PipeDiameterMM int               `json:"pipeDiameterMM"`
	Metadata       envelope.Metadata `json:"metadata"`
}

type Options struct {
	Logger *log.Logger
	Now    func() time.Time
}

type OptionsFunc func(*Options)

func WithLogger(l *log.Logger) OptionsFunc {
	return func(o *Options) {
		o.Logger = l
	}
}

func WithClock(now func() time.Time) OptionsFunc {
	return func(o *Options) {
		o.Now = now
	}
}

// StreamProvider parses envelope frames from the sensor console output.
// It implements envelope.Provider.
type StreamProvider struct {
	r        *ctxReader
	closer   io.Closer
	scanner  *bufio.Scanner
	pending  *string // line read ahead while collecting samples
	info     Info
	metadata bool // start, length, data length and step length seen
	fallback *envelope.Metadata
	seen     map[lineKind]bool
	opts     *Options
	log      *log.Logger
}

var _ envelope.Provider = (*StreamProvider)(nil)

// NewStreamProvider reads from r. If r is an io.Closer it is closed by Close.
func NewStreamProvider(r io.Reader, options ...OptionsFunc) *StreamProvider {
	opts := &Options{Now: time.Now}
	for _, o := range options {
		o(opts)
	}
	if opts.Logger == nil {
		opts.Logger = log.Default().Named("sensor")
	}
	cr := &ctxReader{r: r}
	ret := &StreamProvider{
		r:       cr,
		scanner: bufio.NewScanner(cr),
		seen:    map[lineKind]bool{},
		opts:    opts,
		log:     opts.Logger,
	}
	if c, ok := r.(io.Closer); ok {
		ret.closer = c
	}
	return ret
}

// Info returns what has been parsed from the header lines so far.
func (p *StreamProvider) Info() Info {
	return p.info
}

// ReadHeader consumes lines until the metadata is complete.
func (p *StreamProvider) ReadHeader(ctx context.Context) (Info, error) {
	p.r.ctx = ctx
	for !p.metadata {
		line, err := p.readLine()
		if err != nil {
			return p.info, err
		}
		kind, value := classify(line)
		if kind == lineEnvelope {
			// keep the block for Next
			p.pending = &line
			return p.info, envelope.ErrNoMetadata
		}
		p.handleLine(kind, value)
	}
	return p.info, nil
}

// Next returns the next envelope block of the stream. A block seen before the
// metadata or with the wrong number of samples yields an error; the following
// call continues with the next block.
func (p *StreamProvider) Next(ctx context.Context) (*envelope.Frame, error) {
	p.r.ctx = ctx
	for {
		line, err := p.readLine()
		if err != nil {
			return nil, err
		}
		kind, value := classify(line)
		if kind != lineEnvelope {
			p.handleLine(kind, value)
			continue
		}
		if !p.metadata {
			if p.fallback == nil {
				return nil, envelope.ErrNoMetadata
			}
			return p.readUnsized()
		}
		return p.readEnvelope()
	}
}

// UseMetadata is used for a stream whose header lines were missed, e.g. when
// connecting to a board that is already running. If md.DataLength is 0 the
// sample count is taken from the next envelope block. Header lines still
// arriving later take precedence.
func (p *StreamProvider) UseMetadata(md envelope.Metadata) {
	p.fallback = &md
}

func (p *StreamProvider) Close() error {
	if p.closer != nil {
		return p.closer.Close()
	}
	return nil
}

func (p *StreamProvider) readEnvelope() (*envelope.Frame, error) {
	md := p.info.Metadata
	samples := make([]uint16, 0, md.DataLength)
	for len(samples) < md.DataLength {
		line, err := p.readLine()
		if err != nil {
			if err == io.EOF {
				return nil, fmt.Errorf("%w: got %d of %d before end of stream",
					ErrSampleCount, len(samples), md.DataLength)
			}
			return nil, err
		}
		var ok bool
		if samples, ok = parseSamples(samples, line); !ok {
			p.pending = &line
			return nil, fmt.Errorf("%w: got %d of %d", ErrSampleCount, len(samples), md.DataLength)
		}
	}
	if len(samples) != md.DataLength {
		return nil, fmt.Errorf("%w: got %d of %d", ErrSampleCount, len(samples), md.DataLength)
	}
	return &envelope.Frame{Metadata: md, Samples: samples, Timestamp: p.opts.Now()}, nil
}

// readUnsized collects samples up to the next line that is not a data row.
func (p *StreamProvider) readUnsized() (*envelope.Frame, error) {
	md := *p.fallback
	samples := make([]uint16, 0, md.DataLength)
	for {
		line, err := p.readLine()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		var ok bool
		if samples, ok = parseSamples(samples, line); !ok {
			p.pending = &line
			break
		}
	}
	if len(samples) == 0 || (md.DataLength > 0 && len(samples) != md.DataLength) {
		return nil, fmt.Errorf("%w: got %d of %d", ErrSampleCount, len(samples), md.DataLength)
	}
	md.DataLength = len(samples)
	if md.StepLengthM == 0 && len(samples) > 1 {
		md.StepLengthM = md.LengthM / float64(len(samples)-1)
	}
	p.info.Metadata = md
	p.metadata = true
	p.log.Warn("Sensor header not seen, using configured metadata",
		log.Float64("start", md.StartM),
		log.Float64("length", md.LengthM),
		log.Int("dataLength", md.DataLength),
		log.Float64("stepLength", md.StepLengthM))
	return &envelope.Frame{Metadata: md, Samples: samples, Timestamp: p.opts.Now()}, nil
}

//nolint:cyclop // one case per header line
func (p *StreamProvider) handleLine(kind lineKind, value string) {
	var err error
	switch kind {
	case lineOther, lineEnvelope:
		return
	case lineBanner:
		p.info.Firmware = value
		p.checkFirmware()
	case lineStart:
		p.info.Metadata.StartM, err = parseMM(value)
	case lineLength:
		p.info.Metadata.LengthM, err = parseMM(value)
	case linePipeDiameter:
		p.info.PipeDiameterMM, err = parseUint(value)
	case lineDataLength:
		p.info.Metadata.DataLength, err = parseUint(value)
	case lineStepLength:
		p.info.Metadata.StepLengthM, err = parseMM(value)
	}
	if err != nil {
		p.log.Warn("ignoring header line", log.ErrorField(err))
		return
	}
	p.seen[kind] = true
	if !p.metadata && p.seen[lineStart] && p.seen[lineDataLength] && p.seen[lineStepLength] {
		p.metadata = true
		p.log.Info("Sensor metadata",
			log.String("firmware", p.info.Firmware),
			log.Float64("start", p.info.Metadata.StartM),
			log.Float64("length", p.info.Metadata.LengthM),
			log.Int("dataLength", p.info.Metadata.DataLength),
			log.Float64("stepLength", p.info.Metadata.StepLengthM),
			log.Int("pipeDiameter", p.info.PipeDiameterMM))
	}
}

func (p *StreamProvider) checkFirmware() {
	ok, err := util.CheckFirmwareVersion(p.info.Firmware)
	switch {
	case err != nil:
		p.log.Warn("Could not check sensor firmware version", log.ErrorField(err))
	case !ok:
		p.log.Warn("Sensor firmware is older than supported",
			log.String("firmware", p.info.Firmware),
			log.String("minimum", util.RequiredFirmwareVersion))
	default:
		p.log.Debug("Sensor firmware", log.String("firmware", p.info.Firmware))
	}
}

func (p *StreamProvider) readLine() (string, error) {
	if p.pending != nil {
		line := *p.pending
		p.pending = nil
		return line, nil
	}
	if p.scanner.Scan() {
		return p.scanner.Text(), nil
	}
	if err := p.scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

// ctxReader stops reading once the context of the current call is done.
// A serial port with a read timeout reports an idle line as (0, io.EOF);
// with retryIdle set such reads are repeated instead of ending the stream.
type ctxReader struct {
	r         io.Reader
	ctx       context.Context
	retryIdle bool
}

func (c *ctxReader) Read(b []byte) (int, error) {
	for {
		if c.ctx != nil {
			if err := c.ctx.Err(); err != nil {
				return 0, err
			}
		}
		n, err := c.r.Read(b)
		if c.retryIdle && n == 0 && (err == nil || err == io.EOF) {
			continue
		}
		return n, err
	}
}
