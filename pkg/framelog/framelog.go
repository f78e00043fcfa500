// Package framelog records raw envelope frames to a binary log and reads them back.
package framelog

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/mpapenbr/pipeflow/internal/envelope"
	"github.com/mpapenbr/pipeflow/log"
	"github.com/mpapenbr/pipeflow/pkg/config"
)

type (
	FrameLog struct {
		w     io.Writer
		r     io.Reader
		c     io.Closer
		m     sync.Mutex
		count int
		run   *RunInfo
		next  *envelope.Frame
		log   *log.Logger
	}
	Option func(*FrameLog)
	header struct {
		MsgType byte
		MsgLen  uint32
	}
	// frameHeader precedes the samples of a MsgFrame payload.
	frameHeader struct {
		UnixNano    int64
		StartM      float64
		LengthM     float64
		StepLengthM float64
		DataLength  uint32
	}
	// RunInfo is written once at the start of a recording.
	RunInfo struct {
		ID       string        `json:"id"`
		Program  string        `json:"program"`
		Started  time.Time     `json:"started"`
		Firmware string        `json:"firmware,omitempty"`
		Params   config.Params `json:"params"`
	}
)

const (
	MsgUnknown byte = iota
	MsgRun
	MsgFrame
)

// maxMsgLen guards against reading garbage as a huge payload length.
const maxMsgLen = 1 << 24

var (
	ErrNoReader = errors.New("no reader")
	ErrNoWriter = errors.New("no writer")
	ErrTooLarge = errors.New("message too large")
	ErrCorrupt  = errors.New("corrupt frame")
)

var _ envelope.Provider = (*FrameLog)(nil)

func New(opts ...Option) *FrameLog {
	ret := &FrameLog{}
	for _, opt := range opts {
		opt(ret)
	}
	if ret.log == nil {
		ret.log = log.Default().Named("framelog")
	}
	return ret
}

func WithWriter(w io.Writer) Option {
	return func(fl *FrameLog) {
		fl.w = w
	}
}

func WithReader(r io.Reader) Option {
	return func(fl *FrameLog) {
		fl.r = r
	}
}

// WithCloser registers the file closed by Close.
func WithCloser(c io.Closer) Option {
	return func(fl *FrameLog) {
		fl.c = c
	}
}

func WithLogger(l *log.Logger) Option {
	return func(fl *FrameLog) {
		fl.log = l
	}
}

func (fl *FrameLog) Count() int {
	fl.m.Lock()
	defer fl.m.Unlock()
	return fl.count
}

// Run returns the run info read so far (nil if none was seen).
func (fl *FrameLog) Run() *RunInfo {
	return fl.run
}

func (fl *FrameLog) LogRun(info *RunInfo) error {
	b, err := json.Marshal(info)
	if err != nil {
		return err
	}
	return fl.writeMsg(MsgRun, b)
}

// LogFrame appends a raw frame. Frames should be logged before they are
// smoothed by the processor.
func (fl *FrameLog) LogFrame(f *envelope.Frame) error {
	fh := frameHeader{
		UnixNano:    unixNano(f.Timestamp),
		StartM:      f.StartM,
		LengthM:     f.LengthM,
		StepLengthM: f.StepLengthM,
		DataLength:  uint32(len(f.Samples)),
	}
	buf := bytes.NewBuffer(make([]byte, 0, binary.Size(fh)+2*len(f.Samples)))
	if err := binary.Write(buf, binary.LittleEndian, fh); err != nil {
		return err
	}
	if err := binary.Write(buf, binary.LittleEndian, f.Samples); err != nil {
		return err
	}
	return fl.writeMsg(MsgFrame, buf.Bytes())
}

func (fl *FrameLog) writeMsg(t byte, b []byte) error {
	if fl.w == nil {
		return ErrNoWriter
	}
	if len(b) > maxMsgLen {
		return fmt.Errorf("%w: %d bytes", ErrTooLarge, len(b))
	}
	fl.m.Lock()
	defer fl.m.Unlock()
	h := header{MsgType: t, MsgLen: uint32(len(b))}
	if err := binary.Write(fl.w, binary.LittleEndian, h); err != nil {
		return err
	}
	if _, err := fl.w.Write(b); err != nil {
		return err
	}
	fl.count++
	return nil
}

// Next returns the next recorded frame. Run info messages are remembered and
// unknown message types are skipped.
//
//nolint:cyclop // one case per message type
func (fl *FrameLog) Next(ctx context.Context) (*envelope.Frame, error) {
	if fl.next != nil {
		f := fl.next
		fl.next = nil
		return f, nil
	}
	if fl.r == nil {
		return nil, ErrNoReader
	}
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		h := header{}
		if err := binary.Read(fl.r, binary.LittleEndian, &h); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, io.EOF
			}
			fl.log.Error("could not read header", log.ErrorField(err))
			return nil, err
		}
		if h.MsgLen > maxMsgLen {
			return nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, h.MsgLen)
		}
		b := make([]byte, h.MsgLen)
		if _, err := io.ReadFull(fl.r, b); err != nil {
			return nil, err
		}
		switch h.MsgType {
		case MsgRun:
			info := &RunInfo{}
			if err := json.Unmarshal(b, info); err != nil {
				return nil, err
			}
			fl.run = info
			fl.log.Info("Recorded run",
				log.String("id", info.ID),
				log.String("program", info.Program),
				log.Time("started", info.Started),
				log.String("firmware", info.Firmware))
		case MsgFrame:
			f, err := decodeFrame(b)
			if err != nil {
				return nil, err
			}
			fl.m.Lock()
			fl.count++
			fl.m.Unlock()
			return f, nil
		default:
			fl.log.Debug("skipping unknown message", log.Int("type", int(h.MsgType)))
		}
	}
}

// Unread makes f the result of the next call to Next.
func (fl *FrameLog) Unread(f *envelope.Frame) {
	fl.next = f
}

func (fl *FrameLog) Close() error {
	if fl.c != nil {
		return fl.c.Close()
	}
	return nil
}

func decodeFrame(b []byte) (*envelope.Frame, error) {
	fh := frameHeader{}
	r := bytes.NewReader(b)
	if err := binary.Read(r, binary.LittleEndian, &fh); err != nil {
		return nil, err
	}
	if uint64(r.Len()) != 2*uint64(fh.DataLength) {
		return nil, fmt.Errorf("%w: %d samples in %d bytes", ErrCorrupt, fh.DataLength, r.Len())
	}
	samples := make([]uint16, fh.DataLength)
	if err := binary.Read(r, binary.LittleEndian, samples); err != nil {
		return nil, err
	}
	return &envelope.Frame{
		Metadata: envelope.Metadata{
			StartM:      fh.StartM,
			LengthM:     fh.LengthM,
			StepLengthM: fh.StepLengthM,
			DataLength:  int(fh.DataLength),
		},
		Samples:   samples,
		Timestamp: fromUnixNano(fh.UnixNano),
	}, nil
}

// a zero time is stored as 0
func unixNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromUnixNano(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}
