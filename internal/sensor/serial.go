package sensor

import (
	"io"
	"time"

	"github.com/tarm/serial"
)

// Port is the part of a serial connection the provider needs.
type Port interface {
	io.ReadWriteCloser
}

type SerialConfig struct {
	Name        string
	Baud        int
	ReadTimeout time.Duration
}

func DefaultSerialConfig() SerialConfig {
	return SerialConfig{
		Name:        "/dev/ttyACM0",
		Baud:        115200,
		ReadTimeout: 500 * time.Millisecond,
	}
}

// OpenSerial opens the sensor's UART and returns a provider parsing its output.
func OpenSerial(cfg SerialConfig, options ...OptionsFunc) (*StreamProvider, error) {
	port, err := serial.OpenPort(&serial.Config{
		Name:        cfg.Name,
		Baud:        cfg.Baud,
		ReadTimeout: cfg.ReadTimeout,
	})
	if err != nil {
		return nil, err
	}
	return NewPortProvider(port, options...), nil
}

// NewPortProvider reads from an already opened port. Idle reads caused by the
// port's read timeout do not end the stream.
func NewPortProvider(port Port, options ...OptionsFunc) *StreamProvider {
	ret := NewStreamProvider(port, options...)
	ret.r.retryIdle = true
	return ret
}
