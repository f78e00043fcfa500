package config

import (
	"errors"
	"fmt"
)

var ErrInvalidParams = errors.New("invalid pipeline parameters")

//nolint:lll // better readability
type CliArgs struct {
	LogLevel      string // sets the log level (zap log level values)
	LogFormat     string // text vs json
	LogFile       string // log file to write to
	LogConfig     string // yaml log configuration, overrides level and format
	Port          string // serial device of the sensor board
	Baud          int    // serial baud rate
	ReadTimeout   string // serial read timeout
	WaitForDevice string // wait this long for the serial device to appear
	Warmup        int    // number of acquisitions discarded after start
	Iterations    int    // stop after this many processed frames (0: run until interrupted)
	RecordFile    string // write raw frames to this file
	CsvFile       string // write measurement rows to this file
	TextReport    bool   // print results in the sensor console format to stdout
	MqttBroker    string // host:port of an MQTT broker (empty: disabled)
	MqttTopic     string // topic for published results
	MqttClientID  string // client id (default: generated)
}

// Params are the pipeline constants. They are fixed once a processor has been created.
//
//nolint:lll // better readability
type Params struct {
	DistanceToPipeM      float64 // distance from sensor to the near pipe wall (m)
	PipeDiameterM        float64 // inner pipe diameter (m)
	DistanceBeyondPipeM  float64 // extra range measured behind the far wall (m)
	MovingAverageWindow  int     // smoother window size (samples)
	PeakThreshold        int     // minimum intensity of a usable peak
	SlopeThreshold       float64 // third/fourth quarter ratio separating empty from full
	FlatnessThreshold    float64 // normalized deviation separating flat from decaying tails
	FullOrEmptyThreshold int     // saturation limit T of the full/empty indicator
	ManningsRoughness    float64 // Manning's n
	PipeSlope            float64 // pipe slope S (m/m)
	MeasurementOffsetMM  float64 // subtracted from every peak distance (mm)
	OutlierRejection     bool    // reject surface jumps larger than 5/8 of the diameter
}

var (
	cliArgs = NewCliArgs()
	params  = DefaultParams()
)

func DefaultCliArgs() *CliArgs {
	return cliArgs
}

func NewCliArgs() *CliArgs {
	return &CliArgs{}
}

// DefaultPipelineParams returns the process wide params bound to the command flags.
func DefaultPipelineParams() *Params {
	return params
}

// DefaultParams returns the values the sensor board ships with.
func DefaultParams() *Params {
	return &Params{
		DistanceToPipeM:      0.120,
		PipeDiameterM:        0.090,
		DistanceBeyondPipeM:  0.011,
		MovingAverageWindow:  5,
		PeakThreshold:        250,
		SlopeThreshold:       0.6,
		FlatnessThreshold:    0.4,
		FullOrEmptyThreshold: 5,
		ManningsRoughness:    0.011,
		PipeSlope:            0.1,
		MeasurementOffsetMM:  6,
		OutlierRejection:     true,
	}
}

func (p *Params) Validate() error {
	switch {
	case p.PipeDiameterM <= 0:
		return fmt.Errorf("%w: pipe diameter must be positive (%v)", ErrInvalidParams, p.PipeDiameterM)
	case p.DistanceToPipeM < 0:
		return fmt.Errorf("%w: distance to pipe must not be negative (%v)",
			ErrInvalidParams, p.DistanceToPipeM)
	case p.MovingAverageWindow < 0:
		return fmt.Errorf("%w: window size must not be negative (%d)",
			ErrInvalidParams, p.MovingAverageWindow)
	case p.FullOrEmptyThreshold < 0:
		return fmt.Errorf("%w: full/empty threshold must not be negative (%d)",
			ErrInvalidParams, p.FullOrEmptyThreshold)
	case p.ManningsRoughness <= 0:
		return fmt.Errorf("%w: roughness coefficient must be positive (%v)",
			ErrInvalidParams, p.ManningsRoughness)
	case p.PipeSlope < 0:
		return fmt.Errorf("%w: pipe slope must not be negative (%v)", ErrInvalidParams, p.PipeSlope)
	}
	return nil
}

// PipeDiameterMM returns the diameter in millimeters.
func (p *Params) PipeDiameterMM() float64 {
	return p.PipeDiameterM * 1000
}

// FarWallMM is the distance from the sensor to the far (bottom) pipe wall.
func (p *Params) FarWallMM() float64 {
	return (p.DistanceToPipeM + p.PipeDiameterM) * 1000
}

// PipeCenterMM is the initial surface estimate before any measurement.
func (p *Params) PipeCenterMM() float64 {
	return (p.DistanceToPipeM + p.PipeDiameterM/2) * 1000
}

// RangeLengthM is the requested length of the acquisition window.
func (p *Params) RangeLengthM() float64 {
	return p.PipeDiameterM + p.DistanceBeyondPipeM
}
