package config

import (
	"github.com/spf13/pflag"
)

// AddParamFlags registers the pipeline constants on fs.
func AddParamFlags(fs *pflag.FlagSet, p *Params) {
	d := DefaultParams()
	fs.Float64Var(&p.DistanceToPipeM, "distance-to-pipe", d.DistanceToPipeM,
		"distance from the sensor to the near pipe wall (m)")
	fs.Float64Var(&p.PipeDiameterM, "pipe-diameter", d.PipeDiameterM,
		"inner pipe diameter (m)")
	fs.Float64Var(&p.DistanceBeyondPipeM, "distance-beyond-pipe", d.DistanceBeyondPipeM,
		"range measured behind the far pipe wall (m)")
	fs.IntVar(&p.MovingAverageWindow, "window-size", d.MovingAverageWindow,
		"moving average window (samples)")
	fs.IntVar(&p.PeakThreshold, "peak-threshold", d.PeakThreshold,
		"minimum intensity of a surface peak")
	fs.Float64Var(&p.SlopeThreshold, "slope-threshold", d.SlopeThreshold,
		"slope ratio below which a frame votes empty")
	fs.Float64Var(&p.FlatnessThreshold, "flatness-threshold", d.FlatnessThreshold,
		"flatness ratio below which a frame votes full")
	fs.IntVar(&p.FullOrEmptyThreshold, "full-or-empty-threshold", d.FullOrEmptyThreshold,
		"saturation limit of the full/empty indicator")
	fs.Float64Var(&p.ManningsRoughness, "roughness", d.ManningsRoughness,
		"Manning's roughness coefficient")
	fs.Float64Var(&p.PipeSlope, "pipe-slope", d.PipeSlope,
		"pipe slope (m/m)")
	fs.Float64Var(&p.MeasurementOffsetMM, "measurement-offset", d.MeasurementOffsetMM,
		"offset subtracted from every peak distance (mm)")
	fs.BoolVar(&p.OutlierRejection, "outlier-rejection", d.OutlierRejection,
		"reject surface jumps larger than 5/8 of the pipe diameter")
}

// AddSerialFlags registers the serial port settings on fs.
func AddSerialFlags(fs *pflag.FlagSet, c *CliArgs) {
	fs.StringVar(&c.Port, "port", "/dev/ttyACM0", "serial device of the sensor board")
	fs.IntVar(&c.Baud, "baud", 115200, "serial baud rate")
	fs.StringVar(&c.ReadTimeout, "read-timeout", "500ms", "serial read timeout")
	fs.StringVar(&c.WaitForDevice, "wait", "0s", "wait for the serial device to appear")
}

// AddRunFlags registers the acquisition loop and output settings on fs.
func AddRunFlags(fs *pflag.FlagSet, c *CliArgs) {
	fs.IntVar(&c.Warmup, "warmup", 2, "number of acquisitions discarded after start")
	fs.IntVar(&c.Iterations, "iterations", 0, "stop after this many measurements (0: until interrupted)")
	fs.StringVar(&c.CsvFile, "csv", "", "write time, water level and flow rate to this csv file")
	fs.BoolVar(&c.TextReport, "text-report", false, "print results in the sensor console format to stdout")
	fs.StringVar(&c.MqttBroker, "mqtt-broker", "", "publish results to this MQTT broker (host:port)")
	fs.StringVar(&c.MqttTopic, "mqtt-topic", "pipeflow/results", "MQTT topic for results")
	fs.StringVar(&c.MqttClientID, "mqtt-client-id", "", "MQTT client id (default: generated)")
}
