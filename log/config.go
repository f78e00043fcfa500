package log

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Config is the yaml representation of a log setup.
//
//	defaultLevel: debug
//	zap:
//	  encoding: console
//	  outputPaths: [stderr]
type Config struct {
	DefaultLevel string     `yaml:"defaultLevel"`
	Zap          zap.Config `yaml:"zap"`
}

func DefaultDevConfig() *Config {
	z := zap.NewDevelopmentConfig()
	z.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
	return &Config{
		DefaultLevel: "info",
		Zap:          z,
	}
}

func DefaultProdConfig() *Config {
	return &Config{
		DefaultLevel: "info",
		Zap:          zap.NewProductionConfig(),
	}
}

func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return ParseConfig(data)
}

func ParseConfig(data []byte) (*Config, error) {
	cfg := Config{
		DefaultLevel: "info",
		Zap:          zap.NewProductionConfig(),
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
