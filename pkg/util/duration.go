package util

import (
	"time"

	"github.com/mpapenbr/pipeflow/log"
)

// ParseDuration parses a duration flag value. Invalid values are logged and
// replaced by defaultVal.
func ParseDuration(l *log.Logger, s string, defaultVal time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		l.Warn("Invalid duration value. Using default",
			log.String("value", s),
			log.Duration("default", defaultVal))
		return defaultVal
	}
	return d
}
