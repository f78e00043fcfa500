package util

import (
	"context"
	"os"
	"time"

	"github.com/mpapenbr/pipeflow/log"
)

// WaitForDevice waits until the serial device at path exists. The sensor board
// shows up only after it has been powered. Returns false if the timeout expires
// or ctx is done first.
func WaitForDevice(ctx context.Context, path string, timeout time.Duration) bool {
	if _, err := os.Stat(path); err == nil {
		return true
	}
	if timeout <= 0 {
		return false
	}
	log.Info("Waiting for sensor device", log.String("device", path), log.String("timeout", timeout.String()))
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
			if _, err := os.Stat(path); err == nil {
				log.Debug("Sensor device available", log.String("device", path))
				return true
			}
		}
	}
}
