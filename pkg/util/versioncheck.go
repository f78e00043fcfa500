package util

import (
	"fmt"
	"strings"

	"golang.org/x/mod/semver"
)

const (
	RequiredFirmwareVersion string = "v2.0.0"
)

// CheckFirmwareVersion reports whether the version announced by the sensor
// board is at least RequiredFirmwareVersion. The leading "v" is optional.
func CheckFirmwareVersion(toCheck string) (bool, error) {
	v := canonicalVersion(toCheck)
	if !semver.IsValid(v) {
		return false, fmt.Errorf("invalid firmware version %q", toCheck)
	}
	return semver.Compare(v, RequiredFirmwareVersion) >= 0, nil
}

func canonicalVersion(toCheck string) string {
	v := strings.TrimSpace(toCheck)
	// the board may append a build suffix separated by a blank
	if idx := strings.IndexByte(v, ' '); idx > 0 {
		v = v[:idx]
	}
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return v
}
