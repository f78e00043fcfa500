package processor

import (
	"math"

	"github.com/mpapenbr/pipeflow/log"
)

// SurfaceBranch tells which rule produced a surface estimate.
type SurfaceBranch string

const (
	SurfaceCenter   SurfaceBranch = "center"   // no peak, pipe center assumed
	SurfaceFarWall  SurfaceBranch = "far-wall" // one peak, pipe classified empty
	SurfaceFirst    SurfaceBranch = "first"    // one peak, pipe classified full
	SurfaceSecond   SurfaceBranch = "second"   // several peaks, second one is the surface
	SurfaceRejected SurfaceBranch = "rejected" // candidate too far from the previous value
)

// SurfaceEstimator picks the water surface distance from the filtered peaks.
type SurfaceEstimator struct {
	farWallMM        float64
	centerMM         float64
	maxJumpMM        float64
	outlierRejection bool
	log              *log.Logger
}

func NewSurfaceEstimator(farWallMM, diameterMM float64, outlierRejection bool) *SurfaceEstimator {
	return &SurfaceEstimator{
		farWallMM:        farWallMM,
		centerMM:         farWallMM - diameterMM/2,
		maxJumpMM:        diameterMM / 8 * 5,
		outlierRejection: outlierRejection,
		log:              log.Default().Named("surface"),
	}
}

// Estimate returns the surface distance (mm) for this iteration. Without a
// filtered peak the pipe center is assumed. previous is the value accepted in
// the last iteration; it is only used to reject candidates that jump too far.
func (s *SurfaceEstimator) Estimate(
	filtered []Peak,
	indicator int,
	previous float64,
) (float64, SurfaceBranch) {
	candidate := s.centerMM
	branch := SurfaceCenter
	switch {
	case len(filtered) == 0:
	case len(filtered) == 1:
		if indicator < 0 {
			candidate = s.farWallMM
			branch = SurfaceFarWall
		} else {
			candidate = float64(filtered[0].DistanceMM)
			branch = SurfaceFirst
		}
	default:
		candidate = float64(filtered[1].DistanceMM)
		branch = SurfaceSecond
	}
	if s.outlierRejection && math.Abs(candidate-previous) > s.maxJumpMM {
		s.log.Debug("surface estimate rejected",
			log.Float64("candidate", candidate),
			log.Float64("previous", previous),
			log.String("branch", string(branch)))
		return previous, SurfaceRejected
	}
	return candidate, branch
}
