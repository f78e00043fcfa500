package processor

import (
	"errors"
	"fmt"
	"math"
)

var ErrGeometryDomain = errors.New("water level outside of pipe geometry")

// Hydraulics holds the constants of Manning's equation for a circular pipe.
type Hydraulics struct {
	DiameterM float64
	Roughness float64 // Manning's n
	Slope     float64 // S (m/m)
}

// FlowResult holds the partially filled pipe geometry and the flow rate.
type FlowResult struct {
	LevelM          float64 `json:"levelM"`
	Theta           float64 `json:"theta"`           // central angle of the wetted arc (rad)
	WettedPerimeter float64 `json:"wettedPerimeter"` // m
	Area            float64 `json:"area"`            // m²
	HydraulicRadius float64 `json:"hydraulicRadius"` // m
	Rate            float64 `json:"rate"`            // m³/s
}

// Flow computes the flow rate for a water level given in mm. The level is
// clamped to [0, diameter].
func (h Hydraulics) Flow(levelMM float64) (FlowResult, error) {
	if math.IsNaN(levelMM) {
		return FlowResult{}, fmt.Errorf("%w: level is NaN", ErrGeometryDomain)
	}
	d := h.DiameterM
	r := d / 2
	level := gate(levelMM/1000, 0, d)
	ret := FlowResult{LevelM: level}
	if level == 0 {
		return ret, nil
	}
	arg := 1 - level/r
	if arg < -1 || arg > 1 {
		return FlowResult{LevelM: level}, fmt.Errorf("%w: acos(%v)", ErrGeometryDomain, arg)
	}
	ret.Theta = 2 * math.Acos(arg)
	ret.WettedPerimeter = r * ret.Theta
	ret.Area = r * r * (ret.Theta - math.Sin(ret.Theta)) / 2
	ret.HydraulicRadius = ret.Area / ret.WettedPerimeter
	ret.Rate = (1 / h.Roughness) * ret.Area * math.Pow(ret.HydraulicRadius, 2.0/3.0) * math.Sqrt(h.Slope)
	return ret, nil
}

// FullFlow is the flow rate of the completely filled pipe.
func (h Hydraulics) FullFlow() float64 {
	r := h.DiameterM / 2
	return (1 / h.Roughness) * math.Pi * r * r * math.Pow(r/2, 2.0/3.0) * math.Sqrt(h.Slope)
}
