package units

import "github.com/golang/geo/r2"

// Calibration maps a position in tracker coordinates (usually image pixels)
// to metric ground-plane coordinates in metres. Camera calibration itself
// lives outside this module; callers inject the resulting mapping.
type Calibration func(p r2.Point) r2.Point

// IdentityCalibration is used when positions are already metric.
func IdentityCalibration(p r2.Point) r2.Point { return p }

// ScaleCalibration returns a uniform metres-per-pixel mapping.
func ScaleCalibration(metresPerPixel float64) Calibration {
	return func(p r2.Point) r2.Point {
		return p.Mul(metresPerPixel)
	}
}

// OrIdentity returns c, or IdentityCalibration when c is nil.
func (c Calibration) OrIdentity() Calibration {
	if c == nil {
		return IdentityCalibration
	}
	return c
}
