// Package geo converts geographic coordinates into HUD screen space: a
// camera-relative globe projection for the 3D layer and a Web Mercator
// conversion for the flat minimap overlay.
package geo

import "math"

// visibleHalfAngle is the hemisphere cull boundary in degrees of
// longitude from the camera heading.
const visibleHalfAngle = 90.0

// Projector maps camera-relative geographic coordinates onto the screen.
// Radius is the globe radius in pixels; Squash compresses the vertical
// axis to suggest curvature. The zero value is unusable; use NewProjector.
type Projector struct {
	Radius float64
	Squash float64
}

// NewProjector creates a projector with the given pixel radius and
// vertical compression factor.
func NewProjector(radius, squash float64) Projector {
	return Projector{Radius: radius, Squash: squash}
}

// Point is a projected screen position plus its hemisphere visibility.
type Point struct {
	X       float64
	Y       float64
	Visible bool
}

// Project maps a target (lat, lon) onto screen space relative to the
// camera longitude. The display is centered on the camera heading; the
// point is visible iff its longitude offset is strictly inside the front
// hemisphere. Pure and deterministic: called once per marker per frame.
func (p Projector) Project(camLon, lat, lon float64) Point {
	dlon := NormalizeLon(lon - camLon)
	return Point{
		X:       dlon / visibleHalfAngle * p.Radius,
		Y:       -lat / visibleHalfAngle * p.Radius * p.Squash,
		Visible: math.Abs(dlon) < visibleHalfAngle,
	}
}

// NormalizeLon wraps a longitude offset into (-180, 180].
func NormalizeLon(lon float64) float64 {
	lon = math.Mod(lon, 360)
	if lon > 180 {
		lon -= 360
	} else if lon <= -180 {
		lon += 360
	}
	return lon
}
