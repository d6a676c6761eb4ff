package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProject_HemisphereBoundary(t *testing.T) {
	p := NewProjector(280, 0.45)

	front := p.Project(0, 0, 45)
	assert.True(t, front.Visible)

	back := p.Project(0, 0, 135)
	assert.False(t, back.Visible)

	// The boundary itself is excluded: visibility requires strictly less
	// than 90 degrees of offset.
	edge := p.Project(0, 0, 90)
	assert.False(t, edge.Visible)
}

func TestProject_Deterministic(t *testing.T) {
	p := NewProjector(280, 0.45)

	a := p.Project(106.8456, -6.2088, 139.6503)
	b := p.Project(106.8456, -6.2088, 139.6503)
	assert.Equal(t, a, b)
}

func TestProject_LinearScaling(t *testing.T) {
	p := NewProjector(100, 0.5)

	center := p.Project(0, 0, 0)
	assert.Equal(t, 0.0, center.X)
	assert.Equal(t, 0.0, center.Y)

	// 45 degrees east is half the radius to the right.
	east := p.Project(0, 0, 45)
	assert.InDelta(t, 50.0, east.X, 1e-9)

	// 45 degrees north is half the radius up, squashed vertically.
	north := p.Project(0, 45, 0)
	assert.InDelta(t, -25.0, north.Y, 1e-9)
}

func TestProject_WrapsAcrossAntimeridian(t *testing.T) {
	p := NewProjector(100, 0.5)

	// Camera near the antimeridian: a point just across it is a small
	// offset, not a 350 degree swing.
	pt := p.Project(175, 0, -175)
	assert.True(t, pt.Visible)
	assert.InDelta(t, 10.0/90.0*100, pt.X, 1e-9)
}

func TestNormalizeLon(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{0, 0},
		{180, 180},
		{-180, 180},
		{190, -170},
		{-190, 170},
		{360, 0},
		{540, 180},
		{-540, 180},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, NormalizeLon(tt.in), 1e-9, "NormalizeLon(%v)", tt.in)
	}
}

func TestMercatorPoint(t *testing.T) {
	origin, err := MercatorPoint(0, 0)
	require.NoError(t, err)
	coords, ok := origin.Coordinates()
	require.True(t, ok)
	assert.InDelta(t, 0, coords.X, 1e-6)
	assert.InDelta(t, 0, coords.Y, 1e-6)

	// Full eastings at the antimeridian.
	edge, err := MercatorPoint(0, 180)
	require.NoError(t, err)
	coords, ok = edge.Coordinates()
	require.True(t, ok)
	assert.InDelta(t, 20037508.34, coords.X, 1.0)
}

func TestMercatorPoint_RejectsPoles(t *testing.T) {
	_, err := MercatorPoint(89.9, 0)
	assert.ErrorIs(t, err, ErrInvalidCoordinates)

	_, err = MercatorPoint(-89.9, 0)
	assert.ErrorIs(t, err, ErrInvalidCoordinates)
}
