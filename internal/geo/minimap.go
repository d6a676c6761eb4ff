package geo

import (
	"errors"

	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/wroge/wgs84"
)

// ErrInvalidCoordinates is returned for latitudes outside the Web
// Mercator domain.
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

// Web Mercator is undefined at the poles; clip like map tiles do.
const maxMercatorLat = 85.06

// MercatorPoint converts WGS84 (lat, lon) to an EPSG:3857 point for the
// minimap overlay, which renders in the same projection as its map tiles.
func MercatorPoint(lat, lon float64) (geom.Point, error) {
	if lat < -maxMercatorLat || lat > maxMercatorLat {
		return geom.Point{}, ErrInvalidCoordinates
	}
	epsg := wgs84.EPSG()
	f := epsg.Transform(4326, 3857)
	x, y, _ := f(lon, lat, 0)
	pt, err := geom.NewPoint(
		geom.Coordinates{
			XY: geom.XY{X: x, Y: y},
		},
	)
	if err != nil {
		return geom.Point{}, err
	}
	return pt, nil
}
