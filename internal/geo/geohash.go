package geo

import (
	"math"
	"sort"

	"github.com/mmcloughlin/geohash"
)

// MaxPrecision is the longest geohash stored for users and reports
const MaxPrecision = 10

// metersPerDegreeLat is the length of one degree of latitude on the sphere
const metersPerDegreeLat = EarthRadiusMeters * math.Pi / 180

// rangeEnd sorts after every base32 geohash character
const rangeEnd = "~"

// Bound is a half-open geohash string range [Start, End)
type Bound struct {
	Start string
	End   string
}

// Encode returns the geohash of a point at full stored precision
func Encode(p Point) string {
	return geohash.EncodeWithPrecision(p.Lat, p.Lng, MaxPrecision)
}

// QueryBounds returns geohash ranges that together cover the circle of
// radiusMeters around center. The union over-approximates the circle:
// it is the 3x3 block of cells around the center cell, at the finest
// precision whose cells are at least radiusMeters on each side.
func QueryBounds(center Point, radiusMeters float64) []Bound {
	precision := precisionFor(center, radiusMeters)
	if precision == 0 {
		// Radius larger than any cell: the whole keyspace
		return []Bound{{Start: "", End: rangeEnd}}
	}

	hash := geohash.EncodeWithPrecision(center.Lat, center.Lng, precision)
	cells := append([]string{hash}, geohash.Neighbors(hash)...)

	seen := make(map[string]bool, len(cells))
	var bounds []Bound
	for _, cell := range cells {
		if cell == "" || seen[cell] {
			continue
		}
		seen[cell] = true
		bounds = append(bounds, Bound{Start: cell, End: cell + rangeEnd})
	}

	sort.Slice(bounds, func(i, j int) bool { return bounds[i].Start < bounds[j].Start })
	return bounds
}

// precisionFor picks the longest precision whose cell at center is at
// least radiusMeters wide and tall, or 0 when even a 1-char cell is too small.
func precisionFor(center Point, radiusMeters float64) uint {
	for p := uint(MaxPrecision); p >= 1; p-- {
		box := geohash.BoundingBox(geohash.EncodeWithPrecision(center.Lat, center.Lng, p))
		height := (box.MaxLat - box.MinLat) * metersPerDegreeLat
		width := (box.MaxLng - box.MinLng) * metersPerDegreeLat * math.Cos(toRadians(center.Lat))
		if math.Min(width, height) >= radiusMeters {
			return p
		}
	}
	return 0
}

// Contains reports whether hash falls inside the bound
func (b Bound) Contains(hash string) bool {
	return hash >= b.Start && hash < b.End
}
