package model

import (
	"encoding/json"

	"github.com/twpayne/go-geom"
)

// Landmark is a gazetteer entry: a named place with coordinates and aliases.
type Landmark struct {
	Name    string   `json:"name" yaml:"name"`
	Aliases []string `json:"aliases" yaml:"aliases"`
	Lat     float64  `json:"lat" yaml:"lat"`
	Lng     float64  `json:"lng" yaml:"lng"`
}

// UnmarshalJSON also accepts latitude/longitude keys as written by the
// Google Places export.
func (l *Landmark) UnmarshalJSON(data []byte) error {
	type plain Landmark
	var p struct {
		plain
		Latitude  *float64 `json:"latitude"`
		Longitude *float64 `json:"longitude"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	if p.Latitude != nil && p.Lat == 0 {
		p.Lat = *p.Latitude
	}
	if p.Longitude != nil && p.Lng == 0 {
		p.Lng = *p.Longitude
	}
	*l = Landmark(p.plain)
	return nil
}

// Point returns the landmark location as an XY point (x=lng, y=lat) in SRID 4326.
func (l Landmark) Point() *geom.Point {
	return geom.NewPointFlat(geom.XY, []float64{l.Lng, l.Lat}).SetSRID(4326)
}
