package geo

import (
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/community-ingest/internal/model"
)

// Point is a WGS84 coordinate.
type Point struct {
	Lat float64
	Lng float64
}

// DefaultCenter is the Mazunte town center.
var DefaultCenter = Point{Lat: 15.6685, Lng: -96.5542}

// knownLocation is a colloquial venue name the gazetteer does not cover.
// A nil point resolves to the configured center.
type knownLocation struct {
	name  string
	point *Point
}

// knownLocations maps venue spellings seen in the community chats to
// surveyed coordinates.
var knownLocations = []knownLocation{
	{"mazunte", nil},
	{"mazunte, mexico", nil},
	{"meditation station", &Point{15.6665628, -96.5499399}},
	{"hridaya yoga", &Point{15.6666347, -96.5484559}},
	{"hridaya - salón nitya", &Point{15.6666347, -96.5484559}},
	{"hridaya - nitya hall", &Point{15.6666347, -96.5484559}},
	{"hridaya - anugraha hall", &Point{15.6666347, -96.5484559}},
	{"bliss haven", &Point{15.6677938, -96.5508185}},
	{"casa corzo", &Point{15.6682, -96.5538}},
	{"kinam mazunte", &Point{15.6688677, -96.5538273}},
	{"foro escénico alternativo mermejita", &Point{15.6602, -96.5648}},
	{"hotel noga, zipolite", &Point{15.6675, -96.553}},
	{"el chiringuito", &Point{15.6678, -96.5525}},
	{"la galera, zipolite", &Point{15.6655, -96.5215}},
	{"wamba", &Point{15.6683, -96.5528}},
	{"camp, zipolite", &Point{15.6658, -96.522}},
	{"cenzontle, calle rinconcito", &Point{15.668, -96.552}},
}

// Match is the outcome of resolving one location name. Found is false when
// the entity should carry no coordinates.
type Match struct {
	Point
	Found    bool
	Source   model.CoordSource
	Landmark string
}

// Stats counts resolutions by source.
type Stats struct {
	Landmark int `json:"landmark"`
	Alias    int `json:"alias"`
	Default  int `json:"default"`
	None     int `json:"none"`
}

func (s *Stats) add(src model.CoordSource) {
	switch src {
	case model.CoordSourceLandmark:
		s.Landmark++
	case model.CoordSourceAlias:
		s.Alias++
	case model.CoordSourceDefault:
		s.Default++
	default:
		s.None++
	}
}

// Resolver maps location names to coordinates.
type Resolver struct {
	gaz    *Gazetteer
	center Point
	known  map[string]*Point
}

// NewResolver creates a Resolver. gaz may be nil, in which case Apply leaves
// every entity without coordinates.
func NewResolver(gaz *Gazetteer, center Point) *Resolver {
	r := &Resolver{gaz: gaz, center: center, known: make(map[string]*Point, len(knownLocations))}
	for _, k := range knownLocations {
		r.known[Fold(k.name)] = k.point
	}
	return r
}

// match runs the ordered lookups: exact gazetteer key, substring either way,
// then the known-location table.
func (r *Resolver) match(key string) (Match, bool) {
	if key == "" {
		return Match{}, false
	}
	if lm, ok := r.gaz.Exact(key); ok {
		return landmarkMatch(lm), true
	}
	if lm, ok := r.gaz.Contains(key); ok {
		return landmarkMatch(lm), true
	}
	if p, ok := r.known[key]; ok {
		if p == nil {
			return r.fallback(), true
		}
		return Match{Point: *p, Found: true, Source: model.CoordSourceAlias, Landmark: key}, true
	}
	return Match{}, false
}

func landmarkMatch(lm model.Landmark) Match {
	return Match{
		Point:    Point{Lat: lm.Lat, Lng: lm.Lng},
		Found:    true,
		Source:   model.CoordSourceLandmark,
		Landmark: lm.Name,
	}
}

func (r *Resolver) fallback() Match {
	return Match{Point: r.center, Found: true, Source: model.CoordSourceDefault}
}

// Resolve maps a free-text location. Empty text and text mentioning "online"
// resolve to no coordinates; anything else unmatched gets the default center.
func (r *Resolver) Resolve(location string) Match {
	key := Fold(location)
	if key == "" {
		return Match{Source: model.CoordSourceNone}
	}
	if m, ok := r.match(key); ok {
		return m
	}
	if strings.Contains(key, "online") {
		return Match{Source: model.CoordSourceNone}
	}
	return r.fallback()
}

// ResolvePlace tries the place name against the gazetteer first, then its
// location text. Places always get a coordinate unless they are online.
func (r *Resolver) ResolvePlace(p *model.Place) Match {
	if m, ok := r.match(Fold(p.Name)); ok {
		return m
	}
	if strings.TrimSpace(p.LocationName) != "" {
		return r.Resolve(p.LocationName)
	}
	if strings.Contains(Fold(p.Name), "online") {
		return Match{Source: model.CoordSourceNone}
	}
	return r.fallback()
}

// Apply sets coordinates and provenance on every entity. Coordinates supplied
// earlier are always replaced.
func (r *Resolver) Apply(ents *model.Entities) Stats {
	var st Stats
	if r.gaz == nil {
		for _, e := range ents.All() {
			e.Base().ClearCoords(model.CoordSourceNone)
			st.None++
		}
		zap.L().Warn("geo: no gazetteer loaded, coordinates left empty", zap.Int("entities", st.None))
		return st
	}

	for _, e := range ents.All() {
		var m Match
		if p, ok := e.(*model.Place); ok {
			m = r.ResolvePlace(p)
		} else {
			m = r.Resolve(e.Base().LocationName)
		}
		set(e.Base(), m)
		st.add(m.Source)
	}

	zap.L().Info("resolved coordinates",
		zap.String("stage", "geocode"),
		zap.Int("landmark", st.Landmark),
		zap.Int("alias", st.Alias),
		zap.Int("default", st.Default),
		zap.Int("none", st.None),
	)
	return st
}

func set(c *model.Common, m Match) {
	if !m.Found {
		c.ClearCoords(model.CoordSourceNone)
		return
	}
	c.SetCoords(m.Lat, m.Lng, m.Source, m.Landmark)
}
