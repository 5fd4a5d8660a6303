package geo

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/community-ingest/internal/model"
)

// ErrNoGazetteer is returned when the landmark file does not exist.
var ErrNoGazetteer = errors.New("geo: landmark file not found")

// BBox is a lon/lat bounding box: minLng, minLat, maxLng, maxLat.
type BBox [4]float64

// Bounds returns the box as a go-geom XY bounds.
func (b BBox) Bounds() *geom.Bounds {
	return geom.NewBounds(geom.XY).Set(b[0], b[1], b[2], b[3])
}

// IsZero reports whether the box is unset.
func (b BBox) IsZero() bool {
	return b == BBox{}
}

// entry is a landmark with its folded name and aliases.
type entry struct {
	landmark model.Landmark
	keys     []string
}

// Gazetteer is an ordered, read-only list of landmarks.
type Gazetteer struct {
	entries []entry
	dropped int
}

// NewGazetteer builds a gazetteer from landmarks, dropping entries with blank
// names or coordinates outside bbox. A zero bbox disables the bounds check.
func NewGazetteer(landmarks []model.Landmark, bbox BBox) *Gazetteer {
	g := &Gazetteer{}
	var bounds *geom.Bounds
	if !bbox.IsZero() {
		bounds = bbox.Bounds()
	}

	for _, lm := range landmarks {
		name := Fold(lm.Name)
		if name == "" {
			g.dropped++
			continue
		}
		if bounds != nil && !bounds.OverlapsPoint(geom.XY, lm.Point().Coords()) {
			zap.L().Warn("geo: dropping landmark outside bounding box",
				zap.String("landmark", lm.Name),
				zap.Float64("lat", lm.Lat),
				zap.Float64("lng", lm.Lng),
			)
			g.dropped++
			continue
		}

		e := entry{landmark: lm, keys: []string{name}}
		for _, a := range lm.Aliases {
			if k := Fold(a); k != "" {
				e.keys = append(e.keys, k)
			}
		}
		g.entries = append(g.entries, e)
	}
	return g
}

// LoadGazetteer reads landmarks from a JSON or YAML file, chosen by extension.
// A missing file returns ErrNoGazetteer.
func LoadGazetteer(path string, bbox BBox) (*Gazetteer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, eris.Wrapf(ErrNoGazetteer, "geo: %s", path)
		}
		return nil, eris.Wrapf(err, "geo: read %s", path)
	}

	var landmarks []model.Landmark
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &landmarks)
	default:
		err = json.Unmarshal(data, &landmarks)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "geo: decode %s", path)
	}

	g := NewGazetteer(landmarks, bbox)
	zap.L().Info("loaded gazetteer",
		zap.String("path", path),
		zap.Int("landmarks", g.Len()),
		zap.Int("dropped", g.dropped),
	)
	return g, nil
}

// Len returns the number of usable landmarks.
func (g *Gazetteer) Len() int {
	if g == nil {
		return 0
	}
	return len(g.entries)
}

// Dropped returns how many input landmarks were rejected.
func (g *Gazetteer) Dropped() int {
	if g == nil {
		return 0
	}
	return g.dropped
}

// Exact returns the first landmark whose folded name or alias equals key.
func (g *Gazetteer) Exact(key string) (model.Landmark, bool) {
	if g == nil || key == "" {
		return model.Landmark{}, false
	}
	for _, e := range g.entries {
		for _, k := range e.keys {
			if k == key {
				return e.landmark, true
			}
		}
	}
	return model.Landmark{}, false
}

// Contains returns the first landmark where key contains a folded name or
// alias, or a folded name or alias contains key.
func (g *Gazetteer) Contains(key string) (model.Landmark, bool) {
	if g == nil || key == "" {
		return model.Landmark{}, false
	}
	for _, e := range g.entries {
		for _, k := range e.keys {
			if strings.Contains(key, k) || strings.Contains(k, key) {
				return e.landmark, true
			}
		}
	}
	return model.Landmark{}, false
}
