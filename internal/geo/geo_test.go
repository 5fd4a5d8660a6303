package geo

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/community-ingest/internal/model"
)

var testBBox = BBox{-97.5, 15.0, -95.5, 16.5}

func testGazetteer() *Gazetteer {
	return NewGazetteer([]model.Landmark{
		{Name: "Hridaya Yoga", Aliases: []string{"Hridaya", "Hridaya Yoga Center"}, Lat: 15.6666347, Lng: -96.5484559},
		{Name: "Playa Mermejita", Aliases: []string{"Mermejita"}, Lat: 15.6602, Lng: -96.5648},
		{Name: "Café Luna", Lat: 15.6690, Lng: -96.5550},
	}, testBBox)
}

func TestFold(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Foro Escénico, Mermejita!", "foro escenico mermejita"},
		{"  HRIDAYA - Salón Nitya ", "hridaya salon nitya"},
		{"Piñata @ Playa", "pinata playa"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Fold(tt.in))
		})
	}
}

func TestResolve(t *testing.T) {
	r := NewResolver(testGazetteer(), DefaultCenter)

	tests := []struct {
		name     string
		location string
		found    bool
		source   model.CoordSource
		lat      float64
		landmark string
	}{
		{"exact alias", "Hridaya", true, model.CoordSourceLandmark, 15.6666347, "Hridaya Yoga"},
		{"exact name with accent", "cafe luna", true, model.CoordSourceLandmark, 15.6690, "Café Luna"},
		{"location contains landmark", "Beach at Mermejita, sunset", true, model.CoordSourceLandmark, 15.6602, "Playa Mermejita"},
		{"landmark contains location", "hridaya yoga cent", true, model.CoordSourceLandmark, 15.6666347, "Hridaya Yoga"},
		{"known colloquial name", "Bliss Haven", true, model.CoordSourceAlias, 15.6677938, "bliss haven"},
		{"known locality name", "Mazunte, México", true, model.CoordSourceDefault, DefaultCenter.Lat, ""},
		{"online", "Online via Zoom", false, model.CoordSourceNone, 0, ""},
		{"unmatched", "Some random hut", true, model.CoordSourceDefault, DefaultCenter.Lat, ""},
		{"empty", "  ", false, model.CoordSourceNone, 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := r.Resolve(tt.location)
			assert.Equal(t, tt.found, m.Found)
			assert.Equal(t, tt.source, m.Source)
			assert.InDelta(t, tt.lat, m.Lat, 1e-9)
			assert.Equal(t, tt.landmark, m.Landmark)
		})
	}
}

func TestResolve_OnlineStillMatchesLandmark(t *testing.T) {
	r := NewResolver(testGazetteer(), DefaultCenter)
	m := r.Resolve("Hridaya (also online)")
	assert.True(t, m.Found)
	assert.Equal(t, "Hridaya Yoga", m.Landmark)
}

func TestResolvePlace_NameFirst(t *testing.T) {
	r := NewResolver(testGazetteer(), DefaultCenter)

	m := r.ResolvePlace(&model.Place{Name: "Hridaya", Common: model.Common{LocationName: "Mermejita"}})
	assert.Equal(t, "Hridaya Yoga", m.Landmark)

	m = r.ResolvePlace(&model.Place{Name: "Tiny shop", Common: model.Common{LocationName: "Mermejita"}})
	assert.Equal(t, "Playa Mermejita", m.Landmark)

	m = r.ResolvePlace(&model.Place{Name: "Tiny shop"})
	assert.Equal(t, model.CoordSourceDefault, m.Source)

	m = r.ResolvePlace(&model.Place{Name: "Online tarot"})
	assert.False(t, m.Found)
}

func TestApply(t *testing.T) {
	r := NewResolver(testGazetteer(), DefaultCenter)
	ents := &model.Entities{
		Events: []*model.Event{
			{Common: model.Common{LocationName: "Hridaya"}, Title: "Temazcal"},
			{Common: model.Common{LocationName: "online"}, Title: "Webinar"},
			{Title: "No location"},
		},
		Places:   []*model.Place{{Name: "Café Luna"}},
		Services: []*model.Service{{Common: model.Common{LocationName: "my house"}, Title: "Reiki"}},
	}

	st := r.Apply(ents)
	assert.Equal(t, Stats{Landmark: 2, Default: 1, None: 2}, st)

	ev := ents.Events[0]
	require.NotNil(t, ev.Lat)
	assert.InDelta(t, 15.6666347, *ev.Lat, 1e-9)
	assert.InDelta(t, -96.5484559, *ev.Lng, 1e-9)
	assert.Equal(t, model.CoordSourceLandmark, ev.CoordSource)
	assert.Equal(t, "Hridaya Yoga", ev.MatchedLandmark)

	assert.Nil(t, ents.Events[1].Lat)
	assert.Nil(t, ents.Events[2].Lat)
	assert.Equal(t, model.CoordSourceDefault, ents.Services[0].CoordSource)
}

func TestApply_NoGazetteerLeavesCoordinatesEmpty(t *testing.T) {
	lat, lng := 1.0, 2.0
	ents := &model.Entities{Events: []*model.Event{{Common: model.Common{LocationName: "Hridaya", Lat: &lat, Lng: &lng}}}}

	st := NewResolver(nil, DefaultCenter).Apply(ents)
	assert.Equal(t, 1, st.None)
	assert.Nil(t, ents.Events[0].Lat)
	assert.Nil(t, ents.Events[0].Lng)
}

func TestNewGazetteer_DropsInvalid(t *testing.T) {
	g := NewGazetteer([]model.Landmark{
		{Name: "Good", Lat: 15.66, Lng: -96.55},
		{Name: "Swapped", Lat: -96.55, Lng: 15.66},
		{Name: "  ", Lat: 15.66, Lng: -96.55},
	}, testBBox)
	assert.Equal(t, 1, g.Len())
	assert.Equal(t, 2, g.Dropped())

	g = NewGazetteer([]model.Landmark{{Name: "Anywhere", Lat: 40, Lng: -70}}, BBox{})
	assert.Equal(t, 1, g.Len(), "zero bbox disables the check")
}

func TestLoadGazetteer(t *testing.T) {
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "landmarks.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`[
		{"name": "Hridaya Yoga", "aliases": ["Hridaya"], "latitude": 15.6666347, "longitude": -96.5484559}
	]`), 0o644))
	g, err := LoadGazetteer(jsonPath, testBBox)
	require.NoError(t, err)
	lm, ok := g.Exact("hridaya")
	require.True(t, ok)
	assert.InDelta(t, 15.6666347, lm.Lat, 1e-9)

	yamlPath := filepath.Join(dir, "landmarks.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(`
- name: Casa Corzo
  aliases: [Corzo]
  lat: 15.6682
  lng: -96.5538
`), 0o644))
	g, err = LoadGazetteer(yamlPath, testBBox)
	require.NoError(t, err)
	_, ok = g.Exact("corzo")
	assert.True(t, ok)

	_, err = LoadGazetteer(filepath.Join(dir, "missing.json"), testBBox)
	assert.True(t, errors.Is(err, ErrNoGazetteer))

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{`), 0o644))
	_, err = LoadGazetteer(bad, testBBox)
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrNoGazetteer))
}
