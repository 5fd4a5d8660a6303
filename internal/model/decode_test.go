package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeMap(t *testing.T, s string) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(s), &m))
	return m
}

func TestDecodeEvent_IgnoresOracleIDAndCoords(t *testing.T) {
	e := DecodeEvent(decodeMap(t, `{
		"id": "generated-uuid",
		"title": "Temazcal ceremony",
		"time": "7pm",
		"lat": 1.5, "lng": 2.5,
		"location_name": "Hridaya",
		"price": "200 MXN",
		"original_message_id": "m1"
	}`))

	assert.Empty(t, e.ID)
	assert.Nil(t, e.Lat)
	assert.Nil(t, e.Lng)
	assert.Equal(t, "Temazcal ceremony", e.Title)
	assert.Equal(t, "19:00:00", e.Time)
	assert.Equal(t, "Hridaya", e.LocationName)
	assert.Equal(t, "m1", e.OriginalMessageID)
	assert.Empty(t, e.Issues)
}

func TestDecodeEvent_InvalidDateAndTime(t *testing.T) {
	e := DecodeEvent(decodeMap(t, `{"title":"Cacao","date":"next sunday","time":"whenever"}`))

	assert.Empty(t, e.Date)
	assert.Empty(t, e.Time)
	assert.Len(t, e.Issues, 2)
}

func TestDecodeEvent_MissingTitle(t *testing.T) {
	e := DecodeEvent(decodeMap(t, `{"description":"something"}`))
	assert.Contains(t, e.Issues, "missing title")
}

func TestDecodePlace_LenientFields(t *testing.T) {
	p := DecodePlace(decodeMap(t, `{
		"name": "Cafe Luna",
		"type": "Cafe",
		"tags": "coffee, breakfast",
		"images": ["a.jpg", 3, "b.jpg"],
		"verified": "true",
		"contact_instagram": "https://instagram.com/cafeluna/?hl=es"
	}`))

	assert.Equal(t, "cafe", p.Type)
	assert.Equal(t, []string{"coffee", "breakfast"}, p.Tags)
	assert.Equal(t, []string{"a.jpg", "b.jpg"}, p.Images)
	assert.True(t, p.Verified)
	assert.Equal(t, "cafeluna", p.ContactInstagram)
}

func TestDecodeService_PriceCoercion(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  *float64
		issue bool
	}{
		{"number", `{"title":"Massage","price_amount":500}`, ptr(500), false},
		{"string number", `{"title":"Massage","price_amount":"$1,200"}`, ptr(1200), false},
		{"null", `{"title":"Massage","price_amount":null}`, nil, false},
		{"garbage", `{"title":"Massage","price_amount":"ask me"}`, nil, true},
		{"nan", `{"title":"Massage","price_amount":"NaN"}`, nil, true},
		{"infinity", `{"title":"Massage","price_amount":"inf"}`, nil, true},
		{"negative infinity", `{"title":"Massage","price_amount":"-Infinity"}`, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DecodeService(decodeMap(t, tt.input))
			assert.Equal(t, tt.want, s.PriceAmount)
			assert.Equal(t, tt.issue, len(s.Issues) > 0)
		})
	}
}

func TestDecode_NumberAsString(t *testing.T) {
	s := DecodeService(decodeMap(t, `{"title": 42, "price_currency": "mxn"}`))
	assert.Equal(t, "42", s.Title)
	assert.Equal(t, "MXN", s.PriceCurrency)
}

func TestNormalizeTime(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"7pm", "19:00:00", true},
		{"7:30 pm", "19:30:00", true},
		{"12am", "00:00:00", true},
		{"12 p.m.", "12:00:00", true},
		{"19:00", "19:00:00", true},
		{"09:15:30", "09:15:30", true},
		{"19", "", false},
		{"25:00", "", false},
		{"13pm", "", false},
		{"tonight", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := NormalizeTime(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRepairContact(t *testing.T) {
	c := Contact{
		ContactPhone:     "958-123-4567",
		ContactWhatsApp:  "call me",
		ContactInstagram: "@mazunte.yoga",
		ContactEmail:     " Hola@Example.COM ",
	}
	issues := RepairContact(&c)

	assert.Regexp(t, `^\d*9581234567$`, c.ContactPhone)
	assert.Empty(t, c.ContactWhatsApp)
	assert.Equal(t, "mazunte.yoga", c.ContactInstagram)
	assert.Equal(t, "hola@example.com", c.ContactEmail)
	require.Len(t, issues, 1)
	assert.Contains(t, issues[0], "contact_whatsapp")
}

func TestRepairContact_BadEmail(t *testing.T) {
	c := Contact{ContactEmail: "not an email"}
	issues := RepairContact(&c)
	assert.Empty(t, c.ContactEmail)
	assert.Len(t, issues, 1)
}

func ptr(f float64) *float64 { return &f }
