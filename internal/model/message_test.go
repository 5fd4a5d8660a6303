package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRawMessage_UnmarshalCurrentFormat(t *testing.T) {
	var m RawMessage
	require.NoError(t, json.Unmarshal([]byte(`{
		"id": "m1",
		"timestamp": "2025-10-26T20:18:32Z",
		"sender_identifier": "5219581234567",
		"sender_display_name": "Maria",
		"group_name": "Mazunte Events",
		"text": "Temazcal tonight",
		"media_url": "https://cdn/x.jpg",
		"extracted_links": ["https://example.com"]
	}`), &m))

	assert.Equal(t, "5219581234567", m.SenderIdentifier)
	assert.Equal(t, "Maria", m.SenderDisplayName)
	assert.Equal(t, "Temazcal tonight", m.Text)
	assert.Equal(t, []string{"https://example.com"}, m.ExtractedLinks)
	assert.True(t, m.HasMedia())
}

func TestRawMessage_UnmarshalLegacyFormat(t *testing.T) {
	var m RawMessage
	require.NoError(t, json.Unmarshal([]byte(`{
		"id": "m2",
		"sender_phone": "529581234567",
		"sender_name": "Juan",
		"message_body": "Yoga class at Hridaya",
		"metadata": {"links": [{"url": "https://maps.app.goo.gl/abc"}, {"url": ""}]}
	}`), &m))

	assert.Equal(t, "529581234567", m.SenderIdentifier)
	assert.Equal(t, "Juan", m.SenderDisplayName)
	assert.Equal(t, "Yoga class at Hridaya", m.Text)
	assert.Equal(t, []string{"https://maps.app.goo.gl/abc"}, m.ExtractedLinks)
}

func TestFilterByTextLength(t *testing.T) {
	msgs := []RawMessage{
		{ID: "a", Text: "short"},
		{ID: "b", Text: "   this one is long enough to keep   "},
		{ID: "c", Text: "ñññññññññññññññññññ"}, // 19 runes
		{ID: "d", Text: "ññññññññññññññññññññ"}, // 20 runes
	}
	got := FilterByTextLength(msgs, 20)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].ID)
	assert.Equal(t, "d", got[1].ID)
}

func TestLandmark_UnmarshalLatitudeLongitude(t *testing.T) {
	var l Landmark
	require.NoError(t, json.Unmarshal([]byte(`{"name":"Hridaya Yoga","latitude":15.66,"longitude":-96.54}`), &l))
	assert.Equal(t, 15.66, l.Lat)
	assert.Equal(t, -96.54, l.Lng)

	pt := l.Point()
	assert.Equal(t, -96.54, pt.X())
	assert.Equal(t, 15.66, pt.Y())
}

func TestProgressState_Sets(t *testing.T) {
	p := NewProgressState()
	assert.Equal(t, 0, p.NextIndex())

	p.MarkFailed([]string{"m3", "m4"})
	p.MarkProcessed([]string{"m2", "m1", "m3"})
	p.MarkProcessed([]string{"m1"})

	assert.Equal(t, []string{"m1", "m2", "m3"}, p.ProcessedMessageIDs)
	assert.Equal(t, []string{"m4"}, p.FailedMessageIDs)
	assert.True(t, p.IsProcessed("m2"))
	assert.False(t, p.IsProcessed("m4"))
}
