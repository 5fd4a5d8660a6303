package extract

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/community-ingest/internal/model"
)

func TestParseResponse(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		outcome  Outcome
		events   int
		places   int
		services int
	}{
		{
			name:    "plain object",
			text:    `{"events":[{"title":"Yoga"}],"places":[],"services":[]}`,
			outcome: OutcomeOK,
			events:  1,
		},
		{
			name:    "json fence",
			text:    "```json\n{\"events\":[],\"places\":[{\"name\":\"Cafe\"}],\"services\":[]}\n```",
			outcome: OutcomeOK,
			places:  1,
		},
		{
			name:     "bare fence with prose",
			text:     "Here you go:\n```\n{\"services\":[{\"title\":\"Massage\"}]}\n```\nThanks",
			outcome:  OutcomeOK,
			services: 1,
		},
		{
			name:    "trailing commas",
			text:    `{"events":[{"title":"A","tags":["x",],},],"places":[],"services":[],}`,
			outcome: OutcomeOK,
			events:  1,
		},
		{
			name:    "truncated after complete candidate",
			text:    `{"events":[{"title":"A"},{"title":"B"},{"title":"C", "descr`,
			outcome: OutcomeOK,
			events:  2,
		},
		{
			name:    "empty object",
			text:    `{}`,
			outcome: OutcomeOK,
		},
		{
			name:    "not json",
			text:    "I could not find anything.",
			outcome: OutcomeParseError,
		},
		{
			name:    "empty",
			text:    "   ",
			outcome: OutcomeParseError,
		},
		{
			name:    "array top level",
			text:    `[{"title":"A"}]`,
			outcome: OutcomeSchemaError,
		},
		{
			name:    "key is not an array",
			text:    `{"events":{"title":"A"},"places":[],"services":[]}`,
			outcome: OutcomeSchemaError,
		},
		{
			name:    "unrelated keys",
			text:    `{"entities":[]}`,
			outcome: OutcomeSchemaError,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := ParseResponse(tt.text)
			assert.Equal(t, tt.outcome, resp.Outcome, "err: %v", resp.Err)
			if tt.outcome != OutcomeOK {
				assert.Error(t, resp.Err)
				return
			}
			assert.Len(t, resp.Candidates[model.KindEvent], tt.events)
			assert.Len(t, resp.Candidates[model.KindPlace], tt.places)
			assert.Len(t, resp.Candidates[model.KindService], tt.services)
		})
	}
}

func TestParseResponse_SkipsNonObjects(t *testing.T) {
	resp := ParseResponse(`{"events":["oops",{"title":"A"},3],"places":[],"services":[]}`)
	require.Equal(t, OutcomeOK, resp.Outcome)
	assert.Equal(t, 2, resp.Skipped)
	assert.Len(t, resp.Candidates[model.KindEvent], 1)
}

func TestStripTrailingCommas_PreservesStrings(t *testing.T) {
	in := `{"a":"x, ]","b":[1,2,],}`
	out := stripTrailingCommas(in)
	assert.Equal(t, `{"a":"x, ]","b":[1,2]}`, out)

	var v map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &v))
	assert.Equal(t, "x, ]", v["a"])
}

func TestRepairTruncatedJSON(t *testing.T) {
	assert.Equal(t, `{"a":[1,2]}`, repairTruncatedJSON(`{"a":[1,2,`))
	assert.Equal(t, `{"a":"}"}`, repairTruncatedJSON(`{"a":"}"}`))
	assert.Equal(t, "", repairTruncatedJSON(""))
}

func TestRenderBatch(t *testing.T) {
	out := RenderBatch([]model.RawMessage{
		{
			ID:                "m1",
			Timestamp:         "2025-01-10T18:00:00Z",
			SenderIdentifier:  "5219581234567",
			SenderDisplayName: "Ana",
			GroupName:         "Mazunte Events",
			Text:              "  Temazcal tonight at Hridaya 7pm  ",
			MediaURL:          "https://cdn.example/img.jpg",
			ExtractedLinks:    []string{"https://example.com"},
		},
		{ID: "m2", Text: "Cacao ceremony on sunday morning"},
	})

	assert.True(t, strings.HasPrefix(out, "Extract all events, places, and services from these 2 WhatsApp messages"))
	assert.Contains(t, out, "MESSAGE 1:\nID: m1\n")
	assert.Contains(t, out, "Sender WhatsApp: 5219581234567 (Ana)\n")
	assert.Contains(t, out, "Group: Mazunte Events\n")
	assert.Contains(t, out, "Text: Temazcal tonight at Hridaya 7pm\n")
	assert.Contains(t, out, "Has Media: Yes\n")
	assert.Contains(t, out, "Links: https://example.com\n")
	assert.Contains(t, out, "MESSAGE 2:\nID: m2\n")
	assert.Contains(t, out, "Has Media: No\n")
}

func TestSystemPrompt_Embedded(t *testing.T) {
	p := SystemPrompt()
	assert.Contains(t, p, "EVENTS")
	assert.Contains(t, p, "per-session")
	assert.Contains(t, p, "Temazcal")
}
