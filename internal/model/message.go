package model

import (
	"encoding/json"
	"strings"
	"unicode/utf8"
)

// RawMessage is a single chat message as captured by the listening client.
// It is read-only input for the pipeline.
type RawMessage struct {
	ID                string   `json:"id"`
	Timestamp         string   `json:"timestamp"`
	SenderIdentifier  string   `json:"sender_identifier"`
	SenderDisplayName string   `json:"sender_display_name,omitempty"`
	GroupName         string   `json:"group_name,omitempty"`
	Text              string   `json:"text"`
	MediaURL          string   `json:"media_url,omitempty"`
	ExtractedLinks    []string `json:"extracted_links,omitempty"`
}

// legacyMessage mirrors the export format written by the original chat client,
// which used different key names for the same data.
type legacyMessage struct {
	ID          string `json:"id"`
	Timestamp   string `json:"timestamp"`
	SenderPhone string `json:"sender_phone"`
	SenderName  string `json:"sender_name"`
	GroupName   string `json:"group_name"`
	MessageBody string `json:"message_body"`
	MediaURL    string `json:"media_url"`
	Metadata    struct {
		Links []struct {
			URL string `json:"url"`
		} `json:"links"`
	} `json:"metadata"`
}

// UnmarshalJSON accepts both the current field names and the legacy export
// names (message_body, sender_phone, sender_name, metadata.links).
func (m *RawMessage) UnmarshalJSON(data []byte) error {
	type plain RawMessage
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	var legacy legacyMessage
	if err := json.Unmarshal(data, &legacy); err != nil {
		return err
	}

	if p.Text == "" {
		p.Text = legacy.MessageBody
	}
	if p.SenderIdentifier == "" {
		p.SenderIdentifier = legacy.SenderPhone
	}
	if p.SenderIdentifier == "" {
		// The oldest exports only carried the WhatsApp number in sender_name.
		p.SenderIdentifier = legacy.SenderName
	}
	if p.SenderDisplayName == "" && legacy.SenderName != p.SenderIdentifier {
		p.SenderDisplayName = legacy.SenderName
	}
	if len(p.ExtractedLinks) == 0 {
		for _, l := range legacy.Metadata.Links {
			if l.URL != "" {
				p.ExtractedLinks = append(p.ExtractedLinks, l.URL)
			}
		}
	}

	*m = RawMessage(p)
	return nil
}

// HasMedia reports whether the message carries a media attachment or links.
func (m RawMessage) HasMedia() bool {
	return m.MediaURL != "" || len(m.ExtractedLinks) > 0
}

// TextLen returns the trimmed text length in characters.
func (m RawMessage) TextLen() int {
	return utf8.RuneCountInString(strings.TrimSpace(m.Text))
}

// FilterByTextLength keeps messages whose trimmed text has at least min
// characters, preserving order.
func FilterByTextLength(msgs []RawMessage, min int) []RawMessage {
	out := make([]RawMessage, 0, len(msgs))
	for _, m := range msgs {
		if m.TextLen() >= min {
			out = append(out, m)
		}
	}
	return out
}
