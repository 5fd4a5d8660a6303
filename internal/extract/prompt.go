package extract

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/sells-group/community-ingest/internal/model"
)

//go:embed prompts/system.txt
var systemPrompt string

// SystemPrompt returns the fixed instruction sent with every batch.
func SystemPrompt() string {
	return systemPrompt
}

// RenderBatch serializes a batch of messages into the user payload.
func RenderBatch(msgs []model.RawMessage) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Extract all events, places, and services from these %d WhatsApp messages:\n\n", len(msgs))

	for i, m := range msgs {
		fmt.Fprintf(&b, "MESSAGE %d:\n", i+1)
		fmt.Fprintf(&b, "ID: %s\n", m.ID)
		fmt.Fprintf(&b, "Date: %s\n", m.Timestamp)
		sender := m.SenderIdentifier
		if m.SenderDisplayName != "" {
			sender = fmt.Sprintf("%s (%s)", m.SenderIdentifier, m.SenderDisplayName)
		}
		fmt.Fprintf(&b, "Sender WhatsApp: %s\n", sender)
		if m.GroupName != "" {
			fmt.Fprintf(&b, "Group: %s\n", m.GroupName)
		}
		fmt.Fprintf(&b, "Text: %s\n", strings.TrimSpace(m.Text))
		if m.HasMedia() {
			b.WriteString("Has Media: Yes\n")
		} else {
			b.WriteString("Has Media: No\n")
		}
		if len(m.ExtractedLinks) > 0 {
			fmt.Fprintf(&b, "Links: %s\n", strings.Join(m.ExtractedLinks, ", "))
		}
		b.WriteString("---\n\n")
	}

	b.WriteString(`Return ONLY valid JSON with this structure:
{"events": [...], "places": [...], "services": [...]}`)
	return b.String()
}
