// Package link attaches media URLs and hyperlinks from the raw messages to the
// entities extracted from them.
package link

import (
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/community-ingest/internal/model"
)

// nonWebsiteHosts marks links that are never a place's own website.
var nonWebsiteHosts = []string{"maps.google", "maps.app.goo.gl", "goo.gl/maps", "instagram.com"}

// WebsiteLink returns the first link that is not a maps or social link.
func WebsiteLink(links []string) string {
	for _, l := range links {
		lower := strings.ToLower(l)
		skip := false
		for _, h := range nonWebsiteHosts {
			if strings.Contains(lower, h) {
				skip = true
				break
			}
		}
		if !skip && strings.TrimSpace(l) != "" {
			return l
		}
	}
	return ""
}

// Stats counts how entities were linked.
type Stats struct {
	ByMessageID int `json:"by_message_id"`
	BySender    int `json:"by_sender"`
	Websites    int `json:"websites"`
	WithLinks   int `json:"with_links"`
}

// Linker holds the message indexes used for matching.
type Linker struct {
	byID     map[string]model.RawMessage
	bySender map[string][]model.RawMessage
}

// NewLinker indexes messages that carry media or links by id, and messages
// that carry media by normalized sender.
func NewLinker(msgs []model.RawMessage) *Linker {
	l := &Linker{
		byID:     make(map[string]model.RawMessage),
		bySender: make(map[string][]model.RawMessage),
	}
	for _, m := range msgs {
		if !m.HasMedia() {
			continue
		}
		if m.ID != "" {
			l.byID[m.ID] = m
		}
		if m.MediaURL == "" {
			continue
		}
		if sender := NormalizePhone(m.SenderIdentifier); sender != "" {
			l.bySender[sender] = append(l.bySender[sender], m)
		}
	}
	return l
}

// Link updates every entity in place and returns counts.
func (l *Linker) Link(ents *model.Entities) Stats {
	var st Stats
	for _, e := range ents.All() {
		l.linkOne(e, &st)
	}
	zap.L().Info("linked media",
		zap.String("stage", "link"),
		zap.Int("by_message_id", st.ByMessageID),
		zap.Int("by_sender", st.BySender),
		zap.Int("websites", st.Websites),
	)
	return st
}

func (l *Linker) linkOne(e model.Entity, st *Stats) {
	c := e.Base()
	c.ContactWhatsApp = NormalizePhone(c.ContactWhatsApp)
	c.ContactPhone = NormalizePhone(c.ContactPhone)

	linked := false
	if msg, ok := l.byID[c.OriginalMessageID]; ok {
		if len(msg.ExtractedLinks) > 0 {
			before := len(c.Links)
			c.Links = appendMissing(c.Links, msg.ExtractedLinks...)
			if before == 0 {
				st.WithLinks++
			}
			if p, ok := e.(*model.Place); ok && p.WebsiteURL == "" {
				if site := WebsiteLink(msg.ExtractedLinks); site != "" {
					p.WebsiteURL = site
					st.Websites++
				}
			}
		}
		if msg.MediaURL != "" {
			attachMedia(e, msg.MediaURL)
			st.ByMessageID++
			linked = true
		}
	}
	if linked || c.ContactWhatsApp == "" {
		return
	}

	if msg, ok := l.bestSenderMatch(e); ok {
		attachMedia(e, msg.MediaURL)
		st.BySender++
	}
}

// bestSenderMatch picks the media message from the entity's WhatsApp number
// whose text shares the most words with the entity. Ties prefer a message
// with body text, then the earlier message.
func (l *Linker) bestSenderMatch(e model.Entity) (model.RawMessage, bool) {
	candidates := l.bySender[e.Base().ContactWhatsApp]
	switch len(candidates) {
	case 0:
		return model.RawMessage{}, false
	case 1:
		return candidates[0], true
	}

	text := e.MatchText()
	best, bestScore, bestHasText := 0, -1, false
	for i, m := range candidates {
		score := Similarity(text, m.Text)
		hasText := strings.TrimSpace(m.Text) != ""
		if score > bestScore || (score == bestScore && hasText && !bestHasText) {
			best, bestScore, bestHasText = i, score, hasText
		}
	}
	return candidates[best], true
}

func attachMedia(e model.Entity, url string) {
	switch v := e.(type) {
	case *model.Place:
		v.Images = appendMissing(v.Images, url)
	case *model.Event:
		if v.ImageURL == "" {
			v.ImageURL = url
		}
	case *model.Service:
		if v.ImageURL == "" {
			v.ImageURL = url
		}
	}
}

func appendMissing(list []string, items ...string) []string {
	for _, it := range items {
		found := false
		for _, have := range list {
			if have == it {
				found = true
				break
			}
		}
		if !found {
			list = append(list, it)
		}
	}
	return list
}
