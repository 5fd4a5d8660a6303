package finalize

import "github.com/sells-group/community-ingest/internal/model"

// EventCompleteness buckets an event by its descriptive fields.
func EventCompleteness(e *model.Event) model.Completeness {
	switch {
	case len(e.Issues) > 0:
		return model.CompletenessSparse
	case e.Description != "" && e.Date != "" && e.Time != "" && e.LocationName != "":
		return model.CompletenessComplete
	case e.Description != "" && (e.Date != "" || e.Time != ""):
		return model.CompletenessPartial
	}
	return model.CompletenessSparse
}

// PlaceCompleteness buckets a place by description and WhatsApp contact.
func PlaceCompleteness(p *model.Place) model.Completeness {
	hasDesc, hasWA := p.Description != "", p.ContactWhatsApp != ""
	switch {
	case len(p.Issues) > 0:
		return model.CompletenessSparse
	case hasDesc && hasWA:
		return model.CompletenessComplete
	case hasDesc || hasWA:
		return model.CompletenessPartial
	}
	return model.CompletenessSparse
}

// ServiceCompleteness buckets a service by description, category and price.
func ServiceCompleteness(s *model.Service) model.Completeness {
	hasPrice := s.PriceType != "" || s.PriceAmount != nil
	switch {
	case len(s.Issues) > 0:
		return model.CompletenessSparse
	case s.Description != "" && s.Category != "" && hasPrice:
		return model.CompletenessComplete
	case s.Description != "" || s.Category != "":
		return model.CompletenessPartial
	}
	return model.CompletenessSparse
}
