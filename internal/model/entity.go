package model

import "strings"

// Kind identifies one of the three entity collections.
type Kind string

const (
	KindEvent   Kind = "events"
	KindPlace   Kind = "places"
	KindService Kind = "services"
)

// Kinds lists every entity kind in output order.
var Kinds = []Kind{KindPlace, KindEvent, KindService}

// CoordSource records how an entity's coordinates were obtained.
type CoordSource string

const (
	CoordSourceNone     CoordSource = "none"
	CoordSourceLandmark CoordSource = "landmark"
	CoordSourceAlias    CoordSource = "alias"
	CoordSourceDefault  CoordSource = "default"
)

// Completeness is the data-completeness bucket used to partition output.
type Completeness string

const (
	CompletenessComplete Completeness = "complete"
	CompletenessPartial  Completeness = "partial"
	CompletenessSparse   Completeness = "sparse"
)

// Buckets lists completeness buckets in output order.
var Buckets = []Completeness{CompletenessComplete, CompletenessPartial, CompletenessSparse}

// Contact holds the contact channels shared by every entity kind.
type Contact struct {
	ContactPhone     string `json:"contact_phone,omitempty"`
	ContactWhatsApp  string `json:"contact_whatsapp,omitempty"`
	ContactInstagram string `json:"contact_instagram,omitempty"`
	ContactEmail     string `json:"contact_email,omitempty"`
}

// HasAny reports whether at least one contact channel is set.
func (c Contact) HasAny() bool {
	return c.ContactPhone != "" || c.ContactWhatsApp != "" || c.ContactInstagram != "" || c.ContactEmail != ""
}

// Common holds the attributes shared by events, places and services.
// Fields prefixed with an underscore in JSON are pipeline bookkeeping and are
// never serialized to the target schema.
type Common struct {
	ID                string   `json:"id"`
	Description       string   `json:"description,omitempty"`
	Category          string   `json:"category,omitempty"`
	LocationName      string   `json:"location_name,omitempty"`
	Lat               *float64 `json:"lat"`
	Lng               *float64 `json:"lng"`
	CityID            string   `json:"city_id,omitempty"`
	OriginalMessageID string   `json:"original_message_id,omitempty"`
	Contact

	CoordSource     CoordSource  `json:"coord_source,omitempty"`
	MatchedLandmark string       `json:"matched_landmark,omitempty"`
	Completeness    Completeness `json:"completeness,omitempty"`
	Links           []string     `json:"_links,omitempty"`
	Issues          []string     `json:"_issues,omitempty"`
}

// Base returns the shared attributes.
func (c *Common) Base() *Common { return c }

// AddIssue records a validation note on the entity.
func (c *Common) AddIssue(msg string) {
	c.Issues = append(c.Issues, msg)
}

// SetCoords sets both coordinates and their provenance.
func (c *Common) SetCoords(lat, lng float64, src CoordSource, landmark string) {
	c.Lat = &lat
	c.Lng = &lng
	c.CoordSource = src
	c.MatchedLandmark = landmark
}

// ClearCoords removes any coordinates.
func (c *Common) ClearCoords(src CoordSource) {
	c.Lat = nil
	c.Lng = nil
	c.CoordSource = src
	c.MatchedLandmark = ""
}

// Event is a dated happening: workshop, ceremony, party, market, etc.
type Event struct {
	Common
	Title          string `json:"title"`
	Date           string `json:"date,omitempty"`
	Time           string `json:"time,omitempty"`
	OrganizerName  string `json:"organizer_name,omitempty"`
	Price          string `json:"price,omitempty"`
	ImageURL       string `json:"image_url,omitempty"`
	ProfileID      string `json:"profile_id,omitempty"`
	ApprovalStatus string `json:"approval_status,omitempty"`
}

// Place is a venue or physical location.
type Place struct {
	Common
	Name       string   `json:"name"`
	Type       string   `json:"type,omitempty"`
	Hours      string   `json:"hours,omitempty"`
	PriceRange string   `json:"price_range,omitempty"`
	Tags       []string `json:"tags,omitempty"`
	Images     []string `json:"images,omitempty"`
	WebsiteURL string   `json:"website_url,omitempty"`
	Verified   bool     `json:"verified"`
	CreatedBy  string   `json:"created_by,omitempty"`
}

// Service is an offering by a person or business.
type Service struct {
	Common
	Title          string   `json:"title"`
	PriceType      string   `json:"price_type,omitempty"`
	PriceAmount    *float64 `json:"price_amount"`
	PriceCurrency  string   `json:"price_currency,omitempty"`
	PriceNotes     string   `json:"price_notes,omitempty"`
	ImageURL       string   `json:"image_url,omitempty"`
	ProfileID      string   `json:"profile_id,omitempty"`
	ApprovalStatus string   `json:"approval_status,omitempty"`
}

// Entity is implemented by *Event, *Place and *Service.
type Entity interface {
	Base() *Common
	Kind() Kind
	DisplayName() string
	MatchText() string
}

func (e *Event) Kind() Kind          { return KindEvent }
func (e *Event) DisplayName() string { return e.Title }
func (e *Event) MatchText() string   { return joinNonEmpty(e.Title, e.Description) }

func (p *Place) Kind() Kind          { return KindPlace }
func (p *Place) DisplayName() string { return p.Name }
func (p *Place) MatchText() string {
	return joinNonEmpty(p.Description, p.Name, p.LocationName)
}

func (s *Service) Kind() Kind          { return KindService }
func (s *Service) DisplayName() string { return s.Title }
func (s *Service) MatchText() string   { return joinNonEmpty(s.Title, s.Description) }

// Entities groups the three collections produced by extraction.
type Entities struct {
	Events   []*Event   `json:"events"`
	Places   []*Place   `json:"places"`
	Services []*Service `json:"services"`
}

// Count returns the number of entities of the given kind.
func (e *Entities) Count(k Kind) int {
	switch k {
	case KindEvent:
		return len(e.Events)
	case KindPlace:
		return len(e.Places)
	case KindService:
		return len(e.Services)
	}
	return 0
}

// OfKind returns the entities of one kind.
func (e *Entities) OfKind(k Kind) []Entity {
	var out []Entity
	switch k {
	case KindEvent:
		for _, ev := range e.Events {
			out = append(out, ev)
		}
	case KindPlace:
		for _, p := range e.Places {
			out = append(out, p)
		}
	case KindService:
		for _, s := range e.Services {
			out = append(out, s)
		}
	}
	return out
}

// All returns every entity across kinds, in output order.
func (e *Entities) All() []Entity {
	out := make([]Entity, 0, len(e.Events)+len(e.Places)+len(e.Services))
	for _, p := range e.Places {
		out = append(out, p)
	}
	for _, ev := range e.Events {
		out = append(out, ev)
	}
	for _, s := range e.Services {
		out = append(out, s)
	}
	return out
}

func joinNonEmpty(parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}
