// Package finalize shapes geocoded entities into target-schema records:
// ownership, enum coercion, non-null defaults, id repair and completeness.
package finalize

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sells-group/community-ingest/internal/model"
)

// ApprovalPending is the moderation status given to every new record.
const ApprovalPending = "pending"

// Options configure ownership and defaults.
type Options struct {
	ProfileID    string
	CreatedBy    string // falls back to ProfileID
	CityID       string
	LocalityName string
	NewID        func() string
}

func (o *Options) applyDefaults() {
	if o.CreatedBy == "" {
		o.CreatedBy = o.ProfileID
	}
	if o.LocalityName == "" {
		o.LocalityName = "Mazunte"
	}
	if o.NewID == nil {
		o.NewID = uuid.NewString
	}
}

// Report summarizes a finalize pass.
type Report struct {
	ReassignedIDs int                                       `json:"reassigned_ids"`
	Coerced       int                                       `json:"coerced"`
	Defaulted     int                                       `json:"defaulted"`
	Buckets       map[model.Kind]map[model.Completeness]int `json:"buckets"`
}

func (r *Report) bucket(k model.Kind, c model.Completeness) {
	if r.Buckets[k] == nil {
		r.Buckets[k] = make(map[model.Completeness]int, len(model.Buckets))
	}
	r.Buckets[k][c]++
}

// Finalize mutates ents in place. Completeness is computed before defaults
// are synthesized so that filler text never promotes a record.
func Finalize(ents *model.Entities, opts Options) Report {
	opts.applyDefaults()
	rep := Report{Buckets: make(map[model.Kind]map[model.Completeness]int)}

	rep.ReassignedIDs = RepairIDs(ents, opts.NewID)

	for _, e := range ents.Events {
		e.Completeness = EventCompleteness(e)
		rep.bucket(model.KindEvent, e.Completeness)
		finalizeEvent(e, opts, &rep)
	}
	for _, p := range ents.Places {
		p.Completeness = PlaceCompleteness(p)
		rep.bucket(model.KindPlace, p.Completeness)
		finalizePlace(p, opts, &rep)
	}
	for _, s := range ents.Services {
		s.Completeness = ServiceCompleteness(s)
		rep.bucket(model.KindService, s.Completeness)
		finalizeService(s, opts, &rep)
	}

	zap.L().Info("finalized entities",
		zap.String("stage", "finalize"),
		zap.Int("events", len(ents.Events)),
		zap.Int("places", len(ents.Places)),
		zap.Int("services", len(ents.Services)),
		zap.Int("reassigned_ids", rep.ReassignedIDs),
		zap.Int("coerced", rep.Coerced),
		zap.Int("defaulted", rep.Defaulted),
	)
	return rep
}

// RepairIDs gives every entity a unique id. The first holder of an id keeps
// it; blank ids and later duplicates get a fresh one. Returns the number of
// ids replaced.
func RepairIDs(ents *model.Entities, newID func() string) int {
	if newID == nil {
		newID = uuid.NewString
	}
	seen := make(map[string]struct{})
	n := 0
	for _, e := range ents.All() {
		b := e.Base()
		if _, dup := seen[b.ID]; b.ID == "" || dup {
			old := b.ID
			for {
				b.ID = newID()
				if _, taken := seen[b.ID]; !taken {
					break
				}
			}
			n++
			zap.L().Debug("finalize: reassigned id",
				zap.String("kind", string(e.Kind())),
				zap.String("old", old),
				zap.String("new", b.ID),
			)
		}
		seen[b.ID] = struct{}{}
	}
	return n
}

func finalizeEvent(e *model.Event, opts Options, rep *Report) {
	e.ProfileID = opts.ProfileID
	applyCommon(&e.Common, opts)
	if e.ApprovalStatus == "" {
		e.ApprovalStatus = ApprovalPending
	}
	if strings.TrimSpace(e.Title) == "" {
		e.Title = "Untitled event"
		rep.Defaulted++
	}
	if c := coerce(e.Category, EventCategories, "other"); c != e.Category {
		e.Category = c
		rep.Coerced++
	}
}

func finalizePlace(p *model.Place, opts Options, rep *Report) {
	p.CreatedBy = opts.CreatedBy
	applyCommon(&p.Common, opts)

	if strings.TrimSpace(p.Name) == "" {
		p.Name = "Unnamed place"
		rep.Defaulted++
	}
	raw := p.Type
	if t := PlaceType(raw); t != raw {
		p.Type = t
		rep.Coerced++
	}
	p.Category = PlaceCategory(p.Category, p.Type)

	if strings.TrimSpace(p.Description) == "" {
		p.Description = fmt.Sprintf("%s in %s", p.Name, opts.LocalityName)
		rep.Defaulted++
	}
	if strings.TrimSpace(p.LocationName) == "" {
		p.LocationName = opts.LocalityName
		rep.Defaulted++
	}
}

func finalizeService(s *model.Service, opts Options, rep *Report) {
	s.ProfileID = opts.ProfileID
	applyCommon(&s.Common, opts)
	if s.ApprovalStatus == "" {
		s.ApprovalStatus = ApprovalPending
	}
	if strings.TrimSpace(s.Title) == "" {
		s.Title = "Untitled service"
		rep.Defaulted++
	}
	if c := coerce(s.Category, ServiceCategories, "other"); c != s.Category {
		s.Category = c
		rep.Coerced++
	}
	if s.PriceType != "" {
		s.PriceType = PriceType(s.PriceType)
	}
	if s.PriceCurrency != "" {
		s.PriceCurrency = Currency(s.PriceCurrency)
	}
}

func applyCommon(c *model.Common, opts Options) {
	if opts.CityID != "" {
		c.CityID = opts.CityID
	}
}
