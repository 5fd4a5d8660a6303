// Package merge collapses candidates that describe the same real-world entity
// and records every merge decision in a duplicate report.
package merge

import (
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/community-ingest/internal/model"
)

// NoDateToken stands in for a missing event date in the identity key.
const NoDateToken = "nodate"

// Result is the outcome of deduplicating one collection.
type Result[T model.Entity] struct {
	Kept       []T
	Duplicates []model.DuplicateEntry
}

// Dedupe keeps the first candidate seen for each identity key and folds later
// candidates with the same key into it. Candidates with an empty key always
// pass through untouched.
func Dedupe[T model.Entity](items []T, key func(T) string, fold func(kept, dup T)) Result[T] {
	res := Result[T]{Kept: make([]T, 0, len(items))}
	index := make(map[string]T, len(items))

	for _, item := range items {
		k := key(item)
		if k == "" {
			res.Kept = append(res.Kept, item)
			continue
		}
		kept, ok := index[k]
		if !ok {
			index[k] = item
			res.Kept = append(res.Kept, item)
			continue
		}
		fold(kept, item)
		res.Duplicates = append(res.Duplicates, model.DuplicateEntry{
			IdentityKey: k,
			KeptID:      kept.Base().ID,
			MergedID:    item.Base().ID,
			Kind:        item.Kind(),
		})
	}
	return res
}

// normalizeKey lowercases and trims an identity field.
func normalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// EventKey is the normalized title joined with the date. Recurring events on
// different dates stay distinct.
func EventKey(e *model.Event) string {
	title := normalizeKey(e.Title)
	if title == "" {
		return ""
	}
	date := strings.TrimSpace(e.Date)
	if date == "" {
		date = NoDateToken
	}
	return title + "_" + date
}

// PlaceKey is the normalized place name.
func PlaceKey(p *model.Place) string {
	return normalizeKey(p.Name)
}

// ServiceKey is the normalized service title. Services form a single catalog,
// so the same title from two providers is treated as one service.
func ServiceKey(s *model.Service) string {
	return normalizeKey(s.Title)
}

// All deduplicates each collection of ents and returns new collections with
// the combined duplicate report.
func All(ents *model.Entities) (*model.Entities, model.DuplicateReport) {
	events := Dedupe(ents.Events, EventKey, MergeEvent)
	places := Dedupe(ents.Places, PlaceKey, MergePlace)
	services := Dedupe(ents.Services, ServiceKey, MergeService)

	report := model.DuplicateReport{
		Events:   nonNil(events.Duplicates),
		Places:   nonNil(places.Duplicates),
		Services: nonNil(services.Duplicates),
	}

	zap.L().Info("deduplicated entities",
		zap.String("stage", "merge"),
		zap.Int("events_in", len(ents.Events)),
		zap.Int("events_out", len(events.Kept)),
		zap.Int("places_in", len(ents.Places)),
		zap.Int("places_out", len(places.Kept)),
		zap.Int("services_in", len(ents.Services)),
		zap.Int("services_out", len(services.Kept)),
	)

	return &model.Entities{
		Events:   events.Kept,
		Places:   places.Kept,
		Services: services.Kept,
	}, report
}

func nonNil(d []model.DuplicateEntry) []model.DuplicateEntry {
	if d == nil {
		return []model.DuplicateEntry{}
	}
	return d
}
