package merge

import (
	"unicode/utf8"

	"github.com/sells-group/community-ingest/internal/model"
)

// MergeEvent folds dup into kept.
func MergeEvent(kept, dup *model.Event) {
	mergeCommon(&kept.Common, &dup.Common)
	fill(&kept.Time, dup.Time)
	fill(&kept.Price, dup.Price)
	fill(&kept.OrganizerName, dup.OrganizerName)
	fill(&kept.ImageURL, dup.ImageURL)
}

// MergePlace folds dup into kept.
func MergePlace(kept, dup *model.Place) {
	mergeCommon(&kept.Common, &dup.Common)
	fill(&kept.Type, dup.Type)
	fill(&kept.Hours, dup.Hours)
	fill(&kept.PriceRange, dup.PriceRange)
	fill(&kept.WebsiteURL, dup.WebsiteURL)
	kept.Tags = union(kept.Tags, dup.Tags)
	kept.Images = union(kept.Images, dup.Images)
	kept.Verified = kept.Verified || dup.Verified
}

// MergeService folds dup into kept.
func MergeService(kept, dup *model.Service) {
	mergeCommon(&kept.Common, &dup.Common)
	fill(&kept.PriceType, dup.PriceType)
	fill(&kept.PriceCurrency, dup.PriceCurrency)
	fill(&kept.PriceNotes, dup.PriceNotes)
	fill(&kept.ImageURL, dup.ImageURL)
	if kept.PriceAmount == nil && dup.PriceAmount != nil {
		v := *dup.PriceAmount
		kept.PriceAmount = &v
	}
}

// mergeCommon applies the shared policy: first non-empty scalar wins, the
// longer description wins, bookkeeping lists are unioned.
func mergeCommon(kept, dup *model.Common) {
	if utf8.RuneCountInString(dup.Description) > utf8.RuneCountInString(kept.Description) {
		kept.Description = dup.Description
	}
	fill(&kept.Category, dup.Category)
	fill(&kept.LocationName, dup.LocationName)
	fill(&kept.CityID, dup.CityID)
	fill(&kept.OriginalMessageID, dup.OriginalMessageID)
	fill(&kept.ContactPhone, dup.ContactPhone)
	fill(&kept.ContactWhatsApp, dup.ContactWhatsApp)
	fill(&kept.ContactInstagram, dup.ContactInstagram)
	fill(&kept.ContactEmail, dup.ContactEmail)
	kept.Links = union(kept.Links, dup.Links)
	kept.Issues = union(kept.Issues, dup.Issues)
}

func fill(dst *string, src string) {
	if *dst == "" && src != "" {
		*dst = src
	}
}

// union appends elements of add missing from base, preserving order.
func union(base, add []string) []string {
	if len(add) == 0 {
		return base
	}
	seen := make(map[string]bool, len(base)+len(add))
	for _, s := range base {
		seen[s] = true
	}
	for _, s := range add {
		if !seen[s] {
			seen[s] = true
			base = append(base, s)
		}
	}
	return base
}
