package finalize

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// EventCategories are the values accepted by events.category.
var EventCategories = []string{
	"party", "workshop", "wellness", "music", "art", "spirituality",
	"food", "sports", "community", "market", "ceremony", "other",
}

// ServiceCategories are the values accepted by services.category.
var ServiceCategories = []string{
	"wellness", "art", "education", "food", "accommodation", "transportation",
	"repair", "beauty", "music", "healing", "spiritual", "other",
}

// PlaceTypes are the values accepted by places.type.
var PlaceTypes = []string{
	"venue", "restaurant", "accommodation", "activity", "shop", "cafe", "beach", "other",
}

// PriceTypes are the values accepted by services.price_type.
var PriceTypes = []string{"fixed", "hourly", "daily", "per-session", "negotiable", "donation"}

// Currencies are the values accepted by services.price_currency.
var Currencies = []string{"MXN", "USD"}

// placeTypeAliases maps extracted place types onto the accepted set.
var placeTypeAliases = map[string]string{
	"studio":     "venue",
	"gallery":    "venue",
	"hotel":      "accommodation",
	"hostel":     "accommodation",
	"cabaña":     "accommodation",
	"cabana":     "accommodation",
	"store":      "shop",
	"market":     "shop",
	"coffee":     "cafe",
	"coffeeshop": "cafe",
	"bar":        "restaurant",
	"playa":      "beach",
}

var priceTypeAliases = map[string]string{
	"per session": "per-session",
	"per_session": "per-session",
	"session":     "per-session",
	"per hour":    "hourly",
	"hour":        "hourly",
	"per day":     "daily",
	"day":         "daily",
	"donativo":    "donation",
	"flexible":    "negotiable",
}

var currencyAliases = map[string]string{
	"MX":    "MXN",
	"PESOS": "MXN",
	"PESO":  "MXN",
	"$":     "MXN",
	"US":    "USD",
	"US$":   "USD",
	"DLLS":  "USD",
}

// coerce returns v when it is one of allowed, otherwise fallback.
func coerce(v string, allowed []string, fallback string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	for _, a := range allowed {
		if v == a {
			return v
		}
	}
	return fallback
}

// PlaceType maps a free-text place type to the accepted set, defaulting to
// "other".
func PlaceType(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	if alias, ok := placeTypeAliases[v]; ok {
		return alias
	}
	return coerce(v, PlaceTypes, "other")
}

// PlaceCategory keeps an extracted category or derives a display label from
// the place type.
func PlaceCategory(category, placeType string) string {
	if c := strings.TrimSpace(category); c != "" {
		return c
	}
	if t := strings.TrimSpace(placeType); t != "" {
		return cases.Title(language.English).String(t)
	}
	return "Other"
}

// PriceType maps a free-text price type to the accepted set, or "" when it
// cannot be mapped.
func PriceType(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	if alias, ok := priceTypeAliases[v]; ok {
		return alias
	}
	return coerce(v, PriceTypes, "")
}

// Currency maps a free-text currency to MXN or USD, or "".
func Currency(v string) string {
	v = strings.ToUpper(strings.TrimSpace(v))
	if alias, ok := currencyAliases[v]; ok {
		return alias
	}
	for _, c := range Currencies {
		if v == c {
			return c
		}
	}
	return ""
}
