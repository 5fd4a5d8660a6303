package model

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Candidate decoding is deliberately lenient: the extraction oracle is an
// untrusted source, so every field is coerced individually and problems are
// recorded as issues on the entity instead of failing the whole batch.

// DecodeEvent builds an Event from one oracle candidate object.
func DecodeEvent(raw map[string]any) *Event {
	d := decoder{raw: raw}
	e := &Event{
		Common:         d.common(),
		Title:          d.str("title", "name"),
		Date:           d.str("date"),
		Time:           d.str("time"),
		OrganizerName:  d.str("organizer_name", "organizer"),
		Price:          d.str("price"),
		ImageURL:       d.str("image_url"),
		ApprovalStatus: d.str("approval_status"),
	}
	if e.Title == "" {
		d.issue("missing title")
	}
	if e.Date != "" {
		if _, err := time.Parse("2006-01-02", e.Date); err != nil {
			d.issue(fmt.Sprintf("dropped unparseable date %q", e.Date))
			e.Date = ""
		}
	}
	if e.Time != "" {
		norm, ok := NormalizeTime(e.Time)
		if !ok {
			d.issue(fmt.Sprintf("dropped unparseable time %q", e.Time))
		}
		e.Time = norm
	}
	e.Issues = d.issues
	return e
}

// DecodePlace builds a Place from one oracle candidate object.
func DecodePlace(raw map[string]any) *Place {
	d := decoder{raw: raw}
	p := &Place{
		Common:     d.common(),
		Name:       d.str("name", "title"),
		Type:       strings.ToLower(d.str("type")),
		Hours:      d.str("hours"),
		PriceRange: d.str("price_range"),
		Tags:       d.strList("tags"),
		Images:     d.strList("images"),
		WebsiteURL: d.str("website_url", "website"),
		Verified:   d.boolean("verified"),
	}
	if p.Name == "" {
		d.issue("missing name")
	}
	p.Issues = d.issues
	return p
}

// DecodeService builds a Service from one oracle candidate object.
func DecodeService(raw map[string]any) *Service {
	d := decoder{raw: raw}
	s := &Service{
		Common:         d.common(),
		Title:          d.str("title", "name"),
		PriceType:      strings.ToLower(d.str("price_type")),
		PriceAmount:    d.number("price_amount"),
		PriceCurrency:  strings.ToUpper(d.str("price_currency")),
		PriceNotes:     d.str("price_notes"),
		ImageURL:       d.str("image_url"),
		ApprovalStatus: d.str("approval_status"),
	}
	if s.Title == "" {
		d.issue("missing title")
	}
	s.Issues = d.issues
	return s
}

type decoder struct {
	raw    map[string]any
	issues []string
}

func (d *decoder) issue(msg string) {
	d.issues = append(d.issues, msg)
}

// common decodes the shared attributes. Oracle-supplied ids and coordinates
// are never trusted and are left empty here.
func (d *decoder) common() Common {
	c := Common{
		Description:       d.str("description"),
		Category:          strings.ToLower(d.str("category")),
		LocationName:      d.str("location_name", "location", "address"),
		CityID:            d.str("city_id"),
		OriginalMessageID: d.str("original_message_id", "message_id"),
		Contact: Contact{
			ContactPhone:     d.str("contact_phone"),
			ContactWhatsApp:  d.str("contact_whatsapp"),
			ContactInstagram: d.str("contact_instagram"),
			ContactEmail:     d.str("contact_email"),
		},
	}
	d.issues = append(d.issues, RepairContact(&c.Contact)...)
	return c
}

// str returns the first present key as a trimmed string. Numbers and booleans
// are formatted; other shapes are recorded as issues.
func (d *decoder) str(keys ...string) string {
	for _, k := range keys {
		v, ok := d.raw[k]
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case string:
			s := strings.TrimSpace(t)
			if s == "" || strings.EqualFold(s, "null") {
				continue
			}
			return s
		case float64:
			return strconv.FormatFloat(t, 'f', -1, 64)
		case bool:
			return strconv.FormatBool(t)
		default:
			d.issue(fmt.Sprintf("field %s has unsupported type %T", k, v))
		}
	}
	return ""
}

func (d *decoder) number(key string) *float64 {
	v, ok := d.raw[key]
	if !ok || v == nil {
		return nil
	}
	switch t := v.(type) {
	case float64:
		return d.finite(key, t, v)
	case string:
		s := strings.TrimSpace(strings.NewReplacer("$", "", ",", "", "MXN", "", "USD", "").Replace(t))
		if s == "" {
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			d.issue(fmt.Sprintf("dropped non-numeric %s %q", key, t))
			return nil
		}
		return d.finite(key, f, t)
	default:
		d.issue(fmt.Sprintf("field %s has unsupported type %T", key, v))
		return nil
	}
}

// finite drops NaN and infinities, which ParseFloat accepts but SQL cannot hold.
func (d *decoder) finite(key string, f float64, raw any) *float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		d.issue(fmt.Sprintf("dropped non-finite %s %q", key, fmt.Sprint(raw)))
		return nil
	}
	return &f
}

func (d *decoder) boolean(key string) bool {
	switch t := d.raw[key].(type) {
	case bool:
		return t
	case string:
		b, _ := strconv.ParseBool(strings.TrimSpace(t))
		return b
	}
	return false
}

// strList accepts an array of strings or a single comma-separated string.
func (d *decoder) strList(key string) []string {
	var out []string
	add := func(s string) {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	switch t := d.raw[key].(type) {
	case nil:
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok {
				add(s)
			}
		}
	case string:
		for _, s := range strings.Split(t, ",") {
			add(s)
		}
	default:
		d.issue(fmt.Sprintf("field %s has unsupported type %T", key, t))
	}
	return out
}

var timeRe = regexp.MustCompile(`(?i)^(\d{1,2})(?:[:.h](\d{2}))?(?::(\d{2}))?\s*(am|pm|a\.m\.|p\.m\.|hrs|h)?$`)

// NormalizeTime converts "7pm", "7:30 pm", "19:00" or "19:00:00" to HH:MM:SS.
// A bare hour without minutes or a meridiem is rejected as ambiguous.
func NormalizeTime(s string) (string, bool) {
	m := timeRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return "", false
	}
	meridiem := strings.ToLower(strings.ReplaceAll(m[4], ".", ""))
	if m[2] == "" && meridiem != "am" && meridiem != "pm" {
		return "", false
	}

	hour, _ := strconv.Atoi(m[1])
	minute, sec := 0, 0
	if m[2] != "" {
		minute, _ = strconv.Atoi(m[2])
	}
	if m[3] != "" {
		sec, _ = strconv.Atoi(m[3])
	}

	switch meridiem {
	case "am", "pm":
		if hour < 1 || hour > 12 {
			return "", false
		}
		if hour == 12 {
			hour = 0
		}
		if meridiem == "pm" {
			hour += 12
		}
	}
	if hour > 23 || minute > 59 || sec > 59 {
		return "", false
	}
	return fmt.Sprintf("%02d:%02d:%02d", hour, minute, sec), true
}
