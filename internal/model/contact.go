package model

import (
	"fmt"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// DefaultPhoneRegion is used to parse numbers written without a country code.
const DefaultPhoneRegion = "MX"

// RepairContact normalizes contact channels in place and returns a note for
// every value it had to discard.
func RepairContact(c *Contact) []string {
	var issues []string

	for _, f := range []struct {
		name string
		val  *string
	}{
		{"contact_phone", &c.ContactPhone},
		{"contact_whatsapp", &c.ContactWhatsApp},
	} {
		if *f.val == "" {
			continue
		}
		repaired := RepairPhone(*f.val)
		if repaired == "" {
			issues = append(issues, fmt.Sprintf("dropped %s %q: no digits", f.name, *f.val))
		}
		*f.val = repaired
	}

	if c.ContactInstagram != "" {
		c.ContactInstagram = RepairInstagram(c.ContactInstagram)
	}

	if c.ContactEmail != "" {
		email := strings.ToLower(strings.TrimSpace(c.ContactEmail))
		email = strings.TrimPrefix(email, "mailto:")
		if at := strings.Index(email, "@"); at <= 0 || at == len(email)-1 || strings.ContainsAny(email, " \t") {
			issues = append(issues, fmt.Sprintf("dropped contact_email %q", c.ContactEmail))
			email = ""
		}
		c.ContactEmail = email
	}

	return issues
}

// RepairPhone returns the number as E.164 digits without the leading plus
// when it parses as a valid number, and otherwise the bare digits of the
// input (keeping what the poster wrote rather than losing it).
func RepairPhone(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if num, err := phonenumbers.Parse(raw, DefaultPhoneRegion); err == nil && phonenumbers.IsValidNumber(num) {
		return strings.TrimPrefix(phonenumbers.Format(num, phonenumbers.E164), "+")
	}
	return digitsOnly(raw)
}

// RepairInstagram reduces a handle or profile URL to the bare handle.
func RepairInstagram(raw string) string {
	h := strings.TrimSpace(raw)
	lower := strings.ToLower(h)
	if i := strings.Index(lower, "instagram.com/"); i >= 0 {
		h = h[i+len("instagram.com/"):]
	}
	if i := strings.IndexAny(h, "?#"); i >= 0 {
		h = h[:i]
	}
	h = strings.TrimSuffix(h, "/")
	return strings.TrimPrefix(h, "@")
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
