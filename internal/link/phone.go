package link

import "strings"

// NormalizePhone reduces a WhatsApp number or sender identifier to a canonical
// digit string. Any "@domain" suffix and every non-digit is dropped, and the
// Mexican mobile prefix 521 collapses to 52 so that both spellings of the same
// subscriber compare equal.
func NormalizePhone(s string) string {
	if i := strings.IndexByte(s, '@'); i >= 0 {
		s = s[:i]
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	d := b.String()
	if strings.HasPrefix(d, "521") {
		d = "52" + d[3:]
	}
	return d
}

// Similarity counts the words of entityText longer than three characters that
// also occur in messageText, case-insensitively.
func Similarity(entityText, messageText string) int {
	if entityText == "" || messageText == "" {
		return 0
	}
	words := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(messageText)) {
		words[w] = true
	}
	n := 0
	for _, w := range strings.Fields(strings.ToLower(entityText)) {
		if len([]rune(w)) > 3 && words[w] {
			n++
		}
	}
	return n
}
