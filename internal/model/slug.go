package model

import "strings"

// Slugify derives a stable identifier from a display name: lowercase, with
// every run of non-alphanumeric characters collapsed to a single hyphen and
// leading/trailing hyphens trimmed.
//
// Two distinct names normalizing to the same slug is a reconciliation hard
// error; callers must detect and report the collision, never merge silently.
func Slugify(name string) string {
	var b strings.Builder
	b.Grow(len(name))

	lastHyphen := true // suppress a leading hyphen
	for _, r := range strings.ToLower(name) {
		alnum := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		if alnum {
			b.WriteRune(r)
			lastHyphen = false
			continue
		}
		if !lastHyphen {
			b.WriteByte('-')
			lastHyphen = true
		}
	}

	return strings.TrimSuffix(b.String(), "-")
}
