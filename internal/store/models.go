package store

import (
	"strings"
	"time"
)

// Campus is a site whose devices are kept in their own inventory file.
type Campus struct {
	Name        string    `json:"name"`
	Order       uint64    `json:"order"`
	CreatedAt   time.Time `json:"created_at"`
	LastSaved   time.Time `json:"last_saved,omitempty"`
	DeviceCount int       `json:"device_count"`
}

// NormalizeName lower-cases and trims a campus name, the form used as key.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

var accentFolder = strings.NewReplacer("á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u", "ü", "u", "ñ", "n")

// Slug turns a campus name into a file name stem: "zona core" -> "zona-core".
func Slug(name string) string {
	var b strings.Builder
	dash := false
	for _, c := range accentFolder.Replace(NormalizeName(name)) {
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
			b.WriteRune(c)
			dash = false
		case b.Len() > 0 && !dash:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
