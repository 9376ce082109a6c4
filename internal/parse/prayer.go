package parse

import "strings"

// Canonical prayer identifiers.
const (
	Fajr    = "fajr"
	Dhuhr   = "dhuhr"
	Asr     = "asr"
	Maghrib = "maghrib"
	Isha    = "isha"
)

// aliases maps the spellings seen from upstream clients (including the
// Malay display names) to canonical identifiers.
var aliases = map[string]string{
	"fajr":    Fajr,
	"fajar":   Fajr,
	"subuh":   Fajr,
	"dhuhr":   Dhuhr,
	"dhuhur":  Dhuhr,
	"zuhr":    Dhuhr,
	"zuhur":   Dhuhr,
	"zohor":   Dhuhr,
	"asr":     Asr,
	"asar":    Asr,
	"maghrib": Maghrib,
	"isha":    Isha,
	"isyak":   Isha,
	"ishak":   Isha,
}

// PrayerName normalizes raw to a canonical identifier. ok is false for
// names it does not recognize; the trimmed lowercase input is returned then.
func PrayerName(raw string) (name string, ok bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if canonical, found := aliases[s]; found {
		return canonical, true
	}
	return s, false
}
