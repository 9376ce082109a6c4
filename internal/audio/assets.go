package audio

import (
	"path/filepath"

	"prayer-alerts/config"
	"prayer-alerts/internal/parse"
)

// Assets maps prayers to call-to-prayer audio files.
type Assets struct {
	Dir     string
	Fajr    string
	Default string
}

// NewAssets builds the asset table from config.
func NewAssets(cfg config.AudioConfig) Assets {
	return Assets{Dir: cfg.Dir, Fajr: cfg.FajrAsset, Default: cfg.DefaultAsset}
}

// Resolve returns the asset path for prayerName. Fajr has its own recording;
// every other name, known or not, gets the default one.
func (a Assets) Resolve(prayerName string) string {
	file := a.Default
	if name, _ := parse.PrayerName(prayerName); name == parse.Fajr {
		file = a.Fajr
	}
	if a.Dir != "" && !filepath.IsAbs(file) {
		file = filepath.Join(a.Dir, file)
	}
	return file
}
