package widget

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// PrayerTimes is the key-value set the home-screen display reads.
type PrayerTimes struct {
	Fajr       string `yaml:"fajr" json:"fajr"`
	Dhuhr      string `yaml:"dhuhr" json:"dhuhr"`
	Asr        string `yaml:"asr" json:"asr"`
	Maghrib    string `yaml:"maghrib" json:"maghrib"`
	Isha       string `yaml:"isha" json:"isha"`
	NextPrayer string `yaml:"next_prayer" json:"nextPrayer"`
	Location   string `yaml:"location" json:"location"`
}

// Defaults returns the values shown before the first sync.
func Defaults() PrayerTimes {
	return PrayerTimes{
		Fajr:       "5:30",
		Dhuhr:      "12:30",
		Asr:        "16:00",
		Maghrib:    "19:00",
		Isha:       "20:30",
		NextPrayer: "Subuh",
		Location:   "",
	}
}

// withDefaults fills empty time fields. Location may legitimately be empty.
func (p PrayerTimes) withDefaults() PrayerTimes {
	d := Defaults()
	if p.Fajr == "" {
		p.Fajr = d.Fajr
	}
	if p.Dhuhr == "" {
		p.Dhuhr = d.Dhuhr
	}
	if p.Asr == "" {
		p.Asr = d.Asr
	}
	if p.Maghrib == "" {
		p.Maghrib = d.Maghrib
	}
	if p.Isha == "" {
		p.Isha = d.Isha
	}
	if p.NextPrayer == "" {
		p.NextPrayer = d.NextPrayer
	}
	return p
}

// FileStore keeps PrayerTimes in a YAML file.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates a store at path. The file need not exist yet.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load returns the stored values, or the defaults if nothing was saved.
func (s *FileStore) Load() (PrayerTimes, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return Defaults(), nil
	}
	if err != nil {
		return Defaults(), fmt.Errorf("read %s: %w", s.path, err)
	}

	var p PrayerTimes
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Defaults(), fmt.Errorf("decode %s: %w", s.path, err)
	}
	return p.withDefaults(), nil
}

// Save replaces the stored values. The file is swapped in atomically.
func (s *FileStore) Save(p PrayerTimes) (PrayerTimes, error) {
	p = p.withDefaults()
	data, err := yaml.Marshal(p)
	if err != nil {
		return p, fmt.Errorf("encode prayer times: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return p, fmt.Errorf("create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".widget-*.yaml")
	if err != nil {
		return p, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return p, fmt.Errorf("write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return p, fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return p, fmt.Errorf("replace %s: %w", s.path, err)
	}
	return p, nil
}
