package calibration

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Profile is a saved calibration.
type Profile struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Records   int       `json:"records"` // Number of records the mapping was fitted from
	Mapping   Mapping   `json:"mapping"`
}

// NewProfile wraps a freshly fitted mapping.
func NewProfile(m Mapping, records int) *Profile {
	return &Profile{
		ID:        uuid.New().String(),
		CreatedAt: time.Now().UTC(),
		Records:   records,
		Mapping:   m,
	}
}

// storeData is the JSON structure for the profile file.
type storeData struct {
	Version int      `json:"version"`
	Profile *Profile `json:"profile"`
}

const currentVersion = 1

// Store persists a single calibration profile as a JSON file.
type Store struct {
	path string
}

// NewStore creates a store at path. The parent directory is created if
// needed; the file itself is created on first Save.
func NewStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.Wrap(err, "failed to create directory")
	}
	return &Store{path: path}, nil
}

// Path returns the profile file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads the saved profile. It returns (nil, nil) when none exists.
func (s *Store) Load() (*Profile, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to read file")
	}

	var stored storeData
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, errors.Wrap(err, "failed to parse JSON")
	}
	if stored.Profile == nil {
		return nil, nil
	}
	if !stored.Profile.Mapping.X.finite() || !stored.Profile.Mapping.Y.finite() {
		return nil, errors.Wrap(ErrDegenerateFit, "saved mapping has non-finite coefficients")
	}
	return stored.Profile, nil
}

// Save writes the profile, replacing any previous one.
func (s *Store) Save(p *Profile) error {
	data, err := json.MarshalIndent(storeData{Version: currentVersion, Profile: p}, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal JSON")
	}

	// Write to temp file first, then rename (atomic write)
	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return errors.Wrap(err, "failed to write temp file")
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return errors.Wrap(err, "failed to rename temp file")
	}
	return nil
}
