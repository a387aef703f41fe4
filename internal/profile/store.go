// Package profile manages browser profiles on disk: one subdirectory per
// profile for the browser's user data, plus a single metadata sidecar.
package profile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"
)

const metadataFile = "profiles_metadata.json"

var nameRe = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]*$`)

// Profile is one stored browser profile and its account credentials.
type Profile struct {
	Name        string    `json:"name"`
	Email       string    `json:"email,omitempty"`
	Password    string    `json:"password,omitempty"`
	Proxy       string    `json:"proxy,omitempty"`
	TwoFASecret string    `json:"twofa_secret,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	LastUsedAt  time.Time `json:"last_used_at,omitempty"`
}

// Store manages profile directories and the metadata sidecar under one root.
type Store struct {
	dir string

	mu       sync.RWMutex
	profiles map[string]Profile
}

// NewStore opens the profile root, creating it and loading existing metadata.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("profile store: mkdir %s: %w", dir, err)
	}

	s := &Store{dir: dir, profiles: make(map[string]Profile)}

	data, err := os.ReadFile(filepath.Join(dir, metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("profile store: read metadata: %w", err)
	}
	if err := json.Unmarshal(data, &s.profiles); err != nil {
		return nil, fmt.Errorf("profile store: unmarshal metadata: %w", err)
	}
	return s, nil
}

// Dir returns the profile root directory.
func (s *Store) Dir() string {
	return s.dir
}

// UserDataDir returns the browser user-data directory for a profile name.
func (s *Store) UserDataDir(name string) string {
	return filepath.Join(s.dir, name)
}

// SanitizeName turns free-form input (usually an email) into a valid
// profile name: lowercase, non [a-z0-9._-] replaced with underscore.
func SanitizeName(raw string) string {
	lower := strings.ToLower(strings.TrimSpace(raw))
	var b strings.Builder
	for _, r := range lower {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return strings.Trim(b.String(), "._-")
}

func (s *Store) validateName(name string) error {
	if !nameRe.MatchString(name) {
		return fmt.Errorf("invalid profile name: %q", name)
	}
	return nil
}

// Create registers a new profile and makes its user data directory.
func (s *Store) Create(p Profile) error {
	if err := s.validateName(p.Name); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.profiles[p.Name]; exists {
		return fmt.Errorf("profile already exists: %s", p.Name)
	}
	if err := os.MkdirAll(filepath.Join(s.dir, p.Name), 0o755); err != nil {
		return fmt.Errorf("profile store: mkdir profile: %w", err)
	}

	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	s.profiles[p.Name] = p
	return s.saveLocked()
}

// Get returns a profile by name.
func (s *Store) Get(name string) (Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[name]
	if !ok {
		return Profile{}, fmt.Errorf("profile not found: %s", name)
	}
	return p, nil
}

// List returns all profiles sorted by name.
func (s *Store) List() []Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Profile, 0, len(s.profiles))
	for _, p := range s.profiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Touch records that a profile was just used.
func (s *Store) Touch(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[name]
	if !ok {
		return fmt.Errorf("profile not found: %s", name)
	}
	p.LastUsedAt = time.Now()
	s.profiles[name] = p
	return s.saveLocked()
}

// Delete removes a profile's metadata and its user data directory.
func (s *Store) Delete(name string) error {
	if err := s.validateName(name); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.profiles[name]; !ok {
		return fmt.Errorf("profile not found: %s", name)
	}
	delete(s.profiles, name)
	if err := os.RemoveAll(filepath.Join(s.dir, name)); err != nil {
		return fmt.Errorf("profile store: remove profile dir: %w", err)
	}
	return s.saveLocked()
}

func (s *Store) saveLocked() error {
	data, err := json.MarshalIndent(s.profiles, "", "  ")
	if err != nil {
		return fmt.Errorf("profile store: marshal metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.dir, metadataFile), data, 0o644); err != nil {
		return fmt.Errorf("profile store: write metadata: %w", err)
	}
	return nil
}
