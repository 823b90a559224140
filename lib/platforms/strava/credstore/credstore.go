// Package credstore keeps what survives between runs in a per-user
// directory: the logged in athlete and the cookie jar.
package credstore

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"stravatools/lib/configutil"
	"stravatools/lib/cookies"
	"stravatools/lib/platforms/strava/core"
)

const (
	DirName     = ".strava-tools"
	UserFile    = "user.json"
	CookiesFile = "cookies.txt"
)

// User is the content of the user file.
type User struct {
	OwnerId   string `json:"owner_id"`
	OwnerName string `json:"owner_name"`
}

type Store struct {
	dir string

	mu   sync.Mutex
	user User
}

// DefaultDir is ~/.strava-tools.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, DirName), nil
}

// Open reads the user file from `dir`, a missing file is an empty user.
func Open(dir string) (*Store, error) {
	user, err := configutil.ReadOptional(filepath.Join(dir, UserFile), User{})
	if err != nil {
		return nil, fmt.Errorf("read user: %w", err)
	}
	return &Store{dir: dir, user: user}, nil
}

func (s *Store) UserPath() string {
	return filepath.Join(s.dir, UserFile)
}

func (s *Store) CookiesPath() string {
	return filepath.Join(s.dir, CookiesFile)
}

// Identity implements core.IdentityStore, an empty owner id means no identity.
func (s *Store) Identity() (core.Identity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user.OwnerId == "" {
		return core.Identity{}, false
	}
	return core.Identity{
		OwnerId:   s.user.OwnerId,
		OwnerName: s.user.OwnerName,
	}, true
}

func (s *Store) SetIdentity(identity core.Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = User{
		OwnerId:   identity.OwnerId,
		OwnerName: identity.OwnerName,
	}
}

// Save writes the user file.
func (s *Store) Save() error {
	s.mu.Lock()
	user := s.user
	s.mu.Unlock()

	err := configutil.WriteJSON(s.UserPath(), user)
	if err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	return nil
}

// LoadJar returns a jar holding the saved cookies, empty when none were
// saved yet.
func (s *Store) LoadJar() (*cookies.Jar, error) {
	jar, err := cookies.New()
	if err != nil {
		return nil, err
	}
	err = jar.Load(s.CookiesPath())
	if err != nil {
		return nil, fmt.Errorf("load cookies: %w", err)
	}
	return jar, nil
}

func (s *Store) SaveJar(jar *cookies.Jar) error {
	err := jar.Save(s.CookiesPath())
	if err != nil {
		return fmt.Errorf("save cookies: %w", err)
	}
	return nil
}
