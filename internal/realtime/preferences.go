package realtime

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// Preferences are per-user ephemeral delivery settings. They live for the
// process lifetime only; whether a channel is actually honored (e.g. desktop
// popups) is the client's call, the server just keeps the record current.
type Preferences struct {
	Sound   bool `json:"sound"`
	Desktop bool `json:"desktop"`
	InApp   bool `json:"inApp"`
}

// PreferencePatch is a partial update. Nil fields are left unchanged.
// Unknown JSON fields are ignored by decoding.
type PreferencePatch struct {
	Sound   *bool `json:"sound,omitempty"`
	Desktop *bool `json:"desktop,omitempty"`
	InApp   *bool `json:"inApp,omitempty"`
}

func defaultPreferences() Preferences {
	return Preferences{Sound: true, Desktop: true, InApp: true}
}

// PreferenceStore keeps per-user preferences in memory. The mutex makes
// get-or-init and merge atomic per key; go-cache alone only guards the map.
type PreferenceStore struct {
	mu    sync.Mutex
	cache *cache.Cache
}

func NewPreferenceStore() *PreferenceStore {
	// Records never expire, the cleanup interval only reclaims test leftovers.
	return &PreferenceStore{
		cache: cache.New(cache.NoExpiration, 10*time.Minute),
	}
}

// GetOrInit returns the user's record, creating the default one on first use.
func (s *PreferenceStore) GetOrInit(userID uuid.UUID) Preferences {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getOrInitLocked(userID)
}

// Update merges patch over the existing record and returns the result.
func (s *PreferenceStore) Update(userID uuid.UUID, patch PreferencePatch) Preferences {
	s.mu.Lock()
	defer s.mu.Unlock()

	prefs := s.getOrInitLocked(userID)
	if patch.Sound != nil {
		prefs.Sound = *patch.Sound
	}
	if patch.Desktop != nil {
		prefs.Desktop = *patch.Desktop
	}
	if patch.InApp != nil {
		prefs.InApp = *patch.InApp
	}
	s.cache.Set(userID.String(), prefs, cache.NoExpiration)
	return prefs
}

func (s *PreferenceStore) getOrInitLocked(userID uuid.UUID) Preferences {
	if x, found := s.cache.Get(userID.String()); found {
		return x.(Preferences)
	}
	prefs := defaultPreferences()
	s.cache.Set(userID.String(), prefs, cache.NoExpiration)
	return prefs
}
