package realtime

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrInitDefaults(t *testing.T) {
	store := NewPreferenceStore()
	prefs := store.GetOrInit(uuid.New())

	assert.Equal(t, Preferences{Sound: true, Desktop: true, InApp: true}, prefs)
}

func TestUpdateMergesPartial(t *testing.T) {
	store := NewPreferenceStore()
	user := uuid.New()

	off := false
	got := store.Update(user, PreferencePatch{Sound: &off})
	assert.Equal(t, Preferences{Sound: false, Desktop: true, InApp: true}, got)

	// Absent fields stay untouched across a second partial update.
	got = store.Update(user, PreferencePatch{InApp: &off})
	assert.Equal(t, Preferences{Sound: false, Desktop: true, InApp: false}, got)
}

func TestUpdateIsIdempotent(t *testing.T) {
	store := NewPreferenceStore()
	user := uuid.New()

	off := false
	first := store.Update(user, PreferencePatch{Sound: &off})
	second := store.Update(user, PreferencePatch{Sound: &off})
	assert.Equal(t, first, second)
}

func TestEmptyPatchChangesNothing(t *testing.T) {
	store := NewPreferenceStore()
	user := uuid.New()

	got := store.Update(user, PreferencePatch{})
	assert.Equal(t, Preferences{Sound: true, Desktop: true, InApp: true}, got)
}

func TestUnknownJSONFieldsIgnored(t *testing.T) {
	var patch PreferencePatch
	require.NoError(t, json.Unmarshal([]byte(`{"sound":false,"volume":11}`), &patch))

	store := NewPreferenceStore()
	got := store.Update(uuid.New(), patch)
	assert.Equal(t, Preferences{Sound: false, Desktop: true, InApp: true}, got)
}

func TestConcurrentAccessSameUser(t *testing.T) {
	store := NewPreferenceStore()
	user := uuid.New()

	var wg sync.WaitGroup
	off := false
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			store.GetOrInit(user)
		}()
		go func() {
			defer wg.Done()
			store.Update(user, PreferencePatch{Desktop: &off})
		}()
	}
	wg.Wait()

	got := store.GetOrInit(user)
	assert.Equal(t, Preferences{Sound: true, Desktop: false, InApp: true}, got)
}
