package agentstate

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-booking/internal/model"
)

func TestLoadMissingFile(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "nested", "state.json"))

	st, err := s.Load()
	require.NoError(t, err)
	assert.NotEmpty(t, st.DeviceID)
	assert.Empty(t, st.APIToken)
}

func TestUpdatePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.json")
	s := NewStore(path)

	expires := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.Update(func(st *State) error {
		st.APIToken = "token"
		st.TokenExpiresAt = expires
		st.PushSubscription = &model.PushSubscription{DeviceID: st.DeviceID, Platform: "linux", Channel: "desktop"}
		return nil
	}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	st, err := NewStore(path).Load()
	require.NoError(t, err)
	assert.Equal(t, "token", st.APIToken)
	assert.True(t, expires.Equal(st.TokenExpiresAt))
	require.NotNil(t, st.PushSubscription)
	assert.Equal(t, st.DeviceID, st.PushSubscription.DeviceID)

	again, err := NewStore(path).Load()
	require.NoError(t, err)
	assert.Equal(t, st.DeviceID, again.DeviceID, "device id is stable once saved")
}

func TestUpdateErrorDoesNotWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	s := NewStore(path)

	err := s.Update(func(st *State) error {
		st.APIToken = "x"
		return errors.New("abort")
	})
	assert.Error(t, err)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestPermission(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "state.json"))

	p, err := s.LoadPermission()
	require.NoError(t, err)
	assert.Empty(t, p)

	require.NoError(t, s.SavePermission("granted"))
	p, err = s.LoadPermission()
	require.NoError(t, err)
	assert.Equal(t, "granted", p)
}

func TestCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o600))

	_, err := NewStore(path).Load()
	assert.Error(t, err)
}
