package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)

	assert.Equal(t, 3483, cfg.SlimPort)
	assert.Equal(t, 9000, cfg.WebPort)
	assert.Equal(t, "SlimWire", cfg.PlayerName)
	assert.Equal(t, "mpv", cfg.PlayerCommand)
	assert.Empty(t, cfg.Server)
}

func TestLoad_ReappliesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"server":"lms.local","slim_port":0}`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "lms.local", cfg.Server)
	assert.Equal(t, 3483, cfg.SlimPort)
	assert.Equal(t, "mpv", cfg.PlayerCommand)
}

func TestLoad_InvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{nope"), 0644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestSaveLoad_Roundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.json")

	want := Default()
	want.Server = "192.168.1.50"
	want.WebPort = 9002
	require.NoError(t, Save(path, want))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLoadOrCreateIdentity_StableAcrossReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "identity.json")

	first, err := LoadOrCreateIdentity(path)
	require.NoError(t, err)
	second, err := LoadOrCreateIdentity(path)
	require.NoError(t, err)

	assert.Equal(t, first, second)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestLoadOrCreateIdentity_MACIsLocallyAdministered(t *testing.T) {
	path := filepath.Join(t.TempDir(), "identity.json")

	id, err := LoadOrCreateIdentity(path)
	require.NoError(t, err)

	hw, err := id.HardwareAddr()
	require.NoError(t, err)
	assert.NotZero(t, hw[0]&0x02, "locally administered bit must be set")
	assert.Zero(t, hw[0]&0x01, "multicast bit must be clear")

	uid, err := id.UUIDBytes()
	require.NoError(t, err)
	assert.Equal(t, strings.Count(id.UUID, "-"), 4)
	assert.NotEqual(t, [16]byte{}, uid)
}

func TestLoadOrCreateIdentity_RegeneratesPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "identity.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"uuid":"","mac":""}`), 0600))

	id, err := LoadOrCreateIdentity(path)
	require.NoError(t, err)
	assert.NotEmpty(t, id.UUID)
	assert.NotEmpty(t, id.MAC)
}
