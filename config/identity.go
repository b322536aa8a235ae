package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

const identityFile = "identity.json"

// Identity is the stable player identity the server tracks across
// reconnects. The MAC address doubles as the SlimProto player ID; the UUID
// fills the 16-byte identifier slot in the handshake.
type Identity struct {
	UUID string `json:"uuid"`
	MAC  string `json:"mac"`
}

// IdentityPath returns the full path to the identity file.
func IdentityPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("determining home directory: %w", err)
	}
	return filepath.Join(home, dirName, identityFile), nil
}

// LoadOrCreateIdentity reads the identity file, generating and persisting a
// fresh identity on first run so the server sees the same player every time.
func LoadOrCreateIdentity(path string) (Identity, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		var id Identity
		if err := json.Unmarshal(data, &id); err != nil {
			return Identity{}, fmt.Errorf("parsing identity: %w", err)
		}
		if id.UUID != "" && id.MAC != "" {
			return id, nil
		}
		// Fall through and regenerate a partial file.
	} else if !errors.Is(err, os.ErrNotExist) {
		return Identity{}, fmt.Errorf("reading identity: %w", err)
	}

	id := newIdentity()

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return Identity{}, fmt.Errorf("creating config directory: %w", err)
	}
	out, err := json.MarshalIndent(id, "", "  ")
	if err != nil {
		return Identity{}, fmt.Errorf("marshalling identity: %w", err)
	}
	if err := os.WriteFile(path, out, 0600); err != nil {
		return Identity{}, fmt.Errorf("writing identity: %w", err)
	}
	return id, nil
}

// newIdentity derives a locally-administered, unicast MAC from the first
// six bytes of a random UUID.
func newIdentity() Identity {
	u := uuid.New()

	var mac [6]byte
	copy(mac[:], u[:6])
	mac[0] |= 0x02 // locally administered
	mac[0] &^= 0x01

	return Identity{
		UUID: u.String(),
		MAC:  net.HardwareAddr(mac[:]).String(),
	}
}

// HardwareAddr returns the identity's MAC as the fixed array the handshake
// payload needs.
func (id Identity) HardwareAddr() ([6]byte, error) {
	var out [6]byte
	hw, err := net.ParseMAC(id.MAC)
	if err != nil || len(hw) != 6 {
		return out, fmt.Errorf("parsing identity MAC %q: %w", id.MAC, err)
	}
	copy(out[:], hw)
	return out, nil
}

// UUIDBytes returns the identity's UUID as the fixed array the handshake
// payload needs.
func (id Identity) UUIDBytes() ([16]byte, error) {
	var out [16]byte
	u, err := uuid.Parse(id.UUID)
	if err != nil {
		return out, fmt.Errorf("parsing identity UUID %q: %w", id.UUID, err)
	}
	copy(out[:], u[:])
	return out, nil
}
