package slimproto

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

const (
	// deviceTypeSqueezebox identifies the emulated hardware family in the
	// handshake; the server keys firmware/capability behaviour off it.
	deviceTypeSqueezebox = 0x0C

	heloRevision = 0

	// heloFixedLen is the fixed-layout prefix of the HELO payload:
	// 1 device type + 1 revision + 6 MAC + 16 UUID + 2 bitmask +
	// 8 byte counter + 2 language.
	heloFixedLen = 36
)

// BuildHELO builds the handshake payload identifying this player to the
// server. The capability string claims only the formats the local playback
// path can actually deliver (MP3), which steers the server toward
// transcoded streams the resolver knows how to address.
func BuildHELO(mac [6]byte, uid [16]byte, model string) []byte {
	var buf bytes.Buffer
	buf.Grow(heloFixedLen + 64)

	buf.WriteByte(deviceTypeSqueezebox)
	buf.WriteByte(heloRevision)
	buf.Write(mac[:])
	buf.Write(uid[:])

	var word [8]byte
	binary.BigEndian.PutUint16(word[:2], 0) // capability bitmask, fixed
	buf.Write(word[:2])
	buf.Write(word[:8]) // reserved byte counter, always zero
	buf.WriteString("en")

	fmt.Fprintf(&buf, "mp3,Model=%s,ModelName=SlimWire,MaxSampleRate=48000", model)

	return buf.Bytes()
}
