package slimproto

import (
	"encoding/binary"
	"strings"
)

// strm subcommand bytes.
const (
	StrmStart   byte = 's'
	StrmPause   byte = 'p'
	StrmUnpause byte = 'u'
	StrmStop    byte = 'q'
	StrmStatus  byte = 't'
	StrmFlush   byte = 'f'
)

// Stream format bytes carried in a strm start command.
const (
	FormatMP3  byte = 'm'
	FormatFLAC byte = 'f'
)

// strmMinLen is the payload length below which a strm command cannot be
// fully decoded.
const strmMinLen = 24

// maxResumeSeconds bounds the server-supplied elapsed-time hint. Values at
// or beyond one hour are assumed to be a misread binary field, not a real
// resume position.
const maxResumeSeconds = 3600

// Strm is a decoded stream-control command.
//
// Field carries bytes 16-19 of the payload, a 32-bit value the upstream
// protocol reuses for two unrelated meanings: an elapsed-seconds hint on
// start commands and a timestamp to echo back on status requests. The
// dual reading is a quirk of the wire format and is preserved as-is.
type Strm struct {
	Sub       byte
	Autostart byte
	Format    byte
	Field     uint32

	// Request is the raw HTTP request line embedded at bytes 24+ of a
	// start command, empty when absent.
	Request string

	// Incomplete marks a strm payload shorter than the decodable minimum.
	Incomplete bool
}

// Command is one parsed inbound command. Strm is non-nil only for "strm"
// tags; every other tag keeps its raw payload, which the engine does not
// interpret.
type Command struct {
	Tag     string
	Strm    *Strm
	Payload []byte
}

// ParseCommand interprets an inbound message body.
func ParseCommand(msg Message) Command {
	if msg.Tag != "strm" {
		return Command{Tag: msg.Tag, Payload: msg.Payload}
	}

	p := msg.Payload
	if len(p) < strmMinLen {
		s := &Strm{Incomplete: true}
		if len(p) > 0 {
			s.Sub = p[0]
		}
		return Command{Tag: msg.Tag, Strm: s}
	}

	s := &Strm{
		Sub:       p[0],
		Autostart: p[1],
		Format:    p[2],
		Field:     binary.BigEndian.Uint32(p[16:20]),
	}
	if len(p) > strmMinLen {
		s.Request = strings.TrimRight(string(p[strmMinLen:]), "\r\n\x00")
	}
	return Command{Tag: msg.Tag, Strm: s}
}

// ElapsedHint validates a server-supplied resume position. Only values in
// the open interval (0, 3600) seconds are plausible; everything else is
// reported as no hint and playback starts from zero.
func ElapsedHint(v uint32) (float64, bool) {
	if v > 0 && v < maxResumeSeconds {
		return float64(v), true
	}
	return 0, false
}
