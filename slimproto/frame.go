package slimproto

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// MaxFrameSize is the largest inbound frame length the server will
// legitimately send. Anything at or above this is treated as protocol
// desync and skipped.
const MaxFrameSize = 10000

// tagSize is the length of the ASCII command tag at the start of every
// inbound message body.
const tagSize = 4

var ErrShortTag = errors.New("slimproto: frame shorter than command tag")

// Message is one complete inbound protocol message.
// Wire format: [2B length][4B ASCII tag][payload], big-endian.
type Message struct {
	Tag     string
	Payload []byte
}

// ReadFrame reads exactly one inbound message from r.
//
// It reads a 2-byte big-endian length prefix; lengths of zero, lengths
// below the tag size, and lengths >= MaxFrameSize are consumed and
// skipped, and scanning resumes at the next length prefix. The number of
// skipped prefixes is returned alongside the message so callers can count
// resyncs. A short read is a connection failure and is returned as an
// error for the caller's reconnect logic.
func ReadFrame(r io.Reader) (Message, int, error) {
	var discarded int
	var hdr [2]byte

	for {
		if _, err := io.ReadFull(r, hdr[:]); err != nil {
			return Message{}, discarded, fmt.Errorf("slimproto: reading length prefix: %w", err)
		}

		length := int(binary.BigEndian.Uint16(hdr[:]))
		if length == 0 || length >= MaxFrameSize {
			discarded++
			continue
		}

		body := make([]byte, length)
		if _, err := io.ReadFull(r, body); err != nil {
			return Message{}, discarded, fmt.Errorf("slimproto: reading frame body: %w", err)
		}

		// A body too short to hold the tag cannot be a real command;
		// skip it and keep scanning.
		if length < tagSize {
			discarded++
			continue
		}

		return Message{
			Tag:     string(body[:tagSize]),
			Payload: body[tagSize:],
		}, discarded, nil
	}
}

// EncodeFrame serialises an outbound message into its wire representation:
// [4B ASCII tag][4B big-endian payload length][payload], built as a single
// buffer so it can go out in one write.
func EncodeFrame(tag string, payload []byte) []byte {
	buf := make([]byte, tagSize+4+len(payload))
	copy(buf[:tagSize], tag)
	binary.BigEndian.PutUint32(buf[tagSize:tagSize+4], uint32(len(payload)))
	copy(buf[tagSize+4:], payload)
	return buf
}
