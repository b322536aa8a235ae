package slimproto

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// Frame tests
// ---------------------------------------------------------------------------

func inboundFrame(tag string, payload []byte) []byte {
	body := append([]byte(tag), payload...)
	buf := make([]byte, 2+len(body))
	binary.BigEndian.PutUint16(buf[:2], uint16(len(body)))
	copy(buf[2:], body)
	return buf
}

func TestReadFrame(t *testing.T) {
	cases := []struct {
		name    string
		tag     string
		payload []byte
	}{
		{name: "no payload", tag: "strm", payload: nil},
		{name: "short payload", tag: "aude", payload: []byte{1, 1}},
		{name: "long payload", tag: "strm", payload: bytes.Repeat([]byte{0xAB}, 200)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			msg, discarded, err := ReadFrame(bytes.NewReader(inboundFrame(tc.tag, tc.payload)))
			require.NoError(t, err)
			assert.Zero(t, discarded)
			assert.Equal(t, tc.tag, msg.Tag)
			assert.Equal(t, len(tc.payload), len(msg.Payload))
		})
	}
}

func TestReadFrame_ResyncOnZeroLength(t *testing.T) {
	var input []byte
	input = append(input, 0x00, 0x00) // zero length: skip
	input = append(input, inboundFrame("strm", []byte("t"))...)

	msg, discarded, err := ReadFrame(bytes.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 1, discarded)
	assert.Equal(t, "strm", msg.Tag)
}

func TestReadFrame_ResyncOnOversizedLength(t *testing.T) {
	var input []byte
	input = append(input, 0x27, 0x10) // 10000: at the limit, skip
	input = append(input, 0xFF, 0xFF) // garbage length, skip
	input = append(input, inboundFrame("vers", []byte("9.0.0"))...)

	msg, discarded, err := ReadFrame(bytes.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 2, discarded)
	assert.Equal(t, "vers", msg.Tag)
	assert.Equal(t, "9.0.0", string(msg.Payload))
}

func TestReadFrame_ShortRead(t *testing.T) {
	// Declared 20 bytes, only 6 available: connection failure.
	input := []byte{0x00, 0x14, 's', 't', 'r', 'm', 0x00, 0x00}
	_, _, err := ReadFrame(bytes.NewReader(input))
	require.Error(t, err)
}

func TestReadFrame_TruncatedPrefix(t *testing.T) {
	_, _, err := ReadFrame(bytes.NewReader([]byte{0x00}))
	require.Error(t, err)
}

func TestEncodeFrame_Layout(t *testing.T) {
	payload := []byte{0x01, 0x02, 0x03}
	out := EncodeFrame("HELO", payload)

	require.Len(t, out, 4+4+3)
	assert.Equal(t, "HELO", string(out[:4]))
	assert.Equal(t, uint32(3), binary.BigEndian.Uint32(out[4:8]))
	assert.Equal(t, payload, out[8:])
}

// ---------------------------------------------------------------------------
// Command tests
// ---------------------------------------------------------------------------

func strmPayload(sub, format byte, field uint32, request string) []byte {
	p := make([]byte, 24)
	p[0] = sub
	p[1] = '1'
	p[2] = format
	binary.BigEndian.PutUint32(p[16:20], field)
	return append(p, request...)
}

func TestParseCommand_Start(t *testing.T) {
	req := "GET /stream.mp3?player=00:04:20:12:34:56 HTTP/1.0"
	cmd := ParseCommand(Message{Tag: "strm", Payload: strmPayload(StrmStart, FormatMP3, 125, req)})

	require.NotNil(t, cmd.Strm)
	assert.False(t, cmd.Strm.Incomplete)
	assert.Equal(t, StrmStart, cmd.Strm.Sub)
	assert.Equal(t, FormatMP3, cmd.Strm.Format)
	assert.Equal(t, uint32(125), cmd.Strm.Field)
	assert.Equal(t, req, cmd.Strm.Request)
}

func TestParseCommand_StripsLineEndings(t *testing.T) {
	cmd := ParseCommand(Message{
		Tag:     "strm",
		Payload: strmPayload(StrmStart, FormatFLAC, 0, "GET /x HTTP/1.0\r\n\r\n"),
	})
	require.NotNil(t, cmd.Strm)
	assert.Equal(t, "GET /x HTTP/1.0", cmd.Strm.Request)
}

func TestParseCommand_ShortStrm(t *testing.T) {
	cmd := ParseCommand(Message{Tag: "strm", Payload: []byte{StrmStart, '1', 'm', 0, 0, 0, 0, 0, 0, 0}})
	require.NotNil(t, cmd.Strm)
	assert.True(t, cmd.Strm.Incomplete)
	assert.Equal(t, StrmStart, cmd.Strm.Sub)
}

func TestParseCommand_NonStrm(t *testing.T) {
	cmd := ParseCommand(Message{Tag: "audg", Payload: []byte{0, 1, 2}})
	assert.Nil(t, cmd.Strm)
	assert.Equal(t, "audg", cmd.Tag)
	assert.Equal(t, []byte{0, 1, 2}, cmd.Payload)
}

func TestElapsedHint(t *testing.T) {
	cases := []struct {
		in   uint32
		want float64
		ok   bool
	}{
		{0, 0, false},
		{1, 1, true},
		{3599, 3599, true},
		{3600, 0, false},
		{4294967295, 0, false},
	}

	for _, tc := range cases {
		got, ok := ElapsedHint(tc.in)
		assert.Equal(t, tc.ok, ok, "value %d", tc.in)
		assert.Equal(t, tc.want, got, "value %d", tc.in)
	}
}

// ---------------------------------------------------------------------------
// Status encoder tests
// ---------------------------------------------------------------------------

func TestEncodeStatus_TimerCarriesTimingBlock(t *testing.T) {
	rep := StatusReport{Event: EventTimer, ElapsedSeconds: 125.5, EchoTimestamp: 0xDEADBEEF}
	out := EncodeStatus(rep)

	require.Len(t, out, statusTimerLen)
	assert.Equal(t, "STMt", string(out[:4]))
	assert.Equal(t, uint32(125), binary.BigEndian.Uint32(out[37:41]))
	assert.Equal(t, uint16(0), binary.BigEndian.Uint16(out[41:43]))
	assert.Equal(t, uint32(125500), binary.BigEndian.Uint32(out[43:47]))
	assert.Equal(t, uint32(0xDEADBEEF), binary.BigEndian.Uint32(out[47:51]))
	assert.Equal(t, uint16(0), binary.BigEndian.Uint16(out[51:53]))
}

func TestEncodeStatus_NonTimerOmitsTimingBlock(t *testing.T) {
	for _, event := range []string{
		EventConnect, EventStreamStart, EventPaused, EventResumed,
		EventFlushed, EventDecoderReady, EventNotSupported,
	} {
		out := EncodeStatus(StatusReport{Event: event, ElapsedSeconds: 10})
		assert.Len(t, out, statusBaseLen, "event %s", event)
		assert.Equal(t, event, string(out[:4]))
	}
}

func TestEncodeStatus_FixedTelemetry(t *testing.T) {
	out := EncodeStatus(StatusReport{Event: EventConnect, ElapsedSeconds: 10})

	assert.Equal(t, byte(0), out[4], "CRLF count")
	assert.Equal(t, byte(masInitialized), out[5])
	assert.Equal(t, byte(0), out[6], "MAS mode")
	assert.Equal(t, uint32(bufferSize), binary.BigEndian.Uint32(out[7:11]))
	// 10s at 320kbps = 400000 bytes.
	assert.Equal(t, uint64(400000), binary.BigEndian.Uint64(out[15:23]))
	assert.Equal(t, uint16(signalWired), binary.BigEndian.Uint16(out[23:25]))
	assert.Equal(t, uint32(outputBufferSize), binary.BigEndian.Uint32(out[29:33]))
}

func TestEncodeStatus_ClampsBadElapsed(t *testing.T) {
	for _, elapsed := range []float64{math.NaN(), math.Inf(1), math.Inf(-1), -5} {
		out := EncodeStatus(StatusReport{Event: EventTimer, ElapsedSeconds: elapsed})
		assert.Equal(t, uint64(0), binary.BigEndian.Uint64(out[15:23]))
		assert.Equal(t, uint32(0), binary.BigEndian.Uint32(out[37:41]))
		assert.Equal(t, uint32(0), binary.BigEndian.Uint32(out[43:47]))
	}
}

func TestEncodeStatusFrame_Envelope(t *testing.T) {
	out := EncodeStatusFrame(StatusReport{Event: EventTimer})
	require.Greater(t, len(out), 8)
	assert.Equal(t, "STAT", string(out[:4]))
	assert.Equal(t, uint32(statusTimerLen), binary.BigEndian.Uint32(out[4:8]))
}

// ---------------------------------------------------------------------------
// HELO tests
// ---------------------------------------------------------------------------

func TestBuildHELO_Layout(t *testing.T) {
	mac := [6]byte{0x02, 0x11, 0x22, 0x33, 0x44, 0x55}
	var uid [16]byte
	for i := range uid {
		uid[i] = byte(i)
	}

	out := BuildHELO(mac, uid, "slimwire")

	require.Greater(t, len(out), heloFixedLen)
	assert.Equal(t, byte(deviceTypeSqueezebox), out[0])
	assert.Equal(t, mac[:], out[2:8])
	assert.Equal(t, uid[:], out[8:24])
	// Reserved byte counter is all zeroes.
	assert.Equal(t, make([]byte, 8), out[26:34])
	assert.Equal(t, "en", string(out[34:36]))

	caps := string(out[heloFixedLen:])
	assert.Contains(t, caps, "mp3")
	assert.Contains(t, caps, "Model=slimwire")
	assert.NotContains(t, caps, "flc", "capability string must not claim formats the player cannot decode")
}
