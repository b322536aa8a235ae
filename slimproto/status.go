package slimproto

import (
	"encoding/binary"
	"math"
	"time"
)

// Status event codes reported to the server.
const (
	EventConnect      = "STMc" // stream connection acknowledged
	EventStreamStart  = "STMs" // playback started
	EventPaused       = "STMp"
	EventResumed      = "STMr"
	EventFlushed      = "STMf"
	EventDecoderReady = "STMd" // track finished, ready for the next one
	EventTimer        = "STMt" // heartbeat / status-request reply
	EventNotSupported = "STMn"
)

const (
	// assumedBitrate feeds the cumulative bytes-received estimate. The
	// server only uses it for rough progress display, so a fixed 320 kbps
	// matching the transcode bitrate is close enough.
	assumedBitrate = 320000

	// Fixed telemetry the wire format requires whether or not it means
	// anything for a software player.
	bufferSize       = 262144
	outputBufferSize = 3528000
	signalWired      = 0xFFFF

	masInitialized = 'm'

	statusBaseLen  = 37
	statusTimerLen = statusBaseLen + 16
)

var processStart = time.Now()

// StatusReport captures everything that varies between status messages;
// the encoder supplies the fixed telemetry.
type StatusReport struct {
	Event          string
	ElapsedSeconds float64
	EchoTimestamp  uint32
}

// EncodeStatus builds the fixed-layout STAT payload for a report.
//
// Only the timer event carries the trailing timing block (elapsed seconds,
// voltage, elapsed milliseconds, echoed server timestamp, error code); the
// server's parser rejects those fields on any other event code, so they
// are appended conditionally.
func EncodeStatus(rep StatusReport) []byte {
	size := statusBaseLen
	if rep.Event == EventTimer {
		size = statusTimerLen
	}
	buf := make([]byte, size)

	copy(buf[0:4], padEvent(rep.Event))
	buf[4] = 0 // CRLF count
	buf[5] = masInitialized
	buf[6] = 0 // MAS mode
	binary.BigEndian.PutUint32(buf[7:11], bufferSize)
	binary.BigEndian.PutUint32(buf[11:15], bufferSize/2)
	binary.BigEndian.PutUint64(buf[15:23], bytesReceived(rep.ElapsedSeconds))
	binary.BigEndian.PutUint16(buf[23:25], signalWired)
	binary.BigEndian.PutUint32(buf[25:29], jiffies())
	binary.BigEndian.PutUint32(buf[29:33], outputBufferSize)
	binary.BigEndian.PutUint32(buf[33:37], outputBufferSize/2)

	if rep.Event == EventTimer {
		secs, ms := splitElapsed(rep.ElapsedSeconds)
		binary.BigEndian.PutUint32(buf[37:41], secs)
		binary.BigEndian.PutUint16(buf[41:43], 0) // voltage
		binary.BigEndian.PutUint32(buf[43:47], ms)
		binary.BigEndian.PutUint32(buf[47:51], rep.EchoTimestamp)
		binary.BigEndian.PutUint16(buf[51:53], 0) // error code
	}

	return buf
}

// EncodeStatusFrame is EncodeStatus wrapped in the outbound envelope.
func EncodeStatusFrame(rep StatusReport) []byte {
	return EncodeFrame("STAT", EncodeStatus(rep))
}

func padEvent(event string) []byte {
	p := []byte{' ', ' ', ' ', ' '}
	copy(p, event)
	return p
}

// bytesReceived estimates cumulative stream bytes from elapsed playback
// time at the assumed bitrate, clamped so NaN or negative readings from
// the playback engine never reach a fixed-width field.
func bytesReceived(elapsed float64) uint64 {
	if math.IsNaN(elapsed) || math.IsInf(elapsed, 0) || elapsed <= 0 {
		return 0
	}
	return uint64(elapsed * assumedBitrate / 8)
}

func splitElapsed(elapsed float64) (secs uint32, ms uint32) {
	if math.IsNaN(elapsed) || math.IsInf(elapsed, 0) || elapsed <= 0 {
		return 0, 0
	}
	return uint32(elapsed), uint32(elapsed * 1000)
}

// jiffies is the free-running millisecond counter the STAT layout carries.
func jiffies() uint32 {
	return uint32(time.Since(processStart) / time.Millisecond)
}
