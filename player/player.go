// Package player defines the playback-engine collaborator the protocol
// engine drives. The engine never decodes audio itself; it hands a URL to
// a Player and polls position and end-of-track.
package player

// Player is the playback engine contract.
type Player interface {
	// PlayStream starts playback of url from the beginning.
	PlayStream(url string) error

	// PlayStreamAt starts playback of url at offsetSeconds into the track.
	PlayStreamAt(url string, offsetSeconds float64) error

	// Pause suspends playback; Play resumes it.
	Pause() error
	Play() error

	// Stop ends playback and discards the current stream.
	Stop() error

	// CurrentTime reports the elapsed playback position in seconds.
	CurrentTime() float64

	// TrackEnded reports whether the current track finished on its own
	// since the last PlayStream call.
	TrackEnded() bool
}
