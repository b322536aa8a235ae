package player

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// shPlayer builds an ExecPlayer around a shell script so tests do not need
// a real media player. The stream URL lands in $1 and is ignored.
func shPlayer(script string) *ExecPlayer {
	return NewExecPlayer("sh", []string{"-c", script, "sh"})
}

func TestExecPlayer_TrackEndedOnNaturalExit(t *testing.T) {
	p := shPlayer("exit 0")
	require.NoError(t, p.PlayStream("http://example.test/stream.mp3"))

	assert.Eventually(t, p.TrackEnded, 2*time.Second, 10*time.Millisecond)
}

func TestExecPlayer_StopIsNotTrackEnd(t *testing.T) {
	p := shPlayer("sleep 30")
	require.NoError(t, p.PlayStream("http://example.test/stream.mp3"))

	require.NoError(t, p.Stop())
	time.Sleep(100 * time.Millisecond)
	assert.False(t, p.TrackEnded())
}

func TestExecPlayer_NewStreamSupersedesOld(t *testing.T) {
	p := shPlayer("sleep 30")
	require.NoError(t, p.PlayStream("http://example.test/one.mp3"))
	require.NoError(t, p.PlayStream("http://example.test/two.mp3"))

	// The first child's death must not be misread as the second track ending.
	time.Sleep(200 * time.Millisecond)
	assert.False(t, p.TrackEnded())
}

func TestExecPlayer_CurrentTimeFromOffset(t *testing.T) {
	p := shPlayer("sleep 30")
	require.NoError(t, p.PlayStreamAt("http://example.test/stream.mp3", 125))
	defer p.Stop()

	got := p.CurrentTime()
	assert.GreaterOrEqual(t, got, 125.0)
	assert.Less(t, got, 127.0)
}

func TestExecPlayer_PauseFreezesClock(t *testing.T) {
	p := shPlayer("sleep 30")
	require.NoError(t, p.PlayStream("http://example.test/stream.mp3"))
	defer p.Stop()

	require.NoError(t, p.Pause())
	before := p.CurrentTime()
	time.Sleep(150 * time.Millisecond)
	after := p.CurrentTime()
	assert.InDelta(t, before, after, 0.01)

	require.NoError(t, p.Play())
	time.Sleep(150 * time.Millisecond)
	assert.Greater(t, p.CurrentTime(), after)
}

func TestExecPlayer_IdleDefaults(t *testing.T) {
	p := shPlayer("exit 0")
	assert.Zero(t, p.CurrentTime())
	assert.False(t, p.TrackEnded())
	require.NoError(t, p.Pause())
	require.NoError(t, p.Stop())
}

func TestExecPlayer_BadCommand(t *testing.T) {
	p := NewExecPlayer("definitely-not-a-player-binary", nil)
	err := p.PlayStream("http://example.test/stream.mp3")
	require.Error(t, err)
}
