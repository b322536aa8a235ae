package player

import (
	"fmt"
	"os/exec"
	"sync"
	"syscall"
	"time"

	logging "github.com/ipfs/go-log/v2"
)

var log = logging.Logger("slimwire.player")

// ExecPlayer drives an external player binary (mpv by default) as the
// playback engine. Position is tracked by wall clock from the requested
// start offset, with pauses excluded; the child is suspended and resumed
// with SIGSTOP/SIGCONT so the stream connection stays open across pauses.
type ExecPlayer struct {
	command string
	args    []string

	mu          sync.Mutex
	cmd         *exec.Cmd
	startOffset float64
	startedAt   time.Time
	paused      bool
	pausedAt    time.Time
	pausedFor   time.Duration
	ended       bool
	stopping    bool
}

// NewExecPlayer creates a player that runs command with args followed by
// the stream URL.
func NewExecPlayer(command string, args []string) *ExecPlayer {
	return &ExecPlayer{command: command, args: args}
}

func (p *ExecPlayer) PlayStream(url string) error {
	return p.PlayStreamAt(url, 0)
}

func (p *ExecPlayer) PlayStreamAt(url string, offsetSeconds float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.killLocked()

	args := make([]string, 0, len(p.args)+2)
	args = append(args, p.args...)
	if offsetSeconds > 0 {
		args = append(args, fmt.Sprintf("--start=%.1f", offsetSeconds))
	}
	args = append(args, url)

	cmd := exec.Command(p.command, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("player: starting %s: %w", p.command, err)
	}
	log.Debugw("player started", "command", p.command, "offset", offsetSeconds)

	p.cmd = cmd
	p.startOffset = offsetSeconds
	p.startedAt = time.Now()
	p.paused = false
	p.pausedFor = 0
	p.ended = false
	p.stopping = false

	go p.reap(cmd)
	return nil
}

// reap waits for the child and flags a natural exit as end-of-track.
func (p *ExecPlayer) reap(cmd *exec.Cmd) {
	err := cmd.Wait()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cmd != cmd {
		return // superseded by a newer stream
	}
	if !p.stopping {
		log.Debugw("player exited", "err", err)
		p.ended = true
	}
	p.cmd = nil
}

func (p *ExecPlayer) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cmd == nil || p.paused {
		return nil
	}
	if err := p.cmd.Process.Signal(syscall.SIGSTOP); err != nil {
		return fmt.Errorf("player: pausing: %w", err)
	}
	p.paused = true
	p.pausedAt = time.Now()
	return nil
}

func (p *ExecPlayer) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cmd == nil || !p.paused {
		return nil
	}
	if err := p.cmd.Process.Signal(syscall.SIGCONT); err != nil {
		return fmt.Errorf("player: resuming: %w", err)
	}
	p.pausedFor += time.Since(p.pausedAt)
	p.paused = false
	return nil
}

func (p *ExecPlayer) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.killLocked()
	p.startOffset = 0
	p.startedAt = time.Time{}
	p.ended = false
	return nil
}

func (p *ExecPlayer) killLocked() {
	if p.cmd == nil {
		return
	}
	p.stopping = true
	if p.paused {
		// A stopped process cannot handle SIGKILL until continued.
		_ = p.cmd.Process.Signal(syscall.SIGCONT)
		p.paused = false
	}
	_ = p.cmd.Process.Kill()
	p.cmd = nil
}

func (p *ExecPlayer) CurrentTime() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.startedAt.IsZero() {
		return 0
	}
	elapsed := time.Since(p.startedAt) - p.pausedFor
	if p.paused {
		elapsed -= time.Since(p.pausedAt)
	}
	return p.startOffset + elapsed.Seconds()
}

func (p *ExecPlayer) TrackEnded() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ended
}
