// Package engine implements the SlimProto client: it owns the TCP
// connection to the server, decodes inbound commands, drives the playback
// engine, and reports status and timing back. One Engine maintains one
// logical connection and reconnects indefinitely until its context ends.
package engine

import (
	"context"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	logging "github.com/ipfs/go-log/v2"

	"github.com/slimwire/slimwire/control"
	"github.com/slimwire/slimwire/metrics"
	"github.com/slimwire/slimwire/player"
	"github.com/slimwire/slimwire/resolver"
	"github.com/slimwire/slimwire/slimproto"
)

var log = logging.Logger("slimwire.engine")

// Config identifies this player to the server.
type Config struct {
	Host     string
	SlimPort int

	// MAC is the link-layer address sent in the handshake; its string
	// form is PlayerID, the key the control API addresses this player by.
	MAC      [6]byte
	UUID     [16]byte
	PlayerID string
	Model    string
}

// session is the engine's record of the currently assigned stream.
// Exactly one exists per connection; the zero value means no stream.
type session struct {
	id           uint64
	active       bool
	streamURL    string
	format       byte
	resumeOffset float64
	hasResume    bool

	// echoTimestamp is the last opaque timestamp the server sent on a
	// status request, returned unmodified in every subsequent report.
	echoTimestamp uint32
}

// Engine is the protocol state machine plus connection manager.
type Engine struct {
	cfg      Config
	player   player.Player
	control  *control.Client
	resolver *resolver.Resolver
	metrics  *metrics.Collector

	// Tunables, defaulted by New. Tests shorten them.
	DialTimeout        time.Duration
	ReadTimeout        time.Duration
	HeartbeatInterval  time.Duration
	ReconnectDelay     time.Duration
	InitialStatusDelay time.Duration

	state  atomic.Int32
	events chan Event

	mu     sync.Mutex
	sess   session
	send   func([]byte) // enqueue on the current connection, nil when down
	nextID uint64
}

// New creates an engine. All collaborators are injected; mc may be nil to
// run without metrics.
func New(cfg Config, p player.Player, ctrl *control.Client, res *resolver.Resolver, mc *metrics.Collector) *Engine {
	return &Engine{
		cfg:                cfg,
		player:             p,
		control:            ctrl,
		resolver:           res,
		metrics:            mc,
		DialTimeout:        10 * time.Second,
		ReadTimeout:        45 * time.Second,
		HeartbeatInterval:  10 * time.Second,
		ReconnectDelay:     5 * time.Second,
		InitialStatusDelay: 2 * time.Second,
		events:             make(chan Event, 32),
	}
}

// State reports the current connection state.
func (e *Engine) State() State {
	return State(e.state.Load())
}

// Events returns the engine's event feed. Events are dropped, not queued,
// when the owner falls behind.
func (e *Engine) Events() <-chan Event {
	return e.events
}

// Run connects and serves the protocol until ctx is cancelled. Every lost
// connection is retried after a fixed delay, indefinitely: the server is
// usually the transient party, so there is no backoff growth and no
// attempt limit.
func (e *Engine) Run(ctx context.Context) error {
	first := true
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !first {
			e.metrics.Reconnect()
		}
		first = false

		err := e.runConnection(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Infow("connection lost", "err", err, "retry_in", e.ReconnectDelay)

		select {
		case <-time.After(e.ReconnectDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// runConnection owns one socket from dial to teardown.
func (e *Engine) runConnection(ctx context.Context) error {
	e.setState(Connecting)
	defer e.teardown()

	addr := net.JoinHostPort(e.cfg.Host, strconv.Itoa(e.cfg.SlimPort))
	d := net.Dialer{Timeout: e.DialTimeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	defer conn.Close()
	log.Infow("connected", "addr", addr, "player", e.cfg.PlayerID)

	helo := slimproto.EncodeFrame("HELO", slimproto.BuildHELO(e.cfg.MAC, e.cfg.UUID, e.cfg.Model))
	if _, err := conn.Write(helo); err != nil {
		return err
	}

	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// All outbound writes funnel through one goroutine so the two write
	// producers (read loop replies, heartbeat timer) never interleave on
	// the socket.
	writeCh := make(chan []byte, 64)
	go func() {
		for {
			select {
			case data := <-writeCh:
				if _, err := conn.Write(data); err != nil {
					cancel()
					return
				}
			case <-connCtx.Done():
				return
			}
		}
	}()

	enqueue := func(data []byte) {
		select {
		case writeCh <- data:
		case <-connCtx.Done():
		}
	}
	e.mu.Lock()
	e.send = enqueue
	e.mu.Unlock()

	e.setState(Connected)
	e.publish(Event{Type: EventConnected})

	go e.heartbeatLoop(connCtx)
	go e.recoverInProgressStream(connCtx)

	// Unblock the read loop when the context ends.
	go func() {
		<-connCtx.Done()
		conn.Close()
	}()

	for {
		if err := conn.SetReadDeadline(time.Now().Add(e.ReadTimeout)); err != nil {
			return err
		}
		msg, discarded, err := slimproto.ReadFrame(conn)
		if err != nil {
			return err
		}
		if discarded > 0 {
			log.Debugw("resynchronized frame stream", "skipped", discarded)
		}
		e.metrics.FrameDecoded(discarded)
		e.handle(connCtx, slimproto.ParseCommand(msg))
	}
}

// teardown resets per-connection state after the socket dies.
func (e *Engine) teardown() {
	e.mu.Lock()
	e.send = nil
	e.sess = session{}
	e.mu.Unlock()

	e.setState(Disconnected)
	e.publish(Event{Type: EventDisconnected})
}

func (e *Engine) setState(s State) {
	e.state.Store(int32(s))
	e.metrics.ConnectionState(float64(s))
}

// ---------------------------------------------------------------------------
// Command dispatch
// ---------------------------------------------------------------------------

// handle interprets one inbound command. Unknown tags and unknown strm
// subcommands answer with a timer status: the state machine stays total
// over every input, and the reply keeps the connection alive.
func (e *Engine) handle(ctx context.Context, cmd slimproto.Command) {
	e.metrics.Command(cmd.Tag)

	if cmd.Strm == nil {
		e.sendStatus(slimproto.EventTimer)
		return
	}

	s := cmd.Strm
	switch s.Sub {
	case slimproto.StrmStart:
		e.handleStart(ctx, s)
	case slimproto.StrmPause:
		if err := e.player.Pause(); err != nil {
			log.Errorw("pause failed", "err", err)
		}
		e.sendStatus(slimproto.EventPaused)
		e.publish(Event{Type: EventPaused})
	case slimproto.StrmUnpause:
		if err := e.player.Play(); err != nil {
			log.Errorw("resume failed", "err", err)
		}
		e.sendStatus(slimproto.EventResumed)
		e.publish(Event{Type: EventResumed})
	case slimproto.StrmStop, slimproto.StrmFlush:
		e.handleStop()
	case slimproto.StrmStatus:
		e.mu.Lock()
		e.sess.echoTimestamp = s.Field
		e.mu.Unlock()
		e.checkTrackEnd()
		e.sendStatus(slimproto.EventTimer)
	default:
		e.sendStatus(slimproto.EventTimer)
	}
}

// handleStart accepts a start command: acknowledge, allocate a session, and
// kick off URL resolution. Playback begins when the resolver delivers.
func (e *Engine) handleStart(ctx context.Context, s *slimproto.Strm) {
	if s.Incomplete || s.Request == "" {
		log.Warnw("start command without usable stream request", "incomplete", s.Incomplete)
		e.sendStatus(slimproto.EventNotSupported)
		return
	}

	offset, hasOffset := slimproto.ElapsedHint(s.Field)

	e.mu.Lock()
	e.nextID++
	id := e.nextID
	e.sess = session{
		id:           id,
		format:       s.Format,
		resumeOffset: offset,
		hasResume:    hasOffset,
	}
	e.mu.Unlock()

	log.Infow("stream start", "session", id, "format", string(s.Format), "resume", offset)
	e.sendStatus(slimproto.EventConnect)

	if err := e.resolver.Resolve(ctx, id, s.Request, e.applyDelivery); err != nil {
		log.Warnw("stream request rejected", "err", err)
		e.mu.Lock()
		e.sess = session{}
		e.mu.Unlock()
		e.sendStatus(slimproto.EventNotSupported)
	}
}

// applyDelivery is the single-assignment cell for resolved URLs: the first
// delivery for the current session wins, anything else is dropped. Called
// from resolver goroutines.
func (e *Engine) applyDelivery(d resolver.Delivery) {
	e.mu.Lock()
	if e.sess.id != d.SessionID || e.sess.streamURL != "" {
		e.mu.Unlock()
		log.Debugw("dropping stale delivery", "session", d.SessionID, "source", d.Source)
		return
	}
	e.sess.streamURL = d.URL
	e.sess.active = true
	offset, hasOffset := e.sess.resumeOffset, e.sess.hasResume
	e.mu.Unlock()

	e.metrics.Delivery(d.Source)
	log.Infow("stream resolved", "session", d.SessionID, "source", d.Source, "url", d.URL)

	var err error
	if hasOffset {
		err = e.player.PlayStreamAt(d.URL, offset)
	} else {
		err = e.player.PlayStream(d.URL)
	}
	if err != nil {
		log.Errorw("playback failed to start", "err", err)
	}

	e.sendStatus(slimproto.EventStreamStart)
	e.publish(Event{Type: EventStreamStarted, URL: d.URL})
}

// handleStop serves both stop and flush: end playback, clear the session,
// acknowledge with a flushed status. Safe to repeat when no session is
// active.
func (e *Engine) handleStop() {
	e.mu.Lock()
	active := e.sess.active
	e.sess = session{}
	e.mu.Unlock()

	if active {
		if err := e.player.Stop(); err != nil {
			log.Errorw("stop failed", "err", err)
		}
	}
	e.sendStatus(slimproto.EventFlushed)
	e.publish(Event{Type: EventFlushed})
}

// checkTrackEnd polls the playback engine's end-of-track signal; a
// decoder-ready status is the protocol's request for the next track.
func (e *Engine) checkTrackEnd() {
	e.mu.Lock()
	active := e.sess.active
	e.mu.Unlock()
	if !active || !e.player.TrackEnded() {
		return
	}

	e.mu.Lock()
	e.sess = session{}
	e.mu.Unlock()

	log.Infow("track ended, requesting next")
	e.sendStatus(slimproto.EventDecoderReady)
	e.publish(Event{Type: EventTrackEnded})
}

// ---------------------------------------------------------------------------
// Outbound status
// ---------------------------------------------------------------------------

// sendStatus enqueues one status report on the current connection.
func (e *Engine) sendStatus(event string) {
	e.mu.Lock()
	send := e.send
	echo := e.sess.echoTimestamp
	e.mu.Unlock()
	if send == nil {
		return
	}

	send(slimproto.EncodeStatusFrame(slimproto.StatusReport{
		Event:          event,
		ElapsedSeconds: e.player.CurrentTime(),
		EchoTimestamp:  echo,
	}))
	e.metrics.Status(event)
}

// heartbeatLoop reports liveness and position while a session is active.
func (e *Engine) heartbeatLoop(ctx context.Context) {
	t := time.NewTicker(e.HeartbeatInterval)
	defer t.Stop()

	for {
		select {
		case <-t.C:
			e.mu.Lock()
			active := e.sess.active
			e.mu.Unlock()
			if !active {
				continue
			}

			e.checkTrackEnd()

			// The track may have just ended; only a live session heartbeats.
			e.mu.Lock()
			active = e.sess.active
			e.mu.Unlock()
			if active {
				e.metrics.Heartbeat()
				e.sendStatus(slimproto.EventTimer)
			}
		case <-ctx.Done():
			return
		}
	}
}

// recoverInProgressStream runs once per connection, after a short grace
// delay: if the server thinks this player is already playing (the app
// reconnected mid-stream), ask it to restart the stream. The server
// answers with a fresh start command carrying the elapsed position, which
// flows through the normal start path as a resume offset.
func (e *Engine) recoverInProgressStream(ctx context.Context) {
	select {
	case <-time.After(e.InitialStatusDelay):
	case <-ctx.Done():
		return
	}

	st, err := e.control.Status(ctx, e.cfg.PlayerID)
	if err != nil {
		log.Debugw("initial status query failed", "err", err)
		return
	}
	if st.Mode != "play" {
		return
	}

	log.Infow("stream in progress on server, requesting restart", "time", st.Time)
	if err := e.control.Play(ctx, e.cfg.PlayerID); err != nil {
		log.Debugw("restart request failed", "err", err)
	}
}

// publish delivers an event without ever blocking protocol work.
func (e *Engine) publish(ev Event) {
	select {
	case e.events <- ev:
	default:
	}
}
