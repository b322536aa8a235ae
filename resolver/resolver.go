// Package resolver maps a server-issued stream descriptor to a playable
// URL. The descriptor's HTTP request line yields a same-origin fallback
// immediately; in parallel a control-API query tries to produce an
// authoritative transcoded URL. Whichever lands first for a still-current
// session wins.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	logging "github.com/ipfs/go-log/v2"

	"github.com/slimwire/slimwire/control"
)

var log = logging.Logger("slimwire.resolver")

var ErrBadRequestLine = errors.New("resolver: unparseable stream request line")

// Transcode parameters for the direct download path. The server transcodes
// anything the player cannot decode natively down to this.
const (
	transcodeFormat  = "mp3"
	transcodeBitrate = 320
)

// SourceAPI and SourceFallback identify which producer built a delivery.
const (
	SourceAPI      = "api"
	SourceFallback = "fallback"
)

// Delivery is one resolved URL candidate for a session.
type Delivery struct {
	SessionID uint64
	URL       string
	Source    string
}

// Resolver resolves stream descriptors against one server.
type Resolver struct {
	host    string
	webPort int
	control *control.Client

	// GraceDelay is how long the authoritative query gets before the
	// fallback URL is delivered anyway. APITimeout bounds the query itself.
	GraceDelay time.Duration
	APITimeout time.Duration
}

// New creates a resolver for the server at host with the given web port.
func New(host string, webPort int, ctrl *control.Client) *Resolver {
	return &Resolver{
		host:       host,
		webPort:    webPort,
		control:    ctrl,
		GraceDelay: 500 * time.Millisecond,
		APITimeout: 3 * time.Second,
	}
}

// Resolve parses the request line from a start command and races the two
// URL producers, invoking deliver once per candidate. It returns an error
// only when the request line itself cannot be parsed; query failures
// silently fall back. deliver may be called from other goroutines and must
// drop candidates for superseded sessions itself.
func (r *Resolver) Resolve(ctx context.Context, sessionID uint64, requestLine string, deliver func(Delivery)) error {
	path, playerID, err := parseRequestLine(requestLine)
	if err != nil {
		return err
	}

	fallback := fmt.Sprintf("http://%s:%d%s", r.host, r.webPort, path)

	// Grace timer: the fallback is always usable, so it goes out if the
	// authoritative query is slow, and the engine's first-wins cell sorts
	// out the race.
	go func() {
		select {
		case <-time.After(r.GraceDelay):
			deliver(Delivery{SessionID: sessionID, URL: fallback, Source: SourceFallback})
		case <-ctx.Done():
		}
	}()

	go func() {
		qctx, cancel := context.WithTimeout(ctx, r.APITimeout)
		defer cancel()

		authoritative, err := r.queryTrackURL(qctx, playerID)
		if err != nil || authoritative == "" {
			if err != nil {
				log.Debugw("track query failed, using fallback", "player", playerID, "err", err)
			}
			deliver(Delivery{SessionID: sessionID, URL: fallback, Source: SourceFallback})
			return
		}
		deliver(Delivery{SessionID: sessionID, URL: authoritative, Source: SourceAPI})
	}()

	return nil
}

// queryTrackURL asks the control API for the current track and builds the
// authoritative URL from the answer.
func (r *Resolver) queryTrackURL(ctx context.Context, playerID string) (string, error) {
	st, err := r.control.Status(ctx, playerID)
	if err != nil {
		return "", err
	}

	if st.TrackID > 0 {
		return fmt.Sprintf("http://%s:%d/music/%d/download.%s?bitrate=%d&format=%s",
			r.host, r.webPort, st.TrackID, transcodeFormat, transcodeBitrate, transcodeFormat), nil
	}

	if st.URL != "" {
		return r.normalizeTrackURL(st.URL, playerID), nil
	}
	return "", nil
}

// normalizeTrackURL turns a raw track reference into something streamable:
// file:// paths become the server's streaming endpoint, and HTTP URLs get
// transcoding parameters if they are missing.
func (r *Resolver) normalizeTrackURL(raw, playerID string) string {
	if strings.HasPrefix(raw, "file://") {
		return fmt.Sprintf("http://%s:%d/stream.%s?player=%s",
			r.host, r.webPort, transcodeFormat, url.QueryEscape(playerID))
	}

	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	if q.Get("format") == "" {
		q.Set("format", transcodeFormat)
	}
	if q.Get("bitrate") == "" {
		q.Set("bitrate", fmt.Sprint(transcodeBitrate))
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// parseRequestLine extracts the path and the player query parameter from a
// raw HTTP request line like "GET /stream.mp3?player=aa:bb HTTP/1.0".
func parseRequestLine(line string) (path, playerID string, err error) {
	fields := strings.Fields(line)
	if len(fields) < 2 || !strings.HasPrefix(fields[1], "/") {
		return "", "", fmt.Errorf("%w: %q", ErrBadRequestLine, line)
	}
	path = fields[1]

	u, err := url.Parse(path)
	if err != nil {
		return "", "", fmt.Errorf("%w: %q", ErrBadRequestLine, line)
	}
	return path, u.Query().Get("player"), nil
}
