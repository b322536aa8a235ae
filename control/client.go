// Package control talks to the server's JSON-RPC web API. The protocol
// engine uses it for stream-target resolution and mid-stream recovery; the
// CLI uses it for transport commands issued outside the SlimProto
// connection.
package control

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// rpcPath is the fixed JSON-RPC endpoint on the server's web port.
const rpcPath = "/jsonrpc.js"

// APIError represents an HTTP-level failure from the control API.
type APIError struct {
	HTTPStatus int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("control: HTTP %d: %s", e.HTTPStatus, e.Message)
}

// rpcRequest is the wire shape of a slim.request call.
type rpcRequest struct {
	ID     int    `json:"id"`
	Method string `json:"method"`
	Params [2]any `json:"params"`
}

type rpcResponse struct {
	Result map[string]any `json:"result"`
}

// PlayerStatus is the server's view of one player, with every field
// defaulting safely when absent or malformed: zero for numbers, empty for
// strings, "stop" for the mode.
type PlayerStatus struct {
	Mode     string
	Time     float64
	Duration float64
	Power    bool

	TrackID int64
	Title   string
	Artist  string
	Album   string
	URL     string
}

// Player is one entry from the server's player list.
type Player struct {
	ID        string
	Name      string
	Model     string
	Connected bool
}

// Client is an HTTP client for the server's control API.
type Client struct {
	baseURL    string
	username   string
	password   string
	httpClient *http.Client
}

// New creates a client for the web interface at host:webPort.
func New(host string, webPort int) *Client {
	return &Client{
		baseURL: fmt.Sprintf("http://%s:%d", host, webPort),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// SetBasicAuth attaches web-interface credentials to every request.
func (c *Client) SetBasicAuth(username, password string) {
	c.username = username
	c.password = password
}

// BaseURL returns the web-interface base URL the client is configured with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ---------- player queries ----------

// Status fetches the current playback state for a player.
func (c *Client) Status(ctx context.Context, playerID string) (*PlayerStatus, error) {
	res, err := c.Request(ctx, playerID, []any{"status", "-", 1, "tags:aldKu"})
	if err != nil {
		return nil, err
	}

	st := &PlayerStatus{
		Mode:     str(res, "mode", "stop"),
		Time:     num(res, "time"),
		Duration: num(res, "duration"),
		Power:    num(res, "power") != 0,
	}

	if loop, ok := res["playlist_loop"].([]any); ok && len(loop) > 0 {
		if track, ok := loop[0].(map[string]any); ok {
			st.TrackID = int64(num(track, "id"))
			st.Title = str(track, "title", "")
			st.Artist = str(track, "artist", "")
			st.Album = str(track, "album", "")
			st.URL = str(track, "url", "")
		}
	}
	return st, nil
}

// Players lists the players the server knows about.
func (c *Client) Players(ctx context.Context) ([]Player, error) {
	res, err := c.Request(ctx, "", []any{"players", 0, 99})
	if err != nil {
		return nil, err
	}

	loop, _ := res["players_loop"].([]any)
	players := make([]Player, 0, len(loop))
	for _, entry := range loop {
		m, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		players = append(players, Player{
			ID:        str(m, "playerid", ""),
			Name:      str(m, "name", ""),
			Model:     str(m, "model", ""),
			Connected: num(m, "connected") != 0,
		})
	}
	return players, nil
}

// ServerVersion returns the server's version string. Also serves as the
// credential check for the login command.
func (c *Client) ServerVersion(ctx context.Context) (string, error) {
	res, err := c.Request(ctx, "", []any{"version", "?"})
	if err != nil {
		return "", err
	}
	return str(res, "_version", ""), nil
}

// ---------- transport commands ----------

func (c *Client) Play(ctx context.Context, playerID string) error {
	_, err := c.Request(ctx, playerID, []any{"play"})
	return err
}

func (c *Client) Pause(ctx context.Context, playerID string) error {
	_, err := c.Request(ctx, playerID, []any{"pause"})
	return err
}

func (c *Client) Stop(ctx context.Context, playerID string) error {
	_, err := c.Request(ctx, playerID, []any{"stop"})
	return err
}

func (c *Client) NextTrack(ctx context.Context, playerID string) error {
	_, err := c.Request(ctx, playerID, []any{"playlist", "index", "+1"})
	return err
}

func (c *Client) PreviousTrack(ctx context.Context, playerID string) error {
	_, err := c.Request(ctx, playerID, []any{"playlist", "index", "-1"})
	return err
}

func (c *Client) SetVolume(ctx context.Context, playerID string, volume int) error {
	_, err := c.Request(ctx, playerID, []any{"mixer", "volume", volume})
	return err
}

// ---------- internal HTTP helpers ----------

// Request issues one slim.request call and returns the raw result object.
// A missing or null result decodes to an empty map so callers can consume
// fields positionally with safe defaults.
func (c *Client) Request(ctx context.Context, playerID string, tokens []any) (map[string]any, error) {
	body, err := json.Marshal(rpcRequest{
		ID:     1,
		Method: "slim.request",
		Params: [2]any{playerID, tokens},
	})
	if err != nil {
		return nil, fmt.Errorf("control: marshalling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+rpcPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("control: creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.username != "" || c.password != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("control: reaching server: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("control: reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, &APIError{HTTPStatus: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}

	var env rpcResponse
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("control: decoding response: %w", err)
	}
	if env.Result == nil {
		env.Result = map[string]any{}
	}
	return env.Result, nil
}

// str reads a string field, tolerating absence and non-string values.
func str(m map[string]any, key, def string) string {
	if v, ok := m[key].(string); ok && v != "" {
		return v
	}
	return def
}

// num reads a numeric field, tolerating absence, strings holding numbers,
// and malformed values (which read as zero).
func num(m map[string]any, key string) float64 {
	switch v := m[key].(type) {
	case float64:
		return v
	case string:
		var f float64
		if _, err := fmt.Sscanf(v, "%g", &f); err == nil {
			return f
		}
	}
	return 0
}
