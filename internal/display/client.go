// Package display drives a QR screen: it fetches the session secret once,
// rotates the token locally and stops when the session ends.
package display

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/clock"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/qrtoken"
)

// ErrRejected is returned when the server refuses the secret request with a
// client error; retrying cannot help.
var ErrRejected = errors.New("display: request rejected")

// Session is what the display needs to rotate tokens on its own.
type Session struct {
	MeetingID               int64
	MeetingDate             string
	Secret                  qrtoken.Secret
	RotationIntervalSeconds int64
	// Offset is server time minus local time when the secret was fetched.
	Offset time.Duration
}

type envelope struct {
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   map[string]any  `json:"error"`
}

type secretPayload struct {
	MeetingID               string `json:"meeting_id"`
	MeetingDate             string `json:"meeting_date"`
	Secret                  string `json:"secret"`
	RotationIntervalSeconds int64  `json:"rotation_interval_seconds"`
	ServerTimeMS            int64  `json:"server_time_ms"`
}

// Client talks to the attendance API on behalf of a display.
type Client struct {
	baseURL *url.URL
	token   string
	http    *http.Client
	clock   clock.Clocker
	backoff retry.Backoff
}

// ClientConfig configures a Client.
type ClientConfig struct {
	BaseURL     string
	AccessToken string
	HTTPClient  *http.Client
	Clock       clock.Clocker
	// MaxRetries caps secret fetch attempts after the first one.
	MaxRetries uint64
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

func NewClient(cfg ClientConfig) (*Client, error) {
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("display: invalid base url %q", cfg.BaseURL)
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = 500 * time.Millisecond
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 10 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 5
	}

	b := retry.WithMaxRetries(cfg.MaxRetries, retry.WithCappedDuration(cfg.MaxBackoff, retry.NewExponential(cfg.BaseBackoff)))

	return &Client{baseURL: u, token: cfg.AccessToken, http: cfg.HTTPClient, clock: cfg.Clock, backoff: b}, nil
}

// FetchSecret reads the active session secret. Network errors and 5xx
// answers are retried with exponential backoff.
func (c *Client) FetchSecret(ctx context.Context, date string, group int64) (*Session, error) {
	q := url.Values{}
	if date != "" {
		q.Set("date", date)
	}
	if group != 0 {
		q.Set("group_id", strconv.FormatInt(group, 10))
	}
	target := c.baseURL.JoinPath("/api/v1/attendance/sessions/secret")
	target.RawQuery = q.Encode()

	var sess *Session
	err := retry.Do(ctx, c.backoff, func(ctx context.Context) error {
		s, err := c.fetchSecret(ctx, target.String())
		if err != nil {
			if errors.Is(err, ErrRejected) {
				return err
			}
			return retry.RetryableError(err)
		}
		sess = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sess, nil
}

func (c *Client) fetchSecret(ctx context.Context, target string) (*Session, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("display: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("display: fetch secret: %w", err)
	}
	defer resp.Body.Close()
	received := c.clock.Now()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return nil, fmt.Errorf("display: read secret: %w", err)
	}

	var env envelope
	decodeErr := json.Unmarshal(body, &env)

	switch {
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, fmt.Errorf("display: server error %d: %s", resp.StatusCode, env.Message)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: %d %s", ErrRejected, resp.StatusCode, env.Message)
	case decodeErr != nil:
		return nil, fmt.Errorf("display: decode envelope: %w", decodeErr)
	}

	var p secretPayload
	if err := json.Unmarshal(env.Data, &p); err != nil {
		return nil, fmt.Errorf("display: decode secret: %w", err)
	}
	secret, err := qrtoken.ParseSecret(p.Secret)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRejected, err)
	}
	meetingID, err := strconv.ParseInt(p.MeetingID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: meeting id %q", ErrRejected, p.MeetingID)
	}

	var offset time.Duration
	if p.ServerTimeMS > 0 {
		offset = time.Duration(p.ServerTimeMS-received.UnixMilli()) * time.Millisecond
	}

	return &Session{
		MeetingID:               meetingID,
		MeetingDate:             p.MeetingDate,
		Secret:                  secret,
		RotationIntervalSeconds: p.RotationIntervalSeconds,
		Offset:                  offset,
	}, nil
}

// LiveURL is the websocket address of the livestatus stream for a scope.
func (c *Client) LiveURL(date string, group int64) string {
	u := c.baseURL.JoinPath("/api/v1/livestatus/ws")
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	q := url.Values{}
	q.Set("date", date)
	if group != 0 {
		q.Set("group_id", strconv.FormatInt(group, 10))
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// AuthHeader returns the header used for authenticated requests.
func (c *Client) AuthHeader() http.Header {
	return http.Header{"Authorization": {"Bearer " + c.token}}
}
