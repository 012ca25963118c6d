package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
)

// TimestampLayout is the window bound format the device expects,
// e.g. "2024-01-02 06:00:00 -0500".
const TimestampLayout = "2006-01-02 15:04:05 -0700"

// Tool and method names understood by the device's query server.
const (
	methodCallTool = "callTool"
	toolName       = "health_metrics"
)

// Default values applied by New for zero config fields.
const (
	defaultPort         = 9000
	defaultQueryTimeout = 60 * time.Second
	defaultProbeTimeout = 5 * time.Second
	defaultRetries      = 3
	defaultRetryDelay   = 5 * time.Second
)

// Logger defines the logging interface for the device client.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Config holds connection settings for the device query server.
type Config struct {
	Host string
	Port int

	// QueryTimeout bounds each socket operation of a query attempt.
	QueryTimeout time.Duration
	// ProbeTimeout bounds the reachability check. Should be shorter
	// than QueryTimeout.
	ProbeTimeout time.Duration

	// Retries is the total number of attempts per query.
	Retries    int
	RetryDelay time.Duration

	// Metrics is passed through as the comma-separated metric filter.
	Metrics string
}

// Window is the time range of a single query.
type Window struct {
	Start time.Time
	End   time.Time
}

// Client queries the device over a fresh TCP connection per attempt.
//
// Thread Safety: a Client holds no connection state and is safe for
// concurrent use, although the backfill engine only issues one query at a time.
type Client struct {
	cfg    Config
	addr   string
	logger Logger
	newID  func() string
}

// New creates a device client, applying defaults for zero values.
func New(cfg Config) *Client {
	if cfg.Port == 0 {
		cfg.Port = defaultPort
	}
	if cfg.QueryTimeout <= 0 {
		cfg.QueryTimeout = defaultQueryTimeout
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = defaultProbeTimeout
	}
	if cfg.Retries < 1 {
		cfg.Retries = defaultRetries
	}
	// go-retry's constant backoff needs a positive interval.
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Nanosecond
	}

	return &Client{
		cfg:    cfg,
		addr:   net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		logger: noopLogger{},
		newID:  uuid.NewString,
	}
}

// SetLogger sets the logger for the client.
func (c *Client) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	c.logger = logger
}

// Addr returns the device host:port.
func (c *Client) Addr() string {
	return c.addr
}

// Query fetches the metrics recorded inside w.
//
// Transport failures are retried up to Config.Retries attempts with a fixed
// Config.RetryDelay between them; exhaustion returns a *TransportError.
// An error envelope returns a *ProtocolError without retrying. A response
// that is not valid JSON is logged and treated as an empty result.
//
// Each attempt runs to completion or its socket timeout even if ctx is
// cancelled meanwhile; cancellation is observed between attempts, in which
// case ctx.Err() is returned.
func (c *Client) Query(ctx context.Context, w Window) ([]Metric, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	payload, err := c.encodeRequest(w)
	if err != nil {
		return nil, err
	}

	var raw []byte
	attempts := 0
	backoff := retry.WithMaxRetries(uint64(c.cfg.Retries-1), retry.NewConstant(c.cfg.RetryDelay)) // #nosec G115 -- Retries >= 1

	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempts++
		resp, err := c.exchange(context.WithoutCancel(ctx), payload)
		if err != nil {
			if attempts < c.cfg.Retries {
				c.logger.Warn("device query attempt failed, retrying",
					"attempt", attempts,
					"max_attempts", c.cfg.Retries,
					"retry_in", c.cfg.RetryDelay,
					"error", err,
				)
			}
			return retry.RetryableError(err)
		}
		raw = resp
		return nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return nil, ctxErr
		}
		return nil, &TransportError{Addr: c.addr, Attempts: attempts, Err: err}
	}

	env, err := DecodeEnvelope(raw)
	if err != nil {
		if errors.Is(err, ErrMalformedResponse) {
			c.logger.Warn("discarding malformed device response",
				"start", w.Start.Format(TimestampLayout),
				"bytes", len(raw),
				"error", err,
			)
			return nil, nil
		}
		return nil, err
	}

	c.logger.Debug("device query complete",
		"start", w.Start.Format(TimestampLayout),
		"envelope", env.Kind.String(),
		"metrics", len(env.Metrics),
		"bytes", len(raw),
	)
	return env.Metrics, nil
}

// Probe reports whether the device currently accepts TCP connections.
// It connects and immediately closes, bounded by Config.ProbeTimeout.
func (c *Client) Probe(ctx context.Context) bool {
	dialer := net.Dialer{Timeout: c.cfg.ProbeTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		c.logger.Debug("device probe failed", "addr", c.addr, "error", err)
		return false
	}
	_ = conn.Close()
	return true
}

type request struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      string        `json:"id"`
	Method  string        `json:"method"`
	Params  requestParams `json:"params"`
}

type requestParams struct {
	Name      string         `json:"name"`
	Arguments queryArguments `json:"arguments"`
}

type queryArguments struct {
	Start     string `json:"start"`
	End       string `json:"end"`
	Metrics   string `json:"metrics"`
	Interval  string `json:"interval"`
	Aggregate bool   `json:"aggregate"`
}

func (c *Client) encodeRequest(w Window) ([]byte, error) {
	req := request{
		JSONRPC: "2.0",
		ID:      c.newID(),
		Method:  methodCallTool,
		Params: requestParams{
			Name: toolName,
			Arguments: queryArguments{
				Start:   w.Start.Format(TimestampLayout),
				End:     w.End.Format(TimestampLayout),
				Metrics: c.cfg.Metrics,
			},
		},
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encoding device request: %w", err)
	}
	return payload, nil
}

// exchange performs one request/response over a new connection: write the
// request, half-close the send side, then read until the device closes.
func (c *Client) exchange(ctx context.Context, payload []byte) ([]byte, error) {
	dialer := net.Dialer{Timeout: c.cfg.QueryTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", c.addr, err)
	}
	defer conn.Close()

	if err := conn.SetWriteDeadline(time.Now().Add(c.cfg.QueryTimeout)); err != nil {
		return nil, fmt.Errorf("setting write deadline: %w", err)
	}
	if _, err := conn.Write(payload); err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}

	if hc, ok := conn.(interface{ CloseWrite() error }); ok {
		if err := hc.CloseWrite(); err != nil {
			return nil, fmt.Errorf("half-closing connection: %w", err)
		}
	}

	resp, err := io.ReadAll(&idleTimeoutReader{conn: conn, timeout: c.cfg.QueryTimeout})
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	return resp, nil
}

// idleTimeoutReader refreshes the read deadline before every read so the
// timeout bounds silence on the wire rather than the whole transfer.
type idleTimeoutReader struct {
	conn    net.Conn
	timeout time.Duration
}

func (r *idleTimeoutReader) Read(p []byte) (int, error) {
	if err := r.conn.SetReadDeadline(time.Now().Add(r.timeout)); err != nil {
		return 0, err
	}
	return r.conn.Read(p)
}
