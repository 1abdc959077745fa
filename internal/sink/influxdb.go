// internal/sink/influxdb.go
package sink

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Sink receives encoded line-protocol payloads. Delivery is best-effort,
// at-most-once; callers log errors and move on.
type Sink interface {
	Send(ctx context.Context, body string) error
}

// Config describes one InfluxDB write endpoint.
type Config struct {
	URL      string
	Database string
	Username string
	Password string
	Timeout  time.Duration
}

// InfluxDB posts line-protocol payloads to an InfluxDB /write endpoint.
type InfluxDB struct {
	writeURL string
	client   *http.Client
}

// NewInfluxDB builds the write URL once and returns a ready client.
// Credentials are passed through as supplied; no auth is performed here.
func NewInfluxDB(cfg Config) (*InfluxDB, error) {
	if cfg.URL == "" {
		return nil, errors.New("sink influxdb: url required")
	}
	if cfg.Database == "" {
		return nil, errors.New("sink influxdb: database required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}

	base, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("sink influxdb: parse url: %w", err)
	}
	base.Path = strings.TrimSuffix(base.Path, "/") + "/write"

	q := url.Values{}
	q.Set("db", cfg.Database)
	if cfg.Username != "" {
		q.Set("u", cfg.Username)
		q.Set("p", cfg.Password)
	}
	base.RawQuery = q.Encode()

	return &InfluxDB{
		writeURL: base.String(),
		client:   &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Send posts one payload. A non-2xx response is an error carrying the
// status and a snippet of the response body.
func (s *InfluxDB) Send(ctx context.Context, body string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.writeURL, strings.NewReader(body))
	if err != nil {
		return fmt.Errorf("sink influxdb: build request: %w", err)
	}
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("sink influxdb: post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("sink influxdb: status %s: %s", resp.Status, strings.TrimSpace(string(snippet)))
	}

	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
