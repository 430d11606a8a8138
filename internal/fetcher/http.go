// Package fetcher downloads source documents over HTTP.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/racewatch/racewatch/internal/results"
)

// Config captures the parameters of the HTTP document fetcher.
type Config struct {
	Timeout   time.Duration
	UserAgent string
	// MaxBodyBytes caps the downloaded document size; zero means no cap.
	MaxBodyBytes int64
}

// HTTP implements results.Fetcher with a tuned net/http client.
type HTTP struct {
	client       *http.Client
	userAgent    string
	maxBodyBytes int64
	logger       *zap.Logger
}

// New constructs an HTTP fetcher.
func New(cfg Config, logger *zap.Logger) *HTTP {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          16,
		MaxIdleConnsPerHost:   4,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: cfg.Timeout,
		ForceAttemptHTTP2:     true,
	}
	return &HTTP{
		client: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
		userAgent:    cfg.UserAgent,
		maxBodyBytes: cfg.MaxBodyBytes,
		logger:       logger,
	}
}

// Fetch downloads the document at url. Transport failures and non-2xx
// responses surface as results.TransportError; the source is treated
// as untrusted and possibly unavailable.
func (f *HTTP) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &results.TransportError{URL: url, Err: err}
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &results.TransportError{URL: url, Err: err}
	}
	defer resp.Body.Close() //nolint:errcheck // nothing actionable on close failure

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &results.TransportError{
			URL: url,
			Err: fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}

	reader := io.Reader(resp.Body)
	if f.maxBodyBytes > 0 {
		reader = io.LimitReader(resp.Body, f.maxBodyBytes+1)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, &results.TransportError{URL: url, Err: fmt.Errorf("read body: %w", err)}
	}
	if f.maxBodyBytes > 0 && int64(len(body)) > f.maxBodyBytes {
		return nil, &results.TransportError{
			URL: url,
			Err: fmt.Errorf("document exceeds %d bytes", f.maxBodyBytes),
		}
	}

	f.logger.Debug("document fetched",
		zap.String("url", url),
		zap.Int("bytes", len(body)),
		zap.Duration("duration", time.Since(start)),
	)
	return body, nil
}
