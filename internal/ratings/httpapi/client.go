// Package httpapi talks to a rating service over REST and follows its
// server-sent change stream.
package httpapi

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Clark-Hu/bitebuzz/internal/domain"
	"github.com/Clark-Hu/bitebuzz/internal/ratings"
)

const (
	maxResponseBody  = 4 << 20
	minStreamBackoff = 500 * time.Millisecond
	maxStreamBackoff = 10 * time.Second
)

// Client implements ratings.Backend against a remote rating service.
type Client struct {
	baseURL *url.URL
	apiKey  string
	client  *http.Client
	stream  *http.Client
	logger  *zap.Logger
}

// NewClient constructs an HTTP-backed rating client.
func NewClient(baseURL, apiKey string, timeout time.Duration, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if strings.TrimSpace(baseURL) == "" {
		return nil, fmt.Errorf("rating service url is required")
	}
	parsed, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse rating service url: %w", err)
	}
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   timeout,
		ExpectContinueTimeout: 1 * time.Second,
	}
	return &Client{
		baseURL: parsed,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout, Transport: transport},
		// The event stream is long-lived; its lifetime is governed by context.
		stream: &http.Client{Transport: transport},
		logger: logger.Named("httpapi"),
	}, nil
}

func (c *Client) endpoint(path string) string {
	return c.baseURL.ResolveReference(&url.URL{Path: c.baseURL.Path + path}).String()
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path), body)
	if err != nil {
		return nil, err
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// Query fetches every rating event.
func (c *Client) Query(ctx context.Context) ([]domain.Rating, error) {
	req, err := c.newRequest(ctx, http.MethodGet, RatingsPath, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, transportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("unexpected status listing ratings", zap.Int("status", resp.StatusCode))
		return nil, &ratings.StatusError{Code: resp.StatusCode}
	}

	var payload RatingList
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBody)).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ratings.ErrMalformed, err)
	}
	out := make([]domain.Rating, 0, len(payload.Items))
	for _, item := range payload.Items {
		out = append(out, item.ToDomain())
	}
	return out, nil
}

// Append posts one rating event.
func (c *Client) Append(ctx context.Context, in domain.RatingInput) error {
	body, err := json.Marshal(AppendRequest{ItemID: in.ItemID, Value: in.Value, SubmittedBy: in.SubmittedBy})
	if err != nil {
		return err
	}
	req, err := c.newRequest(ctx, http.MethodPost, RatingsPath, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return transportError(err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBody))

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusAccepted, http.StatusNoContent:
		return nil
	default:
		c.logger.Warn("rating rejected upstream", zap.Int("status", resp.StatusCode), zap.String("item", in.ItemID))
		return &ratings.StatusError{Code: resp.StatusCode}
	}
}

// HealthCheck lists ratings as a liveness probe.
func (c *Client) HealthCheck(ctx context.Context) error {
	_, err := c.Query(ctx)
	return err
}

// Subscribe opens the event stream. ctx bounds only the initial connection;
// afterwards the stream reconnects with backoff until Close, signalling a
// change after each reconnect since events may have been missed.
func (c *Client) Subscribe(ctx context.Context, onChange func()) (ratings.Subscription, error) {
	streamCtx, cancel := context.WithCancel(context.Background())
	body, err := c.openStream(ctx, streamCtx)
	if err != nil {
		cancel()
		return nil, err
	}

	sub := &subscription{cancel: cancel}
	sub.wg.Add(1)
	go func() {
		defer sub.wg.Done()
		c.follow(streamCtx, body, onChange)
	}()
	return sub, nil
}

// openStream connects to the events endpoint. dialCtx bounds the handshake,
// streamCtx the lifetime of the returned body.
func (c *Client) openStream(dialCtx, streamCtx context.Context) (io.ReadCloser, error) {
	reqCtx, cancel := context.WithCancel(streamCtx)
	stop := context.AfterFunc(dialCtx, cancel)

	req, err := c.newRequest(reqCtx, http.MethodGet, EventsPath, nil)
	if err != nil {
		stop()
		cancel()
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.stream.Do(req)
	if !stop() {
		// dialCtx expired while connecting.
		if resp != nil {
			resp.Body.Close()
		}
		cancel()
		return nil, fmt.Errorf("open event stream: %w", dialCtx.Err())
	}
	if err != nil {
		cancel()
		return nil, fmt.Errorf("open event stream: %w", transportError(err))
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		cancel()
		return nil, &ratings.StatusError{Code: resp.StatusCode}
	}
	return &cancelBody{ReadCloser: resp.Body, cancel: cancel}, nil
}

func (c *Client) follow(ctx context.Context, body io.ReadCloser, onChange func()) {
	backoff := minStreamBackoff
	for {
		err := readEvents(body, onChange)
		body.Close()
		if ctx.Err() != nil {
			return
		}
		c.logger.Warn("event stream dropped, reconnecting", zap.Error(err), zap.Duration("backoff", backoff))

		for {
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			dialCtx, cancel := context.WithTimeout(ctx, c.client.Timeout)
			body, err = c.openStream(dialCtx, ctx)
			cancel()
			if err == nil {
				backoff = minStreamBackoff
				onChange()
				break
			}
			if ctx.Err() != nil {
				return
			}
			backoff *= 2
			if backoff > maxStreamBackoff {
				backoff = maxStreamBackoff
			}
		}
	}
}

// readEvents parses a text/event-stream body and calls onChange for every
// dispatched "changed" event (or unnamed event). Comments are keep-alives.
func readEvents(r io.Reader, onChange func()) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), 64<<10)

	var name string
	var hasData bool
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if hasData && (name == "" || name == ChangedEvent) {
				onChange()
			}
			name, hasData = "", false
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "event:"):
			name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			hasData = true
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return io.EOF
}

type cancelBody struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelBody) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}

type subscription struct {
	cancel context.CancelFunc
	once   sync.Once
	wg     sync.WaitGroup
}

func (s *subscription) Close() error {
	s.once.Do(func() {
		s.cancel()
		s.wg.Wait()
	})
	return nil
}

func transportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %w", context.DeadlineExceeded, err)
	}
	return fmt.Errorf("%w: %v", ratings.ErrUnavailable, err)
}
