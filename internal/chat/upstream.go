package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// UpstreamProvider forwards the request to a remote chat service at
// POST {base}/chat and expects {reply, mood?, source?} back.
type UpstreamProvider struct {
	endpoint string
	client   *http.Client
	logger   *zap.Logger
}

// NewUpstreamProvider constructs an HTTP chat provider.
func NewUpstreamProvider(baseURL string, timeout time.Duration, logger *zap.Logger) (*UpstreamProvider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if strings.TrimSpace(baseURL) == "" {
		return nil, fmt.Errorf("chat service url is required")
	}
	parsed, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse chat service url: %w", err)
	}
	return &UpstreamProvider{
		endpoint: parsed.String() + "/chat",
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   timeout,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout:   timeout,
				ResponseHeaderTimeout: timeout,
			},
		},
		logger: logger.Named("upstream"),
	}, nil
}

// Name implements Provider.
func (p *UpstreamProvider) Name() string { return SourceUpstream }

type upstreamResponse struct {
	Reply  string `json:"reply"`
	Mood   Mood   `json:"mood"`
	Source string `json:"source"`
}

// Complete implements Provider.
func (p *UpstreamProvider) Complete(ctx context.Context, req Request) (Completion, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return Completion{}, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return Completion{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return Completion{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		p.logger.Debug("chat service rejected request", zap.Int("status", resp.StatusCode))
		return Completion{}, fmt.Errorf("chat service error (%d)", resp.StatusCode)
	}

	var payload upstreamResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&payload); err != nil {
		return Completion{}, fmt.Errorf("decode chat response: %w", err)
	}
	return Completion{Reply: payload.Reply, Mood: payload.Mood, Source: payload.Source}, nil
}
