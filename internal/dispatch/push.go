package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/VeerabhadraYerram/Fill-A-Hole-sub000/internal/model"
	"github.com/VeerabhadraYerram/Fill-A-Hole-sub000/internal/util"
)

// MaxTokensPerCall is the push provider's per-request token limit
const MaxTokensPerCall = 500

// PushMessage is one multicast push request
type PushMessage struct {
	Tokens []string          `json:"tokens"`
	Title  string            `json:"title"`
	Body   string            `json:"body"`
	Data   map[string]string `json:"data,omitempty"`
}

// PushResult counts per-token delivery outcomes reported by the provider
type PushResult struct {
	SuccessCount int `json:"success_count"`
	FailureCount int `json:"failure_count"`
}

// Pusher delivers multicast push notifications
type Pusher interface {
	Name() string
	Send(ctx context.Context, msg PushMessage) (PushResult, error)
}

// NewPusher creates the configured push provider
func NewPusher(config model.PushConfig, httpCfg model.HTTPConfig, logger *slog.Logger) (Pusher, error) {
	switch config.Provider {
	case "http", "fcm":
		return NewHTTPPusher(config, httpCfg)
	case "log", "":
		return NewLogPusher(logger), nil
	default:
		return nil, fmt.Errorf("unsupported push provider: %s (supported: http, log)", config.Provider)
	}
}

// HTTPPusher posts multicast messages to a JSON push gateway
type HTTPPusher struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

// NewHTTPPusher creates a pusher for an FCM-style multicast endpoint
func NewHTTPPusher(config model.PushConfig, httpCfg model.HTTPConfig) (*HTTPPusher, error) {
	if config.Endpoint == "" {
		return nil, fmt.Errorf("push endpoint is required for the http provider")
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &HTTPPusher{
		endpoint:   config.Endpoint,
		apiKey:     config.APIKey,
		httpClient: util.NewHTTPClient(timeout, httpCfg.HTTPProxy, httpCfg.HTTPSProxy, httpCfg.NoProxy),
	}, nil
}

// Name returns the provider name
func (p *HTTPPusher) Name() string {
	return "http"
}

type pushRequest struct {
	Tokens       []string          `json:"tokens"`
	Notification pushNotification  `json:"notification"`
	Data         map[string]string `json:"data,omitempty"`
}

type pushNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Send posts one message; a non-2xx status is an error for the whole call
func (p *HTTPPusher) Send(ctx context.Context, msg PushMessage) (PushResult, error) {
	if len(msg.Tokens) > MaxTokensPerCall {
		return PushResult{}, fmt.Errorf("%d tokens exceeds the per-call limit of %d", len(msg.Tokens), MaxTokensPerCall)
	}

	body, err := json.Marshal(pushRequest{
		Tokens:       msg.Tokens,
		Notification: pushNotification{Title: msg.Title, Body: msg.Body},
		Data:         msg.Data,
	})
	if err != nil {
		return PushResult{}, fmt.Errorf("marshal push request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return PushResult{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return PushResult{}, fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return PushResult{}, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return PushResult{}, fmt.Errorf("push gateway error (%d): %s", resp.StatusCode, string(respBody))
	}

	result := PushResult{SuccessCount: len(msg.Tokens)}
	if len(respBody) > 0 {
		var parsed PushResult
		if err := json.Unmarshal(respBody, &parsed); err == nil && parsed.SuccessCount+parsed.FailureCount > 0 {
			result = parsed
		}
	}
	return result, nil
}

// LogPusher logs messages instead of delivering them
type LogPusher struct {
	logger *slog.Logger
}

// NewLogPusher creates a pusher for development
func NewLogPusher(logger *slog.Logger) *LogPusher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogPusher{logger: logger}
}

// Name returns the provider name
func (p *LogPusher) Name() string {
	return "log"
}

// Send logs the message and reports every token delivered
func (p *LogPusher) Send(ctx context.Context, msg PushMessage) (PushResult, error) {
	p.logger.Info("push", "tokens", len(msg.Tokens), "title", msg.Title, "report", msg.Data["report_id"])
	return PushResult{SuccessCount: len(msg.Tokens)}, nil
}
