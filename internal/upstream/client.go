// Package upstream implements the completion client: one authenticated POST
// to the OpenClaw chat-completions endpoint per attempt, with failure
// classification the dispatcher's retry loop can act on.
package upstream

import (
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"github.com/openclaw/bridge/internal/config"
	"github.com/openclaw/bridge/internal/logging"
	"github.com/openclaw/bridge/internal/resilience"
)

// Client talks to the OpenClaw completion endpoint.
type Client struct {
	http    *resty.Client
	breaker *resilience.Breaker
	cfg     config.OpenClawConfig
	log     *logging.Logger
}

// NewClient creates the completion client. Transport-level retries are
// disabled: the dispatcher owns the retry policy and attempt accounting.
func NewClient(cfg config.OpenClawConfig, log *logging.Logger) *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 0
	retryClient.Logger = nil

	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout()).
		SetAuthToken(cfg.Token).
		SetHeader("User-Agent", "openclaw-bridge/1.0").
		SetHeader("X-OpenClaw-Session", cfg.SessionKey)
	if cfg.AgentID != "" {
		httpClient.SetHeader("X-OpenClaw-Agent", cfg.AgentID)
	}
	httpClient.SetTransport(retryClient.HTTPClient.Transport)

	breaker := resilience.New("openclaw-upstream", resilience.Settings{
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= 8
		},
		OnStateChange: func(name string, from, to resilience.State) {
			log.Warn("circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	return &Client{
		http:    httpClient,
		breaker: breaker,
		cfg:     cfg,
		log:     log,
	}
}
