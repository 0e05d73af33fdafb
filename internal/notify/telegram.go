// Package notify delivers result text to Telegram. Delivery is best-effort
// for archival actions and synchronous for completion-style actions; the
// dispatcher decides which mode it needs.
package notify

import (
	"context"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/openclaw/bridge/internal/config"
	"github.com/openclaw/bridge/internal/logging"
	"github.com/openclaw/bridge/internal/shared/id"
)

// maxMessageChars is Telegram's hard limit for a single sendMessage call.
const maxMessageChars = 4096

// deliveryPrefix marks detached-delivery correlation IDs in logs, alongside
// the req_ request IDs.
const deliveryPrefix = "ntf"

// Notifier sends messages to a single configured Telegram chat.
type Notifier struct {
	http *resty.Client
	cfg  config.TelegramConfig
	log  *logging.Logger
}

// New creates a Notifier. The sink stays inert until both the bot token and
// chat ID are configured.
func New(cfg config.TelegramConfig, log *logging.Logger) *Notifier {
	httpClient := resty.New().
		SetTimeout(cfg.Timeout()).
		SetHeader("User-Agent", "openclaw-bridge/1.0")

	return &Notifier{
		http: httpClient,
		cfg:  cfg,
		log:  log,
	}
}

// Configured reports whether the sink can deliver anything.
func (n *Notifier) Configured() bool {
	return n.cfg.BotToken != "" && n.cfg.ChatID != ""
}

type sendMessageRequest struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

type sendMessageResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// Send delivers one message synchronously. Over-long text is clipped to the
// Telegram message limit rather than rejected.
func (n *Notifier) Send(ctx context.Context, text string) error {
	if !n.Configured() {
		return fmt.Errorf("telegram sink not configured")
	}

	runes := []rune(text)
	if len(runes) > maxMessageChars {
		text = string(runes[:maxMessageChars-1]) + "…"
	}

	resp, err := n.http.R().
		SetContext(ctx).
		SetBody(sendMessageRequest{ChatID: n.cfg.ChatID, Text: text}).
		Post(n.cfg.APIBase + "/bot" + n.cfg.BotToken + "/sendMessage")
	if err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}

	// The API reports failures both ways: HTTP status and the ok flag.
	var result sendMessageResponse
	if unmarshalErr := sonic.Unmarshal(resp.Body(), &result); unmarshalErr != nil {
		result.Description = "unparsable response"
	}
	if !resp.IsSuccess() || !result.OK {
		return fmt.Errorf("telegram send: status %d: %s", resp.StatusCode(), result.Description)
	}
	return nil
}

// SendAsync delivers in a detached goroutine with its own deadline, so the
// caller's response is never held up. Failures are logged, not surfaced.
func (n *Notifier) SendAsync(text string) {
	if !n.Configured() {
		return
	}

	deliveryID := id.Default().GenerateWithPrefix(deliveryPrefix)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), n.cfg.Timeout())
		defer cancel()

		if err := n.Send(ctx, text); err != nil {
			n.log.Warn("async notification failed",
				zap.Error(err),
				zap.String("deliveryId", deliveryID))
		}
	}()
}
