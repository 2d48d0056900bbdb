package telegram

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const apiURL = "https://api.telegram.org/bot"

// Notifier delivers plain-text messages to staff.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// Bot posts to a single chat configured for the catering team.
type Bot struct {
	baseURL string
	chatID  string
	client  *http.Client
}

type Option func(*Bot)

func WithBaseURL(u string) Option {
	return func(b *Bot) { b.baseURL = strings.TrimRight(u, "/") }
}

func WithHTTPClient(c *http.Client) Option {
	return func(b *Bot) { b.client = c }
}

func NewBot(token, chatID string, opts ...Option) *Bot {
	b := &Bot{
		baseURL: apiURL + token,
		chatID:  chatID,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Bot) Notify(ctx context.Context, text string) error {
	return b.SendMessage(ctx, b.chatID, text)
}

func (b *Bot) SendMessage(ctx context.Context, chatID, text string) error {
	params := url.Values{}
	params.Add("chat_id", chatID)
	params.Add("text", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/sendMessage", strings.NewReader(params.Encode()))
	if err != nil {
		return fmt.Errorf("failed to build telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram API error: %s", resp.Status)
	}
	return nil
}

// LogNotifier is used when Telegram is disabled.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, text string) error {
	logrus.WithField("channel", "telegram").Info(text)
	return nil
}
