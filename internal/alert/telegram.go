package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

type TelegramSink struct {
	endpoint string
	chatID   string
	hc       *http.Client
}

type telegramMessage struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

func NewTelegramSink(apiURL string, botToken string, chatID string, timeout time.Duration) *TelegramSink {
	return &TelegramSink{
		endpoint: strings.TrimRight(apiURL, "/") + "/bot" + botToken + "/sendMessage",
		chatID:   chatID,
		hc: &http.Client{
			Timeout: timeout,
		},
	}
}

func (s *TelegramSink) Send(ctx context.Context, n Notification) error {
	payload, err := json.Marshal(telegramMessage{
		ChatID:                s.chatID,
		Text:                  n.Text,
		ParseMode:             "Markdown",
		DisableWebPagePreview: true,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, redactURL(err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.hc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, redactURL(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("%w: status=%d body=%s", ErrRejected, resp.StatusCode, body)
	}
	zap.L().Info("Telegram message sent")
	return nil
}

// redactURL drops the request URL from client errors; it embeds the bot token.
func redactURL(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%s: %w", urlErr.Op, urlErr.Err)
	}
	return err
}
