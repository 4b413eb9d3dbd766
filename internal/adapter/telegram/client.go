// Package telegram talks to the Telegram Bot API.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// retryIntervals are the waits between Bot API attempts.
var retryIntervals = []time.Duration{
	time.Second,
	3 * time.Second,
	10 * time.Second,
}

// HTTPClient interface for testability.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client calls Bot API methods with the bot token.
type Client struct {
	base       string
	token      string
	httpClient HTTPClient
	retries    []time.Duration
	log        zerolog.Logger
}

// NewClient creates a Bot API client. base defaults to api.telegram.org.
func NewClient(base, token string, httpClient HTTPClient, log zerolog.Logger) *Client {
	if base == "" {
		base = "https://api.telegram.org"
	}
	return &Client{
		base:       strings.TrimRight(base, "/"),
		token:      token,
		httpClient: httpClient,
		retries:    retryIntervals,
		log:        log,
	}
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

type setWebhookRequest struct {
	URL                string   `json:"url"`
	SecretToken        string   `json:"secret_token,omitempty"`
	AllowedUpdates     []string `json:"allowed_updates"`
	DropPendingUpdates bool     `json:"drop_pending_updates"`
}

// SetWebhook registers url as the update endpoint. Only message updates are
// requested since edits never reach the ledger.
func (c *Client) SetWebhook(ctx context.Context, url, secret string) error {
	return c.call(ctx, "setWebhook", setWebhookRequest{
		URL:            url,
		SecretToken:    secret,
		AllowedUpdates: []string{"message"},
	})
}

type sendMessageRequest struct {
	ChatID           int64  `json:"chat_id"`
	Text             string `json:"text"`
	ReplyToMessageID int64  `json:"reply_to_message_id,omitempty"`
}

// SendMessage posts text to chatID, as a reply when replyTo is non-zero.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string, replyTo int64) error {
	return c.call(ctx, "sendMessage", sendMessageRequest{
		ChatID:           chatID,
		Text:             text,
		ReplyToMessageID: replyTo,
	})
}

// DeleteWebhook unregisters the update endpoint.
func (c *Client) DeleteWebhook(ctx context.Context) error {
	return c.call(ctx, "deleteWebhook", struct{}{})
}

// call posts payload to method, retrying transport errors and 5xx/429
// responses.
func (c *Client) call(ctx context.Context, method string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("telegram %s: encode: %w", method, err)
	}
	endpoint := fmt.Sprintf("%s/bot%s/%s", c.base, c.token, method)

	var lastErr error
	for attempt := 0; attempt <= len(c.retries); attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(c.retries[attempt-1]):
			case <-ctx.Done():
				return fmt.Errorf("telegram %s: %w", method, ctx.Err())
			}
		}

		retry, err := c.do(ctx, endpoint, body)
		if err == nil {
			c.log.Info().Str("method", method).Int("attempt", attempt+1).Msg("telegram call succeeded")
			return nil
		}
		lastErr = fmt.Errorf("telegram %s: %w", method, err)
		if !retry {
			return lastErr
		}
		c.log.Warn().Err(err).Str("method", method).Int("attempt", attempt+1).Msg("telegram call failed, retrying")
	}

	c.log.Error().Err(lastErr).Str("method", method).Msg("telegram call: all retry attempts exhausted")
	return lastErr
}

func (c *Client) do(ctx context.Context, endpoint string, body []byte) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return false, c.redact(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return true, c.redact(err)
	}
	defer resp.Body.Close()

	var out apiResponse
	_ = json.NewDecoder(resp.Body).Decode(&out)

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return true, fmt.Errorf("status %d: %s", resp.StatusCode, out.Description)
	case resp.StatusCode >= 300 || !out.OK:
		return false, fmt.Errorf("status %d: %s", resp.StatusCode, out.Description)
	}
	return false, nil
}

// redact keeps the bot token out of errors. Transport errors are *url.Error
// values that quote the request URL, and the token is part of the path.
func (c *Client) redact(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		err = fmt.Errorf("%s: %w", strings.ToLower(uerr.Op), uerr.Err)
	}
	if c.token != "" && strings.Contains(err.Error(), c.token) {
		return errors.New(strings.ReplaceAll(err.Error(), c.token, "<redacted>"))
	}
	return err
}
