// Package telegram is a minimal Telegram Bot API client covering what the
// notifier needs: verifying the token and sending HTML messages.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultBaseURL is the public Bot API endpoint.
const DefaultBaseURL = "https://api.telegram.org"

// telegramResponse wraps the standard Telegram Bot API response envelope.
type telegramResponse struct {
	OK          bool            `json:"ok"`
	ErrorCode   int             `json:"error_code,omitempty"`
	Description string          `json:"description,omitempty"`
	Result      json.RawMessage `json:"result,omitempty"`
}

// APIError is a Bot API call answered with ok=false.
type APIError struct {
	Method      string
	Code        int
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram %s failed (%d): %s", e.Method, e.Code, e.Description)
}

// botUser represents the result of the getMe API call.
type botUser struct {
	ID        int64  `json:"id"`
	IsBot     bool   `json:"is_bot"`
	FirstName string `json:"first_name"`
	Username  string `json:"username"`
}

// Client calls the Bot API with a single bot token.
type Client struct {
	token   string
	baseURL string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at another Bot API server.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient replaces the HTTP client used for API calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// NewClient returns a Client for token.
func NewClient(token string, opts ...Option) *Client {
	c := &Client{
		token:   token,
		baseURL: DefaultBaseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// apiURL builds the full Telegram Bot API endpoint URL.
func (c *Client) apiURL(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
}

// call makes a POST request to the Telegram Bot API and returns the parsed response.
func (c *Client) call(ctx context.Context, method string, payload any) (*telegramResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL(method), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling Telegram %s: %w", method, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	var tgResp telegramResponse
	if err := json.Unmarshal(respBody, &tgResp); err != nil {
		return nil, fmt.Errorf("parsing %s response (HTTP %d): %w", method, resp.StatusCode, err)
	}
	if !tgResp.OK {
		return nil, &APIError{Method: method, Code: tgResp.ErrorCode, Description: tgResp.Description}
	}
	return &tgResp, nil
}

// GetMe verifies the bot token and returns the bot's username.
func (c *Client) GetMe(ctx context.Context) (string, error) {
	resp, err := c.call(ctx, "getMe", struct{}{})
	if err != nil {
		return "", err
	}
	var bot botUser
	if err := json.Unmarshal(resp.Result, &bot); err != nil {
		return "", fmt.Errorf("parsing bot user: %w", err)
	}
	return bot.Username, nil
}

// SendMessage sends an HTML formatted message to chatID. Link previews are
// disabled so each alert stays compact.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) error {
	payload := map[string]any{
		"chat_id":                  chatID,
		"text":                     text,
		"parse_mode":               "HTML",
		"disable_web_page_preview": true,
	}
	if _, err := c.call(ctx, "sendMessage", payload); err != nil {
		return err
	}
	return nil
}
