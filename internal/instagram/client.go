// internal/instagram/client.go
package instagram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const defaultBaseURL = "https://graph.instagram.com"

// Client talks to the Instagram Graph API: direct messages through the
// messaging endpoint and comment replies through the replies edge. Access
// tokens are passed per call since each configured account has its own.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures the client.
type Option func(*Client)

// WithBaseURL overrides the Graph API base URL (used in tests).
func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = baseURL }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

// NewClient creates a Graph API client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// sendMessageRequest is the messaging endpoint request body.
type sendMessageRequest struct {
	Recipient idRef       `json:"recipient"`
	Message   messageText `json:"message"`
}

type idRef struct {
	ID string `json:"id"`
}

type messageText struct {
	Text string `json:"text"`
}

// apiError is the Graph API error envelope.
type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// SendMessage delivers a direct message to the recipient.
func (c *Client) SendMessage(ctx context.Context, accessToken, recipientID, text string) error {
	body, err := json.Marshal(sendMessageRequest{
		Recipient: idRef{ID: recipientID},
		Message:   messageText{Text: text},
	})
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	endpoint := c.baseURL + "/v21.0/me/messages"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+accessToken)

	return c.do(req)
}

// SendCommentReply posts a reply under the given comment.
func (c *Client) SendCommentReply(ctx context.Context, accessToken, commentID, text string) error {
	endpoint := fmt.Sprintf("%s/v22.0/%s/replies", c.baseURL, url.PathEscape(commentID))
	params := url.Values{
		"message":      {text},
		"access_token": {accessToken},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	return c.do(req)
}

func (c *Client) do(req *http.Request) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr apiError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error.Message != "" {
			return fmt.Errorf("graph API error (status %d, code %d): %s",
				resp.StatusCode, apiErr.Error.Code, apiErr.Error.Message)
		}
		return fmt.Errorf("graph API error (status %d): %s", resp.StatusCode, string(respBody))
	}
	return nil
}
