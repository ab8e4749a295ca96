// Package raindrop imports highlights from the Raindrop.io bookmarking
// service as sources. Highlights marked with the flashcard color are
// queued for automatic card generation.
package raindrop

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// defaultBaseURL is the Raindrop.io REST API root.
const defaultBaseURL = "https://api.raindrop.io/rest/v1"

// defaultPageSize matches the API's maximum highlights page size.
const defaultPageSize = 50

// Client errors.
var (
	// ErrTokenNotConfigured indicates the integration has no API token.
	ErrTokenNotConfigured = errors.New("raindrop token not configured")

	// ErrInvalidToken indicates the API rejected the configured token.
	ErrInvalidToken = errors.New("invalid raindrop token")
)

// APIError captures a non-auth failure response from the Raindrop API.
type APIError struct {
	StatusCode int
	Endpoint   string
}

// Error implements the error interface for APIError.
func (e *APIError) Error() string {
	return fmt.Sprintf("raindrop API %s returned status %d", e.Endpoint, e.StatusCode)
}

// Highlight is a single text highlight as returned by the Raindrop API.
type Highlight struct {
	ID      string    `json:"_id"`
	Text    string    `json:"text"`
	Color   string    `json:"color"`
	Link    string    `json:"link"`
	Title   string    `json:"title"`
	Created time.Time `json:"created"`
}

// ExternalID returns the deduplication key used for sources imported
// from this highlight.
func (h Highlight) ExternalID() string {
	return "raindrop_highlight_" + h.ID
}

// Client is a minimal Raindrop.io API client covering the endpoints the
// sync needs.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a Raindrop API client. The token may be empty; every
// request then fails with ErrTokenNotConfigured.
func NewClient(token string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:    defaultBaseURL,
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger.With(slog.String("component", "raindrop_client")),
	}
}

// get performs an authenticated GET and decodes the JSON response into out.
func (c *Client) get(ctx context.Context, endpoint string, query url.Values, out any) error {
	if c.token == "" {
		return ErrTokenNotConfigured
	}

	u := c.baseURL + endpoint
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("raindrop request failed: %w", err)
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return ErrInvalidToken
	case resp.StatusCode != http.StatusOK:
		return &APIError{StatusCode: resp.StatusCode, Endpoint: endpoint}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode raindrop response: %w", err)
	}
	return nil
}

// ListHighlights fetches one page of highlights. Pages are zero-based.
func (c *Client) ListHighlights(ctx context.Context, page int) ([]Highlight, error) {
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("perpage", strconv.Itoa(defaultPageSize))

	var body struct {
		Items []Highlight `json:"items"`
	}
	if err := c.get(ctx, "/highlights", query, &body); err != nil {
		return nil, err
	}

	c.logger.Debug("fetched highlights page",
		slog.Int("page", page),
		slog.Int("count", len(body.Items)))
	return body.Items, nil
}

// TestConnection verifies the token by fetching the account profile.
// Returns the account email on success.
func (c *Client) TestConnection(ctx context.Context) (string, error) {
	var body struct {
		User struct {
			Email string `json:"email"`
		} `json:"user"`
	}
	if err := c.get(ctx, "/user", nil, &body); err != nil {
		return "", err
	}
	if body.User.Email == "" {
		return "unknown", nil
	}
	return body.User.Email, nil
}
