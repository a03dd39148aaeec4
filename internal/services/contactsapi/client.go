// Package contactsapi provides a client for the contact list application's REST API.
package contactsapi

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

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/ternarybob/crudcheck/internal/interfaces"
	"github.com/ternarybob/crudcheck/internal/models"
)

const (
	// DefaultTimeout is the default HTTP timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultInterval is the default minimum spacing between requests.
	DefaultInterval = 200 * time.Millisecond
)

// Client is a contacts API client. It holds no credentials; every call
// takes the token returned by Authenticate.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     arbor.ILogger
	limiter    *rate.Limiter
}

var _ interfaces.ContactsAPI = (*Client)(nil)

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTimeout sets the HTTP timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient = &http.Client{Timeout: timeout}
	}
}

// WithLogger sets a logger.
func WithLogger(logger arbor.ILogger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit spaces requests at least interval apart. Zero disables limiting.
func WithRateLimit(interval time.Duration) ClientOption {
	return func(c *Client) {
		if interval <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Every(interval), 1)
	}
}

// NewClient creates a client for the API rooted at baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		logger:  arbor.NewNoOpLogger(),
		limiter: rate.NewLimiter(rate.Every(DefaultInterval), 1),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError represents an error from the contacts API.
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("contacts API error: %s (status %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// do performs a request and decodes a JSON response into result when non-nil.
func (c *Client) do(ctx context.Context, method, path string, token models.APIToken, body, result interface{}) error {
	// Wait for rate limiter
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+string(token))
	}

	c.logger.Debug().
		Str("method", method).
		Str("url", c.baseURL+path).
		Msg("Contacts API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(resp.Body)
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    errorMessage(raw, resp.Status),
			Endpoint:   path,
		}
	}

	if result == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// errorMessage extracts the application message from a rejected response
func errorMessage(raw []byte, status string) string {
	var parsed errorResponse
	if json.Unmarshal(raw, &parsed) == nil {
		if parsed.Message != "" {
			return parsed.Message
		}
		if parsed.Error != "" {
			return parsed.Error
		}
	}
	if text := strings.TrimSpace(string(raw)); text != "" {
		return text
	}
	return status
}

// Authenticate logs in and returns the bearer token.
func (c *Client) Authenticate(ctx context.Context, creds models.Credentials) (models.APIToken, error) {
	var resp loginResponse
	err := c.do(ctx, http.MethodPost, "/users/login", "", loginRequest{Email: creds.Username, Password: creds.Password}, &resp)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && (apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusBadRequest) {
			return "", &models.AuthenticationRejectedError{Message: apiErr.Message}
		}
		return "", fmt.Errorf("failed to authenticate: %w", err)
	}
	if resp.Token == "" {
		return "", errors.New("failed to authenticate: response carried no token")
	}

	c.logger.Debug().Str("user", creds.Username).Msg("Contacts API authenticated")
	return models.APIToken(resp.Token), nil
}

// Create stores a contact. Validation failures come back as SaveError.
func (c *Client) Create(ctx context.Context, token models.APIToken, contact models.Contact) (models.StoredContact, error) {
	var created Contact
	if err := c.do(ctx, http.MethodPost, "/contacts", token, FromModel(contact), &created); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusBadRequest {
			return models.StoredContact{}, &models.SaveError{Message: apiErr.Message}
		}
		return models.StoredContact{}, fmt.Errorf("failed to create contact: %w", err)
	}
	return created.ToModel(), nil
}

// List retrieves every contact owned by the token's user.
func (c *Client) List(ctx context.Context, token models.APIToken) ([]models.StoredContact, error) {
	var wire []Contact
	if err := c.do(ctx, http.MethodGet, "/contacts", token, nil, &wire); err != nil {
		return nil, fmt.Errorf("failed to list contacts: %w", err)
	}

	contacts := make([]models.StoredContact, len(wire))
	for i, w := range wire {
		contacts[i] = w.ToModel()
	}
	return contacts, nil
}

// Delete removes the contact with id.
func (c *Client) Delete(ctx context.Context, token models.APIToken, id string) error {
	if id == "" {
		return errors.New("failed to delete contact: empty id")
	}
	if err := c.do(ctx, http.MethodDelete, "/contacts/"+url.PathEscape(id), token, nil, nil); err != nil {
		return fmt.Errorf("failed to delete contact %s: %w", id, err)
	}
	return nil
}
