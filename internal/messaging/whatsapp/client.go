package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"log/slog"
)

const (
	defaultBaseURL   = "https://graph.facebook.com/v19.0"
	defaultUserAgent = "novamed-booking/0.1"
)

// Config controls how the WhatsApp Cloud API client behaves.
type Config struct {
	BaseURL     string
	AccessToken string
	PhoneID     string
	Timeout     time.Duration
	MaxRetries  int
	Backoff     time.Duration
	HTTPClient  *http.Client
	Logger      *slog.Logger
	UserAgent   string
}

// Client wraps the WhatsApp Cloud API message endpoints.
type Client struct {
	accessToken string
	phoneID     string
	baseURL     string
	httpClient  *http.Client
	maxRetries  int
	backoff     time.Duration
	logger      *slog.Logger
	userAgent   string
}

// New creates a configured Client with sane defaults.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.AccessToken) == "" {
		return nil, errors.New("whatsapp: access token is required")
	}
	if strings.TrimSpace(cfg.PhoneID) == "" {
		return nil, errors.New("whatsapp: phone number id is required")
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	backoff := cfg.Backoff
	if backoff <= 0 {
		backoff = 250 * time.Millisecond
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &Client{
		accessToken: cfg.AccessToken,
		phoneID:     cfg.PhoneID,
		baseURL:     baseURL,
		httpClient:  httpClient,
		maxRetries:  maxRetries,
		backoff:     backoff,
		logger:      logger,
		userAgent:   userAgent,
	}, nil
}

// SendText delivers a plain text message.
func (c *Client) SendText(ctx context.Context, to, body string) error {
	if strings.TrimSpace(to) == "" {
		return errors.New("whatsapp: recipient required")
	}
	if body == "" {
		return errors.New("whatsapp: message body required")
	}
	return c.send(ctx, textPayload(to, body))
}

// SendButtons delivers an interactive reply-button message. The Cloud
// API caps reply buttons at three.
func (c *Client) SendButtons(ctx context.Context, to, body string, buttons []Button) error {
	if strings.TrimSpace(to) == "" {
		return errors.New("whatsapp: recipient required")
	}
	if len(buttons) == 0 || len(buttons) > maxButtons {
		return fmt.Errorf("whatsapp: button count must be 1..%d, got %d", maxButtons, len(buttons))
	}
	return c.send(ctx, buttonsPayload(to, body, buttons))
}

// SendList delivers an interactive list message. The Cloud API caps
// list rows at ten.
func (c *Client) SendList(ctx context.Context, to, body, buttonLabel string, rows []Row) error {
	if strings.TrimSpace(to) == "" {
		return errors.New("whatsapp: recipient required")
	}
	if len(rows) == 0 || len(rows) > maxListRows {
		return fmt.Errorf("whatsapp: list row count must be 1..%d, got %d", maxListRows, len(rows))
	}
	return c.send(ctx, listPayload(to, body, buttonLabel, rows))
}

// SendDocument delivers a document by link, e.g. a visit report PDF.
func (c *Client) SendDocument(ctx context.Context, to, link, filename string) error {
	if strings.TrimSpace(to) == "" {
		return errors.New("whatsapp: recipient required")
	}
	if strings.TrimSpace(link) == "" {
		return errors.New("whatsapp: document link required")
	}
	return c.send(ctx, documentPayload(to, link, filename))
}

func (c *Client) send(ctx context.Context, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("whatsapp: marshal payload: %w", err)
	}
	_, err = c.invoke(ctx, http.MethodPost, "/"+c.phoneID+"/messages", body)
	return err
}

func (c *Client) invoke(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	fullURL := c.baseURL + "/" + strings.TrimLeft(path, "/")
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		var bodyReader io.Reader
		if body != nil {
			bodyReader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, fullURL, bodyReader)
		if err != nil {
			return nil, fmt.Errorf("whatsapp: build request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
		req.Header.Set("User-Agent", c.userAgent)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if !shouldRetry(0, err) || attempt == c.maxRetries {
				return nil, fmt.Errorf("whatsapp: http error: %w", err)
			}
			lastErr = err
			c.logRetry(path, attempt, 0, err)
			if sleepErr := c.sleep(ctx, attempt); sleepErr != nil {
				return nil, sleepErr
			}
			continue
		}
		data, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return nil, fmt.Errorf("whatsapp: read response: %w", readErr)
		}
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return data, nil
		}
		apiErr := decodeAPIError(resp.StatusCode, data)
		if attempt < c.maxRetries && shouldRetry(resp.StatusCode, nil) {
			lastErr = apiErr
			c.logRetry(path, attempt, resp.StatusCode, apiErr)
			if sleepErr := c.sleep(ctx, attempt); sleepErr != nil {
				return nil, sleepErr
			}
			continue
		}
		return nil, apiErr
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, errors.New("whatsapp: request failed without response")
}

func (c *Client) sleep(ctx context.Context, attempt int) error {
	delay := c.backoff * time.Duration(1<<attempt)
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *Client) logRetry(path string, attempt int, status int, err error) {
	if c.logger == nil {
		return
	}
	c.logger.Warn("whatsapp retry",
		"path", path,
		"attempt", attempt+1,
		"status", status,
		"error", err,
	)
}

func shouldRetry(status int, err error) bool {
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return true
		}
		return !errors.Is(err, context.Canceled)
	}
	if status == http.StatusTooManyRequests {
		return true
	}
	return status >= 500 && status <= 599
}

type apiError struct {
	StatusCode int    `json:"-"`
	Message    string `json:"message,omitempty"`
	Type       string `json:"type,omitempty"`
	Code       int    `json:"code,omitempty"`
	TraceID    string `json:"fbtrace_id,omitempty"`
}

func (e *apiError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("whatsapp: %s (status=%d code=%d)", e.Message, e.StatusCode, e.Code)
	}
	return fmt.Sprintf("whatsapp: http status %d", e.StatusCode)
}

func decodeAPIError(status int, body []byte) error {
	var wrapper struct {
		Error apiError `json:"error"`
	}
	if err := json.Unmarshal(body, &wrapper); err != nil || wrapper.Error == (apiError{}) {
		return &apiError{StatusCode: status, Message: strings.TrimSpace(string(body))}
	}
	parsed := wrapper.Error
	parsed.StatusCode = status
	return &parsed
}
