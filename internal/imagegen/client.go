package imagegen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"
)

const (
	defaultBaseURL   = "http://localhost:8000"
	defaultTimeout   = 6 * time.Minute
	maxResponseBytes = 64 << 20
)

// Payload is an encoded generation call ready to be sent. Path is relative to
// the service base URL.
type Payload struct {
	Path        string
	ContentType string
	Header      http.Header
	Body        []byte
}

// Image is a successful generation response.
type Image struct {
	Data        []byte
	ContentType string
}

// ServiceError reports a response the service produced but which carries no
// usable image. Detail holds the service's explanation when it sent one.
type ServiceError struct {
	StatusCode int
	Detail     string
}

func (e *ServiceError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("imagegen: http %d: %s", e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("imagegen: http %d", e.StatusCode)
}

// TransportError wraps failures where no response was received.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return "imagegen: transport: " + e.Err.Error() }
func (e *TransportError) Unwrap() error { return e.Err }

type Options struct {
	BaseURL    string
	HTTPClient *http.Client
	Timeout    time.Duration
	// MaxResponseBytes caps the response body. Larger responses fail as a
	// whole. Defaults to 64 MiB.
	MaxResponseBytes int64
}

// Client talks to the remote generation service.
type Client struct {
	httpClient *http.Client
	baseURL    string
	maxBody    int64
}

func NewClient(opts Options) *Client {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		base = defaultBaseURL
	}
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	maxBody := opts.MaxResponseBytes
	if maxBody <= 0 {
		maxBody = maxResponseBytes
	}
	return &Client{httpClient: client, baseURL: base, maxBody: maxBody}
}

// BaseURL returns the normalised service root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Send posts the payload and returns the image bytes. Failures are either a
// *TransportError or a *ServiceError.
func (c *Client) Send(ctx context.Context, p Payload) (*Image, error) {
	if c == nil {
		return nil, errors.New("imagegen client not configured")
	}
	endpoint := c.baseURL + "/" + strings.TrimLeft(p.Path, "/")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(p.Body))
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	for k, vs := range p.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if p.ContentType != "" {
		req.Header.Set("Content-Type", p.ContentType)
	}
	req.Header.Set("Accept", "image/*, application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return nil, &TransportError{Err: fmt.Errorf("read body: %w", err)}
	}
	if int64(len(body)) > c.maxBody {
		return nil, &ServiceError{
			StatusCode: resp.StatusCode,
			Detail:     fmt.Sprintf("response larger than %d bytes", c.maxBody),
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &ServiceError{StatusCode: resp.StatusCode, Detail: parseDetail(body)}
	}

	contentType := mediaType(resp.Header.Get("Content-Type"))
	if contentType == "" && len(body) > 0 {
		contentType = mediaType(http.DetectContentType(body))
	}
	if len(body) == 0 || contentType == "application/json" || strings.HasPrefix(contentType, "text/") {
		return nil, &ServiceError{StatusCode: resp.StatusCode, Detail: parseDetail(body)}
	}
	return &Image{Data: body, ContentType: contentType}, nil
}

func mediaType(v string) string {
	if v == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(v)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(v))
	}
	return mt
}

// parseDetail extracts the "detail" member of an error body. Validation
// errors carry a list of {msg} objects which are joined.
func parseDetail(body []byte) string {
	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Detail) == 0 {
		return ""
	}

	var text string
	if err := json.Unmarshal(envelope.Detail, &text); err == nil {
		return strings.TrimSpace(text)
	}

	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(envelope.Detail, &items); err == nil {
		msgs := make([]string, 0, len(items))
		for _, item := range items {
			if m := strings.TrimSpace(item.Msg); m != "" {
				msgs = append(msgs, m)
			}
		}
		return strings.Join(msgs, "; ")
	}

	if string(envelope.Detail) == "null" {
		return ""
	}
	return strings.TrimSpace(string(envelope.Detail))
}
