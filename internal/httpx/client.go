// Package httpx wraps outbound HTTP with the fixed timeout, browser
// User-Agent and retry behavior every fetch in the pipeline shares.
package httpx

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"avtopress/internal/retry"
)

const (
	imageRetryAttempts  = 3
	imageRetryBaseDelay = 500 * time.Millisecond
)

// Client performs all outbound fetches for the pipeline.
type Client struct {
	httpClient    *http.Client
	userAgent     string
	maxImageBytes int64
}

// New builds a client with a fixed per-request timeout. No call may block
// the pipeline indefinitely.
func New(timeout time.Duration, userAgent string, maxImageBytes int64) *Client {
	return &Client{
		httpClient:    &http.Client{Timeout: timeout},
		userAgent:     userAgent,
		maxImageBytes: maxImageBytes,
	}
}

// Image is a downloaded binary image plus the content type it was served with.
type Image struct {
	Data        []byte
	ContentType string
}

// IsHTTPURL reports whether value is an absolute http(s) URL.
func IsHTTPURL(value string) bool {
	u, err := url.Parse(value)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func (c *Client) get(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "*/*")
	return c.httpClient.Do(req)
}

// FetchText downloads the body of rawURL, failing on any non-2xx status.
// Used for feed documents where a failure must surface to the caller.
func (c *Client) FetchText(ctx context.Context, rawURL string) (string, error) {
	if !IsHTTPURL(rawURL) {
		return "", fmt.Errorf("invalid URL: %q", rawURL)
	}

	resp, err := c.get(ctx, rawURL)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// FetchHTMLOrEmpty downloads an article page best-effort: any failure or
// non-HTML response yields "", never an error.
func (c *Client) FetchHTMLOrEmpty(ctx context.Context, rawURL string) string {
	if !IsHTTPURL(rawURL) {
		return ""
	}

	resp, err := c.get(ctx, rawURL)
	if err != nil {
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return ""
	}
	if !strings.Contains(resp.Header.Get("Content-Type"), "text/html") {
		return ""
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return ""
	}
	return string(body)
}

// FetchImage downloads a binary image with a size cap and a content-type
// check, retrying transient failures. A nil result means the candidate is
// skipped, not that the run failed.
func (c *Client) FetchImage(ctx context.Context, rawURL string) *Image {
	if !IsHTTPURL(rawURL) {
		return nil
	}

	var img *Image
	policy := retry.Policy{
		MaxAttempts: imageRetryAttempts,
		Delay:       imageRetryBaseDelay,
		Backoff:     true,
		Retriable:   IsRetriableError,
	}

	err := retry.Do(ctx, policy, func() error {
		resp, err := c.get(ctx, rawURL)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return &StatusError{Code: resp.StatusCode}
		}

		contentType := resp.Header.Get("Content-Type")
		if !strings.HasPrefix(contentType, "image/") {
			return &rejectError{reason: "not an image"}
		}
		if resp.ContentLength > 0 && resp.ContentLength > c.maxImageBytes {
			return &rejectError{reason: "too large"}
		}

		data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxImageBytes+1))
		if err != nil {
			return err
		}
		if int64(len(data)) > c.maxImageBytes {
			return &rejectError{reason: "too large"}
		}

		img = &Image{Data: data, ContentType: contentType}
		return nil
	})
	if err != nil {
		return nil
	}
	return img
}

// ExtensionForContentType picks a file extension for a downloaded image.
func ExtensionForContentType(contentType string) string {
	contentType = strings.ToLower(contentType)
	switch {
	case strings.Contains(contentType, "png"):
		return ".png"
	case strings.Contains(contentType, "webp"):
		return ".webp"
	case strings.Contains(contentType, "gif"):
		return ".gif"
	case strings.Contains(contentType, "svg"):
		return ".svg"
	default:
		return ".jpg"
	}
}
