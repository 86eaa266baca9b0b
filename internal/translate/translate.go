// Package translate performs chunked best-effort translation via the free
// Google endpoint, with mixed-script repair for Ukrainian output and an
// optional Gemini fallback.
package translate

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"avtopress/internal/httpx"
	"avtopress/internal/logger"
	"avtopress/internal/retry"
	"avtopress/internal/textutil"
)

const (
	googleEndpoint = "https://translate.googleapis.com/translate_a/single"

	maxTranslationChars = 4500
	retryAttempts       = 3
	retryBaseDelay      = 350 * time.Millisecond
)

// Fallback is an optional second-tier translator tried when the free
// endpoint leaves a chunk untouched.
type Fallback interface {
	Translate(ctx context.Context, text, targetLanguage string) (string, error)
}

// Engine translates text. Failures never abort the pipeline: on any error
// the original text is returned.
type Engine struct {
	httpClient *http.Client
	userAgent  string
	endpoint   string
	fallback   Fallback
}

// New builds a translation engine with the shared request timeout.
func New(timeout time.Duration, userAgent string) *Engine {
	return &Engine{
		httpClient: &http.Client{Timeout: timeout},
		userAgent:  userAgent,
		endpoint:   googleEndpoint,
	}
}

// WithFallback attaches a second-tier translator.
func (e *Engine) WithFallback(fallback Fallback) *Engine {
	e.fallback = fallback
	return e
}

// WithEndpoint overrides the translation endpoint, for tests.
func (e *Engine) WithEndpoint(endpoint string) *Engine {
	e.endpoint = endpoint
	return e
}

func isUkLanguage(targetLanguage string) bool {
	normalized := strings.ToLower(strings.TrimSpace(targetLanguage))
	return normalized == "uk" || strings.HasPrefix(normalized, "uk-")
}

// TranslateText splits text into bounded chunks, translates each and
// rejoins with newlines. When the target is Ukrainian the result also goes
// through mixed-script repair. Empty or disabled input is returned as is.
func (e *Engine) TranslateText(ctx context.Context, text, targetLanguage string, enabled bool) string {
	if !enabled || text == "" {
		return text
	}

	chunks := textutil.SplitForTranslation(text, maxTranslationChars)
	translatedChunks := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		translatedChunks = append(translatedChunks, e.translateChunk(ctx, chunk, targetLanguage))
	}

	translatedText := strings.TrimSpace(strings.Join(translatedChunks, "\n"))
	if !isUkLanguage(targetLanguage) {
		return translatedText
	}

	return e.RepairMixedUkrainianText(ctx, translatedText)
}

func (e *Engine) translateChunk(ctx context.Context, chunk, targetLanguage string) string {
	translated := e.translateViaEndpoint(ctx, chunk, targetLanguage, "auto")
	if translated != chunk || e.fallback == nil {
		return translated
	}

	// The free endpoint degraded; give the fallback translator a chance.
	fromFallback, err := e.fallback.Translate(ctx, chunk, targetLanguage)
	if err != nil || strings.TrimSpace(fromFallback) == "" {
		if err != nil {
			logger.Debug("fallback translation failed", "error", err)
		}
		return chunk
	}
	return strings.TrimSpace(fromFallback)
}

// translateViaEndpoint calls the free endpoint with bounded retries on
// retriable statuses and transient errors. Any terminal failure returns the
// input unchanged.
func (e *Engine) translateViaEndpoint(ctx context.Context, text, targetLanguage, sourceLanguage string) string {
	params := url.Values{}
	params.Set("client", "gtx")
	params.Set("sl", sourceLanguage)
	params.Set("tl", targetLanguage)
	params.Set("dt", "t")
	params.Set("q", text)
	fullURL := e.endpoint + "?" + params.Encode()

	var translated string
	policy := retry.Policy{
		MaxAttempts: retryAttempts,
		Delay:       retryBaseDelay,
		Backoff:     true,
		Retriable:   httpx.IsRetriableError,
	}

	err := retry.Do(ctx, policy, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return err
		}
		req.Header.Set("User-Agent", e.userAgent)
		req.Header.Set("Accept", "application/json")

		resp, err := e.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return &httpx.StatusError{Code: resp.StatusCode}
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}

		translated = parseTranslatePayload(body)
		return nil
	})
	if err != nil || translated == "" {
		return text
	}
	return translated
}

// parseTranslatePayload unpacks the endpoint's array-of-arrays response:
// the first element holds [translatedPart, originalPart, ...] tuples.
func parseTranslatePayload(body []byte) string {
	var payload []any
	if err := json.Unmarshal(body, &payload); err != nil || len(payload) == 0 {
		return ""
	}

	parts, ok := payload[0].([]any)
	if !ok {
		return ""
	}

	var result strings.Builder
	for _, part := range parts {
		tuple, ok := part.([]any)
		if !ok || len(tuple) == 0 {
			continue
		}
		if translatedText, ok := tuple[0].(string); ok {
			result.WriteString(translatedText)
		}
	}

	return strings.TrimSpace(result.String())
}
