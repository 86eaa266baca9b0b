package translate

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiClient is the optional second-tier translator, used only when an
// API key is configured and the free endpoint degrades.
type GeminiClient struct {
	client *genai.Client
}

func NewGeminiClient(ctx context.Context, apiKey string) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiClient{client: client}, nil
}

func (c *GeminiClient) Close() {
	if c.client != nil {
		c.client.Close()
	}
}

func languageName(code string) string {
	switch strings.ToLower(strings.TrimSpace(code)) {
	case "uk", "ukrainian":
		return "Ukrainian"
	case "en", "english":
		return "English"
	case "de", "german":
		return "German"
	case "pl", "polish":
		return "Polish"
	default:
		return code
	}
}

// Translate asks Gemini for a plain translation. Proper names of brands and
// models must stay untranslated, which the prompt spells out.
func (c *GeminiClient) Translate(ctx context.Context, text, targetLanguage string) (string, error) {
	model := c.client.GenerativeModel("gemini-1.5-flash")

	prompt := fmt.Sprintf(`Translate the following automotive press text to %s.
Keep the meaning and journalistic tone of the original.
Do not translate brand names, model names or trim level names.
Reply with the translation only, no comments or notes.

Text to translate:
%s`, languageName(targetLanguage), text)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no response from gemini")
	}

	translation := fmt.Sprintf("%v", resp.Candidates[0].Content.Parts[0])
	return strings.TrimSpace(translation), nil
}
