package scraper

import (
	"context"
	"strings"

	"avtopress/internal/logger"
	"avtopress/internal/model"
	"avtopress/internal/textutil"
	"avtopress/internal/translate"
)

const (
	retellingSentences = 6
	retellingChars     = 1400
)

// TranslateOptions control the translation pass over collected items.
type TranslateOptions struct {
	Enabled         bool
	TargetLanguage  string
	MaxContentChars int
	OnProgress      func(model.TranslateProgress)
}

// TranslateItems translates title and content of every collected item.
// With translation disabled the pass still normalizes and trims content so
// downstream stages see one canonical shape.
func TranslateItems(ctx context.Context, engine *translate.Engine, items []model.CollectedItem, opts TranslateOptions) []model.CollectedItem {
	out := make([]model.CollectedItem, 0, len(items))

	emit := func(completed int, title string) {
		if opts.OnProgress == nil {
			return
		}
		opts.OnProgress(model.TranslateProgress{
			TotalItems:       len(items),
			CompletedItems:   completed,
			CurrentItemTitle: title,
		})
	}

	for i, item := range items {
		emit(i, item.Title)

		if !opts.Enabled {
			item.Title = textutil.NormalizeText(item.Title)
			item.Content = textutil.TrimContent(textutil.NormalizeArticleContent(item.Content), opts.MaxContentChars)
			out = append(out, item)
			emit(i+1, item.Title)
			continue
		}

		logger.Debug("translating item", "title", textutil.TrimContent(item.Title, 80))

		translatedTitle := engine.TranslateText(ctx, item.Title, opts.TargetLanguage, true)
		translatedContent := engine.TranslateText(ctx, item.Content, opts.TargetLanguage, true)

		content := textutil.NormalizeArticleContent(translatedContent)
		if strings.EqualFold(opts.TargetLanguage, "uk") && item.RightsFlag == model.RightsQuoteOnly {
			content = buildQuoteOnlyRetelling(item.URL, content)
		}

		item.Title = textutil.NormalizeText(translatedTitle)
		item.Content = textutil.TrimContent(content, opts.MaxContentChars)
		out = append(out, item)
		emit(i+1, item.Title)
	}

	return out
}

// buildQuoteOnlyRetelling condenses a quote-only story into a short
// retelling with an explicit source line, the only form such items may be
// republished in.
func buildQuoteOnlyRetelling(url, translatedContent string) string {
	normalized := textutil.NormalizeArticleContent(translatedContent)
	body := textutil.ExcerptBySentences(normalized, retellingSentences, retellingChars)
	if body == "" {
		body = normalized
	}
	return body + "\n\nДжерело: " + url
}
