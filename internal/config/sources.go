package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"avtopress/internal/model"
)

const defaultLicenseText = "Use factual information with attribution. Check media asset usage terms before publishing photos."

// sourceEntry is the YAML shape of one configured source.
type sourceEntry struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Source      string `yaml:"source"`
	URL         string `yaml:"url"`
	FeedURL     string `yaml:"feed_url"`
	Enabled     *bool  `yaml:"enabled"`
	MaxItems    int    `yaml:"max_items"`
	RightsFlag  string `yaml:"rights_flag"`
	LicenseText string `yaml:"license_text"`
}

type sourcesFile struct {
	Sources []sourceEntry `yaml:"sources"`
}

// LoadSources reads the source list, skipping disabled entries and applying
// defaults. maxItemsOverride > 0 replaces every per-source cap.
func LoadSources(path string, maxItemsOverride int) ([]model.Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sources config: %w", err)
	}

	var cfg sourcesFile
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse sources config: %w", err)
	}

	var out []model.Source
	for _, entry := range cfg.Sources {
		if entry.Enabled != nil && !*entry.Enabled {
			continue
		}
		if entry.ID == "" || entry.Name == "" || entry.FeedURL == "" {
			return nil, fmt.Errorf("source entry missing id, name or feed_url (id=%q)", entry.ID)
		}

		maxItems := entry.MaxItems
		if maxItemsOverride > 0 {
			maxItems = maxItemsOverride
		}
		if maxItems < 1 {
			maxItems = 4
		}

		sourceLabel := entry.Source
		if sourceLabel == "" {
			sourceLabel = entry.Name
		}

		licenseText := entry.LicenseText
		if licenseText == "" {
			licenseText = defaultLicenseText
		}

		out = append(out, model.Source{
			ID:          entry.ID,
			Name:        entry.Name,
			Source:      sourceLabel,
			URL:         entry.URL,
			FeedURL:     entry.FeedURL,
			Enabled:     true,
			MaxItems:    maxItems,
			RightsFlag:  normalizeRightsFlag(entry.RightsFlag),
			LicenseText: licenseText,
		})
	}

	return out, nil
}

func normalizeRightsFlag(value string) model.RightsFlag {
	switch model.RightsFlag(value) {
	case model.RightsOfficialPress, model.RightsQuoteOnly, model.RightsUnknown:
		return model.RightsFlag(value)
	default:
		return model.RightsOfficialPress
	}
}
