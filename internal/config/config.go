// Package config loads runtime configuration from the environment and the
// source list from YAML.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Browser-like UA; several press sites refuse the default Go client string.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36"

type Config struct {
	// Paths
	SourcesPath string
	OutputDir   string
	VocabPath   string // optional photo vocabulary override

	// Translation settings
	TargetLanguage     string
	DisableTranslation bool
	GeminiAPIKey       string // optional fallback translator

	// Collection settings
	MaxItemsPerSource int // 0 = per-source configured value
	MaxContentChars   int
	MinArticleChars   int
	MaxParagraphs     int

	// Photo settings
	MaxImagesPerItem int
	MaxImageBytes    int64

	// Sink settings
	DatabaseURL     string
	ExcludedIDsPath string

	// Server settings
	ServerPort string

	// App settings
	Debug          bool
	UserAgent      string
	RequestTimeout time.Duration
}

func Load() (*Config, error) {
	cfg := &Config{
		SourcesPath:      "configs/sources.yaml",
		OutputDir:        "data",
		TargetLanguage:   "uk",
		MaxContentChars:  6000,
		MinArticleChars:  1200,
		MaxParagraphs:    24,
		MaxImagesPerItem: 2,
		MaxImageBytes:    8 * 1024 * 1024,
		ServerPort:       "8080",
		UserAgent:        DefaultUserAgent,
		RequestTimeout:   12 * time.Second,
	}

	cfg.SourcesPath = getEnvOrDefault("SOURCES_PATH", cfg.SourcesPath)
	cfg.OutputDir = getEnvOrDefault("OUTPUT_DIR", cfg.OutputDir)
	cfg.VocabPath = os.Getenv("PHOTO_VOCAB_PATH")
	cfg.TargetLanguage = getEnvOrDefault("TARGET_LANGUAGE", cfg.TargetLanguage)
	cfg.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.ExcludedIDsPath = getEnvOrDefault("EXCLUDED_IDS_PATH", "data/excluded_ids.json")
	cfg.ServerPort = getEnvOrDefault("PORT", cfg.ServerPort)

	if os.Getenv("DISABLE_TRANSLATION") == "true" {
		cfg.DisableTranslation = true
	}
	if os.Getenv("DEBUG") == "true" {
		cfg.Debug = true
	}

	cfg.MaxItemsPerSource = getEnvIntOrDefault("MAX_ITEMS_PER_SOURCE", cfg.MaxItemsPerSource)
	cfg.MaxContentChars = getEnvIntOrDefault("MAX_CONTENT_CHARS", cfg.MaxContentChars)
	cfg.MinArticleChars = getEnvIntOrDefault("MIN_ARTICLE_CHARS", cfg.MinArticleChars)
	cfg.MaxImagesPerItem = getEnvIntOrDefault("MAX_IMAGES_PER_ITEM", cfg.MaxImagesPerItem)

	if v := os.Getenv("REQUEST_TIMEOUT_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			cfg.RequestTimeout = time.Duration(ms) * time.Millisecond
		}
	}

	return cfg, cfg.Validate()
}

func (c *Config) Validate() error {
	if c.SourcesPath == "" {
		return fmt.Errorf("SOURCES_PATH is required")
	}
	if c.OutputDir == "" {
		return fmt.Errorf("OUTPUT_DIR is required")
	}
	if c.TargetLanguage == "" {
		return fmt.Errorf("TARGET_LANGUAGE is required")
	}
	if c.MaxContentChars <= 0 {
		return fmt.Errorf("MAX_CONTENT_CHARS must be positive")
	}
	if c.MaxImagesPerItem <= 0 {
		return fmt.Errorf("MAX_IMAGES_PER_ITEM must be positive")
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
