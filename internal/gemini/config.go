package gemini

import (
	"net/url"
	"time"
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta/models"
	DefaultModel   = "gemini-1.5-flash-latest"
	DefaultTimeout = 30 * time.Second
)

// Config holds the Gemini API settings.
type Config struct {
	APIKey  string        `koanf:"api_key" json:"-"` // Never serialize
	BaseURL string        `koanf:"base_url" json:"baseUrl"`
	Model   string        `koanf:"model" json:"model"`
	Timeout time.Duration `koanf:"timeout" json:"timeout"`
}

// Enabled returns true if the API is configured.
func (c Config) Enabled() bool {
	return c.APIKey != ""
}

// endpoint returns the generateContent URL for the configured model.
func (c Config) endpoint() string {
	base := c.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	model := c.Model
	if model == "" {
		model = DefaultModel
	}
	return base + "/" + model + ":generateContent?key=" + url.QueryEscape(c.APIKey)
}
