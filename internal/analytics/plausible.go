// Package analytics renders the optional Plausible Analytics script tag.
package analytics

import (
	"html/template"
	"net/url"
	"slices"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/mrlokans/plibrary/internal/config"
)

// DefaultScriptURL is the hosted Plausible script.
const DefaultScriptURL = "https://plausible.io/js/script.js"

// PlausibleConfig holds the effective Plausible Analytics configuration
type PlausibleConfig struct {
	Enabled    bool
	Domain     string
	ScriptURL  string
	Extensions []string
}

// NewPlausibleConfig derives the effective configuration. Tracking is on
// whenever a domain is set. Unknown extensions are dropped with a warning.
func NewPlausibleConfig(cfg config.Plausible, log logrus.FieldLogger) *PlausibleConfig {
	scriptURL := cfg.ScriptURL
	if scriptURL == "" {
		scriptURL = DefaultScriptURL
	}

	var extensions []string
	for _, ext := range parseExtensions(cfg.Extensions) {
		if !IsValidExtension(ext) {
			log.WithField("extension", ext).Warn("Ignoring unknown Plausible extension")
			continue
		}
		extensions = append(extensions, ext)
	}

	return &PlausibleConfig{
		Enabled:    cfg.Domain != "",
		Domain:     cfg.Domain,
		ScriptURL:  scriptURL,
		Extensions: extensions,
	}
}

// BuildScriptURL constructs the Plausible script URL with extensions
func BuildScriptURL(baseURL string, extensions []string) string {
	if len(extensions) == 0 {
		return baseURL
	}

	// script.js becomes script.outbound-links.file-downloads.js
	if base, found := strings.CutSuffix(baseURL, ".js"); found {
		return base + "." + strings.Join(extensions, ".") + ".js"
	}

	return baseURL
}

// ScriptTag returns safe HTML for the Plausible script tag, empty when
// tracking is off.
func (cfg *PlausibleConfig) ScriptTag() template.HTML {
	if cfg == nil || !cfg.Enabled || cfg.Domain == "" {
		return ""
	}

	scriptURL := BuildScriptURL(cfg.ScriptURL, cfg.Extensions)

	return template.HTML(`<script defer data-domain="` + template.HTMLEscapeString(cfg.Domain) + `" src="` + template.HTMLEscapeString(scriptURL) + `"></script>`)
}

// ScriptOrigin returns the scheme and host serving the script, for the
// Content-Security-Policy. Empty when tracking is off.
func (cfg *PlausibleConfig) ScriptOrigin() string {
	if cfg == nil || !cfg.Enabled {
		return ""
	}
	u, err := url.Parse(cfg.ScriptURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

// parseExtensions splits comma-separated extensions and trims whitespace
func parseExtensions(s string) []string {
	if s == "" {
		return []string{}
	}

	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// ValidExtensions lists the known Plausible script extensions
var ValidExtensions = []string{
	"outbound-links",
	"file-downloads",
	"tagged-events",
	"hash",
	"compat",
	"local",
	"manual",
	"pageview-props",
	"revenue",
}

// IsValidExtension checks if an extension is known
func IsValidExtension(ext string) bool {
	return slices.Contains(ValidExtensions, ext)
}
