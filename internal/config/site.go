package config

// SiteConfig holds site-specific configuration for a single host.
// This allows customizing mirror behavior per site without CLI flags.
type SiteConfig struct {
	// Depth overrides the global crawl depth for this site.
	// If zero, the global Depth is used.
	Depth int `yaml:"depth,omitempty"`

	// UserAgent overrides the default User-Agent for this site.
	UserAgent string `yaml:"userAgent,omitempty"`

	// Headers are custom HTTP headers to include in requests to this site.
	Headers map[string]string `yaml:"headers,omitempty"`

	// IgnorePatterns are URL path patterns to skip during crawling.
	// Patterns are matched against the URL path using glob syntax.
	IgnorePatterns []string `yaml:"ignorePatterns,omitempty"`

	// FollowPatterns are URL path patterns to follow during crawling.
	// If specified, only URLs matching these patterns are crawled.
	FollowPatterns []string `yaml:"followPatterns,omitempty"`
}

// File represents the structure of the .webmirror configuration file.
type File struct {
	// Sites maps hosts to their site-specific configurations.
	// Keys are bare hosts without the scheme (e.g., "example.com").
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults contains default site configuration applied to all sites
	// unless overridden in the site-specific configuration.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// SiteConfig returns the configuration for a specific host.
// It merges the site-specific configuration with the file's defaults.
func (cf *File) SiteConfig(host string) SiteConfig {
	result := cf.Defaults

	if site, ok := cf.Sites[host]; ok {
		if site.Depth != 0 {
			result.Depth = site.Depth
		}
		if site.UserAgent != "" {
			result.UserAgent = site.UserAgent
		}
		if len(site.Headers) > 0 {
			if result.Headers == nil {
				result.Headers = make(map[string]string)
			}
			for k, v := range site.Headers {
				result.Headers[k] = v
			}
		}
		if len(site.IgnorePatterns) > 0 {
			result.IgnorePatterns = site.IgnorePatterns
		}
		if len(site.FollowPatterns) > 0 {
			result.FollowPatterns = site.FollowPatterns
		}
	}

	return result
}
