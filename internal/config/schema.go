package config

// Config holds pagescan configuration.
// Stored at: ./config.yaml or ~/.pagescan/config.yaml
type Config struct {
	Providers map[string]ProviderCfg `mapstructure:"providers" yaml:"providers"`
	Defaults  DefaultsCfg            `mapstructure:"defaults" yaml:"defaults"`
}

// ProviderCfg configures a vision completion provider.
type ProviderCfg struct {
	Type           string  `mapstructure:"type" yaml:"type"`                       // "groq"
	Model          string  `mapstructure:"model" yaml:"model"`                     // Default model identifier
	APIKey         string  `mapstructure:"api_key" yaml:"api_key"`                 // API key (supports ${ENV_VAR} syntax)
	BaseURL        string  `mapstructure:"base_url" yaml:"base_url,omitempty"`     // Override API base URL
	RateLimit      float64 `mapstructure:"rate_limit" yaml:"rate_limit"`           // Requests per minute
	TimeoutSeconds int     `mapstructure:"timeout_seconds" yaml:"timeout_seconds"` // HTTP timeout per request
	MaxRetries     int     `mapstructure:"max_retries" yaml:"max_retries"`         // Retries for transient failures
	Enabled        bool    `mapstructure:"enabled" yaml:"enabled"`
}

// DefaultsCfg specifies run defaults.
type DefaultsCfg struct {
	Provider     string  `mapstructure:"provider" yaml:"provider"`           // Default provider name
	Temperature  float64 `mapstructure:"temperature" yaml:"temperature"`     // Sampling temperature
	MaxTokens    int     `mapstructure:"max_tokens" yaml:"max_tokens"`       // Max completion tokens per page
	SchemaPolicy string  `mapstructure:"schema_policy" yaml:"schema_policy"` // first-page, union, or strict
	RasterDPI    int     `mapstructure:"raster_dpi" yaml:"raster_dpi"`       // PDF rasterization resolution
}

// DefaultModel is the default vision model for extraction requests.
const DefaultModel = "meta-llama/llama-4-scout-17b-16e-instruct"

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Providers: map[string]ProviderCfg{
			"groq": {
				Type:           "groq",
				Model:          DefaultModel,
				APIKey:         "${GROQ_API_KEY}",
				RateLimit:      30.0,
				TimeoutSeconds: 120,
				MaxRetries:     3,
				Enabled:        true,
			},
		},
		Defaults: DefaultsCfg{
			Provider:     "groq",
			Temperature:  0.1,
			MaxTokens:    2048,
			SchemaPolicy: "first-page",
			RasterDPI:    300,
		},
	}
}

// GetProvider returns a provider config by name.
func (c *Config) GetProvider(name string) (ProviderCfg, bool) {
	p, ok := c.Providers[name]
	return p, ok
}
