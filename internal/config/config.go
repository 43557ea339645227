package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	LLM       LLMConfig       `yaml:"llm" mapstructure:"llm"`
	Gemini    GeminiConfig    `yaml:"gemini" mapstructure:"gemini"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Registry  RegistryConfig  `yaml:"registry" mapstructure:"registry"`
	Acquire   AcquireConfig   `yaml:"acquire" mapstructure:"acquire"`
	OCR       OCRConfig       `yaml:"ocr" mapstructure:"ocr"`
	Jina      JinaConfig      `yaml:"jina" mapstructure:"jina"`
	Extract   ExtractConfig   `yaml:"extract" mapstructure:"extract"`
	Enrich    EnrichConfig    `yaml:"enrich" mapstructure:"enrich"`
	Pipeline  PipelineConfig  `yaml:"pipeline" mapstructure:"pipeline"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// LLMConfig selects the generative text-analysis backend.
type LLMConfig struct {
	Provider string `yaml:"provider" mapstructure:"provider"` // "gemini" or "anthropic"
}

// GeminiConfig holds Google Gemini API settings.
type GeminiConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	Model   string `yaml:"model" mapstructure:"model"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// RegistryConfig configures the CNPJ registry lookup client.
type RegistryConfig struct {
	BaseURL          string  `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSecs      int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RatePerSec       float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	MaxAttempts      int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	FailureThreshold int     `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetTimeoutSecs int     `yaml:"reset_timeout_secs" mapstructure:"reset_timeout_secs"`
}

// AcquireConfig configures content acquisition.
type AcquireConfig struct {
	HTMLStrategy      string   `yaml:"html_strategy" mapstructure:"html_strategy"`
	RenderTimeoutSecs int      `yaml:"render_timeout_secs" mapstructure:"render_timeout_secs"`
	FetchTimeoutSecs  int      `yaml:"fetch_timeout_secs" mapstructure:"fetch_timeout_secs"`
	SettleMillis      int      `yaml:"settle_millis" mapstructure:"settle_millis"`
	ExpansionTerms    []string `yaml:"expansion_terms" mapstructure:"expansion_terms"`
	MinStaticChars    int      `yaml:"min_static_chars" mapstructure:"min_static_chars"`
	MaxDocumentBytes  int64    `yaml:"max_document_bytes" mapstructure:"max_document_bytes"`
	UserAgent         string   `yaml:"user_agent" mapstructure:"user_agent"`
	ChromePath        string   `yaml:"chrome_path" mapstructure:"chrome_path"`
}

// OCRConfig configures PDF text extraction.
type OCRConfig struct {
	Provider      string `yaml:"provider" mapstructure:"provider"`
	PdfToTextPath string `yaml:"pdftotext_path" mapstructure:"pdftotext_path"`
	MistralKey    string `yaml:"mistral_key" mapstructure:"mistral_key"`
	MistralModel  string `yaml:"mistral_model" mapstructure:"mistral_model"`
}

// JinaConfig holds Jina AI Reader settings for remote rendering.
type JinaConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// ExtractConfig configures structured extraction.
type ExtractConfig struct {
	MaxInputChars     int  `yaml:"max_input_chars" mapstructure:"max_input_chars"`
	MinInputChars     int  `yaml:"min_input_chars" mapstructure:"min_input_chars"`
	ExplicitExclusion bool `yaml:"explicit_exclusion" mapstructure:"explicit_exclusion"`
}

// EnrichConfig configures lead enrichment.
type EnrichConfig struct {
	SearchBaseURL   string `yaml:"search_base_url" mapstructure:"search_base_url"`
	IncludeWhatsApp bool   `yaml:"include_whatsapp" mapstructure:"include_whatsapp"`
}

// PipelineConfig sets the fan-out policy. Values <= 1 run sequentially.
type PipelineConfig struct {
	ReferenceConcurrency int `yaml:"reference_concurrency" mapstructure:"reference_concurrency"`
	RecordConcurrency    int `yaml:"record_concurrency" mapstructure:"record_concurrency"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port               int      `yaml:"port" mapstructure:"port"`
	MaxBodyBytes       int64    `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	RequestTimeoutSecs int      `yaml:"request_timeout_secs" mapstructure:"request_timeout_secs"`
	AllowedOrigins     []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// HTML acquisition strategies.
const (
	StrategyAuto     = "auto"
	StrategyStatic   = "static"
	StrategyRendered = "rendered"
	StrategyRemote   = "remote"
)

// LLM providers.
const (
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
)

// ConfigurationError reports a setting that prevents the process from
// starting.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("LEADS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Unmarshal only sees env vars for keys viper already knows.
	for _, key := range []string{"gemini.key", "gemini.base_url", "anthropic.key", "jina.key", "ocr.mistral_key", "acquire.chrome_path"} {
		v.SetDefault(key, "")
	}

	v.SetDefault("llm.provider", ProviderGemini)
	v.SetDefault("gemini.model", "gemini-2.5-flash")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 4096)
	v.SetDefault("registry.base_url", "https://brasilapi.com.br/api/cnpj/v1")
	v.SetDefault("registry.timeout_secs", 15)
	v.SetDefault("registry.rate_per_sec", 3)
	v.SetDefault("registry.max_attempts", 3)
	v.SetDefault("registry.failure_threshold", 5)
	v.SetDefault("registry.reset_timeout_secs", 30)
	v.SetDefault("acquire.html_strategy", StrategyAuto)
	v.SetDefault("acquire.render_timeout_secs", 60)
	v.SetDefault("acquire.fetch_timeout_secs", 30)
	v.SetDefault("acquire.settle_millis", 2000)
	v.SetDefault("acquire.expansion_terms", []string{
		"detalhes", "details", "propostas", "proposals", "expandir", "expand",
		"ata", "minutes", "documento", "document", "ver mais", "visualizar",
	})
	v.SetDefault("acquire.min_static_chars", 200)
	v.SetDefault("acquire.max_document_bytes", 25<<20)
	v.SetDefault("acquire.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0 Safari/537.36")
	v.SetDefault("ocr.provider", "local")
	v.SetDefault("ocr.pdftotext_path", "pdftotext")
	v.SetDefault("ocr.mistral_model", "mistral-ocr-latest")
	v.SetDefault("jina.base_url", "https://r.jina.ai")
	v.SetDefault("extract.max_input_chars", 50000)
	v.SetDefault("extract.min_input_chars", 20)
	v.SetDefault("extract.explicit_exclusion", true)
	v.SetDefault("enrich.search_base_url", "https://www.google.com/search")
	v.SetDefault("enrich.include_whatsapp", true)
	v.SetDefault("pipeline.reference_concurrency", 1)
	v.SetDefault("pipeline.record_concurrency", 4)
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.max_body_bytes", 10<<20)
	v.SetDefault("server.request_timeout_secs", 300)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings the pipeline cannot run without. The
// credential for the selected LLM provider is mandatory.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case ProviderGemini:
		if strings.TrimSpace(c.Gemini.Key) == "" {
			return &ConfigurationError{Field: "gemini.key", Reason: "required when llm.provider is gemini (set LEADS_GEMINI_KEY)"}
		}
	case ProviderAnthropic:
		if strings.TrimSpace(c.Anthropic.Key) == "" {
			return &ConfigurationError{Field: "anthropic.key", Reason: "required when llm.provider is anthropic (set LEADS_ANTHROPIC_KEY)"}
		}
	default:
		return &ConfigurationError{Field: "llm.provider", Reason: fmt.Sprintf("unknown provider %q", c.LLM.Provider)}
	}

	switch c.Acquire.HTMLStrategy {
	case StrategyAuto, StrategyStatic, StrategyRendered:
	case StrategyRemote:
		if strings.TrimSpace(c.Jina.Key) == "" {
			return &ConfigurationError{Field: "jina.key", Reason: "required when acquire.html_strategy is remote"}
		}
	default:
		return &ConfigurationError{Field: "acquire.html_strategy", Reason: fmt.Sprintf("unknown strategy %q", c.Acquire.HTMLStrategy)}
	}

	if c.OCR.Provider == "mistral" && strings.TrimSpace(c.OCR.MistralKey) == "" {
		return &ConfigurationError{Field: "ocr.mistral_key", Reason: "required when ocr.provider is mistral"}
	}

	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
