package config

import (
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ftsl575/jarvis.hpe-v1.0.0/internal/store"
)

// Config holds the full application configuration.
type Config struct {
	Fetch      FetchConfig      `yaml:"fetch" mapstructure:"fetch"`
	PartSurfer PartSurferConfig `yaml:"partsurfer" mapstructure:"partsurfer"`
	Buy        BuyConfig        `yaml:"buy" mapstructure:"buy"`
	Batch      BatchConfig      `yaml:"batch" mapstructure:"batch"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Store      store.Config     `yaml:"store" mapstructure:"store"`
	Policy     PolicyConfig     `yaml:"policy" mapstructure:"policy"`
	LLM        LLMConfig        `yaml:"llm" mapstructure:"llm"`
	NATS       NATSConfig       `yaml:"nats" mapstructure:"nats"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`

	// Invalid lists the values Load replaced with defaults, sorted by key.
	Invalid []InvalidValue `yaml:"-" mapstructure:"-"`
}

// InvalidValue is a configured value that could not be parsed.
type InvalidValue struct {
	Key   string
	Value string
}

// FetchConfig configures the HTTP fetchers shared by every catalog provider.
type FetchConfig struct {
	Live                bool    `yaml:"live" mapstructure:"live"`
	TimeoutMS           int     `yaml:"timeout_ms" mapstructure:"timeout_ms"`
	Retries             int     `yaml:"retries" mapstructure:"retries"`
	ThrottleRPS         float64 `yaml:"throttle_rps" mapstructure:"throttle_rps"`
	UserAgent           string  `yaml:"user_agent" mapstructure:"user_agent"`
	ProxyURL            string  `yaml:"proxy_url" mapstructure:"proxy_url"`
	BackoffBaseMS       int     `yaml:"backoff_base_ms" mapstructure:"backoff_base_ms"`
	JitterMinMS         int     `yaml:"jitter_min_ms" mapstructure:"jitter_min_ms"`
	JitterMaxMS         int     `yaml:"jitter_max_ms" mapstructure:"jitter_max_ms"`
	BreakerThreshold    int     `yaml:"breaker_threshold" mapstructure:"breaker_threshold"`
	BreakerCooldownSecs int     `yaml:"breaker_cooldown_secs" mapstructure:"breaker_cooldown_secs"`
}

// PartSurferConfig configures the Search.aspx and ShowPhoto.aspx providers.
type PartSurferConfig struct {
	BaseURL  string `yaml:"base_url" mapstructure:"base_url"`
	RotateUA bool   `yaml:"rotate_ua" mapstructure:"rotate_ua"`
}

// BuyConfig configures the buy.hpe.com provider.
type BuyConfig struct {
	Enabled   bool   `yaml:"enabled" mapstructure:"enabled"`
	BaseURL   string `yaml:"base_url" mapstructure:"base_url"`
	Locale    string `yaml:"locale" mapstructure:"locale"`
	PaceMinMS int    `yaml:"pace_min_ms" mapstructure:"pace_min_ms"`
	PaceMaxMS int    `yaml:"pace_max_ms" mapstructure:"pace_max_ms"`
}

// BatchConfig configures batch resolution.
type BatchConfig struct {
	Concurrency int    `yaml:"concurrency" mapstructure:"concurrency"`
	LogDir      string `yaml:"log_dir" mapstructure:"log_dir"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// PolicyConfig points at the denylist / photo-only policy file.
type PolicyConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// LLMConfig configures the arbiter oracles. An oracle without a key is off.
type LLMConfig struct {
	OpenAI    ChatConfig      `yaml:"openai" mapstructure:"openai"`
	DeepSeek  ChatConfig      `yaml:"deepseek" mapstructure:"deepseek"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
}

// ChatConfig configures one chat-completions endpoint.
type ChatConfig struct {
	APIKey  string `yaml:"api_key" mapstructure:"api_key"`
	Model   string `yaml:"model" mapstructure:"model"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// AnthropicConfig configures the Claude oracle.
type AnthropicConfig struct {
	APIKey string `yaml:"api_key" mapstructure:"api_key"`
	Model  string `yaml:"model" mapstructure:"model"`
}

// NATSConfig configures row publication. Empty URL disables it.
type NATSConfig struct {
	URL     string `yaml:"url" mapstructure:"url"`
	Subject string `yaml:"subject" mapstructure:"subject"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
	File   string `yaml:"file" mapstructure:"file"`
}

// legacyEnv maps config keys to the unprefixed variables older deployments
// set. The prefixed name is always bound first.
var legacyEnv = map[string]string{
	"fetch.live":            "LIVE_MODE",
	"fetch.timeout_ms":      "TIMEOUT_MS",
	"fetch.retries":         "RETRIES",
	"fetch.throttle_rps":    "THROTTLE_RPS",
	"fetch.user_agent":      "USER_AGENT",
	"fetch.proxy_url":       "HPE_PROXY_URL",
	"log.level":             "LOG_LEVEL",
	"log.file":              "LOG_FILE",
	"llm.openai.api_key":    "OPENAI_API_KEY",
	"llm.openai.model":      "OPENAI_MODEL",
	"llm.openai.base_url":   "OPENAI_API_BASE_URL",
	"llm.deepseek.api_key":  "DEEPSEEK_API_KEY",
	"llm.deepseek.model":    "DEEPSEEK_MODEL",
	"llm.deepseek.base_url": "DEEPSEEK_API_BASE_URL",
	"llm.anthropic.api_key": "ANTHROPIC_API_KEY",
}

var defaults = map[string]any{
	"fetch.live":                  false,
	"fetch.timeout_ms":            10000,
	"fetch.retries":               2,
	"fetch.throttle_rps":          0.0,
	"fetch.user_agent":            "",
	"fetch.proxy_url":             "",
	"fetch.backoff_base_ms":       500,
	"fetch.jitter_min_ms":         100,
	"fetch.jitter_max_ms":         500,
	"fetch.breaker_threshold":     5,
	"fetch.breaker_cooldown_secs": 60,

	"partsurfer.base_url":  "https://partsurfer.hpe.com",
	"partsurfer.rotate_ua": true,

	"buy.enabled":     true,
	"buy.base_url":    "https://buy.hpe.com",
	"buy.locale":      "us/en",
	"buy.pace_min_ms": 2000,
	"buy.pace_max_ms": 4000,

	"batch.concurrency": 3,
	"batch.log_dir":     "logs",

	"server.port":         8080,
	"server.cors_origins": []string{"*"},

	"store.driver":         "sqlite",
	"store.dsn":            "",
	"store.ttl":            "24h",
	"store.pool.max_conns": 5,
	"store.pool.min_conns": 1,

	"policy.path": "policy.yaml",

	"llm.openai.api_key":    "",
	"llm.openai.model":      "gpt-4o-mini",
	"llm.openai.base_url":   "https://api.openai.com/v1",
	"llm.deepseek.api_key":  "",
	"llm.deepseek.model":    "deepseek-chat",
	"llm.deepseek.base_url": "https://api.deepseek.com/v1",
	"llm.anthropic.api_key": "",
	"llm.anthropic.model":   "claude-haiku-4-5-20251001",

	"nats.url":     "",
	"nats.subject": "partsurfer.rows",

	"log.level":  "info",
	"log.format": "json",
	"log.file":   "",
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("PARTSURFER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range legacyEnv {
		prefixed := "PARTSURFER_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, env); err != nil {
			return nil, eris.Wrapf(err, "config: bind %s", env)
		}
	}

	for key, val := range defaults {
		v.SetDefault(key, val)
	}

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	invalid := coerce(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}
	cfg.Invalid = invalid
	cfg.Sanitize()

	return &cfg, nil
}

// coerce replaces unparseable scalar values with their defaults so a typo in
// an environment variable degrades to the default instead of failing startup.
// It runs before the logger exists, so the replaced values are returned.
func coerce(v *viper.Viper) []InvalidValue {
	var invalid []InvalidValue
	for key, def := range defaults {
		raw := strings.TrimSpace(v.GetString(key))
		var ok bool
		switch def.(type) {
		case int:
			_, err := strconv.Atoi(raw)
			ok = err == nil
		case float64:
			_, err := strconv.ParseFloat(raw, 64)
			ok = err == nil
		case bool:
			var b bool
			b, ok = parseBool(raw)
			if ok {
				v.Set(key, b)
			}
		default:
			ok = true
		}
		if !ok {
			invalid = append(invalid, InvalidValue{Key: key, Value: raw})
			v.Set(key, def)
		}
	}
	slices.SortFunc(invalid, func(a, b InvalidValue) int { return strings.Compare(a.Key, b.Key) })
	return invalid
}

// WarnInvalid logs every value Load replaced with its default.
func (c *Config) WarnInvalid(log *zap.Logger) {
	for _, iv := range c.Invalid {
		log.Warn("config: invalid value, using default",
			zap.String("key", iv.Key), zap.String("value", iv.Value))
	}
}

func parseBool(s string) (bool, bool) {
	switch strings.ToLower(s) {
	case "1", "true", "yes", "on":
		return true, true
	case "0", "false", "no", "off", "":
		return false, true
	}
	return false, false
}

// Sanitize restores defaults for out-of-range values.
func (c *Config) Sanitize() {
	if c.Fetch.TimeoutMS <= 0 {
		c.Fetch.TimeoutMS = defaults["fetch.timeout_ms"].(int)
	}
	if c.Fetch.Retries < 0 {
		c.Fetch.Retries = defaults["fetch.retries"].(int)
	}
	if c.Fetch.ThrottleRPS < 0 {
		c.Fetch.ThrottleRPS = defaults["fetch.throttle_rps"].(float64)
	}
	if c.Fetch.BackoffBaseMS <= 0 {
		c.Fetch.BackoffBaseMS = defaults["fetch.backoff_base_ms"].(int)
	}
	if c.Fetch.JitterMinMS < 0 {
		c.Fetch.JitterMinMS = defaults["fetch.jitter_min_ms"].(int)
	}
	if c.Fetch.JitterMaxMS < c.Fetch.JitterMinMS {
		c.Fetch.JitterMaxMS = c.Fetch.JitterMinMS
	}
	if c.Buy.PaceMinMS < 0 {
		c.Buy.PaceMinMS = defaults["buy.pace_min_ms"].(int)
	}
	if c.Buy.PaceMaxMS < c.Buy.PaceMinMS {
		c.Buy.PaceMaxMS = c.Buy.PaceMinMS
	}
	if c.Batch.Concurrency < 1 {
		c.Batch.Concurrency = defaults["batch.concurrency"].(int)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		c.Server.Port = defaults["server.port"].(int)
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		c.Log.Level = "info"
	}
}

// Validate checks the settings a command cannot run without.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "resolve", "aggregate", "part":
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, "server.port must be between 1 and 65535")
		}
	case "migrate", "store":
		if c.Store.DSN == "" {
			errs = append(errs, "store.dsn is required")
		}
	case "verify":
		if !c.LLM.Enabled() {
			errs = append(errs, "at least one of llm.openai.api_key, llm.deepseek.api_key, llm.anthropic.api_key is required")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Enabled reports whether any oracle has a key.
func (l LLMConfig) Enabled() bool {
	return l.OpenAI.APIKey != "" || l.DeepSeek.APIKey != "" || l.Anthropic.APIKey != ""
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

	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			return eris.Wrapf(err, "config: create log dir for %s", cfg.File)
		}
		zapCfg.OutputPaths = append(zapCfg.OutputPaths, cfg.File)
	}

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
