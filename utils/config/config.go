package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kris-hansen/versecraft/utils/fileutil"
	"github.com/spf13/viper"
)

// Plan routing modes
const (
	RoutingDiscard     = "discard"
	RoutingInstruction = "instruction"
)

// DefaultConfigName is the project-level config file looked up in the working directory
const DefaultConfigName = "versecraft.yaml"

// Config holds everything a run needs: models, personas, routing and credentials
type Config struct {
	Head           AgentConfig               `mapstructure:"head"`
	Stages         map[string]AgentConfig    `mapstructure:"stages"`
	PlanRouting    string                    `mapstructure:"plan_routing"`
	Parallel       bool                      `mapstructure:"parallel"`
	RequestTimeout time.Duration             `mapstructure:"request_timeout"`
	Retry          RetrySettings             `mapstructure:"retry"`
	Providers      map[string]ProviderConfig `mapstructure:"providers"`
}

// AgentConfig binds a persona name to a model
type AgentConfig struct {
	Name  string `mapstructure:"name"`
	Model string `mapstructure:"model"`
}

// RetrySettings controls backoff for retryable provider errors
type RetrySettings struct {
	MaxRetries  int           `mapstructure:"max_retries"`
	InitialWait time.Duration `mapstructure:"initial_wait"`
	MaxWait     time.Duration `mapstructure:"max_wait"`
}

// ProviderConfig holds credentials and endpoint for one backend
type ProviderConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

// providerEnvKeys maps provider names to the environment variable holding their key
var providerEnvKeys = map[string]string{
	"deepseek":  "DEEPSEEK_API_KEY",
	"ark":       "ARK_API_KEY",
	"anthropic": "ANTHROPIC_API_KEY",
}

// Load reads configuration with the following precedence (highest first):
//  1. Environment variables (DEEPSEEK_API_KEY, ARK_API_KEY, ANTHROPIC_API_KEY)
//  2. .env in the working directory (only for variables not already set)
//  3. The explicit config path, or versecraft.yaml in the working directory,
//     or ~/.versecraft/config.yaml
//  4. Built-in defaults
func Load(path string) (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)

	configPath, err := resolveConfigPath(path)
	if err != nil {
		return nil, err
	}
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config from %s: %w", configPath, err)
		}
		DebugLog("[Config] Loaded %s", configPath)
	}

	for provider, env := range providerEnvKeys {
		if err := v.BindEnv("providers."+provider+".api_key", env); err != nil {
			return nil, fmt.Errorf("binding %s: %w", env, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	for name, p := range cfg.Providers {
		p.APIKey = os.ExpandEnv(p.APIKey)
		cfg.Providers[name] = p
	}

	if err := cfg.Check(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Check validates values that do not depend on the network
func (c *Config) Check() error {
	switch c.PlanRouting {
	case RoutingDiscard, RoutingInstruction:
	default:
		return fmt.Errorf("invalid plan_routing %q: must be %q or %q", c.PlanRouting, RoutingDiscard, RoutingInstruction)
	}
	if c.Head.Model == "" {
		return fmt.Errorf("head.model is required")
	}
	for stage, a := range c.Stages {
		if a.Model == "" {
			return fmt.Errorf("stages.%s.model is required", stage)
		}
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("request_timeout must not be negative")
	}
	return nil
}

// APIKey returns the configured key for a provider, or "" if none
func (c *Config) APIKey(provider string) string {
	return c.Providers[provider].APIKey
}

// BaseURL returns the configured base URL override for a provider, or ""
func (c *Config) BaseURL(provider string) string {
	return c.Providers[provider].BaseURL
}

// Stage returns the agent config for a stage name
func (c *Config) Stage(name string) AgentConfig {
	return c.Stages[name]
}

// EnvKeyFor returns the environment variable that supplies a provider's key
func EnvKeyFor(provider string) string {
	return providerEnvKeys[provider]
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("head.name", "DeepSeek 首脑AI")
	v.SetDefault("head.model", "deepseek-reasoner")

	v.SetDefault("stages.search.name", "AI1_搜索")
	v.SetDefault("stages.search.model", "deepseek-chat")
	v.SetDefault("stages.poem.name", "AI2_整合诗句")
	v.SetDefault("stages.poem.model", "deepseek-chat")
	v.SetDefault("stages.image.name", "AI3_图片生成提示")
	v.SetDefault("stages.image.model", "deepseek-chat")
	v.SetDefault("stages.translate.name", "AI4_翻译")
	v.SetDefault("stages.translate.model", "deepseek-chat")

	v.SetDefault("plan_routing", RoutingDiscard)
	v.SetDefault("parallel", false)
	v.SetDefault("request_timeout", "0s")

	v.SetDefault("retry.max_retries", 3)
	v.SetDefault("retry.initial_wait", "1s")
	v.SetDefault("retry.max_wait", "30s")

	v.SetDefault("providers.deepseek.base_url", "https://api.deepseek.com/v1")
	v.SetDefault("providers.ark.base_url", "https://ark.cn-beijing.volces.com/api/v3")
	v.SetDefault("providers.anthropic.base_url", "")
}

// resolveConfigPath returns the explicit path if given, otherwise the first
// existing default location, otherwise "" (defaults only)
func resolveConfigPath(path string) (string, error) {
	if path != "" {
		expanded, err := fileutil.ExpandPath(path)
		if err != nil {
			return "", fmt.Errorf("expanding config path %s: %w", path, err)
		}
		return expanded, nil
	}

	candidates := []string{DefaultConfigName}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".versecraft", "config.yaml"))
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c, nil
		}
	}
	return "", nil
}

// loadDotEnv copies variables from a .env file into the process environment
// without overriding anything already set
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	for _, key := range v.AllKeys() {
		name := strings.ToUpper(key)
		if _, ok := os.LookupEnv(name); ok {
			continue
		}
		if err := os.Setenv(name, v.GetString(key)); err != nil {
			return fmt.Errorf("setting %s from %s: %w", name, path, err)
		}
	}
	DebugLog("[Config] Loaded environment from %s", path)
	return nil
}
