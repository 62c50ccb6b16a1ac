// Package config loads layered run configuration: built-in defaults, then an
// optional .copilot-agent.yaml, then COPILOT_AGENT_* environment variables.
// Command-line flags override on top in the cmd layer.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	configName = ".copilot-agent"
	envPrefix  = "COPILOT_AGENT"
)

type Config struct {
	Verbose  bool   `mapstructure:"verbose"`
	Language string `mapstructure:"language" validate:"omitempty,oneof=dotnet node python java go rust"`
	Workers  int    `mapstructure:"workers" validate:"min=1,max=128"`

	Logging LoggingConfig `mapstructure:"logging"`
	Scan    ScanConfig    `mapstructure:"scan"`
	Catalog CatalogConfig `mapstructure:"catalog"`
	Risk    RiskConfig    `mapstructure:"risk"`
	Rules   RulesConfig   `mapstructure:"rules"`
	LLM     LLMConfig     `mapstructure:"llm"`
	Output  OutputConfig  `mapstructure:"output"`
	History HistoryConfig `mapstructure:"history"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
}

type ScanConfig struct {
	ExcludeDirs   []string `mapstructure:"excludeDirs"`
	MaxFileKB     int      `mapstructure:"maxFileKb" validate:"min=1"`
	EvidenceCap   int      `mapstructure:"evidenceCap" validate:"min=1"`
	MatchBudgetMS int      `mapstructure:"matchBudgetMs" validate:"min=10"`
	Suppressions  string   `mapstructure:"suppressions"`
}

type CatalogConfig struct {
	// Dir holds user catalogs that extend or override the built-in ones.
	Dir string `mapstructure:"dir"`
}

type RiskConfig struct {
	Ceiling   float64       `mapstructure:"ceiling" validate:"gt=0"`
	Threshold float64       `mapstructure:"threshold" validate:"min=0,max=10"`
	FailOn    float64       `mapstructure:"failOn" validate:"min=0,max=10"`
	Weights   WeightsConfig `mapstructure:"weights"`
}

type WeightsConfig struct {
	Critical float64 `mapstructure:"critical" validate:"gt=0"`
	High     float64 `mapstructure:"high" validate:"gt=0"`
	Medium   float64 `mapstructure:"medium" validate:"gt=0"`
	Low      float64 `mapstructure:"low" validate:"gt=0"`
	Info     float64 `mapstructure:"info" validate:"gt=0"`
}

type RulesConfig struct {
	MaxRules int `mapstructure:"maxRules" validate:"min=0"`
}

type LLMConfig struct {
	Model          string  `mapstructure:"model" validate:"min=1"`
	BaseURL        string  `mapstructure:"baseUrl" validate:"url"`
	Temperature    float64 `mapstructure:"temperature" validate:"min=0,max=2"`
	MaxTokens      int     `mapstructure:"maxTokens" validate:"min=1"`
	TimeoutSeconds int     `mapstructure:"timeoutSeconds" validate:"min=5,max=600"`
	Skip           bool    `mapstructure:"skip"`
}

type OutputConfig struct {
	Dir              string `mapstructure:"dir" validate:"min=1"`
	InstructionsPath string `mapstructure:"instructionsPath" validate:"min=1"`
	ReportPath       string `mapstructure:"reportPath" validate:"min=1"`
	JSON             bool   `mapstructure:"json"`
	SARIF            bool   `mapstructure:"sarif"`
	Badge            bool   `mapstructure:"badge"`
}

type HistoryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Load builds the effective configuration. path selects an explicit config
// file; when empty, .copilot-agent.yaml is searched in the working directory
// and the home directory, and its absence is fine.
func Load(path string) (Config, error) {
	// A .env next to the working directory is a convenience for the LLM API
	// key; absence is the normal case.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName(configName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config %s: %w", v.ConfigFileUsed(), err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.applyFixups()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Default returns the built-in configuration, untouched by files or
// environment.
func Default() Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("default config unmarshal: %v", err))
	}
	cfg.applyFixups()
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("verbose", false)
	v.SetDefault("language", "")
	v.SetDefault("workers", 4)

	v.SetDefault("logging.level", "info")

	v.SetDefault("scan.excludeDirs", []string{})
	v.SetDefault("scan.maxFileKb", 2048)
	v.SetDefault("scan.evidenceCap", 10)
	v.SetDefault("scan.matchBudgetMs", 5000)
	v.SetDefault("scan.suppressions", ".copilot-suppress.yaml")

	v.SetDefault("catalog.dir", "")

	v.SetDefault("risk.ceiling", 15.0)
	v.SetDefault("risk.threshold", 5.0)
	v.SetDefault("risk.failOn", 0.0)
	v.SetDefault("risk.weights.critical", 3.0)
	v.SetDefault("risk.weights.high", 2.0)
	v.SetDefault("risk.weights.medium", 1.5)
	v.SetDefault("risk.weights.low", 1.0)
	v.SetDefault("risk.weights.info", 0.5)

	v.SetDefault("rules.maxRules", 0)

	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.baseUrl", "https://api.openai.com/v1")
	v.SetDefault("llm.temperature", 0.3)
	v.SetDefault("llm.maxTokens", 2000)
	v.SetDefault("llm.timeoutSeconds", 60)
	v.SetDefault("llm.skip", false)

	v.SetDefault("output.dir", ".copilot-agent")
	v.SetDefault("output.instructionsPath", filepath.Join(".github", "copilot-instructions.md"))
	v.SetDefault("output.reportPath", "analysis-report.md")
	v.SetDefault("output.json", true)
	v.SetDefault("output.sarif", false)
	v.SetDefault("output.badge", true)

	v.SetDefault("history.enabled", true)
	v.SetDefault("history.path", "")
}

// applyFixups fills derived values a config file may leave empty.
func (c *Config) applyFixups() {
	if c.History.Path == "" {
		c.History.Path = filepath.Join(c.Output.Dir, "history.db")
	}
}

// Validate checks field constraints and the cross-field weight ordering.
// All problems are reported at once, joined with "; ".
func (c Config) Validate() error {
	var issues []string

	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				issues = append(issues, describeFieldError(fe))
			}
		} else {
			return fmt.Errorf("validate config: %w", err)
		}
	}

	w := c.Risk.Weights
	if !(w.Critical > w.High && w.High > w.Medium && w.Medium > w.Low && w.Low > w.Info) {
		issues = append(issues, "risk.weights must decrease strictly from critical to info")
	}

	if len(issues) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(issues, "; "))
	}
	return nil
}

// describeFieldError renders one validator error as a config-key message,
// e.g. "risk.ceiling: failed gt=0".
func describeFieldError(fe validator.FieldError) string {
	key := strings.ToLower(strings.TrimPrefix(fe.Namespace(), "Config."))
	if fe.Param() != "" {
		return fmt.Sprintf("%s: failed %s=%s", key, fe.Tag(), fe.Param())
	}
	return fmt.Sprintf("%s: failed %s", key, fe.Tag())
}
