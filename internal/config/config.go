// Package config holds the suite configuration, loaded from config.yaml,
// environment variables (WIDGETPROBE_ prefix) and CLI flags via viper.
package config

import (
	"fmt"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Config is the full configuration for one suite run.
type Config struct {
	Logger  LoggerConfig  `mapstructure:"logger" yaml:"logger"`
	Target  TargetConfig  `mapstructure:"target" yaml:"target"`
	Browser BrowserConfig `mapstructure:"browser" yaml:"browser"`
	Suite   SuiteConfig   `mapstructure:"suite" yaml:"suite"`
	Retry   RetryConfig   `mapstructure:"retry" yaml:"retry"`
	Report  ReportConfig  `mapstructure:"report" yaml:"report"`
}

// LoggerConfig configures the zap logger built in internal/observability.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// TargetConfig locates the page under test.
type TargetConfig struct {
	// BaseURL is the widget generator page, e.g. a staging deployment.
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
	// NavigationTimeout bounds every page navigation.
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	// PostLoadWait gives client-side rendering time to settle after load.
	PostLoadWait time.Duration `mapstructure:"post_load_wait" yaml:"post_load_wait"`
}

// BrowserProject is one named browser configuration the suite runs against.
type BrowserProject struct {
	Name     string `mapstructure:"name" yaml:"name"`
	Viewport string `mapstructure:"viewport" yaml:"viewport"`
}

// BrowserConfig holds settings for the headless browser instances.
type BrowserConfig struct {
	Headless   bool             `mapstructure:"headless" yaml:"headless"`
	ChromePath string           `mapstructure:"chrome_path" yaml:"chrome_path"`
	Debug      bool             `mapstructure:"debug" yaml:"debug"`
	Args       []string         `mapstructure:"args" yaml:"args"`
	Projects   []BrowserProject `mapstructure:"projects" yaml:"projects"`
}

// SuiteConfig tunes case selection and execution.
type SuiteConfig struct {
	// Categories filters which case categories run; empty means all.
	Categories []string `mapstructure:"categories" yaml:"categories"`
	// Concurrency bounds how many cases run at once.
	Concurrency int `mapstructure:"concurrency" yaml:"concurrency"`
	// NavigationsPerSecond throttles page loads against the target so the
	// suite does not hammer a shared staging environment.
	NavigationsPerSecond float64 `mapstructure:"navigations_per_second" yaml:"navigations_per_second"`
	// ArtifactsDir is the root directory screenshots are written under.
	ArtifactsDir string `mapstructure:"artifacts_dir" yaml:"artifacts_dir"`
	// CaseTimeout bounds a single case end to end.
	CaseTimeout time.Duration `mapstructure:"case_timeout" yaml:"case_timeout"`
}

// RetryConfig sets the defaults for retried flaky steps.
type RetryConfig struct {
	MaxAttempts        int           `mapstructure:"max_attempts" yaml:"max_attempts"`
	Delay              time.Duration `mapstructure:"delay" yaml:"delay"`
	ExponentialBackoff bool          `mapstructure:"exponential_backoff" yaml:"exponential_backoff"`
}

// ReportConfig names the report outputs.
type ReportConfig struct {
	JSONPath  string `mapstructure:"json_path" yaml:"json_path"`
	JUnitPath string `mapstructure:"junit_path" yaml:"junit_path"`
}

// SetDefaults initializes default values on a viper instance.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "widgetprobe")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 50)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.compress", true)

	// -- Target --
	v.SetDefault("target.base_url", "http://localhost:8080/widget")
	v.SetDefault("target.navigation_timeout", "90s")
	v.SetDefault("target.post_load_wait", "2s")

	// -- Browser --
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.debug", false)
	v.SetDefault("browser.projects", []map[string]any{
		{"name": "chromium-desktop", "viewport": "1920x1080"},
	})

	// -- Suite --
	v.SetDefault("suite.concurrency", 2)
	v.SetDefault("suite.navigations_per_second", 2.0)
	v.SetDefault("suite.artifacts_dir", "test-artifacts")
	v.SetDefault("suite.case_timeout", "5m")

	// -- Retry --
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.delay", "500ms")
	v.SetDefault("retry.exponential_backoff", true)

	// -- Report --
	v.SetDefault("report.json_path", "report.json")
	v.SetDefault("report.junit_path", "junit.xml")
}

// NewDefault returns a configuration populated with defaults only.
func NewDefault() *Config {
	v := viper.New()
	SetDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// Defaults always unmarshal; anything else is a programming error.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// NewFromViper unmarshals and validates a configuration from a viper object.
func NewFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// expandPaths resolves "~" in user-supplied paths.
func (c *Config) expandPaths() error {
	for _, p := range []*string{
		&c.Suite.ArtifactsDir, &c.Logger.LogFile, &c.Report.JSONPath, &c.Report.JUnitPath,
	} {
		if *p == "" {
			continue
		}
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return fmt.Errorf("failed to expand path %q: %w", *p, err)
		}
		*p = expanded
	}
	return nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.Target.BaseURL == "" {
		return fmt.Errorf("target.base_url is a required configuration field")
	}
	if c.Suite.Concurrency <= 0 {
		return fmt.Errorf("suite.concurrency must be a positive integer")
	}
	if c.Suite.NavigationsPerSecond <= 0 {
		return fmt.Errorf("suite.navigations_per_second must be positive")
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be at least 1")
	}
	if c.Retry.Delay < 0 {
		return fmt.Errorf("retry.delay must not be negative")
	}
	if len(c.Browser.Projects) == 0 {
		return fmt.Errorf("browser.projects must name at least one browser configuration")
	}
	for _, p := range c.Browser.Projects {
		if p.Name == "" || p.Viewport == "" {
			return fmt.Errorf("every browser project needs a name and a viewport")
		}
	}
	return nil
}
