package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the harness configuration
type Config struct {
	App      AppConfig      `toml:"app"`
	Browser  BrowserConfig  `toml:"browser"`
	Timeouts TimeoutsConfig `toml:"timeouts"`
	Poll     PollConfig     `toml:"poll"`
	API      APIConfig      `toml:"api"`
	Fixtures FixturesConfig `toml:"fixtures"`
	Logging  LoggingConfig  `toml:"logging"`
	Output   OutputConfig   `toml:"output"`
}

// AppConfig locates the application under test
type AppConfig struct {
	BaseURL  string `toml:"base_url" validate:"required,url"`
	ListPath string `toml:"list_path" validate:"required,startswith=/"`
	APIURL   string `toml:"api_url" validate:"omitempty,url"` // Empty means same origin as BaseURL
}

// BrowserConfig controls the chromedp allocator
type BrowserConfig struct {
	Headless     bool   `toml:"headless"`
	DisableGPU   bool   `toml:"disable_gpu"`
	NoSandbox    bool   `toml:"no_sandbox"`
	WindowWidth  int    `toml:"window_width" validate:"min=320"`
	WindowHeight int    `toml:"window_height" validate:"min=240"`
	ExecPath     string `toml:"exec_path"` // Chrome binary; empty lets chromedp search PATH
	UserAgent    string `toml:"user_agent"`
}

// TimeoutsConfig bounds every wait the harness performs
type TimeoutsConfig struct {
	Probe            Duration `toml:"probe" validate:"gt=0"`
	Locate           Duration `toml:"locate" validate:"gt=0"`
	Login            Duration `toml:"login" validate:"gt=0"`
	Save             Duration `toml:"save" validate:"gt=0"`
	Settle           Duration `toml:"settle" validate:"gt=0"`
	Grace            Duration `toml:"grace" validate:"gt=0"`
	Verify           Duration `toml:"verify" validate:"gt=0"`
	NetworkIdleQuiet Duration `toml:"network_idle_quiet" validate:"gt=0"`
	NetworkIdle      Duration `toml:"network_idle" validate:"gt=0"`
	Scenario         Duration `toml:"scenario" validate:"gt=0"`
}

// PollConfig shapes the backoff used by every condition wait
type PollConfig struct {
	InitialInterval Duration `toml:"initial_interval" validate:"gt=0"`
	MaxInterval     Duration `toml:"max_interval" validate:"gtefield=InitialInterval"`
	Multiplier      float64  `toml:"multiplier" validate:"gte=1"`
}

// APIConfig controls the contacts REST client
type APIConfig struct {
	RateLimit Duration `toml:"rate_limit"` // Minimum spacing between requests; 0 disables limiting
	Timeout   Duration `toml:"timeout" validate:"gt=0"`
}

// FixturesConfig points at the credential and contact fixture files (JSON or YAML)
type FixturesConfig struct {
	Login    string `toml:"login" validate:"required"`
	Contacts string `toml:"contacts" validate:"required"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string   `toml:"level" validate:"oneof=debug info warn error"`
	Output []string `toml:"output" validate:"dive,oneof=stdout console file"`
}

// OutputConfig controls where run artifacts are written
type OutputConfig struct {
	ResultsDir           string `toml:"results_dir" validate:"required"`
	ScreenshotsOnFailure bool   `toml:"screenshots_on_failure"`
}

// Duration is a time.Duration that reads "500ms" style strings from TOML
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalText implements encoding.TextMarshaler
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// D returns the value as a time.Duration
func (d Duration) D() time.Duration {
	return time.Duration(d)
}

// NewDefaultConfig creates a configuration with default values.
// Timeouts match the pacing of the public Contact List app.
func NewDefaultConfig() *Config {
	return &Config{
		App: AppConfig{
			BaseURL:  "http://localhost:8085",
			ListPath: "/",
		},
		Browser: BrowserConfig{
			Headless:     true,
			DisableGPU:   true,
			NoSandbox:    false,
			WindowWidth:  1280,
			WindowHeight: 900,
			UserAgent:    "",
		},
		Timeouts: TimeoutsConfig{
			Probe:            Duration(250 * time.Millisecond),
			Locate:           Duration(10 * time.Second),
			Login:            Duration(30 * time.Second),
			Save:             Duration(15 * time.Second),
			Settle:           Duration(10 * time.Second),
			Grace:            Duration(500 * time.Millisecond),
			Verify:           Duration(10 * time.Second),
			NetworkIdleQuiet: Duration(500 * time.Millisecond),
			NetworkIdle:      Duration(10 * time.Second),
			Scenario:         Duration(2 * time.Minute),
		},
		Poll: PollConfig{
			InitialInterval: Duration(50 * time.Millisecond),
			MaxInterval:     Duration(500 * time.Millisecond),
			Multiplier:      1.5,
		},
		API: APIConfig{
			RateLimit: Duration(200 * time.Millisecond),
			Timeout:   Duration(30 * time.Second),
		},
		Fixtures: FixturesConfig{
			Login:    "./fixtures/login.json",
			Contacts: "./fixtures/contacts.json",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout", "file"},
		},
		Output: OutputConfig{
			ResultsDir:           "./results",
			ScreenshotsOnFailure: true,
		},
	}
}

// LoadFromFiles loads configuration with priority: default -> file1 -> file2 -> ... -> env.
// Later files override earlier files. CLI flags are applied afterwards by the caller
// through ApplyFlagOverrides.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies CRUDCHECK_* environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("CRUDCHECK_BASE_URL"); v != "" {
		config.App.BaseURL = v
	}
	if v := os.Getenv("CRUDCHECK_LIST_PATH"); v != "" {
		config.App.ListPath = v
	}
	if v := os.Getenv("CRUDCHECK_API_URL"); v != "" {
		config.App.APIURL = v
	}

	if v := os.Getenv("CRUDCHECK_HEADLESS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			config.Browser.Headless = b
		}
	}
	if v := os.Getenv("CRUDCHECK_NO_SANDBOX"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			config.Browser.NoSandbox = b
		}
	}
	if v := os.Getenv("CRUDCHECK_CHROME_PATH"); v != "" {
		config.Browser.ExecPath = v
	}

	if v := os.Getenv("CRUDCHECK_SCENARIO_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			config.Timeouts.Scenario = Duration(d)
		}
	}

	if v := os.Getenv("CRUDCHECK_LOGIN_FIXTURES"); v != "" {
		config.Fixtures.Login = v
	}
	if v := os.Getenv("CRUDCHECK_CONTACT_FIXTURES"); v != "" {
		config.Fixtures.Contacts = v
	}

	if v := os.Getenv("CRUDCHECK_LOG_LEVEL"); v != "" {
		config.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("CRUDCHECK_LOG_OUTPUT"); v != "" {
		config.Logging.Output = strings.Split(v, ",")
	}

	if v := os.Getenv("CRUDCHECK_RESULTS_DIR"); v != "" {
		config.Output.ResultsDir = v
	}
}

// FlagOverrides carries command-line values; zero values leave config untouched
type FlagOverrides struct {
	BaseURL    string
	ResultsDir string
	LogLevel   string
	Headful    bool
}

// ApplyFlagOverrides applies command-line flag overrides to config
func ApplyFlagOverrides(config *Config, flags FlagOverrides) {
	if flags.BaseURL != "" {
		config.App.BaseURL = flags.BaseURL
	}
	if flags.ResultsDir != "" {
		config.Output.ResultsDir = flags.ResultsDir
	}
	if flags.LogLevel != "" {
		config.Logging.Level = flags.LogLevel
	}
	if flags.Headful {
		config.Browser.Headless = false
	}
}

// Validate checks the configuration with struct tags
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// ResolvedAPIURL returns the REST base URL, defaulting to the application origin
func (c *Config) ResolvedAPIURL() string {
	if c.App.APIURL != "" {
		return strings.TrimRight(c.App.APIURL, "/")
	}
	return strings.TrimRight(c.App.BaseURL, "/")
}

// ListURL returns the absolute URL of the contact list route
func (c *Config) ListURL() string {
	return strings.TrimRight(c.App.BaseURL, "/") + c.App.ListPath
}
