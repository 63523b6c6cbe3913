package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// AppName is used for XDG directory lookups and the env var prefix.
const AppName = "tmscraper"

// Config holds all configuration options for the trademark image crawler
type Config struct {
	// Search API endpoint and request headers
	API APIConfig `yaml:"api" json:"api"`

	// Axes of the query space
	Query QueryConfig `yaml:"query" json:"query"`

	// Output settings
	Output OutputConfig `yaml:"output" json:"output"`

	// Download settings
	Download DownloadConfig `yaml:"download" json:"download"`

	// Crawl loop settings
	Crawl CrawlConfig `yaml:"crawl" json:"crawl"`

	// Identity rotation
	Identity IdentityConfig `yaml:"identity" json:"identity"`

	// Rate limiting configuration
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// APIConfig holds search API configuration
type APIConfig struct {
	Endpoint       string        `yaml:"endpoint" json:"endpoint"`
	UserAgent      string        `yaml:"user_agent" json:"user_agent"`
	Origin         string        `yaml:"origin" json:"origin"`
	Referer        string        `yaml:"referer" json:"referer"`
	PageSize       int           `yaml:"page_size" json:"page_size"`
	RequestTimeout time.Duration `yaml:"request_timeout" json:"request_timeout"`
}

// QueryConfig holds the fixed axes the query space is enumerated from.
// Changing any of these invalidates a persisted cursor.
type QueryConfig struct {
	Statuses    []string `yaml:"statuses" json:"statuses"`
	NiceClasses []int    `yaml:"nice_classes" json:"nice_classes"`
	Types       []string `yaml:"types" json:"types"`
	Offices     []string `yaml:"offices" json:"offices"`
	Criteria    string   `yaml:"criteria" json:"criteria"`
	Fields      []string `yaml:"fields" json:"fields"`
}

// OutputConfig holds output directory configuration
type OutputConfig struct {
	BaseDirectory  string `yaml:"base_directory" json:"base_directory"`
	StateDirectory string `yaml:"state_directory" json:"state_directory"`
	SaveMetadata   bool   `yaml:"save_metadata" json:"save_metadata"`
}

// DownloadConfig holds download-specific configuration
type DownloadConfig struct {
	ConcurrentDownloads int           `yaml:"concurrent_downloads" json:"concurrent_downloads"`
	DownloadTimeout     time.Duration `yaml:"download_timeout" json:"download_timeout"`
	RetryAttempts       int           `yaml:"retry_attempts" json:"retry_attempts"`
}

// CrawlConfig holds the driver's page and retry policy
type CrawlConfig struct {
	// MaxPages is the per-query page ceiling (0 means no ceiling)
	MaxPages int `yaml:"max_pages" json:"max_pages"`
	// RetryDelay is the fixed pause after a successful identity rotation
	RetryDelay time.Duration `yaml:"retry_delay" json:"retry_delay"`
	// MaxFetchAttempts caps transient retries of one page (0 means unlimited)
	MaxFetchAttempts int `yaml:"max_fetch_attempts" json:"max_fetch_attempts"`
	// RestartDelay is the pause before the supervisor restarts a failed crawl
	RestartDelay time.Duration `yaml:"restart_delay" json:"restart_delay"`
}

// IdentityConfig selects and configures the identity rotation provider
type IdentityConfig struct {
	// Provider is one of "none", "nordvpn", "tor"
	Provider  string    `yaml:"provider" json:"provider"`
	Countries []string  `yaml:"countries" json:"countries"`
	Tor       TorConfig `yaml:"tor" json:"tor"`
}

// TorConfig holds Tor connectivity settings
type TorConfig struct {
	Embedded        bool          `yaml:"embedded" json:"embedded"`
	ProxyAddress    string        `yaml:"proxy_address" json:"proxy_address"`
	ControlAddress  string        `yaml:"control_address" json:"control_address"`
	ControlPassword string        `yaml:"control_password" json:"control_password"`
	CookieFile      string        `yaml:"cookie_file" json:"cookie_file"`
	StartupTimeout  time.Duration `yaml:"startup_timeout" json:"startup_timeout"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	// RequestsPerMinute limits search API page requests (0 disables)
	RequestsPerMinute int `yaml:"requests_per_minute" json:"requests_per_minute"`
	// DownloadsPerSecond limits image fetches across all workers (0 disables)
	DownloadsPerSecond int `yaml:"downloads_per_second" json:"downloads_per_second"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
	File   string `yaml:"file" json:"file"`
}

// DefaultNiceClasses returns Nice classes 1 through 45.
func DefaultNiceClasses() []int {
	classes := make([]int, 0, 45)
	for c := 1; c <= 45; c++ {
		classes = append(classes, c)
	}
	return classes
}

// DefaultCountries is the NordVPN country rotation list.
var DefaultCountries = []string{
	"Pakistan", "India", "Sri Lanka", "Bangladesh", "Nepal", "Malaysia", "Singapore",
	"Thailand", "Indonesia", "Hong Kong", "Taiwan", "Philippines", "Vietnam",
	"Kazakhstan", "Uzbekistan", "United Arab Emirates", "Oman", "Saudi Arabia",
	"Qatar", "Bahrain", "Kuwait", "Turkey", "Israel", "Jordan", "Azerbaijan",
	"Georgia", "Armenia", "Russia", "Ukraine", "Cyprus", "Greece", "Bulgaria",
	"Romania", "Hungary", "Slovakia", "Czech Republic", "Poland", "Germany",
	"Netherlands", "Belgium", "Austria", "Switzerland", "France", "Italy",
	"Spain", "Portugal", "United Kingdom", "Ireland", "Iceland", "Norway",
	"Sweden", "Finland", "Denmark", "Latvia", "Lithuania", "Estonia",
	"Bosnia and Herzegovina", "Serbia", "Montenegro", "North Macedonia",
	"Albania", "Kosovo", "Croatia", "Slovenia", "Malta", "Luxembourg",
	"Monaco", "Andorra", "San Marino", "Liechtenstein", "United States",
	"Canada", "Mexico", "Brazil", "Argentina", "Chile", "Colombia",
	"Uruguay", "Paraguay", "Peru", "Bolivia", "Venezuela", "Panama",
	"Costa Rica", "Guatemala", "El Salvador", "Honduras", "Nicaragua",
	"Cuba", "Dominican Republic", "Jamaica", "Bahamas", "Bermuda",
	"Trinidad and Tobago", "Barbados", "Saint Lucia", "Saint Vincent and the Grenadines",
	"Grenada", "Antigua and Barbuda", "Dominica", "Saint Kitts and Nevis",
	"Australia", "New Zealand", "Papua New Guinea", "Fiji", "Solomon Islands",
	"Vanuatu", "Samoa", "Tonga", "Kiribati", "Marshall Islands", "Palau",
	"Micronesia", "Nauru", "Tuvalu",
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			Endpoint:       "https://www.tmdn.org/tmview/api/search/results",
			UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
			Origin:         "https://www.tmdn.org",
			Referer:        "https://www.tmdn.org/tmview/",
			PageSize:       100,
			RequestTimeout: 60 * time.Second,
		},
		Query: QueryConfig{
			Statuses:    []string{"Filed", "Registered"},
			NiceClasses: DefaultNiceClasses(),
			Types:       []string{"3-D", "Colour", "Combined", "Figurative", "Other", "Position", "Word"},
			Offices:     []string{"US"},
			Criteria:    "W",
			Fields: []string{
				"ST13", "markImageURI", "tmName", "tmOffice", "applicationNumber",
				"applicationDate", "tradeMarkStatus", "niceClass",
			},
		},
		Output: OutputConfig{
			BaseDirectory:  "./downloaded_images",
			StateDirectory: "",
			SaveMetadata:   false,
		},
		Download: DownloadConfig{
			ConcurrentDownloads: 100,
			DownloadTimeout:     30 * time.Second,
			RetryAttempts:       1,
		},
		Crawl: CrawlConfig{
			MaxPages:         100000,
			RetryDelay:       10 * time.Second,
			MaxFetchAttempts: 0,
			RestartDelay:     5 * time.Second,
		},
		Identity: IdentityConfig{
			Provider:  "none",
			Countries: append([]string(nil), DefaultCountries...),
			Tor: TorConfig{
				Embedded:       false,
				ProxyAddress:   "127.0.0.1:9050",
				ControlAddress: "127.0.0.1:9051",
				StartupTimeout: 3 * time.Minute,
			},
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute:  0,
			DownloadsPerSecond: 0,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			File:   "",
		},
	}
}

// StateDir returns the directory holding the cursor and the index.
// It defaults to the output directory so the index always travels with the images.
func (c *Config) StateDir() string {
	if c.Output.StateDirectory != "" {
		return c.Output.StateDirectory
	}
	return c.Output.BaseDirectory
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	if endpoint := os.Getenv("TMSCRAPER_API_ENDPOINT"); endpoint != "" {
		c.API.Endpoint = endpoint
	}
	if userAgent := os.Getenv("TMSCRAPER_USER_AGENT"); userAgent != "" {
		c.API.UserAgent = userAgent
	}
	if outputDir := os.Getenv("TMSCRAPER_OUTPUT_DIR"); outputDir != "" {
		c.Output.BaseDirectory = outputDir
	}
	if stateDir := os.Getenv("TMSCRAPER_STATE_DIR"); stateDir != "" {
		c.Output.StateDirectory = stateDir
	}
	if v := os.Getenv("TMSCRAPER_CONCURRENT_DOWNLOADS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("TMSCRAPER_CONCURRENT_DOWNLOADS: %w", err))
		} else {
			c.Download.ConcurrentDownloads = n
		}
	}
	if v := os.Getenv("TMSCRAPER_MAX_PAGES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("TMSCRAPER_MAX_PAGES: %w", err))
		} else {
			c.Crawl.MaxPages = n
		}
	}
	if v := os.Getenv("TMSCRAPER_RETRY_DELAY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("TMSCRAPER_RETRY_DELAY: %w", err))
		} else {
			c.Crawl.RetryDelay = d
		}
	}
	if v := os.Getenv("TMSCRAPER_REQUESTS_PER_MINUTE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("TMSCRAPER_REQUESTS_PER_MINUTE: %w", err))
		} else {
			c.RateLimit.RequestsPerMinute = n
		}
	}
	if provider := os.Getenv("TMSCRAPER_IDENTITY"); provider != "" {
		c.Identity.Provider = strings.ToLower(provider)
	}
	if addr := os.Getenv("TMSCRAPER_TOR_PROXY"); addr != "" {
		c.Identity.Tor.ProxyAddress = addr
	}
	if addr := os.Getenv("TMSCRAPER_TOR_CONTROL"); addr != "" {
		c.Identity.Tor.ControlAddress = addr
	}
	if password := os.Getenv("TMSCRAPER_TOR_PASSWORD"); password != "" {
		c.Identity.Tor.ControlPassword = password
	}
	if v := os.Getenv("TMSCRAPER_SAVE_METADATA"); v != "" {
		c.Output.SaveMetadata = strings.ToLower(v) == "true"
	}
	if logLevel := os.Getenv("TMSCRAPER_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}
	if logFormat := os.Getenv("TMSCRAPER_LOG_FORMAT"); logFormat != "" {
		c.Logging.Format = logFormat
	}

	return errors.Join(errs...)
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = FindConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// FindConfigFile searches for a config file in the standard locations
func FindConfigFile() string {
	locations := []string{
		AppName + ".yaml",
		AppName + ".yml",
		"." + AppName + ".yaml",
		"." + AppName + ".yml",
		filepath.Join(xdg.ConfigHome, AppName, "config.yaml"),
		filepath.Join(xdg.ConfigHome, AppName, "config.yml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.API.Endpoint == "" {
		errs = append(errs, errors.New("api endpoint is required"))
	}
	if c.API.PageSize <= 0 {
		errs = append(errs, errors.New("page size must be positive"))
	}
	if c.API.RequestTimeout <= 0 {
		errs = append(errs, errors.New("request timeout must be positive"))
	}

	if len(c.Query.Statuses) == 0 || len(c.Query.NiceClasses) == 0 || len(c.Query.Types) == 0 {
		errs = append(errs, errors.New("query statuses, nice classes and types must not be empty"))
	}
	for _, class := range c.Query.NiceClasses {
		if class < 1 || class > 45 {
			errs = append(errs, fmt.Errorf("nice class %d out of range 1-45", class))
		}
	}

	if c.Output.BaseDirectory == "" {
		errs = append(errs, errors.New("output directory is required"))
	}

	if c.Download.ConcurrentDownloads <= 0 {
		errs = append(errs, errors.New("concurrent downloads must be positive"))
	}
	if c.Download.ConcurrentDownloads > 256 {
		errs = append(errs, errors.New("concurrent downloads should not exceed 256"))
	}
	if c.Download.DownloadTimeout <= 0 {
		errs = append(errs, errors.New("download timeout must be positive"))
	}
	if c.Download.RetryAttempts < 1 {
		errs = append(errs, errors.New("download retry attempts must be at least 1"))
	}

	if c.Crawl.MaxPages < 0 {
		errs = append(errs, errors.New("max pages cannot be negative"))
	}
	if c.Crawl.RetryDelay < 0 {
		errs = append(errs, errors.New("retry delay cannot be negative"))
	}
	if c.Crawl.MaxFetchAttempts < 0 {
		errs = append(errs, errors.New("max fetch attempts cannot be negative"))
	}

	switch strings.ToLower(c.Identity.Provider) {
	case "none", "nordvpn":
	case "tor":
		if !c.Identity.Tor.Embedded && c.Identity.Tor.ProxyAddress == "" {
			errs = append(errs, errors.New("tor proxy address is required"))
		}
		if !c.Identity.Tor.Embedded && c.Identity.Tor.ControlAddress == "" {
			errs = append(errs, errors.New("tor control address is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid identity provider %q", c.Identity.Provider))
	}

	if c.RateLimit.RequestsPerMinute < 0 || c.RateLimit.DownloadsPerSecond < 0 {
		errs = append(errs, errors.New("rate limits cannot be negative"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}
	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, errors.New("invalid log format"))
	}

	return errors.Join(errs...)
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if outputDir, ok := flags["output"].(string); ok && outputDir != "" {
		c.Output.BaseDirectory = outputDir
	}
	if stateDir, ok := flags["state-dir"].(string); ok && stateDir != "" {
		c.Output.StateDirectory = stateDir
	}
	if concurrent, ok := flags["concurrent"].(int); ok && concurrent > 0 {
		c.Download.ConcurrentDownloads = concurrent
	}
	if maxPages, ok := flags["max-pages"].(int); ok && maxPages > 0 {
		c.Crawl.MaxPages = maxPages
	}
	if provider, ok := flags["identity"].(string); ok && provider != "" {
		c.Identity.Provider = strings.ToLower(provider)
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// .env files are optional
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(xdg.ConfigHome, AppName, ".env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
