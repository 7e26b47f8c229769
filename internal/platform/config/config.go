package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

var (
	errInvalidPort           = errors.New("config: invalid port number")
	errConcurrencyOutOfRange = errors.New("config: FETCH_CONCURRENCY must be 1-100")
	errThresholdOutOfRange   = errors.New("config: CONTENT_THRESHOLD must be 1-100000")
	errInvalidServiceURL     = errors.New("config: DETECTOR_URL must be an absolute http(s) URL")
	errNegativeDuration      = errors.New("config: durations and rate limits must be positive")
	errNoPredefinedURLs      = errors.New("config: predefined file lists no urls")
)

// DefaultPredefinedURLs are the login pages checked by the batch flow when
// no PREDEFINED_FILE is configured.
var DefaultPredefinedURLs = []string{
	"https://github.com/login",
	"https://stackoverflow.com/users/login",
	"https://www.linkedin.com/login",
	"https://www.quora.com/login",
	"https://www.dropbox.com/login",
}

// Config holds all application configuration loaded from environment variables.
// Each binary reads the subset it needs.
type Config struct {
	Port         string
	DetectorPort string
	LogLevel     string

	ServiceURL       string
	ContentThreshold int
	RequestTimeout   time.Duration
	ViewTTL          time.Duration

	FetchConcurrency    int
	FetchRateLimit      int
	BrowserFetch        bool
	BrowserURL          string
	AllowPrivateTargets bool
	PredefinedFile      string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (Config, error) {
	cfg := Config{
		Port:         getEnv("PORT", "8080"),
		DetectorPort: getEnv("DETECTOR_PORT", "8000"),
		LogLevel:     getEnv("LOG_LEVEL", "ERROR"),

		ServiceURL:       getEnv("DETECTOR_URL", "http://localhost:8000"),
		ContentThreshold: getEnvAsInt("CONTENT_THRESHOLD", 500),
		RequestTimeout:   time.Duration(getEnvAsInt("REQUEST_TIMEOUT", 120)) * time.Second,
		ViewTTL:          time.Duration(getEnvAsInt("VIEW_TTL", 30)) * time.Minute,

		FetchConcurrency:    getEnvAsInt("FETCH_CONCURRENCY", 5),
		FetchRateLimit:      getEnvAsInt("FETCH_RATE_LIMIT", 0),
		BrowserFetch:        getEnvAsBool("BROWSER_FETCH", false),
		BrowserURL:          getEnv("BROWSER_URL", ""),
		AllowPrivateTargets: getEnvAsBool("ALLOW_PRIVATE_TARGETS", false),
		PredefinedFile:      getEnv("PREDEFINED_FILE", ""),
	}

	return cfg, cfg.validate()
}

func (c Config) validate() error {
	for _, p := range []string{c.Port, c.DetectorPort} {
		port, err := strconv.Atoi(p)
		if err != nil || port < 1 || port > 65535 {
			return fmt.Errorf("%w: %q", errInvalidPort, p)
		}
	}

	if c.FetchConcurrency < 1 || c.FetchConcurrency > 100 {
		return fmt.Errorf("%w: got %d", errConcurrencyOutOfRange, c.FetchConcurrency)
	}

	if c.ContentThreshold < 1 || c.ContentThreshold > 100000 {
		return fmt.Errorf("%w: got %d", errThresholdOutOfRange, c.ContentThreshold)
	}

	u, err := url.Parse(c.ServiceURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", errInvalidServiceURL, c.ServiceURL)
	}

	if c.RequestTimeout <= 0 || c.ViewTTL <= 0 || c.FetchRateLimit < 0 {
		return errNegativeDuration
	}

	return nil
}

type predefinedFile struct {
	URLs []string `yaml:"urls"`
}

// PredefinedURLs returns the batch URL list: the YAML file's `urls` when
// PredefinedFile is set, DefaultPredefinedURLs otherwise.
func (c Config) PredefinedURLs() ([]string, error) {
	if c.PredefinedFile == "" {
		return append([]string(nil), DefaultPredefinedURLs...), nil
	}
	return LoadPredefinedFile(c.PredefinedFile)
}

// LoadPredefinedFile reads a YAML file of the form:
//
//	urls:
//	  - https://github.com/login
func LoadPredefinedFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read predefined file: %w", err)
	}

	var f predefinedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("config: parse predefined file: %w", err)
	}

	urls := f.URLs[:0]
	for _, u := range f.URLs {
		if u != "" {
			urls = append(urls, u)
		}
	}
	if len(urls) == 0 {
		return nil, fmt.Errorf("%w: %s", errNoPredefinedURLs, path)
	}
	return urls, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	s := os.Getenv(key)
	if s == "" {
		return fallback
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return v
}

func getEnvAsBool(key string, fallback bool) bool {
	s := os.Getenv(key)
	if s == "" {
		return fallback
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return fallback
	}
	return v
}
