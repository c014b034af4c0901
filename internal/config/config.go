// Package config builds the immutable run configuration from a json5 file,
// its local overrides and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"wenshu-pipeline/internal/components/telemetry"

	"github.com/docker/go-units"
)

const (
	// DefaultFile is the config file read when --config is not given.
	DefaultFile = "wenshu.json5"

	DefaultMaxRetries = 3

	EnvRagflowApiKey       = "RAGFLOW_API_KEY"
	EnvRagflowApiUrl       = "RAGFLOW_API_URL"
	EnvMaxFileSize         = "MAX_FILE_SIZE"
	EnvSupportedExtensions = "SUPPORTED_EXTENSIONS"
)

var ErrMissingUploadConfig = errors.New("missing upload api configuration")

type RagflowConfig struct {
	ApiKey              string   `json:"api_key"`
	ApiUrl              string   `json:"api_url"`
	MaxFileSize         string   `json:"max_file_size"`
	SupportedExtensions []string `json:"supported_extensions"`
	Timeout             string   `json:"timeout"`
}

// MaxFileSizeBytes is only valid on a config returned by Load.
func (c RagflowConfig) MaxFileSizeBytes() int64 {
	n, _ := units.RAMInBytes(c.MaxFileSize)
	return n
}

func (c RagflowConfig) TimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
	return d
}

type FetchConfig struct {
	BaseUrl           string  `json:"base_url"`
	UserAgent         string  `json:"user_agent"`
	MinDelay          string  `json:"min_delay"`
	MaxDelay          string  `json:"max_delay"`
	RequestsPerSecond float64 `json:"requests_per_second"`
	// nil is unset, 0 turns retries off
	MaxRetries        *int    `json:"max_retries"`
	Timeout           string  `json:"timeout"`
	PageSize          int     `json:"page_size"`
}

// Retries is the number of retries after a failed attempt.
func (c FetchConfig) Retries() int {
	if c.MaxRetries == nil {
		return DefaultMaxRetries
	}
	return *c.MaxRetries
}

func (c FetchConfig) MinDelayDuration() time.Duration {
	d, _ := time.ParseDuration(c.MinDelay)
	return d
}

func (c FetchConfig) MaxDelayDuration() time.Duration {
	d, _ := time.ParseDuration(c.MaxDelay)
	return d
}

func (c FetchConfig) TimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
	return d
}

type StoreConfig struct {
	DownloadDir string `json:"download_dir"`
	ParsedDir   string `json:"parsed_dir"`
}

type ExtractConfig struct {
	// RequiredFields overrides the fields a record needs to be complete.
	RequiredFields []string `json:"required_fields"`
}

type RunLogConfig struct {
	File      string `json:"file"`
	Url       string `json:"url"`
	AuthToken string `json:"auth_token"`
}

type NotifyConfig struct {
	SmtpServer   string   `json:"smtp_server"`
	SmtpPort     int      `json:"smtp_port"`
	EmailAddress string   `json:"email_address"`
	Password     string   `json:"password"`
	To           []string `json:"to"`
}

func (c NotifyConfig) Enabled() bool {
	return c.SmtpServer != "" && len(c.To) > 0
}

// Config is built once by Load and handed to components by value.
type Config struct {
	Ragflow   RagflowConfig    `json:"ragflow"`
	Fetch     FetchConfig      `json:"fetch"`
	Store     StoreConfig      `json:"store"`
	Extract   ExtractConfig    `json:"extract"`
	RunLog    RunLogConfig     `json:"runlog"`
	Notify    NotifyConfig     `json:"notify"`
	Telemetry telemetry.Config `json:"telemetry"`
}

// Load reads `name` (and its .local overlay) if present, then applies
// environment overrides and defaults and validates the result.
func Load(name string) (Config, error) {
	cfg, err := ReadConfig[Config](name)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg.loadEnv()
	cfg.loadDefaults()
	err = cfg.validate()
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) loadEnv() {
	if v := os.Getenv(EnvRagflowApiKey); v != "" {
		c.Ragflow.ApiKey = v
	}
	if v := os.Getenv(EnvRagflowApiUrl); v != "" {
		c.Ragflow.ApiUrl = v
	}
	if v := os.Getenv(EnvMaxFileSize); v != "" {
		c.Ragflow.MaxFileSize = v
	}
	if v := os.Getenv(EnvSupportedExtensions); v != "" {
		var exts []string
		for _, ext := range strings.Split(v, ",") {
			ext = strings.TrimSpace(ext)
			if ext != "" {
				exts = append(exts, ext)
			}
		}
		c.Ragflow.SupportedExtensions = exts
	}
}

func (c *Config) loadDefaults() {
	if c.Ragflow.MaxFileSize == "" {
		c.Ragflow.MaxFileSize = "10MB"
	}
	if len(c.Ragflow.SupportedExtensions) == 0 {
		c.Ragflow.SupportedExtensions = []string{".txt", ".md", ".pdf", ".docx"}
	}
	if c.Ragflow.Timeout == "" {
		c.Ragflow.Timeout = "60s"
	}
	if c.Fetch.BaseUrl == "" {
		c.Fetch.BaseUrl = "https://wenshu.court.gov.cn"
	}
	if c.Fetch.UserAgent == "" {
		c.Fetch.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"
	}
	if c.Fetch.MinDelay == "" {
		c.Fetch.MinDelay = "1s"
	}
	if c.Fetch.MaxDelay == "" {
		c.Fetch.MaxDelay = "3s"
	}
	if c.Fetch.RequestsPerSecond == 0 {
		c.Fetch.RequestsPerSecond = 1
	}
	if c.Fetch.MaxRetries == nil {
		retries := DefaultMaxRetries
		c.Fetch.MaxRetries = &retries
	}
	if c.Fetch.Timeout == "" {
		c.Fetch.Timeout = "30s"
	}
	if c.Fetch.PageSize == 0 {
		c.Fetch.PageSize = 10
	}
	if c.Store.DownloadDir == "" {
		c.Store.DownloadDir = "./wenshu_downloads"
	}
	if c.Store.ParsedDir == "" {
		c.Store.ParsedDir = "./wenshu_parsed"
	}
	if c.RunLog.File == "" && c.RunLog.Url == "" {
		c.RunLog.File = "runs.db"
	}
	if c.Notify.SmtpPort == 0 {
		c.Notify.SmtpPort = 587
	}
}

func (c Config) validate() error {
	for _, ext := range c.Ragflow.SupportedExtensions {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("ragflow: supported extension %q must start with a dot", ext)
		}
	}
	size, err := units.RAMInBytes(c.Ragflow.MaxFileSize)
	if err != nil {
		return fmt.Errorf("ragflow: max_file_size: %w", err)
	}
	if size <= 0 {
		return fmt.Errorf("ragflow: max_file_size must be positive")
	}

	durations := map[string]string{
		"ragflow: timeout": c.Ragflow.Timeout,
		"fetch: min_delay": c.Fetch.MinDelay,
		"fetch: max_delay": c.Fetch.MaxDelay,
		"fetch: timeout":   c.Fetch.Timeout,
	}
	for name, value := range durations {
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		if d < 0 {
			return fmt.Errorf("%s: must not be negative", name)
		}
	}
	if c.Fetch.MinDelayDuration() > c.Fetch.MaxDelayDuration() {
		return fmt.Errorf("fetch: min_delay (%s) is larger than max_delay (%s)", c.Fetch.MinDelay, c.Fetch.MaxDelay)
	}
	if c.Fetch.Retries() < 0 {
		return fmt.Errorf("fetch: max_retries must not be negative")
	}
	if c.Fetch.RequestsPerSecond < 0 {
		return fmt.Errorf("fetch: requests_per_second must not be negative")
	}
	if c.Fetch.PageSize < 0 {
		return fmt.Errorf("fetch: page_size must not be negative")
	}
	return nil
}

// RequireUpload reports whether the upload api is configured.
func (c Config) RequireUpload() error {
	var missing []string
	if c.Ragflow.ApiKey == "" {
		missing = append(missing, EnvRagflowApiKey)
	}
	if c.Ragflow.ApiUrl == "" {
		missing = append(missing, EnvRagflowApiUrl)
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: set %s", ErrMissingUploadConfig, strings.Join(missing, ", "))
	}
	return nil
}
