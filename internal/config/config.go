// =============================================================================
// Trade Document Reconciler - Configuration Module
// =============================================================================
//
// This module is responsible for loading and managing all configuration files.
// It handles both the main application configuration and the per-template
// extraction configurations.
//
// CONFIGURATION FILES:
//   1. Main Config (config.yaml): Global application settings
//   2. Template Configs (templates/*.yaml): One document pair layout each
//      (column positions, fallback policies, keyword lists, join policy)
//
// CONFIGURATION SOURCES (later wins):
//   1. Built-in defaults (applyMainConfigDefaults)
//   2. The YAML file
//   3. Environment variables prefixed RECONCILER_ (envconfig), optionally
//      loaded from a .env file by the CLI
//
// Every configuration is validated on load (validator/v10 struct tags).
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of environment variable overrides.
const EnvPrefix = "RECONCILER"

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// MainConfig holds the global application configuration.
// This is loaded from the main config.yaml file.
type MainConfig struct {
	// =========================================================================
	// DIRECTORY SETTINGS
	// =========================================================================

	// TemplatesDir is the directory containing template configurations.
	// Default: "./templates"
	TemplatesDir string `yaml:"templates_dir" envconfig:"TEMPLATES_DIR"`

	// OutputDir is the directory where rendered tables and gap logs are
	// written by the CLI.
	// Default: "./output"
	OutputDir string `yaml:"output_dir" envconfig:"OUTPUT_DIR"`

	// DefaultTemplate is the template code used when no template is named
	// and no file matching pattern applies. Empty means the built-in layout.
	DefaultTemplate string `yaml:"default_template" envconfig:"DEFAULT_TEMPLATE"`

	// =========================================================================
	// OUTPUT SETTINGS
	// =========================================================================

	// UUIDFormat defines the format for output file names.
	// Placeholders:
	//   {uuid}      - The run ID
	//   {timestamp} - Current timestamp (YYYYMMDD_HHMMSS)
	//   {template}  - Template code
	//   {ext}       - Output format extension
	// Default: "summary_{timestamp}_{uuid}.{ext}"
	UUIDFormat string `yaml:"uuid_format" envconfig:"UUID_FORMAT"`

	// Logging controls the structured logger.
	Logging LoggingConfig `yaml:"logging" envconfig:"LOGGING"`

	// Limits bound the work of a single run.
	Limits LimitsConfig `yaml:"limits" envconfig:"LIMITS"`

	// Server configures the HTTP front end.
	Server ServerConfig `yaml:"server" envconfig:"SERVER"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error. Default: "info"
	Level string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn error"`

	// Format is json or text. Default: "json"
	Format string `yaml:"format" envconfig:"FORMAT" validate:"oneof=json text"`

	// Output is console, file or both. Default: "console"
	Output string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=console file both"`

	// FilePath is used when Output is file or both.
	// Default: "./logs/reconciler.log"
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// LimitsConfig bounds the cost of extraction on pathological input.
type LimitsConfig struct {
	// MaxRows is the row ceiling per document. Default: 10000
	MaxRows int `yaml:"max_rows" envconfig:"MAX_ROWS" validate:"gte=0"`

	// MaxColumns is the column ceiling per document. Default: 256
	MaxColumns int `yaml:"max_columns" envconfig:"MAX_COLUMNS" validate:"gte=0"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	// Addr is the listen address. Default: ":8080"
	Addr string `yaml:"addr" envconfig:"ADDR"`

	// MaxUploadBytes limits the multipart request size. Default: 16 MiB
	MaxUploadBytes int64 `yaml:"max_upload_bytes" envconfig:"MAX_UPLOAD_BYTES" validate:"gte=0"`

	// RateLimitRPS and RateLimitBurst configure the token bucket limiter.
	// A zero RPS disables limiting. Default: 10 rps, burst 20
	RateLimitRPS   float64 `yaml:"rate_limit_rps" envconfig:"RATE_LIMIT_RPS" validate:"gte=0"`
	RateLimitBurst int     `yaml:"rate_limit_burst" envconfig:"RATE_LIMIT_BURST" validate:"gte=0"`

	// CacheSize is the number of retained run results. Default: 256
	CacheSize int `yaml:"cache_size" envconfig:"CACHE_SIZE" validate:"gte=0"`

	// CacheTTL is how long a run result stays downloadable. Default: 30m
	CacheTTL time.Duration `yaml:"cache_ttl" envconfig:"CACHE_TTL"`

	// ReadTimeout and WriteTimeout are passed to http.Server. Default: 30s
	ReadTimeout  time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
}

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

var validate = validator.New()

// LoadMainConfig loads the main configuration from a YAML file and applies
// environment overrides.
//
// PARAMETERS:
//   - configPath: The path to the main configuration file. A missing file
//     is not an error; defaults and environment variables are used instead.
//
// RETURNS:
//   - A pointer to the MainConfig struct.
//   - An error if the file cannot be parsed or the result is invalid.
func LoadMainConfig(configPath string) (*MainConfig, error) {
	var config MainConfig

	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
		// Defaults only.
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Environment variables override the file.
	if err := envconfig.Process(EnvPrefix, &config); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	// Apply default values.
	applyMainConfigDefaults(&config)

	// Validate the configuration.
	if err := validate.Struct(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// DefaultMainConfig returns a MainConfig with every default applied.
func DefaultMainConfig() *MainConfig {
	var config MainConfig
	applyMainConfigDefaults(&config)
	return &config
}

// applyMainConfigDefaults sets default values for any unset configuration options.
func applyMainConfigDefaults(config *MainConfig) {
	if config.TemplatesDir == "" {
		config.TemplatesDir = "./templates"
	}
	if config.OutputDir == "" {
		config.OutputDir = "./output"
	}
	if config.UUIDFormat == "" {
		config.UUIDFormat = "summary_{timestamp}_{uuid}.{ext}"
	}
	if config.Logging.Level == "" {
		config.Logging.Level = "info"
	}
	if config.Logging.Format == "" {
		config.Logging.Format = "json"
	}
	if config.Logging.Output == "" {
		config.Logging.Output = "console"
	}
	if config.Logging.FilePath == "" {
		config.Logging.FilePath = "./logs/reconciler.log"
	}
	if config.Limits.MaxRows == 0 {
		config.Limits.MaxRows = 10000
	}
	if config.Limits.MaxColumns == 0 {
		config.Limits.MaxColumns = 256
	}
	if config.Server.Addr == "" {
		config.Server.Addr = ":8080"
	}
	if config.Server.MaxUploadBytes == 0 {
		config.Server.MaxUploadBytes = 16 << 20
	}
	if config.Server.RateLimitRPS == 0 {
		config.Server.RateLimitRPS = 10
	}
	if config.Server.RateLimitBurst == 0 {
		config.Server.RateLimitBurst = 20
	}
	if config.Server.CacheSize == 0 {
		config.Server.CacheSize = 256
	}
	if config.Server.CacheTTL == 0 {
		config.Server.CacheTTL = 30 * time.Minute
	}
	if config.Server.ReadTimeout == 0 {
		config.Server.ReadTimeout = 30 * time.Second
	}
	if config.Server.WriteTimeout == 0 {
		config.Server.WriteTimeout = 30 * time.Second
	}
}

// LoadTemplateConfigs loads all template configurations from a directory.
//
// PARAMETERS:
//   - templatesDir: The directory containing template configuration files.
//
// RETURNS:
//   - A map of template configurations, keyed by template code.
//   - An error if the directory cannot be read or any file is invalid.
func LoadTemplateConfigs(templatesDir string) (map[string]*TemplateConfig, error) {
	configs := make(map[string]*TemplateConfig)

	// Find all YAML files in the templates directory.
	files, err := filepath.Glob(filepath.Join(templatesDir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("failed to list template files: %w", err)
	}

	// Also check for .yml extension.
	ymlFiles, err := filepath.Glob(filepath.Join(templatesDir, "*.yml"))
	if err != nil {
		return nil, fmt.Errorf("failed to list template files: %w", err)
	}
	files = append(files, ymlFiles...)

	for _, file := range files {
		config, err := LoadTemplateConfig(file)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", file, err)
		}

		if _, dup := configs[config.TemplateCode]; dup {
			return nil, fmt.Errorf("duplicate template code %q in %s", config.TemplateCode, file)
		}
		configs[config.TemplateCode] = config
	}

	return configs, nil
}

// LoadTemplateConfig loads a single template configuration file.
// The template code defaults to the file name without extension.
func LoadTemplateConfig(filePath string) (*TemplateConfig, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	config, err := ParseTemplateConfig(data)
	if err != nil {
		return nil, err
	}
	if config.TemplateCode == "" {
		base := filepath.Base(filePath)
		config.TemplateCode = base[:len(base)-len(filepath.Ext(base))]
	}
	return config, nil
}

// ParseTemplateConfig parses, defaults and validates template YAML.
func ParseTemplateConfig(data []byte) (*TemplateConfig, error) {
	var config TemplateConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse file: %w", err)
	}

	applyTemplateConfigDefaults(&config)

	if err := ValidateTemplate(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

// ValidateTemplate checks struct tags and cross-field rules of a template.
func ValidateTemplate(config *TemplateConfig) error {
	if err := validate.Struct(config); err != nil {
		return fmt.Errorf("invalid template %q: %w", config.TemplateName, err)
	}
	for role, doc := range map[string]DocumentSettings{"primary": config.Primary, "secondary": config.Secondary} {
		for name := range doc.Fields {
			if !knownField(name) {
				return fmt.Errorf("invalid template %q: %s document has unknown field %q", config.TemplateName, role, name)
			}
		}
	}
	return nil
}
