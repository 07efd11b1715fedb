// Package config provides file-based configuration for the ingest service.
// XML is the native format; files ending in .yaml or .yml are read as YAML.
package config

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// AppConfig represents the root configuration structure
type AppConfig struct {
	XMLName xml.Name `xml:"TlogIngest" yaml:"-"`

	Server     ServerConfig     `xml:"Server" yaml:"server"`
	Storage    StorageConfig    `xml:"Storage" yaml:"storage"`
	Processing ProcessingConfig `xml:"Processing" yaml:"processing"`
	Cache      CacheConfig      `xml:"Cache" yaml:"cache"`
	Events     EventsConfig     `xml:"Events" yaml:"events"`
	Advanced   AdvancedConfig   `xml:"Advanced" yaml:"advanced"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port           int    `xml:"Port" yaml:"port"`
	BindAddress    string `xml:"BindAddress" yaml:"bind_address"`
	EnableCORS     bool   `xml:"EnableCORS" yaml:"enable_cors"`
	AllowOrigins   string `xml:"AllowOrigins" yaml:"allow_origins"`
	ReadTimeout    int    `xml:"ReadTimeoutSeconds" yaml:"read_timeout_seconds"`
	WriteTimeout   int    `xml:"WriteTimeoutSeconds" yaml:"write_timeout_seconds"`
	IdleTimeout    int    `xml:"IdleTimeoutSeconds" yaml:"idle_timeout_seconds"`
	RequestTimeout int    `xml:"RequestTimeoutSeconds" yaml:"request_timeout_seconds"`
}

// StorageConfig selects the flight-data backend and where uploads are spooled
type StorageConfig struct {
	DataDirectory  string `xml:"DataDirectory" yaml:"data_directory"`
	SpoolDirectory string `xml:"SpoolDirectory" yaml:"spool_directory"`
	Driver         string `xml:"Driver" yaml:"driver"`
	DSN            string `xml:"DSN" yaml:"dsn"`
	MaxUploadSize  string `xml:"MaxUploadSize" yaml:"max_upload_size"`
}

// ProcessingConfig contains ingest settings
type ProcessingConfig struct {
	MaxConcurrentIngests   int `xml:"MaxConcurrentIngests" yaml:"max_concurrent_ingests"`
	JobRetentionMinutes    int `xml:"JobRetentionMinutes" yaml:"job_retention_minutes"`
	CleanupIntervalMinutes int `xml:"CleanupIntervalMinutes" yaml:"cleanup_interval_minutes"`
	SkipRecordLimit        int `xml:"SkipRecordLimit" yaml:"skip_record_limit"`
}

// CacheConfig configures the optional Redis query cache. An empty address disables it.
type CacheConfig struct {
	RedisAddr     string `xml:"RedisAddr" yaml:"redis_addr"`
	RedisPassword string `xml:"RedisPassword" yaml:"redis_password"`
	RedisDB       int    `xml:"RedisDB" yaml:"redis_db"`
	TTLSeconds    int    `xml:"TTLSeconds" yaml:"ttl_seconds"`
}

// EventsConfig configures ingest event delivery. An empty NATS URL disables JetStream.
type EventsConfig struct {
	NATSURL         string `xml:"NATSURL" yaml:"nats_url"`
	StreamMaxAgeHrs int    `xml:"StreamMaxAgeHours" yaml:"stream_max_age_hours"`
	EnableWebSocket bool   `xml:"EnableWebSocket" yaml:"enable_websocket"`
}

// AdvancedConfig contains advanced/tuning options
type AdvancedConfig struct {
	EnableRequestLogging    bool   `xml:"EnableRequestLogging" yaml:"enable_request_logging"`
	EnableRuntimeMetrics    bool   `xml:"EnableRuntimeMetrics" yaml:"enable_runtime_metrics"`
	DuckDBThreads           int    `xml:"DuckDBThreads" yaml:"duckdb_threads"`
	DuckDBMemoryLimit       string `xml:"DuckDBMemoryLimit" yaml:"duckdb_memory_limit"`
	WebSocketMaxMessageSize int    `xml:"WebSocketMaxMessageSizeKB" yaml:"websocket_max_message_size_kb"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:           8000,
			BindAddress:    "0.0.0.0",
			EnableCORS:     true,
			AllowOrigins:   "*",
			ReadTimeout:    30,
			WriteTimeout:   30,
			IdleTimeout:    120,
			RequestTimeout: 30,
		},
		Storage: StorageConfig{
			DataDirectory:  "./data",
			SpoolDirectory: "./data/spool",
			Driver:         "duckdb",
			MaxUploadSize:  "512MiB",
		},
		Processing: ProcessingConfig{
			MaxConcurrentIngests:   2,
			JobRetentionMinutes:    60,
			CleanupIntervalMinutes: 5,
			SkipRecordLimit:        100,
		},
		Cache: CacheConfig{
			TTLSeconds: 300,
		},
		Events: EventsConfig{
			StreamMaxAgeHrs: 24,
			EnableWebSocket: true,
		},
		Advanced: AdvancedConfig{
			EnableRequestLogging:    true,
			EnableRuntimeMetrics:    true,
			DuckDBThreads:           4,
			DuckDBMemoryLimit:       "1GB",
			WebSocketMaxMessageSize: 64,
		},
	}
}

// LoadDotEnv loads variables from the given .env files, skipping ones that
// do not exist. Variables already set in the environment win.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); os.IsNotExist(err) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// LoadConfig loads configuration from an XML or YAML file, writing the
// defaults there first if it does not exist.
func LoadConfig(configPath string) (*AppConfig, error) {
	config := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := config.Save(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	} else {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if isYAML(configPath) {
			err = yaml.Unmarshal(data, config)
		} else {
			err = xml.Unmarshal(data, config)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	config.applyEnvironmentOverrides()
	config.resolvePaths(filepath.Dir(configPath))

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Save writes the configuration in the format implied by the file extension.
func (c *AppConfig) Save(configPath string) error {
	var content []byte
	if isYAML(configPath) {
		output, err := yaml.Marshal(c)
		if err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
		content = append([]byte("# Tlog Ingest Configuration\n# This file is auto-generated on first run\n\n"), output...)
	} else {
		output, err := xml.MarshalIndent(c, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
		header := []byte(xml.Header + "\n<!-- Tlog Ingest Configuration -->\n<!-- This file is auto-generated on first run -->\n\n")
		content = append(header, output...)
	}

	if dir := filepath.Dir(configPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := os.WriteFile(configPath, content, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate rejects settings the service cannot start with.
func (c *AppConfig) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Processing.MaxConcurrentIngests <= 0 {
		return fmt.Errorf("MaxConcurrentIngests must be positive, got %d", c.Processing.MaxConcurrentIngests)
	}
	if _, err := c.MaxUploadBytes(); err != nil {
		return err
	}
	switch strings.ToLower(c.Storage.Driver) {
	case "", "duckdb", "sqlite", "sqlite3":
	case "postgres", "postgresql":
		if c.Storage.DSN == "" {
			return fmt.Errorf("storage driver %s requires a DSN", c.Storage.Driver)
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	return nil
}

// applyEnvironmentOverrides allows environment variables to override config values
func (c *AppConfig) applyEnvironmentOverrides() {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}
	if dataDir := os.Getenv("DATA_DIR"); dataDir != "" {
		c.Storage.DataDirectory = dataDir
		c.Storage.SpoolDirectory = filepath.Join(dataDir, "spool")
	}
	if driver := os.Getenv("STORAGE_DRIVER"); driver != "" {
		c.Storage.Driver = driver
	}
	if dsn := os.Getenv("STORAGE_DSN"); dsn != "" {
		c.Storage.DSN = dsn
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		c.Cache.RedisAddr = addr
	}
	if url := os.Getenv("NATS_URL"); url != "" {
		c.Events.NATSURL = url
	}
}

// resolvePaths converts relative paths to absolute based on config file location
func (c *AppConfig) resolvePaths(configDir string) {
	if !filepath.IsAbs(c.Storage.DataDirectory) {
		c.Storage.DataDirectory = filepath.Join(configDir, c.Storage.DataDirectory)
	}
	if c.Storage.SpoolDirectory == "" {
		c.Storage.SpoolDirectory = filepath.Join(c.Storage.DataDirectory, "spool")
	}
	if !filepath.IsAbs(c.Storage.SpoolDirectory) {
		c.Storage.SpoolDirectory = filepath.Join(configDir, c.Storage.SpoolDirectory)
	}
}

// MaxUploadBytes parses MaxUploadSize ("512MiB", "2G", "1048576").
func (c *AppConfig) MaxUploadBytes() (int64, error) {
	n, err := humanize.ParseBytes(c.Storage.MaxUploadSize)
	if err != nil {
		return 0, fmt.Errorf("invalid MaxUploadSize %q: %w", c.Storage.MaxUploadSize, err)
	}
	if n == 0 {
		return 0, fmt.Errorf("MaxUploadSize must be positive")
	}
	return int64(n), nil
}

// GetServerAddr returns the server bind address
func (c *AppConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.BindAddress, c.Server.Port)
}

// CacheTTL returns the Redis entry lifetime.
func (c *AppConfig) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLSeconds) * time.Second
}

// JobRetention returns how long finished jobs are kept.
func (c *AppConfig) JobRetention() time.Duration {
	return time.Duration(c.Processing.JobRetentionMinutes) * time.Minute
}

// CleanupInterval returns the period of the job cleanup ticker.
func (c *AppConfig) CleanupInterval() time.Duration {
	return time.Duration(c.Processing.CleanupIntervalMinutes) * time.Minute
}

// StreamMaxAge returns the JetStream retention window.
func (c *AppConfig) StreamMaxAge() time.Duration {
	return time.Duration(c.Events.StreamMaxAgeHrs) * time.Hour
}

// EnsureDirectories creates all necessary directories
func (c *AppConfig) EnsureDirectories() error {
	for _, dir := range []string{c.Storage.DataDirectory, c.Storage.SpoolDirectory} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}
