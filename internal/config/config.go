// internal/config/config.go
//
// This package handles configuration and the .chathub directory structure.
// Every project that runs ChatHub gets a .chathub/ folder created in its root.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// ChatHubDir is the name of the directory we create in each project
	ChatHubDir = ".chathub"

	// DefaultUploadBaseURL is where simulated uploads claim to live.
	DefaultUploadBaseURL = "https://storage.googleapis.com/workspace-chatapp/uploads"
	// DefaultMaxUploadSize is 10 MB.
	DefaultMaxUploadSize int64 = 10 * 1024 * 1024
	// DefaultMaxMessageLength bounds the composer input.
	DefaultMaxMessageLength = 2000
	// DefaultSimInterval is how often the delivery loop rolls for a message.
	DefaultSimInterval = 5 * time.Second
	// DefaultSimProbability is the chance per tick of an inbound message.
	DefaultSimProbability = 0.3
	// DefaultRedisPrefix namespaces keys in a shared redis.
	DefaultRedisPrefix = "chathub:"
)

// Storage drivers accepted by storage.driver.
const (
	DriverFile     = "file"
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
)

const defaultProjectConfigYAML = `# chathub project configuration
version: 1

# Where sessions, rooms and messages are kept between runs.
# driver: file | memory | sqlite | redis | postgres
storage:
  driver: file
  # path: .chathub/state/chathub.db   # sqlite only
  # addr: localhost:6379              # redis only
  # dsn: postgres://localhost/chathub # postgres only
  prefix: "chathub:"

# Other "users" occasionally post into the open room.
simulation:
  enabled: true
  interval: 5s
  probability: 0.3

uploads:
  base_url: https://storage.googleapis.com/workspace-chatapp/uploads
  max_size: 10485760
  failure_rate: 0

chat:
  max_message_length: 2000
`

// StorageConfig selects and addresses the durable key/value backend.
type StorageConfig struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path,omitempty"`
	Addr   string `yaml:"addr,omitempty"`
	DSN    string `yaml:"dsn,omitempty"`
	Prefix string `yaml:"prefix,omitempty"`
}

// SimulationConfig tunes the simulated inbound delivery loop.
type SimulationConfig struct {
	Enabled     *bool         `yaml:"enabled,omitempty"`
	Interval    time.Duration `yaml:"interval"`
	Probability float64       `yaml:"probability"`
}

// UploadsConfig tunes the simulated file transfer.
type UploadsConfig struct {
	BaseURL     string  `yaml:"base_url"`
	MaxSize     int64   `yaml:"max_size"`
	FailureRate float64 `yaml:"failure_rate"`
}

// ChatConfig holds composer limits.
type ChatConfig struct {
	MaxMessageLength int `yaml:"max_message_length"`
}

// ProjectConfig models .chathub/config.yaml.
type ProjectConfig struct {
	Version    int              `yaml:"version"`
	Storage    StorageConfig    `yaml:"storage"`
	Simulation SimulationConfig `yaml:"simulation"`
	Uploads    UploadsConfig    `yaml:"uploads"`
	Chat       ChatConfig       `yaml:"chat"`
}

// Config holds the runtime configuration for ChatHub.
type Config struct {
	// ProjectDir is the directory where the user ran `chathub` from
	ProjectDir string

	// ChatHubProjectDir is ProjectDir/.chathub
	ChatHubProjectDir string

	Project ProjectConfig
}

// InitChatHubDir creates the .chathub directory structure in the given
// project directory. This is called before the TUI starts.
//
// Structure created:
// .chathub/
// ├── logs/         <- chathub.log
// ├── state/        <- file and sqlite storage drivers
// └── config.yaml
func InitChatHubDir(projectDir string) error {
	root := filepath.Join(projectDir, ChatHubDir)
	dirs := []string{
		filepath.Join(root, "logs"),
		filepath.Join(root, "state"),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return ensureProjectConfig(filepath.Join(root, "config.yaml"))
}

// NewConfig loads .env, .chathub/config.yaml and CHATHUB_* overrides for
// the given project directory.
func NewConfig(projectDir string) (*Config, error) {
	if err := loadDotEnv(filepath.Join(projectDir, ".env")); err != nil {
		return nil, err
	}

	cfg := &Config{
		ProjectDir:        projectDir,
		ChatHubProjectDir: filepath.Join(projectDir, ChatHubDir),
		Project:           defaultProjectConfig(),
	}
	if err := cfg.loadProjectConfig(); err != nil {
		return nil, err
	}
	cfg.Project.applyEnv(os.Getenv)
	cfg.Project.normalize(cfg.ProjectDir)
	if err := cfg.Project.validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// LogsDir returns the path to the logs directory
func (c *Config) LogsDir() string {
	return filepath.Join(c.ChatHubProjectDir, "logs")
}

// LogPath returns the file the logbook writes to.
func (c *Config) LogPath() string {
	return filepath.Join(c.LogsDir(), "chathub.log")
}

// StateDir returns the path to the state directory
func (c *Config) StateDir() string {
	return filepath.Join(c.ChatHubProjectDir, "state")
}

// ProjectConfigPath returns the on-disk location for the project config file.
func (c *Config) ProjectConfigPath() string {
	return filepath.Join(c.ChatHubProjectDir, "config.yaml")
}

// SQLitePath returns the configured sqlite file, defaulting into StateDir.
func (c *Config) SQLitePath() string {
	if c.Project.Storage.Path != "" {
		return c.Project.Storage.Path
	}
	return filepath.Join(c.StateDir(), "chathub.db")
}

// SimulationEnabled reports whether the delivery loop should run.
func (c *Config) SimulationEnabled() bool {
	return c.Project.Simulation.enabled()
}

func (s SimulationConfig) enabled() bool {
	if s.Enabled == nil {
		return true
	}
	return *s.Enabled
}

func (c *Config) loadProjectConfig() error {
	path := c.ProjectConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	parsed := defaultProjectConfig()
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}

	parsed.applyDefaults()
	parsed.normalize(c.ProjectDir)
	if err := parsed.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	c.Project = parsed
	return nil
}

func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: stat %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("config: load %s: %w", path, err)
	}
	return nil
}

func defaultProjectConfig() ProjectConfig {
	return ProjectConfig{
		Version: 1,
		Storage: StorageConfig{
			Driver: DriverFile,
			Prefix: DefaultRedisPrefix,
		},
		Simulation: SimulationConfig{
			Interval:    DefaultSimInterval,
			Probability: DefaultSimProbability,
		},
		Uploads: UploadsConfig{
			BaseURL: DefaultUploadBaseURL,
			MaxSize: DefaultMaxUploadSize,
		},
		Chat: ChatConfig{MaxMessageLength: DefaultMaxMessageLength},
	}
}

func (pc *ProjectConfig) applyDefaults() {
	if pc.Version == 0 {
		pc.Version = 1
	}
	if pc.Storage.Driver == "" {
		pc.Storage.Driver = DriverFile
	}
	if pc.Storage.Prefix == "" {
		pc.Storage.Prefix = DefaultRedisPrefix
	}
	if pc.Simulation.Interval == 0 {
		pc.Simulation.Interval = DefaultSimInterval
	}
	if pc.Uploads.BaseURL == "" {
		pc.Uploads.BaseURL = DefaultUploadBaseURL
	}
	if pc.Uploads.MaxSize == 0 {
		pc.Uploads.MaxSize = DefaultMaxUploadSize
	}
	if pc.Chat.MaxMessageLength == 0 {
		pc.Chat.MaxMessageLength = DefaultMaxMessageLength
	}
}

// applyEnv overlays CHATHUB_* variables. Unparseable values are ignored.
func (pc *ProjectConfig) applyEnv(getenv func(string) string) {
	if value := strings.TrimSpace(getenv("CHATHUB_STORAGE_DRIVER")); value != "" {
		pc.Storage.Driver = value
	}
	if value := strings.TrimSpace(getenv("CHATHUB_STORAGE_DSN")); value != "" {
		pc.Storage.DSN = value
	}
	if value := strings.TrimSpace(getenv("CHATHUB_REDIS_ADDR")); value != "" {
		pc.Storage.Addr = value
	}
	if value := strings.TrimSpace(getenv("CHATHUB_SIMULATION")); value != "" {
		if enabled, err := strconv.ParseBool(value); err == nil {
			pc.Simulation.Enabled = &enabled
		}
	}
	if value := strings.TrimSpace(getenv("CHATHUB_SIM_INTERVAL")); value != "" {
		if interval, err := time.ParseDuration(value); err == nil && interval > 0 {
			pc.Simulation.Interval = interval
		}
	}
}

func (pc *ProjectConfig) normalize(base string) {
	pc.Storage.Driver = strings.ToLower(strings.TrimSpace(pc.Storage.Driver))
	pc.Storage.Path = resolvePath(base, pc.Storage.Path)
	pc.Storage.Addr = strings.TrimSpace(pc.Storage.Addr)
	pc.Storage.DSN = strings.TrimSpace(pc.Storage.DSN)
	pc.Uploads.BaseURL = strings.TrimRight(strings.TrimSpace(pc.Uploads.BaseURL), "/")
}

func (pc *ProjectConfig) validate() error {
	if pc.Version < 1 {
		return fmt.Errorf("config version must be >= 1")
	}
	switch pc.Storage.Driver {
	case DriverFile, DriverMemory, DriverSQLite:
	case DriverRedis:
		if pc.Storage.Addr == "" {
			return fmt.Errorf("storage.addr is required for the redis driver")
		}
	case DriverPostgres:
		if pc.Storage.DSN == "" {
			return fmt.Errorf("storage.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("storage.driver %q is not supported", pc.Storage.Driver)
	}
	if pc.Simulation.Interval < 0 {
		return fmt.Errorf("simulation.interval must be positive")
	}
	if pc.Simulation.Probability < 0 || pc.Simulation.Probability > 1 {
		return fmt.Errorf("simulation.probability must be between 0 and 1")
	}
	if pc.Uploads.MaxSize < 0 {
		return fmt.Errorf("uploads.max_size must be positive")
	}
	if pc.Uploads.FailureRate < 0 || pc.Uploads.FailureRate > 1 {
		return fmt.Errorf("uploads.failure_rate must be between 0 and 1")
	}
	if pc.Chat.MaxMessageLength < 0 {
		return fmt.Errorf("chat.max_message_length must be positive")
	}
	return nil
}

func resolvePath(base, candidate string) string {
	trimmed := strings.TrimSpace(candidate)
	if trimmed == "" {
		return ""
	}
	if filepath.IsAbs(trimmed) {
		return filepath.Clean(trimmed)
	}
	return filepath.Clean(filepath.Join(base, trimmed))
}

func ensureProjectConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.WriteFile(path, []byte(defaultProjectConfigYAML), 0644)
}

// SetStorageDriver switches the backend and persists the change back to
// .chathub/config.yaml.
func (c *Config) SetStorageDriver(driver string) error {
	c.Project.Storage.Driver = driver
	return c.saveProjectConfig()
}

func (c *Config) saveProjectConfig() error {
	if c == nil {
		return fmt.Errorf("config: nil receiver")
	}
	c.Project.applyDefaults()
	c.Project.normalize(c.ProjectDir)
	if err := c.Project.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := os.MkdirAll(c.ChatHubProjectDir, 0o755); err != nil {
		return fmt.Errorf("config: ensure chathub dir: %w", err)
	}
	data, err := yaml.Marshal(c.Project)
	if err != nil {
		return fmt.Errorf("config: encode config: %w", err)
	}
	if err := os.WriteFile(c.ProjectConfigPath(), data, 0644); err != nil {
		return fmt.Errorf("config: write project config: %w", err)
	}
	return nil
}
