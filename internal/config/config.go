package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for arv.
type Config struct {
	HostID     string           `toml:"host_id"`
	BaseDir    string           `toml:"base_dir"`
	LogDir     string           `toml:"log_dir"`
	Timezone   string           `toml:"timezone"` // IANA name of the collection timezone
	API        APIConfig        `toml:"api"`
	Database   DatabaseConfig   `toml:"database"`
	Ingest     IngestConfig     `toml:"ingest"`
	Archive    ArchiveConfig    `toml:"archive"`
	Encryption EncryptionConfig `toml:"encryption"`
}

// APIConfig holds the remote arrival API settings. The key itself is never
// stored in the config file; KeyEnv names the environment variable carrying
// it.
type APIConfig struct {
	BaseURL string `toml:"base_url,omitempty"`
	Service string `toml:"service,omitempty"`
	KeyEnv  string `toml:"key_env"`
}

// DatabaseConfig represents configuration for the durable store.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type DatabaseConfig struct {
	Type    string `toml:"type"`               // "sqlite" or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// IngestConfig holds collection policy knobs.
type IngestConfig struct {
	// DailyCallLimit caps remote calls per calendar day. Zero means the
	// built-in default.
	DailyCallLimit int `toml:"daily_call_limit"`
	// DefaultRanges, when set, switches runs to fixed ranges (no probe, no
	// paging decision), e.g. "1000-1999,2000-2999". Empty keeps the dynamic
	// paging decision.
	DefaultRanges string `toml:"default_ranges,omitempty"`
}

// ArchiveConfig represents configuration for the database backup archive.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type ArchiveConfig struct {
	Type string `toml:"type"` // "none", "memory", "filesystem", or "s3"
	Name string `toml:"name,omitempty"`

	// S3-specific fields (only used when Type == "s3"). When the key env
	// names are set, static credentials are read from those environment
	// variables; otherwise the SDK's default chain applies.
	S3Bucket       string `toml:"s3_bucket,omitempty"`
	S3Prefix       string `toml:"s3_prefix,omitempty"`
	S3Region       string `toml:"s3_region,omitempty"`
	S3AccessKeyEnv string `toml:"s3_access_key_env,omitempty"`
	S3SecretKeyEnv string `toml:"s3_secret_key_env,omitempty"`

	// Filesystem-specific fields (only used when Type == "filesystem")
	FSRoot string `toml:"fs_root,omitempty"`
}

// EncryptionConfig holds paths to the age key pair used to encrypt archived
// backups at rest.
type EncryptionConfig struct {
	Type           string `toml:"type"` // "none" (default), "age" or "test"
	PublicKeyPath  string `toml:"public_key_path,omitempty"`
	PrivateKeyPath string `toml:"private_key_path,omitempty"`
}

// DefaultKeyEnv is the environment variable the API key is read from when
// the config does not name another one.
const DefaultKeyEnv = "SEOUL_SUBWAY_API_KEY"

// NewConfig creates a new Config with the provided values and sensible
// defaults.
func NewConfig(hostID, baseDir string) *Config {
	return &Config{
		HostID:   hostID,
		BaseDir:  baseDir,
		LogDir:   filepath.Join(baseDir, "log"),
		Timezone: "Asia/Seoul",
		API: APIConfig{
			KeyEnv: DefaultKeyEnv,
		},
		Database: DatabaseConfig{
			Type:    "sqlite",
			DataDir: filepath.Join(baseDir, "data"),
		},
		Archive: ArchiveConfig{
			Type: "none",
		},
		Encryption: EncryptionConfig{
			Type:           "none",
			PublicKeyPath:  filepath.Join(baseDir, "keys", "arv.pub"),
			PrivateKeyPath: filepath.Join(baseDir, "keys", "arv.key"),
		},
	}
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// writeToFile writes a Config to the specified file path.
// This is an internal helper and should not be exported.
func writeToFile(path string, cfg *Config) error {
	// Ensure the directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	// Check if config already exists
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
