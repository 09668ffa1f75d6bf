package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration lets YAML carry values like "250ms" or "1s".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := time.ParseDuration(node.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %v", node.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config holds the tunables shared by every command. Values not present in
// the file keep their defaults.
type Config struct {
	DownloadDir           string        `yaml:"download_dir"`
	DataDir               string        `yaml:"data_dir"`
	Backend               string        `yaml:"backend"`
	MaxTotalConnections   int           `yaml:"max_total_connections"`
	MaxConnectionsPerHost int           `yaml:"max_connections_per_host"`
	MinSegmentsPerJob     int           `yaml:"min_segments_per_job"`
	MaxSegmentsPerJob     int           `yaml:"max_segments_per_job"`
	MinSegmentSize        int64         `yaml:"min_segment_size"`
	RetryAttempts         int           `yaml:"retry_attempts"`
	RetryBaseDelay        Duration      `yaml:"retry_base_delay"`
	RetryMaxDelay         Duration      `yaml:"retry_max_delay"`
	HTTPTimeout           Duration      `yaml:"http_timeout"`
	ProxyURL              string        `yaml:"proxy_url"`
	UserAgent             string        `yaml:"user_agent"`
}

func Default() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return &Config{
		DownloadDir:           ".",
		DataDir:               filepath.Join(home, ".hiruko"),
		Backend:               "pool",
		MaxTotalConnections:   64,
		MaxConnectionsPerHost: 16,
		MinSegmentsPerJob:     4,
		MaxSegmentsPerJob:     16,
		MinSegmentSize:        1 << 20,
		RetryAttempts:         5,
		RetryBaseDelay:        Duration(250 * time.Millisecond),
		RetryMaxDelay:         Duration(30 * time.Second),
		HTTPTimeout:           Duration(3 * time.Hour),
	}
}

// Load reads path on top of the defaults. A missing file is not an error so
// the tool works with no config at all.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error reading config %s: %v", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config %s: %v", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %v", path, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Backend != "pool" && c.Backend != "loop" {
		return fmt.Errorf("backend must be pool or loop, got %q", c.Backend)
	}
	if c.MaxTotalConnections < 1 || c.MaxConnectionsPerHost < 1 {
		return fmt.Errorf("connection limits must be at least 1")
	}
	if c.MinSegmentsPerJob < 1 || c.MaxSegmentsPerJob < c.MinSegmentsPerJob {
		return fmt.Errorf("segment bounds must satisfy 1 <= min <= max")
	}
	if c.RetryAttempts < 1 {
		return fmt.Errorf("retry_attempts must be at least 1")
	}
	return nil
}

// DatabasePath is where the job queue lives.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "jobs.db")
}

// SocketPath is the control socket for pause and cancel signals.
func (c *Config) SocketPath() string {
	return filepath.Join(c.DataDir, "control.sock")
}
