package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Database    DatabaseConfig    `yaml:"database"`
	Jobs        JobsConfig        `yaml:"jobs"`
	Storage     StorageConfig     `yaml:"storage"`
	Probe       ProbeConfig       `yaml:"probe"`
	Calibration CalibrationConfig `yaml:"calibration"`
	Inference   InferenceConfig   `yaml:"inference"`
	Drift       DriftConfig       `yaml:"drift"`
	Compliance  ComplianceConfig  `yaml:"compliance"`
	Ingestion   IngestionConfig   `yaml:"ingestion"`
	FFmpeg      FFmpegConfig      `yaml:"ffmpeg"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// JobsConfig drives the background worker pool (internal/jobs) that fans
// asset submissions into the orchestrator and the cumulative-risk /
// chain-order pre-checks.
type JobsConfig struct {
	WorkerCount      int `yaml:"worker_count"`
	BatchSize        int `yaml:"batch_size"`
	MaxRetries       int `yaml:"max_retries"`
	RetryBackoffBase int `yaml:"retry_backoff_base"`
}

type StorageConfig struct {
	ArtifactsPath string `yaml:"artifacts_path"`
	TempPath      string `yaml:"temp_path"`
}

// ProbeConfig mirrors spec §6's PROBE_TIMEOUT_MS / MAX_PROBE_CONCURRENCY.
type ProbeConfig struct {
	TimeoutMS      int `yaml:"timeout_ms"`
	MaxConcurrency int `yaml:"max_concurrency"`
}

// CalibrationConfig mirrors spec §4.5 / §6 CALIBRATION.* keys.
type CalibrationConfig struct {
	MinFloor          float64 `yaml:"min_floor"`
	MaxCeiling        float64 `yaml:"max_ceiling"`
	MaxOverconfidence float64 `yaml:"max_overconfidence"`
}

// InferenceConfig mirrors spec §4.7 / §6 INFERENCE.* keys.
type InferenceConfig struct {
	LogAfter               int `yaml:"log_after"`
	FallbackAfter          int `yaml:"fallback_after"`
	AlertAfter             int `yaml:"alert_after"`
	CircuitBreakAfter      int `yaml:"circuit_break_after"`
	CircuitBreakDurationMS int `yaml:"circuit_break_duration_ms"`
	FailureWindowMS        int `yaml:"failure_window_ms"`
}

// DriftConfig mirrors spec §4.6 / §6 DRIFT.* keys.
type DriftConfig struct {
	Minor       float64 `yaml:"minor"`
	Significant float64 `yaml:"significant"`
	OOD         float64 `yaml:"ood"`
}

// ComplianceConfig mirrors spec §6 COMPLIANCE.PLATFORMS (the selectable
// subset; the table itself is frozen in internal/compliance).
type ComplianceConfig struct {
	Platforms []string `yaml:"platforms"`
}

type IngestionConfig struct {
	MaxFileSizeBytes  int64    `yaml:"max_file_size_bytes"`
	AllowedExtensions []string `yaml:"allowed_extensions"`
}

type FFmpegConfig struct {
	FFprobePath string `yaml:"ffprobe_path"`
	FFmpegPath  string `yaml:"ffmpeg_path"`
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Database: DatabaseConfig{
			Driver: "sqlite3",
			DSN:    "./sentinel.db",
		},
		Jobs: JobsConfig{
			WorkerCount:      4,
			BatchSize:        100,
			MaxRetries:       3,
			RetryBackoffBase: 60,
		},
		Storage: StorageConfig{
			ArtifactsPath: "./artifacts/data",
			TempPath:      "./artifacts/temp",
		},
		Probe: ProbeConfig{
			TimeoutMS:      20_000,
			MaxConcurrency: 17,
		},
		Calibration: CalibrationConfig{
			MinFloor:          0.35,
			MaxCeiling:        0.95,
			MaxOverconfidence: 0.10,
		},
		Inference: InferenceConfig{
			LogAfter:               1,
			FallbackAfter:          1,
			AlertAfter:             3,
			CircuitBreakAfter:      5,
			CircuitBreakDurationMS: 60_000,
			FailureWindowMS:        300_000,
		},
		Drift: DriftConfig{
			Minor:       1.5,
			Significant: 2.5,
			OOD:         4.0,
		},
		Compliance: ComplianceConfig{
			Platforms: []string{"spotify", "apple-music", "youtube", "ebu-r128", "atsc-a85"},
		},
		Ingestion: IngestionConfig{
			MaxFileSizeBytes:  500 * 1024 * 1024,
			AllowedExtensions: []string{"wav", "mp3", "flac", "aac", "m4a", "ogg", "aiff"},
		},
		FFmpeg: FFmpegConfig{
			FFprobePath: "ffprobe",
			FFmpegPath:  "ffmpeg",
		},
	}
}

func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
