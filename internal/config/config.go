package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/signalnine/sweep/internal/statepoint"
	"gopkg.in/yaml.v3"
)

type Config struct {
	ProjectDir  string          `yaml:"project_dir"`
	DataDir     string          `yaml:"data_dir"`
	AnalysisDir string          `yaml:"analysis_dir"`
	OutputFile  string          `yaml:"output_file"`
	Ledger      string          `yaml:"ledger"`
	Parallel    int             `yaml:"parallel"`
	Statepoints statepoint.Grid `yaml:"statepoints"`
	Trainer     Trainer         `yaml:"trainer"`
}

type Trainer struct {
	Python         string   `yaml:"python"`
	Module         string   `yaml:"module"`
	AttackModule   string   `yaml:"attack_module"`
	DownloadModule string   `yaml:"download_module"`
	ExtraFlags     []string `yaml:"extra_flags"`
	EnvFile        string   `yaml:"env_file"`
	Image          string   `yaml:"image"`
	TimeoutMinutes int      `yaml:"timeout_minutes"`
	CPULimit       float64  `yaml:"cpu_limit"`
	MemoryLimitMB  int64    `yaml:"memory_limit_mb"`
}

// Timeout is the wall-clock limit for a single trainer invocation.
func (t Trainer) Timeout() time.Duration {
	return time.Duration(t.TimeoutMinutes) * time.Minute
}

// AnalysisPath is the directory holding the aggregate report.
func (c *Config) AnalysisPath() string {
	return filepath.Join(c.ProjectDir, c.AnalysisDir)
}

// ReportPath is the aggregate report file.
func (c *Config) ReportPath() string {
	return filepath.Join(c.AnalysisPath(), c.OutputFile)
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := validate(&cfg, filepath.Dir(path)); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}

// validate fills defaults and resolves relative paths against base, the
// directory the config file lives in.
func validate(cfg *Config, base string) error {
	if cfg.ProjectDir == "" {
		cfg.ProjectDir = "."
	}
	cfg.ProjectDir = resolve(base, cfg.ProjectDir)
	if cfg.DataDir == "" {
		cfg.DataDir = filepath.Join("..", "data")
	}
	cfg.DataDir = resolve(cfg.ProjectDir, cfg.DataDir)
	if cfg.AnalysisDir == "" {
		cfg.AnalysisDir = "analysis"
	}
	if cfg.OutputFile == "" {
		cfg.OutputFile = "output.txt"
	}
	if cfg.Ledger == "" {
		cfg.Ledger = filepath.Join(".sweep", "ledger.db")
	}
	cfg.Ledger = resolve(cfg.ProjectDir, cfg.Ledger)
	if cfg.Parallel < 1 {
		cfg.Parallel = 1
	}

	if err := cfg.Statepoints.Validate(); err != nil {
		return fmt.Errorf("statepoints: %w", err)
	}

	t := &cfg.Trainer
	if t.Python == "" {
		t.Python = "python"
	}
	if t.Module == "" {
		t.Module = "plmnist"
	}
	if t.AttackModule == "" {
		t.AttackModule = t.Module + ".fgsm"
	}
	if t.DownloadModule == "" {
		t.DownloadModule = t.Module + ".download"
	}
	if t.ExtraFlags == nil {
		t.ExtraFlags = []string{"--no_dhash", "--no_fgsm"}
	}
	if t.EnvFile != "" {
		t.EnvFile = resolve(base, t.EnvFile)
	}
	if t.TimeoutMinutes < 0 {
		return fmt.Errorf("trainer: timeout_minutes must not be negative")
	}
	if t.TimeoutMinutes == 0 {
		t.TimeoutMinutes = 60
	}
	if t.CPULimit < 0 || t.MemoryLimitMB < 0 {
		return fmt.Errorf("trainer: resource limits must not be negative")
	}
	if t.Image == "" && (t.CPULimit > 0 || t.MemoryLimitMB > 0) {
		return fmt.Errorf("trainer: resource limits require an image")
	}
	return nil
}

func resolve(base, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	abs, err := filepath.Abs(filepath.Join(base, p))
	if err != nil {
		return filepath.Join(base, p)
	}
	return abs
}
