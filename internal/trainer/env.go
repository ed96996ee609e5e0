package trainer

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/signalnine/sweep/internal/config"
)

// LoadEnv reads KEY=VALUE pairs for the trainer. An empty path yields no
// variables.
func LoadEnv(path string) (map[string]string, error) {
	if path == "" {
		return map[string]string{}, nil
	}
	env, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("reading env file %s: %w", path, err)
	}
	return env, nil
}

// New builds the executor selected by cfg: a container when an image is
// configured, a local subprocess otherwise.
func New(cfg config.Trainer) (Executor, error) {
	env, err := LoadEnv(cfg.EnvFile)
	if err != nil {
		return nil, err
	}
	if cfg.Image != "" {
		return &ContainerExecutor{
			Image:       cfg.Image,
			Python:      cfg.Python,
			Env:         env,
			Timeout:     cfg.Timeout(),
			CPULimit:    cfg.CPULimit,
			MemoryLimit: cfg.MemoryLimitMB * 1024 * 1024,
		}, nil
	}
	return &LocalExecutor{
		Python:  cfg.Python,
		Env:     env,
		Timeout: cfg.Timeout(),
	}, nil
}
