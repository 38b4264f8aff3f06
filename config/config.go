// Package config loads the environment-variable-driven runtime settings for
// cmd/u8node: worker pool sizing and the optional AsyncRuntime memory
// ceiling, with an optional .env file for local/dev overrides.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

const (
	DefaultWorkerPoolSize = 64
	DefaultWorkerMemLimit = 50 << 20 // 50 MiB

	envWorkerPoolSize = "U8_PARAM_WORKERS_POOL_SIZE"
	envWorkerMemLimit = "U8_PARAM_WORKERS_MEM_LIMIT"
)

// Config holds the settings cmd/u8node needs to construct its worker pool
// and session server.
type Config struct {
	WorkerPoolSize int
	WorkerMemLimit int64 // bytes
}

// Load reads settings from the environment, first loading envFile if it
// exists (a missing file is not an error; any other load failure is).
// Unset variables fall back to the package defaults.
func Load(envFile string) (Config, error) {
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			return Config{}, fmt.Errorf("loading %s: %w", envFile, err)
		}
	}

	cfg := Config{
		WorkerPoolSize: DefaultWorkerPoolSize,
		WorkerMemLimit: DefaultWorkerMemLimit,
	}

	if v := os.Getenv(envWorkerPoolSize); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return Config{}, fmt.Errorf("%s must be a positive integer, got %q", envWorkerPoolSize, v)
		}
		cfg.WorkerPoolSize = n
	}

	if v := os.Getenv(envWorkerMemLimit); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			return Config{}, fmt.Errorf("%s must be a positive integer, got %q", envWorkerMemLimit, v)
		}
		cfg.WorkerMemLimit = n
	}

	return cfg, nil
}
