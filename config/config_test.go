package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("nonexistent.env")
	require.NoError(t, err)
	require.Equal(t, DefaultWorkerPoolSize, cfg.WorkerPoolSize)
	require.EqualValues(t, DefaultWorkerMemLimit, cfg.WorkerMemLimit)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv(envWorkerPoolSize, "128")
	t.Setenv(envWorkerMemLimit, "104857600")

	cfg, err := Load("nonexistent.env")
	require.NoError(t, err)
	require.Equal(t, 128, cfg.WorkerPoolSize)
	require.EqualValues(t, 104857600, cfg.WorkerMemLimit)
}

func TestLoadRejectsInvalidPoolSize(t *testing.T) {
	t.Setenv(envWorkerPoolSize, "not-a-number")
	_, err := Load("nonexistent.env")
	require.Error(t, err)
}

func TestLoadRejectsNonPositiveMemLimit(t *testing.T) {
	t.Setenv(envWorkerMemLimit, "0")
	_, err := Load("nonexistent.env")
	require.Error(t, err)
}
