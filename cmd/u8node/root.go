package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/cvsouth/u8node/config"
	"github.com/cvsouth/u8node/crypto/rsakey"
	"github.com/cvsouth/u8node/module"
	"github.com/cvsouth/u8node/trust"
)

// publisherKeyPathEnv names the environment variable pointing at the
// compiled-in publisher's public key, marshaled via rsakey.Marshal. A
// distribution would embed this key at build time; a plain file keeps the
// CLI buildable without one, at the cost of u8core loads always failing
// trust until an operator points it at a real key.
const publisherKeyPathEnv = "U8_PUBLISHER_KEY_PATH"

func loadPublisherKey() (*rsakey.Key, error) {
	path := os.Getenv(publisherKeyPathEnv)
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read publisher key %s: %w", path, err)
	}
	return rsakey.Parse(data)
}

// Version is set at build time via ldflags.
var Version = "dev"

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:     "u8node",
		Short:   "u8node runs and manages u8-format script bundles",
		Version: Version,
	}
	root.AddCommand(newRunCommand())
	root.AddCommand(newEvalCommand())
	root.AddCommand(newSelftestCommand())
	root.AddCommand(newSignModuleCommand())
	return root
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

// newLoader builds a module.Loader wired to the operator's trust file and
// an interactive prompter when stdin is a terminal, a non-interactive one
// otherwise — a non-interactive run treats an unresolved trust prompt as a
// "no" rather than blocking forever on input that will never arrive.
func newLoader(logger *slog.Logger) (*module.Loader, error) {
	cfg, err := config.Load(".env")
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger.Debug("loaded config", "worker_pool_size", cfg.WorkerPoolSize, "worker_mem_limit", cfg.WorkerMemLimit)

	ts, err := trust.Load()
	if err != nil {
		return nil, fmt.Errorf("load trust file: %w", err)
	}

	publisherKey, err := loadPublisherKey()
	if err != nil {
		return nil, err
	}

	var prompter trust.Prompter = trust.NonInteractivePrompter{}
	if isatty.IsTerminal(os.Stdin.Fd()) {
		prompter = trust.NewTTYPrompter()
	}

	return module.NewLoader(publisherKey, ts, prompter, nil, unconfiguredHost{}), nil
}
