package main

import (
	"context"
	"fmt"

	"github.com/cvsouth/u8node/errs"
)

// unconfiguredHost is the ScriptHost cmd/u8node wires into module.Loader
// when no scripting engine is built in (the scripting engine itself is a
// non-goal, carried unchanged into this CLI). selftest and signmodule never
// call it; run and eval fail immediately with ErrSessionNoScriptHost.
type unconfiguredHost struct{}

func (unconfiguredHost) Evaluate(ctx context.Context, expr string) (string, error) {
	return "", fmt.Errorf("%w: u8node was built without a scripting engine", errs.ErrSessionNoScriptHost)
}

func (unconfiguredHost) RunMain(ctx context.Context, entryFile string, argv []string) error {
	return fmt.Errorf("%w: u8node was built without a scripting engine", errs.ErrSessionNoScriptHost)
}
