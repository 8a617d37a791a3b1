// Package runnertest provides a Runner that records commands instead of
// running them.
package runnertest

import (
	"context"

	"github.com/ralt/pyrene/internal/runner"
)

// Recorder records every command. Hook, when set, runs in place of the
// process and its error is returned.
type Recorder struct {
	Commands []runner.Command
	Hook     func(cmd runner.Command) error
}

// Run implements runner.Runner
func (r *Recorder) Run(_ context.Context, cmd runner.Command) error {
	r.Commands = append(r.Commands, cmd)
	if r.Hook != nil {
		return r.Hook(cmd)
	}
	return nil
}
