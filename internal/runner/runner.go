// Package runner invokes the external installer and publisher processes.
package runner

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

// Command describes one child process invocation. Env holds variables added
// to (or overriding) the parent environment for this child only.
type Command struct {
	Name string
	Args []string
	Env  map[string]string
}

// String renders the command line, without the environment
func (c Command) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// Environ merges Env over base, sorted by key for reproducibility
func (c Command) Environ(base []string) []string {
	merged := make(map[string]string, len(base)+len(c.Env))
	for _, kv := range base {
		k, v, _ := strings.Cut(kv, "=")
		merged[k] = v
	}
	for k, v := range c.Env {
		merged[k] = v
	}

	environ := make([]string, 0, len(merged))
	for k, v := range merged {
		environ = append(environ, k+"="+v)
	}
	sort.Strings(environ)
	return environ
}

// Runner runs a command to completion
type Runner interface {
	Run(ctx context.Context, cmd Command) error
}

// Exec runs commands as child processes
type Exec struct {
	Stdout io.Writer
	Stderr io.Writer
}

// NewExec returns an Exec wired to the process' stdout and stderr
func NewExec() *Exec {
	return &Exec{Stdout: os.Stdout, Stderr: os.Stderr}
}

// Run starts the command and waits for it. A non-zero exit is an error.
func (e *Exec) Run(ctx context.Context, cmd Command) error {
	logrus.Info(cmd.String())

	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Env = cmd.Environ(os.Environ())
	c.Stdout = e.Stdout
	c.Stderr = e.Stderr

	if err := c.Run(); err != nil {
		return fmt.Errorf("%s failed: %w", cmd.Name, err)
	}
	return nil
}
