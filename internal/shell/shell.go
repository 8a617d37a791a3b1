// Package shell is the command surface of pyrene: an explicit table of
// commands, shared by the interactive loop and one-shot invocation.
package shell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/google/shlex"
	"github.com/ralt/pyrene/internal/models"
	"github.com/ralt/pyrene/internal/repos"
	"github.com/ralt/pyrene/internal/utils"
	"github.com/sirupsen/logrus"
)

// Prompt is shown before every interactive line
const Prompt = "Pyrene: "

const intro = `
    Pyrene provides tools to work with different repos of python packages.

    e.g. one might use three different repos:

     - pypi.org              (globally shared)
     - private index         (project/company specific,
                              pip needs to be configured to fetch from here)
     - developer cache       (~/.pip/local)
`

// ErrExit is returned by Execute for the commands that end the session
var ErrExit = errors.New("exit")

// Network is the registry the shell drives
type Network interface {
	Reload() error
	GetRepo(name string) (repos.Repository, error)
	DirectoryRepo(path string) repos.Repository
	Define(name string) error
	Forget(name string) error
	Set(name, key, value string) error
	Unset(name, key string) error
	RepoNames() []string
	GetAttributes(name string) (map[string]string, error)
}

// Stage is the staging directory packages pass through during copy
type Stage interface {
	Path() string
	Files() ([]string, error)
	Clear() error
}

// Config holds the collaborators of a Shell
type Config struct {
	Network Network
	Stage   Stage
	// Out receives command output
	Out io.Writer
	// PipConf is the file written by write_pip_conf_for
	PipConf string
}

// Shell executes pyrene commands
type Shell struct {
	network   Network
	stage     Stage
	out       io.Writer
	pipConf   string
	writeFile func(path string, data []byte, perm os.FileMode) error
	commands  map[string]*command
}

// New creates a shell
func New(cfg Config) *Shell {
	s := &Shell{
		network:   cfg.Network,
		stage:     cfg.Stage,
		out:       cfg.Out,
		pipConf:   cfg.PipConf,
		writeFile: utils.WriteFile,
	}
	if s.out == nil {
		s.out = os.Stdout
	}
	s.commands = commandTable()
	return s
}

// CommandInfo describes one command for help and for the cli layer
type CommandInfo struct {
	Name  string
	Usage string
	Help  string
}

// Commands lists the commands that make sense as one-shot invocations,
// sorted by name
func Commands() []CommandInfo {
	var infos []CommandInfo
	for name, cmd := range commandTable() {
		if cmd.interactiveOnly {
			continue
		}
		infos = append(infos, CommandInfo{Name: name, Usage: cmd.usage, Help: cmd.help})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// Run executes the named command with already tokenised arguments
func (s *Shell) Run(ctx context.Context, name string, args []string) error {
	cmd, ok := s.commands[name]
	if !ok {
		return models.NewError(models.ErrInvalidCommand, "", fmt.Errorf("unknown command %q, try help", name))
	}
	if len(args) < cmd.minArgs || (cmd.maxArgs >= 0 && len(args) > cmd.maxArgs) {
		return models.NewError(models.ErrInvalidCommand, "", fmt.Errorf("usage: %s", cmd.usage))
	}
	return cmd.run(s, ctx, args)
}

// Execute tokenises one command line and runs it. An empty line does
// nothing.
func (s *Shell) Execute(ctx context.Context, line string) error {
	words, err := shlex.Split(line)
	if err != nil {
		return models.NewError(models.ErrInvalidCommand, "", err)
	}
	if len(words) == 0 {
		return nil
	}
	return s.Run(ctx, words[0], words[1:])
}

// Loop reads commands from in until EOF, bye or ctx is done. The store is
// reloaded before every command. A failing command is reported and the loop
// goes on.
func (s *Shell) Loop(ctx context.Context, in io.Reader) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	fmt.Fprint(s.out, intro)

	lines := readLines(ctx, in)
	for {
		if ctx.Err() != nil {
			s.farewell()
			return nil
		}
		fmt.Fprint(s.out, Prompt)

		var next input
		var ok bool
		select {
		case <-ctx.Done():
			s.farewell()
			return nil
		case next, ok = <-lines:
		}
		if !ok || next.err != nil {
			s.farewell()
			return next.err
		}

		line := strings.TrimSpace(next.line)
		if line == "" {
			continue
		}

		if err := s.network.Reload(); err != nil {
			s.report(err)
			continue
		}

		err := s.Execute(ctx, line)
		if errors.Is(err, ErrExit) {
			return nil
		}
		if err != nil {
			s.report(err)
		}
	}
}

type input struct {
	line string
	err  error
}

// readLines sends the lines of in until EOF, a read error or ctx is done,
// then closes the channel. A blocked read does not hold up the caller.
func readLines(ctx context.Context, in io.Reader) <-chan input {
	ch := make(chan input)
	go func() {
		defer close(ch)
		send := func(i input) bool {
			select {
			case ch <- i:
				return true
			case <-ctx.Done():
				return false
			}
		}

		lines := bufio.NewScanner(in)
		for lines.Scan() {
			if !send(input{line: lines.Text()}) {
				return
			}
		}
		if err := lines.Err(); err != nil {
			send(input{err: err})
		}
	}()
	return ch
}

func (s *Shell) farewell() {
	fmt.Fprintln(s.out)
	fmt.Fprintln(s.out, bye)
}

func (s *Shell) report(err error) {
	logrus.Debugf("Command failed: %+v", err)
	fmt.Fprintf(s.out, "Error: %v\n", err)
}
