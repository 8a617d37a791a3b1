package shell

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/ralt/pyrene/internal/models"
	"github.com/ralt/pyrene/internal/repos"
	"github.com/ralt/pyrene/internal/utils"
	"github.com/sirupsen/logrus"
)

const bye = "Bye!"

// Preset values
const (
	PyPIDownloadURL = "https://pypi.org/simple/"
	PyPIUploadURL   = "https://upload.pypi.org/legacy/"
	PipLocalDir     = "~/.pip/local"
)

type command struct {
	usage   string
	help    string
	minArgs int
	// maxArgs is -1 for no limit
	maxArgs         int
	interactiveOnly bool
	run             func(s *Shell, ctx context.Context, args []string) error
	complete        func(s *Shell, args []string, toComplete string) []string
}

func commandTable() map[string]*command {
	exit := func(name string) *command {
		return &command{
			usage:           name,
			help:            "Exit the shell.",
			maxArgs:         0,
			interactiveOnly: true,
			run:             (*Shell).exit,
		}
	}

	return map[string]*command{
		"define": {
			usage:    "define REPO",
			help:     "Define a new, empty package repository.",
			minArgs:  1,
			maxArgs:  1,
			run:      (*Shell).define,
			complete: (*Shell).CompleteRepoName,
		},
		"forget": {
			usage:    "forget REPO",
			help:     "Drop the definition of a repository.",
			minArgs:  1,
			maxArgs:  1,
			run:      (*Shell).forget,
			complete: (*Shell).CompleteRepoName,
		},
		"set": {
			usage: "set REPO KEY=VALUE [KEY=VALUE...]",
			help: `Set repository attributes.

  set developer-repo type=directory
  set developer-repo directory=~/packages

  set company-repo type=http
  set company-repo download_url=https://...
  set company-repo upload_url=https://...
  set company-repo username=user
  set company-repo password=pass`,
			minArgs:  2,
			maxArgs:  -1,
			run:      (*Shell).set,
			complete: (*Shell).CompleteSet,
		},
		"unset": {
			usage:    "unset REPO KEY [KEY...]",
			help:     "Remove repository attributes. Removing an attribute that is not set does nothing.",
			minArgs:  2,
			maxArgs:  -1,
			run:      (*Shell).unset,
			complete: (*Shell).CompleteUnset,
		},
		"list": {
			usage:   "list",
			help:    "List known repositories.",
			maxArgs: 0,
			run:     (*Shell).list,
		},
		"show": {
			usage:    "show REPO",
			help:     "Show repository attributes, marking the ones not set and the ones not recognised.",
			minArgs:  1,
			maxArgs:  1,
			run:      (*Shell).show,
			complete: (*Shell).CompleteRepoName,
		},
		"copy": {
			usage: "copy [LOCAL-FILE...] [REPO:PACKAGE-SPEC...] DESTINATION",
			help: `Copy packages between repositories.

DESTINATION is either REPO: or a local directory. A PACKAGE-SPEC without
REPO: is fetched from the last repository named before it. Local files
given before any repository are uploaded as they are.`,
			minArgs:  2,
			maxArgs:  -1,
			run:      (*Shell).copy,
			complete: (*Shell).CompleteCopy,
		},
		"write_pip_conf_for": {
			usage:    "write_pip_conf_for REPO",
			help:     "Set up pip to install from REPO by writing pip.conf.",
			minArgs:  1,
			maxArgs:  1,
			run:      (*Shell).writePipConf,
			complete: (*Shell).CompleteRepoName,
		},
		"use": {
			usage:    "use REPO",
			help:     "Same as write_pip_conf_for.",
			minArgs:  1,
			maxArgs:  1,
			run:      (*Shell).writePipConf,
			complete: (*Shell).CompleteRepoName,
		},
		"setup_for_pypi_python_org": {
			usage:    "setup_for_pypi_python_org REPO",
			help:     "Configure REPO as the public Python Package Index, defining it if needed.",
			minArgs:  1,
			maxArgs:  1,
			run:      (*Shell).setupForPyPI,
			complete: (*Shell).CompleteRepoName,
		},
		"setup_for_pip_local": {
			usage:    "setup_for_pip_local REPO",
			help:     "Configure REPO as the developer cache in " + PipLocalDir + ", defining it if needed.",
			minArgs:  1,
			maxArgs:  1,
			run:      (*Shell).setupForPipLocal,
			complete: (*Shell).CompleteRepoName,
		},
		"serve": {
			usage:    "serve REPO",
			help:     "Serve REPO over HTTP until interrupted.",
			minArgs:  1,
			maxArgs:  1,
			run:      (*Shell).serve,
			complete: (*Shell).CompleteRepoName,
		},
		"help": {
			usage:           "help [COMMAND]",
			help:            "List commands, or describe one.",
			maxArgs:         1,
			interactiveOnly: true,
			run:             (*Shell).help,
		},
		"EOF": exit("EOF"),
		"bye": exit("bye"),
	}
}

func (s *Shell) define(_ context.Context, args []string) error {
	return s.network.Define(args[0])
}

func (s *Shell) forget(_ context.Context, args []string) error {
	return s.network.Forget(args[0])
}

func (s *Shell) set(_ context.Context, args []string) error {
	name := args[0]
	for _, assignment := range args[1:] {
		key, value, ok := strings.Cut(assignment, "=")
		if !ok || key == "" {
			return models.NewError(models.ErrInvalidCommand, name, fmt.Errorf("expected KEY=VALUE, got %q", assignment))
		}
		if err := s.network.Set(name, key, value); err != nil {
			return err
		}
	}
	return nil
}

func (s *Shell) unset(_ context.Context, args []string) error {
	name := args[0]
	for _, key := range args[1:] {
		if err := s.network.Unset(name, key); err != nil {
			return err
		}
	}
	return nil
}

func (s *Shell) list(context.Context, []string) error {
	fmt.Fprintln(s.out, "Known repos:")
	for _, name := range s.network.RepoNames() {
		fmt.Fprintf(s.out, "    %s\n", name)
	}
	return nil
}

func (s *Shell) show(_ context.Context, args []string) error {
	repo, err := s.network.GetRepo(args[0])
	if err != nil {
		return err
	}
	repo.PrintAttributes(s.out)
	return nil
}

func (s *Shell) writePipConf(_ context.Context, args []string) error {
	repo, err := s.network.GetRepo(args[0])
	if err != nil {
		return err
	}
	conf, err := repo.PipConf()
	if err != nil {
		return err
	}
	if err := s.writeFile(s.pipConf, []byte(conf), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", s.pipConf, err)
	}
	logrus.Infof("pip now installs from %s (%s)", repo.Name(), s.pipConf)
	return nil
}

func (s *Shell) setupForPyPI(_ context.Context, args []string) error {
	return s.preset(args[0], [][2]string{
		{repos.AttrType, repos.TypeHTTP},
		{repos.AttrDownloadURL, PyPIDownloadURL},
		{repos.AttrUploadURL, PyPIUploadURL},
	})
}

func (s *Shell) setupForPipLocal(_ context.Context, args []string) error {
	return s.preset(args[0], [][2]string{
		{repos.AttrType, repos.TypeDirectory},
		{repos.AttrDirectory, utils.ExpandUser(PipLocalDir)},
	})
}

// preset defines name when needed, then sets the attributes in order
func (s *Shell) preset(name string, attributes [][2]string) error {
	if err := s.network.Define(name); err != nil && !models.IsErrorType(err, models.ErrAlreadyDefined) {
		return err
	}
	for _, kv := range attributes {
		if err := s.network.Set(name, kv[0], kv[1]); err != nil {
			return err
		}
	}
	return nil
}

func (s *Shell) serve(ctx context.Context, args []string) error {
	repo, err := s.network.GetRepo(args[0])
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	return repo.Serve(ctx)
}

func (s *Shell) help(_ context.Context, args []string) error {
	if len(args) == 1 {
		cmd, ok := s.commands[args[0]]
		if !ok {
			return models.NewError(models.ErrInvalidCommand, "", fmt.Errorf("unknown command %q", args[0]))
		}
		fmt.Fprintf(s.out, "%s\n\n%s\n", cmd.usage, cmd.help)
		return nil
	}

	names := make([]string, 0, len(s.commands))
	for name := range s.commands {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(s.out, "Commands:")
	for _, name := range names {
		fmt.Fprintf(s.out, "  %s\n", s.commands[name].usage)
	}
	return nil
}

func (s *Shell) exit(context.Context, []string) error {
	fmt.Fprintln(s.out, bye)
	return ErrExit
}
