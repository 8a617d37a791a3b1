package cli

import (
	"fmt"
	"strings"

	"github.com/ralt/pyrene/internal/models"
	"github.com/ralt/pyrene/internal/network"
	"github.com/ralt/pyrene/internal/repos"
	"github.com/ralt/pyrene/internal/runner"
	"github.com/ralt/pyrene/internal/shell"
	"github.com/ralt/pyrene/internal/utils"
	"github.com/spf13/cobra"
)

// Default locations, relative to the home directory
const (
	DefaultStorePath = "~/.pyrene"
	DefaultPipConf   = "~/.pip/pip.conf"
)

// app holds what the commands share once flags are parsed
type app struct {
	config models.Config
	stage  shell.Stage
	shell  *shell.Shell
}

// NewRootCmd creates the root command. Without arguments it runs the
// interactive shell; every shell command is also a subcommand.
func NewRootCmd(stage shell.Stage) *cobra.Command {
	a := &app{stage: stage}

	rootCmd := &cobra.Command{
		Use:   "pyrene",
		Short: "Move Python packages between package repositories",
		Long: `Pyrene manages named Python package repositories and copies packages
between them.

Repository types:
  - directory (a local directory of distribution files, can be served)
  - http      (a remote package index)

Run without arguments for an interactive shell.`,
		Version:       determineVersion(),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogging(a.config.Verbose, utils.ExpandUser(a.config.LogFile))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.init(cmd); err != nil {
				return err
			}
			return a.shell.Loop(cmd.Context(), cmd.InOrStdin())
		},
	}

	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&a.config.Verbose, "verbose", "v", false, "Enable verbose logging")
	flags.StringVar(&a.config.LogFile, "log-file", "", "Write logs to this file, rotated, instead of stderr")
	flags.StringVar(&a.config.StorePath, "repo-store", DefaultStorePath, "File holding repository definitions")
	flags.StringVar(&a.config.PipConf, "pip-conf", DefaultPipConf, "pip configuration written by write_pip_conf_for")
	flags.StringVar(&a.config.Pip, "pip", "pip", "Installer used to download packages")
	flags.StringVar(&a.config.Twine, "twine", "twine", "Publisher used to upload to http repositories")

	for _, info := range shell.Commands() {
		rootCmd.AddCommand(newShellCmd(a, info))
	}

	return rootCmd
}

// init builds the registry and the shell from the parsed flags, once
func (a *app) init(cmd *cobra.Command) error {
	if a.shell != nil {
		return nil
	}
	if err := validateConfig(&a.config); err != nil {
		return err
	}

	n, err := network.New(a.config.StorePath, repos.Options{
		Runner: &runner.Exec{Stdout: cmd.OutOrStdout(), Stderr: cmd.ErrOrStderr()},
		Out:    cmd.OutOrStdout(),
		Pip:    a.config.Pip,
		Twine:  a.config.Twine,
	})
	if err != nil {
		return err
	}

	a.shell = shell.New(shell.Config{
		Network: n,
		Stage:   a.stage,
		Out:     cmd.OutOrStdout(),
		PipConf: a.config.PipConf,
	})
	return nil
}

func validateConfig(config *models.Config) error {
	if config.StorePath == "" {
		return models.NewError(models.ErrInvalidCommand, "", fmt.Errorf("repo-store is required"))
	}
	if config.PipConf == "" {
		return models.NewError(models.ErrInvalidCommand, "", fmt.Errorf("pip-conf is required"))
	}

	config.StorePath = utils.ExpandUser(config.StorePath)
	config.PipConf = utils.ExpandUser(config.PipConf)
	return nil
}

// newShellCmd exposes one shell command as a one-shot subcommand
func newShellCmd(a *app, info shell.CommandInfo) *cobra.Command {
	short, _, _ := strings.Cut(info.Help, "\n")

	return &cobra.Command{
		Use:   info.Usage,
		Short: short,
		Long:  info.Help,
		// arity is checked by the shell so both front ends report it alike
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.init(cmd); err != nil {
				return err
			}
			return a.shell.Run(cmd.Context(), info.Name, args)
		},
		ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
			if err := a.init(cmd); err != nil {
				return nil, cobra.ShellCompDirectiveError
			}
			candidates := a.shell.Complete(info.Name, args, toComplete)

			switch {
			case info.Name == "copy":
				return candidates, cobra.ShellCompDirectiveNoSpace
			case info.Name == "set" && len(args) > 0 && !strings.Contains(toComplete, "="):
				return candidates, cobra.ShellCompDirectiveNoSpace | cobra.ShellCompDirectiveNoFileComp
			default:
				return candidates, cobra.ShellCompDirectiveNoFileComp
			}
		},
	}
}
