// Package app builds the service command: flags grouped by section, a YAML
// config file, environment overrides and an optional reload hook.
//
// Precedence, lowest first: option defaults, config file, environment
// (prefix derived from the app name), explicitly set flags.
package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kart-io/version"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kart-io/sentinel-rag/pkg/infra/app/cliflag"
	"github.com/kart-io/sentinel-rag/pkg/infra/config"
	options "github.com/kart-io/sentinel-rag/pkg/options/app"
)

// App is a runnable service command.
type App struct {
	name        string
	description string
	options     options.CliOptions
	runFunc     RunFunc
	onChange    config.ChangeHandler

	viper *viper.Viper
	cmd   *cobra.Command
}

// RunFunc starts the service once options are loaded and validated.
type RunFunc func() error

// Option configures an App.
type Option func(*App)

// WithName sets the command name. It also names the config file and the
// environment prefix.
func WithName(name string) Option {
	return func(a *App) {
		a.name = name
	}
}

// WithDescription sets the long description. Its first line is used as the
// short description.
func WithDescription(desc string) Option {
	return func(a *App) {
		a.description = desc
	}
}

// WithOptions sets the options loaded from flags, file and environment.
func WithOptions(opts options.CliOptions) Option {
	return func(a *App) {
		a.options = opts
	}
}

// WithRunFunc sets the run function.
func WithRunFunc(run RunFunc) Option {
	return func(a *App) {
		a.runFunc = run
	}
}

// WithConfigChange registers fn to run whenever the loaded config file
// changes on disk. It has no effect when no config file is found.
func WithConfigChange(fn config.ChangeHandler) Option {
	return func(a *App) {
		a.onChange = fn
	}
}

// NewApp creates a new application instance.
func NewApp(opts ...Option) *App {
	a := &App{
		name:  filepath.Base(os.Args[0]),
		viper: viper.New(),
	}
	for _, opt := range opts {
		opt(a)
	}

	a.buildCommand()
	return a
}

func (a *App) buildCommand() {
	short, _, _ := strings.Cut(a.description, "\n")
	cmd := &cobra.Command{
		Use:          a.name,
		Short:        short,
		Long:         a.description,
		RunE:         a.runCommand,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
	}
	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)

	cmd.PersistentFlags().StringP("config", "c", "", "Path to config file")
	version.AddFlags(cmd.PersistentFlags())
	cmd.PersistentFlags().BoolP("help", "h", false, "Help for "+a.name)

	if a.options != nil {
		fss := a.options.Flags()
		for _, name := range fss.Order {
			cmd.Flags().AddFlagSet(fss.FlagSets[name])
		}

		// Print flags grouped by section instead of one long list
		cmd.SetUsageFunc(func(cmd *cobra.Command) error {
			fmt.Fprintf(cmd.OutOrStderr(), "Usage:\n  %s\n", cmd.UseLine())
			cliflag.PrintSections(cmd.OutOrStderr(), fss, 0)
			return nil
		})
		cmd.SetHelpFunc(func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n\nUsage:\n  %s\n", cmd.Long, cmd.UseLine())
			cliflag.PrintSections(cmd.OutOrStdout(), fss, 0)
		})
	}

	a.cmd = cmd
}

func (a *App) runCommand(cmd *cobra.Command, _ []string) error {
	version.PrintAndExitIfRequested()

	if err := a.loadConfig(cmd); err != nil {
		return err
	}

	if a.options != nil {
		if err := a.options.Complete(); err != nil {
			return err
		}
		if err := a.options.Validate(); err != nil {
			return err
		}
	}

	if a.runFunc != nil {
		return a.runFunc()
	}
	return nil
}

// Run executes the command and exits the process on error.
func (a *App) Run() {
	if err := a.cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// Command returns the cobra command.
func (a *App) Command() *cobra.Command {
	return a.cmd
}

// Viper returns the configuration loaded by the command.
func (a *App) Viper() *viper.Viper {
	return a.viper
}
