// Package app builds the cobra command line of a macropad binary: composed
// flag groups, config file and environment binding, then a run function.
package app

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/macropad-io/macropad/pkg/log"
)

// RunFunc runs the application's main loop after flags are parsed.
type RunFunc func() error

// CliOptions is the composed option set of one binary.
type CliOptions interface {
	// AddFlags registers all flag groups on the command's FlagSet.
	AddFlags(fs *pflag.FlagSet)

	// Complete fills in derived fields after flags and config are bound.
	Complete() error

	// Validate checks the final option values.
	Validate() error
}

// App is one runnable binary.
type App struct {
	name        string
	short       string
	description string
	options     CliOptions
	runFunc     RunFunc
	cmdArgs     cobra.PositionalArgs

	cmd *cobra.Command
}

// Option configures an App.
type Option func(*App)

// WithDescription sets the long help text.
func WithDescription(desc string) Option {
	return func(a *App) { a.description = desc }
}

// WithOptions attaches the binary's flag groups.
func WithOptions(opts CliOptions) Option {
	return func(a *App) { a.options = opts }
}

// WithRunFunc sets the function executed after parsing.
func WithRunFunc(fn RunFunc) Option {
	return func(a *App) { a.runFunc = fn }
}

// WithDefaultValidArgs rejects any positional arguments.
func WithDefaultValidArgs() Option {
	return func(a *App) {
		a.cmdArgs = cobra.NoArgs
	}
}

// NewApp builds an application with the given name and one-line summary.
func NewApp(name, short string, opts ...Option) *App {
	a := &App{name: name, short: short}
	for _, o := range opts {
		o(a)
	}
	a.buildCommand()
	return a
}

// Command exposes the underlying cobra command, mainly so subcommands can
// be attached.
func (a *App) Command() *cobra.Command {
	return a.cmd
}

// Run executes the application and exits the process on error.
func (a *App) Run() {
	if err := a.cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func (a *App) buildCommand() {
	cmd := &cobra.Command{
		Use:           a.name,
		Short:         a.short,
		Long:          a.description,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          a.cmdArgs,
	}

	// Flags live on the persistent set so subcommands inherit them along
	// with the config binding below.
	if a.options != nil {
		a.options.AddFlags(cmd.PersistentFlags())
	}
	addConfigFlag(a.name, cmd.PersistentFlags())

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if err := bindConfig(a.name, cmd.Root().PersistentFlags(), a.options); err != nil {
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
		return nil
	}
	cmd.PersistentPostRun = func(cmd *cobra.Command, args []string) {
		log.Sync()
	}

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		if a.runFunc != nil {
			return a.runFunc()
		}
		return cmd.Help()
	}

	a.cmd = cmd
}
