package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/deepnoodle-ai/lox"
	"github.com/deepnoodle-ai/lox/vm"
	"github.com/fatih/color"
	"github.com/mitchellh/go-homedir"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// app holds the state shared by every command of one CLI invocation.
type app struct {
	v           *viper.Viper
	stdin       io.Reader
	stdout      io.Writer
	stderr      io.Writer
	interactive func() bool
	logger      zerolog.Logger
}

// exitError carries the process exit code for a failed command. A nil err
// means the failure was already reported.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

func usageError(err error) error {
	return &exitError{code: lox.ExitUsage, err: err}
}

func newApp(stdin io.Reader, stdout, stderr io.Writer) *app {
	return &app{
		v:           viper.New(),
		stdin:       stdin,
		stdout:      stdout,
		stderr:      stderr,
		interactive: isTerminalIO,
		logger:      zerolog.Nop(),
	}
}

// execute runs the CLI with args and returns the process exit code.
func execute(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	a := newApp(stdin, stdout, stderr)
	return a.execute(args)
}

func (a *app) execute(args []string) int {
	cmd := a.rootCommand()
	cmd.SetArgs(args)
	cmd.SetIn(a.stdin)
	cmd.SetOut(a.stdout)
	cmd.SetErr(a.stderr)
	return a.exitCode(cmd.Execute())
}

func (a *app) exitCode(err error) int {
	if err == nil {
		return lox.ExitOK
	}
	var ee *exitError
	if errors.As(err, &ee) {
		if ee.err != nil {
			a.reportError(ee.err)
		}
		return ee.code
	}
	a.reportError(err)
	return 1
}

func (a *app) rootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "lox [file]",
		Short:         "Run Lox programs on a bytecode virtual machine",
		Long:          "Run a Lox script, evaluate code given with --code or --stdin, or start an interactive REPL when no input is given.",
		Args:          maxArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.configure(cmd)
		},
		RunE: a.runHandler,
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError(err)
	})

	pf := cmd.PersistentFlags()
	pf.String("config", "", "Config file (default is $HOME/.lox.yaml)")
	pf.Bool("no-color", false, "Disable colored output")
	pf.String("log-level", "warn", "Log level (trace, debug, info, warn, error)")

	f := cmd.Flags()
	f.StringP("code", "c", "", "Code to evaluate")
	f.Bool("stdin", false, "Read code from stdin")
	f.Bool("no-repl", false, "Disable the REPL")
	f.String("history", "~/.lox_history", "REPL history file (empty to disable)")
	addGCFlags(f)
	f.Bool("trace", false, "Log every executed instruction")

	cmd.AddCommand(a.disCommand(), a.versionCommand())
	return cmd
}

func addGCFlags(f *pflag.FlagSet) {
	f.Bool("gc-stress", false, "Collect garbage before every allocation")
	f.Int("gc-threshold", 0, "Heap size in bytes that triggers the first collection")
	f.Float64("gc-grow-factor", 0, "Multiple of the live heap at which the next collection runs")
}

// configure binds flags, environment variables and the config file into
// viper, then applies the global settings.
func (a *app) configure(cmd *cobra.Command) error {
	v := a.v
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	v.SetEnvPrefix("lox")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("no-color", "LOX_NO_COLOR", "NO_COLOR"); err != nil {
		return err
	}

	cfgFile := v.GetString("config")
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err == nil {
			v.AddConfigPath(home)
		}
		v.SetConfigName(".lox")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		// An explicit config file must exist; the default one is optional
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return usageError(fmt.Errorf("config: %w", err))
		}
	}

	if v.GetBool("no-color") {
		color.NoColor = true
	}
	logger, err := newLogger(a.stderr, v.GetString("log-level"), v.GetBool("trace"))
	if err != nil {
		return usageError(err)
	}
	a.logger = logger
	return nil
}

// loxOptions returns the interpreter options selected by flags and config.
func (a *app) loxOptions() []lox.Option {
	v := a.v
	opts := []lox.Option{
		lox.WithOutput(a.stdout),
		lox.WithLogger(a.logger),
	}
	if v.GetBool("gc-stress") {
		opts = append(opts, lox.WithGCStress(true))
	}
	if n := v.GetInt("gc-threshold"); n > 0 {
		opts = append(opts, lox.WithGCThreshold(n))
	}
	if f := v.GetFloat64("gc-grow-factor"); f > 0 {
		opts = append(opts, lox.WithGCGrowFactor(f))
	}
	if v.GetBool("trace") {
		opts = append(opts, lox.WithObserver(vm.NewTraceObserver(a.logger)))
	}
	return opts
}

func maxArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.MaximumNArgs(n)(cmd, args); err != nil {
			return usageError(err)
		}
		return nil
	}
}
