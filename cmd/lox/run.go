package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/deepnoodle-ai/lox"
	"github.com/spf13/cobra"
)

func (a *app) runHandler(cmd *cobra.Command, args []string) error {
	if a.shouldRunRepl(cmd, args) {
		return a.runRepl()
	}

	code, err := a.readSource(cmd, args, true)
	if err != nil {
		return err
	}

	result, err := lox.Interpret(code, a.loxOptions()...)
	if err != nil {
		a.logger.Debug().Str("result", result.String()).Msg("interpret failed")
		return &exitError{code: result.ExitCode(), err: err}
	}
	return nil
}

// shouldRunRepl reports whether no input source was given and the REPL is
// allowed. Piped input with no flags is treated as a program, not a session.
func (a *app) shouldRunRepl(cmd *cobra.Command, args []string) bool {
	if a.v.GetBool("no-repl") || a.v.GetBool("stdin") {
		return false
	}
	if f := cmd.Flags().Lookup("code"); f != nil && f.Changed {
		return false
	}
	if len(args) > 0 {
		return false
	}
	return a.interactive()
}

// readSource determines the code to run. There are three possibilities:
//  1. --code <code>
//  2. --stdin, or no source at all when stdin is not a terminal
//  3. path as args[0]
func (a *app) readSource(cmd *cobra.Command, args []string, stdinFallback bool) (string, error) {
	var codeFlagSet bool
	if f := cmd.Flags().Lookup("code"); f != nil && f.Changed {
		codeFlagSet = true
	}
	stdinFlagSet := a.v.GetBool("stdin")
	pathSupplied := len(args) > 0

	count := 0
	for _, set := range []bool{codeFlagSet, stdinFlagSet, pathSupplied} {
		if set {
			count++
		}
	}
	if count > 1 {
		return "", usageError(errors.New("multiple input sources specified"))
	}

	switch {
	case pathSupplied:
		data, err := os.ReadFile(args[0])
		if err != nil {
			return "", &exitError{code: lox.ExitIOError, err: fmt.Errorf("could not read file %q: %w", args[0], err)}
		}
		return string(data), nil
	case codeFlagSet:
		return a.v.GetString("code"), nil
	case stdinFlagSet || stdinFallback:
		data, err := io.ReadAll(a.stdin)
		if err != nil {
			return "", &exitError{code: lox.ExitIOError, err: err}
		}
		return string(data), nil
	}
	return "", usageError(errors.New("no input provided"))
}

func (a *app) versionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  maxArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			format := strings.ToLower(a.v.GetString("output"))
			switch format {
			case "json":
				info, err := a.marshalJSON(map[string]any{
					"version": version,
					"commit":  commit,
					"date":    date,
				})
				if err != nil {
					return err
				}
				fmt.Fprintln(a.stdout, string(info))
			case "", "text":
				fmt.Fprintln(a.stdout, version)
			default:
				return usageError(fmt.Errorf("unknown output format: %s", format))
			}
			return nil
		},
	}
	cmd.Flags().StringP("output", "o", "text", "Output format (text, json)")
	return cmd
}

func (a *app) marshalJSON(v any) ([]byte, error) {
	if a.v.GetBool("no-color") || !isTerminal(a.stdout) {
		return json.MarshalIndent(v, "", "  ")
	}
	return prettyMarshal(v)
}
