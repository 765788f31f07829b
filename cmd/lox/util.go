package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/deepnoodle-ai/lox/errz"
	"github.com/fatih/color"
	"github.com/hokaccha/go-prettyjson"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

var (
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
)

func (a *app) printError(msg string) {
	fmt.Fprintln(a.stderr, red(msg))
}

// reportError prints err and, for runtime errors that carry one, the
// suggested fix.
func (a *app) reportError(err error) {
	a.printError(err.Error())
	var rerr *errz.RuntimeError
	if errors.As(err, &rerr) && rerr.Hint != "" {
		fmt.Fprintln(a.stderr, yellow(rerr.Hint))
	}
}

func isTerminalIO() bool {
	stdin := os.Stdin.Fd()
	stdout := os.Stdout.Fd()
	inTerm := isatty.IsTerminal(stdin) || isatty.IsCygwinTerminal(stdin)
	outTerm := isatty.IsTerminal(stdout) || isatty.IsCygwinTerminal(stdout)
	return inTerm && outTerm
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func prettyMarshal(v any) ([]byte, error) {
	return prettyjson.Marshal(v)
}

// newLogger builds the console logger written to stderr. Tracing lowers the
// level so that per-instruction events are emitted.
func newLogger(w io.Writer, level string, trace bool) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("invalid log level %q", level)
	}
	if trace {
		lvl = zerolog.TraceLevel
	}
	if lvl == zerolog.TraceLevel {
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	}
	out := zerolog.ConsoleWriter{
		Out:        w,
		NoColor:    color.NoColor || !isTerminal(w),
		TimeFormat: "15:04:05.000",
	}
	return zerolog.New(out).Level(lvl).With().Timestamp().Logger(), nil
}
