package main

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/deepnoodle-ai/lox"
	"github.com/mitchellh/go-homedir"
)

// runRepl reads one line at a time and runs it in a single interpreter, so
// that globals persist across lines. Errors are reported and the session
// continues.
func (a *app) runRepl() error {
	interp := lox.NewInterpreter(a.loxOptions()...)

	history := a.openHistory()
	if history != nil {
		defer history.Close()
	}

	fmt.Fprintf(a.stdout, "Lox %s\n", version)
	fmt.Fprintln(a.stdout, yellow("Type :help for commands"))

	scanner := bufio.NewScanner(a.stdin)
	for {
		fmt.Fprint(a.stdout, cyan("> "))
		if !scanner.Scan() {
			fmt.Fprintln(a.stdout)
			return scanner.Err()
		}
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if history != nil {
			fmt.Fprintln(history, line)
		}
		if strings.HasPrefix(trimmed, ":") {
			if quit := a.replCommand(interp, trimmed); quit {
				return nil
			}
			continue
		}
		if _, err := interp.Interpret(line); err != nil {
			a.reportError(err)
		}
	}
}

// replCommand handles a colon command and reports whether to quit.
func (a *app) replCommand(interp *lox.Interpreter, input string) bool {
	fields := strings.Fields(input)
	switch fields[0] {
	case ":help", ":h", ":?":
		fmt.Fprintln(a.stdout, "  :help, :h, :?      Show this help")
		fmt.Fprintln(a.stdout, "  :globals, :g       List global variables")
		fmt.Fprintln(a.stdout, "  :print, :p <name>  Show the value of a global")
		fmt.Fprintln(a.stdout, "  :stats             Show heap statistics")
		fmt.Fprintln(a.stdout, "  :exit, :quit, :q   Exit the REPL")
	case ":globals", ":g":
		names := interp.GlobalNames()
		sort.Strings(names)
		for _, name := range names {
			s, _ := interp.Global(name)
			fmt.Fprintf(a.stdout, "  %s = %s\n", name, s)
		}
	case ":print", ":p":
		if len(fields) != 2 {
			a.printError("usage: :print <name>")
			break
		}
		s, ok := interp.Global(fields[1])
		if !ok {
			a.printError(fmt.Sprintf("Undefined variable '%s'.", fields[1]))
			break
		}
		fmt.Fprintln(a.stdout, s)
	case ":stats":
		stats := interp.VM().Stats()
		fmt.Fprintf(a.stdout, "  objects live:    %d\n", stats.ObjectsLive)
		fmt.Fprintf(a.stdout, "  bytes allocated: %d\n", stats.BytesAllocated)
		fmt.Fprintf(a.stdout, "  next gc:         %d\n", stats.NextGC)
		fmt.Fprintf(a.stdout, "  collections:     %d\n", stats.Collections)
		fmt.Fprintf(a.stdout, "  objects freed:   %d\n", stats.ObjectsFreed)
	case ":exit", ":quit", ":q":
		return true
	default:
		a.printError(fmt.Sprintf("unknown command %s (try :help)", fields[0]))
	}
	return false
}

// openHistory opens the history file for appending, or returns nil when
// history is disabled or the file cannot be opened.
func (a *app) openHistory() *os.File {
	path := a.v.GetString("history")
	if path == "" {
		return nil
	}
	expanded, err := homedir.Expand(path)
	if err != nil {
		a.logger.Debug().Err(err).Str("path", path).Msg("history disabled")
		return nil
	}
	f, err := os.OpenFile(expanded, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		a.logger.Debug().Err(err).Str("path", expanded).Msg("history disabled")
		return nil
	}
	return f
}
