// Package lox runs Lox programs on a bytecode virtual machine.
//
// The simplest entry point is Interpret, which compiles and runs a program
// in a fresh VM:
//
//	result, err := lox.Interpret(`print "hello";`)
//	os.Exit(result.ExitCode())
//
// An Interpreter keeps one VM alive so that globals persist from one call to
// the next, as a REPL needs.
package lox

import (
	"github.com/deepnoodle-ai/lox/compiler"
	"github.com/deepnoodle-ai/lox/vm"
)

// Result is the outcome of interpreting a program.
type Result int

const (
	// ResultOK means the program compiled and ran to completion.
	ResultOK Result = iota
	// ResultCompileError means the program did not compile and never ran.
	ResultCompileError
	// ResultRuntimeError means the program failed while running.
	ResultRuntimeError
)

// Process exit codes for each Result, and for the failures of a command line
// driver that happen before any Lox code runs.
const (
	ExitOK           = 0
	ExitUsage        = 64
	ExitCompileError = 65
	ExitRuntimeError = 70
	ExitIOError      = 74
)

func (r Result) String() string {
	switch r {
	case ResultOK:
		return "ok"
	case ResultCompileError:
		return "compile error"
	case ResultRuntimeError:
		return "runtime error"
	default:
		return "unknown"
	}
}

// ExitCode returns the conventional process exit code for the result.
func (r Result) ExitCode() int {
	switch r {
	case ResultCompileError:
		return ExitCompileError
	case ResultRuntimeError:
		return ExitRuntimeError
	default:
		return ExitOK
	}
}

// Classify maps an error returned by this package to a Result. A nil error
// is ResultOK; anything that is not a compile error counts as a runtime
// error.
func Classify(err error) Result {
	if err == nil {
		return ResultOK
	}
	if len(compiler.Errors(err)) > 0 {
		return ResultCompileError
	}
	return ResultRuntimeError
}

// Interpret compiles and runs source in a new VM.
func Interpret(source string, opts ...Option) (Result, error) {
	o := collectOptions(opts...)
	err := vm.New(o.vmOpts()...).Interpret(source)
	return Classify(err), err
}
