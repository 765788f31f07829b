package main

import (
	"fmt"
	"strings"

	"github.com/deepnoodle-ai/lox"
	"github.com/deepnoodle-ai/lox/dis"
	"github.com/spf13/cobra"
)

func (a *app) disCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dis [file]",
		Short: "Disassemble Lox bytecode",
		Args:  maxArgs(1),
		RunE:  a.disHandler,
	}
	f := cmd.Flags()
	f.StringP("code", "c", "", "Code to disassemble")
	f.Bool("stdin", false, "Read code from stdin")
	f.String("func", "", "Function to disassemble")
	f.StringP("output", "o", "text", "Output format (text, table, json)")
	return cmd
}

func (a *app) disHandler(cmd *cobra.Command, args []string) error {
	code, err := a.readSource(cmd, args, false)
	if err != nil {
		return err
	}

	program, err := lox.Compile(code, lox.WithLogger(a.logger))
	if err != nil {
		return &exitError{code: lox.ExitCompileError, err: err}
	}
	listings, err := program.Disassemble()
	if err != nil {
		return err
	}

	// If a function name was provided, disassemble its code only
	if funcName := a.v.GetString("func"); funcName != "" {
		var found []lox.Listing
		for _, l := range listings {
			if l.Name == funcName {
				found = append(found, l)
			}
		}
		if len(found) == 0 {
			return fmt.Errorf("function %q not found", funcName)
		}
		listings = found
	}

	format := strings.ToLower(a.v.GetString("output"))
	switch format {
	case "", "text":
		for i, l := range listings {
			if i > 0 {
				fmt.Fprintln(a.stdout)
			}
			dis.PrintInstructions(a.stdout, l.Name, l.Instructions)
		}
	case "table":
		for i, l := range listings {
			if i > 0 {
				fmt.Fprintln(a.stdout)
			}
			fmt.Fprintf(a.stdout, "%s (arity %d, upvalues %d, %d bytes, %d constants, lines %d-%d)\n",
				cyan(l.Name), l.Arity, l.Upvalues,
				l.Stats.ByteCount, l.Stats.ConstantCount, l.Stats.FirstLine, l.Stats.LastLine)
			if err := dis.PrintTable(l.Instructions, a.stdout); err != nil {
				return err
			}
		}
	case "json":
		data, err := a.marshalJSON(listings)
		if err != nil {
			return err
		}
		fmt.Fprintln(a.stdout, string(data))
	default:
		return usageError(fmt.Errorf("unknown output format: %s", format))
	}
	return nil
}
