// Package dis supports analysis of Lox bytecode by disassembling it.
// This works with the opcodes and operand layouts defined in the `op`
// package.
package dis

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/deepnoodle-ai/lox/bytecode"
	"github.com/deepnoodle-ai/lox/object"
	"github.com/deepnoodle-ai/lox/op"
	"github.com/deepnoodle-ai/lox/value"
	"github.com/fatih/color"
)

// Capture describes one upvalue captured by a closure instruction.
type Capture struct {
	IsLocal bool `json:"is_local"`
	Index   int  `json:"index"`
}

// Instruction represents a single bytecode instruction and its operands.
type Instruction struct {
	Offset     int       `json:"offset"`
	Line       int       `json:"line"`
	Name       string    `json:"name"`
	Opcode     op.Code   `json:"opcode"`
	Operands   []int     `json:"operands,omitempty"`
	Annotation string    `json:"annotation,omitempty"`
	Captures   []Capture `json:"captures,omitempty"`
	Size       int       `json:"size"`
}

// Disassemble returns a parsed representation of the given chunk. The heap
// is used to render constants.
func Disassemble(heap *object.Heap, chunk *bytecode.Chunk) ([]Instruction, error) {
	var instructions []Instruction
	for offset := 0; offset < chunk.Len(); {
		instr, err := decode(heap, chunk, offset)
		if err != nil {
			return nil, err
		}
		instructions = append(instructions, instr)
		offset += instr.Size
	}
	return instructions, nil
}

func decode(heap *object.Heap, chunk *bytecode.Chunk, offset int) (Instruction, error) {
	code := op.Code(chunk.Code[offset])
	info := op.GetInfo(code)
	if info.Name == "" {
		return Instruction{}, fmt.Errorf("unknown opcode %d at offset %d", code, offset)
	}
	instr := Instruction{
		Offset: offset,
		Line:   chunk.LineAt(offset),
		Name:   info.Name,
		Opcode: code,
		Size:   1 + info.OperandCount,
	}
	if offset+instr.Size > chunk.Len() {
		return Instruction{}, fmt.Errorf("truncated %s at offset %d", info.Name, offset)
	}
	operand := func(i int) int { return int(chunk.Code[offset+1+i]) }

	switch info.Layout {
	case op.LayoutByte:
		instr.Operands = []int{operand(0)}
	case op.LayoutConstant:
		instr.Operands = []int{operand(0)}
		instr.Annotation = constant(heap, chunk, operand(0))
	case op.LayoutJump, op.LayoutLoop:
		jump := int(chunk.ReadUint16(offset + 1))
		instr.Operands = []int{jump}
		target := offset + 3 + jump
		if info.Layout == op.LayoutLoop {
			target = offset + 3 - jump
		}
		instr.Annotation = "-> " + strconv.Itoa(target)
	case op.LayoutInvoke:
		instr.Operands = []int{operand(0), operand(1)}
		instr.Annotation = fmt.Sprintf("%s (%d args)", constant(heap, chunk, operand(0)), operand(1))
	case op.LayoutClosure:
		index := operand(0)
		instr.Operands = []int{index}
		instr.Annotation = constant(heap, chunk, index)
		var upvalueCount int
		if index < len(chunk.Constants) {
			if fn, ok := heap.AsFunction(chunk.Constants[index]); ok {
				upvalueCount = fn.UpvalueCount
			}
		}
		if offset+instr.Size+2*upvalueCount > chunk.Len() {
			return Instruction{}, fmt.Errorf("truncated %s at offset %d", info.Name, offset)
		}
		for i := 0; i < upvalueCount; i++ {
			pos := offset + instr.Size + 2*i
			instr.Captures = append(instr.Captures, Capture{
				IsLocal: chunk.Code[pos] == 1,
				Index:   int(chunk.Code[pos+1]),
			})
		}
		instr.Size += 2 * upvalueCount
	}
	return instr, nil
}

func constant(heap *object.Heap, chunk *bytecode.Chunk, index int) string {
	if index >= len(chunk.Constants) {
		return "<invalid constant>"
	}
	v := chunk.Constants[index]
	if heap.IsString(v) {
		return strconv.Quote(heap.Format(v))
	}
	return heap.Format(v)
}

// Functions returns the function ref followed by every function nested in
// its constant pool, depth first.
func Functions(heap *object.Heap, ref value.Ref) []value.Ref {
	fn, ok := heap.AsFunction(value.NewObject(ref))
	if !ok {
		return nil
	}
	refs := []value.Ref{ref}
	for _, c := range fn.Chunk.Constants {
		if nested, ok := c.AsRef(); ok {
			if _, isFn := heap.AsFunction(c); isFn {
				refs = append(refs, Functions(heap, nested)...)
			}
		}
	}
	return refs
}

var (
	nameColor     = color.New(color.Bold)
	constantColor = color.New(color.FgGreen)
	jumpColor     = color.New(color.FgCyan)
)

// Print writes a listing of chunk to w, one instruction per line, under a
// header naming the function.
func Print(w io.Writer, heap *object.Heap, chunk *bytecode.Chunk, name string) {
	instructions, err := Disassemble(heap, chunk)
	PrintInstructions(w, name, instructions)
	if err != nil {
		fmt.Fprintf(w, "error: %v\n", err)
	}
}

// PrintInstructions writes already decoded instructions in the listing
// format used by Print.
func PrintInstructions(w io.Writer, name string, instructions []Instruction) {
	fmt.Fprintf(w, "== %s ==\n", name)
	for i, instr := range instructions {
		line := fmt.Sprintf("%4d", instr.Line)
		if i > 0 && instructions[i-1].Line == instr.Line {
			line = "   |"
		}
		fmt.Fprintf(w, "%04d %s %s\n", instr.Offset, line, formatInstruction(instr))
		for j, capture := range instr.Captures {
			kind := "upvalue"
			if capture.IsLocal {
				kind = "local"
			}
			fmt.Fprintf(w, "%04d    |                     %s %d\n", instr.Offset+2+2*j, kind, capture.Index)
		}
	}
}

func formatInstruction(instr Instruction) string {
	if len(instr.Operands) == 0 {
		return nameColor.Sprint(instr.Name)
	}
	name := nameColor.Sprintf("%-16s", instr.Name)
	switch len(instr.Operands) {
	case 1:
		if strings.HasPrefix(instr.Annotation, "->") {
			return fmt.Sprintf("%s %4d %s", name, instr.Operands[0], jumpColor.Sprint(instr.Annotation))
		}
		if instr.Annotation != "" {
			return fmt.Sprintf("%s %4d %s", name, instr.Operands[0], constantColor.Sprint(instr.Annotation))
		}
		return fmt.Sprintf("%s %4d", name, instr.Operands[0])
	default:
		return fmt.Sprintf("%s %4d %s", name, instr.Operands[0], constantColor.Sprint(instr.Annotation))
	}
}

// PrintTable writes instructions to w as aligned columns.
func PrintTable(instructions []Instruction, w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "OFFSET\tLINE\tOPCODE\tOPERANDS\tINFO")
	for _, instr := range instructions {
		operands := make([]string, len(instr.Operands))
		for i, o := range instr.Operands {
			operands[i] = strconv.Itoa(o)
		}
		for _, capture := range instr.Captures {
			kind := "upvalue"
			if capture.IsLocal {
				kind = "local"
			}
			operands = append(operands, kind+":"+strconv.Itoa(capture.Index))
		}
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%s\n",
			instr.Offset, instr.Line, instr.Name, strings.Join(operands, " "), instr.Annotation)
	}
	return tw.Flush()
}
