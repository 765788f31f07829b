package dis_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/deepnoodle-ai/lox/compiler"
	"github.com/deepnoodle-ai/lox/dis"
	"github.com/deepnoodle-ai/lox/object"
	"github.com/deepnoodle-ai/lox/op"
	"github.com/deepnoodle-ai/lox/value"
	"github.com/fatih/color"
	"github.com/stretchr/testify/require"
)

func compile(t *testing.T, heap *object.Heap, src string) *object.Function {
	t.Helper()
	ref, err := compiler.Compile(heap, src)
	require.NoError(t, err)
	fn, ok := heap.AsFunction(value.NewObject(ref))
	require.True(t, ok)
	return fn
}

func TestPrint(t *testing.T) {
	// Disable colors for consistent test output
	color.NoColor = true
	defer func() { color.NoColor = false }()

	heap := object.NewHeap()
	fn := compile(t, heap, "var a = \"hi\";\nif (a) print 1 + 2;")

	var buf bytes.Buffer
	dis.Print(&buf, heap, fn.Chunk, "script")
	expected := strings.TrimSpace(`
== script ==
0000    1 OP_CONSTANT         1 "hi"
0002    | OP_DEFINE_GLOBAL    0 "a"
0004    2 OP_GET_GLOBAL       0 "a"
0006    | OP_JUMP_IF_FALSE   10 -> 19
0009    | OP_POP
0010    | OP_CONSTANT         2 1
0012    | OP_CONSTANT         3 2
0014    | OP_ADD
0015    | OP_PRINT
0016    | OP_JUMP             1 -> 20
0019    | OP_POP
0020    | OP_NIL
0021    | OP_RETURN`)
	require.Equal(t, expected, strings.TrimSpace(buf.String()))
}

func TestDisassembleClosure(t *testing.T) {
	heap := object.NewHeap()
	src := `
fun outer() {
  var x = 1;
  fun inner() { return x; }
  return inner;
}`
	script := compile(t, heap, src)
	instructions, err := dis.Disassemble(heap, script.Chunk)
	require.NoError(t, err)
	require.Equal(t, "OP_CLOSURE", instructions[0].Name)
	require.Equal(t, "<fn outer>", instructions[0].Annotation)

	outerRef, ok := script.Chunk.Constants[instructions[0].Operands[0]].AsRef()
	require.True(t, ok)
	refs := dis.Functions(heap, outerRef)
	require.Len(t, refs, 2)

	outer, _ := heap.AsFunction(value.NewObject(refs[0]))
	instructions, err = dis.Disassemble(heap, outer.Chunk)
	require.NoError(t, err)

	var closure *dis.Instruction
	for i := range instructions {
		if instructions[i].Opcode == op.Closure {
			closure = &instructions[i]
		}
	}
	require.NotNil(t, closure)
	require.Equal(t, []dis.Capture{{IsLocal: true, Index: 1}}, closure.Captures)
	require.Equal(t, 4, closure.Size)
}

func TestPrintTable(t *testing.T) {
	heap := object.NewHeap()
	fn := compile(t, heap, "print 1;")
	instructions, err := dis.Disassemble(heap, fn.Chunk)
	require.NoError(t, err)
	require.Len(t, instructions, 4)

	var buf bytes.Buffer
	require.NoError(t, dis.PrintTable(instructions, &buf))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 5)
	require.True(t, strings.HasPrefix(lines[0], "OFFSET"))
	require.Contains(t, lines[1], "OP_CONSTANT")
	require.Contains(t, lines[4], "OP_RETURN")
}

func TestDisassembleInvalid(t *testing.T) {
	heap := object.NewHeap()
	_, fn := heap.NewFunction()
	fn.Chunk.WriteOp(op.Constant, 1)
	_, err := dis.Disassemble(heap, fn.Chunk)
	require.Error(t, err)

	_, fn = heap.NewFunction()
	fn.Chunk.Write(250, 1)
	_, err = dis.Disassemble(heap, fn.Chunk)
	require.Error(t, err)
}
