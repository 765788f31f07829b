package bytecode

import (
	"encoding/binary"

	"github.com/deepnoodle-ai/lox/op"
	"github.com/deepnoodle-ai/lox/value"
)

// Chunk is a sequence of bytecode with its line table and constant pool.
type Chunk struct {
	Code      []byte
	Lines     []int
	Constants []value.Value
}

// NewChunk returns an empty Chunk.
func NewChunk() *Chunk {
	return &Chunk{}
}

// Write appends one byte of code, recording the line it came from.
func (c *Chunk) Write(b byte, line int) {
	c.Code = append(c.Code, b)
	c.Lines = append(c.Lines, line)
}

// WriteOp appends an opcode.
func (c *Chunk) WriteOp(code op.Code, line int) {
	c.Write(byte(code), line)
}

// AddConstant adds a value to the constant pool and returns its index. If an
// equal value is already present its index is returned instead, so repeated
// literals and identifier names share one slot.
func (c *Chunk) AddConstant(v value.Value) int {
	for i, existing := range c.Constants {
		if value.Equal(existing, v) {
			return i
		}
	}
	c.Constants = append(c.Constants, v)
	return len(c.Constants) - 1
}

// ReadUint16 decodes the big-endian operand starting at offset.
func (c *Chunk) ReadUint16(offset int) uint16 {
	return binary.BigEndian.Uint16(c.Code[offset:])
}

// PutUint16 overwrites the big-endian operand starting at offset.
func (c *Chunk) PutUint16(offset int, v uint16) {
	binary.BigEndian.PutUint16(c.Code[offset:], v)
}

// LineAt returns the source line of the byte at offset, or 0 if the offset
// is out of range.
func (c *Chunk) LineAt(offset int) int {
	if offset < 0 || offset >= len(c.Lines) {
		return 0
	}
	return c.Lines[offset]
}

// Len returns the number of bytes of code in the chunk.
func (c *Chunk) Len() int {
	return len(c.Code)
}
