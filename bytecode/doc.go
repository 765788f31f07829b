// Package bytecode provides the Chunk, the unit of compiled Lox code.
//
// A Chunk holds three parallel pieces of data:
//
//   - Code: the instruction stream, one byte per opcode followed by its
//     fixed-width operands (see package op for the layouts)
//   - Lines: the source line of every byte in Code, used for diagnostics
//   - Constants: the constant pool indexed by one-byte operands
//
// Each compiled function owns exactly one Chunk. The compiler appends to a
// Chunk while it parses and the VM only reads from it afterwards. The VM
// performs no bounds validation on operands, so the compiler is responsible
// for only emitting indices that exist in the pool at the time of emission.
//
// Example:
//
//	chunk := bytecode.NewChunk()
//	idx := chunk.AddConstant(value.NewNumber(1.2))
//	chunk.WriteOp(op.Constant, 1)
//	chunk.Write(byte(idx), 1)
//	chunk.WriteOp(op.Return, 1)
package bytecode
