package bytecode

// Stats contains statistics about a compiled chunk. The disassembler reports
// them alongside each function's listing.
type Stats struct {
	// ByteCount is the length of the instruction stream in bytes.
	ByteCount int `json:"bytes"`

	// ConstantCount is the number of constants in the constant pool.
	ConstantCount int `json:"constants"`

	// FirstLine and LastLine bound the source lines the chunk was compiled
	// from. Both are zero for an empty chunk.
	FirstLine int `json:"first_line"`
	LastLine  int `json:"last_line"`
}

// Stats returns statistics about the chunk.
func (c *Chunk) Stats() Stats {
	stats := Stats{
		ByteCount:     len(c.Code),
		ConstantCount: len(c.Constants),
	}
	for _, line := range c.Lines {
		if stats.FirstLine == 0 || line < stats.FirstLine {
			stats.FirstLine = line
		}
		if line > stats.LastLine {
			stats.LastLine = line
		}
	}
	return stats
}
