// AngelaMos | 2026
// assemble.go

package converter

import (
	"bytes"
	"fmt"
	"iter"
)

const chunkSeparator = "\n\n---\n\n"

// Assemble wraps each chunk with a provenance header. Exceeding maxChunks
// fails the whole document instead of truncating it.
func Assemble(chunks iter.Seq[string], source string, maxChunks int) ([]byte, int, error) {
	var (
		buf bytes.Buffer
		n   int
	)

	for chunk := range chunks {
		n++
		if maxChunks > 0 && n > maxChunks {
			return nil, 0, invalid(
				"The document produces more than %d chunks. Split it into smaller files.",
				maxChunks,
			)
		}
		fmt.Fprintf(&buf, "## Source: %s, Chunk: %d\n\n%s%s", source, n, chunk, chunkSeparator)
	}

	if n == 0 {
		return nil, 0, invalid("No text was left after cleaning the document.")
	}

	return buf.Bytes(), n, nil
}
