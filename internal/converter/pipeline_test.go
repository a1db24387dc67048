// AngelaMos | 2026
// pipeline_test.go

package converter

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valera277/rag-converter-pro/internal/config"
)

func testConverterConfig() config.ConverterConfig {
	return config.ConverterConfig{
		MaxUploadBytes: 1 << 20,
		MaxPDFPages:    100,
		MaxTextChars:   500000,
		MaxChunks:      5000,
		ChunkSize:      1000,
		ChunkOverlap:   200,
	}
}

func TestAssemble(t *testing.T) {
	chunks := func(yield func(string) bool) {
		for _, c := range []string{"alpha", "beta"} {
			if !yield(c) {
				return
			}
		}
	}

	doc, n, err := Assemble(chunks, "notes.txt", 10)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t,
		"## Source: notes.txt, Chunk: 1\n\nalpha\n\n---\n\n"+
			"## Source: notes.txt, Chunk: 2\n\nbeta\n\n---\n\n",
		string(doc))
}

func TestAssembleRejectsTooManyChunks(t *testing.T) {
	produced := 0
	chunks := func(yield func(string) bool) {
		for {
			produced++
			if !yield("x") {
				return
			}
		}
	}

	_, _, err := Assemble(chunks, "big.txt", 3)

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Message, "more than 3 chunks")
	assert.Equal(t, 4, produced)
}

func TestPipelineConvertsText(t *testing.T) {
	p, err := NewPipeline(testConverterConfig())
	require.NoError(t, err)

	input := "1.2 Заголовок\nSome body text.\n....\n 45"
	doc, err := p.Convert(context.Background(), "Глава 1.txt", []byte(input))
	require.NoError(t, err)

	assert.Equal(t, "glava-1.txt", doc.Source)
	assert.Equal(t, 1, doc.Chunks)
	assert.Equal(t,
		"## Source: glava-1.txt, Chunk: 1\n\n# Заголовок\nSome body text.\n\n---\n\n",
		string(doc.Content))
}

func TestPipelineChunkLimit(t *testing.T) {
	cfg := testConverterConfig()
	cfg.ChunkSize = 50
	cfg.ChunkOverlap = 0
	cfg.MaxChunks = 2

	p, err := NewPipeline(cfg)
	require.NoError(t, err)

	var b strings.Builder
	for i := range 20 {
		fmt.Fprintf(&b, "Paragraph %d has a few words in it.\n\n", i)
	}

	_, err = p.Convert(context.Background(), "long.txt", []byte(b.String()))
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
}

func TestPipelineRejectsMismatchedContent(t *testing.T) {
	p, err := NewPipeline(testConverterConfig())
	require.NoError(t, err)

	_, err = p.Convert(context.Background(), "fake.pdf", []byte("plain text"))
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)

	_, err = p.Convert(context.Background(), "tool.exe", []byte("MZ"))
	require.ErrorAs(t, err, &ve)
}

func TestNewPipelineRejectsBadChunking(t *testing.T) {
	cfg := testConverterConfig()
	cfg.ChunkOverlap = cfg.ChunkSize

	_, err := NewPipeline(cfg)
	require.Error(t, err)
}
