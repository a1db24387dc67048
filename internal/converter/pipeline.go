// AngelaMos | 2026
// pipeline.go

package converter

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/valera277/rag-converter-pro/internal/config"
	"github.com/valera277/rag-converter-pro/internal/core"
)

type Document struct {
	Source  string
	Content []byte
	Chunks  int
}

// Pipeline runs read, normalize, split and assemble for one upload.
type Pipeline struct {
	limits    Limits
	splitter  *Splitter
	maxChunks int
	tracer    trace.Tracer
}

func NewPipeline(cfg config.ConverterConfig) (*Pipeline, error) {
	splitter, err := NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		return nil, fmt.Errorf("converter: %w", err)
	}

	return &Pipeline{
		limits: Limits{
			MaxPages: cfg.MaxPDFPages,
			MaxChars: cfg.MaxTextChars,
		},
		splitter:  splitter,
		maxChunks: cfg.MaxChunks,
		tracer:    core.Tracer("converter"),
	}, nil
}

func (p *Pipeline) Convert(
	ctx context.Context,
	filename string,
	data []byte,
) (*Document, error) {
	_, span := p.tracer.Start(ctx, "converter.Convert", trace.WithAttributes(
		attribute.Int("upload.bytes", len(data)),
	))
	defer span.End()

	ext, err := Extension(filename)
	if err != nil {
		core.FailSpan(span, "extension", err)
		return nil, err
	}
	span.SetAttributes(attribute.String("upload.format", ext))

	if err := CheckContent(ext, data); err != nil {
		core.FailSpan(span, "content", err)
		return nil, err
	}

	raw, err := Read(ext, data, p.limits)
	if err != nil {
		core.FailSpan(span, "read", err)
		return nil, err
	}
	span.AddEvent("read", trace.WithAttributes(attribute.Int("text.bytes", len(raw))))

	cleaned := Normalize(raw)
	source := SourceName(filename)

	content, chunks, err := Assemble(p.splitter.Split(cleaned), source, p.maxChunks)
	if err != nil {
		core.FailSpan(span, "assemble", err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("document.chunks", chunks))

	return &Document{
		Source:  source,
		Content: content,
		Chunks:  chunks,
	}, nil
}
