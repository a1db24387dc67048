// AngelaMos | 2026
// normalize_test.go

package converter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "heading body ellipsis and page number",
			in:   "1.2 Заголовок\nSome body text.\n....\n 45",
			want: "# Заголовок\nSome body text.",
		},
		{
			name: "provenance markers removed",
			in:   "## Source: old.txt, Chunk: 3\nkept line\n## Источник: a.pdf, Чанк: 1",
			want: "kept line",
		},
		{
			name: "trailing page number stripped",
			in:   "Introduction to the topic 17",
			want: "Introduction to the topic",
		},
		{
			name: "table of contents leader dots",
			in:   "Chapter one........ 12\n3 Results",
			want: "Chapter one\n# Results",
		},
		{
			name: "legacy unicode escapes decoded",
			in:   "caf/uni00E9 and /uni2014 dash",
			want: "café and — dash",
		},
		{
			name: "numbered line with junk title dropped",
			in:   "4.1 ##\nbody",
			want: "body",
		},
		{
			name: "punctuation only lines dropped",
			in:   "# # #\n  .  \ntext",
			want: "text",
		},
		{
			name: "multi level numbering",
			in:   "2.3.1 Deep heading",
			want: "# Deep heading",
		},
		{
			name: "falls back to collapsed raw text",
			in:   "....\n  12 \n ...",
			want: ".... 12 ...",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNormalizeKeepsInvalidEscape(t *testing.T) {
	assert.Equal(t, "x /uniD800 y", Normalize("x /uniD800 y"))
}
