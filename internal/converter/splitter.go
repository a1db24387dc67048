// AngelaMos | 2026
// splitter.go

package converter

import (
	"errors"
	"iter"
	"strings"
	"unicode/utf8"
)

// separators are tried in order: paragraph, line, word, then single runes.
var separators = []string{"\n\n", "\n", " ", ""}

// Splitter cuts text into chunks of at most Size runes. Consecutive chunks
// share up to Overlap runes.
type Splitter struct {
	Size    int
	Overlap int
}

func NewSplitter(size, overlap int) (*Splitter, error) {
	if size <= 0 {
		return nil, errors.New("chunk size must be positive")
	}
	if overlap < 0 || overlap >= size {
		return nil, errors.New("chunk overlap must be in [0, chunk size)")
	}
	return &Splitter{Size: size, Overlap: overlap}, nil
}

// Split yields chunks lazily. The sequence can be ranged over any number of
// times; each pass recomputes from text.
func (s *Splitter) Split(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		s.split(text, separators, yield)
	}
}

func (s *Splitter) split(text string, seps []string, yield func(string) bool) bool {
	sep := seps[len(seps)-1]
	var finer []string
	for i, candidate := range seps {
		if candidate == "" {
			sep = candidate
			break
		}
		if strings.Contains(text, candidate) {
			sep = candidate
			finer = seps[i+1:]
			break
		}
	}

	var small []string
	for _, piece := range splitKeepingSeparator(text, sep) {
		if utf8.RuneCountInString(piece) < s.Size {
			small = append(small, piece)
			continue
		}

		if len(small) > 0 {
			if !s.merge(small, yield) {
				return false
			}
			small = nil
		}

		if len(finer) == 0 {
			if !yield(piece) {
				return false
			}
			continue
		}
		if !s.split(piece, finer, yield) {
			return false
		}
	}

	if len(small) > 0 {
		return s.merge(small, yield)
	}
	return true
}

// merge packs pieces greedily into chunks and carries a tail of up to
// Overlap runes into the next chunk.
func (s *Splitter) merge(pieces []string, yield func(string) bool) bool {
	var (
		window []string
		sizes  []int
		total  int
	)

	for _, piece := range pieces {
		n := utf8.RuneCountInString(piece)

		if total+n > s.Size && len(window) > 0 {
			if chunk := strings.TrimSpace(strings.Join(window, "")); chunk != "" {
				if !yield(chunk) {
					return false
				}
			}
			for total > s.Overlap || (total+n > s.Size && total > 0) {
				total -= sizes[0]
				window, sizes = window[1:], sizes[1:]
			}
		}

		window = append(window, piece)
		sizes = append(sizes, n)
		total += n
	}

	if chunk := strings.TrimSpace(strings.Join(window, "")); chunk != "" {
		return yield(chunk)
	}
	return true
}

// splitKeepingSeparator splits on sep and glues each separator to the start
// of the piece that follows it. Empty pieces are dropped.
func splitKeepingSeparator(text, sep string) []string {
	if sep == "" {
		out := make([]string, 0, utf8.RuneCountInString(text))
		for _, r := range text {
			out = append(out, string(r))
		}
		return out
	}

	parts := strings.Split(text, sep)
	out := make([]string, 0, len(parts))
	if parts[0] != "" {
		out = append(out, parts[0])
	}
	for _, p := range parts[1:] {
		out = append(out, sep+p)
	}
	return out
}
