// AngelaMos | 2026
// normalize.go

package converter

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

var (
	provenanceLine = regexp.MustCompile(`(?m)^## (?:Source|Источник):.*$`)
	periodRun      = regexp.MustCompile(`\.{2,}`)
	uniEscape      = regexp.MustCompile(`/uni([0-9A-Fa-f]{4})`)
	pageNumber     = regexp.MustCompile(`(?:^|\s+)\d+$`)
	junkLine       = regexp.MustCompile(`^[.#\s]+$`)
	numberedLine   = regexp.MustCompile(`^(\d+(?:[.\s]\d+)*)\s+(.*)$`)
)

// Normalize cleans extracted text line by line. Numbered lines such as
// "1.2 Title" become "# Title". If nothing survives, the raw text is returned
// with its whitespace collapsed.
func Normalize(raw string) string {
	text := provenanceLine.ReplaceAllString(raw, "")
	text = periodRun.ReplaceAllString(text, "")
	text = uniEscape.ReplaceAllStringFunc(text, decodeUni)

	var out []string
	for line := range strings.SplitSeq(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		line = strings.TrimSpace(pageNumber.ReplaceAllString(line, ""))
		if line == "" || junkLine.MatchString(line) {
			continue
		}

		if m := numberedLine.FindStringSubmatch(line); m != nil {
			title := strings.TrimSpace(m[2])
			if title == "" || junkLine.MatchString(title) {
				continue
			}
			line = "# " + m[2]
		}

		out = append(out, line)
	}

	if len(out) == 0 {
		return strings.Join(strings.Fields(raw), " ")
	}
	return strings.Join(out, "\n")
}

func decodeUni(match string) string {
	code, err := strconv.ParseUint(match[len("/uni"):], 16, 32)
	if err != nil || !utf8.ValidRune(rune(code)) {
		return match
	}
	return string(rune(code))
}
