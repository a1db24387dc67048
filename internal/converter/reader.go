// AngelaMos | 2026
// reader.go

package converter

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

type Limits struct {
	MaxPages int
	MaxChars int
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Read extracts raw text by extension and enforces the page and character
// ceilings.
func Read(ext string, data []byte, limits Limits) (string, error) {
	var (
		text string
		err  error
	)

	switch ext {
	case ExtText:
		if !utf8.Valid(data) {
			return "", invalid("Text files must be UTF-8 encoded.")
		}
		text = string(bytes.TrimPrefix(data, utf8BOM))
	case ExtPDF:
		text, err = readPDF(data, limits.MaxPages)
		if err != nil {
			return "", err
		}
	default:
		return "", invalid("Allowed formats: .txt, .pdf")
	}

	if strings.TrimSpace(text) == "" {
		if ext == ExtPDF {
			return "", invalid("The PDF contains no extractable text. Scanned documents are not supported.")
		}
		return "", invalid("The uploaded file is empty.")
	}

	if limits.MaxChars > 0 {
		if n := utf8.RuneCountInString(text); n > limits.MaxChars {
			return "", invalid(
				"The document has %d characters; the limit is %d.",
				n, limits.MaxChars,
			)
		}
	}

	return text, nil
}

// readPDF returns the text of every page. The parser panics on some damaged
// files, which is reported as an unreadable document.
func readPDF(data []byte, maxPages int) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, err = "", invalid("The PDF could not be read.")
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", invalid("The PDF could not be read.")
	}

	pages := r.NumPage()
	if maxPages > 0 && pages > maxPages {
		return "", invalid("The PDF has %d pages; the limit is %d.", pages, maxPages)
	}

	var b strings.Builder
	for i := 1; i <= pages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, perr := page.GetPlainText(nil)
		if perr != nil {
			return "", fmt.Errorf("extract page %d: %w", i, invalid("The PDF could not be read."))
		}
		if content != "" {
			b.WriteString(content)
			b.WriteByte('\n')
		}
	}

	return b.String(), nil
}
