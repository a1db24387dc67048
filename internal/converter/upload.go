// AngelaMos | 2026
// upload.go

package converter

import (
	"bytes"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

const (
	ExtText = "txt"
	ExtPDF  = "pdf"

	maxFilenameLength = 255
	fallbackStem      = "document"
)

var allowedExtensions = map[string]bool{
	ExtText: true,
	ExtPDF:  true,
}

var dangerousExtensions = map[string]bool{
	"exe": true, "bat": true, "cmd": true, "sh": true,
	"ps1": true, "vbs": true, "js": true, "jar": true,
}

var pdfMagic = []byte("%PDF")

// Extension returns the lower-cased extension of an accepted upload.
func Extension(filename string) (string, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if ext == "" || dangerousExtensions[ext] || !allowedExtensions[ext] {
		return "", invalid("Allowed formats: .txt, .pdf")
	}
	return ext, nil
}

// CheckContent rejects files whose bytes do not match their extension.
func CheckContent(ext string, data []byte) error {
	if len(data) == 0 {
		return invalid("The uploaded file is empty.")
	}

	switch ext {
	case ExtPDF:
		if !bytes.HasPrefix(data, pdfMagic) {
			return invalid("File content does not match extension.")
		}
	case ExtText:
		if !utf8.Valid(data) {
			return invalid("Text files must be UTF-8 encoded.")
		}
	}
	return nil
}

// SourceName is the display name used in chunk headers and history.
func SourceName(filename string) string {
	base := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	ext := strings.ToLower(filepath.Ext(base))
	stem := slug.Make(strings.TrimSuffix(base, filepath.Ext(base)))
	if stem == "" {
		stem = fallbackStem
	}

	if limit := maxFilenameLength - len(ext); len(stem) > limit {
		stem = stem[:limit]
	}
	return stem + ext
}

// StoredName prefixes the source name with a short random token so two
// uploads with the same name stay distinguishable.
func StoredName(filename string) string {
	prefix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	name := prefix + "_" + SourceName(filename)
	if len(name) > maxFilenameLength {
		ext := filepath.Ext(name)
		name = name[:maxFilenameLength-len(ext)] + ext
	}
	return name
}
