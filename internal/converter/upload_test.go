// AngelaMos | 2026
// upload_test.go

package converter

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valera277/rag-converter-pro/internal/core"
)

func TestExtension(t *testing.T) {
	for name, want := range map[string]string{
		"notes.txt":        ExtText,
		"Report.PDF":       ExtPDF,
		"archive.tar.pdf":  ExtPDF,
		"C:\\docs\\a.txt": ExtText,
	} {
		ext, err := Extension(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, ext, name)
	}

	for _, name := range []string{"", "noext", "run.exe", "payload.pdf.sh", "script.js", "image.png"} {
		_, err := Extension(name)
		require.Error(t, err, name)
		assert.True(t, errors.Is(err, core.ErrInvalidInput), name)
	}
}

func TestCheckContent(t *testing.T) {
	require.NoError(t, CheckContent(ExtPDF, []byte("%PDF-1.7\n...")))
	require.NoError(t, CheckContent(ExtText, []byte("привет, world")))

	var ve *ValidationError
	require.ErrorAs(t, CheckContent(ExtPDF, []byte("PK\x03\x04")), &ve)
	assert.Equal(t, "File content does not match extension.", ve.Message)

	require.ErrorAs(t, CheckContent(ExtText, []byte{0xff, 0xfe, 0x00}), &ve)
	require.ErrorAs(t, CheckContent(ExtText, nil), &ve)
}

func TestSourceName(t *testing.T) {
	assert.Equal(t, "my-report-final.pdf", SourceName("My Report (final).PDF"))
	assert.Equal(t, "zagolovok.txt", SourceName("Заголовок.txt"))
	assert.Equal(t, "passwd.txt", SourceName("../../etc/passwd.txt"))
	assert.Equal(t, "document.txt", SourceName("!!!.txt"))

	long := SourceName(strings.Repeat("a", 400) + ".txt")
	assert.Len(t, long, maxFilenameLength)
	assert.True(t, strings.HasSuffix(long, ".txt"))
}

func TestStoredName(t *testing.T) {
	a := StoredName("notes.txt")
	b := StoredName("notes.txt")

	assert.NotEqual(t, a, b)
	assert.Len(t, a, len("12345678_notes.txt"))
	assert.True(t, strings.HasSuffix(a, "_notes.txt"))

	long := StoredName(strings.Repeat("b", 400) + ".pdf")
	assert.LessOrEqual(t, len(long), maxFilenameLength)
	assert.True(t, strings.HasSuffix(long, ".pdf"))
}
