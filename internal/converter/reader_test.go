// AngelaMos | 2026
// reader_test.go

package converter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadText(t *testing.T) {
	text, err := Read(ExtText, []byte("\xEF\xBB\xBFhello\nworld"), Limits{})
	require.NoError(t, err)
	assert.Equal(t, "hello\nworld", text)
}

func TestReadCharacterLimit(t *testing.T) {
	_, err := Read(ExtText, []byte(strings.Repeat("я", 11)), Limits{MaxChars: 10})

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Message, "11 characters")

	_, err = Read(ExtText, []byte(strings.Repeat("я", 10)), Limits{MaxChars: 10})
	require.NoError(t, err)
}

func TestReadBlankText(t *testing.T) {
	_, err := Read(ExtText, []byte(" \n\t "), Limits{})

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
}

func TestReadDamagedPDF(t *testing.T) {
	_, err := Read(ExtPDF, []byte("%PDF-1.4\nthis is not really a pdf"), Limits{MaxPages: 100})

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "The PDF could not be read.", ve.Message)
}

func TestReadUnknownFormat(t *testing.T) {
	_, err := Read("docx", []byte("x"), Limits{})

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
}
