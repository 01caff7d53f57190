package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogMessage(t *testing.T) {
	assert.Equal(t, "[1001] No file provided. Please select a file to upload.", NoFileProvided().LogMessage())
	assert.Equal(t,
		"[1004] There was a problem processing the file. | Details: The CSV file has headers but no data rows. Please add ETF constituent information.",
		NoDataRows().LogMessage())
}

func TestAsThroughWrapping(t *testing.T) {
	err := fmt.Errorf("compute: %w", PriceNotFound("ZZZ"))

	diag, ok := As(err)
	require.True(t, ok)
	assert.Equal(t, KindPriceNotFound, diag.Kind)
	assert.True(t, Is(err, KindPriceNotFound))
	assert.False(t, Is(err, KindEncoding))

	_, ok = As(errors.New("plain"))
	assert.False(t, ok)
}

func TestUnexpected(t *testing.T) {
	cause := errors.New("nil map write")
	diag := Unexpected(cause)
	assert.True(t, diag.ServerError())
	assert.Equal(t, CodeUnexpected, diag.Code)
	assert.Contains(t, diag.Message, "nil map write")
	assert.Equal(t, "nil map write", diag.Detail)
	assert.ErrorIs(t, diag, cause)

	assert.Contains(t, Unexpected(nil).Message, "unknown error")
}

func TestCitations(t *testing.T) {
	diag := MissingNames([]int{0, 1, 2, 3, 4, 5, 6})
	assert.Contains(t, diag.Detail, "2, 3, 4, 5, 6")
	assert.NotContains(t, diag.Detail, "7")

	diag = NegativeWeights([]string{"A", "B", "C", "D"})
	assert.Contains(t, diag.Detail, "A, B, C")
	assert.NotContains(t, diag.Detail, "D")
	assert.False(t, diag.ServerError())
}

func TestFileAccess(t *testing.T) {
	diag := FileNotFound(errors.New("stat: no such file"))
	assert.Equal(t, KindFileAccess, diag.Kind)
	assert.Equal(t, CodeFileNotFound, diag.Code)
	assert.Equal(t, 400, diag.Status)
	assert.Equal(t, "ETF file not found", diag.Detail)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "price_not_found", KindPriceNotFound.String())
	assert.Equal(t, "kind(99)", Kind(99).String())
}
