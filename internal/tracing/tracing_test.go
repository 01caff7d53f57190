package tracing

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
)

func TestInit_Disabled(t *testing.T) {
	p, err := Init(false, "test")
	require.NoError(t, err)
	assert.NoError(t, p.Shutdown(context.Background()))

	var nilProvider *Provider
	assert.NoError(t, nilProvider.Shutdown(context.Background()))
}

func TestInitWithWriter_ExportsSpans(t *testing.T) {
	var buf bytes.Buffer
	p, err := InitWithWriter(&buf, "test")
	require.NoError(t, err)

	_, span := StartSpan(context.Background(), "etf.validate", attribute.Int("rows", 3))
	End(span, errors.New("weights out of band"))

	require.NoError(t, p.Shutdown(context.Background()))
	out := buf.String()
	assert.Contains(t, out, "etf.validate")
	assert.Contains(t, out, "weights out of band")
}
