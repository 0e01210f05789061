package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitTracing_NoneExporterIsNoop(t *testing.T) {
	shutdown, err := InitTracing(TracingConfig{ServiceName: "blogcms-test", Exporter: "none"})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestInitTracing_StdoutExporter(t *testing.T) {
	shutdown, err := InitTracing(TracingConfig{
		ServiceName:  "blogcms-test",
		Exporter:     "stdout",
		SamplerRatio: 1,
	})
	require.NoError(t, err)
	defer func() { _ = shutdown(context.Background()) }()

	ctx, finish := StartSpan(context.Background(), "test", "op")
	assert.NotNil(t, ctx)
	finish(errors.New("recorded"))
}
