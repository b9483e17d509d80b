package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"github.com/alebed/magebot/internal/log"
)

func TestSetup_ExportsSpans(t *testing.T) {
	var received atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/traces" {
			received.Add(1)
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)

	shutdown, err := Setup(context.Background(), Config{
		AgentHost:   u.Host,
		Environment: "test",
		ServiceName: "magebot-test",
	}, log.NewNop())
	require.NoError(t, err)

	_, span := otel.Tracer("observability-test").Start(context.Background(), "test.span")
	span.End()

	// Shutdown flushes the batch processor, forcing the export.
	require.NoError(t, shutdown(context.Background()))
	assert.Positive(t, received.Load())
}

func TestSetup_DefaultAgentHost(t *testing.T) {
	shutdown, err := Setup(context.Background(), Config{}, log.NewNop())
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	// Nothing listens on the default port in tests; shutdown must still not
	// hang, it just reports the failed flush.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = shutdown(ctx)
}
