package xwrap_test

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/omeyang/xtel/pkg/observability/xlog"
	"github.com/omeyang/xtel/pkg/observability/xmetrics"
	"github.com/omeyang/xtel/pkg/observability/xtrace"
	"github.com/omeyang/xtel/pkg/observability/xwrap"
)

func ExampleInstrumenter_Wrap() {
	spans := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(spans))
	defer func() { _ = tp.Shutdown(context.Background()) }()
	mp := sdkmetric.NewMeterProvider()
	defer func() { _ = mp.Shutdown(context.Background()) }()

	reg, _ := xmetrics.NewRegistry(xmetrics.WithMeterProvider(mp))
	logger, cleanup, _ := xlog.New().SetOutput(io.Discard).Build()
	defer cleanup()

	in, err := xwrap.New(xtrace.NewTracer(xtrace.WithTracerProvider(tp)), reg, logger)
	if err != nil {
		fmt.Println(err)
		return
	}

	mux := http.NewServeMux()
	mux.Handle("GET /users/{id}", in.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "user %s", r.PathValue("id"))
	}), xwrap.Options{}))

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/users/7", nil))

	fmt.Println(rr.Body.String())
	fmt.Println(spans.GetSpans()[0].Name)
	// Output:
	// user 7
	// GET /users/{id}
}
