package main

import (
	"net/http"

	jsoniter "github.com/json-iterator/go"

	"github.com/omeyang/xtel/pkg/observability/xingest"
	"github.com/omeyang/xtel/pkg/observability/xtel"
	"github.com/omeyang/xtel/pkg/observability/xwrap"
)

const (
	pathEvents = "/v1/events"
	pathHealth = "/healthz"
	pathStats  = "/debug/telemetry"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func newMux(tel *xtel.Telemetry) (http.Handler, error) {
	in, err := tel.Instrumenter()
	if err != nil {
		return nil, err
	}
	ingest, err := xingest.NewHandler(tel.Tracer(), tel.Registry(), tel.Logger())
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	// 方法校验交给 ingest handler，保证 405 响应体与其余错误一致
	mux.Handle(pathEvents, in.Wrap(ingest, xwrap.Options{}))
	mux.Handle("GET "+pathHealth, in.WrapLight(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	}), xwrap.Options{}))
	mux.Handle("GET "+pathStats, in.WrapLight(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		_ = enc.Encode(tel.Stats())
	}), xwrap.Options{}))
	return mux, nil
}
