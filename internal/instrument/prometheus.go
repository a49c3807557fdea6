package instrument

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Init exposes registered metrics on addr. An empty addr disables the endpoint.
func Init(addr string) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			slog.Error("metrics endpoint stopped", "addr", addr, "err", err)
		}
	}()
}
