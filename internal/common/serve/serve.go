package serve

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

// ShutdownTimeout bounds how long in-flight requests may take once the server is asked to stop.
const ShutdownTimeout = 5 * time.Second

// ListenAndServe runs server until ctx is cancelled, then shuts it down gracefully.
// A server that stops because of ctx cancellation returns nil.
func ListenAndServe(ctx context.Context, server *http.Server) error {
	lis, err := net.Listen("tcp", server.Addr)
	if err != nil {
		return errors.Wrapf(err, "error listening on %s", server.Addr)
	}
	return Serve(ctx, server, lis)
}

// Serve is ListenAndServe with an existing listener.
func Serve(ctx context.Context, server *http.Server, lis net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		log.Infof("Serving http on %s", lis.Addr())
		errCh <- server.Serve(lis)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.WithStack(err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warnf("http server on %s didn't shut down cleanly", server.Addr)
		}
		return nil
	}
}

func NewHttpServer(port uint16, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// NewMetricsServer exposes the given gatherer on /metrics.
func NewMetricsServer(port uint16, gatherer prometheus.Gatherer) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return NewHttpServer(port, mux)
}
