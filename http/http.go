package http

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
)

const shutdownTimeout = 10 * time.Second

// ListenAndServe runs the servers until ctx is done. Servers then get
// shutdownTimeout to finish their requests before being closed.
func ListenAndServe(ctx context.Context, servers ...*http.Server) {
	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		var wg sync.WaitGroup
		for _, s := range servers {
			wg.Add(1)
			go func(s *http.Server) {
				defer wg.Done()
				shutdown(shutdownCtx, s)
			}(s)
		}
		wg.Wait()
	}()

	var wg sync.WaitGroup

	for _, s := range servers {
		wg.Add(1)

		go func(s *http.Server) {
			defer wg.Done()

			logs.WithTag("addr", s.Addr).Info("starting server")

			switch err := s.ListenAndServe(); err {
			case nil, http.ErrServerClosed, context.Canceled:
				logs.WithTag("addr", s.Addr).Info("stopping server")

			default:
				logs.Warn(errors.Newf("server stopped").
					WithTag("addr", s.Addr).
					Wrap(err))
			}
		}(s)
	}

	wg.Wait()
}

func shutdown(ctx context.Context, s *http.Server) {
	err := s.Shutdown(ctx)
	if err == nil {
		return
	}

	logs.Warn(errors.Newf("shutting down the server failed").
		WithTag("addr", s.Addr).
		WithTag("timeout", shutdownTimeout).
		Wrap(err))

	if errors.Is(err, context.DeadlineExceeded) {
		s.Close()
	}
}

// MetricsPathFormatter returns empty string on HTTP 301, 400, 404 or 405
// statusCode. Scene ids are replaced by a placeholder.
func MetricsPathFormatter(statusCode int, path string) string {
	if statusCode == http.StatusMovedPermanently ||
		statusCode == http.StatusBadRequest ||
		statusCode == http.StatusNotFound ||
		statusCode == http.StatusMethodNotAllowed {
		return ""
	}

	parts := strings.Split(path, "/")
	if len(parts) > 2 && parts[1] == "scenes" && parts[2] != "" {
		parts[2] = "{id}"
	}
	return strings.Join(parts, "/")
}
