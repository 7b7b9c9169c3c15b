package http

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
)

const (
	ShutdownTimeout = time.Second * 10
)

// ListenAndServe serves all the servers until ctx is done or one of them stops
// on an error. The servers are then shut down, each given at most
// ShutdownTimeout to finish its requests.
func ListenAndServe(ctx context.Context, servers ...*http.Server) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

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
				logs.Error(errors.Newf("server stopped").
					WithTag("addr", s.Addr).
					Wrap(err))
				cancel()
			}
		}(s)
	}

	<-ctx.Done()
	for _, s := range servers {
		shutdown(s)
	}
	wg.Wait()
}

func shutdown(s *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	if err := s.Shutdown(ctx); err != nil {
		logs.Warn(errors.Newf("shutting down the server failed").
			WithTag("addr", s.Addr).
			Wrap(err))
	}
}

// MetricsPathFormatter returns empty string on HTTP 301, 400, 404 or 405
// statusCode. Scene and entity ids are replaced by {id} to keep the number of
// label values bounded.
func MetricsPathFormatter(statusCode int, path string) string {
	if statusCode == http.StatusMovedPermanently ||
		statusCode == http.StatusBadRequest ||
		statusCode == http.StatusNotFound ||
		statusCode == http.StatusMethodNotAllowed {
		return ""
	}

	segments := strings.Split(path, "/")
	for i, s := range segments {
		if _, err := strconv.ParseUint(s, 10, 32); err == nil {
			segments[i] = "{id}"
		}
	}
	return strings.Join(segments, "/")
}
