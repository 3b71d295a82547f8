package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var TagSearches = promauto.NewCounter(prometheus.CounterOpts{
	Name: "reblogbot_tag_searches_total",
	Help: "Number of tag search queries issued, including window widenings",
})

var WindowWidenings = promauto.NewCounter(prometheus.CounterOpts{
	Name: "reblogbot_window_widenings_total",
	Help: "Number of times a tag search was retried with an older cursor",
})

var PostsFound = promauto.NewCounter(prometheus.CounterOpts{
	Name: "reblogbot_posts_found_total",
	Help: "Number of candidate posts that survived the collection filter",
})

var PostsSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "reblogbot_posts_skipped_total",
	Help: "Number of candidate posts skipped, by reason",
}, []string{"reason"})

var Reblogs = promauto.NewCounter(prometheus.CounterOpts{
	Name: "reblogbot_reblogs_total",
	Help: "Number of reblogs issued",
})

var Likes = promauto.NewCounter(prometheus.CounterOpts{
	Name: "reblogbot_likes_total",
	Help: "Number of likes issued",
})

var Cycles = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "reblogbot_cycles_total",
	Help: "Number of completed search cycles, by outcome (idle or active)",
}, []string{"outcome"})

var LedgerSize = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "reblogbot_ledger_size",
	Help: "Number of reblog keys held in the dedup ledger",
})

// Serve exposes /metrics on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("metrics server shutdown failed", "error", err)
		}
	}()

	logger.Info("starting metrics server", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
