package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/DataDog/datadog-go/statsd"
	"github.com/sirupsen/logrus"

	"github.com/david082321/runtime-tracker/backend/server/internal/database"
	"github.com/david082321/runtime-tracker/backend/server/internal/tracker"
)

type Server struct {
	db      *database.DB
	tracker *tracker.Tracker
	statsd  *statsd.Client
	log     *logrus.Logger

	isProductionEnvironment bool
	isTestEnvironment       bool
	reportSecret            string
}

type Option func(*Server)

func WithStatsd(statsd *statsd.Client) Option {
	return func(s *Server) {
		s.statsd = statsd
	}
}

func WithLogger(log *logrus.Logger) Option {
	return func(s *Server) {
		s.log = log
	}
}

// WithReportSecret requires reports to carry the given shared secret. An
// empty secret leaves ingestion open, which is only sensible for tests.
func WithReportSecret(secret string) Option {
	return func(s *Server) {
		s.reportSecret = secret
	}
}

func IsProductionEnvironment(v bool) Option {
	return func(s *Server) {
		s.isProductionEnvironment = v
	}
}

func IsTestEnvironment(v bool) Option {
	return func(s *Server) {
		s.isTestEnvironment = v
	}
}

func NewServer(db *database.DB, usageTracker *tracker.Tracker, options ...Option) *Server {
	srv := Server{db: db, tracker: usageTracker, log: logrus.StandardLogger()}
	for _, option := range options {
		option(&srv)
	}
	if srv.isProductionEnvironment && srv.isTestEnvironment {
		panic(fmt.Errorf("cannot create a server that is both a prod environment and a test environment: %#v", srv))
	}
	return &srv
}

func (s *Server) Run(addr string) error {
	mux := http.NewServeMux()

	middlewares := mergeMiddlewares(
		withPanicGuard(s.log),
		withLogging(s.statsd, s.log),
	)

	mux.Handle("/api/v1/report", middlewares(http.HandlerFunc(s.apiReportHandler)))
	mux.Handle("/api/v1/devices", middlewares(http.HandlerFunc(s.apiDevicesHandler)))
	mux.Handle("/api/v1/recent", middlewares(http.HandlerFunc(s.apiRecentHandler)))
	mux.Handle("/api/v1/daily", middlewares(http.HandlerFunc(s.apiDailyStatsHandler)))
	mux.Handle("/api/v1/weekly", middlewares(http.HandlerFunc(s.apiWeeklyStatsHandler)))
	mux.Handle("/api/v1/monthly", middlewares(http.HandlerFunc(s.apiMonthlyStatsHandler)))
	mux.Handle("/healthcheck", middlewares(http.HandlerFunc(s.healthCheckHandler)))
	mux.Handle("/internal/api/v1/stats", middlewares(http.HandlerFunc(s.statsHandler)))
	if s.isTestEnvironment {
		mux.Handle("/api/v1/wipe-db-entries", middlewares(http.HandlerFunc(s.wipeDbEntriesHandler)))
	}

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	s.log.Infof("Listening on %s", addr)
	if err := httpServer.ListenAndServe(); err != nil {
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http.ListenAndServe: %w", err)
		}
	}

	return nil
}
