package main

import (
	"fmt"
	"os"

	"github.com/DataDog/datadog-go/statsd"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/david082321/runtime-tracker/backend/server/internal/database"
	"github.com/david082321/runtime-tracker/backend/server/internal/server"
	"github.com/david082321/runtime-tracker/backend/server/internal/tracker"
)

const (
	defaultAddr     = ":8080"
	testSQLiteDSN   = "file::memory:?_journal_mode=WAL&cache=shared"
	fallbackSQLite  = "runtime-tracker.db"
	postgresEnvVar  = "RUNTIME_TRACKER_POSTGRES_DB"
	secretEnvVar    = "RUNTIME_TRACKER_SECRET"
	addrEnvVar      = "RUNTIME_TRACKER_ADDR"
	statsdEnvVar    = "RUNTIME_TRACKER_STATSD_ADDR"
	testModeEnvVar  = "RUNTIME_TRACKER_TEST"
)

func isTestEnvironment() bool {
	return os.Getenv(testModeEnvVar) != ""
}

func isProductionEnvironment() bool {
	return os.Getenv(postgresEnvVar) != ""
}

func openDB(log *logrus.Logger) (*database.DB, error) {
	config := &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}
	if isTestEnvironment() {
		return database.OpenSQLite(testSQLiteDSN, config)
	}
	if isProductionEnvironment() {
		return database.OpenPostgres(os.Getenv(postgresEnvVar), config)
	}
	log.Infof("%s is not set, using a local sqlite DB at %s", postgresEnvVar, fallbackSQLite)
	return database.OpenSQLite(fallbackSQLite, config)
}

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	db, err := openDB(log)
	if err != nil {
		log.Fatalf("failed to open the DB: %v", err)
	}
	if err := db.AddDatabaseTables(); err != nil {
		log.Fatalf("failed to add database tables: %v", err)
	}
	if err := db.CreateIndices(); err != nil {
		log.Fatalf("failed to create indices: %v", err)
	}
	if isProductionEnvironment() {
		if err := db.SetMaxIdleConns(10); err != nil {
			log.Fatalf("failed to configure the DB connection pool: %v", err)
		}
	}

	options := []server.Option{
		server.WithLogger(log),
		server.IsProductionEnvironment(isProductionEnvironment()),
		server.IsTestEnvironment(isTestEnvironment()),
		server.WithReportSecret(os.Getenv(secretEnvVar)),
	}
	if statsdAddr := os.Getenv(statsdEnvVar); statsdAddr != "" {
		statsdClient, err := statsd.New(statsdAddr)
		if err != nil {
			log.Fatalf("failed to start statsd client: %v", err)
		}
		options = append(options, server.WithStatsd(statsdClient))
	}

	usageTracker := tracker.NewTracker(db, tracker.WithLogger(log))

	addr := os.Getenv(addrEnvVar)
	if addr == "" {
		addr = defaultAddr
	}
	srv := server.NewServer(db, usageTracker, options...)
	if err := srv.Run(addr); err != nil {
		log.Fatalf("server exited: %v", err)
	}

	fmt.Println("Done")
}
