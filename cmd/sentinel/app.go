package main

import (
	"database/sql"
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/t77yq/sentinel/internal/config"
	"github.com/t77yq/sentinel/internal/executor"
	"github.com/t77yq/sentinel/internal/notify"
	"github.com/t77yq/sentinel/internal/probe"
	"github.com/t77yq/sentinel/internal/storage"
)

// app bundles what most subcommands need after bootstrap: the parsed
// configuration, a logger honoring log_level and --debug, and the
// sentinel database with both stores. Opening the app creates the
// schema on first use.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *sql.DB
	states *storage.SQLiteStateStore
	ledger *storage.SQLiteLedger
}

func openApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	db, err := storage.Open(cfg.Database.Path)
	if err != nil {
		return nil, err
	}

	states, err := storage.NewSQLiteStateStore(logger, db)
	if err != nil {
		db.Close()
		return nil, err
	}

	ledger, err := storage.NewSQLiteLedger(logger, db)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &app{
		cfg:    cfg,
		logger: logger,
		db:     db,
		states: states,
		ledger: ledger,
	}, nil
}

// close releases the database and flushes buffered log entries
func (a *app) close() {
	a.db.Close()
	a.logger.Sync()
}

// newLogger builds a production logger at the configured level; --debug
// switches to the development config entirely
func newLogger(level string) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}

// pipeline is the evaluation path shared by run, daemon, and
// healthcheck: the configured channels behind the dispatcher, the
// orchestrator, and the SQL runner pointed at the check database.
type pipeline struct {
	dispatcher   *notify.Dispatcher
	orchestrator *executor.Orchestrator
	runner       probe.Runner
	checkDB      *sql.DB
}

func buildPipeline(a *app) (*pipeline, error) {
	dispatcher := notify.NewDispatcher(a.logger)
	for _, ch := range a.cfg.Channels {
		spec := a.cfg.ChannelSpec(ch)
		channel, err := notify.NewChannel(spec)
		if err != nil {
			dispatcher.Close()
			return nil, fmt.Errorf("channel %s: %w", ch.Name, err)
		}
		dispatcher.Register(channel, spec.Retry.Retrier())
	}

	checkDB, err := storage.Open(a.cfg.CheckDSN())
	if err != nil {
		dispatcher.Close()
		return nil, fmt.Errorf("check database: %w", err)
	}

	return &pipeline{
		dispatcher:   dispatcher,
		orchestrator: executor.NewOrchestrator(a.logger, a.states, a.ledger, dispatcher),
		runner:       probe.NewSQLRunner(a.logger, checkDB),
		checkDB:      checkDB,
	}, nil
}

// close releases the check database and the channel transports
func (p *pipeline) close() {
	p.checkDB.Close()
	p.dispatcher.Close()
}

// channelNames returns the configured channel names in declaration order
func channelNames(cfg *config.Config) []string {
	names := make([]string, 0, len(cfg.Channels))
	for _, ch := range cfg.Channels {
		names = append(names, ch.Name)
	}
	return names
}
