package main

import (
	"context"
	"fmt"
	"os"

	"LuckyNumbers/internal/config"
	"LuckyNumbers/internal/draw"
	"LuckyNumbers/internal/interfaces"
	"LuckyNumbers/internal/messaging"
	"LuckyNumbers/internal/model"
	"LuckyNumbers/internal/repository"
	"LuckyNumbers/internal/service"

	"github.com/sirupsen/logrus"
)

// app the wiring shared by the commands
type app struct {
	cfg     *config.Config
	logger  *logrus.Logger
	db      *repository.Database
	rules   model.Rules
	results repository.ResultRepository
	guesses repository.GuessRepository
}

func newLogger(level string, verbose bool) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	if verbose {
		lvl = logrus.DebugLevel
	}
	logger.SetLevel(lvl)
	return logger
}

// bootstrap loads config, connects to the store and migrates it
func bootstrap(ctx context.Context, opts *rootOptions) (*app, error) {
	cfg, err := config.LoadConfigFrom(opts.ConfigDir)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger := newLogger(cfg.Log.Level, opts.Verbose)
	logger.Info("config loaded")

	db, err := repository.OpenPostgres(ctx, &cfg.Database, logger)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	logger.Info("database schema up to date")

	rules := cfg.Lottery.Rules()
	return &app{
		cfg:     cfg,
		logger:  logger,
		db:      db,
		rules:   rules,
		results: repository.NewResultRepository(db, rules, nil),
		guesses: repository.NewGuessRepository(db, rules, nil),
	}, nil
}

// publisher MQTT when a broker is configured, the log otherwise. extra publishers get every
// message too.
func (a *app) publisher(extra ...interfaces.Publisher) interfaces.Publisher {
	var out messaging.MultiPublisher
	out = append(out, extra...)

	if a.cfg.Messaging.BrokerURL == "" {
		a.logger.Info("no MQTT broker configured, notifications go to the log")
		return append(out, messaging.NewLogPublisher(a.logger))
	}
	mq, err := messaging.NewMQTTPublisher(&a.cfg.Messaging, a.logger)
	if err != nil {
		a.logger.WithError(err).Warn("MQTT unavailable, notifications go to the log")
		return append(out, messaging.NewLogPublisher(a.logger))
	}
	return append(out, mq)
}

func (a *app) engine(gen draw.Generator, pub interfaces.Publisher) *service.DrawEngine {
	return service.NewDrawEngine(a.results, a.guesses, gen, pub, a.rules, a.cfg.Messaging.NumbersTopic, a.logger)
}

func (a *app) close() {
	if err := a.db.Close(); err != nil {
		a.logger.WithError(err).Warn("close database")
	}
}
