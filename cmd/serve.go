package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"LuckyNumbers/internal/api"
	"LuckyNumbers/internal/draw"
	"LuckyNumbers/internal/messaging"
	"LuckyNumbers/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "serve",
		Short:        "Run the HTTP API and the draw scheduler",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
}

func runServe(parent context.Context, opts *rootOptions) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. config, logger, store
	a, err := bootstrap(ctx, opts)
	if err != nil {
		return err
	}
	defer a.close()
	logger := a.logger

	// 2. notifications: websocket broker plus MQTT or log
	broker := messaging.NewBroker(logger)
	publisher := a.publisher(broker)
	engine := a.engine(draw.New(), publisher)

	// 3. draws stored before a crash but never announced
	if _, err := engine.Recover(ctx, a.cfg.Lottery.RecoverWindow); err != nil {
		logger.WithError(err).Warn("recovery failed")
	}

	// 4. background loops
	bgCtx, cancelBg := context.WithCancel(ctx)
	var wg sync.WaitGroup
	scheduler := service.NewScheduler(engine, a.rules.Interval, logger)
	cleanup := service.NewCleanupJob(a.results, a.guesses, a.rules, a.cfg.Lottery.Retention, a.cfg.Lottery.CleanupInterval, logger)
	for _, run := range []func(context.Context){
		scheduler.Run,
		cleanup.Run,
		func(c context.Context) { a.db.Watch(c, a.cfg.Database.HealthInterval) },
	} {
		wg.Add(1)
		go func(run func(context.Context)) {
			defer wg.Done()
			run(bgCtx)
		}(run)
	}

	// 5. HTTP
	gin.SetMode(a.cfg.Server.Mode)
	router := api.NewRouter(&a.cfg.Server, api.Deps{
		Service:    service.NewLotteryService(a.results, a.guesses, logger),
		Subscriber: broker,
		Store:      a.db,
		Engine:     engine,
		Topic:      a.cfg.Messaging.NumbersTopic,
		Logger:     logger,
	})
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		logger.Infof("listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// 6. wait for a signal or a listener failure
	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err = <-serveErr:
		if err != nil {
			logger.WithError(err).Error("http server failed")
		}
	}

	// 7. stop timers first so no draw starts while shutting down
	cancelBg()
	wg.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if e := srv.Shutdown(shutdownCtx); e != nil {
		logger.WithError(e).Warn("http shutdown")
	}
	if e := engine.Shutdown(shutdownCtx); e != nil {
		logger.WithError(e).Warn("engine shutdown")
	}
	logger.Info("server down")
	return err
}
