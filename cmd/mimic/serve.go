package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var watchConfigFile bool

func init() {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	cmd.Flags().BoolVar(&watchConfigFile, "watch-config", true, "Restart when the config file changes")

	RootCmd.AddCommand(cmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	baseLogger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	actionChan := make(chan string, 1)

	go func() {
		osSignalChan := make(chan os.Signal, 1)
		signal.Notify(osSignalChan, syscall.SIGINT, syscall.SIGTERM)
		<-osSignalChan
		baseLogger.Info("OS signal received, initiating shutdown.")
		actionChan <- actionShutdown
	}()

	for {
		action, err := serveCycle(actionChan)
		if err != nil {
			baseLogger.Error("An error occurred during server run, shutting down.", slog.String("error", err.Error()))
			return err
		}
		if action != actionRestart {
			break
		}
		baseLogger.Info("--- Server Restarting ---")
	}

	baseLogger.Info("Mimic has shut down.")
	return nil
}

// serveCycle hosts the API until a shutdown or restart is requested, and
// returns the requested action.
func serveCycle(actionChan chan string) (string, error) {
	config, secrets, logger, err := loadEnvironment()
	if err != nil {
		return "", err
	}
	logger.Info("Starting server cycle...")

	lock, err := lockDataDir(config.Server.DataDir)
	if err != nil {
		return "", err
	}
	defer func() { _ = lock.Unlock() }()

	app, err := newApp(config, secrets, logger)
	if err != nil {
		return "", fmt.Errorf("failed to create application: %w", err)
	}

	crawlCtx, cancelCrawls := context.WithCancel(context.Background())
	defer cancelCrawls()
	if watchConfigFile {
		if err = watchConfig(crawlCtx, configPath, logger, actionChan); err != nil {
			logger.Warn("Config file will not be watched", slog.String("error", err.Error()))
		}
	}
	server := NewServer(crawlCtx, app, logger, actionChan)
	apiHttpServer := &http.Server{
		Addr:              config.Server.ApiAddr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Starting api server", slog.String("address", apiHttpServer.Addr))
		if err := apiHttpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Api server failed", slog.String("error", err.Error()))
		}
	}()

	action := <-actionChan // Block here until API or OS signal sends an action.

	logger.Info("Stopping server for " + action + "...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err = apiHttpServer.Shutdown(ctx); err != nil {
		logger.Error("Api server shutdown failed", slog.String("error", err.Error()))
	}
	cancelCrawls()
	server.crawlAPI.Wait()
	logger.Info("HTTP server stopped.")

	logger.Info("Closing corpus store.")
	if err = app.Close(); err != nil {
		logger.Error("Failed to close corpus store", slog.String("error", err.Error()))
	}

	return action, nil
}
