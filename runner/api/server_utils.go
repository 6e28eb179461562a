package api

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
)

// RunAPIServer serves the history until SIGINT, SIGTERM or ctx cancellation
func RunAPIServer(ctx context.Context, addr string, store HistoryLoader, logger logrus.FieldLogger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	apiServer := NewServer(addr, store, logger)
	if err := apiServer.Start(ctx); err != nil {
		return fmt.Errorf("failed to start API server: %w", err)
	}

	logger.WithField("addr", apiServer.Addr()).Info("API server started, press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case <-sigChan:
		logger.Info("Received shutdown signal, shutting down API server")
	case <-ctx.Done():
		logger.Info("Context cancelled, shutting down API server")
	}
	return apiServer.Stop()
}
