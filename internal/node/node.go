// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package node

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	_ "net/http/pprof" // #nosec G108
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/blinklabs-io/ballotbox"
	"github.com/blinklabs-io/ballotbox/internal/config"
)

// NodeOptions converts the loaded configuration into node options. The HTTP
// API listener is left out.
func NodeOptions(
	cfg *config.Config,
	logger *slog.Logger,
	promRegistry prometheus.Registerer,
) ([]ballotbox.ConfigOptionFunc, error) {
	shutdownTimeout := 30 * time.Second
	if cfg.ShutdownTimeout != "" {
		var err error
		shutdownTimeout, err = time.ParseDuration(cfg.ShutdownTimeout)
		if err != nil {
			return nil, fmt.Errorf("invalid shutdown timeout: %w", err)
		}
	}
	return []ballotbox.ConfigOptionFunc{
		ballotbox.WithLogger(logger),
		ballotbox.WithDatabasePath(cfg.DatabasePath),
		ballotbox.WithBlobPlugin(cfg.BlobPlugin),
		ballotbox.WithMetadataPlugin(cfg.MetadataPlugin),
		ballotbox.WithMaxTxnRetries(cfg.MaxTxnRetries),
		ballotbox.WithShutdownTimeout(shutdownTimeout),
		ballotbox.WithPrometheusRegistry(promRegistry),
	}, nil
}

// Open starts a node on the configured database without any listeners, for
// one-shot commands. The caller must Stop it.
func Open(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
) (*ballotbox.Node, error) {
	opts, err := NodeOptions(cfg, logger, nil)
	if err != nil {
		return nil, err
	}
	n, err := ballotbox.New(ballotbox.NewConfig(opts...))
	if err != nil {
		return nil, err
	}
	if err := n.Start(ctx); err != nil {
		_ = n.Stop()
		return nil, err
	}
	return n, nil
}

func Run(cfg *config.Config, logger *slog.Logger) error {
	logger.Debug(fmt.Sprintf("config: %+v", cfg), "component", "node")
	opts, err := NodeOptions(cfg, logger, prometheus.DefaultRegisterer)
	if err != nil {
		return err
	}
	if cfg.ApiPort > 0 {
		opts = append(
			opts,
			ballotbox.WithApiListenAddress(
				fmt.Sprintf("%s:%d", cfg.BindAddr, cfg.ApiPort),
			),
			ballotbox.WithTlsCertFilePath(cfg.TlsCertFilePath),
			ballotbox.WithTlsKeyFilePath(cfg.TlsKeyFilePath),
		)
	}
	opts = append(
		opts,
		ballotbox.WithTracing(cfg.Tracing),
		ballotbox.WithTracingStdout(cfg.TracingStdout),
	)
	n, err := ballotbox.New(ballotbox.NewConfig(opts...))
	if err != nil {
		return err
	}
	shutdownTimeout := 30 * time.Second
	if cfg.ShutdownTimeout != "" {
		// Already validated by NodeOptions
		shutdownTimeout, _ = time.ParseDuration(cfg.ShutdownTimeout)
	}
	// Metrics and debug listener
	var metricsServer *http.Server
	if cfg.MetricsPort > 0 {
		http.Handle("/metrics", promhttp.Handler())
		metricsAddr := fmt.Sprintf("%s:%d", cfg.BindAddr, cfg.MetricsPort)
		logger.Info(
			"serving prometheus metrics on "+metricsAddr,
			"component", "node",
		)
		metricsServer = &http.Server{
			Addr:              metricsAddr,
			ReadHeaderTimeout: 60 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil &&
				!errors.Is(err, http.ErrServerClosed) {
				logger.Error(
					fmt.Sprintf("failed to start metrics listener: %s", err),
					"component", "node",
				)
				os.Exit(1)
			}
		}()
	}
	shutdownMetrics := func() {
		if metricsServer == nil {
			return
		}
		shutdownCtx, cancel := context.WithTimeout(
			context.Background(),
			shutdownTimeout,
		)
		defer cancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error(
				"metrics server shutdown error",
				"component", "node",
				"error", err,
			)
		}
	}
	defer shutdownMetrics()

	// Wait for interrupt/termination signal
	signalCtx, signalCtxStop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer signalCtxStop()

	// Run node in goroutine
	errChan := make(chan error, 1)
	go func() {
		//nolint:contextcheck
		errChan <- n.Run(signalCtx)
	}()

	err = <-errChan
	if err != nil {
		logger.Error("node error", "component", "node", "error", err)
		if stopErr := n.Stop(); stopErr != nil {
			logger.Error(
				"shutdown errors occurred during error cleanup",
				"component", "node",
				"error", stopErr,
			)
		}
		return err
	}
	logger.Info("signal received, initiating graceful shutdown", "component", "node")
	if err := n.Stop(); err != nil {
		logger.Error("shutdown errors occurred", "component", "node", "error", err)
		return err
	}
	logger.Info("shutdown complete", "component", "node")
	return nil
}
