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

// Package api serves the voting operations over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"connectrpc.com/connect"
	"connectrpc.com/grpchealth"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

const (
	DefaultListenAddress = ":8080"

	// IdentityHeader carries the caller identity set by an authenticating
	// proxy in front of the server
	IdentityHeader = "X-Ballotbox-Identity"

	// HealthServiceName is the service reported by the gRPC health handler
	HealthServiceName = "ballotbox.api.v1"

	maxRequestBodySize = 64 * 1024
)

// APIConfig holds the listener settings
type APIConfig struct {
	ListenAddress   string
	TlsCertFilePath string
	TlsKeyFilePath  string
}

// API is the HTTP server for proposals and votes
type API struct {
	config     APIConfig
	logger     *slog.Logger
	voting     VotingService
	index      ProposalIndex
	httpServer *http.Server
	mu         sync.Mutex
}

// New creates a new API server instance
func New(
	cfg APIConfig,
	voting VotingService,
	index ProposalIndex,
	logger *slog.Logger,
) *API {
	if logger == nil {
		logger = slog.New(
			slog.NewJSONHandler(io.Discard, nil),
		)
	}
	logger = logger.With("component", "api")
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = DefaultListenAddress
	}
	return &API{
		config: cfg,
		logger: logger,
		voting: voting,
		index:  index,
	}
}

// Handler returns the HTTP handler serving all API routes
func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", a.handleHealth)
	mux.HandleFunc("POST /api/v1/proposals", a.handleCreateProposal)
	mux.HandleFunc("GET /api/v1/proposals", a.handleListProposals)
	mux.HandleFunc("GET /api/v1/proposals/{id}", a.handleGetProposal)
	mux.HandleFunc("DELETE /api/v1/proposals/{id}", a.handleDeleteProposal)
	mux.HandleFunc("POST /api/v1/proposals/{id}/close", a.handleCloseProposal)
	mux.HandleFunc("POST /api/v1/proposals/{id}/votes", a.handleCastVote)
	mux.HandleFunc("GET /api/v1/proposals/{id}/votes", a.handleListVotes)
	mux.HandleFunc(
		"GET /api/v1/proposals/{id}/votes/{voter}",
		a.handleGetVote,
	)
	mux.Handle(
		grpchealth.NewHandler(
			grpchealth.NewStaticChecker(HealthServiceName),
			connect.WithCompressMinBytes(1024),
		),
	)
	return mux
}

// Start starts the HTTP server in a background goroutine. The server is shut
// down when ctx is cancelled.
func (a *API) Start(
	ctx context.Context,
) error {
	a.mu.Lock()
	if a.httpServer != nil {
		a.mu.Unlock()
		return errors.New("server already started")
	}
	useTls := a.config.TlsCertFilePath != "" &&
		a.config.TlsKeyFilePath != ""
	handler := a.Handler()
	if !useTls {
		// Use h2c so gRPC health checks work without TLS
		handler = h2c.NewHandler(handler, &http2.Server{})
	}
	server := &http.Server{
		Addr:              a.config.ListenAddress,
		Handler:           handler,
		ReadHeaderTimeout: 60 * time.Second,
	}
	a.httpServer = server
	a.mu.Unlock()

	if err := a.startServer(server, useTls); err != nil {
		a.mu.Lock()
		a.httpServer = nil
		a.mu.Unlock()
		return err
	}

	a.logger.Info(
		"API listener started on " + a.config.ListenAddress,
	)

	go func() {
		<-ctx.Done()
		a.mu.Lock()
		srv := a.httpServer
		a.httpServer = nil
		a.mu.Unlock()
		if srv == nil {
			return
		}
		a.logger.Debug(
			"context cancelled, shutting down API server",
		)
		//nolint:contextcheck
		shutdownCtx, cancel := context.WithTimeout(
			context.Background(),
			30*time.Second,
		)
		defer cancel()
		//nolint:contextcheck
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.logger.Error(
				"failed to shutdown API server on context cancellation",
				"error", err,
			)
		}
	}()

	return nil
}

// Stop gracefully shuts down the HTTP server
func (a *API) Stop(
	ctx context.Context,
) error {
	a.mu.Lock()
	srv := a.httpServer
	a.httpServer = nil
	a.mu.Unlock()

	if srv != nil {
		a.logger.Debug("shutting down API server")
		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shutdown API server: %w", err)
		}
	}
	return nil
}

// startServer binds the listening socket first so port conflicts are
// reported to the caller, then serves in a background goroutine
func (a *API) startServer(
	server *http.Server,
	useTls bool,
) error {
	ln, err := net.Listen("tcp", server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen for API server: %w", err)
	}
	go func() {
		var err error
		if useTls {
			err = server.ServeTLS(
				ln,
				a.config.TlsCertFilePath,
				a.config.TlsKeyFilePath,
			)
		} else {
			err = server.Serve(ln)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error(
				"API server error",
				"error", err,
			)
		}
	}()
	return nil
}
