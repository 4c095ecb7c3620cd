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

package ballotbox

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/blinklabs-io/ballotbox/api"
	"github.com/blinklabs-io/ballotbox/database"
	"github.com/blinklabs-io/ballotbox/event"
	"github.com/blinklabs-io/ballotbox/indexer"
	"github.com/blinklabs-io/ballotbox/voting"
)

var ErrAlreadyStarted = errors.New("node already started")

type Node struct {
	eventBus      *event.EventBus
	db            *database.Database
	voting        *voting.Voting
	indexer       *indexer.Indexer
	api           *api.API
	shutdownFuncs []func(context.Context) error
	config        Config
	done          chan struct{}
	startOnce     sync.Once
	shutdownOnce  sync.Once
}

func New(cfg Config) (*Node, error) {
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	eventBus := event.NewEventBus(cfg.promRegistry, cfg.logger)
	n := &Node{
		config:   cfg,
		eventBus: eventBus,
		done:     make(chan struct{}),
	}
	if err := n.configValidate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return n, nil
}

// Start opens the database and brings up the voting service, the indexer and
// the HTTP API when configured. It returns once everything is running. Stop
// releases whatever was started, also after a failed Start.
func (n *Node) Start(ctx context.Context) error {
	err := ErrAlreadyStarted
	n.startOnce.Do(func() {
		err = n.start(ctx)
	})
	return err
}

func (n *Node) start(ctx context.Context) error {
	// Configure tracing
	if n.config.tracing {
		if err := n.setupTracing(); err != nil {
			return err
		}
	}
	// Load database
	db, err := database.New(&database.Config{
		DataDir:        n.config.dataDir,
		Logger:         n.config.logger,
		PromRegistry:   n.config.promRegistry,
		BlobPlugin:     n.config.blobPlugin,
		MetadataPlugin: n.config.metadataPlugin,
		MaxTxnRetries:  n.config.maxTxnRetries,
	})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	n.db = db
	// Load voting service
	votingOpts := []voting.VotingOptionFunc{
		voting.WithStore(n.db),
		voting.WithEventBus(n.eventBus),
		voting.WithLogger(n.config.logger),
		voting.WithPromRegistry(n.config.promRegistry),
	}
	if n.config.clock != nil {
		votingOpts = append(votingOpts, voting.WithClock(n.config.clock))
	}
	n.voting, err = voting.New(votingOpts...)
	if err != nil {
		return fmt.Errorf("failed to load voting service: %w", err)
	}
	// Start indexer
	n.indexer, err = indexer.New(
		indexer.WithDatabase(n.db),
		indexer.WithEventBus(n.eventBus),
		indexer.WithLogger(n.config.logger),
		indexer.WithPromRegistry(n.config.promRegistry),
		indexer.WithClock(n.voting.Clock()),
	)
	if err != nil {
		return fmt.Errorf("failed to load indexer: %w", err)
	}
	if err := n.indexer.Start(ctx); err != nil {
		return fmt.Errorf("failed to start indexer: %w", err)
	}
	// Start HTTP API
	if n.config.apiListenAddress != "" {
		n.api = api.New(
			api.APIConfig{
				ListenAddress:   n.config.apiListenAddress,
				TlsCertFilePath: n.config.tlsCertFilePath,
				TlsKeyFilePath:  n.config.tlsKeyFilePath,
			},
			n.voting,
			n.indexer,
			n.config.logger,
		)
		//nolint:contextcheck
		if err := n.api.Start(context.Background()); err != nil {
			return fmt.Errorf("failed to start API: %w", err)
		}
	}
	n.config.logger.Info(
		"node started",
		"component", "node",
	)
	return nil
}

// Run starts the node if needed and blocks until Stop is called or ctx is
// cancelled
func (n *Node) Run(ctx context.Context) error {
	if err := n.Start(ctx); err != nil && !errors.Is(err, ErrAlreadyStarted) {
		return err
	}
	select {
	case <-n.done:
	case <-ctx.Done():
	}
	return nil
}

// Voting returns the voting service. It is nil until the node is started.
func (n *Node) Voting() *voting.Voting {
	return n.voting
}

// Indexer returns the proposal index. It is nil until the node is started.
func (n *Node) Indexer() *indexer.Indexer {
	return n.indexer
}

// EventBus returns the node's event bus
func (n *Node) EventBus() *event.EventBus {
	return n.eventBus
}

func (n *Node) Stop() error {
	var err error
	n.shutdownOnce.Do(func() {
		err = n.shutdown()
	})
	return err
}

func (n *Node) shutdown() error {
	// Create shutdown context with timeout (default 30s if not configured)
	shutdownTimeout := 30 * time.Second
	if n.config.shutdownTimeout > 0 {
		shutdownTimeout = n.config.shutdownTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var err error

	n.config.logger.Debug("starting graceful shutdown", "component", "node")

	// Phase 1: Stop accepting new work
	if n.api != nil {
		if stopErr := n.api.Stop(ctx); stopErr != nil {
			err = errors.Join(err, fmt.Errorf("api shutdown: %w", stopErr))
		}
	}

	// Phase 2: Drain index updates and close database
	if n.indexer != nil {
		n.indexer.Stop()
	}
	if n.db != nil {
		if closeErr := n.db.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("database close: %w", closeErr))
		}
	}

	// Phase 3: Cleanup resources
	for _, fn := range n.shutdownFuncs {
		if fnErr := fn(ctx); fnErr != nil {
			err = errors.Join(err, fmt.Errorf("shutdown function: %w", fnErr))
		}
	}
	n.shutdownFuncs = nil

	if n.eventBus != nil {
		n.eventBus.Stop()
	}

	n.config.logger.Debug("graceful shutdown complete", "component", "node")
	close(n.done)
	return err
}
