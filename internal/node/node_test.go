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
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blinklabs-io/ballotbox/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		BlobPlugin:      config.DefaultBlobPlugin,
		MetadataPlugin:  config.DefaultMetadataPlugin,
		DatabasePath:    t.TempDir(),
		ShutdownTimeout: "5s",
		MaxTxnRetries:   config.DefaultMaxTxnRetries,
	}
}

func TestNodeOptions(t *testing.T) {
	cfg := testConfig(t)
	opts, err := NodeOptions(cfg, nil, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, opts)

	cfg.ShutdownTimeout = "soon"
	_, err = NodeOptions(cfg, nil, nil)
	require.Error(t, err)
}

func TestOpen(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	cfg := testConfig(t)
	ctx := context.Background()
	n, err := Open(ctx, cfg, logger)
	require.NoError(t, err)
	p, err := n.Voting().CreateProposal(ctx, "alice", "", []string{"A", "B"}, 60)
	require.NoError(t, err)
	require.NoError(t, n.Stop())

	// A second open sees the stored proposal
	n, err = Open(ctx, cfg, logger)
	require.NoError(t, err)
	defer n.Stop() //nolint:errcheck
	got, err := n.Voting().GetProposal(ctx, p.Id)
	require.NoError(t, err)
	assert.Equal(t, p.Options, got.Options)
}

func TestOpenUnknownPlugin(t *testing.T) {
	cfg := testConfig(t)
	cfg.MetadataPlugin = "nosuch"
	_, err := Open(context.Background(), cfg, nil)
	require.Error(t, err)
}
