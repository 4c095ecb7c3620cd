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

package postgres

import (
	"os"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blinklabs-io/ballotbox/database/models"
	"github.com/blinklabs-io/ballotbox/database/types"
)

// isPostgresConfigured reports whether an integration database is available
func isPostgresConfigured() bool {
	return os.Getenv("POSTGRES_PASSWORD") != "" ||
		os.Getenv("POSTGRES_DSN") != ""
}

// getTestPostgresOptions returns options for creating a test postgres store
// from environment variables
func getTestPostgresOptions() []PostgresOptionFunc {
	opts := []PostgresOptionFunc{
		WithPassword(os.Getenv("POSTGRES_PASSWORD")),
		WithDatabase("ballotbox_test"),
	}
	if envHost := os.Getenv("POSTGRES_HOST"); envHost != "" {
		opts = append(opts, WithHost(envHost))
	}
	if envPort := os.Getenv("POSTGRES_PORT"); envPort != "" {
		if p, err := strconv.ParseUint(envPort, 10, 32); err == nil {
			opts = append(opts, WithPort(uint(p)))
		}
	}
	if envUser := os.Getenv("POSTGRES_USER"); envUser != "" {
		opts = append(opts, WithUser(envUser))
	}
	if envDB := os.Getenv("POSTGRES_DATABASE"); envDB != "" {
		opts = append(opts, WithDatabase(envDB))
	}
	if envSSL := os.Getenv("POSTGRES_SSLMODE"); envSSL != "" {
		opts = append(opts, WithSSLMode(envSSL))
	}
	if envDSN := os.Getenv("POSTGRES_DSN"); envDSN != "" {
		opts = append(opts, WithDSN(envDSN))
	}
	return opts
}

func newTestPostgresStore(t *testing.T) *MetadataStorePostgres {
	t.Helper()

	if !isPostgresConfigured() {
		t.Skip(
			"Skipping postgres integration test: postgres not configured (set POSTGRES_PASSWORD or POSTGRES_DSN)",
		)
	}
	store, err := NewWithOptions(getTestPostgresOptions()...)
	require.NoError(t, err)
	require.NoError(t, store.Start())
	t.Cleanup(func() {
		for _, model := range models.MigrateModels {
			_ = store.DB().Migrator().DropTable(model)
		}
		_ = store.Close()
	})
	// Start from empty tables
	require.NoError(t, store.DB().Where("1 = 1").Delete(&models.Vote{}).Error)
	require.NoError(t, store.DB().Where("1 = 1").Delete(&models.Proposal{}).Error)
	return store
}

func TestBuildDSN(t *testing.T) {
	store, err := NewWithOptions(
		WithHost("db.local"),
		WithPassword("secret"),
		WithDatabase("ballotbox"),
	)
	require.NoError(t, err)
	assert.Equal(
		t,
		"host=db.local user=postgres password=secret dbname=ballotbox port=5432 sslmode=disable TimeZone=UTC",
		store.buildDSN(),
	)

	store, err = NewWithOptions(WithDSN("  postgres://u:p@h/db  "))
	require.NoError(t, err)
	assert.Equal(t, "postgres://u:p@h/db", store.buildDSN())
}

func TestCloseWithoutStart(t *testing.T) {
	store, err := NewWithOptions()
	require.NoError(t, err)
	require.NoError(t, store.Close())
}

func TestPostgresProposalIndex(t *testing.T) {
	store := newTestPostgresStore(t)
	proposal := &models.Proposal{
		ProposalId:  "p1",
		Creator:     "alice",
		Description: "lunch",
		Options:     types.StringList{"pizza", "tacos"},
		VoteCounts:  types.Uint64List{0, 0},
		IsActive:    true,
		StartTs:     1000,
		EndTs:       2000,
	}
	require.NoError(t, store.SetProposal(proposal, nil))
	proposal.ID = 0
	proposal.VoteCounts = types.Uint64List{1, 0}
	require.NoError(t, store.SetProposal(proposal, nil))
	require.NoError(t, store.SetVote(&models.Vote{ProposalId: "p1", Voter: "bob"}, nil))
	require.NoError(t, store.SetVote(&models.Vote{ProposalId: "p1", Voter: "bob", OptionIndex: 1}, nil))

	got, err := store.GetProposal("p1", nil)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, types.Uint64List{1, 0}, got.VoteCounts)

	open, err := store.GetProposals(
		models.ProposalFilter{Status: "open", Now: 1500},
		nil,
	)
	require.NoError(t, err)
	assert.Len(t, open, 1)

	votes, err := store.GetVotes("p1", nil)
	require.NoError(t, err)
	require.Len(t, votes, 1)
	assert.Equal(t, uint32(0), votes[0].OptionIndex)

	require.NoError(t, store.DeleteProposal("p1", nil))
	got, err = store.GetProposal("p1", nil)
	require.NoError(t, err)
	assert.Nil(t, got)
}
