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

package sqlite

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blinklabs-io/ballotbox/database/models"
	"github.com/blinklabs-io/ballotbox/database/types"
)

func setupTestStore(t *testing.T) *MetadataStoreSqlite {
	t.Helper()
	store, err := New("", nil, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		store.Close() //nolint:errcheck
	})
	return store
}

func testProposal(id string, creator string, active bool, endTs int64) *models.Proposal {
	return &models.Proposal{
		ProposalId:  id,
		Creator:     creator,
		Description: "proposal " + id,
		Options:     types.StringList{"yes", "no"},
		VoteCounts:  types.Uint64List{0, 0},
		IsActive:    active,
		StartTs:     endTs - 3600,
		EndTs:       endTs,
	}
}

func TestProposalUpsert(t *testing.T) {
	store := setupTestStore(t)
	require.NoError(t, store.SetProposal(testProposal("p1", "alice", true, 2000), nil))

	got, err := store.GetProposal("p1", nil)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "alice", got.Creator)
	assert.Equal(t, types.StringList{"yes", "no"}, got.Options)
	assert.Equal(t, types.Uint64List{0, 0}, got.VoteCounts)
	assert.True(t, got.IsActive)

	// Replacing the record updates the existing row
	updated := testProposal("p1", "alice", false, 2000)
	updated.VoteCounts = types.Uint64List{3, 1}
	require.NoError(t, store.SetProposal(updated, nil))
	got, err = store.GetProposal("p1", nil)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, types.Uint64List{3, 1}, got.VoteCounts)
	assert.False(t, got.IsActive)

	var count int64
	require.NoError(t, store.DB().Model(&models.Proposal{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestGetProposalMissing(t *testing.T) {
	store := setupTestStore(t)
	got, err := store.GetProposal("missing", nil)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestGetProposalsFilter(t *testing.T) {
	store := setupTestStore(t)
	const now = 1500
	require.NoError(t, store.SetProposal(testProposal("open-a", "alice", true, 3000), nil))
	require.NoError(t, store.SetProposal(testProposal("open-b", "bob", true, 2000), nil))
	require.NoError(t, store.SetProposal(testProposal("expired", "alice", true, 1000), nil))
	require.NoError(t, store.SetProposal(testProposal("closed", "bob", false, 1200), nil))

	ids := func(proposals []models.Proposal) []string {
		ret := make([]string, 0, len(proposals))
		for _, p := range proposals {
			ret = append(ret, p.ProposalId)
		}
		return ret
	}

	testDefs := []struct {
		name     string
		filter   models.ProposalFilter
		expected []string
	}{
		{
			name:     "all",
			filter:   models.ProposalFilter{Now: now},
			expected: []string{"open-a", "open-b", "closed", "expired"},
		},
		{
			name:     "open",
			filter:   models.ProposalFilter{Status: "open", Now: now},
			expected: []string{"open-a", "open-b"},
		},
		{
			name:     "expired",
			filter:   models.ProposalFilter{Status: "expired", Now: now},
			expected: []string{"expired"},
		},
		{
			name:     "closed",
			filter:   models.ProposalFilter{Status: "closed", Now: now},
			expected: []string{"closed"},
		},
		{
			name:     "creator",
			filter:   models.ProposalFilter{Creator: "alice", Now: now},
			expected: []string{"open-a", "expired"},
		},
		{
			name:     "page",
			filter:   models.ProposalFilter{Now: now, Limit: 2, Offset: 1},
			expected: []string{"open-b", "closed"},
		},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			got, err := store.GetProposals(testDef.filter, nil)
			require.NoError(t, err)
			assert.Equal(t, testDef.expected, ids(got))
		})
	}

	_, err := store.GetProposals(models.ProposalFilter{Status: "bogus"}, nil)
	require.Error(t, err)
}

func TestSetVoteIdempotent(t *testing.T) {
	store := setupTestStore(t)
	vote := &models.Vote{ProposalId: "p1", Voter: "bob", OptionIndex: 1}
	require.NoError(t, store.SetVote(vote, nil))
	// A replayed vote is ignored
	require.NoError(t, store.SetVote(&models.Vote{ProposalId: "p1", Voter: "bob", OptionIndex: 0}, nil))
	require.NoError(t, store.SetVote(&models.Vote{ProposalId: "p1", Voter: "alice", OptionIndex: 0}, nil))

	votes, err := store.GetVotes("p1", nil)
	require.NoError(t, err)
	require.Len(t, votes, 2)
	assert.Equal(t, "alice", votes[0].Voter)
	assert.Equal(t, "bob", votes[1].Voter)
	assert.Equal(t, uint32(1), votes[1].OptionIndex)
}

func TestDeleteProposalKeepsVotes(t *testing.T) {
	store := setupTestStore(t)
	require.NoError(t, store.SetProposal(testProposal("p1", "alice", false, 1000), nil))
	require.NoError(t, store.SetVote(&models.Vote{ProposalId: "p1", Voter: "bob"}, nil))
	require.NoError(t, store.DeleteProposal("p1", nil))

	got, err := store.GetProposal("p1", nil)
	require.NoError(t, err)
	assert.Nil(t, got)
	votes, err := store.GetVotes("p1", nil)
	require.NoError(t, err)
	assert.Len(t, votes, 1)

	// Deleting an unknown proposal is not an error
	require.NoError(t, store.DeleteProposal("p1", nil))
}

func TestTransaction(t *testing.T) {
	store := setupTestStore(t)

	txn := store.Transaction()
	require.NoError(t, store.SetProposal(testProposal("rolled-back", "alice", true, 1000), txn))
	require.NoError(t, txn.Rollback())
	got, err := store.GetProposal("rolled-back", nil)
	require.NoError(t, err)
	assert.Nil(t, got)

	txn = store.Transaction()
	require.NoError(t, store.SetProposal(testProposal("committed", "alice", true, 1000), txn))
	require.NoError(t, store.SetVote(&models.Vote{ProposalId: "committed", Voter: "bob"}, txn))
	require.NoError(t, txn.Commit())
	got, err = store.GetProposal("committed", nil)
	require.NoError(t, err)
	assert.NotNil(t, got)

	// A finished transaction cannot be reused
	err = store.SetProposal(testProposal("late", "alice", true, 1000), txn)
	require.Error(t, err)
	// Finishing twice is a no-op
	require.NoError(t, txn.Commit())
	require.NoError(t, txn.Rollback())
}

type otherTxn struct{}

func (otherTxn) Commit() error   { return nil }
func (otherTxn) Rollback() error { return nil }

func TestWrongTxnType(t *testing.T) {
	store := setupTestStore(t)
	err := store.SetProposal(testProposal("p1", "alice", true, 1000), otherTxn{})
	require.ErrorIs(t, err, types.ErrTxnWrongType)
}

func TestInMemoryStoresAreSeparate(t *testing.T) {
	store1 := setupTestStore(t)
	store2 := setupTestStore(t)
	require.NoError(t, store1.SetProposal(testProposal("p1", "alice", true, 1000), nil))
	got, err := store2.GetProposal("p1", nil)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFileBasedStorePersists(t *testing.T) {
	dataDir := filepath.Join(t.TempDir(), "metadata")
	store, err := NewWithOptions(WithDataDir(dataDir))
	require.NoError(t, err)
	require.NoError(t, store.Start())
	// Start is idempotent
	require.NoError(t, store.Start())
	require.NoError(t, store.SetProposal(testProposal("p1", "alice", true, 1000), nil))
	require.NoError(t, store.Close())
	// Close is idempotent
	require.NoError(t, store.Close())

	_, err = os.Stat(filepath.Join(dataDir, "metadata.sqlite"))
	require.NoError(t, err)

	store, err = New(dataDir, nil, nil)
	require.NoError(t, err)
	defer store.Close() //nolint:errcheck
	got, err := store.GetProposal("p1", nil)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "alice", got.Creator)
}

func TestDBStatsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	store, err := New("", nil, reg)
	require.NoError(t, err)
	defer store.Close() //nolint:errcheck
	// A second store on the same registry does not fail
	store2, err := New("", nil, reg)
	require.NoError(t, err)
	defer store2.Close() //nolint:errcheck

	families, err := reg.Gather()
	require.NoError(t, err)
	found := false
	for _, mf := range families {
		if mf.GetName() == "go_sql_open_connections" {
			found = true
		}
	}
	assert.True(t, found, "expected connection pool metrics")
}
