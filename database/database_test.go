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

package database_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blinklabs-io/ballotbox/database"
	"github.com/blinklabs-io/ballotbox/voting"
)

func newTestDB(t *testing.T, config *database.Config) *database.Database {
	t.Helper()
	db, err := database.New(config)
	require.NoError(t, err)
	t.Cleanup(func() {
		db.Close() //nolint:errcheck
	})
	return db
}

func testProposal(id string) *voting.Proposal {
	return &voting.Proposal{
		Id:          id,
		Creator:     "alice",
		Description: "lunch " + id,
		Options:     []string{"pizza", "tacos", "salad"},
		VoteCounts:  []uint64{0, 0, 0},
		IsActive:    true,
		StartTs:     1000,
		EndTs:       2000,
	}
}

func createProposal(t *testing.T, db *database.Database, p *voting.Proposal) {
	t.Helper()
	require.NoError(t, db.Update(context.Background(), func(txn voting.StoreTxn) error {
		return txn.CreateProposal(p)
	}))
}

func getProposal(t *testing.T, db *database.Database, id string) (*voting.Proposal, error) {
	t.Helper()
	var ret *voting.Proposal
	err := db.View(context.Background(), func(txn voting.StoreTxn) error {
		var err error
		ret, err = txn.GetProposal(id)
		return err
	})
	return ret, err
}

func counterValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == name {
			return mf.GetMetric()[0].GetCounter().GetValue()
		}
	}
	return 0
}

func TestProposalRecord(t *testing.T) {
	db := newTestDB(t, nil)
	p := testProposal("p1")
	createProposal(t, db, p)

	got, err := getProposal(t, db, "p1")
	require.NoError(t, err)
	assert.Equal(t, p, got)

	err = db.Update(context.Background(), func(txn voting.StoreTxn) error {
		return txn.CreateProposal(testProposal("p1"))
	})
	require.ErrorIs(t, err, voting.ErrRecordExists)

	updated := testProposal("p1")
	updated.VoteCounts = []uint64{2, 0, 1}
	updated.IsActive = false
	require.NoError(t, db.Update(context.Background(), func(txn voting.StoreTxn) error {
		return txn.PutProposal(updated)
	}))
	got, err = getProposal(t, db, "p1")
	require.NoError(t, err)
	assert.Equal(t, updated, got)
}

func TestProposalRecordEmptyOptions(t *testing.T) {
	db := newTestDB(t, nil)
	p := testProposal("p1")
	p.Options = []string{"", ""}
	p.VoteCounts = []uint64{0, 0}
	createProposal(t, db, p)
	got, err := getProposal(t, db, "p1")
	require.NoError(t, err)
	assert.Equal(t, []string{"", ""}, got.Options)
}

func TestInvalidProposalId(t *testing.T) {
	db := newTestDB(t, nil)
	for _, id := range []string{"", "a:b"} {
		err := db.Update(context.Background(), func(txn voting.StoreTxn) error {
			return txn.CreateProposal(testProposal(id))
		})
		require.ErrorIs(t, err, database.ErrInvalidRecordKey)
	}
}

func TestMissingRecords(t *testing.T) {
	db := newTestDB(t, nil)
	_, err := getProposal(t, db, "missing")
	require.ErrorIs(t, err, voting.ErrRecordNotFound)
	err = db.View(context.Background(), func(txn voting.StoreTxn) error {
		_, err := txn.GetVote("missing", "bob")
		return err
	})
	require.ErrorIs(t, err, voting.ErrRecordNotFound)
	err = db.Update(context.Background(), func(txn voting.StoreTxn) error {
		_, err := txn.DeleteProposal("missing", "alice")
		return err
	})
	require.ErrorIs(t, err, voting.ErrRecordNotFound)
}

func TestVoteRecord(t *testing.T) {
	db := newTestDB(t, nil)
	vote := &voting.Vote{ProposalId: "p1", Voter: "bob:laptop", OptionIndex: 2}
	require.NoError(t, db.Update(context.Background(), func(txn voting.StoreTxn) error {
		return txn.CreateVote(vote)
	}))
	err := db.Update(context.Background(), func(txn voting.StoreTxn) error {
		return txn.CreateVote(&voting.Vote{ProposalId: "p1", Voter: "bob:laptop"})
	})
	require.ErrorIs(t, err, voting.ErrRecordExists)

	var got *voting.Vote
	require.NoError(t, db.View(context.Background(), func(txn voting.StoreTxn) error {
		var err error
		got, err = txn.GetVote("p1", "bob:laptop")
		return err
	}))
	assert.Equal(t, vote, got)
}

func TestDeleteProposal(t *testing.T) {
	reg := prometheus.NewRegistry()
	db := newTestDB(t, &database.Config{PromRegistry: reg})
	createProposal(t, db, testProposal("p1"))
	require.NoError(t, db.Update(context.Background(), func(txn voting.StoreTxn) error {
		return txn.CreateVote(&voting.Vote{ProposalId: "p1", Voter: "bob"})
	}))

	var reclaimed int
	require.NoError(t, db.Update(context.Background(), func(txn voting.StoreTxn) error {
		var err error
		reclaimed, err = txn.DeleteProposal("p1", "alice")
		return err
	}))
	assert.Positive(t, reclaimed)
	assert.Equal(
		t,
		float64(reclaimed),
		counterValue(t, reg, "ballotbox_database_reclaimed_bytes_total"),
	)
	_, err := getProposal(t, db, "p1")
	require.ErrorIs(t, err, voting.ErrRecordNotFound)

	// Votes outlive the proposal
	var votes []*voting.Vote
	require.NoError(t, db.ForEachVote(context.Background(), "p1", func(v *voting.Vote) error {
		votes = append(votes, v)
		return nil
	}))
	assert.Len(t, votes, 1)
}

func TestUpdateRollsBackOnError(t *testing.T) {
	db := newTestDB(t, nil)
	errTest := errors.New("test failure")
	err := db.Update(context.Background(), func(txn voting.StoreTxn) error {
		if err := txn.CreateProposal(testProposal("p1")); err != nil {
			return err
		}
		return errTest
	})
	require.ErrorIs(t, err, errTest)
	_, err = getProposal(t, db, "p1")
	require.ErrorIs(t, err, voting.ErrRecordNotFound)
}

func TestViewRejectsWrites(t *testing.T) {
	db := newTestDB(t, nil)
	err := db.View(context.Background(), func(txn voting.StoreTxn) error {
		return txn.PutProposal(testProposal("p1"))
	})
	require.Error(t, err)
}

func TestUpdateContextCanceled(t *testing.T) {
	db := newTestDB(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	err := db.Update(ctx, func(voting.StoreTxn) error {
		called = true
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

// conflictingUpdate modifies p1 from a second transaction while the first
// attempt of the outer transaction is still open
func conflictingUpdate(t *testing.T, db *database.Database) (int, error) {
	t.Helper()
	attempts := 0
	err := db.Update(context.Background(), func(txn voting.StoreTxn) error {
		attempts++
		p, err := txn.GetProposal("p1")
		if err != nil {
			return err
		}
		if attempts == 1 {
			require.NoError(t, db.Update(context.Background(), func(inner voting.StoreTxn) error {
				other := testProposal("p1")
				other.VoteCounts[0] = 100
				return inner.PutProposal(other)
			}))
		}
		p.VoteCounts[1]++
		return txn.PutProposal(p)
	})
	return attempts, err
}

func TestUpdateRetriesConflict(t *testing.T) {
	reg := prometheus.NewRegistry()
	db := newTestDB(t, &database.Config{PromRegistry: reg})
	createProposal(t, db, testProposal("p1"))

	attempts, err := conflictingUpdate(t, db)
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
	got, err := getProposal(t, db, "p1")
	require.NoError(t, err)
	// The retry saw the concurrent write
	assert.Equal(t, []uint64{100, 1, 0}, got.VoteCounts)
	assert.Equal(
		t,
		1.0,
		counterValue(t, reg, "ballotbox_database_txn_conflicts_total"),
	)
}

func TestUpdateRetriesExhausted(t *testing.T) {
	db := newTestDB(t, &database.Config{MaxTxnRetries: 1})
	createProposal(t, db, testProposal("p1"))

	attempts, err := conflictingUpdate(t, db)
	require.ErrorIs(t, err, database.ErrMaxRetriesExceeded)
	assert.Equal(t, 1, attempts)
	got, err := getProposal(t, db, "p1")
	require.NoError(t, err)
	assert.Equal(t, []uint64{100, 0, 0}, got.VoteCounts)
}

func TestConcurrentIncrements(t *testing.T) {
	db := newTestDB(t, nil)
	createProposal(t, db, testProposal("p1"))

	const workers = 16
	var wg sync.WaitGroup
	errs := make(chan error, workers*2)
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			voter := voting.Identity("voter-" + string(rune('a'+i)))
			// Every worker also races a duplicate of the same vote
			for range 2 {
				errs <- db.Update(context.Background(), func(txn voting.StoreTxn) error {
					if err := txn.CreateVote(&voting.Vote{ProposalId: "p1", Voter: voter}); err != nil {
						return err
					}
					p, err := txn.GetProposal("p1")
					if err != nil {
						return err
					}
					p.VoteCounts[0]++
					return txn.PutProposal(p)
				})
			}
		}()
	}
	wg.Wait()
	close(errs)
	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		require.ErrorIs(t, err, voting.ErrRecordExists)
	}
	assert.Equal(t, workers, succeeded)
	got, err := getProposal(t, db, "p1")
	require.NoError(t, err)
	assert.Equal(t, uint64(workers), got.VoteCounts[0])
}

func TestForEach(t *testing.T) {
	db := newTestDB(t, nil)
	for _, id := range []string{"c", "a", "b"} {
		createProposal(t, db, testProposal(id))
	}
	require.NoError(t, db.Update(context.Background(), func(txn voting.StoreTxn) error {
		for _, v := range []*voting.Vote{
			{ProposalId: "a", Voter: "zed"},
			{ProposalId: "a", Voter: "amy", OptionIndex: 1},
			{ProposalId: "ab", Voter: "bob"},
			{ProposalId: "b", Voter: "bob"},
		} {
			if err := txn.CreateVote(v); err != nil {
				return err
			}
		}
		return nil
	}))

	var ids []string
	require.NoError(t, db.ForEachProposal(context.Background(), func(p *voting.Proposal) error {
		ids = append(ids, p.Id)
		return nil
	}))
	assert.Equal(t, []string{"a", "b", "c"}, ids)

	var voters []voting.Identity
	require.NoError(t, db.ForEachVote(context.Background(), "a", func(v *voting.Vote) error {
		assert.Equal(t, "a", v.ProposalId)
		voters = append(voters, v.Voter)
		return nil
	}))
	assert.Equal(t, []voting.Identity{"amy", "zed"}, voters)

	count := 0
	require.NoError(t, db.ForEachVote(context.Background(), "", func(*voting.Vote) error {
		count++
		return nil
	}))
	assert.Equal(t, 4, count)

	errStop := errors.New("stop")
	err := db.ForEachProposal(context.Background(), func(*voting.Proposal) error {
		return errStop
	})
	require.ErrorIs(t, err, errStop)
}

func TestTxnCoordinatesStores(t *testing.T) {
	db := newTestDB(t, nil)
	p := testProposal("p1")
	txn := db.Transaction(true)
	require.NoError(t, txn.Do(func(txn *database.Txn) error {
		return db.Metadata().SetProposal(database.ProposalModel(p), txn.Metadata())
	}))
	got, err := db.Metadata().GetProposal("p1", nil)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, p, database.ProposalFromModel(got))

	errTest := errors.New("test failure")
	txn = db.Transaction(true)
	err = txn.Do(func(txn *database.Txn) error {
		if err := db.Metadata().SetProposal(database.ProposalModel(testProposal("p2")), txn.Metadata()); err != nil {
			return err
		}
		return errTest
	})
	require.ErrorIs(t, err, errTest)
	got, err = db.Metadata().GetProposal("p2", nil)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestOnDiskReopen(t *testing.T) {
	config := &database.Config{DataDir: t.TempDir()}
	db, err := database.New(config)
	require.NoError(t, err)
	createProposal(t, db, testProposal("p1"))
	require.NoError(t, db.Close())

	db = newTestDB(t, config)
	got, err := getProposal(t, db, "p1")
	require.NoError(t, err)
	assert.Equal(t, "p1", got.Id)
	assert.Equal(t, config.DataDir, db.DataDir())
}

func TestUnknownPlugin(t *testing.T) {
	_, err := database.New(&database.Config{BlobPlugin: "nonexistent"})
	require.Error(t, err)
}
