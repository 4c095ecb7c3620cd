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

package voting_test

import (
	"context"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blinklabs-io/ballotbox/voting"
)

func TestCreateProposal(t *testing.T) {
	env := newTestEnv(t)
	created := env.collect(voting.ProposalCreatedEventType)
	options := []string{"pizza", "tacos", "salad"}
	p, err := env.voting.CreateProposal(
		context.Background(),
		"alice",
		"lunch",
		options,
		3600,
	)
	require.NoError(t, err)
	assert.Equal(t, "proposal-1", p.Id)
	assert.Equal(t, voting.Identity("alice"), p.Creator)
	assert.Equal(t, options, p.Options)
	assert.Equal(t, []uint64{0, 0, 0}, p.VoteCounts)
	assert.True(t, p.IsActive)
	assert.Equal(t, int64(testStartTs), p.StartTs)
	assert.Equal(t, int64(testStartTs+3600), p.EndTs)

	// The caller's slice is not retained
	options[0] = "sushi"
	stored, err := env.voting.GetProposal(context.Background(), p.Id)
	require.NoError(t, err)
	assert.Equal(t, "pizza", stored.Options[0])
	assert.Equal(t, p.VoteCounts, stored.VoteCounts)

	evts := created()
	require.Len(t, evts, 1)
	assert.Equal(
		t,
		voting.ProposalCreatedEvent{
			ProposalId: p.Id,
			Creator:    "alice",
			StartTs:    testStartTs,
			EndTs:      testStartTs + 3600,
			NumOptions: 3,
		},
		evts[0].Data,
	)
	assert.Equal(t, 1.0, env.counter(t, "ballotbox_voting_proposals_created_total"))
}

func TestCreateProposalTallyAligned(t *testing.T) {
	env := newTestEnv(t)
	for numOptions := voting.MinOptions; numOptions <= voting.MaxOptions; numOptions++ {
		options := make([]string, numOptions)
		for i := range options {
			options[i] = strings.Repeat("o", i)
		}
		p, err := env.voting.CreateProposal(context.Background(), "alice", "", options, 1)
		require.NoError(t, err)
		require.Len(t, p.VoteCounts, numOptions)
		for _, count := range p.VoteCounts {
			assert.Zero(t, count)
		}
	}
}

func TestCreateProposalValidation(t *testing.T) {
	testDefs := []struct {
		name        string
		creator     voting.Identity
		description string
		options     []string
		duration    int64
		expectedErr error
	}{
		{
			name:        "description too long",
			creator:     "alice",
			description: strings.Repeat("d", 201),
			options:     []string{"A", "B"},
			duration:    100,
			expectedErr: voting.ErrDescriptionTooLong,
		},
		{
			name:        "one option",
			creator:     "alice",
			options:     []string{"A"},
			duration:    100,
			expectedErr: voting.ErrNotEnoughOptions,
		},
		{
			name:        "no options",
			creator:     "alice",
			duration:    100,
			expectedErr: voting.ErrNotEnoughOptions,
		},
		{
			name:        "eleven options",
			creator:     "alice",
			options:     strings.Split("a,b,c,d,e,f,g,h,i,j,k", ","),
			duration:    100,
			expectedErr: voting.ErrTooManyOptions,
		},
		{
			name:        "option too long",
			creator:     "alice",
			options:     []string{"A", strings.Repeat("o", 51)},
			duration:    100,
			expectedErr: voting.ErrOptionTooLong,
		},
		{
			name:        "zero duration",
			creator:     "alice",
			options:     []string{"A", "B"},
			duration:    0,
			expectedErr: voting.ErrInvalidDuration,
		},
		{
			name:        "negative duration",
			creator:     "alice",
			options:     []string{"A", "B"},
			duration:    -5,
			expectedErr: voting.ErrInvalidDuration,
		},
		{
			name:        "end time overflow",
			creator:     "alice",
			options:     []string{"A", "B"},
			duration:    math.MaxInt64,
			expectedErr: voting.ErrInvalidDuration,
		},
		{
			name:        "empty creator",
			options:     []string{"A", "B"},
			duration:    100,
			expectedErr: voting.ErrInvalidIdentity,
		},
		{
			// Lengths are counted in bytes
			name:        "multibyte description",
			creator:     "alice",
			description: strings.Repeat("é", 101),
			options:     []string{"A", "B"},
			duration:    100,
			expectedErr: voting.ErrDescriptionTooLong,
		},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			env := newTestEnv(t)
			created := env.collect(voting.ProposalCreatedEventType)
			p, err := env.voting.CreateProposal(
				context.Background(),
				testDef.creator,
				testDef.description,
				testDef.options,
				testDef.duration,
			)
			require.ErrorIs(t, err, testDef.expectedErr)
			assert.True(t, voting.IsValidationError(err))
			assert.Nil(t, p)
			assert.Empty(t, created())
			count := 0
			require.NoError(t, env.db.ForEachProposal(context.Background(), func(*voting.Proposal) error {
				count++
				return nil
			}))
			assert.Zero(t, count, "rejected proposal was stored")
		})
	}
}

func TestCreateProposalLimits(t *testing.T) {
	env := newTestEnv(t)
	options := make([]string, voting.MaxOptions)
	for i := range options {
		options[i] = strings.Repeat("o", voting.MaxOptionLength)
	}
	p, err := env.voting.CreateProposal(
		context.Background(),
		"alice",
		strings.Repeat("d", voting.MaxDescriptionLength),
		options,
		1,
	)
	require.NoError(t, err)
	assert.Len(t, p.VoteCounts, voting.MaxOptions)

	// Empty option labels are accepted
	_, err = env.voting.CreateProposal(context.Background(), "alice", "", []string{"", ""}, 1)
	require.NoError(t, err)
}

func TestCreateProposalIdCollision(t *testing.T) {
	env := newTestEnv(t, voting.WithIDGenerator(fixedIDGenerator("same")))
	_, err := env.voting.CreateProposal(context.Background(), "alice", "", []string{"A", "B"}, 10)
	require.NoError(t, err)
	_, err = env.voting.CreateProposal(context.Background(), "bob", "", []string{"A", "B"}, 10)
	require.ErrorIs(t, err, voting.ErrRecordExists)
	// The first proposal is untouched
	p, err := env.voting.GetProposal(context.Background(), "same")
	require.NoError(t, err)
	assert.Equal(t, voting.Identity("alice"), p.Creator)
}

func TestCloseProposal(t *testing.T) {
	env := newTestEnv(t)
	closedEvts := env.collect(voting.ProposalClosedEventType)
	p := env.lunchProposal(t)
	env.clock.Set(testStartTs + 10)
	_, err := env.voting.CastVote(context.Background(), "v1", p.Id, 0)
	require.NoError(t, err)
	env.clock.Set(testStartTs + 99)
	_, err = env.voting.CastVote(context.Background(), "v2", p.Id, 1)
	require.NoError(t, err)

	// Too early, even for the creator
	_, err = env.voting.CloseProposal(context.Background(), "alice", p.Id)
	require.ErrorIs(t, err, voting.ErrTooEarlyToClose)
	assert.True(t, voting.IsStateError(err))

	env.clock.Set(testStartTs + 100)
	_, err = env.voting.CloseProposal(context.Background(), "mallory", p.Id)
	require.ErrorIs(t, err, voting.ErrUnauthorized)

	closed, err := env.voting.CloseProposal(context.Background(), "alice", p.Id)
	require.NoError(t, err)
	assert.False(t, closed.IsActive)
	assert.Equal(t, []uint64{1, 1}, closed.VoteCounts)

	stored, err := env.voting.GetProposal(context.Background(), p.Id)
	require.NoError(t, err)
	assert.False(t, stored.IsActive)
	assert.Equal(t, voting.StatusClosed, stored.Status(env.clock.Now()))

	evts := closedEvts()
	require.Len(t, evts, 1)
	assert.Equal(
		t,
		voting.ProposalClosedEvent{
			ProposalId: p.Id,
			VoteCounts: []uint64{1, 1},
			EndTs:      testStartTs + 100,
		},
		evts[0].Data,
	)
	assert.Equal(t, 1.0, env.counter(t, "ballotbox_voting_proposals_closed_total"))
	assert.Equal(
		t,
		1.0,
		env.counter(t, "ballotbox_voting_rejected_total", "close", "too_early_to_close"),
	)
}

func TestCloseProposalTwice(t *testing.T) {
	env := newTestEnv(t)
	closedEvts := env.collect(voting.ProposalClosedEventType)
	p := env.lunchProposal(t)
	env.clock.Set(testStartTs + 50)
	_, err := env.voting.CastVote(context.Background(), "v1", p.Id, 1)
	require.NoError(t, err)
	env.clock.Set(testStartTs + 500)
	_, err = env.voting.CloseProposal(context.Background(), "alice", p.Id)
	require.NoError(t, err)

	// A repeated close succeeds, re-announces the tally and changes nothing
	env.clock.Set(testStartTs + 1000)
	again, err := env.voting.CloseProposal(context.Background(), "alice", p.Id)
	require.NoError(t, err)
	assert.False(t, again.IsActive)
	assert.Equal(t, []uint64{0, 1}, again.VoteCounts)
	assert.Equal(t, []uint64{0, 1}, env.tally(t, p.Id))
	assert.Len(t, closedEvts(), 2)
	assert.Equal(t, 1.0, env.counter(t, "ballotbox_voting_proposals_closed_total"))

	// The creator check still applies
	_, err = env.voting.CloseProposal(context.Background(), "mallory", p.Id)
	require.ErrorIs(t, err, voting.ErrUnauthorized)
}

func TestCloseProposalNotFound(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.voting.CloseProposal(context.Background(), "alice", "missing")
	require.ErrorIs(t, err, voting.ErrProposalNotFound)
	assert.True(t, voting.IsNotFoundError(err))
}

func TestDeleteProposal(t *testing.T) {
	env := newTestEnv(t)
	deletedEvts := env.collect(voting.ProposalDeletedEventType)
	p := env.lunchProposal(t)
	env.clock.Set(testStartTs + 10)
	_, err := env.voting.CastVote(context.Background(), "v1", p.Id, 0)
	require.NoError(t, err)

	_, err = env.voting.DeleteProposal(context.Background(), "alice", p.Id)
	require.ErrorIs(t, err, voting.ErrProposalStillActive)

	// Expired but not closed is still active
	env.clock.Set(testStartTs + 200)
	_, err = env.voting.DeleteProposal(context.Background(), "alice", p.Id)
	require.ErrorIs(t, err, voting.ErrProposalStillActive)

	_, err = env.voting.CloseProposal(context.Background(), "alice", p.Id)
	require.NoError(t, err)
	_, err = env.voting.DeleteProposal(context.Background(), "mallory", p.Id)
	require.ErrorIs(t, err, voting.ErrUnauthorized)

	reclaimed, err := env.voting.DeleteProposal(context.Background(), "alice", p.Id)
	require.NoError(t, err)
	assert.Positive(t, reclaimed)

	_, err = env.voting.GetProposal(context.Background(), p.Id)
	require.ErrorIs(t, err, voting.ErrProposalNotFound)
	_, err = env.voting.DeleteProposal(context.Background(), "alice", p.Id)
	require.ErrorIs(t, err, voting.ErrProposalNotFound)
	_, err = env.voting.CastVote(context.Background(), "v2", p.Id, 0)
	require.ErrorIs(t, err, voting.ErrProposalNotFound)

	// The vote record survives the proposal
	vote, err := env.voting.GetVote(context.Background(), p.Id, "v1")
	require.NoError(t, err)
	assert.Equal(t, uint32(0), vote.OptionIndex)

	evts := deletedEvts()
	require.Len(t, evts, 1)
	assert.Equal(
		t,
		voting.ProposalDeletedEvent{
			ProposalId:     p.Id,
			Beneficiary:    "alice",
			ReclaimedBytes: reclaimed,
		},
		evts[0].Data,
	)
	assert.Equal(t, 1.0, env.counter(t, "ballotbox_voting_proposals_deleted_total"))
}
