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

package voting

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// CastVote records the voter's choice and increments the matching tally in a
// single transaction. A voter may vote at most once per proposal.
func (v *Voting) CastVote(
	ctx context.Context,
	voter Identity,
	id string,
	optionIndex uint32,
) (*Vote, error) {
	ctx, span := v.tracer.Start(
		ctx,
		"voting.CastVote",
		trace.WithAttributes(
			attribute.String("proposal", id),
			attribute.String("voter", string(voter)),
			attribute.Int64("option_index", int64(optionIndex)),
		),
	)
	defer span.End()
	if voter == "" {
		return nil, v.reject(span, "cast", ErrInvalidIdentity)
	}
	now := v.clock.Now().Unix()
	vote := &Vote{
		ProposalId:  id,
		Voter:       voter,
		OptionIndex: optionIndex,
	}
	err := v.store.Update(ctx, func(txn StoreTxn) error {
		proposal, err := getProposal(txn, id)
		if err != nil {
			return err
		}
		if !proposal.IsActive {
			return ErrProposalClosed
		}
		if now >= proposal.EndTs {
			return fmt.Errorf(
				"%w: voting ended at %d",
				ErrDeadlinePassed,
				proposal.EndTs,
			)
		}
		if int(optionIndex) >= len(proposal.Options) {
			return fmt.Errorf(
				"%w: %d, proposal has %d options",
				ErrInvalidOption,
				optionIndex,
				len(proposal.Options),
			)
		}
		if err := txn.CreateVote(vote); err != nil {
			if errors.Is(err, ErrRecordExists) {
				return fmt.Errorf("%w: %w", ErrVoteAlreadyCast, err)
			}
			return fmt.Errorf("store vote: %w", err)
		}
		proposal.VoteCounts[optionIndex]++
		return txn.PutProposal(proposal)
	})
	if err != nil {
		return nil, v.reject(span, "cast", err)
	}
	if v.metrics != nil {
		v.metrics.votesCast.Inc()
	}
	v.logger.Debug(
		"vote cast",
		"component", "voting",
		"proposal", id,
		"voter", voter,
		"option_index", optionIndex,
	)
	v.publish(
		VoteCastEventType,
		VoteCastEvent{
			ProposalId:  id,
			Voter:       voter,
			OptionIndex: optionIndex,
		},
	)
	return vote, nil
}

// GetVote returns the vote cast by voter on the given proposal
func (v *Voting) GetVote(
	ctx context.Context,
	id string,
	voter Identity,
) (*Vote, error) {
	ctx, span := v.tracer.Start(
		ctx,
		"voting.GetVote",
		trace.WithAttributes(
			attribute.String("proposal", id),
			attribute.String("voter", string(voter)),
		),
	)
	defer span.End()
	var ret *Vote
	err := v.store.View(ctx, func(txn StoreTxn) error {
		vote, err := txn.GetVote(id, voter)
		if err != nil {
			if errors.Is(err, ErrRecordNotFound) {
				return fmt.Errorf("%w: %s on %s", ErrVoteNotFound, voter, id)
			}
			return fmt.Errorf("load vote: %w", err)
		}
		ret = vote
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return ret, nil
}
