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
	"math"
	"slices"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// CreateProposal validates and stores a new proposal. The duration is in
// seconds and the voting window starts at the current time.
func (v *Voting) CreateProposal(
	ctx context.Context,
	creator Identity,
	description string,
	options []string,
	duration int64,
) (*Proposal, error) {
	ctx, span := v.tracer.Start(
		ctx,
		"voting.CreateProposal",
		trace.WithAttributes(
			attribute.String("creator", string(creator)),
			attribute.Int("num_options", len(options)),
			attribute.Int64("duration", duration),
		),
	)
	defer span.End()
	if err := validateProposal(creator, description, options, duration); err != nil {
		return nil, v.reject(span, "create", err)
	}
	now := v.clock.Now().Unix()
	if duration > math.MaxInt64-now {
		return nil, v.reject(
			span,
			"create",
			fmt.Errorf("%w: %d overflows end time", ErrInvalidDuration, duration),
		)
	}
	id, err := v.idGen.NewID(ctx)
	if err != nil {
		return nil, v.reject(
			span,
			"create",
			fmt.Errorf("generate proposal id: %w", err),
		)
	}
	proposal := &Proposal{
		Id:          id,
		Creator:     creator,
		Description: description,
		Options:     slices.Clone(options),
		VoteCounts:  make([]uint64, len(options)),
		IsActive:    true,
		StartTs:     now,
		EndTs:       now + duration,
	}
	err = v.store.Update(ctx, func(txn StoreTxn) error {
		return txn.CreateProposal(proposal)
	})
	if err != nil {
		if errors.Is(err, ErrRecordExists) {
			err = fmt.Errorf("proposal id %s already in use: %w", id, err)
		} else {
			err = fmt.Errorf("store proposal: %w", err)
		}
		return nil, v.reject(span, "create", err)
	}
	span.SetAttributes(attribute.String("proposal", id))
	if v.metrics != nil {
		v.metrics.proposalsCreated.Inc()
	}
	v.logger.Info(
		"proposal created",
		"component", "voting",
		"proposal", id,
		"creator", creator,
		"end_ts", proposal.EndTs,
	)
	v.publish(
		ProposalCreatedEventType,
		ProposalCreatedEvent{
			ProposalId: id,
			Creator:    creator,
			StartTs:    proposal.StartTs,
			EndTs:      proposal.EndTs,
			NumOptions: len(proposal.Options),
		},
	)
	return proposal.Clone(), nil
}

// CloseProposal ends voting on a proposal once its deadline has been reached.
// Only the creator may close a proposal. Closing an already closed proposal
// succeeds without modifying it.
func (v *Voting) CloseProposal(
	ctx context.Context,
	caller Identity,
	id string,
) (*Proposal, error) {
	ctx, span := v.tracer.Start(
		ctx,
		"voting.CloseProposal",
		trace.WithAttributes(
			attribute.String("proposal", id),
			attribute.String("caller", string(caller)),
		),
	)
	defer span.End()
	now := v.clock.Now().Unix()
	var closed *Proposal
	var alreadyClosed bool
	err := v.store.Update(ctx, func(txn StoreTxn) error {
		alreadyClosed = false
		proposal, err := getProposal(txn, id)
		if err != nil {
			return err
		}
		if proposal.Creator != caller {
			return ErrUnauthorized
		}
		if now < proposal.EndTs {
			return fmt.Errorf(
				"%w: voting ends at %d",
				ErrTooEarlyToClose,
				proposal.EndTs,
			)
		}
		closed = proposal
		if !proposal.IsActive {
			alreadyClosed = true
			return nil
		}
		proposal.IsActive = false
		return txn.PutProposal(proposal)
	})
	if err != nil {
		return nil, v.reject(span, "close", err)
	}
	if alreadyClosed {
		v.logger.Debug(
			"proposal already closed",
			"component", "voting",
			"proposal", id,
		)
	} else {
		if v.metrics != nil {
			v.metrics.proposalsClosed.Inc()
		}
		v.logger.Info(
			"proposal closed",
			"component", "voting",
			"proposal", id,
			"vote_counts", closed.VoteCounts,
		)
	}
	v.publish(
		ProposalClosedEventType,
		ProposalClosedEvent{
			ProposalId: id,
			VoteCounts: slices.Clone(closed.VoteCounts),
			EndTs:      closed.EndTs,
		},
	)
	return closed, nil
}

// DeleteProposal removes a closed proposal. Only the creator may delete a
// proposal, and the storage it occupied is released back to them. Votes cast
// on the proposal are kept.
func (v *Voting) DeleteProposal(
	ctx context.Context,
	caller Identity,
	id string,
) (int, error) {
	ctx, span := v.tracer.Start(
		ctx,
		"voting.DeleteProposal",
		trace.WithAttributes(
			attribute.String("proposal", id),
			attribute.String("caller", string(caller)),
		),
	)
	defer span.End()
	var reclaimed int
	err := v.store.Update(ctx, func(txn StoreTxn) error {
		proposal, err := getProposal(txn, id)
		if err != nil {
			return err
		}
		if proposal.Creator != caller {
			return ErrUnauthorized
		}
		if proposal.IsActive {
			return ErrProposalStillActive
		}
		reclaimed, err = txn.DeleteProposal(id, caller)
		return err
	})
	if err != nil {
		return 0, v.reject(span, "delete", err)
	}
	if v.metrics != nil {
		v.metrics.proposalsDeleted.Inc()
	}
	v.logger.Info(
		"proposal deleted",
		"component", "voting",
		"proposal", id,
		"beneficiary", caller,
		"reclaimed_bytes", reclaimed,
	)
	v.publish(
		ProposalDeletedEventType,
		ProposalDeletedEvent{
			ProposalId:     id,
			Beneficiary:    caller,
			ReclaimedBytes: reclaimed,
		},
	)
	return reclaimed, nil
}

// GetProposal returns the proposal with the given id
func (v *Voting) GetProposal(ctx context.Context, id string) (*Proposal, error) {
	ctx, span := v.tracer.Start(
		ctx,
		"voting.GetProposal",
		trace.WithAttributes(attribute.String("proposal", id)),
	)
	defer span.End()
	var ret *Proposal
	err := v.store.View(ctx, func(txn StoreTxn) error {
		var err error
		ret, err = getProposal(txn, id)
		return err
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return ret, nil
}

func getProposal(txn StoreTxn, id string) (*Proposal, error) {
	proposal, err := txn.GetProposal(id)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrProposalNotFound, id)
		}
		return nil, fmt.Errorf("load proposal: %w", err)
	}
	return proposal, nil
}
