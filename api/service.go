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

package api

import (
	"context"

	"github.com/blinklabs-io/ballotbox/indexer"
	"github.com/blinklabs-io/ballotbox/voting"
)

// VotingService is the interface the API server uses to run voting
// operations. It is implemented by *voting.Voting.
type VotingService interface {
	CreateProposal(
		ctx context.Context,
		creator voting.Identity,
		description string,
		options []string,
		duration int64,
	) (*voting.Proposal, error)
	CloseProposal(
		ctx context.Context,
		caller voting.Identity,
		id string,
	) (*voting.Proposal, error)
	DeleteProposal(
		ctx context.Context,
		caller voting.Identity,
		id string,
	) (int, error)
	GetProposal(ctx context.Context, id string) (*voting.Proposal, error)
	CastVote(
		ctx context.Context,
		voter voting.Identity,
		id string,
		optionIndex uint32,
	) (*voting.Vote, error)
	GetVote(
		ctx context.Context,
		id string,
		voter voting.Identity,
	) (*voting.Vote, error)

	// Clock returns the time source used to derive proposal status
	Clock() voting.Clock
}

// ProposalIndex is the interface the API server uses for listings. It is
// implemented by *indexer.Indexer.
type ProposalIndex interface {
	ListProposals(
		ctx context.Context,
		filter indexer.ProposalFilter,
	) ([]*voting.Proposal, error)
	ListVotes(ctx context.Context, proposalId string) ([]*voting.Vote, error)
}
