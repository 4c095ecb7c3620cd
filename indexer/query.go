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

package indexer

import (
	"context"
	"fmt"

	"github.com/blinklabs-io/ballotbox/database"
	"github.com/blinklabs-io/ballotbox/database/models"
	"github.com/blinklabs-io/ballotbox/voting"
)

// MaxListLimit caps the number of proposals returned by one listing
const MaxListLimit = 100

// ProposalFilter narrows a proposal listing. Empty fields match everything.
type ProposalFilter struct {
	Creator voting.Identity
	Status  voting.Status
	Limit   int
	Offset  int
}

// ListProposals returns indexed proposals matching the filter, latest
// deadline first. Open and expired are evaluated at the current time.
func (i *Indexer) ListProposals(
	ctx context.Context,
	filter ProposalFilter,
) ([]*voting.Proposal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	limit := filter.Limit
	if limit <= 0 || limit > MaxListLimit {
		limit = MaxListLimit
	}
	rows, err := i.db.Metadata().GetProposals(
		models.ProposalFilter{
			Creator: string(filter.Creator),
			Status:  string(filter.Status),
			Now:     i.clock.Now().Unix(),
			Limit:   limit,
			Offset:  max(filter.Offset, 0),
		},
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("list proposals: %w", err)
	}
	ret := make([]*voting.Proposal, 0, len(rows))
	for idx := range rows {
		ret = append(ret, database.ProposalFromModel(&rows[idx]))
	}
	return ret, nil
}

// ListVotes returns the indexed votes on a proposal ordered by voter
func (i *Indexer) ListVotes(
	ctx context.Context,
	proposalId string,
) ([]*voting.Vote, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows, err := i.db.Metadata().GetVotes(proposalId, nil)
	if err != nil {
		return nil, fmt.Errorf("list votes: %w", err)
	}
	ret := make([]*voting.Vote, 0, len(rows))
	for idx := range rows {
		ret = append(ret, database.VoteFromModel(&rows[idx]))
	}
	return ret, nil
}
