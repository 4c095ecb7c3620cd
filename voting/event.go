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

import "github.com/blinklabs-io/ballotbox/event"

const (
	ProposalCreatedEventType event.EventType = "voting.proposal_created"
	VoteCastEventType        event.EventType = "voting.vote_cast"
	ProposalClosedEventType  event.EventType = "voting.proposal_closed"
	ProposalDeletedEventType event.EventType = "voting.proposal_deleted"
)

type ProposalCreatedEvent struct {
	ProposalId string
	Creator    Identity
	StartTs    int64
	EndTs      int64
	NumOptions int
}

type VoteCastEvent struct {
	ProposalId  string
	Voter       Identity
	OptionIndex uint32
}

// ProposalClosedEvent carries the final tally of a closed proposal
type ProposalClosedEvent struct {
	ProposalId string
	VoteCounts []uint64
	EndTs      int64
}

// ProposalDeletedEvent reports the storage released to the creator when a
// closed proposal is removed
type ProposalDeletedEvent struct {
	ProposalId     string
	Beneficiary    Identity
	ReclaimedBytes int
}

func (v *Voting) publish(eventType event.EventType, data any) {
	if v.eventBus == nil {
		return
	}
	v.eventBus.Publish(eventType, event.NewEvent(eventType, data))
}
