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

package database

import (
	"fmt"

	"github.com/blinklabs-io/gouroboros/cbor"

	"github.com/blinklabs-io/ballotbox/database/models"
	"github.com/blinklabs-io/ballotbox/database/types"
	"github.com/blinklabs-io/ballotbox/voting"
)

// ProposalRecord is the stored form of a proposal
type ProposalRecord struct {
	cbor.StructAsArray
	Id          string
	Creator     string
	Description string
	Options     []string
	VoteCounts  []uint64
	IsActive    bool
	StartTs     int64
	EndTs       int64
}

// VoteRecord is the stored form of a vote. The proposal id and voter are
// part of the key and are not repeated in the value.
type VoteRecord struct {
	cbor.StructAsArray
	OptionIndex uint32
}

func newProposalRecord(p *voting.Proposal) *ProposalRecord {
	return &ProposalRecord{
		Id:          p.Id,
		Creator:     string(p.Creator),
		Description: p.Description,
		Options:     p.Options,
		VoteCounts:  p.VoteCounts,
		IsActive:    p.IsActive,
		StartTs:     p.StartTs,
		EndTs:       p.EndTs,
	}
}

// Proposal converts the record to its domain form
func (r *ProposalRecord) Proposal() *voting.Proposal {
	return &voting.Proposal{
		Id:          r.Id,
		Creator:     voting.Identity(r.Creator),
		Description: r.Description,
		Options:     r.Options,
		VoteCounts:  r.VoteCounts,
		IsActive:    r.IsActive,
		StartTs:     r.StartTs,
		EndTs:       r.EndTs,
	}
}

func encodeProposal(p *voting.Proposal) ([]byte, error) {
	data, err := cbor.Encode(newProposalRecord(p))
	if err != nil {
		return nil, fmt.Errorf("encode proposal %s: %w", p.Id, err)
	}
	return data, nil
}

func decodeProposal(data []byte) (*voting.Proposal, error) {
	var rec ProposalRecord
	if _, err := cbor.Decode(data, &rec); err != nil {
		return nil, fmt.Errorf("decode proposal: %w", err)
	}
	return rec.Proposal(), nil
}

func encodeVote(v *voting.Vote) ([]byte, error) {
	data, err := cbor.Encode(&VoteRecord{OptionIndex: v.OptionIndex})
	if err != nil {
		return nil, fmt.Errorf("encode vote: %w", err)
	}
	return data, nil
}

func decodeVote(proposalId string, voter string, data []byte) (*voting.Vote, error) {
	var rec VoteRecord
	if _, err := cbor.Decode(data, &rec); err != nil {
		return nil, fmt.Errorf("decode vote: %w", err)
	}
	return &voting.Vote{
		ProposalId:  proposalId,
		Voter:       voting.Identity(voter),
		OptionIndex: rec.OptionIndex,
	}, nil
}

// ProposalModel converts a proposal to its metadata index row
func ProposalModel(p *voting.Proposal) *models.Proposal {
	return &models.Proposal{
		ProposalId:  p.Id,
		Creator:     string(p.Creator),
		Description: p.Description,
		Options:     types.StringList(p.Options),
		VoteCounts:  types.Uint64List(p.VoteCounts),
		IsActive:    p.IsActive,
		StartTs:     p.StartTs,
		EndTs:       p.EndTs,
	}
}

// ProposalFromModel converts a metadata index row to a proposal
func ProposalFromModel(m *models.Proposal) *voting.Proposal {
	return &voting.Proposal{
		Id:          m.ProposalId,
		Creator:     voting.Identity(m.Creator),
		Description: m.Description,
		Options:     []string(m.Options),
		VoteCounts:  []uint64(m.VoteCounts),
		IsActive:    m.IsActive,
		StartTs:     m.StartTs,
		EndTs:       m.EndTs,
	}
}

// VoteModel converts a vote to its metadata index row
func VoteModel(v *voting.Vote) *models.Vote {
	return &models.Vote{
		ProposalId:  v.ProposalId,
		Voter:       string(v.Voter),
		OptionIndex: v.OptionIndex,
	}
}

// VoteFromModel converts a metadata index row to a vote
func VoteFromModel(m *models.Vote) *voting.Vote {
	return &voting.Vote{
		ProposalId:  m.ProposalId,
		Voter:       voting.Identity(m.Voter),
		OptionIndex: m.OptionIndex,
	}
}
