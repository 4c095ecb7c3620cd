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
	"time"

	"github.com/blinklabs-io/ballotbox/voting"
)

// HealthResponse is returned by GET /health
type HealthResponse struct {
	IsHealthy bool `json:"is_healthy"`
}

// ErrorResponse is returned with every non-2xx status
type ErrorResponse struct {
	StatusCode int    `json:"status_code"`
	Error      string `json:"error"`
	Message    string `json:"message"`
}

// CreateProposalRequest is the body of POST /api/v1/proposals
type CreateProposalRequest struct {
	Description string   `json:"description"`
	Options     []string `json:"options"`
	// Duration is the voting window in seconds
	Duration int64 `json:"duration"`
}

// CastVoteRequest is the body of POST /api/v1/proposals/{id}/votes
type CastVoteRequest struct {
	OptionIndex *uint32 `json:"option_index"`
}

// ProposalResponse represents a proposal with its derived status and results
type ProposalResponse struct {
	Id          string          `json:"id"`
	Creator     string          `json:"creator"`
	Description string          `json:"description"`
	Options     []string        `json:"options"`
	VoteCounts  []uint64        `json:"vote_counts"`
	IsActive    bool            `json:"is_active"`
	StartTs     int64           `json:"start_ts"`
	EndTs       int64           `json:"end_ts"`
	Status      string          `json:"status"`
	Results     ResultsResponse `json:"results"`
}

type ResultsResponse struct {
	TotalVotes  uint64    `json:"total_votes"`
	Percentages []float64 `json:"percentages"`
	Leading     []int     `json:"leading"`
}

// VoteResponse represents a single recorded vote
type VoteResponse struct {
	ProposalId  string `json:"proposal_id"`
	Voter       string `json:"voter"`
	OptionIndex uint32 `json:"option_index"`
}

// DeleteProposalResponse is returned by DELETE /api/v1/proposals/{id}
type DeleteProposalResponse struct {
	ProposalId     string `json:"proposal_id"`
	ReclaimedBytes int    `json:"reclaimed_bytes"`
}

// NewProposalResponse builds the response for a proposal at the given time
func NewProposalResponse(p *voting.Proposal, now time.Time) ProposalResponse {
	results := p.Results()
	return ProposalResponse{
		Id:          p.Id,
		Creator:     string(p.Creator),
		Description: p.Description,
		Options:     p.Options,
		VoteCounts:  p.VoteCounts,
		IsActive:    p.IsActive,
		StartTs:     p.StartTs,
		EndTs:       p.EndTs,
		Status:      string(p.Status(now)),
		Results: ResultsResponse{
			TotalVotes:  results.TotalVotes,
			Percentages: results.Percentages,
			Leading:     results.Leading,
		},
	}
}

// NewVoteResponse builds the response for a vote
func NewVoteResponse(v *voting.Vote) VoteResponse {
	return VoteResponse{
		ProposalId:  v.ProposalId,
		Voter:       string(v.Voter),
		OptionIndex: v.OptionIndex,
	}
}
