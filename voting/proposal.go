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
	"fmt"
	"slices"
	"time"
)

const (
	MaxDescriptionLength = 200
	MinOptions           = 2
	MaxOptions           = 10
	MaxOptionLength      = 50
)

// Identity is an authenticated caller. It is only ever compared for equality.
type Identity string

// Proposal is a votable item with a fixed set of options and a voting window
type Proposal struct {
	Id          string
	Creator     Identity
	Description string
	Options     []string
	// VoteCounts is index aligned with Options
	VoteCounts []uint64
	IsActive   bool
	StartTs    int64
	EndTs      int64
}

// Vote records a single voter's choice on a proposal. Votes are never
// modified or removed.
type Vote struct {
	ProposalId  string
	Voter       Identity
	OptionIndex uint32
}

type Status string

const (
	StatusOpen    Status = "open"
	StatusExpired Status = "expired"
	StatusClosed  Status = "closed"
)

// ParseStatus converts a status name into a Status
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusOpen, StatusExpired, StatusClosed:
		return Status(s), nil
	}
	return "", fmt.Errorf("unknown proposal status: %q", s)
}

// Status returns the derived state of the proposal at the given time
func (p *Proposal) Status(now time.Time) Status {
	if !p.IsActive {
		return StatusClosed
	}
	if now.Unix() >= p.EndTs {
		return StatusExpired
	}
	return StatusOpen
}

// Clone returns a deep copy of the proposal
func (p *Proposal) Clone() *Proposal {
	ret := *p
	ret.Options = slices.Clone(p.Options)
	ret.VoteCounts = slices.Clone(p.VoteCounts)
	return &ret
}

// Results summarizes the tally of a proposal
type Results struct {
	TotalVotes uint64
	// Percentages holds each option's share of the total, 0-100
	Percentages []float64
	// Leading holds the indices of every option sharing the highest count.
	// It is empty when no votes have been cast.
	Leading []int
}

// Results computes the tally summary for the proposal
func (p *Proposal) Results() Results {
	ret := Results{
		Percentages: make([]float64, len(p.VoteCounts)),
		Leading:     []int{},
	}
	var maxCount uint64
	for _, count := range p.VoteCounts {
		ret.TotalVotes += count
		maxCount = max(maxCount, count)
	}
	if ret.TotalVotes == 0 {
		return ret
	}
	for idx, count := range p.VoteCounts {
		ret.Percentages[idx] = float64(count) / float64(ret.TotalVotes) * 100
		if count == maxCount {
			ret.Leading = append(ret.Leading, idx)
		}
	}
	return ret
}

func validateProposal(
	creator Identity,
	description string,
	options []string,
	duration int64,
) error {
	if creator == "" {
		return ErrInvalidIdentity
	}
	if len(description) > MaxDescriptionLength {
		return fmt.Errorf(
			"%w: %d bytes, maximum is %d",
			ErrDescriptionTooLong,
			len(description),
			MaxDescriptionLength,
		)
	}
	if duration <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidDuration, duration)
	}
	if len(options) < MinOptions {
		return fmt.Errorf(
			"%w: got %d, minimum is %d",
			ErrNotEnoughOptions,
			len(options),
			MinOptions,
		)
	}
	if len(options) > MaxOptions {
		return fmt.Errorf(
			"%w: got %d, maximum is %d",
			ErrTooManyOptions,
			len(options),
			MaxOptions,
		)
	}
	for idx, option := range options {
		if len(option) > MaxOptionLength {
			return fmt.Errorf(
				"%w: option %d is %d bytes, maximum is %d",
				ErrOptionTooLong,
				idx,
				len(option),
				MaxOptionLength,
			)
		}
	}
	return nil
}
