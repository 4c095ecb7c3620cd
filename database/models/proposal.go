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

package models

import (
	"github.com/blinklabs-io/ballotbox/database/types"
)

// Proposal is the indexed copy of a proposal record
type Proposal struct {
	ID          uint             `gorm:"primarykey"`
	ProposalId  string           `gorm:"size:64;uniqueIndex;not null"`
	Creator     string           `gorm:"size:255;index;not null"`
	Description string           `gorm:"size:255"`
	Options     types.StringList `gorm:"not null"`
	VoteCounts  types.Uint64List `gorm:"not null"`
	IsActive    bool             `gorm:"index:idx_proposal_state,priority:1"`
	StartTs     int64            `gorm:"not null"`
	EndTs       int64            `gorm:"index:idx_proposal_state,priority:2;not null"`
}

// TableName returns the table name
func (Proposal) TableName() string {
	return "proposal"
}

// ProposalFilter narrows a proposal listing. Empty fields match everything.
type ProposalFilter struct {
	Creator string
	// Status is one of "open", "expired" or "closed", evaluated at Now
	Status string
	Now    int64
	Limit  int
	Offset int
}
