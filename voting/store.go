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
	"time"

	"github.com/google/uuid"
)

// Store provides transactional access to proposal and vote records. Each
// Update runs as a single serializable transaction: either every write made by
// fn is applied or none is. The function may be invoked more than once when
// the store retries after a conflicting commit, so it must not have side
// effects outside the transaction.
type Store interface {
	Update(ctx context.Context, fn func(StoreTxn) error) error
	View(ctx context.Context, fn func(StoreTxn) error) error
}

// StoreTxn is the set of record operations available within a transaction
type StoreTxn interface {
	// CreateProposal stores a new proposal, failing with ErrRecordExists if
	// the id is taken
	CreateProposal(*Proposal) error
	GetProposal(id string) (*Proposal, error)
	PutProposal(*Proposal) error
	// DeleteProposal removes a proposal and returns the number of bytes
	// released to the beneficiary
	DeleteProposal(id string, beneficiary Identity) (int, error)
	// CreateVote stores a new vote, failing with ErrRecordExists if the
	// voter already has a vote on the proposal
	CreateVote(*Vote) error
	GetVote(proposalId string, voter Identity) (*Vote, error)
}

// Clock is the trusted time source
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

// IDGenerator produces identifiers for new proposals
type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

type uuidGenerator struct{}

func (uuidGenerator) NewID(context.Context) (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
