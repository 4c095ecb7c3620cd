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
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/blinklabs-io/ballotbox/database/types"
	"github.com/blinklabs-io/ballotbox/voting"
)

// Update runs fn in a read-write transaction. When the commit conflicts with
// a concurrent writer, fn is run again in a fresh transaction, up to the
// configured retry limit or until ctx is done.
func (d *Database) Update(
	ctx context.Context,
	fn func(voting.StoreTxn) error,
) error {
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := d.runStoreTxn(true, fn)
		if err == nil || !errors.Is(err, types.ErrTxnConflict) {
			return err
		}
		if d.metrics != nil {
			d.metrics.txnConflicts.Inc()
		}
		if attempt >= d.config.MaxTxnRetries {
			if d.metrics != nil {
				d.metrics.txnRetryAborts.Inc()
			}
			return fmt.Errorf(
				"%w after %d attempts: %w",
				ErrMaxRetriesExceeded,
				attempt,
				err,
			)
		}
		d.logger.Debug(
			"retrying conflicting transaction",
			"component", "database",
			"attempt", attempt,
		)
	}
}

// View runs fn in a read-only transaction
func (d *Database) View(
	ctx context.Context,
	fn func(voting.StoreTxn) error,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return d.runStoreTxn(false, fn)
}

func (d *Database) runStoreTxn(
	readWrite bool,
	fn func(voting.StoreTxn) error,
) error {
	txn := NewBlobOnlyTxn(d, readWrite)
	st := &storeTxn{db: d, txn: txn}
	err := txn.Do(func(*Txn) error {
		return fn(st)
	})
	if err != nil {
		return err
	}
	if st.reclaimed > 0 && d.metrics != nil {
		d.metrics.reclaimedBytes.Add(float64(st.reclaimed))
	}
	return nil
}

// storeTxn implements voting.StoreTxn on top of the blob store
type storeTxn struct {
	db        *Database
	txn       *Txn
	reclaimed int
}

func (s *storeTxn) get(key []byte) ([]byte, error) {
	data, err := s.db.Blob().Get(s.txn.Blob(), key)
	if err != nil {
		if errors.Is(err, types.ErrBlobKeyNotFound) {
			return nil, voting.ErrRecordNotFound
		}
		return nil, err
	}
	return data, nil
}

func (s *storeTxn) exists(key []byte) (bool, error) {
	_, err := s.get(key)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, voting.ErrRecordNotFound) {
		return false, nil
	}
	return false, err
}

func (s *storeTxn) CreateProposal(p *voting.Proposal) error {
	if p.Id == "" || strings.Contains(p.Id, ":") {
		return fmt.Errorf("%w: proposal id %q", ErrInvalidRecordKey, p.Id)
	}
	key := types.ProposalBlobKey(p.Id)
	found, err := s.exists(key)
	if err != nil {
		return err
	}
	if found {
		return voting.ErrRecordExists
	}
	return s.putProposal(key, p)
}

func (s *storeTxn) GetProposal(id string) (*voting.Proposal, error) {
	data, err := s.get(types.ProposalBlobKey(id))
	if err != nil {
		return nil, err
	}
	return decodeProposal(data)
}

func (s *storeTxn) PutProposal(p *voting.Proposal) error {
	return s.putProposal(types.ProposalBlobKey(p.Id), p)
}

func (s *storeTxn) putProposal(key []byte, p *voting.Proposal) error {
	data, err := encodeProposal(p)
	if err != nil {
		return err
	}
	return s.db.Blob().Set(s.txn.Blob(), key, data)
}

func (s *storeTxn) DeleteProposal(
	id string,
	beneficiary voting.Identity,
) (int, error) {
	key := types.ProposalBlobKey(id)
	data, err := s.get(key)
	if err != nil {
		return 0, err
	}
	if err := s.db.Blob().Delete(s.txn.Blob(), key); err != nil {
		return 0, err
	}
	reclaimed := len(key) + len(data)
	s.reclaimed += reclaimed
	s.db.logger.Debug(
		"released proposal record",
		"component", "database",
		"proposal_id", id,
		"beneficiary", beneficiary,
		"bytes", reclaimed,
	)
	return reclaimed, nil
}

func (s *storeTxn) CreateVote(v *voting.Vote) error {
	key := types.VoteBlobKey(v.ProposalId, string(v.Voter))
	found, err := s.exists(key)
	if err != nil {
		return err
	}
	if found {
		return voting.ErrRecordExists
	}
	data, err := encodeVote(v)
	if err != nil {
		return err
	}
	return s.db.Blob().Set(s.txn.Blob(), key, data)
}

func (s *storeTxn) GetVote(
	proposalId string,
	voter voting.Identity,
) (*voting.Vote, error) {
	data, err := s.get(types.VoteBlobKey(proposalId, string(voter)))
	if err != nil {
		return nil, err
	}
	return decodeVote(proposalId, string(voter), data)
}
