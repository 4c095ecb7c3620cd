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
	"fmt"

	"github.com/blinklabs-io/ballotbox/database/types"
	"github.com/blinklabs-io/ballotbox/voting"
)

// ForEachProposal calls fn for every stored proposal in key order. All
// records are read from one consistent snapshot.
func (d *Database) ForEachProposal(
	ctx context.Context,
	fn func(*voting.Proposal) error,
) error {
	prefix := []byte(types.ProposalBlobKeyPrefix)
	return d.iterate(ctx, prefix, func(key []byte, val []byte) error {
		p, err := decodeProposal(val)
		if err != nil {
			return fmt.Errorf("record %s: %w", key, err)
		}
		return fn(p)
	})
}

// ForEachVote calls fn for every vote cast on proposalId, ordered by voter.
// An empty proposalId visits every stored vote.
func (d *Database) ForEachVote(
	ctx context.Context,
	proposalId string,
	fn func(*voting.Vote) error,
) error {
	prefix := []byte(types.VoteBlobKeyPrefix)
	if proposalId != "" {
		prefix = types.VoteBlobKeyPrefixFor(proposalId)
	}
	return d.iterate(ctx, prefix, func(key []byte, val []byte) error {
		voteProposalId, voter, ok := types.ParseVoteBlobKey(key)
		if !ok {
			d.logger.Warn(
				"skipping unparseable vote key",
				"component", "database",
				"key", string(key),
			)
			return nil
		}
		v, err := decodeVote(voteProposalId, voter, val)
		if err != nil {
			return fmt.Errorf("record %s: %w", key, err)
		}
		return fn(v)
	})
}

func (d *Database) iterate(
	ctx context.Context,
	prefix []byte,
	fn func(key []byte, val []byte) error,
) error {
	blob := d.Blob()
	if blob == nil {
		return types.ErrBlobStoreUnavailable
	}
	txn := blob.NewTransaction(false)
	defer txn.Rollback() //nolint:errcheck

	iter := blob.NewIterator(txn, types.BlobIteratorOptions{Prefix: prefix})
	defer iter.Close()
	for iter.Seek(prefix); iter.ValidForPrefix(prefix); iter.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}
		item := iter.Item()
		if item == nil {
			continue
		}
		val, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		if err := fn(item.Key(), val); err != nil {
			return err
		}
	}
	return iter.Err()
}
