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

package types

import "strings"

const (
	ProposalBlobKeyPrefix = "p:"
	VoteBlobKeyPrefix     = "v:"
)

// ProposalBlobKey returns the key of a proposal record
func ProposalBlobKey(id string) []byte {
	return []byte(ProposalBlobKeyPrefix + id)
}

// VoteBlobKeyPrefixFor returns the key prefix shared by all votes on a
// proposal
func VoteBlobKeyPrefixFor(proposalId string) []byte {
	return []byte(VoteBlobKeyPrefix + proposalId + ":")
}

// VoteBlobKey returns the key of the vote cast by voter on a proposal. The
// key is unique per (proposal, voter) pair.
func VoteBlobKey(proposalId string, voter string) []byte {
	return append(VoteBlobKeyPrefixFor(proposalId), voter...)
}

// ParseVoteBlobKey splits a vote key into its proposal id and voter
func ParseVoteBlobKey(key []byte) (string, string, bool) {
	rest, ok := strings.CutPrefix(string(key), VoteBlobKeyPrefix)
	if !ok {
		return "", "", false
	}
	return strings.Cut(rest, ":")
}
