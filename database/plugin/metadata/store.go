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

package metadata

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/blinklabs-io/ballotbox/database/models"
	"github.com/blinklabs-io/ballotbox/database/plugin"
	"github.com/blinklabs-io/ballotbox/database/types"
)

// MetadataStore holds the queryable index of proposals and votes. Every
// method accepts an optional transaction from Transaction(); nil runs the
// query on its own.
type MetadataStore interface {
	// Database
	Close() error
	DB() *gorm.DB
	Transaction() types.Txn

	// Proposals
	SetProposal(*models.Proposal, types.Txn) error
	DeleteProposal(string, types.Txn) error
	GetProposal(string, types.Txn) (*models.Proposal, error)
	GetProposals(models.ProposalFilter, types.Txn) ([]models.Proposal, error)

	// Votes
	SetVote(*models.Vote, types.Txn) error
	GetVotes(string, types.Txn) ([]models.Vote, error)
}

// New returns the started metadata plugin selected by name
func New(pluginName string) (MetadataStore, error) {
	p, err := plugin.StartPlugin(plugin.PluginTypeMetadata, pluginName)
	if err != nil {
		return nil, err
	}
	metadataStore, ok := p.(MetadataStore)
	if !ok {
		_ = p.Stop()
		return nil, fmt.Errorf(
			"plugin '%s' does not implement MetadataStore interface",
			pluginName,
		)
	}
	return metadataStore, nil
}
