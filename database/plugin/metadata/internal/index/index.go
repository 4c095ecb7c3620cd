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

// Package index holds the gorm queries shared by the relational metadata
// plugins
package index

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/blinklabs-io/ballotbox/database/models"
	"github.com/blinklabs-io/ballotbox/database/types"
)

// Txn wraps a gorm transaction and implements types.Txn
type Txn struct {
	db       *gorm.DB
	beginErr error
	finished bool
}

// NewTxn begins a transaction on db. A failure to begin is reported by every
// later use of the returned Txn.
func NewTxn(db *gorm.DB) *Txn {
	tx := db.Begin()
	if tx.Error != nil {
		return &Txn{beginErr: tx.Error}
	}
	return &Txn{db: tx}
}

func (t *Txn) Commit() error {
	if t.beginErr != nil {
		return t.beginErr
	}
	if t.finished {
		return nil
	}
	t.finished = true
	return t.db.Commit().Error
}

func (t *Txn) Rollback() error {
	if t.beginErr != nil {
		return t.beginErr
	}
	if t.finished {
		return nil
	}
	t.finished = true
	return t.db.Rollback().Error
}

// Index implements the proposal and vote queries on top of a gorm handle
type Index struct {
	db *gorm.DB
}

func New(db *gorm.DB) Index {
	return Index{db: db}
}

// Transaction starts a new metadata transaction
func (i Index) Transaction() types.Txn {
	return NewTxn(i.db)
}

func (i Index) resolveDB(txn types.Txn) (*gorm.DB, error) {
	if txn == nil {
		return i.db, nil
	}
	t, ok := txn.(*Txn)
	if !ok {
		return nil, types.ErrTxnWrongType
	}
	if t.beginErr != nil {
		return nil, t.beginErr
	}
	if t.finished {
		return nil, errors.New("transaction already finished")
	}
	return t.db, nil
}

// SetProposal creates or replaces the indexed copy of a proposal
func (i Index) SetProposal(proposal *models.Proposal, txn types.Txn) error {
	db, err := i.resolveDB(txn)
	if err != nil {
		return err
	}
	onConflict := clause.OnConflict{
		Columns: []clause.Column{
			{Name: "proposal_id"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"creator",
			"description",
			"options",
			"vote_counts",
			"is_active",
			"start_ts",
			"end_ts",
		}),
	}
	return db.Clauses(onConflict).Create(proposal).Error
}

// DeleteProposal removes the indexed copy of a proposal. Indexed votes are
// kept.
func (i Index) DeleteProposal(proposalId string, txn types.Txn) error {
	db, err := i.resolveDB(txn)
	if err != nil {
		return err
	}
	return db.Where("proposal_id = ?", proposalId).
		Delete(&models.Proposal{}).Error
}

// GetProposal returns the indexed proposal, or nil if it is not indexed
func (i Index) GetProposal(
	proposalId string,
	txn types.Txn,
) (*models.Proposal, error) {
	db, err := i.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var proposal models.Proposal
	if result := db.Where("proposal_id = ?", proposalId).First(&proposal); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &proposal, nil
}

// GetProposals lists indexed proposals matching the filter, latest deadline
// first
func (i Index) GetProposals(
	filter models.ProposalFilter,
	txn types.Txn,
) ([]models.Proposal, error) {
	db, err := i.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	query := db.Model(&models.Proposal{})
	if filter.Creator != "" {
		query = query.Where("creator = ?", filter.Creator)
	}
	switch filter.Status {
	case "":
	case "open":
		query = query.Where("is_active = ? AND end_ts > ?", true, filter.Now)
	case "expired":
		query = query.Where("is_active = ? AND end_ts <= ?", true, filter.Now)
	case "closed":
		query = query.Where("is_active = ?", false)
	default:
		return nil, errors.New("unknown status filter: " + filter.Status)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}
	var ret []models.Proposal
	if result := query.Order("end_ts DESC").Order("proposal_id").Find(&ret); result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}

// SetVote indexes a vote. Votes are immutable, so an existing row is left
// untouched.
func (i Index) SetVote(vote *models.Vote, txn types.Txn) error {
	db, err := i.resolveDB(txn)
	if err != nil {
		return err
	}
	onConflict := clause.OnConflict{
		Columns: []clause.Column{
			{Name: "proposal_id"},
			{Name: "voter"},
		},
		DoNothing: true,
	}
	return db.Clauses(onConflict).Create(vote).Error
}

// GetVotes lists the indexed votes of a proposal ordered by voter
func (i Index) GetVotes(proposalId string, txn types.Txn) ([]models.Vote, error) {
	db, err := i.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var ret []models.Vote
	if result := db.Where("proposal_id = ?", proposalId).
		Order("voter").
		Find(&ret); result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}
