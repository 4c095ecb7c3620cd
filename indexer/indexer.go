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

// Package indexer maintains the queryable metadata index of proposals and
// votes. It follows voting events and copies the authoritative records from
// the blob store into the metadata store, so the index converges on the
// stored state regardless of event order or duplicates.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/blinklabs-io/ballotbox/database"
	"github.com/blinklabs-io/ballotbox/database/models"
	"github.com/blinklabs-io/ballotbox/event"
	"github.com/blinklabs-io/ballotbox/voting"
)

var ErrNotStarted = errors.New("indexer not started")

var indexedEventTypes = []event.EventType{
	voting.ProposalCreatedEventType,
	voting.VoteCastEventType,
	voting.ProposalClosedEventType,
	voting.ProposalDeletedEventType,
}

type Indexer struct {
	db           *database.Database
	eventBus     *event.EventBus
	logger       *slog.Logger
	promRegistry prometheus.Registerer
	metrics      *indexerMetrics
	clock        voting.Clock
	subs         map[event.EventType]event.EventSubscriberId
	sub          *subscriber
	queue        chan queueItem
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	mu           sync.Mutex
}

// queueItem is either an event to apply or a flush marker
type queueItem struct {
	evt  event.Event
	done chan struct{}
}

// subscriber feeds the indexer queue from the event bus. Deliver blocks while
// the queue is full.
type subscriber struct {
	queue  chan<- queueItem
	mu     sync.RWMutex
	closed bool
}

func (s *subscriber) Deliver(evt event.Event) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil
	}
	s.queue <- queueItem{evt: evt}
	return nil
}

func (s *subscriber) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

type IndexerOptionFunc func(*Indexer)

func WithDatabase(db *database.Database) IndexerOptionFunc {
	return func(i *Indexer) {
		i.db = db
	}
}

func WithEventBus(eventBus *event.EventBus) IndexerOptionFunc {
	return func(i *Indexer) {
		i.eventBus = eventBus
	}
}

func WithLogger(logger *slog.Logger) IndexerOptionFunc {
	return func(i *Indexer) {
		i.logger = logger
	}
}

func WithPromRegistry(registry prometheus.Registerer) IndexerOptionFunc {
	return func(i *Indexer) {
		i.promRegistry = registry
	}
}

// WithClock sets the time source used to evaluate status filters
func WithClock(clock voting.Clock) IndexerOptionFunc {
	return func(i *Indexer) {
		i.clock = clock
	}
}

func New(opts ...IndexerOptionFunc) (*Indexer, error) {
	i := &Indexer{}
	for _, opt := range opts {
		opt(i)
	}
	if i.db == nil {
		return nil, errors.New("no database provided")
	}
	if i.eventBus == nil {
		return nil, errors.New("no event bus provided")
	}
	if i.logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		i.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if i.clock == nil {
		i.clock = systemClock{}
	}
	if i.promRegistry != nil {
		i.metrics = newIndexerMetrics(i.promRegistry)
	}
	return i, nil
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

// Start rebuilds the index from the blob store and then follows voting
// events until Stop is called
func (i *Indexer) Start(ctx context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.subs != nil {
		return errors.New("indexer already started")
	}
	i.queue = make(chan queueItem, event.EventQueueSize)
	i.sub = &subscriber{queue: i.queue}
	runCtx, cancel := context.WithCancel(context.Background())
	i.cancel = cancel
	i.wg.Add(1)
	go i.run(runCtx)
	// Subscribe before the rebuild so that no change is missed in between
	i.subs = make(map[event.EventType]event.EventSubscriberId)
	for _, eventType := range indexedEventTypes {
		i.subs[eventType] = i.eventBus.RegisterSubscriber(eventType, i.sub)
	}
	if err := i.Resync(ctx); err != nil {
		i.stopLocked()
		return fmt.Errorf("rebuild index: %w", err)
	}
	i.logger.Info(
		"indexer started",
		"component", "indexer",
	)
	return nil
}

// Stop unsubscribes from the event bus and waits for queued events to be
// applied
func (i *Indexer) Stop() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.stopLocked()
}

func (i *Indexer) stopLocked() {
	if i.subs == nil {
		return
	}
	for eventType, subId := range i.subs {
		i.eventBus.Unsubscribe(eventType, subId)
	}
	i.subs = nil
	// No delivery can be in flight once the subscriber is closed
	i.sub.Close()
	close(i.queue)
	i.wg.Wait()
	i.cancel()
}

// Flush waits until every event delivered so far has been applied
func (i *Indexer) Flush() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.subs == nil {
		return ErrNotStarted
	}
	done := make(chan struct{})
	i.queue <- queueItem{done: done}
	<-done
	return nil
}

func (i *Indexer) run(ctx context.Context) {
	defer i.wg.Done()
	for item := range i.queue {
		if item.done != nil {
			close(item.done)
			continue
		}
		i.handleEvent(ctx, item.evt)
	}
}

func (i *Indexer) handleEvent(ctx context.Context, evt event.Event) {
	var err error
	switch data := evt.Data.(type) {
	case voting.ProposalCreatedEvent:
		err = i.syncProposal(ctx, data.ProposalId)
	case voting.ProposalClosedEvent:
		err = i.syncProposal(ctx, data.ProposalId)
	case voting.ProposalDeletedEvent:
		err = i.syncProposal(ctx, data.ProposalId)
	case voting.VoteCastEvent:
		err = i.syncVote(ctx, data.ProposalId, data.Voter)
	default:
		err = fmt.Errorf("unexpected event data type %T", evt.Data)
	}
	if i.metrics != nil {
		i.metrics.eventsApplied.WithLabelValues(string(evt.Type)).Inc()
	}
	if err != nil {
		if i.metrics != nil {
			i.metrics.errors.Inc()
		}
		i.logger.Error(
			"failed to apply event to index",
			"component", "indexer",
			"type", evt.Type,
			"error", err,
		)
	}
}

// syncProposal copies the stored proposal into the index, or removes it from
// the index when it no longer exists
func (i *Indexer) syncProposal(ctx context.Context, id string) error {
	var proposal *voting.Proposal
	err := i.db.View(ctx, func(txn voting.StoreTxn) error {
		var err error
		proposal, err = txn.GetProposal(id)
		return err
	})
	if err != nil && !errors.Is(err, voting.ErrRecordNotFound) {
		return err
	}
	txn := database.NewMetadataOnlyTxn(i.db, true)
	return txn.Do(func(txn *database.Txn) error {
		if proposal == nil {
			return i.db.Metadata().DeleteProposal(id, txn.Metadata())
		}
		return i.db.Metadata().SetProposal(
			database.ProposalModel(proposal),
			txn.Metadata(),
		)
	})
}

// syncVote copies a stored vote and the tally of its proposal into the index
func (i *Indexer) syncVote(
	ctx context.Context,
	proposalId string,
	voter voting.Identity,
) error {
	var vote *voting.Vote
	err := i.db.View(ctx, func(txn voting.StoreTxn) error {
		var err error
		vote, err = txn.GetVote(proposalId, voter)
		return err
	})
	if err != nil {
		return err
	}
	txn := database.NewMetadataOnlyTxn(i.db, true)
	if err := txn.Do(func(txn *database.Txn) error {
		return i.db.Metadata().SetVote(database.VoteModel(vote), txn.Metadata())
	}); err != nil {
		return err
	}
	return i.syncProposal(ctx, proposalId)
}

// Resync rebuilds the index from the blob store. Index rows without a stored
// proposal are removed.
func (i *Indexer) Resync(ctx context.Context) error {
	start := time.Now()
	var numProposals, numVotes int
	txn := database.NewMetadataOnlyTxn(i.db, true)
	err := txn.Do(func(txn *database.Txn) error {
		metadata := i.db.Metadata()
		stored := make(map[string]bool)
		err := i.db.ForEachProposal(ctx, func(p *voting.Proposal) error {
			stored[p.Id] = true
			numProposals++
			return metadata.SetProposal(database.ProposalModel(p), txn.Metadata())
		})
		if err != nil {
			return err
		}
		indexed, err := metadata.GetProposals(
			models.ProposalFilter{},
			txn.Metadata(),
		)
		if err != nil {
			return err
		}
		for _, row := range indexed {
			if stored[row.ProposalId] {
				continue
			}
			if err := metadata.DeleteProposal(row.ProposalId, txn.Metadata()); err != nil {
				return err
			}
		}
		return i.db.ForEachVote(ctx, "", func(v *voting.Vote) error {
			numVotes++
			return metadata.SetVote(database.VoteModel(v), txn.Metadata())
		})
	})
	if err != nil {
		return err
	}
	i.logger.Info(
		"index rebuilt",
		"component", "indexer",
		"proposals", numProposals,
		"votes", numVotes,
		"duration", time.Since(start).String(),
	)
	return nil
}
