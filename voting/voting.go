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

// Package voting implements the proposal lifecycle and vote ledger over a
// transactional record store.
package voting

import (
	"errors"
	"io"
	"log/slog"

	"github.com/blinklabs-io/ballotbox/event"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/blinklabs-io/ballotbox/voting"

type Voting struct {
	store        Store
	eventBus     *event.EventBus
	clock        Clock
	idGen        IDGenerator
	logger       *slog.Logger
	promRegistry prometheus.Registerer
	metrics      *votingMetrics
	tracer       trace.Tracer
}

type VotingOptionFunc func(*Voting)

// WithStore specifies the record store. It is required.
func WithStore(store Store) VotingOptionFunc {
	return func(v *Voting) {
		v.store = store
	}
}

// WithEventBus specifies the event bus used for notifications
func WithEventBus(eventBus *event.EventBus) VotingOptionFunc {
	return func(v *Voting) {
		v.eventBus = eventBus
	}
}

// WithClock specifies the time source. The system clock is used by default.
func WithClock(clock Clock) VotingOptionFunc {
	return func(v *Voting) {
		v.clock = clock
	}
}

// WithIDGenerator specifies the proposal ID generator. Random UUIDs are used
// by default.
func WithIDGenerator(idGen IDGenerator) VotingOptionFunc {
	return func(v *Voting) {
		v.idGen = idGen
	}
}

// WithLogger specifies the logger object to use for logging messages
func WithLogger(logger *slog.Logger) VotingOptionFunc {
	return func(v *Voting) {
		v.logger = logger
	}
}

// WithPromRegistry specifies the prometheus registry to use for metrics
func WithPromRegistry(registry prometheus.Registerer) VotingOptionFunc {
	return func(v *Voting) {
		v.promRegistry = registry
	}
}

// New returns a Voting instance configured with the provided options
func New(opts ...VotingOptionFunc) (*Voting, error) {
	v := &Voting{
		clock:  systemClock{},
		idGen:  uuidGenerator{},
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.store == nil {
		return nil, errors.New("no store provided")
	}
	if v.logger == nil {
		v.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if v.promRegistry != nil {
		v.metrics = &votingMetrics{}
		v.metrics.init(v.promRegistry)
	}
	return v, nil
}

// Clock returns the time source used by this instance
func (v *Voting) Clock() Clock {
	return v.clock
}

// reject records a failed operation on the span, metrics and debug log and
// returns the error unchanged
func (v *Voting) reject(span trace.Span, operation string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	if v.metrics != nil {
		v.metrics.rejected.WithLabelValues(operation, rejectReason(err)).Inc()
	}
	v.logger.Debug(
		"operation rejected",
		"component", "voting",
		"operation", operation,
		"error", err,
	)
	return err
}

var rejectReasons = []struct {
	err    error
	reason string
}{
	{ErrDescriptionTooLong, "description_too_long"},
	{ErrInvalidDuration, "invalid_duration"},
	{ErrNotEnoughOptions, "not_enough_options"},
	{ErrTooManyOptions, "too_many_options"},
	{ErrOptionTooLong, "option_too_long"},
	{ErrInvalidIdentity, "invalid_identity"},
	{ErrDeadlinePassed, "deadline_passed"},
	{ErrTooEarlyToClose, "too_early_to_close"},
	{ErrUnauthorized, "unauthorized"},
	{ErrProposalClosed, "proposal_closed"},
	{ErrProposalStillActive, "proposal_still_active"},
	{ErrInvalidOption, "invalid_option"},
	{ErrVoteAlreadyCast, "vote_already_cast"},
	{ErrProposalNotFound, "proposal_not_found"},
	{ErrVoteNotFound, "vote_not_found"},
}

func rejectReason(err error) string {
	for _, r := range rejectReasons {
		if errors.Is(err, r.err) {
			return r.reason
		}
	}
	return "internal"
}
