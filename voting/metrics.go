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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type votingMetrics struct {
	proposalsCreated prometheus.Counter
	proposalsClosed  prometheus.Counter
	proposalsDeleted prometheus.Counter
	votesCast        prometheus.Counter
	rejected         *prometheus.CounterVec
}

func (m *votingMetrics) init(promRegistry prometheus.Registerer) {
	promautoFactory := promauto.With(promRegistry)
	m.proposalsCreated = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "ballotbox_voting_proposals_created_total",
		Help: "total proposals created",
	})
	m.proposalsClosed = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "ballotbox_voting_proposals_closed_total",
		Help: "total proposals closed",
	})
	m.proposalsDeleted = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "ballotbox_voting_proposals_deleted_total",
		Help: "total proposals deleted",
	})
	m.votesCast = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "ballotbox_voting_votes_cast_total",
		Help: "total votes cast",
	})
	m.rejected = promautoFactory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ballotbox_voting_rejected_total",
			Help: "total rejected operations by operation and reason",
		},
		[]string{"operation", "reason"},
	)
}
