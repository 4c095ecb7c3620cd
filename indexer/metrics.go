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

package indexer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type indexerMetrics struct {
	eventsApplied *prometheus.CounterVec
	errors        prometheus.Counter
}

func newIndexerMetrics(promRegistry prometheus.Registerer) *indexerMetrics {
	promautoFactory := promauto.With(promRegistry)
	return &indexerMetrics{
		eventsApplied: promautoFactory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ballotbox_indexer_events_total",
				Help: "voting events applied to the metadata index by type",
			},
			[]string{"type"},
		),
		errors: promautoFactory.NewCounter(
			prometheus.CounterOpts{
				Name: "ballotbox_indexer_errors_total",
				Help: "voting events that failed to apply to the metadata index",
			},
		),
	}
}
