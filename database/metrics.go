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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type databaseMetrics struct {
	txnConflicts   prometheus.Counter
	txnRetryAborts prometheus.Counter
	reclaimedBytes prometheus.Counter
}

func newDatabaseMetrics(promRegistry prometheus.Registerer) *databaseMetrics {
	promautoFactory := promauto.With(promRegistry)
	return &databaseMetrics{
		txnConflicts: promautoFactory.NewCounter(
			prometheus.CounterOpts{
				Name: "ballotbox_database_txn_conflicts_total",
				Help: "transactions retried after a conflicting commit",
			},
		),
		txnRetryAborts: promautoFactory.NewCounter(
			prometheus.CounterOpts{
				Name: "ballotbox_database_txn_retries_exhausted_total",
				Help: "transactions abandoned after exhausting retries",
			},
		),
		reclaimedBytes: promautoFactory.NewCounter(
			prometheus.CounterOpts{
				Name: "ballotbox_database_reclaimed_bytes_total",
				Help: "record bytes released by deleted proposals",
			},
		),
	}
}
