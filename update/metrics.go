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

package update

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type applierMetrics struct {
	proposalsApplied prometheus.Counter
	votesApplied     prometheus.Counter
	payloadsRejected *prometheus.CounterVec
	proposalsDecided prometheus.Counter
	rollbacks        prometheus.Counter
	normalizeDropped prometheus.Counter
	trackedProposals prometheus.Gauge
}

func (m *applierMetrics) init(promRegistry prometheus.Registerer) {
	promautoFactory := promauto.With(promRegistry)
	m.proposalsApplied = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "update_proposals_applied_total",
		Help: "total update proposals verified and applied",
	})
	m.votesApplied = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "update_votes_applied_total",
		Help: "total update votes folded into tracked proposals",
	})
	m.payloadsRejected = promautoFactory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "update_payloads_rejected_total",
			Help: "total update payloads rejected, by validation failure",
		},
		[]string{"reason"},
	)
	m.proposalsDecided = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "update_proposals_decided_total",
		Help: "total tracked proposals moved to a decided state",
	})
	m.rollbacks = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "update_rollbacks_total",
		Help: "total payload applications rolled back",
	})
	m.normalizeDropped = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "update_normalize_dropped_total",
		Help: "total undecided proposals dropped by normalization",
	})
	m.trackedProposals = promautoFactory.NewGauge(prometheus.GaugeOpts{
		Name: "update_tracked_proposals",
		Help: "undecided proposals currently tracked by the poll",
	})
}
