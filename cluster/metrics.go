// Copyright 2026 The EventStore Authors
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

package cluster

import "github.com/prometheus/client_golang/prometheus"

// metrics is the set of gauges/counters a controller exposes. One instance
// per controller, registered by newMetrics against the registry the caller
// passes in (cmd/eventstored passes the default registry; tests pass nil,
// which skips registration so parallel test runs do not collide).
type metrics struct {
	role        *prometheus.GaugeVec
	transitions *prometheus.CounterVec
	denies      *prometheus.CounterVec
	forwards    prometheus.Counter
}

func newMetrics(reg prometheus.Registerer, instanceID string) *metrics {
	m := &metrics{
		role: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "eventstore",
			Subsystem: "cluster",
			Name:      "node_role",
			Help:      "1 for the role this node currently holds, 0 otherwise.",
			ConstLabels: prometheus.Labels{
				"instance_id": instanceID,
			},
		}, []string{"role"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "eventstore",
			Subsystem: "cluster",
			Name:      "role_transitions_total",
			Help:      "Count of role transitions by destination role.",
			ConstLabels: prometheus.Labels{
				"instance_id": instanceID,
			},
		}, []string{"role"}),
		denies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "eventstore",
			Subsystem: "cluster",
			Name:      "request_denied_total",
			Help:      "Count of client requests denied by admission, by reason.",
			ConstLabels: prometheus.Labels{
				"instance_id": instanceID,
			},
		}, []string{"reason"}),
		forwards: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "eventstore",
			Subsystem: "cluster",
			Name:      "request_forwarded_total",
			Help:      "Count of client requests admitted (forwarded locally or to the leader).",
			ConstLabels: prometheus.Labels{
				"instance_id": instanceID,
			},
		}),
	}
	if reg != nil {
		reg.MustRegister(m.role, m.transitions, m.denies, m.forwards)
	}
	return m
}

// setRole zeroes every role gauge and sets the current one to 1, so the
// metric always reports a single active role per instance.
func (m *metrics) setRole(current Role) {
	for _, r := range allRoles {
		m.role.WithLabelValues(string(r)).Set(0)
	}
	m.role.WithLabelValues(string(current)).Set(1)
	m.transitions.WithLabelValues(string(current)).Inc()
}
