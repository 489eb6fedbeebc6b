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

// state holds every mutable field the controller owns. It is touched only
// from the single goroutine draining the main queue (§5: no locks inside
// the controller), with the sole exception of subsystemInitsToExpect, which
// is manipulated with sync/atomic because subsystem-init notifications may
// arrive off that goroutine (see controller.go).
type state struct {
	role Role

	leader *MemberInfo

	stateCorrelationID          ID
	leaderConnectionCorrelation ID
	subscriptionID              ID

	serviceInitsToExpect     int
	serviceShutdownsToExpect int
	subsystemInitsToExpect   int32

	exitProcessOnShutdown bool

	// currentEpoch is the proposal number of the last election this node
	// observed, stamped onto peer RPCs by the cluster interceptors so a
	// stale caller can tell its picture of the cluster apart from a fresh
	// one even when the role itself hasn't changed.
	currentEpoch int
}

func newState() *state {
	return &state{role: RoleInitializing}
}

// rotateStateID assigns a fresh stateCorrelationID and returns it, so
// callers can stamp outbound messages (e.g. WaitForChaserToCatchUp) with
// the exact value handlers will later compare against.
func (s *state) rotateStateID() ID {
	s.stateCorrelationID = newID()
	return s.stateCorrelationID
}

func (s *state) rotateLeaderConnectionID() ID {
	s.leaderConnectionCorrelation = newID()
	return s.leaderConnectionCorrelation
}

func (s *state) rotateSubscriptionID() ID {
	s.subscriptionID = newID()
	return s.subscriptionID
}

// setLeader assigns or clears the believed leader, keeping a defensive copy
// since MemberInfo arrives from the gossip collaborator and must not be
// mutated out from under the controller.
func (s *state) setLeader(m *MemberInfo) {
	if m == nil {
		s.leader = nil
		return
	}
	cp := *m
	s.leader = &cp
}

func (s *state) isSelf(n NodeInfo, m MemberInfo) bool {
	return m.InstanceID == n.InstanceID
}
