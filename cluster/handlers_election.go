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

// registerElectionGossipHandlers wires the election outcome, the five
// per-role gossip rules of §4.2, and the leader's quorum-loss transition of
// §8 Concrete Scenario 3. ElectionsDone is deliberately left unregistered
// for Initializing: Open Question decision 1 (SPEC_FULL §13) preserves the
// dispatcher's built-in fatal fallback for a state-change kind arriving
// before discovery has even begun.
func registerElectionGossipHandlers(b *dispatcherBuilder) {
	b.OnRoles([]Role{RoleUnknown, RoleLeader}, KindElectionsDone, handle(handleElectionsDone))

	b.On(RoleLeader, KindGossipUpdated, handle(handleGossipLeader))
	b.OnRoles([]Role{RolePreReplica, RoleCatchingUp, RoleClone, RoleFollower}, KindGossipUpdated, handle(handleGossipNonLeaderReplica))
	b.OnRoles([]Role{RolePreReadOnlyReplica, RoleReadOnlyReplica}, KindGossipUpdated, handle(handleGossipReadOnlyReplicaIsh))
	b.On(RoleReadOnlyLeaderless, KindGossipUpdated, handle(handleGossipReadOnlyLeaderless))
	b.On(RoleDiscoverLeader, KindGossipUpdated, handle(handleGossipDiscoverLeader))

	b.On(RoleLeader, KindNoQuorumMessage, handle(handleNoQuorum))
}

// handleElectionsDone implements §4.2's "Elections outcome" paragraph.
func handleElectionsDone(c *Controller, m Message) {
	e := m.(ElectionsDone)

	sameLeader := c.st.leader != nil && c.st.leader.InstanceID == e.Leader.InstanceID
	if sameLeader {
		c.st.currentEpoch = e.ProposalNumber
		if e.Leader.InstanceID == c.self.InstanceID && c.st.role == RoleLeader {
			c.outbus.Publish(NewWriteEpoch(e.ProposalNumber))
		}
		return
	}

	c.st.currentEpoch = e.ProposalNumber
	c.st.rotateStateID()
	c.st.rotateLeaderConnectionID()
	c.st.rotateSubscriptionID()

	if e.Leader.InstanceID == c.self.InstanceID {
		c.queue.Post(NewBecomePreLeader(c.st.stateCorrelationID))
		return
	}
	c.queue.Post(NewBecomePreReplica(c.st.stateCorrelationID, e.Leader))
}

// handleGossipLeader detects split-brain: two or more alive members
// reporting role Leader means elections must run again.
func handleGossipLeader(c *Controller, m Message) {
	g := m.(GossipUpdated)
	aliveLeaders := 0
	for _, mem := range g.Members {
		if mem.IsAliveLeader() {
			aliveLeaders++
		}
	}
	if aliveLeaders >= 2 {
		c.outbus.Publish(NewStartElections())
	}
}

// handleGossipNonLeaderReplica starts a new election if the believed
// leader has disappeared from the gossip view, died, or lost its role.
func handleGossipNonLeaderReplica(c *Controller, m Message) {
	g := m.(GossipUpdated)
	if c.believedLeaderStillAlive(g.Members) {
		return
	}
	c.outbus.Publish(NewStartElections())
}

// handleGossipReadOnlyReplicaIsh demotes to ReadOnlyLeaderless once the
// believed leader is no longer reported as an alive leader.
func handleGossipReadOnlyReplicaIsh(c *Controller, m Message) {
	g := m.(GossipUpdated)
	if c.believedLeaderStillAlive(g.Members) {
		return
	}
	id := c.st.rotateStateID()
	c.st.rotateLeaderConnectionID()
	c.st.rotateSubscriptionID()
	c.queue.Post(NewBecomeReadOnlyLeaderless(id))
}

// handleGossipReadOnlyLeaderless adopts a newly discovered single leader.
func handleGossipReadOnlyLeaderless(c *Controller, m Message) {
	g := m.(GossipUpdated)
	leader, ok := singleAliveLeader(g.Members)
	if !ok {
		return
	}
	id := c.st.rotateStateID()
	c.st.rotateLeaderConnectionID()
	c.st.rotateSubscriptionID()
	c.queue.Post(NewBecomePreReadOnlyReplica(id, leader))
}

// handleNoQuorum implements §8 Concrete Scenario 3: a leader told it can no
// longer see a quorum of the cluster demotes itself to Unknown immediately
// (clearing its believed leader) and starts a fresh round of elections.
func handleNoQuorum(c *Controller, m Message) {
	id := c.st.rotateStateID()
	c.queue.Post(NewBecomeUnknown(id))
	c.outbus.Publish(NewStartElections())
}

// handleGossipDiscoverLeader implements the discovery half of §4.2's
// DiscoverLeader rule: the first single alive leader found ends discovery.
func handleGossipDiscoverLeader(c *Controller, m Message) {
	g := m.(GossipUpdated)
	leader, ok := singleAliveLeader(g.Members)
	if !ok {
		return
	}
	c.outbus.Publish(NewLeaderFound(leader))
	id := c.st.rotateStateID()
	c.st.rotateLeaderConnectionID()
	c.st.rotateSubscriptionID()
	c.queue.Post(NewBecomePreReplica(id, leader))
}

// believedLeaderStillAlive reports whether the node's current believed
// leader appears in members as alive and still in role Leader.
func (c *Controller) believedLeaderStillAlive(members []MemberInfo) bool {
	if c.st.leader == nil {
		return false
	}
	for _, mem := range members {
		if mem.InstanceID == c.st.leader.InstanceID {
			return mem.IsAliveLeader()
		}
	}
	return false
}

// singleAliveLeader returns the one alive member reporting role Leader, if
// gossip currently reports exactly one.
func singleAliveLeader(members []MemberInfo) (MemberInfo, bool) {
	var found MemberInfo
	count := 0
	for _, mem := range members {
		if mem.IsAliveLeader() {
			found = mem
			count++
		}
	}
	if count != 1 {
		return MemberInfo{}, false
	}
	return found, true
}
