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

import "context"

// registerReplicationHandlers wires the chaser-catch-up wait, the
// replication handshake, and lost-connection reconnection of §4.2.
func registerReplicationHandlers(b *dispatcherBuilder) {
	preStagingRoles := []Role{RolePreReplica, RolePreReadOnlyReplica, RolePreLeader}
	b.OnRoles(preStagingRoles, KindWaitForChaserToCatchUp, handle(handleWaitForChaserToCatchUp))
	b.OnRoles(preStagingRoles, KindChaserCaughtUp, handle(handleChaserCaughtUp))

	b.OnRoles([]Role{RolePreReplica, RolePreReadOnlyReplica}, KindSubscribeToLeader, handle(handleSubscribeToLeader))
	b.OnRoles([]Role{RolePreReplica, RolePreReadOnlyReplica}, KindReconnectToLeader, handle(handleReconnectToLeader))

	activeSubscriptionRoles := []Role{RolePreReplica, RoleCatchingUp, RoleClone, RoleFollower, RolePreReadOnlyReplica, RoleReadOnlyReplica}
	b.OnRoles(activeSubscriptionRoles, KindReplicaSubscriptionRetry, handle(handleReplicaSubscriptionRetry))

	b.OnRoles([]Role{RolePreReplica, RolePreReadOnlyReplica}, KindReplicaSubscribed, handle(handleReplicaSubscribed))
	b.OnRoles([]Role{RoleCatchingUp, RoleClone}, KindFollowerAssignment, handle(handleFollowerAssignment))
	b.OnRoles([]Role{RoleCatchingUp, RoleFollower}, KindCloneAssignment, handle(handleCloneAssignment))
	b.On(RoleClone, KindDropSubscription, handle(handleDropSubscription))

	b.On(RolePreReplica, KindBecomeCatchingUp, handle(handleBecomeCatchingUp))
	b.OnRoles([]Role{RoleCatchingUp, RoleClone}, KindBecomeFollower, handle(handleBecomeFollower))
	b.OnRoles([]Role{RoleCatchingUp, RoleFollower}, KindBecomeClone, handle(handleBecomeClone))
	b.On(RolePreReadOnlyReplica, KindBecomeReadOnlyReplica, handle(handleBecomeReadOnlyReplica))

	replicaEntryRoles := []Role{RoleUnknown, RoleDiscoverLeader, RolePreReplica, RoleCatchingUp, RoleClone, RoleFollower}
	b.OnRoles(replicaEntryRoles, KindBecomePreReplica, handle(handleBecomePreReplica))
	readOnlyEntryRoles := []Role{RoleReadOnlyLeaderless, RolePreReadOnlyReplica, RoleReadOnlyReplica}
	b.OnRoles(readOnlyEntryRoles, KindBecomePreReadOnlyReplica, handle(handleBecomePreReadOnlyReplica))
	b.On(RoleUnknown, KindBecomePreLeader, handle(handleBecomePreLeader))
	b.On(RolePreLeader, KindBecomeLeader, handle(handleBecomeLeader))

	b.OnRoles([]Role{RolePreReplica, RoleCatchingUp, RoleClone, RoleFollower}, KindVNodeConnectionLost, handle(handleVNodeConnectionLost))
	b.OnRoles([]Role{RolePreReadOnlyReplica, RoleReadOnlyReplica}, KindVNodeConnectionLost, handle(handleVNodeConnectionLost))
}

// handleWaitForChaserToCatchUp implements §4.2 step 5's counterpart: it
// never blocks (§5), so it arms an async wait against the Progress
// notifier and posts ChaserCaughtUp back to the main queue once the
// external chaser subsystem reports success.
func handleWaitForChaserToCatchUp(c *Controller, m Message) {
	w := m.(WaitForChaserToCatchUp)
	if w.CorrelationID != c.st.stateCorrelationID {
		return
	}
	c.outbus.Publish(w)

	wait := c.progress.Wait()
	corrID := w.CorrelationID
	go func() {
		if err := wait(context.Background()); err != nil {
			return
		}
		c.queue.Post(NewChaserCaughtUp(corrID))
	}()
}

func handleChaserCaughtUp(c *Controller, m Message) {
	cc := m.(ChaserCaughtUp)
	if cc.CorrelationID != c.st.stateCorrelationID {
		return
	}
	switch c.st.role {
	case RolePreLeader:
		c.queue.Post(NewBecomeLeader(c.st.stateCorrelationID))
	case RolePreReplica, RolePreReadOnlyReplica:
		c.queue.Post(NewSubscribeToLeader(c.st.stateCorrelationID))
	}
}

func handleSubscribeToLeader(c *Controller, m Message) {
	s := m.(SubscribeToLeader)
	if s.CorrelationID != c.st.stateCorrelationID {
		return
	}
	c.st.rotateSubscriptionID()
	c.outbus.Publish(s)
	c.queue.Schedule(c.timers.LeaderSubscriptionTimeout, NewSubscribeToLeader(s.CorrelationID))
}

func handleReconnectToLeader(c *Controller, m Message) {
	r := m.(ReconnectToLeader)
	if r.CorrelationID != c.st.leaderConnectionCorrelation {
		return
	}
	c.outbus.Publish(r)
}

func handleReplicaSubscriptionRetry(c *Controller, m Message) {
	r := m.(ReplicaSubscriptionRetry)
	if !c.isLegitimateReplicationMessage(r.SubscriptionID, r.Leader) {
		return
	}
	c.queue.Schedule(c.timers.LeaderSubscriptionRetryDelay, NewSubscribeToLeader(c.st.stateCorrelationID))
}

func handleReplicaSubscribed(c *Controller, m Message) {
	r := m.(ReplicaSubscribed)
	if !c.isLegitimateReplicationMessage(r.SubscriptionID, r.Leader) {
		return
	}
	if c.self.IsReadOnlyReplica {
		c.queue.Post(NewBecomeReadOnlyReplica(c.st.stateCorrelationID))
		return
	}
	c.queue.Post(NewBecomeCatchingUp(c.st.stateCorrelationID))
}

func handleFollowerAssignment(c *Controller, m Message) {
	f := m.(FollowerAssignment)
	if !c.isLegitimateReplicationMessage(f.SubscriptionID, f.Leader) {
		return
	}
	c.queue.Post(NewBecomeFollower(c.st.stateCorrelationID))
}

func handleCloneAssignment(c *Controller, m Message) {
	a := m.(CloneAssignment)
	if !c.isLegitimateReplicationMessage(a.SubscriptionID, a.Leader) {
		return
	}
	c.queue.Post(NewBecomeClone(c.st.stateCorrelationID))
}

// handleDropSubscription escalates to shutdown: the leader has dropped
// this node's clone subscription, so it has no path back to consistency.
func handleDropSubscription(c *Controller, m Message) {
	d := m.(DropSubscription)
	if !c.isLegitimateReplicationMessage(d.SubscriptionID, d.Leader) {
		return
	}
	c.queue.Post(NewRequestShutdown(true, true))
}

func handleBecomeCatchingUp(c *Controller, m Message) {
	b := m.(BecomeCatchingUp)
	c.enterRole(b.CorrelationID, RoleCatchingUp, nil, false, b)
}

func handleBecomeFollower(c *Controller, m Message) {
	b := m.(BecomeFollower)
	c.enterRole(b.CorrelationID, RoleFollower, nil, false, b)
}

func handleBecomeClone(c *Controller, m Message) {
	b := m.(BecomeClone)
	c.enterRole(b.CorrelationID, RoleClone, nil, false, b)
}

func handleBecomeReadOnlyReplica(c *Controller, m Message) {
	b := m.(BecomeReadOnlyReplica)
	c.enterRole(b.CorrelationID, RoleReadOnlyReplica, nil, false, b)
}

func handleBecomePreReplica(c *Controller, m Message) {
	b := m.(BecomePreReplica)
	leader := b.Leader
	c.enterRole(b.CorrelationID, RolePreReplica, &leader, true, b)
}

func handleBecomePreReadOnlyReplica(c *Controller, m Message) {
	b := m.(BecomePreReadOnlyReplica)
	leader := b.Leader
	c.enterRole(b.CorrelationID, RolePreReadOnlyReplica, &leader, true, b)
}

func handleBecomePreLeader(c *Controller, m Message) {
	b := m.(BecomePreLeader)
	self := c.selfAsMember()
	c.enterRole(b.CorrelationID, RolePreLeader, &self, true, b)
}

func handleBecomeLeader(c *Controller, m Message) {
	b := m.(BecomeLeader)
	self := c.selfAsMember()
	c.enterRole(b.CorrelationID, RoleLeader, &self, true, b)
}

// handleVNodeConnectionLost implements §4.2's reconnection rule, shared
// (adapted) between the writable and read-only replica families.
func handleVNodeConnectionLost(c *Controller, m Message) {
	v := m.(VNodeConnectionLost)
	if v.ConnectionCorrelationID != c.st.leaderConnectionCorrelation {
		return
	}
	if c.st.leader == nil || v.Peer.InstanceID != c.st.leader.InstanceID {
		return
	}

	readOnly := readOnlyFamily[c.st.role]
	alreadyStaging := c.st.role == RolePreReplica || c.st.role == RolePreReadOnlyReplica
	leader := *c.st.leader

	connID := c.st.rotateLeaderConnectionID()
	if alreadyStaging {
		c.queue.Schedule(c.timers.LeaderReconnectionDelay, NewReconnectToLeader(connID))
		return
	}

	stateID := c.st.rotateStateID()
	if readOnly {
		c.queue.Schedule(c.timers.LeaderReconnectionDelay, NewBecomePreReadOnlyReplica(stateID, leader))
		return
	}
	c.queue.Schedule(c.timers.LeaderReconnectionDelay, NewBecomePreReplica(stateID, leader))
}
