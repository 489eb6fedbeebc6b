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

// enterRole implements the generic "become X" handler shape of §4.2,
// shared by every role-transition handler:
//
//  1. drop the message if its correlation id does not match the live
//     stateCorrelationId (a superseded attempt);
//  2. validate target's leader precondition (invariants 2 and 3 of §3),
//     fatal on violation;
//  3. assign the new role, and the new leader if this transition carries
//     one;
//  4. publish the "become X" message itself to the output bus;
//  5. if target is a chaser-catch-up staging role, enqueue
//     WaitForChaserToCatchUp(id, 0) on the main queue.
func (c *Controller) enterRole(id ID, target Role, leader *MemberInfo, setLeader bool, publish Message) {
	if id != c.st.stateCorrelationID {
		return
	}

	if setLeader {
		c.st.setLeader(leader)
	}
	if requiresLeader(target) && c.st.leader == nil {
		c.fatalf("entering role %s with no leader set", target)
		return
	}
	if requiresNoLeader(target) {
		c.st.setLeader(nil)
	}

	c.st.role = target
	c.metrics.setRole(target)
	c.outbus.Publish(publish)

	if target == RolePreReplica || target == RolePreReadOnlyReplica || target == RolePreLeader {
		c.queue.Post(NewWaitForChaserToCatchUp(id, 0))
	}
}

// selfAsMember builds the MemberInfo this node represents itself as when it
// becomes leader: the only fields a believed-leader MemberInfo needs that
// the controller itself can supply.
func (c *Controller) selfAsMember() MemberInfo {
	return MemberInfo{
		InstanceID:        c.self.InstanceID,
		HTTPEndpoint:      c.self.HTTPEndpoint,
		ExternalTCP:       c.self.TCPEndpoint,
		ExternalSecureTCP: c.self.SecureTCPEndpoint,
		IsAlive:           true,
		Role:              RoleLeader,
	}
}

// isLegitimateReplicationMessage implements the shared precondition of
// §4.2's replication-handshake paragraph: empty subscription id is a
// programmer error (fatal); a non-matching subscription id is a stale,
// silently-dropped message; a matching subscription id but mismatched
// leader indicates a lost invariant (fatal).
func (c *Controller) isLegitimateReplicationMessage(subID ID, leader MemberInfo) bool {
	if subID.empty() {
		c.fatalf("replication message received with empty subscription id")
		return false
	}
	if subID != c.st.subscriptionID {
		return false
	}
	if c.st.leader == nil {
		c.fatalf("replication message subscription id matched live id but no leader is set")
		return false
	}
	if c.st.leader.InstanceID != leader.InstanceID {
		c.fatalf("replication message subscription id matched live id but leader mismatch: have %s, got %s", c.st.leader.InstanceID, leader.InstanceID)
		return false
	}
	return true
}
