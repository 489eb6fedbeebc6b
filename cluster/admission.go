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

// DenyReason is why a client request was refused, carried on NotHandled.
type DenyReason string

const (
	ReasonNotReady  DenyReason = "NotReady"
	ReasonNotLeader DenyReason = "NotLeader"
	ReasonReadOnly  DenyReason = "IsReadOnly"
)

// NotHandled is the reply surface §6 specifies for a denied client request.
type NotHandled struct {
	CorrelationID ID
	Reason        DenyReason
	LeaderInfo    *LeaderInfo
}

// SystemAccountPrincipal identifies the internal account allowed to write
// against a read-only replica (e.g. a control-plane operation), per the
// write-class row of §4.3's read-only family.
const SystemAccountPrincipal = "$system"

// admit implements the decision matrix of §4.3. It either calls through to
// forward/reply directly (reads, and the leader's own write path) or
// registers a pending forward with the Forwarding Proxy for writes that
// must go to another node.
func (c *Controller) admit(req ClientRequest) {
	role := c.st.role

	switch {
	case isUnreadyRole(role):
		c.deny(req, ReasonNotReady)

	case role == RoleLeader:
		c.forwardToOutput(req)

	case role == RoleResigningLeader:
		if req.IsWrite {
			c.deny(req, ReasonNotReady)
			return
		}
		c.forwardToOutput(req)

	case nonLeaderReplicaFamily[role]:
		c.admitReplicaFamily(req)

	case readOnlyFamily[role]:
		c.admitReadOnlyFamily(req)

	default:
		c.deny(req, ReasonNotReady)
	}
}

func isUnreadyRole(r Role) bool {
	switch r {
	case RoleInitializing, RoleShuttingDown, RoleShutdown, RoleDiscoverLeader, RoleUnknown:
		return true
	}
	return false
}

func (c *Controller) admitReplicaFamily(req ClientRequest) {
	if !req.IsWrite {
		c.admitNonLeaderRead(req)
		return
	}
	if req.RequireLeader {
		c.deny(req, ReasonNotLeader)
		return
	}
	c.registerForward(req)
}

func (c *Controller) admitReadOnlyFamily(req ClientRequest) {
	if !req.IsWrite {
		c.admitNonLeaderRead(req)
		return
	}
	if req.Principal != SystemAccountPrincipal {
		c.deny(req, ReasonReadOnly)
		return
	}
	c.registerForward(req)
}

// admitNonLeaderRead is the read rule shared by the replica family and the
// read-only family: if the caller requires a leader and one is known, deny
// NotLeader with leader info; if one requires a leader but none is known,
// deny NotReady; otherwise forward.
func (c *Controller) admitNonLeaderRead(req ClientRequest) {
	if req.RequireLeader {
		if c.st.leader == nil {
			c.deny(req, ReasonNotReady)
			return
		}
		c.deny(req, ReasonNotLeader)
		return
	}
	c.forwardToOutput(req)
}

func (c *Controller) deny(req ClientRequest, reason DenyReason) {
	var info *LeaderInfo
	if reason == ReasonNotLeader || reason == ReasonReadOnly {
		li := resolveLeaderInfo(c.self, c.st.leader)
		info = &li
	}
	nh := NotHandled{CorrelationID: req.CorrelationID, Reason: reason, LeaderInfo: info}
	c.metrics.denies.WithLabelValues(string(reason)).Inc()
	if req.Envelope != nil {
		req.Envelope.Reply(nh)
	}
}

func (c *Controller) forwardToOutput(req ClientRequest) {
	c.metrics.forwards.Inc()
	c.outbus.Publish(req)
}

// registerForward implements the "forward writes" path of §4.3: register
// with the Forwarding Proxy, using timeout = prepare + commit + 300ms, then
// publish TcpForwardMessage for the transport to ship to the leader.
func (c *Controller) registerForward(req ClientRequest) {
	if c.st.leader == nil {
		c.deny(req, ReasonNotReady)
		return
	}
	externalCorrID := newID()
	timeout := req.PrepareTimeout + req.CommitTimeout + forwardTimeoutBuffer
	c.forwardingProxy.RegisterForward(req.CorrelationID, externalCorrID, req.Envelope, timeout, newForwardTimeoutMessage(req.CorrelationID))
	c.metrics.forwards.Inc()
	c.outbus.Publish(newTcpForwardMessage(req.CorrelationID, *c.st.leader, req))
}
