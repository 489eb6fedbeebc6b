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

import "time"

// ForwardingProxy is the collaborator that remembers a client's correlation
// id while a write is forwarded to the believed leader, and replies with
// timeoutMessage if the leader has not responded by timeout. §4.3 and the
// Glossary describe its contract; cmd/eventstored supplies a minimal
// in-process implementation.
type ForwardingProxy interface {
	RegisterForward(internalCorrID, externalCorrID ID, envelope ReplyEnvelope, timeout time.Duration, timeoutMessage Message)
}

// TcpForwardMessage is published to the output bus once a write has been
// registered with the Forwarding Proxy, for the request-forwarding
// transport (out of scope here) to actually ship it to the leader.
type TcpForwardMessage struct {
	kinded
	InternalCorrelationID ID
	Leader                MemberInfo
	Request               ClientRequest
}

func newTcpForwardMessage(internalCorrID ID, leader MemberInfo, req ClientRequest) TcpForwardMessage {
	return TcpForwardMessage{kinded{"TcpForwardMessage"}, internalCorrID, leader, req}
}

// forwardTimeoutBuffer is added to prepare+commit timeout per §4.3's
// forwarding-write formula.
const forwardTimeoutBuffer = 300 * time.Millisecond

// forwardTimeoutMessage is the request-specific "forward-timeout"
// completion §4.3 schedules alongside every registered forward.
type forwardTimeoutMessage struct {
	kinded
	CorrelationID ID
}

func newForwardTimeoutMessage(corrID ID) forwardTimeoutMessage {
	return forwardTimeoutMessage{kinded{"ForwardTimeout"}, corrID}
}
