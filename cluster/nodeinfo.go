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

// Endpoint is a host/port pair. It is used both for a node's own listening
// addresses and for the advertised-override pair gossiped by a member.
type Endpoint struct {
	Host string
	Port int
}

// IsZero reports whether the endpoint carries no override information.
func (e Endpoint) IsZero() bool {
	return e.Host == "" && e.Port == 0
}

// NodeInfo is immutable once a controller is constructed: the node's own
// identity and listening endpoints.
type NodeInfo struct {
	InstanceID        string
	HTTPEndpoint      Endpoint
	TCPEndpoint       Endpoint
	SecureTCPEndpoint Endpoint
	IsReadOnlyReplica bool
}

// MemberInfo is a peer descriptor as reported by gossip. Zero value is not
// meaningful; always constructed from a gossip update.
type MemberInfo struct {
	InstanceID        string
	HTTPEndpoint      Endpoint
	InternalTCP       Endpoint
	InternalSecureTCP Endpoint
	ExternalTCP       Endpoint
	ExternalSecureTCP Endpoint
	AdvertisedHostTCP string
	AdvertisedPortTCP int
	IsAlive           bool
	Role              Role
}

// IsAliveLeader reports whether m is both alive and currently a leader per
// the gossip view.
func (m MemberInfo) IsAliveLeader() bool {
	return m.IsAlive && m.Role == RoleLeader
}
