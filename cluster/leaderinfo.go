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

// LeaderInfo is the endpoint tuple returned to a client told "not leader" or
// "read only", per §4.3 and the reply surface in §6.
type LeaderInfo struct {
	AdvertisedTCPEndpoint *Endpoint
	IsTCPSecure           bool
	AdvertisedHTTPEndpoint Endpoint
}

// resolveLeaderInfo computes the tuple a NotHandled reply carries. If the
// believed leader is known, its endpoints and advertised-host/port
// overrides are used (empty advertised host falls back to the endpoint's
// own host; a zero advertised port falls back to the endpoint's own port).
// With no believed leader, the node's own endpoints are reported and no
// advertised override applies.
func resolveLeaderInfo(self NodeInfo, leader *MemberInfo) LeaderInfo {
	if leader == nil {
		tcp := self.TCPEndpoint
		return LeaderInfo{
			AdvertisedTCPEndpoint:  &tcp,
			IsTCPSecure:            self.SecureTCPEndpoint.Port != 0,
			AdvertisedHTTPEndpoint: self.HTTPEndpoint,
		}
	}

	tcp := leader.ExternalTCP
	host := leader.AdvertisedHostTCP
	if host == "" {
		host = tcp.Host
	}
	port := leader.AdvertisedPortTCP
	if port == 0 {
		port = tcp.Port
	}
	advertised := Endpoint{Host: host, Port: port}

	return LeaderInfo{
		AdvertisedTCPEndpoint:  &advertised,
		IsTCPSecure:            leader.ExternalSecureTCP.Port != 0,
		AdvertisedHTTPEndpoint: leader.HTTPEndpoint,
	}
}
