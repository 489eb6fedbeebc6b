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

// Role is a node's position in the cluster lifecycle. The zero value is not
// a valid role; a fresh controller starts in RoleInitializing.
type Role string

const (
	RoleInitializing       Role = "Initializing"
	RoleDiscoverLeader     Role = "DiscoverLeader"
	RoleUnknown            Role = "Unknown"
	RolePreReplica         Role = "PreReplica"
	RoleCatchingUp         Role = "CatchingUp"
	RoleClone              Role = "Clone"
	RoleFollower           Role = "Follower"
	RolePreLeader          Role = "PreLeader"
	RoleLeader             Role = "Leader"
	RoleResigningLeader    Role = "ResigningLeader"
	RoleShuttingDown       Role = "ShuttingDown"
	RoleShutdown           Role = "Shutdown"
	RoleReadOnlyLeaderless Role = "ReadOnlyLeaderless"
	RolePreReadOnlyReplica Role = "PreReadOnlyReplica"
	RoleReadOnlyReplica    Role = "ReadOnlyReplica"
)

// replicaRoles are the roles invariant 2 requires a non-nil leader for.
var replicaRoles = map[Role]bool{
	RolePreReplica:         true,
	RoleCatchingUp:         true,
	RoleClone:              true,
	RoleFollower:           true,
	RolePreReadOnlyReplica: true,
	RoleReadOnlyReplica:    true,
	RolePreLeader:          true,
}

// leaderlessRoles are the roles invariant 3 requires a nil leader for.
var leaderlessRoles = map[Role]bool{
	RoleUnknown:            true,
	RoleDiscoverLeader:     true,
	RoleReadOnlyLeaderless: true,
	RoleInitializing:       true,
	RoleShutdown:           true,
}

// requiresLeader reports whether invariant 2 applies to r.
func requiresLeader(r Role) bool {
	return replicaRoles[r]
}

// requiresNoLeader reports whether invariant 3 applies to r.
func requiresNoLeader(r Role) bool {
	return leaderlessRoles[r]
}

// readOnlyFamily is the set of roles under which this node is, or is
// becoming, a read-only replica.
var readOnlyFamily = map[Role]bool{
	RoleReadOnlyLeaderless: true,
	RolePreReadOnlyReplica: true,
	RoleReadOnlyReplica:    true,
}

// nonLeaderReplicaFamily is the writable (non-read-only) replica chain.
var nonLeaderReplicaFamily = map[Role]bool{
	RolePreReplica: true,
	RoleCatchingUp: true,
	RoleClone:      true,
	RoleFollower:   true,
}
