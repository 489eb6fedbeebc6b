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

// Kind identifies the shape of a Message for dispatcher lookup. It is the
// second axis of the (role, kind) table described in §4.1. It is an alias
// for string, not a distinct type, so that every cluster Message's Kind()
// method also satisfies bus.Message's Kind() string without an adapter.
type Kind = string

// System lifecycle kinds.
const (
	KindSystemInit            Kind = "SystemInit"
	KindSystemStart           Kind = "SystemStart"
	KindServiceInitialized    Kind = "ServiceInitialized"
	KindServiceShutdown       Kind = "ServiceShutdown"
	KindSubSystemInitialized  Kind = "SubSystemInitialized"
	KindSystemCoreReady       Kind = "SystemCoreReady"
	KindSystemReady           Kind = "SystemReady"
	KindRequestShutdown       Kind = "RequestShutdown"
	KindBecomeShuttingDown    Kind = "BecomeShuttingDown"
	KindBecomeShutdown        Kind = "BecomeShutdown"
	KindShutdownTimeout       Kind = "ShutdownTimeout"
)

// Role-transition kinds.
const (
	KindBecomeUnknown            Kind = "BecomeUnknown"
	KindBecomeDiscoverLeader     Kind = "BecomeDiscoverLeader"
	KindBecomePreLeader          Kind = "BecomePreLeader"
	KindBecomeLeader             Kind = "BecomeLeader"
	KindInitiateLeaderResignation Kind = "InitiateLeaderResignation"
	KindBecomeResigningLeader    Kind = "BecomeResigningLeader"
	KindRequestQueueDrained      Kind = "RequestQueueDrained"
	KindBecomePreReplica         Kind = "BecomePreReplica"
	KindBecomeCatchingUp         Kind = "BecomeCatchingUp"
	KindBecomeClone              Kind = "BecomeClone"
	KindBecomeFollower           Kind = "BecomeFollower"
	KindBecomeReadOnlyLeaderless Kind = "BecomeReadOnlyLeaderless"
	KindBecomePreReadOnlyReplica Kind = "BecomePreReadOnlyReplica"
	KindBecomeReadOnlyReplica    Kind = "BecomeReadOnlyReplica"
	KindWaitForChaserToCatchUp   Kind = "WaitForChaserToCatchUp"
	KindChaserCaughtUp           Kind = "ChaserCaughtUp"
	KindNoQuorumMessage          Kind = "NoQuorumMessage"
	KindWriteEpoch               Kind = "WriteEpoch"
)

// Election/gossip kinds.
const (
	KindElectionsDone     Kind = "ElectionsDone"
	KindStartElections    Kind = "StartElections"
	KindGossipUpdated     Kind = "GossipUpdated"
	KindDiscoveryTimeout  Kind = "DiscoveryTimeout"
	KindLeaderFound       Kind = "LeaderFound"
)

// Replication kinds.
const (
	KindSubscribeToLeader         Kind = "SubscribeToLeader"
	KindReconnectToLeader         Kind = "ReconnectToLeader"
	KindLeaderConnectionFailed    Kind = "LeaderConnectionFailed"
	KindReplicaSubscriptionRetry  Kind = "ReplicaSubscriptionRetry"
	KindReplicaSubscribed         Kind = "ReplicaSubscribed"
	KindFollowerAssignment        Kind = "FollowerAssignment"
	KindCloneAssignment           Kind = "CloneAssignment"
	KindDropSubscription          Kind = "DropSubscription"
	KindCreateChunk               Kind = "CreateChunk"
	KindRawChunkBulk              Kind = "RawChunkBulk"
	KindDataChunkBulk             Kind = "DataChunkBulk"
	KindAckLogPosition            Kind = "AckLogPosition"
	KindReplicaSubscriptionRequest Kind = "ReplicaSubscriptionRequest"
	KindReplicaLogPositionAck     Kind = "ReplicaLogPositionAck"
	KindVNodeConnectionLost       Kind = "VNodeConnectionLost"
)

// Authentication kinds.
const (
	KindAuthenticationProviderInitialized       Kind = "AuthenticationProviderInitialized"
	KindAuthenticationProviderInitializationFailed Kind = "AuthenticationProviderInitializationFailed"
)

// Client request kinds. All share the ClientRequest message shape; the kind
// only distinguishes read vs. write vs. persistent-subscription management
// for dispatch lookup, logging, and tracing, and admission depends on
// ClientRequest.IsWrite/RequireLeader rather than on the kind itself.
const (
	KindReadEvent                            Kind = "ReadEvent"
	KindReadStreamEventsForward               Kind = "ReadStreamEventsForward"
	KindReadStreamEventsBackward              Kind = "ReadStreamEventsBackward"
	KindReadAllEventsForward                  Kind = "ReadAllEventsForward"
	KindReadAllEventsBackward                 Kind = "ReadAllEventsBackward"
	KindFilteredReadAllForward                Kind = "FilteredReadAllForward"
	KindFilteredReadAllBackward               Kind = "FilteredReadAllBackward"
	KindWriteEvents                           Kind = "WriteEvents"
	KindTransactionStart                      Kind = "TransactionStart"
	KindTransactionWrite                      Kind = "TransactionWrite"
	KindTransactionCommit                     Kind = "TransactionCommit"
	KindDeleteStream                          Kind = "DeleteStream"
	KindCreatePersistentSubscription          Kind = "CreatePersistentSubscription"
	KindConnectToPersistentSubscription       Kind = "ConnectToPersistentSubscription"
	KindUpdatePersistentSubscription          Kind = "UpdatePersistentSubscription"
	KindDeletePersistentSubscription          Kind = "DeletePersistentSubscription"
	KindCreatePersistentSubscriptionToAll     Kind = "CreatePersistentSubscriptionToAll"
	KindConnectToPersistentSubscriptionToAll  Kind = "ConnectToPersistentSubscriptionToAll"
	KindUpdatePersistentSubscriptionToAll     Kind = "UpdatePersistentSubscriptionToAll"
	KindDeletePersistentSubscriptionToAll     Kind = "DeletePersistentSubscriptionToAll"
	KindRequestCompleted                      Kind = "RequestCompleted"
)

// stateChangeKinds are the kinds the Fatal condition of §4.1 applies to:
// receipt of one of these with no explicit handler in the current role
// terminates the process, rather than falling through to the scope's
// WhenOther forward default.
var stateChangeKinds = map[Kind]bool{
	KindBecomeUnknown:             true,
	KindBecomeDiscoverLeader:      true,
	KindBecomePreLeader:           true,
	KindBecomeLeader:              true,
	KindInitiateLeaderResignation: true,
	KindBecomeResigningLeader:     true,
	KindRequestQueueDrained:       true,
	KindBecomePreReplica:          true,
	KindBecomeCatchingUp:          true,
	KindBecomeClone:               true,
	KindBecomeFollower:            true,
	KindBecomeReadOnlyLeaderless:  true,
	KindBecomePreReadOnlyReplica:  true,
	KindBecomeReadOnlyReplica:     true,
	KindWaitForChaserToCatchUp:    true,
	KindChaserCaughtUp:            true,
	KindNoQuorumMessage:           true,
	KindWriteEpoch:                true,
	KindElectionsDone:             true,
	KindBecomeShuttingDown:        true,
	KindBecomeShutdown:            true,
}

// Message is anything that can travel on the main queue or the output bus.
type Message interface {
	Kind() Kind
}

type kinded struct{ kind Kind }

func (k kinded) Kind() Kind { return k.kind }

// --- system lifecycle ---

type SystemInit struct{ kinded }

func NewSystemInit() SystemInit { return SystemInit{kinded{KindSystemInit}} }

type SystemStart struct{ kinded }

func NewSystemStart() SystemStart { return SystemStart{kinded{KindSystemStart}} }

type ServiceInitialized struct {
	kinded
	Service string
}

func NewServiceInitialized(service string) ServiceInitialized {
	return ServiceInitialized{kinded{KindServiceInitialized}, service}
}

type ServiceShutdown struct {
	kinded
	Service string
}

func NewServiceShutdown(service string) ServiceShutdown {
	return ServiceShutdown{kinded{KindServiceShutdown}, service}
}

type SubSystemInitialized struct {
	kinded
	SubSystem string
}

func NewSubSystemInitialized(subSystem string) SubSystemInitialized {
	return SubSystemInitialized{kinded{KindSubSystemInitialized}, subSystem}
}

type SystemCoreReady struct{ kinded }

func NewSystemCoreReady() SystemCoreReady { return SystemCoreReady{kinded{KindSystemCoreReady}} }

type SystemReady struct{ kinded }

func NewSystemReady() SystemReady { return SystemReady{kinded{KindSystemReady}} }

type RequestShutdown struct {
	kinded
	ExitProcess bool
	ShutdownHTTP bool
}

func NewRequestShutdown(exitProcess, shutdownHTTP bool) RequestShutdown {
	return RequestShutdown{kinded{KindRequestShutdown}, exitProcess, shutdownHTTP}
}

type BecomeShuttingDown struct {
	kinded
	ExitProcess  bool
	ShutdownHTTP bool
}

func NewBecomeShuttingDown(exitProcess, shutdownHTTP bool) BecomeShuttingDown {
	return BecomeShuttingDown{kinded{KindBecomeShuttingDown}, exitProcess, shutdownHTTP}
}

type BecomeShutdown struct{ kinded }

func NewBecomeShutdown() BecomeShutdown { return BecomeShutdown{kinded{KindBecomeShutdown}} }

type ShutdownTimeout struct {
	kinded
	CorrelationID ID
}

func NewShutdownTimeout(id ID) ShutdownTimeout {
	return ShutdownTimeout{kinded{KindShutdownTimeout}, id}
}

// --- role transitions ---

// becomeMsg is the shape shared by every "become X" message: the
// correlation id it was scheduled under, checked by every handler per
// §4.2 step 1.
type becomeMsg struct {
	kinded
	CorrelationID ID
}

func newBecome(k Kind, id ID) becomeMsg { return becomeMsg{kinded{k}, id} }

type BecomeUnknown struct{ becomeMsg }

func NewBecomeUnknown(id ID) BecomeUnknown { return BecomeUnknown{newBecome(KindBecomeUnknown, id)} }

type BecomeDiscoverLeader struct{ becomeMsg }

func NewBecomeDiscoverLeader(id ID) BecomeDiscoverLeader {
	return BecomeDiscoverLeader{newBecome(KindBecomeDiscoverLeader, id)}
}

type BecomePreLeader struct{ becomeMsg }

func NewBecomePreLeader(id ID) BecomePreLeader {
	return BecomePreLeader{newBecome(KindBecomePreLeader, id)}
}

type BecomeLeader struct{ becomeMsg }

func NewBecomeLeader(id ID) BecomeLeader { return BecomeLeader{newBecome(KindBecomeLeader, id)} }

type InitiateLeaderResignation struct{ kinded }

func NewInitiateLeaderResignation() InitiateLeaderResignation {
	return InitiateLeaderResignation{kinded{KindInitiateLeaderResignation}}
}

type BecomeResigningLeader struct{ becomeMsg }

func NewBecomeResigningLeader(id ID) BecomeResigningLeader {
	return BecomeResigningLeader{newBecome(KindBecomeResigningLeader, id)}
}

type RequestQueueDrained struct{ kinded }

func NewRequestQueueDrained() RequestQueueDrained {
	return RequestQueueDrained{kinded{KindRequestQueueDrained}}
}

type BecomePreReplica struct {
	becomeMsg
	Leader MemberInfo
}

func NewBecomePreReplica(id ID, leader MemberInfo) BecomePreReplica {
	return BecomePreReplica{newBecome(KindBecomePreReplica, id), leader}
}

type BecomeCatchingUp struct{ becomeMsg }

func NewBecomeCatchingUp(id ID) BecomeCatchingUp {
	return BecomeCatchingUp{newBecome(KindBecomeCatchingUp, id)}
}

type BecomeClone struct{ becomeMsg }

func NewBecomeClone(id ID) BecomeClone { return BecomeClone{newBecome(KindBecomeClone, id)} }

type BecomeFollower struct{ becomeMsg }

func NewBecomeFollower(id ID) BecomeFollower {
	return BecomeFollower{newBecome(KindBecomeFollower, id)}
}

type BecomeReadOnlyLeaderless struct{ becomeMsg }

func NewBecomeReadOnlyLeaderless(id ID) BecomeReadOnlyLeaderless {
	return BecomeReadOnlyLeaderless{newBecome(KindBecomeReadOnlyLeaderless, id)}
}

type BecomePreReadOnlyReplica struct {
	becomeMsg
	Leader MemberInfo
}

func NewBecomePreReadOnlyReplica(id ID, leader MemberInfo) BecomePreReadOnlyReplica {
	return BecomePreReadOnlyReplica{newBecome(KindBecomePreReadOnlyReplica, id), leader}
}

type BecomeReadOnlyReplica struct{ becomeMsg }

func NewBecomeReadOnlyReplica(id ID) BecomeReadOnlyReplica {
	return BecomeReadOnlyReplica{newBecome(KindBecomeReadOnlyReplica, id)}
}

type WaitForChaserToCatchUp struct {
	kinded
	CorrelationID ID
	Attempt       int
}

func NewWaitForChaserToCatchUp(id ID, attempt int) WaitForChaserToCatchUp {
	return WaitForChaserToCatchUp{kinded{KindWaitForChaserToCatchUp}, id, attempt}
}

type ChaserCaughtUp struct {
	kinded
	CorrelationID ID
}

func NewChaserCaughtUp(id ID) ChaserCaughtUp {
	return ChaserCaughtUp{kinded{KindChaserCaughtUp}, id}
}

type NoQuorumMessage struct{ kinded }

func NewNoQuorumMessage() NoQuorumMessage { return NoQuorumMessage{kinded{KindNoQuorumMessage}} }

type WriteEpoch struct {
	kinded
	ProposalNumber int
}

func NewWriteEpoch(proposal int) WriteEpoch {
	return WriteEpoch{kinded{KindWriteEpoch}, proposal}
}

// --- election / gossip ---

type ElectionsDone struct {
	kinded
	Leader         MemberInfo
	ProposalNumber int
}

func NewElectionsDone(leader MemberInfo, proposal int) ElectionsDone {
	return ElectionsDone{kinded{KindElectionsDone}, leader, proposal}
}

type StartElections struct{ kinded }

func NewStartElections() StartElections { return StartElections{kinded{KindStartElections}} }

type GossipUpdated struct {
	kinded
	Members []MemberInfo
}

func NewGossipUpdated(members []MemberInfo) GossipUpdated {
	return GossipUpdated{kinded{KindGossipUpdated}, members}
}

type DiscoveryTimeout struct{ kinded }

func NewDiscoveryTimeout() DiscoveryTimeout { return DiscoveryTimeout{kinded{KindDiscoveryTimeout}} }

type LeaderFound struct {
	kinded
	Leader MemberInfo
}

func NewLeaderFound(leader MemberInfo) LeaderFound {
	return LeaderFound{kinded{KindLeaderFound}, leader}
}

// --- replication ---

type SubscribeToLeader struct {
	kinded
	CorrelationID ID
}

func NewSubscribeToLeader(id ID) SubscribeToLeader {
	return SubscribeToLeader{kinded{KindSubscribeToLeader}, id}
}

type ReconnectToLeader struct {
	kinded
	CorrelationID ID
}

func NewReconnectToLeader(id ID) ReconnectToLeader {
	return ReconnectToLeader{kinded{KindReconnectToLeader}, id}
}

type LeaderConnectionFailed struct {
	kinded
	CorrelationID ID
	Leader        MemberInfo
}

func NewLeaderConnectionFailed(id ID, leader MemberInfo) LeaderConnectionFailed {
	return LeaderConnectionFailed{kinded{KindLeaderConnectionFailed}, id, leader}
}

type ReplicaSubscriptionRetry struct {
	kinded
	SubscriptionID ID
	Leader         MemberInfo
}

func NewReplicaSubscriptionRetry(subID ID, leader MemberInfo) ReplicaSubscriptionRetry {
	return ReplicaSubscriptionRetry{kinded{KindReplicaSubscriptionRetry}, subID, leader}
}

type ReplicaSubscribed struct {
	kinded
	SubscriptionID ID
	Leader         MemberInfo
}

func NewReplicaSubscribed(subID ID, leader MemberInfo) ReplicaSubscribed {
	return ReplicaSubscribed{kinded{KindReplicaSubscribed}, subID, leader}
}

type FollowerAssignment struct {
	kinded
	SubscriptionID ID
	Leader         MemberInfo
}

func NewFollowerAssignment(subID ID, leader MemberInfo) FollowerAssignment {
	return FollowerAssignment{kinded{KindFollowerAssignment}, subID, leader}
}

type CloneAssignment struct {
	kinded
	SubscriptionID ID
	Leader         MemberInfo
}

func NewCloneAssignment(subID ID, leader MemberInfo) CloneAssignment {
	return CloneAssignment{kinded{KindCloneAssignment}, subID, leader}
}

type DropSubscription struct {
	kinded
	SubscriptionID ID
	Leader         MemberInfo
}

func NewDropSubscription(subID ID, leader MemberInfo) DropSubscription {
	return DropSubscription{kinded{KindDropSubscription}, subID, leader}
}

// CreateChunk, RawChunkBulk, DataChunkBulk, AckLogPosition,
// ReplicaSubscriptionRequest and ReplicaLogPositionAck are not acted on by
// any role handler (§6: accepted, but always forwarded to the output bus
// for the log/replication subsystems to consume); they share a single
// passthrough shape.
type replicationPassthrough struct {
	kinded
	Payload interface{}
}

type CreateChunk struct{ replicationPassthrough }
type RawChunkBulk struct{ replicationPassthrough }
type DataChunkBulk struct{ replicationPassthrough }
type AckLogPosition struct{ replicationPassthrough }
type ReplicaSubscriptionRequest struct{ replicationPassthrough }
type ReplicaLogPositionAck struct{ replicationPassthrough }

func NewCreateChunk(p interface{}) CreateChunk {
	return CreateChunk{replicationPassthrough{kinded{KindCreateChunk}, p}}
}
func NewRawChunkBulk(p interface{}) RawChunkBulk {
	return RawChunkBulk{replicationPassthrough{kinded{KindRawChunkBulk}, p}}
}
func NewDataChunkBulk(p interface{}) DataChunkBulk {
	return DataChunkBulk{replicationPassthrough{kinded{KindDataChunkBulk}, p}}
}
func NewAckLogPosition(p interface{}) AckLogPosition {
	return AckLogPosition{replicationPassthrough{kinded{KindAckLogPosition}, p}}
}
func NewReplicaSubscriptionRequest(p interface{}) ReplicaSubscriptionRequest {
	return ReplicaSubscriptionRequest{replicationPassthrough{kinded{KindReplicaSubscriptionRequest}, p}}
}
func NewReplicaLogPositionAck(p interface{}) ReplicaLogPositionAck {
	return ReplicaLogPositionAck{replicationPassthrough{kinded{KindReplicaLogPositionAck}, p}}
}

type VNodeConnectionLost struct {
	kinded
	ConnectionCorrelationID ID
	Peer                    MemberInfo
}

func NewVNodeConnectionLost(connID ID, peer MemberInfo) VNodeConnectionLost {
	return VNodeConnectionLost{kinded{KindVNodeConnectionLost}, connID, peer}
}

// --- authentication ---

type AuthenticationProviderInitialized struct{ kinded }

func NewAuthenticationProviderInitialized() AuthenticationProviderInitialized {
	return AuthenticationProviderInitialized{kinded{KindAuthenticationProviderInitialized}}
}

type AuthenticationProviderInitializationFailed struct {
	kinded
	Err error
}

func NewAuthenticationProviderInitializationFailed(err error) AuthenticationProviderInitializationFailed {
	return AuthenticationProviderInitializationFailed{kinded{KindAuthenticationProviderInitializationFailed}, err}
}

// --- client requests ---

// ReplyEnvelope is the opaque handle a collaborator transport gives the
// controller to send a reply back to the original caller. The controller
// never inspects it beyond passing it through to NotHandled or to the
// Forwarding Proxy.
type ReplyEnvelope interface {
	Reply(msg interface{})
}

// ClientRequest is the single message shape for every inbound client
// operation kind listed in §6; Kind distinguishes them for dispatch,
// logging, and tracing, while admission itself (§4.3) only inspects
// IsWrite/RequireLeader/Principal.
type ClientRequest struct {
	kinded
	CorrelationID  ID
	Envelope       ReplyEnvelope
	RequireLeader  bool
	IsWrite        bool
	Principal      string
	PrepareTimeout time.Duration
	CommitTimeout  time.Duration
}

func NewClientRequest(kind Kind, corrID ID, env ReplyEnvelope, requireLeader, isWrite bool, principal string, prepare, commit time.Duration) ClientRequest {
	return ClientRequest{
		kinded:         kinded{kind},
		CorrelationID:  corrID,
		Envelope:       env,
		RequireLeader:  requireLeader,
		IsWrite:        isWrite,
		Principal:      principal,
		PrepareTimeout: prepare,
		CommitTimeout:  commit,
	}
}

// RequestCompleted is the generic "*Completed" counterpart mentioned in §6
// for every client operation; the controller only ever forwards it.
type RequestCompleted struct {
	kinded
	CorrelationID ID
	Payload       interface{}
}

func NewRequestCompleted(corrID ID, payload interface{}) RequestCompleted {
	return RequestCompleted{kinded{KindRequestCompleted}, corrID, payload}
}
