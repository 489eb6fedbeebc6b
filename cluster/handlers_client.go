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

// clientRequestKinds are every inbound client operation kind of §6; all of
// them share the ClientRequest message shape and the single admission
// decision matrix of §4.3, so they are registered identically regardless of
// role.
var clientRequestKinds = []Kind{
	KindReadEvent,
	KindReadStreamEventsForward,
	KindReadStreamEventsBackward,
	KindReadAllEventsForward,
	KindReadAllEventsBackward,
	KindFilteredReadAllForward,
	KindFilteredReadAllBackward,
	KindWriteEvents,
	KindTransactionStart,
	KindTransactionWrite,
	KindTransactionCommit,
	KindDeleteStream,
	KindCreatePersistentSubscription,
	KindConnectToPersistentSubscription,
	KindUpdatePersistentSubscription,
	KindDeletePersistentSubscription,
	KindCreatePersistentSubscriptionToAll,
	KindConnectToPersistentSubscriptionToAll,
	KindUpdatePersistentSubscriptionToAll,
	KindDeletePersistentSubscriptionToAll,
}

// registerClientRequestHandlers wires every client-request kind to the
// admission decision matrix of §4.3, and RequestCompleted to a bare forward
// (the controller never inspects its payload, per §6).
func registerClientRequestHandlers(b *dispatcherBuilder) {
	for _, kind := range clientRequestKinds {
		b.OnAny(kind, handle(handleClientRequestDispatch))
	}
	b.OnAny(KindRequestCompleted, handle(handleRequestCompletedDispatch))
}

func handleClientRequestDispatch(c *Controller, m Message) {
	c.admit(m.(ClientRequest))
}

func handleRequestCompletedDispatch(c *Controller, m Message) {
	c.outbus.Publish(m)
}
