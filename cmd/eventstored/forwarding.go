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

package main

import (
	"sync"
	"time"

	"github.com/arwinneil/EventStore/bus"
	"github.com/arwinneil/EventStore/cluster"
)

// forwardingProxy is the minimal in-process cluster.ForwardingProxy this
// bootstrap wires in. The actual network hop to the believed leader is a
// transport concern out of scope here; this implementation only tracks the
// pending correlation id and posts the timeout message back to the main
// queue if nothing resolves it first.
type forwardingProxy struct {
	queue bus.Queue

	mu      sync.Mutex
	pending map[cluster.ID]*time.Timer
}

func newForwardingProxy(queue bus.Queue) *forwardingProxy {
	return &forwardingProxy{queue: queue, pending: map[cluster.ID]*time.Timer{}}
}

func (p *forwardingProxy) RegisterForward(internalCorrID, externalCorrID cluster.ID, envelope cluster.ReplyEnvelope, timeout time.Duration, timeoutMessage cluster.Message) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pending[internalCorrID] = time.AfterFunc(timeout, func() {
		p.resolve(internalCorrID)
		p.queue.Post(timeoutMessage)
	})
}

// Resolve cancels the pending timeout for a forward that completed through
// some other path (a reply arriving from the leader). Out-of-scope
// transports call this once they parse the leader's response.
func (p *forwardingProxy) Resolve(internalCorrID cluster.ID) {
	p.resolve(internalCorrID)
}

func (p *forwardingProxy) resolve(internalCorrID cluster.ID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if t, ok := p.pending[internalCorrID]; ok {
		t.Stop()
		delete(p.pending, internalCorrID)
	}
}
