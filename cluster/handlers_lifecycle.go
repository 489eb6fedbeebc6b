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

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// registerLifecycleHandlers wires §4.4's startup sequence into the
// dispatcher: service-init counting, the initial role decision out of
// Initializing, subsystem startup, and the SystemCoreReady/SystemReady
// handshake.
func registerLifecycleHandlers(b *dispatcherBuilder) {
	b.OnAny(KindServiceInitialized, handle(handleServiceInitialized))
	b.On(RoleInitializing, KindSystemStart, handle(handleSystemStart))
	b.OnAny(KindAuthenticationProviderInitialized, handle(handleAuthenticationProviderInitialized))
	b.OnAny(KindAuthenticationProviderInitializationFailed, handle(handleAuthenticationProviderInitializationFailed))
	b.OnAny(KindSystemCoreReady, handle(handleSystemCoreReady))
	b.OnAny(KindSubSystemInitialized, handle(handleSubSystemInitialized))

	b.OnRoles([]Role{RoleInitializing, RoleDiscoverLeader, RoleLeader, RoleResigningLeader}, KindBecomeUnknown, handle(handleBecomeUnknown))
	b.On(RoleInitializing, KindBecomeDiscoverLeader, handle(handleBecomeDiscoverLeader))
	b.On(RoleDiscoverLeader, KindDiscoveryTimeout, handle(handleDiscoveryTimeout))
	b.OnRoles([]Role{RoleInitializing, RolePreReadOnlyReplica, RoleReadOnlyReplica}, KindBecomeReadOnlyLeaderless, handle(handleBecomeReadOnlyLeaderless))
}

// handleServiceInitialized implements §4.4 step 2: each acknowledgement
// decrements serviceInitsToExpect; the one that reaches zero publishes
// SystemStart to re-enter the queue.
func handleServiceInitialized(c *Controller, m Message) {
	c.st.serviceInitsToExpect--
	if c.st.serviceInitsToExpect <= 0 {
		c.queue.Post(NewSystemStart())
	}
}

// handleSystemStart implements §4.4 step 3: the initial role decision.
func handleSystemStart(c *Controller, m Message) {
	id := c.st.rotateStateID()
	switch {
	case c.self.IsReadOnlyReplica:
		c.queue.Post(NewBecomeReadOnlyLeaderless(id))
	case c.clusterSize > 1:
		c.queue.Post(NewBecomeDiscoverLeader(id))
	default:
		c.queue.Post(NewBecomeUnknown(id))
	}
}

func handleBecomeUnknown(c *Controller, m Message) {
	b := m.(BecomeUnknown)
	c.enterRole(b.CorrelationID, RoleUnknown, nil, true, b)
}

// handleBecomeDiscoverLeader additionally schedules the discovery
// watchdog (§4.4 step 4) once the role has actually been entered.
func handleBecomeDiscoverLeader(c *Controller, m Message) {
	b := m.(BecomeDiscoverLeader)
	c.enterRole(b.CorrelationID, RoleDiscoverLeader, nil, true, b)
	if c.st.role == RoleDiscoverLeader && c.st.stateCorrelationID == b.CorrelationID {
		c.queue.Schedule(c.timers.LeaderDiscoveryTimeout, NewDiscoveryTimeout())
	}
}

// handleDiscoveryTimeout implements the fallback half of §4.2's
// DiscoverLeader gossip rule: if still leaderless when the watchdog fires,
// give up discovery and fall back to Unknown so elections can run.
func handleDiscoveryTimeout(c *Controller, m Message) {
	if c.st.leader != nil {
		return
	}
	id := c.st.rotateStateID()
	c.queue.Post(NewBecomeUnknown(id))
}

func handleBecomeReadOnlyLeaderless(c *Controller, m Message) {
	b := m.(BecomeReadOnlyLeaderless)
	c.enterRole(b.CorrelationID, RoleReadOnlyLeaderless, nil, true, b)
}

// handleAuthenticationProviderInitialized implements §4.4 step 5: start
// every registered subsystem concurrently, then (on success) publish
// SystemCoreReady; a subsystem start failure is an operational failure
// (§7) and escalates to shutdown, the same way DropSubscription does.
func handleAuthenticationProviderInitialized(c *Controller, m Message) {
	starters := c.subsystemStarters
	go func() {
		g, ctx := errgroup.WithContext(context.Background())
		for _, start := range starters {
			start := start
			g.Go(func() error { return start(ctx) })
		}
		if err := g.Wait(); err != nil {
			c.log.WithError(err).Error("subsystem failed to start")
			c.queue.Post(NewRequestShutdown(true, true))
			return
		}
		c.queue.Post(NewSystemCoreReady())
	}()
}

// handleAuthenticationProviderInitializationFailed implements §4.4 step 6:
// an authentication provider that fails to initialize forces an immediate
// shutdown, bypassing the usual ShuttingDown drain window.
func handleAuthenticationProviderInitializationFailed(c *Controller, m Message) {
	c.st.exitProcessOnShutdown = true
	c.queue.Post(NewBecomeShutdown())
}

// handleSystemCoreReady implements §4.4 step 7: with no subsystems to
// wait for, SystemReady follows immediately.
func handleSystemCoreReady(c *Controller, m Message) {
	c.outbus.Publish(m)
	if atomic.LoadInt32(&c.st.subsystemInitsToExpect) <= 0 {
		c.queue.Post(NewSystemReady())
	}
}

// handleSubSystemInitialized is the in-queue counterpart of
// Controller.NotifySubsystemInitialized, for subsystems that post their
// acknowledgement as a message rather than calling the method directly.
func handleSubSystemInitialized(c *Controller, m Message) {
	if atomic.AddInt32(&c.st.subsystemInitsToExpect, -1) == 0 {
		c.queue.Post(NewSystemReady())
	}
}
