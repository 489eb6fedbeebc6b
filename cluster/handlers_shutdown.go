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

// registerResignationShutdownHandlers wires leader resignation and the
// shutdown sequence of §4.4.
func registerResignationShutdownHandlers(b *dispatcherBuilder) {
	b.On(RoleLeader, KindInitiateLeaderResignation, handle(handleInitiateLeaderResignation))
	b.On(RoleLeader, KindBecomeResigningLeader, handle(handleBecomeResigningLeader))
	b.On(RoleResigningLeader, KindRequestQueueDrained, handle(handleRequestQueueDrained))

	b.OnAllExcept([]Role{RoleShuttingDown, RoleShutdown}, KindRequestShutdown, handle(handleRequestShutdown))
	b.OnAllExcept([]Role{RoleShutdown}, KindBecomeShuttingDown, handle(handleBecomeShuttingDown))
	b.On(RoleShuttingDown, KindServiceShutdown, handle(handleServiceShutdown))
	b.On(RoleShuttingDown, KindShutdownTimeout, handle(handleShutdownTimeout))
	b.OnAny(KindBecomeShutdown, handle(handleBecomeShutdown))
}

// handleInitiateLeaderResignation begins resignation, preserving the live
// stateCorrelationId rather than rotating it.
func handleInitiateLeaderResignation(c *Controller, m Message) {
	c.queue.Post(NewBecomeResigningLeader(c.st.stateCorrelationID))
}

func handleBecomeResigningLeader(c *Controller, m Message) {
	b := m.(BecomeResigningLeader)
	c.enterRole(b.CorrelationID, RoleResigningLeader, nil, false, b)
}

// handleRequestQueueDrained completes resignation with a freshly rotated
// id, unlike handleInitiateLeaderResignation above, which keeps the live
// one.
func handleRequestQueueDrained(c *Controller, m Message) {
	id := c.st.rotateStateID()
	c.queue.Post(NewBecomeUnknown(id))
}

// handleRequestShutdown implements §4.4 step 1. Already being in
// ShuttingDown or Shutdown makes this a no-op per §8's idempotence
// property, enforced by the dispatcher registration itself excluding those
// roles rather than by a runtime check here.
func handleRequestShutdown(c *Controller, m Message) {
	r := m.(RequestShutdown)
	c.queue.Post(NewBecomeShuttingDown(r.ExitProcess, r.ShutdownHTTP))
}

// handleBecomeShuttingDown implements §4.4 step 2: capture the exit
// intent, clear the believed leader, rotate the state id, and arm the
// bounded shutdown window.
func handleBecomeShuttingDown(c *Controller, m Message) {
	b := m.(BecomeShuttingDown)
	c.st.exitProcessOnShutdown = b.ExitProcess
	c.st.setLeader(nil)
	id := c.st.rotateStateID()
	c.st.role = RoleShuttingDown
	c.metrics.setRole(RoleShuttingDown)
	c.outbus.Publish(b)
	c.queue.Schedule(c.timers.ShutdownTimeout, NewShutdownTimeout(id))
}

// handleServiceShutdown implements §4.4 step 3: each acknowledgement
// decrements serviceShutdownsToExpect; the one that reaches zero runs the
// same shutdown finalization the timeout path runs.
func handleServiceShutdown(c *Controller, m Message) {
	c.st.serviceShutdownsToExpect--
	if c.st.serviceShutdownsToExpect <= 0 {
		c.finalizeShutdown()
	}
}

// handleShutdownTimeout implements §4.4 step 4: if services have not all
// acknowledged within the bounded window, force shutdown anyway and log
// the outstanding count at error level (§7: the bounded window always
// terminates, regardless of acknowledgement).
func handleShutdownTimeout(c *Controller, m Message) {
	t := m.(ShutdownTimeout)
	if t.CorrelationID != c.st.stateCorrelationID {
		return
	}
	if c.st.serviceShutdownsToExpect > 0 {
		c.log.WithField("services_outstanding", c.st.serviceShutdownsToExpect).Error("shutdown timed out waiting for services to acknowledge")
	}
	c.finalizeShutdown()
}

// finalizeShutdown implements §4.4 steps 3-4: close the log database, then
// post BecomeShutdown. It is only ever reached from ShuttingDown, either by
// the last ServiceShutdown acknowledgement or by the bounded shutdown
// window forcing completion.
func (c *Controller) finalizeShutdown() {
	if c.st.role != RoleShuttingDown {
		c.fatalf("finalizeShutdown called outside ShuttingDown (role %s)", c.st.role)
		return
	}
	if err := c.logCloser.Close(); err != nil {
		c.log.WithError(err).Error("error closing log database during shutdown")
	}
	c.queue.Post(NewBecomeShutdown())
}

// handleBecomeShutdown implements §4.4 step 5: publish the transition,
// stop the main queue, and exit the process if requested. Registered for
// any role since both the normal drain and the immediate
// AuthenticationProviderInitializationFailed path reach it from different
// source roles.
func handleBecomeShutdown(c *Controller, m Message) {
	c.st.role = RoleShutdown
	c.metrics.setRole(RoleShutdown)
	c.outbus.Publish(m)
	c.queue.RequestStop()
	if c.st.exitProcessOnShutdown {
		c.terminator.Exit()
	}
}
