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
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/arwinneil/EventStore/bus"
)

type recordingTerminator struct {
	fatals chan string
	exits  chan struct{}
}

func newRecordingTerminator() *recordingTerminator {
	return &recordingTerminator{fatals: make(chan string, 8), exits: make(chan struct{}, 8)}
}

func (t *recordingTerminator) Fatal(msg string) { t.fatals <- msg }
func (t *recordingTerminator) Exit()            { t.exits <- struct{}{} }

type recordingLogCloser struct {
	closes chan struct{}
}

func newRecordingLogCloser() *recordingLogCloser {
	return &recordingLogCloser{closes: make(chan struct{}, 8)}
}

func (l *recordingLogCloser) Close() error {
	l.closes <- struct{}{}
	return nil
}

type testHarness struct {
	c          *Controller
	queue      bus.Queue
	outbus     bus.OutputBus
	terminator *recordingTerminator
	logCloser  *recordingLogCloser
	roleCh     chan Role
}

func newTestHarness(t *testing.T, clusterSize int, readOnly bool) *testHarness {
	self := NodeInfo{InstanceID: "n1"}
	self.IsReadOnlyReplica = readOnly

	cfg := Config{
		Self:             self,
		ClusterSize:      clusterSize,
		CoreServiceCount: 1,
		Timers: Timers{
			LeaderDiscoveryTimeout:       30 * time.Millisecond,
			LeaderReconnectionDelay:      10 * time.Millisecond,
			LeaderSubscriptionRetryDelay: 10 * time.Millisecond,
			LeaderSubscriptionTimeout:    50 * time.Millisecond,
			ShutdownTimeout:              30 * time.Millisecond,
		},
	}

	outbus := bus.NewOutputBus()
	queue := bus.NewQueue(64)
	terminator := newRecordingTerminator()
	logCloser := newRecordingLogCloser()
	logger := logrus.NewEntry(logrus.New())

	c, err := NewController(cfg, logger, terminator, nil, outbus, queue, nil, nil, logCloser)
	require.NoError(t, err)

	roleCh := make(chan Role, 64)
	c.RegisterRoleObserver(func(r Role, epoch int) {
		select {
		case roleCh <- r:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go c.Run(ctx)

	return &testHarness{c: c, queue: queue, outbus: outbus, terminator: terminator, logCloser: logCloser, roleCh: roleCh}
}

// waitForRole blocks until the controller reaches target or the timeout
// elapses, draining intermediate role notifications along the way.
func waitForRole(t *testing.T, h *testHarness, target Role, timeout time.Duration) {
	t.Helper()
	deadline := time.After(timeout)
	for {
		select {
		case r := <-h.roleCh:
			if r == target {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for role %s", target)
		}
	}
}

func bootToServiceReady(h *testHarness) {
	h.queue.Post(NewServiceInitialized("writer"))
}

// resolveChaserWaitRetrying lets a pending WaitForChaserToCatchUp succeed.
// ProgressNotifier.Wait only wakes for an attempt recorded after the
// controller's own goroutine called Wait (see progress_notifier.go); since
// that call happens on the controller's queue goroutine shortly after this
// test's call to waitForRole returns, it retries BeginAttempt/RecordSuccess
// for d so one of the attempts is guaranteed to land after that point
// rather than racing a single call against it.
func resolveChaserWaitRetrying(c *Controller, d time.Duration) {
	end := time.Now().Add(d)
	for time.Now().Before(end) {
		a := c.Progress().BeginAttempt()
		c.Progress().RecordSuccess(a)
		time.Sleep(5 * time.Millisecond)
	}
}

func TestColdStartSingleNodeBecomesLeaderThroughElection(t *testing.T) {
	h := newTestHarness(t, 1, false)

	bootToServiceReady(h)
	waitForRole(t, h, RoleUnknown, time.Second)

	h.queue.Post(NewElectionsDone(MemberInfo{InstanceID: "n1", IsAlive: true, Role: RoleLeader}, 1))
	waitForRole(t, h, RolePreLeader, time.Second)

	resolveChaserWaitRetrying(h.c, 150*time.Millisecond)
	waitForRole(t, h, RoleLeader, time.Second)
}

func TestColdStartJoinsClusterThroughDiscovery(t *testing.T) {
	h := newTestHarness(t, 3, false)

	bootToServiceReady(h)
	waitForRole(t, h, RoleDiscoverLeader, time.Second)

	leader := MemberInfo{InstanceID: "n2", IsAlive: true, Role: RoleLeader}
	h.queue.Post(NewGossipUpdated([]MemberInfo{leader}))
	waitForRole(t, h, RolePreReplica, time.Second)

	resolveChaserWaitRetrying(h.c, 150*time.Millisecond)

	sub := h.outbus.Subscribe()
	found := false
	for i := 0; i < 20 && !found; i++ {
		select {
		case msg := <-sub:
			if msg.Kind() == KindSubscribeToLeader {
				found = true
			}
		case <-time.After(200 * time.Millisecond):
		}
	}
	require.True(t, found, "expected SubscribeToLeader to be published while staging as a replica")

	h.queue.Post(NewReplicaSubscribed(h.c.st.subscriptionID, leader))
	waitForRole(t, h, RoleCatchingUp, time.Second)
}

func TestLeaderSeesSplitBrainStartsNewElections(t *testing.T) {
	h := newTestHarness(t, 1, false)

	bootToServiceReady(h)
	waitForRole(t, h, RoleUnknown, time.Second)
	h.queue.Post(NewElectionsDone(MemberInfo{InstanceID: "n1", IsAlive: true, Role: RoleLeader}, 1))
	waitForRole(t, h, RolePreLeader, time.Second)
	resolveChaserWaitRetrying(h.c, 150*time.Millisecond)
	waitForRole(t, h, RoleLeader, time.Second)

	sub := h.outbus.Subscribe()
	h.queue.Post(NewGossipUpdated([]MemberInfo{
		{InstanceID: "n1", IsAlive: true, Role: RoleLeader},
		{InstanceID: "n2", IsAlive: true, Role: RoleLeader},
	}))

	select {
	case msg := <-sub:
		require.Equal(t, KindStartElections, msg.Kind())
	case <-time.After(time.Second):
		t.Fatal("expected StartElections to be published when two alive leaders are reported")
	}
}

func TestLeaderLosingQuorumDemotesToUnknownAndStartsElections(t *testing.T) {
	h := newTestHarness(t, 1, false)

	bootToServiceReady(h)
	waitForRole(t, h, RoleUnknown, time.Second)
	h.queue.Post(NewElectionsDone(MemberInfo{InstanceID: "n1", IsAlive: true, Role: RoleLeader}, 1))
	waitForRole(t, h, RolePreLeader, time.Second)
	resolveChaserWaitRetrying(h.c, 150*time.Millisecond)
	waitForRole(t, h, RoleLeader, time.Second)

	sub := h.outbus.Subscribe()
	h.queue.Post(NewNoQuorumMessage())

	waitForRole(t, h, RoleUnknown, time.Second)
	require.Nil(t, h.c.st.leader, "expected the leader to be cleared on quorum loss")

	select {
	case msg := <-sub:
		require.Equal(t, KindStartElections, msg.Kind())
	case <-time.After(time.Second):
		t.Fatal("expected StartElections to be published after demoting to Unknown on quorum loss")
	}
}

func TestStaleChaserCaughtUpIsDropped(t *testing.T) {
	h := newTestHarness(t, 1, false)

	bootToServiceReady(h)
	waitForRole(t, h, RoleUnknown, time.Second)
	h.queue.Post(NewElectionsDone(MemberInfo{InstanceID: "n1", IsAlive: true, Role: RoleLeader}, 1))
	waitForRole(t, h, RolePreLeader, time.Second)

	h.queue.Post(NewChaserCaughtUp(ID("some-other-attempt")))

	// A stale ChaserCaughtUp is still dispatched as actionHandle, so it still
	// produces a role notification; what must not happen is that role
	// actually moving away from RolePreLeader.
	time.Sleep(100 * time.Millisecond)
drain:
	for {
		select {
		case r := <-h.roleCh:
			require.Equal(t, RolePreLeader, r, "a stale ChaserCaughtUp must not change the controller's role")
		default:
			break drain
		}
	}

	resolveChaserWaitRetrying(h.c, 150*time.Millisecond)
	waitForRole(t, h, RoleLeader, time.Second)
}

func TestLeaderResignationDrainsBackToUnknown(t *testing.T) {
	h := newTestHarness(t, 1, false)

	bootToServiceReady(h)
	waitForRole(t, h, RoleUnknown, time.Second)
	h.queue.Post(NewElectionsDone(MemberInfo{InstanceID: "n1", IsAlive: true, Role: RoleLeader}, 1))
	waitForRole(t, h, RolePreLeader, time.Second)
	resolveChaserWaitRetrying(h.c, 150*time.Millisecond)
	waitForRole(t, h, RoleLeader, time.Second)

	h.queue.Post(NewInitiateLeaderResignation())
	waitForRole(t, h, RoleResigningLeader, time.Second)

	h.queue.Post(NewRequestQueueDrained())
	waitForRole(t, h, RoleUnknown, time.Second)
}

func TestShutdownTimesOutAndTerminates(t *testing.T) {
	h := newTestHarness(t, 1, false)

	bootToServiceReady(h)
	waitForRole(t, h, RoleUnknown, time.Second)

	h.queue.Post(NewRequestShutdown(true, true))
	waitForRole(t, h, RoleShuttingDown, time.Second)

	// No ServiceShutdown acknowledgements are posted, so the bounded
	// shutdown window must still force completion.
	waitForRole(t, h, RoleShutdown, time.Second)

	select {
	case <-h.terminator.exits:
	case <-time.After(time.Second):
		t.Fatal("expected the terminator to be asked to exit the process")
	}
}

func TestShutdownClosesLogDatabaseBeforeBecomingShutdown(t *testing.T) {
	h := newTestHarness(t, 1, false)

	bootToServiceReady(h)
	waitForRole(t, h, RoleUnknown, time.Second)

	h.queue.Post(NewRequestShutdown(true, true))
	waitForRole(t, h, RoleShuttingDown, time.Second)
	waitForRole(t, h, RoleShutdown, time.Second)

	select {
	case <-h.logCloser.closes:
	case <-time.After(time.Second):
		t.Fatal("expected the log database to be closed while finalizing shutdown")
	}
}

func TestRequestShutdownIsIdempotentOnceShuttingDown(t *testing.T) {
	h := newTestHarness(t, 1, false)

	bootToServiceReady(h)
	waitForRole(t, h, RoleUnknown, time.Second)

	h.queue.Post(NewRequestShutdown(false, true))
	waitForRole(t, h, RoleShuttingDown, time.Second)

	// A second RequestShutdown while already shutting down must not be
	// handled again (the dispatcher excludes ShuttingDown/Shutdown from
	// the registration entirely), so it falls through to the default
	// forward action rather than re-triggering BecomeShuttingDown.
	sub := h.outbus.Subscribe()
	h.queue.Post(NewRequestShutdown(false, true))

	select {
	case msg := <-sub:
		require.Equal(t, KindRequestShutdown, msg.Kind())
	case <-time.After(time.Second):
		t.Fatal("expected the repeated RequestShutdown to be forwarded, not handled again")
	}
}
