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

// Package cluster implements the node's role state machine: the single
// authority on what role this node currently holds, the transitions
// between roles, client-request admission, and orderly startup/shutdown of
// the node's subordinate services. A Controller is a single-consumer
// handler attached to the node's main in-process message bus; it reacts to
// one inbound message at a time, publishing to an output bus and
// scheduling timer messages back to itself.
package cluster

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/arwinneil/EventStore/bus"
)

// Timers holds every tunable wait duration the controller schedules
// against itself (§5). Constructor parameters rather than constants so a
// config layer outside this module can override them, including in tests.
type Timers struct {
	LeaderDiscoveryTimeout       time.Duration
	LeaderReconnectionDelay      time.Duration
	LeaderSubscriptionRetryDelay time.Duration
	LeaderSubscriptionTimeout    time.Duration
	ShutdownTimeout              time.Duration
}

// DefaultTimers returns the literal defaults from §5.
func DefaultTimers() Timers {
	return Timers{
		LeaderDiscoveryTimeout:       3000 * time.Millisecond,
		LeaderReconnectionDelay:      500 * time.Millisecond,
		LeaderSubscriptionRetryDelay: 500 * time.Millisecond,
		LeaderSubscriptionTimeout:    1000 * time.Millisecond,
		ShutdownTimeout:              5000 * time.Millisecond,
	}
}

// Config is the fixed, immutable configuration a Controller is built from.
type Config struct {
	Self NodeInfo

	// ClusterSize is the known number of voting members; it decides
	// whether startup first tries to discover an existing leader (§4.4
	// step 3) and how many ServiceShutdown acknowledgements a clean
	// shutdown expects.
	ClusterSize int

	// CoreServiceCount is the number of ServiceInitialized acknowledgements
	// startup waits for (§4.4 step 2) before publishing SystemStart.
	CoreServiceCount int

	// SubsystemCount is the number of plugin subsystems SystemCoreReady
	// waits on (§4.4 step 7) before publishing SystemReady.
	SubsystemCount int

	Timers Timers
}

// shutdownCount is the serviceShutdownsToExpect §4.4 specifies: 6 for a
// clustered node (chaser, reader, writer, index committer, replication,
// HTTP), 5 for a single-node deployment, which never runs a replication
// service.
func (cfg Config) shutdownCount() int {
	if cfg.ClusterSize > 1 {
		return 6
	}
	return 5
}

// Controller is the node's role state machine. Exactly one instance exists
// per node. It is driven exclusively by Run, which must be called from a
// single goroutine (§5: no locks inside the controller; state is the
// dispatcher's private data).
type Controller struct {
	st          *state
	self        NodeInfo
	clusterSize int
	timers      Timers

	log        *logrus.Entry
	terminator ProcessTerminator
	metrics    *metrics
	tracer     trace.Tracer

	outbus          bus.OutputBus
	queue           bus.Queue
	forwardingProxy ForwardingProxy
	logCloser       LogCloser

	progress *ProgressNotifier

	subsystemStarters []func(context.Context) error

	roleObservers []func(Role, int)

	dispatcher *dispatcher
}

// NewController wires a Controller from its collaborators. reg may be nil
// in tests that do not care about metrics; tracer may be nil, in which
// case dispatch uses the OpenTelemetry no-op tracer; logCloser may be nil,
// in which case shutdown closes nothing.
func NewController(
	cfg Config,
	log *logrus.Entry,
	terminator ProcessTerminator,
	reg prometheus.Registerer,
	outbus bus.OutputBus,
	queue bus.Queue,
	forwardingProxy ForwardingProxy,
	tracer trace.Tracer,
	logCloser LogCloser,
) (*Controller, error) {
	if cfg.Self.InstanceID == "" {
		return nil, errors.New("cluster: NodeInfo.InstanceID must not be empty")
	}
	if tracer == nil {
		tracer = trace.NewNoopTracerProvider().Tracer("cluster")
	}
	if logCloser == nil {
		logCloser = noopLogCloser{}
	}

	st := newState()
	st.serviceInitsToExpect = cfg.CoreServiceCount
	st.serviceShutdownsToExpect = cfg.shutdownCount()
	st.subsystemInitsToExpect = int32(cfg.SubsystemCount)

	c := &Controller{
		st:              st,
		self:            cfg.Self,
		clusterSize:     cfg.ClusterSize,
		timers:          cfg.Timers,
		log:             log,
		terminator:      terminator,
		outbus:          outbus,
		queue:           queue,
		forwardingProxy: forwardingProxy,
		logCloser:       logCloser,
		tracer:          tracer,
		progress:        &ProgressNotifier{},
	}
	c.metrics = newMetrics(reg, cfg.Self.InstanceID)
	c.metrics.setRole(c.st.role)
	c.dispatcher = buildDispatcher()
	return c, nil
}

// Run drains the main queue until it is closed (after RequestStop has been
// called and any buffered messages delivered). It must run on its own
// goroutine; every message is dispatched to completion before the next one
// is read, which is the serialization invariant 4 of §3 depends on.
func (c *Controller) Run(ctx context.Context) {
	for msg := range c.queue.Messages() {
		c.dispatch(ctx, msg)
	}
}

// dispatch resolves and applies the single rule for (current role, msg's
// kind). No message bypasses this path (§2).
func (c *Controller) dispatch(ctx context.Context, msg Message) {
	role := c.st.role
	_, span := c.tracer.Start(ctx, "cluster.dispatch",
		trace.WithAttributes(
			attribute.String("role", string(role)),
			attribute.String("message_kind", string(msg.Kind())),
		),
	)
	defer span.End()

	entry := c.log.WithFields(logrus.Fields{
		"role":                 string(role),
		"message_kind":         string(msg.Kind()),
		"state_correlation_id": string(c.st.stateCorrelationID),
	})

	r := c.dispatcher.resolve(role, msg.Kind())
	switch r.kind {
	case actionHandle:
		r.handler(c, msg)
	case actionForward:
		c.outbus.Publish(msg)
	case actionIgnore:
		entry.Debug("ignoring message for current role")
	case actionDeny:
		req, ok := msg.(ClientRequest)
		if !ok {
			c.fatalf("deny rule registered for non-client-request kind %q", msg.Kind())
			return
		}
		c.deny(req, r.reason)
	}

	if role != c.st.role || r.kind == actionHandle {
		c.notifyRoleObservers()
	}
}

// RegisterRoleObserver adds fn to the set called whenever dispatch may have
// changed the node's role or epoch, such as the gRPC peer interceptors that
// stamp both onto every RPC. fn is called inline on the queue goroutine, so
// it must not block.
func (c *Controller) RegisterRoleObserver(fn func(Role, int)) {
	c.roleObservers = append(c.roleObservers, fn)
}

func (c *Controller) notifyRoleObservers() {
	for _, obs := range c.roleObservers {
		obs(c.st.role, c.st.currentEpoch)
	}
}

// Progress is the chaser-catch-up notifier an external chaser subsystem
// reports progress to; WaitForChaserToCatchUp arms a wait against it and
// ChaserCaughtUp is posted back once it resolves.
func (c *Controller) Progress() *ProgressNotifier {
	return c.progress
}

// RegisterSubsystem adds a plugin subsystem starter run concurrently once
// AuthenticationProviderInitialized fires (§4.4 step 5).
func (c *Controller) RegisterSubsystem(start func(context.Context) error) {
	c.subsystemStarters = append(c.subsystemStarters, start)
}

// NotifySubsystemInitialized atomically decrements subsystemInitsToExpect;
// the decrement that reaches zero posts SystemReady. Safe to call from any
// goroutine, since subsystem-init notifications may originate off the main
// queue (§5, §9).
func (c *Controller) NotifySubsystemInitialized() {
	if atomic.AddInt32(&c.st.subsystemInitsToExpect, -1) == 0 {
		c.queue.Post(NewSystemReady())
	}
}

// buildDispatcher compiles the full (role, kind) table from every role
// handler file's registrations. Each register* function lives alongside
// the handlers it wires, so the table's shape is visible next to the logic
// it dispatches to.
func buildDispatcher() *dispatcher {
	b := newDispatcherBuilder()
	registerLifecycleHandlers(b)
	registerElectionGossipHandlers(b)
	registerReplicationHandlers(b)
	registerResignationShutdownHandlers(b)
	registerClientRequestHandlers(b)
	return b.build()
}
