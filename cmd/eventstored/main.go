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

// Command eventstored wires a single node's cluster.Controller to the
// node's main bus, supervises its subordinate services through
// svcs.Controller, and exports the controller's role and dispatch traces so
// an operator can see what the node is doing. Everything it gathers to
// build cluster.Config is bootstrap-only; loading that configuration from a
// file or a discovery service is explicitly out of scope (SPEC_FULL §10.3).
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/arwinneil/EventStore/bus"
	"github.com/arwinneil/EventStore/cluster"
	"github.com/arwinneil/EventStore/svcs"
)

func main() {
	instanceID := flag.String("instance-id", "", "this node's unique instance id (required)")
	httpAddr := flag.String("http-addr", "127.0.0.1:2113", "HTTP listen address")
	tcpAddr := flag.String("tcp-addr", "127.0.0.1:1113", "internal TCP listen address")
	secureTCPAddr := flag.String("secure-tcp-addr", "", "internal secure TCP listen address, if any")
	clusterSize := flag.Int("cluster-size", 1, "number of voting members in the cluster")
	readOnlyReplica := flag.Bool("read-only-replica", false, "start as a read-only replica rather than a voting member")
	jaegerEndpoint := flag.String("jaeger-endpoint", "", "Jaeger collector endpoint; tracing is a no-op if empty")
	peerKeyID := flag.String("peer-key-id", "1", "key id peer gRPC tokens are signed under")
	peerPublicKey := flag.String("peer-public-key", "", "base64-encoded ed25519 public key used to verify peer gRPC tokens (required)")
	peerGRPCAddr := flag.String("peer-grpc-addr", "127.0.0.1:2115", "listen address for the peer-facing gRPC server")
	flag.Parse()

	log := newLogger()

	if *instanceID == "" {
		log.Fatal("eventstored: -instance-id is required")
	}

	tp, err := newTracerProvider(*jaegerEndpoint, *instanceID)
	if err != nil {
		log.WithError(err).Fatal("eventstored: failed to build tracer provider")
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			log.WithError(err).Warn("eventstored: tracer provider shutdown failed")
		}
	}()
	tracer := tp.Tracer("eventstored")

	self := cluster.NodeInfo{
		InstanceID:        *instanceID,
		HTTPEndpoint:      mustParseEndpoint(log, *httpAddr),
		TCPEndpoint:       mustParseEndpoint(log, *tcpAddr),
		SecureTCPEndpoint: parseOptionalEndpoint(*secureTCPAddr),
		IsReadOnlyReplica: *readOnlyReplica,
	}

	cfg := cluster.Config{
		Self:             self,
		ClusterSize:      *clusterSize,
		CoreServiceCount: len(coreServiceNames),
		SubsystemCount:   0,
		Timers:           cluster.DefaultTimers(),
	}

	outbus := bus.NewOutputBus()
	queue := bus.NewQueue(256)
	terminator := newOSTerminator(log)
	fp := newForwardingProxy(queue)
	reg := prometheus.DefaultRegisterer

	// No LogCloser is wired here: the on-disk log database is an external
	// collaborator out of scope for this bootstrap (§1), so NewController
	// falls back to its no-op default.
	controller, err := cluster.NewController(cfg, log.WithField("component", "cluster"), terminator, reg, outbus, queue, fp, tracer, nil)
	if err != nil {
		log.WithError(err).Fatal("eventstored: failed to construct cluster controller")
	}

	keyProvider, err := newStaticKeyProvider(*peerKeyID, *peerPublicKey)
	if err != nil {
		log.WithError(err).Fatal("eventstored: failed to load peer public key")
	}

	peerLis, err := net.Listen("tcp", *peerGRPCAddr)
	if err != nil {
		log.WithError(err).Fatal("eventstored: failed to bind peer gRPC listener")
	}
	peerServer := grpc.NewServer(controller.ServerInterceptorOptions(keyProvider)...)
	grpc_health_v1.RegisterHealthServer(peerServer, health.NewServer())
	go func() {
		if err := peerServer.Serve(peerLis); err != nil {
			log.WithError(err).Error("eventstored: peer gRPC server stopped")
		}
	}()
	defer peerServer.GracefulStop()

	// ClientInterceptorOptions is exercised by peer-dialing code that lives
	// in the replication transport, out of scope for this bootstrap.

	supervisor := svcs.NewController()
	for _, name := range coreServiceNames {
		name := name
		if err := supervisor.Register(newCoreServiceStub(name, queue)); err != nil {
			log.WithError(err).Fatalf("eventstored: failed to register service %q", name)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go controller.Run(ctx)
	go watchForShutdown(outbus, supervisor)

	go func() {
		if err := supervisor.Start(context.Background()); err != nil {
			log.WithError(err).Error("eventstored: service supervisor reported an error")
		}
	}()
	if err := supervisor.WaitForStart(); err != nil {
		log.WithError(err).Fatal("eventstored: a core service failed to initialize")
	}

	<-ctx.Done()
	log.Info("eventstored: shutdown signal received")
	queue.Post(cluster.NewRequestShutdown(false, true))

	if err := supervisor.WaitForStop(); err != nil {
		log.WithError(err).Error("eventstored: error stopping services")
	}
}

// watchForShutdown drives the svcs.Controller's own stop sequence once the
// cluster controller has decided to shut down, so the two lifecycles (role
// state machine, service supervisor) stay coupled without either owning the
// other: the cluster controller never calls into svcs directly (§1, §4.4
// scope), and svcs never inspects cluster role.
func watchForShutdown(outbus bus.OutputBus, supervisor *svcs.Controller) {
	for msg := range outbus.Subscribe() {
		if msg.Kind() == "BecomeShuttingDown" {
			supervisor.Stop()
			return
		}
	}
}

// coreServiceNames are the ServiceInitialized/ServiceShutdown acknowledgers
// startup and shutdown wait on (§4.4 steps 2 and 3): chaser, reader,
// writer, index committer, replication, and HTTP. Their actual bodies are
// out of scope collaborators; the stub here only participates in the
// handshake so the controller can progress past Initializing in a
// single-process deployment.
var coreServiceNames = []string{"chaser", "reader", "writer", "index-committer", "replication", "http"}

func newCoreServiceStub(name string, queue bus.Queue) *svcs.AnonService {
	return &svcs.AnonService{
		InitF: func(ctx context.Context) error {
			queue.Post(cluster.NewServiceInitialized(name))
			return nil
		},
		StopF: func() error {
			queue.Post(cluster.NewServiceShutdown(name))
			return nil
		},
	}
}

func newLogger() *logrus.Entry {
	l := logrus.New()
	l.SetFormatter(&logrus.JSONFormatter{})
	return l.WithField("service", "eventstored")
}

func newTracerProvider(jaegerEndpoint, instanceID string) (*sdktrace.TracerProvider, error) {
	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(
		semconv.ServiceNameKey.String("eventstored"),
		semconv.ServiceInstanceIDKey.String(instanceID),
	))
	if err != nil {
		return nil, fmt.Errorf("eventstored: build resource: %w", err)
	}

	opts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}
	if jaegerEndpoint != "" {
		exp, err := jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(jaegerEndpoint)))
		if err != nil {
			return nil, fmt.Errorf("eventstored: build jaeger exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exp))
	}

	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)
	return tp, nil
}

func mustParseEndpoint(log *logrus.Entry, addr string) cluster.Endpoint {
	ep, err := parseEndpoint(addr)
	if err != nil {
		log.WithError(err).Fatalf("eventstored: invalid address %q", addr)
	}
	return ep
}

func parseOptionalEndpoint(addr string) cluster.Endpoint {
	if addr == "" {
		return cluster.Endpoint{}
	}
	ep, err := parseEndpoint(addr)
	if err != nil {
		return cluster.Endpoint{}
	}
	return ep
}

func parseEndpoint(addr string) (cluster.Endpoint, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return cluster.Endpoint{}, err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return cluster.Endpoint{}, err
	}
	return cluster.Endpoint{Host: host, Port: port}, nil
}

// osTerminator is the production cluster.ProcessTerminator: it logs and
// actually ends the process, unlike the recording fakes every cluster test
// installs instead.
type osTerminator struct {
	log *logrus.Entry
}

func newOSTerminator(log *logrus.Entry) *osTerminator {
	return &osTerminator{log: log}
}

func (t *osTerminator) Fatal(msg string) {
	t.log.Error(msg)
	os.Exit(1)
}

func (t *osTerminator) Exit() {
	os.Exit(0)
}
