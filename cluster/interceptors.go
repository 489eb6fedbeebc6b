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
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/arwinneil/EventStore/cluster/jwtauth"
)

// clusterRoleHeader and clusterRoleEpochHeader carry the sender's believed
// role and election epoch on every peer RPC, so a receiving node can tell a
// caller apart that is acting on a stale picture of the cluster.
const (
	clusterRoleHeader      = "x-eventstore-cluster-role"
	clusterRoleEpochHeader = "x-eventstore-cluster-role-epoch"
)

// roleEpoch is swapped atomically so the RPC goroutines never block the
// controller's queue goroutine, or each other, reading it.
type roleEpoch struct {
	role  Role
	epoch int
}

type roleState struct {
	v atomic.Value
}

func (r *roleState) set(role Role, epoch int) { r.v.Store(roleEpoch{role, epoch}) }

func (r *roleState) get() (Role, int) {
	re, _ := r.v.Load().(roleEpoch)
	return re.role, re.epoch
}

func stampedResponseHeader(role Role, epoch int) metadata.MD {
	return metadata.Pairs(clusterRoleHeader, string(role), clusterRoleEpochHeader, strconv.Itoa(epoch))
}

// callerDeclaresLeader reports whether the clusterRoleHeader on an inbound
// request, if present, names the cluster leader. Only the leader ever
// originates these peer RPCs; a header naming anything else means the
// caller is acting on stale cluster state.
func callerDeclaresLeader(ctx context.Context) bool {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return true
	}
	roles := md.Get(clusterRoleHeader)
	if len(roles) != 1 {
		return true
	}
	return Role(roles[0]) == RoleLeader
}

// serverinterceptor authenticates inbound peer RPCs against keyProvider and
// stamps this node's believed role and epoch onto every response, so a
// caller with a stale picture of the cluster can reconcile it. It rejects a
// request whose declared sender role is not the leader as a defensive
// backstop against the equivalent client-side check failing to run.
type serverinterceptor struct {
	roleState
	roleSetter  func(string, int)
	lgr         *logrus.Entry
	keyProvider jwtauth.KeyProvider
}

func (si *serverinterceptor) setRole(role Role, epoch int) {
	si.roleState.set(role, epoch)
	if si.roleSetter != nil {
		si.roleSetter(string(role), epoch)
	}
}

// Options returns the grpc.ServerOptions that install both interceptors.
func (si *serverinterceptor) Options() []grpc.ServerOption {
	return []grpc.ServerOption{
		grpc.UnaryInterceptor(si.unary),
		grpc.StreamInterceptor(si.stream),
	}
}

func (si *serverinterceptor) authenticate(ctx context.Context) error {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return status.Error(codes.Unauthenticated, "cluster: missing request metadata")
	}
	auth := md.Get("authorization")
	if len(auth) == 0 || !strings.HasPrefix(auth[0], "Bearer ") {
		return status.Error(codes.Unauthenticated, "cluster: missing bearer token")
	}
	token := strings.TrimPrefix(auth[0], "Bearer ")
	if _, err := jwtauth.Verify(si.keyProvider, token); err != nil {
		si.lgr.WithError(err).Debug("rejecting peer RPC with invalid token")
		return status.Error(codes.Unauthenticated, "cluster: invalid token")
	}
	return nil
}

func (si *serverinterceptor) unary(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	if err := si.authenticate(ctx); err != nil {
		return nil, err
	}
	role, epoch := si.roleState.get()
	_ = grpc.SetHeader(ctx, stampedResponseHeader(role, epoch))
	if !callerDeclaresLeader(ctx) {
		return nil, status.Error(codes.FailedPrecondition, "cluster: peer RPC must originate from the cluster leader")
	}
	return handler(ctx, req)
}

func (si *serverinterceptor) stream(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
	ctx := ss.Context()
	if err := si.authenticate(ctx); err != nil {
		return err
	}
	role, epoch := si.roleState.get()
	_ = ss.SetHeader(stampedResponseHeader(role, epoch))
	if !callerDeclaresLeader(ctx) {
		return status.Error(codes.FailedPrecondition, "cluster: peer RPC must originate from the cluster leader")
	}
	return handler(srv, ss)
}

// clientinterceptor stamps this node's believed role and epoch onto every
// outbound peer RPC, and refuses to originate the call at all unless this
// node currently believes itself to be the leader — the cheap half of the
// leader-only check, ahead of the server's defensive re-check.
type clientinterceptor struct {
	roleState
	roleSetter func(string, int)
	lgr        *logrus.Entry
}

func (ci *clientinterceptor) setRole(role Role, epoch int) {
	ci.roleState.set(role, epoch)
	if ci.roleSetter != nil {
		ci.roleSetter(string(role), epoch)
	}
}

// Options returns the grpc.DialOptions that install both interceptors.
func (ci *clientinterceptor) Options() []grpc.DialOption {
	return []grpc.DialOption{
		grpc.WithUnaryInterceptor(ci.unary),
		grpc.WithStreamInterceptor(ci.stream),
	}
}

func (ci *clientinterceptor) outgoingContext(ctx context.Context) (context.Context, error) {
	role, epoch := ci.roleState.get()
	if role != RoleLeader {
		return nil, status.Error(codes.FailedPrecondition, "cluster: only the cluster leader originates peer RPCs")
	}
	return metadata.AppendToOutgoingContext(ctx, clusterRoleHeader, string(role), clusterRoleEpochHeader, strconv.Itoa(epoch)), nil
}

func (ci *clientinterceptor) unary(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
	ctx, err := ci.outgoingContext(ctx)
	if err != nil {
		return err
	}
	return invoker(ctx, method, req, reply, cc, opts...)
}

func (ci *clientinterceptor) stream(ctx context.Context, desc *grpc.StreamDesc, cc *grpc.ClientConn, method string, streamer grpc.Streamer, opts ...grpc.CallOption) (grpc.ClientStream, error) {
	ctx, err := ci.outgoingContext(ctx)
	if err != nil {
		return nil, err
	}
	return streamer(ctx, desc, cc, method, opts...)
}

// ServerInterceptorOptions returns the grpc.ServerOptions a node installs on
// its peer-facing gRPC server: token authentication against keyProvider and
// the role/epoch stamping and leader-only admission of the interceptor pair
// above. The interceptor is kept in sync with the controller's own role and
// epoch for the lifetime of the Controller via RegisterRoleObserver.
func (c *Controller) ServerInterceptorOptions(keyProvider jwtauth.KeyProvider) []grpc.ServerOption {
	si := &serverinterceptor{lgr: c.log, keyProvider: keyProvider}
	si.setRole(c.st.role, c.st.currentEpoch)
	c.RegisterRoleObserver(si.setRole)
	return si.Options()
}

// ClientInterceptorOptions returns the grpc.DialOptions a node installs on
// its outbound connections to peers, kept in sync the same way.
func (c *Controller) ClientInterceptorOptions() []grpc.DialOption {
	ci := &clientinterceptor{lgr: c.log}
	ci.setRole(c.st.role, c.st.currentEpoch)
	c.RegisterRoleObserver(ci.setRole)
	return ci.Options()
}
