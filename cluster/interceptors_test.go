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
	"crypto/ed25519"
	"crypto/rand"
	"net"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"gopkg.in/go-jose/go-jose.v2"
	"gopkg.in/go-jose/go-jose.v2/jwt"

	"github.com/arwinneil/EventStore/cluster/jwtauth"
)

type healthServer struct {
	grpc_health_v1.UnimplementedHealthServer
	md metadata.MD
}

func (s *healthServer) Check(ctx context.Context, req *grpc_health_v1.HealthCheckRequest) (*grpc_health_v1.HealthCheckResponse, error) {
	s.md, _ = metadata.FromIncomingContext(ctx)
	return nil, status.Error(codes.Unimplemented, "method Check not implemented")
}

func (s *healthServer) Watch(req *grpc_health_v1.HealthCheckRequest, ss grpc_health_v1.Health_WatchServer) error {
	s.md, _ = metadata.FromIncomingContext(ss.Context())
	return status.Error(codes.Unimplemented, "method Watch not implemented")
}

func noopRoleSetter(string, int) {}

var interceptorTestLog = logrus.StandardLogger().WithFields(logrus.Fields{})

var testKeyProvider jwtauth.KeyProvider
var testPub ed25519.PublicKey
var testPriv ed25519.PrivateKey

func init() {
	var err error
	testPub, testPriv, err = ed25519.GenerateKey(rand.Reader)
	if err != nil {
		panic(err)
	}
	testKeyProvider = fixedKeyProvider{testPub}
}

type fixedKeyProvider struct {
	ed25519.PublicKey
}

func (p fixedKeyProvider) GetKey(string) ([]jose.JSONWebKey, error) {
	return []jose.JSONWebKey{{Key: p.PublicKey, KeyID: "1"}}, nil
}

func issueTestJWT() string {
	key := jose.SigningKey{Algorithm: jose.EdDSA, Key: testPriv}
	opts := &jose.SignerOptions{ExtraHeaders: map[jose.HeaderKey]interface{}{"kid": "1"}}
	signer, err := jose.NewSigner(key, opts)
	if err != nil {
		panic(err)
	}
	built, err := jwt.Signed(signer).Claims(jwt.Claims{
		Audience: []string{"eventstore-cluster"},
		Issuer:   "eventstored",
		Subject:  "peer",
		Expiry:   jwt.NewNumericDate(time.Now().Add(30 * time.Second)),
	}).CompactSerialize()
	if err != nil {
		panic(err)
	}
	return built
}

func peerCtx(vals ...interface{}) context.Context {
	ctx := context.Background()
	if len(vals) == 0 {
		return metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+issueTestJWT())
	}
	if len(vals) == 2 {
		return metadata.AppendToOutgoingContext(ctx,
			clusterRoleHeader, string(vals[0].(Role)),
			clusterRoleEpochHeader, strconv.Itoa(vals[1].(int)),
			"authorization", "Bearer "+issueTestJWT())
	}
	panic("peerCtx takes 0 or 2 values")
}

func withHealthClient(t *testing.T, cb func(*testing.T, grpc_health_v1.HealthClient), serveropts []grpc.ServerOption, dialopts []grpc.DialOption) *healthServer {
	addr, err := net.ResolveUnixAddr("unix", "cluster_interceptor_test.socket")
	require.NoError(t, err)
	lis, err := net.ListenUnix("unix", addr)
	require.NoError(t, err)

	var wg sync.WaitGroup
	var srvErr error
	wg.Add(1)

	srv := grpc.NewServer(serveropts...)
	hs := new(healthServer)
	grpc_health_v1.RegisterHealthServer(srv, hs)
	defer func() {
		if srv != nil {
			srv.GracefulStop()
			wg.Wait()
		}
	}()

	go func() {
		defer wg.Done()
		srvErr = srv.Serve(lis)
	}()

	cc, err := grpc.Dial("unix:cluster_interceptor_test.socket", append([]grpc.DialOption{grpc.WithInsecure()}, dialopts...)...)
	require.NoError(t, err)
	client := grpc_health_v1.NewHealthClient(cc)

	cb(t, client)

	srv.GracefulStop()
	wg.Wait()
	srv = nil
	require.NoError(t, srvErr)

	return hs
}

func TestServerInterceptorRejectsMissingToken(t *testing.T) {
	var si serverinterceptor
	si.roleSetter = noopRoleSetter
	si.lgr = interceptorTestLog
	si.keyProvider = testKeyProvider

	for _, role := range []Role{RoleFollower, RoleLeader} {
		si.setRole(role, 10)
		t.Run(string(role), func(t *testing.T) {
			withHealthClient(t, func(t *testing.T, client grpc_health_v1.HealthClient) {
				_, err := client.Check(context.Background(), &grpc_health_v1.HealthCheckRequest{})
				assert.Equal(t, codes.Unauthenticated, status.Code(err))
				stream, err := client.Watch(context.Background(), &grpc_health_v1.HealthCheckRequest{})
				assert.NoError(t, err)
				_, err = stream.Recv()
				assert.Equal(t, codes.Unauthenticated, status.Code(err))
			}, si.Options(), nil)
		})
	}
}

func TestServerInterceptorAddsUnaryResponseHeaders(t *testing.T) {
	var si serverinterceptor
	si.setRole(RoleFollower, 10)
	si.roleSetter = noopRoleSetter
	si.lgr = interceptorTestLog
	si.keyProvider = testKeyProvider

	withHealthClient(t, func(t *testing.T, client grpc_health_v1.HealthClient) {
		var md metadata.MD
		_, err := client.Check(peerCtx(RoleLeader, 10), &grpc_health_v1.HealthCheckRequest{}, grpc.Header(&md))
		assert.Equal(t, codes.Unimplemented, status.Code(err))
		if assert.Len(t, md.Get(clusterRoleHeader), 1) {
			assert.Equal(t, "Follower", md.Get(clusterRoleHeader)[0])
		}
		if assert.Len(t, md.Get(clusterRoleEpochHeader), 1) {
			assert.Equal(t, "10", md.Get(clusterRoleEpochHeader)[0])
		}
	}, si.Options(), nil)
}

func TestServerInterceptorAsLeaderRejectsNonLeaderCaller(t *testing.T) {
	var si serverinterceptor
	si.setRole(RoleLeader, 10)
	si.roleSetter = noopRoleSetter
	si.lgr = interceptorTestLog
	si.keyProvider = testKeyProvider

	srv := withHealthClient(t, func(t *testing.T, client grpc_health_v1.HealthClient) {
		_, err := client.Check(peerCtx(RoleFollower, 10), &grpc_health_v1.HealthCheckRequest{})
		assert.Equal(t, codes.FailedPrecondition, status.Code(err))
		stream, err := client.Watch(peerCtx(RoleFollower, 10), &grpc_health_v1.HealthCheckRequest{})
		assert.NoError(t, err)
		_, err = stream.Recv()
		assert.Equal(t, codes.FailedPrecondition, status.Code(err))
	}, si.Options(), nil)
	assert.Nil(t, srv.md)
}

func TestClientInterceptorAddsRequestHeadersWhenLeader(t *testing.T) {
	var ci clientinterceptor
	ci.setRole(RoleLeader, 10)
	ci.roleSetter = noopRoleSetter
	ci.lgr = interceptorTestLog

	srv := withHealthClient(t, func(t *testing.T, client grpc_health_v1.HealthClient) {
		_, err := client.Check(peerCtx(), &grpc_health_v1.HealthCheckRequest{})
		assert.Equal(t, codes.Unimplemented, status.Code(err))
	}, nil, ci.Options())
	if assert.Len(t, srv.md.Get(clusterRoleHeader), 1) {
		assert.Equal(t, "Leader", srv.md.Get(clusterRoleHeader)[0])
	}
	if assert.Len(t, srv.md.Get(clusterRoleEpochHeader), 1) {
		assert.Equal(t, "10", srv.md.Get(clusterRoleEpochHeader)[0])
	}
}

func TestClientInterceptorRefusesToOriginateWhenNotLeader(t *testing.T) {
	var ci clientinterceptor
	ci.setRole(RoleLeader, 10)
	ci.roleSetter = noopRoleSetter
	ci.lgr = interceptorTestLog

	srv := withHealthClient(t, func(t *testing.T, client grpc_health_v1.HealthClient) {
		_, err := client.Check(peerCtx(), &grpc_health_v1.HealthCheckRequest{})
		assert.Equal(t, codes.Unimplemented, status.Code(err))

		ci.setRole(RoleFollower, 11)
		_, err = client.Check(peerCtx(), &grpc_health_v1.HealthCheckRequest{})
		assert.Equal(t, codes.FailedPrecondition, status.Code(err))
		_, err = client.Watch(peerCtx(), &grpc_health_v1.HealthCheckRequest{})
		assert.Equal(t, codes.FailedPrecondition, status.Code(err))
	}, nil, ci.Options())
	if assert.Len(t, srv.md.Get(clusterRoleHeader), 1) {
		assert.Equal(t, "Leader", srv.md.Get(clusterRoleHeader)[0])
	}
	if assert.Len(t, srv.md.Get(clusterRoleEpochHeader), 1) {
		assert.Equal(t, "10", srv.md.Get(clusterRoleEpochHeader)[0])
	}
}
