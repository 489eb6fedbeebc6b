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

// Package jwtauth verifies the bearer tokens peer nodes present on cluster
// RPCs. Keys are resolved by key id rather than pinned, so a rotation can
// roll across a running cluster without a restart.
package jwtauth

import (
	"fmt"
	"time"

	"gopkg.in/go-jose/go-jose.v2"
	"gopkg.in/go-jose/go-jose.v2/jwt"
)

// KeyProvider resolves the verification keys published under a key id. A
// provider may return more than one key for a kid during rotation; Verify
// tries each until one validates the signature.
type KeyProvider interface {
	GetKey(kid string) ([]jose.JSONWebKey, error)
}

// Verify parses a compact JWT, resolves its signing key by the "kid" header
// through provider, and checks the signature and standard time claims. It
// returns the verified claims on success.
func Verify(provider KeyProvider, token string) (jwt.Claims, error) {
	var claims jwt.Claims

	parsed, err := jwt.ParseSigned(token)
	if err != nil {
		return claims, fmt.Errorf("jwtauth: parse token: %w", err)
	}
	if len(parsed.Headers) == 0 {
		return claims, fmt.Errorf("jwtauth: token carries no header")
	}

	kid := parsed.Headers[0].KeyID
	keys, err := provider.GetKey(kid)
	if err != nil {
		return claims, fmt.Errorf("jwtauth: resolve key %q: %w", kid, err)
	}
	if len(keys) == 0 {
		return claims, fmt.Errorf("jwtauth: no key published for kid %q", kid)
	}

	var lastErr error
	for _, key := range keys {
		if err := parsed.Claims(key.Key, &claims); err != nil {
			lastErr = err
			continue
		}
		if err := claims.Validate(jwt.Expected{Time: time.Now()}); err != nil {
			return jwt.Claims{}, fmt.Errorf("jwtauth: invalid claims: %w", err)
		}
		return claims, nil
	}
	return jwt.Claims{}, fmt.Errorf("jwtauth: signature did not verify against any key for kid %q: %w", kid, lastErr)
}
