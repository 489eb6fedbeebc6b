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
	"crypto/ed25519"
	"encoding/base64"
	"fmt"

	"gopkg.in/go-jose/go-jose.v2"
)

// staticKeyProvider resolves every kid to the same cluster-wide ed25519
// public key. Real key rotation (multiple kids, a refresh loop against a
// secrets store) is a deployment concern out of scope for this bootstrap.
type staticKeyProvider struct {
	key jose.JSONWebKey
}

func newStaticKeyProvider(kid, base64PublicKey string) (*staticKeyProvider, error) {
	raw, err := base64.StdEncoding.DecodeString(base64PublicKey)
	if err != nil {
		return nil, fmt.Errorf("eventstored: decode cluster peer key: %w", err)
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("eventstored: cluster peer key must be %d bytes, got %d", ed25519.PublicKeySize, len(raw))
	}
	return &staticKeyProvider{key: jose.JSONWebKey{Key: ed25519.PublicKey(raw), KeyID: kid}}, nil
}

func (p *staticKeyProvider) GetKey(kid string) ([]jose.JSONWebKey, error) {
	if kid != p.key.KeyID {
		return nil, fmt.Errorf("eventstored: no cluster peer key published for kid %q", kid)
	}
	return []jose.JSONWebKey{p.key}, nil
}
